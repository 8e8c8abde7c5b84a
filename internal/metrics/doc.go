// Package metrics records pipeline run metrics.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so metrics collection needs no nil checks:
//
//	recorder := metrics.NewPrometheusRecorder(registry)
//	orchestrator := pipeline.New(cfg, pipeline.WithRecorder(recorder))
//
// The watch command serves the registry over HTTP with HTTPHandler.
package metrics
