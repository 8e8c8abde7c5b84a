package metrics

import "time"

// ResultLabel enumerates stage result categories for counters.
type ResultLabel string

const (
	ResultSuccess ResultLabel = "success"
	ResultIssues  ResultLabel = "issues"
	ResultFailed  ResultLabel = "failed"
	ResultTimeout ResultLabel = "timeout"
	ResultSkipped ResultLabel = "skipped"
)

// Recorder defines observability hooks for run and stage metrics.
// Implementations may forward to Prometheus; NoopRecorder is the default.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	ObserveRunDuration(d time.Duration)
	IncStageResult(stage string, result ResultLabel)
	IncRunOutcome(outcome string) // passed|passed_with_warnings|failed
	AddIssues(severity, category string, n int)
	SetPages(n int)
	SetEntities(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics are not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) ObserveRunDuration(time.Duration)           {}
func (NoopRecorder) IncStageResult(string, ResultLabel)         {}
func (NoopRecorder) IncRunOutcome(string)                       {}
func (NoopRecorder) AddIssues(string, string, int)              {}
func (NoopRecorder) SetPages(int)                               {}
func (NoopRecorder) SetEntities(int)                            {}
