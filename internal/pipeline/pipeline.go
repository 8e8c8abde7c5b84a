// Package pipeline sequences the stages of a documentation run and turns
// their findings into a single report.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/docsync/internal/config"
	"git.home.luguber.info/inful/docsync/internal/history"
	"git.home.luguber.info/inful/docsync/internal/ir"
	"git.home.luguber.info/inful/docsync/internal/logfields"
	"git.home.luguber.info/inful/docsync/internal/metrics"
	"git.home.luguber.info/inful/docsync/internal/nav"
	"git.home.luguber.info/inful/docsync/internal/output"
	"git.home.luguber.info/inful/docsync/internal/report"
	"git.home.luguber.info/inful/docsync/internal/snapshot"
	"git.home.luguber.info/inful/docsync/internal/validate"
	"git.home.luguber.info/inful/docsync/internal/version"
)

// Orchestrator runs the pipeline. It keeps no state between runs apart from
// the optional history store.
type Orchestrator struct {
	cfg      *config.Config
	recorder metrics.Recorder
	history  history.Store
	verifier validate.LinkVerifier
	writer   *output.Writer
	now      func() time.Time
	newRunID func() string
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithRecorder injects a metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.recorder = r
		}
	}
}

// WithHistory enables the run history used for diffs.
func WithHistory(s history.Store) Option { return func(o *Orchestrator) { o.history = s } }

// WithLinkVerifier replaces the external link verifier built from config.
func WithLinkVerifier(v validate.LinkVerifier) Option { return func(o *Orchestrator) { o.verifier = v } }

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(o *Orchestrator) { o.now = now } }

// WithRunIDs replaces the run id generator.
func WithRunIDs(f func() string) Option { return func(o *Orchestrator) { o.newRunID = f } }

// New creates an orchestrator for cfg.
func New(cfg *config.Config, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:      cfg,
		recorder: metrics.NoopRecorder{},
		writer:   output.NewWriter(cfg.Output.Directory, cfg.Output.Clean),
		now:      time.Now,
		newRunID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Result is what a run leaves behind.
type Result struct {
	Report   *report.Report
	State    State
	Pages    []ir.Page
	Manifest *nav.Manifest
}

// Failed reports whether the run ended in Failed.
func (r *Result) Failed() bool { return r.State == StateFailed }

// Run executes every stage and writes the output. It always returns a
// Result with a finalized report; the error is non-nil only when the report
// itself could not be written.
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	runID := o.newRunID()
	start := o.now()
	rep := report.NewReport(runID, start)
	rep.Version = version.Version
	rep.Revision = snapshot.Stamp(o.cfg.Source.Directory)

	logger := slog.With(logfields.RunID(runID))
	logger.Info("Run started", slog.String("source", o.cfg.Source.Directory), slog.String("revision", rep.Revision))

	if timeout := o.cfg.Validation.GlobalTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	m := NewMachine(o.now)
	rs := &RunState{RunID: runID}

	for _, st := range o.stages() {
		if err := m.Transition(st.state); err != nil {
			return nil, err
		}
		if !o.runStage(ctx, st, rs, rep, logger) {
			break
		}
	}

	if err := m.Transition(StateReporting); err != nil {
		return nil, err
	}
	res := &Result{Report: rep, Pages: rs.Pages}
	if rs.Nav != nil {
		res.Manifest = rs.Nav.Manifest
	}
	o.writeOutput(res, rep, logger)

	rep.Entities = len(rs.Entities)
	rep.Pages = len(rs.Pages)
	rep.Diff = o.diff(context.WithoutCancel(ctx), runID, rep.Issues(), logger)

	final := StateDone
	if rep.HasCritical() {
		final = StateFailed
	}
	if err := m.Transition(final); err != nil {
		return nil, err
	}
	res.State = final
	rep.Transitions = m.History()
	rep.Finalize(o.now(), string(final))

	o.record(rep)
	if o.history != nil {
		if err := o.history.Record(context.WithoutCancel(ctx), rep); err != nil {
			logger.Warn("Failed to record run history", logfields.Error(err))
		}
	}

	logger.Info("Run finished", logfields.State(string(final)), slog.String("summary", rep.Summary()))
	if err := o.writer.WriteReport(rep); err != nil {
		return res, err
	}
	return res, nil
}

// runStage executes st and records its timing. It returns false when the
// run must jump to Reporting.
func (o *Orchestrator) runStage(ctx context.Context, st stage, rs *RunState, rep *report.Report, logger *slog.Logger) bool {
	if ctx.Err() != nil {
		rep.AddIssues(report.New(report.CategoryStageTimeout,
			fmt.Sprintf("run exceeded the global timeout of %s before %s", o.cfg.Validation.GlobalTimeout, st.name)))
		o.finishStage(rep, st.name, 0, metrics.ResultTimeout, logger)
		return false
	}

	t0 := o.now()
	issues, err := st.run(ctx, rs)
	d := o.now().Sub(t0)
	rep.AddIssues(issues...)

	switch {
	case err == errSkipped:
		o.finishStage(rep, st.name, d, metrics.ResultSkipped, logger)
		return true
	case ctx.Err() != nil:
		rep.AddIssues(report.New(report.CategoryStageTimeout,
			fmt.Sprintf("%s stage exceeded the global timeout of %s", st.name, o.cfg.Validation.GlobalTimeout)))
		o.finishStage(rep, st.name, d, metrics.ResultTimeout, logger)
		return false
	case err != nil:
		logger.Error("Stage failed", logfields.Stage(st.name), logfields.Error(err))
		rep.AddIssues(report.New(report.CategoryStageFailure, fmt.Sprintf("%s stage failed: %v", st.name, err)))
		o.finishStage(rep, st.name, d, metrics.ResultFailed, logger)
		return false
	case len(issues) > 0:
		o.finishStage(rep, st.name, d, metrics.ResultIssues, logger)
	default:
		o.finishStage(rep, st.name, d, metrics.ResultSuccess, logger)
	}
	return true
}

func (o *Orchestrator) finishStage(rep *report.Report, name string, d time.Duration, result metrics.ResultLabel, logger *slog.Logger) {
	rep.RecordStage(name, d, string(result))
	o.recorder.ObserveStageDuration(name, d)
	o.recorder.IncStageResult(name, result)
	logger.Debug("Stage finished", logfields.Stage(name),
		logfields.DurationMS(float64(d.Microseconds())/1000), slog.String("result", string(result)))
}

// writeOutput writes the page tree and the synchronized manifest. Failures
// become stage-failure issues of the reporting stage.
func (o *Orchestrator) writeOutput(res *Result, rep *report.Report, logger *slog.Logger) {
	t0 := o.now()
	result := metrics.ResultSuccess
	fail := func(what string, err error) {
		logger.Error("Output failed", slog.String("what", what), logfields.Error(err))
		rep.AddIssues(report.New(report.CategoryStageFailure, fmt.Sprintf("reporting stage failed to write %s: %v", what, err)))
		result = metrics.ResultFailed
	}

	if res.Pages != nil {
		if err := o.writer.WritePages(res.Pages); err != nil {
			fail("pages", err)
		}
	}
	if res.Manifest != nil {
		if err := o.writer.WriteManifest(res.Manifest); err != nil {
			fail("navigation manifest", err)
		}
	}
	o.finishStage(rep, "reporting", o.now().Sub(t0), result, logger)
}

// diff compares issues with the previous run: from history when enabled,
// otherwise from the last report in the output directory.
func (o *Orchestrator) diff(ctx context.Context, runID string, issues []report.Issue, logger *slog.Logger) *report.Diff {
	if o.history != nil {
		prev, prevIssues, ok, err := o.history.Latest(ctx, runID)
		if err != nil {
			logger.Warn("Failed to read run history", logfields.Error(err))
			return nil
		}
		if !ok {
			return nil
		}
		return report.CompareRuns(prev.ID, prevIssues, issues)
	}

	prev, err := o.writer.PreviousReport()
	if err != nil {
		logger.Warn("Failed to read previous report", logfields.Error(err))
		return nil
	}
	if prev == nil {
		return nil
	}
	return report.CompareRuns(prev.RunID, prev.Issues(), issues)
}

func (o *Orchestrator) record(rep *report.Report) {
	type key struct{ sev, cat string }
	counts := map[key]int{}
	for _, is := range rep.Issues() {
		counts[key{string(is.Severity), string(is.Category)}]++
	}
	for k, n := range counts {
		o.recorder.AddIssues(k.sev, k.cat, n)
	}
	o.recorder.SetPages(rep.Pages)
	o.recorder.SetEntities(rep.Entities)
	o.recorder.IncRunOutcome(string(rep.Outcome))
	o.recorder.ObserveRunDuration(rep.End.Sub(rep.Start))
}
