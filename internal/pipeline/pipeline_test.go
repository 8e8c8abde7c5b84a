package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docsync/internal/config"
	"git.home.luguber.info/inful/docsync/internal/history"
	"git.home.luguber.info/inful/docsync/internal/metrics"
	"git.home.luguber.info/inful/docsync/internal/report"
)

const modelJS = `/**
 * A replicated model.
 * @class
 */
export class Model {
  /**
   * Publish an event.
   * @param {string} name - Event name.
   * @returns {void}
   */
  publish(name) {}
}
`

type fixture struct {
	root string
	cfg  *config.Config
}

func newFixture(t *testing.T, files map[string]string) *fixture {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}
	cfg := &config.Config{
		Source:    config.SourceConfig{Directory: filepath.Join(root, "src")},
		Narrative: config.NarrativeConfig{Directory: filepath.Join(root, "docs")},
		Assets:    config.AssetsConfig{Directory: filepath.Join(root, "static")},
		Output:    config.OutputConfig{Directory: filepath.Join(root, "out"), Clean: true},
	}
	if _, ok := files["navigation.yaml"]; ok {
		cfg.Navigation.Manifest = filepath.Join(root, "navigation.yaml")
	}
	require.NoError(t, config.ApplyDefaults(cfg))
	cfg.Validation.Workers = 2
	return &fixture{root: root, cfg: cfg}
}

func (f *fixture) orchestrator(opts ...Option) *Orchestrator {
	n := 0
	clock := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	base := []Option{
		WithClock(func() time.Time { return clock }),
		WithRunIDs(func() string { n++; return fmt.Sprintf("run-%d", n) }),
	}
	return New(f.cfg, append(base, opts...)...)
}

func issuesOf(r *report.Report, cat report.Category) []report.Issue {
	var out []report.Issue
	for _, is := range r.Issues() {
		if is.Category == cat {
			out = append(out, is)
		}
	}
	return out
}

func criticals(r *report.Report) []report.Issue {
	var out []report.Issue
	for _, is := range r.Issues() {
		if is.IsCritical() {
			out = append(out, is)
		}
	}
	return out
}

func TestRun_BrokenInternalLinkFails(t *testing.T) {
	f := newFixture(t, map[string]string{
		"src/model.js":   modelJS,
		"docs/hello.mdx": "---\ntitle: Hello\ndescription: Greets the world\n---\n# Hello\n\nNext, visit [the world](/tutorials/world).\n",
	})

	res, err := f.orchestrator().Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, StateFailed, res.State)
	require.True(t, res.Failed())

	crit := criticals(res.Report)
	require.Len(t, crit, 1)
	require.Equal(t, report.CategoryMissingInternalLink, crit[0].Category)
	require.Equal(t, "hello.mdx", crit[0].File)
	require.Equal(t, 7, crit[0].Line)
	require.Equal(t, report.OutcomeFailed, res.Report.Outcome)

	// the report is on disk even though the run failed
	loaded, err := report.LoadJSON(filepath.Join(f.cfg.Output.Directory, report.JSONFileName))
	require.NoError(t, err)
	require.Equal(t, string(StateFailed), loaded.State)
	require.Len(t, loaded.Issues(), len(res.Report.Issues()))
}

func TestRun_OrphanPageStillDone(t *testing.T) {
	f := newFixture(t, map[string]string{
		"src/model.js":    modelJS,
		"docs/hello.mdx":  "---\ntitle: Hello\ndescription: Greets\n---\n# Hello\n\nSee [Model](/api/model).\n",
		"docs/unused.mdx": "---\ntitle: Unused\ndescription: Nobody links here\n---\nAlone.\n",
		"navigation.yaml": "- title: Hello\n  path: hello\n- title: API\n  children:\n    - title: Model\n      path: api/model\n",
	})

	res, err := f.orchestrator().Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, StateDone, res.State)
	require.Empty(t, criticals(res.Report))

	orphans := issuesOf(res.Report, report.CategoryOrphanPage)
	require.Len(t, orphans, 1)
	require.Equal(t, report.SeverityMedium, orphans[0].Severity)
	require.Equal(t, "unused", orphans[0].Page)
	require.Equal(t, "unused.mdx", orphans[0].File)

	require.FileExists(t, filepath.Join(f.cfg.Output.Directory, "navigation.yaml"))
	require.FileExists(t, filepath.Join(f.cfg.Output.Directory, "pages", "api", "model.mdx"))
	require.FileExists(t, filepath.Join(f.cfg.Output.Directory, "pages", "unused.mdx"))
}

func TestRun_MissingNavigationTargetFails(t *testing.T) {
	f := newFixture(t, map[string]string{
		"src/model.js":    modelJS,
		"docs/hello.mdx":  "---\ntitle: Hello\ndescription: Greets\n---\n# Hello\n",
		"navigation.yaml": "- title: Hello\n  path: hello\n- title: Model\n  path: api/model\n- title: World\n  path: /tutorials/world\n",
	})

	res, err := f.orchestrator().Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, StateFailed, res.State)

	crit := criticals(res.Report)
	require.Len(t, crit, 1)
	require.Equal(t, report.CategoryMissingNavTarget, crit[0].Category)
	require.Equal(t, "tutorials/world", crit[0].Page)
	require.Equal(t, 5, crit[0].Line)
}

func TestRun_Idempotent(t *testing.T) {
	f := newFixture(t, map[string]string{
		"src/model.js":    modelJS,
		"docs/hello.mdx":  "---\ntitle: Hello\ndescription: Greets\n---\n# Hello\n\nUses {@link Model#publish}.\n",
		"docs/unused.mdx": "---\ntitle: Unused\ndescription: Alone\n---\nAlone.\n",
	})
	readPages := func() map[string]string {
		out := map[string]string{}
		dir := filepath.Join(f.cfg.Output.Directory, "pages")
		require.NoError(t, filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
			require.NoError(t, err)
			if !d.IsDir() {
				data, err := os.ReadFile(p)
				require.NoError(t, err)
				rel, _ := filepath.Rel(dir, p)
				out[rel] = string(data)
			}
			return nil
		}))
		return out
	}

	o := f.orchestrator()
	first, err := o.Run(context.Background())
	require.NoError(t, err)
	pages := readPages()
	require.NotEmpty(t, pages)

	second, err := o.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, pages, readPages())
	require.Equal(t, first.Report.Issues(), second.Report.Issues())
	require.Equal(t, first.State, second.State)

	// with no history store the diff comes from the previous report.json
	require.NotNil(t, second.Report.Diff)
	require.Equal(t, "run-1", second.Report.Diff.PreviousRunID)
	require.True(t, second.Report.Diff.Empty())
	require.Equal(t, len(first.Report.Issues()), second.Report.Diff.Unchanged)
}

func TestRun_HistoryDiff(t *testing.T) {
	f := newFixture(t, map[string]string{
		"src/model.js":   modelJS,
		"docs/hello.mdx": "---\ntitle: Hello\ndescription: Greets\n---\n[gone](/nowhere)\n",
	})
	store, err := history.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	o := f.orchestrator(WithHistory(store))
	first, err := o.Run(context.Background())
	require.NoError(t, err)
	require.Nil(t, first.Report.Diff)

	require.NoError(t, os.WriteFile(filepath.Join(f.root, "docs", "hello.mdx"),
		[]byte("---\ntitle: Hello\ndescription: Greets\n---\nFixed.\n"), 0o600))
	second, err := o.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, StateDone, second.State)
	require.Equal(t, "run-1", second.Report.Diff.PreviousRunID)
	require.Len(t, second.Report.Diff.Resolved, 1)
	require.Equal(t, report.CategoryMissingInternalLink, second.Report.Diff.Resolved[0].Category)

	runs, err := store.Runs(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, runs, 2)
}

func TestRun_StageFailureJumpsToReporting(t *testing.T) {
	f := newFixture(t, map[string]string{"docs/hello.mdx": "---\ntitle: Hello\ndescription: x\n---\n"})
	f.cfg.Source.Directory = filepath.Join(f.root, "missing")

	res, err := f.orchestrator().Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, StateFailed, res.State)
	require.Len(t, issuesOf(res.Report, report.CategoryStageFailure), 1)

	var path []string
	for _, tr := range res.Report.Transitions {
		path = append(path, tr.To)
	}
	require.Equal(t, []string{"Extracting", "Reporting", "Failed"}, path)
	require.Equal(t, "failed", res.Report.Stages[0].Result)
	require.FileExists(t, filepath.Join(f.cfg.Output.Directory, report.JSONFileName))
}

func TestRun_GlobalTimeout(t *testing.T) {
	f := newFixture(t, map[string]string{"src/model.js": modelJS})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := f.orchestrator().Run(ctx)
	require.NoError(t, err)
	require.Equal(t, StateFailed, res.State)
	require.Len(t, issuesOf(res.Report, report.CategoryStageTimeout), 1)
	require.Equal(t, "timeout", res.Report.Stages[0].Result)
}

func TestMachine_ForwardOnly(t *testing.T) {
	m := NewMachine(nil)
	require.NoError(t, m.Transition(StateExtracting))
	require.NoError(t, m.Transition(StateResolving))
	require.Error(t, m.Transition(StateExtracting))
	require.Error(t, m.Transition(StateResolving))
	require.Error(t, m.Transition(StateDone))
	require.Error(t, m.Transition(State("Paused")))
	require.NoError(t, m.Transition(StateReporting))
	require.NoError(t, m.Transition(StateFailed))
	require.Error(t, m.Transition(StateDone))
	require.Equal(t, StateFailed, m.Current())
	require.Len(t, m.History(), 4)
	require.True(t, m.Current().Terminal())
}

type fakeRecorder struct {
	metrics.NoopRecorder
	stages   map[string]metrics.ResultLabel
	outcomes []string
	issues   map[string]int
	pages    int
}

func (f *fakeRecorder) IncStageResult(stage string, result metrics.ResultLabel) {
	f.stages[stage] = result
}
func (f *fakeRecorder) IncRunOutcome(outcome string) { f.outcomes = append(f.outcomes, outcome) }
func (f *fakeRecorder) AddIssues(sev, cat string, n int) {
	f.issues[sev+"/"+cat] += n
}
func (f *fakeRecorder) SetPages(n int) { f.pages = n }

func TestRun_RecordsMetrics(t *testing.T) {
	f := newFixture(t, map[string]string{
		"src/model.js":   modelJS,
		"docs/hello.mdx": "---\ntitle: Hello\ndescription: Greets\n---\n[gone](/nowhere)\n",
	})
	rec := &fakeRecorder{stages: map[string]metrics.ResultLabel{}, issues: map[string]int{}}

	res, err := f.orchestrator(WithRecorder(rec)).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{string(report.OutcomeFailed)}, rec.outcomes)
	require.Equal(t, res.Report.Pages, rec.pages)
	require.Equal(t, 1, rec.issues["critical/missing-internal-link"])
	require.Equal(t, metrics.ResultIssues, rec.stages["validating"])
	require.Equal(t, metrics.ResultSkipped, rec.stages["synchronizing"])
	require.Equal(t, metrics.ResultSuccess, rec.stages["reporting"])
}
