package pipeline

import (
	"context"
	"log/slog"
	"path/filepath"

	"git.home.luguber.info/inful/docsync/internal/extract"
	"git.home.luguber.info/inful/docsync/internal/foundation/errors"
	"git.home.luguber.info/inful/docsync/internal/ir"
	"git.home.luguber.info/inful/docsync/internal/linkverify"
	"git.home.luguber.info/inful/docsync/internal/logfields"
	"git.home.luguber.info/inful/docsync/internal/narrative"
	"git.home.luguber.info/inful/docsync/internal/nav"
	"git.home.luguber.info/inful/docsync/internal/report"
	"git.home.luguber.info/inful/docsync/internal/resolve"
	"git.home.luguber.info/inful/docsync/internal/transform"
	"git.home.luguber.info/inful/docsync/internal/validate"
)

// RunState carries the output of each stage to the next. Every run starts
// from an empty RunState.
type RunState struct {
	RunID     string
	Entities  []ir.Entity
	Narrative []narrative.Page
	Refs      *resolve.Result
	Pages     []ir.Page
	Nav       *nav.Result
	Files     int
}

// stageFunc runs one stage. Findings are returned as issues; an error means
// the stage could not do its work at all.
type stageFunc func(ctx context.Context, rs *RunState) ([]report.Issue, error)

type stage struct {
	state State
	name  string
	run   stageFunc
}

// errSkipped marks a stage with nothing to do.
var errSkipped = errors.NewError(errors.CategoryPipeline, "stage skipped").Build()

func (o *Orchestrator) stages() []stage {
	return []stage{
		{StateExtracting, "extracting", o.stageExtract},
		{StateResolving, "resolving", o.stageResolve},
		{StateTransforming, "transforming", o.stageTransform},
		{StateValidating, "validating", o.stageValidate},
		{StateSynchronizing, "synchronizing", o.stageSynchronize},
	}
}

// stageExtract reads doc comments from the source tree and loads the
// narrative pages.
func (o *Orchestrator) stageExtract(ctx context.Context, rs *RunState) ([]report.Issue, error) {
	src := o.cfg.Source
	files, err := extract.Discover(src.Directory, extract.DiscoverOptions{
		Extensions:       src.Extensions,
		Ignore:           src.Ignore,
		RespectGitignore: src.GitignoreEnabled(),
	})
	if err != nil {
		return nil, err
	}

	res := extract.New(src.Directory, extract.Options{
		Workers:     o.cfg.Validation.Workers,
		FileTimeout: o.cfg.Validation.FileTimeout,
	}).Run(ctx, files)
	rs.Entities = res.Entities
	rs.Files = res.Files

	narr, err := narrative.Load(o.cfg.Narrative.Directory, o.cfg.Narrative.Extensions)
	if err != nil {
		return res.Issues, err
	}
	rs.Narrative = narr.Pages

	slog.Info("Extracted entities", logfields.RunID(rs.RunID),
		logfields.Count(len(rs.Entities)), slog.Int("files", res.Files), slog.Int("narrative_pages", len(narr.Pages)))
	return append(res.Issues, narr.Issues...), nil
}

func (o *Orchestrator) stageResolve(_ context.Context, rs *RunState) ([]report.Issue, error) {
	rs.Refs = resolve.Run(rs.Entities, rs.Narrative)
	return rs.Refs.Issues, nil
}

func (o *Orchestrator) stageTransform(_ context.Context, rs *RunState) ([]report.Issue, error) {
	res, err := transform.New(rs.Refs).Run(rs.Entities, rs.Narrative)
	if err != nil {
		return res.Issues, err
	}
	rs.Pages = res.Pages
	return res.Issues, nil
}

func (o *Orchestrator) stageValidate(ctx context.Context, rs *RunState) ([]report.Issue, error) {
	opts := validate.Options{
		Workers:     o.cfg.Validation.Workers,
		PageTimeout: o.cfg.Validation.PageTimeout,
		AssetsDir:   o.cfg.Assets.Directory,
		Verifier:    o.verifier,
	}
	if opts.Verifier == nil && o.cfg.Validation.External.Enabled {
		svc, err := linkverify.NewVerificationService(ctx, o.cfg.Validation.External, linkverify.WithRunID(rs.RunID))
		if err != nil {
			// reachability never gates a run
			slog.Warn("External link verification unavailable", logfields.Error(err))
		} else {
			defer func() {
				if err := svc.Close(); err != nil {
					slog.Warn("Failed to close link verifier", logfields.Error(err))
				}
			}()
			opts.Verifier = svc
		}
	}

	res := validate.New(opts).Run(ctx, rs.Pages)
	slog.Info("Validated pages", logfields.RunID(rs.RunID),
		logfields.Count(len(rs.Pages)), slog.Int("links", res.Links), slog.Int("external", res.External))
	return res.Issues, nil
}

func (o *Orchestrator) stageSynchronize(_ context.Context, rs *RunState) ([]report.Issue, error) {
	path := o.cfg.Navigation.Manifest
	if path == "" {
		return nil, errSkipped
	}
	m, err := nav.Load(path)
	if err != nil {
		return nil, err
	}
	res := nav.Sync(m, rs.Pages, nav.Options{
		File:          filepath.ToSlash(filepath.Clean(path)),
		AutoPatch:     o.cfg.Navigation.AutoPatch,
		CatchAllTitle: o.cfg.Navigation.CatchAllTitle,
	})
	rs.Nav = &res
	return res.Issues, nil
}
