package commands

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/docsync/internal/logfields"
	"git.home.luguber.info/inful/docsync/internal/metrics"
	"git.home.luguber.info/inful/docsync/internal/pipeline"
	"git.home.luguber.info/inful/docsync/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	Output    string `short:"o" help:"Override output.directory"`
	NoPublish bool   `name:"no-publish" help:"Skip publication even when publish.enabled is set"`
}

func (w *WatchCmd) Run(_ *Global, root *CLI) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(root.Config, w.Output)
	if err != nil {
		return err
	}
	s, err := openSession(cfg, cfg.Metrics.Enabled, !w.NoPublish)
	if err != nil {
		return err
	}
	defer s.close()

	var files []string
	if cfg.Navigation.Manifest != "" {
		files = append(files, cfg.Navigation.Manifest)
	}
	loop, err := watch.New(s.orchestrator, watch.Options{
		Dirs:     []string{cfg.Source.Directory, cfg.Narrative.Directory, cfg.Assets.Directory},
		Files:    append(files, root.Config),
		Exclude:  []string{cfg.Output.Directory},
		Debounce: cfg.Watch.Debounce,
		Interval: cfg.Watch.Interval,
		OnResult: func(res *pipeline.Result, err error) {
			if err != nil || res == nil {
				return
			}
			if err := s.finish(ctx, res, "text"); err != nil {
				slog.Error("Post-run step failed", logfields.RunID(res.Report.RunID), logfields.Error(err))
			}
		},
	})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Metrics.Enabled {
		srv, err := metrics.Listen(cfg.Metrics.Address, cfg.Metrics.Path, s.registry)
		if err != nil {
			return err
		}
		g.Go(func() error { return srv.Serve(gctx) })
	}
	g.Go(func() error { return loop.Run(gctx) })
	return g.Wait()
}
