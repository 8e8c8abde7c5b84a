package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/docsync/internal/foundation/errors"
)

// RunCmd implements the 'run' command.
type RunCmd struct {
	Output    string `short:"o" help:"Override output.directory"`
	Format    string `short:"f" help:"Summary format printed to stdout" enum:"text,json" default:"text"`
	NoPublish bool   `name:"no-publish" help:"Skip publication even when publish.enabled is set"`
}

func (r *RunCmd) Run(_ *Global, root *CLI) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return r.execute(ctx, root.Config)
}

func (r *RunCmd) execute(ctx context.Context, configPath string) error {
	cfg, err := loadConfig(configPath, r.Output)
	if err != nil {
		return err
	}
	s, err := openSession(cfg, false, !r.NoPublish)
	if err != nil {
		return err
	}
	defer s.close()

	res, err := s.orchestrator.Run(ctx)
	if err != nil {
		return err
	}
	if err := s.finish(ctx, res, r.Format); err != nil {
		return err
	}
	if res.Failed() {
		return errors.ErrCriticalIssues
	}
	return nil
}
