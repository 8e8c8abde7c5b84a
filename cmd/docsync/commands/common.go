// Package commands implements the docsync command line.
package commands

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/docsync/internal/config"
	"git.home.luguber.info/inful/docsync/internal/history"
	"git.home.luguber.info/inful/docsync/internal/logfields"
	"git.home.luguber.info/inful/docsync/internal/metrics"
	"git.home.luguber.info/inful/docsync/internal/pipeline"
	"git.home.luguber.info/inful/docsync/internal/publish"
	"git.home.luguber.info/inful/docsync/internal/report"
)

// Global is shared state bound into every command.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"docsync.yaml" env:"DOCSYNC_CONFIG"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Run   RunCmd   `cmd:"" default:"withargs" help:"Run the pipeline once and write the report"`
	Watch WatchCmd `cmd:"" help:"Re-run the pipeline on source changes or on an interval"`
	Init  InitCmd  `cmd:"" help:"Write an example configuration file"`
}

// AfterApply runs after flag parsing; setup logging once.
func (c *CLI) AfterApply(g *Global) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLogLevel(c.Verbose)}))
	slog.SetDefault(logger)
	g.Logger = logger
	return nil
}

// parseLogLevel resolves the level from --verbose, then DOCSYNC_LOG_LEVEL.
func parseLogLevel(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DOCSYNC_LOG_LEVEL"))) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// loadConfig reads the configuration and applies command line overrides.
func loadConfig(path, outputDir string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if outputDir != "" {
		cfg.Output.Directory = outputDir
	}
	return cfg, nil
}

// session holds what one command invocation shares across runs.
type session struct {
	cfg          *config.Config
	orchestrator *pipeline.Orchestrator
	history      history.Store
	publisher    *publish.Publisher
	registry     *prom.Registry
}

// openSession wires the orchestrator with history, metrics and publishing
// as configured. withMetrics registers a Prometheus recorder.
func openSession(cfg *config.Config, withMetrics, allowPublish bool) (*session, error) {
	s := &session{cfg: cfg}
	var opts []pipeline.Option

	if cfg.History.Enabled {
		store, err := history.NewSQLiteStore(cfg.History.Path)
		if err != nil {
			return nil, err
		}
		s.history = store
		opts = append(opts, pipeline.WithHistory(store))
	}
	if withMetrics {
		s.registry = prom.NewRegistry()
		opts = append(opts, pipeline.WithRecorder(metrics.NewPrometheusRecorder(s.registry)))
	}
	if allowPublish && cfg.Publish.Enabled {
		p, err := publish.New(cfg.Publish)
		if err != nil {
			s.close()
			return nil, err
		}
		s.publisher = p
	}
	s.orchestrator = pipeline.New(cfg, opts...)
	return s, nil
}

func (s *session) close() {
	if s.history != nil {
		if err := s.history.Close(); err != nil {
			slog.Warn("Failed to close run history", logfields.Error(err))
		}
	}
}

// finish prints the summary and publishes a passing run. Publication
// failures are returned; a failed run is never published.
func (s *session) finish(ctx context.Context, res *pipeline.Result, format string) error {
	if err := report.NewFormatter(format).Format(os.Stdout, res.Report); err != nil {
		return err
	}
	if s.publisher == nil {
		return nil
	}
	if res.State != pipeline.StateDone {
		slog.Info("Skipping publication of a failed run", logfields.RunID(res.Report.RunID))
		return nil
	}
	stats, err := s.publisher.Publish(ctx, s.cfg.Output.Directory, res.Report.RunID)
	if err != nil {
		return err
	}
	slog.Info("Published output", logfields.RunID(res.Report.RunID),
		slog.Int("uploaded", stats.Uploaded), slog.Int("removed", stats.Removed))
	return nil
}
