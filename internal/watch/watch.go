// Package watch re-runs the pipeline when sources change or on a fixed
// interval. Runs never overlap; changes arriving during a run are debounced
// into the next one.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/docsync/internal/foundation/errors"
	"git.home.luguber.info/inful/docsync/internal/logfields"
	"git.home.luguber.info/inful/docsync/internal/pipeline"
)

// Runner executes one pipeline run.
type Runner interface {
	Run(ctx context.Context) (*pipeline.Result, error)
}

type Options struct {
	// Dirs are watched recursively; directories created later are added.
	Dirs []string
	// Files are watched through their parent directory.
	Files []string
	// Exclude lists directories whose events never trigger a run.
	Exclude  []string
	Debounce time.Duration
	// Interval schedules additional runs; zero disables them.
	Interval time.Duration
	// OnResult is called after every run.
	OnResult func(*pipeline.Result, error)
}

// Loop owns the watcher, the scheduler and the run loop.
type Loop struct {
	runner  Runner
	opts    Options
	files   map[string]struct{}
	exclude []string
	trigger chan string
	ready   chan struct{}
	runs    atomic.Int64
}

func New(runner Runner, opts Options) (*Loop, error) {
	if runner == nil {
		return nil, errors.ValidationError("runner is required").Build()
	}
	if opts.Debounce <= 0 {
		return nil, errors.ValidationError("debounce must be > 0").
			WithContext("debounce", opts.Debounce.String()).
			Build()
	}
	l := &Loop{
		runner:  runner,
		opts:    opts,
		files:   map[string]struct{}{},
		trigger: make(chan string, 1),
		ready:   make(chan struct{}),
	}
	var dirs []string
	for _, d := range opts.Dirs {
		if d != "" {
			dirs = append(dirs, d)
		}
	}
	l.opts.Dirs = dirs
	for _, f := range opts.Files {
		if f == "" {
			continue
		}
		if abs, err := filepath.Abs(f); err == nil {
			l.files[abs] = struct{}{}
		}
	}
	for _, d := range opts.Exclude {
		if abs, err := filepath.Abs(d); err == nil {
			l.exclude = append(l.exclude, abs)
		}
	}
	return l, nil
}

// Ready is closed once the first run has finished and watching has begun.
func (l *Loop) Ready() <-chan struct{} { return l.ready }

// Runs returns the number of completed runs.
func (l *Loop) Runs() int64 { return l.runs.Load() }

// Trigger requests a run as soon as the current one (if any) finishes.
// Requests made while one is pending are coalesced.
func (l *Loop) Trigger(reason string) {
	select {
	case l.trigger <- reason:
	default:
	}
}

// Run performs an initial run, then re-runs on changes until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "create file watcher").Build()
	}
	defer func() { _ = w.Close() }()

	for _, dir := range l.opts.Dirs {
		l.addTree(w, dir)
	}
	for f := range l.files {
		if err := w.Add(filepath.Dir(f)); err != nil {
			slog.Debug("Not watching file", logfields.File(f), logfields.Error(err))
		}
	}

	sched, err := newScheduler(l.opts.Interval, func() { l.Trigger("interval") })
	if err != nil {
		return err
	}
	if sched != nil {
		sched.Start()
		defer func() {
			if err := sched.Shutdown(); err != nil {
				slog.Warn("Failed to stop scheduler", logfields.Error(err))
			}
		}()
	}

	l.execute(ctx, "startup")
	close(l.ready)

	debounce := time.NewTimer(time.Hour)
	debounce.Stop()
	var debounceC <-chan time.Time
	var lastChange string

	for {
		select {
		case <-ctx.Done():
			debounce.Stop()
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() && !l.excluded(ev.Name) {
					l.addTree(w, ev.Name)
				}
			}
			if !l.relevant(ev) {
				continue
			}
			slog.Debug("Change detected", logfields.File(ev.Name), slog.String("op", ev.Op.String()))
			lastChange = ev.Name
			debounce.Reset(l.opts.Debounce)
			debounceC = debounce.C
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			slog.Warn("File watcher error", logfields.Error(err))
		case <-debounceC:
			debounceC = nil
			l.execute(ctx, "change: "+lastChange)
		case reason := <-l.trigger:
			l.execute(ctx, reason)
		}
	}
}

func (l *Loop) execute(ctx context.Context, reason string) {
	slog.Info("Starting run", slog.String("reason", reason))
	res, err := l.runner.Run(ctx)
	l.runs.Add(1)
	if err != nil {
		slog.Error("Run failed", logfields.Error(err))
	}
	if l.opts.OnResult != nil {
		l.opts.OnResult(res, err)
	}
}

func (l *Loop) addTree(w *fsnotify.Watcher, root string) {
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			slog.Debug("Not watching directory", logfields.Path(path), logfields.Error(err))
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if l.excluded(path) || (path != root && strings.HasPrefix(d.Name(), ".")) {
			return filepath.SkipDir
		}
		if err := w.Add(path); err != nil {
			slog.Warn("Failed to watch directory", logfields.Path(path), logfields.Error(err))
		}
		return nil
	})
}

func (l *Loop) excluded(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	for _, ex := range l.exclude {
		if abs == ex || strings.HasPrefix(abs, ex+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// relevant filters out chmod-only events, editor temp files and anything
// under an excluded directory. Events in a watched file's directory count
// only for that file.
func (l *Loop) relevant(ev fsnotify.Event) bool {
	if ev.Op == fsnotify.Chmod || l.excluded(ev.Name) {
		return false
	}
	base := filepath.Base(ev.Name)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") || strings.HasSuffix(base, ".swp") {
		return false
	}
	abs, err := filepath.Abs(ev.Name)
	if err != nil {
		return false
	}
	if _, ok := l.files[abs]; ok {
		return true
	}
	for _, dir := range l.opts.Dirs {
		d, err := filepath.Abs(dir)
		if err == nil && (abs == d || strings.HasPrefix(abs, d+string(filepath.Separator))) {
			return true
		}
	}
	return false
}
