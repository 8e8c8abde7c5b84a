package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docsync/internal/pipeline"
)

type countingRunner struct {
	mu    sync.Mutex
	calls int
}

func (r *countingRunner) Run(context.Context) (*pipeline.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return &pipeline.Result{State: pipeline.StateDone}, nil
}

func (r *countingRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func start(t *testing.T, l *Loop) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})
	select {
	case <-l.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("watch loop did not become ready")
	}
}

func TestNew_RequiresDebounce(t *testing.T) {
	_, err := New(&countingRunner{}, Options{})
	require.Error(t, err)
	_, err = New(nil, Options{Debounce: time.Second})
	require.Error(t, err)
}

func TestLoop_ChangesAreDebounced(t *testing.T) {
	src := t.TempDir()
	r := &countingRunner{}
	var results int
	var mu sync.Mutex
	l, err := New(r, Options{
		Dirs:     []string{src},
		Debounce: 100 * time.Millisecond,
		OnResult: func(res *pipeline.Result, err error) {
			mu.Lock()
			results++
			mu.Unlock()
		},
	})
	require.NoError(t, err)
	start(t, l)
	require.Equal(t, 1, r.count())

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(src, "model.js"), []byte{byte('a' + i)}, 0o600))
	}
	require.Eventually(t, func() bool { return r.count() == 2 }, 5*time.Second, 10*time.Millisecond)
	time.Sleep(300 * time.Millisecond)
	require.Equal(t, 2, r.count(), "a burst of writes yields one run")

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 2, results)
}

func TestLoop_NewDirectoriesAreWatched(t *testing.T) {
	src := t.TempDir()
	r := &countingRunner{}
	l, err := New(r, Options{Dirs: []string{src}, Debounce: 50 * time.Millisecond})
	require.NoError(t, err)
	start(t, l)

	sub := filepath.Join(src, "nested")
	require.NoError(t, os.Mkdir(sub, 0o755))
	require.Eventually(t, func() bool { return r.count() >= 2 }, 5*time.Second, 10*time.Millisecond)

	before := r.count()
	require.NoError(t, os.WriteFile(filepath.Join(sub, "view.js"), []byte("x"), 0o600))
	require.Eventually(t, func() bool { return r.count() > before }, 5*time.Second, 10*time.Millisecond)
}

func TestLoop_Interval(t *testing.T) {
	r := &countingRunner{}
	l, err := New(r, Options{Debounce: time.Second, Interval: 50 * time.Millisecond})
	require.NoError(t, err)
	start(t, l)
	require.Eventually(t, func() bool { return r.count() >= 3 }, 5*time.Second, 10*time.Millisecond)
}

func TestLoop_TriggerCoalesces(t *testing.T) {
	r := &countingRunner{}
	l, err := New(r, Options{Debounce: time.Second})
	require.NoError(t, err)
	l.Trigger("a")
	l.Trigger("b")
	start(t, l)
	require.Eventually(t, func() bool { return l.Runs() == 2 }, 5*time.Second, 10*time.Millisecond)
}

func TestRelevant(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(root, "out")
	manifest := filepath.Join(root, "navigation.yaml")
	l, err := New(&countingRunner{}, Options{
		Dirs:     []string{filepath.Join(root, "src")},
		Files:    []string{manifest},
		Exclude:  []string{out},
		Debounce: time.Second,
	})
	require.NoError(t, err)

	ev := func(name string, op fsnotify.Op) fsnotify.Event { return fsnotify.Event{Name: name, Op: op} }
	require.True(t, l.relevant(ev(filepath.Join(root, "src", "a.js"), fsnotify.Write)))
	require.True(t, l.relevant(ev(manifest, fsnotify.Create)))
	require.False(t, l.relevant(ev(filepath.Join(root, "src", "a.js"), fsnotify.Chmod)))
	require.False(t, l.relevant(ev(filepath.Join(root, "src", ".a.js.swp"), fsnotify.Write)))
	require.False(t, l.relevant(ev(filepath.Join(root, "config.yaml"), fsnotify.Write)))
	require.False(t, l.relevant(ev(filepath.Join(out, "pages", "x.mdx"), fsnotify.Write)))
}
