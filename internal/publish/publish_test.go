package publish

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docsync/internal/config"
	"git.home.luguber.info/inful/docsync/internal/retry"
)

type fakeStore struct {
	objects  map[string]string
	types    map[string]string
	failPut  bool
	putCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string]string{}, types: map[string]string{}}
}

func (f *fakeStore) ensureBucket(context.Context) error { return nil }

func (f *fakeStore) put(_ context.Context, key string, content []byte, ct string) error {
	f.putCalls++
	if f.failPut {
		return errors.New("boom")
	}
	f.objects[key] = string(content)
	f.types[key] = ct
	return nil
}

func (f *fakeStore) list(_ context.Context, prefix string) ([]string, error) {
	var keys []string
	for k := range f.objects {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (f *fakeStore) remove(_ context.Context, key string) error {
	delete(f.objects, key)
	return nil
}

func writeOutput(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}
	return dir
}

func TestPublish_MirrorsOutput(t *testing.T) {
	store := newFakeStore()
	store.objects["docs/pages/removed.mdx"] = "old"
	store.objects["other/keep.txt"] = "untouched"

	dir := writeOutput(t, map[string]string{
		"pages/index.mdx":     "home",
		"pages/api/model.mdx": "model",
		"navigation.yaml":     "- title: Home\n",
		"report.json":         "{}",
		"report.json.tmp":     "partial",
		"pages_stage/x.mdx":   "staging",
		".docsync-history.db": "sqlite",
	})

	p := &Publisher{store: store, prefix: cleanPrefix("/docs/")}
	stats, err := p.Publish(context.Background(), dir, "run-1")
	require.NoError(t, err)
	require.Equal(t, Stats{Uploaded: 4, Removed: 1}, stats)

	keys, _ := store.list(context.Background(), "")
	require.Equal(t, []string{
		"docs/navigation.yaml",
		"docs/pages/api/model.mdx",
		"docs/pages/index.mdx",
		"docs/report.json",
		"other/keep.txt",
	}, keys)
	require.Equal(t, "text/markdown; charset=utf-8", store.types["docs/pages/index.mdx"])
	require.Equal(t, "application/yaml", store.types["docs/navigation.yaml"])
}

func TestPublish_UploadFailure(t *testing.T) {
	store := newFakeStore()
	store.failPut = true
	dir := writeOutput(t, map[string]string{"report.txt": "ok"})

	p := &Publisher{store: store, retry: retry.NewPolicy(config.RetryBackoffFixed, time.Millisecond, time.Millisecond, 2)}
	_, err := p.Publish(context.Background(), dir, "run-1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "upload object")
	require.Equal(t, 3, store.putCalls)
}

func TestNew_RequiresEndpointAndBucket(t *testing.T) {
	_, err := New(config.PublishConfig{Bucket: "b"})
	require.Error(t, err)
	_, err = New(config.PublishConfig{Endpoint: "localhost:9000"})
	require.Error(t, err)

	p, err := New(config.PublishConfig{Endpoint: "localhost:9000", Bucket: "docs", Prefix: "latest", AccessKey: "a", SecretKey: "s"})
	require.NoError(t, err)
	require.Equal(t, "latest/", p.prefix)
}

func TestCleanPrefix(t *testing.T) {
	require.Equal(t, "", cleanPrefix(" / "))
	require.Equal(t, "a/b/", cleanPrefix("a/b"))
}
