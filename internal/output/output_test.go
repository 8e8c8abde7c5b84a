package output

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docsync/internal/ir"
	"git.home.luguber.info/inful/docsync/internal/nav"
	"git.home.luguber.info/inful/docsync/internal/report"
)

func page(path, content string) ir.Page {
	return ir.Page{Path: path, Content: []byte(content)}
}

func TestWritePages_CleanReplacesTree(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, true)

	require.NoError(t, w.WritePages([]ir.Page{page("index", "home"), page("api/model", "model")}))
	require.FileExists(t, filepath.Join(dir, "pages", "index.mdx"))
	got, err := os.ReadFile(filepath.Join(dir, "pages", "api", "model.mdx"))
	require.NoError(t, err)
	require.Equal(t, "model", string(got))

	require.NoError(t, w.WritePages([]ir.Page{page("index", "home v2")}))
	require.NoFileExists(t, filepath.Join(dir, "pages", "api", "model.mdx"))
	require.NoDirExists(t, filepath.Join(dir, "pages_stage"))
	require.NoDirExists(t, filepath.Join(dir, "pages.prev"))
}

func TestWritePages_KeepsStaleWithoutClean(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, false)
	require.NoError(t, w.WritePages([]ir.Page{page("old", "x")}))
	require.NoError(t, w.WritePages([]ir.Page{page("new", "y")}))
	require.FileExists(t, filepath.Join(dir, "pages", "old.mdx"))
	require.FileExists(t, filepath.Join(dir, "pages", "new.mdx"))
}

func TestWritePages_RejectsEscapingPaths(t *testing.T) {
	dir := t.TempDir()
	err := NewWriter(dir, true).WritePages([]ir.Page{page("../outside", "x")})
	require.Error(t, err)
	require.NoDirExists(t, filepath.Join(dir, "pages_stage"))
	require.NoFileExists(t, filepath.Join(filepath.Dir(dir), "outside.mdx"))
}

func TestWriteManifestAndReport(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, true)

	m := &nav.Manifest{Entries: []nav.Entry{{Title: "Home", Path: "index"}}}
	require.NoError(t, w.WriteManifest(m))
	loaded, err := nav.Load(filepath.Join(dir, ManifestFileName))
	require.NoError(t, err)
	require.Equal(t, []string{"index"}, loaded.Paths())

	prev, err := w.PreviousReport()
	require.NoError(t, err)
	require.Nil(t, prev)

	r := report.NewReport("run-1", time.Unix(0, 0).UTC())
	r.Finalize(time.Unix(1, 0).UTC(), "Done")
	require.NoError(t, w.WriteReport(r))

	prev, err = w.PreviousReport()
	require.NoError(t, err)
	require.Equal(t, "run-1", prev.RunID)
}
