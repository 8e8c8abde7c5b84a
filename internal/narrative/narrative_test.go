package narrative

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docsync/internal/report"
)

func write(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
}

func TestLoad(t *testing.T) {
	root := t.TempDir()
	write(t, root, "tutorials/hello.mdx", "---\ntitle: Hello\ndescription: First steps\n---\n# Hello\n")
	write(t, root, "guides/index.md", "---\ntitle: Guides\ndescription: All guides\n---\nBody\n")
	write(t, root, "model.mdx", "---\ntitle: Model\ndescription: Models\nentity: Model\n---\nOverview\n")
	write(t, root, "draft.mdx", "---\ntitle: Draft\n---\nNo description\n")
	write(t, root, "broken.mdx", "---\ntitle: [unclosed\n---\n")
	write(t, root, "notes.txt", "ignored")

	res, err := Load(root, []string{".mdx", ".md"})
	require.NoError(t, err)
	require.Equal(t, 5, res.Files)

	var paths []string
	for _, p := range res.Pages {
		paths = append(paths, p.Path)
	}
	require.Equal(t, []string{"guides", "model", "tutorials/hello"}, paths)
	require.True(t, res.Pages[1].Overlay())
	require.False(t, res.Pages[2].Overlay())

	require.Len(t, res.Issues, 2)
	for _, is := range res.Issues {
		require.Equal(t, report.CategoryMissingNarrativeMeta, is.Category)
		require.Equal(t, report.SeverityHigh, is.Severity)
	}
	require.Equal(t, "broken.mdx", res.Issues[0].File)
	require.Equal(t, "draft.mdx", res.Issues[1].File)
	require.Contains(t, res.Issues[1].Message, "description")
}

func TestLoad_DuplicatePagePath(t *testing.T) {
	root := t.TempDir()
	write(t, root, "a.md", "---\ntitle: A\ndescription: a\n---\n")
	write(t, root, "a.mdx", "---\ntitle: A\ndescription: a\n---\n")

	res, err := Load(root, []string{".mdx", ".md"})
	require.NoError(t, err)
	require.Len(t, res.Pages, 1)
	require.Equal(t, "a.md", res.Pages[0].File)
	require.Len(t, res.Issues, 1)
	require.Equal(t, report.CategoryDuplicatePage, res.Issues[0].Category)
	require.Equal(t, report.SeverityCritical, res.Issues[0].Severity)
}

func TestLoad_MissingRoot(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing"), []string{".md"})
	require.Error(t, err)

	res, err := Load("", nil)
	require.NoError(t, err)
	require.Empty(t, res.Pages)
}

func TestPathFor(t *testing.T) {
	tests := []struct {
		rel, slug, want string
	}{
		{"tutorials/hello.mdx", "", "tutorials/hello"},
		{"Guides/Index.md", "", "guides"},
		{"index.mdx", "", "index"},
		{"x.md", "/custom/Path/", "custom/path"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, PathFor(tt.rel, tt.slug), tt.rel)
	}
}
