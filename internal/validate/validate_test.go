package validate

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docsync/internal/ir"
	"git.home.luguber.info/inful/docsync/internal/linkverify"
	"git.home.luguber.info/inful/docsync/internal/report"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		dest string
		want Target
	}{
		{"#usage", Target{Class: ClassFragment, Path: "tutorials/hello", Fragment: "usage"}},
		{"world", Target{Class: ClassInternal, Path: "tutorials/world"}},
		{"./world.mdx#setup", Target{Class: ClassInternal, Path: "tutorials/world", Fragment: "setup"}},
		{"../api/Model", Target{Class: ClassInternal, Path: "api/model"}},
		{"/api/model?tab=1#on", Target{Class: ClassInternal, Path: "api/model", Fragment: "on"}},
		{"/", Target{Class: ClassInternal, Path: "index"}},
		{"/img/logo.png", Target{Class: ClassAsset, Path: "img/logo.png"}},
		{"diagram%20one.svg", Target{Class: ClassAsset, Path: "tutorials/diagram one.svg"}},
		{"https://example.com/x", Target{Class: ClassExternal, URL: "https://example.com/x"}},
		{"//cdn.example.com/a.js", Target{Class: ClassExternal, URL: "https://cdn.example.com/a.js"}},
		{"mailto:team@example.com", Target{Class: ClassIgnored}},
		{"", Target{Class: ClassIgnored}},
	}
	for _, tc := range cases {
		t.Run(tc.dest, func(t *testing.T) {
			require.Equal(t, tc.want, Classify("tutorials/hello", ir.PageLink{Destination: tc.dest}))
		})
	}

	asset := Classify("guide", ir.PageLink{Destination: "shots/step", Asset: true})
	require.Equal(t, ClassAsset, asset.Class)
}

func TestValidExternal(t *testing.T) {
	require.True(t, validExternal("https://example.com/a?b=c"))
	require.True(t, validExternal("http://localhost:8080"))
	require.False(t, validExternal("https://"))
	require.False(t, validExternal("https://exa mple.com"))
	require.False(t, validExternal("javascript:alert(1)"))
	require.False(t, validExternal("http://[::1"))
}

func pages() []ir.Page {
	return []ir.Page{
		{
			Path:       "tutorials/hello",
			Kind:       ir.PageNarrative,
			SourceFile: "tutorials/hello.mdx",
			Anchors:    []string{"intro"},
			Links: []ir.PageLink{
				{Destination: "#intro", Line: 3},
				{Destination: "#outro", Line: 4},
				{Destination: "/tutorials/world", Line: 5},
				{Destination: "/api/model#on", Line: 6},
				{Destination: "/api/model#nope", Line: 7},
				{Destination: "/img/logo.png", Line: 8, Asset: true},
				{Destination: "/img/missing.png", Line: 9, Asset: true},
				{Destination: "https://exa mple.com", Line: 10},
				{Destination: "https://example.com/ok", Line: 11},
			},
		},
		{
			Path:    "api/model",
			Kind:    ir.PageReference,
			Anchors: []string{"on", "overview"},
			Links:   []ir.PageLink{{Destination: "/tutorials/hello#intro", Line: 12}},
		},
	}
}

func assetsDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "img"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "img", "logo.png"), []byte("png"), 0o600))
	return dir
}

func TestRun_OneIssuePerBrokenLink(t *testing.T) {
	v := New(Options{Workers: 2, AssetsDir: assetsDir(t)})
	res := v.Run(context.Background(), pages())

	type found struct {
		cat  report.Category
		line int
	}
	var got []found
	for _, is := range res.Issues {
		require.Equal(t, "tutorials/hello", is.Page)
		require.Equal(t, "tutorials/hello.mdx", is.File)
		got = append(got, found{is.Category, is.Line})
	}
	require.Equal(t, []found{
		{report.CategoryMissingFragment, 4},
		{report.CategoryMissingInternalLink, 5},
		{report.CategoryMissingFragment, 7},
		{report.CategoryMissingAsset, 9},
		{report.CategoryMalformedExternalLink, 10},
	}, got)
	require.Equal(t, 10, res.Links)
	require.Equal(t, 1, res.External)
	require.Equal(t, report.SeverityCritical, res.Issues[1].Severity)
}

func TestRun_Deterministic(t *testing.T) {
	dir := assetsDir(t)
	first := New(Options{Workers: 1, AssetsDir: dir}).Run(context.Background(), pages())
	second := New(Options{Workers: 8, AssetsDir: dir}).Run(context.Background(), pages())
	require.Equal(t, first, second)
}

func TestRun_NoAssetsDirMeansMissingAssets(t *testing.T) {
	res := New(Options{}).Run(context.Background(), []ir.Page{{
		Path:  "guide",
		Links: []ir.PageLink{{Destination: "logo.png", Line: 2, Asset: true}},
	}})
	require.Len(t, res.Issues, 1)
	require.Equal(t, report.CategoryMissingAsset, res.Issues[0].Category)
	require.Equal(t, "guide.mdx", res.Issues[0].File)
}

type fakeVerifier struct {
	checks []linkverify.Check
}

func (f *fakeVerifier) Verify(_ context.Context, checks []linkverify.Check) []linkverify.Result {
	f.checks = checks
	out := make([]linkverify.Result, len(checks))
	for i, c := range checks {
		out[i] = linkverify.Result{Check: c, Status: 404}
	}
	return out
}

func TestRun_UnreachableExternalLinks(t *testing.T) {
	fv := &fakeVerifier{}
	res := New(Options{Verifier: fv}).Run(context.Background(), []ir.Page{{
		Path:  "guide",
		Links: []ir.PageLink{{Destination: "https://example.com/gone", Line: 4}},
	}})

	require.Equal(t, []linkverify.Check{{URL: "https://example.com/gone", Page: "guide", File: "guide.mdx", Line: 4}}, fv.checks)
	require.Len(t, res.Issues, 1)
	is := res.Issues[0]
	require.Equal(t, report.CategoryUnreachableExternal, is.Category)
	require.Equal(t, report.SeverityLow, is.Severity)
	require.Contains(t, is.Message, "HTTP 404")
}

func TestRun_PageTimeout(t *testing.T) {
	links := make([]ir.PageLink, 50000)
	for i := range links {
		links[i] = ir.PageLink{Destination: "/img/a.png", Line: i + 1, Asset: true}
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	v := New(Options{PageTimeout: time.Nanosecond, AssetsDir: t.TempDir()})
	r := v.pageWithTimeout(ctx, &ir.Page{Path: "big", Links: links}, nil)
	require.Len(t, r.issues, 1)
	require.Equal(t, report.CategoryValidationTimeout, r.issues[0].Category)
	require.Equal(t, report.SeverityHigh, r.issues[0].Severity)
}
