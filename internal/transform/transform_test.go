package transform

import (
	"strings"
	"testing"

	"github.com/inful/mdfp"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docsync/internal/docmodel"
	"git.home.luguber.info/inful/docsync/internal/frontmatter"
	"git.home.luguber.info/inful/docsync/internal/ir"
	"git.home.luguber.info/inful/docsync/internal/narrative"
	"git.home.luguber.info/inful/docsync/internal/report"
	"git.home.luguber.info/inful/docsync/internal/resolve"
)

func modelEntities() []ir.Entity {
	loc := func(line int) ir.Location { return ir.Location{File: "model.js", Line: line} }
	return []ir.Entity{
		{QualifiedName: "Model", Name: "Model", Kind: ir.KindClass, Summary: "A replicated model. Lives in a session.", Tags: map[string][]string{"since": {"1.0"}}, Location: loc(1)},
		{QualifiedName: "Model.MAX", Name: "MAX", Kind: ir.KindConstant, Parent: "Model", Summary: "Upper bound.", Type: "number", Location: loc(3)},
		{QualifiedName: "Model.id", Name: "id", Kind: ir.KindProperty, Parent: "Model", Summary: "Identifier.", Type: "string", Location: loc(6)},
		{QualifiedName: "Model.event:ready", Name: "ready", Kind: ir.KindEvent, Parent: "Model", Summary: "Fired when ready.", Location: loc(8)},
		{
			QualifiedName: "Model.publish", Name: "publish", Kind: ir.KindMethod, Parent: "Model",
			Summary: "Publish then wait for {@link Model#event:ready}. Payload is {a: 1}.",
			Params: []ir.Param{
				{Name: "scope", Type: "string", Description: "Event scope."},
				{Name: "data", Type: "Object.<string, *>", Optional: true, Default: "{}", Description: "Payload | extra."},
			},
			Returns:  &ir.Returns{Type: "void"},
			Tags:     map[string][]string{"deprecated": {"Use {@link Model#emit}."}, "see": {"Model#id"}},
			Examples: []ir.Example{{Language: "js", Caption: "Basic", Code: "model.publish(\"s\");"}},
			Location: loc(10),
		},
		{QualifiedName: "Model.constructor", Name: "constructor", Kind: ir.KindMethod, Parent: "Model", Constructor: true, Params: []ir.Param{{Name: "options", Optional: true}}, Location: loc(20)},
		{QualifiedName: "VERSION", Name: "VERSION", Kind: ir.KindConstant, Summary: "Library version.", Type: "string", Location: ir.Location{File: "version.js", Line: 2}},
	}
}

func narrativeFixture(t *testing.T, file, content string) narrative.Page {
	t.Helper()
	doc, err := docmodel.Parse([]byte(content))
	require.NoError(t, err)
	return narrative.Page{Path: narrative.PathFor(file, ""), File: file, Meta: doc.Meta(), Doc: doc}
}

func run(t *testing.T, entities []ir.Entity, pages []narrative.Page) Result {
	t.Helper()
	res, err := New(resolve.Run(entities, pages)).Run(entities, pages)
	require.NoError(t, err)
	return res
}

func pageByPath(t *testing.T, res Result, path string) ir.Page {
	t.Helper()
	for _, p := range res.Pages {
		if p.Path == path {
			return p
		}
	}
	t.Fatalf("page %s not found", path)
	return ir.Page{}
}

func TestReferencePage_MemberOrder(t *testing.T) {
	res := run(t, modelEntities(), nil)

	var paths []string
	for _, p := range res.Pages {
		paths = append(paths, p.Path)
	}
	require.Equal(t, []string{"api/globals", "api/model"}, paths)

	model := pageByPath(t, res, "api/model")
	var headings []string
	for _, b := range model.Blocks {
		if b.Type == ir.BlockHeading {
			headings = append(headings, b.Text)
		}
	}
	require.Equal(t, []string{
		"Overview",
		"Constructor", "new Model(options)",
		"Properties", "id",
		"Methods", "publish(scope, data)",
		"Events", "ready",
		"Constants", "MAX",
	}, headings)
	require.Equal(t, []string{"Model", "Model.constructor", "Model.id", "Model.publish", "Model.event:ready", "Model.MAX"}, model.Entities)

	require.Equal(t, "Model", model.Title)
	require.Equal(t, "A replicated model.", model.Description)
	require.Equal(t, "model.js", model.SourceFile)
	for _, anchor := range []string{"overview", "constructor", "id", "publish", "event--ready", "max", "methods", "events"} {
		require.True(t, model.HasAnchor(anchor), anchor)
	}

	globals := pageByPath(t, res, "api/globals")
	require.Equal(t, "Globals", globals.Title)
	require.Equal(t, []string{"VERSION"}, globals.Entities)
}

func TestReferencePage_Rendering(t *testing.T) {
	res := run(t, modelEntities(), nil)
	model := pageByPath(t, res, "api/model")
	content := string(model.Content)

	require.True(t, strings.HasPrefix(content, "---\ndescription: A replicated model.\nfingerprint: "), content)
	require.Contains(t, content, "generated: true\nsource: model.js\ntitle: Model\n---\n")
	require.Contains(t, content, "<Callout type=\"warning\">\n\n**Deprecated.** Use `Model#emit`.\n\n</Callout>")
	require.Contains(t, content, "Publish then wait for [Model.ready](/api/model#event--ready). Payload is \\{a: 1\\}.")
	require.Contains(t, content, "<a id=\"publish\"></a>\n\n### publish(scope, data)")
	require.Contains(t, content, "```ts\npublish(scope: string, data?: Object.<string, *>): void\n```")
	require.Contains(t, content, "| `data` *(optional)* | `Object.<string, *>` | Payload \\| extra. Default: `{}` |")
	require.Contains(t, content, "**Returns:** `void`")
	require.Contains(t, content, "*Basic*\n\n```js\nmodel.publish(\"s\");\n```")
	require.Contains(t, content, "**See also:** [Model.id](/api/model#id)")
	require.Contains(t, content, "**Since:** 1.0")
	require.NotContains(t, content, "<a id=\"id\">", "anchor equal to the heading slug needs no explicit id")

	var links []string
	for _, l := range model.Links {
		links = append(links, l.Destination)
		require.Greater(t, l.Line, model.BodyOffset)
	}
	require.Contains(t, links, "/api/model#event--ready")
	require.Contains(t, links, "/api/model#id")

	doc, err := frontmatter.Split(model.Content)
	require.NoError(t, err)
	fields, err := doc.Fields()
	require.NoError(t, err)
	fp := fields[mdfp.FingerprintField]
	delete(fields, mdfp.FingerprintField)
	want, err := Fingerprint(fields, doc.Body)
	require.NoError(t, err)
	require.Equal(t, want, fp)
}

func TestRun_MissingNarrativeAndOverlay(t *testing.T) {
	res := run(t, modelEntities(), nil)
	require.Len(t, res.Issues, 1)
	require.Equal(t, report.CategoryMissingNarrative, res.Issues[0].Category)
	require.Equal(t, report.SeverityInfo, res.Issues[0].Severity)
	require.Equal(t, "api/model", res.Issues[0].Page)

	overlay := narrativeFixture(t, "concepts/model.mdx", "---\ntitle: Models\ndescription: How models replicate\nentity: Model\n---\nModels sync state. See {@link publish}.\n")
	res = run(t, modelEntities(), []narrative.Page{overlay})
	require.Empty(t, res.Issues)
	require.Len(t, res.Pages, 2, "the overlay does not become a page of its own")

	model := pageByPath(t, res, "api/model")
	require.Equal(t, "How models replicate", model.Description)
	require.Contains(t, string(model.Content), "## Overview\n\nModels sync state. See [Model.publish](/api/model#publish).")
	require.NotContains(t, string(model.Content), "A replicated model. Lives in a session.")
}

func TestRun_NarrativePages(t *testing.T) {
	hello := narrativeFixture(t, "tutorials/hello.mdx",
		"---\ntitle: Hello\ndescription: Say hello\nunlisted: true\n---\n# Hello\n\nUse {@link Model#publish} or [[/tutorials/world]].\n\n![logo](/img/logo.png)\n")
	clash := narrativeFixture(t, "api/model.md", "---\ntitle: Clash\ndescription: Collides\n---\nx\n")

	res := run(t, modelEntities(), []narrative.Page{clash, hello})

	page := pageByPath(t, res, "tutorials/hello")
	require.Equal(t, ir.PageNarrative, page.Kind)
	require.True(t, page.Unlisted)
	require.Equal(t, "tutorials/hello.mdx", page.SourceFile)
	require.Contains(t, string(page.Content), "Use [Model.publish](/api/model#publish) or `/tutorials/world`.")
	require.Contains(t, string(page.Content), "unlisted: true")

	require.Len(t, page.Links, 2)
	require.Equal(t, ir.PageLink{Destination: "/api/model#publish", Line: 8}, page.Links[0])
	require.Equal(t, ir.PageLink{Destination: "/img/logo.png", Line: 10, Asset: true}, page.Links[1])
	require.True(t, page.HasAnchor("hello"))

	var cats []report.Category
	for _, is := range res.Issues {
		cats = append(cats, is.Category)
	}
	require.Contains(t, cats, report.CategoryDuplicatePage)
	require.Equal(t, "api/model", pageByPath(t, res, "api/model").Path)
}

func TestRun_ClassSlugCollision(t *testing.T) {
	entities := []ir.Entity{
		{QualifiedName: "HttpClient", Name: "HttpClient", Kind: ir.KindClass, Location: ir.Location{File: "b.js", Line: 1}},
		{QualifiedName: "HttpClient.get", Name: "get", Kind: ir.KindMethod, Parent: "HttpClient", Location: ir.Location{File: "b.js", Line: 4}},
		{QualifiedName: "HTTPClient", Name: "HTTPClient", Kind: ir.KindClass, Location: ir.Location{File: "a.js", Line: 1}},
		{QualifiedName: "HTTPClient.send", Name: "send", Kind: ir.KindMethod, Parent: "HTTPClient", Location: ir.Location{File: "a.js", Line: 5}},
		{QualifiedName: "SessionManager", Name: "SessionManager", Kind: ir.KindClass, Location: ir.Location{File: "c.js", Line: 1}},
		{QualifiedName: "Session.Manager", Name: "Manager", Kind: ir.KindClass, Location: ir.Location{File: "d.js", Line: 1}},
	}
	res := run(t, entities, nil)

	var dups []report.Issue
	for _, is := range res.Issues {
		if is.Category == report.CategoryDuplicatePage {
			dups = append(dups, is)
		}
	}
	require.Len(t, dups, 2)
	require.Equal(t, "api/http-client", dups[0].Page)
	require.Equal(t, "b.js", dups[0].File)
	require.Contains(t, dups[0].Message, "HttpClient is left out")
	require.Equal(t, "api/session-manager", dups[1].Page)
	require.Equal(t, "c.js", dups[1].File)
	require.True(t, dups[0].IsCritical())

	client := pageByPath(t, res, "api/http-client")
	require.Equal(t, "HTTPClient", client.Title)
	require.True(t, client.HasAnchor("send"))
	require.False(t, client.HasAnchor("get"))
	require.Equal(t, "Manager", pageByPath(t, res, "api/session-manager").Title)
}

func TestRun_Idempotent(t *testing.T) {
	hello := narrativeFixture(t, "hello.mdx", "---\ntitle: Hello\ndescription: d\n---\nSee {@link VERSION}.\n")
	a := run(t, modelEntities(), []narrative.Page{hello})
	b := run(t, modelEntities(), []narrative.Page{hello})
	require.Equal(t, len(a.Pages), len(b.Pages))
	for i := range a.Pages {
		require.Equal(t, a.Pages[i].Content, b.Pages[i].Content, a.Pages[i].Path)
	}
}

func TestEscapeProse(t *testing.T) {
	require.Equal(t, `Pass \{a: 1\} and `+"`{b}`", escapeProse("Pass {a: 1} and `{b}`"))
	require.Equal(t, `already \{ok\}`, escapeProse(`already \{ok\}`))
	require.Equal(t, "``a`b``", code("a`b"))
	require.Equal(t, "`` `x ``", code("`x"))
}
