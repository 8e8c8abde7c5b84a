package resolve

import (
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docsync/internal/docmodel"
	"git.home.luguber.info/inful/docsync/internal/ir"
	"git.home.luguber.info/inful/docsync/internal/narrative"
	"git.home.luguber.info/inful/docsync/internal/report"
)

func narrativePage(t *testing.T, file, content string) narrative.Page {
	t.Helper()
	doc, err := docmodel.Parse([]byte(content))
	require.NoError(t, err)
	return narrative.Page{
		Path: narrative.PathFor(file, doc.Meta().Slug),
		File: file,
		Meta: doc.Meta(),
		Doc:  doc,
	}
}

func fixtureEntities() []ir.Entity {
	return []ir.Entity{
		{QualifiedName: "Model", Name: "Model", Kind: ir.KindClass, Location: ir.Location{File: "model.js", Line: 1}},
		{
			QualifiedName: "Model.publish", Name: "publish", Kind: ir.KindMethod, Parent: "Model",
			Summary:  "Fires {@link Model#event:ready} then {@link publish|itself}. Not `{@link Nope}` in code.",
			Tags:     map[string][]string{"see": {"Model#event:ready", "https://example.com/docs guide"}},
			Location: ir.Location{File: "model.js", Line: 10},
		},
		{QualifiedName: "Model.event:ready", Name: "ready", Kind: ir.KindEvent, Parent: "Model", Location: ir.Location{File: "model.js", Line: 20}},
		{QualifiedName: "A", Name: "A", Kind: ir.KindClass, Location: ir.Location{File: "a.js", Line: 1}},
		{QualifiedName: "A.run", Name: "run", Kind: ir.KindMethod, Parent: "A", Location: ir.Location{File: "a.js", Line: 5}},
		{QualifiedName: "B", Name: "B", Kind: ir.KindClass, Location: ir.Location{File: "b.js", Line: 1}},
		{QualifiedName: "B.run", Name: "run", Kind: ir.KindMethod, Parent: "B", Location: ir.Location{File: "b.js", Line: 5}},
		{
			QualifiedName: "VERSION", Name: "VERSION", Kind: ir.KindConstant,
			Summary:  "See {@link Nope} and {@linkcode model.PUBLISH}.",
			Location: ir.Location{File: "version.js", Line: 3},
		},
	}
}

const worldPage = `---
title: World
description: The world tutorial
---
# World

## Setup

Jump to {@link #setup} or {@link #gone}.

See [[/tutorials/world#nope]] and [[/tutorials/missing]] and {@link run}.
`

func issuesOf(issues []report.Issue, cat report.Category) []report.Issue {
	var out []report.Issue
	for _, is := range issues {
		if is.Category == cat {
			out = append(out, is)
		}
	}
	return out
}

func TestRun(t *testing.T) {
	world := narrativePage(t, "tutorials/world.mdx", worldPage)
	intro := narrativePage(t, "intro.md", "---\ntitle: Intro\ndescription: Start here\n---\nRead [[world]] then [[/Tutorials/World/#setup|set up]].\n")

	res := Run(fixtureEntities(), []narrative.Page{intro, world})

	publish := EntityScope(fixtureEntities()[1])
	ref, ok := res.Lookup(publish, "{@link Model#event:ready}")
	require.True(t, ok)
	require.Equal(t, ir.RefResolved, ref.Status)
	require.Equal(t, &ir.Target{Kind: ir.TargetEntity, QualifiedName: "Model.event:ready", PagePath: "api/model", Anchor: "event--ready"}, ref.Resolved)

	ref, ok = res.Lookup(publish, "{@link publish|itself}")
	require.True(t, ok)
	require.Equal(t, "Model.publish", ref.Resolved.QualifiedName)
	require.Equal(t, "itself", ref.Label)

	_, ok = res.Lookup(publish, "{@link Nope}")
	require.False(t, ok, "markers in code spans are not references")

	version := EntityScope(fixtureEntities()[7])
	ref, _ = res.Lookup(version, "{@linkcode model.PUBLISH}")
	require.Equal(t, ir.RefResolved, ref.Status, "loose match")
	require.Equal(t, "Model.publish", ref.Resolved.QualifiedName)

	unresolved := issuesOf(res.Issues, report.CategoryUnresolvedReference)
	require.Len(t, unresolved, 2)
	require.Equal(t, "version.js", unresolved[0].File)
	require.Equal(t, report.SeverityHigh, unresolved[0].Severity)
	require.Equal(t, "tutorials/world.mdx", unresolved[1].File)
	require.Equal(t, 11, unresolved[1].Line)
	require.Equal(t, "tutorials/world", unresolved[1].Page)

	ambiguous := issuesOf(res.Issues, report.CategoryAmbiguousReference)
	require.Len(t, ambiguous, 1)
	require.Equal(t, report.SeverityMedium, ambiguous[0].Severity)
	ref, _ = res.Lookup(res.NarrativeScope(world), "{@link run}")
	require.Equal(t, ir.RefAmbiguous, ref.Status)
	require.Equal(t, []string{"A.run", "B.run"}, ref.Candidates)

	fragments := issuesOf(res.Issues, report.CategoryUnresolvedFragment)
	require.Len(t, fragments, 2)
	require.Equal(t, 9, fragments[0].Line)
	require.Equal(t, 11, fragments[1].Line)

	ref, _ = res.Lookup(res.NarrativeScope(world), "[[/tutorials/world#nope]]")
	require.Equal(t, ir.RefResolved, ref.Status)
	require.Equal(t, "/tutorials/world", ref.Resolved.Href())

	ref, _ = res.Lookup(res.NarrativeScope(intro), "[[world]]")
	require.Equal(t, "/tutorials/world", ref.Resolved.Href())
	ref, _ = res.Lookup(res.NarrativeScope(intro), "[[/Tutorials/World/#setup|set up]]")
	require.Equal(t, "/tutorials/world#setup", ref.Resolved.Href())
}

func TestRun_MissingClassMember(t *testing.T) {
	entities := []ir.Entity{
		{
			QualifiedName: "Model", Name: "Model", Kind: ir.KindClass,
			Summary:  "Use {@link Model#emit} or {@link Model.emit}.",
			Location: ir.Location{File: "model.js", Line: 1},
		},
	}
	guide := narrativePage(t, "tutorials/guide.mdx", "---\ntitle: Guide\ndescription: How to\n---\n## Setup\n\nSee [[guide#setup]].\n")

	res := Run(entities, []narrative.Page{guide})
	scope := EntityScope(entities[0])

	for _, raw := range []string{"{@link Model#emit}", "{@link Model.emit}"} {
		ref, ok := res.Lookup(scope, raw)
		require.True(t, ok, raw)
		require.Equal(t, ir.RefUnresolved, ref.Status, raw)
		require.Nil(t, ref.Resolved, raw)
	}
	require.Len(t, issuesOf(res.Issues, report.CategoryUnresolvedReference), 2)

	ref, _ := res.Lookup(res.NarrativeScope(guide), "[[guide#setup]]")
	require.Equal(t, ir.RefResolved, ref.Status, "pages still take a fragment")
	require.Equal(t, "/tutorials/guide#setup", ref.Resolved.Href())
}

func TestRun_Deterministic(t *testing.T) {
	world := narrativePage(t, "tutorials/world.mdx", worldPage)
	a := Run(fixtureEntities(), []narrative.Page{world})
	b := Run(fixtureEntities(), []narrative.Page{world})
	require.Equal(t, a.Refs, b.Refs)
	require.Equal(t, a.Issues, b.Issues)
}

func TestRewrite(t *testing.T) {
	world := narrativePage(t, "tutorials/world.mdx", worldPage)
	res := Run(fixtureEntities(), []narrative.Page{world})
	publish := EntityScope(fixtureEntities()[1])

	got := res.Rewrite(publish, fixtureEntities()[1].Summary)
	require.Equal(t, "Fires [Model.ready](/api/model#event--ready) then [itself](/api/model#publish). Not `{@link Nope}` in code.", got)

	version := EntityScope(fixtureEntities()[7])
	got = res.Rewrite(version, fixtureEntities()[7].Summary)
	require.Equal(t, "See `Nope` and [`Model.publish`](/api/model#publish).", got)

	body := string(world.Doc.Body())
	got = res.Rewrite(res.NarrativeScope(world), body)
	require.Contains(t, got, "Jump to [setup](/tutorials/world#setup) or `gone`.")
	require.Contains(t, got, "[World](/tutorials/world)")
	require.Contains(t, got, "`/tutorials/missing`")
	require.Contains(t, got, "`run`")

	require.Equal(t, "[Model.ready](/api/model#event--ready)", res.RenderSee(publish, "Model#event:ready"))
	require.Equal(t, "[https://example.com/docs](https://example.com/docs) guide", res.RenderSee(publish, "https://example.com/docs guide"))
}

func TestOverlayScope(t *testing.T) {
	overlay := narrativePage(t, "model.mdx", "---\ntitle: Models\ndescription: About models\nentity: Model\n---\n## Usage\n\nCall {@link publish}.\n")
	ghost := narrativePage(t, "ghost.mdx", "---\ntitle: Ghost\ndescription: Nothing\nentity: Ghost\n---\nBoo\n")

	res := Run(fixtureEntities(), []narrative.Page{ghost, overlay})

	scope := res.NarrativeScope(overlay)
	require.Equal(t, "api/model", scope.Page)
	require.Equal(t, "Model", scope.Class)
	ref, _ := res.Lookup(scope, "{@link publish}")
	require.Equal(t, ir.RefResolved, ref.Status)
	require.True(t, res.Index().HasPage("api/model"))
	require.Equal(t, "Model", res.Index().PageTitle("api/model"))

	require.Equal(t, "ghost", res.NarrativeScope(ghost).Page)
	unresolved := issuesOf(res.Issues, report.CategoryUnresolvedReference)
	require.Len(t, unresolved, 2) // Ghost + Nope
	require.Equal(t, "ghost.mdx", unresolved[1].File)
}

func TestFindMarkers(t *testing.T) {
	text := "a {@link X|y} b [[Page|Label]] `{@link Z}`\n```\n{@link W}\n```\n{@link  Q  some label }"
	ms := FindMarkers([]byte(text))
	require.Len(t, ms, 3)
	require.Equal(t, Marker{Start: 2, End: 13, Line: 1, Raw: "{@link X|y}", Target: "X", Label: "y"}, ms[0])
	require.Equal(t, "Page", ms[1].Target)
	require.Equal(t, "Label", ms[1].Label)
	require.Equal(t, "Q", ms[2].Target)
	require.Equal(t, "some label", ms[2].Label)
	require.Equal(t, 5, ms[2].Line)
}

func TestNormalizeKey(t *testing.T) {
	require.Equal(t, normalizeKey("Model#Publish"), normalizeKey("model.publish"))
	require.Equal(t, normalizeKey("file"), normalizeKey("ﬁle"))
	require.Equal(t, "strasse", normalizeKey("Straße"))
}
