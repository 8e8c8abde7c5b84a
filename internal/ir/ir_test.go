package ir

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Model":          "model",
		"SessionManager": "session-manager",
		"HTTPClient":     "http-client",
		"event:ready":    "event-ready",
		"Model.publish":  "model-publish",
		"v2Api":          "v2-api",
		"__proto__":      "proto",
	}
	for in, want := range tests {
		require.Equal(t, want, Slugify(in), in)
	}
}

func TestNormalizeName(t *testing.T) {
	require.Equal(t, "Model.publish", NormalizeName("Model#publish"))
	require.Equal(t, "Model.helper", NormalizeName(" Model~helper "))
	require.Equal(t, "session.Session", NormalizeName("module:session.Session"))
}

func TestPagePathFor(t *testing.T) {
	class := Entity{QualifiedName: "SessionManager", Name: "SessionManager", Kind: KindClass}
	method := Entity{QualifiedName: "SessionManager.join", Name: "join", Kind: KindMethod, Parent: "SessionManager"}
	event := Entity{QualifiedName: "SessionManager.event:ready", Name: "ready", Kind: KindEvent, Parent: "SessionManager"}
	global := Entity{QualifiedName: "VERSION", Name: "VERSION", Kind: KindConstant}

	require.Equal(t, "api/session-manager", PagePathFor(class))
	require.Equal(t, "api/session-manager", PagePathFor(method))
	require.Equal(t, "api/globals", PagePathFor(global))

	require.Equal(t, "", AnchorFor(class))
	require.Equal(t, "join", AnchorFor(method))
	require.Equal(t, "event--ready", AnchorFor(event))
	require.Equal(t, "version", AnchorFor(global))

	require.Equal(t, "/api/session-manager#join", EntityTarget(method).Href())
	require.Equal(t, "/api/session-manager", EntityTarget(class).Href())
}

func TestAnchorFor_EventAndPropertyDoNotCollide(t *testing.T) {
	event := Entity{QualifiedName: "Model.event:ready", Name: "ready", Kind: KindEvent, Parent: "Model"}
	prop := Entity{QualifiedName: "Model.eventReady", Name: "eventReady", Kind: KindProperty, Parent: "Model"}
	dashed := Entity{QualifiedName: "Model.event_ready", Name: "event_ready", Kind: KindProperty, Parent: "Model"}

	require.Equal(t, "event-ready", AnchorFor(prop))
	require.Equal(t, "event-ready", AnchorFor(dashed))
	require.Equal(t, "event--ready", AnchorFor(event))
	require.NotEqual(t, AnchorFor(prop), AnchorFor(event))
	require.Equal(t, "/api/model#event--ready", EntityTarget(event).Href())
}

func TestCanonicalPagePath(t *testing.T) {
	for _, in := range []string{"tutorials/world", "/tutorials/world", "tutorials/world.mdx", "tutorials/world/", "Tutorials/World", "tutorials/world/index", "/tutorials/world.md"} {
		require.Equal(t, "tutorials/world", CanonicalPagePath(in), in)
	}
	require.Equal(t, "", CanonicalPagePath("/"))
	require.Equal(t, "", CanonicalPagePath("index.mdx"))
}

func TestSortByLocation(t *testing.T) {
	es := []Entity{
		{QualifiedName: "B", Location: Location{File: "b.js", Line: 5}},
		{QualifiedName: "A2", Location: Location{File: "a.js", Line: 10}},
		{QualifiedName: "A1", Location: Location{File: "a.js", Line: 2}},
	}
	SortByLocation(es)
	require.Equal(t, "A1", es[0].QualifiedName)
	require.Equal(t, "A2", es[1].QualifiedName)
	require.Equal(t, "B", es[2].QualifiedName)
}

func TestEntityTag(t *testing.T) {
	e := Entity{Tags: map[string][]string{"deprecated": {}, "since": {"1.2", "1.3"}}}
	msg, ok := e.Deprecated()
	require.True(t, ok)
	require.Empty(t, msg)
	v, ok := e.Tag("since")
	require.True(t, ok)
	require.Equal(t, "1.2", v)
	_, ok = e.Tag("throws")
	require.False(t, ok)
}
