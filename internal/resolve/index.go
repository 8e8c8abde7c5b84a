package resolve

import (
	"slices"
	"strings"

	"git.home.luguber.info/inful/docsync/internal/ir"
	"git.home.luguber.info/inful/docsync/internal/markdown"
	"git.home.luguber.info/inful/docsync/internal/narrative"
)

type pageInfo struct {
	title   string
	anchors map[string]struct{}
}

type candidate struct {
	display string // qualified name, or "/" + page path
	target  ir.Target
}

// Index knows every entity and page of a pass.
type Index struct {
	entities map[string]ir.Entity
	pages    map[string]*pageInfo
	loose    map[string][]candidate
	overlays map[string]string // narrative file -> class page path
}

// NewIndex indexes entities, the reference pages they produce and the
// narrative pages.
func NewIndex(entities []ir.Entity, pages []narrative.Page) *Index {
	idx := &Index{
		entities: make(map[string]ir.Entity, len(entities)),
		pages:    map[string]*pageInfo{},
		loose:    map[string][]candidate{},
		overlays: map[string]string{},
	}

	for _, e := range entities {
		idx.entities[e.QualifiedName] = e
		pi := idx.page(ir.PagePathFor(e))
		if e.Kind == ir.KindClass {
			pi.title = e.Name
		}
		if a := ir.AnchorFor(e); a != "" {
			pi.anchors[a] = struct{}{}
		}
		pi.anchors[markdown.Slug(ir.SectionOverview)] = struct{}{}
		pi.anchors[markdown.Slug(ir.SectionFor(e))] = struct{}{}
	}
	for path, pi := range idx.pages {
		if pi.title == "" {
			pi.title = path
		}
	}
	for _, e := range entities {
		t := ir.EntityTarget(e)
		idx.addLoose(e.QualifiedName, candidate{display: e.QualifiedName, target: t})
		idx.addLoose(e.Name, candidate{display: e.QualifiedName, target: t})
		if e.Kind == ir.KindEvent {
			idx.addLoose(ir.Qualify(e.Parent, e.Name), candidate{display: e.QualifiedName, target: t})
		}
	}

	for _, p := range pages {
		path := p.Path
		if cls, ok := idx.overlayClass(p); ok {
			path = ir.ClassPagePath(cls)
			idx.overlays[p.File] = path
		}
		pi := idx.page(path)
		if pi.title == "" {
			pi.title = p.Meta.Title
		}
		for _, a := range p.Doc.Analysis().Anchors {
			pi.anchors[a] = struct{}{}
		}
		if _, overlay := idx.overlays[p.File]; overlay {
			continue
		}
		c := candidate{display: "/" + path, target: ir.Target{Kind: ir.TargetPage, PagePath: path}}
		idx.addLoose(path, c)
		if base := path[strings.LastIndex(path, "/")+1:]; base != path {
			idx.addLoose(base, c)
		}
	}
	return idx
}

func (idx *Index) page(path string) *pageInfo {
	pi, ok := idx.pages[path]
	if !ok {
		pi = &pageInfo{anchors: map[string]struct{}{}}
		idx.pages[path] = pi
	}
	return pi
}

func (idx *Index) addLoose(name string, c candidate) {
	key := normalizeKey(name)
	if key == "" {
		return
	}
	for _, existing := range idx.loose[key] {
		if existing.display == c.display {
			return
		}
	}
	idx.loose[key] = append(idx.loose[key], c)
}

func (idx *Index) overlayClass(p narrative.Page) (string, bool) {
	if !p.Overlay() {
		return "", false
	}
	e, ok := idx.entities[ir.NormalizeName(p.Meta.Entity)]
	if !ok || e.Kind != ir.KindClass {
		return "", false
	}
	return e.QualifiedName, true
}

// PagePathOf is the page a narrative page ends up on: the reference page of
// the class it overlays, or its own path.
func (idx *Index) PagePathOf(p narrative.Page) string {
	if path, ok := idx.overlays[p.File]; ok {
		return path
	}
	return p.Path
}

// IsOverlay reports whether p overlays a documented class.
func (idx *Index) IsOverlay(p narrative.Page) bool {
	_, ok := idx.overlays[p.File]
	return ok
}

// Entity looks up an entity by qualified name.
func (idx *Index) Entity(qualifiedName string) (ir.Entity, bool) {
	e, ok := idx.entities[qualifiedName]
	return e, ok
}

// HasPage reports whether path is a known page.
func (idx *Index) HasPage(path string) bool {
	_, ok := idx.pages[path]
	return ok
}

// PageTitle returns the title a link to path should show.
func (idx *Index) PageTitle(path string) string {
	if pi, ok := idx.pages[path]; ok {
		return pi.title
	}
	return path
}

func (idx *Index) hasAnchor(path, anchor string) bool {
	pi, ok := idx.pages[path]
	if !ok {
		return false
	}
	_, ok = pi.anchors[anchor]
	return ok
}

func (idx *Index) lookupLoose(name string) []candidate {
	cands := idx.loose[normalizeKey(name)]
	out := slices.Clone(cands)
	slices.SortFunc(out, func(a, b candidate) int { return strings.Compare(a.display, b.display) })
	return out
}
