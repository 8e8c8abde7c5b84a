// Package resolve turns cross-reference markers in doc comments and
// narrative pages into resolved targets, and renders them as links.
package resolve

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"git.home.luguber.info/inful/docsync/internal/ir"
	"git.home.luguber.info/inful/docsync/internal/logfields"
	"git.home.luguber.info/inful/docsync/internal/markdown"
	"git.home.luguber.info/inful/docsync/internal/narrative"
	"git.home.luguber.info/inful/docsync/internal/report"
)

// Scope is where a reference is written.
type Scope struct {
	Entity string // qualified name, empty in narrative pages
	Class  string // class whose members resolve by short name
	Page   string
	File   string
	Line   int
}

// EntityScope is the scope of text belonging to e.
func EntityScope(e ir.Entity) Scope {
	class := e.Parent
	if e.Kind == ir.KindClass {
		class = e.QualifiedName
	}
	return Scope{
		Entity: e.QualifiedName,
		Class:  class,
		Page:   ir.PagePathFor(e),
		File:   e.Location.File,
		Line:   e.Location.Line,
	}
}

func (s Scope) key() string {
	if s.Entity != "" {
		return s.Entity
	}
	return "page:" + s.Page
}

func (s Scope) source() ir.SourceRef {
	return ir.SourceRef{File: s.File, Line: s.Line, Page: s.Page, Entity: s.Entity}
}

type refKey struct {
	scope string
	raw   string
}

// Result holds every cross-reference of a pass.
type Result struct {
	Refs   []ir.CrossReference
	Issues []report.Issue

	index   *Index
	byKey   map[refKey]int
	classes map[string]string // overlay narrative file -> class
}

// Index exposes the entity/page index the references were resolved against.
func (r *Result) Index() *Index { return r.index }

// Run resolves every reference written in entities and narrative pages.
// Resolution order is exact qualified name or page path, then a
// case-insensitive, punctuation-insensitive match.
func Run(entities []ir.Entity, pages []narrative.Page) *Result {
	idx := NewIndex(entities, pages)
	r := &Result{index: idx, byKey: map[refKey]int{}, classes: map[string]string{}}

	for _, e := range entities {
		scope := EntityScope(e)
		for _, text := range entityTexts(e) {
			for _, m := range FindMarkers([]byte(text)) {
				r.add(scope, m.Raw, m.Target, m.Label)
			}
		}
		for _, see := range e.Tags["see"] {
			if ms := FindMarkers([]byte(see)); len(ms) > 0 {
				for _, m := range ms {
					r.add(scope, m.Raw, m.Target, m.Label)
				}
				continue
			}
			if w := firstField(see); w != "" {
				r.add(scope, w, w, "")
			}
		}
	}

	for _, p := range pages {
		scope := Scope{Page: idx.PagePathOf(p), File: p.File, Line: 1}
		if p.Overlay() {
			if cls, ok := idx.overlayClass(p); ok {
				scope.Class = cls
				r.classes[p.File] = cls
			} else {
				r.Issues = append(r.Issues, report.New(report.CategoryUnresolvedReference,
					fmt.Sprintf("front-matter entity %q is not a documented class; page is published on its own", p.Meta.Entity)).
					OnPage(scope.Page).At(p.File, 1))
			}
		}
		for _, m := range FindMarkers(p.Doc.Body()) {
			s := scope
			s.Line = p.Doc.FileLine(m.Line)
			r.add(s, m.Raw, m.Target, m.Label)
		}
	}

	slog.Debug("Resolved cross-references",
		logfields.Count(len(r.Refs)),
		slog.Int("issues", len(r.Issues)))
	return r
}

// NarrativeScope is the scope the references of narrative page p were
// resolved in.
func (r *Result) NarrativeScope(p narrative.Page) Scope {
	return Scope{Page: r.index.PagePathOf(p), Class: r.classes[p.File], File: p.File}
}

func entityTexts(e ir.Entity) []string {
	texts := []string{e.Summary}
	for _, p := range e.Params {
		texts = append(texts, p.Description)
	}
	if e.Returns != nil {
		texts = append(texts, e.Returns.Description)
	}
	for _, name := range slices.Sorted(maps.Keys(e.Tags)) {
		if name == "see" {
			continue
		}
		texts = append(texts, e.Tags[name]...)
	}
	return texts
}

// add resolves one occurrence. External URLs are not cross-references and
// are left to link validation.
func (r *Result) add(scope Scope, raw, target, label string) {
	if isExternal(target) {
		return
	}
	ref, issue := r.index.resolve(scope, raw, target, label)
	if issue != nil {
		r.Issues = append(r.Issues, *issue)
	}
	k := refKey{scope: scope.key(), raw: raw}
	if _, seen := r.byKey[k]; !seen {
		r.byKey[k] = len(r.Refs)
	}
	r.Refs = append(r.Refs, ref)
}

// Lookup returns the resolution of raw written in scope.
func (r *Result) Lookup(scope Scope, raw string) (ir.CrossReference, bool) {
	i, ok := r.byKey[refKey{scope: scope.key(), raw: raw}]
	if !ok {
		return ir.CrossReference{}, false
	}
	return r.Refs[i], true
}

func (idx *Index) resolve(scope Scope, raw, target, label string) (ir.CrossReference, *report.Issue) {
	ref := ir.CrossReference{Source: scope.source(), Raw: raw, Target: target, Label: label}

	unresolved := func(cat report.Category, format string, args ...any) (ir.CrossReference, *report.Issue) {
		ref.Status = ir.RefUnresolved
		issue := report.New(cat, fmt.Sprintf(format, args...)).OnPage(scope.Page).At(scope.File, scope.Line)
		return ref, &issue
	}
	resolvedPage := func(path, frag string) (ir.CrossReference, *report.Issue) {
		ref.Status = ir.RefResolved
		ref.Fragment = frag
		ref.Resolved = &ir.Target{Kind: ir.TargetPage, PagePath: path}
		if frag == "" {
			return ref, nil
		}
		if !idx.hasAnchor(path, frag) {
			// The page exists: keep the link, drop the fragment.
			issue := report.New(report.CategoryUnresolvedFragment,
				fmt.Sprintf("reference %q: page /%s has no anchor #%s", raw, path, frag)).
				OnPage(scope.Page).At(scope.File, scope.Line)
			return ref, &issue
		}
		ref.Resolved.Anchor = frag
		return ref, nil
	}

	// Fragment on the current page.
	if frag, ok := strings.CutPrefix(target, "#"); ok {
		ref.Fragment = frag
		if idx.hasAnchor(scope.Page, frag) {
			ref.Status = ir.RefResolved
			ref.Resolved = &ir.Target{Kind: ir.TargetPage, PagePath: scope.Page, Anchor: frag}
			return ref, nil
		}
		return unresolved(report.CategoryUnresolvedFragment, "reference %q: no anchor #%s on this page", raw, frag)
	}

	pathPart, frag, _ := strings.Cut(target, "#")
	explicitPage := strings.HasPrefix(target, "/")

	if !explicitPage {
		name := ir.NormalizeName(target)
		if e, ok := idx.entities[name]; ok {
			return idx.resolvedEntity(ref, e), nil
		}
		if scope.Class != "" {
			if e, ok := idx.entities[ir.Qualify(scope.Class, name)]; ok {
				return idx.resolvedEntity(ref, e), nil
			}
		}
	}
	if path := ir.CanonicalPagePath(pathPart); path != "" && idx.HasPage(path) {
		return resolvedPage(path, frag)
	}

	var cands []candidate
	if explicitPage {
		for _, c := range idx.lookupLoose(pathPart) {
			if c.target.Kind == ir.TargetPage {
				cands = append(cands, c)
			}
		}
	} else {
		cands = idx.lookupLoose(ir.NormalizeName(target))
		if len(cands) == 0 && frag != "" {
			// Class#member names a member; only pages take a fragment.
			for _, c := range idx.lookupLoose(pathPart) {
				if c.target.Kind == ir.TargetPage {
					cands = append(cands, c)
				}
			}
		}
	}

	switch len(cands) {
	case 0:
		return unresolved(report.CategoryUnresolvedReference, "unresolved reference %q", target)
	case 1:
		c := cands[0]
		if c.target.Kind == ir.TargetPage {
			return resolvedPage(c.target.PagePath, frag)
		}
		e := idx.entities[c.target.QualifiedName]
		return idx.resolvedEntity(ref, e), nil
	}

	ref.Status = ir.RefAmbiguous
	for _, c := range cands {
		ref.Candidates = append(ref.Candidates, c.display)
	}
	issue := report.New(report.CategoryAmbiguousReference,
		fmt.Sprintf("reference %q is ambiguous: %s", target, strings.Join(ref.Candidates, ", "))).
		OnPage(scope.Page).At(scope.File, scope.Line)
	return ref, &issue
}

func (idx *Index) resolvedEntity(ref ir.CrossReference, e ir.Entity) ir.CrossReference {
	t := ir.EntityTarget(e)
	ref.Status = ir.RefResolved
	ref.Resolved = &t
	return ref
}

// Rewrite replaces every marker in text with a Markdown link when it
// resolved and with inline code otherwise.
func (r *Result) Rewrite(scope Scope, text string) string {
	markers := FindMarkers([]byte(text))
	if len(markers) == 0 {
		return text
	}
	edits := make([]markdown.Edit, 0, len(markers))
	for _, m := range markers {
		edits = append(edits, markdown.Edit{
			Start:       m.Start,
			End:         m.End,
			Replacement: []byte(r.render(scope, m.Raw, m.Target, m.Label, m.Code)),
		})
	}
	out, err := markdown.ApplyEdits([]byte(text), edits)
	if err != nil {
		return text
	}
	return string(out)
}

// RenderSee renders one @see value.
func (r *Result) RenderSee(scope Scope, value string) string {
	if len(FindMarkers([]byte(value))) > 0 {
		return r.Rewrite(scope, value)
	}
	w := firstField(value)
	if w == "" {
		return ""
	}
	rest := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(value), w))
	link := r.render(scope, w, w, "", false)
	if rest == "" {
		return link
	}
	return link + " " + rest
}

func (r *Result) render(scope Scope, raw, target, label string, code bool) string {
	if isExternal(target) {
		if label == "" {
			label = target
		}
		return "[" + label + "](" + target + ")"
	}

	ref, ok := r.Lookup(scope, raw)
	if label == "" {
		label = r.defaultLabel(ref, target)
	}
	if !ok || ref.Status != ir.RefResolved || ref.Resolved == nil {
		return inlineCode(label)
	}
	if code {
		label = inlineCode(label)
	}
	return "[" + label + "](" + ref.Resolved.Href() + ")"
}

func (r *Result) defaultLabel(ref ir.CrossReference, target string) string {
	if ref.Resolved != nil {
		switch {
		case ref.Resolved.Kind == ir.TargetEntity:
			return displayName(ref.Resolved.QualifiedName)
		case ref.Resolved.Anchor == "" && !strings.HasPrefix(target, "#"):
			return r.index.PageTitle(ref.Resolved.PagePath)
		}
	}
	return strings.TrimPrefix(target, "#")
}

// displayName renders a qualified name for humans: events drop their
// namespace prefix.
func displayName(qualifiedName string) string {
	return strings.Replace(qualifiedName, "event:", "", 1)
}

func inlineCode(s string) string {
	return "`" + strings.ReplaceAll(s, "`", "'") + "`"
}

func firstField(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
