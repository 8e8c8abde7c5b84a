// Package transform builds the page tree: one reference page per class, a
// globals page, and the narrative pages, rendered as MDX.
package transform

import (
	"bytes"
	"fmt"
	"log/slog"
	"maps"
	"path"
	"slices"
	"strings"

	"github.com/inful/mdfp"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"git.home.luguber.info/inful/docsync/internal/foundation/errors"
	"git.home.luguber.info/inful/docsync/internal/frontmatter"
	"git.home.luguber.info/inful/docsync/internal/ir"
	"git.home.luguber.info/inful/docsync/internal/logfields"
	"git.home.luguber.info/inful/docsync/internal/markdown"
	"git.home.luguber.info/inful/docsync/internal/narrative"
	"git.home.luguber.info/inful/docsync/internal/report"
	"git.home.luguber.info/inful/docsync/internal/resolve"
)

// Result is the page tree of one pass.
type Result struct {
	Pages  []ir.Page // sorted by Path
	Issues []report.Issue
}

// Transformer renders pages. It holds no state between calls: the same
// input always yields byte-identical pages.
type Transformer struct {
	refs *resolve.Result
}

func New(refs *resolve.Result) *Transformer {
	return &Transformer{refs: refs}
}

// Run builds every page. Errors are reserved for rendering failures.
func (t *Transformer) Run(entities []ir.Entity, pages []narrative.Page) (Result, error) {
	var res Result

	dropped, collisions := slugCollisions(entities)
	res.Issues = append(res.Issues, collisions...)

	groups := map[string][]ir.Entity{}
	for _, e := range entities {
		if dropped[pageOwner(e)] {
			continue
		}
		p := ir.PagePathFor(e)
		groups[p] = append(groups[p], e)
	}

	overlays := map[string][]narrative.Page{}
	var standalone []narrative.Page
	for _, p := range pages {
		target := t.refs.Index().PagePathOf(p)
		_, generated := groups[target]
		switch {
		case generated && t.refs.Index().IsOverlay(p):
			overlays[target] = append(overlays[target], p)
		case generated:
			res.Issues = append(res.Issues, report.New(report.CategoryDuplicatePage,
				fmt.Sprintf("page path %q is reserved for generated reference; narrative page skipped", target)).
				OnPage(target).At(p.File, 1))
		default:
			standalone = append(standalone, p)
		}
	}

	for _, pagePath := range slices.Sorted(maps.Keys(groups)) {
		page, issues, err := t.referencePage(pagePath, groups[pagePath], overlays[pagePath])
		if err != nil {
			return Result{}, err
		}
		res.Pages = append(res.Pages, page)
		res.Issues = append(res.Issues, issues...)
	}
	for _, p := range standalone {
		page, err := t.narrativePage(p)
		if err != nil {
			return Result{}, err
		}
		res.Pages = append(res.Pages, page)
	}

	slices.SortFunc(res.Pages, func(a, b ir.Page) int { return strings.Compare(a.Path, b.Path) })
	slog.Debug("Transformed pages", logfields.Count(len(res.Pages)))
	return res, nil
}

// pageOwner names the class whose page holds e; top-level entities have none.
func pageOwner(e ir.Entity) string {
	if e.Kind == ir.KindClass {
		return e.QualifiedName
	}
	return e.Parent
}

// slugCollisions finds distinct classes whose names slugify to the same page
// path ("HTTPClient" and "HttpClient"). The owner that sorts first keeps the
// page; every other owner is dropped with a duplicate-page issue.
func slugCollisions(entities []ir.Entity) (map[string]bool, []report.Issue) {
	owners := map[string]map[string]ir.Entity{}
	for _, e := range entities {
		p := ir.PagePathFor(e)
		if owners[p] == nil {
			owners[p] = map[string]ir.Entity{}
		}
		o := pageOwner(e)
		if _, seen := owners[p][o]; !seen || e.Kind == ir.KindClass {
			owners[p][o] = e
		}
	}

	dropped := map[string]bool{}
	var issues []report.Issue
	for _, p := range slices.Sorted(maps.Keys(owners)) {
		names := slices.Sorted(maps.Keys(owners[p]))
		for _, name := range names[1:] {
			dropped[name] = true
			e := owners[p][name]
			issues = append(issues, report.New(report.CategoryDuplicatePage,
				fmt.Sprintf("%s and %s both map to page path %q; %s is left out", ownerLabel(names[0]), ownerLabel(name), p, ownerLabel(name))).
				OnPage(p).At(e.Location.File, e.Location.Line))
		}
	}
	return dropped, issues
}

func ownerLabel(owner string) string {
	if owner == "" {
		return "top-level entities"
	}
	return owner
}

func (t *Transformer) referencePage(pagePath string, members []ir.Entity, overlays []narrative.Page) (ir.Page, []report.Issue, error) {
	var cls *ir.Entity
	for i := range members {
		if members[i].Kind == ir.KindClass {
			cls = &members[i]
			break
		}
	}

	page := ir.Page{Path: pagePath, Kind: ir.PageReference}
	var issues []report.Issue
	switch {
	case cls != nil:
		page.Title = cls.Name
		page.SourceFile = cls.Location.File
	case pagePath == ir.GlobalsPage:
		page.Title = cases.Title(language.English).String(path.Base(ir.GlobalsPage))
	default:
		page.Title = members[0].Parent
	}
	if page.SourceFile == "" {
		page.SourceFile = members[0].Location.File
	}

	// Overview
	page.Blocks = append(page.Blocks, ir.Block{Type: ir.BlockHeading, Level: 2, Text: ir.SectionOverview, Anchor: markdown.Slug(ir.SectionOverview)})
	if cls != nil {
		page.Blocks = append(page.Blocks, t.deprecation(*cls)...)
	}
	switch {
	case len(overlays) > 0:
		for _, o := range overlays {
			scope := t.refs.NarrativeScope(o)
			page.Blocks = append(page.Blocks, ir.Block{Type: ir.BlockMarkdown, Text: t.refs.Rewrite(scope, string(o.Doc.Body()))})
			if page.Description == "" {
				page.Description = o.Meta.Description
			}
			if o.Meta.Unlisted {
				page.Unlisted = true
			}
		}
	case cls != nil:
		page.Blocks = append(page.Blocks, t.prose(*cls, cls.Summary))
		issues = append(issues, report.New(report.CategoryMissingNarrative,
			fmt.Sprintf("no narrative page overlays %s; overview generated from the doc comment", cls.QualifiedName)).
			OnPage(pagePath).At(cls.Location.File, cls.Location.Line))
	}
	if cls != nil {
		page.Blocks = append(page.Blocks, t.details(*cls)...)
	}
	if page.Description == "" {
		page.Description = describe(page.Title, cls, pagePath)
	}

	bySection := map[string][]ir.Entity{}
	for _, e := range members {
		if e.Kind == ir.KindClass {
			page.Entities = append(page.Entities, e.QualifiedName)
			continue
		}
		s := ir.SectionFor(e)
		bySection[s] = append(bySection[s], e)
	}
	for _, section := range ir.ReferenceSections {
		list := bySection[section]
		if len(list) == 0 {
			continue
		}
		ir.SortByLocation(list)
		page.Blocks = append(page.Blocks, ir.Block{Type: ir.BlockHeading, Level: 2, Text: section, Anchor: markdown.Slug(section)})
		for _, e := range list {
			page.Entities = append(page.Entities, e.QualifiedName)
			page.Blocks = append(page.Blocks, t.memberBlocks(e)...)
		}
	}

	fields := map[string]any{
		"title":       page.Title,
		"description": page.Description,
		"generated":   true,
		"source":      page.SourceFile,
	}
	if page.Unlisted {
		fields["unlisted"] = true
	}
	if err := finish(&page, fields, renderBlocks(page.Blocks)); err != nil {
		return ir.Page{}, nil, err
	}
	return page, issues, nil
}

func (t *Transformer) narrativePage(p narrative.Page) (ir.Page, error) {
	scope := t.refs.NarrativeScope(p)
	body := t.refs.Rewrite(scope, string(p.Doc.Body()))

	page := ir.Page{
		Path:        p.Path,
		Kind:        ir.PageNarrative,
		SourceFile:  p.File,
		Title:       p.Meta.Title,
		Description: p.Meta.Description,
		Unlisted:    p.Meta.Unlisted,
		Blocks:      []ir.Block{{Type: ir.BlockMarkdown, Text: body}},
	}
	fields, err := p.Doc.Fields()
	if err != nil {
		return ir.Page{}, errors.WrapError(err, errors.CategoryNarrative, "decode front-matter").
			WithContext("file", p.File).
			Build()
	}
	if err := finish(&page, fields, []byte(body)); err != nil {
		return ir.Page{}, err
	}

	// Narrative links point back at lines of the source file.
	for i := range page.Links {
		page.Links[i].Line = p.Doc.FileLine(page.Links[i].Line - page.BodyOffset)
	}
	return page, nil
}

// finish fingerprints and renders the page, then derives its links and
// anchors from the rendered body.
func finish(page *ir.Page, fields map[string]any, body []byte) error {
	fp, err := Fingerprint(fields, body)
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "fingerprint page").
			WithContext("page", page.Path).
			Build()
	}
	fields[mdfp.FingerprintField] = fp

	content, err := frontmatter.Render(fields, body)
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "render page front-matter").
			WithContext("page", page.Path).
			Build()
	}
	page.Content = content
	page.BodyOffset = bytes.Count(content[:len(content)-len(body)], []byte("\n"))

	analysis := markdown.Analyze(body)
	page.Anchors = analysis.Anchors
	page.Links = page.Links[:0]
	for _, l := range analysis.Links {
		page.Links = append(page.Links, ir.PageLink{
			Destination: l.Destination,
			Line:        page.BodyOffset + l.Line,
			Asset:       l.Kind.IsAsset(),
		})
	}
	return nil
}

func describe(title string, cls *ir.Entity, pagePath string) string {
	switch {
	case cls != nil && cls.Summary != "":
		return firstSentence(plainText(cls.Summary))
	case pagePath == ir.GlobalsPage:
		return "Top-level functions, properties and constants."
	}
	return "API reference for " + title + "."
}

func firstSentence(s string) string {
	s = oneLine(s)
	if i := strings.Index(s, ". "); i >= 0 {
		return s[:i+1]
	}
	return s
}
