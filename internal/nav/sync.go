package nav

import (
	"fmt"
	"log/slog"
	"slices"

	"git.home.luguber.info/inful/docsync/internal/ir"
	"git.home.luguber.info/inful/docsync/internal/logfields"
	"git.home.luguber.info/inful/docsync/internal/report"
)

// rootPage is the path of the site's index page.
const rootPage = "index"

// Options controls synchronization.
type Options struct {
	// File is the manifest path reported in issues.
	File string
	// AutoPatch appends orphans under CatchAllTitle and rewrites mismatched
	// paths to their canonical form.
	AutoPatch     bool
	CatchAllTitle string
}

// Result is the synchronized manifest and what was found on the way.
type Result struct {
	Manifest *Manifest
	Issues   []report.Issue
	Missing  []string // canonical paths listed but absent from the page set
	Orphans  []string
	Patched  bool
}

// PagePath is the page a manifest path refers to.
func PagePath(p string) string {
	if c := ir.CanonicalPagePath(p); c != "" {
		return c
	}
	return rootPage
}

// Sync compares m with pages. m is not modified; the returned manifest is a
// patched copy when opts.AutoPatch is set.
func Sync(m *Manifest, pages []ir.Page, opts Options) Result {
	if opts.CatchAllTitle == "" {
		opts.CatchAllTitle = "Other"
	}
	res := Result{Manifest: m.Clone()}
	byPath := make(map[string]*ir.Page, len(pages))
	for i := range pages {
		byPath[pages[i].Path] = &pages[i]
	}

	issue := func(cat report.Category, page string, line int, format string, args ...any) {
		res.Issues = append(res.Issues, report.New(cat, fmt.Sprintf(format, args...)).OnPage(page).At(opts.File, line))
	}
	patched := func(page string, line int, format string, args ...any) {
		msg := fmt.Sprintf(format, args...)
		slog.Info("Navigation auto-patched", logfields.Page(page), slog.String("change", msg))
		issue(report.CategoryNavAutoPatched, page, line, "%s", msg)
		res.Patched = true
	}

	listed := map[string]int{}
	check := func(e *Entry) {
		target := PagePath(e.Path)
		if _, ok := byPath[target]; !ok {
			res.Missing = append(res.Missing, target)
			issue(report.CategoryMissingNavTarget, target, e.Line,
				"navigation entry %q points to %s, which does not exist", e.Title, e.Path)
			return
		}

		if first, seen := listed[target]; seen {
			issue(report.CategoryDuplicateNavEntry, target, e.Line,
				"page %s is already listed at line %d", target, first)
		} else {
			listed[target] = e.Line
		}

		if e.Path != target {
			if opts.AutoPatch {
				patched(target, e.Line, "entry path %s rewritten to %s", e.Path, target)
				e.Path = target
			} else {
				issue(report.CategoryNavPathMismatch, target, e.Line,
					"entry path %s should be written %s", e.Path, target)
			}
		}
	}
	var walk func(entries []Entry)
	walk = func(entries []Entry) {
		for i := range entries {
			if !entries[i].IsGroup() {
				check(&entries[i])
			}
			walk(entries[i].Children)
		}
	}
	walk(res.Manifest.Entries)

	paths := make([]string, 0, len(byPath))
	for p := range byPath {
		paths = append(paths, p)
	}
	slices.Sort(paths)

	var orphans []Entry
	for _, p := range paths {
		page := byPath[p]
		if _, ok := listed[p]; ok || page.Unlisted {
			continue
		}
		res.Orphans = append(res.Orphans, p)
		if opts.AutoPatch {
			orphans = append(orphans, Entry{Title: page.Title, Path: p})
			patched(p, 0, "page %s added under %q", p, opts.CatchAllTitle)
			continue
		}
		res.Issues = append(res.Issues, report.New(report.CategoryOrphanPage,
			fmt.Sprintf("page %s is not listed in the navigation manifest", p)).
			OnPage(p).At(page.DisplayFile(), 0))
	}

	if len(orphans) > 0 {
		res.Manifest.appendToGroup(opts.CatchAllTitle, orphans)
	}
	return res
}

// appendToGroup adds entries to the top-level group titled title, creating
// it at the end of the manifest when absent.
func (m *Manifest) appendToGroup(title string, entries []Entry) {
	for i := range m.Entries {
		if g := &m.Entries[i]; g.IsGroup() && g.Title == title {
			g.Children = append(g.Children, entries...)
			return
		}
	}
	m.Entries = append(m.Entries, Entry{Title: title, Children: entries})
}
