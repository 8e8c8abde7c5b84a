// Package narrative loads the hand-written MDX/Markdown pages that sit next
// to the generated reference.
package narrative

import (
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/docsync/internal/docmodel"
	"git.home.luguber.info/inful/docsync/internal/extract"
	"git.home.luguber.info/inful/docsync/internal/foundation/errors"
	"git.home.luguber.info/inful/docsync/internal/frontmatter"
	"git.home.luguber.info/inful/docsync/internal/ir"
	"git.home.luguber.info/inful/docsync/internal/logfields"
	"git.home.luguber.info/inful/docsync/internal/report"
)

// Page is an accepted narrative page.
type Page struct {
	Path string // canonical page path
	File string // slash path relative to the narrative root
	Meta frontmatter.Meta
	Doc  *docmodel.ParsedDoc
}

// Overlay reports whether the page supplies the overview of a generated
// reference page instead of standing on its own.
func (p Page) Overlay() bool { return p.Meta.Entity != "" }

// Result is the outcome of loading a narrative tree.
type Result struct {
	Pages  []Page // sorted by File
	Issues []report.Issue
	Files  int
}

// Load reads every narrative file under root. Pages without a title or
// description are rejected with an issue; only a missing or unreadable root
// is an error. An empty root means there are no narrative pages.
func Load(root string, extensions []string) (Result, error) {
	if root == "" {
		return Result{}, nil
	}
	files, err := extract.Discover(root, extract.DiscoverOptions{Extensions: extensions})
	if err != nil {
		if classified, ok := errors.AsClassified(err); ok {
			return Result{}, classified.WithContext("stage", "narrative")
		}
		return Result{}, err
	}

	res := Result{Files: len(files)}
	byPath := make(map[string]string, len(files))
	for _, rel := range files {
		page, issue := loadPage(root, rel)
		if issue != nil {
			res.Issues = append(res.Issues, *issue)
			continue
		}
		if prev, dup := byPath[page.Path]; dup {
			res.Issues = append(res.Issues, report.New(report.CategoryDuplicatePage,
				fmt.Sprintf("page path %q is already produced by %s", page.Path, prev)).
				OnPage(page.Path).
				At(rel, 1))
			continue
		}
		byPath[page.Path] = rel
		res.Pages = append(res.Pages, page)
	}

	slog.Debug("Loaded narrative pages",
		logfields.Count(len(res.Pages)),
		slog.Int("rejected", len(res.Issues)))
	return res, nil
}

func loadPage(root, rel string) (Page, *report.Issue) {
	doc, err := docmodel.ParseFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		var issue report.Issue
		if errors.HasCategory(err, errors.CategoryFileSystem) {
			issue = report.New(report.CategoryStageFailure, fmt.Sprintf("read narrative page: %v", err))
		} else {
			issue = report.New(report.CategoryMissingNarrativeMeta, fmt.Sprintf("front-matter cannot be parsed: %v", err))
		}
		issue = issue.At(rel, 1)
		return Page{}, &issue
	}

	meta := doc.Meta()
	pagePath := PathFor(rel, meta.Slug)
	if missing := meta.MissingRequired(); len(missing) > 0 {
		issue := report.New(report.CategoryMissingNarrativeMeta,
			fmt.Sprintf("front-matter is missing %s; page rejected", strings.Join(missing, " and "))).
			OnPage(pagePath).
			At(rel, 1)
		return Page{}, &issue
	}
	return Page{Path: pagePath, File: rel, Meta: meta, Doc: doc}, nil
}

// PathFor derives the page path of a narrative file: the relative path
// without extension, unless front-matter sets a slug. index files name
// their directory.
func PathFor(rel, slug string) string {
	if slug != "" {
		if p := ir.CanonicalPagePath(slug); p != "" {
			return p
		}
	}
	p := strings.TrimSuffix(rel, path.Ext(rel))
	if c := ir.CanonicalPagePath(p); c != "" {
		return c
	}
	return "index"
}
