// Package validate checks every link, fragment and asset of the page tree.
package validate

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"git.home.luguber.info/inful/docsync/internal/ir"
	"git.home.luguber.info/inful/docsync/internal/linkverify"
	"git.home.luguber.info/inful/docsync/internal/logfields"
	"git.home.luguber.info/inful/docsync/internal/report"
)

// LinkVerifier checks external links for reachability.
type LinkVerifier interface {
	Verify(ctx context.Context, checks []linkverify.Check) []linkverify.Result
}

// Options bounds the validation worker pool.
type Options struct {
	Workers     int
	PageTimeout time.Duration
	AssetsDir   string
	// Verifier enables the live reachability pass when set.
	Verifier LinkVerifier
}

// Result is the merged output of a validation pass.
type Result struct {
	Issues   []report.Issue
	Links    int
	External int
}

type Validator struct {
	opts Options
}

func New(opts Options) *Validator {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.PageTimeout <= 0 {
		opts.PageTimeout = 5 * time.Second
	}
	return &Validator{opts: opts}
}

type pageResult struct {
	issues   []report.Issue
	links    int
	external []linkverify.Check
	// interrupted is set when the context ended before every link was seen.
	interrupted bool
}

// Run validates pages concurrently. Every broken link yields exactly one
// issue; no page stops the others.
func (v *Validator) Run(ctx context.Context, pages []ir.Page) Result {
	byPath := make(map[string]*ir.Page, len(pages))
	for i := range pages {
		byPath[pages[i].Path] = &pages[i]
	}

	results := make([]pageResult, len(pages))
	sem := make(chan struct{}, v.opts.Workers)
	var wg sync.WaitGroup
	for i := range pages {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = v.pageWithTimeout(ctx, &pages[i], byPath)
		}(i)
	}
	wg.Wait()

	var res Result
	var external []linkverify.Check
	for _, r := range results {
		res.Issues = append(res.Issues, r.issues...)
		res.Links += r.links
		external = append(external, r.external...)
	}
	res.External = len(external)

	if v.opts.Verifier != nil && len(external) > 0 && ctx.Err() == nil {
		for _, r := range v.opts.Verifier.Verify(ctx, external) {
			if r.Reachable {
				continue
			}
			reason := r.Err
			if reason == "" {
				reason = fmt.Sprintf("HTTP %d", r.Status)
			}
			res.Issues = append(res.Issues, report.New(report.CategoryUnreachableExternal,
				fmt.Sprintf("external link %s is unreachable: %s", r.URL, reason)).
				OnPage(r.Page).At(r.File, r.Line))
		}
	}

	slices.SortStableFunc(res.Issues, report.ByLocation)
	slog.Debug("Validated links", logfields.Count(res.Links), slog.Int("external", res.External), slog.Int("issues", len(res.Issues)))
	return res
}

func (v *Validator) pageWithTimeout(ctx context.Context, page *ir.Page, byPath map[string]*ir.Page) pageResult {
	pctx, cancel := context.WithTimeout(ctx, v.opts.PageTimeout)
	defer cancel()

	done := make(chan pageResult, 1)
	go func() { done <- v.page(pctx, page, byPath) }()

	select {
	case r := <-done:
		if !r.interrupted {
			return r
		}
	case <-pctx.Done():
	}
	slog.Warn("Page validation timed out", logfields.Page(page.Path), slog.Duration("timeout", v.opts.PageTimeout))
	return pageResult{issues: []report.Issue{
		report.New(report.CategoryValidationTimeout,
			fmt.Sprintf("validation did not finish within %s", v.opts.PageTimeout)).
			OnPage(page.Path).At(page.DisplayFile(), 0),
	}}
}

// page validates the links of one page against the page set.
func (v *Validator) page(ctx context.Context, page *ir.Page, byPath map[string]*ir.Page) pageResult {
	var r pageResult
	file := page.DisplayFile()
	issue := func(cat report.Category, line int, format string, args ...any) {
		r.issues = append(r.issues, report.New(cat, fmt.Sprintf(format, args...)).OnPage(page.Path).At(file, line))
	}

	for _, link := range page.Links {
		if ctx.Err() != nil {
			r.interrupted = true
			return r
		}
		t := Classify(page.Path, link)
		if t.Class == ClassIgnored {
			continue
		}
		r.links++

		switch t.Class {
		case ClassFragment:
			if !page.HasAnchor(t.Fragment) {
				issue(report.CategoryMissingFragment, link.Line, "fragment #%s does not exist on this page", t.Fragment)
			}
		case ClassInternal:
			target, ok := byPath[t.Path]
			switch {
			case !ok:
				issue(report.CategoryMissingInternalLink, link.Line, "link %s points to page /%s, which does not exist", link.Destination, t.Path)
			case t.Fragment != "" && !target.HasAnchor(t.Fragment):
				issue(report.CategoryMissingFragment, link.Line, "link %s: page /%s has no anchor #%s", link.Destination, t.Path, t.Fragment)
			}
		case ClassAsset:
			if !v.assetExists(t.Path) {
				issue(report.CategoryMissingAsset, link.Line, "asset %s not found in the assets directory", link.Destination)
			}
		case ClassExternal:
			if !validExternal(t.URL) {
				issue(report.CategoryMalformedExternalLink, link.Line, "external link %q is malformed", link.Destination)
				continue
			}
			r.external = append(r.external, linkverify.Check{URL: t.URL, Page: page.Path, File: file, Line: link.Line})
		}
	}
	return r
}

func (v *Validator) assetExists(rel string) bool {
	if v.opts.AssetsDir == "" || rel == "" {
		return false
	}
	info, err := os.Stat(filepath.Join(v.opts.AssetsDir, filepath.FromSlash(rel)))
	return err == nil && !info.IsDir()
}
