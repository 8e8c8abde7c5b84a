// Package extract reads JSDoc-style doc comments from JavaScript sources and
// produces the documented entities of one extraction pass.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	sitter "github.com/smacker/go-tree-sitter"

	"git.home.luguber.info/inful/docsync/internal/ir"
	"git.home.luguber.info/inful/docsync/internal/logfields"
	"git.home.luguber.info/inful/docsync/internal/report"
)

// Options bounds the extraction worker pool.
type Options struct {
	Workers     int
	FileTimeout time.Duration
}

// Result is the merged output of an extraction pass.
type Result struct {
	Entities []ir.Entity // deduplicated, ordered by file then line
	Issues   []report.Issue
	Files    int
}

// Extractor extracts entities from files below a source root.
type Extractor struct {
	root string
	opts Options
}

func New(root string, opts Options) *Extractor {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.FileTimeout <= 0 {
		opts.FileTimeout = 10 * time.Second
	}
	return &Extractor{root: root, opts: opts}
}

type fileResult struct {
	entities []ir.Entity
	issues   []report.Issue
}

// Run extracts every file concurrently and merges the results
// deterministically. It never fails as a whole: unreadable files, malformed
// comments and timeouts become issues.
func (x *Extractor) Run(ctx context.Context, files []string) Result {
	results := make([]fileResult, len(files))

	sem := make(chan struct{}, x.opts.Workers)
	var wg sync.WaitGroup
	var parsers sync.Pool
	parsers.New = func() any { return newParser() }

	for i, rel := range files {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, rel string) {
			defer wg.Done()
			defer func() { <-sem }()

			parser := parsers.Get().(*sitter.Parser)
			res, clean := x.fileWithTimeout(ctx, parser, rel)
			if clean {
				parsers.Put(parser)
			}
			results[i] = res
		}(i, rel)
	}
	wg.Wait()

	var merged fileResult
	for _, r := range results {
		merged.entities = append(merged.entities, r.entities...)
		merged.issues = append(merged.issues, r.issues...)
	}
	ir.SortByLocation(merged.entities)
	slices.SortStableFunc(merged.issues, report.ByLocation)

	entities, dupIssues := Dedupe(merged.entities)
	return Result{
		Entities: entities,
		Issues:   append(merged.issues, dupIssues...),
		Files:    len(files),
	}
}

// fileWithTimeout runs one file under the per-file deadline. clean is false
// when the worker was abandoned and its parser must not be reused.
func (x *Extractor) fileWithTimeout(ctx context.Context, parser *sitter.Parser, rel string) (fileResult, bool) {
	fctx, cancel := context.WithTimeout(ctx, x.opts.FileTimeout)
	defer cancel()

	done := make(chan fileResult, 1)
	go func() {
		ents, issues := x.File(fctx, parser, rel)
		done <- fileResult{entities: ents, issues: issues}
	}()

	select {
	case res := <-done:
		return res, true
	case <-fctx.Done():
		slog.Warn("Extraction timed out", logfields.File(rel), slog.Duration("timeout", x.opts.FileTimeout))
		return fileResult{issues: []report.Issue{
			report.New(report.CategoryExtractionTimeout,
				fmt.Sprintf("extraction did not finish within %s", x.opts.FileTimeout)).At(rel, 0),
		}}, false
	}
}

// File extracts a single file. Re-extracting an unchanged file yields the
// same entities, independent of any other file.
func (x *Extractor) File(ctx context.Context, parser *sitter.Parser, rel string) ([]ir.Entity, []report.Issue) {
	// #nosec G304 -- rel comes from Discover under the configured root
	src, err := os.ReadFile(filepath.Join(x.root, filepath.FromSlash(rel)))
	if err != nil {
		slog.Warn("Source file unreadable", logfields.File(rel), logfields.Error(err))
		return nil, []report.Issue{
			report.New(report.CategoryUnreadableSource, fmt.Sprintf("read source file: %v", err)).At(rel, 0),
		}
	}
	if parser == nil {
		parser = newParser()
	}
	return ExtractSource(ctx, parser, rel, src)
}

// ExtractSource extracts entities from in-memory source.
func ExtractSource(ctx context.Context, parser *sitter.Parser, rel string, src []byte) ([]ir.Entity, []report.Issue) {
	comments, unterminated := ScanComments(src)

	decls, err := InferDecls(ctx, parser, src)
	if err != nil {
		slog.Debug("Declaration inference unavailable", logfields.File(rel), logfields.Error(err))
		decls = map[int]Decl{}
	}

	b := &fileBuilder{file: rel, decls: decls}
	for _, c := range comments {
		b.add(c)
	}
	if unterminated > 0 {
		b.issue(report.SeverityMedium, unterminated, "unterminated doc comment; the rest of the file was not scanned")
	}

	slog.Debug("Extracted file", logfields.File(rel), logfields.Count(len(b.entities)))
	return b.entities, b.issues
}

// Dedupe keeps the first entity per qualified name (entities must already be
// in merge order) and reports one duplicate-entity issue per later copy.
func Dedupe(entities []ir.Entity) ([]ir.Entity, []report.Issue) {
	first := make(map[string]ir.Location, len(entities))
	out := make([]ir.Entity, 0, len(entities))
	var issues []report.Issue
	for _, e := range entities {
		if loc, dup := first[e.QualifiedName]; dup {
			issues = append(issues, report.New(report.CategoryDuplicateEntity,
				fmt.Sprintf("%s is already defined at %s:%d", e.QualifiedName, loc.File, loc.Line)).
				At(e.Location.File, e.Location.Line))
			continue
		}
		first[e.QualifiedName] = e.Location
		out = append(out, e)
	}
	return out, issues
}
