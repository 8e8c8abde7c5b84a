// Package docmodel is the parsed view of one narrative page: front-matter,
// body and a lazily computed link/anchor analysis with file line mapping.
package docmodel

import (
	"os"
	"sync"

	"git.home.luguber.info/inful/docsync/internal/foundation/errors"
	"git.home.luguber.info/inful/docsync/internal/frontmatter"
	"git.home.luguber.info/inful/docsync/internal/markdown"
)

// ParsedDoc represents a Markdown/MDX document split into front-matter and body.
type ParsedDoc struct {
	doc  frontmatter.Document
	meta frontmatter.Meta

	analysisOnce sync.Once
	analysis     markdown.Analysis
}

// Parse parses raw file content into a ParsedDoc.
func Parse(content []byte) (*ParsedDoc, error) {
	doc, err := frontmatter.Split(content)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryValidation, "failed to split front-matter").Build()
	}
	meta, err := doc.Meta()
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryValidation, "invalid front-matter YAML").Build()
	}

	doc.Raw = append([]byte(nil), doc.Raw...)
	doc.Body = append([]byte(nil), doc.Body...)
	return &ParsedDoc{doc: doc, meta: meta}, nil
}

// ParseFile reads a file from disk and parses it into a ParsedDoc.
func ParseFile(path string) (*ParsedDoc, error) {
	// #nosec G304 -- path comes from narrative discovery under the configured root
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to read document").
			WithContext("path", path).
			Build()
	}

	d, err := Parse(content)
	if err != nil {
		if classified, ok := errors.AsClassified(err); ok {
			return nil, classified.WithContext("path", path)
		}
		return nil, err
	}
	return d, nil
}

func (d *ParsedDoc) Meta() frontmatter.Meta { return d.meta }
func (d *ParsedDoc) HasFrontmatter() bool   { return d.doc.Present }
func (d *ParsedDoc) FrontmatterRaw() []byte { return append([]byte(nil), d.doc.Raw...) }
func (d *ParsedDoc) Body() []byte           { return append([]byte(nil), d.doc.Body...) }

// Fields decodes the full front-matter map, including keys Meta ignores.
func (d *ParsedDoc) Fields() (map[string]any, error) {
	return d.doc.Fields()
}

// Analysis returns the links, headings and anchors of the body.
func (d *ParsedDoc) Analysis() markdown.Analysis {
	d.analysisOnce.Do(func() {
		d.analysis = markdown.Analyze(d.doc.Body)
	})
	return d.analysis
}

// FileLine translates a 1-based body line into a 1-based line of the original file.
func (d *ParsedDoc) FileLine(bodyLine int) int {
	if bodyLine < 1 {
		bodyLine = 1
	}
	return d.doc.BodyLine + bodyLine - 1
}

// RewriteBody applies byte-range edits to the body and returns the new body.
func (d *ParsedDoc) RewriteBody(edits []markdown.Edit) ([]byte, error) {
	out, err := markdown.ApplyEdits(d.doc.Body, edits)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryInternal, "failed to apply body edits").Build()
	}
	return out, nil
}
