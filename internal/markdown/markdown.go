// Package markdown extracts links, headings and anchors from Markdown/MDX bodies.
package markdown

import (
	"bytes"
	"sort"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

type LinkKind string

const (
	LinkKindInline              LinkKind = "inline"
	LinkKindImage               LinkKind = "image"
	LinkKindAuto                LinkKind = "auto"
	LinkKindReferenceDefinition LinkKind = "reference_definition"
	LinkKindHTMLHref            LinkKind = "html_href"
	LinkKindHTMLSrc             LinkKind = "html_src"
)

// IsAsset reports whether the link embeds a file rather than navigating to it.
func (k LinkKind) IsAsset() bool {
	return k == LinkKindImage || k == LinkKindHTMLSrc
}

// Link is one outgoing reference found in a body. Line is 1-based within the body.
type Link struct {
	Kind        LinkKind
	Destination string
	Line        int
}

// Heading is an ATX or setext heading with its resolved anchor id.
type Heading struct {
	Level int
	Text  string
	ID    string
	Line  int
}

// Analysis is the link/anchor view of one body.
type Analysis struct {
	Links    []Link
	Headings []Heading
	// Anchors holds every fragment id present: heading ids plus explicit
	// id/name attributes on inline HTML or JSX elements. Sorted, unique.
	Anchors []string
}

// HasAnchor reports whether id is a fragment present on the page.
func (a Analysis) HasAnchor(id string) bool {
	i := sort.SearchStrings(a.Anchors, id)
	return i < len(a.Anchors) && a.Anchors[i] == id
}

func newParser() parser.Parser {
	md := goldmark.New(goldmark.WithParserOptions(parser.WithAttribute()))
	return md.Parser()
}

// Analyze parses body (front-matter already removed) and collects links,
// headings and anchors in document order.
func Analyze(body []byte) Analysis {
	ctx := parser.NewContext()
	root := newParser().Parse(text.NewReader(body), parser.WithContext(ctx))
	lines := newLineIndex(body)
	slugs := NewSlugger()

	var out Analysis
	anchors := map[string]struct{}{}

	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *gmast.Heading:
			title := plainText(node, body)
			id := slugs.Unique(title)
			if explicit, ok := attributeString(node, "id"); ok && explicit != "" {
				id = explicit
			}
			out.Headings = append(out.Headings, Heading{
				Level: node.Level,
				Text:  title,
				ID:    id,
				Line:  lines.lineOf(blockOffset(node)),
			})
			anchors[id] = struct{}{}
		case *gmast.AutoLink:
			out.Links = append(out.Links, Link{Kind: LinkKindAuto, Destination: string(node.URL(body)), Line: lines.lineOf(inlineOffset(node))})
		case *gmast.Image:
			out.Links = append(out.Links, Link{Kind: LinkKindImage, Destination: string(node.Destination), Line: lines.lineOf(inlineOffset(node))})
		case *gmast.Link:
			out.Links = append(out.Links, Link{Kind: LinkKindInline, Destination: string(node.Destination), Line: lines.lineOf(inlineOffset(node))})
		case *gmast.RawHTML:
			var raw bytes.Buffer
			for i := 0; i < node.Segments.Len(); i++ {
				seg := node.Segments.At(i)
				raw.Write(seg.Value(body))
			}
			start := 0
			if node.Segments.Len() > 0 {
				start = node.Segments.At(0).Start
			}
			collectHTML(raw.Bytes(), lines.lineOf(start), &out, anchors)
		case *gmast.HTMLBlock:
			var raw bytes.Buffer
			for i := 0; i < node.Lines().Len(); i++ {
				seg := node.Lines().At(i)
				raw.Write(seg.Value(body))
			}
			collectHTML(raw.Bytes(), lines.lineOf(blockOffset(node)), &out, anchors)
		}
		return gmast.WalkContinue, nil
	})

	// Reference definitions live in the parse context, not the AST.
	refs := ctx.References()
	sort.Slice(refs, func(i, j int) bool {
		return string(refs[i].Label()) < string(refs[j].Label())
	})
	for _, ref := range refs {
		dest := ref.Destination()
		out.Links = append(out.Links, Link{
			Kind:        LinkKindReferenceDefinition,
			Destination: string(dest),
			Line:        lines.lineOf(bytes.Index(body, dest)),
		})
	}

	out.Anchors = make([]string, 0, len(anchors))
	for id := range anchors {
		out.Anchors = append(out.Anchors, id)
	}
	sort.Strings(out.Anchors)
	return out
}

func plainText(n gmast.Node, src []byte) string {
	var buf bytes.Buffer
	_ = gmast.Walk(n, func(c gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *gmast.Text:
			buf.Write(t.Segment.Value(src))
			if t.SoftLineBreak() {
				buf.WriteByte(' ')
			}
		case *gmast.String:
			buf.Write(t.Value)
		}
		return gmast.WalkContinue, nil
	})
	return buf.String()
}

func attributeString(n gmast.Node, name string) (string, bool) {
	v, ok := n.AttributeString(name)
	if !ok {
		return "", false
	}
	switch vv := v.(type) {
	case []byte:
		return string(vv), true
	case string:
		return vv, true
	}
	return "", false
}

func blockOffset(n gmast.Node) int {
	if l := n.Lines(); l != nil && l.Len() > 0 {
		return l.At(0).Start
	}
	return -1
}

// inlineOffset approximates an inline node's position by its first text
// segment, falling back to the enclosing block.
func inlineOffset(n gmast.Node) int {
	for c := n.FirstChild(); c != nil; c = c.FirstChild() {
		if t, ok := c.(*gmast.Text); ok {
			return t.Segment.Start
		}
	}
	for p := n.Parent(); p != nil; p = p.Parent() {
		if p.Type() == gmast.TypeBlock {
			return blockOffset(p)
		}
	}
	return -1
}

type lineIndex []int

func newLineIndex(body []byte) lineIndex {
	idx := lineIndex{0}
	for i, b := range body {
		if b == '\n' {
			idx = append(idx, i+1)
		}
	}
	return idx
}

// lineOf maps a byte offset to a 1-based line; unknown offsets map to line 1.
func (l lineIndex) lineOf(offset int) int {
	if offset < 0 {
		return 1
	}
	return sort.Search(len(l), func(i int) bool { return l[i] > offset })
}
