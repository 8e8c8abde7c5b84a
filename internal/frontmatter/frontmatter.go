// Package frontmatter splits, decodes and renders the YAML front-matter block
// at the top of MDX/Markdown pages.
package frontmatter

import (
	"bytes"
	"errors"

	"gopkg.in/yaml.v3"
)

// ErrUnterminated indicates the document opens a front-matter block that is never closed.
var ErrUnterminated = errors.New("front-matter opened with --- but never closed")

// Document is a page split into its front-matter and body.
type Document struct {
	Raw     []byte // front-matter YAML without delimiters
	Body    []byte
	Present bool
	// BodyLine is the 1-based line of the first body line in the original file.
	BodyLine int
}

// Split separates a leading `---` delimited YAML block from the body.
// CRLF input is accepted; a document without front-matter is returned whole as Body.
func Split(content []byte) (Document, error) {
	nl := []byte("\n")
	if bytes.HasPrefix(content, []byte("---\r\n")) {
		nl = []byte("\r\n")
	}
	open := append([]byte("---"), nl...)
	if !bytes.HasPrefix(content, open) {
		return Document{Body: content, BodyLine: 1}, nil
	}

	rest := content[len(open):]
	if bytes.HasPrefix(rest, open) {
		return Document{Raw: []byte{}, Body: rest[len(open):], Present: true, BodyLine: 3}, nil
	}

	closing := append(append([]byte{}, nl...), open...)
	idx := bytes.Index(rest, closing)
	if idx < 0 {
		// Allow a closing delimiter at EOF without trailing newline.
		tail := append(append([]byte{}, nl...), []byte("---")...)
		if !bytes.HasSuffix(rest, tail) {
			return Document{}, ErrUnterminated
		}
		raw := rest[:len(rest)-len(tail)+len(nl)]
		return Document{Raw: raw, Body: []byte{}, Present: true, BodyLine: bytes.Count(content, []byte("\n")) + 2}, nil
	}

	raw := rest[:idx+len(nl)]
	headerLen := len(open) + idx + len(closing)
	return Document{
		Raw:      raw,
		Body:     rest[idx+len(closing):],
		Present:  true,
		BodyLine: bytes.Count(content[:headerLen], []byte("\n")) + 1,
	}, nil
}

// Fields decodes the front-matter into a generic map.
func (d Document) Fields() (map[string]any, error) {
	fields := map[string]any{}
	if len(d.Raw) == 0 {
		return fields, nil
	}
	if err := yaml.Unmarshal(d.Raw, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = map[string]any{}
	}
	return fields, nil
}
