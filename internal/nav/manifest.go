// Package nav reconciles the navigation manifest with the page tree.
package nav

import (
	"bytes"
	"os"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/docsync/internal/foundation/errors"
)

// Entry is one node of the navigation tree. Groups have children and no path.
type Entry struct {
	Title    string  `yaml:"title"`
	Path     string  `yaml:"path,omitempty"`
	Children []Entry `yaml:"children,omitempty"`

	// Line is where the entry starts in the manifest file; zero for entries
	// added by auto-patch.
	Line int `yaml:"-"`
}

// UnmarshalYAML records the entry's line alongside its fields.
func (e *Entry) UnmarshalYAML(node *yaml.Node) error {
	type plain Entry
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*e = Entry(p)
	e.Line = node.Line
	return nil
}

// IsGroup reports whether the entry only groups other entries.
func (e Entry) IsGroup() bool { return e.Path == "" }

// Manifest is the ordered navigation tree. On disk it is a YAML sequence of
// entries.
type Manifest struct {
	Entries []Entry
}

// Parse decodes a manifest. An empty document is an empty manifest.
func Parse(data []byte) (*Manifest, error) {
	m := &Manifest{}
	if len(bytes.TrimSpace(data)) == 0 {
		return m, nil
	}
	if err := yaml.Unmarshal(data, &m.Entries); err != nil {
		return nil, errors.WrapError(err, errors.CategoryNavigation, "failed to parse navigation manifest").Build()
	}
	return m, nil
}

// Load reads the manifest at path. A missing file is an empty manifest so a
// fresh project starts with every page orphaned.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Manifest{}, nil
	}
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to read navigation manifest").
			WithContext("path", path).
			Build()
	}
	m, err := Parse(data)
	if err != nil {
		if classified, ok := errors.AsClassified(err); ok {
			return nil, classified.WithContext("path", path)
		}
		return nil, err
	}
	return m, nil
}

// Marshal encodes the manifest with two-space indentation.
func (m *Manifest) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	entries := m.Entries
	if entries == nil {
		entries = []Entry{}
	}
	if err := enc.Encode(entries); err != nil {
		return nil, errors.WrapError(err, errors.CategoryInternal, "failed to encode navigation manifest").Build()
	}
	if err := enc.Close(); err != nil {
		return nil, errors.WrapError(err, errors.CategoryInternal, "failed to encode navigation manifest").Build()
	}
	return buf.Bytes(), nil
}

// Clone returns a deep copy so synchronization never mutates its input.
func (m *Manifest) Clone() *Manifest {
	return &Manifest{Entries: cloneEntries(m.Entries)}
}

func cloneEntries(in []Entry) []Entry {
	if in == nil {
		return nil
	}
	out := make([]Entry, len(in))
	for i, e := range in {
		out[i] = e
		out[i].Children = cloneEntries(e.Children)
	}
	return out
}

// Paths lists every entry path in tree order.
func (m *Manifest) Paths() []string {
	var out []string
	var walk func([]Entry)
	walk = func(entries []Entry) {
		for _, e := range entries {
			if !e.IsGroup() {
				out = append(out, e.Path)
			}
			walk(e.Children)
		}
	}
	walk(m.Entries)
	return out
}
