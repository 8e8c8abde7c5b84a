package frontmatter

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// Meta holds the front-matter keys docsync understands on narrative pages.
type Meta struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	// Entity names the class whose generated reference page this page overlays.
	Entity string `yaml:"entity,omitempty"`
	// Unlisted pages are published but exempt from orphan detection.
	Unlisted bool   `yaml:"unlisted,omitempty"`
	Slug     string `yaml:"slug,omitempty"`
}

// Meta decodes the typed subset of the front-matter. Unknown keys are ignored.
func (d Document) Meta() (Meta, error) {
	var m Meta
	if len(d.Raw) == 0 {
		return m, nil
	}
	if err := yaml.Unmarshal(d.Raw, &m); err != nil {
		return Meta{}, err
	}
	m.Title = strings.TrimSpace(m.Title)
	m.Description = strings.TrimSpace(m.Description)
	m.Entity = strings.TrimSpace(m.Entity)
	return m, nil
}

// MissingRequired lists required keys that are absent or blank, in a fixed order.
func (m Meta) MissingRequired() []string {
	var missing []string
	if m.Title == "" {
		missing = append(missing, "title")
	}
	if m.Description == "" {
		missing = append(missing, "description")
	}
	return missing
}
