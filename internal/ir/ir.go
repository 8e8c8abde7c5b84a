// Package ir is the intermediate representation shared by the extraction,
// resolution and transformation stages.
package ir

import (
	"cmp"
	"slices"
	"strings"
)

// Kind is the category of a documented unit.
type Kind string

const (
	KindClass    Kind = "class"
	KindMethod   Kind = "method"
	KindProperty Kind = "property"
	KindEvent    Kind = "event"
	KindConstant Kind = "constant"
)

// Location is a 1-based position in a source file relative to the source root.
type Location struct {
	File string `json:"file"`
	Line int    `json:"line"`
}

// Param is one documented parameter.
type Param struct {
	Name        string `json:"name"`
	Type        string `json:"type,omitempty"`
	Optional    bool   `json:"optional,omitempty"`
	Default     string `json:"default,omitempty"`
	Description string `json:"description,omitempty"`
}

// Returns describes a documented return value.
type Returns struct {
	Type        string `json:"type,omitempty"`
	Description string `json:"description,omitempty"`
}

// Example is one raw example block.
type Example struct {
	Language string `json:"language"`
	Caption  string `json:"caption,omitempty"`
	Code     string `json:"code"`
}

// Entity is one documented source unit. Entities are values: a later
// extraction pass supersedes them, nothing mutates them in place.
type Entity struct {
	QualifiedName string              `json:"qualified_name"`
	Name          string              `json:"name"`
	Kind          Kind                `json:"kind"`
	Parent        string              `json:"parent,omitempty"`
	Summary       string              `json:"summary,omitempty"`
	Params        []Param             `json:"params,omitempty"`
	Returns       *Returns            `json:"returns,omitempty"`
	Type          string              `json:"type,omitempty"`
	Constructor   bool                `json:"constructor,omitempty"`
	Tags          map[string][]string `json:"tags,omitempty"`
	Examples      []Example           `json:"examples,omitempty"`
	Location      Location            `json:"location"`
}

// Tag returns the first value of tag name and whether the tag is present.
func (e Entity) Tag(name string) (string, bool) {
	vals, ok := e.Tags[name]
	if !ok {
		return "", false
	}
	if len(vals) == 0 {
		return "", true
	}
	return vals[0], true
}

// Deprecated reports whether the entity carries @deprecated.
func (e Entity) Deprecated() (string, bool) { return e.Tag("deprecated") }

// ByLocation orders entities by file, then line, then qualified name.
func ByLocation(a, b Entity) int {
	return cmp.Or(
		cmp.Compare(a.Location.File, b.Location.File),
		cmp.Compare(a.Location.Line, b.Location.Line),
		cmp.Compare(a.QualifiedName, b.QualifiedName),
	)
}

// SortByLocation sorts entities in place into merge order.
func SortByLocation(entities []Entity) {
	slices.SortStableFunc(entities, ByLocation)
}

// NormalizeName canonicalizes JSDoc member notation: `A#b` and `A~b` are `A.b`.
// A `module:` prefix is dropped.
func NormalizeName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimPrefix(name, "module:")
	return strings.NewReplacer("#", ".", "~", ".").Replace(name)
}

// Qualify joins parent and member names.
func Qualify(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}
