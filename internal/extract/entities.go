package extract

import (
	"fmt"
	"slices"
	"strings"

	"git.home.luguber.info/inful/docsync/internal/ir"
	"git.home.luguber.info/inful/docsync/internal/report"
)

// tags consumed structurally; everything else lands in Entity.Tags verbatim.
var structuralTags = map[string]struct{}{
	"param": {}, "arg": {}, "argument": {},
	"returns": {}, "return": {},
	"example": {}, "name": {}, "memberof": {}, "memberOf": {},
	"class": {}, "constructor": {}, "classdesc": {},
	"event": {}, "property": {}, "prop": {}, "type": {},
	"constant": {}, "const": {}, "method": {}, "function": {}, "func": {},
	"description": {}, "desc": {}, "static": {}, "instance": {},
}

// fileBuilder turns the doc comments of one file into entities.
type fileBuilder struct {
	file     string
	decls    map[int]Decl
	lastCls  string
	entities []ir.Entity
	issues   []report.Issue
}

func (b *fileBuilder) issue(sev report.Severity, line int, format string, args ...any) {
	b.issues = append(b.issues, report.New(report.CategoryMalformedComment, fmt.Sprintf(format, args...)).
		WithSeverity(sev).
		At(b.file, line))
}

// add builds the entity (or entities) documented by comment c.
func (b *fileBuilder) add(c Comment) {
	doc := ParseDoc(c)
	if doc.Summary == "" && len(doc.Tags) == 0 {
		return
	}
	if doc.has("ignore", "private", "internal") {
		return
	}
	if doc.has("typedef", "callback", "module", "file", "fileoverview", "overview", "license") && !doc.has(kindTags...) {
		return
	}

	decl, hasDecl := b.decls[c.StartLine]
	kind := inferKind(doc, decl, hasDecl)
	name, parent := b.resolveName(doc, decl, kind)

	if kind == ir.KindEvent {
		if t, _ := doc.first("event"); strings.TrimSpace(t.Value) == "" {
			if name == "" {
				b.issue(report.SeverityMedium, c.StartLine, "@event comment does not name the event; entry skipped")
				return
			}
			b.issue(report.SeverityLow, c.StartLine, "@event should name the event (using %q from the declaration)", name)
		}
	}
	if name == "" {
		b.issue(report.SeverityMedium, c.StartLine, "doc comment has no determinable name; add @name or document a declaration")
		return
	}
	if !slices.Contains(knownKinds, kind) {
		kind = ir.KindProperty // a bare @name documents a member
	}

	e := ir.Entity{
		Name:     name,
		Kind:     kind,
		Parent:   parent,
		Summary:  doc.Summary,
		Location: ir.Location{File: b.file, Line: c.StartLine},
	}
	if kind == ir.KindClass {
		if t, ok := doc.first("classdesc"); ok && t.Value != "" {
			if e.Summary != "" {
				e.Summary += "\n\n" + t.Value
			} else {
				e.Summary = t.Value
			}
		}
		e.QualifiedName = ir.Qualify(parent, name)
		b.lastCls = e.QualifiedName
	} else if kind == ir.KindEvent {
		e.QualifiedName = ir.Qualify(parent, "event:"+name)
	} else {
		e.QualifiedName = ir.Qualify(parent, name)
	}
	e.Constructor = hasDecl && decl.Constructor

	b.collectTags(&e, doc)
	if doc.has("static") || (hasDecl && decl.Static) {
		if e.Tags == nil {
			e.Tags = map[string][]string{}
		}
		e.Tags["static"] = []string{}
	}
	b.checkRequired(e, c.StartLine)
	b.entities = append(b.entities, e)

	if kind == ir.KindClass {
		b.addClassProperties(e, doc)
	}
}

func inferKind(doc Doc, decl Decl, hasDecl bool) ir.Kind {
	switch {
	case doc.has("class", "constructor") && !(hasDecl && decl.Constructor):
		return ir.KindClass
	case doc.has("event"):
		return ir.KindEvent
	case doc.has("constant", "const"):
		return ir.KindConstant
	case doc.has("method", "function", "func"):
		return ir.KindMethod
	case hasDecl && decl.Constructor:
		return ir.KindMethod
	case hasDecl:
		if decl.Kind == ir.KindProperty && doc.has("param", "returns", "return") {
			return ir.KindMethod
		}
		return decl.Kind
	case doc.has("type"):
		return ir.KindProperty
	case doc.has("param", "returns", "return"):
		return ir.KindMethod
	}
	return ""
}

// resolveName picks the entity name and owning class. Explicit tags win over
// the declaration; tag-only member comments attach to the closest preceding
// class in the same file.
func (b *fileBuilder) resolveName(doc Doc, decl Decl, kind ir.Kind) (name, parent string) {
	if t, ok := doc.first("name"); ok {
		name = firstWord(t.Value)
	}
	if name == "" {
		switch kind {
		case ir.KindClass:
			name = tagWord(doc, "class", "constructor")
		case ir.KindEvent:
			name = tagWord(doc, "event")
		case ir.KindMethod:
			name = tagWord(doc, "method", "function", "func")
		case ir.KindConstant:
			name = tagWord(doc, "constant", "const")
		}
	}
	if name == "" {
		name = decl.Name
	}
	name = ir.NormalizeName(name)

	if t, ok := doc.first("memberof", "memberOf"); ok {
		parent = ir.NormalizeName(strings.TrimSuffix(firstWord(t.Value), "."))
	}
	if idx := strings.LastIndex(name, "."); idx > 0 && kind != ir.KindClass {
		if parent == "" {
			parent = name[:idx]
		}
		name = name[idx+1:]
	}
	if kind == ir.KindEvent {
		name = strings.TrimPrefix(name, "event:")
	}
	if parent == "" && kind != ir.KindClass {
		parent = decl.Class
		// Virtual event comments conventionally follow the class that emits them.
		if parent == "" && decl.Name == "" && kind == ir.KindEvent {
			parent = b.lastCls
		}
	}
	return name, parent
}

func tagWord(doc Doc, names ...string) string {
	t, ok := doc.first(names...)
	if !ok {
		return ""
	}
	w := firstWord(t.Value)
	if strings.HasPrefix(w, "{") {
		_, rest := splitType(t.Value)
		w = firstWord(rest)
	}
	return w
}

func (b *fileBuilder) collectTags(e *ir.Entity, doc Doc) {
	for _, t := range doc.Tags {
		switch t.Name {
		case "param", "arg", "argument":
			p := parseParam(t.Value)
			if p.Name == "" {
				b.issue(report.SeverityLow, t.Line, "@param on %s is missing a parameter name", e.QualifiedName)
				continue
			}
			e.Params = append(e.Params, p)
		case "returns", "return":
			e.Returns = parseReturns(t.Value)
		case "type":
			e.Type, _ = splitType(t.Value)
		case "example":
			e.Examples = append(e.Examples, parseExample(t.Value))
		case "constant", "const":
			if typ, _ := splitType(t.Value); typ != "" {
				e.Type = typ
			}
		case "property", "prop":
			if e.Kind == ir.KindProperty {
				p := parseParam(t.Value)
				e.Type = p.Type
			}
		default:
			if _, skip := structuralTags[t.Name]; skip {
				continue
			}
			if e.Tags == nil {
				e.Tags = map[string][]string{}
			}
			e.Tags[t.Name] = append(e.Tags[t.Name], t.Value)
		}
	}
}

func (b *fileBuilder) checkRequired(e ir.Entity, line int) {
	switch e.Kind {
	case ir.KindClass, ir.KindMethod, ir.KindConstant:
		if e.Summary == "" && !e.Constructor {
			b.issue(report.SeverityLow, line, "%s %s has no description", e.Kind, e.QualifiedName)
		}
	case ir.KindProperty:
		if e.Type == "" {
			b.issue(report.SeverityLow, line, "property %s has no type; add @type {T}", e.QualifiedName)
		}
	}
}

// addClassProperties turns `@property {T} name - desc` tags on a class
// comment into property members of that class.
func (b *fileBuilder) addClassProperties(cls ir.Entity, doc Doc) {
	for _, t := range doc.Tags {
		if t.Name != "property" && t.Name != "prop" {
			continue
		}
		p := parseParam(t.Value)
		if p.Name == "" {
			b.issue(report.SeverityLow, t.Line, "@property on %s is missing a name", cls.QualifiedName)
			continue
		}
		prop := ir.Entity{
			QualifiedName: ir.Qualify(cls.QualifiedName, p.Name),
			Name:          p.Name,
			Kind:          ir.KindProperty,
			Parent:        cls.QualifiedName,
			Summary:       p.Description,
			Type:          p.Type,
			Location:      ir.Location{File: b.file, Line: t.Line},
		}
		if prop.Type == "" {
			b.issue(report.SeverityLow, t.Line, "property %s has no type; add @type {T}", prop.QualifiedName)
		}
		b.entities = append(b.entities, prop)
	}
}

var knownKinds = []ir.Kind{ir.KindClass, ir.KindMethod, ir.KindProperty, ir.KindEvent, ir.KindConstant}

// kindTags are the tags that explicitly declare what a comment documents.
var kindTags = []string{"class", "constructor", "method", "function", "func", "event", "constant", "const", "name"}
