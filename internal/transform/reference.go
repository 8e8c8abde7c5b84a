package transform

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"git.home.luguber.info/inful/docsync/internal/ir"
	"git.home.luguber.info/inful/docsync/internal/resolve"
)

// tags rendered by dedicated blocks or not rendered at all
var hiddenTags = map[string]struct{}{
	"deprecated": {}, "see": {}, "static": {}, "public": {}, "access": {},
	"async": {}, "override": {}, "inheritdoc": {}, "readonly": {},
}

// memberBlocks renders one member: anchor heading, deprecation notice,
// signature, description, parameters, return value, other tags, examples
// and see-also links.
func (t *Transformer) memberBlocks(e ir.Entity) []ir.Block {
	blocks := []ir.Block{{Type: ir.BlockHeading, Level: 3, Text: headingText(e), Anchor: ir.AnchorFor(e)}}
	blocks = append(blocks, t.deprecation(e)...)
	if sig := signature(e); sig != "" {
		blocks = append(blocks, ir.Block{Type: ir.BlockSignature, Language: "ts", Text: sig})
	}
	if e.Summary != "" {
		blocks = append(blocks, t.prose(e, e.Summary))
	}
	return append(blocks, t.details(e)...)
}

// details are the blocks shared by members and the class overview.
func (t *Transformer) details(e ir.Entity) []ir.Block {
	scope := resolve.EntityScope(e)
	var blocks []ir.Block

	if e.Kind == ir.KindClass && len(e.Params) > 0 {
		blocks = append(blocks, ir.Block{Type: ir.BlockSignature, Language: "ts", Text: "new " + e.Name + "(" + paramList(e.Params) + ")"})
	}
	if len(e.Params) > 0 {
		params := make([]ir.Param, len(e.Params))
		for i, p := range e.Params {
			p.Description = t.render(scope, p.Description)
			params[i] = p
		}
		blocks = append(blocks, ir.Block{Type: ir.BlockParameters, Params: params})
	}
	if e.Returns != nil && (e.Returns.Type != "" || e.Returns.Description != "") {
		blocks = append(blocks, ir.Block{Type: ir.BlockReturns, Returns: &ir.Returns{
			Type:        e.Returns.Type,
			Description: t.render(scope, e.Returns.Description),
		}})
	}

	var lines []string
	title := cases.Title(language.English)
	for _, name := range sortedTags(e) {
		if _, hidden := hiddenTags[name]; hidden {
			continue
		}
		for _, v := range e.Tags[name] {
			line := "**" + title.String(name) + ":**"
			if v != "" {
				line += " " + t.render(scope, oneLine(v))
			}
			lines = append(lines, line)
		}
	}
	if len(lines) > 0 {
		blocks = append(blocks, ir.Block{Type: ir.BlockMarkdown, Text: strings.Join(lines, "\\\n")})
	}

	for _, ex := range e.Examples {
		blocks = append(blocks, ir.Block{Type: ir.BlockExample, Language: ex.Language, Caption: ex.Caption, Text: ex.Code})
	}

	if see := e.Tags["see"]; len(see) > 0 {
		links := make([]string, 0, len(see))
		for _, v := range see {
			if l := t.refs.RenderSee(scope, v); l != "" {
				links = append(links, escapeProse(l))
			}
		}
		if len(links) > 0 {
			blocks = append(blocks, ir.Block{Type: ir.BlockSeeAlso, Links: links})
		}
	}
	return blocks
}

func (t *Transformer) deprecation(e ir.Entity) []ir.Block {
	msg, ok := e.Deprecated()
	if !ok {
		return nil
	}
	text := "**Deprecated.**"
	if msg != "" {
		text += " " + t.render(resolve.EntityScope(e), msg)
	}
	return []ir.Block{{Type: ir.BlockCallout, Variant: "warning", Text: text}}
}

func (t *Transformer) prose(e ir.Entity, text string) ir.Block {
	return ir.Block{Type: ir.BlockMarkdown, Text: t.render(resolve.EntityScope(e), text)}
}

// render resolves cross-reference markers and escapes the result for MDX.
func (t *Transformer) render(scope resolve.Scope, text string) string {
	if text == "" {
		return ""
	}
	return escapeProse(t.refs.Rewrite(scope, text))
}

func sortedTags(e ir.Entity) []string {
	names := make([]string, 0, len(e.Tags))
	for name := range e.Tags {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func headingText(e ir.Entity) string {
	switch {
	case e.Constructor:
		return "new " + simpleName(e.Parent) + "(" + paramNames(e.Params) + ")"
	case e.Kind == ir.KindMethod:
		return e.Name + "(" + paramNames(e.Params) + ")"
	}
	return e.Name
}

func signature(e ir.Entity) string {
	static := ""
	if _, ok := e.Tags["static"]; ok {
		static = "static "
	}
	switch {
	case e.Constructor:
		return "new " + simpleName(e.Parent) + "(" + paramList(e.Params) + ")"
	case e.Kind == ir.KindMethod:
		sig := static + e.Name + "(" + paramList(e.Params) + ")"
		if e.Returns != nil && e.Returns.Type != "" {
			sig += ": " + e.Returns.Type
		}
		return sig
	case e.Kind == ir.KindProperty:
		return static + typed(e.Name, e.Type)
	case e.Kind == ir.KindConstant:
		return "const " + typed(e.Name, e.Type)
	}
	return ""
}

func typed(name, typ string) string {
	if typ == "" {
		return name
	}
	return name + ": " + typ
}

func paramNames(params []ir.Param) string {
	names := make([]string, 0, len(params))
	for _, p := range params {
		if strings.Contains(p.Name, ".") {
			continue // nested option fields
		}
		names = append(names, p.Name)
	}
	return strings.Join(names, ", ")
}

func paramList(params []ir.Param) string {
	parts := make([]string, 0, len(params))
	for _, p := range params {
		if strings.Contains(p.Name, ".") {
			continue
		}
		name := p.Name
		if p.Optional {
			name += "?"
		}
		parts = append(parts, typed(name, p.Type))
	}
	return strings.Join(parts, ", ")
}

func simpleName(qualifiedName string) string {
	return qualifiedName[strings.LastIndex(qualifiedName, ".")+1:]
}

// plainText replaces markers by their label or target for contexts that
// cannot hold links, like front-matter descriptions.
func plainText(text string) string {
	markers := resolve.FindMarkers([]byte(text))
	if len(markers) == 0 {
		return text
	}
	var b strings.Builder
	last := 0
	for _, m := range markers {
		b.WriteString(text[last:m.Start])
		if m.Label != "" {
			b.WriteString(m.Label)
		} else {
			b.WriteString(strings.TrimPrefix(m.Target, "#"))
		}
		last = m.End
	}
	b.WriteString(text[last:])
	return b.String()
}
