package extract

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"

	"git.home.luguber.info/inful/docsync/internal/ir"
)

// Decl is what the declaration following a doc comment tells us.
type Decl struct {
	Name        string
	Kind        ir.Kind
	Class       string // enclosing class, if any
	Static      bool
	Constructor bool
}

// newParser creates a tree-sitter parser for JavaScript. Parsers are not
// safe for concurrent use; each worker owns one.
func newParser() *sitter.Parser {
	p := sitter.NewParser()
	p.SetLanguage(javascript.GetLanguage())
	return p
}

// InferDecls parses src and maps the 1-based start line of every `/**`
// comment to the declaration that immediately follows it.
func InferDecls(ctx context.Context, parser *sitter.Parser, src []byte) (map[int]Decl, error) {
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	decls := make(map[int]Decl)
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		for i := 0; i < int(n.NamedChildCount()); i++ {
			child := n.NamedChild(i)
			if child.Type() == "comment" && strings.HasPrefix(child.Content(src), "/**") {
				if next := child.NextNamedSibling(); next != nil && next.Type() != "comment" {
					if d, ok := declFrom(next, src); ok {
						decls[int(child.StartPoint().Row)+1] = d
					}
				}
				continue
			}
			walk(child)
		}
	}
	walk(tree.RootNode())
	return decls, nil
}

func declFrom(n *sitter.Node, src []byte) (Decl, bool) {
	switch n.Type() {
	case "export_statement":
		if d := n.ChildByFieldName("declaration"); d != nil {
			return declFrom(d, src)
		}
		if v := n.ChildByFieldName("value"); v != nil {
			return declFrom(v, src)
		}
	case "class_declaration", "class":
		if name := n.ChildByFieldName("name"); name != nil {
			return Decl{Name: name.Content(src), Kind: ir.KindClass}, true
		}
	case "function_declaration", "generator_function_declaration":
		if name := n.ChildByFieldName("name"); name != nil {
			return Decl{Name: name.Content(src), Kind: ir.KindMethod}, true
		}
	case "method_definition":
		return memberDecl(n, n.ChildByFieldName("name"), src, ir.KindMethod)
	case "field_definition":
		return memberDecl(n, n.ChildByFieldName("property"), src, ir.KindProperty)
	case "lexical_declaration", "variable_declaration":
		return variableDecl(n, src)
	case "expression_statement":
		if a := n.NamedChild(0); a != nil && a.Type() == "assignment_expression" {
			return assignmentDecl(n, a, src)
		}
	}
	return Decl{}, false
}

func memberDecl(n, nameNode *sitter.Node, src []byte, kind ir.Kind) (Decl, bool) {
	if nameNode == nil {
		return Decl{}, false
	}
	d := Decl{Name: strings.TrimPrefix(nameNode.Content(src), "#"), Kind: kind, Class: enclosingClass(n, src)}
	for i := 0; i < int(n.ChildCount()); i++ {
		switch n.Child(i).Type() {
		case "static":
			d.Static = true
		case "get", "set":
			d.Kind = ir.KindProperty
		}
	}
	if kind == ir.KindMethod && d.Name == "constructor" {
		d.Constructor = true
	}
	return d, true
}

func variableDecl(n *sitter.Node, src []byte) (Decl, bool) {
	var declarator *sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := n.NamedChild(i); c.Type() == "variable_declarator" {
			declarator = c
			break
		}
	}
	if declarator == nil {
		return Decl{}, false
	}
	name := declarator.ChildByFieldName("name")
	if name == nil || name.Type() != "identifier" {
		return Decl{}, false
	}
	d := Decl{Name: name.Content(src), Kind: ir.KindProperty}
	if strings.HasPrefix(n.Content(src), "const") {
		d.Kind = ir.KindConstant
	}
	if value := declarator.ChildByFieldName("value"); value != nil {
		switch value.Type() {
		case "class":
			d.Kind = ir.KindClass
		case "arrow_function", "function_expression", "function", "generator_function":
			d.Kind = ir.KindMethod
		}
	}
	return d, true
}

// assignmentDecl handles `Foo.prototype.bar = ...`, `Foo.bar = ...` and
// `this.bar = ...` inside a constructor.
func assignmentDecl(stmt, a *sitter.Node, src []byte) (Decl, bool) {
	left := a.ChildByFieldName("left")
	if left == nil || left.Type() != "member_expression" {
		return Decl{}, false
	}
	prop := left.ChildByFieldName("property")
	obj := left.ChildByFieldName("object")
	if prop == nil || obj == nil {
		return Decl{}, false
	}

	d := Decl{Name: prop.Content(src), Kind: ir.KindProperty}
	if right := a.ChildByFieldName("right"); right != nil {
		switch right.Type() {
		case "arrow_function", "function_expression", "function":
			d.Kind = ir.KindMethod
		}
	}

	owner := obj.Content(src)
	switch {
	case owner == "this":
		d.Class = enclosingClass(stmt, src)
	case owner == "module" || owner == "exports" || owner == "module.exports":
	case strings.HasSuffix(owner, ".prototype"):
		d.Class = strings.TrimSuffix(owner, ".prototype")
	default:
		d.Class = owner
		d.Static = true
	}
	return d, true
}

func enclosingClass(n *sitter.Node, src []byte) string {
	for p := n.Parent(); p != nil; p = p.Parent() {
		switch p.Type() {
		case "class_declaration", "class":
			if name := p.ChildByFieldName("name"); name != nil {
				return name.Content(src)
			}
			// Anonymous class expression bound to a variable.
			if vd := p.Parent(); vd != nil && vd.Type() == "variable_declarator" {
				if name := vd.ChildByFieldName("name"); name != nil {
					return name.Content(src)
				}
			}
			return ""
		}
	}
	return ""
}
