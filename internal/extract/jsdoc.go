package extract

import (
	"strings"
	"unicode"

	"git.home.luguber.info/inful/docsync/internal/ir"
)

// Tag is one block tag of a doc comment.
type Tag struct {
	Name  string
	Value string
	Line  int
}

// Doc is a parsed doc comment: the description and the block tags in order.
type Doc struct {
	Summary string
	Tags    []Tag
}

func (d Doc) first(names ...string) (Tag, bool) {
	for _, t := range d.Tags {
		for _, n := range names {
			if t.Name == n {
				return t, true
			}
		}
	}
	return Tag{}, false
}

func (d Doc) has(names ...string) bool {
	_, ok := d.first(names...)
	return ok
}

// ParseDoc splits a comment into its description and block tags. A block tag
// starts at the beginning of a line with `@name`; following lines continue it
// until the next tag.
func ParseDoc(c Comment) Doc {
	var doc Doc
	var summary []string
	current := -1

	for i, l := range c.Lines {
		trimmed := strings.TrimSpace(l)
		if name, rest, ok := splitTag(trimmed); ok {
			doc.Tags = append(doc.Tags, Tag{Name: name, Value: rest, Line: c.StartLine + i})
			current = len(doc.Tags) - 1
			continue
		}
		if current < 0 {
			summary = append(summary, trimmed)
			continue
		}
		t := &doc.Tags[current]
		if t.Name == "example" {
			t.Value += "\n" + l
		} else {
			t.Value += "\n" + trimmed
		}
	}

	doc.Summary = joinParagraphs(summary)
	for i := range doc.Tags {
		if doc.Tags[i].Name == "example" {
			doc.Tags[i].Value = trimBlankLines(doc.Tags[i].Value)
		} else {
			doc.Tags[i].Value = joinParagraphs(strings.Split(doc.Tags[i].Value, "\n"))
		}
	}
	if d, ok := doc.first("description", "desc"); ok && doc.Summary == "" {
		doc.Summary = d.Value
	}
	return doc
}

func splitTag(line string) (name, rest string, ok bool) {
	if len(line) < 2 || line[0] != '@' || !unicode.IsLetter(rune(line[1])) {
		return "", "", false
	}
	end := 1
	for end < len(line) && (unicode.IsLetter(rune(line[end])) || unicode.IsDigit(rune(line[end]))) {
		end++
	}
	return line[1:end], strings.TrimSpace(line[end:]), true
}

// joinParagraphs collapses wrapped lines into paragraphs separated by a blank line.
func joinParagraphs(lines []string) string {
	var paras []string
	var cur []string
	flush := func() {
		if len(cur) > 0 {
			paras = append(paras, strings.Join(cur, " "))
			cur = nil
		}
	}
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l == "" {
			flush()
			continue
		}
		cur = append(cur, l)
	}
	flush()
	return strings.Join(paras, "\n\n")
}

func trimBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}

// splitType reads a leading `{Type}` with balanced braces.
func splitType(s string) (typ, rest string) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "{") {
		return "", s
	}
	depth := 0
	for i, r := range s {
		switch r {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return strings.TrimSpace(s[1:i]), strings.TrimSpace(s[i+1:])
			}
		}
	}
	return "", s
}

// parseParam parses `{Type} name - description` and its optional forms
// `[name]`, `[name=default]` and `{Type=}`.
func parseParam(value string) ir.Param {
	typ, rest := splitType(value)
	p := ir.Param{Type: typ}
	if strings.HasSuffix(p.Type, "=") {
		p.Type = strings.TrimSuffix(p.Type, "=")
		p.Optional = true
	}

	if strings.HasPrefix(rest, "[") {
		if end := strings.Index(rest, "]"); end > 0 {
			inner := rest[1:end]
			rest = rest[end+1:]
			p.Optional = true
			if name, def, ok := strings.Cut(inner, "="); ok {
				p.Name, p.Default = strings.TrimSpace(name), strings.TrimSpace(def)
			} else {
				p.Name = strings.TrimSpace(inner)
			}
		}
	} else {
		name, tail, _ := strings.Cut(rest, " ")
		if !strings.HasPrefix(name, "-") {
			p.Name, rest = strings.TrimSpace(name), tail
		}
	}
	if strings.ContainsAny(p.Name, "\n") {
		p.Name, _, _ = strings.Cut(p.Name, "\n")
	}

	rest = strings.TrimSpace(rest)
	rest = strings.TrimPrefix(rest, "- ")
	if rest == "-" {
		rest = ""
	}
	p.Description = strings.TrimSpace(rest)
	return p
}

func parseReturns(value string) *ir.Returns {
	typ, rest := splitType(value)
	return &ir.Returns{Type: typ, Description: strings.TrimPrefix(rest, "- ")}
}

// parseExample extracts an optional <caption> and the code.
func parseExample(value string) ir.Example {
	ex := ir.Example{Language: "js"}
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "<caption>") {
		if end := strings.Index(trimmed, "</caption>"); end > 0 {
			ex.Caption = strings.TrimSpace(trimmed[len("<caption>"):end])
			value = trimBlankLines(trimmed[end+len("</caption>"):])
		}
	}
	ex.Code = dedent(value)
	return ex
}

// dedent removes the common leading whitespace of all non-blank lines.
func dedent(s string) string {
	lines := strings.Split(s, "\n")
	common := -1
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		ind := len(l) - len(strings.TrimLeft(l, " \t"))
		if common < 0 || ind < common {
			common = ind
		}
	}
	if common <= 0 {
		return s
	}
	for i, l := range lines {
		if len(l) >= common {
			lines[i] = l[common:]
		} else {
			lines[i] = strings.TrimLeft(l, " \t")
		}
	}
	return strings.Join(lines, "\n")
}

// firstWord returns the first whitespace separated token of s.
func firstWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
