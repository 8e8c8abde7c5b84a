package transform

import (
	"strings"

	"git.home.luguber.info/inful/docsync/internal/ir"
	"git.home.luguber.info/inful/docsync/internal/markdown"
)

// renderBlocks turns typed blocks into an MDX body.
func renderBlocks(blocks []ir.Block) []byte {
	var b strings.Builder
	for _, blk := range blocks {
		switch blk.Type {
		case ir.BlockHeading:
			if blk.Anchor != "" && blk.Anchor != markdown.Slug(blk.Text) {
				b.WriteString(`<a id="` + blk.Anchor + `"></a>` + "\n\n")
			}
			b.WriteString(strings.Repeat("#", blk.Level) + " " + blk.Text + "\n\n")
		case ir.BlockMarkdown:
			if text := strings.TrimSpace(blk.Text); text != "" {
				b.WriteString(text + "\n\n")
			}
		case ir.BlockSignature:
			writeFence(&b, blk.Language, blk.Text)
		case ir.BlockParameters:
			writeParams(&b, blk.Params)
		case ir.BlockReturns:
			b.WriteString("**Returns:** ")
			if blk.Returns.Type != "" {
				b.WriteString(code(blk.Returns.Type))
			}
			if blk.Returns.Description != "" {
				if blk.Returns.Type != "" {
					b.WriteString(" - ")
				}
				b.WriteString(oneLine(blk.Returns.Description))
			}
			b.WriteString("\n\n")
		case ir.BlockExample:
			if blk.Caption != "" {
				b.WriteString("*" + blk.Caption + "*\n\n")
			}
			writeFence(&b, blk.Language, blk.Text)
		case ir.BlockCallout:
			b.WriteString(`<Callout type="` + blk.Variant + `">` + "\n\n")
			b.WriteString(strings.TrimSpace(blk.Text) + "\n\n")
			b.WriteString("</Callout>\n\n")
		case ir.BlockSeeAlso:
			b.WriteString("**See also:** " + strings.Join(blk.Links, ", ") + "\n\n")
		}
	}
	return []byte(strings.TrimRight(b.String(), "\n") + "\n")
}

func writeFence(b *strings.Builder, lang, body string) {
	fence := "```"
	for strings.Contains(body, fence) {
		fence += "`"
	}
	b.WriteString(fence + lang + "\n" + body + "\n" + fence + "\n\n")
}

func writeParams(b *strings.Builder, params []ir.Param) {
	b.WriteString("| Name | Type | Description |\n| --- | --- | --- |\n")
	for _, p := range params {
		name := code(p.Name)
		if p.Optional {
			name += " *(optional)*"
		}
		typ := ""
		if p.Type != "" {
			typ = code(p.Type)
		}
		desc := cell(p.Description)
		if p.Default != "" {
			if desc != "" {
				desc += " "
			}
			desc += "Default: " + code(p.Default)
		}
		b.WriteString("| " + name + " | " + typ + " | " + desc + " |\n")
	}
	b.WriteString("\n")
}

// code renders s as an inline code span, widening the delimiter when s
// itself contains backticks.
func code(s string) string {
	delim := "`"
	for strings.Contains(s, delim) {
		delim += "`"
	}
	if strings.HasPrefix(s, "`") || strings.HasSuffix(s, "`") {
		return delim + " " + s + " " + delim
	}
	return delim + s + delim
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func cell(s string) string {
	return strings.ReplaceAll(oneLine(s), "|", `\|`)
}

// escapeProse makes doc-comment text safe for MDX: braces outside code
// would otherwise be parsed as JSX expressions.
func escapeProse(text string) string {
	spans := markdown.ProseSpans([]byte(text))
	var edits []markdown.Edit
	for _, sp := range spans {
		for i := sp.Start; i < sp.End; i++ {
			if c := text[i]; (c == '{' || c == '}') && (i == 0 || text[i-1] != '\\') {
				edits = append(edits, markdown.Edit{Start: i, End: i + 1, Replacement: []byte{'\\', c}})
			}
		}
	}
	if len(edits) == 0 {
		return text
	}
	out, err := markdown.ApplyEdits([]byte(text), edits)
	if err != nil {
		return text
	}
	return string(out)
}
