package resolve

import (
	"cmp"
	"regexp"
	"slices"
	"strings"

	"git.home.luguber.info/inful/docsync/internal/markdown"
)

var (
	inlineLinkRe = regexp.MustCompile(`\{@(link|linkcode|linkplain)\s+([^{}]*)\}`)
	wikiLinkRe   = regexp.MustCompile(`\[\[([^\[\]\n]+)\]\]`)
)

// Marker is one cross-reference marker found in prose.
type Marker struct {
	Start, End int // byte range of Raw in the scanned text
	Line       int // 1-based line within the scanned text
	Raw        string
	Target     string
	Label      string
	Code       bool // {@linkcode}: render the label as code
}

// FindMarkers returns the {@link ...} and [[...]] markers of text in order.
// Markers inside fenced, indented or inline code are ignored.
func FindMarkers(text []byte) []Marker {
	var out []Marker
	for _, span := range markdown.ProseSpans(text) {
		segment := string(text[span.Start:span.End])
		var found []Marker
		for _, m := range inlineLinkRe.FindAllStringSubmatchIndex(segment, -1) {
			target, label := splitInline(segment[m[4]:m[5]])
			if target == "" {
				continue
			}
			found = append(found, Marker{
				Start:  span.Start + m[0],
				End:    span.Start + m[1],
				Line:   span.Line,
				Raw:    segment[m[0]:m[1]],
				Target: target,
				Label:  label,
				Code:   segment[m[2]:m[3]] == "linkcode",
			})
		}
		for _, m := range wikiLinkRe.FindAllStringSubmatchIndex(segment, -1) {
			target, label, _ := strings.Cut(segment[m[2]:m[3]], "|")
			target = strings.TrimSpace(target)
			if target == "" {
				continue
			}
			found = append(found, Marker{
				Start:  span.Start + m[0],
				End:    span.Start + m[1],
				Line:   span.Line,
				Raw:    segment[m[0]:m[1]],
				Target: target,
				Label:  strings.TrimSpace(label),
			})
		}
		slices.SortFunc(found, func(a, b Marker) int { return cmp.Compare(a.Start, b.Start) })
		end := -1
		for _, m := range found {
			if m.Start < end {
				continue // nested in the previous marker
			}
			out = append(out, m)
			end = m.End
		}
	}
	return out
}

// splitInline separates `target|label` or `target label`.
func splitInline(inner string) (target, label string) {
	inner = strings.TrimSpace(inner)
	if t, l, ok := strings.Cut(inner, "|"); ok {
		return strings.TrimSpace(t), strings.TrimSpace(l)
	}
	fields := strings.Fields(inner)
	if len(fields) == 0 {
		return "", ""
	}
	return fields[0], strings.Join(fields[1:], " ")
}

func isExternal(target string) bool {
	return strings.Contains(target, "://") || strings.HasPrefix(target, "mailto:")
}
