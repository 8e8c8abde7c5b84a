package markdown

import "strings"

// Span is a half-open byte range [Start, End) within a body.
type Span struct {
	Start int
	End   int
	Line  int // 1-based line of Start
}

// ProseSpans returns the ranges of body that are ordinary prose: fenced and
// indented code blocks and inline code spans are excluded. Cross-reference
// markers are only recognised inside these spans.
func ProseSpans(body []byte) []Span {
	src := string(body)
	var spans []Span

	inFence := false
	fence := ""
	offset := 0
	for lineNo, line := range strings.SplitAfter(src, "\n") {
		start := offset
		offset += len(line)
		trimmed := strings.TrimSpace(line)

		if marker := fenceMarker(trimmed); marker != "" {
			switch {
			case !inFence:
				inFence, fence = true, marker
			case strings.HasPrefix(marker, fence):
				inFence, fence = false, ""
			}
			continue
		}
		if inFence || strings.HasPrefix(line, "    ") || strings.HasPrefix(line, "\t") {
			continue
		}
		spans = append(spans, splitInlineCode(line, start, lineNo+1)...)
	}
	return spans
}

func fenceMarker(trimmed string) string {
	for _, f := range []string{"```", "~~~"} {
		if strings.HasPrefix(trimmed, f) {
			n := len(trimmed) - len(strings.TrimLeft(trimmed, f[:1]))
			return strings.Repeat(f[:1], n)
		}
	}
	return ""
}

// splitInlineCode cuts a single line around backtick code spans. An
// unmatched backtick run is treated as literal text.
func splitInlineCode(line string, base, lineNo int) []Span {
	var spans []Span
	segStart := 0
	for i := 0; i < len(line); {
		if line[i] != '`' {
			i++
			continue
		}
		run := 1
		for i+run < len(line) && line[i+run] == '`' {
			run++
		}
		marker := line[i : i+run]
		closeRel := strings.Index(line[i+run:], marker)
		if closeRel < 0 {
			i += run
			continue
		}
		if i > segStart {
			spans = append(spans, Span{Start: base + segStart, End: base + i, Line: lineNo})
		}
		i = i + run + closeRel + run
		segStart = i
	}
	if segStart < len(line) {
		spans = append(spans, Span{Start: base + segStart, End: base + len(line), Line: lineNo})
	}
	return spans
}
