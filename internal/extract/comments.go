package extract

import "strings"

// Comment is one `/** ... */` block with decoration stripped.
type Comment struct {
	// Lines holds the cleaned text lines; Lines[i] sits on source line StartLine+i.
	Lines     []string
	StartLine int
	EndLine   int
}

// ScanComments finds doc-comment blocks in JavaScript source. String and
// template literals and line comments are skipped so comment markers inside
// them are not mistaken for blocks. It returns the line of an unterminated
// doc block, or 0.
func ScanComments(src []byte) ([]Comment, int) {
	var comments []Comment
	line := 1
	n := len(src)

	for i := 0; i < n; i++ {
		c := src[i]
		switch {
		case c == '\n':
			line++
		case c == '/' && i+1 < n && src[i+1] == '/':
			for i < n && src[i] != '\n' {
				i++
			}
			i-- // let the loop see the newline
		case c == '/' && i+1 < n && src[i+1] == '*':
			isDoc := i+2 < n && src[i+2] == '*' && (i+3 >= n || (src[i+3] != '/' && src[i+3] != '*'))
			end := strings.Index(string(src[i+2:]), "*/")
			if end < 0 {
				if isDoc {
					return comments, line
				}
				return comments, 0
			}
			body := string(src[i : i+2+end+2])
			startLine := line
			line += strings.Count(body, "\n")
			if isDoc {
				comments = append(comments, Comment{
					Lines:     cleanCommentLines(body),
					StartLine: startLine,
					EndLine:   line,
				})
			}
			i += len(body) - 1
		case c == '"' || c == '\'':
			i = skipQuoted(src, i, c)
		case c == '`':
			for i++; i < n && src[i] != '`'; i++ {
				switch src[i] {
				case '\\':
					i++
				case '\n':
					line++
				}
			}
		}
	}
	return comments, 0
}

// skipQuoted returns the index of the closing quote, or of the newline that
// ends an unterminated single-line string.
func skipQuoted(src []byte, i int, quote byte) int {
	for i++; i < len(src); i++ {
		switch src[i] {
		case '\\':
			i++
		case quote:
			return i
		case '\n':
			return i - 1
		}
	}
	return i
}

// cleanCommentLines strips the delimiters and the leading ` * ` decoration.
// Indentation after the decoration is preserved for example code.
func cleanCommentLines(block string) []string {
	block = strings.TrimPrefix(block, "/**")
	block = strings.TrimSuffix(block, "*/")
	raw := strings.Split(block, "\n")
	out := make([]string, len(raw))
	for i, l := range raw {
		l = strings.TrimRight(l, " \t\r")
		trimmed := strings.TrimLeft(l, " \t")
		if strings.HasPrefix(trimmed, "*") {
			trimmed = strings.TrimPrefix(trimmed, "*")
			trimmed = strings.TrimPrefix(trimmed, " ")
			l = trimmed
		} else if i == 0 {
			l = strings.TrimLeft(l, " \t")
		}
		out[i] = l
	}
	return out
}
