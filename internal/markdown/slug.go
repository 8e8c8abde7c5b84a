package markdown

import (
	"strconv"
	"strings"
	"unicode"
)

// Slug converts heading text into a fragment id the way GitHub-flavoured
// renderers do: lower-case, letters and digits kept, spaces to hyphens,
// punctuation dropped.
func Slug(title string) string {
	var b strings.Builder
	lastHyphen := false
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			b.WriteRune(r)
			lastHyphen = false
		case r == ' ' || r == '-' || r == '\t':
			if !lastHyphen && b.Len() > 0 {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// Slugger hands out unique slugs within one page: repeated titles get -1, -2 ...
type Slugger struct {
	seen map[string]int
}

func NewSlugger() *Slugger {
	return &Slugger{seen: map[string]int{}}
}

func (s *Slugger) Unique(title string) string {
	base := Slug(title)
	if base == "" {
		base = "section"
	}
	n, ok := s.seen[base]
	s.seen[base] = n + 1
	if !ok {
		return base
	}
	candidate := base + "-" + strconv.Itoa(n)
	for {
		if _, taken := s.seen[candidate]; !taken {
			s.seen[candidate] = 1
			return candidate
		}
		n++
		candidate = base + "-" + strconv.Itoa(n)
	}
}
