package ir

import (
	"path"
	"strings"
	"unicode"
)

const (
	// APIPrefix is the directory under which generated reference pages live.
	APIPrefix = "api"
	// GlobalsPage holds top-level entities that belong to no class.
	GlobalsPage = APIPrefix + "/globals"
)

// Slugify turns an identifier into a lower-case path segment. Camel case
// boundaries become hyphens: "SessionManager" -> "session-manager".
func Slugify(name string) string {
	var b strings.Builder
	runes := []rune(name)
	for i, r := range runes {
		switch {
		case unicode.IsUpper(r):
			if i > 0 && b.Len() > 0 && !strings.HasSuffix(b.String(), "-") {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					b.WriteByte('-')
				}
			}
			b.WriteRune(unicode.ToLower(r))
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			if b.Len() > 0 && !strings.HasSuffix(b.String(), "-") {
				b.WriteByte('-')
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

// PagePathFor returns the generated page holding entity e.
func PagePathFor(e Entity) string {
	switch {
	case e.Kind == KindClass:
		return ClassPagePath(e.QualifiedName)
	case e.Parent != "":
		return ClassPagePath(e.Parent)
	default:
		return GlobalsPage
	}
}

// ClassPagePath is the page path of the class with the given qualified name.
func ClassPagePath(qualifiedName string) string {
	return APIPrefix + "/" + Slugify(qualifiedName)
}

// eventAnchorPrefix namespaces event anchors. Slugify never emits two
// hyphens in a row, so no other member's anchor can start with it.
const eventAnchorPrefix = "event--"

// AnchorFor is the fragment id of e on its page. Classes are the page
// itself. Events get eventAnchorPrefix: event "ready" is "event--ready",
// apart from a property eventReady ("event-ready").
func AnchorFor(e Entity) string {
	if e.Kind == KindClass {
		return ""
	}
	member := strings.TrimPrefix(e.QualifiedName, e.Parent+".")
	if e.Parent == "" {
		member = e.QualifiedName
	}
	if e.Kind == KindEvent {
		return eventAnchorPrefix + Slugify(strings.TrimPrefix(member, "event:"))
	}
	return Slugify(member)
}

// EntityTarget is the resolved link target of e.
func EntityTarget(e Entity) Target {
	return Target{
		Kind:          TargetEntity,
		QualifiedName: e.QualifiedName,
		PagePath:      PagePathFor(e),
		Anchor:        AnchorFor(e),
	}
}

// CanonicalPagePath normalizes the spellings a page path takes in links and
// manifests: leading slash, trailing slash, .md/.mdx extension, /index
// suffix and letter case all collapse.
func CanonicalPagePath(p string) string {
	p = strings.ToLower(strings.TrimSpace(p))
	p = strings.ReplaceAll(p, "\\", "/")
	for _, ext := range []string{".mdx", ".md"} {
		p = strings.TrimSuffix(p, ext)
	}
	p = strings.Trim(p, "/")
	if p == "" {
		return ""
	}
	p = path.Clean(p)
	if p == "index" {
		return ""
	}
	return strings.TrimSuffix(p, "/index")
}
