package validate

import (
	"net/url"
	"path"
	"strings"

	"git.home.luguber.info/inful/docsync/internal/ir"
)

// LinkClass is what a link destination points at.
type LinkClass string

const (
	ClassInternal LinkClass = "internal"
	ClassFragment LinkClass = "fragment"
	ClassAsset    LinkClass = "asset"
	ClassExternal LinkClass = "external"
	ClassIgnored  LinkClass = "ignored"
)

// Target is a classified link destination.
type Target struct {
	Class    LinkClass
	Path     string // page path for internal links, slash path for assets
	Fragment string
	URL      string // external links
}

// rootPage is the path of the site's index page.
const rootPage = "index"

var pageExtensions = map[string]struct{}{"": {}, ".md": {}, ".mdx": {}}

// Classify resolves dest as written on the page at pagePath.
func Classify(pagePath string, link ir.PageLink) Target {
	dest := strings.TrimSpace(link.Destination)
	switch {
	case dest == "":
		return Target{Class: ClassIgnored}
	case strings.HasPrefix(dest, "#"):
		return Target{Class: ClassFragment, Path: pagePath, Fragment: dest[1:]}
	case strings.HasPrefix(dest, "//"):
		return Target{Class: ClassExternal, URL: "https:" + dest}
	}

	if scheme, _, ok := strings.Cut(dest, ":"); ok && isScheme(scheme) {
		switch strings.ToLower(scheme) {
		case "mailto", "tel", "data":
			return Target{Class: ClassIgnored}
		}
		return Target{Class: ClassExternal, URL: dest}
	}

	p, frag, _ := strings.Cut(dest, "#")
	p, _, _ = strings.Cut(p, "?")
	if unescaped, err := url.PathUnescape(p); err == nil {
		p = unescaped
	}
	if !strings.HasPrefix(p, "/") {
		p = path.Join(path.Dir("/"+pagePath), p)
	}
	p = path.Clean(p)

	if _, page := pageExtensions[strings.ToLower(path.Ext(p))]; link.Asset || !page {
		return Target{Class: ClassAsset, Path: strings.TrimPrefix(p, "/")}
	}
	target := ir.CanonicalPagePath(p)
	if target == "" {
		target = rootPage
	}
	return Target{Class: ClassInternal, Path: target, Fragment: frag}
}

// isScheme reports whether s is a URI scheme (RFC 3986: ALPHA *( ALPHA / DIGIT / "+" / "-" / "." )).
func isScheme(s string) bool {
	if s == "" || len(s) == 1 {
		// one letter is a Windows drive, not a scheme
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && (r >= '0' && r <= '9' || r == '+' || r == '-' || r == '.'):
		default:
			return false
		}
	}
	return true
}

// validExternal reports whether raw is a well-formed absolute URL.
func validExternal(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	if strings.ContainsAny(u.Host, " \t") {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https", "ftp":
		return true
	}
	return false
}
