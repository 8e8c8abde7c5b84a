package markdown

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

// collectHTML tokenizes inline HTML/JSX fragments. Tags are not required to
// balance; attributes are read from start and self-closing tags only.
func collectHTML(raw []byte, line int, out *Analysis, anchors map[string]struct{}) {
	z := html.NewTokenizer(bytes.NewReader(raw))
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			// io.EOF or a malformed tail; either way nothing more to read.
			return
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			for _, attr := range tok.Attr {
				val := strings.TrimSpace(attr.Val)
				if val == "" || strings.HasPrefix(val, "{") {
					// JSX expressions are not statically resolvable.
					continue
				}
				switch attr.Key {
				case "id":
					anchors[val] = struct{}{}
				case "name":
					if tok.Data == "a" {
						anchors[val] = struct{}{}
					}
				case "href":
					out.Links = append(out.Links, Link{Kind: LinkKindHTMLHref, Destination: val, Line: line})
				case "src":
					out.Links = append(out.Links, Link{Kind: LinkKindHTMLSrc, Destination: val, Line: line})
				}
			}
		case html.TextToken:
			line += bytes.Count(z.Raw(), []byte("\n"))
		}
	}
}
