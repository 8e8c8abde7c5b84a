package transform

import (
	"strings"

	"github.com/inful/mdfp"

	"git.home.luguber.info/inful/docsync/internal/frontmatter"
)

// Fingerprint computes the content fingerprint of a page from its
// front-matter (without the fingerprint field) and body.
func Fingerprint(fields map[string]any, body []byte) (string, error) {
	forHash := make(map[string]any, len(fields))
	for k, v := range fields {
		if k == mdfp.FingerprintField {
			continue
		}
		forHash[k] = v
	}

	serialized := ""
	if len(forHash) > 0 {
		raw, err := frontmatter.Marshal(forHash)
		if err != nil {
			return "", err
		}
		serialized = strings.TrimSuffix(string(raw), "\n")
	}
	return mdfp.CalculateFingerprintFromParts(serialized, string(body)), nil
}
