package corpus

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var tagPattern = regexp.MustCompile(`</?([A-Za-z][A-Za-z0-9]*)(\s[^<>]*)?/?>`)

// StripMarkup reduces text that may carry HTML tags or entities to plain
// text with collapsed whitespace. Only tags naming a known HTML element are
// dropped; other angle brackets are ordinary text.
func StripMarkup(s string) string {
	if strings.ContainsRune(s, '<') {
		s = tagPattern.ReplaceAllStringFunc(s, func(tag string) string {
			name := tagPattern.FindStringSubmatch(tag)[1]
			if atom.Lookup([]byte(strings.ToLower(name))) == 0 {
				return tag
			}
			return " "
		})
	}
	if strings.ContainsRune(s, '&') {
		s = html.UnescapeString(s)
	}
	return strings.Join(strings.Fields(s), " ")
}
