// Package match resolves free-text track identifications returned by a
// model back to exact library entries. This is the component enforcing
// the library-first guarantee: suggestions either resolve to a real
// track or surface as unmatched, never as fabricated entries.
package match

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lowercases s, strips diacritics, drops punctuation, and
// collapses whitespace. Apostrophes are deleted rather than spaced so
// "I'm" normalizes to "im".
func Normalize(s string) string {
	s = strings.ToLower(s)
	if stripped, _, err := transform.String(stripDiacritics, s); err == nil {
		s = stripped
	}

	var b strings.Builder
	b.Grow(len(s))
	lastSpace := true
	for _, r := range s {
		switch {
		case r == '\'' || r == '’':
			// delete
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}
