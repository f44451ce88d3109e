// Package normalize canonicalizes free-text reference names (provinces,
// sectors, product types) before they are used as table keys.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Province returns the lookup key for a province name,
// e.g. "Nord Kivu" and "NORD-KIVU" both become "nord-kivu".
func Province(name string) string {
	return key(name, '-')
}

// Sector returns the lookup key for a sector name,
// e.g. "Real Estate" becomes "real_estate".
func Sector(name string) string {
	return key(name, '_')
}

func key(name string, sep rune) string {
	// Strip accents: "Équateur" -> "equateur"
	name = norm.NFD.String(strings.ToLower(name))

	var b strings.Builder
	pendingSep := false
	for _, r := range name {
		switch {
		case unicode.Is(unicode.Mn, r):
			continue
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			if pendingSep && b.Len() > 0 {
				b.WriteRune(sep)
			}
			pendingSep = false
			b.WriteRune(r)
		default:
			// Spaces, dashes, underscores and punctuation collapse into one separator
			pendingSep = true
		}
	}
	return b.String()
}
