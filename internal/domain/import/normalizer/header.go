// Package normalizer canonicalizes raw column headers before they are compared
// against the synonym table.
package normalizer

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Header returns the comparison form of a raw header: trimmed, accents removed,
// lower-cased, reduced to latin letters, digits, greek letters and single spaces.
//
//	Header("Ημερομηνία ") == Header("ημερομηνια")
//	Header("  ") == ""
func Header(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	stripped, _, err := transform.String(stripMarks, s)
	if err != nil {
		stripped = s
	}
	stripped = strings.ToLower(stripped)

	var b strings.Builder
	b.Grow(len(stripped))
	lastSpace := false
	for _, r := range stripped {
		if r == 'ς' {
			r = 'σ'
		}
		switch {
		case r == ' ':
			if lastSpace {
				continue
			}
			lastSpace = true
		case isKept(r):
			lastSpace = false
		default:
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isKept(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || (r >= 'α' && r <= 'ω')
}
