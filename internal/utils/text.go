// internal/utils/text.go
package utils

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// CleanText trims surrounding whitespace and normalizes to NFC so that Thai
// vowel and tone marks compare byte-for-byte across pages.
func CleanText(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}

// HasControlChars reports whether s contains any Unicode control character
func HasControlChars(s string) bool {
	return strings.IndexFunc(s, unicode.IsControl) >= 0
}
