package utils

import (
	"strings"
	"unicode"
)

// SanitizeString drops control characters and trims surrounding whitespace.
func SanitizeString(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

// MaskSensitive keeps the first visibleChars characters of s and stars the
// rest. Values no longer than visibleChars are fully masked.
func MaskSensitive(s string, visibleChars int) string {
	runes := []rune(s)
	if len(runes) <= visibleChars {
		return strings.Repeat("*", len(runes))
	}
	return string(runes[:visibleChars]) + strings.Repeat("*", len(runes)-visibleChars)
}
