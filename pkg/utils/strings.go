package utils

import "strings"

// TruncateRunes cuts s to at most max runes, appending "..." when anything
// was removed. Rune-based so multi-byte text (Japanese, emoji) is never
// split mid-character.
func TruncateRunes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

// MaskSensitiveString hides the middle of a credential, keeping a short
// prefix and suffix for recognition. Short values are fully masked.
func MaskSensitiveString(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", 6) + s[len(s)-4:]
}
