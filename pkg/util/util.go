package util

import (
	"strings"
	"unicode"
)

// SanitizeFilename makes an arbitrary display name safe for use as a file
// name. Alphanumerics plus space, dot, underscore and hyphen are kept;
// everything else is replaced with an underscore. Leading/trailing whitespace
// is trimmed from the result.
func SanitizeFilename(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == ' ' || r == '.' || r == '_' || r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return strings.TrimSpace(b.String())
}

// Truncate shortens s to at most max runes, appending an ellipsis marker when
// content was cut. Used when capping error lists for display.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
