package sqlutil

import (
	"strings"
	"unicode/utf8"
)

// EscapeLike escapes backslash and the LIKE wildcard characters so that a
// user-supplied search term stops acting as a wildcard. The pattern still
// travels as a bound parameter, so quotes need no treatment here; doubling
// them would make apostrophes unmatchable.
func EscapeLike(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		`_`, `\_`,
		`%`, `\%`,
	)
	return r.Replace(s)
}

// Truncate limits free-text fields to their column byte bounds, the way the
// storage layer would with LEFT(text, n), without splitting a rune.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
