// Package similarity scores how alike two venue names are.
package similarity

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var lower = cases.Lower(language.Und)

// Normalize prepares a name for comparison: NFC, lowercase, trim, "&" as
// "and", then every rune that is not a letter, digit or whitespace dropped.
// Whitespace is kept as-is, so "a  b" and "a b" still differ by one edit.
func Normalize(s string) string {
	s = strings.TrimSpace(lower.String(norm.NFC.String(s)))
	s = strings.ReplaceAll(s, "&", "and")

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Similarity returns a score in [0,100] for two raw names.
func Similarity(a, b string) int {
	return Normalized(Normalize(a), Normalize(b))
}

// Normalized scores two names that already went through Normalize.
func Normalized(a, b string) int {
	if a == b {
		return 100
	}
	maxLen := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > maxLen {
		maxLen = n
	}
	if maxLen == 0 {
		return 100
	}
	d := levenshtein.ComputeDistance(a, b)
	return int(math.Round(100 * float64(maxLen-d) / float64(maxLen)))
}
