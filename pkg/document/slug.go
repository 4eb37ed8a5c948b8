// ABOUTME: Slug derivation and accent-insensitive text folding
// ABOUTME: Shared by the aggregator and the query engine

package document

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// isCombiningMark matches the Combining Diacritical Marks block.
func isCombiningMark(r rune) bool {
	return r >= 0x0300 && r <= 0x036F
}

// stripMarks decomposes s and removes combining diacritical marks.
func stripMarks(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.Predicate(isCombiningMark)))
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Fold lowercases s and strips diacritics, so "Sơn Dương" and "son duong"
// compare equal. Used for substring search and facet matching.
func Fold(s string) string {
	return stripMarks(strings.ToLower(s))
}

// ToSlug derives a URL-safe identifier from a document key.
//
// Distinct keys may fold to the same slug; collisions are not detected and
// lookups return the first document in collection order.
func ToSlug(s string) string {
	folded := Fold(strings.TrimSpace(s))

	var b strings.Builder
	b.Grow(len(folded))
	pendingHyphen := false
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
		case r == '-' || unicode.IsSpace(r):
			pendingHyphen = true
		}
	}
	return b.String()
}
