// ABOUTME: IUCN Red List status codes
// ABOUTME: Field normalization and the text-scan fallback heuristic

package document

import (
	"regexp"
	"strings"
)

// Status is an IUCN Red List category code. The empty Status means unknown.
type Status string

// Known status codes, in the priority order used by ExtractStatus.
const (
	StatusCR Status = "CR" // Critically Endangered
	StatusEN Status = "EN" // Endangered
	StatusVU Status = "VU" // Vulnerable
	StatusNT Status = "NT" // Near Threatened
	StatusLC Status = "LC" // Least Concern
	StatusEX Status = "EX" // Extinct
	StatusEW Status = "EW" // Extinct in the Wild
	StatusDD Status = "DD" // Data Deficient
	StatusNE Status = "NE" // Not Evaluated
)

// Statuses lists every known code in extraction priority order.
var Statuses = []Status{
	StatusCR, StatusEN, StatusVU, StatusNT, StatusLC,
	StatusEX, StatusEW, StatusDD, StatusNE,
}

// statusWindow is how many characters after "IUCN" are searched first.
const statusWindow = 120

var statusPatterns = func() map[Status]*regexp.Regexp {
	m := make(map[Status]*regexp.Regexp, len(Statuses))
	for _, s := range Statuses {
		m[s] = regexp.MustCompile(`(?:^|[^A-Z])` + string(s) + `(?:[^A-Z]|$)`)
	}
	return m
}()

// Valid reports whether s is one of the nine known codes.
func (s Status) Valid() bool {
	_, ok := statusPatterns[s]
	return ok
}

// String returns the code, or "" when unknown.
func (s Status) String() string {
	return string(s)
}

// ParseStatus trims and uppercases v and validates it against the known
// codes. Anything else is reported as absent rather than kept raw.
func ParseStatus(v string) (Status, bool) {
	s := Status(strings.ToUpper(strings.TrimSpace(v)))
	if !s.Valid() {
		return "", false
	}
	return s, true
}

// ExtractStatus guesses a status code from free text.
//
// It looks for the first "IUCN" and searches the following 120 characters
// for a standalone code; failing that it scans the whole text. Codes are
// tried in the order of Statuses, so a text mentioning several categories
// (a history section, a neighbouring species) can be misclassified. This is
// a best-effort fallback for documents without a status field, not a
// classifier.
func ExtractStatus(text string) Status {
	if text == "" {
		return ""
	}
	upper := strings.ToUpper(text)

	if idx := strings.Index(upper, "IUCN"); idx >= 0 {
		if s := firstStatusIn(runePrefix(upper[idx:], statusWindow)); s != "" {
			return s
		}
	}
	return firstStatusIn(upper)
}

func firstStatusIn(upper string) Status {
	for _, s := range Statuses {
		if statusPatterns[s].MatchString(upper) {
			return s
		}
	}
	return ""
}

// runePrefix returns the first n characters of s.
func runePrefix(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
