// ABOUTME: Parsing of loosely typed request parameters
// ABOUTME: Shared by the HTTP, gRPC and CLI front-ends

package query

import (
	"strconv"
	"strings"
)

// ParseList splits a comma-separated value, trimming items and dropping
// empty ones.
func ParseList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ParseTriState reads a yes/no flag. Unrecognized input, including the
// empty string, means "not provided".
func ParseTriState(v string) *bool {
	var b bool
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y":
		b = true
	case "0", "false", "no", "n":
		b = false
	default:
		return nil
	}
	return &b
}

// ParsePage reads a 1-based page number; anything unusable is page 1.
func ParsePage(v string) int {
	n, ok := leadingInt(v)
	if !ok || n < 1 {
		return 1
	}
	return n
}

// ParsePageSize reads a page size. Missing, unparsable or zero input gives
// DefaultPageSize; anything else is clamped to [1, MaxPageSize].
func ParsePageSize(v string) int {
	n, ok := leadingInt(v)
	if !ok || n == 0 {
		return DefaultPageSize
	}
	return ClampPageSize(n)
}

// ClampPageSize bounds n to [1, MaxPageSize].
func ClampPageSize(n int) int {
	switch {
	case n < 1:
		return 1
	case n > MaxPageSize:
		return MaxPageSize
	}
	return n
}

// leadingInt parses an optionally signed run of digits at the start of v,
// ignoring whatever follows ("3rd" reads as 3).
func leadingInt(v string) (int, bool) {
	s := strings.TrimSpace(v)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}
