package core

import "strings"

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// ContainsFold reports whether substr is within s, ignoring case.
func ContainsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// MatchesAny reports whether term is found in any of fields (case-insensitive).
// An empty term matches everything.
func MatchesAny(term string, fields ...string) bool {
	term = CleanString(term)
	if term == "" {
		return true
	}
	for _, f := range fields {
		if ContainsFold(f, term) {
			return true
		}
	}
	return false
}
