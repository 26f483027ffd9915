package textutil

import (
	"strings"
)

// Normalize lowercases s and collapses every run of whitespace (including
// non-breaking spaces) into a single space.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// ContainsFold reports whether needle occurs in s once both are normalized.
func ContainsFold(s, needle string) bool {
	return strings.Contains(Normalize(s), Normalize(needle))
}
