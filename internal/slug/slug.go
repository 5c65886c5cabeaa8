// Package slug derives filesystem-safe names from display titles.
package slug

import (
	"regexp"
	"strings"
)

// Fallback is returned when a title has no usable characters.
const Fallback = "notebook"

// MaxLen bounds the length of a slug.
const MaxLen = 80

var (
	disallowed = regexp.MustCompile(`[^a-z0-9_\s\p{Z}-]+`)
	separators = regexp.MustCompile(`[\s\p{Z}_-]+`)
)

// Make returns a lowercase path segment for s matching ^[a-z0-9_]{1,80}$.
// Runs of whitespace (including Unicode spaces such as NBSP), underscores
// and hyphens become a single underscore; every other character outside
// [a-z0-9] is dropped.
func Make(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = disallowed.ReplaceAllString(s, "")
	s = separators.ReplaceAllString(s, "_")
	if len(s) > MaxLen {
		s = s[:MaxLen]
	}
	if s == "" {
		return Fallback
	}
	return s
}
