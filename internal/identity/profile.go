package identity

import (
	"regexp"
	"strings"
)

// phonePlaceholder matches names seeded by phone-based signup: an optional
// "+", a digit, then six or more digits, spaces, hyphens, parentheses or
// periods. It is not an E.164 validator.
var phonePlaceholder = regexp.MustCompile(`^\+?\d[\d\s\-().]{6,}$`)

// LooksLikePhone reports whether the trimmed name has the phone placeholder shape.
func LooksLikePhone(name string) bool {
	return phonePlaceholder.MatchString(strings.TrimSpace(name))
}

// NeedsProfileStep reports whether the user must pick a display name before
// creating a workspace.
func NeedsProfileStep(name string) bool {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return true
	}
	return LooksLikePhone(trimmed)
}
