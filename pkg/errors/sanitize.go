package errors

import (
	"regexp"
	"strings"
)

// Patterns for values that must never leave the service boundary.
var (
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	ipPattern    = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}(?::\d{1,5})?\b`)
	// Absolute unix and windows paths with at least two segments.
	pathPattern = regexp.MustCompile(`(?:[A-Za-z]:)?(?:[\\/][\w.\-]+){2,}`)
)

const genericFailureMessage = "an internal error occurred"

// Sanitize strips file paths, IP addresses, and email addresses from a
// message before it is surfaced to a caller. Email replacement runs first
// so the host part of an address is not half-consumed as a path. When
// scrubbing leaves nothing meaningful, a generic message is returned.
func Sanitize(message string) string {
	s := emailPattern.ReplaceAllString(message, "[EMAIL]")
	s = ipPattern.ReplaceAllString(s, "[IP]")
	s = pathPattern.ReplaceAllString(s, "[PATH]")

	if isEmptyAfterScrub(s) {
		return genericFailureMessage
	}
	return s
}

// isEmptyAfterScrub reports whether the message contains nothing beyond
// placeholders and punctuation.
func isEmptyAfterScrub(s string) bool {
	stripped := s
	for _, placeholder := range []string{"[EMAIL]", "[IP]", "[PATH]"} {
		stripped = strings.ReplaceAll(stripped, placeholder, "")
	}
	stripped = strings.TrimFunc(stripped, func(r rune) bool {
		return r == ' ' || r == ':' || r == ',' || r == ';' || r == '.' || r == '-'
	})
	return stripped == ""
}
