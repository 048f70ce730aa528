// Package textnorm canonicalizes extracted page text before storage.
package textnorm

import (
	"regexp"
	"strings"
)

var (
	spaceTabRE      = regexp.MustCompile(`[ \t]+`)
	threeNewlinesRE = regexp.MustCompile(`\n{3,}`)
)

// Normalize converts line endings to \n, collapses runs of spaces and tabs
// to a single space, collapses three or more consecutive newlines to two,
// and trims surrounding whitespace. Deterministic and total.
func Normalize(raw string) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = spaceTabRE.ReplaceAllString(s, " ")
	s = threeNewlinesRE.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
