package search

import (
	"regexp"
	"strings"

	"github.com/starford/quire/internal/apperr"
)

// DefaultSnippetChars is the display width used when no override is given.
const DefaultSnippetChars = 240

var whitespaceRE = regexp.MustCompile(`\s+`)

// Snippet returns a single-line excerpt of text at most maxChars long.
// Whitespace runs collapse to single spaces. Text that fits is returned
// unchanged; longer text is cut at maxChars-3 with a trailing ellipsis.
// When maxChars is 3 or less the result is just maxChars dots.
func Snippet(text string, maxChars int) (string, error) {
	if maxChars < 1 {
		return "", apperr.InvalidArgumentf("snippet width must be at least 1, got %d", maxChars)
	}

	line := strings.TrimSpace(whitespaceRE.ReplaceAllString(text, " "))
	runes := []rune(line)
	if len(runes) <= maxChars {
		return line, nil
	}
	if maxChars <= 3 {
		return strings.Repeat(".", maxChars), nil
	}
	return strings.TrimRight(string(runes[:maxChars-3]), " ") + "...", nil
}
