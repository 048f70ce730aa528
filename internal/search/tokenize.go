package search

import "strings"

// Tokenize lowercases text and splits it on runs of non-alphanumeric
// characters, dropping empty tokens. Only ASCII letters and digits count;
// accented and non-Latin characters act as separators. Queries and page
// text go through the same function so both sides agree on terms.
func Tokenize(text string) []string {
	text = strings.ToLower(text)

	var tokens []string
	var current strings.Builder
	for _, r := range text {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			current.WriteRune(r)
			continue
		}
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}
	return tokens
}

// termFrequency counts occurrences of each term in tokens.
func termFrequency(tokens []string) map[string]int {
	freqs := make(map[string]int, len(tokens))
	for _, token := range tokens {
		freqs[token]++
	}
	return freqs
}
