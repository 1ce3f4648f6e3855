// Package tokenizer converts raw document bytes into normalised terms.
// It splits on ASCII whitespace, strips non-alphanumeric edges from each
// fragment, and lower-cases the remainder. No stop-word removal or stemming
// is applied; every surviving fragment is a term.
package tokenizer

import (
	"strings"
	"unicode"
)

// Tokenize decodes content as UTF-8 (invalid sequences become U+FFFD, so it
// never fails) and returns the ordered term sequence. Splitting happens on
// ASCII whitespace only: Unicode whitespace such as NBSP does not separate
// terms. That asymmetry is intentional and observable, not an oversight.
func Tokenize(content []byte) []string {
	text := strings.ToValidUTF8(string(content), "�")
	words := strings.FieldsFunc(text, isASCIISpace)
	tokens := make([]string, 0, len(words))
	for _, word := range words {
		term := Normalize(word)
		if term == "" {
			continue
		}
		tokens = append(tokens, term)
	}
	return tokens
}

// Normalize strips leading and trailing non-alphanumeric runes from a single
// fragment and lower-cases it. Returns "" if nothing alphanumeric remains.
// The same normalisation is applied to query terms at the service boundary
// so that queries and indexed terms compare equal.
func Normalize(word string) string {
	trimmed := strings.TrimFunc(word, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if trimmed == "" {
		return ""
	}
	return strings.ToLower(trimmed)
}

func isASCIISpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}
