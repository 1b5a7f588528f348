package tokenizer

import "strings"

// Whitespace splits on runs of Unicode whitespace (spaces, tabs, line
// breaks, no-break spaces) and keeps tokens as written.
type Whitespace struct {
	filter filter
}

// NewWhitespace creates a whitespace tokenizer.
func NewWhitespace(minLength int, stopWords []string) *Whitespace {
	return &Whitespace{filter: newFilter(minLength, stopWords)}
}

// Tokenize implements Tokenizer.
func (w *Whitespace) Tokenize(text string) []string {
	fields := strings.Fields(text)
	tokens := fields[:0]
	for _, f := range fields {
		if w.filter.keep(f) {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// NormalizeQuery trims surrounding whitespace.
func (w *Whitespace) NormalizeQuery(query string) string {
	return strings.TrimSpace(query)
}
