package tokenizer

import (
	"strings"

	"github.com/surgebase/porter2"
)

// DefaultStemMinLength is the shortest token NewStemmed will stem.
const DefaultStemMinLength = 3

// Stemmed reduces the tokens of another tokenizer to their Porter2 stem,
// so "indexing" and "indexed" land on the same token.
type Stemmed struct {
	inner      Tokenizer
	minLength  int
	exclusions map[string]struct{}
}

// NewStemmed wraps inner. Tokens shorter than minLength (zero means
// DefaultStemMinLength) and excluded words are only lowercased.
func NewStemmed(inner Tokenizer, minLength int, exclusions []string) *Stemmed {
	if minLength <= 0 {
		minLength = DefaultStemMinLength
	}
	return &Stemmed{
		inner:      inner,
		minLength:  minLength,
		exclusions: BuildStopWordMap(exclusions),
	}
}

// Tokenize implements Tokenizer.
func (s *Stemmed) Tokenize(text string) []string {
	tokens := s.inner.Tokenize(text)
	for i, tok := range tokens {
		tokens[i] = s.stem(tok)
	}
	return tokens
}

// NormalizeQuery applies the inner normalization, then stems.
func (s *Stemmed) NormalizeQuery(query string) string {
	return s.stem(Normalize(s.inner, query))
}

func (s *Stemmed) stem(word string) string {
	lower := strings.ToLower(word)
	if len(lower) < s.minLength {
		return lower
	}
	if _, excluded := s.exclusions[lower]; excluded {
		return lower
	}
	return porter2.Stem(lower)
}
