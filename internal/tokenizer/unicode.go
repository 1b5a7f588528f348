package tokenizer

import (
	"strings"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	bleveunicode "github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
)

// Unicode segments text on Unicode word boundaries (UAX #29) using
// bleve's analysis chain and lowercases every token. It suits prose in
// any script, where whitespace splitting leaves punctuation attached.
type Unicode struct {
	tokenizer analysis.Tokenizer
	lower     analysis.TokenFilter
	filter    filter
}

// NewUnicode creates a Unicode tokenizer.
func NewUnicode(minLength int, stopWords []string) *Unicode {
	return &Unicode{
		tokenizer: bleveunicode.NewUnicodeTokenizer(),
		lower:     lowercase.NewLowerCaseFilter(),
		filter:    newFilter(minLength, stopWords),
	}
}

// Tokenize implements Tokenizer.
func (u *Unicode) Tokenize(text string) []string {
	if text == "" {
		return nil
	}
	stream := u.lower.Filter(u.tokenizer.Tokenize([]byte(text)))

	tokens := make([]string, 0, len(stream))
	for _, tok := range stream {
		term := string(tok.Term)
		if u.filter.keep(term) {
			tokens = append(tokens, term)
		}
	}
	return tokens
}

// NormalizeQuery lowercases the query.
func (u *Unicode) NormalizeQuery(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}
