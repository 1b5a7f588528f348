// Package tokenizer turns file text into index tokens.
//
// Tokenizers are pure: the same text always yields the same tokens and
// empty text yields none. Implementations that alter token spelling
// (lower-casing, stemming) also implement QueryNormalizer so a query can
// be spelled the way the index stores it.
package tokenizer

import (
	"fmt"
	"strings"

	ekerrors "github.com/elastickilla/elastickilla/internal/errors"
)

// Tokenizer splits text into tokens.
type Tokenizer interface {
	Tokenize(text string) []string
}

// QueryNormalizer is implemented by tokenizers that rewrite tokens, so
// that a query can be mapped onto the stored spelling.
type QueryNormalizer interface {
	NormalizeQuery(query string) string
}

// Tokenizer kinds accepted by New.
const (
	KindWhitespace = "whitespace"
	KindCode       = "code"
	KindUnicode    = "unicode"
)

// Config selects and tunes a tokenizer.
type Config struct {
	// Kind is one of KindWhitespace, KindCode or KindUnicode.
	Kind string

	// MinLength drops shorter tokens. Zero keeps everything the kind
	// produces.
	MinLength int

	// StopWords are dropped, compared case-insensitively.
	StopWords []string

	// Stem wraps the tokenizer with a Porter2 stemmer.
	Stem bool

	// StemExclusions are never stemmed.
	StemExclusions []string
}

// New builds the tokenizer described by cfg.
func New(cfg Config) (Tokenizer, error) {
	var tok Tokenizer
	switch strings.ToLower(strings.TrimSpace(cfg.Kind)) {
	case "", KindWhitespace:
		tok = NewWhitespace(cfg.MinLength, cfg.StopWords)
	case KindCode:
		tok = NewCode(cfg.MinLength, cfg.StopWords)
	case KindUnicode:
		tok = NewUnicode(cfg.MinLength, cfg.StopWords)
	default:
		return nil, ekerrors.ValidationError(fmt.Sprintf("unknown tokenizer kind %q", cfg.Kind), nil).
			WithSuggestion("Use one of: whitespace, code, unicode")
	}

	if cfg.Stem {
		tok = NewStemmed(tok, 0, cfg.StemExclusions)
	}
	return tok, nil
}

// Normalize maps query through tok's QueryNormalizer, if it has one.
func Normalize(tok Tokenizer, query string) string {
	if n, ok := tok.(QueryNormalizer); ok {
		return n.NormalizeQuery(query)
	}
	return query
}

// filter drops tokens that are too short or are stop words.
type filter struct {
	minLength int
	stopWords map[string]struct{}
}

func newFilter(minLength int, stopWords []string) filter {
	f := filter{minLength: minLength}
	if len(stopWords) > 0 {
		f.stopWords = BuildStopWordMap(stopWords)
	}
	return f
}

func (f filter) keep(token string) bool {
	if token == "" || len(token) < f.minLength {
		return false
	}
	if f.stopWords != nil {
		if _, stop := f.stopWords[strings.ToLower(token)]; stop {
			return false
		}
	}
	return true
}

// BuildStopWordMap converts a slice of stop words to a map for efficient lookup.
func BuildStopWordMap(stopWords []string) map[string]struct{} {
	m := make(map[string]struct{}, len(stopWords))
	for _, word := range stopWords {
		m[strings.ToLower(word)] = struct{}{}
	}
	return m
}
