package tokenizer

import (
	"regexp"
	"strings"
	"unicode"
)

// tokenRegex matches alphanumeric sequences (including underscores for initial split).
var tokenRegex = regexp.MustCompile(`[a-zA-Z0-9_]+`)

// Code splits text with identifier-aware rules: camelCase, PascalCase and
// snake_case words are broken into parts and every token is lowercased.
type Code struct {
	filter filter
}

// NewCode creates a code tokenizer. A minLength of zero means 2.
func NewCode(minLength int, stopWords []string) *Code {
	if minLength <= 0 {
		minLength = 2
	}
	return &Code{filter: newFilter(minLength, stopWords)}
}

// Tokenize implements Tokenizer.
func (c *Code) Tokenize(text string) []string {
	var tokens []string
	for _, word := range tokenRegex.FindAllString(text, -1) {
		for _, part := range SplitCodeToken(word) {
			lower := strings.ToLower(part)
			if c.filter.keep(lower) {
				tokens = append(tokens, lower)
			}
		}
	}
	return tokens
}

// NormalizeQuery lowercases the query.
func (c *Code) NormalizeQuery(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

// SplitCodeToken splits camelCase and snake_case identifiers.
func SplitCodeToken(token string) []string {
	if !strings.Contains(token, "_") {
		return SplitCamelCase(token)
	}

	var result []string
	for _, part := range strings.Split(token, "_") {
		if part != "" {
			result = append(result, SplitCamelCase(part)...)
		}
	}
	return result
}

// SplitCamelCase splits camelCase and PascalCase identifiers.
// Examples:
//   - "getUserById" -> ["get", "User", "By", "Id"]
//   - "HTTPHandler" -> ["HTTP", "Handler"]
//   - "parseHTTPRequest" -> ["parse", "HTTP", "Request"]
func SplitCamelCase(s string) []string {
	if s == "" {
		return []string{}
	}

	var result []string
	var current strings.Builder

	runes := []rune(s)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prevIsLower := unicode.IsLower(runes[i-1])
			nextIsLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])

			// An upper-case rune starts a word after a lower-case one, or
			// ends an acronym when a lower-case rune follows.
			if (prevIsLower || nextIsLower) && current.Len() > 0 {
				result = append(result, current.String())
				current.Reset()
			}
		}
		current.WriteRune(r)
	}

	if current.Len() > 0 {
		result = append(result, current.String())
	}
	return result
}
