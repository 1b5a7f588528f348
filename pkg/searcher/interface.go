package searcher

import "errors"

// ErrNilIndex is returned when attempting to create an IndexSearcher without an index.
var ErrNilIndex = errors.New("inverted index is required")

// Searcher answers point queries against the inverted index.
//
// Implementations must be thread-safe for concurrent use.
type Searcher interface {
	// Search returns the resources containing query as a token, in
	// lexical order.
	//
	// Returns an empty slice (not nil) for an empty query or no match.
	Search(query string) []string
}
