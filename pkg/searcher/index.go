package searcher

import (
	"strings"

	"github.com/elastickilla/elastickilla/internal/store"
)

// IndexSearcher reads a [store.StringIndex] holding token → resources.
// Thread-safe for concurrent use; it takes no locks of its own.
type IndexSearcher struct {
	index *store.StringIndex
}

// Option configures IndexSearcher.
type Option func(*IndexSearcher)

// WithIndex sets the inverted index to read from.
func WithIndex(idx *store.StringIndex) Option {
	return func(s *IndexSearcher) {
		s.index = idx
	}
}

// NewIndexSearcher creates a new searcher.
//
// Requires WithIndex. Returns ErrNilIndex if it is missing.
func NewIndexSearcher(opts ...Option) (*IndexSearcher, error) {
	s := &IndexSearcher{}
	for _, opt := range opts {
		opt(s)
	}
	if s.index == nil {
		return nil, ErrNilIndex
	}
	return s, nil
}

// Search implements Searcher.
func (s *IndexSearcher) Search(query string) []string {
	if strings.TrimSpace(query) == "" {
		return []string{}
	}
	return s.index.Get(query).Sorted()
}

var _ Searcher = (*IndexSearcher)(nil)
