package searcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elastickilla/elastickilla/internal/store"
)

func TestNewIndexSearcher_RequiresIndex(t *testing.T) {
	s, err := NewIndexSearcher()

	assert.Nil(t, s)
	assert.ErrorIs(t, err, ErrNilIndex)
}

func TestIndexSearcher_Search(t *testing.T) {
	// Given: an inverted index with one token in two resources
	inverted := store.NewStringIndex()
	inverted.Add("hello", "/b.txt", "/a.txt")
	s, err := NewIndexSearcher(WithIndex(inverted))
	require.NoError(t, err)

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{name: "hit", query: "hello", want: []string{"/a.txt", "/b.txt"}},
		{name: "miss", query: "absent", want: []string{}},
		{name: "empty query", query: "", want: []string{}},
		{name: "blank query", query: "   ", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// When: searching
			got := s.Search(tt.query)

			// Then: sorted resources, never nil
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIndexSearcher_ResultIsDetached(t *testing.T) {
	inverted := store.NewStringIndex()
	inverted.Add("hello", "/a.txt")
	s, err := NewIndexSearcher(WithIndex(inverted))
	require.NoError(t, err)

	got := s.Search("hello")
	got[0] = "/tampered"

	assert.Equal(t, []string{"/a.txt"}, s.Search("hello"))
}
