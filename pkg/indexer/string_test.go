package indexer

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ekerrors "github.com/elastickilla/elastickilla/internal/errors"
	"github.com/elastickilla/elastickilla/internal/store"
)

func newTestIndexer() (*StringIndexer, *store.StringIndex, *store.StringIndex) {
	forward, inverted := store.NewStringIndex(), store.NewStringIndex()
	return NewStringIndexer(WithForward(forward), WithInverted(inverted)), forward, inverted
}

func TestStringIndexer_AddProjectsIntoInverted(t *testing.T) {
	// Given: an empty indexer
	idx, forward, inverted := newTestIndexer()

	// When: adding a resource with tokens
	idx.Add("/docs/a.txt", "hello", "world", "hello")

	// Then: both directions hold the pairs
	assert.Equal(t, store.NewSet("hello", "world"), forward.Get("/docs/a.txt"))
	assert.Equal(t, store.NewSet("/docs/a.txt"), inverted.Get("hello"))
	assert.Equal(t, store.NewSet("/docs/a.txt"), inverted.Get("world"))
	require.NoError(t, idx.Verify())
}

func TestStringIndexer_EmptyArgumentsAreNoOps(t *testing.T) {
	tests := []struct {
		name string
		op   func(i *StringIndexer)
	}{
		{name: "add empty resource", op: func(i *StringIndexer) { i.Add("", "x") }},
		{name: "add no tokens", op: func(i *StringIndexer) { i.Add("/r") }},
		{name: "remove empty resource", op: func(i *StringIndexer) { i.Remove("") }},
		{name: "remove unknown resource", op: func(i *StringIndexer) { i.Remove("/missing") }},
		{name: "remove no tokens", op: func(i *StringIndexer) { i.RemoveTokens("/r") }},
		{name: "update empty resource", op: func(i *StringIndexer) { i.Update("", []string{"x"}) }},
		{name: "switch with empty side", op: func(i *StringIndexer) { i.Switch("/r", "") }},
		{name: "switch with itself", op: func(i *StringIndexer) { i.Switch("/r", "/r") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given: an indexer holding one resource
			idx, forward, inverted := newTestIndexer()
			idx.Add("/r", "token")

			// When: running the no-op
			tt.op(idx)

			// Then: nothing changed
			assert.Equal(t, []string{"/r"}, forward.Keys())
			assert.Equal(t, []string{"token"}, inverted.Keys())
		})
	}
}

func TestStringIndexer_RemoveDropsEveryPair(t *testing.T) {
	idx, forward, inverted := newTestIndexer()
	idx.Add("/a", "shared", "only-a")
	idx.Add("/b", "shared")

	idx.Remove("/a")

	assert.False(t, forward.Contains("/a"))
	assert.False(t, inverted.Contains("only-a"))
	assert.Equal(t, store.NewSet("/b"), inverted.Get("shared"))
	require.NoError(t, idx.Verify())
}

func TestStringIndexer_RemoveTokensIsPartial(t *testing.T) {
	idx, forward, inverted := newTestIndexer()
	idx.Add("/a", "one", "two", "three")

	idx.RemoveTokens("/a", "two", "unknown")

	assert.Equal(t, store.NewSet("one", "three"), forward.Get("/a"))
	assert.False(t, inverted.Contains("two"))
	assert.True(t, inverted.Contains("one"))
	require.NoError(t, idx.Verify())
}

func TestStringIndexer_UpdateAppliesDiff(t *testing.T) {
	// Given: a resource holding q3..q7
	idx, forward, inverted := newTestIndexer()
	before := []string{"q3", "q4", "q5", "q6", "q7"}
	after := []string{"q1", "q2", "q3", "q4"}
	idx.Add("/r", before...)
	idx.Add("/other", "q5")

	// When: updating to q1..q4
	idx.Update("/r", after)

	// Then: the forward set is exactly the new set
	assert.Equal(t, store.NewSet(after...), forward.Get("/r"))

	// And: only q1,q2 gained and only q5,q6,q7 lost the resource
	for _, tok := range []string{"q1", "q2", "q3", "q4"} {
		assert.True(t, inverted.Get(tok).Has("/r"), tok)
	}
	for _, tok := range []string{"q5", "q6", "q7"} {
		assert.False(t, inverted.Get(tok).Has("/r"), tok)
	}
	assert.Equal(t, store.NewSet("/other"), inverted.Get("q5"))
	assert.False(t, inverted.Contains("q6"))
	require.NoError(t, idx.Verify())
}

func TestStringIndexer_UpdateToEmptyClearsResource(t *testing.T) {
	idx, forward, inverted := newTestIndexer()
	idx.Add("/r", "a", "b")

	idx.Update("/r", nil)

	assert.False(t, forward.Contains("/r"))
	assert.Equal(t, 0, inverted.Len())
}

func TestStringIndexer_UpdateUnknownBehavesAsAdd(t *testing.T) {
	idx, forward, _ := newTestIndexer()

	idx.Update("/new", []string{"a"})

	assert.Equal(t, store.NewSet("a"), forward.Get("/new"))
	require.NoError(t, idx.Verify())
}

func TestStringIndexer_Switch(t *testing.T) {
	tests := []struct {
		name     string
		fromToks []string
		toToks   []string
	}{
		{name: "rename onto free name", fromToks: []string{"x", "y"}},
		{name: "swap two resources", fromToks: []string{"x"}, toToks: []string{"y", "z"}},
		{name: "both empty", fromToks: nil, toToks: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given: two resources
			idx, forward, _ := newTestIndexer()
			idx.Add("/old", tt.fromToks...)
			idx.Add("/new", tt.toToks...)

			// When: switching them
			idx.Switch("/old", "/new")

			// Then: each holds the other's former tokens
			assert.Equal(t, store.NewSet(tt.fromToks...), forward.Get("/new"))
			assert.Equal(t, store.NewSet(tt.toToks...), forward.Get("/old"))
			require.NoError(t, idx.Verify())
		})
	}
}

func TestStringIndexer_RandomSequencesStayConsistent(t *testing.T) {
	// Given: a deterministic random sequence of operations
	rng := rand.New(rand.NewSource(42))
	idx, _, _ := newTestIndexer()
	resources := []string{"/a", "/b", "/c", "/d"}
	tokens := []string{"t0", "t1", "t2", "t3", "t4", "t5"}

	pick := func(n int) []string {
		out := make([]string, 0, n)
		for j := 0; j < n; j++ {
			out = append(out, tokens[rng.Intn(len(tokens))])
		}
		return out
	}

	// When: applying them
	for step := 0; step < 2000; step++ {
		r := resources[rng.Intn(len(resources))]
		switch rng.Intn(5) {
		case 0:
			idx.Add(r, pick(rng.Intn(4))...)
		case 1:
			idx.Remove(r)
		case 2:
			idx.RemoveTokens(r, pick(rng.Intn(3))...)
		case 3:
			idx.Update(r, pick(rng.Intn(5)))
		case 4:
			idx.Switch(r, resources[rng.Intn(len(resources))])
		}
	}

	// Then: the two stores agree
	require.NoError(t, idx.Verify())
}

func TestStringIndexer_ConcurrentResources(t *testing.T) {
	idx, forward, inverted := newTestIndexer()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			r := fmt.Sprintf("/r%d", w)
			for i := 0; i < 100; i++ {
				idx.Update(r, []string{"common", fmt.Sprintf("t%d", i%7)})
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, 8, forward.Len())
	assert.Equal(t, 8, inverted.Get("common").Len())
	require.NoError(t, idx.Verify())
}

func TestStringIndexer_VerifyDetectsDesync(t *testing.T) {
	// Given: a store written behind the indexer's back
	idx, forward, inverted := newTestIndexer()
	idx.Add("/a", "x")
	forward.Add("/a", "ghost")

	// Then: Verify reports a fatal inconsistency
	err := idx.Verify()
	require.Error(t, err)
	assert.ErrorIs(t, err, ekerrors.ErrIndexInconsistent)
	assert.True(t, ekerrors.IsFatal(err))

	// And: the reverse direction is caught too
	forward.Remove("/a", "ghost")
	inverted.Add("orphan", "/a")
	assert.ErrorIs(t, idx.Verify(), ekerrors.ErrIndexInconsistent)
}

func TestStringIndexer_StatsAndClose(t *testing.T) {
	idx, forward, inverted := newTestIndexer()
	idx.Add("/a", "x", "y")
	idx.Add("/b", "y")

	assert.Equal(t, Stats{Resources: 2, Tokens: 2}, idx.Stats())

	require.NoError(t, idx.Close())
	require.NoError(t, idx.Close())
	assert.Equal(t, 0, forward.Len())
	assert.Equal(t, 0, inverted.Len())
}

func TestNewStringIndexer_CreatesMissingStores(t *testing.T) {
	idx := NewStringIndexer()
	require.NotNil(t, idx.Forward())
	require.NotNil(t, idx.Inverted())
	assert.NotSame(t, idx.Forward(), idx.Inverted())
}
