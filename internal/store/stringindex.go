// Package store provides the in-memory index storage used by the indexer:
// a concurrent mapping from a string key to a set of strings.
//
// The same type backs both directions of the index. The forward store maps
// a resource to its tokens, the inverted store maps a token to the
// resources containing it. Keeping the two consistent is the indexer's job;
// this package only guarantees that each store is internally consistent
// under concurrent use.
package store

import (
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// DefaultShards is the shard count used by NewStringIndex.
const DefaultShards = 32

type shard struct {
	mu   sync.RWMutex
	sets map[string]Set
}

// StringIndex maps keys to sets of strings.
//
// Keys are spread across shards by hash, each shard guarded by its own
// lock. Mutations of the same key serialize on that lock, so concurrent
// Add and Remove calls never lose updates.
//
// StringIndex is safe for concurrent use.
type StringIndex struct {
	shards []*shard
}

// NewStringIndex creates an empty index with DefaultShards shards.
func NewStringIndex() *StringIndex {
	return NewStringIndexWithShards(DefaultShards)
}

// NewStringIndexWithShards creates an empty index with n shards.
// Values below 1 are treated as 1.
func NewStringIndexWithShards(n int) *StringIndex {
	if n < 1 {
		n = 1
	}
	idx := &StringIndex{shards: make([]*shard, n)}
	for i := range idx.shards {
		idx.shards[i] = &shard{sets: make(map[string]Set)}
	}
	return idx
}

func (idx *StringIndex) shardFor(key string) *shard {
	return idx.shards[xxhash.Sum64String(key)%uint64(len(idx.shards))]
}

// Add inserts values into the set stored under key, creating the set if
// needed. It returns the values that were not already present. An empty
// values list is a no-op and returns nil.
func (idx *StringIndex) Add(key string, values ...string) []string {
	if len(values) == 0 {
		return nil
	}

	sh := idx.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	set, ok := sh.sets[key]
	if !ok {
		set = make(Set, len(values))
		sh.sets[key] = set
	}

	var added []string
	for _, v := range values {
		if _, exists := set[v]; exists {
			continue
		}
		set[v] = struct{}{}
		added = append(added, v)
	}
	return added
}

// Remove deletes values from the set stored under key and returns the
// values that were actually present. The key is dropped once its set is
// empty. Missing keys and empty value lists are no-ops.
func (idx *StringIndex) Remove(key string, values ...string) []string {
	if len(values) == 0 {
		return nil
	}

	sh := idx.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	set, ok := sh.sets[key]
	if !ok {
		return nil
	}

	var removed []string
	for _, v := range values {
		if _, exists := set[v]; !exists {
			continue
		}
		delete(set, v)
		removed = append(removed, v)
	}
	if len(set) == 0 {
		delete(sh.sets, key)
	}
	return removed
}

// RemoveAll drops key and returns the set it held. The boolean is false
// when the key was absent.
func (idx *StringIndex) RemoveAll(key string) (Set, bool) {
	sh := idx.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	set, ok := sh.sets[key]
	if !ok {
		return nil, false
	}
	delete(sh.sets, key)
	return set, true
}

// Get returns a copy of the set stored under key. Empty and unknown keys
// yield an empty set; the result never aliases internal storage.
func (idx *StringIndex) Get(key string) Set {
	if key == "" {
		return Set{}
	}

	sh := idx.shardFor(key)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	set, ok := sh.sets[key]
	if !ok {
		return Set{}
	}
	return set.Clone()
}

// Contains reports whether key has an entry.
func (idx *StringIndex) Contains(key string) bool {
	sh := idx.shardFor(key)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	_, ok := sh.sets[key]
	return ok
}

// Len returns the number of keys.
func (idx *StringIndex) Len() int {
	n := 0
	for _, sh := range idx.shards {
		sh.mu.RLock()
		n += len(sh.sets)
		sh.mu.RUnlock()
	}
	return n
}

// Keys returns every key in lexical order. The result is a point-in-time
// view per shard, not a global snapshot.
func (idx *StringIndex) Keys() []string {
	var keys []string
	for _, sh := range idx.shards {
		sh.mu.RLock()
		for k := range sh.sets {
			keys = append(keys, k)
		}
		sh.mu.RUnlock()
	}
	sort.Strings(keys)
	return keys
}

// Flush removes every entry.
func (idx *StringIndex) Flush() {
	for _, sh := range idx.shards {
		sh.mu.Lock()
		sh.sets = make(map[string]Set)
		sh.mu.Unlock()
	}
}
