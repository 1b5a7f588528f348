package indexer

// Indexer defines the contract for maintaining the forward and inverted
// indexes.
//
// A resource is an opaque, already normalized identifier (the analyzer
// uses a case-folded absolute path). Tokens are opaque strings; duplicates
// collapse into a set.
//
// Implementations must be safe for concurrent use. Ordering between calls
// for the same resource is the caller's responsibility; the analyzer gets
// it from the task queue.
type Indexer interface {
	// Add records tokens for resource, keeping any it already has.
	//
	// Behavior:
	//   - Empty resource is a no-op
	//   - No tokens is a no-op
	//   - Every token becomes searchable before Add returns
	Add(resource string, tokens ...string)

	// Remove forgets resource and every token recorded for it.
	//
	// No-op for unknown or empty resources.
	Remove(resource string)

	// RemoveTokens forgets only the given tokens of resource.
	RemoveTokens(resource string, tokens ...string)

	// Update replaces the token set of resource with tokens.
	//
	// Only the difference is applied: tokens shared by the old and the new
	// set stay searchable throughout the call.
	Update(resource string, tokens []string)

	// Switch exchanges the token sets of two resources. Used for renames.
	//
	// The exchange is not atomic: a concurrent reader may briefly see
	// neither resource.
	Switch(from, to string)
}

// Stats holds statistics about the index.
type Stats struct {
	// Resources is the number of resources with at least one token.
	Resources int `json:"resources"`

	// Tokens is the number of distinct tokens across all resources.
	Tokens int `json:"tokens"`
}
