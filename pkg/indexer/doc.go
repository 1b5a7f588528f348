// Package indexer maintains the forward index (resource → tokens) and the
// inverted index (token → resources) as one consistent unit.
//
// # Architecture
//
//	┌─────────────────┐
//	│  FileAnalyzer   │  (queues work per directory)
//	└────────┬────────┘
//	         │
//	┌────────▼────────┐
//	│    Indexer      │  ← This package
//	│   (interface)   │
//	└────────┬────────┘
//	         │ project(added, removed)
//	    ┌────┴─────┐
//	    │          │
//	┌───▼────┐ ┌───▼─────┐
//	│forward │ │inverted │   (store.StringIndex)
//	└────────┘ └─────────┘
//
// Every mutation is written to the forward store first. The delta the store
// reports back is then projected into the inverted store before the call
// returns, so a caller that only goes through the Indexer never observes
// the two out of step.
//
// # Usage
//
//	forward, inverted := store.NewStringIndex(), store.NewStringIndex()
//	idx := indexer.NewStringIndexer(
//	    indexer.WithForward(forward),
//	    indexer.WithInverted(inverted),
//	)
//	defer idx.Close()
//
//	idx.Add("/docs/a.txt", "hello", "world")
//	idx.Update("/docs/a.txt", []string{"hello", "there"})
//
// # Thread Safety
//
// StringIndexer is safe for concurrent use. Per-key consistency comes from
// the stores; cross-key consistency for the same resource comes from the
// caller serializing its own calls.
package indexer
