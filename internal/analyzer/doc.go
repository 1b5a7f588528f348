// Package analyzer keeps the index in step with a set of watched
// directories.
//
// A FileAnalyzer owns the subscription table, the task queue, the
// tokenizer and an Indexer/Searcher pair:
//
//	Subscribe(dir, pattern) ──► watcher ──► event pump ──┐
//	        │                                            │
//	        └── initial scan ─────────────► TaskQueue ◄──┘
//	                                 (queue-key: directory,
//	                                  cancellation-key: resource)
//	                                            │
//	                                            ▼
//	                                  Indexer ──► forward / inverted
//	                                                        │
//	Search / DelayedSearch ◄──────────── Searcher ◄─────────┘
//
// Every mutation for a directory goes through one FIFO chain, so the index
// sees a resource's Add, Update, Remove and Switch in the order the
// analyzer decided on them. Subscribe returns once the scan is queued;
// IsIndexing reports outstanding work and DelayedSearch waits for it.
//
// Resources are identified by their absolute path, cleaned and
// lower-cased. Real paths are kept for reading.
//
// WithIgnore adds gitignore-style rules on top of the subscription
// patterns; a file is indexed only when a pattern matches and no rule
// ignores it.
package analyzer
