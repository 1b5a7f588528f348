// Package searcher provides read-only access to the inverted index.
//
// A query is a single token. There is no ranking: a resource either
// contains the token or it does not, and results come back sorted by
// resource identifier so output is stable.
//
// # Usage
//
//	idx := indexer.NewStringIndexer()
//	s, err := searcher.NewIndexSearcher(searcher.WithIndex(idx.Inverted()))
//	if err != nil {
//	    return err
//	}
//	for _, resource := range s.Search("hello") {
//	    fmt.Println(resource)
//	}
package searcher
