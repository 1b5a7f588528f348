package indexer

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	ekerrors "github.com/elastickilla/elastickilla/internal/errors"
	"github.com/elastickilla/elastickilla/internal/store"
)

// StringIndexer keeps a forward and an inverted [store.StringIndex] in step.
//
// Each mutation writes the forward store and projects the delta the store
// reports into the inverted store before returning.
//
// StringIndexer is safe for concurrent use.
type StringIndexer struct {
	forward  *store.StringIndex
	inverted *store.StringIndex
	logger   *slog.Logger
	closed   atomic.Bool
}

// Option configures a StringIndexer.
type Option func(*StringIndexer)

// WithForward sets the forward (resource → tokens) store.
func WithForward(s *store.StringIndex) Option {
	return func(i *StringIndexer) {
		i.forward = s
	}
}

// WithInverted sets the inverted (token → resources) store.
func WithInverted(s *store.StringIndex) Option {
	return func(i *StringIndexer) {
		i.inverted = s
	}
}

// WithLogger sets the logger used for per-operation debug output.
func WithLogger(l *slog.Logger) Option {
	return func(i *StringIndexer) {
		i.logger = l
	}
}

// NewStringIndexer creates an indexer. Stores that are not supplied are
// created empty.
func NewStringIndexer(opts ...Option) *StringIndexer {
	i := &StringIndexer{}
	for _, opt := range opts {
		opt(i)
	}
	if i.forward == nil {
		i.forward = store.NewStringIndex()
	}
	if i.inverted == nil {
		i.inverted = store.NewStringIndex()
	}
	if i.logger == nil {
		i.logger = slog.Default()
	}
	i.logger = i.logger.With(slog.String("component", "indexer"))
	return i
}

// Forward returns the forward store.
func (i *StringIndexer) Forward() *store.StringIndex {
	return i.forward
}

// Inverted returns the inverted store. Hand it to a searcher; never write
// to it directly.
func (i *StringIndexer) Inverted() *store.StringIndex {
	return i.inverted
}

// Add implements Indexer.
func (i *StringIndexer) Add(resource string, tokens ...string) {
	if resource == "" || len(tokens) == 0 {
		return
	}
	added := i.forward.Add(resource, tokens...)
	i.project(resource, added, nil)

	i.logger.Debug("resource indexed",
		slog.String("resource", resource),
		slog.Int("tokens", len(tokens)),
		slog.Int("new_tokens", len(added)))
}

// Remove implements Indexer.
func (i *StringIndexer) Remove(resource string) {
	if resource == "" {
		return
	}
	prior, ok := i.forward.RemoveAll(resource)
	if !ok {
		return
	}
	i.project(resource, nil, prior.Sorted())

	i.logger.Debug("resource removed",
		slog.String("resource", resource),
		slog.Int("tokens", prior.Len()))
}

// RemoveTokens implements Indexer.
func (i *StringIndexer) RemoveTokens(resource string, tokens ...string) {
	if resource == "" || len(tokens) == 0 {
		return
	}
	removed := i.forward.Remove(resource, tokens...)
	i.project(resource, nil, removed)
}

// Update implements Indexer.
func (i *StringIndexer) Update(resource string, tokens []string) {
	if resource == "" {
		return
	}

	before := i.forward.Get(resource)
	after := store.NewSet(tokens...)

	toRemove := before.Difference(after)
	toAdd := after.Difference(before)

	// Shared tokens are in neither list and are never touched.
	removed := i.forward.Remove(resource, toRemove...)
	i.project(resource, nil, removed)
	added := i.forward.Add(resource, toAdd...)
	i.project(resource, added, nil)

	i.logger.Debug("resource updated",
		slog.String("resource", resource),
		slog.Int("added", len(added)),
		slog.Int("removed", len(removed)))
}

// Switch implements Indexer.
func (i *StringIndexer) Switch(from, to string) {
	if from == "" || to == "" || from == to {
		return
	}

	fromTokens, _ := i.forward.RemoveAll(from)
	toTokens, _ := i.forward.RemoveAll(to)
	i.project(from, nil, fromTokens.Sorted())
	i.project(to, nil, toTokens.Sorted())

	i.Add(to, fromTokens.Sorted()...)
	i.Add(from, toTokens.Sorted()...)

	i.logger.Debug("resources switched",
		slog.String("from", from),
		slog.String("to", to))
}

// project mirrors a forward delta for resource into the inverted store.
func (i *StringIndexer) project(resource string, added, removed []string) {
	for _, token := range added {
		i.inverted.Add(token, resource)
	}
	for _, token := range removed {
		i.inverted.Remove(token, resource)
	}
}

// Stats returns a snapshot of the index size.
func (i *StringIndexer) Stats() Stats {
	return Stats{
		Resources: i.forward.Len(),
		Tokens:    i.inverted.Len(),
	}
}

// Verify checks that every (resource, token) pair appears in both stores.
// A failure means a bug, not bad input; the returned error is fatal.
//
// Verify is only meaningful while no mutation is in flight.
func (i *StringIndexer) Verify() error {
	for _, resource := range i.forward.Keys() {
		for token := range i.forward.Get(resource) {
			if !i.inverted.Get(token).Has(resource) {
				return ekerrors.New(ekerrors.ErrCodeIndexInconsistent,
					fmt.Sprintf("token %q of %s missing from inverted index", token, resource), nil).
					WithDetail("resource", resource).
					WithDetail("token", token)
			}
		}
	}
	for _, token := range i.inverted.Keys() {
		for resource := range i.inverted.Get(token) {
			if !i.forward.Get(resource).Has(token) {
				return ekerrors.New(ekerrors.ErrCodeIndexInconsistent,
					fmt.Sprintf("inverted entry %q → %s has no forward entry", token, resource), nil).
					WithDetail("resource", resource).
					WithDetail("token", token)
			}
		}
	}
	return nil
}

// Close flushes both stores. Safe to call multiple times.
func (i *StringIndexer) Close() error {
	if !i.closed.CompareAndSwap(false, true) {
		return nil
	}
	i.forward.Flush()
	i.inverted.Flush()
	return nil
}

var _ Indexer = (*StringIndexer)(nil)
