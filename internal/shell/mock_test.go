package shell

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/elastickilla/elastickilla/internal/analyzer"
	"github.com/elastickilla/elastickilla/internal/async"
	"github.com/elastickilla/elastickilla/internal/ui"
)

// engineCall is one recorded Engine call.
type engineCall struct {
	Op      string
	Path    string
	Pattern string
	Query   string
}

// fakeEngine records calls and answers from its fields.
type fakeEngine struct {
	mu    sync.Mutex
	calls []engineCall

	Results      map[string][]string
	Indexing     bool
	Subs         []string
	StatsValue   analyzer.Stats
	SubscribeErr error
	DelayedFn    func(ctx context.Context, query string) ([]string, error)
}

func (f *fakeEngine) record(c engineCall) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
}

func (f *fakeEngine) Calls() []engineCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]engineCall(nil), f.calls...)
}

func (f *fakeEngine) Subscribe(_ context.Context, path, pattern string) error {
	f.record(engineCall{Op: "Subscribe", Path: path, Pattern: pattern})
	return f.SubscribeErr
}

func (f *fakeEngine) Unsubscribe(_ context.Context, path, pattern string) error {
	f.record(engineCall{Op: "Unsubscribe", Path: path, Pattern: pattern})
	return nil
}

func (f *fakeEngine) Search(query string) []string {
	f.record(engineCall{Op: "Search", Query: query})
	return f.Results[query]
}

func (f *fakeEngine) DelayedSearch(ctx context.Context, query string) ([]string, error) {
	f.record(engineCall{Op: "DelayedSearch", Query: query})
	if f.DelayedFn != nil {
		return f.DelayedFn(ctx, query)
	}
	return f.Results[query], nil
}

func (f *fakeEngine) IsIndexing() bool        { return f.Indexing }
func (f *fakeEngine) Subscriptions() []string { return f.Subs }
func (f *fakeEngine) Stats() analyzer.Stats   { return f.StatsValue }

// newTestShell builds a shell reading input and printing plainly.
func newTestShell(t *testing.T, engine Engine, input string) (*Shell, *bytes.Buffer) {
	t.Helper()
	out := &bytes.Buffer{}
	printer := ui.NewPrinter(ui.NewConfig(out, ui.WithForcePlain(true)))
	return New(engine, NewPlainReader(strings.NewReader(input), out), printer), out
}

func sampleStats() analyzer.Stats {
	return analyzer.Stats{
		Resources:     4,
		Tokens:        21,
		Subscriptions: 1,
		Indexing:      true,
		Queue:         async.QueueStats{Submitted: 9, Completed: 7, Pending: 2},
	}
}
