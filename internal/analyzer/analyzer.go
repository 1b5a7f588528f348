package analyzer

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/elastickilla/elastickilla/internal/async"
	ekerrors "github.com/elastickilla/elastickilla/internal/errors"
	"github.com/elastickilla/elastickilla/internal/metrics"
	"github.com/elastickilla/elastickilla/internal/tokenizer"
	"github.com/elastickilla/elastickilla/internal/watcher"
	"github.com/elastickilla/elastickilla/pkg/indexer"
	"github.com/elastickilla/elastickilla/pkg/searcher"
)

const (
	// DefaultMaxFileSize is the largest file read by default (10 MiB).
	DefaultMaxFileSize int64 = 10 << 20

	// DefaultFingerprintCacheSize bounds the content fingerprint cache.
	DefaultFingerprintCacheSize = 4096
)

// WatcherFactory creates the watcher for one subscribed directory.
type WatcherFactory func(opts watcher.Options) (watcher.Watcher, error)

// FileAnalyzer subscribes to directories and keeps the index consistent
// with their files. It is safe for concurrent use.
type FileAnalyzer struct {
	tokenizer tokenizer.Tokenizer
	indexer   indexer.Indexer
	searcher  searcher.Searcher
	queue     *async.TaskQueue

	newWatcher  WatcherFactory
	watchOpts   watcher.Options
	maxFileSize int64
	cacheSize   int
	fingerprint *lru.Cache[string, uint64]
	ignore      []string // rules applied to every subscription
	ignoreFile  string   // per-directory rules file name, if any

	// upgrade serializes everything that may change the subscription table,
	// so a mutator can look, decide and then write without a gap. mu is
	// only held for the actual reads and writes.
	upgrade sync.Mutex
	mu      sync.RWMutex
	subs    map[string]*subscription

	ctx    context.Context // lifetime of watchers
	cancel context.CancelFunc
	wg     sync.WaitGroup // background teardowns
	closed atomic.Bool

	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures a FileAnalyzer.
type Option func(*FileAnalyzer)

// WithIndexer sets the indexer. It must be paired with WithSearcher over
// the same index.
func WithIndexer(idx indexer.Indexer) Option {
	return func(a *FileAnalyzer) {
		a.indexer = idx
	}
}

// WithSearcher sets the searcher. It must be paired with WithIndexer.
func WithSearcher(s searcher.Searcher) Option {
	return func(a *FileAnalyzer) {
		a.searcher = s
	}
}

// WithQueue sets the task queue. The analyzer closes it on Close.
func WithQueue(q *async.TaskQueue) Option {
	return func(a *FileAnalyzer) {
		a.queue = q
	}
}

// WithWatcherFactory replaces how directory watchers are created.
func WithWatcherFactory(f WatcherFactory) Option {
	return func(a *FileAnalyzer) {
		a.newWatcher = f
	}
}

// WithWatchOptions sets the options passed to the watcher factory.
func WithWatchOptions(opts watcher.Options) Option {
	return func(a *FileAnalyzer) {
		a.watchOpts = opts
	}
}

// WithMaxFileSize skips files larger than n bytes. Zero or less means no
// limit.
func WithMaxFileSize(n int64) Option {
	return func(a *FileAnalyzer) {
		a.maxFileSize = n
	}
}

// WithFingerprintCacheSize bounds how many content fingerprints are kept
// to skip unchanged files. Zero or less disables the cache.
func WithFingerprintCacheSize(n int) Option {
	return func(a *FileAnalyzer) {
		a.cacheSize = n
	}
}

// WithIgnore skips files matching the gitignore-style patterns. When file
// is set, each subscribed directory's file of that name adds its own rules,
// read once when the directory is first watched.
func WithIgnore(patterns []string, file string) Option {
	return func(a *FileAnalyzer) {
		a.ignore = patterns
		a.ignoreFile = file
	}
}

// WithMetrics records analyzer activity in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *FileAnalyzer) {
		a.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *FileAnalyzer) {
		a.logger = l
	}
}

func defaultWatcherFactory(opts watcher.Options) (watcher.Watcher, error) {
	return watcher.New(opts)
}

// New creates an analyzer that tokenizes files with tok.
//
// Without WithIndexer and WithSearcher it indexes into a fresh in-memory
// store pair. Without WithQueue it runs its own queue.
func New(tok tokenizer.Tokenizer, opts ...Option) (*FileAnalyzer, error) {
	if tok == nil {
		return nil, ekerrors.ValidationError("tokenizer is required", nil)
	}

	a := &FileAnalyzer{
		tokenizer:   tok,
		newWatcher:  defaultWatcherFactory,
		watchOpts:   watcher.DefaultOptions(),
		maxFileSize: DefaultMaxFileSize,
		cacheSize:   DefaultFingerprintCacheSize,
		subs:        make(map[string]*subscription),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	a.logger = a.logger.With(slog.String("component", "analyzer"))

	if err := a.watchOpts.Validate(); err != nil {
		return nil, ekerrors.ValidationError("invalid watch options", err)
	}

	switch {
	case a.indexer == nil && a.searcher == nil:
		idx := indexer.NewStringIndexer(indexer.WithLogger(a.logger))
		s, err := searcher.NewIndexSearcher(searcher.WithIndex(idx.Inverted()))
		if err != nil {
			return nil, err
		}
		a.indexer, a.searcher = idx, s
	case a.indexer == nil || a.searcher == nil:
		return nil, ekerrors.ValidationError("indexer and searcher must be set together", nil)
	}

	if sizer, ok := a.indexer.(interface{ Stats() indexer.Stats }); ok {
		a.metrics.RegisterIndexSize(
			func() int { return sizer.Stats().Resources },
			func() int { return sizer.Stats().Tokens },
		)
	}

	if a.queue == nil {
		a.queue = async.NewTaskQueue(
			async.WithLogger(a.logger),
			async.WithMetrics(a.metrics),
		)
	}

	if a.cacheSize > 0 {
		cache, err := lru.New[string, uint64](a.cacheSize)
		if err != nil {
			return nil, ekerrors.InternalError("create fingerprint cache", err)
		}
		a.fingerprint = cache
	}

	a.ctx, a.cancel = context.WithCancel(context.Background())
	return a, nil
}

// Search returns the resources holding query as a token. It reads the
// index as it is, without waiting for queued work.
func (a *FileAnalyzer) Search(query string) []string {
	start := time.Now()
	results := a.search(query)
	a.metrics.SearchServed(metrics.SearchImmediate, time.Since(start), len(results))
	return results
}

// DelayedSearch waits until every task queued before the call has run,
// then searches. Submissions are held back until the search is done.
func (a *FileAnalyzer) DelayedSearch(ctx context.Context, query string) ([]string, error) {
	start := time.Now()
	release, err := a.queue.Pause(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	results := a.search(query)
	a.metrics.SearchServed(metrics.SearchDelayed, time.Since(start), len(results))
	return results, nil
}

func (a *FileAnalyzer) search(query string) []string {
	query = strings.TrimSpace(query)
	if query == "" {
		return []string{}
	}
	return a.searcher.Search(tokenizer.Normalize(a.tokenizer, query))
}

// IsIndexing reports whether queued work is still outstanding.
func (a *FileAnalyzer) IsIndexing() bool {
	return !a.queue.IsEmpty()
}

// Drain waits until all queued work has run.
func (a *FileAnalyzer) Drain(ctx context.Context) error {
	release, err := a.queue.Pause(ctx)
	if err != nil {
		return err
	}
	release()
	return nil
}

// Subscriptions lists the active subscriptions, one entry per directory:
// the directory joined with its filters separated by "|".
func (a *FileAnalyzer) Subscriptions() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]string, 0, len(a.subs))
	for _, sub := range a.subs {
		out = append(out, sub.String())
	}
	sort.Strings(out)
	return out
}

// Stats is a snapshot of analyzer state.
type Stats struct {
	Resources     int              `json:"resources"`
	Tokens        int              `json:"tokens"`
	Subscriptions int              `json:"subscriptions"`
	Indexing      bool             `json:"indexing"`
	Queue         async.QueueStats `json:"queue"`
}

// Stats returns a snapshot of analyzer state. Resource and token counts
// are only filled when the indexer reports them.
func (a *FileAnalyzer) Stats() Stats {
	a.mu.RLock()
	n := len(a.subs)
	a.mu.RUnlock()

	s := Stats{
		Subscriptions: n,
		Indexing:      a.IsIndexing(),
		Queue:         a.queue.Stats(),
	}
	if sizer, ok := a.indexer.(interface{ Stats() indexer.Stats }); ok {
		is := sizer.Stats()
		s.Resources, s.Tokens = is.Resources, is.Tokens
	}
	return s
}

// Close stops every watcher, waits for queued work and releases the
// index. If ctx ends before the queue drains, running work is cancelled
// and ctx.Err() is returned. Calling Close again is a no-op.
func (a *FileAnalyzer) Close(ctx context.Context) error {
	if !a.closed.CompareAndSwap(false, true) {
		return nil
	}

	a.upgrade.Lock()
	a.mu.Lock()
	subs := make([]*subscription, 0, len(a.subs))
	for _, sub := range a.subs {
		subs = append(subs, sub)
	}
	a.subs = make(map[string]*subscription)
	a.mu.Unlock()
	a.upgrade.Unlock()

	for _, sub := range subs {
		a.stopSubscription(sub)
	}
	a.wg.Wait()
	a.cancel()
	a.metrics.SetSubscriptions(0)

	err := a.queue.Close(ctx)

	if c, ok := a.indexer.(io.Closer); ok {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	if a.fingerprint != nil {
		a.fingerprint.Purge()
	}

	a.logger.Debug("analyzer closed", slog.Int("subscriptions", len(subs)))
	return err
}
