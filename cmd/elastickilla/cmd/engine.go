package cmd

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/elastickilla/elastickilla/internal/analyzer"
	"github.com/elastickilla/elastickilla/internal/async"
	"github.com/elastickilla/elastickilla/internal/config"
	ekerrors "github.com/elastickilla/elastickilla/internal/errors"
	"github.com/elastickilla/elastickilla/internal/metrics"
	"github.com/elastickilla/elastickilla/internal/tokenizer"
)

// shutdownTimeout bounds how long a command waits for queued indexing
// when it exits.
const shutdownTimeout = 10 * time.Second

// newAnalyzer builds the analyzer cfg describes. m may be nil.
func newAnalyzer(cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) (*analyzer.FileAnalyzer, error) {
	tok, err := tokenizer.New(cfg.Tokenizer.ToTokenizer())
	if err != nil {
		return nil, err
	}
	watchOpts, err := cfg.WatchOptions()
	if err != nil {
		return nil, err
	}

	queue := async.NewTaskQueue(
		async.WithWorkers(cfg.Queue.Workers),
		async.WithLogger(logger),
		async.WithMetrics(m),
	)
	a, err := analyzer.New(tok,
		analyzer.WithQueue(queue),
		analyzer.WithWatchOptions(watchOpts),
		analyzer.WithMaxFileSize(cfg.Index.MaxFileSize),
		analyzer.WithFingerprintCacheSize(cfg.Index.FingerprintCache),
		analyzer.WithIgnore(cfg.Index.Ignore, cfg.Index.IgnoreFile),
		analyzer.WithMetrics(m),
		analyzer.WithLogger(logger),
	)
	if err != nil {
		_ = queue.Close(context.Background())
		return nil, err
	}

	logger.Debug("analyzer ready",
		slog.String("tokenizer", cfg.Tokenizer.Kind),
		slog.Int("workers", cfg.Queue.Workers),
		slog.Int64("max_file_size", cfg.Index.MaxFileSize))
	return a, nil
}

// closeAnalyzer waits for queued work and releases the analyzer.
func closeAnalyzer(a *analyzer.FileAnalyzer, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.Close(ctx); err != nil {
		logger.Warn("shutdown incomplete", ekerrors.LogAttrs(err)...)
	}
}

// subscriptions returns the config's subscriptions followed by those
// given as path[:pattern] arguments.
func subscriptions(cfg *config.Config, args []string) []config.SubscriptionConfig {
	subs := slices.Clone(cfg.Subscriptions)
	for _, arg := range args {
		s := config.ParseSubscription(arg)
		if s.Path == "" {
			continue
		}
		subs = append(subs, s)
	}
	return subs
}

// subscribeAll subscribes a to every entry of subs in order. announce,
// if set, is called before each one.
func subscribeAll(ctx context.Context, a *analyzer.FileAnalyzer, subs []config.SubscriptionConfig, announce func(string)) error {
	for _, s := range subs {
		if announce != nil {
			announce(s.String())
		}
		if err := a.Subscribe(ctx, s.Path, s.Pattern); err != nil {
			return err
		}
	}
	return nil
}
