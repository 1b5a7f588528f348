package analyzer

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	ekerrors "github.com/elastickilla/elastickilla/internal/errors"
	"github.com/elastickilla/elastickilla/internal/gitignore"
	"github.com/elastickilla/elastickilla/internal/watcher"
)

// subscription is one watched directory. filters and tracked are written
// under FileAnalyzer.upgrade plus the write lock.
type subscription struct {
	key     string // resource id of the directory; the queue-key
	dir     string // real directory path
	filters []string
	tracked map[string]string // resource id → real path
	ignore  *gitignore.Matcher

	watcher  watcher.Watcher
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func (s *subscription) String() string {
	return filepath.Join(s.dir, strings.Join(s.filters, "|"))
}

// wants reports whether path is matched by a filter and not ignored.
func (s *subscription) wants(path string) bool {
	return matchAny(s.filters, path) && !s.ignore.Match(path)
}

func (s *subscription) hasFilter(pattern string) bool {
	for _, f := range s.filters {
		if f == pattern {
			return true
		}
	}
	return false
}

// Subscribe watches path for files matching pattern and queues every
// matching file for indexing. It returns once the files are queued, not
// once they are indexed.
//
// A blank pattern matches every file. If path names a regular file, its
// directory is watched for that file alone. A path that does not exist or
// cannot be read is logged and ignored. Subscribing twice with the same
// pattern is a no-op.
func (a *FileAnalyzer) Subscribe(ctx context.Context, path, pattern string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	dir, pattern, ok, err := a.resolve(path, pattern)
	if err != nil || !ok {
		return err
	}
	key := ResourceID(dir)

	a.upgrade.Lock()
	defer a.upgrade.Unlock()

	if a.closed.Load() {
		return ekerrors.New(ekerrors.ErrCodeQueueClosed, "analyzer is closed", nil)
	}

	sub, exists := a.subs[key]
	if exists && sub.hasFilter(pattern) {
		a.logger.Debug("already subscribed",
			slog.String("dir", dir),
			slog.String("pattern", pattern))
		return nil
	}

	if !exists {
		sub, err = a.watch(key, dir)
		if err != nil {
			return err
		}
	}

	a.mu.Lock()
	sub.filters = append(sub.filters, pattern)
	a.subs[key] = sub
	n := len(a.subs)
	a.mu.Unlock()
	a.metrics.SetSubscriptions(n)

	if !exists {
		go a.pump(sub)
	}

	listed, err := listFiles(sub.dir, []string{pattern})
	if err != nil {
		a.logger.Warn("cannot list directory", ekerrors.LogAttrs(err)...)
	}
	files := listed[:0]
	for _, file := range listed {
		if !sub.ignore.Match(file) {
			files = append(files, file)
		}
	}
	for _, file := range files {
		a.enqueueAdd(sub, file)
	}

	a.logger.Info("subscribed",
		slog.String("dir", sub.dir),
		slog.String("pattern", pattern),
		slog.Int("files", len(files)))
	return nil
}

// Unsubscribe stops indexing files matched by pattern under path. A blank
// pattern removes the whole subscription. Files no longer covered by any
// remaining pattern are removed from the index. Unknown paths and patterns
// are ignored.
func (a *FileAnalyzer) Unsubscribe(ctx context.Context, path, pattern string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := path
	if abs, err := filepath.Abs(path); err == nil {
		dir = abs
	}
	if info, err := os.Stat(dir); err == nil && info.Mode().IsRegular() {
		pattern = escapeName(filepath.Base(dir))
		dir = filepath.Dir(dir)
	}

	stale, err := a.unsubscribe(ResourceID(dir), pattern)
	if stale != nil {
		a.stopSubscription(stale)
	}
	return err
}

// unsubscribe updates the table and queues removals. It returns the
// subscription to stop, if the last filter went away; stopping happens
// after upgrade is released since the event pump may be waiting on it.
func (a *FileAnalyzer) unsubscribe(key, pattern string) (*subscription, error) {
	a.upgrade.Lock()
	defer a.upgrade.Unlock()

	sub, ok := a.subs[key]
	if !ok {
		return nil, nil
	}

	var (
		removed   []string
		remaining []string
	)
	if strings.TrimSpace(pattern) == "" {
		removed = sub.filters
	} else {
		p, err := NormalizePattern(pattern)
		if err != nil {
			return nil, err
		}
		if !sub.hasFilter(p) {
			return nil, nil
		}
		removed = []string{p}
		for _, f := range sub.filters {
			if f != p {
				remaining = append(remaining, f)
			}
		}
	}

	// Files matching a removed filter and no remaining one leave the index,
	// whether they are still on disk or only tracked.
	affected := make(map[string]string)
	files, _ := listFiles(sub.dir, removed)
	for _, file := range files {
		affected[ResourceID(file)] = file
	}
	for res, file := range sub.tracked {
		if len(remaining) == 0 || matchAny(removed, file) {
			affected[res] = file
		}
	}
	for res, file := range affected {
		if len(remaining) > 0 && matchAny(remaining, file) {
			delete(affected, res)
		}
	}

	var stale *subscription
	a.mu.Lock()
	sub.filters = remaining
	for res := range affected {
		delete(sub.tracked, res)
	}
	if len(remaining) == 0 {
		delete(a.subs, key)
		stale = sub
	}
	n := len(a.subs)
	a.mu.Unlock()
	a.metrics.SetSubscriptions(n)

	resources := make([]string, 0, len(affected))
	for res := range affected {
		resources = append(resources, res)
	}
	sort.Strings(resources)
	for _, res := range resources {
		a.enqueueRemove(sub, res)
	}

	a.logger.Info("unsubscribed",
		slog.String("dir", sub.dir),
		slog.String("pattern", strings.Join(removed, "|")),
		slog.Int("files", len(resources)))
	return stale, nil
}

// resolve turns a Subscribe argument into a real directory and pattern.
// ok is false when the path should be ignored.
func (a *FileAnalyzer) resolve(path, pattern string) (dir, normalized string, ok bool, err error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		a.logger.Warn("cannot subscribe", slog.String("path", path), slog.String("error", err.Error()))
		return "", "", false, nil
	}

	info, err := os.Stat(abs)
	if err != nil {
		a.logger.Warn("cannot subscribe", ekerrors.LogAttrs(ekerrors.IOError(abs, err))...)
		return "", "", false, nil
	}

	switch {
	case info.IsDir():
		dir = abs
		normalized, err = NormalizePattern(pattern)
		if err != nil {
			return "", "", false, err
		}
	case info.Mode().IsRegular():
		dir = filepath.Dir(abs)
		normalized = escapeName(filepath.Base(abs))
	default:
		a.logger.Warn("cannot subscribe, not a file or directory", slog.String("path", abs))
		return "", "", false, nil
	}
	return dir, normalized, true, nil
}

// watch starts a watcher for dir. Caller holds upgrade.
func (a *FileAnalyzer) watch(key, dir string) (*subscription, error) {
	w, err := a.newWatcher(a.watchOpts)
	if err != nil {
		return nil, ekerrors.New(ekerrors.ErrCodeWatchFailed, "cannot create watcher", err).
			WithDetail("path", dir)
	}
	if err := w.Start(a.ctx, dir); err != nil {
		_ = w.Stop()
		return nil, ekerrors.New(ekerrors.ErrCodeWatchFailed, "cannot watch "+dir, err).
			WithDetail("path", dir)
	}

	return &subscription{
		key:     key,
		dir:     dir,
		tracked: make(map[string]string),
		ignore:  a.ignoreRules(dir),
		watcher: w,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}, nil
}

// ignoreRules builds the ignore rules for dir. An unreadable rules file
// is logged and the shared patterns still apply.
func (a *FileAnalyzer) ignoreRules(dir string) *gitignore.Matcher {
	if len(a.ignore) == 0 && a.ignoreFile == "" {
		return nil
	}
	m := gitignore.New(a.ignore...)
	if a.ignoreFile != "" {
		if err := m.AddFromFile(filepath.Join(dir, a.ignoreFile)); err != nil {
			a.logger.Warn("cannot read ignore file",
				slog.String("dir", dir),
				slog.String("error", err.Error()))
		}
	}
	return m
}

// stopSubscription stops the event pump, waits for it, then stops the
// watcher. Must not be called with upgrade held.
func (a *FileAnalyzer) stopSubscription(sub *subscription) {
	sub.stopOnce.Do(func() {
		close(sub.stop)
		<-sub.done
		if err := sub.watcher.Stop(); err != nil {
			a.logger.Warn("stop watcher", slog.String("dir", sub.dir), slog.String("error", err.Error()))
		}
		a.logger.Debug("watch stopped", slog.String("dir", sub.dir))
	})
}

// dropLater removes sub from the table and stops it in the background.
// Used from the event pump, which cannot wait for itself. Caller holds
// upgrade.
func (a *FileAnalyzer) dropLater(sub *subscription) {
	a.mu.Lock()
	if a.subs[sub.key] == sub {
		delete(a.subs, sub.key)
	}
	n := len(a.subs)
	a.mu.Unlock()
	a.metrics.SetSubscriptions(n)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.stopSubscription(sub)
	}()
	a.logger.Info("subscription ended", slog.String("dir", sub.dir))
}
