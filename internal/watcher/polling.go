package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// PollingWatcher watches for file changes by periodically listing the
// directory. Used as a fallback when fsnotify is not available or fails.
// It cannot tell a rename from a delete followed by a create.
type PollingWatcher struct {
	opts Options
	pipe *pipe
}

// NewPollingWatcher creates a new polling watcher.
func NewPollingWatcher(opts Options) *PollingWatcher {
	opts = opts.WithDefaults()
	return &PollingWatcher{
		opts: opts,
		pipe: newPipe(opts),
	}
}

// Start takes a baseline listing of dir and starts polling it.
func (w *PollingWatcher) Start(ctx context.Context, dir string) error {
	abs, err := resolveDir(dir)
	if err != nil {
		return err
	}

	p := &poller{dir: abs, interval: w.opts.PollInterval, pipe: w.pipe}
	if err := p.init(); err != nil {
		return err
	}
	if err := w.pipe.open(ctx, w.Stop); err != nil {
		return err
	}

	w.pipe.wg.Add(1)
	go func() {
		defer w.pipe.wg.Done()
		p.run()
	}()
	return nil
}

// Stop stops the polling watcher.
func (w *PollingWatcher) Stop() error {
	return w.pipe.shutdown(nil)
}

// Events returns the channel of file events.
func (w *PollingWatcher) Events() <-chan FileEvent {
	return w.pipe.events
}

// Errors returns the channel of errors.
func (w *PollingWatcher) Errors() <-chan error {
	return w.pipe.errors
}

// poller diffs successive listings of one directory.
type poller struct {
	dir       string
	interval  time.Duration
	pipe      *pipe
	fileState map[string]fileSnapshot
}

type fileSnapshot struct {
	modTime time.Time
	size    int64
}

func (p *poller) init() error {
	state, err := p.list()
	if err != nil {
		return fmt.Errorf("perform initial scan: %w", err)
	}
	p.fileState = state
	return nil
}

func (p *poller) run() {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.pipe.stopCh:
			return
		case <-ticker.C:
			if err := p.detectChanges(); err != nil {
				p.pipe.emitError(err)
			}
		}
	}
}

// list records the regular files directly inside the directory.
func (p *poller) list() (map[string]fileSnapshot, error) {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		return nil, err
	}

	state := make(map[string]fileSnapshot, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue // gone since the listing
		}
		if !info.Mode().IsRegular() {
			continue
		}
		state[filepath.Join(p.dir, e.Name())] = fileSnapshot{
			modTime: info.ModTime(),
			size:    info.Size(),
		}
	}
	return state, nil
}

// detectChanges compares the current listing with the previous one and
// emits events. Deletions come first, then creations and modifications,
// each group in name order.
func (p *poller) detectChanges() error {
	current, err := p.list()
	if err != nil {
		return fmt.Errorf("list directory for changes: %w", err)
	}

	now := time.Now()
	var events []FileEvent
	for path := range p.fileState {
		if _, ok := current[path]; !ok {
			events = append(events, FileEvent{Path: path, Operation: OpDelete, Timestamp: now})
		}
	}
	sortByPath(events)

	var changed []FileEvent
	for path, snapshot := range current {
		prev, ok := p.fileState[path]
		switch {
		case !ok:
			changed = append(changed, FileEvent{Path: path, Operation: OpCreate, Timestamp: now})
		case prev.modTime != snapshot.modTime || prev.size != snapshot.size:
			changed = append(changed, FileEvent{Path: path, Operation: OpModify, Timestamp: now})
		}
	}
	sortByPath(changed)

	p.fileState = current
	for _, ev := range append(events, changed...) {
		p.pipe.emit(ev)
	}
	return nil
}

func sortByPath(events []FileEvent) {
	sort.Slice(events, func(i, j int) bool { return events[i].Path < events[j].Path })
}
