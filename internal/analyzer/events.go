package analyzer

import (
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/elastickilla/elastickilla/internal/watcher"
)

// pump feeds sub's watcher events to the handlers until sub is stopped
// or the watcher closes its channels.
func (a *FileAnalyzer) pump(sub *subscription) {
	defer close(sub.done)

	events := sub.watcher.Events()
	errs := sub.watcher.Errors()
	for {
		select {
		case <-sub.stop:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			a.handle(sub, ev)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			a.logger.Warn("watcher error", slog.String("dir", sub.dir), slog.String("error", err.Error()))
		}
	}
}

// handle turns one event into queued index work.
func (a *FileAnalyzer) handle(sub *subscription, ev watcher.FileEvent) {
	a.upgrade.Lock()
	defer a.upgrade.Unlock()

	// Events that raced with an unsubscribe belong to nobody.
	if a.subs[sub.key] != sub {
		return
	}

	a.metrics.WatchEvent(strings.ToLower(ev.Operation.String()))
	a.logger.Debug("file event",
		slog.String("op", ev.Operation.String()),
		slog.String("path", ev.Path),
		slog.String("old_path", ev.OldPath))

	switch ev.Operation {
	case watcher.OpCreate:
		if sub.wants(ev.Path) {
			a.enqueueAdd(sub, ev.Path)
		}
	case watcher.OpModify:
		if sub.wants(ev.Path) {
			a.enqueueUpdate(sub, ev.Path)
		}
	case watcher.OpDelete:
		a.handleDelete(sub, ev.Path)
	case watcher.OpRename:
		a.handleRename(sub, ev.OldPath, ev.Path)
	}
}

func (a *FileAnalyzer) handleDelete(sub *subscription, path string) {
	res := ResourceID(path)
	_, tracked := sub.tracked[res]
	if tracked || sub.wants(path) {
		a.mu.Lock()
		delete(sub.tracked, res)
		a.mu.Unlock()
		a.enqueueRemove(sub, res)
	}

	// A filter naming only this file has nothing left to match.
	name := strings.ToLower(filepath.Base(path))
	var kept []string
	for _, f := range sub.filters {
		if lit, ok := literalName(f); ok && lit == name {
			continue
		}
		kept = append(kept, f)
	}
	if len(kept) == len(sub.filters) {
		return
	}

	a.mu.Lock()
	sub.filters = kept
	a.mu.Unlock()
	if len(kept) == 0 {
		a.dropLater(sub)
	}
}

func (a *FileAnalyzer) handleRename(sub *subscription, oldPath, newPath string) {
	oldRes, newRes := ResourceID(oldPath), ResourceID(newPath)
	_, oldTracked := sub.tracked[oldRes]
	_, overwritten := sub.tracked[newRes]
	oldMatch := oldTracked || sub.wants(oldPath)

	// A filter naming only the old file follows it to the new name.
	oldName := strings.ToLower(filepath.Base(oldPath))
	newFilter := escapeName(filepath.Base(newPath))
	var migrated []string
	changed := false
	for _, f := range sub.filters {
		if lit, ok := literalName(f); ok && lit == oldName {
			f = newFilter
			changed = true
		}
		if !contains(migrated, f) {
			migrated = append(migrated, f)
		}
	}
	if changed {
		a.mu.Lock()
		sub.filters = migrated
		a.mu.Unlock()
	}
	newMatch := sub.wants(newPath)

	if oldRes == newRes {
		// Only the case changed; the identifier stays.
		if oldTracked {
			a.mu.Lock()
			sub.tracked[newRes] = newPath
			a.mu.Unlock()
		}
		return
	}

	switch {
	case oldMatch && newMatch:
		a.enqueueSwitch(sub, oldRes, newRes, newPath, overwritten)
	case oldMatch:
		a.mu.Lock()
		delete(sub.tracked, oldRes)
		a.mu.Unlock()
		a.enqueueRemove(sub, oldRes)
	case newMatch:
		a.enqueueAdd(sub, newPath)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
