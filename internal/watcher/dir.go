package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	ekerrors "github.com/elastickilla/elastickilla/internal/errors"
)

// DirWatcher watches one directory using fsnotify, falling back to polling
// when fsnotify cannot watch it (network mounts, exhausted inotify limits).
//
// Subdirectories are not watched. A file moved away and another one
// appearing within RenameWindow are reported as a single OpRename; a file
// moved away with nothing appearing is reported as OpDelete.
type DirWatcher struct {
	opts   Options
	pipe   *pipe
	logger *slog.Logger

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	polling bool
	dir     string
}

// New creates a watcher for a single directory.
func New(opts Options) (*DirWatcher, error) {
	if err := opts.Validate(); err != nil {
		return nil, ekerrors.ValidationError("invalid watcher options", err)
	}
	opts = opts.WithDefaults()
	return &DirWatcher{
		opts:   opts,
		pipe:   newPipe(opts),
		logger: slog.Default().With(slog.String("component", "watcher")),
	}, nil
}

// Start begins watching dir. It returns once events are being collected.
func (w *DirWatcher) Start(ctx context.Context, dir string) error {
	abs, err := resolveDir(dir)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.pipe.canOpen(); err != nil {
		return err
	}

	var (
		fsw     *fsnotify.Watcher
		polling bool
		source  func()
	)
	if !w.opts.ForcePolling {
		fsw, err = w.openNotify(abs)
		if err == nil {
			source = func() { w.notifyLoop(fsw) }
		} else {
			w.logger.Warn("fsnotify unavailable, falling back to polling",
				slog.String("dir", abs),
				slog.String("error", err.Error()))
		}
	}
	if source == nil {
		p := &poller{dir: abs, interval: w.opts.PollInterval, pipe: w.pipe}
		if err := p.init(); err != nil {
			return ekerrors.New(ekerrors.ErrCodeWatchFailed, "cannot watch "+abs, err).
				WithDetail("path", abs)
		}
		polling = true
		source = p.run
	}

	if err := w.pipe.open(ctx, w.Stop); err != nil {
		if fsw != nil {
			_ = fsw.Close()
		}
		return err
	}
	w.dir = abs
	w.fsw = fsw
	w.polling = polling

	w.pipe.wg.Add(1)
	go func() {
		defer w.pipe.wg.Done()
		source()
	}()

	w.logger.Debug("watching directory",
		slog.String("dir", abs),
		slog.Bool("polling", w.polling))
	return nil
}

func (w *DirWatcher) openNotify(dir string) (*fsnotify.Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return fsw, nil
}

// IsPolling reports whether the watcher fell back to polling.
func (w *DirWatcher) IsPolling() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.polling
}

// Stop stops the watcher and closes its channels. Safe to call multiple
// times.
func (w *DirWatcher) Stop() error {
	return w.pipe.shutdown(func() error {
		w.mu.Lock()
		fsw := w.fsw
		w.mu.Unlock()
		if fsw == nil {
			return nil
		}
		return fsw.Close()
	})
}

// Events returns the channel of file events.
func (w *DirWatcher) Events() <-chan FileEvent {
	return w.pipe.events
}

// Errors returns the channel of errors.
func (w *DirWatcher) Errors() <-chan error {
	return w.pipe.errors
}

// notifyLoop translates fsnotify events until the watcher stops. It owns
// the rename pairing state.
func (w *DirWatcher) notifyLoop(fsw *fsnotify.Watcher) {
	var (
		movedAway string
		timer     *time.Timer
		expired   <-chan time.Time
	)
	clearMove := func() {
		movedAway = ""
		if timer != nil {
			timer.Stop()
		}
		expired = nil
	}
	defer clearMove()

	for {
		select {
		case <-w.pipe.stopCh:
			return

		case <-expired:
			w.emit(OpDelete, movedAway, "")
			clearMove()

		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			if ev.Name == w.dir {
				if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
					w.pipe.emitError(ekerrors.New(ekerrors.ErrCodeWatchFailed,
						"watched directory was removed: "+w.dir, nil).WithDetail("path", w.dir))
				}
				continue
			}
			if filepath.Dir(ev.Name) != w.dir {
				continue
			}

			if movedAway != "" {
				if ev.Has(fsnotify.Create) && ev.Name != movedAway && isFile(ev.Name) {
					w.emit(OpRename, ev.Name, movedAway)
					clearMove()
					continue
				}
				w.emit(OpDelete, movedAway, "")
				clearMove()
			}

			switch {
			case ev.Has(fsnotify.Create):
				if isFile(ev.Name) {
					w.emit(OpCreate, ev.Name, "")
				}
			case ev.Has(fsnotify.Write):
				if isFile(ev.Name) {
					w.emit(OpModify, ev.Name, "")
				}
			case ev.Has(fsnotify.Remove):
				w.emit(OpDelete, ev.Name, "")
			case ev.Has(fsnotify.Rename):
				movedAway = ev.Name
				if timer == nil {
					timer = time.NewTimer(w.opts.RenameWindow)
				} else {
					timer.Reset(w.opts.RenameWindow)
				}
				expired = timer.C
			}
			// CHMOD alone never changes content.

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.pipe.emitError(ekerrors.New(ekerrors.ErrCodeWatchFailed, "fsnotify error", err).
				WithDetail("path", w.dir))
		}
	}
}

func (w *DirWatcher) emit(op Operation, path, oldPath string) {
	w.pipe.emit(FileEvent{
		Path:      path,
		OldPath:   oldPath,
		Operation: op,
		Timestamp: time.Now(),
	})
}

// isFile reports whether path currently names a regular file.
func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

var (
	_ Watcher = (*DirWatcher)(nil)
	_ Watcher = (*PollingWatcher)(nil)
)
