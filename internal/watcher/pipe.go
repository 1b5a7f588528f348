package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	ekerrors "github.com/elastickilla/elastickilla/internal/errors"
)

// pipe carries events from a watcher's source goroutine to the consumer,
// through a debouncer when one is configured. Delivery blocks while the
// consumer is behind, so no event is dropped.
type pipe struct {
	events    chan FileEvent
	errors    chan error
	stopCh    chan struct{}
	debouncer *Debouncer
	wg        sync.WaitGroup

	mu      sync.Mutex
	started bool
	stopped bool
}

func newPipe(opts Options) *pipe {
	p := &pipe{
		events: make(chan FileEvent, opts.EventBufferSize),
		errors: make(chan error, 10),
		stopCh: make(chan struct{}),
	}
	if opts.DebounceWindow > 0 {
		p.debouncer = NewDebouncer(opts.DebounceWindow)
	}
	return p
}

// canOpen reports why open would fail, so a source is not set up for a
// pipe that cannot carry its events.
func (p *pipe) canOpen() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.openErr()
}

// openErr is called with mu held.
func (p *pipe) openErr() error {
	if p.stopped {
		return ekerrors.New(ekerrors.ErrCodeWatchFailed, "watcher already stopped", nil)
	}
	if p.started {
		return ekerrors.New(ekerrors.ErrCodeWatchFailed, "watcher already started", nil)
	}
	return nil
}

// open marks the pipe started and starts its helpers. stop is called when
// ctx is cancelled before the watcher is stopped explicitly.
func (p *pipe) open(ctx context.Context, stop func() error) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.openErr(); err != nil {
		return err
	}
	p.started = true

	if p.debouncer != nil {
		p.wg.Add(1)
		go p.forward()
	}

	go func() {
		select {
		case <-ctx.Done():
			_ = stop()
		case <-p.stopCh:
		}
	}()
	return nil
}

// forward moves debounced batches to the events channel.
func (p *pipe) forward() {
	defer p.wg.Done()
	for batch := range p.debouncer.Output() {
		for _, ev := range batch {
			if !p.deliver(ev) {
				return
			}
		}
	}
}

func (p *pipe) emit(ev FileEvent) {
	if p.debouncer != nil {
		p.debouncer.Add(ev)
		return
	}
	p.deliver(ev)
}

func (p *pipe) deliver(ev FileEvent) bool {
	select {
	case p.events <- ev:
		return true
	case <-p.stopCh:
		return false
	}
}

func (p *pipe) emitError(err error) {
	select {
	case p.errors <- err:
	default:
		slog.Warn("watcher error buffer full, dropping error",
			slog.String("error", err.Error()))
	}
}

// shutdown stops delivery, runs closeSource so the source goroutine exits,
// and closes both channels once nothing can send on them.
func (p *pipe) shutdown(closeSource func() error) error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.stopped = true
	close(p.stopCh)
	p.mu.Unlock()

	var err error
	if closeSource != nil {
		err = closeSource()
	}
	if p.debouncer != nil {
		p.debouncer.Stop()
	}
	p.wg.Wait()

	close(p.events)
	close(p.errors)
	return err
}

// resolveDir returns the absolute form of dir after checking that it is
// an existing directory.
func resolveDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", ekerrors.New(ekerrors.ErrCodeInvalidPath, "invalid directory: "+dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", ekerrors.IOError(abs, err)
	}
	if !info.IsDir() {
		return "", ekerrors.New(ekerrors.ErrCodeInvalidPath, "not a directory: "+abs, nil).
			WithDetail("path", abs)
	}
	return abs, nil
}
