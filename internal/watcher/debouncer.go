package watcher

import (
	"sort"
	"sync"
	"time"
)

// Debouncer coalesces rapid file events to prevent index thrashing.
// Events for the same path within the debounce window are merged according
// to these rules:
//   - CREATE + MODIFY = CREATE (file is still new)
//   - CREATE + DELETE = nothing (file never really existed)
//   - MODIFY + DELETE = DELETE (file is gone)
//   - DELETE + CREATE = MODIFY (file was replaced)
//
// A RENAME is never merged. It seals whatever is pending for both of its
// paths, so later events for those paths are reported after it.
//
// A flushed batch lists events in the order their paths were first seen.
type Debouncer struct {
	window   time.Duration
	pending  map[string]*pendingEvent
	sealed   []*pendingEvent
	seq      uint64
	mu       sync.Mutex
	output   chan []FileEvent
	timer    *time.Timer
	stopCh   chan struct{}
	stopOnce sync.Once
	stopped  bool
}

type pendingEvent struct {
	event   FileEvent
	firstOp Operation // first operation seen in the window, drives coalescing
	seq     uint64
}

// NewDebouncer creates a new debouncer with the given window duration.
// Events are coalesced within this window before being emitted.
func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{
		window:  window,
		pending: make(map[string]*pendingEvent),
		output:  make(chan []FileEvent, 10),
		stopCh:  make(chan struct{}),
	}
}

// Add adds an event to be debounced.
// Events for the same path are coalesced according to the coalescing rules.
func (d *Debouncer) Add(event FileEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.seq++

	if event.Operation == OpRename {
		d.seal(event.OldPath)
		d.seal(event.Path)
		d.sealed = append(d.sealed, &pendingEvent{event: event, firstOp: OpRename, seq: d.seq})
		d.scheduleFlush()
		return
	}

	path := event.Path
	if existing, ok := d.pending[path]; ok {
		coalesced := d.coalesce(existing, event)
		if coalesced == nil {
			// Events cancelled each other out (CREATE + DELETE)
			delete(d.pending, path)
		} else {
			existing.event = *coalesced
		}
	} else {
		d.pending[path] = &pendingEvent{
			event:   event,
			firstOp: event.Operation,
			seq:     d.seq,
		}
	}

	d.scheduleFlush()
}

// seal moves the pending event for path out of the coalescing map.
func (d *Debouncer) seal(path string) {
	if pe, ok := d.pending[path]; ok {
		delete(d.pending, path)
		d.sealed = append(d.sealed, pe)
	}
}

// coalesce merges two events according to the coalescing rules.
// Returns nil if the events cancel each other out.
func (d *Debouncer) coalesce(existing *pendingEvent, next FileEvent) *FileEvent {
	switch existing.firstOp {
	case OpCreate:
		switch next.Operation {
		case OpModify:
			// CREATE + MODIFY = CREATE (keep original)
			return &existing.event
		case OpDelete:
			// CREATE + DELETE = nothing
			return nil
		default:
			return &next
		}

	case OpDelete:
		if next.Operation == OpCreate {
			// DELETE + CREATE = MODIFY (file was replaced)
			result := next
			result.Operation = OpModify
			return &result
		}
		return &next

	default:
		// MODIFY + anything keeps the latest
		return &next
	}
}

// scheduleFlush schedules a flush after the debounce window.
func (d *Debouncer) scheduleFlush() {
	if d.timer != nil {
		d.timer.Stop()
	}

	d.timer = time.AfterFunc(d.window, func() {
		d.flush()
	})
}

// flush emits all pending events as one batch. The lock is held while
// sending so that batches leave in order; Stop unblocks a stuck send.
func (d *Debouncer) flush() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped || (len(d.pending) == 0 && len(d.sealed) == 0) {
		return
	}

	all := make([]*pendingEvent, 0, len(d.sealed)+len(d.pending))
	all = append(all, d.sealed...)
	for _, pe := range d.pending {
		all = append(all, pe)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].seq < all[j].seq })

	events := make([]FileEvent, len(all))
	for i, pe := range all {
		events[i] = pe.event
	}
	d.pending = make(map[string]*pendingEvent)
	d.sealed = nil

	select {
	case d.output <- events:
	case <-d.stopCh:
	}
}

// Pending returns the number of events waiting for the next flush.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending) + len(d.sealed)
}

// Output returns the channel of debounced events.
// Events are emitted as batches after the debounce window.
func (d *Debouncer) Output() <-chan []FileEvent {
	return d.output
}

// Stop stops the debouncer and closes the output channel.
// Pending events are discarded. Safe to call multiple times.
func (d *Debouncer) Stop() {
	// Closing stopCh before taking the lock releases a flush blocked on a
	// full output.
	d.stopOnce.Do(func() { close(d.stopCh) })

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	close(d.output)
}
