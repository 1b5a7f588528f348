package async

import (
	"context"
	"errors"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Work is the unit of work run by a task. It should return promptly once
// ctx is done; work that ignores ctx runs to completion.
type Work func(ctx context.Context) error

// Task is a handle to work submitted with TaskQueue.QueueTask.
type Task struct {
	key             string
	cancellationKey string

	state atomic.Int32
	done  chan struct{}
	err   error // written once, before done is closed
}

func newTask(key, cancellationKey string) *Task {
	return &Task{
		key:             key,
		cancellationKey: cancellationKey,
		done:            make(chan struct{}),
	}
}

// Key returns the queue-key the task was submitted under.
func (t *Task) Key() string { return t.key }

// CancellationKey returns the cancellation-key, or "" if none.
func (t *Task) CancellationKey() string { return t.cancellationKey }

// Done returns a channel closed once the task reaches a terminal state.
func (t *Task) Done() <-chan struct{} { return t.done }

// State returns the current lifecycle state.
func (t *Task) State() TaskState {
	return TaskState(t.state.Load())
}

// Err returns the task's outcome once it is done: nil on success, an error
// matching context.Canceled on cancellation, the work's error on failure.
// It returns nil while the task is still pending or running.
func (t *Task) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// Wait blocks until the task is done or ctx ends, and returns Err.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Task) isDone() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

func (t *Task) finish(state TaskState, err error) {
	t.err = err
	t.state.Store(int32(state))
	close(t.done)
}

// IsCanceled reports whether err is a cancellation outcome.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}

// WaitAll waits for every task and returns the first failure, if any.
// Canceled tasks are not failures. One task failing never stops the wait
// for its siblings; only ctx ending does.
func WaitAll(ctx context.Context, tasks ...*Task) error {
	var g errgroup.Group
	for _, t := range tasks {
		if t == nil {
			continue
		}
		g.Go(func() error {
			select {
			case <-t.done:
			case <-ctx.Done():
				return ctx.Err()
			}
			if IsCanceled(t.err) {
				return nil
			}
			return t.err
		})
	}
	return g.Wait()
}
