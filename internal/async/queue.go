package async

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	ekerrors "github.com/elastickilla/elastickilla/internal/errors"
	"github.com/elastickilla/elastickilla/internal/metrics"
)

// TaskQueue runs work in submission order per queue-key.
//
// Every queue-key keeps a tail task. A new task waits for the current tail
// before running and then becomes the tail itself, which makes the work for
// one key a FIFO chain. Different keys do not wait on each other. With
// WithWorkers, a weighted semaphore bounds how many run at once overall;
// without it a slow task only holds up its own key.
//
// Tasks submitted with a cancellation-key share a context per key.
// CancelTasks cancels that context: tasks of the group that have not
// started are skipped, the running one sees ctx.Done(). A canceled task
// still completes, so whatever follows it in the chain runs normally.
//
// TaskQueue is safe for concurrent use.
type TaskQueue struct {
	// mu guards tails and closed. Submitting takes the write lock; Pause
	// holds the read lock for as long as the caller needs a quiet queue.
	mu     sync.RWMutex
	tails  map[string]*Task
	closed bool

	groupsMu sync.Mutex
	groups   map[string]*cancelGroup

	base context.Context
	stop context.CancelFunc

	workers int64
	sem     *semaphore.Weighted // nil when unbounded
	logger  *slog.Logger
	metrics *metrics.Metrics

	submitted atomic.Int64
	completed atomic.Int64
	canceled  atomic.Int64
	failed    atomic.Int64
}

type cancelGroup struct {
	ctx    context.Context
	cancel context.CancelFunc
	refs   int
}

// QueueOption configures a TaskQueue.
type QueueOption func(*TaskQueue)

// WithWorkers bounds how many tasks run at the same time across all keys.
// Values below 1 mean no bound.
func WithWorkers(n int) QueueOption {
	return func(q *TaskQueue) {
		q.workers = int64(n)
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) QueueOption {
	return func(q *TaskQueue) {
		q.logger = l
	}
}

// WithMetrics records task activity in m.
func WithMetrics(m *metrics.Metrics) QueueOption {
	return func(q *TaskQueue) {
		q.metrics = m
	}
}

// NewTaskQueue creates an empty queue.
func NewTaskQueue(opts ...QueueOption) *TaskQueue {
	q := &TaskQueue{
		tails:  make(map[string]*Task),
		groups: make(map[string]*cancelGroup),
	}
	for _, opt := range opts {
		opt(q)
	}
	if q.logger == nil {
		q.logger = slog.Default()
	}
	q.logger = q.logger.With(slog.String("component", "queue"))
	if q.workers > 0 {
		q.sem = semaphore.NewWeighted(q.workers)
	}
	q.base, q.stop = context.WithCancel(context.Background())
	return q
}

// QueueTask schedules work to run after every task previously queued
// under key. If cancellationKey is not empty, the task joins that
// cancellation group.
//
// QueueTask returns immediately. After Close it returns a task that is
// already canceled.
func (q *TaskQueue) QueueTask(key string, work Work, cancellationKey string) *Task {
	t := newTask(key, cancellationKey)

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		t.finish(TaskCanceled, fmt.Errorf("%w: %w",
			ekerrors.New(ekerrors.ErrCodeQueueClosed, "task queue is closed", nil), context.Canceled))
		return t
	}
	if work == nil {
		t.finish(TaskCompleted, nil)
		return t
	}

	q.prune()
	prev := q.tails[key]
	q.tails[key] = t

	ctx, release := q.joinGroup(cancellationKey)

	q.submitted.Add(1)
	q.metrics.TaskSubmitted()

	go q.run(ctx, release, prev, t, work)
	return t
}

// prune drops tails that already finished. Caller holds q.mu for writing.
func (q *TaskQueue) prune() {
	for key, tail := range q.tails {
		if tail.isDone() {
			delete(q.tails, key)
		}
	}
}

func (q *TaskQueue) joinGroup(cancellationKey string) (context.Context, func()) {
	if cancellationKey == "" {
		return q.base, func() {}
	}

	q.groupsMu.Lock()
	defer q.groupsMu.Unlock()

	g, ok := q.groups[cancellationKey]
	if !ok {
		ctx, cancel := context.WithCancel(q.base)
		g = &cancelGroup{ctx: ctx, cancel: cancel}
		q.groups[cancellationKey] = g
	}
	g.refs++

	return g.ctx, func() {
		q.groupsMu.Lock()
		defer q.groupsMu.Unlock()

		g.refs--
		if g.refs > 0 {
			return
		}
		if q.groups[cancellationKey] == g {
			delete(q.groups, cancellationKey)
		}
		g.cancel()
	}
}

// CancelTasks cancels every unfinished task submitted with cancellationKey.
// Tasks queued later with the same key form a new group and are not
// affected.
func (q *TaskQueue) CancelTasks(cancellationKey string) {
	if cancellationKey == "" {
		return
	}

	q.groupsMu.Lock()
	g, ok := q.groups[cancellationKey]
	if ok {
		delete(q.groups, cancellationKey)
	}
	q.groupsMu.Unlock()

	if ok {
		g.cancel()
		q.logger.Debug("tasks canceled", slog.String("cancellation_key", cancellationKey))
	}
}

func (q *TaskQueue) run(ctx context.Context, release func(), prev *Task, t *Task, work Work) {
	if prev != nil {
		<-prev.done
	}

	if err := ctx.Err(); err != nil {
		release()
		q.finish(t, TaskCanceled, err, 0)
		return
	}
	if err := q.acquire(ctx); err != nil {
		release()
		q.finish(t, TaskCanceled, err, 0)
		return
	}

	t.state.Store(int32(TaskRunning))
	start := time.Now()
	err := q.execute(ctx, t, work)
	took := time.Since(start)
	if q.sem != nil {
		q.sem.Release(1)
	}
	release()

	switch {
	case err == nil:
		q.finish(t, TaskCompleted, nil, took)
	case ctx.Err() != nil || IsCanceled(err):
		q.finish(t, TaskCanceled, err, took)
	default:
		q.finish(t, TaskFailed, err, took)
	}
}

// acquire takes a worker slot when the queue is bounded.
func (q *TaskQueue) acquire(ctx context.Context) error {
	if q.sem == nil {
		return nil
	}
	return q.sem.Acquire(ctx, 1)
}

// execute runs work and turns a panic into an internal error so that the
// chain behind it keeps moving.
func (q *TaskQueue) execute(ctx context.Context, t *Task, work Work) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = ekerrors.InternalError(fmt.Sprintf("task panicked: %v", r), nil).
				WithDetail("queue_key", t.key).
				WithDetail("cancellation_key", t.cancellationKey)
		}
	}()
	return work(ctx)
}

func (q *TaskQueue) finish(t *Task, state TaskState, err error, took time.Duration) {
	switch state {
	case TaskCompleted:
		q.completed.Add(1)
		q.metrics.TaskFinished(metrics.OutcomeCompleted, took)
	case TaskCanceled:
		q.canceled.Add(1)
		q.metrics.TaskFinished(metrics.OutcomeCanceled, took)
		q.logger.Debug("task canceled",
			slog.String("queue_key", t.key),
			slog.String("cancellation_key", t.cancellationKey))
	case TaskFailed:
		q.failed.Add(1)
		q.metrics.TaskFinished(metrics.OutcomeFailed, took)
		q.logger.Warn("task failed", append([]any{
			slog.String("queue_key", t.key),
			slog.String("cancellation_key", t.cancellationKey),
		}, ekerrors.LogAttrs(err)...)...)
	}
	t.finish(state, err)
}

// IsEmpty reports whether every queued task has finished.
func (q *TaskQueue) IsEmpty() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	for _, tail := range q.tails {
		if !tail.isDone() {
			return false
		}
	}
	return true
}

// Pause blocks new submissions and waits until every queued task has
// finished. The caller must call release once it is done with the quiet
// queue; release is safe to call more than once.
//
// Work running inside the queue must not call Pause or QueueTask on the
// same queue while a Pause is pending, or both wait forever.
//
// If ctx ends first, Pause gives up, unblocks submissions and returns
// ctx.Err().
func (q *TaskQueue) Pause(ctx context.Context) (release func(), err error) {
	q.mu.RLock()

	// Tails cannot change while the read lock is held, and each tail only
	// finishes after everything before it in its chain.
	for _, tail := range q.tails {
		select {
		case <-tail.done:
		case <-ctx.Done():
			q.mu.RUnlock()
			return nil, ctx.Err()
		}
	}

	var once sync.Once
	return func() { once.Do(q.mu.RUnlock) }, nil
}

// Close rejects further submissions and waits for queued work to finish.
// If ctx ends first, running work is canceled and ctx.Err() is returned.
// Calling Close again is a no-op.
func (q *TaskQueue) Close(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	q.mu.Unlock()

	release, err := q.Pause(ctx)
	if err != nil {
		q.stop()
		q.logger.Warn("queue closed before draining", slog.String("error", err.Error()))
		return err
	}
	release()
	q.stop()

	q.logger.Debug("queue closed", slog.Int64("completed", q.completed.Load()))
	return nil
}

// Stats returns a snapshot of queue activity.
func (q *TaskQueue) Stats() QueueStats {
	q.mu.RLock()
	keys := 0
	for _, tail := range q.tails {
		if !tail.isDone() {
			keys++
		}
	}
	q.mu.RUnlock()

	s := QueueStats{
		Submitted: q.submitted.Load(),
		Completed: q.completed.Load(),
		Canceled:  q.canceled.Load(),
		Failed:    q.failed.Load(),
		Keys:      keys,
	}
	s.Pending = s.Submitted - s.Completed - s.Canceled - s.Failed
	return s
}
