// Package async provides the keyed background task queue that serializes
// indexing work.
package async

import "fmt"

// TaskState is the lifecycle state of a queued task.
type TaskState int32

const (
	// TaskPending means the task waits for its predecessor or a worker.
	TaskPending TaskState = iota
	// TaskRunning means the task's work is executing.
	TaskRunning
	// TaskCompleted means the work returned nil.
	TaskCompleted
	// TaskCanceled means the task was skipped or interrupted by cancellation.
	TaskCanceled
	// TaskFailed means the work returned an error or panicked.
	TaskFailed
)

// String returns the lower-case name of the state.
func (s TaskState) String() string {
	switch s {
	case TaskPending:
		return "pending"
	case TaskRunning:
		return "running"
	case TaskCompleted:
		return "completed"
	case TaskCanceled:
		return "canceled"
	case TaskFailed:
		return "failed"
	default:
		return fmt.Sprintf("TaskState(%d)", int32(s))
	}
}

// Done reports whether s is a terminal state.
func (s TaskState) Done() bool {
	return s >= TaskCompleted
}

// QueueStats is an immutable snapshot of queue activity.
type QueueStats struct {
	Submitted int64 `json:"submitted"`
	Completed int64 `json:"completed"`
	Canceled  int64 `json:"canceled"`
	Failed    int64 `json:"failed"`
	Pending   int64 `json:"pending"`
	// Keys is the number of queue-keys with unfinished work.
	Keys int `json:"keys"`
}

// Idle reports whether nothing was pending when the snapshot was taken.
func (s QueueStats) Idle() bool {
	return s.Pending == 0
}
