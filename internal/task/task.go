package task

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrTaskNotFound is returned when a task row does not exist.
var ErrTaskNotFound = errors.New("task not found")

// TaskStatus is the lifecycle state of a persisted task.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Task type identifiers.
const (
	// TaskTypeCacheRebuild rebuilds a learner's memory state cache by
	// replaying their full review history.
	TaskTypeCacheRebuild = "cache_rebuild"

	// TaskTypeParameterOptimization fits personalized memory model weights
	// from a learner's review history.
	TaskTypeParameterOptimization = "parameter_optimization"
)

// Task is a unit of background work. Implementations carry their own
// payload and know how to execute themselves.
type Task interface {
	ID() uuid.UUID
	Type() string

	// Payload returns the serialized task arguments as stored in the
	// tasks table.
	Payload() []byte

	Status() TaskStatus

	// Execute runs the task. The context is canceled when the worker
	// pool shuts down.
	Execute(ctx context.Context) error
}

// TaskQueueReader is the consumer side of the queue, handed to workers.
type TaskQueueReader interface {
	GetChannel() <-chan Task
}

// TaskQueueWriter is the producer side of the queue, handed to services.
type TaskQueueWriter interface {
	// Enqueue adds a task for processing. Returns ErrQueueFull or
	// ErrQueueClosed when the task cannot be accepted.
	Enqueue(task Task) error

	// Close stops the queue from accepting further tasks.
	Close()
}

// TaskInfo is a read-only snapshot of a persisted task row, including the
// terminal error message that Task itself does not expose.
type TaskInfo struct {
	ID           uuid.UUID  `json:"id"`
	Type         string     `json:"type"`
	Status       TaskStatus `json:"status"`
	ErrorMessage string     `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// TaskStore persists tasks so queued work survives restarts.
type TaskStore interface {
	SaveTask(ctx context.Context, task Task) error

	// UpdateTaskStatus records a status transition; errorMsg is stored
	// for failed tasks and ignored otherwise.
	UpdateTaskStatus(ctx context.Context, taskID uuid.UUID, status TaskStatus, errorMsg string) error

	// GetPendingTasks returns tasks waiting to run, used for crash recovery.
	GetPendingTasks(ctx context.Context) ([]Task, error)

	// GetProcessingTasks returns tasks stuck in the processing state. A
	// non-zero olderThan limits results to tasks that have been there
	// longer than that duration.
	GetProcessingTasks(ctx context.Context, olderThan time.Duration) ([]Task, error)

	// GetTaskInfo returns the persisted snapshot of one task, or
	// ErrTaskNotFound.
	GetTaskInfo(ctx context.Context, taskID uuid.UUID) (*TaskInfo, error)

	// WithTx returns a TaskStore bound to the given transaction.
	WithTx(tx *sql.Tx) TaskStore
}
