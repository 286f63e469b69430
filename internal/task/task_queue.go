package task

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Queue submission errors
var (
	ErrQueueClosed = errors.New("task queue is closed")
	ErrQueueFull   = errors.New("task queue is full")
)

// TaskQueue is the buffered channel between task submission and the worker
// pool. Submitters see it as a TaskQueueWriter, workers as a
// TaskQueueReader.
type TaskQueue struct {
	mu     sync.Mutex
	tasks  chan Task
	logger *slog.Logger
	closed bool
}

// NewTaskQueue creates a queue holding at most size tasks.
func NewTaskQueue(size int, logger *slog.Logger) *TaskQueue {
	return &TaskQueue{
		tasks:  make(chan Task, size),
		logger: logger,
	}
}

// Enqueue submits a task for processing. Submission never blocks: a full
// buffer returns ErrQueueFull so callers can surface back-pressure instead
// of stalling request handling.
func (q *TaskQueue) Enqueue(task Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.tasks <- task:
		q.logger.Debug("task enqueued",
			"task_id", task.ID(),
			"task_type", task.Type(),
			"queue_len", len(q.tasks))
		return nil
	default:
		return fmt.Errorf("%w: capacity %d reached", ErrQueueFull, cap(q.tasks))
	}
}

// Close stops accepting submissions and lets workers drain what remains.
func (q *TaskQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.tasks)
	}
}

// GetChannel exposes the consumption side of the queue.
func (q *TaskQueue) GetChannel() <-chan Task {
	return q.tasks
}
