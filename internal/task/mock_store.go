package task

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockTaskStore is an in-memory TaskStore for tests. SaveFn and
// UpdateStatusFn can be swapped to inject failures; the defaults keep
// tasks in a map guarded by the mutex.
type MockTaskStore struct {
	mutex           sync.RWMutex
	tasks           map[uuid.UUID]Task
	taskStatusTimes map[uuid.UUID]time.Time
	SaveFn          func(ctx context.Context, task Task) error
	UpdateStatusFn  func(ctx context.Context, taskID uuid.UUID, status TaskStatus, errorMsg string) error
}

// NewMockTaskStore creates a MockTaskStore with map-backed defaults.
func NewMockTaskStore() *MockTaskStore {
	store := &MockTaskStore{
		tasks:           make(map[uuid.UUID]Task),
		taskStatusTimes: make(map[uuid.UUID]time.Time),
	}

	store.SaveFn = func(ctx context.Context, task Task) error {
		store.mutex.Lock()
		defer store.mutex.Unlock()

		mockTask, ok := task.(*MockTask)
		if !ok {
			mockTask = NewMockTask(task.ID(), task.Type(), task.Payload())
			mockTask.TaskStatus = task.Status()
		}

		store.tasks[task.ID()] = mockTask
		store.taskStatusTimes[task.ID()] = time.Now()
		return nil
	}

	store.UpdateStatusFn = func(ctx context.Context, taskID uuid.UUID, status TaskStatus, errorMsg string) error {
		store.mutex.Lock()
		defer store.mutex.Unlock()

		task, exists := store.tasks[taskID]
		if !exists {
			// Missing tasks are a no-op so tests don't have to pre-seed.
			return nil
		}

		mockTask := task.(*MockTask)
		mockTask.TaskStatus = status
		store.tasks[taskID] = mockTask
		store.taskStatusTimes[taskID] = time.Now()
		return nil
	}

	return store
}

// SaveTask implements TaskStore.
func (s *MockTaskStore) SaveTask(ctx context.Context, task Task) error {
	return s.SaveFn(ctx, task)
}

// UpdateTaskStatus implements TaskStore.
func (s *MockTaskStore) UpdateTaskStatus(
	ctx context.Context,
	taskID uuid.UUID,
	status TaskStatus,
	errorMsg string,
) error {
	return s.UpdateStatusFn(ctx, taskID, status, errorMsg)
}

// GetPendingTasks returns every task currently in the pending state.
func (s *MockTaskStore) GetPendingTasks(ctx context.Context) ([]Task, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var pending []Task
	for _, task := range s.tasks {
		if task.Status() == TaskStatusPending {
			pending = append(pending, task)
		}
	}
	return pending, nil
}

// GetProcessingTasks returns processing tasks whose last status change is
// older than olderThan. A zero olderThan returns all of them.
func (s *MockTaskStore) GetProcessingTasks(ctx context.Context, olderThan time.Duration) ([]Task, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var processing []Task
	now := time.Now()
	for _, task := range s.tasks {
		if task.Status() != TaskStatusProcessing {
			continue
		}
		statusTime, exists := s.taskStatusTimes[task.ID()]
		if olderThan == 0 || (exists && now.Sub(statusTime) > olderThan) {
			processing = append(processing, task)
		}
	}
	return processing, nil
}

// GetTaskInfo returns a snapshot of a single task.
func (s *MockTaskStore) GetTaskInfo(ctx context.Context, taskID uuid.UUID) (*TaskInfo, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	t, exists := s.tasks[taskID]
	if !exists {
		return nil, ErrTaskNotFound
	}

	return &TaskInfo{
		ID:        t.ID(),
		Type:      t.Type(),
		Status:    t.Status(),
		UpdatedAt: s.taskStatusTimes[taskID],
	}, nil
}

// WithTx returns the store itself; the mock has no transaction scope.
func (s *MockTaskStore) WithTx(tx *sql.Tx) TaskStore {
	return s
}
