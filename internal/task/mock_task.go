package task

import (
	"context"

	"github.com/google/uuid"
)

// MockTask is a configurable Task implementation shared by the package's
// tests. Exported so wiring tests outside this package can submit
// synthetic tasks without a database.
type MockTask struct {
	TaskID      uuid.UUID
	TaskType    string
	TaskPayload []byte
	TaskStatus  TaskStatus
	ExecuteFn   func(ctx context.Context) error
}

// NewMockTask creates a pending mock task whose Execute succeeds.
func NewMockTask(id uuid.UUID, taskType string, payload []byte) *MockTask {
	return &MockTask{
		TaskID:      id,
		TaskType:    taskType,
		TaskPayload: payload,
		TaskStatus:  TaskStatusPending,
		ExecuteFn:   func(ctx context.Context) error { return nil },
	}
}

func (t *MockTask) ID() uuid.UUID      { return t.TaskID }
func (t *MockTask) Type() string       { return t.TaskType }
func (t *MockTask) Payload() []byte    { return t.TaskPayload }
func (t *MockTask) Status() TaskStatus { return t.TaskStatus }

func (t *MockTask) Execute(ctx context.Context) error {
	return t.ExecuteFn(ctx)
}
