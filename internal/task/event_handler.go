package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/recallhq/engram-api/internal/events"
)

// TaskFactoryEventHandler implements the events.EventHandler interface.
// It turns task request events into concrete maintenance tasks and submits
// them to the runner, so services can request background work without
// importing this package.
type TaskFactoryEventHandler struct {
	taskFactory *MaintenanceTaskFactory
	taskRunner  interface {
		Submit(ctx context.Context, task Task) error
	}
	logger *slog.Logger
}

// NewTaskFactoryEventHandler creates a new event handler that uses the given
// task factory to create tasks, and submits them to the provided task runner.
func NewTaskFactoryEventHandler(
	taskFactory *MaintenanceTaskFactory,
	taskRunner interface {
		Submit(ctx context.Context, task Task) error
	},
	logger *slog.Logger,
) *TaskFactoryEventHandler {
	return &TaskFactoryEventHandler{
		taskFactory: taskFactory,
		taskRunner:  taskRunner,
		logger:      logger.With("component", "task_factory_event_handler"),
	}
}

// HandleEvent processes task request events by creating and submitting the
// matching maintenance task. Events with unrecognized types are ignored so
// other handlers can claim them.
func (h *TaskFactoryEventHandler) HandleEvent(
	ctx context.Context,
	event *events.TaskRequestEvent,
) error {
	switch event.Type {
	case TaskTypeCacheRebuild, TaskTypeParameterOptimization:
	default:
		h.logger.Debug("ignoring event with unsupported type",
			"event_type", event.Type,
			"event_id", event.ID)
		return nil
	}

	var payload struct {
		LearnerID string `json:"learner_id"`
	}
	if err := event.UnmarshalPayload(&payload); err != nil {
		h.logger.Error("failed to unmarshal payload", "error", err, "event_id", event.ID)
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	learnerID, err := uuid.Parse(payload.LearnerID)
	if err != nil {
		h.logger.Error("invalid learner ID",
			"error", err,
			"learner_id", payload.LearnerID,
			"event_id", event.ID)
		return fmt.Errorf("invalid learner ID: %w", err)
	}

	h.logger.Debug("creating task for learner",
		"learner_id", learnerID,
		"event_type", event.Type,
		"event_id", event.ID)
	t, err := h.taskFactory.CreateTask(event.Type, learnerID)
	if err != nil {
		h.logger.Error("failed to create task",
			"error", err,
			"learner_id", learnerID,
			"event_id", event.ID)
		return fmt.Errorf("failed to create task: %w", err)
	}

	if err := h.taskRunner.Submit(ctx, t); err != nil {
		h.logger.Error("failed to submit task",
			"error", err,
			"task_id", t.ID(),
			"learner_id", learnerID,
			"event_id", event.ID)
		return fmt.Errorf("failed to submit task: %w", err)
	}

	h.logger.Info("task created and submitted successfully",
		"task_id", t.ID(),
		"task_type", t.Type(),
		"learner_id", learnerID,
		"event_id", event.ID)
	return nil
}

// Ensure TaskFactoryEventHandler implements events.EventHandler
var _ events.EventHandler = (*TaskFactoryEventHandler)(nil)
