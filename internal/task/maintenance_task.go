package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// Status constants used internally by maintenance tasks.
// These match the TaskStatus values defined in task.go
const (
	statusPending    = "pending"
	statusProcessing = "processing"
	statusCompleted  = "completed"
	statusFailed     = "failed"
)

// Common errors
var (
	ErrNilRebuilder  = errors.New("cache rebuilder cannot be nil")
	ErrNilOptimizer  = errors.New("parameter optimizer cannot be nil")
	ErrNilLogger     = errors.New("logger cannot be nil")
	ErrEmptyLearner  = errors.New("learner ID cannot be empty")
	ErrUnknownType   = errors.New("unknown task type")
)

// CacheRebuilder defines the operation a cache rebuild task delegates to.
type CacheRebuilder interface {
	// RebuildCache replays the learner's review history and replaces their
	// memory state cache with the recomputed rows.
	RebuildCache(ctx context.Context, learnerID uuid.UUID) error
}

// ParameterOptimizer defines the operation a parameter optimization task
// delegates to.
type ParameterOptimizer interface {
	// OptimizeParameters fits personalized model weights from the learner's
	// review history and activates the new version.
	OptimizeParameters(ctx context.Context, learnerID uuid.UUID) error
}

// maintenancePayload represents the serialized data stored with a
// maintenance task. Both task types operate on a single learner.
type maintenancePayload struct {
	LearnerID uuid.UUID `json:"learner_id"`
}

// CacheRebuildTask implements the Task interface for rebuilding a learner's
// memory state cache from their review history.
type CacheRebuildTask struct {
	id        uuid.UUID
	learnerID uuid.UUID
	rebuilder CacheRebuilder
	logger    *slog.Logger
	status    string
}

// NewCacheRebuildTask creates a new cache rebuild task for the learner.
func NewCacheRebuildTask(
	learnerID uuid.UUID,
	rebuilder CacheRebuilder,
	logger *slog.Logger,
) (*CacheRebuildTask, error) {
	if rebuilder == nil {
		return nil, ErrNilRebuilder
	}
	if logger == nil {
		return nil, ErrNilLogger
	}
	if learnerID == uuid.Nil {
		return nil, ErrEmptyLearner
	}

	return &CacheRebuildTask{
		id:        uuid.New(),
		learnerID: learnerID,
		rebuilder: rebuilder,
		logger:    logger.With("task_type", TaskTypeCacheRebuild, "learner_id", learnerID),
		status:    statusPending,
	}, nil
}

// ID returns the task's unique identifier
func (t *CacheRebuildTask) ID() uuid.UUID {
	return t.id
}

// Type returns the task type identifier
func (t *CacheRebuildTask) Type() string {
	return TaskTypeCacheRebuild
}

// Payload returns the task data as a byte slice
func (t *CacheRebuildTask) Payload() []byte {
	return marshalMaintenancePayload(t.learnerID, t.logger)
}

// Status returns the current task status
func (t *CacheRebuildTask) Status() TaskStatus {
	return TaskStatus(t.status)
}

// Execute runs the cache rebuild. The heavy lifting lives in the rebuilder;
// the task only tracks lifecycle status and wraps errors.
func (t *CacheRebuildTask) Execute(ctx context.Context) error {
	t.status = statusProcessing
	t.logger.Info("starting cache rebuild task")

	if err := ctx.Err(); err != nil {
		t.status = statusFailed
		t.logger.Error("task cancelled by context", "error", err)
		return fmt.Errorf("task cancelled by context: %w", err)
	}

	if err := t.rebuilder.RebuildCache(ctx, t.learnerID); err != nil {
		t.status = statusFailed
		t.logger.Error("cache rebuild failed", "error", err)
		return fmt.Errorf("cache rebuild failed: %w", err)
	}

	t.status = statusCompleted
	t.logger.Info("cache rebuild task completed successfully")
	return nil
}

// ParameterOptimizationTask implements the Task interface for fitting
// personalized memory model weights for a learner.
type ParameterOptimizationTask struct {
	id        uuid.UUID
	learnerID uuid.UUID
	optimizer ParameterOptimizer
	logger    *slog.Logger
	status    string
}

// NewParameterOptimizationTask creates a new parameter optimization task
// for the learner.
func NewParameterOptimizationTask(
	learnerID uuid.UUID,
	optimizer ParameterOptimizer,
	logger *slog.Logger,
) (*ParameterOptimizationTask, error) {
	if optimizer == nil {
		return nil, ErrNilOptimizer
	}
	if logger == nil {
		return nil, ErrNilLogger
	}
	if learnerID == uuid.Nil {
		return nil, ErrEmptyLearner
	}

	return &ParameterOptimizationTask{
		id:        uuid.New(),
		learnerID: learnerID,
		optimizer: optimizer,
		logger:    logger.With("task_type", TaskTypeParameterOptimization, "learner_id", learnerID),
		status:    statusPending,
	}, nil
}

// ID returns the task's unique identifier
func (t *ParameterOptimizationTask) ID() uuid.UUID {
	return t.id
}

// Type returns the task type identifier
func (t *ParameterOptimizationTask) Type() string {
	return TaskTypeParameterOptimization
}

// Payload returns the task data as a byte slice
func (t *ParameterOptimizationTask) Payload() []byte {
	return marshalMaintenancePayload(t.learnerID, t.logger)
}

// Status returns the current task status
func (t *ParameterOptimizationTask) Status() TaskStatus {
	return TaskStatus(t.status)
}

// Execute runs the optimization. A learner below the observation threshold
// is not an error: the optimizer reports that as a successful skip.
func (t *ParameterOptimizationTask) Execute(ctx context.Context) error {
	t.status = statusProcessing
	t.logger.Info("starting parameter optimization task")

	if err := ctx.Err(); err != nil {
		t.status = statusFailed
		t.logger.Error("task cancelled by context", "error", err)
		return fmt.Errorf("task cancelled by context: %w", err)
	}

	if err := t.optimizer.OptimizeParameters(ctx, t.learnerID); err != nil {
		t.status = statusFailed
		t.logger.Error("parameter optimization failed", "error", err)
		return fmt.Errorf("parameter optimization failed: %w", err)
	}

	t.status = statusCompleted
	t.logger.Info("parameter optimization task completed successfully")
	return nil
}

// marshalMaintenancePayload serializes the learner payload shared by both
// maintenance task types.
func marshalMaintenancePayload(learnerID uuid.UUID, logger *slog.Logger) []byte {
	data, err := json.Marshal(maintenancePayload{LearnerID: learnerID})
	if err != nil {
		logger.Error("failed to marshal task payload", "error", err)
		return []byte{}
	}
	return data
}
