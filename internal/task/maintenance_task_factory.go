package task

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// MaintenanceTaskFactory creates maintenance task instances, both for fresh
// submissions and for tasks recovered from the database after a restart.
type MaintenanceTaskFactory struct {
	rebuilder CacheRebuilder
	optimizer ParameterOptimizer
	logger    *slog.Logger
}

// NewMaintenanceTaskFactory creates a new factory for maintenance tasks.
func NewMaintenanceTaskFactory(
	rebuilder CacheRebuilder,
	optimizer ParameterOptimizer,
	logger *slog.Logger,
) *MaintenanceTaskFactory {
	return &MaintenanceTaskFactory{
		rebuilder: rebuilder,
		optimizer: optimizer,
		logger:    logger.With("component", "maintenance_task_factory"),
	}
}

// CreateTask creates a new task of the given type for the learner.
func (f *MaintenanceTaskFactory) CreateTask(taskType string, learnerID uuid.UUID) (Task, error) {
	switch taskType {
	case TaskTypeCacheRebuild:
		return NewCacheRebuildTask(learnerID, f.rebuilder, f.logger)
	case TaskTypeParameterOptimization:
		return NewParameterOptimizationTask(learnerID, f.optimizer, f.logger)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, taskType)
	}
}

// Rehydrate rebinds execution logic to a task loaded from the database,
// using the persisted payload to recover the target learner.
func (f *MaintenanceTaskFactory) Rehydrate(
	taskType string,
	payload []byte,
) (func(ctx context.Context) error, error) {
	var p maintenancePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task payload: %w", err)
	}
	if p.LearnerID == uuid.Nil {
		return nil, ErrEmptyLearner
	}

	switch taskType {
	case TaskTypeCacheRebuild:
		return func(ctx context.Context) error {
			return f.rebuilder.RebuildCache(ctx, p.LearnerID)
		}, nil
	case TaskTypeParameterOptimization:
		return func(ctx context.Context) error {
			return f.optimizer.OptimizeParameters(ctx, p.LearnerID)
		}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, taskType)
	}
}
