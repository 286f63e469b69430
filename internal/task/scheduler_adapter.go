package task

import (
	"context"

	"github.com/google/uuid"
	"github.com/recallhq/engram-api/internal/service/scheduler"
)

// SchedulerAdapter adapts the scheduler service to the narrow
// CacheRebuilder and ParameterOptimizer interfaces consumed by
// maintenance tasks, discarding result details the runner does not need.
type SchedulerAdapter struct {
	svc scheduler.Service
}

// NewSchedulerAdapter creates an adapter over the scheduler service.
func NewSchedulerAdapter(svc scheduler.Service) *SchedulerAdapter {
	return &SchedulerAdapter{svc: svc}
}

// RebuildCache implements CacheRebuilder.
func (a *SchedulerAdapter) RebuildCache(ctx context.Context, learnerID uuid.UUID) error {
	_, err := a.svc.RebuildCache(ctx, learnerID)
	return err
}

// OptimizeParameters implements ParameterOptimizer.
// A skipped optimization is a successful outcome for the task.
func (a *SchedulerAdapter) OptimizeParameters(ctx context.Context, learnerID uuid.UUID) error {
	_, err := a.svc.OptimizeParameters(ctx, learnerID)
	return err
}

// Ensure SchedulerAdapter satisfies both task dependencies
var (
	_ CacheRebuilder     = (*SchedulerAdapter)(nil)
	_ ParameterOptimizer = (*SchedulerAdapter)(nil)
)
