package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// TaskSubmitter is the narrow slice of the runner that the job service
// needs: persist a task and queue it for execution.
type TaskSubmitter interface {
	Submit(ctx context.Context, task Task) error
}

// TaskInfoReader reads persisted task snapshots for job status queries.
type TaskInfoReader interface {
	GetTaskInfo(ctx context.Context, taskID uuid.UUID) (*TaskInfo, error)
}

// MaintenanceJobService submits maintenance jobs on behalf of API callers
// and reports their status. The returned task ID is the job handle;
// terminal status and failure messages live on the task row.
type MaintenanceJobService struct {
	factory *MaintenanceTaskFactory
	runner  TaskSubmitter
	reader  TaskInfoReader
	logger  *slog.Logger
}

// NewMaintenanceJobService creates a new MaintenanceJobService.
func NewMaintenanceJobService(
	factory *MaintenanceTaskFactory,
	runner TaskSubmitter,
	reader TaskInfoReader,
	logger *slog.Logger,
) (*MaintenanceJobService, error) {
	if factory == nil {
		return nil, fmt.Errorf("factory cannot be nil")
	}
	if runner == nil {
		return nil, fmt.Errorf("runner cannot be nil")
	}
	if reader == nil {
		return nil, fmt.Errorf("reader cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &MaintenanceJobService{
		factory: factory,
		runner:  runner,
		reader:  reader,
		logger:  logger.With(slog.String("component", "maintenance_job_service")),
	}, nil
}

// RequestRebuild submits a cache rebuild job for the learner and returns
// the persisted task ID as the job handle.
func (s *MaintenanceJobService) RequestRebuild(
	ctx context.Context,
	learnerID uuid.UUID,
) (uuid.UUID, error) {
	return s.submit(ctx, TaskTypeCacheRebuild, learnerID)
}

// RequestOptimization submits a parameter optimization job for the learner
// and returns the persisted task ID as the job handle.
func (s *MaintenanceJobService) RequestOptimization(
	ctx context.Context,
	learnerID uuid.UUID,
) (uuid.UUID, error) {
	return s.submit(ctx, TaskTypeParameterOptimization, learnerID)
}

// GetJobStatus returns the persisted snapshot for a submitted job.
// Returns ErrTaskNotFound for unknown IDs.
func (s *MaintenanceJobService) GetJobStatus(
	ctx context.Context,
	jobID uuid.UUID,
) (*TaskInfo, error) {
	return s.reader.GetTaskInfo(ctx, jobID)
}

func (s *MaintenanceJobService) submit(
	ctx context.Context,
	taskType string,
	learnerID uuid.UUID,
) (uuid.UUID, error) {
	t, err := s.factory.CreateTask(taskType, learnerID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create %s task: %w", taskType, err)
	}

	if err := s.runner.Submit(ctx, t); err != nil {
		s.logger.Error("failed to submit maintenance task",
			slog.String("task_type", taskType),
			slog.String("learner_id", learnerID.String()),
			slog.String("error", err.Error()))
		return uuid.Nil, fmt.Errorf("failed to submit %s task: %w", taskType, err)
	}

	s.logger.Info("maintenance task submitted",
		slog.String("task_id", t.ID().String()),
		slog.String("task_type", taskType),
		slog.String("learner_id", learnerID.String()))

	return t.ID(), nil
}
