package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/recallhq/engram-api/internal/api/shared"
	"github.com/recallhq/engram-api/internal/platform/logger"
	"github.com/recallhq/engram-api/internal/task"
)

// JobService is the slice of the maintenance job service the handler needs:
// submit rebuild/optimize jobs and read back their status.
type JobService interface {
	RequestRebuild(ctx context.Context, learnerID uuid.UUID) (uuid.UUID, error)
	RequestOptimization(ctx context.Context, learnerID uuid.UUID) (uuid.UUID, error)
	GetJobStatus(ctx context.Context, jobID uuid.UUID) (*task.TaskInfo, error)
}

// JobHandler handles background maintenance job HTTP requests.
type JobHandler struct {
	jobService JobService
	logger     *slog.Logger
}

// NewJobHandler creates a new JobHandler.
func NewJobHandler(jobService JobService, logger *slog.Logger) *JobHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for JobHandler")
	}

	return &JobHandler{
		jobService: jobService,
		logger:     logger.With(slog.String("component", "job_handler")),
	}
}

// RequestRebuild handles POST /learners/me/rebuild requests.
// It submits a cache rebuild job for the authenticated learner and returns
// the job handle with 202 Accepted.
func (h *JobHandler) RequestRebuild(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, task.TaskTypeCacheRebuild, h.jobService.RequestRebuild)
}

// RequestOptimization handles POST /learners/me/optimize requests.
// It submits a parameter optimization job for the authenticated learner and
// returns the job handle with 202 Accepted.
func (h *JobHandler) RequestOptimization(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, task.TaskTypeParameterOptimization, h.jobService.RequestOptimization)
}

// GetJobStatus handles GET /jobs/{id} requests.
// Failed jobs surface their terminal error message here.
func (h *JobHandler) GetJobStatus(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	_, jobID, ok := handleLearnerIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	info, err := h.jobService.GetJobStatus(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, task.ErrTaskNotFound) {
			shared.RespondWithError(w, r, http.StatusNotFound, "Job not found")
			return
		}
		HandleAPIError(w, r, err, "Failed to get job status")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, JobResponse{
		JobID:  info.ID,
		Type:   info.Type,
		Status: string(info.Status),
		Error:  info.ErrorMessage,
	})
}

// submit runs the common submission flow for both job types.
func (h *JobHandler) submit(
	w http.ResponseWriter,
	r *http.Request,
	taskType string,
	request func(ctx context.Context, learnerID uuid.UUID) (uuid.UUID, error),
) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	learnerID, ok := getLearnerIDFromContext(r)
	if !ok {
		log.Warn("learner ID not found or invalid in request context")
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Learner ID not found or invalid")
		return
	}

	jobID, err := request(r.Context(), learnerID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to submit job")
		return
	}

	log.Info("maintenance job submitted",
		slog.String("job_id", jobID.String()),
		slog.String("job_type", taskType),
		slog.String("learner_id", learnerID.String()))
	shared.RespondWithJSON(w, r, http.StatusAccepted, JobResponse{
		JobID:  jobID,
		Type:   taskType,
		Status: string(task.TaskStatusPending),
	})
}
