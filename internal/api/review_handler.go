package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/recallhq/engram-api/internal/api/shared"
	"github.com/recallhq/engram-api/internal/domain"
	"github.com/recallhq/engram-api/internal/platform/logger"
	"github.com/recallhq/engram-api/internal/redact"
	"github.com/recallhq/engram-api/internal/service/scheduler"
)

// ReviewHandler handles review recording and queue assembly HTTP requests.
type ReviewHandler struct {
	schedulerService scheduler.Service
	logger           *slog.Logger
}

// NewReviewHandler creates a new ReviewHandler.
func NewReviewHandler(
	schedulerService scheduler.Service,
	logger *slog.Logger,
) *ReviewHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for ReviewHandler")
	}

	return &ReviewHandler{
		schedulerService: schedulerService,
		logger:           logger.With(slog.String("component", "review_handler")),
	}
}

// RecordReview handles POST /cards/{id}/review requests.
// It records one review of a card and returns the updated memory state.
func (h *ReviewHandler) RecordReview(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	learnerID, cardID, ok := handleLearnerIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	var req RecordReviewRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		log.Warn("invalid request format",
			slog.String("error", redact.Error(err)),
			slog.String("learner_id", learnerID.String()),
			slog.String("card_id", cardID.String()))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.ValidateRequest(req); err != nil {
		log.Warn("validation error",
			slog.String("error", redact.Error(err)),
			slog.String("learner_id", learnerID.String()),
			slog.String("card_id", cardID.String()))
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	state, err := h.schedulerService.RecordReview(
		r.Context(),
		learnerID,
		cardID,
		domain.ReviewRating(req.Rating),
		req.SessionID,
	)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to record review")
		return
	}

	log.Debug("review recorded",
		slog.String("learner_id", learnerID.String()),
		slog.String("card_id", cardID.String()),
		slog.Int("rating", req.Rating))
	shared.RespondWithJSON(w, r, http.StatusOK, memoryStateToResponse(state))
}

// GetQueue handles GET /queue requests.
// It assembles an interleaved practice queue of due and new cards. An empty
// queue means the learner is done for now.
func (h *ReviewHandler) GetQueue(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	learnerID, ok := getLearnerIDFromContext(r)
	if !ok {
		log.Warn("learner ID not found or invalid in request context")
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Learner ID not found or invalid")
		return
	}

	cfg := scheduler.QueueConfig{
		NewCount: queryInt(r, "new_count", 0),
		MaxDue:   queryInt(r, "max_due", 0),
		MinDue:   queryInt(r, "min_due", 0),
	}

	items, err := h.schedulerService.AssembleQueue(r.Context(), learnerID, cfg)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to assemble queue")
		return
	}

	log.Debug("queue assembled",
		slog.String("learner_id", learnerID.String()),
		slog.Int("item_count", len(items)))
	shared.RespondWithJSON(w, r, http.StatusOK, queueItemsToResponse(items))
}

// GetDueCards handles GET /cards/due requests.
// It returns the learner's currently due cards joined with content.
func (h *ReviewHandler) GetDueCards(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	learnerID, ok := getLearnerIDFromContext(r)
	if !ok {
		log.Warn("learner ID not found or invalid in request context")
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Learner ID not found or invalid")
		return
	}

	limit := queryInt(r, "limit", 0)

	items, err := h.schedulerService.GetDueCards(r.Context(), learnerID, limit)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get due cards")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, queueItemsToResponse(items))
}

// GetCandidates handles GET /cards/candidates requests.
// It returns a randomized sample of cards the learner is likely to recall
// right now, for exercise types that draw on confident material.
func (h *ReviewHandler) GetCandidates(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	learnerID, ok := getLearnerIDFromContext(r)
	if !ok {
		log.Warn("learner ID not found or invalid in request context")
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Learner ID not found or invalid")
		return
	}

	items, err := h.schedulerService.SelectCandidates(r.Context(), learnerID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to select candidate cards")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, queueItemsToResponse(items))
}

// queryInt parses a non-negative integer query parameter, falling back to
// the default on absence or malformed input.
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return def
	}
	return v
}
