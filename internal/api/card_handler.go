// Package api provides HTTP handlers for the API.
package api

import (
	"log/slog"
	"net/http"

	"github.com/recallhq/engram-api/internal/api/shared"
	"github.com/recallhq/engram-api/internal/domain"
	"github.com/recallhq/engram-api/internal/platform/logger"
	"github.com/recallhq/engram-api/internal/redact"
	"github.com/recallhq/engram-api/internal/service"
)

// CardHandler handles card assignment HTTP requests.
type CardHandler struct {
	assignmentService service.AssignmentService
	logger            *slog.Logger
}

// NewCardHandler creates a new CardHandler.
func NewCardHandler(
	assignmentService service.AssignmentService,
	logger *slog.Logger,
) *CardHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for CardHandler")
	}

	return &CardHandler{
		assignmentService: assignmentService,
		logger:            logger.With(slog.String("component", "card_handler")),
	}
}

// AssignCards handles POST /cards requests.
// It assigns a batch of cards to the authenticated learner, creating each
// card together with its baseline memory state.
func (h *CardHandler) AssignCards(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	learnerID, ok := getLearnerIDFromContext(r)
	if !ok {
		log.Warn("learner ID not found or invalid in request context")
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Learner ID not found or invalid")
		return
	}

	var req AssignCardsRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		log.Warn("invalid request format",
			slog.String("error", redact.Error(err)),
			slog.String("learner_id", learnerID.String()))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	cards := make([]*domain.Card, 0, len(req.Cards))
	for _, item := range req.Cards {
		card, err := domain.NewCard(learnerID, item.Content, item.Position)
		if err != nil {
			shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid card data", err)
			return
		}
		cards = append(cards, card)
	}

	if err := h.assignmentService.AssignCards(r.Context(), cards); err != nil {
		HandleAPIError(w, r, err, "Failed to assign cards")
		return
	}

	resp := AssignCardsResponse{Cards: make([]CardResponse, 0, len(cards))}
	for _, card := range cards {
		resp.Cards = append(resp.Cards, cardToResponse(card))
	}
	resp.Count = len(resp.Cards)

	log.Info("cards assigned",
		slog.String("learner_id", learnerID.String()),
		slog.Int("count", resp.Count))
	shared.RespondWithJSON(w, r, http.StatusCreated, resp)
}

// ListAssigned handles GET /cards requests.
// It returns the learner's assigned cards in introduction order.
func (h *CardHandler) ListAssigned(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	learnerID, ok := getLearnerIDFromContext(r)
	if !ok {
		log.Warn("learner ID not found or invalid in request context")
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Learner ID not found or invalid")
		return
	}

	cards, err := h.assignmentService.ListAssigned(r.Context(), learnerID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list assigned cards")
		return
	}

	resp := AssignCardsResponse{Cards: make([]CardResponse, 0, len(cards))}
	for _, card := range cards {
		resp.Cards = append(resp.Cards, cardToResponse(card))
	}
	resp.Count = len(resp.Cards)

	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// GetCard handles GET /cards/{id} requests.
// Learners can only see their own cards.
func (h *CardHandler) GetCard(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	learnerID, cardID, ok := handleLearnerIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	card, err := h.assignmentService.GetCard(r.Context(), cardID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get card")
		return
	}

	// Ownership check: don't reveal other learners' cards
	if card.LearnerID != learnerID {
		shared.RespondWithError(w, r, http.StatusNotFound, "Card not found")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, cardToResponse(card))
}

// RevokeCard handles DELETE /cards/{id} requests.
// It removes the card and its memory state row; review history is kept.
func (h *CardHandler) RevokeCard(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	learnerID, cardID, ok := handleLearnerIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	if err := h.assignmentService.RevokeCard(r.Context(), learnerID, cardID); err != nil {
		HandleAPIError(w, r, err, "Failed to revoke card")
		return
	}

	log.Info("card revoked",
		slog.String("learner_id", learnerID.String()),
		slog.String("card_id", cardID.String()))
	w.WriteHeader(http.StatusNoContent)
}
