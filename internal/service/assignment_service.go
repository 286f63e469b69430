package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/recallhq/engram-api/internal/domain"
	"github.com/recallhq/engram-api/internal/platform/logger"
	"github.com/recallhq/engram-api/internal/store"
)

// AssignmentServiceError is a custom error type for assignment service errors.
type AssignmentServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for AssignmentServiceError.
func (e *AssignmentServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("assignment service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("assignment service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *AssignmentServiceError) Unwrap() error {
	return e.Err
}

// NewAssignmentServiceError creates a new AssignmentServiceError.
func NewAssignmentServiceError(operation, message string, err error) *AssignmentServiceError {
	return &AssignmentServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// AssignmentService manages the set of cards assigned to a learner.
// Assigning creates the card together with its baseline memory state in one
// transaction, so a card is never visible without a reviewable state row.
type AssignmentService interface {
	// AssignCards creates the given cards and a baseline new-stage memory
	// state row for each, atomically.
	AssignCards(ctx context.Context, cards []*domain.Card) error

	// RevokeCard removes a card from the learner's assignment set along
	// with its memory state row. Review history is kept: the log is
	// append-only and a future re-assignment plus rebuild can reuse it.
	RevokeCard(ctx context.Context, learnerID, cardID uuid.UUID) error

	// GetCard retrieves a card by its ID.
	GetCard(ctx context.Context, cardID uuid.UUID) (*domain.Card, error)

	// ListAssigned returns the learner's assigned cards in introduction order.
	ListAssigned(ctx context.Context, learnerID uuid.UUID) ([]*domain.Card, error)
}

// assignmentServiceImpl implements the AssignmentService interface
type assignmentServiceImpl struct {
	txRunner   store.TxRunner
	cardStore  store.CardStore
	stateStore store.MemoryStateStore
	logger     *slog.Logger
}

// NewAssignmentService creates a new AssignmentService.
// It returns an error if any of the required dependencies are nil.
func NewAssignmentService(
	txRunner store.TxRunner,
	cardStore store.CardStore,
	stateStore store.MemoryStateStore,
	logger *slog.Logger,
) (AssignmentService, error) {
	if txRunner == nil {
		return nil, fmt.Errorf("txRunner cannot be nil")
	}
	if cardStore == nil {
		return nil, fmt.Errorf("cardStore cannot be nil")
	}
	if stateStore == nil {
		return nil, fmt.Errorf("stateStore cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &assignmentServiceImpl{
		txRunner:   txRunner,
		cardStore:  cardStore,
		stateStore: stateStore,
		logger:     logger.With(slog.String("component", "assignment_service")),
	}, nil
}

// AssignCards implements AssignmentService.AssignCards
func (s *assignmentServiceImpl) AssignCards(ctx context.Context, cards []*domain.Card) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if len(cards) == 0 {
		log.Debug("no cards to assign")
		return nil
	}

	log.Debug("assigning cards with baseline states",
		slog.Int("card_count", len(cards)))

	return s.txRunner.RunInTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		txCardStore := s.cardStore.WithTx(tx)
		txStateStore := s.stateStore.WithTx(tx)

		if err := txCardStore.CreateMultiple(ctx, cards); err != nil {
			log.Error("failed to create cards in transaction",
				slog.String("error", err.Error()))
			return NewAssignmentServiceError("assign_cards", "failed to save cards", err)
		}

		for _, card := range cards {
			state, err := domain.NewCardMemoryState(card.LearnerID, card.ID)
			if err != nil {
				log.Error("failed to build baseline memory state",
					slog.String("error", err.Error()),
					slog.String("card_id", card.ID.String()))
				return NewAssignmentServiceError("assign_cards", "failed to build baseline state", err)
			}

			if err := txStateStore.Create(ctx, state); err != nil {
				log.Error("failed to save baseline memory state in transaction",
					slog.String("error", err.Error()),
					slog.String("learner_id", card.LearnerID.String()),
					slog.String("card_id", card.ID.String()))
				return NewAssignmentServiceError("assign_cards", "failed to save baseline state", err)
			}
		}

		log.Info("cards assigned with baseline states",
			slog.Int("card_count", len(cards)))
		return nil
	})
}

// RevokeCard implements AssignmentService.RevokeCard
func (s *assignmentServiceImpl) RevokeCard(ctx context.Context, learnerID, cardID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	card, err := s.cardStore.GetByID(ctx, cardID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return NewAssignmentServiceError("revoke_card", "card not found", store.ErrCardNotFound)
		}
		return NewAssignmentServiceError("revoke_card", "failed to load card", err)
	}
	if card.LearnerID != learnerID {
		return NewAssignmentServiceError("revoke_card", "card not assigned to learner", ErrNotOwned)
	}

	return s.txRunner.RunInTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		// The state row may already be gone if a rebuild raced the revoke;
		// only the card delete must succeed.
		if err := s.stateStore.WithTx(tx).Delete(ctx, learnerID, cardID); err != nil &&
			!errors.Is(err, store.ErrMemoryStateNotFound) {
			log.Error("failed to delete memory state during revoke",
				slog.String("error", err.Error()),
				slog.String("card_id", cardID.String()))
			return NewAssignmentServiceError("revoke_card", "failed to delete memory state", err)
		}

		if err := s.cardStore.WithTx(tx).Delete(ctx, cardID); err != nil {
			log.Error("failed to delete card during revoke",
				slog.String("error", err.Error()),
				slog.String("card_id", cardID.String()))
			return NewAssignmentServiceError("revoke_card", "failed to delete card", err)
		}

		log.Info("card revoked",
			slog.String("learner_id", learnerID.String()),
			slog.String("card_id", cardID.String()))
		return nil
	})
}

// GetCard implements AssignmentService.GetCard
func (s *assignmentServiceImpl) GetCard(ctx context.Context, cardID uuid.UUID) (*domain.Card, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	card, err := s.cardStore.GetByID(ctx, cardID)
	if err != nil {
		log.Error("failed to retrieve card",
			slog.String("error", err.Error()),
			slog.String("card_id", cardID.String()))

		if store.IsNotFoundError(err) {
			return nil, NewAssignmentServiceError("get_card", "card not found", store.ErrCardNotFound)
		}
		return nil, NewAssignmentServiceError("get_card", "failed to retrieve card", err)
	}

	return card, nil
}

// ListAssigned implements AssignmentService.ListAssigned
func (s *assignmentServiceImpl) ListAssigned(
	ctx context.Context,
	learnerID uuid.UUID,
) ([]*domain.Card, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	cards, err := s.cardStore.ListAssigned(ctx, learnerID)
	if err != nil {
		log.Error("failed to list assigned cards",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID.String()))
		return nil, NewAssignmentServiceError("list_assigned", "failed to list cards", err)
	}

	return cards, nil
}
