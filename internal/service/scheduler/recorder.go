package scheduler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/recallhq/engram-api/internal/domain"
	"github.com/recallhq/engram-api/internal/domain/fsrs"
	"github.com/recallhq/engram-api/internal/platform/logger"
	"github.com/recallhq/engram-api/internal/store"
)

// RecordReview implements Service.RecordReview.
//
// The cache row's (stability, difficulty) is the memory state input; the
// history log is for audit, rebuild, and optimization only. That keeps
// each review O(1) regardless of history length.
//
// The whole transition runs in one transaction: shared advisory lock (so a
// rebuild cannot interleave), row lock on the cache row (so same-pair
// concurrent reviews serialize), history append, cache update. Transient
// lock contention retries a bounded number of times before surfacing as
// ErrConcurrencyConflict.
func (s *schedulerService) RecordReview(
	ctx context.Context,
	learnerID, cardID uuid.UUID,
	rating domain.ReviewRating,
	sessionID *uuid.UUID,
) (*domain.CardMemoryState, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if !rating.IsValid() {
		log.Warn("review rejected: invalid rating",
			slog.Int("rating", int(rating)),
			slog.String("card_id", cardID.String()))
		return nil, domain.ErrInvalidRating
	}

	attempts := s.cfg.MaxReviewRetries + 1
	if attempts < 1 {
		attempts = 1
	}

	var result *domain.CardMemoryState
	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		err := s.txRunner.RunInTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
			updated, err := s.recordReviewTx(ctx, tx, learnerID, cardID, rating, sessionID)
			if err != nil {
				return err
			}
			result = updated
			return nil
		})
		if err == nil {
			log.Info("review recorded",
				slog.String("learner_id", learnerID.String()),
				slog.String("card_id", cardID.String()),
				slog.String("rating", rating.String()),
				slog.String("stage", string(result.Stage)),
				slog.Time("due_at", result.DueAt))
			return result, nil
		}

		// Integrity and rebuild errors are not retryable here.
		if errors.Is(err, ErrNoPriorState) || errors.Is(err, ErrRebuildInProgress) {
			return nil, err
		}

		if !s.isRetryable(err) {
			return nil, newServiceError("record_review", "failed to record review", err)
		}

		lastErr = err
		log.Debug("retrying review after lock contention",
			slog.Int("attempt", attempt+1),
			slog.String("card_id", cardID.String()),
			slog.String("error", err.Error()))
	}

	log.Warn("review failed after bounded retries",
		slog.String("learner_id", learnerID.String()),
		slog.String("card_id", cardID.String()),
		slog.Int("attempts", attempts))
	return nil, fmt.Errorf("%w: %v", ErrConcurrencyConflict, lastErr)
}

// recordReviewTx performs the review transition inside one transaction.
func (s *schedulerService) recordReviewTx(
	ctx context.Context,
	tx *sql.Tx,
	learnerID, cardID uuid.UUID,
	rating domain.ReviewRating,
	sessionID *uuid.UUID,
) (*domain.CardMemoryState, error) {
	acquired, err := s.locker.TryAcquireShared(ctx, tx, learnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire review lock: %w", err)
	}
	if !acquired {
		return nil, ErrRebuildInProgress
	}

	stateStore := s.stateStore.WithTx(tx)

	state, err := stateStore.GetForUpdate(ctx, learnerID, cardID)
	if err != nil {
		if errors.Is(err, store.ErrMemoryStateNotFound) {
			// Never auto-healed: a missing row means the card was not
			// initialized for this learner, and silently creating one
			// would mask an assignment bug.
			return nil, ErrNoPriorState
		}
		return nil, fmt.Errorf("failed to load memory state: %w", err)
	}

	model, err := s.modelForLearner(ctx, tx, learnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load model parameters: %w", err)
	}

	now := s.now()
	elapsed := elapsedDaysSince(state.LastReviewedAt, now)

	candidates, err := model.NextStates(
		fsrs.MemoryState{Stability: state.Stability, Difficulty: state.Difficulty},
		s.cfg.DesiredRetention,
		elapsed,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compute next states: %w", err)
	}
	next := candidates[rating]

	// The event snapshots the pre-update row; create it before mutating.
	event, err := domain.NewReviewEvent(state, rating, now, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to build review event: %w", err)
	}

	state.Stability = next.Stability
	state.Difficulty = next.Difficulty
	state.DueAt = now.Add(durationFromDays(next.IntervalDays))
	state.LastReviewedAt = now
	state.RepCount++
	if rating == domain.RatingAgain {
		state.LapseCount++
		state.Stage = domain.StageRelearning
	} else {
		state.Stage = domain.StageReview
	}
	state.UpdatedAt = now

	// History append and cache update commit together or not at all.
	if err := s.eventStore.WithTx(tx).Append(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to append review event: %w", err)
	}
	if err := stateStore.Update(ctx, state); err != nil {
		return nil, fmt.Errorf("failed to update memory state: %w", err)
	}

	return state, nil
}
