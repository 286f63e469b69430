package scheduler

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/recallhq/engram-api/internal/domain"
	"github.com/recallhq/engram-api/internal/domain/fsrs"
	"github.com/recallhq/engram-api/internal/platform/logger"
)

// RebuildCache implements Service.RebuildCache.
//
// The learner's full event log is replayed per card through the memory
// model from the new-card baseline; assigned cards with no events get a
// fresh baseline row. The existing rows are then deleted and the computed
// set inserted as one atomic step — delete+recreate rather than upsert, so
// revoked cards never leave orphaned rows.
//
// The whole rebuild runs under the learner's exclusive advisory lock:
// reviews for this learner wait or fail fast until the rebuild commits, so
// they can never read a half-rebuilt cache. Aborting at any point before
// commit leaves no visible effect.
func (s *schedulerService) RebuildCache(
	ctx context.Context,
	learnerID uuid.UUID,
) (*RebuildResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var result *RebuildResult
	err := s.txRunner.RunInTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.locker.AcquireExclusive(ctx, tx, learnerID); err != nil {
			return fmt.Errorf("failed to acquire rebuild lock: %w", err)
		}

		model, err := s.modelForLearner(ctx, tx, learnerID)
		if err != nil {
			return fmt.Errorf("failed to load model parameters: %w", err)
		}

		events, err := s.eventStore.WithTx(tx).ListForLearner(ctx, learnerID)
		if err != nil {
			return fmt.Errorf("failed to load review history: %w", err)
		}

		assigned, err := s.cardStore.WithTx(tx).ListAssigned(ctx, learnerID)
		if err != nil {
			return fmt.Errorf("failed to load assigned cards: %w", err)
		}

		states, err := s.computeStates(learnerID, assigned, events, model)
		if err != nil {
			return err
		}

		if err := s.stateStore.WithTx(tx).ReplaceForLearner(ctx, learnerID, states); err != nil {
			return fmt.Errorf("failed to replace memory states: %w", err)
		}

		result = &RebuildResult{RowsRebuilt: len(states)}
		return nil
	})
	if err != nil {
		return nil, newServiceError("rebuild_cache", "cache rebuild failed", err)
	}

	log.Info("cache rebuilt",
		slog.String("learner_id", learnerID.String()),
		slog.Int("rows_rebuilt", result.RowsRebuilt))
	return result, nil
}

// computeStates derives the full fresh row set for a learner: one replayed
// row per reviewed card, one baseline row per assigned-but-unreviewed card.
// Events for cards no longer assigned are ignored; history is never deleted,
// but revoked cards get no row.
func (s *schedulerService) computeStates(
	learnerID uuid.UUID,
	assigned []*domain.Card,
	events []*domain.ReviewEvent,
	model fsrs.Model,
) ([]*domain.CardMemoryState, error) {
	byCard := make(map[uuid.UUID][]*domain.ReviewEvent)
	for _, event := range events {
		byCard[event.CardID] = append(byCard[event.CardID], event)
	}

	states := make([]*domain.CardMemoryState, 0, len(assigned))
	for _, card := range assigned {
		cardEvents := byCard[card.ID]

		if len(cardEvents) == 0 {
			baseline, err := domain.NewCardMemoryState(learnerID, card.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to build baseline state: %w", err)
			}
			baseline.DueAt = s.now()
			states = append(states, baseline)
			continue
		}

		state, err := s.replayCard(learnerID, card.ID, cardEvents, model)
		if err != nil {
			return nil, fmt.Errorf("failed to replay card %s: %w", card.ID, err)
		}
		states = append(states, state)
	}

	return states, nil
}

// replayCard reconstructs one card's cache row from its ordered events.
//
// The final transition is computed via the model's next-states step with
// the last event's rating and elapsed time — the same formula the recorder
// uses live — so the recomputed due date matches what recording produced.
func (s *schedulerService) replayCard(
	learnerID, cardID uuid.UUID,
	events []*domain.ReviewEvent,
	model fsrs.Model,
) (*domain.CardMemoryState, error) {
	steps := make([]fsrs.ReviewStep, len(events))
	for i, event := range events {
		steps[i] = fsrs.ReviewStep{Rating: event.Rating, OccurredAt: event.OccurredAt}
	}

	// State after all reviews except the last.
	var prior fsrs.MemoryState
	if len(steps) > 1 {
		computed, err := model.ComputeState(steps[:len(steps)-1])
		if err != nil {
			return nil, err
		}
		prior = computed
	}

	last := events[len(events)-1]
	var elapsed float64
	if len(events) > 1 {
		elapsed = last.OccurredAt.Sub(events[len(events)-2].OccurredAt).Hours() / 24
		if elapsed < 0 {
			elapsed = 0
		}
	}

	candidates, err := model.NextStates(prior, s.cfg.DesiredRetention, elapsed)
	if err != nil {
		return nil, err
	}
	final := candidates[last.Rating]

	lapseCount := 0
	for _, event := range events {
		if event.Rating == domain.RatingAgain {
			lapseCount++
		}
	}

	stage := domain.StageReview
	if last.Rating == domain.RatingAgain {
		stage = domain.StageRelearning
	}

	now := s.now()
	return &domain.CardMemoryState{
		LearnerID:      learnerID,
		CardID:         cardID,
		Stability:      final.Stability,
		Difficulty:     final.Difficulty,
		DueAt:          last.OccurredAt.Add(durationFromDays(final.IntervalDays)),
		LastReviewedAt: last.OccurredAt,
		RepCount:       len(events),
		LapseCount:     lapseCount,
		Stage:          stage,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}
