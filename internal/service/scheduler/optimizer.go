package scheduler

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/google/uuid"
	"github.com/recallhq/engram-api/internal/domain"
	"github.com/recallhq/engram-api/internal/domain/fsrs"
	"github.com/recallhq/engram-api/internal/events"
	"github.com/recallhq/engram-api/internal/platform/logger"
)

// WithEventEmitter wires an emitter used to request a cache rebuild after
// new parameters are activated. Without it, callers are responsible for
// triggering the rebuild themselves.
func WithEventEmitter(emitter events.EventEmitter) Option {
	return func(s *schedulerService) {
		s.emitter = emitter
	}
}

// OptimizeParameters implements Service.OptimizeParameters.
//
// History loading and fitting run outside any transaction so a long fit
// never stalls live review traffic; only the final activation writes, in
// one short transaction. Aborting before that leaves no visible effect.
//
// A learner below the review-count threshold gets a skipped result, not an
// error, and their active parameters are left untouched.
func (s *schedulerService) OptimizeParameters(
	ctx context.Context,
	learnerID uuid.UUID,
) (*OptimizationResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	total, err := s.eventStore.CountForLearner(ctx, learnerID)
	if err != nil {
		return nil, newServiceError("optimize_parameters", "failed to count reviews", err)
	}

	if total < s.cfg.MinReviewsForOptimization {
		log.Info("optimization skipped: not enough review history",
			slog.String("learner_id", learnerID.String()),
			slog.Int("review_count", total),
			slog.Int("minimum", s.cfg.MinReviewsForOptimization))
		return &OptimizationResult{Skipped: true, TrainingSize: total}, nil
	}

	allEvents, err := s.eventStore.ListForLearner(ctx, learnerID)
	if err != nil {
		return nil, newServiceError("optimize_parameters", "failed to load review history", err)
	}

	model, err := s.modelForLearner(ctx, nil, learnerID)
	if err != nil {
		return nil, newServiceError("optimize_parameters", "failed to load model parameters", err)
	}

	weights, err := model.Fit(perCardSequences(allEvents))
	if err != nil {
		return nil, newServiceError("optimize_parameters", "weight fitting failed", err)
	}

	params, err := domain.NewModelParameters(learnerID, weights, total)
	if err != nil {
		return nil, newServiceError("optimize_parameters", "invalid fitted parameters", err)
	}

	// The only write: flip the active version in one short transaction.
	err = s.txRunner.RunInTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return s.paramsStore.WithTx(tx).SaveAndActivate(ctx, params)
	})
	if err != nil {
		return nil, newServiceError("optimize_parameters", "failed to activate parameters", err)
	}

	log.Info("parameters optimized and activated",
		slog.String("learner_id", learnerID.String()),
		slog.String("version_id", params.ID.String()),
		slog.Int("training_size", total))

	// The cache was derived under the old weights, so request a rebuild.
	s.requestRebuild(ctx, learnerID, log)

	return &OptimizationResult{
		Skipped:      false,
		TrainingSize: total,
		VersionID:    params.ID,
	}, nil
}

// requestRebuild emits a cache rebuild task request for the learner.
// Failures are logged, not returned: the parameters are already active and
// the rebuild can be requested again.
func (s *schedulerService) requestRebuild(ctx context.Context, learnerID uuid.UUID, log *slog.Logger) {
	if s.emitter == nil {
		return
	}

	// String literal instead of the task package constant to avoid a
	// circular import with the task adapter.
	event, err := events.NewTaskRequestEvent("cache_rebuild", map[string]string{
		"learner_id": learnerID.String(),
	})
	if err != nil {
		log.Error("failed to build rebuild request event",
			slog.String("learner_id", learnerID.String()),
			slog.String("error", err.Error()))
		return
	}

	if err := s.emitter.EmitEvent(ctx, event); err != nil {
		log.Error("failed to emit rebuild request event",
			slog.String("learner_id", learnerID.String()),
			slog.String("error", err.Error()))
	}
}

// perCardSequences partitions a learner's ordered events into per-card
// review sequences for fitting.
func perCardSequences(allEvents []*domain.ReviewEvent) [][]fsrs.ReviewStep {
	byCard := make(map[uuid.UUID][]fsrs.ReviewStep)
	order := make([]uuid.UUID, 0)
	for _, event := range allEvents {
		if _, seen := byCard[event.CardID]; !seen {
			order = append(order, event.CardID)
		}
		byCard[event.CardID] = append(byCard[event.CardID], fsrs.ReviewStep{
			Rating:     event.Rating,
			OccurredAt: event.OccurredAt,
		})
	}

	sequences := make([][]fsrs.ReviewStep, 0, len(order))
	for _, cardID := range order {
		sequences = append(sequences, byCard[cardID])
	}
	return sequences
}
