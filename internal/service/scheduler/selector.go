package scheduler

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/recallhq/engram-api/internal/domain"
	"github.com/recallhq/engram-api/internal/platform/logger"
)

// SelectCandidates implements Service.SelectCandidates.
//
// A card qualifies when its modeled retrievability clears the configured
// threshold, or when its due date lies far enough in the future that high
// retrievability is implied without recomputation. The qualifying set is
// sampled at random up to the cap: any qualifying card is equally valid,
// so unlike new-card ordering there is deliberately no stable order here.
func (s *schedulerService) SelectCandidates(
	ctx context.Context,
	learnerID uuid.UUID,
) ([]*QueueItem, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	states, err := s.stateStore.FindByLearner(ctx, learnerID)
	if err != nil {
		return nil, newServiceError("select_candidates", "failed to load memory states", err)
	}

	model, err := s.modelForLearner(ctx, nil, learnerID)
	if err != nil {
		return nil, newServiceError("select_candidates", "failed to load model parameters", err)
	}

	now := s.now()
	confidentDue := now.Add(durationFromDays(float64(s.cfg.CandidateConfidentDueDays)))

	qualifying := make([]*domain.CardMemoryState, 0, len(states))
	for _, state := range states {
		if state.IsNew() {
			continue
		}

		if state.DueAt.After(confidentDue) {
			qualifying = append(qualifying, state)
			continue
		}

		elapsed := elapsedDaysSince(state.LastReviewedAt, now)
		if model.Retrievability(state.Stability, elapsed) >= s.cfg.CandidateRetrievabilityThreshold {
			qualifying = append(qualifying, state)
		}
	}

	s.shuffle(len(qualifying), func(i, j int) {
		qualifying[i], qualifying[j] = qualifying[j], qualifying[i]
	})
	if len(qualifying) > s.cfg.CandidateCap {
		qualifying = qualifying[:s.cfg.CandidateCap]
	}

	items, err := s.joinCards(ctx, qualifying, false)
	if err != nil {
		return nil, newServiceError("select_candidates", "failed to join cards", err)
	}

	log.Debug("candidates selected",
		slog.String("learner_id", learnerID.String()),
		slog.Int("candidate_count", len(items)))
	return items, nil
}
