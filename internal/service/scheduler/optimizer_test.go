package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recallhq/engram-api/internal/config"
	"github.com/recallhq/engram-api/internal/domain"
	"github.com/recallhq/engram-api/internal/domain/fsrs"
)

// seedHistory drives the given reviews through the live recorder so the
// optimizer sees a realistic event log.
func seedHistory(t *testing.T, f *fixture, cardCount, reviewsPerCard int) {
	t.Helper()

	cards := make([]*domain.Card, cardCount)
	for i := range cards {
		cards[i] = f.addCard(i)
		f.addNewState(cards[i])
	}

	ratings := []domain.ReviewRating{
		domain.RatingGood,
		domain.RatingGood,
		domain.RatingAgain,
		domain.RatingHard,
		domain.RatingEasy,
	}

	for round := 0; round < reviewsPerCard; round++ {
		for i, card := range cards {
			rating := ratings[(round+i)%len(ratings)]
			_, err := f.svc.RecordReview(context.Background(), f.learnerID, card.ID, rating, nil)
			require.NoError(t, err)
		}
		f.clock.Advance(24 * time.Hour)
	}
}

func TestOptimizeParameters_SkippedBelowThreshold(t *testing.T) {
	t.Parallel()

	f := newFixture(t) // threshold 400
	seedHistory(t, f, 2, 3)

	result, err := f.svc.OptimizeParameters(context.Background(), f.learnerID)
	require.NoError(t, err)

	assert.True(t, result.Skipped)
	assert.Equal(t, 6, result.TrainingSize)
	assert.Equal(t, uuid.Nil, result.VersionID)

	// Active parameters untouched, no rebuild requested.
	assert.Equal(t, 0, f.params.saves)
	assert.Empty(t, f.emitter.emitted())
}

func TestOptimizeParameters_FitsAndActivates(t *testing.T) {
	t.Parallel()

	f := newFixture(t, func(cfg *config.SchedulerConfig) {
		cfg.MinReviewsForOptimization = 10
	})
	seedHistory(t, f, 4, 4)

	result, err := f.svc.OptimizeParameters(context.Background(), f.learnerID)
	require.NoError(t, err)

	assert.False(t, result.Skipped)
	assert.Equal(t, 16, result.TrainingSize)
	assert.NotEqual(t, uuid.Nil, result.VersionID)

	assert.Equal(t, 1, f.params.saves)
	active, err := f.params.GetActive(context.Background(), f.learnerID)
	require.NoError(t, err)
	assert.Equal(t, result.VersionID, active.ID)
	assert.True(t, active.IsActive)
	assert.Equal(t, 16, active.TrainingSize)
	assert.Len(t, active.Weights, fsrs.WeightCount)
}

func TestOptimizeParameters_RequestsRebuildAfterActivation(t *testing.T) {
	t.Parallel()

	f := newFixture(t, func(cfg *config.SchedulerConfig) {
		cfg.MinReviewsForOptimization = 10
	})
	seedHistory(t, f, 4, 4)

	_, err := f.svc.OptimizeParameters(context.Background(), f.learnerID)
	require.NoError(t, err)

	emitted := f.emitter.emitted()
	require.Len(t, emitted, 1)
	assert.Equal(t, "cache_rebuild", emitted[0].Type)

	var payload map[string]string
	require.NoError(t, emitted[0].UnmarshalPayload(&payload))
	assert.Equal(t, f.learnerID.String(), payload["learner_id"])
}

func TestOptimizeParameters_EmitFailureDoesNotFailRun(t *testing.T) {
	t.Parallel()

	f := newFixture(t, func(cfg *config.SchedulerConfig) {
		cfg.MinReviewsForOptimization = 10
	})
	seedHistory(t, f, 4, 4)
	f.emitter.err = assert.AnError

	result, err := f.svc.OptimizeParameters(context.Background(), f.learnerID)
	require.NoError(t, err)
	assert.False(t, result.Skipped)

	// The parameters are already active; the rebuild can be re-requested.
	assert.Equal(t, 1, f.params.saves)
}

func TestOptimizeParameters_ReplacesPreviousActiveVersion(t *testing.T) {
	t.Parallel()

	f := newFixture(t, func(cfg *config.SchedulerConfig) {
		cfg.MinReviewsForOptimization = 10
	})
	seedHistory(t, f, 4, 4)

	previous, err := domain.NewModelParameters(f.learnerID, fsrs.NewDefaultParams().Weights, 12)
	require.NoError(t, err)
	require.NoError(t, f.params.SaveAndActivate(context.Background(), previous))

	result, err := f.svc.OptimizeParameters(context.Background(), f.learnerID)
	require.NoError(t, err)

	active, err := f.params.GetActive(context.Background(), f.learnerID)
	require.NoError(t, err)
	assert.Equal(t, result.VersionID, active.ID)
	assert.NotEqual(t, previous.ID, active.ID)
}
