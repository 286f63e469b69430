package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recallhq/engram-api/internal/domain"
	"github.com/recallhq/engram-api/internal/domain/fsrs"
	"github.com/recallhq/engram-api/internal/store"
)

func TestRecordReview_InvalidRating(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	card := f.addCard(0)
	f.addNewState(card)

	for _, rating := range []domain.ReviewRating{0, 5, -1} {
		state, err := f.svc.RecordReview(context.Background(), f.learnerID, card.ID, rating, nil)
		assert.Nil(t, state)
		assert.ErrorIs(t, err, domain.ErrInvalidRating)
	}

	// Validation rejects before any transaction starts.
	assert.Equal(t, 0, f.txRunner.calls)
}

func TestRecordReview_NoPriorState(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	card := f.addCard(0)
	// No cache row: the card was never initialized for this learner.

	state, err := f.svc.RecordReview(context.Background(), f.learnerID, card.ID, domain.RatingGood, nil)
	assert.Nil(t, state)
	assert.ErrorIs(t, err, ErrNoPriorState)

	// Not auto-healed: still no row, no history event.
	assert.Nil(t, f.states.get(card.ID))
	count, err := f.events.CountForLearner(context.Background(), f.learnerID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestRecordReview_RebuildInProgress(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	card := f.addCard(0)
	f.addNewState(card)
	f.locker.sharedDenied = true

	state, err := f.svc.RecordReview(context.Background(), f.learnerID, card.ID, domain.RatingGood, nil)
	assert.Nil(t, state)
	assert.ErrorIs(t, err, ErrRebuildInProgress)

	// Not retried: the rebuild holds the lock until it commits.
	assert.Equal(t, 1, f.locker.sharedCalls)
}

func TestRecordReview_FirstReview(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	card := f.addCard(0)
	initial := f.addNewState(card)
	now := f.clock.Now()

	state, err := f.svc.RecordReview(context.Background(), f.learnerID, card.ID, domain.RatingGood, nil)
	require.NoError(t, err)
	require.NotNil(t, state)

	assert.Equal(t, domain.StageReview, state.Stage)
	assert.Equal(t, 1, state.RepCount)
	assert.Equal(t, 0, state.LapseCount)
	assert.True(t, state.DueAt.After(now), "due date must move strictly forward")
	assert.Equal(t, now, state.LastReviewedAt)
	assert.Greater(t, state.Stability, 0.0)
	assert.GreaterOrEqual(t, state.Difficulty, 1.0)
	assert.LessOrEqual(t, state.Difficulty, 10.0)

	// The appended event snapshots the pre-review row.
	eventLog, err := f.events.ListForCard(context.Background(), f.learnerID, card.ID)
	require.NoError(t, err)
	require.Len(t, eventLog, 1)
	event := eventLog[0]
	assert.Equal(t, domain.RatingGood, event.Rating)
	assert.Equal(t, now, event.OccurredAt)
	assert.Equal(t, initial.Stability, event.StabilityBefore)
	assert.Equal(t, initial.Difficulty, event.DifficultyBefore)
	assert.Equal(t, domain.StageNew, event.StageBefore)
	assert.Nil(t, event.SessionID)
}

func TestRecordReview_StageByRating(t *testing.T) {
	t.Parallel()

	tests := []struct {
		rating    domain.ReviewRating
		wantStage domain.CardStage
		wantLapse int
	}{
		{domain.RatingAgain, domain.StageRelearning, 1},
		{domain.RatingHard, domain.StageReview, 0},
		{domain.RatingGood, domain.StageReview, 0},
		{domain.RatingEasy, domain.StageReview, 0},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.rating.String(), func(t *testing.T) {
			t.Parallel()

			f := newFixture(t)
			card := f.addCard(0)
			f.addNewState(card)

			state, err := f.svc.RecordReview(context.Background(), f.learnerID, card.ID, tc.rating, nil)
			require.NoError(t, err)
			assert.Equal(t, tc.wantStage, state.Stage)
			assert.Equal(t, tc.wantLapse, state.LapseCount)
			assert.Equal(t, 1, state.RepCount)
		})
	}
}

func TestRecordReview_LapseDueSoonerThanGood(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	card := f.addCard(0)
	f.addNewState(card)

	_, err := f.svc.RecordReview(context.Background(), f.learnerID, card.ID, domain.RatingGood, nil)
	require.NoError(t, err)

	f.clock.Advance(3 * 24 * time.Hour)
	before := f.states.get(card.ID)

	// What a good rating would have scheduled from the same pre-review state.
	model := fsrs.NewDefaultModel()
	candidates, err := model.NextStates(
		fsrs.MemoryState{Stability: before.Stability, Difficulty: before.Difficulty},
		testSchedulerConfig().DesiredRetention,
		3,
	)
	require.NoError(t, err)
	goodDue := f.clock.Now().Add(durationFromDays(candidates[domain.RatingGood].IntervalDays))

	state, err := f.svc.RecordReview(context.Background(), f.learnerID, card.ID, domain.RatingAgain, nil)
	require.NoError(t, err)

	assert.Equal(t, domain.StageRelearning, state.Stage)
	assert.Equal(t, 1, state.LapseCount)
	assert.Equal(t, 2, state.RepCount)
	assert.True(t, state.DueAt.Before(goodDue),
		"lapse due %v should precede the good-rating due %v", state.DueAt, goodDue)
}

func TestRecordReview_CountsAccumulate(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	card := f.addCard(0)
	f.addNewState(card)

	ratings := []domain.ReviewRating{
		domain.RatingGood,
		domain.RatingAgain,
		domain.RatingHard,
		domain.RatingGood,
		domain.RatingAgain,
		domain.RatingEasy,
	}

	var state *domain.CardMemoryState
	var err error
	for _, rating := range ratings {
		state, err = f.svc.RecordReview(context.Background(), f.learnerID, card.ID, rating, nil)
		require.NoError(t, err)
		f.clock.Advance(24 * time.Hour)
	}

	assert.Equal(t, len(ratings), state.RepCount)
	assert.Equal(t, 2, state.LapseCount) // two again ratings

	count, err := f.events.CountForLearner(context.Background(), f.learnerID)
	require.NoError(t, err)
	assert.Equal(t, len(ratings), count)
}

func TestRecordReview_RetriesTransientContention(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	card := f.addCard(0)
	f.addNewState(card)

	// First attempt hits lock contention, second succeeds.
	f.states.getForUpdateErrs = []error{store.ErrLockNotAvailable}

	state, err := f.svc.RecordReview(context.Background(), f.learnerID, card.ID, domain.RatingGood, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, state.RepCount)
	assert.Equal(t, 2, f.states.getForUpdateCalls)
}

func TestRecordReview_ContentionExhaustsRetries(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	card := f.addCard(0)
	f.addNewState(card)

	// MaxReviewRetries=2 allows three attempts total; fail them all.
	f.states.getForUpdateErrs = []error{
		store.ErrLockNotAvailable,
		store.ErrLockNotAvailable,
		store.ErrLockNotAvailable,
	}

	state, err := f.svc.RecordReview(context.Background(), f.learnerID, card.ID, domain.RatingGood, nil)
	assert.Nil(t, state)
	assert.ErrorIs(t, err, ErrConcurrencyConflict)
	assert.Equal(t, 3, f.states.getForUpdateCalls)

	// Nothing committed.
	count, err := f.events.CountForLearner(context.Background(), f.learnerID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.Equal(t, 0, f.states.get(card.ID).RepCount)
}

func TestRecordReview_NonRetryableErrorSurfacesWrapped(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	card := f.addCard(0)
	f.addNewState(card)

	boom := errors.New("connection reset")
	f.states.getForUpdateErrs = []error{boom}

	state, err := f.svc.RecordReview(context.Background(), f.learnerID, card.ID, domain.RatingGood, nil)
	assert.Nil(t, state)
	assert.ErrorIs(t, err, boom)

	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, "record_review", svcErr.Operation)

	// Non-retryable errors surface on the first attempt.
	assert.Equal(t, 1, f.states.getForUpdateCalls)
}

func TestRecordReview_SessionIDCarriedOntoEvent(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	card := f.addCard(0)
	f.addNewState(card)
	sessionID := uuid.New()

	_, err := f.svc.RecordReview(context.Background(), f.learnerID, card.ID, domain.RatingGood, &sessionID)
	require.NoError(t, err)

	eventLog, err := f.events.ListForCard(context.Background(), f.learnerID, card.ID)
	require.NoError(t, err)
	require.Len(t, eventLog, 1)
	require.NotNil(t, eventLog[0].SessionID)
	assert.Equal(t, sessionID, *eventLog[0].SessionID)
}

func TestRecordReview_UsesActiveParameters(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	card := f.addCard(0)
	f.addNewState(card)

	// Activate a vector with a much higher initial good stability than the
	// defaults, so its effect is visible in the scheduled interval.
	weights := fsrs.NewDefaultParams().Weights
	custom := make([]float64, len(weights))
	copy(custom, weights)
	custom[2] = 50 // initial stability for a good first rating

	params, err := domain.NewModelParameters(f.learnerID, custom, 500)
	require.NoError(t, err)
	require.NoError(t, f.params.SaveAndActivate(context.Background(), params))

	state, err := f.svc.RecordReview(context.Background(), f.learnerID, card.ID, domain.RatingGood, nil)
	require.NoError(t, err)
	assert.InDelta(t, 50.0, state.Stability, 1e-9)
}
