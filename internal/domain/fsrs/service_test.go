package fsrs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recallhq/engram-api/internal/domain"
)

func TestForgettingCurve(t *testing.T) {
	t.Run("full retrievability at zero elapsed", func(t *testing.T) {
		assert.Equal(t, 1.0, forgettingCurve(5.0, 0))
		assert.Equal(t, 1.0, forgettingCurve(5.0, -1))
	})

	t.Run("ninety percent when elapsed equals stability", func(t *testing.T) {
		for _, stability := range []float64{0.5, 1, 10, 100} {
			assert.InDelta(t, 0.9, forgettingCurve(stability, stability), 1e-9,
				"stability %v", stability)
		}
	})

	t.Run("monotonically decreasing in elapsed time", func(t *testing.T) {
		prev := 1.0
		for _, elapsed := range []float64{1, 2, 5, 10, 50, 365} {
			r := forgettingCurve(3.0, elapsed)
			assert.Less(t, r, prev, "elapsed %v", elapsed)
			assert.Greater(t, r, 0.0)
			prev = r
		}
	})

	t.Run("non-positive stability treated as floor", func(t *testing.T) {
		assert.Equal(t, forgettingCurve(minStability, 1), forgettingCurve(0, 1))
		assert.Equal(t, forgettingCurve(minStability, 1), forgettingCurve(-2, 1))
	})
}

func TestIntervalForRetention(t *testing.T) {
	t.Run("ninety percent target returns roughly the stability", func(t *testing.T) {
		// At R=0.9 the curve inverts to exactly the stability in days.
		assert.Equal(t, 10.0, intervalForRetention(10, 0.9, 1, 36500))
		assert.Equal(t, 100.0, intervalForRetention(100, 0.9, 1, 36500))
	})

	t.Run("lower retention stretches the interval", func(t *testing.T) {
		tight := intervalForRetention(10, 0.95, 1, 36500)
		loose := intervalForRetention(10, 0.8, 1, 36500)
		assert.Greater(t, loose, tight)
	})

	t.Run("clamped to interval bounds", func(t *testing.T) {
		assert.Equal(t, 1.0, intervalForRetention(0.3, 0.9, 1, 36500))
		assert.Equal(t, 30.0, intervalForRetention(10000, 0.9, 1, 30))
	})
}

func TestComputeState(t *testing.T) {
	model := NewDefaultModel()
	base := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)

	t.Run("empty sequence", func(t *testing.T) {
		_, err := model.ComputeState(nil)
		assert.ErrorIs(t, err, ErrEmptySequence)
	})

	t.Run("invalid rating", func(t *testing.T) {
		_, err := model.ComputeState([]ReviewStep{
			{Rating: domain.ReviewRating(7), OccurredAt: base},
		})
		assert.ErrorIs(t, err, ErrInvalidRating)
	})

	t.Run("unordered sequence", func(t *testing.T) {
		_, err := model.ComputeState([]ReviewStep{
			{Rating: domain.RatingGood, OccurredAt: base},
			{Rating: domain.RatingGood, OccurredAt: base.Add(-24 * time.Hour)},
		})
		assert.ErrorIs(t, err, ErrUnorderedSequence)
	})

	t.Run("single review seeds from initial weights", func(t *testing.T) {
		w := DefaultWeights()
		state, err := model.ComputeState([]ReviewStep{
			{Rating: domain.RatingGood, OccurredAt: base},
		})
		require.NoError(t, err)
		assert.InDelta(t, w[2], state.Stability, 1e-9)
		assert.InDelta(t, w[4], state.Difficulty, 1e-9)
		assert.False(t, state.IsZero())
	})

	t.Run("successful reviews grow stability", func(t *testing.T) {
		first, err := model.ComputeState([]ReviewStep{
			{Rating: domain.RatingGood, OccurredAt: base},
		})
		require.NoError(t, err)

		second, err := model.ComputeState([]ReviewStep{
			{Rating: domain.RatingGood, OccurredAt: base},
			{Rating: domain.RatingGood, OccurredAt: base.Add(3 * 24 * time.Hour)},
		})
		require.NoError(t, err)

		assert.Greater(t, second.Stability, first.Stability)
	})

	t.Run("lapse shrinks stability", func(t *testing.T) {
		grown, err := model.ComputeState([]ReviewStep{
			{Rating: domain.RatingGood, OccurredAt: base},
			{Rating: domain.RatingGood, OccurredAt: base.Add(3 * 24 * time.Hour)},
		})
		require.NoError(t, err)

		lapsed, err := model.ComputeState([]ReviewStep{
			{Rating: domain.RatingGood, OccurredAt: base},
			{Rating: domain.RatingGood, OccurredAt: base.Add(3 * 24 * time.Hour)},
			{Rating: domain.RatingAgain, OccurredAt: base.Add(10 * 24 * time.Hour)},
		})
		require.NoError(t, err)

		assert.Less(t, lapsed.Stability, grown.Stability)
		assert.Greater(t, lapsed.Difficulty, grown.Difficulty)
	})

	t.Run("deterministic replay", func(t *testing.T) {
		steps := []ReviewStep{
			{Rating: domain.RatingHard, OccurredAt: base},
			{Rating: domain.RatingGood, OccurredAt: base.Add(24 * time.Hour)},
			{Rating: domain.RatingAgain, OccurredAt: base.Add(4 * 24 * time.Hour)},
			{Rating: domain.RatingGood, OccurredAt: base.Add(5 * 24 * time.Hour)},
		}

		a, err := model.ComputeState(steps)
		require.NoError(t, err)
		b, err := model.ComputeState(steps)
		require.NoError(t, err)

		assert.Equal(t, a, b)
	})
}

func TestNextStates(t *testing.T) {
	model := NewDefaultModel()
	allRatings := []domain.ReviewRating{
		domain.RatingAgain,
		domain.RatingHard,
		domain.RatingGood,
		domain.RatingEasy,
	}

	t.Run("negative elapsed", func(t *testing.T) {
		_, err := model.NextStates(MemoryState{Stability: 2, Difficulty: 5}, 0.9, -1)
		assert.ErrorIs(t, err, ErrNegativeElapsed)
	})

	t.Run("zero state treated as first review", func(t *testing.T) {
		w := DefaultWeights()
		candidates, err := model.NextStates(MemoryState{}, 0.9, 0)
		require.NoError(t, err)
		require.Len(t, candidates, 4)

		for i, rating := range allRatings {
			assert.InDelta(t, w[i], candidates[rating].Stability, 1e-9, "rating %v", rating)
		}
	})

	t.Run("intervals are non-decreasing by rating", func(t *testing.T) {
		states := []MemoryState{
			{},
			{Stability: 1, Difficulty: 6},
			{Stability: 20, Difficulty: 4},
		}

		for _, state := range states {
			candidates, err := model.NextStates(state, 0.9, 5)
			require.NoError(t, err)

			for i := 1; i < len(allRatings); i++ {
				lower := candidates[allRatings[i-1]]
				higher := candidates[allRatings[i]]
				assert.LessOrEqual(t, lower.IntervalDays, higher.IntervalDays)
			}
		}
	})

	t.Run("again is due sooner than good after a real review", func(t *testing.T) {
		state := MemoryState{Stability: 15, Difficulty: 5}
		candidates, err := model.NextStates(state, 0.9, 15)
		require.NoError(t, err)

		again := candidates[domain.RatingAgain]
		good := candidates[domain.RatingGood]

		assert.Less(t, again.Stability, good.Stability)
		assert.Less(t, again.IntervalDays, good.IntervalDays)
		// Lapse stability never exceeds the pre-lapse value.
		assert.LessOrEqual(t, again.Stability, state.Stability)
		assert.Greater(t, good.Stability, state.Stability)
	})

	t.Run("out-of-range retention falls back to configured default", func(t *testing.T) {
		state := MemoryState{Stability: 10, Difficulty: 5}

		withDefault, err := model.NextStates(state, 0.9, 10)
		require.NoError(t, err)
		withInvalid, err := model.NextStates(state, 1.5, 10)
		require.NoError(t, err)

		assert.Equal(t, withDefault, withInvalid)
	})

	t.Run("intervals respect the minimum bound", func(t *testing.T) {
		candidates, err := model.NextStates(MemoryState{}, 0.9, 0)
		require.NoError(t, err)
		for rating, next := range candidates {
			assert.GreaterOrEqual(t, next.IntervalDays, 1.0, "rating %v", rating)
		}
	})
}

func TestRetrievability(t *testing.T) {
	model := NewDefaultModel()
	assert.Equal(t, 1.0, model.Retrievability(5, 0))
	assert.InDelta(t, 0.9, model.Retrievability(5, 5), 1e-9)
}

func TestFit(t *testing.T) {
	base := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)

	// Builds a sequence with the given ratings, one review per day.
	seq := func(ratings ...domain.ReviewRating) []ReviewStep {
		steps := make([]ReviewStep, len(ratings))
		for i, r := range ratings {
			steps[i] = ReviewStep{Rating: r, OccurredAt: base.Add(time.Duration(i) * 24 * time.Hour)}
		}
		return steps
	}

	t.Run("no usable observations", func(t *testing.T) {
		model := NewDefaultModel()

		_, err := model.Fit(nil)
		assert.ErrorIs(t, err, ErrNoObservations)

		// Single-review sequences carry no prediction to score.
		_, err = model.Fit([][]ReviewStep{seq(domain.RatingGood), seq(domain.RatingEasy)})
		assert.ErrorIs(t, err, ErrNoObservations)
	})

	t.Run("returns a full weight vector within bounds", func(t *testing.T) {
		model := NewDefaultModel()
		sequences := [][]ReviewStep{
			seq(domain.RatingGood, domain.RatingGood, domain.RatingAgain, domain.RatingGood),
			seq(domain.RatingHard, domain.RatingGood, domain.RatingGood),
			seq(domain.RatingEasy, domain.RatingGood, domain.RatingEasy),
		}

		weights, err := model.Fit(sequences)
		require.NoError(t, err)
		require.Len(t, weights, WeightCount)

		for i, w := range weights {
			assert.GreaterOrEqual(t, w, fitLowerBounds[i], "weight %d", i)
			assert.LessOrEqual(t, w, fitUpperBounds[i], "weight %d", i)
		}
	})

	t.Run("never worsens the loss over the seed weights", func(t *testing.T) {
		model := NewDefaultModel()
		sequences := [][]ReviewStep{
			seq(domain.RatingGood, domain.RatingAgain, domain.RatingGood, domain.RatingGood),
			seq(domain.RatingGood, domain.RatingGood, domain.RatingGood),
			seq(domain.RatingAgain, domain.RatingAgain, domain.RatingGood),
		}

		weights, err := model.Fit(sequences)
		require.NoError(t, err)

		seedLoss := sequencesLogLoss(DefaultWeights(), sequences)
		fittedLoss := sequencesLogLoss(weights, sequences)
		assert.LessOrEqual(t, fittedLoss, seedLoss)
	})

	t.Run("deterministic", func(t *testing.T) {
		model := NewDefaultModel()
		sequences := [][]ReviewStep{
			seq(domain.RatingGood, domain.RatingGood, domain.RatingAgain),
		}

		a, err := model.Fit(sequences)
		require.NoError(t, err)
		b, err := model.Fit(sequences)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Params)
		wantErr error
	}{
		{
			name:   "default params are valid",
			mutate: func(p *Params) {},
		},
		{
			name:    "wrong weight count",
			mutate:  func(p *Params) { p.Weights = p.Weights[:10] },
			wantErr: ErrWrongWeightCount,
		},
		{
			name:    "retention at zero",
			mutate:  func(p *Params) { p.DesiredRetention = 0 },
			wantErr: ErrInvalidRetention,
		},
		{
			name:    "retention at one",
			mutate:  func(p *Params) { p.DesiredRetention = 1 },
			wantErr: ErrInvalidRetention,
		},
		{
			name:    "inverted interval span",
			mutate:  func(p *Params) { p.MinIntervalDays = 10; p.MaxIntervalDays = 5 },
			wantErr: ErrInvalidIntervalSpan,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			params := NewDefaultParams()
			tc.mutate(params)

			err := params.Validate()
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewModelWithWeights(t *testing.T) {
	t.Run("custom weights are applied", func(t *testing.T) {
		w := DefaultWeights()
		w[2] = 7.5 // initial stability for good

		model := NewModelWithWeights(w)
		candidates, err := model.NextStates(MemoryState{}, 0.9, 0)
		require.NoError(t, err)
		assert.InDelta(t, 7.5, candidates[domain.RatingGood].Stability, 1e-9)
	})

	t.Run("malformed weights fall back to defaults", func(t *testing.T) {
		model := NewModelWithWeights([]float64{1, 2, 3})
		candidates, err := model.NextStates(MemoryState{}, 0.9, 0)
		require.NoError(t, err)
		assert.InDelta(t, DefaultWeights()[2], candidates[domain.RatingGood].Stability, 1e-9)
	})
}
