// Package fsrs implements the memory model consumed by the review
// scheduler: stability/difficulty state transitions, the power-law
// forgetting curve, and offline weight fitting. The scheduler depends
// only on the Model interface, so the algorithm is swappable.
package fsrs

import (
	"errors"
	"time"

	"github.com/recallhq/engram-api/internal/domain"
)

// Common errors
var (
	ErrInvalidRating      = errors.New("invalid review rating")
	ErrNegativeElapsed    = errors.New("elapsed days cannot be negative")
	ErrEmptySequence      = errors.New("review sequence cannot be empty")
	ErrUnorderedSequence  = errors.New("review sequence must be ordered by occurred-at")
	ErrNoObservations     = errors.New("no usable observations for fitting")
)

// MemoryState is the (stability, difficulty) pair describing retention
// strength for a learner-card pair. The zero value means "never reviewed".
type MemoryState struct {
	Stability  float64
	Difficulty float64
}

// IsZero reports whether the state carries no accumulated memory yet.
func (s MemoryState) IsZero() bool {
	return s.Stability <= 0
}

// ReviewStep is one entry of a review sequence fed to the model.
type ReviewStep struct {
	Rating     domain.ReviewRating
	OccurredAt time.Time
}

// NextState is one candidate outcome of a review: the post-review memory
// state plus the scheduled interval until the next presentation.
type NextState struct {
	MemoryState
	IntervalDays float64
}

// Model defines the interface for memory model operations. Given a review
// sequence it derives memory state; given a state it produces the four
// rating-indexed candidate next states; given many sequences it fits a
// per-learner weight vector.
type Model interface {
	// ComputeState replays an ordered review sequence from the new-card
	// baseline and returns the resulting memory state.
	ComputeState(steps []ReviewStep) (MemoryState, error)

	// NextStates returns the four candidate next states for a review
	// happening elapsedDays after the previous one, one per rating.
	// A zero state is treated as a first review.
	NextStates(state MemoryState, desiredRetention, elapsedDays float64) (map[domain.ReviewRating]NextState, error)

	// Retrievability returns the modeled probability of recall after
	// elapsedDays at the given stability.
	Retrievability(stability, elapsedDays float64) float64

	// Fit derives a weight vector from many per-card review sequences.
	Fit(sequences [][]ReviewStep) ([]float64, error)
}

// defaultModel is the standard implementation of the Model interface.
type defaultModel struct {
	params *Params
}

// NewDefaultModel creates a memory model with default parameters.
func NewDefaultModel() Model {
	return &defaultModel{
		params: NewDefaultParams(),
	}
}

// NewModelWithParams creates a memory model with custom parameters.
// Returns an error if the parameters are structurally invalid.
func NewModelWithParams(params *Params) (Model, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &defaultModel{params: params}, nil
}

// NewModelWithWeights creates a memory model from a custom weight vector,
// keeping default retention and interval bounds. Invalid vectors fall back
// to the default weights so a corrupt stored fit can never break scheduling.
func NewModelWithWeights(weights []float64) Model {
	params, err := NewParams(weights)
	if err != nil {
		return NewDefaultModel()
	}
	return &defaultModel{params: params}
}

// ComputeState implements Model.ComputeState.
func (m *defaultModel) ComputeState(steps []ReviewStep) (MemoryState, error) {
	if len(steps) == 0 {
		return MemoryState{}, ErrEmptySequence
	}

	var state MemoryState
	w := m.params.Weights

	for i, step := range steps {
		if !step.Rating.IsValid() {
			return MemoryState{}, ErrInvalidRating
		}

		if i == 0 {
			state.Stability = initialStability(w, step.Rating)
			state.Difficulty = initialDifficulty(w, step.Rating)
			continue
		}

		if step.OccurredAt.Before(steps[i-1].OccurredAt) {
			return MemoryState{}, ErrUnorderedSequence
		}

		elapsed := step.OccurredAt.Sub(steps[i-1].OccurredAt).Hours() / 24
		r := forgettingCurve(state.Stability, elapsed)

		if step.Rating == domain.RatingAgain {
			state.Stability = lapseStability(w, state.Stability, state.Difficulty, r)
		} else {
			state.Stability = recallStability(w, state.Stability, state.Difficulty, r, step.Rating)
		}
		state.Difficulty = nextDifficulty(w, state.Difficulty, step.Rating)
	}

	return state, nil
}

// NextStates implements Model.NextStates.
func (m *defaultModel) NextStates(
	state MemoryState,
	desiredRetention, elapsedDays float64,
) (map[domain.ReviewRating]NextState, error) {
	if elapsedDays < 0 {
		return nil, ErrNegativeElapsed
	}
	if desiredRetention <= 0 || desiredRetention >= 1 {
		desiredRetention = m.params.DesiredRetention
	}

	w := m.params.Weights
	ratings := []domain.ReviewRating{
		domain.RatingAgain,
		domain.RatingHard,
		domain.RatingGood,
		domain.RatingEasy,
	}

	candidates := make(map[domain.ReviewRating]NextState, len(ratings))

	for _, rating := range ratings {
		var next MemoryState

		if state.IsZero() {
			// First review of this card.
			next.Stability = initialStability(w, rating)
			next.Difficulty = initialDifficulty(w, rating)
		} else {
			r := forgettingCurve(state.Stability, elapsedDays)
			if rating == domain.RatingAgain {
				next.Stability = lapseStability(w, state.Stability, state.Difficulty, r)
			} else {
				next.Stability = recallStability(w, state.Stability, state.Difficulty, r, rating)
			}
			next.Difficulty = nextDifficulty(w, state.Difficulty, rating)
		}

		candidates[rating] = NextState{
			MemoryState: next,
			IntervalDays: intervalForRetention(
				next.Stability,
				desiredRetention,
				m.params.MinIntervalDays,
				m.params.MaxIntervalDays,
			),
		}
	}

	return candidates, nil
}

// Retrievability implements Model.Retrievability.
func (m *defaultModel) Retrievability(stability, elapsedDays float64) float64 {
	return forgettingCurve(stability, elapsedDays)
}
