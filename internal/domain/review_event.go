package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ReviewRating grades a single review on the standard four-point scale.
type ReviewRating int

// Possible review rating values
const (
	RatingAgain ReviewRating = 1
	RatingHard  ReviewRating = 2
	RatingGood  ReviewRating = 3
	RatingEasy  ReviewRating = 4
)

// IsValid reports whether the rating falls in the accepted 1..4 range.
func (r ReviewRating) IsValid() bool {
	return r >= RatingAgain && r <= RatingEasy
}

// String returns the conventional name for the rating.
func (r ReviewRating) String() string {
	switch r {
	case RatingAgain:
		return "again"
	case RatingHard:
		return "hard"
	case RatingGood:
		return "good"
	case RatingEasy:
		return "easy"
	default:
		return "unknown"
	}
}

// ReviewEvent-specific validation errors
var (
	ErrEmptyEventID        = errors.New("review event ID cannot be empty")
	ErrEmptyEventLearnerID = errors.New("review event learner ID cannot be empty")
	ErrEmptyEventCardID    = errors.New("review event card ID cannot be empty")
	ErrInvalidRating       = errors.New("rating must be between 1 (again) and 4 (easy)")
	ErrZeroOccurredAt      = errors.New("review event occurred-at timestamp cannot be zero")
)

// ReviewEvent is one immutable entry of the append-only review log.
// The log is the source of truth for a learner's memory state: replaying
// all events for a (learner, card) pair in occurred-at order through the
// memory model from the new-card baseline reproduces the cached state.
//
// The pre-review snapshot fields record the cached state as it was read
// when the review was processed, for auditing and divergence detection.
type ReviewEvent struct {
	ID        uuid.UUID    `json:"id"`
	LearnerID uuid.UUID    `json:"learner_id"`
	CardID    uuid.UUID    `json:"card_id"`
	Rating    ReviewRating `json:"rating"`
	OccurredAt time.Time   `json:"occurred_at"`

	// Pre-review snapshot of the cached state.
	StabilityBefore  float64   `json:"stability_before"`
	DifficultyBefore float64   `json:"difficulty_before"`
	StageBefore      CardStage `json:"stage_before"`
	DueAtBefore      time.Time `json:"due_at_before"`

	// SessionID ties the event to the practice session that produced it,
	// when one exists. Nil for ad-hoc reviews.
	SessionID *uuid.UUID `json:"session_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// NewReviewEvent creates an event for a review that just occurred, capturing
// the pre-review state snapshot from the given cache row.
// Returns an error if validation fails.
func NewReviewEvent(
	state *CardMemoryState,
	rating ReviewRating,
	occurredAt time.Time,
	sessionID *uuid.UUID,
) (*ReviewEvent, error) {
	event := &ReviewEvent{
		ID:               uuid.New(),
		LearnerID:        state.LearnerID,
		CardID:           state.CardID,
		Rating:           rating,
		OccurredAt:       occurredAt,
		StabilityBefore:  state.Stability,
		DifficultyBefore: state.Difficulty,
		StageBefore:      state.Stage,
		DueAtBefore:      state.DueAt,
		SessionID:        sessionID,
		CreatedAt:        time.Now().UTC(),
	}

	if err := event.Validate(); err != nil {
		return nil, err
	}

	return event, nil
}

// Validate checks if the ReviewEvent has valid data.
// Returns an error if any field fails validation.
func (e *ReviewEvent) Validate() error {
	if e.ID == uuid.Nil {
		return ErrEmptyEventID
	}

	if e.LearnerID == uuid.Nil {
		return ErrEmptyEventLearnerID
	}

	if e.CardID == uuid.Nil {
		return ErrEmptyEventCardID
	}

	if !e.Rating.IsValid() {
		return ErrInvalidRating
	}

	if e.OccurredAt.IsZero() {
		return ErrZeroOccurredAt
	}

	return nil
}
