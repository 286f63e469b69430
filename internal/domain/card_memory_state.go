package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// CardStage is the coarse lifecycle stage of a (learner, card) pair.
type CardStage string

// Possible card stage values
const (
	StageNew        CardStage = "new"
	StageLearning   CardStage = "learning"
	StageReview     CardStage = "review"
	StageRelearning CardStage = "relearning"
)

// IsValid reports whether the stage is one of the known lifecycle stages.
func (s CardStage) IsValid() bool {
	switch s {
	case StageNew, StageLearning, StageReview, StageRelearning:
		return true
	default:
		return false
	}
}

// Common validation errors for CardMemoryState
var (
	ErrEmptyStateLearnerID = errors.New("card memory state learner ID cannot be empty")
	ErrEmptyStateCardID    = errors.New("card memory state card ID cannot be empty")
	ErrInvalidStability    = errors.New("stability must be greater than 0 for reviewed cards")
	ErrInvalidDifficulty   = errors.New("difficulty must be between 1 and 10 for reviewed cards")
	ErrInvalidStage        = errors.New("invalid card stage")
	ErrNegativeRepCount    = errors.New("rep count cannot be negative")
	ErrNegativeLapseCount  = errors.New("lapse count cannot be negative")
)

// CardMemoryState is the per-(learner, card) cache row holding the derived
// memory state used for O(1) due-queries and per-review scheduling.
//
// It is a pure derivation of the review event log: replaying the pair's
// events through the memory model from the new-card baseline must reproduce
// it exactly. Every history append is paired with a cache write in the same
// transaction, so the cache is never stale relative to the log. Rows are
// created on assignment, mutated only by review recording or a full rebuild,
// and destroyed only by rebuild or assignment revocation.
type CardMemoryState struct {
	LearnerID      uuid.UUID `json:"learner_id"`
	CardID         uuid.UUID `json:"card_id"`
	Stability      float64   `json:"stability"`        // Memory stability in days; 0 until first review
	Difficulty     float64   `json:"difficulty"`       // Intrinsic difficulty in [1,10]; 0 until first review
	DueAt          time.Time `json:"due_at"`           // When the card should next be presented
	LastReviewedAt time.Time `json:"last_reviewed_at"` // Zero time if never reviewed
	RepCount       int       `json:"rep_count"`        // Total number of reviews
	LapseCount     int       `json:"lapse_count"`      // Number of again-rated reviews
	Stage          CardStage `json:"stage"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewCardMemoryState creates the baseline state for a freshly assigned card:
// new stage, due immediately, no memory state accumulated yet.
func NewCardMemoryState(learnerID, cardID uuid.UUID) (*CardMemoryState, error) {
	now := time.Now().UTC()
	state := &CardMemoryState{
		LearnerID:      learnerID,
		CardID:         cardID,
		Stability:      0,
		Difficulty:     0,
		DueAt:          now, // New cards are available immediately
		LastReviewedAt: time.Time{},
		RepCount:       0,
		LapseCount:     0,
		Stage:          StageNew,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := state.Validate(); err != nil {
		return nil, err
	}

	return state, nil
}

// Validate checks if the CardMemoryState has valid data.
// Returns an error if any field fails validation.
func (s *CardMemoryState) Validate() error {
	if s.LearnerID == uuid.Nil {
		return ErrEmptyStateLearnerID
	}

	if s.CardID == uuid.Nil {
		return ErrEmptyStateCardID
	}

	if !s.Stage.IsValid() {
		return ErrInvalidStage
	}

	// Memory state fields are only meaningful once the card has been reviewed.
	if s.Stage != StageNew {
		if s.Stability <= 0 {
			return ErrInvalidStability
		}
		if s.Difficulty < 1 || s.Difficulty > 10 {
			return ErrInvalidDifficulty
		}
	}

	if s.RepCount < 0 {
		return ErrNegativeRepCount
	}

	if s.LapseCount < 0 {
		return ErrNegativeLapseCount
	}

	return nil
}

// IsNew reports whether the card has never been reviewed.
func (s *CardMemoryState) IsNew() bool {
	return s.Stage == StageNew
}
