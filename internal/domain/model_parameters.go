package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ModelParameters-specific validation errors
var (
	ErrEmptyParametersID        = errors.New("model parameters ID cannot be empty")
	ErrEmptyParametersLearnerID = errors.New("model parameters learner ID cannot be empty")
	ErrEmptyWeights             = errors.New("model parameters weight vector cannot be empty")
	ErrNegativeTrainingSize     = errors.New("training size cannot be negative")
)

// ModelParameters is one versioned memory-model weight vector for a learner.
// At most one version is active per learner at any time; the optimizer
// flips the active flag from the old version to the new one transactionally.
type ModelParameters struct {
	ID           uuid.UUID `json:"id"`
	LearnerID    uuid.UUID `json:"learner_id"`
	Weights      []float64 `json:"weights"`
	TrainingSize int       `json:"training_size"` // Number of reviews the fit was trained on
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewModelParameters creates a new, active parameter version for a learner.
// Returns an error if validation fails.
func NewModelParameters(learnerID uuid.UUID, weights []float64, trainingSize int) (*ModelParameters, error) {
	params := &ModelParameters{
		ID:           uuid.New(),
		LearnerID:    learnerID,
		Weights:      weights,
		TrainingSize: trainingSize,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}

	if err := params.Validate(); err != nil {
		return nil, err
	}

	return params, nil
}

// Validate checks if the ModelParameters has valid data.
// Returns an error if any field fails validation.
func (p *ModelParameters) Validate() error {
	if p.ID == uuid.Nil {
		return ErrEmptyParametersID
	}

	if p.LearnerID == uuid.Nil {
		return ErrEmptyParametersLearnerID
	}

	if len(p.Weights) == 0 {
		return ErrEmptyWeights
	}

	if p.TrainingSize < 0 {
		return ErrNegativeTrainingSize
	}

	return nil
}
