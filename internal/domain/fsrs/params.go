package fsrs

import "errors"

// WeightCount is the length of the model weight vector.
const WeightCount = 17

// Parameter validation errors
var (
	ErrWrongWeightCount    = errors.New("weight vector must have exactly 17 entries")
	ErrInvalidRetention    = errors.New("desired retention must be between 0 and 1 exclusive")
	ErrInvalidIntervalSpan = errors.New("maximum interval must be at least the minimum interval")
)

// DefaultWeights returns the stock weight vector used before a learner has
// enough review history for a personalized fit.
func DefaultWeights() []float64 {
	return []float64{
		0.4872, 1.4003, 3.7145, 13.8206, // initial stability per rating
		5.1618, 1.2298, // initial difficulty
		0.8975, 0.0310, // difficulty update and mean reversion
		1.6474, 0.1367, 1.0461, // stability growth on recall
		2.1072, 0.0793, 0.3246, 1.5870, // stability collapse on lapse
		0.2272, 2.8755, // hard penalty, easy bonus
	}
}

// Params defines all configurable parameters for the memory model.
type Params struct {
	// Weights is the model weight vector (w0..w16).
	Weights []float64

	// DesiredRetention is the recall probability the scheduler targets
	// when converting stability into a next interval.
	DesiredRetention float64

	// Interval bounds in days.
	MinIntervalDays float64
	MaxIntervalDays float64
}

// NewDefaultParams creates a new Params instance with default values.
func NewDefaultParams() *Params {
	return &Params{
		Weights:          DefaultWeights(),
		DesiredRetention: 0.9,
		MinIntervalDays:  1,
		MaxIntervalDays:  36500,
	}
}

// NewParams creates a Params instance from a custom weight vector, keeping
// the default retention target and interval bounds.
// Returns an error if the weight vector has the wrong shape.
func NewParams(weights []float64) (*Params, error) {
	params := NewDefaultParams()
	params.Weights = weights

	if err := params.Validate(); err != nil {
		return nil, err
	}

	return params, nil
}

// Validate checks the parameter set for structural validity.
func (p *Params) Validate() error {
	if len(p.Weights) != WeightCount {
		return ErrWrongWeightCount
	}

	if p.DesiredRetention <= 0 || p.DesiredRetention >= 1 {
		return ErrInvalidRetention
	}

	if p.MaxIntervalDays < p.MinIntervalDays {
		return ErrInvalidIntervalSpan
	}

	return nil
}
