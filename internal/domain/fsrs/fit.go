package fsrs

import (
	"math"

	"github.com/recallhq/engram-api/internal/domain"
)

// Fitting configuration. Coordinate descent is deliberately simple: the
// optimizer runs offline in a background job, and the loss surface for a
// single learner is small enough that a derivative-free search converges
// in a few passes.
const (
	fitMaxPasses   = 8
	fitInitialStep = 0.15
	fitStepDecay   = 0.6
	probFloor      = 1e-6
)

// weight bounds keep the descent inside the region where the update
// formulas remain well-behaved.
var fitLowerBounds = []float64{
	0.01, 0.01, 0.01, 0.01,
	1, 0.01,
	0.01, 0,
	0, 0, 0.01,
	0.01, 0.01, 0.01, 0,
	0, 1,
}

var fitUpperBounds = []float64{
	100, 100, 100, 100,
	10, 5,
	5, 0.75,
	4.5, 0.8, 3.5,
	5, 0.8, 0.9, 4,
	1, 6,
}

// Fit implements Model.Fit. It minimizes log-loss of the forgetting curve's
// recall predictions over every non-first review in the given sequences,
// using bounded coordinate descent seeded from the model's current weights.
func (m *defaultModel) Fit(sequences [][]ReviewStep) ([]float64, error) {
	weights := make([]float64, WeightCount)
	copy(weights, m.params.Weights)

	if countObservations(sequences) == 0 {
		return nil, ErrNoObservations
	}

	best := sequencesLogLoss(weights, sequences)
	step := fitInitialStep

	for pass := 0; pass < fitMaxPasses; pass++ {
		improved := false

		for i := range weights {
			span := fitUpperBounds[i] - fitLowerBounds[i]
			for _, direction := range []float64{1, -1} {
				candidate := make([]float64, WeightCount)
				copy(candidate, weights)
				candidate[i] = clamp(
					candidate[i]+direction*step*span,
					fitLowerBounds[i],
					fitUpperBounds[i],
				)

				loss := sequencesLogLoss(candidate, sequences)
				if loss < best {
					best = loss
					weights = candidate
					improved = true
				}
			}
		}

		if !improved {
			step *= fitStepDecay
		}
	}

	return weights, nil
}

// countObservations returns how many reviews contribute to the loss.
// Only non-first reviews carry a prediction to score.
func countObservations(sequences [][]ReviewStep) int {
	total := 0
	for _, steps := range sequences {
		if len(steps) > 1 {
			total += len(steps) - 1
		}
	}
	return total
}

// sequencesLogLoss replays every sequence under the candidate weights and
// accumulates the log-loss of each recall prediction.
func sequencesLogLoss(w []float64, sequences [][]ReviewStep) float64 {
	loss := 0.0
	n := 0

	for _, steps := range sequences {
		if len(steps) == 0 {
			continue
		}

		state := MemoryState{
			Stability:  initialStability(w, steps[0].Rating),
			Difficulty: initialDifficulty(w, steps[0].Rating),
		}

		for i := 1; i < len(steps); i++ {
			elapsed := steps[i].OccurredAt.Sub(steps[i-1].OccurredAt).Hours() / 24
			if elapsed < 0 {
				elapsed = 0
			}

			predicted := forgettingCurve(state.Stability, elapsed)
			predicted = clamp(predicted, probFloor, 1-probFloor)

			if steps[i].Rating == domain.RatingAgain {
				loss -= math.Log(1 - predicted)
				state.Stability = lapseStability(w, state.Stability, state.Difficulty, predicted)
			} else {
				loss -= math.Log(predicted)
				state.Stability = recallStability(w, state.Stability, state.Difficulty, predicted, steps[i].Rating)
			}
			state.Difficulty = nextDifficulty(w, state.Difficulty, steps[i].Rating)
			n++
		}
	}

	if n == 0 {
		return math.Inf(1)
	}
	return loss / float64(n)
}
