package fsrs

import (
	"math"

	"github.com/recallhq/engram-api/internal/domain"
)

// minStability is the floor applied to every computed stability. It keeps
// the forgetting curve and interval formulas well-defined.
const minStability = 0.1

// decayFactor scales elapsed time in the power-law forgetting curve so that
// retrievability is exactly 90% when elapsed time equals stability.
const decayFactor = 9.0

// forgettingCurve returns the modeled probability of recall after
// elapsedDays given the current stability: R(t) = (1 + t/(9*S))^-1.
//
// Parameters:
//   - stability: memory stability in days; values <= 0 are treated as
//     just-learned material with full retrievability at t=0
//   - elapsedDays: days since the last review
//
// Returns a probability in (0, 1].
func forgettingCurve(stability, elapsedDays float64) float64 {
	if elapsedDays <= 0 {
		return 1.0
	}
	if stability <= 0 {
		stability = minStability
	}
	return 1.0 / (1.0 + elapsedDays/(decayFactor*stability))
}

// intervalForRetention inverts the forgetting curve: the number of days
// after which retrievability decays to the desired retention target.
// The result is rounded to whole days and clamped to [minDays, maxDays].
func intervalForRetention(stability, retention, minDays, maxDays float64) float64 {
	interval := decayFactor * stability * (1.0/retention - 1.0)
	interval = math.Round(interval)
	return clamp(interval, minDays, maxDays)
}

// initialStability returns the stability assigned by the first review,
// indexed by rating (w0..w3).
func initialStability(w []float64, rating domain.ReviewRating) float64 {
	return math.Max(w[rating-1], minStability)
}

// initialDifficulty returns the difficulty assigned by the first review.
// Good anchors the scale at w4; each rating step away from good shifts
// difficulty by w5.
func initialDifficulty(w []float64, rating domain.ReviewRating) float64 {
	return clamp(w[4]-float64(rating-3)*w[5], 1, 10)
}

// nextDifficulty updates difficulty after a review. The raw update shifts
// by w6 per rating step away from good, then mean-reverts toward the
// initial good difficulty with weight w7 so difficulty cannot drift
// unboundedly over long histories.
func nextDifficulty(w []float64, difficulty float64, rating domain.ReviewRating) float64 {
	raw := difficulty - w[6]*float64(rating-3)
	reverted := w[7]*initialDifficulty(w, domain.RatingGood) + (1-w[7])*raw
	return clamp(reverted, 1, 10)
}

// recallStability returns the new stability after a successful review
// (hard, good or easy). Growth is larger for easier material (11-d),
// for lower current stability (s^-w9) and for lower retrievability at
// review time (the spacing effect, exp(w10*(1-r))-1).
func recallStability(
	w []float64,
	stability, difficulty, retrievability float64,
	rating domain.ReviewRating,
) float64 {
	hardPenalty := 1.0
	if rating == domain.RatingHard {
		hardPenalty = w[15]
	}
	easyBonus := 1.0
	if rating == domain.RatingEasy {
		easyBonus = w[16]
	}

	growth := math.Exp(w[8]) *
		(11 - difficulty) *
		math.Pow(stability, -w[9]) *
		(math.Exp(w[10]*(1-retrievability)) - 1) *
		hardPenalty *
		easyBonus

	return math.Max(stability*(1+growth), minStability)
}

// lapseStability returns the new stability after a failed review (again).
// The result is never above the pre-lapse stability.
func lapseStability(w []float64, stability, difficulty, retrievability float64) float64 {
	next := w[11] *
		math.Pow(difficulty, -w[12]) *
		(math.Pow(stability+1, w[13]) - 1) *
		math.Exp(w[14]*(1-retrievability))

	return math.Max(math.Min(next, stability), minStability)
}

// clamp bounds v to [lo, hi].
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
