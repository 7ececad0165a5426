// Package formula holds the pure numeric functions used to score a performance.
package formula

import "math"

// DefaultMaxPoints is the score ceiling used by the engine.
const DefaultMaxPoints = 5000

// epleyDivisor is the rep divisor of the Epley estimate.
const epleyDivisor = 30.0

// OneRepMax estimates a one-rep max with the Epley formula.
// ok is false when reps <= 0 or weight < 0.
func OneRepMax(weight float64, reps int) (float64, bool) {
	if reps <= 0 || weight < 0 || !finite(weight) {
		return 0, false
	}
	if reps == 1 {
		return weight, true
	}
	return weight * (1 + float64(reps)/epleyDivisor), true
}

// StrengthToWeightRatio returns oneRepMax / bodyweight.
// ok is false when bodyweight <= 0.
func StrengthToWeightRatio(oneRepMax, bodyweight float64) (float64, bool) {
	if bodyweight <= 0 || !finite(bodyweight) || !finite(oneRepMax) {
		return 0, false
	}
	return oneRepMax / bodyweight, true
}

// CurveScore maps userRatio/eliteRatio onto [0, maxPoints] with
// maxPoints * min(ratio, 1)^alpha. Lower alpha rewards early gains more;
// alpha <= 0 falls back to the linear curve.
func CurveScore(alpha, eliteRatio, userRatio, maxPoints float64) float64 {
	if eliteRatio <= 0 || userRatio <= 0 || maxPoints <= 0 {
		return 0
	}
	if !finite(alpha) || !finite(eliteRatio) || !finite(userRatio) || !finite(maxPoints) {
		return 0
	}
	if alpha <= 0 {
		alpha = 1
	}
	ratio := math.Min(userRatio/eliteRatio, 1)
	score := maxPoints * math.Pow(ratio, alpha)
	return math.Max(0, math.Min(maxPoints, score))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
