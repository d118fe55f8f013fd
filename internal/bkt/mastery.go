package bkt

import "math"

// UpdateMastery applies one BKT step to a learner's mastery odds for a score in [0,1].
// guess, slip and transit are the odds rows of the attempted activity. The result is a
// new slice. Evidence that overflows is clamped to 1/eps before the transfer step, so a
// zero transit leaves it there; entries that collapse to zero (or NaN from 0*Inf) become eps.
func UpdateMastery(mastery []float64, score float64, guess, slip, transit []float64, eps float64) []float64 {
	out := make([]float64, len(mastery))
	for k := range mastery {
		x := X0Mult(guess[k], slip[k]) * math.Pow(X10Mult(guess[k], slip[k]), score)
		l := clampOdds(mastery[k]*x, eps)
		if transit[k] != 0 {
			l = clampOdds(l+transit[k]*(l+1), eps)
		}
		out[k] = l
	}
	return out
}

// FirstAttemptConfidence is the evidence credited per KC the first time a learner
// attempts an activity.
func FirstAttemptConfidence(guess, slip []float64) []float64 {
	return RelevanceVec(guess, slip)
}

func clampOdds(l, eps float64) float64 {
	switch {
	case math.IsInf(l, 1):
		return 1 / eps
	case l == 0 || math.IsNaN(l):
		return eps
	}
	return l
}
