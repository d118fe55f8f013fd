package bkt

import (
	"math"

	"github.com/yungbote/adaptive-engine/internal/pkg/matrix"
)

// Clean clamps p into [eps, 1-eps].
func Clean(p, eps float64) float64 {
	return math.Min(math.Max(p, eps), 1-eps)
}

// Odds converts a probability to odds p/(1-p). With clean set, p is clamped first.
func Odds(p, eps float64, clean bool) float64 {
	if clean {
		p = Clean(p, eps)
	}
	return p / (1 - p)
}

// Probability is the inverse of Odds.
func Probability(o float64) float64 {
	return o / (1 + o)
}

func LogOdds(p, eps float64, clean bool) float64 {
	return math.Log(Odds(p, eps, clean))
}

func OddsVec(p []float64, eps float64) []float64 {
	out := make([]float64, len(p))
	for i, v := range p {
		out[i] = Odds(v, eps, true)
	}
	return out
}

func ProbabilityVec(o []float64) []float64 {
	out := make([]float64, len(o))
	for i, v := range o {
		out[i] = Probability(v)
	}
	return out
}

func OddsDense(p *matrix.Dense, eps float64) *matrix.Dense {
	return p.Apply(func(v float64) float64 { return Odds(v, eps, true) })
}

func ProbabilityDense(o *matrix.Dense) *matrix.Dense {
	return o.Apply(Probability)
}

// Difficulty normalizes a raw difficulty in (0,1) to clean log-odds. Unknown
// difficulty is treated as 0.5.
func Difficulty(raw *float64, eps float64) float64 {
	if raw == nil || math.IsNaN(*raw) {
		return 0
	}
	return LogOdds(*raw, eps, true)
}
