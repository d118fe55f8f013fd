package bkt

import (
	"math"

	"github.com/yungbote/adaptive-engine/internal/pkg/matrix"
)

// Relevance is how informative an item is about a KC, from guess and slip odds.
// Untagged cells carry odds 1 on both and so have relevance 0.
func Relevance(guess, slip float64) float64 {
	return -math.Log(guess) - math.Log(slip)
}

// X0Mult is the mastery odds multiplier for a score of 0.
func X0Mult(guess, slip float64) float64 {
	return slip * (1 + guess) / (1 + slip)
}

// X10Mult is the ratio between the score-1 and score-0 multipliers. A partial score s
// multiplies mastery odds by X0Mult * X10Mult^s.
func X10Mult(guess, slip float64) float64 {
	return ((1 + guess) / (guess * (1 + slip))) / X0Mult(guess, slip)
}

func RelevanceVec(guess, slip []float64) []float64 {
	out := make([]float64, len(guess))
	for i := range guess {
		out[i] = Relevance(guess[i], slip[i])
	}
	return out
}

func RelevanceDense(guess, slip *matrix.Dense) *matrix.Dense {
	return guess.Zip(slip, Relevance)
}

func negLog(v float64) float64 { return -math.Log(v) }
