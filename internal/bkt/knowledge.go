package bkt

import "github.com/yungbote/adaptive-engine/internal/pkg/matrix"

// Submission is one scored attempt: the activity row and the score in [0,1].
type Submission struct {
	Activity int
	Score    float64
}

// InferKnowledge estimates, for one learner's chronological submissions, whether each
// KC was already mastered at each submission. Row j of the result holds, per KC, the
// fraction of equally cheap changepoints at or before j.
//
// A changepoint n means the learner was unmastered for submissions [0, n) and mastered
// from n on. Its cost for KC k is the guess cost of correct answers before n plus the
// slip cost of incorrect answers from n on, both weighted by the -log odds of the
// submitted activity. n ranges over 0..N, so n=0 is mastered throughout and n=N is
// never mastered.
func InferKnowledge(seq []Submission, guessNegLog, slipNegLog *matrix.Dense) *matrix.Dense {
	_, k := guessNegLog.Dims()
	n := len(seq)
	out := matrix.New(n, k)
	if n == 0 || k == 0 {
		return out
	}

	// z[i] = prefixGuess[i] + suffixSlip[i]
	z := matrix.New(n+1, k)
	for i := n - 1; i >= 0; i-- {
		s := seq[i]
		miss := 1 - s.Score
		slip := slipNegLog.Row(s.Activity)
		next, cur := z.Row(i+1), z.Row(i)
		for c := 0; c < k; c++ {
			cur[c] = next[c] + miss*slip[c]
		}
	}
	// z now holds suffix slip costs; row n is zero. Add prefix guess costs.
	prefix := make([]float64, k)
	for i := 1; i <= n; i++ {
		s := seq[i-1]
		guess := guessNegLog.Row(s.Activity)
		row := z.Row(i)
		for c := 0; c < k; c++ {
			prefix[c] += s.Score * guess[c]
			row[c] += prefix[c]
		}
	}

	for c := 0; c < k; c++ {
		best := z.At(0, c)
		for i := 1; i <= n; i++ {
			if v := z.At(i, c); v < best {
				best = v
			}
		}
		// after visiting row j, ties counts minimizing changepoints in [0, j]
		ties := 0
		for j := 0; j < n; j++ {
			if z.At(j, c) == best {
				ties++
			}
			out.Set(j, c, float64(ties))
		}
		if z.At(n, c) == best {
			ties++
		}
		if ties == 0 {
			continue
		}
		for j := 0; j < n; j++ {
			out.Set(j, c, out.At(j, c)/float64(ties))
		}
	}
	return out
}
