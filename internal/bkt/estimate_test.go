package bkt

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/yungbote/adaptive-engine/internal/pkg/errors"
	"github.com/yungbote/adaptive-engine/internal/pkg/matrix"
)

func singleCellParams(guess, slip, transit, prior float64) Params {
	return Params{
		Guess:   matrix.NewFilled(1, 1, Odds(guess, eps, true)),
		Slip:    matrix.NewFilled(1, 1, Odds(slip, eps, true)),
		Transit: matrix.NewFilled(1, 1, Odds(transit, eps, true)),
		Prior:   []float64{Odds(prior, eps, true)},
	}
}

func repeatLearners(n int, scores ...float64) []History {
	out := make([]History, n)
	for i := range out {
		subs := make([]Submission, len(scores))
		for j, s := range scores {
			subs[j] = Submission{Activity: 0, Score: s}
		}
		out[i] = History{Learner: fmt.Sprintf("learner-%d", i), Submissions: subs}
	}
	return out
}

func testConfig(threshold float64) Config {
	cfg := DefaultConfig()
	cfg.InformationThreshold = threshold
	return cfg
}

func TestEstimateInformationThresholdExactlyMet(t *testing.T) {
	current := singleCellParams(0.1, 0.15, 0.1, 0.2)
	// a single wrong answer is read as "not yet mastered": one unit of guess evidence per learner
	res, err := Estimate(context.Background(), repeatLearners(5, 0), current, testConfig(5))
	require.NoError(t, err)

	require.True(t, res.Guess.Valid.At(0, 0))
	assert.Equal(t, 5.0, res.Evidence.Guess.At(0, 0))
	assert.False(t, math.IsNaN(res.Diagnostic.Guess.At(0, 0)))
	assert.InDelta(t, Odds(0, eps, true), res.Clean.Guess.At(0, 0), 1e-20)

	require.True(t, res.Prior.Valid.At(0, 0))
	assert.InDelta(t, Odds(0, eps, true), res.Clean.Prior[0], 1e-20)

	// no mastered submissions: slip has no evidence and keeps the current value
	assert.True(t, math.IsNaN(res.Diagnostic.Slip.At(0, 0)))
	assert.Equal(t, current.Slip.At(0, 0), res.Clean.Slip.At(0, 0))
	assert.Equal(t, 5, res.Learners)
	assert.Equal(t, 5, res.Submissions)
}

func TestEstimateHandWorkedTransitAndSlip(t *testing.T) {
	current := singleCellParams(0.1, 0.15, 0.1, 0.2)
	// three learners go wrong then right: knowledge [0, 1], a transition after the first
	// submission. One learner goes right then wrong: the wrong answer is cheaper as a slip
	// (-log 0.15 odds < -log 0.1 odds), so it is mastered throughout.
	histories := append(repeatLearners(3, 0, 1), repeatLearners(1, 1, 0)...)

	know := InferKnowledge(histories[0].Submissions, current.Guess.Apply(negLog), current.Slip.Apply(negLog))
	assert.Equal(t, []float64{0, 1}, []float64{know.At(0, 0), know.At(1, 0)})
	know = InferKnowledge(histories[3].Submissions, current.Guess.Apply(negLog), current.Slip.Apply(negLog))
	assert.Equal(t, []float64{1, 1}, []float64{know.At(0, 0), know.At(1, 0)})

	res, err := Estimate(context.Background(), histories, current, testConfig(3))
	require.NoError(t, err)

	// guess: the three unmastered first submissions, all wrong
	assert.Equal(t, 3.0, res.Evidence.Guess.At(0, 0))
	assert.InDelta(t, Odds(0, eps, true), res.Clean.Guess.At(0, 0), 1e-20)

	// transit: only non-final unmastered submissions count, each followed by mastery
	assert.Equal(t, 3.0, res.Evidence.Transit.At(0, 0))
	assert.Equal(t, Odds(1, eps, true), res.Clean.Transit.At(0, 0))

	// slip: three mastered right answers plus two mastered answers with one miss
	assert.Equal(t, 5.0, res.Evidence.Slip.At(0, 0))
	assert.InDelta(t, Odds(0.2, eps, true), res.Clean.Slip.At(0, 0), 1e-12)

	// prior: one of four learners starts mastered
	assert.Equal(t, 4.0, res.Evidence.Prior[0])
	assert.InDelta(t, Odds(0.25, eps, true), res.Clean.Prior[0], 1e-12)

	for name, n := range res.Rejections.Sparse {
		if n != 0 {
			t.Fatalf("%s: %d sparse cells", name, n)
		}
	}
}

func TestEstimateInformationThresholdMissedByOne(t *testing.T) {
	current := singleCellParams(0.1, 0.15, 0.1, 0.2)
	res, err := Estimate(context.Background(), repeatLearners(4, 0), current, testConfig(5))
	require.NoError(t, err)

	assert.False(t, res.Guess.Valid.At(0, 0))
	assert.True(t, math.IsNaN(res.Diagnostic.Guess.At(0, 0)))
	assert.Equal(t, current.Guess.At(0, 0), res.Clean.Guess.At(0, 0))
	assert.Equal(t, current.Prior[0], res.Clean.Prior[0])
	assert.Equal(t, 1, res.Rejections.Sparse["guess"])
}

func TestRemoveDegeneracyGuessAboveHalf(t *testing.T) {
	guess := matrix.NewMasked(1, 2)
	slip := matrix.NewMasked(1, 2)
	guess.Values.Set(0, 0, 0.55)
	slip.Values.Set(0, 0, 0.1)
	guess.Values.Set(0, 1, 0.3)
	slip.Values.Set(0, 1, 0.75)
	for j := 0; j < 2; j++ {
		guess.Valid.Set(0, j, true)
		slip.Valid.Set(0, j, true)
	}

	badGuess, badSlip := removeDegeneracy(guess, slip)
	if guess.Valid.At(0, 0) || !slip.Valid.At(0, 0) {
		t.Fatalf("cell 0: guess valid=%v slip valid=%v", guess.Valid.At(0, 0), slip.Valid.At(0, 0))
	}
	// guess+slip reaches 1 and slip is above 0.5: both go
	if guess.Valid.At(0, 1) || slip.Valid.At(0, 1) {
		t.Fatalf("cell 1: guess valid=%v slip valid=%v", guess.Valid.At(0, 1), slip.Valid.At(0, 1))
	}
	if badGuess != 2 || badSlip != 1 {
		t.Fatalf("counts: guess=%d slip=%d", badGuess, badSlip)
	}
}

func TestEstimateRemovesDegenerateGuess(t *testing.T) {
	// cheap guesses make "right then wrong" read as never mastered, so half the
	// unmastered answers are correct: an estimated guess of exactly 0.5
	current := singleCellParams(0.3, 0.1, 0.1, 0.2)
	histories := repeatLearners(10, 1, 0)

	res, err := Estimate(context.Background(), histories, current, testConfig(5))
	require.NoError(t, err)
	assert.False(t, res.Guess.Valid.At(0, 0))
	assert.True(t, math.IsNaN(res.Diagnostic.Guess.At(0, 0)))
	assert.Equal(t, current.Guess.At(0, 0), res.Clean.Guess.At(0, 0))
	assert.Equal(t, 1, res.Rejections.Degenerate["guess"])

	cfg := testConfig(5)
	cfg.RemoveDegeneracy = false
	res, err = Estimate(context.Background(), histories, current, cfg)
	require.NoError(t, err)
	assert.True(t, res.Guess.Valid.At(0, 0))
	assert.InDelta(t, 1.0, res.Clean.Guess.At(0, 0), 1e-9)
}

func TestEstimateIsDeterministicAcrossWorkers(t *testing.T) {
	current := Params{
		Guess:   matrix.FromRows([][]float64{{0.11, 1}, {0.2, 0.15}, {1, 0.3}}),
		Slip:    matrix.FromRows([][]float64{{0.17, 1}, {0.1, 0.2}, {1, 0.12}}),
		Transit: matrix.FromRows([][]float64{{0.11, 0}, {0.11, 0.11}, {0, 0.11}}),
		Prior:   []float64{0.25, 0.25},
	}
	var histories []History
	for i := 0; i < 40; i++ {
		subs := []Submission{
			{Activity: i % 3, Score: float64(i%2) * 0.8},
			{Activity: (i + 1) % 3, Score: 1},
			{Activity: (i + 2) % 3, Score: float64(i%5) / 4},
		}
		histories = append(histories, History{Learner: fmt.Sprint(i), Submissions: subs})
	}

	one := DefaultConfig()
	one.InformationThreshold = 3
	one.Workers = 1
	many := one
	many.Workers = 8

	a, err := Estimate(context.Background(), histories, current, one)
	require.NoError(t, err)
	b, err := Estimate(context.Background(), histories, current, many)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		for j := 0; j < 2; j++ {
			if a.Clean.Guess.At(i, j) != b.Clean.Guess.At(i, j) ||
				a.Clean.Slip.At(i, j) != b.Clean.Slip.At(i, j) ||
				a.Clean.Transit.At(i, j) != b.Clean.Transit.At(i, j) {
				t.Fatalf("cell (%d,%d) differs between worker counts", i, j)
			}
		}
	}
	assert.False(t, a.Clean.Guess.HasNonFinite())
	assert.False(t, a.Clean.Slip.HasNonFinite())
	assert.False(t, a.Clean.Transit.HasNonFinite())
}

func TestEstimateSkipsEmptyHistories(t *testing.T) {
	current := singleCellParams(0.1, 0.15, 0.1, 0.2)
	histories := append(repeatLearners(2, 0), History{Learner: "idle"})
	res, err := Estimate(context.Background(), histories, current, testConfig(1))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Learners)
}

func TestEstimateRejectsBadInput(t *testing.T) {
	current := singleCellParams(0.1, 0.15, 0.1, 0.2)

	_, err := Estimate(context.Background(), []History{{Submissions: []Submission{{Activity: 3}}}}, current, DefaultConfig())
	if !errors.Is(err, apperrors.ErrInvalidArgument) {
		t.Fatalf("out of range activity: got err=%v", err)
	}
	_, err = Estimate(context.Background(), []History{{Submissions: []Submission{{Score: 1.5}}}}, current, DefaultConfig())
	if !errors.Is(err, apperrors.ErrInvalidArgument) {
		t.Fatalf("score out of range: got err=%v", err)
	}
	bad := current
	bad.Prior = nil
	if _, err := Estimate(context.Background(), nil, bad, DefaultConfig()); !errors.Is(err, apperrors.ErrInvalidArgument) {
		t.Fatalf("bad prior: got err=%v", err)
	}
}

func TestEstimateHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Estimate(ctx, repeatLearners(3, 1), singleCellParams(0.1, 0.15, 0.1, 0.2), DefaultConfig())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got err=%v want context.Canceled", err)
	}
}
