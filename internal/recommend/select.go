package recommend

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"

	"github.com/yungbote/adaptive-engine/internal/bkt"
	apperrors "github.com/yungbote/adaptive-engine/internal/pkg/errors"
)

const defaultSeed = 42

// Selection is the outcome of picking among candidates. Index is a position in the
// candidate list and is -1 when Complete is set.
type Selection struct {
	Index    int
	Complete bool
	// Random is set when no candidate was relevant to any KC and the pick was uniform.
	Random bool
	// Considered lists the candidate positions that were scored, in order, and Scores
	// holds their breakdown. Both are empty when no scoring happened.
	Considered []int
	Scores     *Breakdown
}

// Ranked is one candidate position with its blended score.
type Ranked struct {
	Index int
	Score float64
}

// Selector picks the next activity. It owns the random source used when scoring has
// nothing to go on, so one Selector may be shared across goroutines.
type Selector struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSelector returns a Selector seeded with seed. Zero selects a fixed default seed.
func NewSelector(seed int64) *Selector {
	if seed == 0 {
		seed = defaultSeed
	}
	return &Selector{rng: rand.New(rand.NewSource(seed))}
}

// Select picks one of n candidates whose rows are given in in. A single candidate is
// returned without reading in. Ties on the blended score go to the lowest position.
func (s *Selector) Select(n int, in Inputs, w Weights, opts Options) (Selection, error) {
	switch {
	case n < 0:
		return Selection{}, fmt.Errorf("%w: recommend: negative candidate count %d", apperrors.ErrInvalidArgument, n)
	case n == 0:
		return Selection{Index: -1, Complete: true}, nil
	case n == 1:
		return Selection{Index: 0}, nil
	}
	if err := in.validate(); err != nil {
		return Selection{}, err
	}
	if q, _ := in.Guess.Dims(); q != n {
		return Selection{}, fmt.Errorf("%w: recommend: %d candidates but %d guess rows", apperrors.ErrInvalidArgument, n, q)
	}

	rel := bkt.RelevanceDense(in.Guess, in.Slip)
	relevant := false
	for i := 0; i < n && !relevant; i++ {
		relevant = !rel.RowIsZero(i)
	}
	if !relevant {
		return Selection{Index: s.intn(n), Random: true}, nil
	}

	considered := make([]int, 0, n)
	if opts.StopOnMastery {
		r := ScoreR(rel, logVec(in.Mastery), w.LStar)
		for i, v := range r {
			if v != 0 {
				considered = append(considered, i)
			}
		}
		switch len(considered) {
		case 0:
			return Selection{Index: -1, Complete: true}, nil
		case 1:
			return Selection{Index: considered[0], Considered: considered}, nil
		}
		if len(considered) < n {
			in = in.subset(considered)
		}
	} else {
		for i := 0; i < n; i++ {
			considered = append(considered, i)
		}
	}

	b, err := Scores(in, w, opts)
	if err != nil {
		return Selection{}, err
	}
	best := 0
	for i := 1; i < len(b.Total); i++ {
		if b.Total[i] > b.Total[best] {
			best = i
		}
	}
	return Selection{Index: considered[best], Considered: considered, Scores: b}, nil
}

// Rank scores every candidate and orders positions by descending score, lowest
// position first among equals.
func Rank(in Inputs, w Weights, opts Options) ([]Ranked, error) {
	b, err := Scores(in, w, opts)
	if err != nil {
		return nil, err
	}
	out := make([]Ranked, len(b.Total))
	for i, v := range b.Total {
		out[i] = Ranked{Index: i, Score: v}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}

func (s *Selector) intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}

func (in Inputs) subset(rows []int) Inputs {
	out := in
	out.Guess = in.Guess.SelectRows(rows)
	out.Slip = in.Slip.SelectRows(rows)
	out.Difficulty = make([]float64, len(rows))
	for i, r := range rows {
		out.Difficulty[i] = in.Difficulty[r]
	}
	return out
}
