package recommend

import (
	"fmt"
	"math"

	"github.com/yungbote/adaptive-engine/internal/bkt"
	apperrors "github.com/yungbote/adaptive-engine/internal/pkg/errors"
	"github.com/yungbote/adaptive-engine/internal/pkg/matrix"
)

// Inputs are the candidate rows and learner state the scorer reads. Guess and Slip hold
// one row per candidate in odds. Mastery is the learner's mastery odds per KC.
// Difficulty is one normalized log-odds value per candidate. LastGuess and LastSlip are
// the odds rows of the most recently attempted activity, or nil when there is none.
type Inputs struct {
	Guess      *matrix.Dense
	Slip       *matrix.Dense
	Mastery    []float64
	Prereqs    *matrix.Dense
	Difficulty []float64
	LastGuess  []float64
	LastSlip   []float64
}

func (in Inputs) validate() error {
	if in.Guess == nil || in.Slip == nil || in.Prereqs == nil {
		return fmt.Errorf("%w: recommend: guess, slip and prereqs are required", apperrors.ErrInvalidArgument)
	}
	q, k := in.Guess.Dims()
	if r, c := in.Slip.Dims(); r != q || c != k {
		return fmt.Errorf("%w: recommend: slip is %dx%d, guess is %dx%d", apperrors.ErrInvalidArgument, r, c, q, k)
	}
	if r, c := in.Prereqs.Dims(); r != k || c != k {
		return fmt.Errorf("%w: recommend: prereqs is %dx%d, want %dx%d", apperrors.ErrInvalidArgument, r, c, k, k)
	}
	if len(in.Mastery) != k {
		return fmt.Errorf("%w: recommend: mastery has %d entries, want %d", apperrors.ErrInvalidArgument, len(in.Mastery), k)
	}
	if len(in.Difficulty) != q {
		return fmt.Errorf("%w: recommend: difficulty has %d entries, want %d", apperrors.ErrInvalidArgument, len(in.Difficulty), q)
	}
	if (in.LastGuess == nil) != (in.LastSlip == nil) {
		return fmt.Errorf("%w: recommend: last guess and last slip must both be set or both be nil", apperrors.ErrInvalidArgument)
	}
	if in.LastGuess != nil && (len(in.LastGuess) != k || len(in.LastSlip) != k) {
		return fmt.Errorf("%w: recommend: last attempted rows must have %d entries", apperrors.ErrInvalidArgument, k)
	}
	return nil
}

// Breakdown holds the per-candidate sub-scores and their weighted total.
type Breakdown struct {
	P     []float64
	R     []float64
	D     []float64
	C     []float64
	Total []float64
}

// Scores computes the four sub-strategies for every candidate and blends them.
func Scores(in Inputs, w Weights, opts Options) (*Breakdown, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	rel := bkt.RelevanceDense(in.Guess, in.Slip)
	L := logVec(in.Mastery)

	b := &Breakdown{
		P: ScoreP(rel, L, in.Prereqs, w.RStar, w.LStar),
		R: ScoreR(rel, L, w.LStar),
		D: ScoreD(rel, L, in.Difficulty),
		C: ScoreC(rel, in.LastGuess, in.LastSlip),
	}
	if opts.Normalize {
		for _, s := range [][]float64{b.P, b.R, b.D, b.C} {
			divideByRange(s)
		}
	}
	q, _ := rel.Dims()
	b.Total = make([]float64, q)
	for i := range b.Total {
		b.Total[i] = w.WP*b.P[i] + w.WR*b.R[i] + w.WD*b.D[i] + w.WC*b.C[i]
	}
	return b, nil
}

// ScoreP is readiness. For each KC, m_r sums the prerequisite shortfalls below LStar
// weighted by edge strength; each candidate is penalized by its relevance to KCs whose
// shortfall exceeds rStar. L is mastery log-odds.
func ScoreP(rel *matrix.Dense, L []float64, prereqs *matrix.Dense, rStar, lStar float64) []float64 {
	deficit := make([]float64, len(L))
	for k, v := range L {
		deficit[k] = math.Min(v-lStar, 0)
	}
	mr := matrix.VecMul(deficit, prereqs)
	for k := range mr {
		mr[k] = math.Min(mr[k]+rStar, 0)
	}
	return rel.MulVec(mr)
}

// ScoreR is remediation: relevance to KCs still below LStar.
func ScoreR(rel *matrix.Dense, L []float64, lStar float64) []float64 {
	demand := make([]float64, len(L))
	for k, v := range L {
		demand[k] = math.Max(lStar-v, 0)
	}
	return rel.MulVec(demand)
}

// ScoreD is difficulty match: minus the relevance-weighted distance between each KC's
// mastery log-odds and the candidate's difficulty.
func ScoreD(rel *matrix.Dense, L []float64, difficulty []float64) []float64 {
	q, _ := rel.Dims()
	out := make([]float64, q)
	for i := 0; i < q; i++ {
		row := rel.Row(i)
		var s float64
		for k, v := range L {
			s += row[k] * math.Abs(v-difficulty[i])
		}
		out[i] = -s
	}
	return out
}

// ScoreC is continuity with the last attempted activity. Without one it is all zeros.
func ScoreC(rel *matrix.Dense, lastGuess, lastSlip []float64) []float64 {
	q, _ := rel.Dims()
	if lastGuess == nil || lastSlip == nil {
		return make([]float64, q)
	}
	out := rel.MulVec(bkt.RelevanceVec(lastGuess, lastSlip))
	for i, v := range out {
		// items with guess or slip above one half have negative relevance
		out[i] = math.Sqrt(math.Max(v, 0))
	}
	return out
}

func logVec(v []float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = math.Log(x)
	}
	return out
}

func divideByRange(s []float64) {
	if len(s) == 0 {
		return
	}
	lo, hi := s[0], s[0]
	for _, v := range s[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	r := hi - lo
	if r == 0 {
		return
	}
	for i := range s {
		s[i] /= r
	}
}
