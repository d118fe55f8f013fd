package bkt

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/yungbote/adaptive-engine/internal/pkg/errors"
	"github.com/yungbote/adaptive-engine/internal/pkg/matrix"
)

// History is one learner's submissions in chronological order.
type History struct {
	Learner     string
	Submissions []Submission
}

// Params are the model parameters in odds. Guess, Slip and Transit are Q×K (activity
// rows, KC columns); Prior has one entry per KC.
type Params struct {
	Guess   *matrix.Dense
	Slip    *matrix.Dense
	Transit *matrix.Dense
	Prior   []float64
}

func (p Params) Dims() (activities, kcs int) {
	if p.Guess == nil {
		return 0, len(p.Prior)
	}
	return p.Guess.Dims()
}

func (p Params) Validate() error {
	if p.Guess == nil || p.Slip == nil || p.Transit == nil {
		return fmt.Errorf("%w: params: guess, slip and transit are required", apperrors.ErrInvalidArgument)
	}
	q, k := p.Guess.Dims()
	for name, m := range map[string]*matrix.Dense{"slip": p.Slip, "transit": p.Transit} {
		if r, c := m.Dims(); r != q || c != k {
			return fmt.Errorf("%w: params: %s is %dx%d, guess is %dx%d", apperrors.ErrInvalidArgument, name, r, c, q, k)
		}
	}
	if len(p.Prior) != k {
		return fmt.Errorf("%w: params: prior has %d entries, want %d", apperrors.ErrInvalidArgument, len(p.Prior), k)
	}
	return nil
}

// Evidence holds the accumulated denominators behind each estimated cell.
type Evidence struct {
	Guess   *matrix.Dense
	Slip    *matrix.Dense
	Transit *matrix.Dense
	Prior   []float64
}

// Rejections counts cells that kept their current value, per parameter name.
type Rejections struct {
	Sparse     map[string]int
	Degenerate map[string]int
}

// Result is the outcome of a batch estimation. Guess, Slip, Transit and Prior carry the
// estimated odds with a validity mask (Prior is 1×K). Clean has invalid cells reverted
// to the current parameters; Diagnostic has them set to NaN.
type Result struct {
	Guess   *matrix.Masked
	Slip    *matrix.Masked
	Transit *matrix.Masked
	Prior   *matrix.Masked

	Clean      Params
	Diagnostic Params
	Evidence   Evidence
	Rejections Rejections

	Learners    int
	Submissions int
}

// Estimate re-estimates guess, slip, transit and prior mastery from every learner's
// history. Knowledge inference runs in parallel across learners; accumulation folds
// the per-learner results in input order so the output does not depend on scheduling.
func Estimate(ctx context.Context, histories []History, current Params, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := current.Validate(); err != nil {
		return nil, err
	}
	q, k := current.Dims()
	for _, h := range histories {
		for j, s := range h.Submissions {
			if s.Activity < 0 || s.Activity >= q {
				return nil, fmt.Errorf("%w: learner %q submission %d: activity row %d out of range [0,%d)", apperrors.ErrInvalidArgument, h.Learner, j, s.Activity, q)
			}
			if !(s.Score >= 0 && s.Score <= 1) {
				return nil, fmt.Errorf("%w: learner %q submission %d: score %v not in [0,1]", apperrors.ErrInvalidArgument, h.Learner, j, s.Score)
			}
		}
	}

	relevance := RelevanceDense(current.Guess, current.Slip)
	guessNegLog := current.Guess.Apply(negLog)
	slipNegLog := current.Slip.Apply(negLog)

	knowledge := make([]*matrix.Dense, len(histories))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.workers())
	for i := range histories {
		if len(histories[i].Submissions) == 0 {
			continue
		}
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			knowledge[i] = InferKnowledge(histories[i].Submissions, guessNegLog, slipNegLog)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("infer knowledge: %w", err)
	}

	acc := newAccumulator(q, k)
	res := &Result{}
	for i, h := range histories {
		if knowledge[i] == nil {
			continue
		}
		res.Learners++
		res.Submissions += len(h.Submissions)
		acc.addLearner(h.Submissions, knowledge[i], relevance, cfg.RelevanceThreshold)
	}

	res.Guess = finish(acc.guessNum, acc.guessDen, cfg.InformationThreshold)
	res.Slip = finish(acc.slipNum, acc.slipDen, cfg.InformationThreshold)
	res.Transit = finish(acc.transNum, acc.transDen, cfg.InformationThreshold)
	res.Prior = finish(rowOf(acc.priorNum), rowOf(acc.priorDen), cfg.InformationThreshold)
	res.Rejections = Rejections{
		Sparse: map[string]int{
			"guess":   q*k - res.Guess.Valid.Count(),
			"slip":    q*k - res.Slip.Valid.Count(),
			"transit": q*k - res.Transit.Valid.Count(),
			"prior":   k - res.Prior.Valid.Count(),
		},
		Degenerate: map[string]int{},
	}
	if cfg.RemoveDegeneracy {
		badGuess, badSlip := removeDegeneracy(res.Guess, res.Slip)
		res.Rejections.Degenerate["guess"] = badGuess
		res.Rejections.Degenerate["slip"] = badSlip
	}

	for _, m := range []*matrix.Masked{res.Guess, res.Slip, res.Transit, res.Prior} {
		m.Values = OddsDense(m.Values, cfg.Epsilon)
	}

	res.Diagnostic = Params{
		Guess:   res.Guess.WithNaN(),
		Slip:    res.Slip.WithNaN(),
		Transit: res.Transit.WithNaN(),
		Prior:   res.Prior.WithNaN().RowCopy(0),
	}
	res.Clean = Params{
		Guess:   res.Guess.Fill(current.Guess),
		Slip:    res.Slip.Fill(current.Slip),
		Transit: res.Transit.Fill(current.Transit),
		Prior:   res.Prior.Fill(rowOf(current.Prior)).RowCopy(0),
	}
	res.Evidence = Evidence{
		Guess:   acc.guessDen,
		Slip:    acc.slipDen,
		Transit: acc.transDen,
		Prior:   acc.priorDen,
	}
	return res, nil
}

type accumulator struct {
	k                  int
	priorNum, priorDen []float64
	guessNum, guessDen *matrix.Dense
	slipNum, slipDen   *matrix.Dense
	transNum, transDen *matrix.Dense
}

func newAccumulator(q, k int) *accumulator {
	return &accumulator{
		k:        k,
		priorNum: make([]float64, k),
		priorDen: make([]float64, k),
		guessNum: matrix.New(q, k),
		guessDen: matrix.New(q, k),
		slipNum:  matrix.New(q, k),
		slipDen:  matrix.New(q, k),
		transNum: matrix.New(q, k),
		transDen: matrix.New(q, k),
	}
}

func (a *accumulator) addLearner(subs []Submission, knowledge, relevance *matrix.Dense, threshold float64) {
	k := a.k
	// informative[j][c] is 1 when submission j says something about KC c
	informative := matrix.New(len(subs), k)
	total := make([]float64, k)
	for j, s := range subs {
		rel := relevance.Row(s.Activity)
		row := informative.Row(j)
		for c := 0; c < k; c++ {
			total[c] += rel[c]
			if rel[c] > threshold {
				row[c] = 1
			}
		}
	}

	first := knowledge.Row(0)
	for c := 0; c < k; c++ {
		if total[c] > threshold {
			a.priorNum[c] += first[c]
			a.priorDen[c]++
		}
	}

	last := len(subs) - 1
	for j, s := range subs {
		known := knowledge.Row(j)
		w := informative.Row(j)
		gNum, gDen := a.guessNum.Row(s.Activity), a.guessDen.Row(s.Activity)
		sNum, sDen := a.slipNum.Row(s.Activity), a.slipDen.Row(s.Activity)
		tNum, tDen := a.transNum.Row(s.Activity), a.transDen.Row(s.Activity)
		for c := 0; c < k; c++ {
			unmastered := w[c] * (1 - known[c])
			gNum[c] += unmastered * s.Score
			gDen[c] += unmastered

			mastered := w[c] - unmastered
			sNum[c] += mastered * (1 - s.Score)
			sDen[c] += mastered

			if j < last {
				tNum[c] += unmastered * knowledge.At(j+1, c)
				tDen[c] += unmastered
			}
		}
	}
}

// finish divides num by den and marks cells valid when den is non-zero and at least
// threshold.
func finish(num, den *matrix.Dense, threshold float64) *matrix.Masked {
	rows, cols := num.Dims()
	out := matrix.NewMasked(rows, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			d := den.At(i, j)
			if d == 0 {
				continue
			}
			out.Values.Set(i, j, num.At(i, j)/d)
			if d >= threshold {
				out.Valid.Set(i, j, true)
			}
		}
	}
	return out
}

// removeDegeneracy invalidates guess cells at or above 0.5 and slip cells at or above
// 0.5, and both wherever guess+slip reaches 1. Both conditions are evaluated before
// either mask changes.
func removeDegeneracy(guess, slip *matrix.Masked) (badGuess, badSlip int) {
	rows, cols := guess.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			gv, sv := guess.Valid.At(i, j), slip.Valid.At(i, j)
			g, s := guess.Values.At(i, j), slip.Values.At(i, j)
			sum := gv && sv && g+s >= 1
			if gv && (g >= 0.5 || sum) {
				guess.Invalidate(i, j)
				badGuess++
			}
			if sv && (s >= 0.5 || sum) {
				slip.Invalidate(i, j)
				badSlip++
			}
		}
	}
	return badGuess, badSlip
}

func rowOf(v []float64) *matrix.Dense {
	return matrix.FromRows([][]float64{v})
}

