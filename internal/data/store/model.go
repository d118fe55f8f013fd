package store

import (
	"github.com/google/uuid"

	"github.com/yungbote/adaptive-engine/internal/bkt"
	types "github.com/yungbote/adaptive-engine/internal/domain"
	"github.com/yungbote/adaptive-engine/internal/engine"
	"github.com/yungbote/adaptive-engine/internal/pkg/matrix"
	"github.com/yungbote/adaptive-engine/internal/recommend"
)

// modelBuilder fills dense matrices from sparse rows. Untagged cells keep guess and
// slip odds of 1 (zero relevance) and transit 0; tagged cells start at the defaults and
// take stored values when present.
type modelBuilder struct {
	model   *engine.Model
	eps     float64
	skipped int
}

func newModelBuilder(activities, kcs []uuid.UUID, cfg bkt.Config) *modelBuilder {
	q, k := len(activities), len(kcs)
	return &modelBuilder{
		eps: cfg.Epsilon,
		model: &engine.Model{
			KCs:        matrix.NewIndex(kcs),
			Activities: matrix.NewIndex(activities),
			Guess:      matrix.NewFilled(q, k, 1),
			Slip:       matrix.NewFilled(q, k, 1),
			Transit:    matrix.New(q, k),
			Tagged:     matrix.NewMask(q, k),
			Prereqs:    matrix.New(k, k),
			Difficulty: make([]float64, q),
			Prior:      make([]float64, k),
		},
	}
}

func (b *modelBuilder) cell(activityID, kcID uuid.UUID) (int, int, bool) {
	i, ok := b.model.Activities.Pos(activityID)
	if !ok {
		b.skipped++
		return 0, 0, false
	}
	j, ok := b.model.KCs.Pos(kcID)
	if !ok {
		b.skipped++
		return 0, 0, false
	}
	return i, j, true
}

func (b *modelBuilder) tag(activityID, kcID uuid.UUID) {
	i, j, ok := b.cell(activityID, kcID)
	if !ok {
		return
	}
	b.model.Tagged.Set(i, j, true)
}

// applyDefaults must run after every tag call and before any param call.
func (b *modelBuilder) applyDefaults(cfg bkt.Config) {
	g, s, t := cfg.Defaults()
	q, k := b.model.Tagged.Dims()
	for i := 0; i < q; i++ {
		for j := 0; j < k; j++ {
			if b.model.Tagged.At(i, j) {
				b.model.Guess.Set(i, j, g)
				b.model.Slip.Set(i, j, s)
				b.model.Transit.Set(i, j, t)
			}
		}
	}
}

func (b *modelBuilder) param(activityID, kcID uuid.UUID, kind types.ParamKind, p float64) {
	i, j, ok := b.cell(activityID, kcID)
	if !ok || !b.model.Tagged.At(i, j) {
		return
	}
	o := bkt.Odds(p, b.eps, true)
	switch kind {
	case types.ParamGuess:
		b.model.Guess.Set(i, j, o)
	case types.ParamSlip:
		b.model.Slip.Set(i, j, o)
	case types.ParamTransit:
		// a transit of exactly zero is meaningful and is not clamped
		if p == 0 {
			o = 0
		}
		b.model.Transit.Set(i, j, o)
	}
}

func (b *modelBuilder) prereq(pre, dep uuid.UUID, v float64) {
	i, ok := b.model.KCs.Pos(pre)
	if !ok {
		b.skipped++
		return
	}
	j, ok := b.model.KCs.Pos(dep)
	if !ok {
		b.skipped++
		return
	}
	b.model.Prereqs.Set(i, j, v)
}

// SettingsFromDomain converts a stored bundle to engine settings.
func SettingsFromDomain(s *types.EngineSettings) *engine.Settings {
	return &engine.Settings{
		ID:   s.ID,
		Name: s.Name,
		Weights: recommend.Weights{
			RStar: s.RStar,
			LStar: s.LStar,
			WP:    s.WP,
			WR:    s.WR,
			WD:    s.WD,
			WC:    s.WC,
		},
		Options: recommend.Options{
			StopOnMastery: s.StopOnMastery,
			Normalize:     s.Normalize,
		},
	}
}
