package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/adaptive-engine/internal/bkt"
	"github.com/yungbote/adaptive-engine/internal/data/repos"
	types "github.com/yungbote/adaptive-engine/internal/domain"
	"github.com/yungbote/adaptive-engine/internal/engine"
	"github.com/yungbote/adaptive-engine/internal/pkg/dbctx"
	apperrors "github.com/yungbote/adaptive-engine/internal/pkg/errors"
	"github.com/yungbote/adaptive-engine/internal/pkg/matrix"
)

func (s *Store) CommitScore(ctx context.Context, model *engine.Model, c engine.ScoreCommit) error {
	if len(c.Mastery) != model.KCs.Len() {
		return fmt.Errorf("%w: mastery has %d entries, model has %d kcs", apperrors.ErrInvalidArgument, len(c.Mastery), model.KCs.Len())
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		if err := s.repos.Scores.Append(dbc, &types.Score{
			LearnerID:  c.LearnerID,
			ActivityID: c.ActivityID,
			Value:      c.Score,
			Timestamp:  c.At,
		}); err != nil {
			return fmt.Errorf("append score: %w", err)
		}

		rows := make([]*types.Mastery, len(c.Mastery))
		for k, o := range c.Mastery {
			rows[k] = &types.Mastery{
				LearnerID:            c.LearnerID,
				KnowledgeComponentID: model.KCs.ID(k),
				Value:                bkt.Probability(o),
			}
		}
		if err := s.repos.Mastery.Upsert(dbc, rows...); err != nil {
			return fmt.Errorf("write mastery: %w", err)
		}

		if c.Confidence != nil {
			deltas := make(map[uuid.UUID]float64, len(c.Confidence))
			for k, v := range c.Confidence {
				deltas[model.KCs.ID(k)] = v
			}
			if err := s.repos.Confidence.Add(dbc, c.LearnerID, deltas); err != nil {
				return fmt.Errorf("add confidence: %w", err)
			}
		}
		return s.repos.Learners.Touch(dbc, c.LearnerID, c.ActivityID, c.At)
	})
}

func (s *Store) InitLearner(ctx context.Context, learnerID uuid.UUID, model *engine.Model) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		l := &types.Learner{ID: learnerID}
		if s.defaultSettings != "" {
			settings, err := s.repos.Settings.GetByName(dbc, s.defaultSettings)
			switch {
			case err == nil:
				l.EngineSettingsID = &settings.ID
			case errors.Is(err, apperrors.ErrNotFound):
				s.log.Warn("default engine settings missing; learner will follow the fixed sequence", "settings", s.defaultSettings)
			default:
				return err
			}
		}
		created, err := s.repos.Learners.Create(dbc, l)
		if err != nil {
			return fmt.Errorf("create learner: %w", err)
		}

		rows := make([]*types.Mastery, model.KCs.Len())
		for k := range rows {
			rows[k] = &types.Mastery{
				LearnerID:            learnerID,
				KnowledgeComponentID: model.KCs.ID(k),
				Value:                bkt.Probability(model.Prior[k]),
			}
		}
		if err := s.repos.Mastery.Seed(dbc, rows...); err != nil {
			return fmt.Errorf("seed mastery: %w", err)
		}
		if created {
			s.log.Info("learner initialized", "learner_id", learnerID, "kcs", len(rows))
		}
		return nil
	})
}

func (s *Store) ScoreHistories(ctx context.Context, model *engine.Model) ([]bkt.History, error) {
	scores, err := s.repos.Scores.ListAll(s.dbc(ctx))
	if err != nil {
		return nil, fmt.Errorf("list scores: %w", err)
	}
	var (
		out     []bkt.History
		dropped int
	)
	for _, sc := range scores {
		row, ok := model.Activities.Pos(sc.ActivityID)
		if !ok {
			dropped++
			continue
		}
		learner := sc.LearnerID.String()
		if n := len(out); n == 0 || out[n-1].Learner != learner {
			out = append(out, bkt.History{Learner: learner})
		}
		h := &out[len(out)-1]
		h.Submissions = append(h.Submissions, bkt.Submission{Activity: row, Score: sc.Value})
	}
	if dropped > 0 {
		s.log.Warn("scores for unknown activities skipped", "count", dropped)
	}
	return out, nil
}

// SaveParameters writes res.Clean for every tagged cell and every KC prior.
func (s *Store) SaveParameters(ctx context.Context, model *engine.Model, res *bkt.Result) error {
	params, priors := ParameterRows(model, res.Clean)
	if err := s.writer.ReplaceParameters(ctx, params, priors); err != nil {
		return err
	}
	s.log.Info("parameters replaced", "cells", len(params), "kcs", len(priors))
	return nil
}

// ParameterRows converts clean odds to stored probability rows for tagged cells.
func ParameterRows(model *engine.Model, clean bkt.Params) ([]*types.ActivityParam, map[uuid.UUID]float64) {
	q, k := model.Tagged.Dims()
	rows := make([]*types.ActivityParam, 0, 3*model.Tagged.Count())
	for i := 0; i < q; i++ {
		for j := 0; j < k; j++ {
			if !model.Tagged.At(i, j) {
				continue
			}
			a, kc := model.Activities.ID(i), model.KCs.ID(j)
			for _, p := range []struct {
				kind types.ParamKind
				m    *matrix.Dense
			}{
				{types.ParamGuess, clean.Guess},
				{types.ParamSlip, clean.Slip},
				{types.ParamTransit, clean.Transit},
			} {
				rows = append(rows, &types.ActivityParam{
					ActivityID:           a,
					KnowledgeComponentID: kc,
					Kind:                 p.kind,
					Value:                bkt.Probability(p.m.At(i, j)),
				})
			}
		}
	}
	priors := make(map[uuid.UUID]float64, k)
	for j := 0; j < k; j++ {
		priors[model.KCs.ID(j)] = bkt.Probability(clean.Prior[j])
	}
	return rows, priors
}

type gormWriter struct {
	db    *gorm.DB
	repos *repos.Set
}

func (w *gormWriter) ReplaceParameters(ctx context.Context, params []*types.ActivityParam, priors map[uuid.UUID]float64) error {
	return w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		if err := w.repos.Params.ReplaceAll(dbc, params); err != nil {
			return fmt.Errorf("replace params: %w", err)
		}
		if err := w.repos.KnowledgeComponents.SetPriors(dbc, priors); err != nil {
			return fmt.Errorf("set priors: %w", err)
		}
		return nil
	})
}
