package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/adaptive-engine/internal/observability"
	apperrors "github.com/yungbote/adaptive-engine/internal/pkg/errors"
	"github.com/yungbote/adaptive-engine/internal/recommend"
)

const (
	outcomeAdaptive    = "adaptive"
	outcomeRandom      = "random"
	outcomeSingle      = "single"
	outcomeNonadaptive = "nonadaptive"
	outcomeComplete    = "complete"
)

// RankedActivity is one candidate with its blended score.
type RankedActivity struct {
	ActivityID uuid.UUID
	Score      float64
}

// Recommend picks the next activity for a learner within a collection (uuid.Nil for all
// activities). ok is false when there is nothing left to recommend.
func (e *Engine) Recommend(ctx context.Context, learnerID, collectionID uuid.UUID) (activityID uuid.UUID, ok bool, err error) {
	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "engine.Recommend", trace.WithAttributes(
		attribute.String("collection_id", collectionID.String()),
	))
	defer span.End()

	id, outcome, err := e.recommend(ctx, learnerID, collectionID)
	if err != nil {
		spanError(span, err)
		return uuid.Nil, false, err
	}
	span.SetAttributes(attribute.String("outcome", outcome))
	observability.ObserveRecommend(outcome, time.Since(start))
	e.log.Debug("recommendation", "learner_id", learnerID, "activity_id", id, "outcome", outcome)
	return id, outcome != outcomeComplete, nil
}

func (e *Engine) recommend(ctx context.Context, learnerID, collectionID uuid.UUID) (uuid.UUID, string, error) {
	if learnerID == uuid.Nil {
		return uuid.Nil, "", fmt.Errorf("%w: learner id required", apperrors.ErrInvalidArgument)
	}
	model, err := e.store.Model(ctx)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("load model: %w", err)
	}
	state, err := e.learnerState(ctx, learnerID, model)
	if err != nil {
		return uuid.Nil, "", err
	}

	if state.Settings == nil {
		seq, err := e.store.Sequence(ctx, collectionID)
		if err != nil {
			return uuid.Nil, "", fmt.Errorf("load sequence: %w", err)
		}
		if next, ok := NextInSequence(seq, state.Attempted); ok {
			return next, outcomeNonadaptive, nil
		}
		return uuid.Nil, outcomeComplete, nil
	}

	s := state.Settings
	if err := s.Weights.Validate(); err != nil {
		return uuid.Nil, "", fmt.Errorf("engine settings %q: %w", s.Name, err)
	}
	ids, rows, err := e.candidates(ctx, learnerID, collectionID, model)
	if err != nil {
		return uuid.Nil, "", err
	}
	sel, err := e.selector.Select(len(ids), inputsFor(model, state, rows), s.Weights, s.Options)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("select: %w", err)
	}
	switch {
	case sel.Complete:
		return uuid.Nil, outcomeComplete, nil
	case sel.Random:
		return ids[sel.Index], outcomeRandom, nil
	case sel.Scores == nil:
		return ids[sel.Index], outcomeSingle, nil
	}
	return ids[sel.Index], outcomeAdaptive, nil
}

// Explain scores every candidate for a learner with engine settings, best first.
func (e *Engine) Explain(ctx context.Context, learnerID, collectionID uuid.UUID) ([]RankedActivity, error) {
	model, err := e.store.Model(ctx)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	state, err := e.learnerState(ctx, learnerID, model)
	if err != nil {
		return nil, err
	}
	if state.Settings == nil {
		return nil, fmt.Errorf("%w: learner %s has no engine settings", apperrors.ErrInvalidArgument, learnerID)
	}
	ids, rows, err := e.candidates(ctx, learnerID, collectionID, model)
	if err != nil || len(ids) == 0 {
		return nil, err
	}
	ranked, err := recommend.Rank(inputsFor(model, state, rows), state.Settings.Weights, state.Settings.Options)
	if err != nil {
		return nil, err
	}
	out := make([]RankedActivity, len(ranked))
	for i, r := range ranked {
		out[i] = RankedActivity{ActivityID: ids[r.Index], Score: r.Score}
	}
	return out, nil
}

// candidates returns the eligible activity ids that exist in model, with their rows.
func (e *Engine) candidates(ctx context.Context, learnerID, collectionID uuid.UUID, model *Model) ([]uuid.UUID, []int, error) {
	all, err := e.store.Candidates(ctx, learnerID, collectionID)
	if err != nil {
		return nil, nil, fmt.Errorf("load candidates: %w", err)
	}
	ids := make([]uuid.UUID, 0, len(all))
	rows := make([]int, 0, len(all))
	for _, id := range all {
		if p, ok := model.Activities.Pos(id); ok {
			ids = append(ids, id)
			rows = append(rows, p)
		}
	}
	return ids, rows, nil
}

func inputsFor(model *Model, state *LearnerState, rows []int) recommend.Inputs {
	in := recommend.Inputs{
		Guess:      model.Guess.SelectRows(rows),
		Slip:       model.Slip.SelectRows(rows),
		Mastery:    state.Mastery,
		Prereqs:    model.Prereqs,
		Difficulty: make([]float64, len(rows)),
	}
	for i, r := range rows {
		in.Difficulty[i] = model.Difficulty[r]
	}
	if state.LastActivity != nil {
		if p, ok := model.Activities.Pos(*state.LastActivity); ok {
			in.LastGuess = model.Guess.RowCopy(p)
			in.LastSlip = model.Slip.RowCopy(p)
		}
	}
	return in
}

// NextInSequence returns the first activity of seq the learner has not attempted.
func NextInSequence(seq []uuid.UUID, attempted map[uuid.UUID]bool) (uuid.UUID, bool) {
	for _, id := range seq {
		if !attempted[id] {
			return id, true
		}
	}
	return uuid.Nil, false
}
