package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/adaptive-engine/internal/bkt"
	"github.com/yungbote/adaptive-engine/internal/observability"
	apperrors "github.com/yungbote/adaptive-engine/internal/pkg/errors"
)

// UpdateFromScore records a score in [0,1] for an attempted activity and advances the
// learner's mastery by one BKT step. Unknown learners are initialized from priors.
func (e *Engine) UpdateFromScore(ctx context.Context, learnerID, activityID uuid.UUID, score float64) (err error) {
	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "engine.UpdateFromScore", trace.WithAttributes(
		attribute.String("activity_id", activityID.String()),
		attribute.Float64("score", score),
	))
	defer func() {
		if err != nil {
			spanError(span, err)
		}
		span.End()
		observability.ObserveScoreUpdate(err, time.Since(start))
	}()

	if learnerID == uuid.Nil || activityID == uuid.Nil {
		return fmt.Errorf("%w: learner and activity ids required", apperrors.ErrInvalidArgument)
	}
	if !(score >= 0 && score <= 1) {
		return fmt.Errorf("%w: score %v not in [0,1]", apperrors.ErrInvalidArgument, score)
	}

	unlock, err := e.lock(ctx, "learner:"+learnerID.String())
	if err != nil {
		return err
	}
	defer unlock()

	model, err := e.store.Model(ctx)
	if err != nil {
		return fmt.Errorf("load model: %w", err)
	}
	guess, slip, transit, ok := model.Row(activityID)
	if !ok {
		return fmt.Errorf("activity %s: %w", activityID, apperrors.ErrNotFound)
	}
	state, err := e.learnerState(ctx, learnerID, model)
	if err != nil {
		return err
	}

	c := ScoreCommit{
		LearnerID:  learnerID,
		ActivityID: activityID,
		Score:      score,
		At:         e.now().UTC(),
		Mastery:    bkt.UpdateMastery(state.Mastery, score, guess, slip, transit, e.cfg.Epsilon),
	}
	if !state.Attempted[activityID] {
		c.Confidence = bkt.FirstAttemptConfidence(guess, slip)
	}
	if err := e.store.CommitScore(ctx, model, c); err != nil {
		return fmt.Errorf("commit score: %w", err)
	}
	return nil
}
