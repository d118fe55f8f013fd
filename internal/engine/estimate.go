package engine

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/adaptive-engine/internal/bkt"
	"github.com/yungbote/adaptive-engine/internal/observability"
)

// RunBatchEstimation re-estimates guess, slip, transit and priors from the full score
// log using cfg, then swaps them in. Only one run proceeds at a time per Locker.
// Export failures are logged and do not fail the run.
func (e *Engine) RunBatchEstimation(ctx context.Context, cfg bkt.Config) (res *bkt.Result, err error) {
	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "engine.RunBatchEstimation")
	defer func() {
		if err != nil {
			spanError(span, err)
			observability.ObserveEstimation(err, time.Since(start), 0, nil, nil)
		}
		span.End()
	}()

	unlock, err := e.lock(ctx, batchLockKey)
	if err != nil {
		return nil, err
	}
	defer unlock()

	model, err := e.store.Model(ctx)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	histories, err := e.store.ScoreHistories(ctx, model)
	if err != nil {
		return nil, fmt.Errorf("load score histories: %w", err)
	}
	res, err = bkt.Estimate(ctx, histories, model.Params(), cfg)
	if err != nil {
		return nil, fmt.Errorf("estimate: %w", err)
	}
	if err := e.store.SaveParameters(ctx, model, res); err != nil {
		return nil, fmt.Errorf("save parameters: %w", err)
	}

	if e.exporter != nil {
		loc, xerr := e.exporter.ExportEstimate(ctx, model, res)
		if xerr != nil {
			e.log.Warn("estimate export failed", "error", xerr)
		} else {
			e.log.Info("estimate exported", "location", loc)
		}
	}

	elapsed := time.Since(start)
	observability.ObserveEstimation(nil, elapsed, res.Learners, res.Rejections.Sparse, res.Rejections.Degenerate)
	span.SetAttributes(
		attribute.Int("learners", res.Learners),
		attribute.Int("submissions", res.Submissions),
	)
	e.log.Info("batch estimation finished",
		"learners", res.Learners,
		"submissions", res.Submissions,
		"sparse", res.Rejections.Sparse,
		"degenerate", res.Rejections.Degenerate,
		"elapsed", elapsed.String(),
	)
	return res, nil
}
