package estimation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/yungbote/adaptive-engine/internal/bkt"
	apperrors "github.com/yungbote/adaptive-engine/internal/pkg/errors"
	"github.com/yungbote/adaptive-engine/internal/platform/logger"
)

const errTypeInvalid = "InvalidArgument"

// Estimator is the part of the engine the activity drives.
type Estimator interface {
	Config() bkt.Config
	RunBatchEstimation(ctx context.Context, cfg bkt.Config) (*bkt.Result, error)
}

type Activities struct {
	Log    *logger.Logger
	Engine Estimator
}

func (a *Activities) Run(ctx context.Context, in Input) (Output, error) {
	if a == nil || a.Engine == nil {
		return Output{}, fmt.Errorf("estimation: activity not configured")
	}
	cfg := Apply(a.Engine.Config(), in)

	stopHB := startHeartbeat(ctx, 10*time.Second)
	defer stopHB()

	res, err := a.Engine.RunBatchEstimation(ctx, cfg)
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidArgument) {
			return Output{}, temporal.NewNonRetryableApplicationError(err.Error(), errTypeInvalid, err)
		}
		return Output{}, err
	}
	if a.Log != nil {
		a.Log.Info("estimation activity finished", "learners", res.Learners, "attempt", activity.GetInfo(ctx).Attempt)
	}
	return Output{
		Learners:    res.Learners,
		Submissions: res.Submissions,
		Sparse:      res.Rejections.Sparse,
		Degenerate:  res.Rejections.Degenerate,
	}, nil
}

// Apply overlays the run's threshold overrides on cfg.
func Apply(cfg bkt.Config, in Input) bkt.Config {
	if in.RelevanceThreshold != nil {
		cfg.RelevanceThreshold = *in.RelevanceThreshold
	}
	if in.InformationThreshold != nil {
		cfg.InformationThreshold = *in.InformationThreshold
	}
	return cfg
}

func startHeartbeat(ctx context.Context, every time.Duration) func() {
	done := make(chan struct{})
	go func() {
		t := time.NewTicker(every)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-t.C:
				activity.RecordHeartbeat(ctx)
			}
		}
	}()
	return func() { close(done) }
}
