package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/adaptive-engine/internal/bkt"
	"github.com/yungbote/adaptive-engine/internal/observability"
	apperrors "github.com/yungbote/adaptive-engine/internal/pkg/errors"
	"github.com/yungbote/adaptive-engine/internal/platform/logger"
	"github.com/yungbote/adaptive-engine/internal/recommend"
)

const batchLockKey = "engine:batch-estimation"

// Engine recommends activities, folds scores into mastery and re-estimates the global
// parameters. It is safe for concurrent use; updates for one learner are serialized
// through the Locker.
type Engine struct {
	store    Store
	locker   Locker
	exporter Exporter
	selector *recommend.Selector
	cfg      bkt.Config
	log      *logger.Logger
	tracer   trace.Tracer
	now      func() time.Time
	seed     int64
}

type Option func(*Engine)

// WithLocker replaces the in-process locker, e.g. with a distributed one.
func WithLocker(l Locker) Option { return func(e *Engine) { e.locker = l } }

func WithExporter(x Exporter) Option { return func(e *Engine) { e.exporter = x } }

// WithSeed seeds the uniform fallback used when no candidate is relevant.
func WithSeed(seed int64) Option { return func(e *Engine) { e.seed = seed } }

func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

func New(store Store, cfg bkt.Config, baseLog *logger.Logger, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: engine: store required", apperrors.ErrInvalidArgument)
	}
	if baseLog == nil {
		return nil, fmt.Errorf("%w: engine: logger required", apperrors.ErrInvalidArgument)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		store:  store,
		locker: NewLocalLocker(),
		cfg:    cfg,
		log:    baseLog.With("service", "Engine"),
		tracer: observability.Tracer(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.selector = recommend.NewSelector(e.seed)
	return e, nil
}

func (e *Engine) Config() bkt.Config { return e.cfg }

// InitializeLearner creates the learner if needed and seeds any missing mastery from
// the KC priors. It is idempotent.
func (e *Engine) InitializeLearner(ctx context.Context, learnerID uuid.UUID) error {
	if learnerID == uuid.Nil {
		return fmt.Errorf("%w: learner id required", apperrors.ErrInvalidArgument)
	}
	model, err := e.store.Model(ctx)
	if err != nil {
		return fmt.Errorf("load model: %w", err)
	}
	if err := e.store.InitLearner(ctx, learnerID, model); err != nil {
		return fmt.Errorf("init learner: %w", err)
	}
	return nil
}

// learnerState loads a learner, initializing unknown ones from priors first.
func (e *Engine) learnerState(ctx context.Context, learnerID uuid.UUID, model *Model) (*LearnerState, error) {
	state, err := e.store.LearnerState(ctx, learnerID, model)
	if errors.Is(err, apperrors.ErrNotFound) {
		e.log.Info("initializing unknown learner", "learner_id", learnerID)
		if err := e.store.InitLearner(ctx, learnerID, model); err != nil {
			return nil, fmt.Errorf("init learner: %w", err)
		}
		state, err = e.store.LearnerState(ctx, learnerID, model)
	}
	if err != nil {
		return nil, fmt.Errorf("learner state: %w", err)
	}
	if len(state.Mastery) != model.KCs.Len() {
		return nil, fmt.Errorf("learner state: mastery has %d entries, model has %d kcs", len(state.Mastery), model.KCs.Len())
	}
	return state, nil
}

func (e *Engine) lock(ctx context.Context, key string) (func(), error) {
	unlock, err := e.locker.Lock(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", apperrors.ErrLocked, key, err)
	}
	return unlock, nil
}

func spanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
