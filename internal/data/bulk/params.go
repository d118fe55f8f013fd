package bulk

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	catalogrepo "github.com/yungbote/adaptive-engine/internal/data/repos/catalog"
	"github.com/yungbote/adaptive-engine/internal/data/store"
	types "github.com/yungbote/adaptive-engine/internal/domain"
	apperrors "github.com/yungbote/adaptive-engine/internal/pkg/errors"
	"github.com/yungbote/adaptive-engine/internal/platform/logger"
)

// paramLockKey is the advisory lock id held while parameters are swapped.
const paramLockKey int64 = 0x616461707469

var paramColumns = []string{"activity_id", "knowledge_component_id", "kind", "value", "updated_at"}

// ParamWriter replaces the parameter table with COPY instead of batched INSERTs. Each
// swap runs in one transaction under a transaction-scoped advisory lock.
type ParamWriter struct {
	pool *pgxpool.Pool
	log  *logger.Logger
}

var _ store.ParamWriter = (*ParamWriter)(nil)

func NewParamWriter(ctx context.Context, dsn string, baseLog *logger.Logger) (*ParamWriter, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgx ping: %w", err)
	}
	return &ParamWriter{pool: pool, log: baseLog.With("service", "BulkParamWriter")}, nil
}

func (w *ParamWriter) Close() { w.pool.Close() }

func (w *ParamWriter) ReplaceParameters(ctx context.Context, params []*types.ActivityParam, priors map[uuid.UUID]float64) error {
	if err := catalogrepo.ValidateParams(params); err != nil {
		return err
	}
	start := time.Now()
	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, paramLockKey); err != nil {
		return fmt.Errorf("advisory lock: %w", err)
	}
	if _, err := tx.Exec(ctx, `CREATE TEMP TABLE activity_param_stage (LIKE activity_param INCLUDING DEFAULTS) ON COMMIT DROP`); err != nil {
		return fmt.Errorf("create stage: %w", err)
	}
	now := time.Now().UTC()
	n, err := tx.CopyFrom(ctx, pgx.Identifier{"activity_param_stage"}, paramColumns, pgx.CopyFromSlice(len(params), func(i int) ([]any, error) {
		p := params[i]
		return []any{p.ActivityID, p.KnowledgeComponentID, string(p.Kind), p.Value, now}, nil
	}))
	if err != nil {
		return fmt.Errorf("copy params: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM activity_param`); err != nil {
		return fmt.Errorf("clear params: %w", err)
	}
	if _, err := tx.Exec(ctx, `
INSERT INTO activity_param (activity_id, knowledge_component_id, kind, value, updated_at)
SELECT activity_id, knowledge_component_id, kind, value, updated_at FROM activity_param_stage
ON CONFLICT (activity_id, knowledge_component_id, kind) DO UPDATE
SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`); err != nil {
		return fmt.Errorf("swap params: %w", err)
	}

	if len(priors) > 0 {
		ids := make([]uuid.UUID, 0, len(priors))
		values := make([]float64, 0, len(priors))
		for id, p := range priors {
			if !(p >= 0 && p <= 1) {
				return fmt.Errorf("%w: prior for kc %s: %v not in [0,1]", apperrors.ErrInvalidArgument, id, p)
			}
			ids = append(ids, id)
			values = append(values, p)
		}
		if _, err := tx.Exec(ctx, `
UPDATE knowledge_component AS k
SET mastery_prior = v.prior, updated_at = $3
FROM unnest($1::uuid[], $2::float8[]) AS v(id, prior)
WHERE k.id = v.id`, ids, values, now); err != nil {
			return fmt.Errorf("update priors: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	w.log.Info("parameters copied", "rows", n, "priors", len(priors), "elapsed", time.Since(start).String())
	return nil
}
