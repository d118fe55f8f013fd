package catalog

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/adaptive-engine/internal/domain"
	apperrors "github.com/yungbote/adaptive-engine/internal/pkg/errors"
	"github.com/yungbote/adaptive-engine/internal/pkg/dbctx"
	"github.com/yungbote/adaptive-engine/internal/platform/logger"
)

type ActivityParamRepo interface {
	Upsert(dbc dbctx.Context, rows ...*types.ActivityParam) error
	ListAll(dbc dbctx.Context) ([]*types.ActivityParam, error)
	// ReplaceAll deletes every stored cell and writes rows, inside one transaction.
	ReplaceAll(dbc dbctx.Context, rows []*types.ActivityParam) error
}

type activityParamRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewActivityParamRepo(db *gorm.DB, baseLog *logger.Logger) ActivityParamRepo {
	return &activityParamRepo{db: db, log: baseLog.With("repo", "ActivityParamRepo")}
}

func (r *activityParamRepo) dbx(dbc dbctx.Context) *gorm.DB {
	return dbc.DB(r.db)
}

// ValidateParams checks kinds and probability ranges.
func ValidateParams(rows []*types.ActivityParam) error {
	for _, row := range rows {
		switch row.Kind {
		case types.ParamGuess, types.ParamSlip, types.ParamTransit:
		default:
			return fmt.Errorf("%w: unknown parameter kind %q", apperrors.ErrInvalidArgument, row.Kind)
		}
		if !(row.Value >= 0 && row.Value <= 1) {
			return fmt.Errorf("%w: %s value %v not in [0,1]", apperrors.ErrInvalidArgument, row.Kind, row.Value)
		}
	}
	return nil
}

func (r *activityParamRepo) Upsert(dbc dbctx.Context, rows ...*types.ActivityParam) error {
	if len(rows) == 0 {
		return nil
	}
	if err := ValidateParams(rows); err != nil {
		return err
	}
	return r.dbx(dbc).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "activity_id"}, {Name: "knowledge_component_id"}, {Name: "kind"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(rows).Error
}

func (r *activityParamRepo) ListAll(dbc dbctx.Context) ([]*types.ActivityParam, error) {
	out := []*types.ActivityParam{}
	if err := r.dbx(dbc).
		Order("kind ASC, activity_id ASC, knowledge_component_id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *activityParamRepo) ReplaceAll(dbc dbctx.Context, rows []*types.ActivityParam) error {
	if err := ValidateParams(rows); err != nil {
		return err
	}
	now := time.Now().UTC()
	return r.dbx(dbc).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&types.ActivityParam{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		for _, row := range rows {
			row.UpdatedAt = now
		}
		return tx.CreateInBatches(rows, 1000).Error
	})
}
