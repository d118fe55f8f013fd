package catalog

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/adaptive-engine/internal/domain"
	apperrors "github.com/yungbote/adaptive-engine/internal/pkg/errors"
	"github.com/yungbote/adaptive-engine/internal/pkg/dbctx"
	"github.com/yungbote/adaptive-engine/internal/platform/logger"
)

type PrerequisiteRepo interface {
	Upsert(dbc dbctx.Context, rows ...*types.PrerequisiteRelation) error
	ListAll(dbc dbctx.Context) ([]*types.PrerequisiteRelation, error)
	// ReplaceAll swaps the full edge set in one transaction.
	ReplaceAll(dbc dbctx.Context, rows []*types.PrerequisiteRelation) error
}

type prerequisiteRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPrerequisiteRepo(db *gorm.DB, baseLog *logger.Logger) PrerequisiteRepo {
	return &prerequisiteRepo{db: db, log: baseLog.With("repo", "PrerequisiteRepo")}
}

func (r *prerequisiteRepo) dbx(dbc dbctx.Context) *gorm.DB {
	return dbc.DB(r.db)
}

func validatePrereqs(rows []*types.PrerequisiteRelation) error {
	for _, row := range rows {
		if row.PrerequisiteID == uuid.Nil || row.KnowledgeComponentID == uuid.Nil {
			return fmt.Errorf("%w: prerequisite edge with nil endpoint", apperrors.ErrInvalidArgument)
		}
		if row.PrerequisiteID == row.KnowledgeComponentID {
			return fmt.Errorf("%w: kc %s is its own prerequisite", apperrors.ErrInvalidArgument, row.KnowledgeComponentID)
		}
		if !(row.Value >= 0 && row.Value <= 1) {
			return fmt.Errorf("%w: prerequisite value %v not in [0,1]", apperrors.ErrInvalidArgument, row.Value)
		}
	}
	return nil
}

func (r *prerequisiteRepo) Upsert(dbc dbctx.Context, rows ...*types.PrerequisiteRelation) error {
	if len(rows) == 0 {
		return nil
	}
	if err := validatePrereqs(rows); err != nil {
		return err
	}
	return r.dbx(dbc).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "prerequisite_id"}, {Name: "knowledge_component_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(rows).Error
}

func (r *prerequisiteRepo) ListAll(dbc dbctx.Context) ([]*types.PrerequisiteRelation, error) {
	out := []*types.PrerequisiteRelation{}
	if err := r.dbx(dbc).
		Order("prerequisite_id ASC, knowledge_component_id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *prerequisiteRepo) ReplaceAll(dbc dbctx.Context, rows []*types.PrerequisiteRelation) error {
	if err := validatePrereqs(rows); err != nil {
		return err
	}
	now := time.Now().UTC()
	return r.dbx(dbc).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&types.PrerequisiteRelation{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		for _, row := range rows {
			row.CreatedAt, row.UpdatedAt = now, now
		}
		return tx.CreateInBatches(rows, 500).Error
	})
}
