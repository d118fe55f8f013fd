package learner

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/adaptive-engine/internal/domain"
	"github.com/yungbote/adaptive-engine/internal/pkg/dbctx"
	"github.com/yungbote/adaptive-engine/internal/platform/logger"
)

type MasteryRepo interface {
	ListByLearner(dbc dbctx.Context, learnerID uuid.UUID) ([]*types.Mastery, error)
	Upsert(dbc dbctx.Context, rows ...*types.Mastery) error
	// Seed writes rows that do not exist yet and leaves existing values alone.
	Seed(dbc dbctx.Context, rows ...*types.Mastery) error
}

type masteryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMasteryRepo(db *gorm.DB, baseLog *logger.Logger) MasteryRepo {
	return &masteryRepo{db: db, log: baseLog.With("repo", "MasteryRepo")}
}

func (r *masteryRepo) dbx(dbc dbctx.Context) *gorm.DB {
	return dbc.DB(r.db)
}

func (r *masteryRepo) ListByLearner(dbc dbctx.Context, learnerID uuid.UUID) ([]*types.Mastery, error) {
	out := []*types.Mastery{}
	if learnerID == uuid.Nil {
		return out, nil
	}
	if err := r.dbx(dbc).
		Where("learner_id = ?", learnerID).
		Order("knowledge_component_id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *masteryRepo) Upsert(dbc dbctx.Context, rows ...*types.Mastery) error {
	if len(rows) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for _, row := range rows {
		row.UpdatedAt = now
	}
	return r.dbx(dbc).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "learner_id"}, {Name: "knowledge_component_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(rows).Error
}

func (r *masteryRepo) Seed(dbc dbctx.Context, rows ...*types.Mastery) error {
	if len(rows) == 0 {
		return nil
	}
	return r.dbx(dbc).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(rows).Error
}
