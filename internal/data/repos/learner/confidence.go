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

type ConfidenceRepo interface {
	ListByLearner(dbc dbctx.Context, learnerID uuid.UUID) ([]*types.Confidence, error)
	// Add increments each KC's confidence by the given amount, creating rows as needed.
	Add(dbc dbctx.Context, learnerID uuid.UUID, deltas map[uuid.UUID]float64) error
}

type confidenceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewConfidenceRepo(db *gorm.DB, baseLog *logger.Logger) ConfidenceRepo {
	return &confidenceRepo{db: db, log: baseLog.With("repo", "ConfidenceRepo")}
}

func (r *confidenceRepo) dbx(dbc dbctx.Context) *gorm.DB {
	return dbc.DB(r.db)
}

func (r *confidenceRepo) ListByLearner(dbc dbctx.Context, learnerID uuid.UUID) ([]*types.Confidence, error) {
	out := []*types.Confidence{}
	if err := r.dbx(dbc).
		Where("learner_id = ?", learnerID).
		Order("knowledge_component_id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *confidenceRepo) Add(dbc dbctx.Context, learnerID uuid.UUID, deltas map[uuid.UUID]float64) error {
	if len(deltas) == 0 {
		return nil
	}
	now := time.Now().UTC()
	rows := make([]*types.Confidence, 0, len(deltas))
	for kc, d := range deltas {
		if d == 0 {
			continue
		}
		rows = append(rows, &types.Confidence{LearnerID: learnerID, KnowledgeComponentID: kc, Value: d, UpdatedAt: now})
	}
	if len(rows) == 0 {
		return nil
	}
	return r.dbx(dbc).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "learner_id"}, {Name: "knowledge_component_id"}},
			DoUpdates: clause.Set{
				{Column: clause.Column{Name: "value"}, Value: gorm.Expr("confidence.value + excluded.value")},
				{Column: clause.Column{Name: "updated_at"}, Value: now},
			},
		}).
		Create(rows).Error
}
