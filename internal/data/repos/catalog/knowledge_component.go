package catalog

import (
	"errors"
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

type KnowledgeComponentRepo interface {
	Upsert(dbc dbctx.Context, rows ...*types.KnowledgeComponent) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.KnowledgeComponent, error)
	// ListAll returns every live KC ordered by id.
	ListAll(dbc dbctx.Context) ([]*types.KnowledgeComponent, error)
	SetPriors(dbc dbctx.Context, priors map[uuid.UUID]float64) error
}

type knowledgeComponentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewKnowledgeComponentRepo(db *gorm.DB, baseLog *logger.Logger) KnowledgeComponentRepo {
	return &knowledgeComponentRepo{db: db, log: baseLog.With("repo", "KnowledgeComponentRepo")}
}

func (r *knowledgeComponentRepo) dbx(dbc dbctx.Context) *gorm.DB {
	return dbc.DB(r.db)
}

func (r *knowledgeComponentRepo) Upsert(dbc dbctx.Context, rows ...*types.KnowledgeComponent) error {
	if len(rows) == 0 {
		return nil
	}
	for _, row := range rows {
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
		if !(row.MasteryPrior >= 0 && row.MasteryPrior <= 1) {
			return fmt.Errorf("%w: kc %q mastery prior %v not in [0,1]", apperrors.ErrInvalidArgument, row.Name, row.MasteryPrior)
		}
	}
	return r.dbx(dbc).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "mastery_prior", "updated_at"}),
		}).
		Create(rows).Error
}

func (r *knowledgeComponentRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.KnowledgeComponent, error) {
	var out types.KnowledgeComponent
	err := r.dbx(dbc).Where("id = ?", id).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("kc %s: %w", id, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *knowledgeComponentRepo) ListAll(dbc dbctx.Context) ([]*types.KnowledgeComponent, error) {
	out := []*types.KnowledgeComponent{}
	if err := r.dbx(dbc).Order("id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *knowledgeComponentRepo) SetPriors(dbc dbctx.Context, priors map[uuid.UUID]float64) error {
	db := r.dbx(dbc)
	now := time.Now().UTC()
	for id, p := range priors {
		if !(p >= 0 && p <= 1) {
			return fmt.Errorf("%w: kc %s prior %v not in [0,1]", apperrors.ErrInvalidArgument, id, p)
		}
		if err := db.Model(&types.KnowledgeComponent{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{"mastery_prior": p, "updated_at": now}).Error; err != nil {
			return err
		}
	}
	return nil
}
