package catalog

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/adaptive-engine/internal/domain"
	apperrors "github.com/yungbote/adaptive-engine/internal/pkg/errors"
	"github.com/yungbote/adaptive-engine/internal/pkg/dbctx"
	"github.com/yungbote/adaptive-engine/internal/platform/logger"
)

type CollectionRepo interface {
	Upsert(dbc dbctx.Context, row *types.Collection) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Collection, error)
	AddActivities(dbc dbctx.Context, rows ...*types.CollectionActivity) error
	// ActivityIDs returns the members of a collection ordered by activity id.
	ActivityIDs(dbc dbctx.Context, collectionID uuid.UUID) ([]uuid.UUID, error)
}

type collectionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCollectionRepo(db *gorm.DB, baseLog *logger.Logger) CollectionRepo {
	return &collectionRepo{db: db, log: baseLog.With("repo", "CollectionRepo")}
}

func (r *collectionRepo) dbx(dbc dbctx.Context) *gorm.DB {
	return dbc.DB(r.db)
}

func (r *collectionRepo) Upsert(dbc dbctx.Context, row *types.Collection) error {
	if row == nil {
		return nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	return r.dbx(dbc).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "updated_at"}),
		}).
		Create(row).Error
}

func (r *collectionRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Collection, error) {
	var out types.Collection
	err := r.dbx(dbc).Where("id = ?", id).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("collection %s: %w", id, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *collectionRepo) AddActivities(dbc dbctx.Context, rows ...*types.CollectionActivity) error {
	if len(rows) == 0 {
		return nil
	}
	return r.dbx(dbc).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "collection_id"}, {Name: "activity_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"position"}),
		}).
		Create(rows).Error
}

func (r *collectionRepo) ActivityIDs(dbc dbctx.Context, collectionID uuid.UUID) ([]uuid.UUID, error) {
	out := []uuid.UUID{}
	if err := r.dbx(dbc).
		Model(&types.CollectionActivity{}).
		Where("collection_id = ?", collectionID).
		Order("activity_id ASC").
		Pluck("activity_id", &out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
