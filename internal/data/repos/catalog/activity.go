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

type ActivityRepo interface {
	Upsert(dbc dbctx.Context, rows ...*types.Activity) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Activity, error)
	// ListAll returns every live activity ordered by id.
	ListAll(dbc dbctx.Context) ([]*types.Activity, error)
	// ListNonadaptive returns activities in fixed sequence order, id breaking ties.
	ListNonadaptive(dbc dbctx.Context, collectionID uuid.UUID) ([]*types.Activity, error)

	AddPrerequisites(dbc dbctx.Context, rows ...*types.ActivityPrerequisite) error
	ListPrerequisites(dbc dbctx.Context) ([]*types.ActivityPrerequisite, error)
}

type activityRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewActivityRepo(db *gorm.DB, baseLog *logger.Logger) ActivityRepo {
	return &activityRepo{db: db, log: baseLog.With("repo", "ActivityRepo")}
}

func (r *activityRepo) dbx(dbc dbctx.Context) *gorm.DB {
	return dbc.DB(r.db)
}

func (r *activityRepo) Upsert(dbc dbctx.Context, rows ...*types.Activity) error {
	if len(rows) == 0 {
		return nil
	}
	for _, row := range rows {
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
		if row.Difficulty != nil && !(*row.Difficulty >= 0 && *row.Difficulty <= 1) {
			return fmt.Errorf("%w: activity %q difficulty %v not in [0,1]", apperrors.ErrInvalidArgument, row.Name, *row.Difficulty)
		}
	}
	return r.dbx(dbc).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"name", "url", "type", "tags", "difficulty", "nonadaptive_order", "updated_at",
			}),
		}).
		Create(rows).Error
}

func (r *activityRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Activity, error) {
	var out types.Activity
	err := r.dbx(dbc).Where("id = ?", id).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("activity %s: %w", id, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *activityRepo) ListAll(dbc dbctx.Context) ([]*types.Activity, error) {
	out := []*types.Activity{}
	if err := r.dbx(dbc).Order("id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *activityRepo) ListNonadaptive(dbc dbctx.Context, collectionID uuid.UUID) ([]*types.Activity, error) {
	out := []*types.Activity{}
	q := r.dbx(dbc).Model(&types.Activity{})
	if collectionID != uuid.Nil {
		q = q.Joins("JOIN collection_activity ca ON ca.activity_id = activity.id AND ca.collection_id = ?", collectionID)
	}
	if err := q.Order("activity.nonadaptive_order ASC, activity.id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *activityRepo) AddPrerequisites(dbc dbctx.Context, rows ...*types.ActivityPrerequisite) error {
	if len(rows) == 0 {
		return nil
	}
	for _, row := range rows {
		if row.ActivityID == row.PrerequisiteActivityID {
			return fmt.Errorf("%w: activity %s is its own prerequisite", apperrors.ErrInvalidArgument, row.ActivityID)
		}
	}
	return r.dbx(dbc).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(rows).Error
}

func (r *activityRepo) ListPrerequisites(dbc dbctx.Context) ([]*types.ActivityPrerequisite, error) {
	out := []*types.ActivityPrerequisite{}
	if err := r.dbx(dbc).
		Order("activity_id ASC, prerequisite_activity_id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
