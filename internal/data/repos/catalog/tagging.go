package catalog

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/adaptive-engine/internal/domain"
	"github.com/yungbote/adaptive-engine/internal/pkg/dbctx"
	"github.com/yungbote/adaptive-engine/internal/platform/logger"
)

// TaggingRepo stores which KCs each activity exercises.
type TaggingRepo interface {
	Tag(dbc dbctx.Context, rows ...*types.ActivityKC) error
	ListAll(dbc dbctx.Context) ([]*types.ActivityKC, error)
}

type taggingRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTaggingRepo(db *gorm.DB, baseLog *logger.Logger) TaggingRepo {
	return &taggingRepo{db: db, log: baseLog.With("repo", "TaggingRepo")}
}

func (r *taggingRepo) dbx(dbc dbctx.Context) *gorm.DB {
	return dbc.DB(r.db)
}

func (r *taggingRepo) Tag(dbc dbctx.Context, rows ...*types.ActivityKC) error {
	if len(rows) == 0 {
		return nil
	}
	return r.dbx(dbc).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(rows).Error
}

func (r *taggingRepo) ListAll(dbc dbctx.Context) ([]*types.ActivityKC, error) {
	out := []*types.ActivityKC{}
	if err := r.dbx(dbc).
		Order("activity_id ASC, knowledge_component_id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
