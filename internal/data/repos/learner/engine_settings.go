package learner

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

type EngineSettingsRepo interface {
	// UpsertByName keeps the existing id when a bundle with the same name exists.
	UpsertByName(dbc dbctx.Context, row *types.EngineSettings) error
	GetByName(dbc dbctx.Context, name string) (*types.EngineSettings, error)
	List(dbc dbctx.Context) ([]*types.EngineSettings, error)
}

type engineSettingsRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEngineSettingsRepo(db *gorm.DB, baseLog *logger.Logger) EngineSettingsRepo {
	return &engineSettingsRepo{db: db, log: baseLog.With("repo", "EngineSettingsRepo")}
}

func (r *engineSettingsRepo) dbx(dbc dbctx.Context) *gorm.DB {
	return dbc.DB(r.db)
}

func (r *engineSettingsRepo) UpsertByName(dbc dbctx.Context, row *types.EngineSettings) error {
	if row == nil || row.Name == "" {
		return fmt.Errorf("%w: engine settings need a name", apperrors.ErrInvalidArgument)
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	db := r.dbx(dbc)
	if err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"r_star", "l_star", "w_p", "w_r", "w_d", "w_c", "stop_on_mastery", "normalize", "updated_at",
		}),
	}).Create(row).Error; err != nil {
		return err
	}
	// on conflict the row keeps its original id
	var existing types.EngineSettings
	if err := db.Select("id").Where("name = ?", row.Name).First(&existing).Error; err != nil {
		return err
	}
	row.ID = existing.ID
	return nil
}

func (r *engineSettingsRepo) GetByName(dbc dbctx.Context, name string) (*types.EngineSettings, error) {
	var out types.EngineSettings
	err := r.dbx(dbc).Where("name = ?", name).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("engine settings %q: %w", name, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *engineSettingsRepo) List(dbc dbctx.Context) ([]*types.EngineSettings, error) {
	out := []*types.EngineSettings{}
	if err := r.dbx(dbc).Order("name ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
