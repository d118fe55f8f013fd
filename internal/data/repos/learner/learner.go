package learner

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

type LearnerRepo interface {
	// Create inserts the learner and reports whether a new row was written.
	Create(dbc dbctx.Context, row *types.Learner) (bool, error)
	// GetByID preloads the engine settings.
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Learner, error)
	GetByExternalID(dbc dbctx.Context, externalID string) (*types.Learner, error)
	SetSettings(dbc dbctx.Context, id uuid.UUID, settingsID *uuid.UUID) error
	// Touch records the last attempted activity and when it happened.
	Touch(dbc dbctx.Context, id, activityID uuid.UUID, at time.Time) error
}

type learnerRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLearnerRepo(db *gorm.DB, baseLog *logger.Logger) LearnerRepo {
	return &learnerRepo{db: db, log: baseLog.With("repo", "LearnerRepo")}
}

func (r *learnerRepo) dbx(dbc dbctx.Context) *gorm.DB {
	return dbc.DB(r.db)
}

func (r *learnerRepo) Create(dbc dbctx.Context, row *types.Learner) (bool, error) {
	if row == nil {
		return false, fmt.Errorf("%w: nil learner", apperrors.ErrInvalidArgument)
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.ExternalID == "" {
		row.ExternalID = row.ID.String()
	}
	res := r.dbx(dbc).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *learnerRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Learner, error) {
	var out types.Learner
	err := r.dbx(dbc).
		Preload("EngineSettings").
		Where("id = ?", id).
		First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("learner %s: %w", id, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *learnerRepo) GetByExternalID(dbc dbctx.Context, externalID string) (*types.Learner, error) {
	var out types.Learner
	err := r.dbx(dbc).
		Preload("EngineSettings").
		Where("external_id = ?", externalID).
		First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("learner %q: %w", externalID, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *learnerRepo) SetSettings(dbc dbctx.Context, id uuid.UUID, settingsID *uuid.UUID) error {
	res := r.dbx(dbc).
		Model(&types.Learner{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"engine_settings_id": settingsID, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("learner %s: %w", id, apperrors.ErrNotFound)
	}
	return nil
}

func (r *learnerRepo) Touch(dbc dbctx.Context, id, activityID uuid.UUID, at time.Time) error {
	return r.dbx(dbc).
		Model(&types.Learner{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_activity_id": activityID,
			"last_seen_at":     at.UTC(),
			"updated_at":       time.Now().UTC(),
		}).Error
}
