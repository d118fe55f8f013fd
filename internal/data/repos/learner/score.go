package learner

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/adaptive-engine/internal/domain"
	apperrors "github.com/yungbote/adaptive-engine/internal/pkg/errors"
	"github.com/yungbote/adaptive-engine/internal/pkg/dbctx"
	"github.com/yungbote/adaptive-engine/internal/platform/logger"
)

type ScoreRepo interface {
	// Append assigns the next per-learner sequence number and inserts the row. Callers
	// serialize appends per learner.
	Append(dbc dbctx.Context, row *types.Score) error
	// ListAll returns every score grouped by learner, each learner's rows in order.
	ListAll(dbc dbctx.Context) ([]*types.Score, error)
	ListByLearner(dbc dbctx.Context, learnerID uuid.UUID) ([]*types.Score, error)
	AttemptedActivityIDs(dbc dbctx.Context, learnerID uuid.UUID) ([]uuid.UUID, error)
}

type scoreRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewScoreRepo(db *gorm.DB, baseLog *logger.Logger) ScoreRepo {
	return &scoreRepo{db: db, log: baseLog.With("repo", "ScoreRepo")}
}

func (r *scoreRepo) dbx(dbc dbctx.Context) *gorm.DB {
	return dbc.DB(r.db)
}

func (r *scoreRepo) Append(dbc dbctx.Context, row *types.Score) error {
	if row == nil || row.LearnerID == uuid.Nil || row.ActivityID == uuid.Nil {
		return fmt.Errorf("%w: score needs a learner and an activity", apperrors.ErrInvalidArgument)
	}
	if !(row.Value >= 0 && row.Value <= 1) {
		return fmt.Errorf("%w: score %v not in [0,1]", apperrors.ErrInvalidArgument, row.Value)
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.Timestamp.IsZero() {
		row.Timestamp = time.Now().UTC()
	}
	db := r.dbx(dbc)
	var last struct{ Max *int64 }
	if err := db.Model(&types.Score{}).
		Select("MAX(seq) AS max").
		Where("learner_id = ?", row.LearnerID).
		Scan(&last).Error; err != nil {
		return err
	}
	row.Seq = 1
	if last.Max != nil {
		row.Seq = *last.Max + 1
	}
	return db.Create(row).Error
}

func (r *scoreRepo) ListAll(dbc dbctx.Context) ([]*types.Score, error) {
	out := []*types.Score{}
	if err := r.dbx(dbc).
		Order("learner_id ASC, seq ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *scoreRepo) ListByLearner(dbc dbctx.Context, learnerID uuid.UUID) ([]*types.Score, error) {
	out := []*types.Score{}
	if err := r.dbx(dbc).
		Where("learner_id = ?", learnerID).
		Order("seq ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *scoreRepo) AttemptedActivityIDs(dbc dbctx.Context, learnerID uuid.UUID) ([]uuid.UUID, error) {
	out := []uuid.UUID{}
	if err := r.dbx(dbc).
		Model(&types.Score{}).
		Where("learner_id = ?", learnerID).
		Distinct("activity_id").
		Order("activity_id ASC").
		Pluck("activity_id", &out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
