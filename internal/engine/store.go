package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/adaptive-engine/internal/bkt"
	"github.com/yungbote/adaptive-engine/internal/pkg/matrix"
	"github.com/yungbote/adaptive-engine/internal/recommend"
)

// Model is a dense snapshot of the global parameters. Rows follow Activities and
// columns follow KCs, both in id order. Guess and Slip are odds with untagged cells
// at 1; Transit is odds with untagged cells at 0.
type Model struct {
	KCs        *matrix.Index[uuid.UUID]
	Activities *matrix.Index[uuid.UUID]

	Guess   *matrix.Dense
	Slip    *matrix.Dense
	Transit *matrix.Dense
	Tagged  *matrix.Mask
	// Prereqs is K×K with prerequisites on rows and dependent KCs on columns.
	Prereqs *matrix.Dense
	// Difficulty is clean log-odds per activity.
	Difficulty []float64
	// Prior is the initial mastery odds per KC.
	Prior []float64
}

func (m *Model) Params() bkt.Params {
	return bkt.Params{Guess: m.Guess, Slip: m.Slip, Transit: m.Transit, Prior: m.Prior}
}

// Row returns the guess, slip and transit odds of one activity. ok is false when the
// activity is not in the model.
func (m *Model) Row(activityID uuid.UUID) (guess, slip, transit []float64, ok bool) {
	i, ok := m.Activities.Pos(activityID)
	if !ok {
		return nil, nil, nil, false
	}
	return m.Guess.RowCopy(i), m.Slip.RowCopy(i), m.Transit.RowCopy(i), true
}

// Settings is a learner's resolved tuning bundle.
type Settings struct {
	ID      uuid.UUID
	Name    string
	Weights recommend.Weights
	Options recommend.Options
}

// LearnerState is what the engine reads about one learner.
type LearnerState struct {
	LearnerID uuid.UUID
	// Mastery is odds aligned with Model.KCs.
	Mastery      []float64
	LastActivity *uuid.UUID
	// Settings is nil for learners on the fixed sequence.
	Settings  *Settings
	Attempted map[uuid.UUID]bool
}

// ScoreCommit is everything persisted for one submitted score.
type ScoreCommit struct {
	LearnerID  uuid.UUID
	ActivityID uuid.UUID
	Score      float64
	At         time.Time
	// Mastery is the updated odds aligned with Model.KCs.
	Mastery []float64
	// Confidence is the per-KC increment, nil unless this was the first attempt.
	Confidence []float64
}

// Store is the persistence the engine runs against.
type Store interface {
	Model(ctx context.Context) (*Model, error)
	// LearnerState returns ErrNotFound for unknown learners.
	LearnerState(ctx context.Context, learnerID uuid.UUID, model *Model) (*LearnerState, error)
	// Candidates lists unattempted activities whose prerequisite activities have all been
	// attempted, ordered by id. A nil collection means every activity.
	Candidates(ctx context.Context, learnerID, collectionID uuid.UUID) ([]uuid.UUID, error)
	// Sequence lists the activities of a collection in fixed order.
	Sequence(ctx context.Context, collectionID uuid.UUID) ([]uuid.UUID, error)
	// CommitScore appends the score and writes mastery, confidence and last-seen
	// atomically.
	CommitScore(ctx context.Context, model *Model, c ScoreCommit) error
	// InitLearner creates the learner if needed and seeds missing mastery from priors.
	InitLearner(ctx context.Context, learnerID uuid.UUID, model *Model) error
	// ScoreHistories returns every learner's scores in order, mapped onto model rows.
	ScoreHistories(ctx context.Context, model *Model) ([]bkt.History, error)
	// SaveParameters replaces the stored parameters with res.Clean in one transaction.
	SaveParameters(ctx context.Context, model *Model, res *bkt.Result) error
}

// Exporter receives the diagnostic view of each estimation run.
type Exporter interface {
	ExportEstimate(ctx context.Context, model *Model, res *bkt.Result) (string, error)
}
