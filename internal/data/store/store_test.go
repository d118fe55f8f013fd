package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yungbote/adaptive-engine/internal/bkt"
	"github.com/yungbote/adaptive-engine/internal/data/repos"
	"github.com/yungbote/adaptive-engine/internal/data/repos/testutil"
	types "github.com/yungbote/adaptive-engine/internal/domain"
	"github.com/yungbote/adaptive-engine/internal/engine"
	apperrors "github.com/yungbote/adaptive-engine/internal/pkg/errors"
	"github.com/yungbote/adaptive-engine/internal/pkg/pointers"
)

type fixture struct {
	db    *gorm.DB
	store *Store
	kcA   *types.KnowledgeComponent
	kcB   *types.KnowledgeComponent
	act1  *types.Activity
	act2  *types.Activity
}

// newFixture seeds two KCs where A is a prerequisite of B, and one activity per KC.
func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	ctx := context.Background()

	f := &fixture{db: db}
	f.kcA = testutil.SeedKC(t, ctx, db, "fractions", 0.2)
	f.kcB = testutil.SeedKC(t, ctx, db, "ratios", 0.3)
	f.act1 = testutil.SeedActivity(t, ctx, db, "fractions-1", 1, pointers.Float64(0.7), f.kcA.ID)
	f.act2 = testutil.SeedActivity(t, ctx, db, "ratios-1", 2, nil, f.kcB.ID)
	if err := db.Create(&types.PrerequisiteRelation{PrerequisiteID: f.kcA.ID, KnowledgeComponentID: f.kcB.ID, Value: 0.9}).Error; err != nil {
		t.Fatalf("seed prerequisite: %v", err)
	}
	f.store = New(db, repos.NewSet(db, log), bkt.DefaultConfig(), log, opts...)
	return f
}

func TestModelFillsDefaultsAndStoredParams(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.db.Create([]*types.ActivityParam{
		{ActivityID: f.act1.ID, KnowledgeComponentID: f.kcA.ID, Kind: types.ParamGuess, Value: 0.25},
		{ActivityID: f.act1.ID, KnowledgeComponentID: f.kcA.ID, Kind: types.ParamTransit, Value: 0},
		// untagged cell, ignored
		{ActivityID: f.act1.ID, KnowledgeComponentID: f.kcB.ID, Kind: types.ParamGuess, Value: 0.4},
	}).Error; err != nil {
		t.Fatalf("seed params: %v", err)
	}

	m, err := f.store.Model(ctx)
	require.NoError(t, err)
	cfg := bkt.DefaultConfig()
	g, s, tr := cfg.Defaults()

	i1, ok := m.Activities.Pos(f.act1.ID)
	require.True(t, ok)
	i2, _ := m.Activities.Pos(f.act2.ID)
	a, _ := m.KCs.Pos(f.kcA.ID)
	b, _ := m.KCs.Pos(f.kcB.ID)

	assert.InDelta(t, 1.0/3, m.Guess.At(i1, a), 1e-12)
	assert.InDelta(t, s, m.Slip.At(i1, a), 1e-12)
	assert.Equal(t, 0.0, m.Transit.At(i1, a))

	assert.Equal(t, 1.0, m.Guess.At(i1, b))
	assert.Equal(t, 1.0, m.Slip.At(i1, b))
	assert.Equal(t, 0.0, m.Transit.At(i1, b))
	assert.False(t, m.Tagged.At(i1, b))

	assert.InDelta(t, g, m.Guess.At(i2, b), 1e-12)
	assert.InDelta(t, tr, m.Transit.At(i2, b), 1e-12)

	assert.Equal(t, 0.9, m.Prereqs.At(a, b))
	assert.Equal(t, 0.0, m.Prereqs.At(b, a))
	assert.InDelta(t, bkt.LogOdds(0.7, cfg.Epsilon, true), m.Difficulty[i1], 1e-12)
	assert.Equal(t, 0.0, m.Difficulty[i2])
	assert.InDelta(t, 0.25, m.Prior[a], 1e-12)
}

type staticGraph []Edge

func (g staticGraph) Prerequisites(context.Context) ([]Edge, error) { return g, nil }

func TestModelUsesPrereqSource(t *testing.T) {
	f := newFixture(t)
	f.store = New(f.db, f.store.repos, bkt.DefaultConfig(), testutil.Logger(t),
		WithPrereqSource(staticGraph{{Prerequisite: f.kcB.ID, Dependent: f.kcA.ID, Value: 0.5}}))

	m, err := f.store.Model(context.Background())
	require.NoError(t, err)
	a, _ := m.KCs.Pos(f.kcA.ID)
	b, _ := m.KCs.Pos(f.kcB.ID)
	assert.Equal(t, 0.5, m.Prereqs.At(b, a))
	assert.Equal(t, 0.0, m.Prereqs.At(a, b))
}

func TestInitLearnerAndCommitScore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m, err := f.store.Model(ctx)
	require.NoError(t, err)
	learnerID := uuid.New()

	_, err = f.store.LearnerState(ctx, learnerID, m)
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("unknown learner: got err=%v", err)
	}
	require.NoError(t, f.store.InitLearner(ctx, learnerID, m))
	require.NoError(t, f.store.InitLearner(ctx, learnerID, m))

	state, err := f.store.LearnerState(ctx, learnerID, m)
	require.NoError(t, err)
	for k := range m.Prior {
		assert.InDelta(t, m.Prior[k], state.Mastery[k], 1e-9)
	}
	if state.Settings != nil || state.LastActivity != nil || len(state.Attempted) != 0 {
		t.Fatalf("fresh learner: %+v", state)
	}

	at := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	mastery := []float64{3, 0.5}
	confidence := []float64{1.5, 0}
	require.NoError(t, f.store.CommitScore(ctx, m, engine.ScoreCommit{
		LearnerID:  learnerID,
		ActivityID: f.act1.ID,
		Score:      1,
		At:         at,
		Mastery:    mastery,
		Confidence: confidence,
	}))
	require.NoError(t, f.store.CommitScore(ctx, m, engine.ScoreCommit{
		LearnerID:  learnerID,
		ActivityID: f.act1.ID,
		Score:      0.5,
		At:         at.Add(time.Minute),
		Mastery:    mastery,
	}))

	state, err = f.store.LearnerState(ctx, learnerID, m)
	require.NoError(t, err)
	assert.InDelta(t, 3, state.Mastery[0], 1e-9)
	assert.InDelta(t, 0.5, state.Mastery[1], 1e-9)
	if state.LastActivity == nil || *state.LastActivity != f.act1.ID {
		t.Fatalf("last activity: %v", state.LastActivity)
	}
	assert.True(t, state.Attempted[f.act1.ID])

	conf, err := f.store.repos.Confidence.ListByLearner(f.store.dbc(ctx), learnerID)
	require.NoError(t, err)
	require.Len(t, conf, 1)
	assert.Equal(t, m.KCs.ID(0), conf[0].KnowledgeComponentID)
	assert.InDelta(t, 1.5, conf[0].Value, 1e-12)

	scores, err := f.store.repos.Scores.ListByLearner(f.store.dbc(ctx), learnerID)
	require.NoError(t, err)
	require.Len(t, scores, 2)
	assert.Equal(t, []float64{1, 0.5}, []float64{scores[0].Value, scores[1].Value})
}

func TestCommitScoreRejectsShortMastery(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m, err := f.store.Model(ctx)
	require.NoError(t, err)
	err = f.store.CommitScore(ctx, m, engine.ScoreCommit{LearnerID: uuid.New(), ActivityID: f.act1.ID, Mastery: []float64{1}})
	if !errors.Is(err, apperrors.ErrInvalidArgument) {
		t.Fatalf("got err=%v", err)
	}
}

func TestInitLearnerAssignsDefaultSettings(t *testing.T) {
	f := newFixture(t, WithDefaultSettings("adaptive"))
	ctx := context.Background()
	testutil.SeedSettings(t, ctx, f.db, "adaptive")
	m, err := f.store.Model(ctx)
	require.NoError(t, err)

	learnerID := uuid.New()
	require.NoError(t, f.store.InitLearner(ctx, learnerID, m))
	state, err := f.store.LearnerState(ctx, learnerID, m)
	require.NoError(t, err)
	if state.Settings == nil || state.Settings.Name != "adaptive" {
		t.Fatalf("settings: %+v", state.Settings)
	}
	assert.Equal(t, 2.2, state.Settings.Weights.LStar)
}

func TestResolveLearner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l := &types.Learner{ID: uuid.New(), ExternalID: "lms-42"}
	require.NoError(t, f.db.Create(l).Error)

	got, err := f.store.ResolveLearner(ctx, "lms-42")
	require.NoError(t, err)
	assert.Equal(t, l.ID, got)

	// ids pass through without a lookup, so unknown learners can still be initialized
	fresh := uuid.New()
	got, err = f.store.ResolveLearner(ctx, fresh.String())
	require.NoError(t, err)
	assert.Equal(t, fresh, got)

	if _, err := f.store.ResolveLearner(ctx, "lms-missing"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("unknown external id: err=%v", err)
	}
}

func TestCandidatesFollowActivityPrerequisites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.db.Create(&types.ActivityPrerequisite{ActivityID: f.act2.ID, PrerequisiteActivityID: f.act1.ID}).Error)
	learner := testutil.SeedLearner(t, ctx, f.db, nil)

	got, err := f.store.Candidates(ctx, learner.ID, uuid.Nil)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{f.act1.ID}, got)

	require.NoError(t, f.store.repos.Scores.Append(f.store.dbc(ctx), &types.Score{LearnerID: learner.ID, ActivityID: f.act1.ID, Value: 1, Timestamp: time.Now()}))
	got, err = f.store.Candidates(ctx, learner.ID, uuid.Nil)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{f.act2.ID}, got)
}

func TestCandidatesWithinCollection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	col := &types.Collection{ID: uuid.New(), Name: "unit-1"}
	require.NoError(t, f.db.Create(col).Error)
	require.NoError(t, f.db.Create(&types.CollectionActivity{CollectionID: col.ID, ActivityID: f.act2.ID, Order: 1}).Error)
	learner := testutil.SeedLearner(t, ctx, f.db, nil)

	got, err := f.store.Candidates(ctx, learner.ID, col.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{f.act2.ID}, got)

	seq, err := f.store.Sequence(ctx, col.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{f.act2.ID}, seq)
}

func TestEligible(t *testing.T) {
	a := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	b := uuid.MustParse("00000000-0000-0000-0000-000000000002")
	c := uuid.MustParse("00000000-0000-0000-0000-000000000003")
	edges := []*types.ActivityPrerequisite{{ActivityID: c, PrerequisiteActivityID: a}}

	got := Eligible([]uuid.UUID{c, b, a, b}, nil, edges)
	assert.Equal(t, []uuid.UUID{a, b}, got)

	got = Eligible([]uuid.UUID{c, b, a}, []uuid.UUID{a}, edges)
	assert.Equal(t, []uuid.UUID{b, c}, got)

	assert.Empty(t, Eligible([]uuid.UUID{a}, []uuid.UUID{a}, nil))
}

func TestScoreHistoriesAndSaveParameters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dbc := f.store.dbc(ctx)
	l1 := testutil.SeedLearner(t, ctx, f.db, nil)
	l2 := testutil.SeedLearner(t, ctx, f.db, nil)
	now := time.Now()
	for _, sc := range []*types.Score{
		{LearnerID: l1.ID, ActivityID: f.act2.ID, Value: 0, Timestamp: now},
		{LearnerID: l2.ID, ActivityID: f.act1.ID, Value: 1, Timestamp: now},
		{LearnerID: l1.ID, ActivityID: f.act1.ID, Value: 1, Timestamp: now},
		{LearnerID: l1.ID, ActivityID: uuid.New(), Value: 1, Timestamp: now},
	} {
		require.NoError(t, f.store.repos.Scores.Append(dbc, sc))
	}

	m, err := f.store.Model(ctx)
	require.NoError(t, err)
	hs, err := f.store.ScoreHistories(ctx, m)
	require.NoError(t, err)
	require.Len(t, hs, 2)
	i1, _ := m.Activities.Pos(f.act1.ID)
	i2, _ := m.Activities.Pos(f.act2.ID)
	byLearner := map[string][]bkt.Submission{}
	for _, h := range hs {
		byLearner[h.Learner] = h.Submissions
	}
	assert.Equal(t, []bkt.Submission{{Activity: i2, Score: 0}, {Activity: i1, Score: 1}}, byLearner[l1.ID.String()])
	assert.Equal(t, []bkt.Submission{{Activity: i1, Score: 1}}, byLearner[l2.ID.String()])

	clean := m.Params()
	clean.Guess = clean.Guess.Clone()
	a, _ := m.KCs.Pos(f.kcA.ID)
	clean.Guess.Set(i1, a, 0.5)
	clean.Prior = []float64{1, 1}
	require.NoError(t, f.store.SaveParameters(ctx, m, &bkt.Result{Clean: clean}))

	params, err := f.store.repos.Params.ListAll(dbc)
	require.NoError(t, err)
	assert.Len(t, params, 6, "three kinds per tagged cell")

	reloaded, err := f.store.Model(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, reloaded.Guess.At(i1, a), 1e-9)
	assert.InDelta(t, 1, reloaded.Prior[0], 1e-9)
	assert.Equal(t, 1.0, reloaded.Guess.At(i1, 1-a))

	kc, err := f.store.repos.KnowledgeComponents.GetByID(dbc, f.kcA.ID)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, kc.MasteryPrior, 1e-9)
}

func TestEngineOverStore(t *testing.T) {
	f := newFixture(t, WithDefaultSettings("adaptive"))
	ctx := context.Background()
	testutil.SeedSettings(t, ctx, f.db, "adaptive")
	eng, err := engine.New(f.store, bkt.DefaultConfig(), testutil.Logger(t), engine.WithSeed(3))
	require.NoError(t, err)
	learnerID := uuid.New()

	// ratios depends on fractions, and both start unmastered
	first, ok, err := eng.Recommend(ctx, learnerID, uuid.Nil)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, f.act1.ID, first)

	require.NoError(t, eng.UpdateFromScore(ctx, learnerID, first, 1))
	next, ok, err := eng.Recommend(ctx, learnerID, uuid.Nil)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, f.act2.ID, next)

	require.NoError(t, eng.UpdateFromScore(ctx, learnerID, next, 0))
	_, ok, err = eng.Recommend(ctx, learnerID, uuid.Nil)
	require.NoError(t, err)
	assert.False(t, ok, "every activity attempted")

	res, err := eng.RunBatchEstimation(ctx, bkt.DefaultConfig())
	require.NoError(t, err)
	require.NotNil(t, res)
	params, err := f.store.repos.Params.ListAll(f.store.dbc(ctx))
	require.NoError(t, err)
	assert.Len(t, params, 6)
}
