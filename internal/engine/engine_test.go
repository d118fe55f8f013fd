package engine

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/adaptive-engine/internal/bkt"
	apperrors "github.com/yungbote/adaptive-engine/internal/pkg/errors"
	"github.com/yungbote/adaptive-engine/internal/pkg/matrix"
	"github.com/yungbote/adaptive-engine/internal/platform/logger"
	"github.com/yungbote/adaptive-engine/internal/recommend"
)

var (
	act0 = uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	act1 = uuid.MustParse("00000000-0000-0000-0000-00000000000b")
	act2 = uuid.MustParse("00000000-0000-0000-0000-00000000000c")
	kc0  = uuid.MustParse("00000000-0000-0000-0000-000000000100")
	kc1  = uuid.MustParse("00000000-0000-0000-0000-000000000200")
)

type memStore struct {
	mu       sync.Mutex
	model    *Model
	learners map[uuid.UUID]*LearnerState
	commits  []ScoreCommit
	sequence []uuid.UUID
	saved    *bkt.Result
}

// newMemStore builds a model where act0 teaches kc0, act1 teaches kc1 and act2 teaches
// both; kc0 is a prerequisite of kc1 with strength 0.9.
func newMemStore(cfg bkt.Config) *memStore {
	g, s, t := cfg.Defaults()
	tags := [][]bool{{true, false}, {false, true}, {true, true}}
	m := &Model{
		KCs:        matrix.NewIndex([]uuid.UUID{kc0, kc1}),
		Activities: matrix.NewIndex([]uuid.UUID{act0, act1, act2}),
		Guess:      matrix.NewFilled(3, 2, 1),
		Slip:       matrix.NewFilled(3, 2, 1),
		Transit:    matrix.New(3, 2),
		Tagged:     matrix.NewMask(3, 2),
		Prereqs:    matrix.FromRows([][]float64{{0, 0.9}, {0, 0}}),
		Difficulty: []float64{0, 0, 0},
		Prior:      []float64{bkt.Odds(0.2, cfg.Epsilon, true), bkt.Odds(0.2, cfg.Epsilon, true)},
	}
	for i, row := range tags {
		for j, on := range row {
			if on {
				m.Guess.Set(i, j, g)
				m.Slip.Set(i, j, s)
				m.Transit.Set(i, j, t)
				m.Tagged.Set(i, j, true)
			}
		}
	}
	return &memStore{model: m, learners: map[uuid.UUID]*LearnerState{}, sequence: []uuid.UUID{act2, act0, act1}}
}

func (s *memStore) addLearner(id uuid.UUID, settings *Settings, mastery ...float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(mastery) == 0 {
		mastery = append([]float64(nil), s.model.Prior...)
	}
	s.learners[id] = &LearnerState{LearnerID: id, Mastery: mastery, Settings: settings, Attempted: map[uuid.UUID]bool{}}
}

func (s *memStore) Model(context.Context) (*Model, error) { return s.model, nil }

func (s *memStore) LearnerState(_ context.Context, id uuid.UUID, _ *Model) (*LearnerState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.learners[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *st
	cp.Mastery = append([]float64(nil), st.Mastery...)
	cp.Attempted = map[uuid.UUID]bool{}
	for k, v := range st.Attempted {
		cp.Attempted[k] = v
	}
	return &cp, nil
}

func (s *memStore) Candidates(_ context.Context, id, _ uuid.UUID) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []uuid.UUID
	for _, a := range s.model.Activities.IDs() {
		if !s.learners[id].Attempted[a] {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}

func (s *memStore) Sequence(context.Context, uuid.UUID) ([]uuid.UUID, error) { return s.sequence, nil }

func (s *memStore) CommitScore(_ context.Context, _ *Model, c ScoreCommit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.learners[c.LearnerID]
	st.Mastery = c.Mastery
	st.Attempted[c.ActivityID] = true
	last := c.ActivityID
	st.LastActivity = &last
	s.commits = append(s.commits, c)
	return nil
}

func (s *memStore) InitLearner(_ context.Context, id uuid.UUID, m *Model) error {
	s.mu.Lock()
	_, ok := s.learners[id]
	s.mu.Unlock()
	if !ok {
		s.addLearner(id, nil)
	}
	return nil
}

func (s *memStore) ScoreHistories(_ context.Context, m *Model) ([]bkt.History, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byLearner := map[uuid.UUID]*bkt.History{}
	var order []uuid.UUID
	for _, c := range s.commits {
		h, ok := byLearner[c.LearnerID]
		if !ok {
			h = &bkt.History{Learner: c.LearnerID.String()}
			byLearner[c.LearnerID] = h
			order = append(order, c.LearnerID)
		}
		row, _ := m.Activities.Pos(c.ActivityID)
		h.Submissions = append(h.Submissions, bkt.Submission{Activity: row, Score: c.Score})
	}
	out := make([]bkt.History, 0, len(order))
	for _, id := range order {
		out = append(out, *byLearner[id])
	}
	return out, nil
}

func (s *memStore) SaveParameters(_ context.Context, _ *Model, res *bkt.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = res
	return nil
}

type recordingExporter struct {
	calls int
	err   error
}

func (x *recordingExporter) ExportEstimate(context.Context, *Model, *bkt.Result) (string, error) {
	x.calls++
	return "mem://estimate", x.err
}

func defaultSettings() *Settings {
	return &Settings{ID: uuid.New(), Name: "default", Weights: recommend.DefaultWeights()}
}

func newTestEngine(t *testing.T, store Store, opts ...Option) *Engine {
	t.Helper()
	e, err := New(store, bkt.DefaultConfig(), logger.NewNop(), opts...)
	require.NoError(t, err)
	return e
}

func TestRecommendFollowsPrerequisites(t *testing.T) {
	cfg := bkt.DefaultConfig()
	store := newMemStore(cfg)
	learner := uuid.New()
	store.addLearner(learner, defaultSettings())
	e := newTestEngine(t, store)

	// only the first two activities, to match the two-KC scenario
	store.model.Activities = matrix.NewIndex([]uuid.UUID{act0, act1})
	store.model.Guess = store.model.Guess.SelectRows([]int{0, 1})
	store.model.Slip = store.model.Slip.SelectRows([]int{0, 1})
	store.model.Transit = store.model.Transit.SelectRows([]int{0, 1})
	store.model.Difficulty = []float64{0, 0}

	got, ok, err := e.Recommend(context.Background(), learner, uuid.Nil)
	require.NoError(t, err)
	if !ok || got != act0 {
		t.Fatalf("unmet prerequisite: got=%s ok=%v want=%s", got, ok, act0)
	}

	store.learners[learner].Mastery[0] = math.Exp(3)
	got, ok, err = e.Recommend(context.Background(), learner, uuid.Nil)
	require.NoError(t, err)
	if !ok || got != act1 {
		t.Fatalf("prerequisite met: got=%s ok=%v want=%s", got, ok, act1)
	}
}

func TestRecommendCompleteWhenEverythingAttempted(t *testing.T) {
	store := newMemStore(bkt.DefaultConfig())
	learner := uuid.New()
	store.addLearner(learner, defaultSettings())
	for _, a := range []uuid.UUID{act0, act1, act2} {
		store.learners[learner].Attempted[a] = true
	}
	e := newTestEngine(t, store)

	got, ok, err := e.Recommend(context.Background(), learner, uuid.Nil)
	require.NoError(t, err)
	if ok || got != uuid.Nil {
		t.Fatalf("got=%s ok=%v want complete", got, ok)
	}
}

func TestRecommendNonAdaptiveSequence(t *testing.T) {
	store := newMemStore(bkt.DefaultConfig())
	learner := uuid.New()
	store.addLearner(learner, nil)
	store.learners[learner].Attempted[act2] = true
	e := newTestEngine(t, store)

	got, ok, err := e.Recommend(context.Background(), learner, uuid.Nil)
	require.NoError(t, err)
	if !ok || got != act0 {
		t.Fatalf("got=%s want=%s", got, act0)
	}

	store.learners[learner].Attempted[act0] = true
	store.learners[learner].Attempted[act1] = true
	_, ok, err = e.Recommend(context.Background(), learner, uuid.Nil)
	require.NoError(t, err)
	if ok {
		t.Fatalf("sequence exhausted: want complete")
	}
}

func TestRecommendInitializesUnknownLearner(t *testing.T) {
	store := newMemStore(bkt.DefaultConfig())
	e := newTestEngine(t, store)
	learner := uuid.New()

	got, ok, err := e.Recommend(context.Background(), learner, uuid.Nil)
	require.NoError(t, err)
	if !ok || got != act2 {
		t.Fatalf("new learners start the fixed sequence: got=%s", got)
	}
	if _, found := store.learners[learner]; !found {
		t.Fatalf("learner not initialized")
	}
}

func TestRecommendRejectsInvalidSettings(t *testing.T) {
	store := newMemStore(bkt.DefaultConfig())
	learner := uuid.New()
	bad := defaultSettings()
	bad.Weights.WR = -1
	store.addLearner(learner, bad)
	e := newTestEngine(t, store)

	_, _, err := e.Recommend(context.Background(), learner, uuid.Nil)
	if !errors.Is(err, apperrors.ErrInvalidArgument) {
		t.Fatalf("got err=%v", err)
	}
}

func TestExplainRanksCandidates(t *testing.T) {
	store := newMemStore(bkt.DefaultConfig())
	learner := uuid.New()
	store.addLearner(learner, defaultSettings())
	e := newTestEngine(t, store)

	ranked, err := e.Explain(context.Background(), learner, uuid.Nil)
	require.NoError(t, err)
	require.Len(t, ranked, 3)
	for i := 1; i < len(ranked); i++ {
		if ranked[i].Score > ranked[i-1].Score {
			t.Fatalf("not sorted: %+v", ranked)
		}
	}
	best, _, err := e.Recommend(context.Background(), learner, uuid.Nil)
	require.NoError(t, err)
	assert.Equal(t, ranked[0].ActivityID, best)
}

func TestUpdateFromScoreAppliesOneStep(t *testing.T) {
	cfg := bkt.DefaultConfig()
	store := newMemStore(cfg)
	learner := uuid.New()
	store.addLearner(learner, defaultSettings())
	at := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	e := newTestEngine(t, store, WithClock(func() time.Time { return at }))

	before := append([]float64(nil), store.learners[learner].Mastery...)
	require.NoError(t, e.UpdateFromScore(context.Background(), learner, act2, 1))
	require.Len(t, store.commits, 1)

	g, s, tr, _ := store.model.Row(act2)
	want := bkt.UpdateMastery(before, 1, g, s, tr, cfg.Epsilon)
	c := store.commits[0]
	assert.Equal(t, want, c.Mastery)
	assert.Equal(t, at, c.At)
	assert.Equal(t, bkt.FirstAttemptConfidence(g, s), c.Confidence)

	require.NoError(t, e.UpdateFromScore(context.Background(), learner, act2, 0))
	if store.commits[1].Confidence != nil {
		t.Fatalf("repeat attempt must not add confidence")
	}
	if *store.learners[learner].LastActivity != act2 {
		t.Fatalf("last activity not tracked")
	}
}

func TestUpdateFromScoreValidation(t *testing.T) {
	store := newMemStore(bkt.DefaultConfig())
	learner := uuid.New()
	store.addLearner(learner, nil)
	e := newTestEngine(t, store)
	ctx := context.Background()

	for _, score := range []float64{-0.1, 1.01, math.NaN()} {
		if err := e.UpdateFromScore(ctx, learner, act0, score); !errors.Is(err, apperrors.ErrInvalidArgument) {
			t.Fatalf("score %v: got err=%v", score, err)
		}
	}
	if err := e.UpdateFromScore(ctx, learner, uuid.New(), 1); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("unknown activity: got err=%v", err)
	}
	if len(store.commits) != 0 {
		t.Fatalf("rejected scores must not be committed")
	}

	stranger := uuid.New()
	require.NoError(t, e.UpdateFromScore(ctx, stranger, act0, 1))
	if _, ok := store.learners[stranger]; !ok {
		t.Fatalf("unknown learner not initialized")
	}
}

func TestUpdateFromScoreSerializesPerLearner(t *testing.T) {
	cfg := bkt.DefaultConfig()
	store := newMemStore(cfg)
	learner := uuid.New()
	store.addLearner(learner, defaultSettings())
	e := newTestEngine(t, store)

	const n = 40
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := e.UpdateFromScore(context.Background(), learner, act0, 0); err != nil {
				t.Errorf("update: %v", err)
			}
		}()
	}
	wg.Wait()

	g, s, tr, _ := store.model.Row(act0)
	want := append([]float64(nil), store.model.Prior...)
	for i := 0; i < n; i++ {
		want = bkt.UpdateMastery(want, 0, g, s, tr, cfg.Epsilon)
	}
	require.Len(t, store.commits, n)
	assert.InDeltaSlice(t, want, store.learners[learner].Mastery, 1e-12)
}

type stuckLocker struct{}

func (stuckLocker) Lock(ctx context.Context, _ string) (func(), error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestUpdateFromScoreLockTimeout(t *testing.T) {
	store := newMemStore(bkt.DefaultConfig())
	learner := uuid.New()
	store.addLearner(learner, nil)
	e := newTestEngine(t, store, WithLocker(stuckLocker{}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := e.UpdateFromScore(ctx, learner, act0, 1); !errors.Is(err, apperrors.ErrLocked) {
		t.Fatalf("got err=%v want ErrLocked", err)
	}
}

func TestRunBatchEstimationSavesAndExports(t *testing.T) {
	cfg := bkt.DefaultConfig()
	store := newMemStore(cfg)
	exp := &recordingExporter{}
	e := newTestEngine(t, store, WithExporter(exp))
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		l := uuid.New()
		store.addLearner(l, defaultSettings())
		require.NoError(t, e.UpdateFromScore(ctx, l, act0, 0))
		require.NoError(t, e.UpdateFromScore(ctx, l, act1, 1))
	}

	est := cfg
	est.InformationThreshold = 5
	res, err := e.RunBatchEstimation(ctx, est)
	require.NoError(t, err)
	assert.Equal(t, 6, res.Learners)
	assert.Equal(t, 12, res.Submissions)
	assert.Same(t, res, store.saved)
	assert.Equal(t, 1, exp.calls)
	// untagged cells never gather evidence
	assert.False(t, res.Guess.Valid.At(0, 1))
	assert.Equal(t, 1.0, res.Clean.Guess.At(0, 1))

	exp.err = errors.New("bucket unavailable")
	_, err = e.RunBatchEstimation(ctx, est)
	require.NoError(t, err, "export failures are not fatal")
	assert.Equal(t, 2, exp.calls)
}

func TestLocalLockerReleasesKeys(t *testing.T) {
	l := NewLocalLocker()
	unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	if _, err := l.Lock(ctx, "k"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("second lock: got err=%v", err)
	}

	other, err := l.Lock(context.Background(), "other")
	require.NoError(t, err)
	other()

	unlock()
	unlock()
	assert.Equal(t, 0, l.size())

	again, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)
	again()
}

func TestNextInSequence(t *testing.T) {
	seq := []uuid.UUID{act2, act0, act1}
	got, ok := NextInSequence(seq, map[uuid.UUID]bool{act2: true})
	if !ok || got != act0 {
		t.Fatalf("got=%s ok=%v", got, ok)
	}
	if _, ok := NextInSequence(nil, nil); ok {
		t.Fatalf("empty sequence must be complete")
	}
}
