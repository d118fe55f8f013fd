package store

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/adaptive-engine/internal/bkt"
	"github.com/yungbote/adaptive-engine/internal/data/repos"
	types "github.com/yungbote/adaptive-engine/internal/domain"
	"github.com/yungbote/adaptive-engine/internal/engine"
	"github.com/yungbote/adaptive-engine/internal/pkg/dbctx"
	"github.com/yungbote/adaptive-engine/internal/platform/logger"
)

// Edge is a KC prerequisite edge from an external graph.
type Edge struct {
	Prerequisite uuid.UUID
	Dependent    uuid.UUID
	Value        float64
}

// PrereqSource overrides the prerequisite table, e.g. with a graph database.
type PrereqSource interface {
	Prerequisites(ctx context.Context) ([]Edge, error)
}

// ParamWriter swaps the full parameter set and the KC priors atomically.
type ParamWriter interface {
	ReplaceParameters(ctx context.Context, params []*types.ActivityParam, priors map[uuid.UUID]float64) error
}

// Store implements engine.Store over the gorm repositories.
type Store struct {
	db     *gorm.DB
	repos  *repos.Set
	cfg    bkt.Config
	log    *logger.Logger
	graph  PrereqSource
	writer ParamWriter
	// defaultSettings names the bundle assigned to learners created on first contact.
	defaultSettings string
}

var _ engine.Store = (*Store)(nil)

type Option func(*Store)

func WithPrereqSource(src PrereqSource) Option { return func(s *Store) { s.graph = src } }

func WithParamWriter(w ParamWriter) Option { return func(s *Store) { s.writer = w } }

func WithDefaultSettings(name string) Option { return func(s *Store) { s.defaultSettings = name } }

func New(db *gorm.DB, set *repos.Set, cfg bkt.Config, baseLog *logger.Logger, opts ...Option) *Store {
	s := &Store{
		db:    db,
		repos: set,
		cfg:   cfg,
		log:   baseLog.With("service", "EngineStore"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.writer == nil {
		s.writer = &gormWriter{db: db, repos: set}
	}
	return s
}

func (s *Store) dbc(ctx context.Context) dbctx.Context {
	return dbctx.Context{Ctx: ctx}
}

func (s *Store) Model(ctx context.Context) (*engine.Model, error) {
	dbc := s.dbc(ctx)
	kcs, err := s.repos.KnowledgeComponents.ListAll(dbc)
	if err != nil {
		return nil, fmt.Errorf("list kcs: %w", err)
	}
	acts, err := s.repos.Activities.ListAll(dbc)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	tags, err := s.repos.Tagging.ListAll(dbc)
	if err != nil {
		return nil, fmt.Errorf("list tagging: %w", err)
	}
	params, err := s.repos.Params.ListAll(dbc)
	if err != nil {
		return nil, fmt.Errorf("list params: %w", err)
	}
	edges, err := s.prerequisites(ctx)
	if err != nil {
		return nil, err
	}

	sort.Slice(kcs, func(i, j int) bool { return lessID(kcs[i].ID, kcs[j].ID) })
	sort.Slice(acts, func(i, j int) bool { return lessID(acts[i].ID, acts[j].ID) })
	kcIDs := make([]uuid.UUID, len(kcs))
	for i, kc := range kcs {
		kcIDs[i] = kc.ID
	}
	actIDs := make([]uuid.UUID, len(acts))
	for i, a := range acts {
		actIDs[i] = a.ID
	}

	b := newModelBuilder(actIDs, kcIDs, s.cfg)
	for _, t := range tags {
		b.tag(t.ActivityID, t.KnowledgeComponentID)
	}
	b.applyDefaults(s.cfg)
	for _, p := range params {
		b.param(p.ActivityID, p.KnowledgeComponentID, p.Kind, p.Value)
	}
	for _, e := range edges {
		b.prereq(e.Prerequisite, e.Dependent, e.Value)
	}
	for i, a := range acts {
		b.model.Difficulty[i] = bkt.Difficulty(a.Difficulty, s.cfg.Epsilon)
	}
	for k, kc := range kcs {
		b.model.Prior[k] = bkt.Odds(kc.MasteryPrior, s.cfg.Epsilon, true)
	}
	if b.skipped > 0 {
		s.log.Warn("ignored rows referencing unknown activities or kcs", "count", b.skipped)
	}
	return b.model, nil
}

func (s *Store) prerequisites(ctx context.Context) ([]Edge, error) {
	if s.graph != nil {
		edges, err := s.graph.Prerequisites(ctx)
		if err != nil {
			return nil, fmt.Errorf("graph prerequisites: %w", err)
		}
		return edges, nil
	}
	rows, err := s.repos.Prerequisites.ListAll(s.dbc(ctx))
	if err != nil {
		return nil, fmt.Errorf("list prerequisites: %w", err)
	}
	out := make([]Edge, len(rows))
	for i, r := range rows {
		out[i] = Edge{Prerequisite: r.PrerequisiteID, Dependent: r.KnowledgeComponentID, Value: r.Value}
	}
	return out, nil
}

// ResolveLearner maps a learner reference to its id. A UUID is taken as the id;
// anything else is looked up as an external id and must exist.
func (s *Store) ResolveLearner(ctx context.Context, ref string) (uuid.UUID, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return id, nil
	}
	l, err := s.repos.Learners.GetByExternalID(s.dbc(ctx), ref)
	if err != nil {
		return uuid.Nil, err
	}
	return l.ID, nil
}

func (s *Store) LearnerState(ctx context.Context, learnerID uuid.UUID, model *engine.Model) (*engine.LearnerState, error) {
	dbc := s.dbc(ctx)
	l, err := s.repos.Learners.GetByID(dbc, learnerID)
	if err != nil {
		return nil, err
	}
	rows, err := s.repos.Mastery.ListByLearner(dbc, learnerID)
	if err != nil {
		return nil, fmt.Errorf("list mastery: %w", err)
	}
	attempted, err := s.repos.Scores.AttemptedActivityIDs(dbc, learnerID)
	if err != nil {
		return nil, fmt.Errorf("list attempted: %w", err)
	}

	// KCs added after the learner was seeded fall back to their prior
	mastery := append([]float64(nil), model.Prior...)
	for _, m := range rows {
		if k, ok := model.KCs.Pos(m.KnowledgeComponentID); ok {
			mastery[k] = bkt.Odds(m.Value, s.cfg.Epsilon, true)
		}
	}
	state := &engine.LearnerState{
		LearnerID:    learnerID,
		Mastery:      mastery,
		LastActivity: l.LastActivityID,
		Attempted:    make(map[uuid.UUID]bool, len(attempted)),
	}
	for _, id := range attempted {
		state.Attempted[id] = true
	}
	if l.EngineSettings != nil {
		state.Settings = SettingsFromDomain(l.EngineSettings)
	}
	return state, nil
}

func (s *Store) Candidates(ctx context.Context, learnerID, collectionID uuid.UUID) ([]uuid.UUID, error) {
	dbc := s.dbc(ctx)
	var pool []uuid.UUID
	if collectionID == uuid.Nil {
		acts, err := s.repos.Activities.ListAll(dbc)
		if err != nil {
			return nil, fmt.Errorf("list activities: %w", err)
		}
		for _, a := range acts {
			pool = append(pool, a.ID)
		}
	} else {
		ids, err := s.repos.Collections.ActivityIDs(dbc, collectionID)
		if err != nil {
			return nil, fmt.Errorf("list collection: %w", err)
		}
		pool = ids
	}
	attemptedIDs, err := s.repos.Scores.AttemptedActivityIDs(dbc, learnerID)
	if err != nil {
		return nil, fmt.Errorf("list attempted: %w", err)
	}
	edges, err := s.repos.Activities.ListPrerequisites(dbc)
	if err != nil {
		return nil, fmt.Errorf("list activity prerequisites: %w", err)
	}
	return Eligible(pool, attemptedIDs, edges), nil
}

// Eligible filters pool to activities not yet attempted whose prerequisite activities
// have all been attempted, sorted by id.
func Eligible(pool, attempted []uuid.UUID, edges []*types.ActivityPrerequisite) []uuid.UUID {
	done := make(map[uuid.UUID]bool, len(attempted))
	for _, id := range attempted {
		done[id] = true
	}
	blocked := map[uuid.UUID]bool{}
	for _, e := range edges {
		if !done[e.PrerequisiteActivityID] {
			blocked[e.ActivityID] = true
		}
	}
	out := make([]uuid.UUID, 0, len(pool))
	seen := make(map[uuid.UUID]bool, len(pool))
	for _, id := range pool {
		if done[id] || blocked[id] || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return lessID(out[i], out[j]) })
	return out
}

func (s *Store) Sequence(ctx context.Context, collectionID uuid.UUID) ([]uuid.UUID, error) {
	acts, err := s.repos.Activities.ListNonadaptive(s.dbc(ctx), collectionID)
	if err != nil {
		return nil, fmt.Errorf("list sequence: %w", err)
	}
	out := make([]uuid.UUID, len(acts))
	for i, a := range acts {
		out[i] = a.ID
	}
	return out, nil
}

func lessID(a, b uuid.UUID) bool {
	return bytes.Compare(a[:], b[:]) < 0
}
