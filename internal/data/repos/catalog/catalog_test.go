package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/adaptive-engine/internal/data/repos/testutil"
	types "github.com/yungbote/adaptive-engine/internal/domain"
	"github.com/yungbote/adaptive-engine/internal/pkg/dbctx"
	apperrors "github.com/yungbote/adaptive-engine/internal/pkg/errors"
	"github.com/yungbote/adaptive-engine/internal/pkg/pointers"
)

func TestKnowledgeComponentRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	repo := NewKnowledgeComponentRepo(db, testutil.Logger(t))

	a := &types.KnowledgeComponent{Name: "fractions", MasteryPrior: 0.2}
	b := &types.KnowledgeComponent{Name: "decimals", MasteryPrior: 0.3}
	if err := repo.Upsert(dbc, a, b); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if a.ID == uuid.Nil || b.ID == uuid.Nil {
		t.Fatalf("ids not assigned: %v %v", a.ID, b.ID)
	}

	a.MasteryPrior = 0.4
	if err := repo.Upsert(dbc, a); err != nil {
		t.Fatalf("Upsert update: %v", err)
	}
	got, err := repo.GetByID(dbc, a.ID)
	if err != nil || got.MasteryPrior != 0.4 {
		t.Fatalf("GetByID: got=%+v err=%v", got, err)
	}

	rows, err := repo.ListAll(dbc)
	if err != nil || len(rows) != 2 {
		t.Fatalf("ListAll: len=%d err=%v", len(rows), err)
	}
	if rows[0].ID.String() > rows[1].ID.String() {
		t.Fatalf("ListAll not ordered by id")
	}

	if _, err := repo.GetByID(dbc, uuid.New()); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("GetByID missing: err=%v", err)
	}
	if err := repo.Upsert(dbc, &types.KnowledgeComponent{Name: "bad", MasteryPrior: 2}); !errors.Is(err, apperrors.ErrInvalidArgument) {
		t.Fatalf("Upsert bad prior: err=%v", err)
	}
}

func TestPrerequisiteRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewPrerequisiteRepo(db, testutil.Logger(t))

	k1 := testutil.SeedKC(t, ctx, tx, "k1", 0.2)
	k2 := testutil.SeedKC(t, ctx, tx, "k2", 0.2)
	k3 := testutil.SeedKC(t, ctx, tx, "k3", 0.2)

	if err := repo.Upsert(dbc, &types.PrerequisiteRelation{PrerequisiteID: k1.ID, KnowledgeComponentID: k2.ID, Value: 0.5}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := repo.Upsert(dbc, &types.PrerequisiteRelation{PrerequisiteID: k1.ID, KnowledgeComponentID: k2.ID, Value: 0.9}); err != nil {
		t.Fatalf("Upsert again: %v", err)
	}
	rows, err := repo.ListAll(dbc)
	if err != nil || len(rows) != 1 || rows[0].Value != 0.9 {
		t.Fatalf("ListAll: rows=%+v err=%v", rows, err)
	}

	if err := repo.ReplaceAll(dbc, []*types.PrerequisiteRelation{{PrerequisiteID: k2.ID, KnowledgeComponentID: k3.ID, Value: 1}}); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}
	rows, err = repo.ListAll(dbc)
	if err != nil || len(rows) != 1 || rows[0].PrerequisiteID != k2.ID {
		t.Fatalf("after ReplaceAll: rows=%+v err=%v", rows, err)
	}

	if err := repo.Upsert(dbc, &types.PrerequisiteRelation{PrerequisiteID: k3.ID, KnowledgeComponentID: k3.ID, Value: 1}); !errors.Is(err, apperrors.ErrInvalidArgument) {
		t.Fatalf("self edge: err=%v", err)
	}
}

func TestActivityRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	log := testutil.Logger(t)
	repo := NewActivityRepo(db, log)
	collections := NewCollectionRepo(db, log)

	first := &types.Activity{Name: "intro", NonadaptiveOrder: 2, Difficulty: pointers.Float64(0.3)}
	second := &types.Activity{Name: "drill", NonadaptiveOrder: 1}
	third := &types.Activity{Name: "quiz", NonadaptiveOrder: 3}
	if err := repo.Upsert(dbc, first, second, third); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	got, err := repo.GetByID(dbc, first.ID)
	if err != nil || got.Difficulty == nil || *got.Difficulty != 0.3 {
		t.Fatalf("GetByID: got=%+v err=%v", got, err)
	}
	if err := repo.Upsert(dbc, &types.Activity{Name: "bad", Difficulty: pointers.Float64(-1)}); !errors.Is(err, apperrors.ErrInvalidArgument) {
		t.Fatalf("bad difficulty: err=%v", err)
	}

	seq, err := repo.ListNonadaptive(dbc, uuid.Nil)
	if err != nil || len(seq) != 3 {
		t.Fatalf("ListNonadaptive: len=%d err=%v", len(seq), err)
	}
	if seq[0].ID != second.ID || seq[1].ID != first.ID || seq[2].ID != third.ID {
		t.Fatalf("ListNonadaptive order: %s %s %s", seq[0].Name, seq[1].Name, seq[2].Name)
	}

	col := &types.Collection{Name: "unit-1"}
	if err := collections.Upsert(dbc, col); err != nil {
		t.Fatalf("collection Upsert: %v", err)
	}
	if err := collections.AddActivities(dbc,
		&types.CollectionActivity{CollectionID: col.ID, ActivityID: first.ID, Order: 1},
		&types.CollectionActivity{CollectionID: col.ID, ActivityID: third.ID, Order: 2},
	); err != nil {
		t.Fatalf("AddActivities: %v", err)
	}
	ids, err := collections.ActivityIDs(dbc, col.ID)
	if err != nil || len(ids) != 2 {
		t.Fatalf("ActivityIDs: ids=%v err=%v", ids, err)
	}
	seq, err = repo.ListNonadaptive(dbc, col.ID)
	if err != nil || len(seq) != 2 || seq[0].ID != first.ID {
		t.Fatalf("ListNonadaptive in collection: len=%d err=%v", len(seq), err)
	}

	if err := repo.AddPrerequisites(dbc, &types.ActivityPrerequisite{ActivityID: third.ID, PrerequisiteActivityID: first.ID}); err != nil {
		t.Fatalf("AddPrerequisites: %v", err)
	}
	if err := repo.AddPrerequisites(dbc, &types.ActivityPrerequisite{ActivityID: third.ID, PrerequisiteActivityID: first.ID}); err != nil {
		t.Fatalf("AddPrerequisites duplicate: %v", err)
	}
	edges, err := repo.ListPrerequisites(dbc)
	if err != nil || len(edges) != 1 {
		t.Fatalf("ListPrerequisites: edges=%v err=%v", edges, err)
	}
}

func TestActivityParamRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	log := testutil.Logger(t)
	repo := NewActivityParamRepo(db, log)
	tagging := NewTaggingRepo(db, log)

	kc := testutil.SeedKC(t, ctx, tx, "k", 0.2)
	act := testutil.SeedActivity(t, ctx, tx, "a", 0, nil)
	if err := tagging.Tag(dbc, &types.ActivityKC{ActivityID: act.ID, KnowledgeComponentID: kc.ID}); err != nil {
		t.Fatalf("Tag: %v", err)
	}
	tags, err := tagging.ListAll(dbc)
	if err != nil || len(tags) != 1 {
		t.Fatalf("tagging ListAll: %v %v", tags, err)
	}

	cell := func(kind types.ParamKind, v float64) *types.ActivityParam {
		return &types.ActivityParam{ActivityID: act.ID, KnowledgeComponentID: kc.ID, Kind: kind, Value: v}
	}
	if err := repo.Upsert(dbc, cell(types.ParamGuess, 0.1), cell(types.ParamSlip, 0.15)); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := repo.Upsert(dbc, cell(types.ParamGuess, 0.2)); err != nil {
		t.Fatalf("Upsert again: %v", err)
	}
	rows, err := repo.ListAll(dbc)
	if err != nil || len(rows) != 2 {
		t.Fatalf("ListAll: len=%d err=%v", len(rows), err)
	}
	for _, r := range rows {
		if r.Kind == types.ParamGuess && r.Value != 0.2 {
			t.Fatalf("guess not updated: %v", r.Value)
		}
	}

	if err := repo.ReplaceAll(dbc, []*types.ActivityParam{cell(types.ParamTransit, 0.3)}); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}
	rows, err = repo.ListAll(dbc)
	if err != nil || len(rows) != 1 || rows[0].Kind != types.ParamTransit {
		t.Fatalf("after ReplaceAll: rows=%+v err=%v", rows, err)
	}

	if err := repo.Upsert(dbc, cell("difficulty", 0.1)); !errors.Is(err, apperrors.ErrInvalidArgument) {
		t.Fatalf("unknown kind: err=%v", err)
	}
}

func TestKnowledgeComponentSetPriors(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewKnowledgeComponentRepo(db, testutil.Logger(t))

	kc := testutil.SeedKC(t, ctx, tx, "k", 0.2)
	if err := repo.SetPriors(dbc, map[uuid.UUID]float64{kc.ID: 0.35}); err != nil {
		t.Fatalf("SetPriors: %v", err)
	}
	got, err := repo.GetByID(dbc, kc.ID)
	if err != nil || got.MasteryPrior != 0.35 {
		t.Fatalf("GetByID: got=%+v err=%v", got, err)
	}
	if err := repo.SetPriors(dbc, map[uuid.UUID]float64{kc.ID: 1.5}); !errors.Is(err, apperrors.ErrInvalidArgument) {
		t.Fatalf("bad prior: err=%v", err)
	}
}
