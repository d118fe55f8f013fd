package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/adaptive-engine/internal/domain"
)

func SeedKC(tb testing.TB, ctx context.Context, tx *gorm.DB, name string, prior float64) *types.KnowledgeComponent {
	tb.Helper()
	kc := &types.KnowledgeComponent{ID: uuid.New(), Name: name, MasteryPrior: prior}
	if err := tx.WithContext(ctx).Create(kc).Error; err != nil {
		tb.Fatalf("seed kc: %v", err)
	}
	return kc
}

// SeedActivity creates an activity tagged with kcs.
func SeedActivity(tb testing.TB, ctx context.Context, tx *gorm.DB, name string, order int, difficulty *float64, kcs ...uuid.UUID) *types.Activity {
	tb.Helper()
	a := &types.Activity{
		ID:               uuid.New(),
		Name:             name,
		Type:             "exercise",
		Tags:             datatypes.JSON([]byte(`["test"]`)),
		Difficulty:       difficulty,
		NonadaptiveOrder: order,
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed activity: %v", err)
	}
	for _, kc := range kcs {
		if err := tx.WithContext(ctx).Create(&types.ActivityKC{ActivityID: a.ID, KnowledgeComponentID: kc}).Error; err != nil {
			tb.Fatalf("seed tagging: %v", err)
		}
	}
	return a
}

func SeedSettings(tb testing.TB, ctx context.Context, tx *gorm.DB, name string) *types.EngineSettings {
	tb.Helper()
	s := &types.EngineSettings{ID: uuid.New(), Name: name, LStar: 2.2, WP: 1, WR: 2, WD: 0.5, WC: 1}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed settings: %v", err)
	}
	return s
}

func SeedLearner(tb testing.TB, ctx context.Context, tx *gorm.DB, settingsID *uuid.UUID) *types.Learner {
	tb.Helper()
	id := uuid.New()
	l := &types.Learner{ID: id, ExternalID: id.String(), EngineSettingsID: settingsID}
	if err := tx.WithContext(ctx).Create(l).Error; err != nil {
		tb.Fatalf("seed learner: %v", err)
	}
	return l
}
