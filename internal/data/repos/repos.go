package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/adaptive-engine/internal/data/repos/catalog"
	"github.com/yungbote/adaptive-engine/internal/data/repos/learner"
	"github.com/yungbote/adaptive-engine/internal/platform/logger"
)

type KnowledgeComponentRepo = catalog.KnowledgeComponentRepo
type PrerequisiteRepo = catalog.PrerequisiteRepo
type ActivityRepo = catalog.ActivityRepo
type TaggingRepo = catalog.TaggingRepo
type ActivityParamRepo = catalog.ActivityParamRepo
type CollectionRepo = catalog.CollectionRepo

type LearnerRepo = learner.LearnerRepo
type EngineSettingsRepo = learner.EngineSettingsRepo
type MasteryRepo = learner.MasteryRepo
type ConfidenceRepo = learner.ConfidenceRepo
type ScoreRepo = learner.ScoreRepo

// Set bundles every repository over one database handle.
type Set struct {
	KnowledgeComponents KnowledgeComponentRepo
	Prerequisites       PrerequisiteRepo
	Activities          ActivityRepo
	Tagging             TaggingRepo
	Params              ActivityParamRepo
	Collections         CollectionRepo

	Learners   LearnerRepo
	Settings   EngineSettingsRepo
	Mastery    MasteryRepo
	Confidence ConfidenceRepo
	Scores     ScoreRepo
}

func NewSet(db *gorm.DB, baseLog *logger.Logger) *Set {
	return &Set{
		KnowledgeComponents: catalog.NewKnowledgeComponentRepo(db, baseLog),
		Prerequisites:       catalog.NewPrerequisiteRepo(db, baseLog),
		Activities:          catalog.NewActivityRepo(db, baseLog),
		Tagging:             catalog.NewTaggingRepo(db, baseLog),
		Params:              catalog.NewActivityParamRepo(db, baseLog),
		Collections:         catalog.NewCollectionRepo(db, baseLog),

		Learners:   learner.NewLearnerRepo(db, baseLog),
		Settings:   learner.NewEngineSettingsRepo(db, baseLog),
		Mastery:    learner.NewMasteryRepo(db, baseLog),
		Confidence: learner.NewConfidenceRepo(db, baseLog),
		Scores:     learner.NewScoreRepo(db, baseLog),
	}
}
