package domain

import (
	"github.com/yungbote/adaptive-engine/internal/domain/catalog"
	"github.com/yungbote/adaptive-engine/internal/domain/learner"
)

type ParamKind = catalog.ParamKind

const (
	ParamGuess   = catalog.ParamGuess
	ParamSlip    = catalog.ParamSlip
	ParamTransit = catalog.ParamTransit
)

type KnowledgeComponent = catalog.KnowledgeComponent
type PrerequisiteRelation = catalog.PrerequisiteRelation
type Activity = catalog.Activity
type ActivityPrerequisite = catalog.ActivityPrerequisite
type ActivityKC = catalog.ActivityKC
type ActivityParam = catalog.ActivityParam
type Collection = catalog.Collection
type CollectionActivity = catalog.CollectionActivity

type Learner = learner.Learner
type EngineSettings = learner.EngineSettings
type Mastery = learner.Mastery
type Confidence = learner.Confidence
type Score = learner.Score

// Models lists every table in migration order.
func Models() []interface{} {
	return []interface{}{
		&KnowledgeComponent{},
		&PrerequisiteRelation{},
		&Activity{},
		&ActivityPrerequisite{},
		&ActivityKC{},
		&ActivityParam{},
		&Collection{},
		&CollectionActivity{},
		&EngineSettings{},
		&Learner{},
		&Mastery{},
		&Confidence{},
		&Score{},
	}
}
