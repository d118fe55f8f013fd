package catalog

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// KnowledgeComponent is a unit of skill the engine tracks mastery of.
type KnowledgeComponent struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name string    `gorm:"column:name;not null;uniqueIndex" json:"name"`
	// MasteryPrior is the probability a new learner already knows this KC.
	MasteryPrior float64 `gorm:"column:mastery_prior;not null" json:"mastery_prior"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (KnowledgeComponent) TableName() string { return "knowledge_component" }

// PrerequisiteRelation says mastery of Prerequisite is needed for KnowledgeComponent,
// with strength Value in [0,1].
type PrerequisiteRelation struct {
	PrerequisiteID       uuid.UUID `gorm:"type:uuid;primaryKey;column:prerequisite_id" json:"prerequisite_id"`
	KnowledgeComponentID uuid.UUID `gorm:"type:uuid;primaryKey;column:knowledge_component_id" json:"knowledge_component_id"`
	Value                float64   `gorm:"column:value;not null" json:"value"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (PrerequisiteRelation) TableName() string { return "prerequisite_relation" }
