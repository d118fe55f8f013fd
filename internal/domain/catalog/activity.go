package catalog

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Activity struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name string    `gorm:"column:name;not null" json:"name"`
	URL  string    `gorm:"column:url" json:"url,omitempty"`
	Type string    `gorm:"column:type;index" json:"type,omitempty"`
	Tags datatypes.JSON `gorm:"column:tags" json:"tags,omitempty"`

	// Difficulty is a probability-like value; nil means unknown.
	Difficulty *float64 `gorm:"column:difficulty" json:"difficulty,omitempty"`
	// NonadaptiveOrder positions the activity for learners without engine settings.
	NonadaptiveOrder int `gorm:"column:nonadaptive_order;not null;default:0;index" json:"nonadaptive_order"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Activity) TableName() string { return "activity" }

// ActivityPrerequisite is an edge of the activity DAG: ActivityID is only eligible once
// PrerequisiteActivityID has been attempted.
type ActivityPrerequisite struct {
	ActivityID             uuid.UUID `gorm:"type:uuid;primaryKey;column:activity_id" json:"activity_id"`
	PrerequisiteActivityID uuid.UUID `gorm:"type:uuid;primaryKey;column:prerequisite_activity_id;index" json:"prerequisite_activity_id"`
	CreatedAt              time.Time `gorm:"not null" json:"created_at"`
}

func (ActivityPrerequisite) TableName() string { return "activity_prerequisite" }

// ActivityKC tags an activity with a KC it exercises. Untagged pairs are not applicable
// and never carry parameters.
type ActivityKC struct {
	ActivityID           uuid.UUID `gorm:"type:uuid;primaryKey;column:activity_id" json:"activity_id"`
	KnowledgeComponentID uuid.UUID `gorm:"type:uuid;primaryKey;column:knowledge_component_id;index" json:"knowledge_component_id"`
	CreatedAt            time.Time `gorm:"not null" json:"created_at"`
}

func (ActivityKC) TableName() string { return "activity_kc" }

type ParamKind string

const (
	ParamGuess   ParamKind = "guess"
	ParamSlip    ParamKind = "slip"
	ParamTransit ParamKind = "transit"
)

// ActivityParam is one cell of the guess, slip or transit matrix, stored as a probability.
type ActivityParam struct {
	ActivityID           uuid.UUID `gorm:"type:uuid;primaryKey;column:activity_id" json:"activity_id"`
	KnowledgeComponentID uuid.UUID `gorm:"type:uuid;primaryKey;column:knowledge_component_id" json:"knowledge_component_id"`
	Kind                 ParamKind `gorm:"column:kind;primaryKey;type:varchar(16)" json:"kind"`
	Value                float64   `gorm:"column:value;not null" json:"value"`
	UpdatedAt            time.Time `gorm:"not null" json:"updated_at"`
}

func (ActivityParam) TableName() string { return "activity_param" }
