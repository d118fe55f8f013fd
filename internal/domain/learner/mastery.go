package learner

import (
	"time"

	"github.com/google/uuid"
)

// Mastery is the probability that a learner knows a KC.
type Mastery struct {
	LearnerID            uuid.UUID `gorm:"type:uuid;primaryKey;column:learner_id" json:"learner_id"`
	KnowledgeComponentID uuid.UUID `gorm:"type:uuid;primaryKey;column:knowledge_component_id" json:"knowledge_component_id"`
	Value                float64   `gorm:"column:value;not null" json:"value"`
	UpdatedAt            time.Time `gorm:"not null" json:"updated_at"`
}

func (Mastery) TableName() string { return "mastery" }

// Confidence accumulates the relevance of every distinct activity a learner attempted.
type Confidence struct {
	LearnerID            uuid.UUID `gorm:"type:uuid;primaryKey;column:learner_id" json:"learner_id"`
	KnowledgeComponentID uuid.UUID `gorm:"type:uuid;primaryKey;column:knowledge_component_id" json:"knowledge_component_id"`
	Value                float64   `gorm:"column:value;not null;default:0" json:"value"`
	UpdatedAt            time.Time `gorm:"not null" json:"updated_at"`
}

func (Confidence) TableName() string { return "confidence" }

// Score is an append-only attempt record. Seq is assigned per learner at insert and is
// the replay order; Timestamp is informational and never reorders history.
type Score struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Seq        int64     `gorm:"column:seq;not null;uniqueIndex:idx_score_learner_seq,priority:2" json:"seq"`
	LearnerID  uuid.UUID `gorm:"type:uuid;column:learner_id;not null;uniqueIndex:idx_score_learner_seq,priority:1" json:"learner_id"`
	ActivityID uuid.UUID `gorm:"type:uuid;column:activity_id;not null;index" json:"activity_id"`
	Value      float64   `gorm:"column:value;not null" json:"value"`
	Timestamp  time.Time `gorm:"column:timestamp;not null;index" json:"timestamp"`
}

func (Score) TableName() string { return "score" }
