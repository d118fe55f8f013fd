package learner

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Learner struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ExternalID string    `gorm:"column:external_id;uniqueIndex" json:"external_id,omitempty"`

	// EngineSettingsID selects the tuning bundle; nil puts the learner on the fixed sequence.
	EngineSettingsID *uuid.UUID      `gorm:"type:uuid;column:engine_settings_id;index" json:"engine_settings_id,omitempty"`
	EngineSettings   *EngineSettings `gorm:"foreignKey:EngineSettingsID;references:ID" json:"engine_settings,omitempty"`

	LastActivityID *uuid.UUID `gorm:"type:uuid;column:last_activity_id" json:"last_activity_id,omitempty"`
	LastSeenAt     *time.Time `gorm:"column:last_seen_at" json:"last_seen_at,omitempty"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Learner) TableName() string { return "learner" }
