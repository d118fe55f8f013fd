package catalog

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Collection groups activities a learner is recommended from.
type Collection struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name string    `gorm:"column:name;not null;uniqueIndex" json:"name"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Collection) TableName() string { return "collection" }

type CollectionActivity struct {
	CollectionID uuid.UUID `gorm:"type:uuid;primaryKey;column:collection_id" json:"collection_id"`
	ActivityID   uuid.UUID `gorm:"type:uuid;primaryKey;column:activity_id;index" json:"activity_id"`
	Order        int       `gorm:"column:position;not null;default:0" json:"order"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
}

func (CollectionActivity) TableName() string { return "collection_activity" }
