package learner

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EngineSettings is a named tuning bundle for the recommendation blend. Zero values
// are stored as given; recommend.DefaultWeights holds the documented defaults.
type EngineSettings struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name string    `gorm:"column:name;not null;uniqueIndex" json:"name"`

	RStar float64 `gorm:"column:r_star;not null" json:"r_star"`
	LStar float64 `gorm:"column:l_star;not null" json:"l_star"`
	WP    float64 `gorm:"column:w_p;not null" json:"w_p"`
	WR    float64 `gorm:"column:w_r;not null" json:"w_r"`
	WD    float64 `gorm:"column:w_d;not null" json:"w_d"`
	WC    float64 `gorm:"column:w_c;not null" json:"w_c"`

	StopOnMastery bool `gorm:"column:stop_on_mastery;not null" json:"stop_on_mastery"`
	Normalize     bool `gorm:"column:normalize;not null" json:"normalize"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (EngineSettings) TableName() string { return "engine_settings" }
