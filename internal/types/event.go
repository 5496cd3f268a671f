package types

import (
	"time"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	EventTypePhase   = "phase"
	EventTypeAnomaly = "anomaly"
	EventTypeTopic   = "topic"
)

// Event is a detected notable moment, derived from segments during
// pipeline finalization by the keyword detectors.
type Event struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	VideoID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"video_id"`
	Type      string         `gorm:"column:type;not null;index" json:"type"` // phase|anomaly|topic
	StartSec  float64        `gorm:"column:start_sec;not null;index" json:"start_sec"`
	EndSec    float64        `gorm:"column:end_sec;not null" json:"end_sec"`
	Score     float64        `gorm:"column:score;not null;default:0" json:"score"`
	Notes     string         `gorm:"column:notes" json:"notes"`
	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Event) TableName() string { return "event" }
