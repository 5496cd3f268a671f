package types

import (
	"time"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Segment is a time-coded transcript unit. Rows are append-only: they are
// created once during pipeline finalization and never edited afterwards.
// Vector stays empty until a downstream consumer populates embeddings.
type Segment struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	VideoID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"video_id"`
	StartSec   float64        `gorm:"column:start_sec;not null;index" json:"start_sec"`
	EndSec     float64        `gorm:"column:end_sec;not null" json:"end_sec"`
	Captions   datatypes.JSON `gorm:"type:jsonb;column:captions" json:"captions"`
	Vector     datatypes.JSON `gorm:"type:jsonb;column:vector" json:"vector"`
	Labels     datatypes.JSON `gorm:"type:jsonb;column:labels" json:"labels"`
	Confidence float64        `gorm:"column:confidence;not null;default:0" json:"confidence"`
	CreatedAt  time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Segment) TableName() string { return "segment" }
