package types

import (
	"time"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Video lifecycle statuses. Indexing is driven exclusively by the
// IndexingService; ready and failed are terminal.
const (
	VideoStatusUploaded = "uploaded"
	VideoStatusIndexing = "indexing"
	VideoStatusReady    = "ready"
	VideoStatusFailed   = "failed"
)

const (
	VideoSourceUpload  = "upload"
	VideoSourceCatalog = "external-catalog"
	VideoSourceDirect  = "direct-url"
)

type Video struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID        uuid.UUID      `gorm:"type:uuid;not null;index" json:"owner_id"`
	Source         string         `gorm:"column:source;not null" json:"source"` // upload|external-catalog|direct-url
	CatalogID      string         `gorm:"column:catalog_id;index" json:"catalog_id,omitempty"`
	Title          string         `gorm:"column:title;not null" json:"title"`
	Description    string         `gorm:"column:description" json:"description"`
	WatchURL       string         `gorm:"column:watch_url" json:"watch_url,omitempty"`
	ThumbnailURL   string         `gorm:"column:thumbnail_url" json:"thumbnail_url,omitempty"`
	Track          string         `gorm:"column:track;not null;default:'healthcare'" json:"track"`
	Status         string         `gorm:"column:status;not null;index" json:"status"` // uploaded|indexing|ready|failed
	FailureReason  string         `gorm:"column:failure_reason" json:"failure_reason,omitempty"`
	ExternalTaskID  string        `gorm:"column:external_task_id" json:"external_task_id,omitempty"`
	ExternalVideoID string        `gorm:"column:external_video_id" json:"external_video_id,omitempty"`
	DurationSec    int            `gorm:"column:duration_sec" json:"duration_sec,omitempty"`
	Tags           datatypes.JSON `gorm:"type:jsonb;column:tags" json:"tags"`
	CreatedAt      time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null;default:now();index" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Video) TableName() string { return "video" }
