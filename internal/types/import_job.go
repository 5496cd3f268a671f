package types

import (
	"time"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ImportJobStatusPending   = "pending"
	ImportJobStatusRunning   = "running"
	ImportJobStatusCompleted = "completed"
	ImportJobStatusFailed    = "failed"
)

// ImportCounts track bulk-import progress. Invariants maintained by the
// importer: processed = successful + failed, processed <= total, and
// processed == total once the job completes (filter-skipped candidates are
// removed from total rather than counted as failures).
type ImportCounts struct {
	Total      int `gorm:"column:total_count;not null;default:0" json:"total"`
	Processed  int `gorm:"column:processed_count;not null;default:0" json:"processed"`
	Successful int `gorm:"column:successful_count;not null;default:0" json:"successful"`
	Failed     int `gorm:"column:failed_count;not null;default:0" json:"failed"`
}

type ImportJob struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"owner_id"`
	Queries   datatypes.JSON `gorm:"type:jsonb;column:queries" json:"queries"`
	Filters   datatypes.JSON `gorm:"type:jsonb;column:filters" json:"filters"`
	Tags      datatypes.JSON `gorm:"type:jsonb;column:tags" json:"tags"`
	Status    string         `gorm:"column:status;not null;index" json:"status"` // pending|running|completed|failed
	Error     string         `gorm:"column:error" json:"error,omitempty"`
	Counts    ImportCounts   `gorm:"embedded" json:"counts"`
	CreatedAt time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now();index" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (ImportJob) TableName() string { return "import_job" }
