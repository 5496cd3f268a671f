package repos

import (
  "context"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/yungbote/medtrain-backend/internal/logger"
  "github.com/yungbote/medtrain-backend/internal/types"
)

type SegmentRepo interface {
  Create(ctx context.Context, tx *gorm.DB, segments []*types.Segment) ([]*types.Segment, error)
  GetByVideoID(ctx context.Context, tx *gorm.DB, videoID uuid.UUID) ([]*types.Segment, error)
  CountByVideoID(ctx context.Context, tx *gorm.DB, videoID uuid.UUID) (int64, error)
  DeleteByVideoID(ctx context.Context, tx *gorm.DB, videoID uuid.UUID) error
}

type segmentRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewSegmentRepo(db *gorm.DB, baseLog *logger.Logger) SegmentRepo {
  repoLog := baseLog.With("repo", "SegmentRepo")
  return &segmentRepo{db: db, log: repoLog}
}

func (sr *segmentRepo) Create(ctx context.Context, tx *gorm.DB, segments []*types.Segment) ([]*types.Segment, error) {
  transaction := tx
  if transaction == nil {
    transaction = sr.db
  }

  if len(segments) == 0 {
    return []*types.Segment{}, nil
  }

  if err := transaction.WithContext(ctx).Create(&segments).Error; err != nil {
    return nil, err
  }
  return segments, nil
}

// GetByVideoID returns segments ordered by start time ascending. Callers
// rely on this ordering for transcript assembly and event detection.
func (sr *segmentRepo) GetByVideoID(ctx context.Context, tx *gorm.DB, videoID uuid.UUID) ([]*types.Segment, error) {
  transaction := tx
  if transaction == nil {
    transaction = sr.db
  }

  var results []*types.Segment
  if err := transaction.WithContext(ctx).
    Where("video_id = ?", videoID).
    Order("start_sec ASC").
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (sr *segmentRepo) CountByVideoID(ctx context.Context, tx *gorm.DB, videoID uuid.UUID) (int64, error) {
  transaction := tx
  if transaction == nil {
    transaction = sr.db
  }

  var count int64
  if err := transaction.WithContext(ctx).
    Model(&types.Segment{}).
    Where("video_id = ?", videoID).
    Count(&count).Error; err != nil {
    return 0, err
  }
  return count, nil
}

func (sr *segmentRepo) DeleteByVideoID(ctx context.Context, tx *gorm.DB, videoID uuid.UUID) error {
  transaction := tx
  if transaction == nil {
    transaction = sr.db
  }

  return transaction.WithContext(ctx).
    Where("video_id = ?", videoID).
    Delete(&types.Segment{}).Error
}
