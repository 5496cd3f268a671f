package repos

import (
  "context"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/yungbote/medtrain-backend/internal/logger"
  "github.com/yungbote/medtrain-backend/internal/types"
)

type VideoRepo interface {
  Create(ctx context.Context, tx *gorm.DB, videos []*types.Video) ([]*types.Video, error)
  GetByID(ctx context.Context, tx *gorm.DB, videoID uuid.UUID) (*types.Video, error)
  ListByOwner(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID, status string, limit, offset int) ([]*types.Video, error)
  UpdateFields(ctx context.Context, tx *gorm.DB, videoID uuid.UUID, fields map[string]interface{}) error
  TransitionStatus(ctx context.Context, tx *gorm.DB, videoID uuid.UUID, fromStatus, toStatus string) (bool, error)
  CatalogIDExists(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID, catalogID string) (bool, error)
  Search(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID, query string, limit int) ([]*types.Video, error)
  Delete(ctx context.Context, tx *gorm.DB, videoID uuid.UUID) error
}

type videoRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewVideoRepo(db *gorm.DB, baseLog *logger.Logger) VideoRepo {
  repoLog := baseLog.With("repo", "VideoRepo")
  return &videoRepo{db: db, log: repoLog}
}

func (vr *videoRepo) Create(ctx context.Context, tx *gorm.DB, videos []*types.Video) ([]*types.Video, error) {
  transaction := tx
  if transaction == nil {
    transaction = vr.db
  }

  if len(videos) == 0 {
    return []*types.Video{}, nil
  }

  if err := transaction.WithContext(ctx).Create(&videos).Error; err != nil {
    return nil, err
  }
  return videos, nil
}

func (vr *videoRepo) GetByID(ctx context.Context, tx *gorm.DB, videoID uuid.UUID) (*types.Video, error) {
  transaction := tx
  if transaction == nil {
    transaction = vr.db
  }

  var result types.Video
  if err := transaction.WithContext(ctx).
    Where("id = ?", videoID).
    First(&result).Error; err != nil {
    return nil, err
  }
  return &result, nil
}

func (vr *videoRepo) ListByOwner(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID, status string, limit, offset int) ([]*types.Video, error) {
  transaction := tx
  if transaction == nil {
    transaction = vr.db
  }

  q := transaction.WithContext(ctx).
    Where("owner_id = ?", ownerID).
    Order("created_at DESC")
  if status != "" {
    q = q.Where("status = ?", status)
  }
  if limit > 0 {
    q = q.Limit(limit)
  }
  if offset > 0 {
    q = q.Offset(offset)
  }

  var results []*types.Video
  if err := q.Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (vr *videoRepo) UpdateFields(ctx context.Context, tx *gorm.DB, videoID uuid.UUID, fields map[string]interface{}) error {
  transaction := tx
  if transaction == nil {
    transaction = vr.db
  }

  if len(fields) == 0 {
    return nil
  }

  return transaction.WithContext(ctx).
    Model(&types.Video{}).
    Where("id = ?", videoID).
    Updates(fields).Error
}

// TransitionStatus moves a video from one status to another as a single
// conditional UPDATE. Returns true only when this call won the transition;
// a false result means the row was not in fromStatus anymore.
func (vr *videoRepo) TransitionStatus(ctx context.Context, tx *gorm.DB, videoID uuid.UUID, fromStatus, toStatus string) (bool, error) {
  transaction := tx
  if transaction == nil {
    transaction = vr.db
  }

  res := transaction.WithContext(ctx).
    Model(&types.Video{}).
    Where("id = ? AND status = ?", videoID, fromStatus).
    Update("status", toStatus)
  if res.Error != nil {
    return false, res.Error
  }
  return res.RowsAffected == 1, nil
}

func (vr *videoRepo) CatalogIDExists(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID, catalogID string) (bool, error) {
  transaction := tx
  if transaction == nil {
    transaction = vr.db
  }

  var count int64
  if err := transaction.WithContext(ctx).
    Model(&types.Video{}).
    Where("owner_id = ? AND catalog_id = ?", ownerID, catalogID).
    Count(&count).Error; err != nil {
    return false, err
  }
  return count > 0, nil
}

func (vr *videoRepo) Search(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID, query string, limit int) ([]*types.Video, error) {
  transaction := tx
  if transaction == nil {
    transaction = vr.db
  }

  if limit <= 0 {
    limit = 20
  }

  pattern := "%" + query + "%"
  var results []*types.Video
  if err := transaction.WithContext(ctx).
    Where("owner_id = ? AND status = ?", ownerID, types.VideoStatusReady).
    Where("title ILIKE ? OR description ILIKE ?", pattern, pattern).
    Order("created_at DESC").
    Limit(limit).
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (vr *videoRepo) Delete(ctx context.Context, tx *gorm.DB, videoID uuid.UUID) error {
  transaction := tx
  if transaction == nil {
    transaction = vr.db
  }

  return transaction.WithContext(ctx).
    Where("id = ?", videoID).
    Delete(&types.Video{}).Error
}
