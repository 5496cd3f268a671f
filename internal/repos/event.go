package repos

import (
  "context"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/yungbote/medtrain-backend/internal/logger"
  "github.com/yungbote/medtrain-backend/internal/types"
)

type EventRepo interface {
  Create(ctx context.Context, tx *gorm.DB, events []*types.Event) ([]*types.Event, error)
  GetByVideoID(ctx context.Context, tx *gorm.DB, videoID uuid.UUID) ([]*types.Event, error)
  GetByVideoIDAndType(ctx context.Context, tx *gorm.DB, videoID uuid.UUID, eventType string) ([]*types.Event, error)
  DeleteByVideoID(ctx context.Context, tx *gorm.DB, videoID uuid.UUID) error
}

type eventRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewEventRepo(db *gorm.DB, baseLog *logger.Logger) EventRepo {
  repoLog := baseLog.With("repo", "EventRepo")
  return &eventRepo{db: db, log: repoLog}
}

func (er *eventRepo) Create(ctx context.Context, tx *gorm.DB, events []*types.Event) ([]*types.Event, error) {
  transaction := tx
  if transaction == nil {
    transaction = er.db
  }

  if len(events) == 0 {
    return []*types.Event{}, nil
  }

  if err := transaction.WithContext(ctx).Create(&events).Error; err != nil {
    return nil, err
  }
  return events, nil
}

func (er *eventRepo) GetByVideoID(ctx context.Context, tx *gorm.DB, videoID uuid.UUID) ([]*types.Event, error) {
  transaction := tx
  if transaction == nil {
    transaction = er.db
  }

  var results []*types.Event
  if err := transaction.WithContext(ctx).
    Where("video_id = ?", videoID).
    Order("start_sec ASC").
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (er *eventRepo) GetByVideoIDAndType(ctx context.Context, tx *gorm.DB, videoID uuid.UUID, eventType string) ([]*types.Event, error) {
  transaction := tx
  if transaction == nil {
    transaction = er.db
  }

  var results []*types.Event
  if err := transaction.WithContext(ctx).
    Where("video_id = ? AND type = ?", videoID, eventType).
    Order("start_sec ASC").
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (er *eventRepo) DeleteByVideoID(ctx context.Context, tx *gorm.DB, videoID uuid.UUID) error {
  transaction := tx
  if transaction == nil {
    transaction = er.db
  }

  return transaction.WithContext(ctx).
    Where("video_id = ?", videoID).
    Delete(&types.Event{}).Error
}
