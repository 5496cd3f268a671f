package repos

import (
  "context"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/yungbote/medtrain-backend/internal/logger"
  "github.com/yungbote/medtrain-backend/internal/types"
)

type QuizRepo interface {
  Create(ctx context.Context, tx *gorm.DB, quizzes []*types.Quiz) ([]*types.Quiz, error)
  GetByID(ctx context.Context, tx *gorm.DB, quizID uuid.UUID) (*types.Quiz, error)
  GetByVideoID(ctx context.Context, tx *gorm.DB, videoID uuid.UUID) ([]*types.Quiz, error)
}

type quizRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewQuizRepo(db *gorm.DB, baseLog *logger.Logger) QuizRepo {
  repoLog := baseLog.With("repo", "QuizRepo")
  return &quizRepo{db: db, log: repoLog}
}

func (qr *quizRepo) Create(ctx context.Context, tx *gorm.DB, quizzes []*types.Quiz) ([]*types.Quiz, error) {
  transaction := tx
  if transaction == nil {
    transaction = qr.db
  }

  if len(quizzes) == 0 {
    return []*types.Quiz{}, nil
  }

  if err := transaction.WithContext(ctx).Create(&quizzes).Error; err != nil {
    return nil, err
  }
  return quizzes, nil
}

func (qr *quizRepo) GetByID(ctx context.Context, tx *gorm.DB, quizID uuid.UUID) (*types.Quiz, error) {
  transaction := tx
  if transaction == nil {
    transaction = qr.db
  }

  var result types.Quiz
  if err := transaction.WithContext(ctx).
    Where("id = ?", quizID).
    First(&result).Error; err != nil {
    return nil, err
  }
  return &result, nil
}

func (qr *quizRepo) GetByVideoID(ctx context.Context, tx *gorm.DB, videoID uuid.UUID) ([]*types.Quiz, error) {
  transaction := tx
  if transaction == nil {
    transaction = qr.db
  }

  var results []*types.Quiz
  if err := transaction.WithContext(ctx).
    Where("video_id = ?", videoID).
    Order("created_at DESC").
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}
