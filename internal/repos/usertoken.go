package repos

import (
  "context"
  "time"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/yungbote/medtrain-backend/internal/logger"
  "github.com/yungbote/medtrain-backend/internal/types"
)

type UserTokenRepo interface {
  Create(ctx context.Context, tx *gorm.DB, tokens []*types.UserToken) ([]*types.UserToken, error)
  GetByHash(ctx context.Context, tx *gorm.DB, tokenHash string) (*types.UserToken, error)
  Revoke(ctx context.Context, tx *gorm.DB, tokenID uuid.UUID) error
  RevokeAllForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error
  DeleteExpired(ctx context.Context, tx *gorm.DB, before time.Time) (int64, error)
}

type userTokenRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewUserTokenRepo(db *gorm.DB, baseLog *logger.Logger) UserTokenRepo {
  repoLog := baseLog.With("repo", "UserTokenRepo")
  return &userTokenRepo{db: db, log: repoLog}
}

func (ur *userTokenRepo) Create(ctx context.Context, tx *gorm.DB, tokens []*types.UserToken) ([]*types.UserToken, error) {
  transaction := tx
  if transaction == nil {
    transaction = ur.db
  }

  if len(tokens) == 0 {
    return []*types.UserToken{}, nil
  }

  if err := transaction.WithContext(ctx).Create(&tokens).Error; err != nil {
    return nil, err
  }
  return tokens, nil
}

func (ur *userTokenRepo) GetByHash(ctx context.Context, tx *gorm.DB, tokenHash string) (*types.UserToken, error) {
  transaction := tx
  if transaction == nil {
    transaction = ur.db
  }

  var result types.UserToken
  if err := transaction.WithContext(ctx).
    Where("token_hash = ? AND revoked = false", tokenHash).
    First(&result).Error; err != nil {
    return nil, err
  }
  return &result, nil
}

func (ur *userTokenRepo) Revoke(ctx context.Context, tx *gorm.DB, tokenID uuid.UUID) error {
  transaction := tx
  if transaction == nil {
    transaction = ur.db
  }

  return transaction.WithContext(ctx).
    Model(&types.UserToken{}).
    Where("id = ?", tokenID).
    Update("revoked", true).Error
}

func (ur *userTokenRepo) RevokeAllForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error {
  transaction := tx
  if transaction == nil {
    transaction = ur.db
  }

  return transaction.WithContext(ctx).
    Model(&types.UserToken{}).
    Where("user_id = ? AND revoked = false", userID).
    Update("revoked", true).Error
}

func (ur *userTokenRepo) DeleteExpired(ctx context.Context, tx *gorm.DB, before time.Time) (int64, error) {
  transaction := tx
  if transaction == nil {
    transaction = ur.db
  }

  res := transaction.WithContext(ctx).
    Where("expires_at < ?", before).
    Delete(&types.UserToken{})
  if res.Error != nil {
    return 0, res.Error
  }
  return res.RowsAffected, nil
}
