package repos

import (
  "context"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/yungbote/medtrain-backend/internal/logger"
  "github.com/yungbote/medtrain-backend/internal/types"
)

type ImportJobRepo interface {
  Create(ctx context.Context, tx *gorm.DB, jobs []*types.ImportJob) ([]*types.ImportJob, error)
  GetByID(ctx context.Context, tx *gorm.DB, jobID uuid.UUID) (*types.ImportJob, error)
  ListByOwner(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID, limit, offset int) ([]*types.ImportJob, error)
  UpdateFields(ctx context.Context, tx *gorm.DB, jobID uuid.UUID, fields map[string]interface{}) error
  TransitionStatus(ctx context.Context, tx *gorm.DB, jobID uuid.UUID, fromStatus, toStatus string) (bool, error)
  IncrementCounts(ctx context.Context, tx *gorm.DB, jobID uuid.UUID, processed, successful, failed int) error
  AddToTotal(ctx context.Context, tx *gorm.DB, jobID uuid.UUID, delta int) error
}

type importJobRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewImportJobRepo(db *gorm.DB, baseLog *logger.Logger) ImportJobRepo {
  repoLog := baseLog.With("repo", "ImportJobRepo")
  return &importJobRepo{db: db, log: repoLog}
}

func (ir *importJobRepo) Create(ctx context.Context, tx *gorm.DB, jobs []*types.ImportJob) ([]*types.ImportJob, error) {
  transaction := tx
  if transaction == nil {
    transaction = ir.db
  }

  if len(jobs) == 0 {
    return []*types.ImportJob{}, nil
  }

  if err := transaction.WithContext(ctx).Create(&jobs).Error; err != nil {
    return nil, err
  }
  return jobs, nil
}

func (ir *importJobRepo) GetByID(ctx context.Context, tx *gorm.DB, jobID uuid.UUID) (*types.ImportJob, error) {
  transaction := tx
  if transaction == nil {
    transaction = ir.db
  }

  var result types.ImportJob
  if err := transaction.WithContext(ctx).
    Where("id = ?", jobID).
    First(&result).Error; err != nil {
    return nil, err
  }
  return &result, nil
}

func (ir *importJobRepo) ListByOwner(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID, limit, offset int) ([]*types.ImportJob, error) {
  transaction := tx
  if transaction == nil {
    transaction = ir.db
  }

  q := transaction.WithContext(ctx).
    Where("owner_id = ?", ownerID).
    Order("created_at DESC")
  if limit > 0 {
    q = q.Limit(limit)
  }
  if offset > 0 {
    q = q.Offset(offset)
  }

  var results []*types.ImportJob
  if err := q.Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (ir *importJobRepo) UpdateFields(ctx context.Context, tx *gorm.DB, jobID uuid.UUID, fields map[string]interface{}) error {
  transaction := tx
  if transaction == nil {
    transaction = ir.db
  }

  if len(fields) == 0 {
    return nil
  }

  return transaction.WithContext(ctx).
    Model(&types.ImportJob{}).
    Where("id = ?", jobID).
    Updates(fields).Error
}

func (ir *importJobRepo) TransitionStatus(ctx context.Context, tx *gorm.DB, jobID uuid.UUID, fromStatus, toStatus string) (bool, error) {
  transaction := tx
  if transaction == nil {
    transaction = ir.db
  }

  res := transaction.WithContext(ctx).
    Model(&types.ImportJob{}).
    Where("id = ? AND status = ?", jobID, fromStatus).
    Update("status", toStatus)
  if res.Error != nil {
    return false, res.Error
  }
  return res.RowsAffected == 1, nil
}

// IncrementCounts bumps the progress counters atomically in the database so
// concurrent item workers never lose updates.
func (ir *importJobRepo) IncrementCounts(ctx context.Context, tx *gorm.DB, jobID uuid.UUID, processed, successful, failed int) error {
  transaction := tx
  if transaction == nil {
    transaction = ir.db
  }

  updates := map[string]interface{}{}
  if processed != 0 {
    updates["processed_count"] = gorm.Expr("processed_count + ?", processed)
  }
  if successful != 0 {
    updates["successful_count"] = gorm.Expr("successful_count + ?", successful)
  }
  if failed != 0 {
    updates["failed_count"] = gorm.Expr("failed_count + ?", failed)
  }
  if len(updates) == 0 {
    return nil
  }

  return transaction.WithContext(ctx).
    Model(&types.ImportJob{}).
    Where("id = ?", jobID).
    Updates(updates).Error
}

// AddToTotal adjusts total_count by delta. A negative delta removes
// filter-skipped candidates from the denominator.
func (ir *importJobRepo) AddToTotal(ctx context.Context, tx *gorm.DB, jobID uuid.UUID, delta int) error {
  transaction := tx
  if transaction == nil {
    transaction = ir.db
  }

  if delta == 0 {
    return nil
  }

  return transaction.WithContext(ctx).
    Model(&types.ImportJob{}).
    Where("id = ?", jobID).
    Update("total_count", gorm.Expr("total_count + ?", delta)).Error
}
