package db

import (
  "fmt"
  "gorm.io/driver/postgres"
  "gorm.io/gorm"
  "github.com/yungbote/medtrain-backend/internal/types"
  "github.com/yungbote/medtrain-backend/internal/utils"
  "github.com/yungbote/medtrain-backend/internal/logger"
)

type PostgresService struct {
  db *gorm.DB
  log *logger.Logger
}

func NewPostgresService(log *logger.Logger) (*PostgresService, error) {
  serviceLog := log.With("service", "PostgresService")

  log.Info("Loading environment variables...")
  postgresHost := utils.GetEnv("POSTGRES_HOST", "localhost", log)
  postgresPort := utils.GetEnv("POSTGRES_PORT", "5432", log)
  postgresUser := utils.GetEnv("POSTGRES_USER", "postgres", log)
  postgresPassword := utils.GetEnv("POSTGRES_PASSWORD", "", log)
  postgresName := utils.GetEnv("POSTGRES_NAME", "medtrain", log)
  log.Debug("Environment variables loaded")

  dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", postgresUser, postgresPassword, postgresHost, postgresPort, postgresName)

  log.Info("Connecting to Postgres...")
  db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
    DisableForeignKeyConstraintWhenMigrating: true,
  })
  if err != nil {
    log.Error("Failed to connect to Postgres", "error", err)
    return nil, fmt.Errorf("Failed to connect to Postgres: %w", err)
  }

  if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
    log.Error("Failed to enable uuid-ossp extension", "error", err)
    return nil, fmt.Errorf("Failed to enable uuid-ossp extension: %w", err)
  }
  log.Info("uuid-ossp extension enabled")

  return &PostgresService{db: db, log: serviceLog}, nil
}

func (s *PostgresService) AutoMigrateAll() error {
  s.log.Info("Auto migrating postgres tables...")
  err := s.db.AutoMigrate(
    &types.User{},
    &types.UserToken{},
    &types.Video{},
    &types.Segment{},
    &types.Event{},
    &types.ImportJob{},
    &types.Quiz{},
  )
  if err != nil {
    s.log.Error("Auto migration failed for postgres tables", "error", err)
    return err
  }
  s.log.Info("Configuring foreign key relationships for postgres tables...")
  stmts := []struct {
    name string
    sql  string
  }{
    {"fk_user_token_user_id", `
      ALTER TABLE "user_token"
      ADD CONSTRAINT "fk_user_token_user_id"
      FOREIGN KEY ("user_id")
      REFERENCES "user"("id")
      ON DELETE CASCADE
    `},
    {"fk_segment_video_id", `
      ALTER TABLE "segment"
      ADD CONSTRAINT "fk_segment_video_id"
      FOREIGN KEY ("video_id")
      REFERENCES "video"("id")
      ON DELETE CASCADE
    `},
    {"fk_event_video_id", `
      ALTER TABLE "event"
      ADD CONSTRAINT "fk_event_video_id"
      FOREIGN KEY ("video_id")
      REFERENCES "video"("id")
      ON DELETE CASCADE
    `},
    {"fk_quiz_video_id", `
      ALTER TABLE "quiz"
      ADD CONSTRAINT "fk_quiz_video_id"
      FOREIGN KEY ("video_id")
      REFERENCES "video"("id")
      ON DELETE CASCADE
    `},
  }
  for _, stmt := range stmts {
    if err := s.db.Exec(fmt.Sprintf(`
      DO $$ BEGIN
        IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = '%s') THEN
          %s;
        END IF;
      END $$;
    `, stmt.name, stmt.sql)).Error; err != nil {
      return fmt.Errorf("Failed to add %s: %w", stmt.name, err)
    }
  }
  return nil
}

func (s *PostgresService) DB() *gorm.DB {
  return s.db
}
