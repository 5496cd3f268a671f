package repos

import (
	"os"
	"testing"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/yungbote/medtrain-backend/internal/logger"
	"github.com/yungbote/medtrain-backend/internal/types"
)

// openTestDB connects to the database named by TEST_POSTGRES_DSN and hands
// the test a transaction that is rolled back on cleanup, so tests never
// leak rows into each other. Tests are skipped when the DSN is unset.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set; skipping repo integration test")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		t.Fatalf("failed to connect to test postgres: %v", err)
	}

	if err := db.AutoMigrate(
		&types.User{},
		&types.UserToken{},
		&types.Video{},
		&types.Segment{},
		&types.Event{},
		&types.ImportJob{},
		&types.Quiz{},
	); err != nil {
		t.Fatalf("auto migration failed: %v", err)
	}

	tx := db.Begin()
	if tx.Error != nil {
		t.Fatalf("failed to begin test transaction: %v", tx.Error)
	}
	t.Cleanup(func() { tx.Rollback() })
	return tx
}

func repoTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("failed to build logger: %v", err)
	}
	return log
}
