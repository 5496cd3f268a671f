package repos

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/medtrain-backend/internal/types"
)

func seedTestVideo(t *testing.T, repo VideoRepo, status string) *types.Video {
	t.Helper()
	v := &types.Video{
		ID:      uuid.New(),
		OwnerID: uuid.New(),
		Source:  types.VideoSourceUpload,
		Title:   "Suturing fundamentals",
		Track:   "healthcare",
		Status:  status,
	}
	if _, err := repo.Create(context.Background(), nil, []*types.Video{v}); err != nil {
		t.Fatalf("failed to create video: %v", err)
	}
	return v
}

func TestVideoRepo_TransitionStatus_SingleWinner(t *testing.T) {
	tx := openTestDB(t)
	repo := NewVideoRepo(tx, repoTestLogger(t))
	ctx := context.Background()

	v := seedTestVideo(t, repo, types.VideoStatusUploaded)

	won, err := repo.TransitionStatus(ctx, nil, v.ID, types.VideoStatusUploaded, types.VideoStatusIndexing)
	if err != nil {
		t.Fatalf("first transition errored: %v", err)
	}
	if !won {
		t.Fatalf("first transition should win")
	}

	// Second attempt sees the row already out of uploaded and must lose
	// without error.
	won, err = repo.TransitionStatus(ctx, nil, v.ID, types.VideoStatusUploaded, types.VideoStatusIndexing)
	if err != nil {
		t.Fatalf("second transition errored: %v", err)
	}
	if won {
		t.Fatalf("second transition must not win")
	}

	got, err := repo.GetByID(ctx, nil, v.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != types.VideoStatusIndexing {
		t.Fatalf("expected indexing, got %q", got.Status)
	}
}

func TestVideoRepo_TransitionStatus_WrongFromState(t *testing.T) {
	tx := openTestDB(t)
	repo := NewVideoRepo(tx, repoTestLogger(t))
	ctx := context.Background()

	v := seedTestVideo(t, repo, types.VideoStatusReady)

	won, err := repo.TransitionStatus(ctx, nil, v.ID, types.VideoStatusUploaded, types.VideoStatusIndexing)
	if err != nil {
		t.Fatalf("transition errored: %v", err)
	}
	if won {
		t.Fatalf("transition from wrong state must not win")
	}
}

func TestVideoRepo_UpdateFields_FailureReason(t *testing.T) {
	tx := openTestDB(t)
	repo := NewVideoRepo(tx, repoTestLogger(t))
	ctx := context.Background()

	v := seedTestVideo(t, repo, types.VideoStatusFailed)
	if err := repo.UpdateFields(ctx, nil, v.ID, map[string]interface{}{
		"failure_reason": "timeout: external task did not complete within 60 attempts",
	}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}

	got, err := repo.GetByID(ctx, nil, v.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.FailureReason == "" {
		t.Fatalf("failure reason not persisted")
	}
}

func TestVideoRepo_CatalogIDExists(t *testing.T) {
	tx := openTestDB(t)
	repo := NewVideoRepo(tx, repoTestLogger(t))
	ctx := context.Background()

	v := seedTestVideo(t, repo, types.VideoStatusUploaded)
	if err := repo.UpdateFields(ctx, nil, v.ID, map[string]interface{}{"catalog_id": "yt-abc"}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}

	exists, err := repo.CatalogIDExists(ctx, nil, v.OwnerID, "yt-abc")
	if err != nil {
		t.Fatalf("CatalogIDExists: %v", err)
	}
	if !exists {
		t.Fatalf("expected catalog id to exist")
	}

	exists, err = repo.CatalogIDExists(ctx, nil, uuid.New(), "yt-abc")
	if err != nil {
		t.Fatalf("CatalogIDExists: %v", err)
	}
	if exists {
		t.Fatalf("catalog id must be scoped per owner")
	}
}
