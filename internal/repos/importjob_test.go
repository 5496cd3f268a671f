package repos

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/medtrain-backend/internal/types"
)

func TestImportJobRepo_Counters(t *testing.T) {
	tx := openTestDB(t)
	repo := NewImportJobRepo(tx, repoTestLogger(t))
	ctx := context.Background()

	job := &types.ImportJob{
		ID:      uuid.New(),
		OwnerID: uuid.New(),
		Status:  types.ImportJobStatusRunning,
	}
	if _, err := repo.Create(ctx, nil, []*types.ImportJob{job}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := repo.UpdateFields(ctx, nil, job.ID, map[string]interface{}{"total_count": 3}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	if err := repo.IncrementCounts(ctx, nil, job.ID, 1, 1, 0); err != nil {
		t.Fatalf("IncrementCounts: %v", err)
	}
	if err := repo.IncrementCounts(ctx, nil, job.ID, 1, 0, 1); err != nil {
		t.Fatalf("IncrementCounts: %v", err)
	}
	if err := repo.AddToTotal(ctx, nil, job.ID, -1); err != nil {
		t.Fatalf("AddToTotal: %v", err)
	}

	got, err := repo.GetByID(ctx, nil, job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Counts.Total != 2 || got.Counts.Processed != 2 || got.Counts.Successful != 1 || got.Counts.Failed != 1 {
		t.Fatalf("unexpected counts: %+v", got.Counts)
	}
	if got.Counts.Processed != got.Counts.Successful+got.Counts.Failed {
		t.Fatalf("counter invariant broken: %+v", got.Counts)
	}
}

func TestImportJobRepo_TransitionStatus(t *testing.T) {
	tx := openTestDB(t)
	repo := NewImportJobRepo(tx, repoTestLogger(t))
	ctx := context.Background()

	job := &types.ImportJob{
		ID:      uuid.New(),
		OwnerID: uuid.New(),
		Status:  types.ImportJobStatusPending,
	}
	if _, err := repo.Create(ctx, nil, []*types.ImportJob{job}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	won, err := repo.TransitionStatus(ctx, nil, job.ID, types.ImportJobStatusPending, types.ImportJobStatusRunning)
	if err != nil || !won {
		t.Fatalf("expected pending->running to win, got won=%v err=%v", won, err)
	}
	won, err = repo.TransitionStatus(ctx, nil, job.ID, types.ImportJobStatusPending, types.ImportJobStatusRunning)
	if err != nil {
		t.Fatalf("second transition errored: %v", err)
	}
	if won {
		t.Fatalf("second transition must not win")
	}
}
