package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/medtrain-backend/internal/types"
)

type importFixture struct {
	svc     ImportService
	jobs    *fakeImportJobRepo
	videos  *fakeVideoRepo
	catalog *fakeCatalog
}

func newImportFixture(t *testing.T, catalog *fakeCatalog, cfg ImporterConfig) *importFixture {
	t.Helper()
	jobs := newFakeImportJobRepo()
	videos := newFakeVideoRepo()

	client := &fakeIndexClient{pollStatuses: []string{IndexTaskStatusReady}}
	indexing := NewIndexingService(
		testLogger(t),
		videos,
		&fakeSegmentRepo{},
		&fakeEventRepo{},
		client,
		nil,
		nil,
		nil,
		DefaultDetectorConfig(),
		fastConfig(),
	)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	indexing.StartWorkers(ctx)

	svc := NewImportService(testLogger(t), jobs, videos, catalog, indexing, &fakeNotifier{}, cfg)
	return &importFixture{svc: svc, jobs: jobs, videos: videos, catalog: catalog}
}

func goodDetails(catalogID string) (*CatalogVideo, error) {
	return &CatalogVideo{
		CatalogID:   catalogID,
		Title:       "Knee replacement surgery, step by step",
		Description: "Full surgical procedure recording for trainees",
		WatchURL:    "https://www.youtube.com/watch?v=" + catalogID,
		DurationSec: 900,
	}, nil
}

func waitForJobStatus(t *testing.T, repo *fakeImportJobRepo, jobID uuid.UUID, want string) *types.ImportJob {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		j, err := repo.GetByID(context.Background(), nil, jobID)
		if err != nil {
			t.Fatalf("job vanished: %v", err)
		}
		if j.Status == want {
			return j
		}
		time.Sleep(2 * time.Millisecond)
	}
	j, _ := repo.GetByID(context.Background(), nil, jobID)
	t.Fatalf("job never reached %q; last status %q counts %+v", want, j.Status, j.Counts)
	return nil
}

func assertCounterInvariants(t *testing.T, j *types.ImportJob) {
	t.Helper()
	if j.Counts.Processed != j.Counts.Successful+j.Counts.Failed {
		t.Fatalf("processed != successful+failed: %+v", j.Counts)
	}
	if j.Counts.Processed > j.Counts.Total {
		t.Fatalf("processed > total: %+v", j.Counts)
	}
	if j.Status == types.ImportJobStatusCompleted && j.Counts.Processed != j.Counts.Total {
		t.Fatalf("completed job must have processed == total: %+v", j.Counts)
	}
}

func TestCreateImportJob_RequiresQueries(t *testing.T) {
	f := newImportFixture(t, &fakeCatalog{}, ImporterConfig{})
	_, err := f.svc.CreateImportJob(context.Background(), nil, uuid.New(), CreateImportParams{
		Queries: []string{"", "   "},
	})
	if !errors.Is(err, ErrNoQueries) {
		t.Fatalf("expected ErrNoQueries, got %v", err)
	}
}

func TestCreateImportJob_NoCatalogClientIsCleanError(t *testing.T) {
	svc := NewImportService(testLogger(t), newFakeImportJobRepo(), newFakeVideoRepo(), nil, nil, &fakeNotifier{}, ImporterConfig{})
	_, err := svc.CreateImportJob(context.Background(), nil, uuid.New(), CreateImportParams{
		Queries: []string{"knee surgery"},
	})
	if !errors.Is(err, ErrImportsDisabled) {
		t.Fatalf("expected ErrImportsDisabled, got %v", err)
	}
}

func TestImportJob_OneQueryFailsOtherSucceeds(t *testing.T) {
	catalog := &fakeCatalog{
		searchFn: func(query string) ([]CatalogCandidate, error) {
			if query == "broken" {
				return nil, fmt.Errorf("quota exceeded")
			}
			return []CatalogCandidate{{CatalogID: "vid-1", Title: "Knee surgery"}}, nil
		},
		detailsFn: goodDetails,
	}
	f := newImportFixture(t, catalog, ImporterConfig{})

	job, err := f.svc.CreateImportJob(context.Background(), nil, uuid.New(), CreateImportParams{
		Queries: []string{"broken", "knee surgery"},
	})
	if err != nil {
		t.Fatalf("CreateImportJob: %v", err)
	}

	final := waitForJobStatus(t, f.jobs, job.ID, types.ImportJobStatusCompleted)
	if final.Counts.Total != 1 || final.Counts.Successful != 1 || final.Counts.Failed != 0 {
		t.Fatalf("unexpected counts: %+v", final.Counts)
	}
	assertCounterInvariants(t, final)

	videos, _ := f.videos.ListByOwner(context.Background(), nil, job.OwnerID, "", 0, 0)
	if len(videos) != 1 {
		t.Fatalf("expected 1 imported video, got %d", len(videos))
	}
	if videos[0].Source != types.VideoSourceCatalog || videos[0].CatalogID != "vid-1" {
		t.Fatalf("imported video not linked to catalog: %+v", videos[0])
	}
}

func TestImportJob_DurationFilterIsSilentSkip(t *testing.T) {
	catalog := &fakeCatalog{
		searchFn: func(query string) ([]CatalogCandidate, error) {
			return []CatalogCandidate{{CatalogID: "short-1", Title: "Quick clip"}}, nil
		},
		detailsFn: func(catalogID string) (*CatalogVideo, error) {
			return &CatalogVideo{CatalogID: catalogID, Title: "Quick surgical clip", DurationSec: 60}, nil
		},
	}
	f := newImportFixture(t, catalog, ImporterConfig{})

	job, err := f.svc.CreateImportJob(context.Background(), nil, uuid.New(), CreateImportParams{
		Queries: []string{"clips"},
	})
	if err != nil {
		t.Fatalf("CreateImportJob: %v", err)
	}

	final := waitForJobStatus(t, f.jobs, job.ID, types.ImportJobStatusCompleted)
	if final.Counts.Total != 0 || final.Counts.Processed != 0 || final.Counts.Failed != 0 {
		t.Fatalf("skip must not touch processed/failed and must leave total: %+v", final.Counts)
	}
	assertCounterInvariants(t, final)

	videos, _ := f.videos.ListByOwner(context.Background(), nil, job.OwnerID, "", 0, 0)
	if len(videos) != 0 {
		t.Fatalf("skipped candidate must not create a video, got %d", len(videos))
	}
}

func TestImportJob_DetailsFetchErrorCountsAsFailed(t *testing.T) {
	catalog := &fakeCatalog{
		searchFn: func(query string) ([]CatalogCandidate, error) {
			return []CatalogCandidate{{CatalogID: "gone-1", Title: "Deleted video"}}, nil
		},
		detailsFn: func(catalogID string) (*CatalogVideo, error) {
			return nil, fmt.Errorf("video not found")
		},
	}
	f := newImportFixture(t, catalog, ImporterConfig{})

	job, err := f.svc.CreateImportJob(context.Background(), nil, uuid.New(), CreateImportParams{
		Queries: []string{"anything"},
	})
	if err != nil {
		t.Fatalf("CreateImportJob: %v", err)
	}

	final := waitForJobStatus(t, f.jobs, job.ID, types.ImportJobStatusCompleted)
	if final.Counts.Total != 1 || final.Counts.Processed != 1 || final.Counts.Failed != 1 || final.Counts.Successful != 0 {
		t.Fatalf("unexpected counts: %+v", final.Counts)
	}
	assertCounterInvariants(t, final)
}

func TestImportJob_MixedOutcomes(t *testing.T) {
	catalog := &fakeCatalog{
		searchFn: func(query string) ([]CatalogCandidate, error) {
			return []CatalogCandidate{
				{CatalogID: "ok-1"},
				{CatalogID: "gone-1"},
				{CatalogID: "short-1"},
			}, nil
		},
		detailsFn: func(catalogID string) (*CatalogVideo, error) {
			switch catalogID {
			case "ok-1":
				return goodDetails(catalogID)
			case "short-1":
				return &CatalogVideo{CatalogID: catalogID, Title: "Surgical short", DurationSec: 45}, nil
			default:
				return nil, fmt.Errorf("unavailable")
			}
		},
	}
	f := newImportFixture(t, catalog, ImporterConfig{})

	job, err := f.svc.CreateImportJob(context.Background(), nil, uuid.New(), CreateImportParams{
		Queries: []string{"mixed"},
	})
	if err != nil {
		t.Fatalf("CreateImportJob: %v", err)
	}

	final := waitForJobStatus(t, f.jobs, job.ID, types.ImportJobStatusCompleted)
	if final.Counts.Total != 2 || final.Counts.Processed != 2 || final.Counts.Successful != 1 || final.Counts.Failed != 1 {
		t.Fatalf("unexpected counts: %+v", final.Counts)
	}
	assertCounterInvariants(t, final)
}

func TestImportJob_DedupeAcrossQueries(t *testing.T) {
	catalog := &fakeCatalog{
		searchFn: func(query string) ([]CatalogCandidate, error) {
			return []CatalogCandidate{{CatalogID: "dup-1", Title: "Same video"}}, nil
		},
		detailsFn: goodDetails,
	}
	f := newImportFixture(t, catalog, ImporterConfig{DedupeCatalogIDs: true})

	job, err := f.svc.CreateImportJob(context.Background(), nil, uuid.New(), CreateImportParams{
		Queries: []string{"query one", "query two"},
	})
	if err != nil {
		t.Fatalf("CreateImportJob: %v", err)
	}

	final := waitForJobStatus(t, f.jobs, job.ID, types.ImportJobStatusCompleted)
	if final.Counts.Total != 1 || final.Counts.Successful != 1 {
		t.Fatalf("duplicate candidate should import once: %+v", final.Counts)
	}
}

func TestImportJob_MedicalGate(t *testing.T) {
	catalog := &fakeCatalog{
		searchFn: func(query string) ([]CatalogCandidate, error) {
			return []CatalogCandidate{{CatalogID: "game-1"}, {CatalogID: "med-1"}}, nil
		},
		detailsFn: func(catalogID string) (*CatalogVideo, error) {
			if catalogID == "game-1" {
				return &CatalogVideo{CatalogID: catalogID, Title: "Surgeon simulator gameplay", DurationSec: 900}, nil
			}
			return goodDetails(catalogID)
		},
	}
	f := newImportFixture(t, catalog, ImporterConfig{})

	job, err := f.svc.CreateImportJob(context.Background(), nil, uuid.New(), CreateImportParams{
		Queries: []string{"surgery"},
		Filters: ImportFilters{MedicalOnly: true},
	})
	if err != nil {
		t.Fatalf("CreateImportJob: %v", err)
	}

	final := waitForJobStatus(t, f.jobs, job.ID, types.ImportJobStatusCompleted)
	if final.Counts.Total != 1 || final.Counts.Successful != 1 || final.Counts.Failed != 0 {
		t.Fatalf("gameplay video should be silently skipped: %+v", final.Counts)
	}
}

func TestIsMedicalContent(t *testing.T) {
	if !IsMedicalContent("Knee surgery basics", "") {
		t.Fatalf("expected surgical title to pass the gate")
	}
	if IsMedicalContent("Surgeon simulator gameplay", "fun run") {
		t.Fatalf("gameplay should be rejected even with a medical keyword")
	}
	if IsMedicalContent("Cooking pasta", "italian dinner") {
		t.Fatalf("non-medical content should be rejected")
	}
}

func TestInferDifficulty(t *testing.T) {
	if got := InferDifficulty("Advanced laparoscopic techniques", ""); got != "advanced" {
		t.Fatalf("expected advanced, got %q", got)
	}
	if got := InferDifficulty("Introduction to suturing", ""); got != "beginner" {
		t.Fatalf("expected beginner, got %q", got)
	}
	if got := InferDifficulty("Appendectomy walkthrough", ""); got != "intermediate" {
		t.Fatalf("expected intermediate, got %q", got)
	}
}
