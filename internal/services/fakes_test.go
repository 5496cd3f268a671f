package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/medtrain-backend/internal/logger"
	"github.com/yungbote/medtrain-backend/internal/types"
)

func testLogger(t interface{ Fatalf(string, ...any) }) *logger.Logger {
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("failed to build logger: %v", err)
	}
	return log
}

// ---- video repo ----

type fakeVideoRepo struct {
	mu     sync.Mutex
	videos map[uuid.UUID]*types.Video
}

func newFakeVideoRepo() *fakeVideoRepo {
	return &fakeVideoRepo{videos: map[uuid.UUID]*types.Video{}}
}

func (r *fakeVideoRepo) put(v *types.Video) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *v
	r.videos[v.ID] = &cp
}

func (r *fakeVideoRepo) Create(ctx context.Context, tx *gorm.DB, videos []*types.Video) ([]*types.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range videos {
		cp := *v
		r.videos[v.ID] = &cp
	}
	return videos, nil
}

func (r *fakeVideoRepo) GetByID(ctx context.Context, tx *gorm.DB, videoID uuid.UUID) (*types.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.videos[videoID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *v
	return &cp, nil
}

func (r *fakeVideoRepo) ListByOwner(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID, status string, limit, offset int) ([]*types.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.Video
	for _, v := range r.videos {
		if v.OwnerID != ownerID {
			continue
		}
		if status != "" && v.Status != status {
			continue
		}
		cp := *v
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeVideoRepo) UpdateFields(ctx context.Context, tx *gorm.DB, videoID uuid.UUID, fields map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.videos[videoID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for k, val := range fields {
		switch k {
		case "status":
			v.Status = val.(string)
		case "failure_reason":
			v.FailureReason = val.(string)
		case "external_task_id":
			v.ExternalTaskID = val.(string)
		case "external_video_id":
			v.ExternalVideoID = val.(string)
		case "tags":
			v.Tags = val.(datatypes.JSON)
		case "duration_sec":
			v.DurationSec = val.(int)
		default:
			return fmt.Errorf("fakeVideoRepo: unsupported field %q", k)
		}
	}
	return nil
}

func (r *fakeVideoRepo) TransitionStatus(ctx context.Context, tx *gorm.DB, videoID uuid.UUID, fromStatus, toStatus string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.videos[videoID]
	if !ok {
		return false, nil
	}
	if v.Status != fromStatus {
		return false, nil
	}
	v.Status = toStatus
	return true, nil
}

func (r *fakeVideoRepo) CatalogIDExists(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID, catalogID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.videos {
		if v.OwnerID == ownerID && v.CatalogID == catalogID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeVideoRepo) Search(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID, query string, limit int) ([]*types.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.Video
	q := strings.ToLower(query)
	for _, v := range r.videos {
		if v.OwnerID != ownerID || v.Status != types.VideoStatusReady {
			continue
		}
		if strings.Contains(strings.ToLower(v.Title), q) || strings.Contains(strings.ToLower(v.Description), q) {
			cp := *v
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeVideoRepo) Delete(ctx context.Context, tx *gorm.DB, videoID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.videos, videoID)
	return nil
}

// ---- segment repo ----

type fakeSegmentRepo struct {
	mu       sync.Mutex
	segments []*types.Segment
}

func (r *fakeSegmentRepo) Create(ctx context.Context, tx *gorm.DB, segments []*types.Segment) ([]*types.Segment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.segments = append(r.segments, segments...)
	return segments, nil
}

func (r *fakeSegmentRepo) GetByVideoID(ctx context.Context, tx *gorm.DB, videoID uuid.UUID) ([]*types.Segment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.Segment
	for _, s := range r.segments {
		if s.VideoID == videoID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartSec < out[j].StartSec })
	return out, nil
}

func (r *fakeSegmentRepo) CountByVideoID(ctx context.Context, tx *gorm.DB, videoID uuid.UUID) (int64, error) {
	segs, _ := r.GetByVideoID(ctx, tx, videoID)
	return int64(len(segs)), nil
}

func (r *fakeSegmentRepo) DeleteByVideoID(ctx context.Context, tx *gorm.DB, videoID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var keep []*types.Segment
	for _, s := range r.segments {
		if s.VideoID != videoID {
			keep = append(keep, s)
		}
	}
	r.segments = keep
	return nil
}

// ---- event repo ----

type fakeEventRepo struct {
	mu     sync.Mutex
	events []*types.Event
}

func (r *fakeEventRepo) Create(ctx context.Context, tx *gorm.DB, events []*types.Event) ([]*types.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
	return events, nil
}

func (r *fakeEventRepo) GetByVideoID(ctx context.Context, tx *gorm.DB, videoID uuid.UUID) ([]*types.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.Event
	for _, e := range r.events {
		if e.VideoID == videoID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartSec < out[j].StartSec })
	return out, nil
}

func (r *fakeEventRepo) GetByVideoIDAndType(ctx context.Context, tx *gorm.DB, videoID uuid.UUID, eventType string) ([]*types.Event, error) {
	all, _ := r.GetByVideoID(ctx, tx, videoID)
	var out []*types.Event
	for _, e := range all {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeEventRepo) DeleteByVideoID(ctx context.Context, tx *gorm.DB, videoID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var keep []*types.Event
	for _, e := range r.events {
		if e.VideoID != videoID {
			keep = append(keep, e)
		}
	}
	r.events = keep
	return nil
}

// ---- import job repo ----

type fakeImportJobRepo struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*types.ImportJob
}

func newFakeImportJobRepo() *fakeImportJobRepo {
	return &fakeImportJobRepo{jobs: map[uuid.UUID]*types.ImportJob{}}
}

func (r *fakeImportJobRepo) Create(ctx context.Context, tx *gorm.DB, jobs []*types.ImportJob) ([]*types.ImportJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, j := range jobs {
		cp := *j
		r.jobs[j.ID] = &cp
	}
	return jobs, nil
}

func (r *fakeImportJobRepo) GetByID(ctx context.Context, tx *gorm.DB, jobID uuid.UUID) (*types.ImportJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[jobID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *j
	return &cp, nil
}

func (r *fakeImportJobRepo) ListByOwner(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID, limit, offset int) ([]*types.ImportJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.ImportJob
	for _, j := range r.jobs {
		if j.OwnerID == ownerID {
			cp := *j
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeImportJobRepo) UpdateFields(ctx context.Context, tx *gorm.DB, jobID uuid.UUID, fields map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[jobID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for k, val := range fields {
		switch k {
		case "status":
			j.Status = val.(string)
		case "error":
			j.Error = val.(string)
		case "total_count":
			j.Counts.Total = val.(int)
		default:
			return fmt.Errorf("fakeImportJobRepo: unsupported field %q", k)
		}
	}
	return nil
}

func (r *fakeImportJobRepo) TransitionStatus(ctx context.Context, tx *gorm.DB, jobID uuid.UUID, fromStatus, toStatus string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[jobID]
	if !ok {
		return false, nil
	}
	if j.Status != fromStatus {
		return false, nil
	}
	j.Status = toStatus
	return true, nil
}

func (r *fakeImportJobRepo) IncrementCounts(ctx context.Context, tx *gorm.DB, jobID uuid.UUID, processed, successful, failed int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[jobID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	j.Counts.Processed += processed
	j.Counts.Successful += successful
	j.Counts.Failed += failed
	return nil
}

func (r *fakeImportJobRepo) AddToTotal(ctx context.Context, tx *gorm.DB, jobID uuid.UUID, delta int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[jobID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	j.Counts.Total += delta
	return nil
}

// ---- provider clients ----

type fakeIndexClient struct {
	mu            sync.Mutex
	pollStatuses  []string
	pollErrs      []error
	pollCalls     int
	createErr     error
	transcript    []TranscriptionUnit
	transcribeErr error
	searchHits    []SearchHit
}

func (c *fakeIndexClient) CreateTask(ctx context.Context, videoURL string) (*IndexTask, error) {
	if c.createErr != nil {
		return nil, c.createErr
	}
	return &IndexTask{ID: "task-1", VideoID: "pvid-1", Status: IndexTaskStatusPending}, nil
}

func (c *fakeIndexClient) GetTask(ctx context.Context, taskID string) (*IndexTask, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := c.pollCalls
	c.pollCalls++
	if idx < len(c.pollErrs) && c.pollErrs[idx] != nil {
		return nil, c.pollErrs[idx]
	}
	status := IndexTaskStatusIndexing
	if len(c.pollStatuses) > 0 {
		if idx >= len(c.pollStatuses) {
			idx = len(c.pollStatuses) - 1
		}
		status = c.pollStatuses[idx]
	}
	return &IndexTask{ID: taskID, VideoID: "pvid-1", Status: status, Message: "provider says no"}, nil
}

func (c *fakeIndexClient) GetTranscription(ctx context.Context, providerVideoID string) ([]TranscriptionUnit, error) {
	if c.transcribeErr != nil {
		return nil, c.transcribeErr
	}
	return c.transcript, nil
}

func (c *fakeIndexClient) Search(ctx context.Context, query string, providerVideoIDs []string, limit int) ([]SearchHit, error) {
	return c.searchHits, nil
}

type fakeTextGen struct {
	tags    []string
	tagsErr error
	text    string
	textErr error
}

func (g *fakeTextGen) GenerateText(ctx context.Context, prompt string) (string, error) {
	if g.textErr != nil {
		return "", g.textErr
	}
	return g.text, nil
}

func (g *fakeTextGen) GenerateTags(ctx context.Context, title, description, transcript string) ([]string, error) {
	if g.tagsErr != nil {
		return nil, g.tagsErr
	}
	return g.tags, nil
}

type fakeCatalog struct {
	searchFn  func(query string) ([]CatalogCandidate, error)
	detailsFn func(catalogID string) (*CatalogVideo, error)
}

func (c *fakeCatalog) SearchVideos(ctx context.Context, query string, maxResults int) ([]CatalogCandidate, error) {
	return c.searchFn(query)
}

func (c *fakeCatalog) GetVideoDetails(ctx context.Context, catalogID string) (*CatalogVideo, error) {
	return c.detailsFn(catalogID)
}

// ---- notifier ----

type notifierCall struct {
	kind   string
	status string
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []notifierCall
}

func (n *fakeNotifier) VideoStatusChanged(ownerID, videoID uuid.UUID, status, reason string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notifierCall{kind: "video", status: status})
}

func (n *fakeNotifier) ImportJobProgress(ownerID, jobID uuid.UUID, status string, total, processed, successful, failed int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notifierCall{kind: "import", status: status})
}
