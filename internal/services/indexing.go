package services

import (
  "context"
  "encoding/json"
  "errors"
  "fmt"
  "sort"
  "time"

  "github.com/google/uuid"
  "golang.org/x/sync/errgroup"
  "gorm.io/datatypes"
  "gorm.io/gorm"

  "github.com/yungbote/medtrain-backend/internal/logger"
  "github.com/yungbote/medtrain-backend/internal/repos"
  "github.com/yungbote/medtrain-backend/internal/types"
  "github.com/yungbote/medtrain-backend/internal/utils"
)

// Precondition errors returned by StartIndexing. Callers map these to
// distinct API responses.
var (
  ErrVideoNotFound       = errors.New("video not found")
  ErrAlreadyIndexing     = errors.New("video is already indexing")
  ErrAlreadyIndexed      = errors.New("video is already indexed")
  ErrIndexingFailedState = errors.New("video indexing previously failed")
)

// IndexingConfig tunes the pipeline. Defaults match production: poll the
// external task every 30s for up to 60 attempts (~30 minutes).
type IndexingConfig struct {
  PollInterval    time.Duration
  MaxPollAttempts int
  WorkerCount     int
  QueueSize       int
}

func DefaultIndexingConfig() IndexingConfig {
  return IndexingConfig{
    PollInterval:    30 * time.Second,
    MaxPollAttempts: 60,
    WorkerCount:     4,
    QueueSize:       64,
  }
}

func IndexingConfigFromEnv(log *logger.Logger) IndexingConfig {
  cfg := DefaultIndexingConfig()
  cfg.PollInterval = time.Duration(utils.GetEnvAsInt("INDEXING_POLL_INTERVAL_SECONDS", 30, log)) * time.Second
  cfg.MaxPollAttempts = utils.GetEnvAsInt("INDEXING_MAX_POLL_ATTEMPTS", 60, log)
  cfg.WorkerCount = utils.GetEnvAsInt("INDEXING_WORKER_COUNT", 4, log)
  cfg.QueueSize = utils.GetEnvAsInt("INDEXING_QUEUE_SIZE", 64, log)
  return cfg
}

// IndexingService drives a video through uploaded -> indexing -> ready or
// failed. StartIndexing claims the transition and enqueues the work; the
// pipeline body runs on background workers and never surfaces its errors
// to the caller that triggered it.
type IndexingService interface {
  StartIndexing(ctx context.Context, tx *gorm.DB, videoID uuid.UUID) error
  StartWorkers(ctx context.Context)
  Wait() error
}

type indexingService struct {
  log         *logger.Logger
  videoRepo   repos.VideoRepo
  segmentRepo repos.SegmentRepo
  eventRepo   repos.EventRepo
  indexClient VideoIndexClient
  textGen     TextGenClient
  bucket      BucketService
  notifier    Notifier
  detectorCfg DetectorConfig
  cfg         IndexingConfig

  queue     chan uuid.UUID
  group     *errgroup.Group
  workerCtx context.Context
}

func NewIndexingService(
  log *logger.Logger,
  videoRepo repos.VideoRepo,
  segmentRepo repos.SegmentRepo,
  eventRepo repos.EventRepo,
  indexClient VideoIndexClient,
  textGen TextGenClient,
  bucket BucketService,
  notifier Notifier,
  detectorCfg DetectorConfig,
  cfg IndexingConfig,
) IndexingService {
  if cfg.PollInterval <= 0 {
    cfg.PollInterval = 30 * time.Second
  }
  if cfg.MaxPollAttempts <= 0 {
    cfg.MaxPollAttempts = 60
  }
  if cfg.WorkerCount <= 0 {
    cfg.WorkerCount = 4
  }
  if cfg.QueueSize <= 0 {
    cfg.QueueSize = 64
  }
  return &indexingService{
    log:         log.With("service", "IndexingService"),
    videoRepo:   videoRepo,
    segmentRepo: segmentRepo,
    eventRepo:   eventRepo,
    indexClient: indexClient,
    textGen:     textGen,
    bucket:      bucket,
    notifier:    notifier,
    detectorCfg: detectorCfg,
    cfg:         cfg,
    queue:       make(chan uuid.UUID, cfg.QueueSize),
  }
}

// StartWorkers launches the pipeline worker pool. Call once at boot.
func (s *indexingService) StartWorkers(ctx context.Context) {
  g, gctx := errgroup.WithContext(ctx)
  s.group = g
  s.workerCtx = gctx
  for i := 0; i < s.cfg.WorkerCount; i++ {
    workerID := i
    g.Go(func() error {
      s.log.Info("Indexing worker started", "worker", workerID)
      for {
        select {
        case <-gctx.Done():
          s.log.Info("Indexing worker stopping", "worker", workerID)
          return nil
        case videoID := <-s.queue:
          s.runPipeline(gctx, videoID)
        }
      }
    })
  }
}

func (s *indexingService) Wait() error {
  if s.group == nil {
    return nil
  }
  return s.group.Wait()
}

// StartIndexing validates preconditions, atomically claims the
// uploaded -> indexing transition, and enqueues the pipeline body. It
// returns once the claim is won; pipeline failures are observed through
// the video's status, never through this call.
func (s *indexingService) StartIndexing(ctx context.Context, tx *gorm.DB, videoID uuid.UUID) error {
  video, err := s.videoRepo.GetByID(ctx, tx, videoID)
  if err != nil {
    if errors.Is(err, gorm.ErrRecordNotFound) {
      return ErrVideoNotFound
    }
    return err
  }

  switch video.Status {
  case types.VideoStatusIndexing:
    return ErrAlreadyIndexing
  case types.VideoStatusReady:
    return ErrAlreadyIndexed
  case types.VideoStatusFailed:
    return ErrIndexingFailedState
  }

  // The status check above is advisory only; the conditional update is
  // what guarantees a single winner under concurrent calls.
  claimed, err := s.videoRepo.TransitionStatus(ctx, tx, videoID, types.VideoStatusUploaded, types.VideoStatusIndexing)
  if err != nil {
    return err
  }
  if !claimed {
    return ErrAlreadyIndexing
  }

  s.notifyStatus(video.OwnerID, videoID, types.VideoStatusIndexing, "")
  s.enqueue(videoID)
  s.log.Info("Indexing claimed", "videoID", videoID)
  return nil
}

func (s *indexingService) enqueue(videoID uuid.UUID) {
  select {
  case s.queue <- videoID:
  default:
    // Queue full: run on a dedicated goroutine rather than blocking or
    // dropping the claimed video.
    ctx := s.workerCtx
    if ctx == nil {
      ctx = context.Background()
    }
    go s.runPipeline(ctx, videoID)
  }
}

// runPipeline is the body executed after a claim: submit -> poll ->
// finalize. Any error marks the video failed with a persisted reason.
func (s *indexingService) runPipeline(ctx context.Context, videoID uuid.UUID) {
  defer func() {
    if r := recover(); r != nil {
      s.log.Error("Pipeline panicked", "videoID", videoID, "panic", r)
      s.markFailed(context.Background(), videoID, uuid.Nil, fmt.Sprintf("internal error: %v", r))
    }
  }()

  video, err := s.videoRepo.GetByID(ctx, nil, videoID)
  if err != nil {
    s.log.Error("Pipeline could not load video", "videoID", videoID, "error", err)
    s.markFailed(ctx, videoID, uuid.Nil, "failed to load video record")
    return
  }

  sourceURL, err := s.resolveSourceURL(video)
  if err != nil {
    s.markFailed(ctx, videoID, video.OwnerID, fmt.Sprintf("source URL unavailable: %v", err))
    return
  }

  task, err := s.indexClient.CreateTask(ctx, sourceURL)
  if err != nil {
    s.markFailed(ctx, videoID, video.OwnerID, fmt.Sprintf("submit failed: %v", err))
    return
  }

  if err := s.videoRepo.UpdateFields(ctx, nil, videoID, map[string]interface{}{
    "external_task_id": task.ID,
  }); err != nil {
    s.markFailed(ctx, videoID, video.OwnerID, fmt.Sprintf("failed to persist task reference: %v", err))
    return
  }
  s.log.Info("External indexing task created", "videoID", videoID, "taskID", task.ID)

  finalTask, err := s.pollTask(ctx, task.ID)
  if err != nil {
    s.markFailed(ctx, videoID, video.OwnerID, err.Error())
    return
  }

  if err := s.finalize(ctx, video, finalTask); err != nil {
    s.markFailed(ctx, videoID, video.OwnerID, fmt.Sprintf("finalization failed: %v", err))
    return
  }

  if _, err := s.videoRepo.TransitionStatus(ctx, nil, videoID, types.VideoStatusIndexing, types.VideoStatusReady); err != nil {
    s.log.Error("Failed to mark video ready", "videoID", videoID, "error", err)
    return
  }
  s.notifyStatus(video.OwnerID, videoID, types.VideoStatusReady, "")
  s.log.Info("Video ready", "videoID", videoID)
}

func (s *indexingService) resolveSourceURL(video *types.Video) (string, error) {
  if video.WatchURL != "" {
    return video.WatchURL, nil
  }
  if s.bucket == nil {
    return "", fmt.Errorf("no watch URL and no bucket configured")
  }
  key := UploadObjectKey(video.ID)
  url, err := s.bucket.SignedDownloadURL(key, 4*time.Hour)
  if err != nil {
    return s.bucket.GetPublicURL(key), nil
  }
  return url, nil
}

// UploadObjectKey is where direct-upload video bytes live in the bucket.
func UploadObjectKey(videoID uuid.UUID) string {
  return "videos/" + videoID.String() + "/source"
}

// pollTask polls the external task until it reaches a terminal status or
// the attempt budget runs out. Unknown provider statuses are treated as
// still in flight; transient poll errors consume an attempt but do not
// fail the pipeline on their own.
func (s *indexingService) pollTask(ctx context.Context, taskID string) (*IndexTask, error) {
  var lastErr error
  for attempt := 1; attempt <= s.cfg.MaxPollAttempts; attempt++ {
    task, err := s.indexClient.GetTask(ctx, taskID)
    if err != nil {
      lastErr = err
      s.log.Warn("Poll attempt failed", "taskID", taskID, "attempt", attempt, "error", err)
    } else {
      switch task.Status {
      case IndexTaskStatusReady:
        return task, nil
      case IndexTaskStatusFailed:
        reason := task.Message
        if reason == "" {
          reason = "no reason given"
        }
        return nil, fmt.Errorf("external indexing failed: %s", reason)
      }
      lastErr = nil
    }

    if attempt == s.cfg.MaxPollAttempts {
      break
    }
    select {
    case <-ctx.Done():
      return nil, fmt.Errorf("indexing canceled: %v", ctx.Err())
    case <-time.After(s.cfg.PollInterval):
    }
  }

  if lastErr != nil {
    return nil, fmt.Errorf("polling failed repeatedly: %v", lastErr)
  }
  return nil, fmt.Errorf("timeout: external task did not complete within %d attempts", s.cfg.MaxPollAttempts)
}

// finalize extracts segments from the provider transcript, runs event
// detection over them in order, and merges generated tags. Tag generation
// failure is the only non-fatal step.
func (s *indexingService) finalize(ctx context.Context, video *types.Video, task *IndexTask) error {
  units, err := s.indexClient.GetTranscription(ctx, task.VideoID)
  if err != nil {
    return fmt.Errorf("transcript fetch: %w", err)
  }

  sort.Slice(units, func(i, j int) bool { return units[i].Start < units[j].Start })

  segments := make([]*types.Segment, 0, len(units))
  segTexts := make([]SegmentText, 0, len(units))
  for _, u := range units {
    if u.End <= u.Start {
      s.log.Warn("Skipping transcript unit with invalid interval", "videoID", video.ID, "start", u.Start, "end", u.End)
      continue
    }
    confidence := u.Confidence
    if confidence <= 0 {
      confidence = 0.8
    }
    captions, _ := json.Marshal([]string{u.Value})
    segments = append(segments, &types.Segment{
      ID:         uuid.New(),
      VideoID:    video.ID,
      StartSec:   u.Start,
      EndSec:     u.End,
      Captions:   datatypes.JSON(captions),
      Vector:     datatypes.JSON([]byte(`[]`)),
      Labels:     datatypes.JSON([]byte(`[]`)),
      Confidence: confidence,
    })
    segTexts = append(segTexts, SegmentText{StartSec: u.Start, EndSec: u.End, Text: u.Value})
  }

  if _, err := s.segmentRepo.Create(ctx, nil, segments); err != nil {
    return fmt.Errorf("segment creation: %w", err)
  }

  detected := DetectEvents(s.detectorCfg, segTexts)
  events := make([]*types.Event, 0, len(detected))
  for _, d := range detected {
    events = append(events, &types.Event{
      ID:       uuid.New(),
      VideoID:  video.ID,
      Type:     d.Type,
      StartSec: d.StartSec,
      EndSec:   d.EndSec,
      Score:    d.Score,
      Notes:    d.Notes,
    })
  }
  if _, err := s.eventRepo.Create(ctx, nil, events); err != nil {
    return fmt.Errorf("event creation: %w", err)
  }

  if err := s.videoRepo.UpdateFields(ctx, nil, video.ID, map[string]interface{}{
    "external_video_id": task.VideoID,
  }); err != nil {
    return fmt.Errorf("video update: %w", err)
  }

  if len(segTexts) > 0 && s.textGen != nil {
    s.generateAndMergeTags(ctx, video, segTexts)
  }

  return nil
}

// generateAndMergeTags is best-effort: a text-generation failure logs and
// returns, leaving the video on track for ready.
func (s *indexingService) generateAndMergeTags(ctx context.Context, video *types.Video, segTexts []SegmentText) {
  sample := segTexts
  if len(sample) > 5 {
    sample = sample[:5]
  }
  var transcript string
  for _, st := range sample {
    transcript += st.Text + " "
  }

  tags, err := s.textGen.GenerateTags(ctx, video.Title, video.Description, transcript)
  if err != nil {
    s.log.Warn("Tag generation failed; continuing without tags", "videoID", video.ID, "error", err)
    return
  }
  if len(tags) == 0 {
    return
  }

  merged := MergeTags(video.Tags, tags)
  raw, err := json.Marshal(merged)
  if err != nil {
    s.log.Warn("Failed to marshal merged tags", "videoID", video.ID, "error", err)
    return
  }
  if err := s.videoRepo.UpdateFields(ctx, nil, video.ID, map[string]interface{}{
    "tags": datatypes.JSON(raw),
  }); err != nil {
    s.log.Warn("Failed to persist merged tags", "videoID", video.ID, "error", err)
  }
}

// MergeTags unions newTags into the existing JSON tag array, preserving
// existing order and deduplicating case-sensitively.
func MergeTags(existing datatypes.JSON, newTags []string) []string {
  var current []string
  if len(existing) > 0 {
    _ = json.Unmarshal(existing, &current)
  }

  seen := make(map[string]bool, len(current)+len(newTags))
  merged := make([]string, 0, len(current)+len(newTags))
  for _, t := range current {
    if !seen[t] {
      seen[t] = true
      merged = append(merged, t)
    }
  }
  for _, t := range newTags {
    if !seen[t] {
      seen[t] = true
      merged = append(merged, t)
    }
  }
  return merged
}

// markFailed moves an indexing video to failed and persists the reason so
// diagnosis never depends on log retention.
func (s *indexingService) markFailed(ctx context.Context, videoID uuid.UUID, ownerID uuid.UUID, reason string) {
  if _, err := s.videoRepo.TransitionStatus(ctx, nil, videoID, types.VideoStatusIndexing, types.VideoStatusFailed); err != nil {
    s.log.Error("Failed to mark video failed", "videoID", videoID, "error", err)
    return
  }
  if err := s.videoRepo.UpdateFields(ctx, nil, videoID, map[string]interface{}{
    "failure_reason": reason,
  }); err != nil {
    s.log.Error("Failed to persist failure reason", "videoID", videoID, "error", err)
  }
  s.notifyStatus(ownerID, videoID, types.VideoStatusFailed, reason)
  s.log.Warn("Video indexing failed", "videoID", videoID, "reason", reason)
}

func (s *indexingService) notifyStatus(ownerID, videoID uuid.UUID, status, reason string) {
  if s.notifier == nil || ownerID == uuid.Nil {
    return
  }
  s.notifier.VideoStatusChanged(ownerID, videoID, status, reason)
}
