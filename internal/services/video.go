package services

import (
  "context"
  "encoding/json"
  "errors"
  "fmt"
  "strings"
  "time"

  "github.com/google/uuid"
  "gorm.io/datatypes"
  "gorm.io/gorm"

  "github.com/yungbote/medtrain-backend/internal/logger"
  "github.com/yungbote/medtrain-backend/internal/repos"
  "github.com/yungbote/medtrain-backend/internal/types"
)

var ErrVideoNotReady = errors.New("video is not ready")

type CreateVideoParams struct {
  Title       string
  Description string
  Track       string
  Source      string
  WatchURL    string
  ContentType string
  Tags        []string
}

// VideoDetail is the read model for a single video: the record plus its
// derived segments and events.
type VideoDetail struct {
  Video    *types.Video     `json:"video"`
  Segments []*types.Segment `json:"segments"`
  Events   []*types.Event   `json:"events"`
}

type SegmentSearchResult struct {
  VideoID  uuid.UUID `json:"video_id"`
  StartSec float64   `json:"start_sec"`
  EndSec   float64   `json:"end_sec"`
  Score    float64   `json:"score"`
  Text     string    `json:"text,omitempty"`
}

type VideoService interface {
  CreateVideo(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID, params CreateVideoParams) (*types.Video, string, error)
  GetVideo(ctx context.Context, tx *gorm.DB, videoID uuid.UUID) (*VideoDetail, error)
  ListVideos(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID, status string, limit, offset int) ([]*types.Video, error)
  ListEvents(ctx context.Context, tx *gorm.DB, videoID uuid.UUID, eventType string) ([]*types.Event, error)
  SearchSegments(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID, query string, limit int) ([]SegmentSearchResult, error)
  DeleteVideo(ctx context.Context, tx *gorm.DB, videoID uuid.UUID) error
}

type videoService struct {
  log         *logger.Logger
  videoRepo   repos.VideoRepo
  segmentRepo repos.SegmentRepo
  eventRepo   repos.EventRepo
  indexClient VideoIndexClient
  bucket      BucketService
}

func NewVideoService(
  log *logger.Logger,
  videoRepo repos.VideoRepo,
  segmentRepo repos.SegmentRepo,
  eventRepo repos.EventRepo,
  indexClient VideoIndexClient,
  bucket BucketService,
) VideoService {
  return &videoService{
    log:         log.With("service", "VideoService"),
    videoRepo:   videoRepo,
    segmentRepo: segmentRepo,
    eventRepo:   eventRepo,
    indexClient: indexClient,
    bucket:      bucket,
  }
}

// CreateVideo persists a new record in uploaded state. For direct uploads
// it also returns a signed PUT URL the client uses to push the bytes; the
// record stays uploaded until the client triggers indexing.
func (vs *videoService) CreateVideo(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID, params CreateVideoParams) (*types.Video, string, error) {
  title := strings.TrimSpace(params.Title)
  if title == "" {
    return nil, "", fmt.Errorf("Title is required")
  }

  source := params.Source
  if source == "" {
    source = types.VideoSourceUpload
  }
  switch source {
  case types.VideoSourceUpload:
  case types.VideoSourceDirect:
    if strings.TrimSpace(params.WatchURL) == "" {
      return nil, "", fmt.Errorf("watch_url is required for direct-url videos")
    }
  default:
    return nil, "", fmt.Errorf("Unsupported source %q", source)
  }

  track := params.Track
  if track == "" {
    track = "healthcare"
  }

  tagsJSON, _ := json.Marshal(MergeTags(nil, params.Tags))

  video := &types.Video{
    ID:          uuid.New(),
    OwnerID:     ownerID,
    Source:      source,
    Title:       title,
    Description: strings.TrimSpace(params.Description),
    WatchURL:    strings.TrimSpace(params.WatchURL),
    Track:       track,
    Status:      types.VideoStatusUploaded,
    Tags:        datatypes.JSON(tagsJSON),
  }
  if _, err := vs.videoRepo.Create(ctx, tx, []*types.Video{video}); err != nil {
    return nil, "", fmt.Errorf("Failed to create video: %w", err)
  }

  var uploadURL string
  if source == types.VideoSourceUpload && vs.bucket != nil {
    contentType := params.ContentType
    if contentType == "" {
      contentType = "video/mp4"
    }
    url, err := vs.bucket.SignedUploadURL(UploadObjectKey(video.ID), contentType, 15*time.Minute)
    if err != nil {
      vs.log.Warn("Failed to sign upload URL", "videoID", video.ID, "error", err)
    } else {
      uploadURL = url
    }
  }

  return video, uploadURL, nil
}

func (vs *videoService) GetVideo(ctx context.Context, tx *gorm.DB, videoID uuid.UUID) (*VideoDetail, error) {
  video, err := vs.videoRepo.GetByID(ctx, tx, videoID)
  if err != nil {
    if errors.Is(err, gorm.ErrRecordNotFound) {
      return nil, ErrVideoNotFound
    }
    return nil, err
  }

  detail := &VideoDetail{Video: video, Segments: []*types.Segment{}, Events: []*types.Event{}}
  if video.Status != types.VideoStatusReady {
    return detail, nil
  }

  segments, err := vs.segmentRepo.GetByVideoID(ctx, tx, videoID)
  if err != nil {
    return nil, fmt.Errorf("Failed to load segments: %w", err)
  }
  events, err := vs.eventRepo.GetByVideoID(ctx, tx, videoID)
  if err != nil {
    return nil, fmt.Errorf("Failed to load events: %w", err)
  }
  detail.Segments = segments
  detail.Events = events
  return detail, nil
}

func (vs *videoService) ListVideos(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID, status string, limit, offset int) ([]*types.Video, error) {
  return vs.videoRepo.ListByOwner(ctx, tx, ownerID, status, limit, offset)
}

// ListEvents returns a video's detected events, optionally restricted to a
// single event type.
func (vs *videoService) ListEvents(ctx context.Context, tx *gorm.DB, videoID uuid.UUID, eventType string) ([]*types.Event, error) {
  if _, err := vs.videoRepo.GetByID(ctx, tx, videoID); err != nil {
    if errors.Is(err, gorm.ErrRecordNotFound) {
      return nil, ErrVideoNotFound
    }
    return nil, err
  }
  if eventType != "" {
    return vs.eventRepo.GetByVideoIDAndType(ctx, tx, videoID, eventType)
  }
  return vs.eventRepo.GetByVideoID(ctx, tx, videoID)
}

// SearchSegments asks the provider's semantic search across the owner's
// ready videos. When the provider is unavailable it degrades to a plain
// title/description match so search never hard-fails.
func (vs *videoService) SearchSegments(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID, query string, limit int) ([]SegmentSearchResult, error) {
  query = strings.TrimSpace(query)
  if query == "" {
    return nil, fmt.Errorf("Query is required")
  }
  if limit <= 0 {
    limit = 10
  }

  ready, err := vs.videoRepo.ListByOwner(ctx, tx, ownerID, types.VideoStatusReady, 0, 0)
  if err != nil {
    return nil, err
  }
  if len(ready) == 0 {
    return []SegmentSearchResult{}, nil
  }

  providerIDs := make([]string, 0, len(ready))
  byProviderID := make(map[string]uuid.UUID, len(ready))
  for _, v := range ready {
    if v.ExternalVideoID != "" {
      providerIDs = append(providerIDs, v.ExternalVideoID)
      byProviderID[v.ExternalVideoID] = v.ID
    }
  }

  if vs.indexClient != nil && len(providerIDs) > 0 {
    hits, err := vs.indexClient.Search(ctx, query, providerIDs, limit)
    if err == nil {
      results := make([]SegmentSearchResult, 0, len(hits))
      for _, h := range hits {
        videoID, ok := byProviderID[h.VideoID]
        if !ok {
          continue
        }
        results = append(results, SegmentSearchResult{
          VideoID:  videoID,
          StartSec: h.Start,
          EndSec:   h.End,
          Score:    h.Score,
          Text:     h.Text,
        })
      }
      return results, nil
    }
    vs.log.Warn("Provider search failed; falling back to metadata search", "error", err)
  }

  matched, err := vs.videoRepo.Search(ctx, tx, ownerID, query, limit)
  if err != nil {
    return nil, err
  }
  results := make([]SegmentSearchResult, 0, len(matched))
  for _, v := range matched {
    results = append(results, SegmentSearchResult{
      VideoID:  v.ID,
      StartSec: 0,
      EndSec:   float64(v.DurationSec),
      Score:    0.5,
      Text:     v.Title,
    })
  }
  return results, nil
}

func (vs *videoService) DeleteVideo(ctx context.Context, tx *gorm.DB, videoID uuid.UUID) error {
  if _, err := vs.videoRepo.GetByID(ctx, tx, videoID); err != nil {
    if errors.Is(err, gorm.ErrRecordNotFound) {
      return ErrVideoNotFound
    }
    return err
  }
  if err := vs.segmentRepo.DeleteByVideoID(ctx, tx, videoID); err != nil {
    return err
  }
  if err := vs.eventRepo.DeleteByVideoID(ctx, tx, videoID); err != nil {
    return err
  }
  return vs.videoRepo.Delete(ctx, tx, videoID)
}
