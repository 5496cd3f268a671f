package services

import (
  "context"
  "encoding/json"
  "errors"
  "fmt"
  "strings"

  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/yungbote/medtrain-backend/internal/logger"
  "github.com/yungbote/medtrain-backend/internal/repos"
  "github.com/yungbote/medtrain-backend/internal/types"
)

var ErrTextGenUnavailable = errors.New("text generation is not configured")

// QAService answers free-form questions about a ready video using its
// stored transcript as grounding context.
type QAService interface {
  GetTranscript(ctx context.Context, tx *gorm.DB, videoID uuid.UUID) (string, error)
  GetTranscriptSegments(ctx context.Context, tx *gorm.DB, videoID uuid.UUID) ([]*types.Segment, error)
  AskQuestion(ctx context.Context, tx *gorm.DB, videoID uuid.UUID, question string) (string, error)
}

type qaService struct {
  log         *logger.Logger
  videoRepo   repos.VideoRepo
  segmentRepo repos.SegmentRepo
  textGen     TextGenClient
}

func NewQAService(
  log *logger.Logger,
  videoRepo repos.VideoRepo,
  segmentRepo repos.SegmentRepo,
  textGen TextGenClient,
) QAService {
  return &qaService{
    log:         log.With("service", "QAService"),
    videoRepo:   videoRepo,
    segmentRepo: segmentRepo,
    textGen:     textGen,
  }
}

// GetTranscript joins segment captions in start order.
func (qs *qaService) GetTranscript(ctx context.Context, tx *gorm.DB, videoID uuid.UUID) (string, error) {
  video, err := qs.videoRepo.GetByID(ctx, tx, videoID)
  if err != nil {
    if errors.Is(err, gorm.ErrRecordNotFound) {
      return "", ErrVideoNotFound
    }
    return "", err
  }
  if video.Status != types.VideoStatusReady {
    return "", ErrVideoNotReady
  }

  segments, err := qs.segmentRepo.GetByVideoID(ctx, tx, videoID)
  if err != nil {
    return "", fmt.Errorf("Failed to load segments: %w", err)
  }

  var sb strings.Builder
  for _, seg := range segments {
    var captions []string
    if err := json.Unmarshal(seg.Captions, &captions); err != nil {
      continue
    }
    for _, c := range captions {
      if strings.TrimSpace(c) == "" {
        continue
      }
      if sb.Len() > 0 {
        sb.WriteString(" ")
      }
      sb.WriteString(strings.TrimSpace(c))
    }
  }
  return sb.String(), nil
}

// GetTranscriptSegments returns the time-coded transcript rows instead of
// the joined text, for clients that render captions alongside playback.
func (qs *qaService) GetTranscriptSegments(ctx context.Context, tx *gorm.DB, videoID uuid.UUID) ([]*types.Segment, error) {
  video, err := qs.videoRepo.GetByID(ctx, tx, videoID)
  if err != nil {
    if errors.Is(err, gorm.ErrRecordNotFound) {
      return nil, ErrVideoNotFound
    }
    return nil, err
  }
  if video.Status != types.VideoStatusReady {
    return nil, ErrVideoNotReady
  }
  return qs.segmentRepo.GetByVideoID(ctx, tx, videoID)
}

func (qs *qaService) AskQuestion(ctx context.Context, tx *gorm.DB, videoID uuid.UUID, question string) (string, error) {
  if qs.textGen == nil {
    return "", ErrTextGenUnavailable
  }

  question = strings.TrimSpace(question)
  if question == "" {
    return "", fmt.Errorf("Question is required")
  }

  transcript, err := qs.GetTranscript(ctx, tx, videoID)
  if err != nil {
    return "", err
  }
  if transcript == "" {
    return "", fmt.Errorf("Video has no transcript")
  }
  if len(transcript) > 8000 {
    transcript = transcript[:8000]
  }

  prompt := fmt.Sprintf(
    "You are a medical training assistant. Answer the question using only the "+
      "video transcript below. If the transcript does not contain the answer, say so.\n\n"+
      "Transcript:\n%s\n\nQuestion: %s",
    transcript, question,
  )
  answer, err := qs.textGen.GenerateText(ctx, prompt)
  if err != nil {
    return "", fmt.Errorf("Failed to generate answer: %w", err)
  }
  return strings.TrimSpace(answer), nil
}
