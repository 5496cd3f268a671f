package services

import (
  "context"
  "errors"
  "fmt"

  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/yungbote/medtrain-backend/internal/logger"
  "github.com/yungbote/medtrain-backend/internal/repos"
  "github.com/yungbote/medtrain-backend/internal/types"
)

// QuizService generates quizzes from a ready video's transcript. The
// generated text is stored verbatim; nothing downstream parses it.
type QuizService interface {
  GenerateQuiz(ctx context.Context, tx *gorm.DB, ownerID, videoID uuid.UUID, questionCount int) (*types.Quiz, error)
  GetQuiz(ctx context.Context, tx *gorm.DB, quizID uuid.UUID) (*types.Quiz, error)
  ListQuizzesForVideo(ctx context.Context, tx *gorm.DB, videoID uuid.UUID) ([]*types.Quiz, error)
}

type quizService struct {
  log       *logger.Logger
  videoRepo repos.VideoRepo
  quizRepo  repos.QuizRepo
  qa        QAService
  textGen   TextGenClient
}

func NewQuizService(
  log *logger.Logger,
  videoRepo repos.VideoRepo,
  quizRepo repos.QuizRepo,
  qa QAService,
  textGen TextGenClient,
) QuizService {
  return &quizService{
    log:       log.With("service", "QuizService"),
    videoRepo: videoRepo,
    quizRepo:  quizRepo,
    qa:        qa,
    textGen:   textGen,
  }
}

func (qs *quizService) GenerateQuiz(ctx context.Context, tx *gorm.DB, ownerID, videoID uuid.UUID, questionCount int) (*types.Quiz, error) {
  if qs.textGen == nil {
    return nil, ErrTextGenUnavailable
  }

  if questionCount <= 0 || questionCount > 20 {
    questionCount = 5
  }

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

  transcript, err := qs.qa.GetTranscript(ctx, tx, videoID)
  if err != nil {
    return nil, err
  }
  if transcript == "" {
    return nil, fmt.Errorf("Video has no transcript")
  }
  if len(transcript) > 8000 {
    transcript = transcript[:8000]
  }

  prompt := fmt.Sprintf(
    "Write %d multiple-choice quiz questions with answers for medical trainees, "+
      "based on this training video transcript. Number each question.\n\n"+
      "Title: %s\nTranscript:\n%s",
    questionCount, video.Title, transcript,
  )
  content, err := qs.textGen.GenerateText(ctx, prompt)
  if err != nil {
    return nil, fmt.Errorf("Failed to generate quiz: %w", err)
  }

  quiz := &types.Quiz{
    ID:      uuid.New(),
    VideoID: videoID,
    OwnerID: ownerID,
    Title:   "Quiz: " + video.Title,
    Content: content,
  }
  if _, err := qs.quizRepo.Create(ctx, tx, []*types.Quiz{quiz}); err != nil {
    return nil, fmt.Errorf("Failed to store quiz: %w", err)
  }
  return quiz, nil
}

func (qs *quizService) GetQuiz(ctx context.Context, tx *gorm.DB, quizID uuid.UUID) (*types.Quiz, error) {
  quiz, err := qs.quizRepo.GetByID(ctx, tx, quizID)
  if err != nil {
    if errors.Is(err, gorm.ErrRecordNotFound) {
      return nil, fmt.Errorf("Quiz not found")
    }
    return nil, err
  }
  return quiz, nil
}

func (qs *quizService) ListQuizzesForVideo(ctx context.Context, tx *gorm.DB, videoID uuid.UUID) ([]*types.Quiz, error) {
  return qs.quizRepo.GetByVideoID(ctx, tx, videoID)
}
