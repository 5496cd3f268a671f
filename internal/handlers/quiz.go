package handlers

import (
  "errors"
  "net/http"

  "github.com/gin-gonic/gin"
  "github.com/google/uuid"

  "github.com/yungbote/medtrain-backend/internal/services"
)

type QuizHandler struct {
  quizService services.QuizService
}

func NewQuizHandler(quizService services.QuizService) *QuizHandler {
  return &QuizHandler{quizService: quizService}
}

func (qh *QuizHandler) GenerateQuiz(c *gin.Context) {
  ownerID, ok := callerID(c)
  if !ok {
    return
  }
  videoID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid video id"})
    return
  }
  var req struct {
    QuestionCount int `json:"question_count"`
  }
  _ = c.ShouldBindJSON(&req)

  quiz, err := qh.quizService.GenerateQuiz(c.Request.Context(), nil, ownerID, videoID, req.QuestionCount)
  if err != nil {
    switch {
    case errors.Is(err, services.ErrVideoNotFound):
      c.JSON(http.StatusNotFound, gin.H{"error": "video not found"})
    case errors.Is(err, services.ErrVideoNotReady):
      c.JSON(http.StatusConflict, gin.H{"error": "video is not ready"})
    case errors.Is(err, services.ErrTextGenUnavailable):
      c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
    default:
      c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
    }
    return
  }
  c.JSON(http.StatusOK, gin.H{"quiz": quiz})
}

func (qh *QuizHandler) GetQuiz(c *gin.Context) {
  quizID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid quiz id"})
    return
  }
  quiz, err := qh.quizService.GetQuiz(c.Request.Context(), nil, quizID)
  if err != nil {
    c.JSON(http.StatusNotFound, gin.H{"error": "quiz not found"})
    return
  }
  c.JSON(http.StatusOK, gin.H{"quiz": quiz})
}

func (qh *QuizHandler) ListQuizzesForVideo(c *gin.Context) {
  videoID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid video id"})
    return
  }
  quizzes, err := qh.quizService.ListQuizzesForVideo(c.Request.Context(), nil, videoID)
  if err != nil {
    c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
    return
  }
  c.JSON(http.StatusOK, gin.H{"quizzes": quizzes})
}
