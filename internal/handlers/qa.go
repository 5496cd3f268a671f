package handlers

import (
  "errors"
  "net/http"

  "github.com/gin-gonic/gin"
  "github.com/google/uuid"

  "github.com/yungbote/medtrain-backend/internal/services"
)

type QAHandler struct {
  qaService services.QAService
}

func NewQAHandler(qaService services.QAService) *QAHandler {
  return &QAHandler{qaService: qaService}
}

func (qh *QAHandler) GetTranscript(c *gin.Context) {
  videoID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid video id"})
    return
  }
  if c.Query("format") == "segments" {
    segments, err := qh.qaService.GetTranscriptSegments(c.Request.Context(), nil, videoID)
    if err != nil {
      qaError(c, err)
      return
    }
    c.JSON(http.StatusOK, gin.H{"segments": segments})
    return
  }
  transcript, err := qh.qaService.GetTranscript(c.Request.Context(), nil, videoID)
  if err != nil {
    qaError(c, err)
    return
  }
  c.JSON(http.StatusOK, gin.H{"transcript": transcript})
}

func (qh *QAHandler) AskQuestion(c *gin.Context) {
  videoID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid video id"})
    return
  }
  var req struct {
    Question string `json:"question"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
    return
  }
  answer, err := qh.qaService.AskQuestion(c.Request.Context(), nil, videoID, req.Question)
  if err != nil {
    qaError(c, err)
    return
  }
  c.JSON(http.StatusOK, gin.H{"answer": answer})
}

func qaError(c *gin.Context, err error) {
  switch {
  case errors.Is(err, services.ErrVideoNotFound):
    c.JSON(http.StatusNotFound, gin.H{"error": "video not found"})
  case errors.Is(err, services.ErrVideoNotReady):
    c.JSON(http.StatusConflict, gin.H{"error": "video is not ready"})
  case errors.Is(err, services.ErrTextGenUnavailable):
    c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
  default:
    c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
  }
}
