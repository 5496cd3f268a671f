package handlers

import (
  "errors"
  "net/http"
  "strconv"

  "github.com/gin-gonic/gin"
  "github.com/google/uuid"

  "github.com/yungbote/medtrain-backend/internal/requestdata"
  "github.com/yungbote/medtrain-backend/internal/services"
)

type VideoHandler struct {
  videoService    services.VideoService
  indexingService services.IndexingService
}

func NewVideoHandler(videoService services.VideoService, indexingService services.IndexingService) *VideoHandler {
  return &VideoHandler{videoService: videoService, indexingService: indexingService}
}

func callerID(c *gin.Context) (uuid.UUID, bool) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil || rd.UserID == uuid.Nil {
    c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
    return uuid.Nil, false
  }
  return rd.UserID, true
}

func (vh *VideoHandler) CreateVideo(c *gin.Context) {
  ownerID, ok := callerID(c)
  if !ok {
    return
  }

  var req struct {
    Title       string   `json:"title"`
    Description string   `json:"description"`
    Track       string   `json:"track"`
    Source      string   `json:"source"`
    WatchURL    string   `json:"watch_url"`
    ContentType string   `json:"content_type"`
    Tags        []string `json:"tags"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
    return
  }

  video, uploadURL, err := vh.videoService.CreateVideo(c.Request.Context(), nil, ownerID, services.CreateVideoParams{
    Title:       req.Title,
    Description: req.Description,
    Track:       req.Track,
    Source:      req.Source,
    WatchURL:    req.WatchURL,
    ContentType: req.ContentType,
    Tags:        req.Tags,
  })
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
    return
  }
  c.JSON(http.StatusOK, gin.H{"video": video, "upload_url": uploadURL})
}

func (vh *VideoHandler) GetVideo(c *gin.Context) {
  videoID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid video id"})
    return
  }
  detail, err := vh.videoService.GetVideo(c.Request.Context(), nil, videoID)
  if err != nil {
    if errors.Is(err, services.ErrVideoNotFound) {
      c.JSON(http.StatusNotFound, gin.H{"error": "video not found"})
      return
    }
    c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
    return
  }
  c.JSON(http.StatusOK, detail)
}

func (vh *VideoHandler) ListVideos(c *gin.Context) {
  ownerID, ok := callerID(c)
  if !ok {
    return
  }
  limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
  offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
  videos, err := vh.videoService.ListVideos(c.Request.Context(), nil, ownerID, c.Query("status"), limit, offset)
  if err != nil {
    c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
    return
  }
  c.JSON(http.StatusOK, gin.H{"videos": videos})
}

// StartIndexing maps the pipeline's precondition errors onto distinct
// HTTP statuses so callers can tell "already running" from "gone".
func (vh *VideoHandler) StartIndexing(c *gin.Context) {
  videoID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid video id"})
    return
  }

  err = vh.indexingService.StartIndexing(c.Request.Context(), nil, videoID)
  switch {
  case err == nil:
    c.JSON(http.StatusAccepted, gin.H{"accepted": true})
  case errors.Is(err, services.ErrVideoNotFound):
    c.JSON(http.StatusNotFound, gin.H{"error": "video not found"})
  case errors.Is(err, services.ErrAlreadyIndexing):
    c.JSON(http.StatusConflict, gin.H{"error": "video is already indexing"})
  case errors.Is(err, services.ErrAlreadyIndexed):
    c.JSON(http.StatusConflict, gin.H{"error": "video is already indexed"})
  case errors.Is(err, services.ErrIndexingFailedState):
    c.JSON(http.StatusConflict, gin.H{"error": "video indexing previously failed"})
  default:
    c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
  }
}

func (vh *VideoHandler) ListEvents(c *gin.Context) {
  videoID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid video id"})
    return
  }
  events, err := vh.videoService.ListEvents(c.Request.Context(), nil, videoID, c.Query("type"))
  if err != nil {
    if errors.Is(err, services.ErrVideoNotFound) {
      c.JSON(http.StatusNotFound, gin.H{"error": "video not found"})
      return
    }
    c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
    return
  }
  c.JSON(http.StatusOK, gin.H{"events": events})
}

func (vh *VideoHandler) SearchSegments(c *gin.Context) {
  ownerID, ok := callerID(c)
  if !ok {
    return
  }
  limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
  results, err := vh.videoService.SearchSegments(c.Request.Context(), nil, ownerID, c.Query("q"), limit)
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
    return
  }
  c.JSON(http.StatusOK, gin.H{"results": results})
}

func (vh *VideoHandler) DeleteVideo(c *gin.Context) {
  videoID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid video id"})
    return
  }
  if err := vh.videoService.DeleteVideo(c.Request.Context(), nil, videoID); err != nil {
    if errors.Is(err, services.ErrVideoNotFound) {
      c.JSON(http.StatusNotFound, gin.H{"error": "video not found"})
      return
    }
    c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
    return
  }
  c.JSON(http.StatusOK, gin.H{"deleted": true})
}
