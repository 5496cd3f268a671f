package handlers

import (
  "errors"
  "net/http"
  "strconv"

  "github.com/gin-gonic/gin"
  "github.com/google/uuid"

  "github.com/yungbote/medtrain-backend/internal/services"
)

type ImportHandler struct {
  importService services.ImportService
}

func NewImportHandler(importService services.ImportService) *ImportHandler {
  return &ImportHandler{importService: importService}
}

func (ih *ImportHandler) CreateImportJob(c *gin.Context) {
  ownerID, ok := callerID(c)
  if !ok {
    return
  }

  var req struct {
    Queries            []string               `json:"queries"`
    Filters            services.ImportFilters `json:"filters"`
    Tags               []string               `json:"tags"`
    MaxResultsPerQuery int                    `json:"max_results_per_query"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
    return
  }

  job, err := ih.importService.CreateImportJob(c.Request.Context(), nil, ownerID, services.CreateImportParams{
    Queries:            req.Queries,
    Filters:            req.Filters,
    Tags:               req.Tags,
    MaxResultsPerQuery: req.MaxResultsPerQuery,
  })
  if err != nil {
    switch {
    case errors.Is(err, services.ErrNoQueries):
      c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
    case errors.Is(err, services.ErrImportsDisabled):
      c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
    default:
      c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
    }
    return
  }
  c.JSON(http.StatusAccepted, gin.H{"job_id": job.ID})
}

func (ih *ImportHandler) GetImportJob(c *gin.Context) {
  jobID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job id"})
    return
  }
  job, err := ih.importService.GetImportJob(c.Request.Context(), nil, jobID)
  if err != nil {
    c.JSON(http.StatusNotFound, gin.H{"error": "import job not found"})
    return
  }
  c.JSON(http.StatusOK, gin.H{"job": job})
}

func (ih *ImportHandler) ListImportJobs(c *gin.Context) {
  ownerID, ok := callerID(c)
  if !ok {
    return
  }
  limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
  offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
  jobs, err := ih.importService.ListImportJobs(c.Request.Context(), nil, ownerID, limit, offset)
  if err != nil {
    c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
    return
  }
  c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}
