package services

import (
  "context"
  "encoding/json"
  "errors"
  "fmt"
  "strings"

  "github.com/google/uuid"
  "gorm.io/datatypes"
  "gorm.io/gorm"

  "github.com/yungbote/medtrain-backend/internal/logger"
  "github.com/yungbote/medtrain-backend/internal/repos"
  "github.com/yungbote/medtrain-backend/internal/types"
  "github.com/yungbote/medtrain-backend/internal/utils"
)

var (
  ErrNoQueries       = errors.New("at least one search query is required")
  ErrImportsDisabled = errors.New("catalog imports are not configured")
)

// ImportFilters gate which catalog candidates become videos. Zero values
// fall back to the defaults below.
type ImportFilters struct {
  MinDurationSec int  `json:"min_duration_sec"`
  MaxDurationSec int  `json:"max_duration_sec"`
  MedicalOnly    bool `json:"medical_only"`
}

const (
  defaultMinDurationSec = 300
  defaultMaxDurationSec = 3600
)

type CreateImportParams struct {
  Queries            []string
  Filters            ImportFilters
  Tags               []string
  MaxResultsPerQuery int
}

type ImporterConfig struct {
  // DedupeCatalogIDs drops candidates already imported for the same owner
  // and duplicates across queries within one job. Off by default to match
  // historical behavior.
  DedupeCatalogIDs bool
}

func ImporterConfigFromEnv(log *logger.Logger) ImporterConfig {
  return ImporterConfig{
    DedupeCatalogIDs: utils.GetEnvAsBool("IMPORT_DEDUPE_CATALOG_IDS", false, log),
  }
}

// ImportService fans search queries out against the external catalog and
// hands each accepted candidate to the indexing pipeline as its own
// independent video.
type ImportService interface {
  CreateImportJob(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID, params CreateImportParams) (*types.ImportJob, error)
  GetImportJob(ctx context.Context, tx *gorm.DB, jobID uuid.UUID) (*types.ImportJob, error)
  ListImportJobs(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID, limit, offset int) ([]*types.ImportJob, error)
}

type importService struct {
  log       *logger.Logger
  jobRepo   repos.ImportJobRepo
  videoRepo repos.VideoRepo
  catalog   CatalogClient
  indexing  IndexingService
  notifier  Notifier
  cfg       ImporterConfig
}

func NewImportService(
  log *logger.Logger,
  jobRepo repos.ImportJobRepo,
  videoRepo repos.VideoRepo,
  catalog CatalogClient,
  indexing IndexingService,
  notifier Notifier,
  cfg ImporterConfig,
) ImportService {
  return &importService{
    log:       log.With("service", "ImportService"),
    jobRepo:   jobRepo,
    videoRepo: videoRepo,
    catalog:   catalog,
    indexing:  indexing,
    notifier:  notifier,
    cfg:       cfg,
  }
}

// CreateImportJob validates the request, persists a pending job and kicks
// off processing in the background. The caller gets the job id right away
// and watches progress through the job record.
func (s *importService) CreateImportJob(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID, params CreateImportParams) (*types.ImportJob, error) {
  if s.catalog == nil {
    return nil, ErrImportsDisabled
  }

  queries := make([]string, 0, len(params.Queries))
  for _, q := range params.Queries {
    if strings.TrimSpace(q) != "" {
      queries = append(queries, strings.TrimSpace(q))
    }
  }
  if len(queries) == 0 {
    return nil, ErrNoQueries
  }

  queriesJSON, _ := json.Marshal(queries)
  filtersJSON, _ := json.Marshal(params.Filters)
  tagsJSON, _ := json.Marshal(params.Tags)

  job := &types.ImportJob{
    ID:      uuid.New(),
    OwnerID: ownerID,
    Queries: datatypes.JSON(queriesJSON),
    Filters: datatypes.JSON(filtersJSON),
    Tags:    datatypes.JSON(tagsJSON),
    Status:  types.ImportJobStatusPending,
  }
  created, err := s.jobRepo.Create(ctx, tx, []*types.ImportJob{job})
  if err != nil {
    return nil, err
  }

  go s.runJob(context.Background(), created[0].ID, ownerID, queries, params)

  return created[0], nil
}

func (s *importService) GetImportJob(ctx context.Context, tx *gorm.DB, jobID uuid.UUID) (*types.ImportJob, error) {
  return s.jobRepo.GetByID(ctx, tx, jobID)
}

func (s *importService) ListImportJobs(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID, limit, offset int) ([]*types.ImportJob, error) {
  return s.jobRepo.ListByOwner(ctx, tx, ownerID, limit, offset)
}

// runJob is the orchestrator body. Per-candidate errors are contained and
// counted; only a failure of the job record itself fails the whole job.
func (s *importService) runJob(ctx context.Context, jobID, ownerID uuid.UUID, queries []string, params CreateImportParams) {
  defer func() {
    if r := recover(); r != nil {
      s.log.Error("Import job panicked", "jobID", jobID, "panic", r)
      s.failJob(context.Background(), jobID, ownerID, fmt.Sprintf("internal error: %v", r))
    }
  }()

  started, err := s.jobRepo.TransitionStatus(ctx, nil, jobID, types.ImportJobStatusPending, types.ImportJobStatusRunning)
  if err != nil {
    s.log.Error("Failed to start import job", "jobID", jobID, "error", err)
    s.failJob(ctx, jobID, ownerID, fmt.Sprintf("could not start job: %v", err))
    return
  }
  if !started {
    s.log.Warn("Import job not in pending state; skipping run", "jobID", jobID)
    return
  }

  candidates := s.discover(ctx, jobID, ownerID, queries, params.MaxResultsPerQuery)

  total := len(candidates)
  if err := s.jobRepo.UpdateFields(ctx, nil, jobID, map[string]interface{}{
    "total_count": total,
  }); err != nil {
    s.failJob(ctx, jobID, ownerID, fmt.Sprintf("could not record candidate count: %v", err))
    return
  }

  processed, successful, failed := 0, 0, 0
  for _, cand := range candidates {
    outcome := s.processCandidate(ctx, ownerID, cand, params)
    switch outcome {
    case candidateImported:
      processed++
      successful++
      if err := s.jobRepo.IncrementCounts(ctx, nil, jobID, 1, 1, 0); err != nil {
        s.failJob(ctx, jobID, ownerID, fmt.Sprintf("could not persist progress: %v", err))
        return
      }
    case candidateFailed:
      processed++
      failed++
      if err := s.jobRepo.IncrementCounts(ctx, nil, jobID, 1, 0, 1); err != nil {
        s.failJob(ctx, jobID, ownerID, fmt.Sprintf("could not persist progress: %v", err))
        return
      }
    case candidateSkipped:
      // Filter rejections are silent skips: the candidate leaves the
      // denominator instead of counting as processed or failed.
      total--
      if err := s.jobRepo.AddToTotal(ctx, nil, jobID, -1); err != nil {
        s.failJob(ctx, jobID, ownerID, fmt.Sprintf("could not persist progress: %v", err))
        return
      }
    }
    s.notifyProgress(ownerID, jobID, types.ImportJobStatusRunning, total, processed, successful, failed)
  }

  if _, err := s.jobRepo.TransitionStatus(ctx, nil, jobID, types.ImportJobStatusRunning, types.ImportJobStatusCompleted); err != nil {
    s.log.Error("Failed to complete import job", "jobID", jobID, "error", err)
    return
  }
  s.notifyProgress(ownerID, jobID, types.ImportJobStatusCompleted, total, processed, successful, failed)
  s.log.Info("Import job completed", "jobID", jobID, "total", total, "successful", successful, "failed", failed)
}

// discover runs every search query, tolerating individual query failures.
func (s *importService) discover(ctx context.Context, jobID, ownerID uuid.UUID, queries []string, maxPerQuery int) []CatalogCandidate {
  var candidates []CatalogCandidate
  seen := make(map[string]bool)

  for _, query := range queries {
    found, err := s.catalog.SearchVideos(ctx, query, maxPerQuery)
    if err != nil {
      s.log.Warn("Catalog search failed; continuing with remaining queries", "jobID", jobID, "query", query, "error", err)
      continue
    }
    for _, cand := range found {
      if s.cfg.DedupeCatalogIDs {
        if seen[cand.CatalogID] {
          continue
        }
        seen[cand.CatalogID] = true
        exists, err := s.videoRepo.CatalogIDExists(ctx, nil, ownerID, cand.CatalogID)
        if err == nil && exists {
          continue
        }
      }
      candidates = append(candidates, cand)
    }
  }
  return candidates
}

type candidateOutcome int

const (
  candidateImported candidateOutcome = iota
  candidateFailed
  candidateSkipped
)

func (s *importService) processCandidate(ctx context.Context, ownerID uuid.UUID, cand CatalogCandidate, params CreateImportParams) candidateOutcome {
  details, err := s.catalog.GetVideoDetails(ctx, cand.CatalogID)
  if err != nil {
    s.log.Warn("Failed to fetch candidate details", "catalogID", cand.CatalogID, "error", err)
    return candidateFailed
  }

  if !passesFilters(details, params.Filters) {
    s.log.Debug("Candidate rejected by filters", "catalogID", cand.CatalogID, "duration", details.DurationSec)
    return candidateSkipped
  }

  tags := append([]string{}, params.Tags...)
  if specialty := InferSpecialty(details.Title, details.Description); specialty != "" {
    tags = append(tags, specialty)
  }
  tags = append(tags, InferDifficulty(details.Title, details.Description))
  tagsJSON, _ := json.Marshal(MergeTags(nil, tags))

  video := &types.Video{
    ID:           uuid.New(),
    OwnerID:      ownerID,
    Source:       types.VideoSourceCatalog,
    CatalogID:    details.CatalogID,
    Title:        details.Title,
    Description:  details.Description,
    WatchURL:     details.WatchURL,
    ThumbnailURL: details.ThumbnailURL,
    Track:        "healthcare",
    Status:       types.VideoStatusUploaded,
    DurationSec:  details.DurationSec,
    Tags:         datatypes.JSON(tagsJSON),
  }
  if _, err := s.videoRepo.Create(ctx, nil, []*types.Video{video}); err != nil {
    s.log.Warn("Failed to create video for candidate", "catalogID", cand.CatalogID, "error", err)
    return candidateFailed
  }

  if err := s.indexing.StartIndexing(ctx, nil, video.ID); err != nil {
    s.log.Warn("Failed to start indexing for imported video", "videoID", video.ID, "error", err)
    return candidateFailed
  }

  return candidateImported
}

func passesFilters(details *CatalogVideo, filters ImportFilters) bool {
  minDur := filters.MinDurationSec
  if minDur <= 0 {
    minDur = defaultMinDurationSec
  }
  maxDur := filters.MaxDurationSec
  if maxDur <= 0 {
    maxDur = defaultMaxDurationSec
  }
  if details.DurationSec < minDur || details.DurationSec > maxDur {
    return false
  }
  if filters.MedicalOnly && !IsMedicalContent(details.Title, details.Description) {
    return false
  }
  return true
}

var medicalKeywords = []string{
  "surgery", "surgical", "medical", "procedure", "operation",
  "anatomy", "clinical", "patient", "diagnosis", "suture",
}

var nonMedicalKeywords = []string{
  "gameplay", "music video", "trailer", "unboxing", "reaction",
}

// IsMedicalContent is the keyword gate for catalog imports: at least one
// medical keyword and no disqualifying one, over title plus description.
func IsMedicalContent(title, description string) bool {
  text := strings.ToLower(title + " " + description)
  for _, kw := range nonMedicalKeywords {
    if strings.Contains(text, kw) {
      return false
    }
  }
  for _, kw := range medicalKeywords {
    if strings.Contains(text, kw) {
      return true
    }
  }
  return false
}

var specialtyKeywords = map[string]string{
  "cardiac":      "cardiology",
  "heart":        "cardiology",
  "neuro":        "neurosurgery",
  "brain":        "neurosurgery",
  "orthopedic":   "orthopedics",
  "knee":         "orthopedics",
  "laparoscopic": "general-surgery",
  "appendectomy": "general-surgery",
  "cataract":     "ophthalmology",
  "dental":       "dentistry",
}

func InferSpecialty(title, description string) string {
  text := strings.ToLower(title + " " + description)
  for kw, specialty := range specialtyKeywords {
    if strings.Contains(text, kw) {
      return specialty
    }
  }
  return ""
}

func InferDifficulty(title, description string) string {
  text := strings.ToLower(title + " " + description)
  switch {
  case strings.Contains(text, "advanced") || strings.Contains(text, "complex"):
    return "advanced"
  case strings.Contains(text, "introduction") || strings.Contains(text, "basics") || strings.Contains(text, "beginner"):
    return "beginner"
  default:
    return "intermediate"
  }
}

func (s *importService) failJob(ctx context.Context, jobID, ownerID uuid.UUID, reason string) {
  if err := s.jobRepo.UpdateFields(ctx, nil, jobID, map[string]interface{}{
    "status": types.ImportJobStatusFailed,
    "error":  reason,
  }); err != nil {
    s.log.Error("Failed to mark import job failed", "jobID", jobID, "error", err)
    return
  }
  s.notifyProgress(ownerID, jobID, types.ImportJobStatusFailed, 0, 0, 0, 0)
}

func (s *importService) notifyProgress(ownerID, jobID uuid.UUID, status string, total, processed, successful, failed int) {
  if s.notifier == nil {
    return
  }
  s.notifier.ImportJobProgress(ownerID, jobID, status, total, processed, successful, failed)
}
