package services

import (
  "bytes"
  "context"
  "encoding/json"
  "errors"
  "fmt"
  "io"
  "math/rand"
  "net"
  "net/http"
  "os"
  "strconv"
  "strings"
  "time"

  "github.com/yungbote/medtrain-backend/internal/logger"
)

// VideoIndexClient talks to the TwelveLabs video understanding API. The
// indexing pipeline only ever calls CreateTask, GetTask, GetTranscription
// and Search; everything else the provider offers is out of scope here.
type VideoIndexClient interface {
  CreateTask(ctx context.Context, videoURL string) (*IndexTask, error)
  GetTask(ctx context.Context, taskID string) (*IndexTask, error)
  GetTranscription(ctx context.Context, providerVideoID string) ([]TranscriptionUnit, error)
  Search(ctx context.Context, query string, providerVideoIDs []string, limit int) ([]SearchHit, error)
}

// Provider task statuses the poll loop understands. Anything else is
// treated as still in flight.
const (
  IndexTaskStatusPending  = "pending"
  IndexTaskStatusIndexing = "indexing"
  IndexTaskStatusReady    = "ready"
  IndexTaskStatusFailed   = "failed"
)

type IndexTask struct {
  ID      string `json:"_id"`
  VideoID string `json:"video_id"`
  Status  string `json:"status"`
  Message string `json:"message,omitempty"`
}

type TranscriptionUnit struct {
  Start      float64 `json:"start"`
  End        float64 `json:"end"`
  Value      string  `json:"value"`
  Confidence float64 `json:"confidence,omitempty"`
}

type SearchHit struct {
  VideoID string  `json:"video_id"`
  Start   float64 `json:"start"`
  End     float64 `json:"end"`
  Score   float64 `json:"score"`
  Text    string  `json:"text,omitempty"`
}

type twelveLabsClient struct {
  log        *logger.Logger
  baseURL    string
  apiKey     string
  indexID    string
  httpClient *http.Client

  maxRetries int
}

func NewTwelveLabsClient(log *logger.Logger) (VideoIndexClient, error) {
  apiKey := os.Getenv("TWELVELABS_API_KEY")
  if apiKey == "" {
    return nil, fmt.Errorf("missing TWELVELABS_API_KEY")
  }

  indexID := os.Getenv("TWELVELABS_INDEX_ID")
  if indexID == "" {
    return nil, fmt.Errorf("missing TWELVELABS_INDEX_ID")
  }

  baseURL := os.Getenv("TWELVELABS_BASE_URL")
  if baseURL == "" {
    baseURL = "https://api.twelvelabs.io/v1.2"
  }

  timeoutSec := 60
  if v := os.Getenv("TWELVELABS_TIMEOUT_SECONDS"); v != "" {
    if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed > 0 {
      timeoutSec = parsed
    }
  }

  maxRetries := 4
  if v := os.Getenv("TWELVELABS_MAX_RETRIES"); v != "" {
    if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed >= 0 {
      maxRetries = parsed
    }
  }

  return &twelveLabsClient{
    log:        log.With("service", "TwelveLabsClient"),
    baseURL:    strings.TrimRight(baseURL, "/"),
    apiKey:     apiKey,
    indexID:    indexID,
    httpClient: &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
    maxRetries: maxRetries,
  }, nil
}

type providerHTTPError struct {
  StatusCode int
  Body       string
}

func (e *providerHTTPError) Error() string {
  return fmt.Sprintf("twelvelabs http %d: %s", e.StatusCode, e.Body)
}

func isRetryableHTTP(code int) bool {
  if code == 408 || code == 429 {
    return true
  }
  if code >= 500 && code <= 599 {
    return true
  }
  return false
}

func isRetryableErr(err error) bool {
  if err == nil {
    return false
  }
  if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
    // if caller canceled, don't retry; if it's our timeout, we will retry anyway.
    // We can only distinguish reliably by checking ctx, which we do in call loop.
    return true
  }
  var netErr net.Error
  if errors.As(err, &netErr) {
    if netErr.Timeout() || netErr.Temporary() {
      return true
    }
  }
  var httpErr *providerHTTPError
  if errors.As(err, &httpErr) {
    return isRetryableHTTP(httpErr.StatusCode)
  }
  return false
}

func jitterSleep(base time.Duration) time.Duration {
  // +/- 20%
  if base <= 0 {
    return 0
  }
  j := 0.2
  delta := base.Seconds() * j
  low := base.Seconds() - delta
  high := base.Seconds() + delta
  if low < 0 {
    low = 0
  }
  v := low + rand.Float64()*(high-low)
  return time.Duration(v * float64(time.Second))
}

func (c *twelveLabsClient) doOnce(ctx context.Context, method, path string, body any) (*http.Response, []byte, error) {
  var buf bytes.Buffer
  if body != nil {
    if err := json.NewEncoder(&buf).Encode(body); err != nil {
      return nil, nil, err
    }
  }

  req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
  if err != nil {
    return nil, nil, err
  }
  req.Header.Set("x-api-key", c.apiKey)
  req.Header.Set("Content-Type", "application/json")

  resp, err := c.httpClient.Do(req)
  if err != nil {
    return nil, nil, err
  }

  raw, readErr := io.ReadAll(resp.Body)
  _ = resp.Body.Close()
  if readErr != nil {
    return resp, nil, readErr
  }

  if resp.StatusCode < 200 || resp.StatusCode >= 300 {
    return resp, raw, &providerHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
  }
  return resp, raw, nil
}

func (c *twelveLabsClient) do(ctx context.Context, method, path string, body any, out any) error {
  // exponential backoff: 1s, 2s, 4s, 8s (cap ~10s)
  backoff := 1 * time.Second

  for attempt := 0; attempt <= c.maxRetries; attempt++ {
    if ctx.Err() != nil {
      return ctx.Err()
    }

    resp, raw, err := c.doOnce(ctx, method, path, body)
    if err == nil {
      if out == nil {
        return nil
      }
      if uErr := json.Unmarshal(raw, out); uErr != nil {
        return fmt.Errorf("twelvelabs decode error: %w; raw=%s", uErr, string(raw))
      }
      return nil
    }

    if !isRetryableErr(err) {
      return err
    }

    if attempt == c.maxRetries {
      return err
    }

    // Respect Retry-After when present
    sleepFor := backoff
    if resp != nil {
      ra := strings.TrimSpace(resp.Header.Get("Retry-After"))
      if ra != "" {
        if secs, parseErr := strconv.Atoi(ra); parseErr == nil && secs > 0 {
          sleepFor = time.Duration(secs) * time.Second
        }
      }
    }

    if sleepFor > 10*time.Second {
      sleepFor = 10 * time.Second
    }
    sleepFor = jitterSleep(sleepFor)

    c.log.Warn("TwelveLabs request retrying",
      "path", path,
      "attempt", attempt+1,
      "max_retries", c.maxRetries,
      "sleep", sleepFor.String(),
      "error", err.Error(),
    )

    time.Sleep(sleepFor)
    backoff *= 2
  }

  return fmt.Errorf("unreachable retry loop")
}

type createTaskRequest struct {
  IndexID  string `json:"index_id"`
  VideoURL string `json:"video_url"`
}

func (c *twelveLabsClient) CreateTask(ctx context.Context, videoURL string) (*IndexTask, error) {
  if strings.TrimSpace(videoURL) == "" {
    return nil, fmt.Errorf("videoURL required")
  }
  req := createTaskRequest{IndexID: c.indexID, VideoURL: videoURL}
  var task IndexTask
  if err := c.do(ctx, "POST", "/tasks", req, &task); err != nil {
    return nil, err
  }
  if task.ID == "" {
    return nil, fmt.Errorf("twelvelabs returned task without id")
  }
  return &task, nil
}

func (c *twelveLabsClient) GetTask(ctx context.Context, taskID string) (*IndexTask, error) {
  if strings.TrimSpace(taskID) == "" {
    return nil, fmt.Errorf("taskID required")
  }
  var task IndexTask
  if err := c.do(ctx, "GET", "/tasks/"+taskID, nil, &task); err != nil {
    return nil, err
  }
  return &task, nil
}

type transcriptionResponse struct {
  Data []TranscriptionUnit `json:"data"`
}

func (c *twelveLabsClient) GetTranscription(ctx context.Context, providerVideoID string) ([]TranscriptionUnit, error) {
  if strings.TrimSpace(providerVideoID) == "" {
    return nil, fmt.Errorf("providerVideoID required")
  }
  var resp transcriptionResponse
  if err := c.do(ctx, "GET", "/indexes/"+c.indexID+"/videos/"+providerVideoID+"/transcription", nil, &resp); err != nil {
    return nil, err
  }
  return resp.Data, nil
}

type searchRequest struct {
  IndexID       string   `json:"index_id"`
  Query         string   `json:"query"`
  SearchOptions []string `json:"search_options"`
  FilterVideoID []string `json:"filter_video_ids,omitempty"`
  PageLimit     int      `json:"page_limit,omitempty"`
}

type searchResponse struct {
  Data []SearchHit `json:"data"`
}

func (c *twelveLabsClient) Search(ctx context.Context, query string, providerVideoIDs []string, limit int) ([]SearchHit, error) {
  if strings.TrimSpace(query) == "" {
    return nil, fmt.Errorf("query required")
  }
  if limit <= 0 {
    limit = 10
  }
  req := searchRequest{
    IndexID:       c.indexID,
    Query:         query,
    SearchOptions: []string{"visual", "conversation"},
    FilterVideoID: providerVideoIDs,
    PageLimit:     limit,
  }
  var resp searchResponse
  if err := c.do(ctx, "POST", "/search", req, &resp); err != nil {
    return nil, err
  }
  return resp.Data, nil
}
