package services

import (
  "bytes"
  "context"
  "encoding/json"
  "fmt"
  "io"
  "net/http"
  "os"
  "strconv"
  "strings"
  "time"

  "github.com/yungbote/medtrain-backend/internal/logger"
)

// TextGenClient produces free-form text from a prompt. Used for video tag
// suggestions, transcript Q&A and quiz generation.
type TextGenClient interface {
  GenerateText(ctx context.Context, prompt string) (string, error)
  GenerateTags(ctx context.Context, title, description, transcript string) ([]string, error)
}

type geminiClient struct {
  log        *logger.Logger
  baseURL    string
  apiKey     string
  model      string
  httpClient *http.Client

  maxRetries int
}

func NewGeminiClient(log *logger.Logger) (TextGenClient, error) {
  apiKey := os.Getenv("GEMINI_API_KEY")
  if apiKey == "" {
    return nil, fmt.Errorf("missing GEMINI_API_KEY")
  }

  baseURL := os.Getenv("GEMINI_BASE_URL")
  if baseURL == "" {
    baseURL = "https://generativelanguage.googleapis.com/v1beta"
  }

  model := os.Getenv("GEMINI_MODEL")
  if model == "" {
    model = "gemini-1.5-flash"
  }

  timeoutSec := 60
  if v := os.Getenv("GEMINI_TIMEOUT_SECONDS"); v != "" {
    if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed > 0 {
      timeoutSec = parsed
    }
  }

  maxRetries := 3
  if v := os.Getenv("GEMINI_MAX_RETRIES"); v != "" {
    if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed >= 0 {
      maxRetries = parsed
    }
  }

  return &geminiClient{
    log:        log.With("service", "GeminiClient"),
    baseURL:    strings.TrimRight(baseURL, "/"),
    apiKey:     apiKey,
    model:      model,
    httpClient: &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
    maxRetries: maxRetries,
  }, nil
}

type geminiPart struct {
  Text string `json:"text"`
}

type geminiContent struct {
  Parts []geminiPart `json:"parts"`
  Role  string       `json:"role,omitempty"`
}

type generateContentRequest struct {
  Contents []geminiContent `json:"contents"`
}

type generateContentResponse struct {
  Candidates []struct {
    Content geminiContent `json:"content"`
  } `json:"candidates"`
}

func (c *geminiClient) doOnce(ctx context.Context, path string, body any) (*http.Response, []byte, error) {
  var buf bytes.Buffer
  if err := json.NewEncoder(&buf).Encode(body); err != nil {
    return nil, nil, err
  }

  req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, &buf)
  if err != nil {
    return nil, nil, err
  }
  req.Header.Set("x-goog-api-key", c.apiKey)
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

func (c *geminiClient) GenerateText(ctx context.Context, prompt string) (string, error) {
  if strings.TrimSpace(prompt) == "" {
    return "", fmt.Errorf("prompt required")
  }

  reqBody := generateContentRequest{
    Contents: []geminiContent{
      {Parts: []geminiPart{{Text: prompt}}},
    },
  }
  path := "/models/" + c.model + ":generateContent"

  backoff := 1 * time.Second
  var lastErr error
  for attempt := 0; attempt <= c.maxRetries; attempt++ {
    if ctx.Err() != nil {
      return "", ctx.Err()
    }

    _, raw, err := c.doOnce(ctx, path, reqBody)
    if err == nil {
      var resp generateContentResponse
      if uErr := json.Unmarshal(raw, &resp); uErr != nil {
        return "", fmt.Errorf("gemini decode error: %w; raw=%s", uErr, string(raw))
      }
      if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
        return "", fmt.Errorf("gemini returned no candidates")
      }
      return resp.Candidates[0].Content.Parts[0].Text, nil
    }
    lastErr = err

    if !isRetryableErr(err) || attempt == c.maxRetries {
      return "", err
    }

    sleepFor := jitterSleep(backoff)
    c.log.Warn("Gemini request retrying",
      "attempt", attempt+1,
      "max_retries", c.maxRetries,
      "sleep", sleepFor.String(),
      "error", err.Error(),
    )
    time.Sleep(sleepFor)
    backoff *= 2
  }

  return "", lastErr
}

// GenerateTags asks the model for a short comma-separated tag list and
// splits the response. Failures here are non-fatal to indexing; callers
// treat an error as "no tags".
func (c *geminiClient) GenerateTags(ctx context.Context, title, description, transcript string) ([]string, error) {
  if len(transcript) > 4000 {
    transcript = transcript[:4000]
  }
  prompt := fmt.Sprintf(
    "Generate 5-10 short lowercase topic tags for a medical training video.\n"+
      "Title: %s\nDescription: %s\nTranscript excerpt: %s\n"+
      "Respond with only the tags, comma-separated, no numbering.",
    title, description, transcript,
  )

  text, err := c.GenerateText(ctx, prompt)
  if err != nil {
    return nil, err
  }

  parts := strings.Split(text, ",")
  tags := make([]string, 0, len(parts))
  for _, p := range parts {
    tag := strings.ToLower(strings.TrimSpace(p))
    tag = strings.Trim(tag, ".\"'")
    if tag != "" {
      tags = append(tags, tag)
    }
  }
  return tags, nil
}
