package services

import (
  "context"
  "encoding/json"
  "fmt"
  "io"
  "net/http"
  "net/url"
  "os"
  "regexp"
  "strconv"
  "strings"
  "time"

  "github.com/yungbote/medtrain-backend/internal/logger"
)

// CatalogClient searches an external video catalog for import candidates
// and fetches per-video details. Backed by the YouTube Data API.
type CatalogClient interface {
  SearchVideos(ctx context.Context, query string, maxResults int) ([]CatalogCandidate, error)
  GetVideoDetails(ctx context.Context, catalogID string) (*CatalogVideo, error)
}

type CatalogCandidate struct {
  CatalogID string
  Title     string
}

type CatalogVideo struct {
  CatalogID    string
  Title        string
  Description  string
  ChannelTitle string
  ThumbnailURL string
  WatchURL     string
  DurationSec  int
}

type youtubeClient struct {
  log        *logger.Logger
  baseURL    string
  apiKey     string
  httpClient *http.Client
}

func NewYouTubeClient(log *logger.Logger) (CatalogClient, error) {
  apiKey := os.Getenv("YOUTUBE_API_KEY")
  if apiKey == "" {
    return nil, fmt.Errorf("missing YOUTUBE_API_KEY")
  }

  baseURL := os.Getenv("YOUTUBE_BASE_URL")
  if baseURL == "" {
    baseURL = "https://www.googleapis.com/youtube/v3"
  }

  timeoutSec := 30
  if v := os.Getenv("YOUTUBE_TIMEOUT_SECONDS"); v != "" {
    if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed > 0 {
      timeoutSec = parsed
    }
  }

  return &youtubeClient{
    log:        log.With("service", "YouTubeClient"),
    baseURL:    strings.TrimRight(baseURL, "/"),
    apiKey:     apiKey,
    httpClient: &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
  }, nil
}

func (c *youtubeClient) get(ctx context.Context, path string, params url.Values, out any) error {
  params.Set("key", c.apiKey)

  req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+path+"?"+params.Encode(), nil)
  if err != nil {
    return err
  }

  resp, err := c.httpClient.Do(req)
  if err != nil {
    return err
  }
  raw, readErr := io.ReadAll(resp.Body)
  _ = resp.Body.Close()
  if readErr != nil {
    return readErr
  }

  if resp.StatusCode < 200 || resp.StatusCode >= 300 {
    return &providerHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
  }
  if err := json.Unmarshal(raw, out); err != nil {
    return fmt.Errorf("youtube decode error: %w; raw=%s", err, string(raw))
  }
  return nil
}

type youtubeSearchResponse struct {
  Items []struct {
    ID struct {
      VideoID string `json:"videoId"`
    } `json:"id"`
    Snippet struct {
      Title string `json:"title"`
    } `json:"snippet"`
  } `json:"items"`
}

func (c *youtubeClient) SearchVideos(ctx context.Context, query string, maxResults int) ([]CatalogCandidate, error) {
  if strings.TrimSpace(query) == "" {
    return nil, fmt.Errorf("query required")
  }
  if maxResults <= 0 || maxResults > 50 {
    maxResults = 25
  }

  params := url.Values{}
  params.Set("part", "snippet")
  params.Set("type", "video")
  params.Set("q", query)
  params.Set("maxResults", strconv.Itoa(maxResults))

  var resp youtubeSearchResponse
  if err := c.get(ctx, "/search", params, &resp); err != nil {
    return nil, err
  }

  candidates := make([]CatalogCandidate, 0, len(resp.Items))
  for _, item := range resp.Items {
    if item.ID.VideoID == "" {
      continue
    }
    candidates = append(candidates, CatalogCandidate{
      CatalogID: item.ID.VideoID,
      Title:     item.Snippet.Title,
    })
  }
  return candidates, nil
}

type youtubeVideosResponse struct {
  Items []struct {
    ID      string `json:"id"`
    Snippet struct {
      Title        string `json:"title"`
      Description  string `json:"description"`
      ChannelTitle string `json:"channelTitle"`
      Thumbnails   struct {
        High struct {
          URL string `json:"url"`
        } `json:"high"`
        Default struct {
          URL string `json:"url"`
        } `json:"default"`
      } `json:"thumbnails"`
    } `json:"snippet"`
    ContentDetails struct {
      Duration string `json:"duration"`
    } `json:"contentDetails"`
  } `json:"items"`
}

func (c *youtubeClient) GetVideoDetails(ctx context.Context, catalogID string) (*CatalogVideo, error) {
  if strings.TrimSpace(catalogID) == "" {
    return nil, fmt.Errorf("catalogID required")
  }

  params := url.Values{}
  params.Set("part", "snippet,contentDetails")
  params.Set("id", catalogID)

  var resp youtubeVideosResponse
  if err := c.get(ctx, "/videos", params, &resp); err != nil {
    return nil, err
  }
  if len(resp.Items) == 0 {
    return nil, fmt.Errorf("catalog video %s not found", catalogID)
  }

  item := resp.Items[0]
  thumb := item.Snippet.Thumbnails.High.URL
  if thumb == "" {
    thumb = item.Snippet.Thumbnails.Default.URL
  }

  return &CatalogVideo{
    CatalogID:    item.ID,
    Title:        item.Snippet.Title,
    Description:  item.Snippet.Description,
    ChannelTitle: item.Snippet.ChannelTitle,
    ThumbnailURL: thumb,
    WatchURL:     "https://www.youtube.com/watch?v=" + item.ID,
    DurationSec:  parseISO8601Duration(item.ContentDetails.Duration),
  }, nil
}

var iso8601DurationRe = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?$`)

// parseISO8601Duration converts the API's PT#H#M#S form to seconds.
// Unparseable input yields 0, which downstream duration filters reject.
func parseISO8601Duration(s string) int {
  m := iso8601DurationRe.FindStringSubmatch(strings.TrimSpace(s))
  if m == nil {
    return 0
  }
  total := 0
  if m[1] != "" {
    h, _ := strconv.Atoi(m[1])
    total += h * 3600
  }
  if m[2] != "" {
    min, _ := strconv.Atoi(m[2])
    total += min * 60
  }
  if m[3] != "" {
    sec, _ := strconv.Atoi(m[3])
    total += sec
  }
  return total
}
