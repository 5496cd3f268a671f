package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func newTwelveLabsForTest(t *testing.T, baseURL string) VideoIndexClient {
	t.Helper()
	t.Setenv("TWELVELABS_API_KEY", "test-key")
	t.Setenv("TWELVELABS_INDEX_ID", "idx-1")
	t.Setenv("TWELVELABS_BASE_URL", baseURL)
	t.Setenv("TWELVELABS_MAX_RETRIES", "2")
	client, err := NewTwelveLabsClient(testLogger(t))
	if err != nil {
		t.Fatalf("NewTwelveLabsClient: %v", err)
	}
	return client
}

func TestTwelveLabs_CreateTask(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tasks" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("x-api-key"); got != "test-key" {
			t.Errorf("missing api key header, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"_id":"task-42","video_id":"pv-42","status":"pending"}`))
	}))
	defer srv.Close()

	client := newTwelveLabsForTest(t, srv.URL)
	task, err := client.CreateTask(context.Background(), "https://example.com/v.mp4")
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if task.ID != "task-42" || task.VideoID != "pv-42" || task.Status != "pending" {
		t.Fatalf("unexpected task: %+v", task)
	}
}

func TestTwelveLabs_RetriesOn500(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"_id":"task-1","video_id":"pv-1","status":"ready"}`))
	}))
	defer srv.Close()

	client := newTwelveLabsForTest(t, srv.URL)
	task, err := client.GetTask(context.Background(), "task-1")
	if err != nil {
		t.Fatalf("GetTask should retry past a 500: %v", err)
	}
	if task.Status != "ready" {
		t.Fatalf("unexpected task: %+v", task)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}

func TestTwelveLabs_NoRetryOn400(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"bad index"}`))
	}))
	defer srv.Close()

	client := newTwelveLabsForTest(t, srv.URL)
	if _, err := client.GetTask(context.Background(), "task-1"); err == nil {
		t.Fatalf("expected error for 400")
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("400 must not be retried, got %d calls", calls)
	}
}

func TestTwelveLabs_GetTranscription(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/indexes/idx-1/videos/pv-1/transcription" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"data":[{"start":0,"end":12.5,"value":"hello","confidence":0.91},{"start":12.5,"end":20,"value":"world"}]}`))
	}))
	defer srv.Close()

	client := newTwelveLabsForTest(t, srv.URL)
	units, err := client.GetTranscription(context.Background(), "pv-1")
	if err != nil {
		t.Fatalf("GetTranscription: %v", err)
	}
	if len(units) != 2 || units[1].Value != "world" || units[0].End != 12.5 {
		t.Fatalf("unexpected units: %+v", units)
	}
	if units[0].Confidence != 0.91 || units[1].Confidence != 0 {
		t.Fatalf("confidence not decoded: %+v", units)
	}
}
