package youtube

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/tubedash/internal/model"
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *bytes.Buffer) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	var buf bytes.Buffer
	c := NewClient(server.Client(), newTestLogger(&buf), "test-key", ClientOptions{Endpoint: server.URL})
	return c, &buf
}

type metricsRecorder struct {
	calls []string
	pages int
}

func (m *metricsRecorder) RecordAPICall(op string, status int) {
	m.calls = append(m.calls, fmt.Sprintf("%s:%d", op, status))
}
func (m *metricsRecorder) RecordAPILatency(string, time.Duration) {}
func (m *metricsRecorder) RecordPagesListed(n int)               { m.pages += n }
func (m *metricsRecorder) RecordVideosCollected(int)             {}
func (m *metricsRecorder) RecordPipelineRun(string)              {}
func (m *metricsRecorder) SetActiveSessions(int)                 {}

func TestNewClient_Defaults(t *testing.T) {
	var buf bytes.Buffer
	c := NewClient(http.DefaultClient, newTestLogger(&buf), "k", ClientOptions{})
	if c.endpoint != DefaultEndpoint {
		t.Errorf("endpoint = %q, want %q", c.endpoint, DefaultEndpoint)
	}
	if c.limiter != nil {
		t.Error("limiter should be nil when QPS is 0")
	}

	c = NewClient(http.DefaultClient, newTestLogger(&buf), "k", ClientOptions{QPS: 5})
	if c.limiter == nil {
		t.Error("limiter should be set when QPS > 0")
	}
}

func TestClient_FetchChannelSummary(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/channels" {
			t.Errorf("path = %s, want /channels", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("id") != "UC123" {
			t.Errorf("id = %s, want UC123", q.Get("id"))
		}
		if q.Get("key") != "test-key" {
			t.Errorf("key = %s, want test-key", q.Get("key"))
		}
		if q.Get("part") != "snippet,contentDetails,statistics" {
			t.Errorf("part = %s", q.Get("part"))
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"items":[{"id":"UC123","snippet":{"title":"My Channel"},
			"contentDetails":{"relatedPlaylists":{"uploads":"UU123"}},
			"statistics":{"viewCount":"1000","subscriberCount":"50","videoCount":"12"}}]}`)
	})

	got, err := c.FetchChannelSummary(context.Background(), "UC123")
	if err != nil {
		t.Fatalf("FetchChannelSummary returned error: %v", err)
	}
	if got.Name != "My Channel" || got.UploadsPlaylistID != "UU123" {
		t.Errorf("summary = %+v", got)
	}
	if v, ok := got.SubscriberCount.Get(); !ok || v != 50 {
		t.Errorf("SubscriberCount = %+v, want 50", got.SubscriberCount)
	}
	if v, ok := got.ViewCount.Get(); !ok || v != 1000 {
		t.Errorf("ViewCount = %+v, want 1000", got.ViewCount)
	}
	if v, ok := got.VideoCount.Get(); !ok || v != 12 {
		t.Errorf("VideoCount = %+v, want 12", got.VideoCount)
	}
}

func TestClient_FetchChannelSummary_HiddenSubscribers(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"items":[{"id":"UC1","snippet":{"title":"C"},
			"contentDetails":{"relatedPlaylists":{"uploads":"UU1"}},
			"statistics":{"viewCount":"10","hiddenSubscriberCount":true,"videoCount":"1"}}]}`)
	})

	got, err := c.FetchChannelSummary(context.Background(), "UC1")
	if err != nil {
		t.Fatalf("FetchChannelSummary returned error: %v", err)
	}
	if got.SubscriberCount.Valid {
		t.Errorf("SubscriberCount = %+v, want missing", got.SubscriberCount)
	}
}

func TestClient_FetchChannelSummary_NotFound(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"pageInfo":{"totalResults":0}}`)
	})

	_, err := c.FetchChannelSummary(context.Background(), "UCnope")
	if !errors.Is(err, model.ErrChannelNotFound) {
		t.Fatalf("error = %v, want ErrChannelNotFound", err)
	}
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeChannelNotFound {
		t.Errorf("error = %#v, want APIError with CHANNEL_NOT_FOUND", err)
	}
}

func TestClient_FetchChannelSummary_MultipleRowsUsesFirst(t *testing.T) {
	c, buf := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"items":[
			{"id":"A","snippet":{"title":"first"},"contentDetails":{"relatedPlaylists":{"uploads":"UUA"}},"statistics":{}},
			{"id":"B","snippet":{"title":"second"},"contentDetails":{"relatedPlaylists":{"uploads":"UUB"}},"statistics":{}}]}`)
	})

	got, err := c.FetchChannelSummary(context.Background(), "A")
	if err != nil {
		t.Fatalf("FetchChannelSummary returned error: %v", err)
	}
	if got.Name != "first" {
		t.Errorf("Name = %q, want first", got.Name)
	}
	if !strings.Contains(buf.String(), "multiple rows") {
		t.Errorf("expected a warning log, got: %s", buf.String())
	}
}

func TestClient_FetchChannelSummary_InvalidCount(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"items":[{"id":"UC1","snippet":{"title":"C"},
			"contentDetails":{"relatedPlaylists":{"uploads":"UU1"}},
			"statistics":{"viewCount":"lots"}}]}`)
	})

	_, err := c.FetchChannelSummary(context.Background(), "UC1")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeInvalidCount {
		t.Fatalf("error = %v, want INVALID_COUNT", err)
	}
}

func TestClient_ListPlaylistItemIDs(t *testing.T) {
	m := &metricsRecorder{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.URL.Path != "/playlistItems" {
			t.Errorf("path = %s, want /playlistItems", r.URL.Path)
		}
		if q.Get("playlistId") != "UU1" || q.Get("maxResults") != "50" {
			t.Errorf("query = %v", q)
		}
		if q.Get("pageToken") != "" {
			fmt.Fprint(w, `{"items":[{"contentDetails":{"videoId":"v3"}}]}`)
			return
		}
		fmt.Fprint(w, `{"nextPageToken":"tok2","items":[
			{"contentDetails":{"videoId":"v1"}},{"contentDetails":{"videoId":"v2"}}]}`)
	}))
	defer server.Close()

	var buf bytes.Buffer
	c := NewClient(server.Client(), newTestLogger(&buf), "k", ClientOptions{Endpoint: server.URL, Metrics: m})

	page, err := c.ListPlaylistItemIDs(context.Background(), "UU1", 50, "")
	if err != nil {
		t.Fatalf("ListPlaylistItemIDs returned error: %v", err)
	}
	if len(page.Items) != 2 || page.Items[0] != "v1" || page.NextToken != "tok2" {
		t.Errorf("page 1 = %+v", page)
	}

	page, err = c.ListPlaylistItemIDs(context.Background(), "UU1", 50, "tok2")
	if err != nil {
		t.Fatalf("ListPlaylistItemIDs returned error: %v", err)
	}
	if len(page.Items) != 1 || page.NextToken != "" {
		t.Errorf("page 2 = %+v", page)
	}
	if m.pages != 2 {
		t.Errorf("pages recorded = %d, want 2", m.pages)
	}
}

func TestClient_ListPlaylistItemIDs_ClampsPageSize(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("maxResults"); got != "50" {
			t.Errorf("maxResults = %s, want 50", got)
		}
		fmt.Fprint(w, `{"items":[]}`)
	})

	if _, err := c.ListPlaylistItemIDs(context.Background(), "UU1", 500, ""); err != nil {
		t.Fatalf("ListPlaylistItemIDs returned error: %v", err)
	}
}

func TestClient_FetchVideoDetails(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/videos" {
			t.Errorf("path = %s, want /videos", r.URL.Path)
		}
		if got := r.URL.Query().Get("id"); got != "a,b" {
			t.Errorf("id = %s, want a,b", got)
		}
		fmt.Fprint(w, `{"items":[{"id":"a","statistics":{"viewCount":"5"}},{"id":"b"}]}`)
	})

	items, err := c.FetchVideoDetails(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("FetchVideoDetails returned error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len(items) = %d, want 2", len(items))
	}
	if items[0]["id"] != "a" {
		t.Errorf("items[0].id = %v, want a", items[0]["id"])
	}
}

func TestClient_FetchVideoDetails_EmptyIDs(t *testing.T) {
	var buf bytes.Buffer
	c := NewClient(http.DefaultClient, newTestLogger(&buf), "k", ClientOptions{})

	items, err := c.FetchVideoDetails(context.Background(), nil)
	if err != nil {
		t.Fatalf("FetchVideoDetails(nil) returned error: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("len(items) = %d, want 0", len(items))
	}
}

func TestClient_FetchVideoDetails_TooManyIDs(t *testing.T) {
	var buf bytes.Buffer
	c := NewClient(http.DefaultClient, newTestLogger(&buf), "k", ClientOptions{})

	ids := make([]string, MaxIDsPerRequest+1)
	for i := range ids {
		ids[i] = fmt.Sprintf("v%d", i)
	}
	if _, err := c.FetchVideoDetails(context.Background(), ids); err == nil {
		t.Fatal("expected an error for more than 50 ids")
	}
}

func TestClient_ErrorStatus(t *testing.T) {
	m := &metricsRecorder{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"error":{"code":403,"message":"quota exhausted","errors":[{"reason":"quotaExceeded"}]}}`)
	}))
	defer server.Close()

	var buf bytes.Buffer
	c := NewClient(server.Client(), newTestLogger(&buf), "secret-key", ClientOptions{Endpoint: server.URL, Metrics: m})

	_, err := c.FetchVideoDetails(context.Background(), []string{"a"})
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *model.APIError", err)
	}
	if apiErr.Code != model.ErrCodeFetchFailed {
		t.Errorf("Code = %s, want FETCH_FAILED", apiErr.Code)
	}
	if !strings.Contains(apiErr.Message, "403") || !strings.Contains(apiErr.Message, "quotaExceeded") {
		t.Errorf("Message = %q, want status and reason", apiErr.Message)
	}
	if len(m.calls) != 1 || m.calls[0] != "videos:403" {
		t.Errorf("recorded calls = %v, want [videos:403]", m.calls)
	}
	if strings.Contains(buf.String(), "secret-key") {
		t.Error("API key leaked into logs")
	}
}

func TestClient_MalformedJSON(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"items": [`)
	})

	_, err := c.FetchVideoDetails(context.Background(), []string{"a"})
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeProtocolError {
		t.Fatalf("error = %v, want PROTOCOL_ERROR", err)
	}
}

func TestClient_TransportErrorDoesNotLeakKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := server.URL
	server.Close()

	var buf bytes.Buffer
	c := NewClient(http.DefaultClient, newTestLogger(&buf), "secret-key", ClientOptions{Endpoint: endpoint})

	_, err := c.FetchChannelSummary(context.Background(), "UC1")
	if err == nil {
		t.Fatal("expected an error for a closed server")
	}
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeFetchFailed {
		t.Errorf("error = %v, want FETCH_FAILED", err)
	}
	if strings.Contains(err.Error(), "secret-key") || strings.Contains(buf.String(), "secret-key") {
		t.Error("API key leaked into error or logs")
	}
}

func TestErrorReason(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{`{"error":{"message":"bad","errors":[{"reason":"keyInvalid"}]}}`, "keyInvalid: bad"},
		{`{"error":{"errors":[{"reason":"keyInvalid"}]}}`, "keyInvalid"},
		{`{"error":{"message":"bad"}}`, "bad"},
		{`not json`, ""},
	}
	for _, tt := range tests {
		if got := errorReason([]byte(tt.body)); got != tt.want {
			t.Errorf("errorReason(%s) = %q, want %q", tt.body, got, tt.want)
		}
	}
}
