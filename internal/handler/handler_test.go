package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hitoshi/tubedash/internal/middleware"
	"github.com/hitoshi/tubedash/internal/model"
	"github.com/hitoshi/tubedash/internal/pipeline"
)

const testCSRFToken = "test-csrf-token"

// --- mocks ---

type mockAnalyzer struct {
	analyzeFn func(ctx context.Context, apiKey, channelID string) (*pipeline.Result, error)
}

func (m *mockAnalyzer) Analyze(ctx context.Context, apiKey, channelID string) (*pipeline.Result, error) {
	return m.analyzeFn(ctx, apiKey, channelID)
}

type fakeSessions struct {
	mu      sync.Mutex
	entries map[string]*pipeline.Result
	nextID  string
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{entries: make(map[string]*pipeline.Result), nextID: "sess-1"}
}

func (f *fakeSessions) Put(result *pipeline.Result) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[f.nextID] = result
	return f.nextID
}

func (f *fakeSessions) Get(id string) (*pipeline.Result, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.entries[id]
	return r, ok
}

// --- helpers ---

func testResult(n int) *pipeline.Result {
	res := &pipeline.Result{
		Channel: model.ChannelSummary{
			ID:              "UC1",
			Name:            "Test Channel",
			SubscriberCount: model.Some[int64](1200),
			ViewCount:       model.Some[int64](50000),
			VideoCount:      model.Some(int64(n)),
		},
		Videos: []model.VideoRecord{},
	}
	for i := n - 1; i >= 0; i-- {
		res.Videos = append(res.Videos, model.VideoRecord{
			ID:                    fmt.Sprintf("v%02d", i),
			Title:                 model.Some(fmt.Sprintf("Episode %d", i)),
			ShortTitle:            fmt.Sprintf("Episode %d", i),
			Tags:                  model.Some([]string{"go"}),
			TagCount:              1,
			ViewCount:             model.Some(int64(100 * (i + 1))),
			LikeCount:             model.Some(int64(i + 1)),
			CommentCount:          model.Some(int64(i)),
			DurationSeconds:       int64(60 * (i + 1)),
			DurationMinutes:       float64(i + 1),
			PublishedDate:         time.Date(2024, 3, 1+i, 0, 0, 0, 0, time.UTC),
			PublishedTime:         "10:00:00",
			DayOfWeek:             i % 7,
			PublishedHour:         10,
			PublishedHourAdjusted: 15,
		})
	}
	return res
}

func newTestRouter(analyzer Analyzer, sessions SessionStore) http.Handler {
	return NewRouter(&RouterDeps{
		Analyzer: analyzer,
		Sessions: sessions,
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("# metrics"))
		}),
	})
}

func postAnalyze(router http.Handler, apiKey, channelID string) *httptest.ResponseRecorder {
	form := url.Values{}
	form.Set("csrf_token", testCSRFToken)
	form.Set("api_key", apiKey)
	form.Set("channel_id", channelID)

	req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: "csrf_token", Value: testCSRFToken})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func get(router http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func failIfCalled(t *testing.T) *mockAnalyzer {
	return &mockAnalyzer{
		analyzeFn: func(ctx context.Context, apiKey, channelID string) (*pipeline.Result, error) {
			t.Error("analyzer should not be called")
			return nil, nil
		},
	}
}

// --- tests ---

func TestIndex_RendersFormAndSetsCSRFCookie(t *testing.T) {
	router := newTestRouter(failIfCalled(t), newFakeSessions())

	w := get(router, "/")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, `action="/analyze"`) {
		t.Error("form should post to /analyze")
	}
	var token string
	for _, c := range w.Result().Cookies() {
		if c.Name == "csrf_token" {
			token = c.Value
		}
	}
	if token == "" {
		t.Fatal("expected csrf_token cookie")
	}
	if !strings.Contains(body, token) {
		t.Error("form should embed the csrf token")
	}
	if got := w.Header().Get("X-Frame-Options"); got != "SAMEORIGIN" {
		t.Errorf("X-Frame-Options = %q, want SAMEORIGIN", got)
	}
}

func TestAnalyze_RejectsMissingCSRFToken(t *testing.T) {
	router := newTestRouter(failIfCalled(t), newFakeSessions())

	form := url.Values{"api_key": {"k"}, "channel_id": {"UC1"}}
	req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
}

func TestAnalyze_MissingAPIKey(t *testing.T) {
	router := newTestRouter(failIfCalled(t), newFakeSessions())

	// Both fields blank: the key prompt comes first.
	w := postAnalyze(router, "  ", "")

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Please enter your YouTube API key.") {
		t.Errorf("body should prompt for the API key:\n%s", w.Body.String())
	}
}

func TestAnalyze_MissingChannelID(t *testing.T) {
	router := newTestRouter(failIfCalled(t), newFakeSessions())

	w := postAnalyze(router, "key", "")

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Please enter your YouTube channel ID.") {
		t.Errorf("body should prompt for the channel id:\n%s", w.Body.String())
	}
}

func TestAnalyze_Success_RedirectsToSession(t *testing.T) {
	var gotKey, gotChannel string
	analyzer := &mockAnalyzer{
		analyzeFn: func(ctx context.Context, apiKey, channelID string) (*pipeline.Result, error) {
			gotKey, gotChannel = apiKey, channelID
			return testResult(3), nil
		},
	}
	sessions := newFakeSessions()
	router := newTestRouter(analyzer, sessions)

	w := postAnalyze(router, " key-1 ", " UC1 ")

	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/dashboard/sess-1" {
		t.Errorf("Location = %q, want /dashboard/sess-1", loc)
	}
	if gotKey != "key-1" || gotChannel != "UC1" {
		t.Errorf("analyzer got (%q, %q), want trimmed values", gotKey, gotChannel)
	}
	if _, ok := sessions.Get("sess-1"); !ok {
		t.Error("result should be stored in the session store")
	}
}

func TestAnalyze_ErrorStatuses(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		text   string
	}{
		{"channel not found", model.NewChannelNotFoundError("UCX"), http.StatusNotFound, "No channel found for id: UCX"},
		{"fetch failed", model.NewFetchFailedError("videos", 403, "quotaExceeded", nil), http.StatusBadGateway, "quotaExceeded"},
		{"invalid duration", model.NewInvalidDataError(model.ErrCodeInvalidDuration, "v1", fmt.Errorf("bad")), http.StatusUnprocessableEntity, "Malformed data for video v1"},
		{"unexpected", fmt.Errorf("boom"), http.StatusInternalServerError, "An internal error occurred."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analyzer := &mockAnalyzer{
				analyzeFn: func(ctx context.Context, apiKey, channelID string) (*pipeline.Result, error) {
					return nil, tt.err
				},
			}
			router := newTestRouter(analyzer, newFakeSessions())

			w := postAnalyze(router, "key", "UCX")

			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
			if !strings.Contains(w.Body.String(), tt.text) {
				t.Errorf("body should contain %q", tt.text)
			}
		})
	}
}

func TestAnalyze_RateLimited(t *testing.T) {
	rl := middleware.NewRateLimiter(middleware.RateLimiterConfig{Rate: 0.01, Burst: 1, CleanupInterval: time.Minute})
	defer rl.Stop()

	analyzer := &mockAnalyzer{
		analyzeFn: func(ctx context.Context, apiKey, channelID string) (*pipeline.Result, error) {
			return testResult(1), nil
		},
	}
	router := NewRouter(&RouterDeps{Analyzer: analyzer, Sessions: newFakeSessions(), RateLimiter: rl})

	if w := postAnalyze(router, "key", "UC1"); w.Code != http.StatusSeeOther {
		t.Fatalf("first request status = %d, want 303", w.Code)
	}
	if w := postAnalyze(router, "key", "UC1"); w.Code != http.StatusTooManyRequests {
		t.Errorf("second request status = %d, want 429", w.Code)
	}
}

func TestDashboard_RendersSession(t *testing.T) {
	sessions := newFakeSessions()
	sessions.Put(testResult(12))
	router := newTestRouter(failIfCalled(t), sessions)

	w := get(router, "/dashboard/sess-1")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{
		"Test Channel",
		"1,200",
		"From: <b>2024-03-01</b> To: <b>2024-03-12</b>",
		"/dashboard/sess-1/charts?from=0&amp;to=11",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body should contain %q", want)
		}
	}
}

func TestDashboard_Window(t *testing.T) {
	sessions := newFakeSessions()
	sessions.Put(testResult(12))
	router := newTestRouter(failIfCalled(t), sessions)

	w := get(router, "/dashboard/sess-1?from=2&to=4")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "(3 of 12 videos)") {
		t.Error("window should hold 3 of 12 videos")
	}
}

func TestDashboard_InvalidWindow(t *testing.T) {
	sessions := newFakeSessions()
	sessions.Put(testResult(12))
	router := newTestRouter(failIfCalled(t), sessions)

	for _, path := range []string{
		"/dashboard/sess-1?from=5&to=2",
		"/dashboard/sess-1?from=abc",
		"/dashboard/sess-1?to=-1",
	} {
		if w := get(router, path); w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", path, w.Code)
		}
	}
}

func TestDashboard_EmptyChannel(t *testing.T) {
	sessions := newFakeSessions()
	sessions.Put(testResult(0))
	router := newTestRouter(failIfCalled(t), sessions)

	w := get(router, "/dashboard/sess-1")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "No videos found") {
		t.Error("empty channel should render 'No videos found'")
	}
}

func TestDashboard_UnknownSession(t *testing.T) {
	router := newTestRouter(failIfCalled(t), newFakeSessions())

	w := get(router, "/dashboard/missing")

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Session not found or expired: missing") {
		t.Error("body should explain the missing session")
	}
}

func TestCharts_RendersPage(t *testing.T) {
	sessions := newFakeSessions()
	sessions.Put(testResult(12))
	router := newTestRouter(failIfCalled(t), sessions)

	w := get(router, "/dashboard/sess-1/charts?from=0&to=11")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q, want text/html", ct)
	}
	if !strings.Contains(w.Body.String(), "Highest Viewed Videos") {
		t.Error("chart page should contain the highest viewed chart")
	}
}

func TestCharts_UnknownSessionIsJSON(t *testing.T) {
	router := newTestRouter(failIfCalled(t), newFakeSessions())

	w := get(router, "/dashboard/missing/charts")

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	var body middleware.ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Code != model.ErrCodeSessionNotFound {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeSessionNotFound)
	}
}

func TestReportPNG(t *testing.T) {
	sessions := newFakeSessions()
	sessions.Put(testResult(12))
	router := newTestRouter(failIfCalled(t), sessions)

	w := get(router, "/dashboard/sess-1/report.png")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q, want image/png", ct)
	}
	if !strings.HasPrefix(w.Body.String(), "\x89PNG") {
		t.Error("body should be a PNG image")
	}
}

func TestReportPNG_EmptyChannel(t *testing.T) {
	sessions := newFakeSessions()
	sessions.Put(testResult(0))
	router := newTestRouter(failIfCalled(t), sessions)

	w := get(router, "/dashboard/sess-1/report.png")

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestVideos_ReturnsJSON(t *testing.T) {
	sessions := newFakeSessions()
	sessions.Put(testResult(3))
	router := newTestRouter(failIfCalled(t), sessions)

	w := get(router, "/api/sessions/sess-1/videos")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body struct {
		Channel map[string]any   `json:"channel"`
		Videos  []map[string]any `json:"videos"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if len(body.Videos) != 3 {
		t.Errorf("len(videos) = %d, want 3", len(body.Videos))
	}
	if body.Videos[0]["video_id"] != "v02" {
		t.Errorf("first video = %v, want v02", body.Videos[0]["video_id"])
	}
}

func TestVideos_UnknownSession(t *testing.T) {
	router := newTestRouter(failIfCalled(t), newFakeSessions())

	if w := get(router, "/api/sessions/missing/videos"); w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	router := newTestRouter(failIfCalled(t), newFakeSessions())

	w := get(router, "/health")
	if w.Code != http.StatusOK {
		t.Errorf("/health status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Errorf("/health body = %s", w.Body.String())
	}

	if w := get(router, "/metrics"); w.Code != http.StatusOK {
		t.Errorf("/metrics status = %d, want 200", w.Code)
	}
}

func TestMapAPIErrorToHTTPStatus(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{model.ErrCodeMissingCredential, http.StatusBadRequest},
		{model.ErrCodeMissingChannelID, http.StatusBadRequest},
		{model.ErrCodeChannelNotFound, http.StatusNotFound},
		{model.ErrCodeSessionNotFound, http.StatusNotFound},
		{model.ErrCodeInvalidDuration, http.StatusUnprocessableEntity},
		{model.ErrCodeInvalidTimestamp, http.StatusUnprocessableEntity},
		{model.ErrCodeInvalidCount, http.StatusUnprocessableEntity},
		{model.ErrCodeFetchFailed, http.StatusBadGateway},
		{model.ErrCodeProtocolError, http.StatusBadGateway},
		{model.ErrCodeInvalidWindow, http.StatusBadRequest},
		{"SOMETHING_ELSE", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := mapAPIErrorToHTTPStatus(&model.APIError{Code: tt.code}); got != tt.want {
			t.Errorf("%s: status = %d, want %d", tt.code, got, tt.want)
		}
	}
}
