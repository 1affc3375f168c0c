package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/tubedash/internal/dashboard"
	"github.com/hitoshi/tubedash/internal/middleware"
	"github.com/hitoshi/tubedash/internal/model"
	"github.com/hitoshi/tubedash/internal/pipeline"
	"github.com/hitoshi/tubedash/internal/report"
)

// Analyzer runs one channel analysis with a caller-supplied API key.
type Analyzer interface {
	Analyze(ctx context.Context, apiKey, channelID string) (*pipeline.Result, error)
}

// SessionStore holds analysis results between requests.
type SessionStore interface {
	Put(result *pipeline.Result) string
	Get(id string) (*pipeline.Result, bool)
}

// Form field names of the input form.
const (
	formAPIKey    = "api_key"
	formChannelID = "channel_id"
)

// DashboardHandler serves the input form, the analysis action and the
// session-scoped dashboard views.
type DashboardHandler struct {
	analyzer Analyzer
	sessions SessionStore
}

// NewDashboardHandler creates a DashboardHandler.
func NewDashboardHandler(analyzer Analyzer, sessions SessionStore) *DashboardHandler {
	return &DashboardHandler{
		analyzer: analyzer,
		sessions: sessions,
	}
}

// Index renders the input form.
// GET /
func (h *DashboardHandler) Index(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, http.StatusOK, dashboard.FormData{CSRFToken: middleware.CSRFToken(r)})
}

// Analyze validates the form, runs the analysis and redirects to the new session.
// POST /analyze
func (h *DashboardHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	apiKey := strings.TrimSpace(r.PostFormValue(formAPIKey))
	channelID := strings.TrimSpace(r.PostFormValue(formChannelID))
	form := dashboard.FormData{
		CSRFToken: middleware.CSRFToken(r),
		ChannelID: channelID,
	}

	// The key is checked first, so a blank form asks for the key.
	if apiKey == "" {
		h.renderFormError(w, form, model.NewMissingCredentialError())
		return
	}
	if channelID == "" {
		h.renderFormError(w, form, model.NewMissingChannelIDError())
		return
	}

	result, err := h.analyzer.Analyze(r.Context(), apiKey, channelID)
	if err != nil {
		h.renderFormError(w, form, err)
		return
	}

	id := h.sessions.Put(result)
	slog.Info("analysis stored",
		slog.String("session_id", id),
		slog.String("channel_id", channelID),
		slog.Int("videos", len(result.Videos)),
	)
	http.Redirect(w, r, "/dashboard/"+id, http.StatusSeeOther)
}

// Dashboard renders the dashboard page for a session and window.
// GET /dashboard/{id}?from=&to=
func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	form := dashboard.FormData{CSRFToken: middleware.CSRFToken(r)}

	view, err := h.view(r)
	if err != nil {
		h.renderFormError(w, form, err)
		return
	}
	form.ChannelID = view.Channel.ID

	var buf bytes.Buffer
	if err := dashboard.RenderPage(&buf, dashboard.PageData{Form: form, View: view}); err != nil {
		slog.Error("failed to render dashboard", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}
	writeHTML(w, http.StatusOK, buf.Bytes())
}

// Charts renders the interactive chart page embedded by the dashboard.
// GET /dashboard/{id}/charts?from=&to=
func (h *DashboardHandler) Charts(w http.ResponseWriter, r *http.Request) {
	view, err := h.view(r)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := dashboard.RenderCharts(&buf, view); err != nil {
		slog.Error("failed to render charts", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}
	writeHTML(w, http.StatusOK, buf.Bytes())
}

// ReportPNG exports the top viewed videos of the window as a PNG bar chart.
// GET /dashboard/{id}/report.png?from=&to=
func (h *DashboardHandler) ReportPNG(w http.ResponseWriter, r *http.Request) {
	view, err := h.view(r)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	var buf bytes.Buffer
	windowed := &pipeline.Result{
		Channel: model.ChannelSummary{ID: view.Channel.ID, Name: view.Channel.Name},
		Videos:  view.Records,
	}
	if err := report.WriteViewsPNG(&buf, windowed); err != nil {
		if errors.Is(err, report.ErrNoVideos) {
			handleServiceError(w, errNoVideos)
			return
		}
		slog.Error("failed to render report", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", `inline; filename="report.png"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// Videos returns the session's channel summary and video records as JSON.
// GET /api/sessions/{id}/videos
func (h *DashboardHandler) Videos(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	result, ok := h.sessions.Get(id)
	if !ok {
		handleServiceError(w, model.NewSessionNotFoundError(id))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(result)
}

// view loads the session named in the path and narrows it to the requested window.
func (h *DashboardHandler) view(r *http.Request) (*dashboard.View, error) {
	id := chi.URLParam(r, "id")
	result, ok := h.sessions.Get(id)
	if !ok {
		return nil, model.NewSessionNotFoundError(id)
	}

	from, to, err := parseWindow(r)
	if err != nil {
		return nil, err
	}

	view, err := dashboard.BuildView(result, from, to)
	if err != nil {
		return nil, err
	}
	view.SessionID = id
	return view, nil
}

// parseWindow reads the from and to query parameters. Absent values select
// the whole range.
func parseWindow(r *http.Request) (int, int, error) {
	from, to := 0, dashboard.Unbounded
	q := r.URL.Query()

	if s := q.Get("from"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return 0, 0, model.NewInvalidWindowError("from must be a non-negative integer")
		}
		from = n
	}
	if s := q.Get("to"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return 0, 0, model.NewInvalidWindowError("to must be a non-negative integer")
		}
		to = n
	}
	return from, to, nil
}

// renderFormError re-renders the input form with err as a blocking prompt.
func (h *DashboardHandler) renderFormError(w http.ResponseWriter, form dashboard.FormData, err error) {
	apiErr, status := toAPIError(err)
	form.Warning = apiErr.Message
	form.Action = apiErr.Action
	h.renderForm(w, status, form)
}

func (h *DashboardHandler) renderForm(w http.ResponseWriter, status int, form dashboard.FormData) {
	var buf bytes.Buffer
	if err := dashboard.RenderForm(&buf, form); err != nil {
		slog.Error("failed to render form", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}
	writeHTML(w, status, buf.Bytes())
}

func writeHTML(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(body)
}
