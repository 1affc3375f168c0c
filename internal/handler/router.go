// Package handler wires the HTTP surface: the input form, the analysis
// action, the session dashboard and its exports.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/tubedash/internal/middleware"
)

// RouterDeps holds the dependencies of NewRouter.
type RouterDeps struct {
	Logger *slog.Logger

	// Middleware
	RateLimiter *middleware.RateLimiter // limits POST /analyze; nil disables
	CSRF        middleware.CSRFConfig

	// Analysis
	Analyzer Analyzer
	Sessions SessionStore

	// Metrics serves /metrics; nil leaves the route unregistered.
	Metrics http.Handler
}

// NewRouter returns the chi router with every route and the middleware chain.
//
// Middleware order:
//
//	Recovery → Logging → SecurityHeaders → CSRF
//
// /health and /metrics sit outside the CSRF group.
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())

	r.Get("/health", Health)
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics)
	}

	h := NewDashboardHandler(deps.Analyzer, deps.Sessions)

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewCSRFMiddleware(deps.CSRF))

		r.Get("/", h.Index)

		analyze := r.With()
		if deps.RateLimiter != nil {
			analyze = r.With(deps.RateLimiter.Middleware())
		}
		analyze.Post("/analyze", h.Analyze)

		r.Route("/dashboard/{id}", func(r chi.Router) {
			r.Get("/", h.Dashboard)
			r.Get("/charts", h.Charts)
			r.Get("/report.png", h.ReportPNG)
		})

		r.Get("/api/sessions/{id}/videos", h.Videos)
	})

	return r
}
