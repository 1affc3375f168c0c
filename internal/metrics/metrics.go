// Package metrics collects and exposes Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector is the recording interface used by the API client,
// the pipeline and the session store.
type MetricsCollector interface {
	RecordAPICall(operation string, statusCode int)
	RecordAPILatency(operation string, duration time.Duration)
	RecordPagesListed(count int)
	RecordVideosCollected(count int)
	RecordPipelineRun(outcome string)
	SetActiveSessions(count int)
}

// Pipeline outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Collector implements MetricsCollector on Prometheus.
type Collector struct {
	apiCalls        *prometheus.CounterVec
	apiLatency      *prometheus.HistogramVec
	pagesListed     prometheus.Counter
	videosCollected prometheus.Counter
	pipelineRuns    *prometheus.CounterVec
	activeSessions  prometheus.Gauge
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		apiCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tubedash_api_calls_total",
			Help: "YouTube Data API calls by operation and HTTP status.",
		}, []string{"operation", "status_code"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tubedash_api_latency_seconds",
			Help:    "YouTube Data API call latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		pagesListed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tubedash_playlist_pages_total",
			Help: "Upload playlist pages listed.",
		}),
		videosCollected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tubedash_videos_collected_total",
			Help: "Video records produced by the pipeline.",
		}),
		pipelineRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tubedash_pipeline_runs_total",
			Help: "Pipeline runs by outcome.",
		}, []string{"outcome"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tubedash_active_sessions",
			Help: "Dashboard sessions currently held in memory.",
		}),
	}

	reg.MustRegister(
		c.apiCalls,
		c.apiLatency,
		c.pagesListed,
		c.videosCollected,
		c.pipelineRuns,
		c.activeSessions,
	)

	return c
}

// RecordAPICall counts one API call. statusCode is 0 for transport errors.
func (c *Collector) RecordAPICall(operation string, statusCode int) {
	c.apiCalls.WithLabelValues(operation, strconv.Itoa(statusCode)).Inc()
}

// RecordAPILatency observes the latency of one API call.
func (c *Collector) RecordAPILatency(operation string, duration time.Duration) {
	c.apiLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordPagesListed adds listed playlist pages.
func (c *Collector) RecordPagesListed(count int) {
	c.pagesListed.Add(float64(count))
}

// RecordVideosCollected adds produced video records.
func (c *Collector) RecordVideosCollected(count int) {
	c.videosCollected.Add(float64(count))
}

// RecordPipelineRun counts a finished pipeline run.
func (c *Collector) RecordPipelineRun(outcome string) {
	c.pipelineRuns.WithLabelValues(outcome).Inc()
}

// SetActiveSessions sets the session gauge.
func (c *Collector) SetActiveSessions(count int) {
	c.activeSessions.Set(float64(count))
}

// Nop discards every measurement. Used by the report command and in tests.
type Nop struct{}

func (Nop) RecordAPICall(string, int)              {}
func (Nop) RecordAPILatency(string, time.Duration) {}
func (Nop) RecordPagesListed(int)                  {}
func (Nop) RecordVideosCollected(int)              {}
func (Nop) RecordPipelineRun(string)               {}
func (Nop) SetActiveSessions(int)                  {}

// Handler returns the HTTP handler for Prometheus scraping.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
