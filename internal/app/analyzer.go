package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/tubedash/internal/config"
	"github.com/hitoshi/tubedash/internal/metrics"
	"github.com/hitoshi/tubedash/internal/model"
	"github.com/hitoshi/tubedash/internal/pipeline"
	"github.com/hitoshi/tubedash/internal/youtube"
)

// Analyzer builds a Data API client for each caller-supplied key and runs
// the pipeline with it. Keys are never stored.
type Analyzer struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    metrics.MetricsCollector
	endpoint   string
	qps        float64
	timeout    time.Duration
	opts       pipeline.Options
}

// NewAnalyzer creates an Analyzer from the loaded configuration.
func NewAnalyzer(cfg *config.Config, logger *slog.Logger, m metrics.MetricsCollector) *Analyzer {
	opts := pipeline.DefaultOptions()
	opts.BatchConcurrency = cfg.BatchConcurrency
	opts.HourOffset = cfg.HourOffset

	return &Analyzer{
		httpClient: &http.Client{Timeout: cfg.FetchTimeout},
		logger:     logger,
		metrics:    m,
		endpoint:   cfg.YouTubeAPIBase,
		qps:        cfg.APIQPS,
		timeout:    cfg.AnalyzeTimeout,
		opts:       opts,
	}
}

// Analyze runs one analysis of channelID using apiKey. A positive timeout
// bounds the whole run.
func (a *Analyzer) Analyze(ctx context.Context, apiKey, channelID string) (*pipeline.Result, error) {
	if apiKey == "" {
		return nil, model.NewMissingCredentialError()
	}
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	client := youtube.NewClient(a.httpClient, a.logger, apiKey, youtube.ClientOptions{
		Endpoint: a.endpoint,
		QPS:      a.qps,
		Metrics:  a.metrics,
	})
	return pipeline.New(client, a.logger, a.metrics, a.opts).Run(ctx, channelID)
}
