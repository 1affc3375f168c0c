// Package app wires configuration, logging and the domain packages into the
// serve, report and healthcheck commands.
package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/time/rate"

	"github.com/hitoshi/tubedash/internal/config"
	"github.com/hitoshi/tubedash/internal/handler"
	"github.com/hitoshi/tubedash/internal/logger"
	"github.com/hitoshi/tubedash/internal/metrics"
	"github.com/hitoshi/tubedash/internal/middleware"
	"github.com/hitoshi/tubedash/internal/model"
	"github.com/hitoshi/tubedash/internal/report"
	"github.com/hitoshi/tubedash/internal/session"
)

// envFile is read at startup when present.
const envFile = ".env"

// Init loads the optional .env file and the Config, then installs the JSON
// logger at the configured level. Logs go to w.
func Init(w io.Writer) (*config.Config, error) {
	// Log at info until the configured level is known.
	logger.SetupDefault(w, slog.LevelInfo)

	if err := config.LoadEnvFile(envFile); err != nil {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel))
	return cfg, nil
}

// Run is the application entry point. args is os.Args[1:].
// Logs go to logOut; the report command also prints its tables there.
func Run(logOut io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck skips full initialization.
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(logOut)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandReport:
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runReport(ctx, logOut, cfg, args[1:])
	default:
		return runServe(cfg)
	}
}

// runServe starts the dashboard server and shuts it down gracefully on
// SIGINT or SIGTERM.
func runServe(cfg *config.Config) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	sessions := session.NewStore(session.Config{
		TTL:             cfg.SessionTTL,
		CleanupInterval: session.DefaultConfig().CleanupInterval,
	}, slog.Default(), collector)
	defer sessions.Stop()

	rlCfg := middleware.DefaultRateLimiterConfig()
	// RATE_LIMIT_ANALYZE is per minute; the limiter counts per second.
	rlCfg.Rate = rate.Limit(float64(cfg.RateLimitAnalyze) / 60.0)
	rlCfg.Burst = cfg.RateLimitAnalyze
	rateLimiter := middleware.NewRateLimiter(rlCfg)
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:      slog.Default(),
		RateLimiter: rateLimiter,
		CSRF: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		Analyzer: NewAnalyzer(cfg, slog.Default(), collector),
		Sessions: sessions,
		Metrics:  metrics.Handler(reg),
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: serverWriteTimeout(cfg),
		IdleTimeout:  60 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("dashboard server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server listen failed: %w", err)
	case <-stop:
	}
	slog.Info("shutting down dashboard server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("dashboard server stopped gracefully")
	return nil
}

// serverWriteTimeout covers a whole analysis, which runs inside the
// POST /analyze request, plus time to write the redirect.
func serverWriteTimeout(cfg *config.Config) time.Duration {
	return cfg.AnalyzeTimeout + 15*time.Second
}

// runReport analyzes one channel and writes the summary tables to out.
// With --png the views chart is also written to the named file.
func runReport(ctx context.Context, out io.Writer, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	fs.SetOutput(out)
	channelID := fs.String("channel", "", "YouTube channel ID (required)")
	apiKey := fs.String("api-key", cfg.YouTubeAPIKey, "YouTube Data API key (default $YOUTUBE_API_KEY)")
	pngPath := fs.String("png", "", "write the top viewed videos chart to this PNG file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *apiKey == "" {
		return model.NewMissingCredentialError()
	}
	if *channelID == "" {
		return model.NewMissingChannelIDError()
	}

	analyzer := NewAnalyzer(cfg, slog.Default(), metrics.Nop{})
	result, err := analyzer.Analyze(ctx, *apiKey, *channelID)
	if err != nil {
		return err
	}

	if err := report.WriteSummary(out, result); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	if *pngPath == "" {
		return nil
	}
	f, err := os.Create(*pngPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", *pngPath, err)
	}
	if err := report.WriteViewsPNG(f, result); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", *pngPath, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", *pngPath, err)
	}
	slog.Info("report chart written", slog.String("path", *pngPath))
	return nil
}

// runHealthcheck requests /health on the local server.
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}
