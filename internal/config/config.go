// Package config loads the application settings from the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application settings. It is loaded once at startup and
// treated as immutable.
type Config struct {
	// Server
	ServerPort string
	BaseURL    string

	// YouTube Data API
	YouTubeAPIBase   string
	YouTubeAPIKey    string // default key for the report command; the web form always asks
	FetchTimeout     time.Duration
	AnalyzeTimeout   time.Duration // bound on one whole analysis; the server write timeout follows it
	APIQPS           float64
	BatchConcurrency int

	// Presentation
	HourOffset int

	// Session
	SessionTTL time.Duration

	// Rate Limit
	RateLimitAnalyze int // analyses per minute per client IP

	// Logging
	LogLevel string

	// Cookie
	CookieSecure bool
	CookieDomain string
}

// LoadEnvFile loads KEY=VALUE pairs from path into the process environment.
// Variables that are already set win. A missing file is not an error.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load reads the Config from environment variables. Unset or malformed
// optional values fall back to their defaults.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.BaseURL = getEnvString("BASE_URL", "http://localhost:8080")
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("BASE_URL must be an absolute http(s) URL: %q", cfg.BaseURL)
	}

	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.YouTubeAPIBase = getEnvString("YOUTUBE_API_BASE", "https://www.googleapis.com/youtube/v3")
	cfg.YouTubeAPIKey = os.Getenv("YOUTUBE_API_KEY")
	cfg.FetchTimeout = getEnvDuration("FETCH_TIMEOUT", 30*time.Second)
	cfg.AnalyzeTimeout = getEnvDuration("ANALYZE_TIMEOUT", 10*time.Minute)
	cfg.APIQPS = getEnvFloat("API_QPS", 0)
	cfg.BatchConcurrency = getEnvPositiveInt("BATCH_CONCURRENCY", 1)
	cfg.HourOffset = getEnvInt("HOUR_OFFSET", 5)
	cfg.SessionTTL = getEnvDuration("SESSION_TTL", time.Hour)
	cfg.RateLimitAnalyze = getEnvPositiveInt("RATE_LIMIT_ANALYZE", 10)
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvPositiveInt(key string, defaultVal int) int {
	if i := getEnvInt(key, defaultVal); i > 0 {
		return i
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		return defaultVal
	}
	return f
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}
