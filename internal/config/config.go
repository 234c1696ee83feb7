package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	LogFormat          string
	LogLevel           string
	DatabaseURL        string
	RedisURL           string
	MigrationsDir      string
	CORSAllowedOrigins []string

	CatalogProvider string
	CatalogBaseURL  string
	CatalogAPIKey   string
	CatalogTimeout  time.Duration
	CatalogCacheTTL time.Duration
	LookupTimeout   time.Duration

	IdempotencyTTL time.Duration
	RateLimitRPM   int

	NotifyEmailEnabled bool
	NotifyEmailFrom    string

	TracingEnabled  bool
	TracingEndpoint string
	TracingSampling float64
	MetricsBuckets  string

	DriftScanConcurrency int
	DriftSweepInterval   time.Duration
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		LogFormat:          valueOrDefault(k.String("LOG_FORMAT"), "json"),
		LogLevel:           valueOrDefault(k.String("LOG_LEVEL"), "info"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		MigrationsDir:      valueOrDefault(k.String("MIGRATIONS_DIR"), "db/migrations"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		CatalogProvider: valueOrDefault(k.String("CATALOG_PROVIDER"), "mock"),
		CatalogBaseURL:  k.String("CATALOG_BASE_URL"),
		CatalogAPIKey:   k.String("CATALOG_API_KEY"),
		CatalogTimeout:  parseDuration(k.String("CATALOG_TIMEOUT"), "5s"),
		CatalogCacheTTL: parseDuration(k.String("CATALOG_CACHE_TTL"), "5m"),
		LookupTimeout:   parseDuration(k.String("LOOKUP_TIMEOUT"), "10s"),

		IdempotencyTTL: parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		RateLimitRPM:   parseInt(k.String("RATE_LIMIT_RPM"), 120),

		NotifyEmailEnabled: parseBool(k.String("NOTIFY_EMAIL_ENABLED")),
		NotifyEmailFrom:    k.String("NOTIFY_EMAIL_FROM"),

		TracingEnabled:  parseBool(k.String("TRACING_ENABLED")),
		TracingEndpoint: k.String("TRACING_ENDPOINT"),
		TracingSampling: parseFloat(k.String("TRACING_SAMPLING_RATIO"), 1),
		MetricsBuckets:  k.String("METRICS_BUCKETS_MS"),

		DriftScanConcurrency: parseInt(k.String("DRIFT_SCAN_CONCURRENCY"), 5),
		DriftSweepInterval:   parseDuration(k.String("DRIFT_SWEEP_INTERVAL"), "1h"),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.CatalogProvider == "http" && cfg.CatalogBaseURL == "" {
		return nil, errors.New("CATALOG_BASE_URL is required when CATALOG_PROVIDER=http")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func parseInt(value string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func parseFloat(value string, fallback float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || f <= 0 {
		return fallback
	}
	return f
}
