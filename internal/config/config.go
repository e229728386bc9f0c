package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Upstream feed configuration.
	ArchiveBaseURL    string
	LiveBaseURL       string
	FeedTimeout       time.Duration
	LiveLookbackHours int

	// Reconciliation configuration.
	MaxLookbackDays  int
	RouteConcurrency int

	// Harvest configuration (cmd/harvest only).
	KafkaBrokers     []string
	KafkaReportTopic string
	HarvestStations  []string
	HarvestInterval  time.Duration
}

// Load reads configuration from environment variables, applying defaults
// where unset. A local .env file is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	shutdownTimeout, err := envDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	feedTimeout, err := envDuration("FEED_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	harvestInterval, err := envDuration("HARVEST_INTERVAL", 15*time.Minute)
	if err != nil {
		return nil, err
	}

	liveLookback, err := envInt("LIVE_LOOKBACK_HOURS", 28)
	if err != nil {
		return nil, err
	}
	maxLookback, err := envInt("MAX_LOOKBACK_DAYS", 30)
	if err != nil {
		return nil, err
	}
	routeConcurrency, err := envInt("ROUTE_CONCURRENCY", 20)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		ArchiveBaseURL:    envOrDefault("ARCHIVE_BASE_URL", "https://mesonet.agron.iastate.edu/cgi-bin/request/asos.py"),
		LiveBaseURL:       envOrDefault("LIVE_BASE_URL", "https://aviationweather.gov/api/data"),
		FeedTimeout:       feedTimeout,
		LiveLookbackHours: liveLookback,

		MaxLookbackDays:  maxLookback,
		RouteConcurrency: routeConcurrency,

		KafkaBrokers:     splitList(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaReportTopic: envOrDefault("KAFKA_REPORT_TOPIC", "raw-aviation-reports"),
		HarvestStations:  splitList(os.Getenv("HARVEST_STATIONS")),
		HarvestInterval:  harvestInterval,
	}

	if cfg.ArchiveBaseURL == "" {
		return nil, errors.New("ARCHIVE_BASE_URL is required")
	}
	if cfg.LiveBaseURL == "" {
		return nil, errors.New("LIVE_BASE_URL is required")
	}
	if cfg.MaxLookbackDays < 1 {
		return nil, errors.New("MAX_LOOKBACK_DAYS must be at least 1")
	}
	if cfg.RouteConcurrency < 1 {
		return nil, errors.New("ROUTE_CONCURRENCY must be at least 1")
	}
	if cfg.LiveLookbackHours < 1 {
		return nil, errors.New("LIVE_LOOKBACK_HOURS must be at least 1")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
