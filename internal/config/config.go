package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	DatabaseDriver string // "postgres" or "sqlite"
	DatabaseDSN    string
	HTTPAddr       string
	LogLevel       string
	LogFormat      string // "json", "text", or "dev"

	// Weather fetch configuration.
	WeatherBaseURL   string
	WeatherStartDate string // ISO date, inclusive
	WeatherEndDate   string // ISO date, inclusive
	FetchTimeout     time.Duration
	FetchMaxAttempts int
	FetchRetryDelay  time.Duration
	FetchPause       time.Duration // politeness delay between outlets

	// Load configuration.
	LoadChunkSize int
	WriteMode     string // "initialize" or "append"

	// Reconciliation severity escalation: the reconcile run fails when more
	// than this many large_discrepancy records are produced. 0 disables.
	LargeDiscrepancyLimit int
}

// Load reads configuration from the environment, applying defaults where
// unset. A .env file in the working directory is honored when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	fetchTimeout, err := envDuration("FETCH_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	fetchDelay, err := envDuration("FETCH_RETRY_DELAY", 5*time.Second)
	if err != nil {
		return nil, err
	}
	fetchPause, err := envDuration("FETCH_PAUSE", 500*time.Millisecond)
	if err != nil {
		return nil, err
	}
	attempts, err := envInt("FETCH_MAX_ATTEMPTS", 3)
	if err != nil {
		return nil, err
	}
	chunkSize, err := envInt("LOAD_CHUNK_SIZE", 1000)
	if err != nil {
		return nil, err
	}
	discrepancyLimit, err := envInt("LARGE_DISCREPANCY_LIMIT", 100)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DatabaseDriver: envOrDefault("DB_DRIVER", "postgres"),
		DatabaseDSN:    os.Getenv("DATABASE_DSN"),
		HTTPAddr:       envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:       envOrDefault("LOG_LEVEL", "info"),
		LogFormat:      envOrDefault("LOG_FORMAT", "json"),

		WeatherBaseURL:   envOrDefault("WEATHER_BASE_URL", "https://archive-api.open-meteo.com/v1/archive"),
		WeatherStartDate: envOrDefault("WEATHER_START_DATE", "2023-01-01"),
		WeatherEndDate:   envOrDefault("WEATHER_END_DATE", "2024-12-31"),
		FetchTimeout:     fetchTimeout,
		FetchMaxAttempts: attempts,
		FetchRetryDelay:  fetchDelay,
		FetchPause:       fetchPause,

		LoadChunkSize: chunkSize,
		WriteMode:     envOrDefault("WEATHER_WRITE_MODE", "initialize"),

		LargeDiscrepancyLimit: discrepancyLimit,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseDSN == "" {
		return errors.New("DATABASE_DSN is required")
	}
	if c.DatabaseDriver != "postgres" && c.DatabaseDriver != "sqlite" {
		return fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", c.DatabaseDriver)
	}
	if c.WriteMode != "initialize" && c.WriteMode != "append" {
		return fmt.Errorf("WEATHER_WRITE_MODE must be initialize or append, got %q", c.WriteMode)
	}
	if c.FetchMaxAttempts < 1 {
		return errors.New("FETCH_MAX_ATTEMPTS must be at least 1")
	}
	if c.FetchTimeout <= 0 {
		return errors.New("FETCH_TIMEOUT must be positive")
	}
	if c.LoadChunkSize < 1 {
		return errors.New("LOAD_CHUNK_SIZE must be at least 1")
	}

	start, err := time.Parse(time.DateOnly, c.WeatherStartDate)
	if err != nil {
		return fmt.Errorf("invalid WEATHER_START_DATE: %w", err)
	}
	end, err := time.Parse(time.DateOnly, c.WeatherEndDate)
	if err != nil {
		return fmt.Errorf("invalid WEATHER_END_DATE: %w", err)
	}
	if end.Before(start) {
		return fmt.Errorf("WEATHER_END_DATE %s is before WEATHER_START_DATE %s", c.WeatherEndDate, c.WeatherStartDate)
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}
