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

// Config collects every runtime setting the server reads from the
// environment. A .env file is loaded first when present; real environment
// variables win over it.
type Config struct {
	Port        string
	DatabaseURL string

	// TimeZone anchors month boundaries and the job schedules.
	TimeZone string

	JWTSecret string

	RolloverCron  string
	RetentionCron string

	// MaxBackfillMonths bounds how far back the lazy resolver will walk
	// looking for an anchor snapshot.
	MaxBackfillMonths int

	CORSOrigins []string
}

// Load reads the configuration from the environment, applying defaults for
// everything except the secrets.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		TimeZone:          getEnv("TIMEZONE", "America/Guayaquil"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		RolloverCron:      getEnv("ROLLOVER_CRON", "0 2 1 * *"),
		RetentionCron:     getEnv("RETENTION_CRON", "0 4 1 * *"),
		MaxBackfillMonths: 12,
		CORSOrigins:       splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),
	}

	if v := os.Getenv("MAX_BACKFILL_MONTHS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("MAX_BACKFILL_MONTHS: %w", err)
		}
		cfg.MaxBackfillMonths = n
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.MaxBackfillMonths < 1 {
		return errors.New("MAX_BACKFILL_MONTHS must be at least 1")
	}
	if _, err := time.LoadLocation(c.TimeZone); err != nil {
		return fmt.Errorf("TIMEZONE %q: %w", c.TimeZone, err)
	}
	return nil
}

// Location resolves the configured timezone. Validate has already checked
// that it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
