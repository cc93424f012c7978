package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all process configuration. It is loaded once at startup and
// passed by reference; nothing in the request path reads the environment.
type Config struct {
	Port        string
	DatabaseURL string
	RedisURL    string

	SessionTTL      time.Duration
	AllowedOrigins  []string
	UploadDir       string
	MaxUploadBytes  int64
	BlobBackend     string // "disk" or "gridfs"
	MongoURL        string
	RateLimitPerMin int
}

// Load builds a Config from the environment. Only DATABASE_URL is mandatory;
// everything else has a sensible default for local development.
func Load() (*Config, error) {
	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisURL:        os.Getenv("REDIS_URL"),
		SessionTTL:      7 * 24 * time.Hour,
		UploadDir:       getEnv("UPLOAD_DIR", "./uploads"),
		MaxUploadBytes:  10 << 20,
		BlobBackend:     getEnv("BLOB_BACKEND", "disk"),
		MongoURL:        os.Getenv("MONGO_URL"),
		RateLimitPerMin: 60,
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if v := os.Getenv("SESSION_TTL_HOURS"); v != "" {
		hours, err := strconv.Atoi(v)
		if err != nil || hours <= 0 {
			return nil, fmt.Errorf("invalid SESSION_TTL_HOURS: %q", v)
		}
		cfg.SessionTTL = time.Duration(hours) * time.Hour
	}

	if v := os.Getenv("MAX_UPLOAD_MB"); v != "" {
		mb, err := strconv.Atoi(v)
		if err != nil || mb <= 0 {
			return nil, fmt.Errorf("invalid MAX_UPLOAD_MB: %q", v)
		}
		cfg.MaxUploadBytes = int64(mb) << 20
	}

	if v := os.Getenv("RATE_LIMIT_PER_MIN"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid RATE_LIMIT_PER_MIN: %q", v)
		}
		cfg.RateLimitPerMin = n
	}

	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		for _, origin := range strings.Split(v, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
			}
		}
	}

	if cfg.BlobBackend != "disk" && cfg.BlobBackend != "gridfs" {
		return nil, fmt.Errorf("invalid BLOB_BACKEND: %q", cfg.BlobBackend)
	}
	if cfg.BlobBackend == "gridfs" && cfg.MongoURL == "" {
		return nil, fmt.Errorf("MONGO_URL is required when BLOB_BACKEND=gridfs")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
