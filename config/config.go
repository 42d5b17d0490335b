// Package config reads service settings from the environment.
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

type Config struct {
	Port   string
	AppEnv string

	DatabaseDSN string
	RedisURL    string

	DedupTTL      time.Duration
	DedupTimeout  time.Duration
	DedupFailOpen bool
	StoreTimeout  time.Duration

	JWTSecret            string
	AdminRegistrationKey string
	// WebhookSecret authenticates payment provider callbacks. Empty disables
	// the webhook endpoint.
	WebhookSecret string

	AllowedOrigins  string
	RateLimitMax    int
	RateLimitWindow time.Duration
	BodyLimitBytes  int
}

// envInt reads an int env var with a default fallback.
func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	// .env is a development convenience; a missing file is fine.
	_ = godotenv.Load()

	cfg := &Config{
		Port:     envString("PORT", "8080"),
		AppEnv:   envString("APP_ENV", "development"),
		RedisURL: envString("REDIS_URL", "redis://localhost:6379/0"),

		DedupTTL:      time.Duration(envInt("DEDUP_TTL_SECONDS", 10)) * time.Second,
		DedupTimeout:  time.Duration(envInt("DEDUP_TIMEOUT_MS", 500)) * time.Millisecond,
		DedupFailOpen: envBool("DEDUP_FAIL_OPEN", false),
		StoreTimeout:  time.Duration(envInt("STORE_TIMEOUT_MS", 2000)) * time.Millisecond,

		AdminRegistrationKey: os.Getenv("ADMIN_REGISTRATION_KEY"),
		WebhookSecret:        os.Getenv("WEBHOOK_SECRET"),

		AllowedOrigins:  envString("ALLOWED_ORIGINS", "*"),
		RateLimitMax:    envInt("RATE_LIMIT_MAX", 60),
		RateLimitWindow: time.Duration(envInt("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second,
	}

	// Fiber default BodyLimit is 4 MB; BODY_LIMIT_BYTES wins over BODY_LIMIT_MB.
	cfg.BodyLimitBytes = envInt("BODY_LIMIT_BYTES", 0)
	if cfg.BodyLimitBytes <= 0 {
		cfg.BodyLimitBytes = envInt("BODY_LIMIT_MB", 4) * 1024 * 1024
	}

	cfg.DatabaseDSN = os.Getenv("DATABASE_DSN")
	if cfg.DatabaseDSN == "" {
		cfg.DatabaseDSN = fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
			envString("DB_HOST", "db"), os.Getenv("DB_USER"), os.Getenv("DB_PASSWORD"),
			os.Getenv("DB_NAME"), envString("DB_PORT", "5432"))
	}

	// Prefer JWT_SECRET_KEY, fallback to JWT_SECRET
	cfg.JWTSecret = strings.TrimSpace(os.Getenv("JWT_SECRET_KEY"))
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = strings.TrimSpace(os.Getenv("JWT_SECRET"))
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT secret not configured (set JWT_SECRET_KEY or JWT_SECRET)")
	}
	if c.DedupTTL <= 0 {
		return fmt.Errorf("DEDUP_TTL_SECONDS must be positive, got %s", c.DedupTTL)
	}
	if c.DedupTimeout <= 0 || c.StoreTimeout <= 0 {
		return errors.New("store timeouts must be positive")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}
