package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const devJWTSecret = "dev-secret-change-in-production"

type Config struct {
	Port     string
	Env      string
	LogLevel slog.Level

	DBDriver     string
	DatabaseDSN  string
	StoreTimeout time.Duration

	JWTSecret  string
	TokenTTL   time.Duration
	BcryptCost int

	RateLimitMax           int
	RateLimitWindow        time.Duration
	RateLimitCooldown      time.Duration
	RateLimitSweepInterval time.Duration
	SessionSweepInterval   time.Duration

	WebhookURL         string
	WebhookTimeout     time.Duration
	WebhookMinInterval time.Duration
	NotifyQueueSize    int
}

func Load() Config {
	driver := strings.ToLower(getEnv("DB_DRIVER", "sqlite"))

	return Config{
		Port:     getEnv("PORT", "4000"),
		Env:      getEnv("ENV", "development"),
		LogLevel: parseLevel(getEnv("LOG_LEVEL", "info")),

		DBDriver:     driver,
		DatabaseDSN:  getEnv("DATABASE_DSN", defaultDSN(driver)),
		StoreTimeout: getEnvDuration("STORE_TIMEOUT", 5*time.Second),

		JWTSecret:  getEnv("JWT_SECRET", devJWTSecret),
		TokenTTL:   getEnvDuration("TOKEN_TTL", 7*24*time.Hour),
		BcryptCost: getEnvInt("BCRYPT_COST", 10),

		RateLimitMax:           getEnvInt("RATE_LIMIT_MAX", 45),
		RateLimitWindow:        getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		RateLimitCooldown:      getEnvDuration("RATE_LIMIT_COOLDOWN", 3*time.Minute),
		RateLimitSweepInterval: getEnvDuration("RATE_LIMIT_SWEEP_INTERVAL", time.Minute),
		SessionSweepInterval:   getEnvDuration("SESSION_SWEEP_INTERVAL", time.Hour),

		WebhookURL:         getEnv("WEBHOOK_URL", ""),
		WebhookTimeout:     getEnvDuration("WEBHOOK_TIMEOUT", 5*time.Second),
		WebhookMinInterval: getEnvDuration("WEBHOOK_MIN_INTERVAL", 250*time.Millisecond),
		NotifyQueueSize:    getEnvInt("NOTIFY_QUEUE_SIZE", 128),
	}
}

// Validate reports configuration that must stop the process from starting.
func (c Config) Validate() error {
	if c.Env == "production" && c.JWTSecret == devJWTSecret {
		return errors.New("JWT_SECRET must be set in production environment")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must not be empty")
	}
	if c.DBDriver != "sqlite" && c.DBDriver != "mysql" {
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.TokenTTL <= 0 {
		return errors.New("TOKEN_TTL must be positive")
	}
	if c.RateLimitMax <= 0 || c.RateLimitWindow <= 0 || c.RateLimitCooldown <= 0 {
		return errors.New("rate limit parameters must be positive")
	}
	return nil
}

func defaultDSN(driver string) string {
	if driver == "mysql" {
		return "root:password@tcp(127.0.0.1:3306)/outr?parseTime=true&loc=UTC"
	}
	return "file:data/outr.db?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_time_format=sqlite"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("invalid integer in environment, using default", "key", key, "value", v)
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("invalid duration in environment, using default", "key", key, "value", v)
		return fallback
	}
	return d
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
