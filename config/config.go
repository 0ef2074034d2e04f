package config

import (
	"log/slog"
	"os"
	"strings"
	"time"
)

// Bar store backends selectable through RSIBOT_BAR_STORE.
const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreNone     = "none"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Dashboard
	ListenAddr string
	LogLevel   string

	// Bar archive
	BarStore    string // sqlite, postgres or none
	SQLitePath  string
	PostgresDSN string

	// Series cache (empty RedisAddr disables it)
	RedisAddr     string
	RedisPassword string
	CacheTTL      time.Duration

	// Market data
	YahooBaseURL string
	HTTPTimeout  time.Duration

	// Run alerts (empty disables the webhook; alerts then go to the log)
	WebhookURL string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		ListenAddr: getEnv("RSIBOT_LISTEN_ADDR", ":8080"),
		LogLevel:   getEnv("RSIBOT_LOG_LEVEL", "info"),

		BarStore:    strings.ToLower(getEnv("RSIBOT_BAR_STORE", StoreSQLite)),
		SQLitePath:  getEnv("SQLITE_PATH", "data/bars.db"),
		PostgresDSN: getEnv("POSTGRES_DSN", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		CacheTTL:      getDuration("RSIBOT_CACHE_TTL", 15*time.Minute),

		YahooBaseURL: getEnv("YAHOO_BASE_URL", "https://query1.finance.yahoo.com"),
		HTTPTimeout:  getDuration("RSIBOT_HTTP_TIMEOUT", 15*time.Second),

		WebhookURL: getEnv("RSIBOT_WEBHOOK_URL", ""),
	}
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		slog.Warn("[config] invalid duration, using default", "key", key, "value", v, "default", fallback)
		return fallback
	}
	return d
}
