package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	ServerPort string

	StoreDriver string
	SQLitePath  string
	DatabaseURL string
	RedisURL    string

	APIBaseURL    string
	RemoteTimeout time.Duration

	SettleWindow    time.Duration
	SyncInterval    time.Duration
	VisibilityDelay time.Duration
	ProbeInterval   time.Duration
	ProbePath       string
	InitialOnline   bool
	MaxRetries      int

	CacheTTL        time.Duration
	MemoTTL         time.Duration
	RetentionPeriod time.Duration

	LogLevel  string
	LogFormat string
	LogFile   string
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerPort:  getEnv("SERVER_PORT", "8090"),
		StoreDriver: getEnv("STORE_DRIVER", DriverSQLite),
		SQLitePath:  getEnv("SQLITE_PATH", "intakesync.db"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),
		APIBaseURL:  os.Getenv("API_BASE_URL"),
		ProbePath:   getEnv("PROBE_PATH", "/health/"),
		LogLevel:    getEnv("LOGGING_LEVEL", "INFO"),
		LogFormat:   getEnv("LOGGING_FORMAT", "JSON"),
		LogFile:     os.Getenv("LOG_FILE"),
	}

	durations := []struct {
		key    string
		def    string
		target *time.Duration
	}{
		{"REMOTE_TIMEOUT", "30s", &cfg.RemoteTimeout},
		{"SETTLE_WINDOW", "2s", &cfg.SettleWindow},
		{"SYNC_INTERVAL", "2m", &cfg.SyncInterval},
		{"VISIBILITY_DELAY", "1s", &cfg.VisibilityDelay},
		{"PROBE_INTERVAL", "0s", &cfg.ProbeInterval},
		{"CACHE_TTL", "12h", &cfg.CacheTTL},
		{"MEMO_TTL", "10s", &cfg.MemoTTL},
		{"RETENTION_PERIOD", "720h", &cfg.RetentionPeriod},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(getEnv(d.key, d.def))
		if err != nil {
			return nil, fmt.Errorf("invalid %s format", d.key)
		}
		*d.target = v
	}

	maxRetries, err := strconv.Atoi(getEnv("MAX_RETRIES", "3"))
	if err != nil || maxRetries < 0 {
		return nil, errors.New("invalid MAX_RETRIES value")
	}
	cfg.MaxRetries = maxRetries

	online, err := strconv.ParseBool(getEnv("INITIAL_ONLINE", "true"))
	if err != nil {
		return nil, errors.New("invalid INITIAL_ONLINE value")
	}
	cfg.InitialOnline = online

	// Validate required fields
	if cfg.APIBaseURL == "" {
		return nil, errors.New("API_BASE_URL is required")
	}
	switch cfg.StoreDriver {
	case DriverSQLite:
		if cfg.SQLitePath == "" {
			return nil, errors.New("SQLITE_PATH is required")
		}
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL is required")
		}
	default:
		return nil, fmt.Errorf("unsupported STORE_DRIVER %q", cfg.StoreDriver)
	}
	if cfg.SyncInterval <= 0 {
		return nil, errors.New("SYNC_INTERVAL must be positive")
	}

	return cfg, nil
}

// Helper: get env with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
