package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database (optional: evaluations are only persisted when URL is set)
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Analysis
	Analysis AnalysisConfig

	// Input files
	WeightsFile  string
	SnapshotFile string

	// Remote snapshot source (takes precedence over SnapshotFile when set)
	SnapshotURL string
	SnapshotRPS float64

	// Scheduler
	Scheduler SchedulerConfig

	// API
	API APIConfig

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
	CacheTTL time.Duration // evaluation cache lifetime
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Enabled reports whether a database is configured
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// AnalysisConfig holds valuation and data-quality thresholds
type AnalysisConfig struct {
	MarginOfSafety     float64       // 0.20 = buy 20% under fair mid
	CheapThreshold     float64       // price <= mid × this ⇒ CHEAP
	ExpensiveThreshold float64       // price >= mid × this ⇒ EXPENSIVE
	DataMaxAge         time.Duration // snapshots older than this score 0 timeliness
}

// SchedulerConfig holds the watchlist job settings
type SchedulerConfig struct {
	WatchlistSchedule string   // cron spec, empty = disabled
	Watchlist         []string // symbols, empty = every symbol the provider knows
	Industry          string
	FetchConcurrency  int

	PurgeSchedule string        // cron spec, empty = disabled
	Retention     time.Duration // evaluations older than this are purged
}

// APIConfig holds HTTP API settings
type APIConfig struct {
	RateLimit float64 // requests per second, 0 = unlimited
	RateBurst int
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	// Try multiple paths for .env file
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		// Database
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			CacheTTL: getEnvAsDuration("REDIS_CACHE_TTL", "5m"),
		},

		// Analysis
		Analysis: AnalysisConfig{
			MarginOfSafety:     getEnvAsFloat("MARGIN_OF_SAFETY", 0.20),
			CheapThreshold:     getEnvAsFloat("CHEAP_THRESHOLD", 0.9),
			ExpensiveThreshold: getEnvAsFloat("EXPENSIVE_THRESHOLD", 1.1),
			DataMaxAge:         time.Duration(getEnvAsInt("DATA_MAX_AGE_HOURS", 24)) * time.Hour,
		},

		// Input files
		WeightsFile:  getEnv("WEIGHTS_FILE", ""),
		SnapshotFile: getEnv("SNAPSHOT_FILE", "data/snapshots.yaml"),
		SnapshotURL:  getEnv("SNAPSHOT_URL", ""),
		SnapshotRPS:  getEnvAsFloat("SNAPSHOT_RPS", 5),

		// Scheduler
		Scheduler: SchedulerConfig{
			WatchlistSchedule: getEnv("WATCHLIST_SCHEDULE", ""),
			Watchlist:         getEnvAsList("WATCHLIST"),
			Industry:          getEnv("WATCHLIST_INDUSTRY", ""),
			FetchConcurrency:  getEnvAsInt("WATCHLIST_CONCURRENCY", 4),
			PurgeSchedule:     getEnv("PURGE_SCHEDULE", ""),
			Retention:         time.Duration(getEnvAsInt("RETENTION_DAYS", 90)) * 24 * time.Hour,
		},

		// API
		API: APIConfig{
			RateLimit: getEnvAsFloat("API_RATE_LIMIT", 20),
			RateBurst: getEnvAsInt("API_RATE_BURST", 40),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		// Monitoring
		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if configuration values are usable
func (c *Config) validate() error {
	// Validate environment
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	a := c.Analysis
	if a.MarginOfSafety < 0 || a.MarginOfSafety >= 1 {
		return fmt.Errorf("MARGIN_OF_SAFETY must be in [0, 1), got %v", a.MarginOfSafety)
	}
	if a.CheapThreshold <= 0 || a.CheapThreshold >= 1 {
		return fmt.Errorf("CHEAP_THRESHOLD must be in (0, 1), got %v", a.CheapThreshold)
	}
	if a.ExpensiveThreshold <= 1 {
		return fmt.Errorf("EXPENSIVE_THRESHOLD must be > 1, got %v", a.ExpensiveThreshold)
	}
	if a.DataMaxAge <= 0 {
		return fmt.Errorf("DATA_MAX_AGE_HOURS must be positive")
	}

	if c.SnapshotRPS < 0 {
		return fmt.Errorf("SNAPSHOT_RPS must not be negative")
	}

	if c.Scheduler.FetchConcurrency < 1 {
		return fmt.Errorf("WATCHLIST_CONCURRENCY must be at least 1")
	}
	if c.Scheduler.PurgeSchedule != "" && c.Scheduler.Retention <= 0 {
		return fmt.Errorf("RETENTION_DAYS must be positive when PURGE_SCHEDULE is set")
	}

	if c.API.RateLimit < 0 {
		return fmt.Errorf("API_RATE_LIMIT must not be negative")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	// Try paths in order of priority
	paths := []string{
		".env", // Current directory
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}

// getEnvAsList splits a comma-separated value, dropping blanks
func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
