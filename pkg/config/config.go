package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: every environment variable is read here and nowhere else
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database (optional: price history store)
	Database DatabaseConfig

	// Redis (optional: fetched history cache)
	Redis RedisConfig

	// Market data
	Yahoo     YahooConfig
	Universe  UniverseConfig
	Benchmark string // index symbol used for beta (diagnostic only)

	// Output
	OutputDir    string
	StrategyFile string // optional YAML with filter thresholds

	// Scheduler
	RankingSchedule string
	SyncSchedule    string // price_history refresh, only scheduled with a database

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
	MetricsPort    string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
	CacheTTL time.Duration
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

// Enabled reports whether a database URL is configured
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// YahooConfig holds Yahoo Finance chart API configuration
type YahooConfig struct {
	BaseURL           string
	RequestsPerSecond float64
	ChunkSize         int // symbols per download batch
	Timeout           time.Duration
	MaxRetries        int
}

// UniverseConfig holds the default universe definition
type UniverseConfig struct {
	ID        string // e.g. NSEETF
	SourceURL string // CSV (Symbol column) or HTML table
	Suffix    string // exchange suffix appended to every symbol
}

// DefaultUniverseURL is the published NSE ETF list
const DefaultUniverseURL = "https://raw.githubusercontent.com/prayan2702/ETF-Momo-app/refs/heads/main/NSE_ETF.csv"

// Load reads configuration from environment variables
// ⭐ SSOT: the only function that calls os.Getenv()
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			CacheTTL: getEnvAsDuration("REDIS_CACHE_TTL", "12h"),
		},

		Yahoo: YahooConfig{
			BaseURL:           getEnv("YAHOO_BASE_URL", "https://query1.finance.yahoo.com"),
			RequestsPerSecond: getEnvAsFloat("YAHOO_RPS", 4),
			ChunkSize:         getEnvAsInt("YAHOO_CHUNK_SIZE", 50),
			Timeout:           getEnvAsDuration("YAHOO_TIMEOUT", "30s"),
			MaxRetries:        getEnvAsInt("YAHOO_MAX_RETRIES", 3),
		},

		Universe: UniverseConfig{
			ID:        getEnv("UNIVERSE", "NSEETF"),
			SourceURL: getEnv("UNIVERSE_URL", DefaultUniverseURL),
			Suffix:    getEnv("UNIVERSE_SUFFIX", ".NS"),
		},
		Benchmark: getEnv("BENCHMARK_SYMBOL", "^NSEI"),

		OutputDir:    getEnv("OUTPUT_DIR", "."),
		StrategyFile: getEnv("STRATEGY_FILE", ""),

		// weekdays 16:30 IST, after the NSE close
		RankingSchedule: getEnv("RANKING_SCHEDULE", "CRON_TZ=Asia/Kolkata 0 30 16 * * 1-5"),
		SyncSchedule:    getEnv("SYNC_SCHEDULE", "CRON_TZ=Asia/Kolkata 0 0 16 * * 1-5"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),

		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
		MetricsPort:    getEnv("METRICS_PORT", "9090"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if configuration values are usable
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Yahoo.ChunkSize < 1 {
		return fmt.Errorf("YAHOO_CHUNK_SIZE must be at least 1")
	}

	if c.Yahoo.RequestsPerSecond <= 0 {
		return fmt.Errorf("YAHOO_RPS must be positive")
	}

	if c.Universe.ID == "" {
		return fmt.Errorf("UNIVERSE is required")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{".env"}

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
