package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPPort    string
	LogLevel    string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// SPAPIRate/SPAPIBurst bound outbound marketplace API calls per
	// account. The upstream throttles hard; staying under its published
	// limits avoids burning page retries on 429s.
	SPAPIRate  float64
	SPAPIBurst int

	// Selling-partner API endpoints. Overridable so tests and sandbox
	// environments can point at a local server.
	SPAPIEndpoint   string
	LWAEndpoint     string
	LWAClientID     string
	LWAClientSecret string

	Sync SyncConfig
}

// SyncConfig carries the tuning knobs for the sync orchestrator.
type SyncConfig struct {
	// ChunkDays bounds each retrieval window. The settlement endpoints
	// degrade on wide windows and report generation caps at 30 days.
	ChunkDays int
	// MaxDaysBack is the upstream data-retention ceiling.
	MaxDaysBack int
	// SafetyMargin keeps the window end slightly behind wall clock so
	// half-posted settlement batches are not picked up mid-write.
	SafetyMargin time.Duration
	// MarketplaceConcurrency bounds the per-chunk marketplace fan-out.
	MarketplaceConcurrency int
	// ReportThresholdDays switches order retrieval to the bulk-report
	// strategy for windows wider than this.
	ReportThresholdDays int
	ReportPollInterval  time.Duration
	ReportMaxPolls      int
	// PageRetryLimit bounds transient-error retries per page fetch.
	PageRetryLimit int
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "marginfox"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		HTTPPort:    getenv("HTTP_PORT", "8080"),
		LogLevel:    getenv("LOG_LEVEL", "info"),

		DBType:            getenv("DB_TYPE", "postgres"),
		DBHost:            getenv("DB_HOST", "localhost"),
		DBPort:            getenv("DB_PORT", "5432"),
		DBName:            getenv("DB_NAME", "marginfox"),
		DBUser:            getenv("DB_USER", "marginfox"),
		DBPassword:        getenv("DB_PASSWORD", ""),
		DBSSLMode:         getenv("DB_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DB_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DB_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime: getenvInt("DB_CONN_MAX_LIFETIME", 3600),
		DBConnMaxIdleTime: getenvInt("DB_CONN_MAX_IDLE_TIME", 600),

		RedisAddr:     getenv("REDIS_ADDR", ""),
		RedisPassword: getenv("REDIS_PASSWORD", ""),
		RedisDB:       getenvInt("REDIS_DB", 0),

		SPAPIRate:  getenvFloat("SPAPI_RATE", 0.5),
		SPAPIBurst: getenvInt("SPAPI_BURST", 10),

		SPAPIEndpoint:   getenv("SPAPI_ENDPOINT", "https://sellingpartnerapi-eu.amazon.com"),
		LWAEndpoint:     getenv("LWA_ENDPOINT", "https://api.amazon.com/auth/o2/token"),
		LWAClientID:     strings.TrimSpace(getenv("LWA_CLIENT_ID", "")),
		LWAClientSecret: strings.TrimSpace(getenv("LWA_CLIENT_SECRET", "")),

		Sync: SyncConfig{
			ChunkDays:              getenvInt("SYNC_CHUNK_DAYS", 30),
			MaxDaysBack:            getenvInt("SYNC_MAX_DAYS_BACK", 729),
			SafetyMargin:           getenvDuration("SYNC_SAFETY_MARGIN", 2*time.Minute),
			MarketplaceConcurrency: getenvInt("SYNC_MARKETPLACE_CONCURRENCY", 3),
			ReportThresholdDays:    getenvInt("SYNC_REPORT_THRESHOLD_DAYS", 60),
			ReportPollInterval:     getenvDuration("SYNC_REPORT_POLL_INTERVAL", 30*time.Second),
			ReportMaxPolls:         getenvInt("SYNC_REPORT_MAX_POLLS", 40),
			PageRetryLimit:         getenvInt("SYNC_PAGE_RETRY_LIMIT", 3),
		},
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}
