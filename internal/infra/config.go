package infra

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string

	// RedisAddr enables the distributed task lock. When empty the process
	// falls back to in-memory locking, which only excludes within one
	// process.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	LockTTL       time.Duration

	TextGenAPIKey  string
	TextGenModel   string
	TextGenBaseURL string

	RasterizerURL     string
	RasterizerTimeout time.Duration
	ProduceAttempts   int
	ProduceRetryDelay time.Duration

	StorageBackend string // "gcs" or "filesystem"
	StoragePath    string
	StorageBaseURL string
	GCSBucket      string
	SignedURLTTL   time.Duration

	StageTimeout      time.Duration
	DispatchWorkers   int
	WorkerPollEvery   time.Duration
	StaleAfter        time.Duration
	WorkerMetricsPort string
	HTTPReadTimeout   time.Duration
	HTTPWriteTimeout  time.Duration
	HTTPIdleTimeout   time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		LockTTL:       time.Second * time.Duration(getEnvInt("TASK_LOCK_TTL_SECONDS", 3600)),

		TextGenAPIKey:  os.Getenv("TEXTGEN_API_KEY"),
		TextGenModel:   getEnv("TEXTGEN_MODEL", "gemini-1.5-flash"),
		TextGenBaseURL: getEnv("TEXTGEN_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),

		RasterizerURL:     getEnv("RASTERIZER_URL", "http://localhost:3000"),
		RasterizerTimeout: time.Second * time.Duration(getEnvInt("RASTERIZER_TIMEOUT_SECONDS", 60)),
		ProduceAttempts:   getEnvInt("PRODUCE_ATTEMPTS", 3),
		ProduceRetryDelay: time.Second * time.Duration(getEnvInt("PRODUCE_RETRY_DELAY_SECONDS", 2)),

		StorageBackend: getEnv("STORAGE_BACKEND", "filesystem"),
		StoragePath:    getEnv("STORAGE_PATH", "./storage"),
		StorageBaseURL: getEnv("STORAGE_BASE_URL", "http://localhost:8080/static"),
		GCSBucket:      os.Getenv("GCS_BUCKET"),
		SignedURLTTL:   time.Hour * time.Duration(getEnvInt("SIGNED_URL_TTL_HOURS", 24*7)),

		StageTimeout:      time.Second * time.Duration(getEnvInt("STAGE_TIMEOUT_SECONDS", 120)),
		DispatchWorkers:   getEnvInt("DISPATCH_WORKERS", 4),
		WorkerPollEvery:   time.Second * time.Duration(getEnvInt("WORKER_POLL_SECONDS", 2)),
		StaleAfter:        time.Minute * time.Duration(getEnvInt("STALE_AFTER_MINUTES", 30)),
		WorkerMetricsPort: getEnv("WORKER_METRICS_PORT", "9090"),
		HTTPReadTimeout:   time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:  time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:   time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.StorageBackend == "gcs" && cfg.GCSBucket == "" {
		return nil, fmt.Errorf("GCS_BUCKET is required when STORAGE_BACKEND=gcs")
	}

	if cfg.ProduceAttempts < 1 {
		cfg.ProduceAttempts = 1
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
