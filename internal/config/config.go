package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	ProcessorPlaceholder = "placeholder"
	ProcessorGemini      = "gemini"
)

type Config struct {
	// Server
	Port string
	Env  string

	// Database (optional, enables attempt history)
	DatabaseURL string

	// Redis (optional, enables pub/sub fan-out and the summary cache)
	RedisURL        string
	SummaryCacheTTL time.Duration

	// Sessions
	JWTSecret       string
	SessionTTL      time.Duration
	SubmitRateLimit int

	// Processing
	Processor         string
	PlaceholderDelay  time.Duration
	ProcessingTimeout time.Duration
	WorkerCount       int
	WorkerQueueSize   int

	// Gemini AI
	GeminiAPIKey         string
	GeminiModel          string
	GeminiConcurrentReqs int

	// Storage
	StoragePath string
	MaxUploadMB int

	// Frontend
	FrontendURL string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:                 getEnvOrDefault("PORT", "8080"),
		Env:                  getEnvOrDefault("ENV", "development"),
		DatabaseURL:          getEnvOrDefault("DATABASE_URL", ""),
		RedisURL:             getEnvOrDefault("REDIS_URL", ""),
		SummaryCacheTTL:      getEnvAsDurationOrDefault("SUMMARY_CACHE_TTL", 24*time.Hour),
		JWTSecret:            mustGetEnv("JWT_SECRET"),
		SessionTTL:           getEnvAsDurationOrDefault("SESSION_TTL", 2*time.Hour),
		SubmitRateLimit:      getEnvAsIntOrDefault("SUBMIT_RATE_LIMIT", 10),
		Processor:            strings.ToLower(getEnvOrDefault("PROCESSOR", ProcessorPlaceholder)),
		PlaceholderDelay:     getEnvAsDurationOrDefault("PLACEHOLDER_DELAY", 2*time.Second),
		ProcessingTimeout:    getEnvAsDurationOrDefault("PROCESSING_TIMEOUT", 10*time.Minute),
		WorkerCount:          getEnvAsIntOrDefault("WORKER_COUNT", 5),
		WorkerQueueSize:      getEnvAsIntOrDefault("WORKER_QUEUE_SIZE", 100),
		GeminiModel:          getEnvOrDefault("GEMINI_MODEL", "gemini-2.5-flash"),
		GeminiConcurrentReqs: getEnvAsIntOrDefault("GEMINI_CONCURRENT_REQUESTS", 5),
		StoragePath:          getEnvOrDefault("STORAGE_PATH", "./uploads"),
		MaxUploadMB:          getEnvAsIntOrDefault("MAX_UPLOAD_MB", 500),
		FrontendURL:          getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),
	}

	switch cfg.Processor {
	case ProcessorPlaceholder:
	case ProcessorGemini:
		cfg.GeminiAPIKey = mustGetEnv("GEMINI_API_KEY")
	default:
		panic(fmt.Sprintf("unknown PROCESSOR %q (expected %q or %q)", cfg.Processor, ProcessorPlaceholder, ProcessorGemini))
	}

	return cfg
}

// MaxUploadBytes is the upload size cap in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) * 1024 * 1024
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

// getEnvAsDurationOrDefault accepts Go durations ("90s") or plain seconds ("90").
func getEnvAsDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	if n, err := strconv.Atoi(val); err == nil {
		return time.Duration(n) * time.Second
	}
	return defaultVal
}
