package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all client configuration.
type Config struct {
	APIBaseURL  string
	WSBaseURL   string
	LogLevel    string
	LogFormat   string
	HTTPTimeout time.Duration
	TokenPath   string
	// AttemptStore selects the durable answer store backend:
	// "sqlite" (local file), "redis" (shared lab autosave) or "memory".
	AttemptStore   string
	AttemptDBPath  string
	RedisURL       string
	ResultAttempts int
	ResultBackoff  time.Duration
	StreamEnabled  bool
}

// Load reads configuration from environment variables with sensible defaults.
// It loads .env file if present but does not fail if missing.
func Load() *Config {
	_ = godotenv.Load() // Ignore error — .env is optional

	return &Config{
		APIBaseURL:     getEnv("API_BASE_URL", "http://localhost:8080/api/v1"),
		WSBaseURL:      getEnv("WS_BASE_URL", "ws://localhost:8080/ws/v1"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "pretty"),
		HTTPTimeout:    time.Duration(getEnvInt("HTTP_TIMEOUT_SECONDS", 15)) * time.Second,
		TokenPath:      getEnv("TOKEN_PATH", defaultStatePath("token")),
		AttemptStore:   getEnv("ATTEMPT_STORE", "sqlite"),
		AttemptDBPath:  getEnv("ATTEMPT_DB_PATH", defaultStatePath("attempts.db")),
		RedisURL:       getEnv("REDIS_URL", "redis://localhost:6379/0"),
		ResultAttempts: getEnvInt("RESULT_POLL_ATTEMPTS", 5),
		ResultBackoff:  time.Duration(getEnvInt("RESULT_POLL_BACKOFF_MS", 1000)) * time.Millisecond,
		StreamEnabled:  getEnvBool("STREAM_ENABLED", false),
	}
}

// defaultStatePath places client state under the user config directory,
// falling back to the working directory when it cannot be resolved.
func defaultStatePath(name string) string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return name
	}
	return filepath.Join(dir, "exstem-client", name)
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
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
