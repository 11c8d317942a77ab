// Package config loads configuration from environment variables.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all photovault configuration. The sync core consumes it
// read-only; nothing here is mutated at runtime.
type Config struct {
	// Telegram
	BotToken       string
	ChatID         string
	SendAsDocument bool

	// Upload behavior
	BatchSize     int
	RetryLimit    int
	UploadDelay   time.Duration
	MaxIterations int

	// Retention
	DeleteAfterUpload bool
	TrashDir          string

	// Constraints consumed by an external scheduler; the sync core carries
	// them but does not evaluate connectivity or power state itself.
	WifiOnly     bool
	ChargingOnly bool

	// Storage
	DBPath string

	// Logging
	LogLevel  string
	LogFormat string
}

// Load reads configuration from environment variables with defaults.
// A .env file in the working directory is applied first if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dataDir := envOr("PHOTOVAULT_DATA_DIR", defaultDataDir())

	cfg := &Config{
		BotToken:          envOr("PHOTOVAULT_BOT_TOKEN", ""),
		ChatID:            envOr("PHOTOVAULT_CHAT_ID", ""),
		SendAsDocument:    envBool("PHOTOVAULT_SEND_AS_DOCUMENT", true),
		BatchSize:         envInt("PHOTOVAULT_BATCH_SIZE", 10),
		RetryLimit:        envInt("PHOTOVAULT_RETRY_LIMIT", 3),
		UploadDelay:       envDuration("PHOTOVAULT_UPLOAD_DELAY", 1500*time.Millisecond),
		MaxIterations:     envInt("PHOTOVAULT_MAX_ITERATIONS", 500),
		DeleteAfterUpload: envBool("PHOTOVAULT_DELETE_AFTER_UPLOAD", false),
		TrashDir:          envOr("PHOTOVAULT_TRASH_DIR", filepath.Join(dataDir, "trash")),
		WifiOnly:          envBool("PHOTOVAULT_WIFI_ONLY", false),
		ChargingOnly:      envBool("PHOTOVAULT_CHARGING_ONLY", false),
		DBPath:            envOr("PHOTOVAULT_DB", filepath.Join(dataDir, "photovault.db")),
		LogLevel:          envOr("LOG_LEVEL", "info"),
		LogFormat:         envOr("LOG_FORMAT", "console"),
	}

	return cfg, nil
}

// IsConfigured reports whether the credentials needed for uploads are set.
func (c *Config) IsConfigured() bool {
	return c.BotToken != "" && c.ChatID != ""
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".photovault"
	}
	return filepath.Join(home, ".photovault")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
