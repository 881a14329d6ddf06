// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for all databases (always absolute)
	ModelDir string // Directory for trained model artifacts (defaults to DataDir/models)
	LogLevel string
	Port     int
	DevMode  bool

	// Cron schedules for background jobs (seconds-precision cron expressions)
	PriceUpdateSchedule   string
	HistoryRollupSchedule string
	TrainingSchedule      string
	BackupSchedule        string

	// Cloudflare R2 settings for off-site backups (optional - backups are
	// skipped entirely when AccountID is empty)
	R2 R2Config
}

// R2Config holds Cloudflare R2 (S3-compatible) credentials
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
}

// Enabled reports whether R2 backups are configured
func (r R2Config) Enabled() bool {
	return r.AccountID != "" && r.AccessKeyID != "" && r.SecretAccessKey != "" && r.BucketName != ""
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("PRICEWISE_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	// Always resolve to absolute path
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	// Ensure directory exists
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	modelDir := getEnv("MODEL_DIR", "")
	if modelDir == "" {
		modelDir = filepath.Join(absDataDir, "models")
	}
	absModelDir, err := filepath.Abs(modelDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve model directory path: %w", err)
	}
	if err := os.MkdirAll(absModelDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create model directory: %w", err)
	}

	cfg := &Config{
		DataDir:  absDataDir,
		ModelDir: absModelDir,
		Port:     getEnvAsInt("GO_PORT", 8001),
		DevMode:  getEnvAsBool("DEV_MODE", false),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		PriceUpdateSchedule:   getEnv("PRICE_UPDATE_SCHEDULE", "0 0 3 * * *"),
		HistoryRollupSchedule: getEnv("HISTORY_ROLLUP_SCHEDULE", "0 0 0 * * MON"),
		TrainingSchedule:      getEnv("TRAINING_SCHEDULE", "0 30 0 * * MON"),
		BackupSchedule:        getEnv("BACKUP_SCHEDULE", "0 0 4 * * *"),

		R2: R2Config{
			AccountID:       getEnv("R2_ACCOUNT_ID", ""),
			AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
			BucketName:      getEnv("R2_BUCKET_NAME", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
