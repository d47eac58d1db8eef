// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/aristath/turtle/internal/clients/kiwoom"
	"github.com/aristath/turtle/internal/domain"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for portfolio.db and backup staging (always absolute)
	LogLevel string
	Port     int
	DevMode  bool

	Kiwoom KiwoomConfig

	DefaultInitialBalance decimal.Decimal
	FallbackRisk          domain.RiskSettings

	ReconcileSchedule string // cron spec with seconds; empty disables

	Backup BackupConfig

	CORSOrigins []string
}

// KiwoomConfig holds broker credentials and transport settings
type KiwoomConfig struct {
	AppKey    string
	SecretKey string
	AccountNo string // the one account the app key can read
	BaseURL   string
	RateLimit int // requests per second
	Timeout   time.Duration
}

// HasCredentials reports whether both keys are configured
func (k KiwoomConfig) HasCredentials() bool {
	return k.AppKey != "" && k.SecretKey != ""
}

// BackupConfig holds off-site backup settings
type BackupConfig struct {
	Schedule      string
	Bucket        string
	Endpoint      string
	Region        string
	AccessKeyID   string
	SecretKey     string
	RetentionDays int
}

// Enabled reports whether scheduled backups should run
func (b BackupConfig) Enabled() bool {
	return b.Schedule != "" && b.Bucket != ""
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("TURTLE_DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg, err := fromEnv()
	if err != nil {
		return nil, err
	}
	cfg.DataDir = absDataDir

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// fromEnv parses everything except the data directory
func fromEnv() (*Config, error) {
	baseURL := kiwoom.ProductionBaseURL
	if getEnvAsBool("KIWOOM_MOCK", false) {
		baseURL = kiwoom.MockBaseURL
	}

	timeout, err := getEnvAsDuration("BROKER_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	balance, err := getEnvAsDecimal("DEFAULT_INITIAL_BALANCE", domain.DefaultInitialBalance)
	if err != nil {
		return nil, err
	}

	defaults := domain.DefaultRiskSettings()
	perTrade, err := getEnvAsDecimal("FALLBACK_MAX_RISK_PER_TRADE", defaults.MaxRiskPerTrade)
	if err != nil {
		return nil, err
	}
	total, err := getEnvAsDecimal("FALLBACK_MAX_TOTAL_RISK", defaults.MaxTotalRisk)
	if err != nil {
		return nil, err
	}
	reserve, err := getEnvAsDecimal("FALLBACK_MIN_CASH_RESERVE", defaults.MinCashReserve)
	if err != nil {
		return nil, err
	}

	return &Config{
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Port:     getEnvAsInt("GO_PORT", 8001),
		DevMode:  getEnvAsBool("DEV_MODE", false),
		Kiwoom: KiwoomConfig{
			AppKey:    getEnv("KIWOOM_APP_KEY", ""),
			SecretKey: getEnv("KIWOOM_SECRET_KEY", ""),
			AccountNo: strings.TrimSpace(getEnv("KIWOOM_ACCOUNT_NO", "")),
			BaseURL:   getEnv("KIWOOM_BASE_URL", baseURL),
			RateLimit: getEnvAsInt("KIWOOM_RATE_LIMIT", kiwoom.DefaultRateLimit),
			Timeout:   timeout,
		},
		DefaultInitialBalance: balance,
		FallbackRisk: domain.RiskSettings{
			MaxRiskPerTrade: perTrade,
			MaxTotalRisk:    total,
			MinCashReserve:  reserve,
		},
		ReconcileSchedule: getEnv("RECONCILE_SCHEDULE", ""),
		Backup: BackupConfig{
			Schedule:      getEnv("BACKUP_SCHEDULE", ""),
			Bucket:        getEnv("BACKUP_S3_BUCKET", ""),
			Endpoint:      getEnv("BACKUP_S3_ENDPOINT", ""),
			Region:        getEnv("BACKUP_S3_REGION", "auto"),
			AccessKeyID:   getEnv("BACKUP_S3_ACCESS_KEY", ""),
			SecretKey:     getEnv("BACKUP_S3_SECRET_KEY", ""),
			RetentionDays: getEnvAsInt("BACKUP_RETENTION_DAYS", 30),
		},
		CORSOrigins: getEnvAsList("CORS_ORIGINS"),
	}, nil
}

// Validate rejects values the engine cannot run with
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("GO_PORT must be between 1 and 65535, got %d", c.Port)
	}
	if !c.DefaultInitialBalance.IsPositive() {
		return fmt.Errorf("DEFAULT_INITIAL_BALANCE must be positive, got %s", c.DefaultInitialBalance)
	}
	if c.Kiwoom.Timeout <= 0 {
		return fmt.Errorf("BROKER_TIMEOUT must be positive, got %s", c.Kiwoom.Timeout)
	}
	if c.Kiwoom.RateLimit <= 0 {
		return fmt.Errorf("KIWOOM_RATE_LIMIT must be positive, got %d", c.Kiwoom.RateLimit)
	}

	one := decimal.NewFromInt(1)
	fractions := []struct {
		key   string
		value decimal.Decimal
	}{
		{"FALLBACK_MAX_RISK_PER_TRADE", c.FallbackRisk.MaxRiskPerTrade},
		{"FALLBACK_MAX_TOTAL_RISK", c.FallbackRisk.MaxTotalRisk},
		{"FALLBACK_MIN_CASH_RESERVE", c.FallbackRisk.MinCashReserve},
	}
	for _, f := range fractions {
		if !f.value.IsPositive() || f.value.GreaterThan(one) {
			return fmt.Errorf("%s must be a fraction in (0, 1], got %s", f.key, f.value)
		}
	}

	if c.Backup.RetentionDays < 0 {
		return fmt.Errorf("BACKUP_RETENTION_DAYS must not be negative, got %d", c.Backup.RetentionDays)
	}

	// Credentials stay optional: without them every read degrades to the stored ledger
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

func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return d, nil
}

func getEnvAsDecimal(key string, defaultValue decimal.Decimal) (decimal.Decimal, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return d, nil
}

// getEnvAsList splits a comma-separated value, dropping blanks
func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
