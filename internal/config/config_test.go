package config

import (
	"testing"
	"time"

	"github.com/aristath/turtle/internal/clients/kiwoom"
	"github.com/aristath/turtle/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TURTLE_DATA_DIR", dir)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.DataDir)
	assert.Equal(t, 8001, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, kiwoom.ProductionBaseURL, cfg.Kiwoom.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Kiwoom.Timeout)
	assert.False(t, cfg.Kiwoom.HasCredentials())
	assert.True(t, cfg.DefaultInitialBalance.Equal(domain.DefaultInitialBalance))
	assert.True(t, cfg.FallbackRisk.MaxTotalRisk.Equal(decimal.RequireFromString("0.20")))
	assert.False(t, cfg.Backup.Enabled())
	assert.Equal(t, 30, cfg.Backup.RetentionDays)
	assert.Empty(t, cfg.Kiwoom.AccountNo)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("TURTLE_DATA_DIR", t.TempDir())
	t.Setenv("GO_PORT", "9100")
	t.Setenv("KIWOOM_APP_KEY", "app")
	t.Setenv("KIWOOM_SECRET_KEY", "secret")
	t.Setenv("KIWOOM_MOCK", "true")
	t.Setenv("BROKER_TIMEOUT", "3s")
	t.Setenv("DEFAULT_INITIAL_BALANCE", "10000000")
	t.Setenv("FALLBACK_MAX_RISK_PER_TRADE", "0.01")
	t.Setenv("KIWOOM_ACCOUNT_NO", " 5012345601 ")
	t.Setenv("BACKUP_SCHEDULE", "0 0 3 * * *")
	t.Setenv("BACKUP_S3_BUCKET", "turtle-backups")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Port)
	assert.True(t, cfg.Kiwoom.HasCredentials())
	assert.Equal(t, kiwoom.MockBaseURL, cfg.Kiwoom.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.Kiwoom.Timeout)
	assert.True(t, cfg.DefaultInitialBalance.Equal(decimal.NewFromInt(10_000_000)))
	assert.True(t, cfg.FallbackRisk.MaxRiskPerTrade.Equal(decimal.RequireFromString("0.01")))
	assert.Equal(t, "5012345601", cfg.Kiwoom.AccountNo)
	assert.True(t, cfg.Backup.Enabled())
}

func TestLoad_ExplicitBaseURLWins(t *testing.T) {
	t.Setenv("TURTLE_DATA_DIR", t.TempDir())
	t.Setenv("KIWOOM_MOCK", "true")
	t.Setenv("KIWOOM_BASE_URL", "http://localhost:9999")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9999", cfg.Kiwoom.BaseURL)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad duration", "BROKER_TIMEOUT", "soon"},
		{"negative timeout", "BROKER_TIMEOUT", "-1s"},
		{"bad balance", "DEFAULT_INITIAL_BALANCE", "lots"},
		{"zero balance", "DEFAULT_INITIAL_BALANCE", "0"},
		{"fraction above one", "FALLBACK_MAX_TOTAL_RISK", "1.5"},
		{"zero fraction", "FALLBACK_MIN_CASH_RESERVE", "0"},
		{"port out of range", "GO_PORT", "70000"},
		{"negative retention", "BACKUP_RETENTION_DAYS", "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TURTLE_DATA_DIR", t.TempDir())
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}
