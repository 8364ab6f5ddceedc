package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ivanoskov/market_bot/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allKeys = []string{
	"TELEGRAM_TOKEN", "STORAGE_BACKEND", "DATA_DIR", "SQLITE_PATH", "SUPABASE_URL", "SUPABASE_KEY",
	"MEDIA_DIR", "CATEGORIES_FILE", "RETENTION_DAYS", "CONTACT_MIN_DIGITS", "CONTACT_MAX_DIGITS",
	"SWEEP_INTERVAL", "LOG_LEVEL", "METRICS_ADDR", "WEBHOOK_ADDR", "WORKERS",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
	}
}

func TestDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_TOKEN", "token")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, BackendFile, cfg.StorageBackend)
	assert.Equal(t, ".", cfg.DataDir)
	assert.Equal(t, ".", cfg.MediaDir, "legacy photo refs are relative to the working directory")
	assert.Equal(t, 30, cfg.RetentionDays)
	assert.Equal(t, 8, cfg.ContactMinDigits)
	assert.Equal(t, 15, cfg.ContactMaxDigits)
	assert.Equal(t, 24*time.Hour, cfg.SweepInterval)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, model.DefaultCategories, cfg.Categories)
	assert.Empty(t, cfg.MetricsAddr)
	assert.Empty(t, cfg.WebhookAddr)
}

func TestOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_TOKEN", "token")
	t.Setenv("STORAGE_BACKEND", "sqlite")
	t.Setenv("RETENTION_DAYS", "7")
	t.Setenv("SWEEP_INTERVAL", "1h30m")
	t.Setenv("WORKERS", "2")

	path := filepath.Join(t.TempDir(), "categories.yaml")
	require.NoError(t, os.WriteFile(path, []byte("categories:\n  - Книги\n  - Спорт\n"), 0o644))
	t.Setenv("CATEGORIES_FILE", path)

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, cfg.StorageBackend)
	assert.Equal(t, 7, cfg.RetentionDays)
	assert.Equal(t, 90*time.Minute, cfg.SweepInterval)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, []model.Category{"Книги", "Спорт"}, cfg.Categories)
}

func TestInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing token", map[string]string{}},
		{"unknown backend", map[string]string{"TELEGRAM_TOKEN": "t", "STORAGE_BACKEND": "redis"}},
		{"supabase without credentials", map[string]string{"TELEGRAM_TOKEN": "t", "STORAGE_BACKEND": "supabase"}},
		{"bad retention", map[string]string{"TELEGRAM_TOKEN": "t", "RETENTION_DAYS": "month"}},
		{"zero retention", map[string]string{"TELEGRAM_TOKEN": "t", "RETENTION_DAYS": "0"}},
		{"inverted contact bounds", map[string]string{"TELEGRAM_TOKEN": "t", "CONTACT_MIN_DIGITS": "10", "CONTACT_MAX_DIGITS": "9"}},
		{"bad interval", map[string]string{"TELEGRAM_TOKEN": "t", "SWEEP_INTERVAL": "daily"}},
		{"missing categories file", map[string]string{"TELEGRAM_TOKEN": "t", "CATEGORIES_FILE": "/nonexistent/categories.yaml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}

func TestDuplicateCategoriesRejected(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_TOKEN", "token")
	path := filepath.Join(t.TempDir(), "categories.yaml")
	require.NoError(t, os.WriteFile(path, []byte("categories: [Мебель, Мебель]\n"), 0o644))
	t.Setenv("CATEGORIES_FILE", path)

	_, err := FromEnv()
	assert.Error(t, err)
}
