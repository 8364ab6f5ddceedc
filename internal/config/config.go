package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/ivanoskov/market_bot/internal/model"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendSupabase = "supabase"
)

type Config struct {
	TelegramToken string

	StorageBackend string
	DataDir        string
	SQLitePath     string
	SupabaseURL    string
	SupabaseKey    string

	MediaDir   string
	Categories []model.Category

	RetentionDays    int
	ContactMinDigits int
	ContactMaxDigits int
	SweepInterval    time.Duration

	LogLevel    string
	MetricsAddr string
	WebhookAddr string
	Workers     int
}

// categoriesFile - формат файла CATEGORIES_FILE
type categoriesFile struct {
	Categories []string `yaml:"categories"`
}

// LoadConfig читает .env, если он есть, и переменные окружения
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv собирает конфигурацию только из окружения
func FromEnv() (*Config, error) {
	cfg := &Config{
		TelegramToken:  os.Getenv("TELEGRAM_TOKEN"),
		StorageBackend: getEnv("STORAGE_BACKEND", BackendFile),
		DataDir:        getEnv("DATA_DIR", "."),
		SQLitePath:     getEnv("SQLITE_PATH", "market.sqlite3"),
		SupabaseURL:    os.Getenv("SUPABASE_URL"),
		SupabaseKey:    os.Getenv("SUPABASE_KEY"),
		MediaDir:       getEnv("MEDIA_DIR", "."),
		Categories:     model.DefaultCategories,
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		MetricsAddr:    os.Getenv("METRICS_ADDR"),
		WebhookAddr:    os.Getenv("WEBHOOK_ADDR"),
	}

	var err error
	if cfg.RetentionDays, err = getInt("RETENTION_DAYS", 30); err != nil {
		return nil, err
	}
	if cfg.ContactMinDigits, err = getInt("CONTACT_MIN_DIGITS", 8); err != nil {
		return nil, err
	}
	if cfg.ContactMaxDigits, err = getInt("CONTACT_MAX_DIGITS", 15); err != nil {
		return nil, err
	}
	if cfg.Workers, err = getInt("WORKERS", 8); err != nil {
		return nil, err
	}
	if cfg.SweepInterval, err = getDuration("SWEEP_INTERVAL", 24*time.Hour); err != nil {
		return nil, err
	}

	if path := os.Getenv("CATEGORIES_FILE"); path != "" {
		if cfg.Categories, err = loadCategories(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.TelegramToken == "" {
		return errors.New("TELEGRAM_TOKEN is required")
	}
	switch c.StorageBackend {
	case BackendFile, BackendSQLite:
	case BackendSupabase:
		if c.SupabaseURL == "" || c.SupabaseKey == "" {
			return errors.New("SUPABASE_URL and SUPABASE_KEY are required for the supabase backend")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}
	if c.RetentionDays < 1 {
		return fmt.Errorf("RETENTION_DAYS must be positive, got %d", c.RetentionDays)
	}
	if c.ContactMinDigits < 1 || c.ContactMaxDigits < c.ContactMinDigits {
		return fmt.Errorf("invalid contact bounds %d..%d", c.ContactMinDigits, c.ContactMaxDigits)
	}
	if c.Workers < 1 {
		return fmt.Errorf("WORKERS must be positive, got %d", c.Workers)
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL must be positive, got %s", c.SweepInterval)
	}
	if len(c.Categories) == 0 {
		return errors.New("category list is empty")
	}
	return nil
}

func loadCategories(path string) ([]model.Category, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read categories file: %w", err)
	}

	var file categoriesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse categories file: %w", err)
	}

	seen := make(map[string]bool, len(file.Categories))
	categories := make([]model.Category, 0, len(file.Categories))
	for _, name := range file.Categories {
		if name == "" || seen[name] {
			return nil, fmt.Errorf("invalid category %q in %s", name, path)
		}
		seen[name] = true
		categories = append(categories, model.Category(name))
	}
	return categories, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
