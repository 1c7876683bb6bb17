package config

import (
	"fmt"
	"strings" // For LogLevel normalization

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Storage drivers accepted by STORAGE_DRIVER.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	StorageDriver    string `env:"STORAGE_DRIVER" envDefault:"sqlite"`
	DatabaseURL      string `env:"DATABASE_URL"`
	SQLitePath       string `env:"SQLITE_PATH" envDefault:"offspring.db"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"info"`
	Environment      string `env:"ENVIRONMENT" envDefault:"development"`
	CronSpecOverdue  string `env:"CRON_SPEC_OVERDUE_SWEEP" envDefault:"0 7 * * *"` // Default: 7 AM daily
	MetricsAddr      string `env:"METRICS_ADDR"`                                    // Empty disables the metrics listener
	OverdueGraceDays int    `env:"OVERDUE_GRACE_DAYS" envDefault:"0"`
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// Attempt to load .env file. Errors are ignored if the file doesn't exist.
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()
	return Parse()
}

// Parse builds the configuration from the process environment only.
func Parse() (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.StorageDriver = strings.ToLower(strings.TrimSpace(cfg.StorageDriver))
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.Environment = strings.ToLower(cfg.Environment)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks driver-specific requirements.
func (c *AppConfig) Validate() error {
	switch c.StorageDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is not set")
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is not set")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("invalid STORAGE_DRIVER %q: expected %s, %s or %s", c.StorageDriver, DriverPostgres, DriverSQLite, DriverMemory)
	}
	if c.OverdueGraceDays < 0 {
		return fmt.Errorf("invalid OVERDUE_GRACE_DAYS %d: must not be negative", c.OverdueGraceDays)
	}
	return nil
}
