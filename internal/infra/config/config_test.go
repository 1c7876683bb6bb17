package config

import (
	"strings"
	"testing"
)

func TestParseSQLiteDefaults(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "SQLite")
	t.Setenv("LOG_LEVEL", "DEBUG")
	cfg, err := Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.StorageDriver != DriverSQLite {
		t.Fatalf("expected normalised driver, got %q", cfg.StorageDriver)
	}
	if cfg.SQLitePath != "offspring.db" {
		t.Fatalf("expected default sqlite path, got %q", cfg.SQLitePath)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("expected lower-cased log level, got %q", cfg.LogLevel)
	}
	if cfg.CronSpecOverdue != "0 7 * * *" {
		t.Fatalf("unexpected default cron spec %q", cfg.CronSpecOverdue)
	}
}

func TestParsePostgresRequiresURL(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "")
	if _, err := Parse(); err == nil || !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Fatalf("expected DATABASE_URL error, got %v", err)
	}

	t.Setenv("DATABASE_URL", "postgres://localhost/offspring?sslmode=disable")
	cfg, err := Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.DatabaseURL == "" {
		t.Fatalf("expected database url to be kept")
	}
}

func TestParseRejectsUnknownDriver(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "mysql")
	if _, err := Parse(); err == nil {
		t.Fatalf("expected unknown driver to be rejected")
	}
}

func TestParseGraceDays(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("OVERDUE_GRACE_DAYS", "3")
	cfg, err := Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.OverdueGraceDays != 3 {
		t.Fatalf("expected 3 grace days, got %d", cfg.OverdueGraceDays)
	}

	t.Setenv("OVERDUE_GRACE_DAYS", "-1")
	if _, err := Parse(); err == nil {
		t.Fatalf("expected negative grace days to be rejected")
	}

	t.Setenv("OVERDUE_GRACE_DAYS", "soon")
	if _, err := Parse(); err == nil {
		t.Fatalf("expected non-numeric grace days to be rejected")
	}
}
