package config

import (
	"log/slog"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/inventory")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != "3000" {
		t.Errorf("Port: expected 3000, got %q", cfg.Port)
	}
	if cfg.SessionTimeout != 30*time.Minute {
		t.Errorf("SessionTimeout: expected 30m, got %v", cfg.SessionTimeout)
	}
	if cfg.SessionSweepInterval != time.Minute {
		t.Errorf("SessionSweepInterval: expected 1m, got %v", cfg.SessionSweepInterval)
	}
	if cfg.OTPLength != 6 {
		t.Errorf("OTPLength: expected 6, got %d", cfg.OTPLength)
	}
	if cfg.PasswordResetTTL != 15*time.Minute {
		t.Errorf("PasswordResetTTL: expected 15m, got %v", cfg.PasswordResetTTL)
	}
	if cfg.LoginRateMax != 5 || cfg.LoginRateWindow != time.Minute {
		t.Errorf("login rate: expected 5/1m, got %d/%v", cfg.LoginRateMax, cfg.LoginRateWindow)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel: expected info, got %v", cfg.LogLevel)
	}
}

func TestLoadMissingDatabase(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_HOST", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when no database is configured")
	}
}

func TestLoadComposesDSNFromParts(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_USER", "app")
	t.Setenv("DB_PASSWORD", "pw")
	t.Setenv("DB_NAME", "inventory")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	want := "host=db user=app password=pw dbname=inventory port=5432 sslmode=disable TimeZone=UTC"
	if cfg.DatabaseURL != want {
		t.Errorf("DatabaseURL:\n got %q\nwant %q", cfg.DatabaseURL, want)
	}
}

func TestInvalidValuesFallBack(t *testing.T) {
	setRequired(t)
	t.Setenv("OTP_LENGTH", "abc")
	t.Setenv("SESSION_TIMEOUT", "-5m")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.OTPLength != 6 {
		t.Errorf("OTPLength: expected fallback 6, got %d", cfg.OTPLength)
	}
	if cfg.SessionTimeout != 30*time.Minute {
		t.Errorf("SessionTimeout: expected fallback 30m, got %v", cfg.SessionTimeout)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel: expected debug, got %v", cfg.LogLevel)
	}
}

func TestStockAlertIntervalOff(t *testing.T) {
	setRequired(t)
	t.Setenv("STOCK_ALERT_INTERVAL", "0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.StockAlertInterval != 0 {
		t.Errorf("expected scan disabled, got %v", cfg.StockAlertInterval)
	}
}

func TestOAuthRequiresStateSecret(t *testing.T) {
	setRequired(t)
	t.Setenv("GOOGLE_CLIENT_ID", "id")
	t.Setenv("GOOGLE_CLIENT_SECRET", "secret")
	t.Setenv("STATE_SECRET", "short")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for short state secret")
	}

	t.Setenv("STATE_SECRET", "0123456789abcdef0123456789abcdef")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !cfg.OAuthEnabled() {
		t.Error("expected OAuth enabled")
	}
}
