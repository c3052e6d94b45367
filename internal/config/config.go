// Package config loads process configuration from the environment once at
// startup. The resulting Config is passed into every constructor; nothing in
// the service layer reads os.Getenv directly.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port        string
	DatabaseURL string
	LogLevel    slog.Level
	CORSOrigins string

	// Sessions use a sliding inactivity window.
	SessionTimeout       time.Duration
	SessionSweepInterval time.Duration

	OTPLength        int
	OTPTTL           time.Duration
	PasswordResetTTL time.Duration
	PasswordResetURL string
	TOTPIssuer       string

	// HashWorkers bounds concurrent bcrypt operations.
	HashWorkers int

	LoginRateMax    int
	LoginRateWindow time.Duration

	// StockAlertInterval of zero disables the periodic low-stock scan.
	StockAlertInterval time.Duration

	// Optional infrastructure. Empty values select in-process fallbacks.
	RedisURL string
	AMQPURL  string

	SMTPHost        string
	SMTPPort        string
	SMTPUsername    string
	SMTPPassword    string
	SMTPFromAddress string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	GeoURL    string
	GeoAPIKey string

	// StateSecret signs OAuth state tokens.
	StateSecret string

	// First administrator, created at startup when no admin exists.
	AdminUsername string
	AdminEmail    string
	AdminPassword string
}

// Load reads environment variables and returns a validated Config.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" && os.Getenv("DB_HOST") != "" {
		cfg.DatabaseURL = fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
			os.Getenv("DB_HOST"),
			os.Getenv("DB_USER"),
			os.Getenv("DB_PASSWORD"),
			os.Getenv("DB_NAME"),
			envString("DB_PORT", "5432"),
		)
	}

	cfg.Port = envString("PORT", "3000")
	cfg.CORSOrigins = envString("CORS_ORIGINS", "*")
	cfg.LogLevel = parseLevel(os.Getenv("LOG_LEVEL"))

	cfg.SessionTimeout = envDuration("SESSION_TIMEOUT", 30*time.Minute)
	cfg.SessionSweepInterval = envDuration("SESSION_SWEEP_INTERVAL", time.Minute)

	cfg.OTPLength = envInt("OTP_LENGTH", 6)
	cfg.OTPTTL = envDuration("OTP_TTL", 5*time.Minute)
	cfg.PasswordResetTTL = envDuration("PASSWORD_RESET_TTL", 15*time.Minute)
	cfg.PasswordResetURL = envString("PASSWORD_RESET_URL", "http://localhost:5173/reset-password")
	cfg.TOTPIssuer = envString("TOTP_ISSUER", "Inventory POS")

	cfg.HashWorkers = envInt("HASH_WORKERS", 4)

	cfg.LoginRateMax = envInt("RATE_LOGIN_MAX", 5)
	cfg.LoginRateWindow = envDuration("RATE_LOGIN_WINDOW", time.Minute)

	// "0" is an explicit opt-out, so it is read before envDuration rejects it.
	if v := os.Getenv("STOCK_ALERT_INTERVAL"); v == "0" || strings.EqualFold(v, "off") {
		cfg.StockAlertInterval = 0
	} else {
		cfg.StockAlertInterval = envDuration("STOCK_ALERT_INTERVAL", time.Hour)
	}

	cfg.RedisURL = os.Getenv("REDIS_URL")
	cfg.AMQPURL = os.Getenv("AMQP_URL")

	cfg.SMTPHost = os.Getenv("SMTP_HOST")
	cfg.SMTPPort = envString("SMTP_PORT", "587")
	cfg.SMTPUsername = os.Getenv("SMTP_USERNAME")
	cfg.SMTPPassword = os.Getenv("SMTP_PASSWORD")
	cfg.SMTPFromAddress = os.Getenv("SMTP_FROM")

	cfg.GoogleClientID = os.Getenv("GOOGLE_CLIENT_ID")
	cfg.GoogleClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
	cfg.GoogleRedirectURL = os.Getenv("GOOGLE_REDIRECT_URL")

	cfg.GeoURL = os.Getenv("GOOGLE_GEO_URL")
	cfg.GeoAPIKey = os.Getenv("GOOGLE_GEO_API_KEY")

	cfg.StateSecret = os.Getenv("STATE_SECRET")

	cfg.AdminUsername = envString("ADMIN_USERNAME", "admin")
	cfg.AdminEmail = envString("ADMIN_EMAIL", "admin@localhost.localdomain")
	cfg.AdminPassword = os.Getenv("ADMIN_PASSWORD")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports configuration that would fail at runtime.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL or DB_HOST is required")
	}
	if c.OAuthEnabled() && len(c.StateSecret) < 32 {
		return fmt.Errorf("STATE_SECRET must be at least 32 bytes when Google OAuth is configured")
	}
	if c.SMTPHost != "" && c.SMTPFromAddress == "" {
		return fmt.Errorf("SMTP_FROM is required when SMTP_HOST is set")
	}
	return nil
}

func (c *Config) OAuthEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

func (c *Config) GeoEnabled() bool {
	return c.GeoURL != "" && c.GeoAPIKey != ""
}

func parseLevel(v string) slog.Level {
	switch strings.ToLower(v) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// envInt reads an env var as a positive int, returning def if missing or unparseable.
func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		slog.Warn("invalid env var, using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}

// envDuration reads an env var as a positive time.Duration, returning def if missing or unparseable.
func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		slog.Warn("invalid env var, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}
