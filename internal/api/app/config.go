package app

import (
	"errors"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Issuer          string // Issuer claim for tokens (default: lawdesk)
	AccessSecret    string // Required: HS256 secret for access tokens
	RefreshSecret   string // Required: HS256 secret for refresh tokens
	TwoFactorIssuer string // Issuer label shown in authenticator apps (default: LawDesk)

	DatabaseFile         string        // Path to SQLite database file (default: ./lawdesk.db)
	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

func LoadConfig() Config {
	return Config{
		Issuer:          getEnvOrDefault("LAWDESK_ISSUER", "lawdesk"),
		AccessSecret:    os.Getenv("LAWDESK_ACCESS_SECRET"),
		RefreshSecret:   os.Getenv("LAWDESK_REFRESH_SECRET"),
		TwoFactorIssuer: getEnvOrDefault("LAWDESK_2FA_ISSUER", "LawDesk"),

		DatabaseFile:         getEnvOrDefault("LAWDESK_DATABASE_FILE", "lawdesk.db"),
		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}
}

// Validate rejects configurations the service cannot safely run with.
// Missing token secrets are startup-fatal; defaulting them would mean every
// deployment silently shares the same signing key.
func (c Config) Validate() error {
	if c.AccessSecret == "" {
		return errors.New("LAWDESK_ACCESS_SECRET is required")
	}
	if c.RefreshSecret == "" {
		return errors.New("LAWDESK_REFRESH_SECRET is required")
	}
	if c.AccessSecret == c.RefreshSecret {
		return errors.New("LAWDESK_ACCESS_SECRET and LAWDESK_REFRESH_SECRET must differ")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	return defaultValue
}
