package config

import (
	"fmt"
	"os"
	"strconv"
	"strings" // For LogLevel normalization

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	DatabaseURL            string
	HTTPAddr               string
	CORSOrigin             string
	TelegramToken          string // Empty disables the operator chat
	OperatorTelegramID     int64
	LogLevel               string
	Environment            string
	CronSpecMonthly        string // Monthly bill generation, evaluated in UTC
	ReconcileHorizonMonths int
	StrictDueDayMatch      bool
	RunMigrations          bool
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// godotenv.Load does not override variables that are already set.
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds the configuration from a variable lookup function.
func FromEnv(getenv func(string) string) (*AppConfig, error) {
	cfg := &AppConfig{}
	var err error

	cfg.DatabaseURL = getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	cfg.HTTPAddr = getenv("HTTP_ADDR")
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}

	cfg.CORSOrigin = getenv("CORS_ORIGIN")
	if cfg.CORSOrigin == "" {
		cfg.CORSOrigin = "http://localhost:8081"
	}

	cfg.TelegramToken = getenv("TELEGRAM_TOKEN")
	if cfg.TelegramToken != "" {
		operatorIDStr := getenv("OPERATOR_TELEGRAM_ID")
		if operatorIDStr == "" {
			return nil, fmt.Errorf("OPERATOR_TELEGRAM_ID is not set")
		}
		cfg.OperatorTelegramID, err = strconv.ParseInt(operatorIDStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid OPERATOR_TELEGRAM_ID: %w", err)
		}
	}

	cfg.LogLevel = strings.ToLower(getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	cfg.Environment = strings.ToLower(getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	cfg.CronSpecMonthly = getenv("CRON_SPEC_MONTHLY")
	if cfg.CronSpecMonthly == "" {
		cfg.CronSpecMonthly = "0 4 1 * *" // Default: 04:00 UTC on the 1st
	}

	cfg.ReconcileHorizonMonths = 120
	if v := getenv("RECONCILE_HORIZON_MONTHS"); v != "" {
		cfg.ReconcileHorizonMonths, err = strconv.Atoi(v)
		if err != nil || cfg.ReconcileHorizonMonths <= 0 {
			return nil, fmt.Errorf("invalid RECONCILE_HORIZON_MONTHS %q: must be a positive integer", v)
		}
	}

	cfg.StrictDueDayMatch, err = parseBool(getenv, "STRICT_DUE_DAY_MATCH", false)
	if err != nil {
		return nil, err
	}
	cfg.RunMigrations, err = parseBool(getenv, "RUN_MIGRATIONS", true)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

func parseBool(getenv func(string) string, key string, def bool) (bool, error) {
	v := getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

// TelegramEnabled reports whether the operator chat should be started.
func (c *AppConfig) TelegramEnabled() bool {
	return c.TelegramToken != ""
}
