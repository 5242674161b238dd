// Package config loads the immutable service configuration from the
// environment at startup. Nothing here mutates after Load returns.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is injected into the transport layer at startup.
type Config struct {
	Addr        string
	DatabaseURL string

	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration

	AllowedOrigins  []string
	DevelopmentMode bool

	SentryDSN   string
	Environment string

	LoginRateMax    int
	LoginRateWindow time.Duration

	CronSecret string
}

// Load reads configuration from the environment. When loadDotEnv is true a
// local .env file is merged in first.
func Load(loadDotEnv bool) (Config, error) {
	if loadDotEnv {
		_ = godotenv.Load()
	}

	databaseURL, err := mustEnv("DATABASE_URL")
	if err != nil {
		return Config{}, err
	}
	accessSecret, err := mustEnv("ACCESS_TOKEN_SECRET")
	if err != nil {
		return Config{}, err
	}
	refreshSecret, err := mustEnv("REFRESH_TOKEN_SECRET")
	if err != nil {
		return Config{}, err
	}
	if accessSecret == refreshSecret {
		return Config{}, fmt.Errorf("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ")
	}

	return Config{
		Addr:            ":" + envOrDefault("PORT", "8080"),
		DatabaseURL:     databaseURL,
		AccessSecret:    accessSecret,
		RefreshSecret:   refreshSecret,
		AccessTTL:       envMinutesOrDefault("ACCESS_TOKEN_TTL_MINUTES", 15),
		RefreshTTL:      envHoursOrDefault("REFRESH_TOKEN_TTL_HOURS", 168),
		AllowedOrigins:  splitOrigins(os.Getenv("CORS_ALLOWED_ORIGINS")),
		DevelopmentMode: BoolFromEnv("DEV_MODE", false),
		SentryDSN:       os.Getenv("SENTRY_DSN"),
		Environment:     envOrDefault("APP_ENV", "development"),
		LoginRateMax:    envIntOrDefault("LOGIN_RATE_LIMIT_MAX", 10),
		LoginRateWindow: envSecondsOrDefault("LOGIN_RATE_LIMIT_WINDOW_SECONDS", 60),
		CronSecret:      strings.TrimSpace(os.Getenv("CRON_SECRET")),
	}, nil
}

func splitOrigins(raw string) []string {
	origins := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			origins = append(origins, part)
		}
	}
	return origins
}

func mustEnv(name string) (string, error) {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return "", fmt.Errorf("missing required env: %s", name)
	}
	return value, nil
}

func envOrDefault(name, fallback string) string {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	return value
}

func envIntOrDefault(name string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func envMinutesOrDefault(name string, fallback int) time.Duration {
	return time.Duration(envIntOrDefault(name, fallback)) * time.Minute
}

func envHoursOrDefault(name string, fallback int) time.Duration {
	return time.Duration(envIntOrDefault(name, fallback)) * time.Hour
}

func envSecondsOrDefault(name string, fallback int) time.Duration {
	return time.Duration(envIntOrDefault(name, fallback)) * time.Second
}

// BoolFromEnv parses a boolean env flag with a fallback for unset or
// unrecognized values.
func BoolFromEnv(name string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
