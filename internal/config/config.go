package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const devJWTSecret = "postboard-dev-secret"

// Config holds the application configuration.
type Config struct {
	ServerPort         int
	DatabasePath       string
	AppEnv             string
	EnableClearRoute   bool
	JWTSecret          string
	TokenTTL           time.Duration
	AllowedOrigins     []string
	LogLevel           string
	EventRetention     time.Duration
	EventPruneSchedule string
}

// IsProduction reports whether the service runs with APP_ENV=production.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Load loads configuration from environment variables or sets defaults.
// Every malformed value is reported in a single error.
func Load() (*Config, error) {
	var errs []string

	cfg := &Config{
		ServerPort:         getEnvInt("PORT", 8080, &errs),
		DatabasePath:       getEnv("DATABASE_PATH", "./users.db"),
		AppEnv:             getEnv("APP_ENV", "development"),
		TokenTTL:           getEnvDuration("TOKEN_TTL", 24*time.Hour, &errs),
		AllowedOrigins:     splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		EventRetention:     getEnvDuration("EVENT_RETENTION", 30*24*time.Hour, &errs),
		EventPruneSchedule: getEnv("EVENT_PRUNE_SCHEDULE", "@hourly"),
	}

	// The reset route is a development tool; production has to opt in.
	cfg.EnableClearRoute = getEnvBool("ENABLE_CLEAR_ROUTE", !cfg.IsProduction(), &errs)

	cfg.JWTSecret = getEnv("JWT_SECRET", "")
	if cfg.JWTSecret == "" {
		if cfg.IsProduction() {
			errs = append(errs, "missing required environment variable: JWT_SECRET")
		} else {
			cfg.JWTSecret = devJWTSecret
		}
	}

	if cfg.ServerPort <= 0 || cfg.ServerPort > 65535 {
		errs = append(errs, fmt.Sprintf("invalid value for PORT: %d is out of range", cfg.ServerPort))
	}
	if cfg.TokenTTL <= 0 {
		errs = append(errs, "invalid value for TOKEN_TTL: must be positive")
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration errors:\n- %s", strings.Join(errs, "\n- "))
	}
	return cfg, nil
}

// Helper to get an environment variable with a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int, errs *[]string) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("invalid value for %s: expected integer, got '%s'", key, value))
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool, errs *[]string) bool {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("invalid value for %s: expected boolean, got '%s'", key, value))
		return fallback
	}
	return b
}

func getEnvDuration(key string, fallback time.Duration, errs *[]string) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("invalid value for %s: expected duration, got '%s'", key, value))
		return fallback
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
