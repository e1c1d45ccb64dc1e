package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Config holds all configuration for the server and worker
type Config struct {
	// HTTP Configuration
	HTTP HTTPConfig

	// Database Configuration
	Database DatabaseConfig

	// Redis Configuration
	Redis RedisConfig

	// Auth Configuration
	Auth AuthConfig

	// Jobs Configuration
	Jobs JobsConfig

	// Logging Configuration
	Logging LoggingConfig
}

// HTTPConfig holds API listener configuration
type HTTPConfig struct {
	Address     string
	CORSOrigins []string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver string // sqlite, postgres
	URL    string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Address string // Redis address (host:port)
}

// AuthConfig holds token signing configuration
type AuthConfig struct {
	SecretKey string
	TokenTTL  time.Duration
}

// JobsConfig holds background job configuration
type JobsConfig struct {
	MonthCloseSchedule string // cron expression
	MonitorAddress     string // asynqmon listen address
	MetricsAddress     string // worker /metrics listen address
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string
	Format string // json, console
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env files (fails silently if files don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	ttl, err := getEnvDuration("TOKEN_TTL", 24*time.Hour)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTP: HTTPConfig{
			Address:     getEnv("HTTP_ADDRESS", ":8000"),
			CORSOrigins: splitList(getEnv("CORS_ORIGINS", "*")),
		},
		Database: DatabaseConfig{
			Driver: strings.ToLower(getEnv("DATABASE_DRIVER", "sqlite")),
			URL:    getEnv("DATABASE_URL", "finance.db"),
		},
		Redis: RedisConfig{
			Address: getEnv("REDIS_ADDRESS", "localhost:6379"),
		},
		Auth: AuthConfig{
			SecretKey: os.Getenv("SECRET_KEY"),
			TokenTTL:  ttl,
		},
		Jobs: JobsConfig{
			MonthCloseSchedule: getEnv("MONTH_CLOSE_SCHEDULE", "0 3 1 * *"),
			MonitorAddress:     getEnv("ASYNQMON_ADDRESS", ":8090"),
			MetricsAddress:     getEnv("WORKER_METRICS_ADDRESS", ":9091"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration and reports every problem at once
func (c *Config) Validate() error {
	var problems []string

	if c.Auth.SecretKey == "" {
		problems = append(problems, "SECRET_KEY is required")
	}
	if c.Auth.TokenTTL <= 0 {
		problems = append(problems, "TOKEN_TTL must be positive")
	}
	if c.Database.Driver != "sqlite" && c.Database.Driver != "postgres" {
		problems = append(problems, fmt.Sprintf("DATABASE_DRIVER must be sqlite or postgres, got %q", c.Database.Driver))
	}
	if c.Database.URL == "" {
		problems = append(problems, "DATABASE_URL is required")
	}
	if c.HTTP.Address == "" {
		problems = append(problems, "HTTP_ADDRESS is required")
	}
	if c.Jobs.MonthCloseSchedule != "" {
		parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
		if _, err := parser.Parse(c.Jobs.MonthCloseSchedule); err != nil {
			problems = append(problems, fmt.Sprintf("MONTH_CLOSE_SCHEDULE is invalid: %v", err))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
