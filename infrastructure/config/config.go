// Package config loads runtime configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration
type Config struct {
	// Environment is dev, staging, or prod.
	Environment string

	// HTTP server
	ServerAddress string
	AllowedOrigin string

	// AWS
	Region string

	// DynamoDB single table
	TableName string
	GSI1Name  string
	GSI2Name  string
	GSI3Name  string

	// Auth
	JWTSecret string
	JWTIssuer string

	// Score feed
	FeedBaseURL string
	FeedKinds   []string

	// Lock scheduling
	LockFunctionArn string

	// Resolution sweep window, in past calendar days.
	ResolveLookbackDays int

	// Logging
	LogLevel string

	// Rate limiting
	RateLimitPerMinute   int
	IPRateLimitPerMinute int
}

// Load reads configuration from environment variables with sane defaults
// for local development.
func Load() (*Config, error) {
	cfg := &Config{
		Environment:         getEnv("ENVIRONMENT", "dev"),
		ServerAddress:       getEnv("SERVER_ADDRESS", ":8080"),
		AllowedOrigin:       getEnv("ALLOWED_ORIGIN", "*"),
		Region:              getEnv("AWS_REGION", "us-east-1"),
		TableName:           getEnv("TABLE_NAME", "sidebet"),
		GSI1Name:            getEnv("GSI1_NAME", "GSI1"),
		GSI2Name:            getEnv("GSI2_NAME", "GSI2"),
		GSI3Name:            getEnv("GSI3_NAME", "GSI3"),
		JWTSecret:           getEnv("JWT_SECRET", ""),
		JWTIssuer:           getEnv("JWT_ISSUER", ""),
		FeedBaseURL:         getEnv("FEED_BASE_URL", "https://site.api.espn.com/apis/site/v2"),
		FeedKinds:           splitEnv("FEED_KINDS", "nfl,cfb"),
		LockFunctionArn:     getEnv("LOCK_FUNCTION_ARN", ""),
		ResolveLookbackDays: getEnvInt("RESOLVE_LOOKBACK_DAYS", 7),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		// The IP budget is looser than the per-user one; many callers can
		// share one address.
		RateLimitPerMinute:   getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
		IPRateLimitPerMinute: getEnvInt("IP_RATE_LIMIT_PER_MINUTE", 600),
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.JWTSecret == "" {
		// Only reachable in dev; validate rejects this elsewhere.
		cfg.JWTSecret = "local-dev-secret"
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.TableName == "" {
		return fmt.Errorf("TABLE_NAME is required")
	}
	if c.JWTSecret == "" && c.Environment != "dev" {
		return fmt.Errorf("JWT_SECRET is required outside dev")
	}
	if len(c.FeedKinds) == 0 {
		return fmt.Errorf("FEED_KINDS must name at least one kind")
	}
	return nil
}

// IsProduction reports whether the app runs in prod.
func (c *Config) IsProduction() bool {
	return c.Environment == "prod"
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}

func splitEnv(key, fallback string) []string {
	raw := getEnv(key, fallback)
	var parts []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}
