package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Environment
	Env string // "development", "production", etc.

	// Server
	ServerAddr string

	// Storage
	StoreBackend string // "postgres" or "memory"
	DatabaseURL  string
	RedisURL     string // shared rate-limiter storage; empty keeps it in memory

	// OIDC bearer-token verification. Empty issuer disables auth (development only).
	OIDCIssuer   string
	OIDCClientID string
	OIDCOrgClaim string // claim carrying organization slugs

	// CORS
	CORSOrigins string // Comma-separated allowed origins, e.g. "https://example.com,https://app.example.com"

	RateLimitPerMinute int

	// Oracle
	OracleURL       string
	OracleAPIKey    string
	OracleModel     string
	OracleVersion   string
	OracleTimeout   time.Duration // per attempt
	OracleRetryWait time.Duration
	OracleMaxTokens int

	// Engine
	MaxSOWChars      int
	GenerationPolicy string // "wait" or "reject"
	SeedDevData      bool
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Env:              getEnv("ENV", "development"),
		ServerAddr:       getEnv("SERVER_ADDR", ":3000"),
		StoreBackend:     strings.ToLower(getEnv("STORE_BACKEND", "postgres")),
		DatabaseURL:      getEnv("DATABASE_URL", "postgres://localhost:5432/sowmatch?sslmode=disable"),
		RedisURL:         getEnv("REDIS_URL", ""),
		OIDCIssuer:       getEnv("OIDC_ISSUER", ""),
		OIDCClientID:     getEnv("OIDC_CLIENT_ID", ""),
		OIDCOrgClaim:     getEnv("OIDC_ORG_CLAIM", "organizations"),
		CORSOrigins:      getEnv("CORS_ORIGINS", "http://localhost:5173"),
		OracleURL:        getEnv("ORACLE_URL", "https://api.anthropic.com/v1"),
		OracleAPIKey:     getEnv("ORACLE_API_KEY", ""),
		OracleModel:      getEnv("ORACLE_MODEL", "claude-sonnet-4-20250514"),
		OracleVersion:    getEnv("ORACLE_VERSION", "2023-06-01"),
		GenerationPolicy: getEnv("GENERATION_POLICY", "wait"),
		SeedDevData:      getEnv("SEED_DEV_DATA", "") != "",
	}

	var err error
	if cfg.RateLimitPerMinute, err = getEnvInt("RATE_LIMIT_PER_MINUTE", 100); err != nil {
		return nil, err
	}
	if cfg.OracleTimeout, err = getEnvDuration("ORACLE_TIMEOUT", 120*time.Second); err != nil {
		return nil, err
	}
	if cfg.OracleRetryWait, err = getEnvDuration("ORACLE_RETRY_WAIT", 2*time.Second); err != nil {
		return nil, err
	}
	if cfg.OracleMaxTokens, err = getEnvInt("ORACLE_MAX_TOKENS", 8000); err != nil {
		return nil, err
	}
	if cfg.MaxSOWChars, err = getEnvInt("MAX_SOW_CHARS", 8000); err != nil {
		return nil, err
	}

	switch cfg.StoreBackend {
	case "postgres", "memory":
	default:
		return nil, fmt.Errorf("STORE_BACKEND must be postgres or memory, got %q", cfg.StoreBackend)
	}
	if !cfg.IsDev() && cfg.OIDCIssuer == "" {
		return nil, fmt.Errorf("OIDC_ISSUER is required outside development")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, value)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration, got %q", key, value)
	}
	return d, nil
}

// IsDev returns true if the environment is set to development.
func (c *Config) IsDev() bool {
	return c.Env == "development" || c.Env == "dev"
}

// AuthEnabled returns true if bearer tokens are verified.
func (c *Config) AuthEnabled() bool {
	return c.OIDCIssuer != ""
}
