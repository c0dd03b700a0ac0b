// Package config handles loading application configuration from environment
// variables, optionally seeded from a .env file. All config is centralized
// here so no other package reads env vars directly. Sensible defaults are
// provided for development.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Session strategies.
const (
	StrategyRedis = "redis"
	StrategyJWT   = "jwt"
)

// devSecretKey keeps local development working without a .env file.
const devSecretKey = "dev-secret-key-do-not-use-in-production!!"

// Config holds all application configuration. Populated from environment
// variables at startup. Passed to other packages via dependency injection.
type Config struct {
	// Env is the runtime environment: "development" or "production".
	Env string `validate:"required,oneof=development dev production prod test"`

	// Port is the HTTP listen port (default: 8080).
	Port int `validate:"min=1,max=65535"`

	// BaseURL is the public-facing URL used for links and redirects.
	BaseURL string `validate:"required,url"`

	// Log holds logging settings.
	Log LogConfig

	// Mongo holds document database settings.
	Mongo MongoConfig

	// Redis holds Redis connection settings.
	Redis RedisConfig

	// Auth holds session settings.
	Auth AuthConfig

	// OAuth holds the sign-in provider credentials.
	OAuth OAuthConfig

	// HTTP holds edge settings: proxies, CORS and rate limits.
	HTTP HTTPConfig
}

// LogConfig controls the console and file log outputs.
type LogConfig struct {
	ConsoleLevel string `validate:"oneof=debug info warn error"`
	FileLevel    string `validate:"oneof=debug info warn error"`

	// File enables rotated JSON logs when set.
	File string
}

// MongoConfig holds MongoDB connection parameters.
type MongoConfig struct {
	// URI is the connection string (default: "mongodb://localhost:27017").
	URI string `validate:"required,startswith=mongodb"`

	// Database is the database name (default: "stockroom").
	Database string `validate:"required"`

	// Timeout bounds connect and ping at startup.
	Timeout time.Duration `validate:"gt=0"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	// URL is the Redis connection URL (e.g., "redis://localhost:6379").
	URL string `validate:"required"`
}

// AuthConfig holds session settings.
type AuthConfig struct {
	// SecretKey signs JWT sessions.
	SecretKey string `validate:"required,min=16"`

	// SessionTTL is how long sessions last before expiring.
	SessionTTL time.Duration `validate:"gt=0"`

	// Strategy is "redis" (opaque token, server-side state) or "jwt"
	// (signed, stateless token).
	Strategy string `validate:"oneof=redis jwt"`

	// CookieName is the session cookie.
	CookieName string `validate:"required"`
}

// OAuthConfig holds GitHub OAuth app credentials.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string

	// RedirectURL defaults to BaseURL + "/api/auth/callback".
	RedirectURL string `validate:"omitempty,url"`
}

// Enabled reports whether OAuth sign-in is configured.
func (o OAuthConfig) Enabled() bool {
	return o.ClientID != "" && o.ClientSecret != ""
}

// HTTPConfig holds settings for the HTTP edge.
type HTTPConfig struct {
	// TrustedProxies are CIDRs whose X-Forwarded-For / X-Real-IP headers are
	// believed (default: loopback and private ranges).
	TrustedProxies []string `validate:"dive,cidr"`

	// CORSOrigins may call the API cross-origin with credentials.
	CORSOrigins []string `validate:"dive,required"`

	// AuthRateLimit is the number of sign-in requests allowed per IP per
	// AuthRateWindow.
	AuthRateLimit  int           `validate:"min=1"`
	AuthRateWindow time.Duration `validate:"gt=0"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads configuration from environment variables with sensible
// defaults. A .env file in the working directory is loaded first when
// present; variables already set in the environment win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds and validates the configuration from the environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Env:     getEnv("ENV", "development"),
		Port:    getEnvInt("PORT", 8080),
		BaseURL: strings.TrimRight(getEnv("BASE_URL", "http://localhost:8080"), "/"),

		Log: LogConfig{
			ConsoleLevel: strings.ToLower(getEnv("LOG_LEVEL", "info")),
			FileLevel:    strings.ToLower(getEnv("LOG_FILE_LEVEL", "debug")),
			File:         getEnv("LOG_FILE", ""),
		},

		Mongo: MongoConfig{
			URI:      getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database: getEnv("MONGODB_DATABASE", "stockroom"),
			Timeout:  getEnvDuration("MONGODB_TIMEOUT", 10*time.Second),
		},

		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "redis://localhost:6379"),
		},

		Auth: AuthConfig{
			SecretKey:  getEnv("SECRET_KEY", ""),
			SessionTTL: getEnvDuration("SESSION_TTL", 720*time.Hour),
			Strategy:   strings.ToLower(getEnv("SESSION_STRATEGY", StrategyRedis)),
			CookieName: getEnv("SESSION_COOKIE", "stockroom_session"),
		},

		OAuth: OAuthConfig{
			ClientID:     getEnv("GITHUB_CLIENT_ID", ""),
			ClientSecret: getEnv("GITHUB_CLIENT_SECRET", ""),
			RedirectURL:  getEnv("OAUTH_REDIRECT_URL", ""),
		},

		HTTP: HTTPConfig{
			TrustedProxies: getEnvList("TRUSTED_PROXIES", []string{"127.0.0.0/8", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16", "::1/128", "fd00::/8"}),
			CORSOrigins:    getEnvList("CORS_ORIGINS", nil),
			AuthRateLimit:  getEnvInt("AUTH_RATE_LIMIT", 20),
			AuthRateWindow: getEnvDuration("AUTH_RATE_WINDOW", time.Minute),
		},
	}

	if cfg.IsProduction() {
		if cfg.Auth.SecretKey == "" {
			return nil, fmt.Errorf("SECRET_KEY is required in production")
		}
		if len(cfg.Auth.SecretKey) < 32 {
			return nil, fmt.Errorf("SECRET_KEY must be at least 32 characters in production")
		}
	}
	if cfg.Auth.SecretKey == "" {
		cfg.Auth.SecretKey = devSecretKey
	}
	if cfg.OAuth.RedirectURL == "" {
		cfg.OAuth.RedirectURL = cfg.BaseURL + "/api/auth/callback"
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(c.Env)
	return env == "development" || env == "dev"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Env)
	return env == "production" || env == "prod"
}

// --- Helper functions for reading environment variables ---

// getEnv reads a string env var or returns the default.
func getEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultVal
}

// getEnvInt reads an integer env var or returns the default.
func getEnvInt(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// getEnvDuration reads a duration env var (e.g., "720h") or returns the default.
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

// getEnvList reads a comma-separated env var or returns the default. Blank
// entries are dropped.
func getEnvList(key string, defaultVal []string) []string {
	val, ok := os.LookupEnv(key)
	if !ok {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
