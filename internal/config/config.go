// Package config provides configuration management for the signal mini-app gateway.
// It loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Backend   BackendConfig
	Session   SessionConfig
	Redis     RedisConfig
	Countdown CountdownConfig
	RateLimit RateLimitConfig
	Referral  ReferralConfig
	Bot       BotConfig
	Logging   LoggingConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// BackendConfig describes the remote backend every data call goes to
type BackendConfig struct {
	BaseURL        string
	Timeout        time.Duration
	LogMaxBodySize int
}

// SessionConfig holds session cookie configuration
type SessionConfig struct {
	Secret     string
	TTL        time.Duration
	CookieName string
	Secure     bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host           string
	Port           string
	Password       string
	DB             int
	MaxConnections int
}

// CountdownConfig holds the signal countdown refresh settings
type CountdownConfig struct {
	Interval time.Duration
}

// RateLimitConfig limits how often a session may trigger mutations
type RateLimitConfig struct {
	ActionsPerSecond float64
	Burst            int
}

// ReferralConfig holds the public origin used to build referral links
type ReferralConfig struct {
	BaseURL string
}

// BotConfig holds the link shown on the authorization screen
type BotConfig struct {
	Link string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// LoadConfig loads configuration from .env file and environment variables
func LoadConfig() (*Config, error) {
	// Load .env file (optional in production)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	config := &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Backend: BackendConfig{
			BaseURL:        strings.TrimRight(getEnv("BACKEND_URL", "http://localhost:8000/api"), "/"),
			Timeout:        getEnvAsDuration("BACKEND_TIMEOUT", 30*time.Second),
			LogMaxBodySize: getEnvAsInt("BACKEND_LOG_MAX_BODY", 1024),
		},
		Session: SessionConfig{
			Secret:     getEnv("SESSION_SECRET", ""),
			TTL:        getEnvAsDuration("SESSION_TTL", time.Hour),
			CookieName: getEnv("SESSION_COOKIE", "auth"),
			Secure:     getEnvAsBool("SESSION_COOKIE_SECURE", true),
		},
		Redis: RedisConfig{
			Host:           getEnv("REDIS_HOST", "localhost"),
			Port:           getEnv("REDIS_PORT", "6379"),
			Password:       getEnv("REDIS_PASSWORD", ""),
			DB:             getEnvAsInt("REDIS_DB", 0),
			MaxConnections: getEnvAsInt("REDIS_MAX_CONNECTIONS", 50),
		},
		Countdown: CountdownConfig{
			Interval: getEnvAsDuration("COUNTDOWN_INTERVAL", time.Second),
		},
		RateLimit: RateLimitConfig{
			ActionsPerSecond: getEnvAsFloat("RATE_LIMIT_ACTIONS_PER_SECOND", 2),
			Burst:            getEnvAsInt("RATE_LIMIT_BURST", 5),
		},
		Referral: ReferralConfig{
			BaseURL: strings.TrimRight(getEnv("REFERRAL_BASE_URL", "https://app.com"), "/"),
		},
		Bot: BotConfig{
			Link: getEnv("BOT_LINK", "https://t.me/"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	return config, nil
}

// Validate checks the settings the gateway cannot start without
func (c *Config) Validate() error {
	if c.Session.Secret == "" {
		return fmt.Errorf("SESSION_SECRET is required")
	}
	if len(c.Session.Secret) < 32 {
		return fmt.Errorf("SESSION_SECRET must be at least 32 bytes")
	}
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("BACKEND_URL must be an absolute URL, got %q", c.Backend.BaseURL)
	}
	if c.Countdown.Interval <= 0 {
		return fmt.Errorf("COUNTDOWN_INTERVAL must be positive")
	}
	if c.RateLimit.ActionsPerSecond <= 0 || c.RateLimit.Burst <= 0 {
		return fmt.Errorf("rate limit must allow at least one action")
	}
	return nil
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
