package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("BACKEND_URL", "https://api.example.com/api/")
	t.Setenv("COUNTDOWN_INTERVAL", "500ms")
	t.Setenv("RATE_LIMIT_ACTIONS_PER_SECOND", "0.5")
	t.Setenv("SESSION_COOKIE_SECURE", "false")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("Server.Port = %v, want %v", cfg.Server.Port, "9090")
	}
	if cfg.Backend.BaseURL != "https://api.example.com/api" {
		t.Errorf("Backend.BaseURL = %v, want trailing slash trimmed", cfg.Backend.BaseURL)
	}
	if cfg.Countdown.Interval != 500*time.Millisecond {
		t.Errorf("Countdown.Interval = %v, want %v", cfg.Countdown.Interval, 500*time.Millisecond)
	}
	if cfg.RateLimit.ActionsPerSecond != 0.5 {
		t.Errorf("RateLimit.ActionsPerSecond = %v, want 0.5", cfg.RateLimit.ActionsPerSecond)
	}
	if cfg.Session.Secure {
		t.Errorf("Session.Secure = true, want false")
	}
	if cfg.Session.CookieName != "auth" {
		t.Errorf("Session.CookieName = %v, want auth", cfg.Session.CookieName)
	}
	if cfg.Session.TTL != time.Hour {
		t.Errorf("Session.TTL = %v, want 1h", cfg.Session.TTL)
	}
}

func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Backend:   BackendConfig{BaseURL: "http://localhost:8000/api"},
			Session:   SessionConfig{Secret: strings.Repeat("s", 32)},
			Countdown: CountdownConfig{Interval: time.Second},
			RateLimit: RateLimitConfig{ActionsPerSecond: 1, Burst: 1},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing secret", mutate: func(c *Config) { c.Session.Secret = "" }, wantErr: "SESSION_SECRET is required"},
		{name: "short secret", mutate: func(c *Config) { c.Session.Secret = "short" }, wantErr: "at least 32 bytes"},
		{name: "relative backend", mutate: func(c *Config) { c.Backend.BaseURL = "/api" }, wantErr: "BACKEND_URL"},
		{name: "zero interval", mutate: func(c *Config) { c.Countdown.Interval = 0 }, wantErr: "COUNTDOWN_INTERVAL"},
		{name: "zero burst", mutate: func(c *Config) { c.RateLimit.Burst = 0 }, wantErr: "rate limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		want         string
	}{
		{
			name:         "returns environment variable when set",
			key:          "TEST_KEY",
			defaultValue: "default",
			envValue:     "custom",
			want:         "custom",
		},
		{
			name:         "returns default when environment variable not set",
			key:          "NONEXISTENT_KEY",
			defaultValue: "default",
			envValue:     "",
			want:         "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				t.Setenv(tt.key, tt.envValue)
			}

			got := getEnv(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnv() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetEnvAsInt(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue int
		envValue     string
		want         int
	}{
		{name: "returns integer when valid", key: "TEST_INT", defaultValue: 100, envValue: "200", want: 200},
		{name: "returns default when invalid", key: "TEST_INT_INVALID", defaultValue: 100, envValue: "invalid", want: 100},
		{name: "returns default when not set", key: "TEST_INT_NOTSET", defaultValue: 100, envValue: "", want: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				t.Setenv(tt.key, tt.envValue)
			}

			got := getEnvAsInt(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnvAsInt() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetEnvAsBoolAndFloat(t *testing.T) {
	t.Setenv("TEST_BOOL", "nope")
	if got := getEnvAsBool("TEST_BOOL", true); !got {
		t.Errorf("getEnvAsBool() = %v, want default true on parse failure", got)
	}
	t.Setenv("TEST_FLOAT", "2.5")
	if got := getEnvAsFloat("TEST_FLOAT", 1); got != 2.5 {
		t.Errorf("getEnvAsFloat() = %v, want 2.5", got)
	}
}

func TestGetEnvAsDuration(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue time.Duration
		envValue     string
		want         time.Duration
	}{
		{name: "returns duration when valid", key: "TEST_DURATION", defaultValue: 10 * time.Second, envValue: "30s", want: 30 * time.Second},
		{name: "returns default when invalid", key: "TEST_DURATION_INVALID", defaultValue: 10 * time.Second, envValue: "invalid", want: 10 * time.Second},
		{name: "returns default when not set", key: "TEST_DURATION_NOTSET", defaultValue: 10 * time.Second, envValue: "", want: 10 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				t.Setenv(tt.key, tt.envValue)
			}

			got := getEnvAsDuration(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnvAsDuration() = %v, want %v", got, tt.want)
			}
		})
	}
}
