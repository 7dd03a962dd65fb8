// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port               string
	FrontendURL        string
	FrontendDir        string // empty disables static frontend serving
	CORSAllowedOrigins []string
	MaxRequestBodySize int64
	GRPCHealthAddr     string // empty disables the gRPC health server

	Provider ProviderConfig
	Sessions SessionConfig
	Journal  JournalConfig
}

// ProviderConfig controls access to the generative content service.
type ProviderConfig struct {
	APIKey      string
	BaseURL     string
	LessonModel string
	ChatModel   string
}

// SessionConfig controls quiz and chat session lifetime.
type SessionConfig struct {
	RevealDelay   time.Duration
	TTL           time.Duration
	SweepInterval time.Duration
}

// JournalConfig controls the SQLite activity journal.
type JournalConfig struct {
	Enabled   bool
	DBPath    string
	Retention time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	apiKey := getEnv("API_KEY", "")
	if apiKey == "" {
		apiKey = getEnv("GEMINI_API_KEY", "")
	}

	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		FrontendURL:        getEnv("FRONTEND_URL", ""),
		FrontendDir:        getEnv("FRONTEND_DIR", ""),
		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		MaxRequestBodySize: int64(getEnvInt("MAX_REQUEST_BODY_SIZE", 1<<20)),
		GRPCHealthAddr:     getEnv("GRPC_HEALTH_ADDR", ""),
		Provider: ProviderConfig{
			APIKey:      apiKey,
			BaseURL:     getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
			LessonModel: getEnv("LESSON_MODEL", "gemini-3-flash-preview"),
			ChatModel:   getEnv("CHAT_MODEL", "gemini-3-flash-preview"),
		},
		Sessions: SessionConfig{
			RevealDelay:   getEnvDuration("REVEAL_DELAY", 1500*time.Millisecond),
			TTL:           getEnvDuration("SESSION_TTL", 60*time.Minute),
			SweepInterval: getEnvDuration("SESSION_SWEEP_INTERVAL", time.Minute),
		},
		Journal: JournalConfig{
			Enabled:   getEnvBool("JOURNAL_ENABLED", true),
			DBPath:    getEnv("DB_PATH", "./data/devenglish.db"),
			Retention: getEnvDuration("JOURNAL_RETENTION", 7*24*time.Hour),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
// A missing API key is not an error; it surfaces on the first provider call.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.Provider.BaseURL == "" {
		return fmt.Errorf("GEMINI_BASE_URL cannot be empty")
	}
	if c.Provider.LessonModel == "" || c.Provider.ChatModel == "" {
		return fmt.Errorf("LESSON_MODEL and CHAT_MODEL cannot be empty")
	}
	if c.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0")
	}
	if c.Sessions.RevealDelay < 0 {
		return fmt.Errorf("REVEAL_DELAY cannot be negative")
	}
	if c.Sessions.TTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be > 0")
	}
	if c.Sessions.SweepInterval <= 0 {
		return fmt.Errorf("SESSION_SWEEP_INTERVAL must be > 0")
	}
	if c.Journal.Enabled && c.Journal.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
