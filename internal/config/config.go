// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// Server settings
	Port     string
	Env      string // "development", "staging", "production"
	LogLevel string

	// Database
	DatabaseURL string // PostgreSQL connection string (optional, uses in-memory if not set)

	// Completion provider (Fireworks AI)
	FireworksAPIKey  string
	FireworksBaseURL string
	DefaultModel     string

	// Payments (Stripe)
	StripeSecretKey     string
	StripeWebhookSecret string

	// Ledger policy
	InitialGrant  int64 // Free AJT granted to every new wallet
	ChatCost      int64 // AJT debited per chat request
	RequireWallet bool  // Reject chat requests that carry no wallet address

	// Webhook idempotency retention
	SessionRetentionDays int

	// HTTP
	AllowedOrigins []string
	RateLimitRPM   int

	// Observability
	OTLPEndpoint string
}

// Defaults
const (
	DefaultPort             = "8000"
	DefaultEnv              = "development"
	DefaultLogLevel         = "info"
	DefaultFireworksBaseURL = "https://api.fireworks.ai/inference/v1"
	DefaultModel            = "accounts/fireworks/models/llama-v4-maverick"
	DefaultInitialGrant     = 1000
	DefaultChatCost         = 1
	DefaultRetentionDays    = 30
	DefaultRateLimit        = 120
)

// Load reads configuration from environment variables.
// It loads .env file if present (for local development).
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	cfg := &Config{
		Port:                 getEnv("PORT", DefaultPort),
		Env:                  getEnv("ENV", DefaultEnv),
		LogLevel:             getEnv("LOG_LEVEL", DefaultLogLevel),
		DatabaseURL:          os.Getenv("DATABASE_URL"), // Optional, uses in-memory if not set
		FireworksAPIKey:      os.Getenv("FIREWORKS_API_KEY"),
		FireworksBaseURL:     getEnv("FIREWORKS_BASE_URL", DefaultFireworksBaseURL),
		DefaultModel:         getEnv("FIREWORKS_MODEL", DefaultModel),
		StripeSecretKey:      os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret:  os.Getenv("STRIPE_WEBHOOK_SECRET"),
		InitialGrant:         getEnvInt64("INITIAL_GRANT", DefaultInitialGrant),
		ChatCost:             getEnvInt64("CHAT_COST", DefaultChatCost),
		RequireWallet:        getEnvBool("REQUIRE_WALLET", false),
		SessionRetentionDays: int(getEnvInt64("SESSION_RETENTION_DAYS", DefaultRetentionDays)),
		AllowedOrigins:       splitList(getEnv("ALLOWED_ORIGINS", "*")),
		RateLimitRPM:         int(getEnvInt64("RATE_LIMIT_RPM", DefaultRateLimit)),
		OTLPEndpoint:         os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is internally consistent.
// Provider credentials are deliberately optional: the endpoints that need
// them respond 503 until they are configured.
func (c *Config) Validate() error {
	if c.ChatCost <= 0 {
		return fmt.Errorf("CHAT_COST must be a positive integer")
	}
	if c.InitialGrant < 0 {
		return fmt.Errorf("INITIAL_GRANT must not be negative")
	}
	if c.SessionRetentionDays <= 0 {
		return fmt.Errorf("SESSION_RETENTION_DAYS must be a positive integer")
	}
	return nil
}

// FireworksConfigured reports whether the completion provider can be used.
func (c *Config) FireworksConfigured() bool {
	return c.FireworksAPIKey != ""
}

// StripeConfigured reports whether checkout sessions can be created.
func (c *Config) StripeConfigured() bool {
	return c.StripeSecretKey != ""
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
