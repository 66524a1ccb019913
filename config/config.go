// Copyright 2025 The SniffBot Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads and validates application configuration from
// environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Server settings.
	Port         int
	Endpoint     string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Analysis settings.
	GroqAPIKey         string
	GroqModel          string
	AnalysisTimeout    time.Duration
	AnalysisMaxRetries int

	// Rate limiting.
	RateLimitPerMinute int

	// Conversation retention.
	ConversationTTL time.Duration

	// Weekly broadcast settings.
	WebhookURL        string // Telex webhook for the Smell of the Week; empty disables the scheduler.
	WebhookSigningKID string // Key ID for the ES256 bearer token.

	// Operational settings.
	LogLevel string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (Config, error) {
	cfg := Config{
		Port:               envInt("PORT", 8080),
		Endpoint:           envStr("SNIFFBOT_ENDPOINT", "/a2a/sniff"),
		ReadTimeout:        envDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:       envDuration("WRITE_TIMEOUT", 60*time.Second),
		GroqAPIKey:         envStr("GROQ_API_KEY", ""),
		GroqModel:          envStr("GROQ_MODEL", "llama-3.1-8b-instant"),
		AnalysisTimeout:    envDuration("ANALYSIS_TIMEOUT", 20*time.Second),
		AnalysisMaxRetries: envInt("ANALYSIS_MAX_RETRIES", 3),
		RateLimitPerMinute: envInt("RATE_LIMIT_PER_MINUTE", 10),
		ConversationTTL:    envDuration("CONVERSATION_TTL", 24*time.Hour),
		WebhookURL:         envStr("TELEX_WEBHOOK_URL", ""),
		WebhookSigningKID:  envStr("WEBHOOK_SIGNING_KID", "sniffbot-webhook-1"),
		LogLevel:           envStr("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that required configuration is present.
func (c Config) Validate() error {
	if c.GroqAPIKey == "" {
		return fmt.Errorf("config: GROQ_API_KEY is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: PORT must be a valid port number")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("config: RATE_LIMIT_PER_MINUTE must be positive")
	}
	if c.AnalysisMaxRetries < 1 {
		return fmt.Errorf("config: ANALYSIS_MAX_RETRIES must be at least 1")
	}
	if c.ConversationTTL <= 0 {
		return fmt.Errorf("config: CONVERSATION_TTL must be positive")
	}
	return nil
}

func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
