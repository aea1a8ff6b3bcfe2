// Package config handles application configuration loading from environment
// variables. It provides a centralized Config struct used across the application.
package config

import (
	"fmt"
	"os"
	"strings"
)

// Config holds all application configuration values loaded from the environment.
type Config struct {
	// Server settings
	Host string
	Port string
	Env  string // "development", "production", "testing"

	// BasePath is an optional URL prefix the app is served under,
	// e.g. "/card". Empty means the app is mounted at the root.
	BasePath string

	// Valkey (Redis-compatible session store)
	ValkeyHost     string
	ValkeyPort     string
	ValkeyPassword string

	// LINE platform settings
	LINEChannelToken string // Messaging API channel access token
	LIFFID           string // LIFF app id served to the client

	// Google Analytics 4 Measurement Protocol
	GAMeasurementID string
	GAAPISecret     string

	// S3-compatible object storage for finished cards
	S3Endpoint  string
	S3Region    string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3PublicURL string
}

// Load reads configuration from environment variables, applying defaults
// for development where appropriate. Returns an error if critical values
// are missing in production mode.
func Load() (*Config, error) {
	cfg := &Config{
		Host:     envOrDefault("APP_HOST", "0.0.0.0"),
		Port:     envOrDefault("APP_PORT", "8080"),
		Env:      envOrDefault("APP_ENV", "development"),
		BasePath: normalizeBasePath(os.Getenv("APP_BASE_PATH")),

		ValkeyHost:     envOrDefault("VALKEY_HOST", "localhost"),
		ValkeyPort:     envOrDefault("VALKEY_PORT", "6379"),
		ValkeyPassword: os.Getenv("VALKEY_PASSWORD"),

		LINEChannelToken: os.Getenv("LINE_CHANNEL_ACCESS_TOKEN"),
		LIFFID:           os.Getenv("LIFF_ID"),

		GAMeasurementID: os.Getenv("GA_MEASUREMENT_ID"),
		GAAPISecret:     os.Getenv("GA_API_SECRET"),

		S3Endpoint:  os.Getenv("S3_ENDPOINT"),
		S3Region:    envOrDefault("S3_REGION", "auto"),
		S3AccessKey: os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey: os.Getenv("S3_SECRET_KEY"),
		S3Bucket:    envOrDefault("S3_BUCKET", "cards"),
		S3PublicURL: os.Getenv("S3_PUBLIC_URL"),
	}

	if cfg.Env == "production" {
		if cfg.LINEChannelToken == "" {
			return nil, fmt.Errorf("LINE_CHANNEL_ACCESS_TOKEN must be set in production")
		}
		if cfg.LIFFID == "" {
			return nil, fmt.Errorf("LIFF_ID must be set in production")
		}
	}

	return cfg, nil
}

// Addr returns the server listen address (host:port).
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDev returns true if the application is running in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// normalizeBasePath returns "" or a path with a leading slash and no
// trailing slash, so route mounting can rely on its shape.
func normalizeBasePath(p string) string {
	p = strings.Trim(p, "/")
	if p == "" {
		return ""
	}
	return "/" + p
}

// envOrDefault reads an environment variable, returning a fallback if unset or empty.
func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
