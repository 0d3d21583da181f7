// Package config provides centralized configuration management.
//
// Configuration can be loaded from:
//  1. YAML file (config.yaml)
//  2. Environment variables (fallback)
//
// Example usage:
//
//	cfg := config.LoadOrEnv()
//	dbPath := cfg.Storage.DatabasePath
//	stripeKey := cfg.Billing.Providers["stripe"].APIKey
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the entire application configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Billing       BillingConfig       `yaml:"billing"`
	Defaults      DefaultsConfig      `yaml:"defaults"`
	Storage       StorageConfig       `yaml:"storage"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds API server settings
type ServerConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// BillingConfig holds billing provider configuration
type BillingConfig struct {
	// DefaultProvider is used when a request does not name one
	DefaultProvider string `yaml:"default_provider"`

	Providers map[string]ProviderConfig `yaml:"providers"`
}

// ProviderConfig holds settings for a single billing provider
type ProviderConfig struct {
	Enabled        bool   `yaml:"enabled"`
	DisplayName    string `yaml:"display_name"`
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// DefaultsConfig holds fallbacks applied when a request omits a field
type DefaultsConfig struct {
	TaxRate   string `yaml:"tax_rate"`   // decimal string, e.g. "0.1"
	RoundMode string `yaml:"round_mode"` // "floor", "ceil" or "nearest"
}

// StorageConfig holds database configuration
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads and parses the config file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${STRIPE_API_KEY})
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration from environment variables only
func LoadFromEnv() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnvInt("PORT", 8080),
		},
		Billing: BillingConfig{
			DefaultProvider: getEnv("BILLING_PROVIDER", "stripe"),
			Providers: map[string]ProviderConfig{
				"stripe": {
					Enabled:        true,
					DisplayName:    "Stripe",
					BaseURL:        getEnv("STRIPE_BASE_URL", "https://api.stripe.com/v1"),
					APIKey:         os.Getenv("STRIPE_API_KEY"),
					TimeoutSeconds: getEnvInt("STRIPE_TIMEOUT_SECONDS", 8),
				},
			},
		},
		Defaults: DefaultsConfig{
			TaxRate:   getEnv("DEFAULT_TAX_RATE", "0.1"),
			RoundMode: getEnv("DEFAULT_ROUND_MODE", "floor"),
		},
		Storage: StorageConfig{
			DatabasePath: getEnv("ADJUST_DB_PATH", "adjustments.db"),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "text"),
			},
		},
	}
}

// LoadOrEnv tries to load from config.yaml, falls back to environment variables
func LoadOrEnv() *Config {
	return LoadOrEnvWithPath("config.yaml")
}

// LoadOrEnvWithPath tries to load from specified path, falls back to environment variables
func LoadOrEnvWithPath(path string) *Config {
	if cfg, err := Load(path); err == nil {
		return cfg
	}
	return LoadFromEnv()
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getEnvInt retrieves an integer environment variable with a fallback default
func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var result int
		if _, err := fmt.Sscanf(val, "%d", &result); err == nil {
			return result
		}
	}
	return fallback
}

// GetAPIKey retrieves an API key from config first, then tries multiple environment variable names
// Usage: GetAPIKey(cfg.Billing.Providers["stripe"].APIKey, "STRIPE_API_KEY")
func (c *Config) GetAPIKey(configValue string, envVarNames ...string) string {
	// First, try the config value
	if configValue != "" {
		return configValue
	}

	// Then try each environment variable in order
	for _, envVar := range envVarNames {
		if val := os.Getenv(envVar); val != "" {
			return val
		}
	}

	return ""
}
