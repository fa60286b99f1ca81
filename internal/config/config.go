package config

import (
	"encoding/json"
	"fmt"
)

// Config represents the main Inkwell configuration
type Config struct {
	// Data directory
	DataDir string `json:"data_dir" mapstructure:"data_dir"`

	// Providers
	Providers ProvidersConfig `json:"providers" mapstructure:"providers"`

	// Fallback policy
	Fallback FallbackConfig `json:"fallback" mapstructure:"fallback"`

	// Templates
	Templates TemplatesConfig `json:"templates" mapstructure:"templates"`

	// Personas
	Personas PersonasConfig `json:"personas" mapstructure:"personas"`

	// Sessions
	Sessions SessionsConfig `json:"sessions" mapstructure:"sessions"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
}

// ProvidersConfig holds backend configuration
type ProvidersConfig struct {
	Default   string         `json:"default" mapstructure:"default"`
	Anthropic ProviderConfig `json:"anthropic" mapstructure:"anthropic"`
	OpenAI    ProviderConfig `json:"openai" mapstructure:"openai"`
}

// ProviderConfig holds one backend's credentials and model handle
type ProviderConfig struct {
	APIKey string `json:"api_key" mapstructure:"api_key"`
	Model  string `json:"model" mapstructure:"model"`
}

// FallbackConfig holds the hub's retry and failover policy
type FallbackConfig struct {
	Backends       []string `json:"backends" mapstructure:"backends"`
	MaxRetries     int      `json:"max_retries" mapstructure:"max_retries"`
	RetryDelayMs   int      `json:"retry_delay_ms" mapstructure:"retry_delay_ms"`
	TimeoutSeconds int      `json:"timeout_seconds" mapstructure:"timeout_seconds"`
	Temperature    float64  `json:"temperature" mapstructure:"temperature"`
}

// TemplatesConfig holds the template store location
type TemplatesConfig struct {
	Dir string `json:"dir" mapstructure:"dir"`
}

// PersonasConfig holds the persona store location
type PersonasConfig struct {
	DBPath string `json:"db_path" mapstructure:"db_path"`
}

// SessionsConfig holds session storage and retention settings
type SessionsConfig struct {
	Dir            string `json:"dir" mapstructure:"dir"`
	ArchiveDir     string `json:"archive_dir" mapstructure:"archive_dir"`
	RetentionHours int    `json:"retention_hours" mapstructure:"retention_hours"`
	SweepSchedule  string `json:"sweep_schedule" mapstructure:"sweep_schedule"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level   string `json:"level" mapstructure:"level"`
	File    string `json:"file" mapstructure:"file"`
	Console bool   `json:"console" mapstructure:"console"`
	Pretty  bool   `json:"pretty" mapstructure:"pretty"`
}

// DefaultConfig returns a configuration with sane defaults
func DefaultConfig() *Config {
	return &Config{
		Providers: ProvidersConfig{
			Default:   "anthropic",
			Anthropic: ProviderConfig{Model: "claude-sonnet-4-20250514"},
			OpenAI:    ProviderConfig{Model: "gpt-4o"},
		},
		Fallback: FallbackConfig{
			Backends:       []string{"openai"},
			MaxRetries:     2,
			RetryDelayMs:   500,
			TimeoutSeconds: 60,
			Temperature:    0.7,
		},
		Sessions: SessionsConfig{
			RetentionHours: 24 * 7,
			SweepSchedule:  "@hourly",
		},
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
			Pretty:  true,
		},
	}
}

// String returns the config as pretty-printed JSON with secrets masked
func (c *Config) String() string {
	masked := *c
	if masked.Providers.Anthropic.APIKey != "" {
		masked.Providers.Anthropic.APIKey = "***"
	}
	if masked.Providers.OpenAI.APIKey != "" {
		masked.Providers.OpenAI.APIKey = "***"
	}

	data, err := json.MarshalIndent(masked, "", "  ")
	if err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return string(data)
}
