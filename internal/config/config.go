package config

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
)

// Config represents the tool service configuration.
type Config struct {
	// HTTP server
	Server ServerConfig `json:"server" mapstructure:"server"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Parameter validation
	Validation ValidationConfig `json:"validation" mapstructure:"validation"`

	// Execution history
	History HistoryConfig `json:"history" mapstructure:"history"`

	// Websocket event stream
	Events EventsConfig `json:"events" mapstructure:"events"`

	// Tool credentials
	Tools ToolsConfig `json:"tools" mapstructure:"tools"`

	// Data directory
	DataDir string `json:"data_dir" mapstructure:"data_dir"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host           string   `json:"host" mapstructure:"host"`
	Port           int      `json:"port" mapstructure:"port"`
	AllowedOrigins []string `json:"allowed_origins" mapstructure:"allowed_origins"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `json:"level" mapstructure:"level"`
	File   string `json:"file" mapstructure:"file"`
	Pretty bool   `json:"pretty" mapstructure:"pretty"`
}

// ValidationConfig holds dispatch validation settings.
type ValidationConfig struct {
	// Strict enables type/enum checking on top of the required-key check.
	Strict bool `json:"strict" mapstructure:"strict"`
}

// HistoryConfig holds execution history settings.
type HistoryConfig struct {
	Enabled       bool   `json:"enabled" mapstructure:"enabled"`
	Path          string `json:"path" mapstructure:"path"`
	RetentionDays int    `json:"retention_days" mapstructure:"retention_days"`
}

// EventsConfig holds websocket event stream settings.
type EventsConfig struct {
	Enabled bool `json:"enabled" mapstructure:"enabled"`
}

// ToolsConfig holds tool credentials.
type ToolsConfig struct {
	SerperAPIKey  string `json:"serper_api_key" mapstructure:"serper_api_key"`
	OpenAIAPIKey  string `json:"openai_api_key" mapstructure:"openai_api_key"`
	OpenAIBaseURL string `json:"openai_base_url" mapstructure:"openai_base_url"`
	OpenAIModel   string `json:"openai_model" mapstructure:"openai_model"`
}

// DefaultConfig returns a config with default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           1601,
			AllowedOrigins: []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Pretty: true,
		},
		History: HistoryConfig{
			Enabled:       true,
			RetentionDays: 7,
		},
		Events: EventsConfig{
			Enabled: true,
		},
		Tools: ToolsConfig{
			OpenAIBaseURL: "https://api.openai.com/v1",
		},
	}
}

// String returns a JSON representation of the config with credentials
// redacted.
func (c *Config) String() string {
	clone := *c
	if clone.Tools.SerperAPIKey != "" {
		clone.Tools.SerperAPIKey = "[REDACTED]"
	}
	if clone.Tools.OpenAIAPIKey != "" {
		clone.Tools.OpenAIAPIKey = "[REDACTED]"
	}
	data, _ := json.MarshalIndent(&clone, "", "  ")
	return string(data)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if _, err := zerolog.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.Logging.Level, err)
	}
	if c.History.Enabled && c.History.RetentionDays < 0 {
		return fmt.Errorf("history retention_days cannot be negative")
	}
	return nil
}
