package config

import (
	"fmt"
)

// Config represents the main lanflow configuration
type Config struct {
	// Server holds HTTP/WebSocket server settings
	Server ServerConfig `json:"server" mapstructure:"server"`

	// Share holds transfer history settings
	Share ShareConfig `json:"share" mapstructure:"share"`

	// Received holds inbound upload settings
	Received ReceivedConfig `json:"received" mapstructure:"received"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Data directory
	DataDir string `json:"data_dir" mapstructure:"data_dir"`
}

// ServerConfig holds the LAN-facing server configuration
type ServerConfig struct {
	Port int    `json:"port" mapstructure:"port"`
	Host string `json:"host" mapstructure:"host"`
}

// ShareConfig holds retention caps for the transfer history
type ShareConfig struct {
	MaxBatches int `json:"max_batches" mapstructure:"max_batches"`
	MaxTexts   int `json:"max_texts" mapstructure:"max_texts"`
}

// ReceivedConfig holds settings for files uploaded by LAN peers
type ReceivedConfig struct {
	Dir             string `json:"dir" mapstructure:"dir"`
	CleanupSchedule string `json:"cleanup_schedule" mapstructure:"cleanup_schedule"` // cron expression
	MaxAgeHours     int    `json:"max_age_hours" mapstructure:"max_age_hours"`       // 0 keeps files forever
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level   string `json:"level" mapstructure:"level"`
	File    string `json:"file" mapstructure:"file"`
	Console bool   `json:"console" mapstructure:"console"`
	Pretty  bool   `json:"pretty" mapstructure:"pretty"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 3000,
			Host: "0.0.0.0",
		},
		Share: ShareConfig{
			MaxBatches: 10,
			MaxTexts:   20,
		},
		Received: ReceivedConfig{
			CleanupSchedule: "@hourly",
			MaxAgeHours:     0,
		},
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
			Pretty:  true,
		},
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Share.MaxBatches <= 0 {
		return fmt.Errorf("share.max_batches must be positive, got %d", c.Share.MaxBatches)
	}
	if c.Share.MaxTexts <= 0 {
		return fmt.Errorf("share.max_texts must be positive, got %d", c.Share.MaxTexts)
	}
	if c.Received.MaxAgeHours < 0 {
		return fmt.Errorf("received.max_age_hours cannot be negative, got %d", c.Received.MaxAgeHours)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error", "":
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	return nil
}
