package config

import "time"

type (
	// SyncCLIConfig represents the device-side sync client configuration
	SyncCLIConfig struct {
		Server   ServerConfig   `yaml:"server"`
		Database DatabaseConfig `yaml:"database"`
		Logger   LoggerConfig   `yaml:"logger"`
	}

	// ServerConfig points the client at the sync API server
	ServerConfig struct {
		URL     string        `yaml:"url"`
		Timeout time.Duration `yaml:"timeout"`
	}
)
