// Package config loads dispatcher and worker settings from an optional YAML
// file with NETSPATCH_-prefixed environment overrides. CLI flags layered on
// top by the command tree take final precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds the complete configuration for both binaries. Precedence is
// code defaults < YAML file < environment variables.
type Config struct {
	Server struct {
		Host        string `yaml:"host" envconfig:"SERVER_HOST"`
		Port        int    `yaml:"port" envconfig:"SERVER_PORT"`
		FuseSeconds int    `yaml:"fuse_seconds" envconfig:"SERVER_FUSE_SECONDS"`
	} `yaml:"server"`

	Client struct {
		TimeoutSeconds      int `yaml:"timeout_seconds" envconfig:"CLIENT_TIMEOUT_SECONDS"`
		Retries             int `yaml:"retries" envconfig:"CLIENT_RETRIES"`
		PollIntervalSeconds int `yaml:"poll_interval_seconds" envconfig:"CLIENT_POLL_INTERVAL_SECONDS"`
	} `yaml:"client"`

	Metrics struct {
		Enabled bool `yaml:"enabled" envconfig:"METRICS_ENABLED"`
		Port    int  `yaml:"port" envconfig:"METRICS_PORT"`
	} `yaml:"metrics"`
}

// Default returns the built-in configuration.
func Default() *Config {
	var cfg Config
	cfg.Server.Host = "localhost"
	cfg.Server.Port = 7878
	cfg.Server.FuseSeconds = 0
	cfg.Client.TimeoutSeconds = 10
	cfg.Client.Retries = 0
	cfg.Client.PollIntervalSeconds = 1
	cfg.Metrics.Enabled = false
	cfg.Metrics.Port = 9090
	return &cfg
}

// Fuse returns the post-drain quiescence period.
func (c *Config) Fuse() time.Duration {
	return time.Duration(c.Server.FuseSeconds) * time.Second
}

// Timeout returns the client connect timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Client.TimeoutSeconds) * time.Second
}

// PollInterval returns the worker's sleep between polls.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Client.PollIntervalSeconds) * time.Second
}

// Load builds the configuration: built-in defaults, then the YAML file when
// path is non-empty, then NETSPATCH_ environment overrides. A missing file
// at the given path is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config YAML: %w", err)
			}
		}
	}

	// Fields without a matching NETSPATCH_ variable are left untouched. Each
	// section is processed on its own so that a field tag such as SERVER_PORT
	// maps to NETSPATCH_SERVER_PORT without the section name repeated.
	for _, section := range []interface{}{&cfg.Server, &cfg.Client, &cfg.Metrics} {
		if err := envconfig.Process("NETSPATCH", section); err != nil {
			return nil, fmt.Errorf("failed to process environment overrides: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Server.FuseSeconds < 0 {
		return fmt.Errorf("invalid fuse duration %ds", c.Server.FuseSeconds)
	}
	if c.Client.TimeoutSeconds <= 0 {
		return fmt.Errorf("invalid client timeout %ds", c.Client.TimeoutSeconds)
	}
	if c.Client.Retries < 0 {
		return fmt.Errorf("invalid retry count %d", c.Client.Retries)
	}
	return nil
}
