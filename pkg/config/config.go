// Package config loads and watches the platform configuration file.
// Settings come from YAML with environment-variable overrides; the file
// provider re-reads the file on change and fans snapshots out to
// subscribers.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full platform configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Governance GovernanceConfig `yaml:"governance"`
	Graph      GraphConfig      `yaml:"graph"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig holds the HTTP front-end settings.
type ServerConfig struct {
	Listen string `yaml:"listen"`
}

// StorageConfig locates the durable snapshot stores.
type StorageConfig struct {
	Dir string `yaml:"dir"`
}

// GovernanceConfig holds the identity-governance engine connection.
type GovernanceConfig struct {
	BaseURL        string `yaml:"base_url"`
	Username       string `yaml:"username"`
	Password       string `yaml:"password"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxAttempts    int    `yaml:"max_attempts"`
}

// Timeout returns the request timeout as a duration.
func (c GovernanceConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// GraphConfig holds the access-graph service connection.
type GraphConfig struct {
	BaseURL        string `yaml:"base_url"`
	Username       string `yaml:"username"`
	Password       string `yaml:"password"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the request timeout as a duration.
func (c GraphConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// TelemetryConfig holds the OTLP trace export settings.
type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	Environment  string `yaml:"environment"`
	Insecure     bool   `yaml:"insecure"`
}

// LoggingConfig holds the log settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	Text  bool   `yaml:"text"`
}

// Load reads, overrides, validates, and defaults the configuration at
// path. A missing file yields the defaults rather than an error so the
// binaries run with zero configuration.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Defaults only.
	case err != nil:
		return nil, fmt.Errorf("read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("REMEDIA_LISTEN"); val != "" {
		cfg.Server.Listen = val
	}
	if val := os.Getenv("REMEDIA_STORAGE_DIR"); val != "" {
		cfg.Storage.Dir = val
	}

	if val := os.Getenv("MIDPOINT_BASE_URL"); val != "" {
		cfg.Governance.BaseURL = val
	}
	if val := os.Getenv("MIDPOINT_USERNAME"); val != "" {
		cfg.Governance.Username = val
	}
	if val := os.Getenv("MIDPOINT_PASSWORD"); val != "" {
		cfg.Governance.Password = val
	}
	if val := os.Getenv("MIDPOINT_MAX_ATTEMPTS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			cfg.Governance.MaxAttempts = n
		}
	}

	if val := os.Getenv("BLOODHOUND_BASE_URL"); val != "" {
		cfg.Graph.BaseURL = val
	}
	if val := os.Getenv("BLOODHOUND_USERNAME"); val != "" {
		cfg.Graph.Username = val
	}
	if val := os.Getenv("BLOODHOUND_PASSWORD"); val != "" {
		cfg.Graph.Password = val
	}

	if val := os.Getenv("REMEDIA_OTLP_ENDPOINT"); val != "" {
		cfg.Telemetry.OTLPEndpoint = val
	}
	if val := os.Getenv("REMEDIA_OTLP_INSECURE"); val == "true" {
		cfg.Telemetry.Insecure = true
	}
	if val := os.Getenv("REMEDIA_LOG_LEVEL"); val != "" {
		cfg.Logging.Level = val
	}
}

// Validate applies defaults and rejects settings the binaries cannot run
// with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Listen) == "" {
		c.Server.Listen = ":8090"
	}
	if strings.TrimSpace(c.Storage.Dir) == "" {
		c.Storage.Dir = "data"
	}

	if strings.TrimSpace(c.Governance.BaseURL) == "" {
		c.Governance.BaseURL = "http://midpoint:8080"
	}
	if strings.TrimSpace(c.Governance.Username) == "" {
		c.Governance.Username = "administrator"
	}
	if c.Governance.TimeoutSeconds < 0 {
		return fmt.Errorf("governance timeout_seconds must not be negative")
	}
	if c.Governance.TimeoutSeconds == 0 {
		c.Governance.TimeoutSeconds = 30
	}
	if c.Governance.MaxAttempts < 0 {
		return fmt.Errorf("governance max_attempts must not be negative")
	}
	if c.Governance.MaxAttempts == 0 {
		c.Governance.MaxAttempts = 1
	}

	if c.Graph.TimeoutSeconds < 0 {
		return fmt.Errorf("graph timeout_seconds must not be negative")
	}
	if c.Graph.TimeoutSeconds == 0 {
		c.Graph.TimeoutSeconds = 30
	}

	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = "info"
	}
	return nil
}
