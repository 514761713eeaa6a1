// Package config loads and validates the adapter configuration.
//
// DESIGN: Configuration comes from a YAML file. The only defaults applied are
// the per-attempt timeout and the reasoning display mode; everything else is
// explicit so deployments stay auditable.
//
// FILES:
//   - config.go:     Root Config struct, Load(), Validate()
//   - adapter.go:    Endpoint, models, template and reply handling settings
//   - monitoring.go: Logging and telemetry settings
//   - store.go:      Atomic snapshot holder shared by server and watcher
//   - watch.go:      fsnotify-driven reload
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the chat adapter.
type Config struct {
	Server     ServerConfig     `yaml:"server"`     // HTTP server settings
	Adapter    AdapterConfig    `yaml:"adapter"`    // Upstream endpoint and exchange settings
	Monitoring MonitoringConfig `yaml:"monitoring"` // Telemetry and logging
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port         int           `yaml:"port"`          // Port to listen on
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // Max time to read request
	WriteTimeout time.Duration `yaml:"write_timeout"` // Max time to write response
	RateLimit    int           `yaml:"rate_limit"`    // Requests per second per IP, 0 disables
}

var envRe = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandEnvWithDefaults expands environment variables with support for default values.
// Supports both ${VAR} and ${VAR:-default} syntax.
func expandEnvWithDefaults(s string) string {
	return envRe.ReplaceAllStringFunc(s, func(match string) string {
		parts := envRe.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultValue := ""
		if len(parts) > 2 {
			defaultValue = parts[2]
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}
		return defaultValue
	})
}

// Load reads configuration from a YAML file.
// Returns an error if the file doesn't exist or is invalid.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config file path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	return LoadFromBytes(data)
}

// LoadFromBytes parses configuration from raw YAML bytes.
// Supports ${VAR:-default} env var expansion, env overrides, and validation.
func LoadFromBytes(data []byte) (*Config, error) {
	expanded := expandEnvWithDefaults(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnvOverrides()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the config.
func (c *Config) applyEnvOverrides() {
	// CHAT_ADAPTER_API_KEY keeps secrets out of the YAML file
	if key := os.Getenv("CHAT_ADAPTER_API_KEY"); key != "" {
		c.Adapter.APIKey = key
	}

	// CHAT_ADAPTER_TELEMETRY_LOG redirects telemetry and turns it on
	if envPath := os.Getenv("CHAT_ADAPTER_TELEMETRY_LOG"); envPath != "" {
		c.Monitoring.TelemetryPath = envPath
		c.Monitoring.TelemetryEnabled = true
	}
}

func (c *Config) applyDefaults() {
	if c.Adapter.Timeout == 0 {
		c.Adapter.Timeout = DefaultAttemptTimeout
	}
	if c.Adapter.ReasoningDisplay == "" {
		c.Adapter.ReasoningDisplay = DefaultReasoningDisplay
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port == 0 {
		return fmt.Errorf("server.port is required")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ReadTimeout == 0 {
		return fmt.Errorf("server.read_timeout is required")
	}
	if c.Server.WriteTimeout == 0 {
		return fmt.Errorf("server.write_timeout is required")
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("invalid server.rate_limit: %d (must be >= 0)", c.Server.RateLimit)
	}

	if err := c.Adapter.Validate(); err != nil {
		return err
	}

	if c.Monitoring.TelemetryEnabled && c.Monitoring.TelemetryPath == "" && !c.Monitoring.LogToStdout {
		return fmt.Errorf("monitoring.telemetry_path is required when telemetry is enabled")
	}

	return nil
}
