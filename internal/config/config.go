// ABOUTME: Configuration loading and parsing for the MCP gateway
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete gateway configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Audit     AuditConfig     `yaml:"audit"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds the HTTP listener and identity settings.
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
	Name     string `yaml:"name"`
	Version  string `yaml:"version"`
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	JWTSecret   string `yaml:"jwt_secret"`
	RequireAuth bool   `yaml:"require_auth"`
}

// RateLimitConfig holds fixed-window rate limiter settings.
type RateLimitConfig struct {
	Limit      int `yaml:"limit"`
	MaxEntries int `yaml:"max_entries"`

	Window          time.Duration `yaml:"-"`
	CleanupInterval time.Duration `yaml:"-"`

	// Raw string values for YAML unmarshaling
	WindowRaw          string `yaml:"window"`
	CleanupIntervalRaw string `yaml:"cleanup_interval"`
}

// AuditConfig selects the audit backend.
type AuditConfig struct {
	Backend string `yaml:"backend"` // "log" or "sqlite"
	Path    string `yaml:"path"`    // database path for the sqlite backend
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a configuration suitable for local development.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPAddr: ":8080",
			Name:     "mcp-gateway",
			Version:  "1.0.0",
		},
		Auth: AuthConfig{
			RequireAuth: true,
		},
		RateLimit: RateLimitConfig{
			Limit:           100,
			MaxEntries:      10_000,
			Window:          60 * time.Second,
			CleanupInterval: 60 * time.Second,
		},
		Audit: AuditConfig{
			Backend: "log",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a configuration file from the given path and returns a parsed
// Config. Environment variables in the format ${VAR_NAME} are expanded and
// missing fields keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding
// environment variable values. Unset variables become empty strings.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}
	if c.RateLimit.Limit <= 0 {
		return fmt.Errorf("rate_limit.limit must be positive")
	}
	if c.RateLimit.MaxEntries <= 0 {
		return fmt.Errorf("rate_limit.max_entries must be positive")
	}
	switch c.Audit.Backend {
	case "log":
	case "sqlite":
		if c.Audit.Path == "" {
			return fmt.Errorf("audit.path is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("audit.backend must be \"log\" or \"sqlite\", got %q", c.Audit.Backend)
	}
	return nil
}

// parseDurations converts the raw duration strings into time.Duration values.
func parseDurations(cfg *Config) error {
	var err error

	if cfg.RateLimit.WindowRaw != "" {
		cfg.RateLimit.Window, err = time.ParseDuration(cfg.RateLimit.WindowRaw)
		if err != nil {
			return fmt.Errorf("parsing rate_limit.window %q: %w", cfg.RateLimit.WindowRaw, err)
		}
	}

	if cfg.RateLimit.CleanupIntervalRaw != "" {
		cfg.RateLimit.CleanupInterval, err = time.ParseDuration(cfg.RateLimit.CleanupIntervalRaw)
		if err != nil {
			return fmt.Errorf("parsing rate_limit.cleanup_interval %q: %w", cfg.RateLimit.CleanupIntervalRaw, err)
		}
	}

	return nil
}
