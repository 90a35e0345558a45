// ABOUTME: Tests for YAML config loading, env var expansion, and validation
// ABOUTME: Covers defaults, duration parsing, and rejection of bad backends

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, ":8080", cfg.Server.HTTPAddr)
	assert.True(t, cfg.Auth.RequireAuth)
	assert.Equal(t, 100, cfg.RateLimit.Limit)
	assert.Equal(t, 10_000, cfg.RateLimit.MaxEntries)
	assert.Equal(t, 60*time.Second, cfg.RateLimit.Window)
	assert.Equal(t, "log", cfg.Audit.Backend)
	require.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  http_addr: ":9090"
  name: "test-gateway"
rate_limit:
  limit: 5
  window: "30s"
  cleanup_interval: "2m"
logging:
  level: "debug"
  format: "json"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.HTTPAddr)
	assert.Equal(t, "test-gateway", cfg.Server.Name)
	assert.Equal(t, 5, cfg.RateLimit.Limit)
	assert.Equal(t, 30*time.Second, cfg.RateLimit.Window)
	assert.Equal(t, 2*time.Minute, cfg.RateLimit.CleanupInterval)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Unspecified fields keep their defaults.
	assert.Equal(t, 10_000, cfg.RateLimit.MaxEntries)
	assert.True(t, cfg.Auth.RequireAuth)
}

func TestLoadEnvExpansion(t *testing.T) {
	t.Setenv("TEST_GATEWAY_SECRET", "expanded-secret-value")

	path := writeConfig(t, `
auth:
  jwt_secret: "${TEST_GATEWAY_SECRET}"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "expanded-secret-value", cfg.Auth.JWTSecret)
}

func TestLoadUnsetEnvBecomesEmpty(t *testing.T) {
	path := writeConfig(t, `
auth:
  jwt_secret: "${DEFINITELY_NOT_SET_ANYWHERE_12345}"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, cfg.Auth.JWTSecret)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadBadDuration(t *testing.T) {
	path := writeConfig(t, `
rate_limit:
  window: "sixty seconds"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate_limit.window")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "missing http addr",
			mutate:  func(c *Config) { c.Server.HTTPAddr = "" },
			wantErr: "server.http_addr",
		},
		{
			name:    "zero limit",
			mutate:  func(c *Config) { c.RateLimit.Limit = 0 },
			wantErr: "rate_limit.limit",
		},
		{
			name:    "zero max entries",
			mutate:  func(c *Config) { c.RateLimit.MaxEntries = 0 },
			wantErr: "rate_limit.max_entries",
		},
		{
			name:    "unknown audit backend",
			mutate:  func(c *Config) { c.Audit.Backend = "kafka" },
			wantErr: "audit.backend",
		},
		{
			name:    "sqlite backend without path",
			mutate:  func(c *Config) { c.Audit.Backend = "sqlite" },
			wantErr: "audit.path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
