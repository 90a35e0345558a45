// ABOUTME: Tests for JWT secret resolution order and the dev-only fallback
// ABOUTME: Confirms configured and environment secrets win over generation

package auth

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveSecret_PrefersConfigured(t *testing.T) {
	t.Setenv(SecretEnvVar, "env-secret")
	secret, err := ResolveSecret("configured-secret", slog.Default())
	require.NoError(t, err)
	assert.Equal(t, []byte("configured-secret"), secret)
}

func TestResolveSecret_FallsBackToEnv(t *testing.T) {
	t.Setenv(SecretEnvVar, "env-secret")
	secret, err := ResolveSecret("", slog.Default())
	require.NoError(t, err)
	assert.Equal(t, []byte("env-secret"), secret)
}

func TestResolveSecret_GeneratesRandomDevSecret(t *testing.T) {
	t.Setenv(SecretEnvVar, "")
	first, err := ResolveSecret("", slog.Default())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(first), MinSecretLength)

	second, err := ResolveSecret("", slog.Default())
	require.NoError(t, err)
	assert.NotEqual(t, first, second, "fallback secrets must not be stable across calls")
}
