// ABOUTME: JWT secret sourcing from config or environment with a dev-only fallback
// ABOUTME: Random fallback secrets never validate tokens across process restarts

package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
)

// SecretEnvVar is the environment variable consulted when no secret is configured.
const SecretEnvVar = "MCP_JWT_SECRET"

// ResolveSecret returns the HMAC secret to use, preferring the configured
// value, then the environment. When neither is set a random secret is
// generated for non-persistent development use and a warning is logged.
func ResolveSecret(configured string, logger *slog.Logger) ([]byte, error) {
	if configured != "" {
		return []byte(configured), nil
	}
	if env := os.Getenv(SecretEnvVar); env != "" {
		return []byte(env), nil
	}

	buf := make([]byte, MinSecretLength)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("generating fallback secret: %w", err)
	}
	logger.Warn("no JWT secret configured; generated a random dev-only secret, tokens will not survive a restart",
		"env_var", SecretEnvVar,
	)
	return []byte(base64.RawURLEncoding.EncodeToString(buf)), nil
}
