// ABOUTME: Bearer token extraction and request-time authentication for HTTP
// ABOUTME: Maps header and token failures to the two stable 401 messages

package auth

import (
	"net/http"
	"strings"
)

// Rejection describes a failed authentication attempt. Message is the exact
// client-facing string; internals never leak past it.
type Rejection struct {
	Status  int
	Message string
}

// extractBearerToken extracts a bearer token from the Authorization header.
// Returns the token and an error message (empty if successful).
func extractBearerToken(authHeader string) (string, string) {
	if authHeader == "" {
		return "", "missing authorization header"
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", "invalid authorization header format"
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" {
		return "", "empty token"
	}
	return token, ""
}

// Authenticate verifies the request's bearer token and returns the identity.
// Missing or malformed headers and invalid tokens map to the two stable
// rejection messages the clients branch on.
func Authenticate(r *http.Request, verifier Verifier) (*Identity, *Rejection) {
	token, errMsg := extractBearerToken(r.Header.Get("Authorization"))
	if errMsg != "" {
		return nil, &Rejection{Status: http.StatusUnauthorized, Message: "Missing authorization"}
	}

	identity, err := verifier.Verify(token)
	if err != nil {
		return nil, &Rejection{Status: http.StatusUnauthorized, Message: "Invalid token"}
	}
	return identity, nil
}
