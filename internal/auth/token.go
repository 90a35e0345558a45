// ABOUTME: JWT bearer token verification pinned to HS256 with sub and scope claims
// ABOUTME: Produces the per-request Identity consumed by the dispatcher

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token errors
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrMissingClaim = errors.New("missing required claim")
)

// MinSecretLength is the minimum accepted HMAC secret size in bytes.
const MinSecretLength = 32

// Verifier defines the interface for token verification.
type Verifier interface {
	Verify(tokenString string) (*Identity, error)
}

// JWTVerifier implements Verifier using HS256 signed JWTs.
type JWTVerifier struct {
	secret []byte
}

// NewJWTVerifier creates a verifier with the given secret.
func NewJWTVerifier(secret []byte) (*JWTVerifier, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("jwt secret must be at least %d bytes, got %d", MinSecretLength, len(secret))
	}
	return &JWTVerifier{secret: secret}, nil
}

// Verify validates the token signature and expiry and extracts the identity
// from the "sub" and "scope" claims. The signing algorithm is pinned to HMAC;
// tokens signed with any other method are rejected.
func (v *JWTVerifier) Verify(tokenString string) (*Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return nil, fmt.Errorf("%w: sub", ErrMissingClaim)
	}

	rawScopes, ok := claims["scope"].([]any)
	if !ok {
		return nil, fmt.Errorf("%w: scope", ErrMissingClaim)
	}
	scopes := make([]string, 0, len(rawScopes))
	for _, raw := range rawScopes {
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("%w: scope must be a string array", ErrMissingClaim)
		}
		scopes = append(scopes, s)
	}

	return &Identity{Subject: sub, Scopes: scopes}, nil
}

// Generate creates a new JWT for the given subject and scopes with expiration.
// Used by the CLI to mint development tokens.
func (v *JWTVerifier) Generate(subject string, scopes []string, expiresIn time.Duration) (string, error) {
	if scopes == nil {
		scopes = []string{}
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   subject,
		"scope": scopes,
		"iat":   now.Unix(),
		"exp":   now.Add(expiresIn).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}
