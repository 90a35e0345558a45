// ABOUTME: Authenticated identity and context propagation for request handlers
// ABOUTME: Provides WithIdentity/FromContext plus scope containment checks

package auth

import (
	"context"
)

// Identity is the authenticated caller derived from a verified token.
// It lives for the duration of a single request and is never persisted.
type Identity struct {
	Subject string
	Scopes  []string
}

// HasScopes reports whether the identity's scope set contains all of
// required. An empty required set always passes.
func (id *Identity) HasScopes(required []string) bool {
	if len(required) == 0 {
		return true
	}
	have := make(map[string]struct{}, len(id.Scopes))
	for _, s := range id.Scopes {
		have[s] = struct{}{}
	}
	for _, r := range required {
		if _, ok := have[r]; !ok {
			return false
		}
	}
	return true
}

// identityKey is the key type for storing Identity in context.Context.
type identityKey struct{}

// WithIdentity returns a new context with the identity attached.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext retrieves the Identity from the context, returning nil if not present.
func FromContext(ctx context.Context) *Identity {
	val := ctx.Value(identityKey{})
	if val == nil {
		return nil
	}
	id, ok := val.(*Identity)
	if !ok {
		return nil
	}
	return id
}
