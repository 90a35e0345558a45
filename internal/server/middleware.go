// ABOUTME: Middleware chain primitives: ordered handlers returning control-flow verdicts
// ABOUTME: The auth middleware attaches the verified identity or halts with a 401

package server

import (
	"net/http"

	"github.com/2389/mcp-gateway/internal/auth"
)

// Verdict is a middleware's control-flow decision.
type Verdict int

const (
	// Continue passes control to the next middleware (or the router).
	Continue Verdict = iota
	// Halt means the middleware wrote a response; the chain stops.
	Halt
)

// Middleware inspects a request and either lets the chain continue, possibly
// with an updated request, or writes a response and halts. The chain runs in
// registration order via an explicit loop, not nested closures.
type Middleware func(w http.ResponseWriter, r *http.Request) (*http.Request, Verdict)

// Use appends a middleware to the chain.
func (s *Server) Use(m Middleware) {
	s.middlewares = append(s.middlewares, m)
}

// AuthMiddleware verifies the bearer token on every path except the public
// ones and attaches the resulting identity to the request context.
func AuthMiddleware(verifier auth.Verifier) Middleware {
	return func(w http.ResponseWriter, r *http.Request) (*http.Request, Verdict) {
		if publicPaths[r.URL.Path] {
			return r, Continue
		}

		identity, rejection := auth.Authenticate(r, verifier)
		if rejection != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(rejection.Status)
			_, _ = w.Write([]byte(`{"error":"` + rejection.Message + `"}` + "\n"))
			return r, Halt
		}

		return r.WithContext(auth.WithIdentity(r.Context(), identity)), Continue
	}
}
