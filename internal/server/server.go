// ABOUTME: HTTP request pipeline: rate-limit admission, middleware chain, routing, metrics
// ABOUTME: Hosts the MCP JSON-RPC endpoint plus health, readiness, metrics, and discovery

package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/2389/mcp-gateway/internal/auth"
	"github.com/2389/mcp-gateway/internal/dispatch"
	"github.com/2389/mcp-gateway/internal/mcperr"
	"github.com/2389/mcp-gateway/internal/metrics"
	"github.com/2389/mcp-gateway/internal/ratelimit"
)

// WellKnownPath is the discovery path exempt from authentication.
const WellKnownPath = "/.well-known/mcp-configuration"

// MaxRequestBodySize is the maximum allowed size for JSON-RPC bodies (1MB).
const MaxRequestBodySize = 1 << 20

// publicPaths are reachable without authentication.
var publicPaths = map[string]bool{
	"/health":     true,
	"/ready":      true,
	"/metrics":    true,
	WellKnownPath: true,
}

// Config holds server construction parameters.
type Config struct {
	Dispatcher    *dispatch.Dispatcher
	Limiter       *ratelimit.Limiter
	Metrics       *metrics.Recorder
	Verifier      auth.Verifier
	Logger        *slog.Logger
	RequireAuth   bool
	ServerName    string
	ServerVersion string
}

// Server is the per-connection request pipeline. It implements http.Handler.
type Server struct {
	dispatcher    *dispatch.Dispatcher
	limiter       *ratelimit.Limiter
	metrics       *metrics.Recorder
	logger        *slog.Logger
	middlewares   []Middleware
	serverName    string
	serverVersion string
}

// New creates a server. When RequireAuth is set the auth middleware is
// installed as the first chain entry.
func New(cfg Config) (*Server, error) {
	if cfg.Dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}
	if cfg.Limiter == nil {
		return nil, errors.New("rate limiter is required")
	}
	if cfg.RequireAuth && cfg.Verifier == nil {
		return nil, errors.New("token verifier is required when auth is required")
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewRecorder()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.ServerName == "" {
		cfg.ServerName = "mcp-gateway"
	}
	if cfg.ServerVersion == "" {
		cfg.ServerVersion = "dev"
	}

	s := &Server{
		dispatcher:    cfg.Dispatcher,
		limiter:       cfg.Limiter,
		metrics:       cfg.Metrics,
		logger:        cfg.Logger,
		serverName:    cfg.ServerName,
		serverVersion: cfg.ServerVersion,
	}
	if cfg.RequireAuth {
		s.Use(AuthMiddleware(cfg.Verifier))
	}
	return s, nil
}

// ServeHTTP runs the pipeline: rate-limit admission, the middleware chain,
// then routing. Latency is recorded on every path, including rejections.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() {
		s.metrics.Observe(time.Since(start))
	}()
	defer func() {
		if rec := recover(); rec != nil {
			// Never leak internals; full detail stays in the log.
			s.logger.Error("panic in request handler", "path", r.URL.Path, "panic", rec)
			s.writeResponse(w, http.StatusInternalServerError,
				dispatch.ErrorResponse(nil, mcperr.CodeInternalError, "Internal server error", nil))
		}
	}()

	clientID := clientAddr(r)
	if !s.limiter.Admit(clientID) {
		s.writeRateLimited(w, clientID)
		return
	}

	// Explicit loop over the chain: each middleware continues or halts.
	req := r
	for _, m := range s.middlewares {
		next, verdict := m(w, req)
		if verdict == Halt {
			return
		}
		if next != nil {
			req = next
		}
	}

	s.route(w, req)
}

// route matches exact path and method; anything else is a 404.
func (s *Server) route(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/health":
		s.writeJSON(w, http.StatusOK, map[string]any{
			"status":  "ok",
			"server":  s.serverName,
			"version": s.serverVersion,
		})
	case r.Method == http.MethodGet && r.URL.Path == "/ready":
		s.writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
	case r.Method == http.MethodGet && r.URL.Path == "/metrics":
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		s.metrics.WriteExposition(w)
	case r.Method == http.MethodGet && r.URL.Path == WellKnownPath:
		s.handleWellKnown(w)
	case r.Method == http.MethodPost && r.URL.Path == "/mcp":
		s.handleMCP(w, r)
	default:
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "Not found"})
	}
}

// handleMCP parses the JSON-RPC body and dispatches it. The response is
// always HTTP 200 with a JSON-RPC envelope; malformed JSON yields a
// PARSE_ERROR envelope rather than an HTTP error.
func (s *Server) handleMCP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, MaxRequestBodySize+1))
	if err != nil {
		s.writeResponse(w, http.StatusOK,
			dispatch.ErrorResponse(nil, mcperr.CodeParseError, "Failed to read request body", nil))
		return
	}
	if int64(len(body)) > MaxRequestBodySize {
		s.writeResponse(w, http.StatusOK,
			dispatch.ErrorResponse(nil, mcperr.CodeInvalidRequest, "Request body too large", nil))
		return
	}

	var req dispatch.Request
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeResponse(w, http.StatusOK,
			dispatch.ErrorResponse(nil, mcperr.CodeParseError, "Parse error", nil))
		return
	}
	if req.JSONRPC != "2.0" {
		s.writeResponse(w, http.StatusOK,
			dispatch.ErrorResponse(req.ID, mcperr.CodeInvalidRequest, "Invalid JSON-RPC version", nil))
		return
	}

	resp := s.dispatcher.Dispatch(r.Context(), req)
	s.writeResponse(w, http.StatusOK, resp)
}

// handleWellKnown serves the discovery document.
func (s *Server) handleWellKnown(w http.ResponseWriter) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"mcp_version":    dispatch.ProtocolVersion,
		"server_name":    s.serverName,
		"server_version": s.serverVersion,
		"capabilities":   []string{"tools"},
		"transport":      "http",
		"endpoints": map[string]string{
			"mcp":     "/mcp",
			"health":  "/health",
			"ready":   "/ready",
			"metrics": "/metrics",
		},
	})
}

// writeRateLimited emits the 429 response with the rate-limit header set.
func (s *Server) writeRateLimited(w http.ResponseWriter, clientID string) {
	info := s.limiter.Info(clientID)

	retryAfter := int(time.Until(info.Reset).Seconds())
	if retryAfter < 1 {
		retryAfter = 1
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
	w.Header().Set("X-RateLimit-Remaining", "0")
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.Reset.UnixMilli(), 10))
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))

	s.logger.Warn("rate limit exceeded", "client", clientID)
	s.writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "Rate limit exceeded"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn("failed to encode response body", "error", err)
	}
}

func (s *Server) writeResponse(w http.ResponseWriter, status int, resp dispatch.Response) {
	s.writeJSON(w, status, resp)
}

// clientAddr extracts the client identifier from the remote address.
func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
