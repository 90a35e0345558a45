// ABOUTME: Built-in tool pack registered at startup: example-tool, fetch-url, server-time
// ABOUTME: fetch-url wraps a retrying HTTP client; network failures classify as external

package tools

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/2389/mcp-gateway/internal/mcperr"
	"github.com/2389/mcp-gateway/internal/registry"
)

// fetch-url client tuning.
const (
	fetchMaxRetries   = 3
	fetchRetryWaitMin = 500 * time.Millisecond
	fetchRetryWaitMax = 5 * time.Second
	fetchTimeout      = 30 * time.Second
	fetchMaxBodySize  = 1 << 20
)

// RegisterBuiltins installs the built-in tool pack into the registry.
func RegisterBuiltins(reg *registry.Registry, logger *slog.Logger) {
	reg.Register(ExampleTool())
	reg.Register(FetchURLTool(logger))
	reg.Register(ServerTimeTool())
}

// ExampleTool processes a query string. It doubles as the reference tool for
// integration tests and generated client examples.
func ExampleTool() *registry.Tool {
	return &registry.Tool{
		Name:        "example-tool",
		Description: "Processes a query string and returns the result",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"query": {"type": "string", "maxLength": 1000}
			},
			"required": ["query"],
			"additionalProperties": false
		}`),
		RequiredScopes: []string{"tools:execute"},
		Execute: func(ctx context.Context, args json.RawMessage) (any, error) {
			var in struct {
				Query string `json:"query"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return nil, err
			}
			return map[string]any{
				"result":    "Processed: " + in.Query,
				"timestamp": time.Now().UTC().Format(time.RFC3339),
				"status":    "success",
			}, nil
		},
	}
}

// FetchURLTool fetches an HTTP(S) URL with bounded retries and backoff.
func FetchURLTool(logger *slog.Logger) *registry.Tool {
	client := retryablehttp.NewClient()
	client.RetryMax = fetchMaxRetries
	client.RetryWaitMin = fetchRetryWaitMin
	client.RetryWaitMax = fetchRetryWaitMax
	client.HTTPClient.Timeout = fetchTimeout
	// Disable retryablehttp's own logging; outcomes are logged below.
	client.Logger = log.New(io.Discard, "", 0)
	if logger == nil {
		logger = slog.Default()
	}

	return &registry.Tool{
		Name:        "fetch-url",
		Description: "Fetches the contents of an HTTP(S) URL",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"url": {"type": "string", "maxLength": 2048},
				"method": {"type": "string", "enum": ["GET", "HEAD"]}
			},
			"required": ["url"],
			"additionalProperties": false
		}`),
		RequiredScopes: []string{"tools:execute", "network:read"},
		Execute: func(ctx context.Context, args json.RawMessage) (any, error) {
			var in struct {
				URL    string `json:"url"`
				Method string `json:"method"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return nil, err
			}
			method := in.Method
			if method == "" {
				method = http.MethodGet
			}

			req, err := retryablehttp.NewRequestWithContext(ctx, method, in.URL, nil)
			if err != nil {
				return nil, mcperr.InvalidParams("invalid URL: " + err.Error())
			}

			resp, err := client.Do(req)
			if err != nil {
				return nil, mcperr.External("fetch failed: " + err.Error())
			}
			defer func() { _ = resp.Body.Close() }()

			body, err := io.ReadAll(io.LimitReader(resp.Body, fetchMaxBodySize))
			if err != nil {
				return nil, mcperr.External("reading response body: " + err.Error())
			}

			logger.Debug("fetch-url complete", "url", in.URL, "status", resp.StatusCode, "bytes", len(body))
			return map[string]any{
				"status":       resp.StatusCode,
				"content_type": resp.Header.Get("Content-Type"),
				"body":         string(body),
			}, nil
		},
	}
}

// ServerTimeTool reports the current server time. Requires no scopes.
func ServerTimeTool() *registry.Tool {
	return &registry.Tool{
		Name:        "server-time",
		Description: "Returns the current server time",
		InputSchema: json.RawMessage(`{"type": "object", "additionalProperties": false}`),
		Execute: func(ctx context.Context, args json.RawMessage) (any, error) {
			now := time.Now().UTC()
			return map[string]any{
				"rfc3339": now.Format(time.RFC3339),
				"unix_ms": now.UnixMilli(),
			}, nil
		},
	}
}
