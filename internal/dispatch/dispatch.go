// ABOUTME: JSON-RPC 2.0 dispatcher for the MCP methods initialize, tools/list, tools/call, ping
// ABOUTME: Enforces scope checks before schema validation before tool execution

package dispatch

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/2389/mcp-gateway/internal/audit"
	"github.com/2389/mcp-gateway/internal/auth"
	"github.com/2389/mcp-gateway/internal/mcperr"
	"github.com/2389/mcp-gateway/internal/registry"
	"github.com/2389/mcp-gateway/internal/schema"
)

// ProtocolVersion is the MCP protocol version advertised in initialize responses.
const ProtocolVersion = "2025-03-26"

// JSON-RPC 2.0 envelope types

// Request represents a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response represents a JSON-RPC 2.0 response. Exactly one of Result or
// Error is set, never both.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *ErrorObject    `json:"error,omitempty"`
}

// ErrorObject represents a JSON-RPC 2.0 error object.
type ErrorObject struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// CallParams are the params for tools/call.
type CallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// CallResult is the result for tools/call. A tool-level failure is carried
// here with IsError set, inside a JSON-RPC success envelope; only
// transport-level failures become JSON-RPC errors.
type CallResult struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError,omitempty"`
}

// Content represents one content block in a tool result.
type Content struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// ListResult is the result for tools/list.
type ListResult struct {
	Tools []registry.Descriptor `json:"tools"`
}

// Config holds dispatcher construction parameters.
type Config struct {
	Registry      *registry.Registry
	Audit         audit.Sink
	Logger        *slog.Logger
	ServerName    string
	ServerVersion string
}

// Dispatcher routes parsed JSON-RPC requests to the fixed MCP method set.
// It is stateless between requests.
type Dispatcher struct {
	registry      *registry.Registry
	audit         audit.Sink
	logger        *slog.Logger
	serverName    string
	serverVersion string
}

// New creates a dispatcher.
func New(cfg Config) *Dispatcher {
	if cfg.Audit == nil {
		cfg.Audit = audit.NopSink{}
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
	return &Dispatcher{
		registry:      cfg.Registry,
		audit:         cfg.Audit,
		logger:        cfg.Logger,
		serverName:    cfg.ServerName,
		serverVersion: cfg.ServerVersion,
	}
}

// Dispatch routes a request by method and returns the response envelope.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) Response {
	switch req.Method {
	case "initialize":
		return d.handleInitialize(req)
	case "tools/list":
		return d.handleToolsList(req)
	case "tools/call":
		return d.handleToolsCall(ctx, req)
	case "ping":
		return SuccessResponse(req.ID, map[string]any{})
	default:
		return ErrorResponse(req.ID, mcperr.CodeMethodNotFound, "Method not found: "+req.Method, nil)
	}
}

func (d *Dispatcher) handleInitialize(req Request) Response {
	return SuccessResponse(req.ID, map[string]any{
		"protocolVersion": ProtocolVersion,
		"capabilities": map[string]any{
			"tools": map[string]any{},
		},
		"serverInfo": map[string]any{
			"name":    d.serverName,
			"version": d.serverVersion,
		},
	})
}

func (d *Dispatcher) handleToolsList(req Request) Response {
	listing := d.registry.List()
	d.logger.Debug("tools/list", "count", len(listing))
	return SuccessResponse(req.ID, ListResult{Tools: listing})
}

func (d *Dispatcher) handleToolsCall(ctx context.Context, req Request) Response {
	var params CallParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return ErrorResponse(req.ID, mcperr.CodeInvalidParams, "Invalid params", nil)
		}
	}
	if params.Name == "" {
		return ErrorResponse(req.ID, mcperr.CodeInvalidParams, "Missing tool name", nil)
	}

	tool, ok := d.registry.Get(params.Name)
	if !ok {
		return ErrorResponse(req.ID, mcperr.CodeMethodNotFound, "Tool not found: "+params.Name, nil)
	}

	identity := auth.FromContext(ctx)
	subject := ""
	var scopes []string
	if identity != nil {
		subject = identity.Subject
		scopes = identity.Scopes
	}

	// Authorization runs before schema validation.
	if len(tool.RequiredScopes) > 0 {
		if identity == nil || !identity.HasScopes(tool.RequiredScopes) {
			d.audit.Record(ctx, audit.ActionToolUnauthorized, map[string]any{
				"tool":            params.Name,
				"subject":         subject,
				"required_scopes": tool.RequiredScopes,
				"actual_scopes":   scopes,
			})
			return ErrorResponse(req.ID, mcperr.CodeAuthorization,
				"Insufficient permissions. Required scopes: "+strings.Join(tool.RequiredScopes, ", "), nil)
		}
	}

	args := params.Arguments
	if len(args) == 0 || string(args) == "null" {
		args = json.RawMessage("{}")
	}
	if violations := schema.Validate(tool.InputSchema, args); len(violations) > 0 {
		return ErrorResponse(req.ID, mcperr.CodeInvalidParams, "Invalid tool arguments",
			map[string]any{"violations": violations})
	}

	requestID := uuid.New().String()
	d.audit.Record(ctx, audit.ActionToolExecute, map[string]any{
		"tool":       params.Name,
		"subject":    subject,
		"request_id": requestID,
	})
	d.logger.Debug("tools/call", "tool", params.Name, "subject", subject, "request_id", requestID)

	output, err := tool.Execute(ctx, args)
	if err != nil {
		// Tool-level failure: the JSON-RPC call itself succeeded, the result
		// carries the error so clients can branch on isError.
		classified := mcperr.Classify(err)
		d.audit.Record(ctx, audit.ActionToolError, map[string]any{
			"tool":       params.Name,
			"request_id": requestID,
			"error":      classified.Message,
			"retryable":  classified.Retry,
		})
		d.logger.Warn("tool execution failed",
			"tool", params.Name,
			"request_id", requestID,
			"category", classified.Category,
			"error", err,
		)
		return SuccessResponse(req.ID, CallResult{
			Content: []Content{{Type: "text", Text: classified.Message}},
			IsError: true,
		})
	}

	text, err := json.Marshal(output)
	if err != nil {
		d.logger.Error("failed to serialize tool output", "tool", params.Name, "error", err)
		return ErrorResponse(req.ID, mcperr.CodeInternalError, "Internal server error", nil)
	}

	d.audit.Record(ctx, audit.ActionToolSuccess, map[string]any{
		"tool":       params.Name,
		"request_id": requestID,
	})
	return SuccessResponse(req.ID, CallResult{
		Content: []Content{{Type: "text", Text: string(text)}},
	})
}

// SuccessResponse builds a JSON-RPC success envelope.
func SuccessResponse(id json.RawMessage, result any) Response {
	return Response{JSONRPC: "2.0", ID: normalizeID(id), Result: result}
}

// ErrorResponse builds a JSON-RPC error envelope.
func ErrorResponse(id json.RawMessage, code int, message string, data any) Response {
	return Response{
		JSONRPC: "2.0",
		ID:      normalizeID(id),
		Error:   &ErrorObject{Code: code, Message: message, Data: data},
	}
}

// normalizeID substitutes JSON null for an absent request ID so the response
// envelope always carries an id field.
func normalizeID(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return json.RawMessage("null")
	}
	return id
}
