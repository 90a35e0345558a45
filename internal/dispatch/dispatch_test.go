// ABOUTME: Tests for JSON-RPC dispatch across all four methods and the tools/call check order
// ABOUTME: Uses a recording audit sink and call counters to verify side effects

package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/mcp-gateway/internal/audit"
	"github.com/2389/mcp-gateway/internal/auth"
	"github.com/2389/mcp-gateway/internal/mcperr"
	"github.com/2389/mcp-gateway/internal/registry"
)

// recordingSink captures audit events for assertions.
type recordingSink struct {
	mu     sync.Mutex
	events []recordedEvent
}

type recordedEvent struct {
	action string
	detail map[string]any
}

func (s *recordingSink) Record(_ context.Context, action string, detail map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, recordedEvent{action: action, detail: detail})
}

func (s *recordingSink) actions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	for i, e := range s.events {
		out[i] = e.action
	}
	return out
}

// setupDispatcher builds a dispatcher with an example tool and a failing tool.
func setupDispatcher(t *testing.T) (*Dispatcher, *recordingSink, *int) {
	t.Helper()

	reg := registry.New(slog.Default())
	executeCalls := 0

	reg.Register(&registry.Tool{
		Name:        "example-tool",
		Description: "Processes a query",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {"query": {"type": "string", "maxLength": 1000}},
			"required": ["query"],
			"additionalProperties": false
		}`),
		RequiredScopes: []string{"tools:execute"},
		Execute: func(ctx context.Context, args json.RawMessage) (any, error) {
			executeCalls++
			var in struct {
				Query string `json:"query"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return nil, err
			}
			return map[string]any{"result": "Processed: " + in.Query}, nil
		},
	})

	reg.Register(&registry.Tool{
		Name:        "failing-tool",
		Description: "Always fails",
		InputSchema: json.RawMessage(`{"type": "object"}`),
		Execute: func(ctx context.Context, args json.RawMessage) (any, error) {
			return nil, errors.New("boom")
		},
	})

	sink := &recordingSink{}
	d := New(Config{
		Registry:      reg,
		Audit:         sink,
		Logger:        slog.Default(),
		ServerName:    "test-gateway",
		ServerVersion: "1.0.0",
	})
	return d, sink, &executeCalls
}

func authedContext(scopes ...string) context.Context {
	return auth.WithIdentity(context.Background(), &auth.Identity{Subject: "user-1", Scopes: scopes})
}

func callRequest(t *testing.T, name string, args string) Request {
	t.Helper()
	params := map[string]any{"name": name}
	if args != "" {
		params["arguments"] = json.RawMessage(args)
	}
	raw, err := json.Marshal(params)
	require.NoError(t, err)
	return Request{JSONRPC: "2.0", ID: json.RawMessage(`1`), Method: "tools/call", Params: raw}
}

func TestDispatch_Initialize(t *testing.T) {
	d, _, _ := setupDispatcher(t)

	resp := d.Dispatch(context.Background(), Request{JSONRPC: "2.0", ID: json.RawMessage(`1`), Method: "initialize"})
	require.Nil(t, resp.Error)

	result, ok := resp.Result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, ProtocolVersion, result["protocolVersion"])
	info, ok := result["serverInfo"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "test-gateway", info["name"])
}

func TestDispatch_Ping(t *testing.T) {
	d, _, _ := setupDispatcher(t)

	resp := d.Dispatch(context.Background(), Request{JSONRPC: "2.0", ID: json.RawMessage(`7`), Method: "ping"})
	require.Nil(t, resp.Error)
	assert.Equal(t, map[string]any{}, resp.Result)
	assert.Equal(t, json.RawMessage(`7`), resp.ID)
}

func TestDispatch_ToolsList(t *testing.T) {
	d, _, _ := setupDispatcher(t)

	resp := d.Dispatch(context.Background(), Request{JSONRPC: "2.0", ID: json.RawMessage(`1`), Method: "tools/list"})
	require.Nil(t, resp.Error)

	result, ok := resp.Result.(ListResult)
	require.True(t, ok)
	require.Len(t, result.Tools, 2)
	assert.Equal(t, "example-tool", result.Tools[0].Name)
	assert.Equal(t, "failing-tool", result.Tools[1].Name)
}

func TestDispatch_UnknownMethod(t *testing.T) {
	d, _, _ := setupDispatcher(t)

	resp := d.Dispatch(context.Background(), Request{JSONRPC: "2.0", ID: json.RawMessage(`1`), Method: "resources/list"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, mcperr.CodeMethodNotFound, resp.Error.Code)
	assert.Nil(t, resp.Result)
}

func TestToolsCall_MissingName(t *testing.T) {
	d, _, _ := setupDispatcher(t)

	resp := d.Dispatch(authedContext("tools:execute"), Request{
		JSONRPC: "2.0", ID: json.RawMessage(`1`), Method: "tools/call",
		Params: json.RawMessage(`{}`),
	})
	require.NotNil(t, resp.Error)
	assert.Equal(t, mcperr.CodeInvalidParams, resp.Error.Code)
	assert.Equal(t, "Missing tool name", resp.Error.Message)
}

func TestToolsCall_UnknownTool(t *testing.T) {
	d, _, _ := setupDispatcher(t)

	resp := d.Dispatch(authedContext("tools:execute"), callRequest(t, "nope", ""))
	require.NotNil(t, resp.Error)
	assert.Equal(t, mcperr.CodeMethodNotFound, resp.Error.Code)
	assert.Equal(t, "Tool not found: nope", resp.Error.Message)
}

func TestToolsCall_InsufficientScopes(t *testing.T) {
	d, sink, calls := setupDispatcher(t)

	resp := d.Dispatch(authedContext("other:scope"), callRequest(t, "example-tool", `{"query": "hi"}`))
	require.NotNil(t, resp.Error)
	assert.Equal(t, mcperr.CodeAuthorization, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "tools:execute")
	assert.Zero(t, *calls, "execute must not run without the required scopes")

	require.Equal(t, []string{audit.ActionToolUnauthorized}, sink.actions())
	detail := sink.events[0].detail
	assert.Equal(t, "example-tool", detail["tool"])
	assert.Equal(t, "user-1", detail["subject"])
	assert.Equal(t, []string{"tools:execute"}, detail["required_scopes"])
	assert.Equal(t, []string{"other:scope"}, detail["actual_scopes"])
}

func TestToolsCall_SupersetScopesAccepted(t *testing.T) {
	d, _, calls := setupDispatcher(t)

	resp := d.Dispatch(authedContext("a", "tools:execute", "z"), callRequest(t, "example-tool", `{"query": "hi"}`))
	require.Nil(t, resp.Error)
	assert.Equal(t, 1, *calls)
}

func TestToolsCall_ScopeCheckPrecedesValidation(t *testing.T) {
	d, sink, _ := setupDispatcher(t)

	// Arguments are invalid too, but the scope failure must win.
	resp := d.Dispatch(authedContext(), callRequest(t, "example-tool", `{}`))
	require.NotNil(t, resp.Error)
	assert.Equal(t, mcperr.CodeAuthorization, resp.Error.Code)
	assert.Equal(t, []string{audit.ActionToolUnauthorized}, sink.actions())
}

func TestToolsCall_ValidationPrecedesExecution(t *testing.T) {
	d, _, calls := setupDispatcher(t)

	resp := d.Dispatch(authedContext("tools:execute"), callRequest(t, "example-tool", `{"wrong": 1}`))
	require.NotNil(t, resp.Error)
	assert.Equal(t, mcperr.CodeInvalidParams, resp.Error.Code)
	assert.Zero(t, *calls, "execute must not run on schema violations")

	data, ok := resp.Error.Data.(map[string]any)
	require.True(t, ok)
	assert.NotEmpty(t, data["violations"])
}

func TestToolsCall_Success(t *testing.T) {
	d, sink, _ := setupDispatcher(t)

	resp := d.Dispatch(authedContext("tools:execute"), callRequest(t, "example-tool", `{"query": "hi"}`))
	require.Nil(t, resp.Error)

	result, ok := resp.Result.(CallResult)
	require.True(t, ok)
	assert.False(t, result.IsError)
	require.Len(t, result.Content, 1)
	assert.Equal(t, "text", result.Content[0].Type)
	assert.Contains(t, result.Content[0].Text, `"result":"Processed: hi"`)

	assert.Equal(t, []string{audit.ActionToolExecute, audit.ActionToolSuccess}, sink.actions())
}

func TestToolsCall_DefaultArguments(t *testing.T) {
	d, _, _ := setupDispatcher(t)

	// failing-tool has a permissive schema; absent arguments default to {}.
	resp := d.Dispatch(context.Background(), callRequest(t, "failing-tool", ""))
	require.Nil(t, resp.Error)
}

func TestToolsCall_ToolLevelFailure(t *testing.T) {
	d, sink, _ := setupDispatcher(t)

	resp := d.Dispatch(context.Background(), callRequest(t, "failing-tool", `{}`))

	// Transport-level success carrying a tool-level failure.
	require.Nil(t, resp.Error)
	result, ok := resp.Result.(CallResult)
	require.True(t, ok)
	assert.True(t, result.IsError)
	require.Len(t, result.Content, 1)
	assert.Equal(t, "boom", result.Content[0].Text)

	assert.Equal(t, []string{audit.ActionToolExecute, audit.ActionToolError}, sink.actions())
	assert.Equal(t, false, sink.events[1].detail["retryable"])
}

func TestResponse_ExactlyOneOfResultOrError(t *testing.T) {
	d, _, _ := setupDispatcher(t)

	success := d.Dispatch(context.Background(), Request{JSONRPC: "2.0", ID: json.RawMessage(`1`), Method: "ping"})
	assert.NotNil(t, success.Result)
	assert.Nil(t, success.Error)

	failure := d.Dispatch(context.Background(), Request{JSONRPC: "2.0", ID: json.RawMessage(`1`), Method: "bogus"})
	assert.Nil(t, failure.Result)
	assert.NotNil(t, failure.Error)
}

func TestNormalizeID_AbsentBecomesNull(t *testing.T) {
	resp := ErrorResponse(nil, mcperr.CodeParseError, "Parse error", nil)
	assert.Equal(t, json.RawMessage("null"), resp.ID)
}
