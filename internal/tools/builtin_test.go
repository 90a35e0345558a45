// ABOUTME: Tests for the built-in tool pack including fetch-url against a local server
// ABOUTME: Verifies external error classification for unreachable upstreams

package tools

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/mcp-gateway/internal/mcperr"
	"github.com/2389/mcp-gateway/internal/registry"
)

func TestRegisterBuiltins(t *testing.T) {
	reg := registry.New(slog.Default())
	RegisterBuiltins(reg, slog.Default())

	list := reg.List()
	require.Len(t, list, 3)
	assert.Equal(t, "example-tool", list[0].Name)
	assert.Equal(t, "fetch-url", list[1].Name)
	assert.Equal(t, "server-time", list[2].Name)
}

func TestExampleTool(t *testing.T) {
	tool := ExampleTool()
	assert.Equal(t, []string{"tools:execute"}, tool.RequiredScopes)

	out, err := tool.Execute(context.Background(), json.RawMessage(`{"query": "hi"}`))
	require.NoError(t, err)

	result, ok := out.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Processed: hi", result["result"])
	assert.Equal(t, "success", result["status"])
	assert.NotEmpty(t, result["timestamp"])
}

func TestServerTimeTool(t *testing.T) {
	tool := ServerTimeTool()
	assert.Empty(t, tool.RequiredScopes)

	out, err := tool.Execute(context.Background(), json.RawMessage(`{}`))
	require.NoError(t, err)

	result, ok := out.(map[string]any)
	require.True(t, ok)
	assert.NotEmpty(t, result["rfc3339"])
	assert.NotZero(t, result["unix_ms"])
}

func TestFetchURLTool_Success(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("hello from upstream"))
	}))
	defer upstream.Close()

	tool := FetchURLTool(slog.Default())
	args, _ := json.Marshal(map[string]string{"url": upstream.URL})

	out, err := tool.Execute(context.Background(), args)
	require.NoError(t, err)

	result, ok := out.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, result["status"])
	assert.Equal(t, "hello from upstream", result["body"])
}

func TestFetchURLTool_UnreachableIsExternal(t *testing.T) {
	// Grab a port nothing listens on by closing a server first.
	dead := httptest.NewServer(http.NewServeMux())
	deadURL := dead.URL
	dead.Close()

	tool := FetchURLTool(slog.Default())
	args, _ := json.Marshal(map[string]string{"url": deadURL})

	_, err := tool.Execute(context.Background(), args)
	require.Error(t, err)
	assert.True(t, mcperr.IsRetryable(err), "unreachable upstream must classify as retryable external")

	classified := mcperr.Classify(err)
	assert.Equal(t, mcperr.CategoryExternal, classified.Category)
}

func TestFetchURLTool_InvalidURL(t *testing.T) {
	tool := FetchURLTool(slog.Default())

	_, err := tool.Execute(context.Background(), json.RawMessage(`{"url": "://not-a-url"}`))
	require.Error(t, err)

	classified := mcperr.Classify(err)
	assert.Equal(t, mcperr.CategoryClient, classified.Category)
	assert.False(t, classified.Retry)
}
