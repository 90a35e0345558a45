// ABOUTME: Insertion-ordered registry of invocable tools with scope requirements
// ABOUTME: Read-mostly after startup; re-registration is last-write-wins in place

package registry

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
)

// ExecuteFunc runs a tool against schema-validated JSON arguments and returns
// a JSON-serializable result or a failure.
type ExecuteFunc func(ctx context.Context, args json.RawMessage) (any, error)

// Tool is an invocable tool descriptor. Immutable once registered.
type Tool struct {
	Name           string
	Description    string
	InputSchema    json.RawMessage
	RequiredScopes []string
	Execute        ExecuteFunc
}

// Descriptor is the client-visible slice of a tool surfaced by tools/list.
type Descriptor struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// Registry owns the name -> tool mapping. Registration happens at startup;
// request handling only reads, so an RWMutex keeps lookups cheap.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]*Tool
	order  []string
	logger *slog.Logger
}

// New creates an empty registry.
func New(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		tools:  make(map[string]*Tool),
		logger: logger,
	}
}

// Register stores a tool. Registering an existing name replaces the entry
// without moving it in the listing order (last write wins).
func (r *Registry) Register(tool *Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[tool.Name]; !exists {
		r.order = append(r.order, tool.Name)
	}
	r.tools[tool.Name] = tool

	r.logger.Info("tool registered",
		"name", tool.Name,
		"required_scopes", tool.RequiredScopes,
	)
}

// Get returns the tool with the given name.
func (r *Registry) Get(name string) (*Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, ok := r.tools[name]
	return tool, ok
}

// List returns descriptors for all tools in insertion order.
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		tool := r.tools[name]
		out = append(out, Descriptor{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.InputSchema,
		})
	}
	return out
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}
