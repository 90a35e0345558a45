// Package dispatch routes JSON-RPC 2.0 requests to the MCP method set.
//
// # Methods
//
// The dispatcher handles a fixed set of methods:
//
//   - initialize: protocol handshake, returns server info and capabilities
//   - tools/list: descriptors for all registered tools in registration order
//   - tools/call: authorize, validate, and execute a named tool
//   - ping: liveness check, returns an empty result
//
// Unknown methods return a method-not-found error. The dispatcher never
// returns both a result and an error in the same response.
//
// # Tool Call Pipeline
//
// tools/call runs a strict sequence: resolve the tool, check the caller's
// scopes against the tool's required scopes, validate arguments against the
// tool's input schema, then execute. The first failing step short-circuits
// the rest.
//
// A failing tool execution is not a protocol failure: it produces a
// successful JSON-RPC response whose result carries isError set to true.
// Protocol-level errors (unknown tool, bad arguments, missing scopes) use
// the JSON-RPC error object instead.
//
// # Auditing
//
// Every tools/call records audit events through the configured sink:
// tool.execute before execution, then exactly one of tool.success or
// tool.error. Authorization failures record tool.unauthorized with the
// required and actual scopes.
package dispatch
