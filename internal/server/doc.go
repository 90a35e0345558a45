// Package server implements the HTTP front end for the gateway.
//
// # Request Pipeline
//
// Every request passes through the same ordered pipeline:
//
//  1. Rate limit admission (429 on rejection, before any auth work)
//  2. Middleware chain (authentication lives here)
//  3. Routing to /mcp, /health, /ready, /metrics, or the discovery document
//
// Latency is recorded for every request, including rejected ones.
//
// # Status Codes
//
// The /mcp endpoint responds 200 for everything the dispatcher can express
// as a JSON-RPC response, including protocol errors like parse failures.
// Only two conditions break this: rate limiting (429) and a recovered
// panic (500 with a generic message).
//
// # Public Paths
//
// /health, /ready, /metrics, and /.well-known/mcp-configuration bypass
// authentication. Everything else goes through the middleware chain.
package server
