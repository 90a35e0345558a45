// ABOUTME: Three-category error taxonomy (client/server/external) with retry semantics
// ABOUTME: Classifies arbitrary failures into exactly one MCPError with a JSON-RPC code

package mcperr

import (
	"errors"
	"strings"
)

// Category partitions every failure into one of three buckets that drive
// retry policy: client and server errors are never retried, external errors
// are retryable by definition.
type Category string

const (
	CategoryClient   Category = "client"
	CategoryServer   Category = "server"
	CategoryExternal Category = "external"
)

// JSON-RPC error codes used across the gateway.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeExternalError  = -32001
	CodeAuthorization  = -32003
)

// MCPError is the single error shape the rest of the gateway reports.
// Retry defaults to true only for external errors; WithRetry overrides.
type MCPError struct {
	Category Category
	Code     int
	Message  string
	Retry    bool
	Details  map[string]any

	cause error
}

func (e *MCPError) Error() string { return e.Message }

// Unwrap exposes the original error for errors.Is/As chains.
func (e *MCPError) Unwrap() error { return e.cause }

// WithDetail attaches a structured detail entry and returns the error.
func (e *MCPError) WithDetail(key string, value any) *MCPError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithRetry overrides the category's default retry flag.
func (e *MCPError) WithRetry(retry bool) *MCPError {
	e.Retry = retry
	return e
}

// Client constructs a client-category error with the given code.
func Client(code int, message string) *MCPError {
	return &MCPError{Category: CategoryClient, Code: code, Message: message}
}

// InvalidParams constructs a client error with the default client code.
func InvalidParams(message string) *MCPError {
	return Client(CodeInvalidParams, message)
}

// Server constructs a server-category internal error.
func Server(message string) *MCPError {
	return &MCPError{Category: CategoryServer, Code: CodeInternalError, Message: message}
}

// External constructs an external-category, retryable error.
func External(message string) *MCPError {
	return &MCPError{Category: CategoryExternal, Code: CodeExternalError, Message: message, Retry: true}
}

// transientSignatures are message fragments that mark a raw error as a
// transient network failure.
var transientSignatures = []string{
	"connection refused",
	"connection reset",
	"timeout",
	"i/o timeout",
	"no such host",
	"temporary failure in name resolution",
	"fetch failed",
}

// Classify folds any failure into exactly one MCPError. An MCPError passes
// through unchanged; transient network failures become external/retryable;
// everything else is a server error.
func Classify(err error) *MCPError {
	var me *MCPError
	if errors.As(err, &me) {
		return me
	}
	if isTransient(err) {
		return &MCPError{
			Category: CategoryExternal,
			Code:     CodeExternalError,
			Message:  err.Error(),
			Retry:    true,
			cause:    err,
		}
	}
	return &MCPError{
		Category: CategoryServer,
		Code:     CodeInternalError,
		Message:  err.Error(),
		cause:    err,
	}
}

// IsRetryable reports whether a caller should retry the operation that
// produced err. For raw errors only transient network failures qualify.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var me *MCPError
	if errors.As(err, &me) {
		return me.Retry
	}
	return isTransient(err)
}

func isTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, sig := range transientSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}
