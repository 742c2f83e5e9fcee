// Package ctxkey defines shared context key types used across multiple packages.
// This package should have no dependencies on other internal packages to avoid import cycles.
package ctxkey

// LoggerKey is the context key type for the enriched logger.
// Used by HTTP middleware to store and retrieve the logger with its request_id field.
type LoggerKey struct{}

// ForwardedHeadersKey is the context key type for the allow-listed inbound
// headers (authorization, mcp-session-id, accept, accept-language,
// user-agent) that an HTTP-stream target client forwards on the outbound
// request it makes for the current call.
type ForwardedHeadersKey struct{}

// RequestIDKey is the context key type for the per-request correlation id
// attached to logs and spans for one inbound request's lifetime.
type RequestIDKey struct{}
