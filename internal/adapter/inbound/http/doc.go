// Package http provides HTTP Streamable transport for the proxy.
//
// This package implements inbound HTTP transport following the MCP
// Streamable HTTP specification. It lets remote clients connect to the
// proxy over HTTP/HTTPS instead of stdio, with one Transport serving any
// number of concurrent sessions distinguished by Mcp-Session-Id.
//
// # Usage
//
// Create and start an HTTP transport:
//
//	transport := http.NewTransport(dispatcher, store,
//	    http.WithAddr(":8080"),
//	    http.WithTLS("cert.pem", "key.pem"),
//	    http.WithAllowedOrigins([]string{"https://example.com"}),
//	    http.WithLogger(logger),
//	)
//	err := transport.Start(ctx)
//
// # Endpoints
//
//	POST /mcp    - Send one JSON-RPC request, receive its JSON-RPC response
//	GET /mcp     - Open an SSE stream for server-initiated messages
//	DELETE /mcp  - Terminate a session's SSE connections
//	OPTIONS /mcp - CORS preflight handling
//	GET /health  - Liveness/readiness check
//	GET /metrics - Prometheus metrics
//
// # Request Headers
//
//	Mcp-Session-Id: <session-id>        - Session identifier; the shared
//	                                       "default" session is used and
//	                                       echoed if absent
//	Content-Type: application/json      - Required for POST requests
//
// # Response Headers
//
//	MCP-Protocol-Version: 2025-06-18    - MCP protocol version
//	Mcp-Session-Id: <session-id>        - Session identifier echoed back
//	Content-Type: application/json      - JSON-RPC response format
//
// # Security
//
//   - TLS 1.2 minimum when HTTPS is enabled via WithTLS
//   - DNS rebinding protection: Origin header validation via WithAllowedOrigins
//
// # Middleware Chain
//
// Requests pass through middleware in this order: MetricsMiddleware,
// RequestIDMiddleware, DNSRebindingProtection, then the handler, which
// dispatches through the same Dispatcher.HandleMessage the stdio
// transport uses.
//
// # Server-Sent Events (SSE)
//
// GET requests open an SSE stream for server-initiated messages. The
// stream requires Mcp-Session-Id, sends "data: <json>\n\n" events, and
// disconnects cleanly on context cancellation or session termination.
package http
