// Package observability wires OpenTelemetry tracing and metrics around the
// hook chain: one span per chain traversal (request, response, tools/list,
// exception) and per remote-hook RPC, plus counters for hook CONTINUE/
// ABORT/error outcomes. Exports to stdout by default, matching the rest of
// the proxy's ambient stack, which keeps Prometheus for the HTTP-stream
// transport's own request/latency/session metrics (internal/adapter/inbound/
// http) separate from this package's per-hook tracing concern.
package observability
