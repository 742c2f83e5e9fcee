// Package http provides the HTTP transport adapter for the proxy.
package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/mcphook/proxy/internal/ctxkey"
)

// LoggerKey is the context key for the enriched logger.
var LoggerKey = ctxkey.LoggerKey{}

// RequestIDMiddleware extracts or generates a request ID and enriches the
// logger carried in the request context.
func RequestIDMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.New().String()
			}

			enrichedLogger := logger.With("request_id", requestID)
			ctx := context.WithValue(r.Context(), ctxkey.RequestIDKey{}, requestID)
			ctx = context.WithValue(ctx, LoggerKey, enrichedLogger)

			w.Header().Set("X-Request-ID", requestID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// LoggerFromContext retrieves the enriched logger from context, falling
// back to slog.Default() if none is present.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(LoggerKey).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// DNSRebindingProtection validates the Origin header against an allowlist,
// blocking cross-origin browser requests that don't name an allowed origin.
// Requests with no Origin header (same-origin or non-browser clients) pass
// through unconditionally.
func DNSRebindingProtection(allowedOrigins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}
			if _, ok := allowed[origin]; !ok {
				http.Error(w, "Forbidden: origin not allowed", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// forwardedHeaderAllowList is the set of inbound headers an HTTP-stream
// target connection may forward on its own outbound request for the
// current call (see internal/adapter/outbound/target.HTTPClient), per
// §4.6's allow-list.
var forwardedHeaderAllowList = []string{
	"Authorization", "Mcp-Session-Id", "Accept", "Accept-Language", "User-Agent",
}

// withForwardedHeaders copies the allow-listed inbound headers into the
// context under ctxkey.ForwardedHeadersKey so a downstream HTTP-stream
// target client can re-send them, without exposing the rest of the
// inbound header set.
func withForwardedHeaders(ctx context.Context, header http.Header) context.Context {
	forwarded := make(http.Header, len(forwardedHeaderAllowList))
	for _, name := range forwardedHeaderAllowList {
		if v := header.Get(name); v != "" {
			forwarded.Set(name, v)
		}
	}
	return context.WithValue(ctx, ctxkey.ForwardedHeadersKey{}, forwarded)
}
