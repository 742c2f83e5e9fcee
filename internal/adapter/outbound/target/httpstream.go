package target

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/mcphook/proxy/internal/ctxkey"
	"github.com/mcphook/proxy/internal/domain/hook"
	"github.com/mcphook/proxy/internal/port/outbound"
)

// forwardedHeaderAllowList mirrors §4.6's inbound allow-list; it is reused
// here as the set of headers an HTTP-stream target connection will forward
// from the originating inbound request, when present in the call's
// context.
var forwardedHeaderAllowList = []string{
	"Authorization", "Mcp-Session-Id", "Accept", "Accept-Language", "User-Agent",
}

// HTTPClient is a target client backed by a long-lived HTTP-stream MCP
// session (§4.5): one persistent Mcp-Session-Id negotiated with the target
// on its first response and reused for the lifetime of the owning
// Session, unlike the teacher's per-request Start/Close cycle.
type HTTPClient struct {
	endpoint   string
	authToken  string
	httpClient *http.Client

	mu        sync.Mutex
	sessionID string
}

// HTTPClientOption configures an HTTPClient.
type HTTPClientOption func(*HTTPClient)

// WithAuthToken sets the bearer token forwarded as Authorization on every
// outbound request to the target.
func WithAuthToken(token string) HTTPClientOption {
	return func(c *HTTPClient) { c.authToken = token }
}

// WithHTTPClient overrides the underlying *http.Client (for tests).
func WithHTTPClient(hc *http.Client) HTTPClientOption {
	return func(c *HTTPClient) { c.httpClient = hc }
}

// NewHTTPClient builds a client for the target's HTTP-stream endpoint.
func NewHTTPClient(endpoint string, opts ...HTTPClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// newTargetRequest builds the POST request shared by call and Notify:
// content negotiation, bearer auth, the negotiated session id, and the
// inbound request's own forwarded headers (§4.6).
func (c *HTTPClient) newTargetRequest(ctx context.Context, body []byte) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build target request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	c.mu.Lock()
	sessionID := c.sessionID
	c.mu.Unlock()
	if sessionID != "" {
		req.Header.Set("Mcp-Session-Id", sessionID)
	}

	if forwarded, ok := ctx.Value(ctxkey.ForwardedHeadersKey{}).(http.Header); ok {
		for _, name := range forwardedHeaderAllowList {
			if v := forwarded.Get(name); v != "" && req.Header.Get(name) == "" {
				req.Header.Set(name, v)
			}
		}
	}
	return req, nil
}

func (c *HTTPClient) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	id := nextRequestID()
	body, err := encodeRequest(id, method, params)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := c.newTargetRequest(ctx, body)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("target http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return nil, fmt.Errorf("read target response: %w", err)
	}

	if sid := resp.Header.Get("Mcp-Session-Id"); sid != "" {
		c.mu.Lock()
		c.sessionID = sid
		c.mu.Unlock()
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("target http status %d: %s", resp.StatusCode, string(respBody))
	}

	decoded, err := decodeSingleResponse(respBody)
	if err != nil {
		return nil, err
	}
	if decoded.Error != nil {
		return nil, decoded.Error.asError()
	}
	return decoded.Result, nil
}

// ListTools implements outbound.TargetClient.
func (c *HTTPClient) ListTools(ctx context.Context) (hook.ToolsListResult, error) {
	raw, err := c.call(ctx, "tools/list", nil)
	if err != nil {
		return hook.ToolsListResult{}, err
	}
	return decodeToolsListResult(raw)
}

// CallTool implements outbound.TargetClient.
func (c *HTTPClient) CallTool(ctx context.Context, tc hook.ToolCall) (any, error) {
	params := map[string]any{"name": tc.Name, "arguments": tc.Arguments}
	if tc.Metadata != nil {
		params["_meta"] = tc.Metadata
	}
	raw, err := c.call(ctx, "tools/call", params)
	if err != nil {
		return nil, err
	}
	return decodeToolCallResult(raw)
}

// Forward implements outbound.TargetClient for any method other than
// tools/list and tools/call — sent to the target verbatim, its raw result
// returned verbatim.
func (c *HTTPClient) Forward(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, error) {
	return c.call(ctx, method, params)
}

// Notify implements outbound.TargetClient: posts method as a true id-less
// JSON-RPC notification and discards whatever the target replies with
// (§6) — a failure to send the request or a non-2xx status is reported.
func (c *HTTPClient) Notify(ctx context.Context, method string, params json.RawMessage) error {
	body, err := encodeNotification(method, params)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	req, err := c.newTargetRequest(ctx, body)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("target http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBodySize))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("target http status %d", resp.StatusCode)
	}
	return nil
}

// Close releases the idle connection pool. The MCP HTTP-stream transport
// has no server-held session to tear down beyond that.
func (c *HTTPClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

var _ outbound.TargetClient = (*HTTPClient)(nil)
