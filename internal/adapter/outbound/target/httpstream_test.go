package target

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcphook/proxy/internal/ctxkey"
)

func TestHTTPClient_Notify_SendsIDLessEnvelopeAndDiscardsReply(t *testing.T) {
	var received map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &received)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":999,"result":{"ignored":true}}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL)
	err := c.Notify(context.Background(), "notifications/initialized", json.RawMessage(`{"n":1}`))
	require.NoError(t, err)

	_, hasID := received["id"]
	assert.False(t, hasID, "a notification must not carry an id field")
	assert.Equal(t, "notifications/initialized", received["method"])
}

func TestHTTPClient_Notify_ReportsNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL)
	err := c.Notify(context.Background(), "notifications/initialized", nil)
	assert.Error(t, err)
}

func TestHTTPClient_Call_ForwardsAuthorizationFromContext(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"ok":true}}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL)

	forwarded := make(http.Header)
	forwarded.Set("Authorization", "Bearer inbound-token")
	ctx := context.WithValue(context.Background(), ctxkey.ForwardedHeadersKey{}, forwarded)

	raw, err := c.Forward(ctx, "ping", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(raw))
	assert.Equal(t, "Bearer inbound-token", gotAuth)
}

func TestHTTPClient_Call_OwnAuthTokenTakesPrecedenceOverForwarded(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{}}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, WithAuthToken("configured-token"))

	forwarded := make(http.Header)
	forwarded.Set("Authorization", "Bearer inbound-token")
	ctx := context.WithValue(context.Background(), ctxkey.ForwardedHeadersKey{}, forwarded)

	_, err := c.Forward(ctx, "ping", nil)
	require.NoError(t, err)
	assert.Equal(t, "Bearer configured-token", gotAuth)
}

func TestHTTPClient_Call_EmptyBodySynthesizesNullResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL)
	raw, err := c.Forward(context.Background(), "notifications/initialized", nil)
	require.NoError(t, err)
	assert.Equal(t, json.RawMessage("null"), raw)
}

func TestHTTPClient_Call_PersistsNegotiatedSessionID(t *testing.T) {
	var gotSessionID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSessionID = r.Header.Get("Mcp-Session-Id")
		w.Header().Set("Mcp-Session-Id", "negotiated-session")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{}}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL)
	_, err := c.Forward(context.Background(), "initialize", nil)
	require.NoError(t, err)
	assert.Empty(t, gotSessionID, "first call has no session id yet")

	_, err = c.Forward(context.Background(), "tools/list", nil)
	require.NoError(t, err)
	assert.Equal(t, "negotiated-session", gotSessionID)
}

func TestHTTPClient_Close_IsIdempotent(t *testing.T) {
	c := NewHTTPClient("http://unused.invalid")
	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())
}
