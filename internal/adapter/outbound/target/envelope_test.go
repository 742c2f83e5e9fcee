package target

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSingleResponse_EmptyBodySynthesizesNullResult(t *testing.T) {
	resp, err := decodeSingleResponse([]byte("  \n  "))
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, "2.0", resp.JSONRPC)
	assert.Nil(t, resp.Error)
	assert.Equal(t, json.RawMessage("null"), resp.Result)
}

func TestDecodeSingleResponse_PlainJSON(t *testing.T) {
	resp, err := decodeSingleResponse([]byte(`{"jsonrpc":"2.0","id":1,"result":{"ok":true}}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(resp.Result))
}

func TestDecodeSingleResponse_SSEFraming(t *testing.T) {
	body := "event: message\ndata: {\"jsonrpc\":\"2.0\",\"id\":1,\"result\":{\"ok\":true}}\n\n"
	resp, err := decodeSingleResponse([]byte(body))
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(resp.Result))
}

func TestDecodeSingleResponse_SSENoDataFrame(t *testing.T) {
	_, err := decodeSingleResponse([]byte("event: ping\n\n"))
	assert.Error(t, err)
}

func TestEncodeNotification_OmitsID(t *testing.T) {
	body, err := encodeNotification("notifications/initialized", nil)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	_, hasID := decoded["id"]
	assert.False(t, hasID)
	assert.Equal(t, "notifications/initialized", decoded["method"])
}

func TestMatchesID(t *testing.T) {
	assert.True(t, matchesID(json.RawMessage("5"), 5))
	assert.True(t, matchesID(json.RawMessage(`"5"`), 5))
	assert.False(t, matchesID(json.RawMessage("6"), 5))
	assert.False(t, matchesID(json.RawMessage("null"), 5))
}
