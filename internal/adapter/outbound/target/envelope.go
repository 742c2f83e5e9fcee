// Package target implements the two outbound.TargetClient adapters: a
// subprocess speaking newline-delimited JSON-RPC over stdio, and an
// HTTP-stream client speaking a long-lived MCP HTTP session. Both are
// adapted from the teacher's stdio_client.go/http_client.go, but expose
// listTools/callTool/close as named, awaited operations on one shared
// connection per session rather than a raw bidirectional pipe reused
// per request.
package target

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/mcphook/proxy/internal/domain/hook"
)

const (
	// scannerInitialBufSize/scannerMaxBufSize mirror the teacher's
	// stdio/http client scanner bounds.
	scannerInitialBufSize = 256 * 1024
	scannerMaxBufSize     = 1024 * 1024

	// maxResponseBodySize bounds a single HTTP reply from the target.
	maxResponseBodySize = 10 * 1024 * 1024
)

var idCounter atomic.Int64

func nextRequestID() int64 {
	return idCounter.Add(1)
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// rpcNotification is the wire shape for a fire-and-forget JSON-RPC call:
// no id field at all, distinguishing it from a request expecting a reply.
type rpcNotification struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (e *rpcError) asError() error {
	if e == nil {
		return nil
	}
	return fmt.Errorf("target error %d: %s", e.Code, e.Message)
}

func encodeRequest(id int64, method string, params any) ([]byte, error) {
	return json.Marshal(rpcRequest{JSONRPC: "2.0", ID: id, Method: method, Params: params})
}

func encodeNotification(method string, params any) ([]byte, error) {
	return json.Marshal(rpcNotification{JSONRPC: "2.0", Method: method, Params: params})
}

// matchesID reports whether a decoded response's id equals want, comparing
// through a JSON round trip since the wire id may be a number or a string.
func matchesID(raw json.RawMessage, want int64) bool {
	var asInt int64
	if err := json.Unmarshal(raw, &asInt); err == nil {
		return asInt == want
	}
	var asStr string
	if err := json.Unmarshal(raw, &asStr); err == nil {
		n, err := strconv.ParseInt(asStr, 10, 64)
		return err == nil && n == want
	}
	return false
}

// decodeSingleResponse parses one target reply, which may be framed as
// plain JSON or as a Server-Sent Events stream ("event: message\ndata:
// {...}\n\n") — the dispatcher's target connection must accept both.
func decodeSingleResponse(body []byte) (*rpcResponse, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		// A target may legitimately reply with an empty body (e.g. a bare
		// 202 Accepted to a notification). Synthesize a null result rather
		// than erroring (§6).
		return &rpcResponse{JSONRPC: "2.0", Result: json.RawMessage("null")}, nil
	}

	if body[0] == '{' || body[0] == '[' {
		var resp rpcResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("decode target response: %w", err)
		}
		return &resp, nil
	}

	// SSE framing: take the last non-empty "data:" line as the payload.
	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 0, scannerInitialBufSize), scannerMaxBufSize)
	var lastData string
	for scanner.Scan() {
		line := scanner.Text()
		if after, ok := strings.CutPrefix(line, "data:"); ok {
			if d := strings.TrimSpace(after); d != "" {
				lastData = d
			}
		}
	}
	if lastData == "" {
		return nil, fmt.Errorf("no data frame in SSE response from target")
	}
	var resp rpcResponse
	if err := json.Unmarshal([]byte(lastData), &resp); err != nil {
		return nil, fmt.Errorf("decode SSE target response: %w", err)
	}
	return &resp, nil
}

func decodeToolsListResult(raw json.RawMessage) (hook.ToolsListResult, error) {
	var result hook.ToolsListResult
	if len(raw) == 0 {
		return result, nil
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return result, fmt.Errorf("decode tools/list result: %w", err)
	}
	return result, nil
}

func decodeToolCallResult(raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var result any
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode tools/call result: %w", err)
	}
	return result, nil
}
