package target

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"

	"github.com/mcphook/proxy/internal/domain/hook"
	"github.com/mcphook/proxy/internal/port/outbound"
)

// StdioClient is a target client backed by a spawned subprocess speaking
// newline-delimited JSON-RPC over stdin/stdout (§4.5). One StdioClient
// backs exactly one Session's worth of calls for the connection's
// lifetime; callTool/listTools may be invoked concurrently, each
// correlated to its response by request id.
type StdioClient struct {
	command string
	args    []string
	logger  *slog.Logger

	cmd   *exec.Cmd
	stdin io.WriteCloser

	writeMu sync.Mutex

	pendingMu sync.Mutex
	pending   map[int64]chan *rpcResponse

	closeOnce sync.Once
	closed    chan struct{}
}

// NewStdioClient builds (but does not start) a client that will spawn
// command with args.
func NewStdioClient(command string, args []string, logger *slog.Logger) *StdioClient {
	return &StdioClient{
		command: command,
		args:    args,
		logger:  logger,
		pending: make(map[int64]chan *rpcResponse),
		closed:  make(chan struct{}),
	}
}

// Start spawns the subprocess and begins the background reader. It must be
// called once before any ListTools/CallTool call. The subprocess is not
// bound to ctx; it runs until Close.
func (c *StdioClient) Start(ctx context.Context) error {
	cmd := exec.Command(c.command, c.args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("target stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		_ = stdin.Close()
		return fmt.Errorf("target stdout pipe: %w", err)
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		_ = stdout.Close()
		return fmt.Errorf("start target process: %w", err)
	}

	c.cmd = cmd
	c.stdin = stdin

	go c.readLoop(stdout)
	return nil
}

// readLoop continuously scans newline-delimited JSON-RPC messages from the
// target's stdout and dispatches each to its correlated caller. Buffered
// per-request channels (capacity 1) mean a slow or absent caller never
// blocks this loop — there is no back-pressure deadlock between reading
// the next message and delivering the previous one.
func (c *StdioClient) readLoop(stdout io.ReadCloser) {
	defer close(c.closed)
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, scannerInitialBufSize), scannerMaxBufSize)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		raw := make([]byte, len(line))
		copy(raw, line)

		resp, err := decodeSingleResponse(raw)
		if err != nil {
			if c.logger != nil {
				c.logger.Error("undecodable message from target, dropping", "error", err)
			}
			continue
		}
		c.deliver(resp)
	}
	if err := scanner.Err(); err != nil && c.logger != nil {
		c.logger.Error("target stdout scanner stopped", "error", err)
	}
}

func (c *StdioClient) deliver(resp *rpcResponse) {
	for id, ch := range c.snapshotPending() {
		if matchesID(resp.ID, id) {
			ch <- resp
			c.removePending(id)
			return
		}
	}
}

func (c *StdioClient) snapshotPending() map[int64]chan *rpcResponse {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	out := make(map[int64]chan *rpcResponse, len(c.pending))
	for k, v := range c.pending {
		out[k] = v
	}
	return out
}

func (c *StdioClient) register(id int64) chan *rpcResponse {
	ch := make(chan *rpcResponse, 1)
	c.pendingMu.Lock()
	c.pending[id] = ch
	c.pendingMu.Unlock()
	return ch
}

func (c *StdioClient) removePending(id int64) {
	c.pendingMu.Lock()
	delete(c.pending, id)
	c.pendingMu.Unlock()
}

// call writes a JSON-RPC request and waits for its correlated reply or for
// ctx to be done.
func (c *StdioClient) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	if c.stdin == nil {
		return nil, fmt.Errorf("target client not started")
	}

	id := nextRequestID()
	ch := c.register(id)
	defer c.removePending(id)

	body, err := encodeRequest(id, method, params)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	c.writeMu.Lock()
	_, writeErr := c.stdin.Write(append(body, '\n'))
	c.writeMu.Unlock()
	if writeErr != nil {
		return nil, fmt.Errorf("write request to target: %w", writeErr)
	}

	select {
	case resp := <-ch:
		if resp.Error != nil {
			return nil, resp.Error.asError()
		}
		return resp.Result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.closed:
		return nil, fmt.Errorf("target connection closed")
	}
}

// ListTools implements outbound.TargetClient.
func (c *StdioClient) ListTools(ctx context.Context) (hook.ToolsListResult, error) {
	raw, err := c.call(ctx, "tools/list", nil)
	if err != nil {
		return hook.ToolsListResult{}, err
	}
	return decodeToolsListResult(raw)
}

// CallTool implements outbound.TargetClient.
func (c *StdioClient) CallTool(ctx context.Context, tc hook.ToolCall) (any, error) {
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
func (c *StdioClient) Forward(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, error) {
	return c.call(ctx, method, params)
}

// Notify implements outbound.TargetClient: writes method as a true
// id-less JSON-RPC notification and returns as soon as the write
// completes, without registering a pending-reply channel — a
// notification-only method never replies, so waiting on one would block
// the caller (and, for the single-threaded readLoop, the whole
// connection) forever.
func (c *StdioClient) Notify(ctx context.Context, method string, params json.RawMessage) error {
	if c.stdin == nil {
		return fmt.Errorf("target client not started")
	}

	body, err := encodeNotification(method, params)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	c.writeMu.Lock()
	_, err = c.stdin.Write(append(body, '\n'))
	c.writeMu.Unlock()
	if err != nil {
		return fmt.Errorf("write notification to target: %w", err)
	}
	return nil
}

// Close terminates the subprocess and its pipes. Idempotent.
func (c *StdioClient) Close() error {
	var err error
	c.closeOnce.Do(func() {
		if c.stdin != nil {
			_ = c.stdin.Close()
		}
		if c.cmd != nil && c.cmd.Process != nil {
			err = c.cmd.Process.Kill()
		}
	})
	return err
}

var _ outbound.TargetClient = (*StdioClient)(nil)
