// Package stdio provides the stdio transport adapter for the proxy: the
// single-client mode where the proxy speaks newline-delimited JSON-RPC over
// its own stdin/stdout, exactly as the target subprocess does on the other
// side of a StdioClient.
package stdio

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/mcphook/proxy/internal/domain/session"
	"github.com/mcphook/proxy/internal/port/inbound"
	"github.com/mcphook/proxy/internal/service"
)

const (
	scannerInitialBufSize = 256 * 1024
	scannerMaxBufSize     = 1024 * 1024
)

// Transport is the inbound adapter that connects the proxy dispatcher to
// stdin/stdout. There is exactly one client on this transport, so every
// message is routed to session.DefaultSessionID.
type Transport struct {
	dispatcher *service.Dispatcher
	logger     *slog.Logger

	in  io.Reader
	out io.Writer

	writeMu sync.Mutex
}

// NewTransport builds a stdio transport reading from in and writing to out.
func NewTransport(dispatcher *service.Dispatcher, in io.Reader, out io.Writer, logger *slog.Logger) *Transport {
	return &Transport{dispatcher: dispatcher, logger: logger, in: in, out: out}
}

// Start reads newline-delimited JSON-RPC messages from stdin until EOF or
// ctx is cancelled, dispatching each and writing any response to stdout.
// Blocks until the stream ends.
func (t *Transport) Start(ctx context.Context) error {
	scanner := bufio.NewScanner(t.in)
	scanner.Buffer(make([]byte, 0, scannerInitialBufSize), scannerMaxBufSize)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		raw := make([]byte, len(line))
		copy(raw, line)

		resp, isNotification := t.dispatcher.HandleMessage(ctx, session.DefaultSessionID, raw)
		if isNotification {
			continue
		}

		if err := t.write(resp); err != nil {
			return fmt.Errorf("write response: %w", err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("stdin scanner: %w", err)
	}
	return nil
}

func (t *Transport) write(resp []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if _, err := t.out.Write(resp); err != nil {
		return err
	}
	_, err := t.out.Write([]byte("\n"))
	return err
}

// Close is a no-op: stdio has no resources of its own to release, the
// owning process closes stdin/stdout on exit.
func (t *Transport) Close() error { return nil }

var _ inbound.ProxyService = (*Transport)(nil)
