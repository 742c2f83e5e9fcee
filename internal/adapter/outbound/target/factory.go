package target

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mcphook/proxy/internal/config"
	"github.com/mcphook/proxy/internal/port/outbound"
)

// NewFactory returns a session.ClientFactory (structurally: a
// func(context.Context) (outbound.TargetClient, error)) selecting between
// the stdio and HTTP-stream adapters purely from cfg.Target, the way
// spec.md §4.5 requires ("Factory selection purely config-driven").
func NewFactory(cfg *config.Target, authToken string, logger *slog.Logger) func(ctx context.Context) (outbound.TargetClient, error) {
	return func(ctx context.Context) (outbound.TargetClient, error) {
		switch {
		case cfg.URL != "":
			return NewHTTPClient(cfg.URL, WithAuthToken(authToken)), nil
		case cfg.Command != "":
			parts := strings.Fields(cfg.Command)
			if len(parts) == 0 {
				return nil, fmt.Errorf("target.command is empty")
			}
			client := NewStdioClient(parts[0], parts[1:], logger)
			if err := client.Start(ctx); err != nil {
				return nil, err
			}
			return client, nil
		default:
			return nil, fmt.Errorf("target has neither command nor url configured")
		}
	}
}
