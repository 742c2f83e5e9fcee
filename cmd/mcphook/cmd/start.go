package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	httptransport "github.com/mcphook/proxy/internal/adapter/inbound/http"
	"github.com/mcphook/proxy/internal/adapter/inbound/stdio"
	"github.com/mcphook/proxy/internal/adapter/outbound/target"
	"github.com/mcphook/proxy/internal/config"
	"github.com/mcphook/proxy/internal/domain/hook"
	"github.com/mcphook/proxy/internal/domain/session"
	"github.com/mcphook/proxy/internal/observability"
	"github.com/mcphook/proxy/internal/port/inbound"
	"github.com/mcphook/proxy/internal/service"
)

var startCmd = &cobra.Command{
	Use:   "start [-- command [args...]]",
	Short: "Start the proxy",
	Long: `Start the mcphook proxy.

The proxy forwards to a single upstream MCP target, configured one of two
ways:

1. HTTP-stream target: set target.url in your config file.
2. Subprocess target: set target.command in your config file, or pass a
   command after "--" on the CLI.

Examples:
  # Start with config file settings
  mcphook start

  # Spawn a specific MCP server as the target
  mcphook start -- npx @modelcontextprotocol/server-filesystem /tmp

  # Start with a specific config file
  mcphook --config /path/to/mcphook.yaml start`,
	RunE: runStart,
}

var devMode bool

func init() {
	startCmd.Flags().BoolVar(&devMode, "dev", false, "Enable development mode (verbose logging)")
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigRaw()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if devMode {
		cfg.DevMode = true
	}

	// Stdio transport is used ONLY when the user explicitly passes
	// "-- command [args]", decoupled from cfg.Target.Command to avoid
	// false positives from viper config contamination.
	stdioTransport := len(args) > 0
	if stdioTransport {
		cfg.Target.Command = strings.Join(args, " ")
		cfg.Target.URL = ""
		cfg.TransportType = config.TransportStdio
	}

	cfg.SetDevDefaults()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), gracefulSignals()...)
	go func() {
		<-ctx.Done()
		stop() // restore default signal handling: next Ctrl+C is a hard kill.
	}()

	logLevel := slog.LevelInfo
	if cfg.DevMode {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	if configFile := config.ConfigFileUsed(); configFile != "" {
		logger.Info("loaded config", "file", configFile)
	}

	pidPath := pidFilePath()
	if err := writePIDFile(pidPath); err != nil {
		logger.Warn("failed to write PID file", "path", pidPath, "error", err)
	} else {
		defer os.Remove(pidPath)
	}

	if err := run(ctx, cfg, stdioTransport, logger); err != nil {
		return err
	}

	logger.Info("mcphook stopped")
	return nil
}

// run wires every component together and blocks until ctx is cancelled:
// observability, the target client factory, the session store, the hook
// chain, the dispatcher, tool discovery, and finally the selected
// transport (stdio or HTTP).
func run(ctx context.Context, cfg *config.Config, stdioTransport bool, logger *slog.Logger) error {
	obsCfg := observability.Config{Enabled: os.Getenv("MCPHOOK_OTEL_DISABLED") != "true"}
	provider, err := observability.NewProvider(ctx, obsCfg, os.Stdout)
	if err != nil {
		return fmt.Errorf("failed to start observability provider: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Warn("observability shutdown error", "error", err)
		}
	}()

	inst, err := observability.NewInstrumentation("mcphook-proxy")
	if err != nil {
		return fmt.Errorf("failed to build instrumentation: %w", err)
	}

	clientFactory := target.NewFactory(&cfg.Target, cfg.AuthToken, logger)
	store := session.NewStore(clientFactory, logger)
	defer store.ClearAll()

	defs := make([]hook.Definition, 0, len(cfg.Hooks))
	for _, h := range cfg.Hooks {
		defs = append(defs, hook.RemoteDefinition(h.URL, h.Name))
	}
	hooks := hook.BuildChain(defs, cfg.HookTimeout(), cfg.CacheHookNotImplemented, logger, inst)

	dispatcher := service.NewDispatcher(hooks, store, logger).WithInstrumentation(inst)

	discovery := service.NewDiscoveryService(dispatcher, store, logger)
	discoverCtx, cancel := context.WithTimeout(ctx, cfg.HookTimeout()+5*time.Second)
	if err := discovery.Discover(discoverCtx); err != nil {
		logger.Warn("tool discovery failed at startup, continuing anyway", "error", err)
	}
	cancel()

	logger.Info("mcphook starting",
		"version", Version,
		"dev_mode", cfg.DevMode,
		"transport", cfg.TransportType,
		"hooks", len(hooks),
		"tools", len(discovery.AdvertisedTools()),
	)

	var transport inbound.ProxyService
	if stdioTransport {
		transport = stdio.NewTransport(dispatcher, os.Stdin, os.Stdout, logger)
		logger.Info("transport mode: stdio", "command", cfg.Target.Command)
	} else {
		addr := ":" + strconv.Itoa(cfg.Port)
		healthChecker := httptransport.NewHealthChecker(store, Version)
		transport = httptransport.NewTransport(dispatcher, store,
			httptransport.WithAddr(addr),
			httptransport.WithLogger(logger),
			httptransport.WithHealthChecker(healthChecker),
		)
		logger.Info("transport mode: HTTP", "addr", addr)
	}

	return transport.Start(ctx)
}
