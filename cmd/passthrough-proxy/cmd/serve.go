package cmd

import (
	"context"
	"fmt"
	"log/slog"
	stdhttp "net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/passline/mcp-gate/internal/adapter/inbound/httpmetrics"
	"github.com/passline/mcp-gate/internal/adapter/inbound/mcpsource"
	"github.com/passline/mcp-gate/internal/adapter/outbound/mcptarget"
	"github.com/passline/mcp-gate/internal/config"
	"github.com/passline/mcp-gate/internal/hookchain"
	"github.com/passline/mcp-gate/internal/port/inbound"
	"github.com/passline/mcp-gate/internal/port/outbound"
	"github.com/passline/mcp-gate/internal/service/passthrough"
	"github.com/passline/mcp-gate/internal/telemetry"

	examplehooks "github.com/passline/mcp-gate/examples/hooks"
)

var serveCmd = &cobra.Command{
	Use:   "serve [-- command [args...]]",
	Short: "Start the proxy",
	Long: `Start the passthrough-proxy.

The target can be reached two ways:

1. HTTP mode: connect to a remote MCP server over HTTP.
   Configure target.http in the config file.

2. Stdio mode: spawn an MCP server as a subprocess.
   Configure target.command in the config file, or pass the command after --.

Examples:
  passthrough-proxy serve
  passthrough-proxy serve -- npx @modelcontextprotocol/server-filesystem /tmp
  passthrough-proxy --config /path/to/mcp-gate.yaml serve`,
	RunE: runServe,
}

var devMode bool

func init() {
	serveCmd.Flags().BoolVar(&devMode, "dev", false, "Enable development mode (verbose logging, relaxed validation)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	// LoadConfig validates, so the --dev flag and a command after -- must
	// be visible to it rather than applied only afterwards.
	if devMode {
		viper.Set("dev_mode", true)
	}
	if len(args) > 0 {
		viper.Set("target.command", args[0])
		viper.Set("target.args", args[1:])
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if devMode {
		cfg.DevMode = true
		cfg.SetDevDefaults()
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("config validation failed: %w", err)
		}
	}

	if len(args) > 0 {
		cfg.Target.Command = args[0]
		if len(args) > 1 {
			cfg.Target.Args = args[1:]
		} else {
			cfg.Target.Args = nil
		}
	}

	logLevel := parseLogLevel(cfg.Server.LogLevel)
	if cfg.DevMode {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	logger.Debug("log level configured", "level", cfg.Server.LogLevel, "effective", logLevel.String())

	if configFile := config.ConfigFileUsed(); configFile != "" {
		logger.Info("loaded config", "file", configFile)
	}

	ctx, stop := signal.NotifyContext(context.Background(), gracefulSignals()...)
	defer stop()

	return run(ctx, cfg, logger)
}

// run wires the hook chain, source/target transports, and metrics/health
// listener together and drives the proxy until ctx is cancelled.
func run(ctx context.Context, cfg *config.ProxyConfig, logger *slog.Logger) error {
	tracer, shutdownTracer, err := telemetry.Setup(ctx, cfg.Tracing.ServiceName, Version, cfg.Tracing.Enabled)
	if err != nil {
		return fmt.Errorf("failed to set up telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	chain := buildChain(cfg, logger)
	logger.Info("hook chain built", "hooks", chain.Len())

	reg := prometheus.NewRegistry()
	metrics := httpmetrics.NewMetrics(reg)

	proxyCtx := passthrough.New(chain, logger, tracer, passthrough.Options{
		AppendMetadataToRequest:      cfg.Metadata.Request,
		AppendMetadataToResponse:     cfg.Metadata.Response,
		AppendMetadataToNotification: cfg.Metadata.Notification,
		OnAsyncError: func(err error) {
			logger.Error("async continuation failed", "error", err)
		},
		Metrics: metrics,
	})

	healthChecker := httpmetrics.NewHealthChecker(chain, proxyCtx.Connected, Version)

	var metricsServer *stdhttp.Server
	if cfg.Server.MetricsAddr != "" {
		mux := stdhttp.NewServeMux()
		mux.Handle("/metrics", metrics.Middleware(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
		mux.Handle("/health", metrics.Middleware(healthChecker.Handler()))

		metricsServer = &stdhttp.Server{
			Addr:    cfg.Server.MetricsAddr,
			Handler: mux,
		}
		go func() {
			logger.Info("metrics listener starting", "addr", cfg.Server.MetricsAddr)
			if err := metricsServer.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
				logger.Error("metrics listener failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsServer.Shutdown(shutdownCtx)
		}()
	}

	source, target, err := buildTransports(cfg)
	if err != nil {
		return fmt.Errorf("failed to build transports: %w", err)
	}
	defer func() { _ = target.Close() }()
	defer func() { _ = source.Close() }()

	sourcePeer, err := source.Connect(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect source: %w", err)
	}
	targetPeer, err := target.Connect(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect target: %w", err)
	}

	proxyCtx.Connect(sourcePeer, targetPeer)
	defer proxyCtx.Close()

	logger.Info("passthrough-proxy starting",
		"version", Version,
		"dev_mode", cfg.DevMode,
		"metrics_addr", cfg.Server.MetricsAddr,
		"source_transport", cfg.Source.Transport,
	)

	if err := proxyCtx.Run(ctx); err != nil {
		return fmt.Errorf("proxy run failed: %w", err)
	}

	logger.Info("passthrough-proxy stopped")
	return nil
}

// buildChain assembles the hook chain. Production deployments register their
// own hooks; in dev mode, the demo logging hook is registered so the boot
// path has something visible to exercise end to end.
func buildChain(cfg *config.ProxyConfig, logger *slog.Logger) *hookchain.Chain {
	var hooks []hookchain.Hook
	if cfg.DevMode {
		hooks = append(hooks, examplehooks.NewLoggingHook(logger))
	}
	return hookchain.Build(hooks)
}

// buildTransports selects the source and target adapters from cfg. Today the
// only source transport is stdio; the target is either an HTTP endpoint or a
// spawned subprocess, never both (enforced by config.Validate).
func buildTransports(cfg *config.ProxyConfig) (inbound.Source, outbound.Target, error) {
	var source inbound.Source
	switch cfg.Source.Transport {
	case "", "stdio":
		source = mcpsource.NewStdioSource()
	default:
		return nil, nil, fmt.Errorf("unsupported source transport: %s", cfg.Source.Transport)
	}

	var target outbound.Target
	switch {
	case cfg.Target.HTTP != "":
		httpTimeout, err := time.ParseDuration(cfg.Target.HTTPTimeout)
		if err != nil {
			httpTimeout = 30 * time.Second
		}
		target = mcptarget.NewHTTPTarget(cfg.Target.HTTP, mcptarget.WithHTTPClient(&stdhttp.Client{Timeout: httpTimeout}))
	case cfg.Target.Command != "":
		target = mcptarget.NewStdioTarget(cfg.Target.Command, cfg.Target.Args...)
	default:
		return nil, nil, fmt.Errorf("no target configured: set target.http or target.command")
	}

	return source, target, nil
}

// parseLogLevel converts a string log level to slog.Level. Returns
// slog.LevelInfo for unrecognized values.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
