// Command homelinkmonitor watches the health of a home network link.
//
// It polls the Wi-Fi adapter, pings the gateway and public resolvers, times
// DNS and HTTP probes, classifies each cycle, raises alerts and records
// everything in a local database. A small HTTP API and websocket feed expose
// the live state. It runs until interrupted (SIGINT / SIGTERM).
//
// Usage:
//
//	homelinkmonitor [run] [flags]
//	homelinkmonitor geo <hostname>...
//	homelinkmonitor traceroute <host>
//	homelinkmonitor export --kind ping --from 2026-01-01T00:00:00Z
//	homelinkmonitor config init
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vpbank/homelink_monitor/pkg/homelinkmonitor/app"
	"github.com/vpbank/homelink_monitor/pkg/homelinkmonitor/config"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "homelinkmonitor: %v\n", err)
		os.Exit(1)
	}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	logLevel   string
	logFmt     string
	configPath string
}

func (g *globalFlags) logger() (*slog.Logger, error) {
	return buildLogger(g.logLevel, g.logFmt)
}

func (g *globalFlags) loadConfig(logger *slog.Logger) (*config.Config, error) {
	cfg, err := config.Load(g.configPath, logger)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:   "homelinkmonitor",
		Short: "Home network link-health monitor",
		Long: `homelinkmonitor samples Wi-Fi signal, latency, DNS and HTTP reachability
on a fixed interval, classifies link health, raises alerts and keeps a local
history that can be queried over HTTP or exported to CSV/JSON.

Without a subcommand it runs the monitor.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMonitor(cmd.Context(), g)
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true

	pf := root.PersistentFlags()
	pf.StringVar(&g.logLevel, "log.level", "info", "Log level: debug, info, warn, error")
	pf.StringVar(&g.logFmt, "log.fmt", "json", "Log format: json, text")
	pf.StringVar(&g.configPath, "config", config.PathFromEnv(), "Configuration file (env HOMELINK_CONFIG_PATH)")

	root.AddCommand(
		newRunCmd(g),
		newGeoCmd(),
		newTracerouteCmd(g),
		newExportCmd(g),
		newConfigCmd(g),
	)
	return root
}

// ─────────────────────────────────────────────────────────────────────────────
// run
// ─────────────────────────────────────────────────────────────────────────────

func newRunCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the monitor until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMonitor(cmd.Context(), g)
		},
	}
}

func runMonitor(parent context.Context, g *globalFlags) error {
	logger, err := g.logger()
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	cfg, err := g.loadConfig(logger)
	if err != nil {
		return err
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := app.New(cfg, logger)
	if err := a.Start(ctx); err != nil {
		return fmt.Errorf("start: %w", err)
	}

	logger.Info("homelinkmonitor started",
		"version", version,
		"config", g.configPath,
		"polling_interval", cfg.PollingInterval.String(),
		"database", cfg.Storage.Path,
	)

	<-ctx.Done()
	logger.Info("received shutdown signal")
	a.Stop()
	return nil
}

// buildLogger creates a *slog.Logger writing to stderr.
func buildLogger(level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		return nil, fmt.Errorf("unknown log level %q (expected debug|info|warn|error)", level)
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler

	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	case "text":
		handler = slog.NewTextHandler(os.Stderr, opts)
	default:
		return nil, fmt.Errorf("unknown log format %q (expected json|text)", format)
	}

	return slog.New(handler), nil
}
