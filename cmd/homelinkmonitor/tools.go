package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vpbank/homelink_monitor/models"
	"github.com/vpbank/homelink_monitor/pkg/homelinkmonitor/config"
	"github.com/vpbank/homelink_monitor/pkg/homelinkmonitor/export"
	"github.com/vpbank/homelink_monitor/pkg/homelinkmonitor/geo"
	"github.com/vpbank/homelink_monitor/pkg/homelinkmonitor/store"
	"github.com/vpbank/homelink_monitor/pkg/homelinkmonitor/traceroute"
)

// ─────────────────────────────────────────────────────────────────────────────
// geo
// ─────────────────────────────────────────────────────────────────────────────

func newGeoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "geo <hostname>...",
		Short: "Guess router locations from their hostnames",
		Long: `geo applies the same hostname heuristics the traceroute view uses
(CLLI codes, airport codes, city and state names) and prints what it finds.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, host := range args {
				loc, ok := geo.Parse(host)
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", host, formatLocation(loc, ok))
			}
			return nil
		},
	}
}

func formatLocation(loc models.ParsedLocation, ok bool) string {
	if !ok {
		return "-"
	}
	parts := []string{loc.City}
	if loc.Region != "" {
		parts = append(parts, loc.Region)
	}
	if loc.Country != "" {
		parts = append(parts, loc.Country)
	}
	return fmt.Sprintf("%s (%.4f, %.4f)", strings.Join(parts, ", "), loc.Latitude, loc.Longitude)
}

// ─────────────────────────────────────────────────────────────────────────────
// traceroute
// ─────────────────────────────────────────────────────────────────────────────

func newTracerouteCmd(g *globalFlags) *cobra.Command {
	var (
		maxHops int
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "traceroute <host>",
		Short: "Trace the route to a host (needs CAP_NET_RAW)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := g.logger()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			t := traceroute.New(traceroute.Config{MaxHops: maxHops, HopTimeout: timeout}, logger)
			_, err = t.Run(cmd.Context(), args[0], func(h models.TracerouteHop) {
				printHop(out, h)
			})
			return err
		},
	}
	cmd.Flags().IntVar(&maxHops, "max-hops", 30, "Maximum TTL to probe")
	cmd.Flags().DurationVar(&timeout, "timeout", 3*time.Second, "Wait per hop")
	return cmd
}

func printHop(w io.Writer, h models.TracerouteHop) {
	if h.IsTimeout {
		fmt.Fprintf(w, "%2d  *\n", h.HopNumber)
		return
	}
	latency := "-"
	if h.LatencyMs != nil {
		latency = fmt.Sprintf("%.1f ms", *h.LatencyMs)
	}
	name := h.Hostname
	if name == "" {
		name = h.Address
	}
	line := fmt.Sprintf("%2d  %s (%s)  %s", h.HopNumber, name, h.Address, latency)
	if h.IsPrivate {
		line += "  [private]"
	}
	if h.Location != nil {
		line += "  " + formatLocation(*h.Location, true)
	}
	fmt.Fprintln(w, line)
}

// ─────────────────────────────────────────────────────────────────────────────
// export
// ─────────────────────────────────────────────────────────────────────────────

func newExportCmd(g *globalFlags) *cobra.Command {
	var (
		kind    string
		fromArg string
		toArg   string
		dir     string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export stored measurements to CSV or JSON",
		Long: `export writes one kind of stored row to a timestamped file in --dir, or
to stdout when --dir is "-". Kind "all" produces a single JSON document.

The database is opened exclusively, so stop a running monitor first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			k, err := parseKind(kind)
			if err != nil {
				return err
			}
			to := time.Now().UTC()
			from := to.Add(-24 * time.Hour)
			if fromArg != "" {
				if from, err = time.Parse(time.RFC3339, fromArg); err != nil {
					return fmt.Errorf("--from: %w", err)
				}
			}
			if toArg != "" {
				if to, err = time.Parse(time.RFC3339, toArg); err != nil {
					return fmt.Errorf("--to: %w", err)
				}
			}
			if from.After(to) {
				return errors.New("--from is after --to")
			}

			logger, err := g.logger()
			if err != nil {
				return err
			}
			cfg, err := g.loadConfig(logger)
			if err != nil {
				return err
			}
			db, err := store.Open(store.Config{Path: cfg.Storage.Path}, logger)
			if err != nil {
				return err
			}
			defer db.Close()

			ex := export.New(db, logger)
			if dir == "-" {
				return ex.Write(cmd.Context(), cmd.OutOrStdout(), k, from, to)
			}
			path, err := ex.WriteFile(cmd.Context(), dir, k, from, to)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", string(export.KindAll), "What to export: "+kindList())
	cmd.Flags().StringVar(&fromArg, "from", "", "Start of range, RFC3339 (default 24h ago)")
	cmd.Flags().StringVar(&toArg, "to", "", "End of range, RFC3339 (default now)")
	cmd.Flags().StringVar(&dir, "dir", ".", `Output directory, or "-" for stdout`)
	return cmd
}

func parseKind(s string) (export.Kind, error) {
	for _, k := range export.Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown kind %q (expected %s)", s, kindList())
}

func kindList() string {
	names := make([]string, len(export.Kinds))
	for i, k := range export.Kinds {
		names[i] = string(k)
	}
	return strings.Join(names, "|")
}

// ─────────────────────────────────────────────────────────────────────────────
// config
// ─────────────────────────────────────────────────────────────────────────────

func newConfigCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the configuration file",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration to --config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !force {
				if _, err := os.Stat(g.configPath); err == nil {
					return fmt.Errorf("%s already exists (use --force to overwrite)", g.configPath)
				}
			}
			if err := config.Save(g.configPath, config.Default()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), g.configPath)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the resolved configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := g.logger()
			if err != nil {
				return err
			}
			cfg, err := g.loadConfig(logger)
			if err != nil {
				return err
			}
			return config.Encode(cmd.OutOrStdout(), cfg)
		},
	}

	cmd.AddCommand(initCmd, showCmd)
	return cmd
}
