// Package config loads and saves the monitor's YAML configuration file.
//
// The file location comes from HOMELINK_CONFIG_PATH (or the --config flag)
// and falls back to /etc/homelink_monitor/config.yml. A missing file is not
// an error: the documented defaults apply. Keys left out of the file keep
// their defaults as well.
//
//	polling_interval_seconds: 5
//	show_notifications: true
//	probes:
//	  primary_dns: 8.8.8.8
//	  custom_ping_targets: [192.168.1.10]
//	alerts:
//	  cooldown_seconds: 60
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/netip"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is used when HOMELINK_CONFIG_PATH is unset.
const DefaultPath = "/etc/homelink_monitor/config.yml"

const day = 24 * time.Hour

// PathFromEnv returns HOMELINK_CONFIG_PATH or DefaultPath.
func PathFromEnv() string {
	return envOr("HOMELINK_CONFIG_PATH", DefaultPath)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// ─────────────────────────────────────────────────────────────────────────────
// Raw YAML shape
// ─────────────────────────────────────────────────────────────────────────────

// Pointer fields distinguish "absent" from an explicit zero.
type rawConfig struct {
	PollingIntervalSeconds *int          `yaml:"polling_interval_seconds,omitempty"`
	ShowNotifications      *bool         `yaml:"show_notifications,omitempty"`
	Interfaces             rawInterfaces `yaml:"interfaces,omitempty"`
	Probes                 rawProbes     `yaml:"probes,omitempty"`
	Alerts                 rawAlerts     `yaml:"alerts,omitempty"`
	Retention              rawRetention  `yaml:"retention,omitempty"`
	Storage                rawStorage    `yaml:"storage,omitempty"`
	Server                 rawServer     `yaml:"server,omitempty"`
	Journal                rawJournal    `yaml:"journal,omitempty"`
}

type rawInterfaces struct {
	Wifi    string `yaml:"wifi,omitempty"`
	Network string `yaml:"network,omitempty"`
}

type rawProbes struct {
	PrimaryDNS          *string  `yaml:"primary_dns,omitempty"`
	SecondaryDNS        *string  `yaml:"secondary_dns,omitempty"`
	CustomPingTargets   []string `yaml:"custom_ping_targets,omitempty"`
	PingTimeoutMs       *int     `yaml:"ping_timeout_ms,omitempty"`
	DNSQueryName        *string  `yaml:"dns_query_name,omitempty"`
	HTTPProbeURL        *string  `yaml:"http_probe_url,omitempty"`
	HTTPExpectedContent *string  `yaml:"http_expected_content,omitempty"`
	HTTPTimeoutMs       *int     `yaml:"http_timeout_ms,omitempty"`
}

type rawAlerts struct {
	SignalLowThreshold *int     `yaml:"signal_low_threshold,omitempty"`
	LatencyHighMs      *float64 `yaml:"latency_high_ms,omitempty"`
	CooldownSeconds    *int     `yaml:"cooldown_seconds,omitempty"`
}

type rawRetention struct {
	RawDataDays *int `yaml:"raw_data_days,omitempty"`
	AlertDays   *int `yaml:"alert_days,omitempty"`
}

type rawStorage struct {
	Path string `yaml:"path,omitempty"`
}

type rawServer struct {
	Enabled *bool  `yaml:"enabled,omitempty"`
	Listen  string `yaml:"listen,omitempty"`
}

type rawJournal struct {
	Enabled      bool   `yaml:"enabled,omitempty"`
	SnapshotFile string `yaml:"snapshot_file,omitempty"`
	EventFile    string `yaml:"event_file,omitempty"`
	MaxBytes     int64  `yaml:"max_bytes,omitempty"`
	MaxBackups   *int   `yaml:"max_backups,omitempty"`
	Pretty       bool   `yaml:"pretty,omitempty"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Load
// ─────────────────────────────────────────────────────────────────────────────

// Load reads the YAML file at path and resolves it against Default. A file
// that does not exist yields the defaults. Validation problems are collected
// and returned together so operators see all of them at once.
func Load(path string, logger *slog.Logger) (*Config, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}

	var raw rawConfig
	if err := decodeFile(path, &raw); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("config: file not found, using defaults", "file", path)
			return Default(), nil
		}
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}

	cfg := resolve(raw)
	if errs := validate(cfg); len(errs) > 0 {
		return nil, fmt.Errorf("config: %d error(s):\n  %s", len(errs), strings.Join(errs, "\n  "))
	}
	logger.Debug("config: loaded", "file", path)
	return cfg, nil
}

func resolve(raw rawConfig) *Config {
	cfg := Default()

	setInt := func(dst *time.Duration, v *int, unit time.Duration) {
		if v != nil {
			*dst = time.Duration(*v) * unit
		}
	}
	setString := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}

	setInt(&cfg.PollingInterval, raw.PollingIntervalSeconds, time.Second)
	if raw.ShowNotifications != nil {
		cfg.ShowNotifications = *raw.ShowNotifications
	}

	cfg.Interfaces = Interfaces{Wifi: raw.Interfaces.Wifi, Network: raw.Interfaces.Network}

	p := &cfg.Probes
	setString(&p.PrimaryDNS, raw.Probes.PrimaryDNS)
	setString(&p.SecondaryDNS, raw.Probes.SecondaryDNS)
	if raw.Probes.CustomPingTargets != nil {
		p.CustomTargets = raw.Probes.CustomPingTargets
	}
	setInt(&p.PingTimeout, raw.Probes.PingTimeoutMs, time.Millisecond)
	setString(&p.DNSQueryName, raw.Probes.DNSQueryName)
	setString(&p.HTTPProbeURL, raw.Probes.HTTPProbeURL)
	setString(&p.HTTPExpectedContent, raw.Probes.HTTPExpectedContent)
	setInt(&p.HTTPTimeout, raw.Probes.HTTPTimeoutMs, time.Millisecond)

	if raw.Alerts.SignalLowThreshold != nil {
		cfg.Alerts.SignalLowThreshold = *raw.Alerts.SignalLowThreshold
	}
	if raw.Alerts.LatencyHighMs != nil {
		cfg.Alerts.LatencyHighMs = *raw.Alerts.LatencyHighMs
	}
	setInt(&cfg.Alerts.Cooldown, raw.Alerts.CooldownSeconds, time.Second)

	setInt(&cfg.Retention.RawData, raw.Retention.RawDataDays, day)
	setInt(&cfg.Retention.Alerts, raw.Retention.AlertDays, day)

	if raw.Storage.Path != "" {
		cfg.Storage.Path = raw.Storage.Path
	}
	if raw.Server.Enabled != nil {
		cfg.Server.Enabled = *raw.Server.Enabled
	}
	if raw.Server.Listen != "" {
		cfg.Server.Listen = raw.Server.Listen
	}

	j := &cfg.Journal
	j.Enabled = raw.Journal.Enabled
	j.Pretty = raw.Journal.Pretty
	j.MaxBytes = raw.Journal.MaxBytes
	if raw.Journal.SnapshotFile != "" {
		j.SnapshotFile = raw.Journal.SnapshotFile
	}
	if raw.Journal.EventFile != "" {
		j.EventFile = raw.Journal.EventFile
	}
	if raw.Journal.MaxBackups != nil {
		j.MaxBackups = *raw.Journal.MaxBackups
	}
	return cfg
}

func validate(cfg *Config) []string {
	var errs []string
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	if cfg.PollingInterval < time.Second {
		add("polling_interval_seconds must be at least 1, got %v", cfg.PollingInterval.Seconds())
	}
	for name, addr := range map[string]string{
		"primary_dns":   cfg.Probes.PrimaryDNS,
		"secondary_dns": cfg.Probes.SecondaryDNS,
	} {
		if addr == "" {
			continue
		}
		if _, err := netip.ParseAddr(addr); err != nil {
			add("%s %q is not an IP address", name, addr)
		}
	}
	if cfg.Probes.PingTimeout <= 0 {
		add("ping_timeout_ms must be positive")
	}
	if cfg.Probes.HTTPTimeout <= 0 {
		add("http_timeout_ms must be positive")
	}
	if cfg.Probes.DNSQueryName == "" {
		add("dns_query_name must not be empty")
	}
	if u, err := url.Parse(cfg.Probes.HTTPProbeURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		add("http_probe_url %q must be an absolute http(s) URL", cfg.Probes.HTTPProbeURL)
	}
	if t := cfg.Alerts.SignalLowThreshold; t < 0 || t > 100 {
		add("signal_low_threshold must be within 0-100, got %d", t)
	}
	if cfg.Alerts.LatencyHighMs <= 0 {
		add("latency_high_ms must be positive")
	}
	if cfg.Alerts.Cooldown < 0 {
		add("cooldown_seconds must not be negative")
	}
	if cfg.Retention.RawData <= 0 || cfg.Retention.Alerts <= 0 {
		add("retention windows must be at least one day")
	}
	if cfg.Journal.MaxBytes < 0 || cfg.Journal.MaxBackups < 0 {
		add("journal max_bytes and max_backups must not be negative")
	}
	return errs
}

// ─────────────────────────────────────────────────────────────────────────────
// Save
// ─────────────────────────────────────────────────────────────────────────────

// Encode writes cfg to w in the file format Load accepts.
func Encode(w io.Writer, cfg *Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(toRaw(cfg)); err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	return enc.Close()
}

// Save writes cfg as YAML to path, replacing any existing file atomically.
func Save(path string, cfg *Config) error {
	var buf bytes.Buffer
	if err := Encode(&buf, cfg); err != nil {
		return err
	}
	data := buf.Bytes()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("config: mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".config-*.yml")
	if err != nil {
		return fmt.Errorf("config: temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("config: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("config: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("config: rename: %w", err)
	}
	return nil
}

func toRaw(cfg *Config) rawConfig {
	ptr := func(v int) *int { return &v }
	str := func(v string) *string { return &v }
	b := func(v bool) *bool { return &v }
	f := func(v float64) *float64 { return &v }
	ms := func(d time.Duration) *int { return ptr(int(d / time.Millisecond)) }

	return rawConfig{
		PollingIntervalSeconds: ptr(int(cfg.PollingInterval / time.Second)),
		ShowNotifications:      b(cfg.ShowNotifications),
		Interfaces:             rawInterfaces{Wifi: cfg.Interfaces.Wifi, Network: cfg.Interfaces.Network},
		Probes: rawProbes{
			PrimaryDNS:          str(cfg.Probes.PrimaryDNS),
			SecondaryDNS:        str(cfg.Probes.SecondaryDNS),
			CustomPingTargets:   cfg.Probes.CustomTargets,
			PingTimeoutMs:       ms(cfg.Probes.PingTimeout),
			DNSQueryName:        str(cfg.Probes.DNSQueryName),
			HTTPProbeURL:        str(cfg.Probes.HTTPProbeURL),
			HTTPExpectedContent: str(cfg.Probes.HTTPExpectedContent),
			HTTPTimeoutMs:       ms(cfg.Probes.HTTPTimeout),
		},
		Alerts: rawAlerts{
			SignalLowThreshold: ptr(cfg.Alerts.SignalLowThreshold),
			LatencyHighMs:      f(cfg.Alerts.LatencyHighMs),
			CooldownSeconds:    ptr(int(cfg.Alerts.Cooldown / time.Second)),
		},
		Retention: rawRetention{
			RawDataDays: ptr(int(cfg.Retention.RawData / day)),
			AlertDays:   ptr(int(cfg.Retention.Alerts / day)),
		},
		Storage: rawStorage{Path: cfg.Storage.Path},
		Server:  rawServer{Enabled: b(cfg.Server.Enabled), Listen: cfg.Server.Listen},
		Journal: rawJournal{
			Enabled:      cfg.Journal.Enabled,
			SnapshotFile: cfg.Journal.SnapshotFile,
			EventFile:    cfg.Journal.EventFile,
			MaxBytes:     cfg.Journal.MaxBytes,
			MaxBackups:   ptr(cfg.Journal.MaxBackups),
			Pretty:       cfg.Journal.Pretty,
		},
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

func decodeFile(path string, out interface{}) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(false) // be lenient: extra keys are fine
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

type noopWriter struct{}

func (noopWriter) Write(p []byte) (int, error) { return len(p), nil }
