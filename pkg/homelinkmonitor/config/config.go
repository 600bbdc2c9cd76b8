package config

import "time"

// Config is the fully resolved application configuration. Every field holds
// a usable value after Load or Default.
type Config struct {
	// PollingInterval is the time between poll cycle starts (default 5s).
	PollingInterval time.Duration

	// ShowNotifications enables desktop notifications for fired alerts.
	ShowNotifications bool

	Interfaces Interfaces
	Probes     Probes
	Alerts     Alerts
	Retention  Retention
	Storage    Storage
	Server     Server
	Journal    Journal
}

// Interfaces pins the adapters the providers read. Empty means auto-detect.
type Interfaces struct {
	Wifi    string
	Network string
}

// Probes configures the per-cycle ping, DNS and HTTP probes.
type Probes struct {
	// PrimaryDNS and SecondaryDNS are pinged (labels DNS1/DNS2) and queried.
	PrimaryDNS   string
	SecondaryDNS string

	// CustomTargets are extra ping targets (label Custom). Blank entries are
	// skipped.
	CustomTargets []string

	// PingTimeout bounds each echo (default 2000ms).
	PingTimeout time.Duration

	// DNSQueryName is resolved as an A record on each resolver.
	DNSQueryName string

	// HTTPProbeURL is fetched once per cycle to detect captive portals.
	HTTPProbeURL string

	// HTTPExpectedContent must appear (case-insensitively) in a successful
	// response body, otherwise a captive portal is assumed.
	HTTPExpectedContent string

	// HTTPTimeout bounds the whole GET (default 5000ms).
	HTTPTimeout time.Duration
}

// Alerts holds AlertEngine thresholds.
type Alerts struct {
	// SignalLowThreshold fires SignalLow below this quality (default 30).
	SignalLowThreshold int

	// LatencyHighMs fires HighLatency above this gateway latency (default 100).
	LatencyHighMs float64

	// Cooldown is the minimum gap between two alerts of one type (default 60s).
	Cooldown time.Duration
}

// Retention holds the purge windows.
type Retention struct {
	// RawData applies to snapshot rows: Wi-Fi, network, ping, DNS, HTTP.
	RawData time.Duration

	// Alerts applies to alert and roaming events.
	Alerts time.Duration
}

// Storage locates the bbolt database.
type Storage struct {
	Path string
}

// Server configures the HTTP API.
type Server struct {
	Enabled bool
	Listen  string
}

// Journal configures the optional JSON-lines event journal.
type Journal struct {
	Enabled      bool
	SnapshotFile string
	EventFile    string
	MaxBytes     int64
	MaxBackups   int
	Pretty       bool
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		PollingInterval:   5 * time.Second,
		ShowNotifications: true,
		Probes: Probes{
			PrimaryDNS:          "8.8.8.8",
			SecondaryDNS:        "1.1.1.1",
			CustomTargets:       []string{},
			PingTimeout:         2000 * time.Millisecond,
			DNSQueryName:        "google.com",
			HTTPProbeURL:        "http://www.msftconnecttest.com/connecttest.txt",
			HTTPExpectedContent: "Microsoft Connect Test",
			HTTPTimeout:         5000 * time.Millisecond,
		},
		Alerts: Alerts{
			SignalLowThreshold: 30,
			LatencyHighMs:      100,
			Cooldown:           60 * time.Second,
		},
		Retention: Retention{
			RawData: 7 * 24 * time.Hour,
			Alerts:  365 * 24 * time.Hour,
		},
		Storage: Storage{Path: "homelink.db"},
		Server: Server{
			Enabled: true,
			Listen:  "127.0.0.1:8470",
		},
		Journal: Journal{
			SnapshotFile: "homelink_snapshots.jsonl",
			EventFile:    "homelink_events.jsonl",
			MaxBackups:   5,
		},
	}
}
