// Package models defines the data structures shared across all layers of the
// link monitor. Every other package depends on this package and nothing here
// depends on any other internal package.
package models

import (
	"fmt"
	"slices"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// ConnectionStatus
// ─────────────────────────────────────────────────────────────────────────────

// ConnectionStatus is the overall classification of one poll cycle.
type ConnectionStatus int

const (
	StatusUnknown ConnectionStatus = iota
	StatusExcellent
	StatusGood
	StatusFair
	StatusPoor
	StatusDisconnected
	StatusNoInternet
)

var statusNames = [...]string{
	StatusUnknown:      "Unknown",
	StatusExcellent:    "Excellent",
	StatusGood:         "Good",
	StatusFair:         "Fair",
	StatusPoor:         "Poor",
	StatusDisconnected: "Disconnected",
	StatusNoInternet:   "NoInternet",
}

func (s ConnectionStatus) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return statusNames[StatusUnknown]
	}
	return statusNames[s]
}

// MarshalText encodes the status by name so JSON rows stay readable.
func (s ConnectionStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText accepts any name produced by MarshalText.
func (s *ConnectionStatus) UnmarshalText(text []byte) error {
	for i, name := range statusNames {
		if name == string(text) {
			*s = ConnectionStatus(i)
			return nil
		}
	}
	return fmt.Errorf("models: unknown connection status %q", text)
}

// ─────────────────────────────────────────────────────────────────────────────
// Snapshots
// ─────────────────────────────────────────────────────────────────────────────

// MonitoringSnapshot is one complete set of measurements from a single poll
// cycle. It is never mutated after the orchestrator publishes it.
type MonitoringSnapshot struct {
	Timestamp     time.Time        `json:"timestamp"`
	Wifi          *WifiSnapshot    `json:"wifi,omitempty"`
	Network       *NetworkSnapshot `json:"network,omitempty"`
	PingResults   []PingResult     `json:"ping_results"`
	DnsResults    []DnsResult      `json:"dns_results"`
	HttpProbe     *HttpProbeResult `json:"http_probe,omitempty"`
	OverallStatus ConnectionStatus `json:"overall_status"`
}

// Clone returns a deep copy that shares no memory with s.
func (s MonitoringSnapshot) Clone() MonitoringSnapshot {
	out := s
	if s.Wifi != nil {
		w := *s.Wifi
		out.Wifi = &w
	}
	if s.Network != nil {
		n := *s.Network
		n.DNSServers = slices.Clone(s.Network.DNSServers)
		out.Network = &n
	}
	if s.HttpProbe != nil {
		h := *s.HttpProbe
		h.LatencyMs = cloneFloat(s.HttpProbe.LatencyMs)
		out.HttpProbe = &h
	}
	if s.PingResults != nil {
		out.PingResults = make([]PingResult, len(s.PingResults))
		for i, p := range s.PingResults {
			p.LatencyMs = cloneFloat(p.LatencyMs)
			out.PingResults[i] = p
		}
	}
	if s.DnsResults != nil {
		out.DnsResults = make([]DnsResult, len(s.DnsResults))
		for i, d := range s.DnsResults {
			d.LatencyMs = cloneFloat(d.LatencyMs)
			out.DnsResults[i] = d
		}
	}
	return out
}

// GatewayPing returns the first ping result labelled LabelGateway, if any.
func (s MonitoringSnapshot) GatewayPing() (PingResult, bool) {
	for _, p := range s.PingResults {
		if p.TargetLabel == LabelGateway {
			return p, true
		}
	}
	return PingResult{}, false
}

// WifiSnapshot is a point-in-time reading of the wireless link.
type WifiSnapshot struct {
	Timestamp     time.Time `json:"timestamp"`
	InterfaceName string    `json:"interface_name,omitempty"`
	SSID          string    `json:"ssid"`
	BSSID         string    `json:"bssid"`
	SignalQuality int       `json:"signal_quality"` // 0-100
	RssiDbm       int       `json:"rssi_dbm"`
	Channel       int       `json:"channel"`
	FrequencyKHz  int       `json:"frequency_khz"`
	Band          string    `json:"band"`
	PhyType       string    `json:"phy_type"`
	LinkSpeedMbps int       `json:"link_speed_mbps"`
	IsConnected   bool      `json:"is_connected"`
}

// NetworkSnapshot describes the adapter carrying the default route.
type NetworkSnapshot struct {
	Timestamp     time.Time `json:"timestamp"`
	LocalIP       string    `json:"local_ip"`
	SubnetMask    string    `json:"subnet_mask"`
	Gateway       string    `json:"gateway"`
	DNSServers    []string  `json:"dns_servers"`
	MAC           string    `json:"mac"`
	AdapterName   string    `json:"adapter_name"`
	IsConnected   bool      `json:"is_connected"`
	BytesSent     uint64    `json:"bytes_sent"`
	BytesReceived uint64    `json:"bytes_received"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Probe results
// ─────────────────────────────────────────────────────────────────────────────

// Ping target labels.
const (
	LabelGateway = "Gateway"
	LabelDNS1    = "DNS1"
	LabelDNS2    = "DNS2"
	LabelCustom  = "Custom"
)

// Ping status strings.
const (
	PingSuccess   = "Success"
	PingTimedOut  = "TimedOut"
	PingError     = "Error"
	PingCancelled = "Cancelled"
)

// PingResult is the outcome of one ICMP echo to one target. LatencyMs is nil
// whenever IsSuccess is false.
type PingResult struct {
	Timestamp   time.Time `json:"timestamp"`
	Target      string    `json:"target"`
	TargetLabel string    `json:"target_label"`
	IsSuccess   bool      `json:"is_success"`
	LatencyMs   *float64  `json:"latency_ms,omitempty"`
	Status      string    `json:"status"`
	TTL         int       `json:"ttl,omitempty"`
}

// PingOK builds a successful ping result.
func PingOK(target, label string, latencyMs float64, ttl int) PingResult {
	return PingResult{
		Timestamp:   time.Now().UTC(),
		Target:      target,
		TargetLabel: label,
		IsSuccess:   true,
		LatencyMs:   &latencyMs,
		Status:      PingSuccess,
		TTL:         ttl,
	}
}

// PingFailed builds a failed ping result with the given status.
func PingFailed(target, label, status string) PingResult {
	return PingResult{
		Timestamp:   time.Now().UTC(),
		Target:      target,
		TargetLabel: label,
		Status:      status,
	}
}

// DnsResult is the outcome of one A query against one resolver.
type DnsResult struct {
	Timestamp time.Time `json:"timestamp"`
	Server    string    `json:"server"`
	QueryName string    `json:"query_name"`
	IsSuccess bool      `json:"is_success"`
	LatencyMs *float64  `json:"latency_ms,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// HttpProbeResult is the outcome of the connectivity-check GET.
type HttpProbeResult struct {
	Timestamp       time.Time `json:"timestamp"`
	URL             string    `json:"url"`
	IsSuccess       bool      `json:"is_success"`
	StatusCode      int       `json:"status_code,omitempty"`
	LatencyMs       *float64  `json:"latency_ms,omitempty"`
	IsCaptivePortal bool      `json:"is_captive_portal"`
	Error           string    `json:"error,omitempty"`
}

// AvgSuccessfulLatency averages LatencyMs over successful pings. It returns 0
// when no ping succeeded.
func AvgSuccessfulLatency(pings []PingResult) float64 {
	var sum float64
	var n int
	for _, p := range pings {
		if p.IsSuccess && p.LatencyMs != nil {
			sum += *p.LatencyMs
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

// Float returns a pointer to v; handy for optional latency fields.
func Float(v float64) *float64 { return &v }
