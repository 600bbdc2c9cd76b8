package models

import "time"

// Severity grades an AlertEvent.
type Severity string

const (
	SeverityInfo     Severity = "Info"
	SeverityWarning  Severity = "Warning"
	SeverityCritical Severity = "Critical"
)

// Alert type keys. The set is open: cooldowns are keyed by the raw string.
const (
	AlertSignalLow          = "SignalLow"
	AlertDisconnected       = "Disconnected"
	AlertGatewayUnreachable = "GatewayUnreachable"
	AlertHighLatency        = "HighLatency"
	AlertNoInternet         = "NoInternet"
	AlertCaptivePortal      = "CaptivePortal"
	AlertRoaming            = "Roaming"
)

// AlertEvent is a single fired alert. Only IsAcknowledged changes after the
// event has been stored.
type AlertEvent struct {
	ID             string    `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	AlertType      string    `json:"alert_type"`
	Severity       Severity  `json:"severity"`
	Message        string    `json:"message"`
	Details        string    `json:"details,omitempty"`
	IsAcknowledged bool      `json:"is_acknowledged"`
}

// RoamingEvent records one access-point handoff.
type RoamingEvent struct {
	ID                    string    `json:"id"`
	Timestamp             time.Time `json:"timestamp"`
	PreviousBSSID         string    `json:"previous_bssid"`
	NewBSSID              string    `json:"new_bssid"`
	SSID                  string    `json:"ssid"`
	PreviousSignalQuality int       `json:"previous_signal_quality"`
	NewSignalQuality      int       `json:"new_signal_quality"`
	PreviousChannel       int       `json:"previous_channel"`
	NewChannel            int       `json:"new_channel"`
}

// ParsedLocation is a fixed reference point resolved from a router hostname.
// Region is empty outside the United States.
type ParsedLocation struct {
	City      string  `json:"city"`
	Region    string  `json:"region"`
	Country   string  `json:"country"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// TracerouteHop is one TTL step of a traceroute.
type TracerouteHop struct {
	HopNumber int             `json:"hop_number"`
	Address   string          `json:"address,omitempty"`
	Hostname  string          `json:"hostname,omitempty"`
	LatencyMs *float64        `json:"latency_ms,omitempty"`
	IsTimeout bool            `json:"is_timeout"`
	IsPrivate bool            `json:"is_private"`
	Location  *ParsedLocation `json:"location,omitempty"`
}
