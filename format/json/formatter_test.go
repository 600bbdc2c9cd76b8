package json_test

import (
	stdjson "encoding/json"
	"strings"
	"testing"
	"time"

	fmtjson "github.com/vpbank/homelink_monitor/format/json"
	"github.com/vpbank/homelink_monitor/models"
	"github.com/vpbank/homelink_monitor/pkg/homelinkmonitor/bus"
)

// ─────────────────────────────────────────────────────────────────────────────
// Shared fixtures
// ─────────────────────────────────────────────────────────────────────────────

var testTimestamp = time.Date(2026, 2, 26, 10, 30, 0, 123_000_000, time.UTC)

var snapshotEvent = bus.Event{
	Kind:      bus.KindSnapshot,
	Published: testTimestamp,
	Snapshot: &models.MonitoringSnapshot{
		Timestamp: testTimestamp,
		Wifi: &models.WifiSnapshot{
			SSID:          "home",
			BSSID:         "aa:bb:cc:dd:ee:ff",
			SignalQuality: 74,
			IsConnected:   true,
		},
		PingResults: []models.PingResult{
			{Target: "192.168.1.1", TargetLabel: models.LabelGateway, IsSuccess: true, LatencyMs: models.Float(3.2), Status: models.PingSuccess},
			{Target: "8.8.8.8", TargetLabel: models.LabelDNS1, Status: models.PingTimedOut},
		},
		OverallStatus: models.StatusGood,
	},
}

var alertEvent = bus.Event{
	Kind: bus.KindAlert,
	Alert: &models.AlertEvent{
		ID:        "7c1e",
		Timestamp: testTimestamp,
		AlertType: models.AlertGatewayUnreachable,
		Severity:  models.SeverityCritical,
		Message:   "Gateway 192.168.1.1 is unreachable",
	},
}

var roamingEvent = bus.Event{
	Kind: bus.KindRoaming,
	Roaming: &models.RoamingEvent{
		ID:            "91aa",
		Timestamp:     testTimestamp,
		PreviousBSSID: "aa:aa:aa:aa:aa:aa",
		NewBSSID:      "bb:bb:bb:bb:bb:bb",
		SSID:          "home",
	},
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

func mustFormat(t *testing.T, f *fmtjson.JSONFormatter, ev *bus.Event) []byte {
	t.Helper()
	b, err := f.Format(ev)
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	return b
}

func unmarshal(t *testing.T, data []byte) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := stdjson.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v\nraw: %s", err, data)
	}
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// Construction
// ─────────────────────────────────────────────────────────────────────────────

func TestNew_NilLoggerDoesNotPanic(t *testing.T) {
	f := fmtjson.New(fmtjson.Config{}, nil)
	if f == nil {
		t.Fatal("New returned nil")
	}
}

func TestNew_DefaultIndentForPrettyPrint(t *testing.T) {
	f := fmtjson.New(fmtjson.Config{PrettyPrint: true}, nil)
	data := mustFormat(t, f, &snapshotEvent)
	if !strings.Contains(string(data), "\n  \"timestamp\"") {
		t.Errorf("pretty-print output should be indented by two spaces:\n%s", data)
	}
}

func TestNew_CustomIndent(t *testing.T) {
	f := fmtjson.New(fmtjson.Config{PrettyPrint: true, Indent: "\t"}, nil)
	data := mustFormat(t, f, &snapshotEvent)
	if !strings.Contains(string(data), "\t") {
		t.Error("custom-indent output should contain tab characters")
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Invalid input
// ─────────────────────────────────────────────────────────────────────────────

func TestFormat_NilEventReturnsError(t *testing.T) {
	f := fmtjson.New(fmtjson.Config{}, nil)
	if _, err := f.Format(nil); err == nil {
		t.Error("expected error for nil event")
	}
}

func TestFormat_MissingPayloadReturnsError(t *testing.T) {
	f := fmtjson.New(fmtjson.Config{}, nil)
	for _, ev := range []bus.Event{
		{Kind: bus.KindSnapshot},
		{Kind: bus.KindAlert},
		{Kind: bus.KindRoaming, Alert: alertEvent.Alert},
		{Kind: "bogus", Snapshot: snapshotEvent.Snapshot},
	} {
		if _, err := f.Format(&ev); err == nil {
			t.Errorf("kind %q: expected error", ev.Kind)
		}
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Payloads
// ─────────────────────────────────────────────────────────────────────────────

func TestFormat_SnapshotPayload(t *testing.T) {
	f := fmtjson.New(fmtjson.Config{}, nil)
	doc := unmarshal(t, mustFormat(t, f, &snapshotEvent))

	for _, key := range []string{"timestamp", "wifi", "ping_results", "overall_status"} {
		if _, ok := doc[key]; !ok {
			t.Errorf("key %q missing", key)
		}
	}
	if _, ok := doc["kind"]; ok {
		t.Error("envelope field kind should not be serialised")
	}
	if doc["overall_status"] != "Good" {
		t.Errorf("overall_status = %v, want Good", doc["overall_status"])
	}
	pings := doc["ping_results"].([]interface{})
	if len(pings) != 2 {
		t.Fatalf("ping_results count = %d, want 2", len(pings))
	}
	if _, ok := pings[1].(map[string]interface{})["latency_ms"]; ok {
		t.Error("failed ping should omit latency_ms")
	}
}

func TestFormat_TimestampIsRFC3339(t *testing.T) {
	f := fmtjson.New(fmtjson.Config{}, nil)
	doc := unmarshal(t, mustFormat(t, f, &snapshotEvent))
	ts, ok := doc["timestamp"].(string)
	if !ok {
		t.Fatal("timestamp is not a string")
	}
	parsed, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		t.Fatalf("timestamp %q is not RFC3339Nano: %v", ts, err)
	}
	if !parsed.Equal(testTimestamp) {
		t.Errorf("timestamp round-trip: got %v, want %v", parsed, testTimestamp)
	}
}

func TestFormat_AlertPayload(t *testing.T) {
	f := fmtjson.New(fmtjson.Config{}, nil)
	doc := unmarshal(t, mustFormat(t, f, &alertEvent))

	checks := map[string]string{
		"id":         "7c1e",
		"alert_type": "GatewayUnreachable",
		"severity":   "Critical",
		"message":    "Gateway 192.168.1.1 is unreachable",
	}
	for k, want := range checks {
		if got, _ := doc[k].(string); got != want {
			t.Errorf("%s = %q, want %q", k, got, want)
		}
	}
	if _, ok := doc["details"]; ok {
		t.Error("empty details should be omitted")
	}
}

func TestFormat_RoamingPayload(t *testing.T) {
	f := fmtjson.New(fmtjson.Config{}, nil)
	doc := unmarshal(t, mustFormat(t, f, &roamingEvent))
	if doc["previous_bssid"] != "aa:aa:aa:aa:aa:aa" {
		t.Errorf("previous_bssid = %v", doc["previous_bssid"])
	}
	if doc["new_bssid"] != "bb:bb:bb:bb:bb:bb" {
		t.Errorf("new_bssid = %v", doc["new_bssid"])
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Compact vs pretty-print
// ─────────────────────────────────────────────────────────────────────────────

func TestFormat_CompactHasNoNewlines(t *testing.T) {
	f := fmtjson.New(fmtjson.Config{PrettyPrint: false}, nil)
	for _, ev := range []*bus.Event{&snapshotEvent, &alertEvent, &roamingEvent} {
		if data := mustFormat(t, f, ev); strings.Contains(string(data), "\n") {
			t.Errorf("%s: compact output must not contain newlines", ev.Kind)
		}
	}
}

func TestFormat_PrettyAndCompactEquivalent(t *testing.T) {
	compact := mustFormat(t, fmtjson.New(fmtjson.Config{}, nil), &snapshotEvent)
	pretty := mustFormat(t, fmtjson.New(fmtjson.Config{PrettyPrint: true}, nil), &snapshotEvent)

	var dc, dp interface{}
	if err := stdjson.Unmarshal(compact, &dc); err != nil {
		t.Fatalf("unmarshal compact: %v", err)
	}
	if err := stdjson.Unmarshal(pretty, &dp); err != nil {
		t.Fatalf("unmarshal pretty: %v", err)
	}
	rc, _ := stdjson.Marshal(dc)
	rp, _ := stdjson.Marshal(dp)
	if string(rc) != string(rp) {
		t.Errorf("compact and pretty-print produce different structures")
	}
}
