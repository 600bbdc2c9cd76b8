package telemetry_test

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vpbank/homelink_monitor/models"
	"github.com/vpbank/homelink_monitor/pkg/homelinkmonitor/bus"
	"github.com/vpbank/homelink_monitor/pkg/homelinkmonitor/telemetry"
)

var t0 = time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

func cycleSnapshot(ts time.Time, rx, tx uint64) models.MonitoringSnapshot {
	return models.MonitoringSnapshot{
		Timestamp:     ts,
		OverallStatus: models.StatusGood,
		Wifi:          &models.WifiSnapshot{SignalQuality: 64, RssiDbm: -68, IsConnected: true},
		Network:       &models.NetworkSnapshot{AdapterName: "wlan0", BytesReceived: rx, BytesSent: tx},
		PingResults: []models.PingResult{
			models.PingOK("192.168.1.1", models.LabelGateway, 3, 64),
			models.PingFailed("1.1.1.1", models.LabelDNS2, models.PingTimedOut),
		},
		DnsResults: []models.DnsResult{{Server: "8.8.8.8", IsSuccess: true, LatencyMs: models.Float(11)}},
		HttpProbe:  &models.HttpProbeResult{URL: "http://probe", IsSuccess: false, Error: "Timeout"},
	}
}

func scrape(t *testing.T, m *telemetry.Metrics) string {
	t.Helper()
	srv := httptest.NewServer(m.Handler())
	defer srv.Close()
	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestCycleCompleted_RecordsGaugesAndCounters(t *testing.T) {
	m := telemetry.New()
	m.CycleCompleted(cycleSnapshot(t0, 1000, 500), 120*time.Millisecond, nil)
	m.CycleCompleted(cycleSnapshot(t0.Add(5*time.Second), 6000, 1500), 80*time.Millisecond, errors.New("persist"))

	body := scrape(t, m)
	assert.Contains(t, body, `homelink_poll_cycles_total{result="ok"} 1`)
	assert.Contains(t, body, `homelink_poll_cycles_total{result="error"} 1`)
	assert.Contains(t, body, `homelink_connection_status{status="Good"} 1`)
	assert.Contains(t, body, `homelink_connection_status{status="Poor"} 0`)
	assert.Contains(t, body, `homelink_wifi_signal_quality_percent 64`)
	assert.Contains(t, body, `homelink_ping_latency_milliseconds{label="Gateway",target="192.168.1.1"} 3`)
	assert.Contains(t, body, `homelink_probe_failures_total{probe="ping",target="1.1.1.1"} 2`)
	assert.Contains(t, body, `homelink_probe_failures_total{probe="http",target="http://probe"} 2`)
	assert.Contains(t, body, `homelink_dns_latency_milliseconds{server="8.8.8.8"} 11`)
	// (6000-1000)/5s and (1500-500)/5s
	assert.Contains(t, body, `homelink_adapter_throughput_bytes_per_second{adapter="wlan0",direction="rx"} 1000`)
	assert.Contains(t, body, `homelink_adapter_throughput_bytes_per_second{adapter="wlan0",direction="tx"} 200`)
	assert.Contains(t, body, "go_goroutines")
}

func TestCycleCompleted_CounterResetIsSkipped(t *testing.T) {
	m := telemetry.New()
	m.CycleCompleted(cycleSnapshot(t0, 5000, 5000), time.Millisecond, nil)
	m.CycleCompleted(cycleSnapshot(t0.Add(time.Second), 10, 10), time.Millisecond, nil)

	assert.NotContains(t, scrape(t, m), "homelink_adapter_throughput_bytes_per_second{")
}

func TestAlertFiredAndDropped(t *testing.T) {
	m := telemetry.New()
	m.AlertFired(models.AlertSignalLow, models.SeverityWarning)
	m.AlertFired(models.AlertSignalLow, models.SeverityWarning)
	m.Dropped(bus.KindSnapshot)

	body := scrape(t, m)
	assert.Contains(t, body, `homelink_alerts_fired_total{severity="Warning",type="SignalLow"} 2`)
	assert.Contains(t, body, `homelink_bus_dropped_events_total{kind="snapshot"} 1`)
	n, err := testutil.GatherAndCount(m.Registry(), "homelink_bus_dropped_events_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
