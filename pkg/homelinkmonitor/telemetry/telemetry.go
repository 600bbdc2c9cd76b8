// Package telemetry exposes the monitor's own measurements as Prometheus
// metrics on a private registry. A single Metrics value is the orchestrator
// observer, the alert observer and the bus drop counter.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vpbank/homelink_monitor/models"
	"github.com/vpbank/homelink_monitor/pkg/homelinkmonitor/bus"
)

const namespace = "homelink"

var allStatuses = []models.ConnectionStatus{
	models.StatusUnknown, models.StatusExcellent, models.StatusGood, models.StatusFair,
	models.StatusPoor, models.StatusDisconnected, models.StatusNoInternet,
}

// Metrics holds every collector.
type Metrics struct {
	registry *prometheus.Registry
	counters *counterState
	now      func() time.Time

	cycles        *prometheus.CounterVec
	cycleDuration prometheus.Histogram
	status        *prometheus.GaugeVec
	signal        prometheus.Gauge
	rssi          prometheus.Gauge
	pingLatency   *prometheus.GaugeVec
	probeFailures *prometheus.CounterVec
	dnsLatency    *prometheus.GaugeVec
	httpLatency   prometheus.Gauge
	throughput    *prometheus.GaugeVec
	alerts        *prometheus.CounterVec
	busDrops      *prometheus.CounterVec
}

// New creates a Metrics value with its own registry, including the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		counters: newCounterState(),
		now:      time.Now,

		cycles: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_cycles_total",
			Help:      "Completed poll cycles by result.",
		}, []string{"result"}),
		cycleDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "poll_cycle_duration_seconds",
			Help:      "Wall time of one poll cycle.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 9),
		}),
		status: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connection_status",
			Help:      "1 for the current overall connection status, 0 for the others.",
		}, []string{"status"}),
		signal: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "wifi_signal_quality_percent",
			Help:      "Wi-Fi signal quality of the last cycle.",
		}),
		rssi: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "wifi_rssi_dbm",
			Help:      "Wi-Fi RSSI of the last cycle.",
		}),
		pingLatency: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ping_latency_milliseconds",
			Help:      "Last successful echo round-trip time per target.",
		}, []string{"label", "target"}),
		probeFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probe_failures_total",
			Help:      "Failed probes by kind and target.",
		}, []string{"probe", "target"}),
		dnsLatency: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dns_latency_milliseconds",
			Help:      "Last answered query time per resolver.",
		}, []string{"server"}),
		httpLatency: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_probe_latency_milliseconds",
			Help:      "Time to response headers of the last HTTP probe.",
		}),
		throughput: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "adapter_throughput_bytes_per_second",
			Help:      "Adapter byte rate between the last two cycles.",
		}, []string{"adapter", "direction"}),
		alerts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_fired_total",
			Help:      "Alerts that passed their cooldown.",
		}, []string{"type", "severity"}),
		busDrops: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bus_dropped_events_total",
			Help:      "Events dropped for subscribers whose buffer was full.",
		}, []string{"kind"}),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// CycleCompleted records one finished poll cycle.
func (m *Metrics) CycleCompleted(snap models.MonitoringSnapshot, elapsed time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.cycles.WithLabelValues(result).Inc()
	m.cycleDuration.Observe(elapsed.Seconds())

	for _, s := range allStatuses {
		v := 0.0
		if s == snap.OverallStatus {
			v = 1
		}
		m.status.WithLabelValues(s.String()).Set(v)
	}

	if w := snap.Wifi; w != nil && w.IsConnected {
		m.signal.Set(float64(w.SignalQuality))
		m.rssi.Set(float64(w.RssiDbm))
	} else {
		m.signal.Set(0)
	}

	for _, p := range snap.PingResults {
		if p.IsSuccess && p.LatencyMs != nil {
			m.pingLatency.WithLabelValues(p.TargetLabel, p.Target).Set(*p.LatencyMs)
			continue
		}
		m.probeFailures.WithLabelValues("ping", p.Target).Inc()
	}
	for _, d := range snap.DnsResults {
		if d.IsSuccess && d.LatencyMs != nil {
			m.dnsLatency.WithLabelValues(d.Server).Set(*d.LatencyMs)
			continue
		}
		m.probeFailures.WithLabelValues("dns", d.Server).Inc()
	}
	if h := snap.HttpProbe; h != nil {
		if h.IsSuccess && h.LatencyMs != nil {
			m.httpLatency.Set(*h.LatencyMs)
		} else {
			m.probeFailures.WithLabelValues("http", h.URL).Inc()
		}
	}

	if n := snap.Network; n != nil && n.AdapterName != "" {
		now := snap.Timestamp
		if now.IsZero() {
			now = m.now()
		}
		m.observeCounter(n.AdapterName, "rx", n.BytesReceived, now)
		m.observeCounter(n.AdapterName, "tx", n.BytesSent, now)
		m.counters.Purge(time.Hour, now)
	}
}

func (m *Metrics) observeCounter(adapter, dir string, value uint64, now time.Time) {
	r := m.counters.Rate(counterKey{Adapter: adapter, Direction: dir}, value, now)
	if r.Valid {
		m.throughput.WithLabelValues(adapter, dir).Set(r.PerSecond)
	}
}

// AlertFired counts an alert.
func (m *Metrics) AlertFired(alertType string, severity models.Severity) {
	m.alerts.WithLabelValues(alertType, string(severity)).Inc()
}

// Dropped counts an event dropped by the bus.
func (m *Metrics) Dropped(kind bus.Kind) {
	m.busDrops.WithLabelValues(string(kind)).Inc()
}
