// Package export writes stored measurements as CSV or JSON for offline
// analysis. Rows are read from the repository for a closed time range and
// streamed to an io.Writer; WriteFile wraps that with a timestamped file name.
package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/vpbank/homelink_monitor/models"
)

// Kind selects what an export contains.
type Kind string

const (
	KindPing    Kind = "ping"
	KindWifi    Kind = "wifi"
	KindAlerts  Kind = "alerts"
	KindRoaming Kind = "roaming"
	KindAll     Kind = "all" // JSON document with every row type
)

// Kinds lists every accepted Kind in display order.
var Kinds = []Kind{KindPing, KindWifi, KindAlerts, KindRoaming, KindAll}

// Source is the read side of the repository.
type Source interface {
	PingResults(ctx context.Context, from, to time.Time) ([]models.PingResult, error)
	WifiSnapshots(ctx context.Context, from, to time.Time) ([]models.WifiSnapshot, error)
	DnsResults(ctx context.Context, from, to time.Time) ([]models.DnsResult, error)
	Alerts(ctx context.Context, from, to time.Time) ([]models.AlertEvent, error)
	RoamingEvents(ctx context.Context, from, to time.Time) ([]models.RoamingEvent, error)
}

// Exporter renders repository rows.
type Exporter struct {
	src    Source
	logger *slog.Logger
	now    func() time.Time
}

// New creates an Exporter reading from src.
func New(src Source, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}
	return &Exporter{src: src, logger: logger, now: time.Now}
}

// Extension returns the file extension used for kind.
func (k Kind) Extension() string {
	if k == KindAll {
		return ".json"
	}
	return ".csv"
}

func (k Kind) prefix() string {
	switch k {
	case KindPing:
		return "ping_data"
	case KindWifi:
		return "wifi_data"
	case KindAll:
		return "homelink_export"
	}
	return string(k)
}

// Write renders kind for [from, to] to w.
func (e *Exporter) Write(ctx context.Context, w io.Writer, kind Kind, from, to time.Time) error {
	switch kind {
	case KindPing:
		return e.PingCSV(ctx, w, from, to)
	case KindWifi:
		return e.WifiCSV(ctx, w, from, to)
	case KindAlerts:
		return e.AlertsCSV(ctx, w, from, to)
	case KindRoaming:
		return e.RoamingCSV(ctx, w, from, to)
	case KindAll:
		return e.JSON(ctx, w, from, to)
	}
	return fmt.Errorf("export: unknown kind %q", kind)
}

// WriteFile renders kind into dir as <prefix>_<yyyymmdd_hhmmss><ext> and
// returns the path. dir is created if needed. A partially written file is
// removed on error.
func (e *Exporter) WriteFile(ctx context.Context, dir string, kind Kind, from, to time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("export: create dir: %w", err)
	}
	name := kind.prefix() + "_" + e.now().Format("20060102_150405") + kind.Extension()
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("export: create file: %w", err)
	}
	if err := e.Write(ctx, f, kind, from, to); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("export: close file: %w", err)
	}
	e.logger.Info("export: file written", "kind", string(kind), "path", path)
	return path, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// CSV
// ─────────────────────────────────────────────────────────────────────────────

// PingCSV writes one row per ping result.
func (e *Exporter) PingCSV(ctx context.Context, w io.Writer, from, to time.Time) error {
	rows, err := e.src.PingResults(ctx, from, to)
	if err != nil {
		return fmt.Errorf("export: ping results: %w", err)
	}
	return writeCSV(w,
		[]string{"Timestamp", "Target", "TargetLabel", "LatencyMs", "IsSuccess", "Status", "Ttl"},
		rows, func(r models.PingResult) []string {
			return []string{
				timestamp(r.Timestamp), r.Target, r.TargetLabel, optFloat(r.LatencyMs),
				strconv.FormatBool(r.IsSuccess), r.Status, strconv.Itoa(r.TTL),
			}
		})
}

// WifiCSV writes one row per Wi-Fi reading.
func (e *Exporter) WifiCSV(ctx context.Context, w io.Writer, from, to time.Time) error {
	rows, err := e.src.WifiSnapshots(ctx, from, to)
	if err != nil {
		return fmt.Errorf("export: wifi snapshots: %w", err)
	}
	return writeCSV(w,
		[]string{"Timestamp", "SSID", "BSSID", "SignalQuality", "RssiDbm", "LinkSpeedMbps", "Channel", "FrequencyGHz", "Band", "PhyType"},
		rows, func(r models.WifiSnapshot) []string {
			return []string{
				timestamp(r.Timestamp), r.SSID, r.BSSID,
				strconv.Itoa(r.SignalQuality), strconv.Itoa(r.RssiDbm), strconv.Itoa(r.LinkSpeedMbps),
				strconv.Itoa(r.Channel), strconv.FormatFloat(float64(r.FrequencyKHz)/1e6, 'f', 3, 64),
				r.Band, r.PhyType,
			}
		})
}

// AlertsCSV writes one row per alert.
func (e *Exporter) AlertsCSV(ctx context.Context, w io.Writer, from, to time.Time) error {
	rows, err := e.src.Alerts(ctx, from, to)
	if err != nil {
		return fmt.Errorf("export: alerts: %w", err)
	}
	return writeCSV(w,
		[]string{"Timestamp", "AlertType", "Severity", "Message", "Details", "Acknowledged"},
		rows, func(r models.AlertEvent) []string {
			return []string{
				timestamp(r.Timestamp), r.AlertType, string(r.Severity), r.Message, r.Details,
				strconv.FormatBool(r.IsAcknowledged),
			}
		})
}

// RoamingCSV writes one row per access-point handoff.
func (e *Exporter) RoamingCSV(ctx context.Context, w io.Writer, from, to time.Time) error {
	rows, err := e.src.RoamingEvents(ctx, from, to)
	if err != nil {
		return fmt.Errorf("export: roaming events: %w", err)
	}
	return writeCSV(w,
		[]string{"Timestamp", "SSID", "PreviousBSSID", "NewBSSID", "PreviousSignalQuality", "NewSignalQuality", "PreviousChannel", "NewChannel"},
		rows, func(r models.RoamingEvent) []string {
			return []string{
				timestamp(r.Timestamp), r.SSID, r.PreviousBSSID, r.NewBSSID,
				strconv.Itoa(r.PreviousSignalQuality), strconv.Itoa(r.NewSignalQuality),
				strconv.Itoa(r.PreviousChannel), strconv.Itoa(r.NewChannel),
			}
		})
}

func writeCSV[T any](w io.Writer, header []string, rows []T, record func(T) []string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("export: write header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write(record(r)); err != nil {
			return fmt.Errorf("export: write row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("export: flush: %w", err)
	}
	return nil
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func optFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}

// ─────────────────────────────────────────────────────────────────────────────
// JSON
// ─────────────────────────────────────────────────────────────────────────────

// Document is the shape of a KindAll export.
type Document struct {
	ExportedAt    time.Time             `json:"exported_at"`
	Period        Period                `json:"period"`
	WifiSnapshots []models.WifiSnapshot `json:"wifi_snapshots"`
	PingResults   []models.PingResult   `json:"ping_results"`
	DnsResults    []models.DnsResult    `json:"dns_results"`
	Alerts        []models.AlertEvent   `json:"alerts"`
	RoamingEvents []models.RoamingEvent `json:"roaming_events"`
}

// Period is the requested export range.
type Period struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// JSON writes every row type in [from, to] as one indented document.
func (e *Exporter) JSON(ctx context.Context, w io.Writer, from, to time.Time) error {
	doc := Document{
		ExportedAt: e.now().UTC(),
		Period:     Period{From: from.UTC(), To: to.UTC()},
	}
	var err error
	if doc.WifiSnapshots, err = e.src.WifiSnapshots(ctx, from, to); err != nil {
		return fmt.Errorf("export: wifi snapshots: %w", err)
	}
	if doc.PingResults, err = e.src.PingResults(ctx, from, to); err != nil {
		return fmt.Errorf("export: ping results: %w", err)
	}
	if doc.DnsResults, err = e.src.DnsResults(ctx, from, to); err != nil {
		return fmt.Errorf("export: dns results: %w", err)
	}
	if doc.Alerts, err = e.src.Alerts(ctx, from, to); err != nil {
		return fmt.Errorf("export: alerts: %w", err)
	}
	if doc.RoamingEvents, err = e.src.RoamingEvents(ctx, from, to); err != nil {
		return fmt.Errorf("export: roaming events: %w", err)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("export: encode: %w", err)
	}
	return nil
}

type noopWriter struct{}

func (noopWriter) Write(p []byte) (int, error) { return len(p), nil }
