package export_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vpbank/homelink_monitor/models"
	"github.com/vpbank/homelink_monitor/pkg/homelinkmonitor/export"
	"github.com/vpbank/homelink_monitor/pkg/homelinkmonitor/store"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func seeded(t *testing.T) *store.Bolt {
	t.Helper()
	db, err := store.Open(store.Config{Path: filepath.Join(t.TempDir(), "x.db")}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	ok := models.PingOK("192.168.1.1", models.LabelGateway, 4.5, 64)
	ok.Timestamp = t0
	bad := models.PingFailed("8.8.8.8", models.LabelDNS1, models.PingTimedOut)
	bad.Timestamp = t0
	require.NoError(t, db.SaveSnapshot(ctx, models.MonitoringSnapshot{
		Timestamp: t0,
		Wifi: &models.WifiSnapshot{
			SSID: `Cafe "Free", WiFi`, BSSID: "aa:bb:cc:dd:ee:ff", SignalQuality: 72, RssiDbm: -64,
			Channel: 36, FrequencyKHz: 5180000, Band: "5 GHz", PhyType: "802.11ax", LinkSpeedMbps: 866,
			IsConnected: true,
		},
		PingResults: []models.PingResult{ok, bad},
		DnsResults:  []models.DnsResult{{Server: "8.8.8.8", QueryName: "google.com", IsSuccess: true, LatencyMs: models.Float(11)}},
	}))
	require.NoError(t, db.SaveAlert(ctx, models.AlertEvent{
		ID: "a1", Timestamp: t0, AlertType: models.AlertHighLatency, Severity: models.SeverityWarning,
		Message: "Gateway latency high: 152ms", Details: "line one\nline two",
	}))
	require.NoError(t, db.SaveRoamingEvent(ctx, models.RoamingEvent{
		ID: "r1", Timestamp: t0, SSID: "home", PreviousBSSID: "aa", NewBSSID: "bb",
		PreviousSignalQuality: 40, NewSignalQuality: 80, PreviousChannel: 1, NewChannel: 36,
	}))
	return db
}

func readCSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	recs, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	return recs
}

func TestPingCSV(t *testing.T) {
	ex := export.New(seeded(t), nil)
	var buf bytes.Buffer
	require.NoError(t, ex.PingCSV(context.Background(), &buf, t0.Add(-time.Minute), t0.Add(time.Minute)))

	recs := readCSV(t, buf.Bytes())
	require.Len(t, recs, 3)
	assert.Equal(t, []string{"Timestamp", "Target", "TargetLabel", "LatencyMs", "IsSuccess", "Status", "Ttl"}, recs[0])

	byTarget := map[string][]string{recs[1][1]: recs[1], recs[2][1]: recs[2]}
	assert.Equal(t, []string{"2025-03-01T12:00:00Z", "192.168.1.1", "Gateway", "4.5", "true", "Success", "64"}, byTarget["192.168.1.1"])
	assert.Equal(t, []string{"2025-03-01T12:00:00Z", "8.8.8.8", "DNS1", "", "false", "TimedOut", "0"}, byTarget["8.8.8.8"])
}

func TestWifiCSV_EscapesQuotesAndCommas(t *testing.T) {
	ex := export.New(seeded(t), nil)
	var buf bytes.Buffer
	require.NoError(t, ex.WifiCSV(context.Background(), &buf, t0, t0))

	assert.Contains(t, buf.String(), `"Cafe ""Free"", WiFi"`)
	recs := readCSV(t, buf.Bytes())
	require.Len(t, recs, 2)
	assert.Equal(t, `Cafe "Free", WiFi`, recs[1][1])
	assert.Equal(t, "5.180", recs[1][7])
}

func TestAlertsCSV_KeepsNewlinesInField(t *testing.T) {
	ex := export.New(seeded(t), nil)
	var buf bytes.Buffer
	require.NoError(t, ex.AlertsCSV(context.Background(), &buf, t0, t0))

	recs := readCSV(t, buf.Bytes())
	require.Len(t, recs, 2)
	assert.Equal(t, "line one\nline two", recs[1][4])
	assert.Equal(t, "false", recs[1][5])
}

func TestRoamingCSV(t *testing.T) {
	ex := export.New(seeded(t), nil)
	var buf bytes.Buffer
	require.NoError(t, ex.RoamingCSV(context.Background(), &buf, t0, t0))

	recs := readCSV(t, buf.Bytes())
	require.Len(t, recs, 2)
	assert.Equal(t, []string{"2025-03-01T12:00:00Z", "home", "aa", "bb", "40", "80", "1", "36"}, recs[1])
}

func TestCSV_EmptyRangeHasHeaderOnly(t *testing.T) {
	ex := export.New(seeded(t), nil)
	var buf bytes.Buffer
	require.NoError(t, ex.PingCSV(context.Background(), &buf, t0.Add(time.Hour), t0.Add(2*time.Hour)))
	assert.Len(t, readCSV(t, buf.Bytes()), 1)
}

func TestJSON_ContainsEveryRowType(t *testing.T) {
	ex := export.New(seeded(t), nil)
	var buf bytes.Buffer
	require.NoError(t, ex.JSON(context.Background(), &buf, t0.Add(-time.Minute), t0.Add(time.Minute)))

	var doc export.Document
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Len(t, doc.WifiSnapshots, 1)
	assert.Len(t, doc.PingResults, 2)
	assert.Len(t, doc.DnsResults, 1)
	assert.Len(t, doc.Alerts, 1)
	assert.Len(t, doc.RoamingEvents, 1)
	assert.Equal(t, t0.Add(-time.Minute), doc.Period.From)
}

func TestWriteFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	ex := export.New(seeded(t), nil)

	path, err := ex.WriteFile(context.Background(), dir, export.KindPing, t0, t0)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filepath.Base(path), "ping_data_"))
	assert.Equal(t, ".csv", filepath.Ext(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, readCSV(t, data), 3)

	path, err = ex.WriteFile(context.Background(), dir, export.KindAll, t0, t0)
	require.NoError(t, err)
	assert.Equal(t, ".json", filepath.Ext(path))
}

type failingSource struct{ *store.Bolt }

func (failingSource) PingResults(context.Context, time.Time, time.Time) ([]models.PingResult, error) {
	return nil, errors.New("closed")
}

func TestWriteFile_RemovesFileOnError(t *testing.T) {
	dir := t.TempDir()
	ex := export.New(failingSource{}, nil)

	_, err := ex.WriteFile(context.Background(), dir, export.KindPing, t0, t0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "export: ping results: closed")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWrite_UnknownKind(t *testing.T) {
	err := export.New(seeded(t), nil).Write(context.Background(), &bytes.Buffer{}, "bogus", t0, t0)
	assert.ErrorContains(t, err, `unknown kind "bogus"`)
}
