package orchestrator_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vpbank/homelink_monitor/models"
	"github.com/vpbank/homelink_monitor/pkg/homelinkmonitor/config"
	"github.com/vpbank/homelink_monitor/pkg/homelinkmonitor/orchestrator"
)

// ─────────────────────────────────────────────────────────────────────────────
// Mocks
// ─────────────────────────────────────────────────────────────────────────────

type wifiStub struct{ snap *models.WifiSnapshot }

func (w wifiStub) Snapshot() *models.WifiSnapshot { return w.snap }

type netStub struct{}

func (netStub) Snapshot() *models.NetworkSnapshot {
	return &models.NetworkSnapshot{LocalIP: "192.168.1.20", Gateway: "192.168.1.1", IsConnected: true}
}

type pingStub struct {
	delay time.Duration
	panic bool
}

func (p pingStub) PingAll(ctx context.Context, _ config.Probes) []models.PingResult {
	if p.panic {
		panic("icmp socket exploded")
	}
	select {
	case <-time.After(p.delay):
	case <-ctx.Done():
	}
	return []models.PingResult{models.PingOK("192.168.1.1", models.LabelGateway, 5, 64)}
}

type dnsStub struct{}

func (dnsStub) QueryAll(context.Context, config.Probes) []models.DnsResult {
	return []models.DnsResult{{Server: "8.8.8.8", IsSuccess: true, LatencyMs: models.Float(9)}}
}

type httpStub struct{ panic bool }

func (h httpStub) Check(context.Context, config.Probes) *models.HttpProbeResult {
	if h.panic {
		panic("bad transport")
	}
	return &models.HttpProbeResult{IsSuccess: true, StatusCode: 200, LatencyMs: models.Float(30)}
}

// recorder captures the order of side effects across collaborators.
type recorder struct {
	mu       sync.Mutex
	steps    []string
	snaps    []models.MonitoringSnapshot
	saveErr  error
	alertErr error
	panicky  bool
	cycles   int
}

func (r *recorder) step(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps = append(r.steps, s)
}

func (r *recorder) PublishSnapshot(s models.MonitoringSnapshot) {
	r.step("publish")
	r.mu.Lock()
	r.snaps = append(r.snaps, s)
	r.mu.Unlock()
}

func (r *recorder) SaveSnapshot(context.Context, models.MonitoringSnapshot) error {
	r.step("persist")
	return r.saveErr
}

func (r *recorder) Evaluate(context.Context, models.MonitoringSnapshot) ([]models.AlertEvent, error) {
	r.step("alerts")
	if r.panicky {
		panic("rule bug")
	}
	return nil, r.alertErr
}

func (r *recorder) Check(context.Context, *models.WifiSnapshot) (*models.RoamingEvent, error) {
	r.step("roaming")
	return nil, nil
}

func (r *recorder) CycleCompleted(models.MonitoringSnapshot, time.Duration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cycles++
}

func newOrchestrator(rec *recorder, ping pingStub, http httpStub) *orchestrator.Orchestrator {
	return orchestrator.New(config.Default(), orchestrator.Deps{
		Wifi:       wifiStub{&models.WifiSnapshot{SSID: "home", BSSID: "aa", SignalQuality: 80, IsConnected: true}},
		Network:    netStub{},
		Ping:       ping,
		DNS:        dnsStub{},
		HTTP:       http,
		Repository: rec,
		Publisher:  rec,
		Alerts:     rec,
		Roaming:    rec,
		Observer:   rec,
	}, nil)
}

// ─────────────────────────────────────────────────────────────────────────────
// Tests
// ─────────────────────────────────────────────────────────────────────────────

func TestRunCycle_StepOrder(t *testing.T) {
	rec := &recorder{}
	o := newOrchestrator(rec, pingStub{}, httpStub{})

	require.NoError(t, o.RunCycle(context.Background()))
	assert.Equal(t, []string{"publish", "persist", "alerts", "roaming"}, rec.steps)

	require.Len(t, rec.snaps, 1)
	s := rec.snaps[0]
	assert.Equal(t, models.StatusExcellent, s.OverallStatus)
	assert.Len(t, s.PingResults, 1)
	assert.Len(t, s.DnsResults, 1)
	require.NotNil(t, s.HttpProbe)
	require.NotNil(t, s.Network)
	assert.False(t, s.Timestamp.IsZero())
	assert.Equal(t, 1, rec.cycles)
}

func TestRunCycle_PersistFailureStillEvaluates(t *testing.T) {
	rec := &recorder{saveErr: errors.New("database is locked")}
	o := newOrchestrator(rec, pingStub{}, httpStub{})

	err := o.RunCycle(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is locked")
	assert.Equal(t, []string{"publish", "persist", "alerts", "roaming"}, rec.steps)
}

func TestRunCycle_EvaluationFailuresAreContained(t *testing.T) {
	rec := &recorder{panicky: true}
	o := newOrchestrator(rec, pingStub{}, httpStub{})
	assert.NoError(t, o.RunCycle(context.Background()))
	assert.Contains(t, rec.steps, "roaming", "a panicking alert engine must not skip roaming")

	rec2 := &recorder{alertErr: errors.New("save failed")}
	assert.NoError(t, newOrchestrator(rec2, pingStub{}, httpStub{}).RunCycle(context.Background()))
}

func TestRunCycle_ProbePanicsAreContained(t *testing.T) {
	rec := &recorder{}
	o := newOrchestrator(rec, pingStub{panic: true}, httpStub{panic: true})

	require.NoError(t, o.RunCycle(context.Background()))
	require.Len(t, rec.snaps, 1)
	s := rec.snaps[0]
	assert.Empty(t, s.PingResults)
	assert.Len(t, s.DnsResults, 1, "the DNS probe is unaffected")
	require.NotNil(t, s.HttpProbe)
	assert.False(t, s.HttpProbe.IsSuccess)
	assert.Contains(t, s.HttpProbe.Error, "bad transport")
}

func TestRunCycle_CancelledDuringProbesHasNoSideEffects(t *testing.T) {
	rec := &recorder{}
	o := newOrchestrator(rec, pingStub{delay: time.Second}, httpStub{})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	err := o.RunCycle(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, rec.steps)
	assert.Equal(t, 0, rec.cycles)
}

func TestRunCycle_NilCollaboratorsAreSkipped(t *testing.T) {
	o := orchestrator.New(config.Default(), orchestrator.Deps{}, nil)
	snap, err := o.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.StatusDisconnected, snap.OverallStatus)
	assert.NoError(t, o.RunCycle(context.Background()))
}

func TestEntry_UsesPollingInterval(t *testing.T) {
	cfg := config.Default()
	cfg.PollingInterval = 7 * time.Second
	e := orchestrator.New(cfg, orchestrator.Deps{}, nil).Entry()
	assert.Equal(t, "poll", e.Name)
	assert.Equal(t, 7*time.Second, e.Interval)
	assert.Equal(t, orchestrator.InitialDelay, e.InitialDelay)
	assert.NotNil(t, e.Job)
}
