// Package orchestrator runs the monitoring poll cycle: read the local link
// state, fan out the network probes, classify the result, then publish,
// persist and evaluate it.
//
// Within a cycle the steps are strictly sequenced; only the three probes
// run concurrently. The scheduler guarantees cycles never overlap, which is
// what lets the alert engine and roaming detector keep lock-free state.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vpbank/homelink_monitor/models"
	"github.com/vpbank/homelink_monitor/pkg/homelinkmonitor/config"
	"github.com/vpbank/homelink_monitor/pkg/homelinkmonitor/scheduler"
)

// InitialDelay is the pause between Start and the first cycle.
const InitialDelay = 500 * time.Millisecond

// ─────────────────────────────────────────────────────────────────────────────
// Collaborators: interfaces for dependency injection
// ─────────────────────────────────────────────────────────────────────────────

// WifiProvider reads the current Wi-Fi link. nil means no wireless adapter.
type WifiProvider interface {
	Snapshot() *models.WifiSnapshot
}

// NetworkProvider reads the active adapter. nil means no usable adapter.
type NetworkProvider interface {
	Snapshot() *models.NetworkSnapshot
}

type PingProber interface {
	PingAll(ctx context.Context, probes config.Probes) []models.PingResult
}

type DNSProber interface {
	QueryAll(ctx context.Context, probes config.Probes) []models.DnsResult
}

type HTTPProber interface {
	Check(ctx context.Context, probes config.Probes) *models.HttpProbeResult
}

// Repository persists the rows of a snapshot.
type Repository interface {
	SaveSnapshot(ctx context.Context, snap models.MonitoringSnapshot) error
}

// Publisher broadcasts snapshots. It must not block.
type Publisher interface {
	PublishSnapshot(snap models.MonitoringSnapshot)
}

type AlertEvaluator interface {
	Evaluate(ctx context.Context, snap models.MonitoringSnapshot) ([]models.AlertEvent, error)
}

type RoamingChecker interface {
	Check(ctx context.Context, wifi *models.WifiSnapshot) (*models.RoamingEvent, error)
}

// Observer sees every completed cycle, successful or not.
type Observer interface {
	CycleCompleted(snap models.MonitoringSnapshot, elapsed time.Duration, err error)
}

// Deps bundles the collaborators. Any field may be nil; the matching step
// is then skipped.
type Deps struct {
	Wifi       WifiProvider
	Network    NetworkProvider
	Ping       PingProber
	DNS        DNSProber
	HTTP       HTTPProber
	Repository Repository
	Publisher  Publisher
	Alerts     AlertEvaluator
	Roaming    RoamingChecker
	Observer   Observer
}

// ─────────────────────────────────────────────────────────────────────────────
// Orchestrator
// ─────────────────────────────────────────────────────────────────────────────

// Orchestrator performs poll cycles.
type Orchestrator struct {
	interval time.Duration
	probes   config.Probes
	deps     Deps
	logger   *slog.Logger
	now      func() time.Time
}

// New creates an Orchestrator from the polling and probe settings in cfg.
func New(cfg *config.Config, deps Deps, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}
	return &Orchestrator{
		interval: cfg.PollingInterval,
		probes:   cfg.Probes,
		deps:     deps,
		logger:   logger,
		now:      time.Now,
	}
}

// Entry returns the scheduler entry that drives this orchestrator.
func (o *Orchestrator) Entry() scheduler.Entry {
	return scheduler.Entry{
		Name:         "poll",
		Interval:     o.interval,
		InitialDelay: InitialDelay,
		Job:          o,
	}
}

// RunCycle performs exactly one poll cycle. It returns ctx.Err() without
// any side effect when cancelled during the probes, and a persistence error
// after alerts and roaming have still been evaluated.
func (o *Orchestrator) RunCycle(ctx context.Context) error {
	start := time.Now()

	snap, err := o.Collect(ctx)
	if err != nil {
		return err
	}

	if o.deps.Publisher != nil {
		o.deps.Publisher.PublishSnapshot(snap)
	}

	var cycleErr error
	if o.deps.Repository != nil {
		if err := o.deps.Repository.SaveSnapshot(ctx, snap); err != nil {
			o.logger.Error("orchestrator: persist snapshot failed", "error", err.Error())
			cycleErr = fmt.Errorf("orchestrator: persist snapshot: %w", err)
		}
	}

	o.evaluate(ctx, snap)

	elapsed := time.Since(start)
	if o.deps.Observer != nil {
		o.deps.Observer.CycleCompleted(snap, elapsed, cycleErr)
	}
	o.logger.Debug("orchestrator: cycle complete",
		"status", snap.OverallStatus.String(),
		"pings", len(snap.PingResults),
		"elapsed", elapsed,
	)
	return cycleErr
}

// Collect reads the link state and runs the probes, returning a classified
// snapshot. It is the side-effect-free half of RunCycle.
func (o *Orchestrator) Collect(ctx context.Context) (models.MonitoringSnapshot, error) {
	snap := models.MonitoringSnapshot{Timestamp: o.now().UTC()}
	if o.deps.Wifi != nil {
		snap.Wifi = o.deps.Wifi.Snapshot()
	}
	if o.deps.Network != nil {
		snap.Network = o.deps.Network.Snapshot()
	}

	var g errgroup.Group
	if p := o.deps.Ping; p != nil {
		g.Go(func() error {
			defer o.recoverProbe("ping", nil)
			snap.PingResults = p.PingAll(ctx, o.probes)
			return nil
		})
	}
	if d := o.deps.DNS; d != nil {
		g.Go(func() error {
			defer o.recoverProbe("dns", nil)
			snap.DnsResults = d.QueryAll(ctx, o.probes)
			return nil
		})
	}
	if h := o.deps.HTTP; h != nil {
		g.Go(func() error {
			defer o.recoverProbe("http", func(r any) {
				snap.HttpProbe = &models.HttpProbeResult{
					Timestamp: o.now().UTC(),
					URL:       o.probes.HTTPProbeURL,
					Error:     fmt.Sprintf("probe panic: %v", r),
				}
			})
			snap.HttpProbe = h.Check(ctx, o.probes)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return models.MonitoringSnapshot{}, err
	}
	snap.OverallStatus = Classify(snap)
	return snap, nil
}

// recoverProbe turns a probe panic into a logged failure. onPanic, when set,
// records a failed result in the snapshot.
func (o *Orchestrator) recoverProbe(name string, onPanic func(r any)) {
	r := recover()
	if r == nil {
		return
	}
	o.logger.Error("orchestrator: probe panicked", "probe", name, "panic", fmt.Sprint(r))
	if onPanic != nil {
		onPanic(r)
	}
}

// evaluate runs the alert engine and the roaming detector, each isolated so
// a failure in one never affects the other or the loop.
func (o *Orchestrator) evaluate(ctx context.Context, snap models.MonitoringSnapshot) {
	if o.deps.Alerts != nil {
		err := isolate(func() error {
			_, err := o.deps.Alerts.Evaluate(ctx, snap)
			return err
		})
		if err != nil {
			o.logger.Error("orchestrator: alert evaluation failed", "error", err.Error())
		}
	}
	if o.deps.Roaming != nil {
		err := isolate(func() error {
			_, err := o.deps.Roaming.Check(ctx, snap.Wifi)
			return err
		})
		if err != nil {
			o.logger.Error("orchestrator: roaming check failed", "error", err.Error())
		}
	}
}

var errPanic = errors.New("panic")

func isolate(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errPanic, r)
		}
	}()
	return fn()
}

type noopWriter struct{}

func (noopWriter) Write(p []byte) (int, error) { return len(p), nil }
