// Package alert turns monitoring snapshots into rate-limited alert events.
//
// Rules are evaluated in a fixed order and are independent of each other, so
// one snapshot may fire several alerts. Each alert type has its own cooldown
// window. The last-fired time is recorded before the event is persisted, so
// a failing repository cannot cause an alert storm.
//
// Engine is not safe for concurrent Evaluate calls; the orchestrator calls it
// from its single sequential evaluation step.
package alert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/vpbank/homelink_monitor/models"
	"github.com/vpbank/homelink_monitor/pkg/homelinkmonitor/config"
)

// ─────────────────────────────────────────────────────────────────────────────
// Collaborators
// ─────────────────────────────────────────────────────────────────────────────

// Repository persists fired alerts.
type Repository interface {
	SaveAlert(ctx context.Context, alert models.AlertEvent) error
}

// Publisher broadcasts fired alerts to live subscribers.
type Publisher interface {
	PublishAlert(alert models.AlertEvent)
}

// Notifier shows a user-facing notification. It must not block.
type Notifier interface {
	Show(severity models.Severity, message string)
}

// Observer is told about every alert that passes its cooldown.
type Observer interface {
	AlertFired(alertType string, severity models.Severity)
}

// Config holds the thresholds the rules compare against.
type Config struct {
	SignalLowThreshold int
	LatencyHighMs      float64
	Cooldown           time.Duration
	ShowNotifications  bool
}

// ConfigFrom extracts the engine settings from the application config.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		SignalLowThreshold: cfg.Alerts.SignalLowThreshold,
		LatencyHighMs:      cfg.Alerts.LatencyHighMs,
		Cooldown:           cfg.Alerts.Cooldown,
		ShowNotifications:  cfg.ShowNotifications,
	}
}

// Option customises an Engine.
type Option func(*Engine)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithObserver registers an observer for fired alerts.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// ─────────────────────────────────────────────────────────────────────────────
// Engine
// ─────────────────────────────────────────────────────────────────────────────

// Engine evaluates the alert rules.
type Engine struct {
	cfg       Config
	repo      Repository
	publisher Publisher
	notifier  Notifier
	observer  Observer
	logger    *slog.Logger
	now       func() time.Time

	lastFired map[string]time.Time
}

// New creates an Engine. repo, publisher and notifier may be nil.
func New(cfg Config, repo Repository, publisher Publisher, notifier Notifier, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}
	e := &Engine{
		cfg:       cfg,
		repo:      repo,
		publisher: publisher,
		notifier:  notifier,
		logger:    logger,
		now:       time.Now,
		lastFired: make(map[string]time.Time),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// candidate is an alert a rule wants to raise, before the cooldown check.
type candidate struct {
	alertType string
	severity  models.Severity
	message   string
	details   string
}

// Evaluate applies every rule to snap and fires the alerts that are not in
// cooldown. It returns the fired alerts and any persistence errors joined
// together; a persistence error never stops publication or notification.
func (e *Engine) Evaluate(ctx context.Context, snap models.MonitoringSnapshot) ([]models.AlertEvent, error) {
	var (
		fired []models.AlertEvent
		errs  []error
	)
	for _, c := range e.rules(snap) {
		alert, ok := e.fire(ctx, c)
		if !ok {
			continue
		}
		fired = append(fired, alert.event)
		if alert.err != nil {
			errs = append(errs, alert.err)
		}
	}
	return fired, errors.Join(errs...)
}

// rules returns the candidates for snap in evaluation order.
func (e *Engine) rules(snap models.MonitoringSnapshot) []candidate {
	var out []candidate
	wifi := snap.Wifi
	wifiUp := wifi != nil && wifi.IsConnected

	if wifiUp && wifi.SignalQuality > 0 && wifi.SignalQuality < e.cfg.SignalLowThreshold {
		out = append(out, candidate{
			alertType: models.AlertSignalLow,
			severity:  models.SeverityWarning,
			message:   fmt.Sprintf("Wi-Fi signal is low: %d%%", wifi.SignalQuality),
			details:   fmt.Sprintf("SSID: %s, RSSI: %d dBm", wifi.SSID, wifi.RssiDbm),
		})
	}

	if wifi != nil && !wifi.IsConnected {
		out = append(out, candidate{
			alertType: models.AlertDisconnected,
			severity:  models.SeverityCritical,
			message:   "Wi-Fi disconnected",
			details:   "No Wi-Fi connection detected",
		})
	}

	if gw, ok := snap.GatewayPing(); ok {
		switch {
		case !gw.IsSuccess:
			out = append(out, candidate{
				alertType: models.AlertGatewayUnreachable,
				severity:  models.SeverityCritical,
				message:   "Gateway is unreachable",
				details:   "Target: " + gw.Target,
			})
		case gw.LatencyMs != nil && *gw.LatencyMs > e.cfg.LatencyHighMs:
			out = append(out, candidate{
				alertType: models.AlertHighLatency,
				severity:  models.SeverityWarning,
				message:   fmt.Sprintf("High gateway latency: %.0fms", *gw.LatencyMs),
				details:   "Threshold: " + strconv.FormatFloat(e.cfg.LatencyHighMs, 'f', -1, 64) + "ms",
			})
		}
	}

	if h := snap.HttpProbe; h != nil && !h.IsSuccess && wifiUp {
		out = append(out, candidate{
			alertType: models.AlertNoInternet,
			severity:  models.SeverityWarning,
			message:   "Internet connectivity lost",
			details:   h.Error,
		})
	}

	if h := snap.HttpProbe; h != nil && h.IsCaptivePortal {
		out = append(out, candidate{
			alertType: models.AlertCaptivePortal,
			severity:  models.SeverityInfo,
			message:   "Captive portal detected",
			details:   "You may need to authenticate with the network",
		})
	}
	return out
}

type firedAlert struct {
	event models.AlertEvent
	err   error
}

// fire applies the cooldown and, if the alert passes, persists, publishes
// and notifies in that order.
func (e *Engine) fire(ctx context.Context, c candidate) (firedAlert, bool) {
	now := e.now()
	if last, ok := e.lastFired[c.alertType]; ok && now.Sub(last) < e.cfg.Cooldown {
		e.logger.Debug("alert: suppressed by cooldown", "type", c.alertType)
		return firedAlert{}, false
	}
	e.lastFired[c.alertType] = now

	ev := models.AlertEvent{
		ID:        uuid.NewString(),
		Timestamp: now.UTC(),
		AlertType: c.alertType,
		Severity:  c.severity,
		Message:   c.message,
		Details:   c.details,
	}
	e.logger.Info("alert: fired", "type", ev.AlertType, "severity", string(ev.Severity), "message", ev.Message)

	var err error
	if e.repo != nil {
		if err = e.repo.SaveAlert(ctx, ev); err != nil {
			e.logger.Error("alert: persist failed", "type", ev.AlertType, "error", err.Error())
			err = fmt.Errorf("alert: save %s: %w", ev.AlertType, err)
		}
	}
	if e.publisher != nil {
		e.publisher.PublishAlert(ev)
	}
	if e.cfg.ShowNotifications && e.notifier != nil {
		e.notifier.Show(ev.Severity, ev.Message)
	}
	if e.observer != nil {
		e.observer.AlertFired(ev.AlertType, ev.Severity)
	}
	return firedAlert{event: ev, err: err}, true
}

type noopWriter struct{}

func (noopWriter) Write(p []byte) (int, error) { return len(p), nil }
