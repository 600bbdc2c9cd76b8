// Package roaming detects access-point handoffs: a BSSID change between two
// consecutive connected Wi-Fi readings.
package roaming

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vpbank/homelink_monitor/models"
)

// Repository persists roaming events and their companion alerts.
type Repository interface {
	SaveRoamingEvent(ctx context.Context, ev models.RoamingEvent) error
	SaveAlert(ctx context.Context, alert models.AlertEvent) error
}

// Publisher broadcasts roaming events and alerts.
type Publisher interface {
	PublishRoaming(ev models.RoamingEvent)
	PublishAlert(alert models.AlertEvent)
}

// Observer is told about every roaming alert the detector raises.
type Observer interface {
	AlertFired(alertType string, severity models.Severity)
}

// Option customises a Detector.
type Option func(*Detector)

// WithObserver registers an observer for roaming alerts.
func WithObserver(o Observer) Option {
	return func(d *Detector) { d.observer = o }
}

// Detector remembers only the previous connected observation. Every BSSID
// change is reported; there is no cooldown. It is not safe for concurrent
// use.
type Detector struct {
	repo      Repository
	publisher Publisher
	observer  Observer
	logger    *slog.Logger
	now       func() time.Time

	lastBSSID   string
	lastSignal  int
	lastChannel int
}

// New creates a Detector. repo and publisher may be nil.
func New(repo Repository, publisher Publisher, logger *slog.Logger, opts ...Option) *Detector {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}
	d := &Detector{repo: repo, publisher: publisher, logger: logger, now: time.Now}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Check compares wifi with the previous observation. Readings that are nil,
// disconnected or carry no BSSID are ignored and leave the state untouched.
// On a handoff it returns the new event; persistence errors are returned
// alongside it and never prevent publication or the state update.
func (d *Detector) Check(ctx context.Context, wifi *models.WifiSnapshot) (*models.RoamingEvent, error) {
	if wifi == nil || !wifi.IsConnected || wifi.BSSID == "" {
		return nil, nil
	}
	defer func() {
		d.lastBSSID = wifi.BSSID
		d.lastSignal = wifi.SignalQuality
		d.lastChannel = wifi.Channel
	}()

	if d.lastBSSID == "" || d.lastBSSID == wifi.BSSID {
		return nil, nil
	}

	now := d.now().UTC()
	ev := models.RoamingEvent{
		ID:                    uuid.NewString(),
		Timestamp:             now,
		PreviousBSSID:         d.lastBSSID,
		NewBSSID:              wifi.BSSID,
		SSID:                  wifi.SSID,
		PreviousSignalQuality: d.lastSignal,
		NewSignalQuality:      wifi.SignalQuality,
		PreviousChannel:       d.lastChannel,
		NewChannel:            wifi.Channel,
	}
	alert := models.AlertEvent{
		ID:        uuid.NewString(),
		Timestamp: now,
		AlertType: models.AlertRoaming,
		Severity:  models.SeverityInfo,
		Message:   fmt.Sprintf("Roamed from %s to %s", ev.PreviousBSSID, ev.NewBSSID),
		Details: fmt.Sprintf("Ch %d -> Ch %d, Signal %d%% -> %d%%",
			ev.PreviousChannel, ev.NewChannel, ev.PreviousSignalQuality, ev.NewSignalQuality),
	}
	d.logger.Info("roaming: handoff detected",
		"from", ev.PreviousBSSID, "to", ev.NewBSSID,
		"signal_from", ev.PreviousSignalQuality, "signal_to", ev.NewSignalQuality)

	var errs []error
	if d.repo != nil {
		if err := d.repo.SaveRoamingEvent(ctx, ev); err != nil {
			errs = append(errs, fmt.Errorf("roaming: save event: %w", err))
		}
		if err := d.repo.SaveAlert(ctx, alert); err != nil {
			errs = append(errs, fmt.Errorf("roaming: save alert: %w", err))
		}
	}
	if d.publisher != nil {
		d.publisher.PublishRoaming(ev)
		d.publisher.PublishAlert(alert)
	}
	if d.observer != nil {
		d.observer.AlertFired(alert.AlertType, alert.Severity)
	}
	return &ev, errors.Join(errs...)
}

type noopWriter struct{}

func (noopWriter) Write(p []byte) (int, error) { return len(p), nil }
