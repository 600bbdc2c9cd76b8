// Package retention periodically removes rows that fell out of the
// configured retention windows.
package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vpbank/homelink_monitor/pkg/homelinkmonitor/config"
	"github.com/vpbank/homelink_monitor/pkg/homelinkmonitor/scheduler"
)

const (
	// Interval is the time between purges.
	Interval = time.Hour
	// InitialDelay keeps the first purge off the startup path.
	InitialDelay = 5 * time.Minute
)

// Store is the subset of the repository the purger needs.
type Store interface {
	Purge(ctx context.Context, rawBefore, alertBefore time.Time) (int, error)
}

// Purger deletes expired rows. It implements scheduler.Job.
type Purger struct {
	store  Store
	raw    time.Duration
	alerts time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Purger from the retention windows in cfg.
func New(store Store, cfg config.Retention, logger *slog.Logger) *Purger {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}
	return &Purger{
		store:  store,
		raw:    cfg.RawData,
		alerts: cfg.Alerts,
		logger: logger,
		now:    time.Now,
	}
}

// Entry returns the scheduler entry for the hourly purge.
func (p *Purger) Entry() scheduler.Entry {
	return scheduler.Entry{
		Name:         "retention",
		Interval:     Interval,
		InitialDelay: InitialDelay,
		Job:          p,
	}
}

// RunCycle performs one purge.
func (p *Purger) RunCycle(ctx context.Context) error {
	now := p.now()
	rawBefore := now.Add(-p.raw)
	alertBefore := now.Add(-p.alerts)

	p.logger.Info("retention: purging", "raw_before", rawBefore.UTC(), "alerts_before", alertBefore.UTC())
	n, err := p.store.Purge(ctx, rawBefore, alertBefore)
	if err != nil {
		return fmt.Errorf("retention: purge: %w", err)
	}
	p.logger.Info("retention: purge complete", "removed", n)
	return nil
}

type noopWriter struct{}

func (noopWriter) Write(p []byte) (int, error) { return len(p), nil }
