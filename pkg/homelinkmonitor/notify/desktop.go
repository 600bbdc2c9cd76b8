// Package notify delivers user-facing notifications for fired alerts via the
// freedesktop notify-send tool.
//
// Show never blocks the caller: notifications go through a bounded queue
// drained by Run, and a full queue drops the notification. Delivery is best
// effort; failures are logged and never surfaced.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"sync/atomic"
	"time"

	"github.com/vpbank/homelink_monitor/models"
)

// Title prefixes every notification summary.
const Title = "HomeLink Monitor"

// Config holds the notifier settings.
type Config struct {
	// Enabled turns on delivery. When false, or when Command cannot be
	// found, notifications are only logged.
	Enabled   bool
	Command   string
	QueueSize int
	Timeout   time.Duration
}

func (c Config) withDefaults() Config {
	if c.Command == "" {
		c.Command = "notify-send"
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 16
	}
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
	return c
}

// commandRunner runs an external command. Tests replace it.
type commandRunner func(ctx context.Context, name string, args ...string) error

func execRunner(ctx context.Context, name string, args ...string) error {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil && len(out) > 0 {
		return fmt.Errorf("%w: %s", err, out)
	}
	return err
}

type note struct {
	severity models.Severity
	message  string
}

// Option customises a Desktop.
type Option func(*Desktop)

func withRunner(r commandRunner, path string) Option {
	return func(d *Desktop) {
		d.run = r
		d.path = path
	}
}

// Desktop is the notify-send notifier.
type Desktop struct {
	cfg     Config
	path    string
	run     commandRunner
	queue   chan note
	dropped atomic.Uint64
	logger  *slog.Logger
}

// NewDesktop creates a Desktop. Run must be started for anything to be
// delivered.
func NewDesktop(cfg Config, logger *slog.Logger, opts ...Option) *Desktop {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}
	cfg = cfg.withDefaults()
	d := &Desktop{
		cfg:    cfg,
		run:    execRunner,
		queue:  make(chan note, cfg.QueueSize),
		logger: logger,
	}
	if cfg.Enabled {
		if p, err := exec.LookPath(cfg.Command); err == nil {
			d.path = p
		} else {
			logger.Warn("notify: command not found, notifications will only be logged",
				"command", cfg.Command, "error", err.Error())
		}
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Show queues a notification. It never blocks.
func (d *Desktop) Show(severity models.Severity, message string) {
	select {
	case d.queue <- note{severity: severity, message: message}:
	default:
		d.dropped.Add(1)
		d.logger.Warn("notify: queue full, notification dropped", "severity", string(severity))
	}
}

// Dropped returns how many notifications were discarded on a full queue.
func (d *Desktop) Dropped() uint64 { return d.dropped.Load() }

// Run delivers queued notifications until ctx is cancelled.
func (d *Desktop) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case n := <-d.queue:
			d.deliver(ctx, n)
		}
	}
}

func (d *Desktop) deliver(ctx context.Context, n note) {
	summary := fmt.Sprintf("%s - %s", Title, n.severity)
	if !d.cfg.Enabled || d.path == "" {
		d.logger.Info("notify: "+summary, "message", n.message)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()
	args := []string{
		"--app-name=" + Title,
		"--urgency=" + urgency(n.severity),
		summary,
		n.message,
	}
	if err := d.run(ctx, d.path, args...); err != nil {
		d.logger.Warn("notify: delivery failed", "error", err.Error())
	}
}

func urgency(s models.Severity) string {
	switch s {
	case models.SeverityCritical:
		return "critical"
	case models.SeverityWarning:
		return "normal"
	}
	return "low"
}

type noopWriter struct{}

func (noopWriter) Write(p []byte) (int, error) { return len(p), nil }
