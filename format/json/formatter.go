// Package json serialises bus events for the on-disk journal. Every event
// becomes one self-contained JSON object so the journal files can be read
// line by line (JSON Lines) when PrettyPrint is off.
//
// Journal position:
//
//	bus.Subscription → format/json → transport/file
//
// The json struct tags live on the model types, so formatting is a single
// marshal call with optional indentation.
package json

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/vpbank/homelink_monitor/pkg/homelinkmonitor/bus"
)

// ─────────────────────────────────────────────────────────────────────────────
// Formatter interface
// ─────────────────────────────────────────────────────────────────────────────

// Formatter serialises a bus event into a byte slice.
type Formatter interface {
	Format(ev *bus.Event) ([]byte, error)
}

// ─────────────────────────────────────────────────────────────────────────────
// Configuration
// ─────────────────────────────────────────────────────────────────────────────

// Config controls JSONFormatter behaviour.
type Config struct {
	// PrettyPrint emits indented JSON. Indented output is no longer one
	// record per line.
	PrettyPrint bool

	// Indent is used when PrettyPrint is true. Defaults to two spaces.
	Indent string
}

// ─────────────────────────────────────────────────────────────────────────────
// JSONFormatter
// ─────────────────────────────────────────────────────────────────────────────

// JSONFormatter implements Formatter. It is safe for concurrent use.
type JSONFormatter struct {
	cfg    Config
	logger *slog.Logger
}

// New constructs a JSONFormatter. A nil logger is replaced by a no-op one.
func New(cfg Config, logger *slog.Logger) *JSONFormatter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}
	if cfg.PrettyPrint && cfg.Indent == "" {
		cfg.Indent = "  "
	}
	return &JSONFormatter{cfg: cfg, logger: logger}
}

// Format serialises the payload of ev, not the envelope: a snapshot event
// yields the snapshot object, an alert event the alert, and so on. The
// payload's own fields are enough for transport/file to route it.
func (f *JSONFormatter) Format(ev *bus.Event) ([]byte, error) {
	if ev == nil {
		return nil, fmt.Errorf("format/json: event must not be nil")
	}

	payload, err := payloadOf(ev)
	if err != nil {
		return nil, err
	}

	var data []byte
	if f.cfg.PrettyPrint {
		data, err = json.MarshalIndent(payload, "", f.cfg.Indent)
	} else {
		data, err = json.Marshal(payload)
	}
	if err != nil {
		f.logger.Error("format/json: marshal failed",
			"kind", string(ev.Kind),
			"error", err.Error(),
		)
		return nil, fmt.Errorf("format/json: marshal: %w", err)
	}

	f.logger.Debug("format/json: formatted event",
		"kind", string(ev.Kind),
		"bytes", len(data),
	)
	return data, nil
}

func payloadOf(ev *bus.Event) (any, error) {
	switch ev.Kind {
	case bus.KindSnapshot:
		if ev.Snapshot != nil {
			return ev.Snapshot, nil
		}
	case bus.KindAlert:
		if ev.Alert != nil {
			return ev.Alert, nil
		}
	case bus.KindRoaming:
		if ev.Roaming != nil {
			return ev.Roaming, nil
		}
	default:
		return nil, fmt.Errorf("format/json: unknown event kind %q", ev.Kind)
	}
	return nil, fmt.Errorf("format/json: %s event has no payload", ev.Kind)
}

// noopWriter discards all log output when no logger is provided.
type noopWriter struct{}

func (noopWriter) Write(p []byte) (int, error) { return len(p), nil }
