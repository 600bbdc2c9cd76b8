// Package file writes formatted journal records to files or any io.Writer,
// one record per line.
//
// Journal position:
//
//	format/json → transport/file
//
// SplitTransport routes snapshot records and event records (alerts,
// roaming) to separate writers; RotatingFile gives either of them size-based
// rotation.
package file

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// Transport delivers one pre-formatted record. Close flushes and releases
// whatever the transport owns.
type Transport interface {
	Send(data []byte) error
	Close() error
}

// lineWriter serialises writes to w and terminates each record with nl.
type lineWriter struct {
	mu     sync.Mutex
	name   string
	w      io.Writer
	nl     []byte
	logger *slog.Logger
}

// send writes data and the terminator in one Write so a rotating writer
// never separates them.
func (lw *lineWriter) send(data []byte) error {
	rec := make([]byte, 0, len(data)+len(lw.nl))
	rec = append(append(rec, data...), lw.nl...)

	lw.mu.Lock()
	defer lw.mu.Unlock()

	if _, err := lw.w.Write(rec); err != nil {
		lw.logger.Error("transport/file: write failed",
			"stream", lw.name, "error", err.Error(), "bytes", len(data),
		)
		return fmt.Errorf("transport/file: %s write: %w", lw.name, err)
	}
	lw.logger.Debug("transport/file: record written", "stream", lw.name, "bytes", len(data))
	return nil
}

type noopWriter struct{}

func (noopWriter) Write(p []byte) (int, error) { return len(p), nil }
