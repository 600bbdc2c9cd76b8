package file

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"os"
)

// SplitConfig controls SplitTransport.
type SplitConfig struct {
	// SnapshotWriter receives monitoring snapshot records. nil means
	// os.Stdout.
	SnapshotWriter io.Writer

	// EventWriter receives alert and roaming records. nil means the
	// snapshot writer, so both streams interleave in one destination.
	EventWriter io.Writer

	// Newline terminates each record. Default "\n".
	Newline string
}

// SplitTransport routes each record by content: anything carrying an alert
// or roaming key goes to the event writer, everything else to the snapshot
// writer. It is safe for concurrent use.
//
// Routing is a bytes.Contains check on the serialised keys rather than a
// decode, since every record has already been marshalled once.
type SplitTransport struct {
	snapshots *lineWriter
	events    *lineWriter
	closers   []io.Closer
	logger    *slog.Logger
}

var eventMarkers = [][]byte{
	[]byte(`"alert_type"`),
	[]byte(`"previous_bssid"`),
}

// NewSplit builds a SplitTransport. Writers that implement io.Closer, other
// than os.Stdout and os.Stderr, are closed by Close.
func NewSplit(cfg SplitConfig, logger *slog.Logger) *SplitTransport {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}
	nl := cfg.Newline
	if nl == "" {
		nl = "\n"
	}
	sw := cfg.SnapshotWriter
	if sw == nil {
		sw = os.Stdout
	}

	st := &SplitTransport{logger: logger}
	st.snapshots = &lineWriter{name: "snapshot", w: sw, nl: []byte(nl), logger: logger}
	st.addCloser(sw)

	if cfg.EventWriter == nil {
		st.events = st.snapshots
	} else {
		st.events = &lineWriter{name: "event", w: cfg.EventWriter, nl: []byte(nl), logger: logger}
		st.addCloser(cfg.EventWriter)
	}
	return st
}

func (st *SplitTransport) addCloser(w io.Writer) {
	if w == os.Stdout || w == os.Stderr {
		return
	}
	if c, ok := w.(io.Closer); ok {
		st.closers = append(st.closers, c)
	}
}

// Send writes data to the writer its content selects.
func (st *SplitTransport) Send(data []byte) error {
	if isEvent(data) {
		return st.events.send(data)
	}
	return st.snapshots.send(data)
}

// Close closes every owned writer and joins their errors.
func (st *SplitTransport) Close() error {
	var errs []error
	for _, c := range st.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func isEvent(data []byte) bool {
	for _, m := range eventMarkers {
		if bytes.Contains(data, m) {
			return true
		}
	}
	return false
}
