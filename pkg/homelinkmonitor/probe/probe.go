// Package probe implements the three per-cycle active measurements: ICMP
// echo to the gateway, resolvers and custom targets; A-record queries against
// the configured resolvers; and an HTTP GET used to detect captive portals.
//
// A probe never returns an error. Every failure (timeout, unreachable host,
// refused query, cancelled context) is reported in the result fields so one
// bad target cannot affect the others.
package probe

import (
	"context"
	"errors"
	"net"
	"os"
	"time"
)

// Failure reasons shared by the DNS and HTTP probes.
const (
	reasonTimeout   = "Timeout"
	reasonCancelled = "Cancelled"
)

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// isTimeout reports whether err is a deadline expiry from a context, a
// socket deadline or a net.Error.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

type noopWriter struct{}

func (noopWriter) Write(p []byte) (int, error) { return len(p), nil }
