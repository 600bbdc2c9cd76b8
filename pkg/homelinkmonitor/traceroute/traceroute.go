// Package traceroute discovers the IPv4 path to a host by sending ICMP
// echoes with increasing TTL, then decorates each hop with its reverse DNS
// name, a private-address flag and a location parsed from the hostname.
package traceroute

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/vpbank/homelink_monitor/models"
	"github.com/vpbank/homelink_monitor/pkg/homelinkmonitor/geo"
	"github.com/vpbank/homelink_monitor/pkg/homelinkmonitor/netinfo"
)

const wildcard = "*"

// ErrNoReply is returned by a HopFunc when nothing answered before the
// timeout.
var ErrNoReply = errors.New("traceroute: no reply")

// HopFunc sends one echo to dst with the given TTL and reports which router
// answered and how long it took.
type HopFunc func(ctx context.Context, dst net.IP, ttl int, timeout time.Duration) (from net.IP, rtt time.Duration, err error)

// Config holds the trace limits.
type Config struct {
	MaxHops    int
	HopTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxHops <= 0 {
		c.MaxHops = 30
	}
	if c.HopTimeout <= 0 {
		c.HopTimeout = 3 * time.Second
	}
	return c
}

// Option customises a Tracer.
type Option func(*Tracer)

// WithHopFunc replaces the raw-socket ICMP implementation.
func WithHopFunc(fn HopFunc) Option {
	return func(t *Tracer) { t.hop = fn }
}

// WithResolver replaces the forward and reverse DNS lookups.
func WithResolver(lookupIP func(ctx context.Context, host string) ([]net.IP, error), lookupAddr func(ctx context.Context, addr string) ([]string, error)) Option {
	return func(t *Tracer) {
		t.lookupIP = lookupIP
		t.lookupAddr = lookupAddr
	}
}

// Tracer runs traceroutes. It is safe for concurrent use.
type Tracer struct {
	cfg        Config
	hop        HopFunc
	lookupIP   func(ctx context.Context, host string) ([]net.IP, error)
	lookupAddr func(ctx context.Context, addr string) ([]string, error)
	logger     *slog.Logger
}

// New creates a Tracer. The default hop implementation needs a raw ICMP
// socket (root or CAP_NET_RAW).
func New(cfg Config, logger *slog.Logger, opts ...Option) *Tracer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}
	t := &Tracer{
		cfg:    cfg.withDefaults(),
		hop:    icmpHop,
		logger: logger,
		lookupIP: func(ctx context.Context, host string) ([]net.IP, error) {
			return net.DefaultResolver.LookupIP(ctx, "ip4", host)
		},
		lookupAddr: net.DefaultResolver.LookupAddr,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Run traces the path to target. onHop, when non-nil, is called as each hop
// completes. The trace stops at the destination, after MaxHops, or on
// cancellation, in which case the hops found so far are returned with
// ctx.Err().
func (t *Tracer) Run(ctx context.Context, target string, onHop func(models.TracerouteHop)) ([]models.TracerouteHop, error) {
	ips, err := t.lookupIP(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("traceroute: resolve %s: %w", target, err)
	}
	var dst net.IP
	for _, ip := range ips {
		if v4 := ip.To4(); v4 != nil {
			dst = v4
			break
		}
	}
	if dst == nil {
		return nil, fmt.Errorf("traceroute: %s has no IPv4 address", target)
	}
	t.logger.Info("traceroute: starting", "target", target, "address", dst.String(), "max_hops", t.cfg.MaxHops)

	var hops []models.TracerouteHop
	for ttl := 1; ttl <= t.cfg.MaxHops; ttl++ {
		if err := ctx.Err(); err != nil {
			return hops, err
		}

		from, rtt, err := t.hop(ctx, dst, ttl, t.cfg.HopTimeout)
		if ctx.Err() != nil {
			return hops, ctx.Err()
		}
		if err != nil && !errors.Is(err, ErrNoReply) {
			var perm *PermissionError
			if errors.As(err, &perm) {
				return hops, err
			}
			t.logger.Debug("traceroute: hop failed", "ttl", ttl, "error", err.Error())
		}

		hop := t.describe(ctx, ttl, from, rtt, err)
		hops = append(hops, hop)
		if onHop != nil {
			onHop(hop)
		}
		if err == nil && from.Equal(dst) {
			break
		}
	}
	return hops, nil
}

func (t *Tracer) describe(ctx context.Context, ttl int, from net.IP, rtt time.Duration, err error) models.TracerouteHop {
	if err != nil || from == nil {
		return models.TracerouteHop{
			HopNumber: ttl,
			Address:   wildcard,
			Hostname:  wildcard,
			IsTimeout: true,
			IsPrivate: true,
		}
	}
	addr := from.String()
	hop := models.TracerouteHop{
		HopNumber: ttl,
		Address:   addr,
		Hostname:  t.reverse(ctx, addr),
		LatencyMs: models.Float(float64(rtt) / float64(time.Millisecond)),
		IsPrivate: netinfo.IsPrivateOrLocal(addr),
	}
	if !hop.IsPrivate {
		if loc, ok := geo.Parse(hop.Hostname); ok {
			hop.Location = &loc
		}
	}
	return hop
}

// reverse returns the first PTR name for addr, or addr itself.
func (t *Tracer) reverse(ctx context.Context, addr string) string {
	names, err := t.lookupAddr(ctx, addr)
	if err != nil || len(names) == 0 {
		return addr
	}
	return strings.TrimSuffix(names[0], ".")
}

type noopWriter struct{}

func (noopWriter) Write(p []byte) (int, error) { return len(p), nil }
