package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
	"golang.org/x/sync/errgroup"

	"github.com/vpbank/homelink_monitor/models"
	"github.com/vpbank/homelink_monitor/pkg/homelinkmonitor/config"
)

// ErrTimeout is returned by an EchoFunc when no reply arrived in time.
var ErrTimeout = errors.New("probe: echo timed out")

// EchoFunc sends one ICMP echo to target and waits up to timeout for the
// reply. It returns the round-trip time and the reply's TTL.
type EchoFunc func(ctx context.Context, target string, timeout time.Duration) (rtt time.Duration, ttl int, err error)

// PingOption customises a Pinger.
type PingOption func(*Pinger)

// WithEchoFunc replaces the ICMP implementation, mostly for tests.
func WithEchoFunc(fn EchoFunc) PingOption {
	return func(p *Pinger) { p.echo = fn }
}

// Pinger pings the gateway, both resolvers and any custom targets in
// parallel, producing one result per target in that order.
type Pinger struct {
	gateway func() string
	echo    EchoFunc
	logger  *slog.Logger
}

// NewPinger creates a Pinger. gateway is called once per PingAll and may
// return "" when no default route exists, in which case the Gateway target
// is skipped.
func NewPinger(gateway func() string, logger *slog.Logger, opts ...PingOption) *Pinger {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}
	p := &Pinger{gateway: gateway, logger: logger}
	p.echo = (&icmpEcho{id: os.Getpid() & 0xffff, logger: logger}).Echo
	for _, o := range opts {
		o(p)
	}
	return p
}

type pingTarget struct {
	addr  string
	label string
}

// PingAll pings every configured target concurrently and waits for all of
// them.
func (p *Pinger) PingAll(ctx context.Context, probes config.Probes) []models.PingResult {
	targets := p.targets(probes)
	results := make([]models.PingResult, len(targets))

	var g errgroup.Group
	for i, t := range targets {
		g.Go(func() error {
			results[i] = p.Ping(ctx, t.addr, t.label, probes.PingTimeout)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Ping sends a single echo and converts the outcome to a result.
func (p *Pinger) Ping(ctx context.Context, target, label string, timeout time.Duration) models.PingResult {
	rtt, ttl, err := p.echo(ctx, target, timeout)
	switch {
	case err == nil:
		return models.PingOK(target, label, millis(rtt), ttl)
	case ctx.Err() != nil:
		return models.PingFailed(target, label, models.PingCancelled)
	case errors.Is(err, ErrTimeout):
		return models.PingFailed(target, label, models.PingTimedOut)
	default:
		p.logger.Debug("probe: ping failed", "target", target, "error", err.Error())
		return models.PingFailed(target, label, models.PingError)
	}
}

func (p *Pinger) targets(probes config.Probes) []pingTarget {
	var out []pingTarget
	if p.gateway != nil {
		if gw := p.gateway(); gw != "" {
			out = append(out, pingTarget{gw, models.LabelGateway})
		}
	}
	out = append(out,
		pingTarget{probes.PrimaryDNS, models.LabelDNS1},
		pingTarget{probes.SecondaryDNS, models.LabelDNS2},
	)
	for _, c := range probes.CustomTargets {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, pingTarget{c, models.LabelCustom})
		}
	}
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// ICMP implementation
// ─────────────────────────────────────────────────────────────────────────────

// icmpEcho uses an unprivileged datagram ICMP socket where the kernel allows
// it (net.ipv4.ping_group_range) and falls back to a raw socket.
type icmpEcho struct {
	id     int
	seq    atomic.Uint32
	logger *slog.Logger
}

func (e *icmpEcho) Echo(ctx context.Context, target string, timeout time.Duration) (time.Duration, int, error) {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ips, err := net.DefaultResolver.LookupNetIP(ctx, "ip4", target)
	if err != nil {
		if ctx.Err() != nil {
			return 0, 0, ErrTimeout
		}
		return 0, 0, fmt.Errorf("resolve %s: %w", target, err)
	}
	if len(ips) == 0 {
		return 0, 0, fmt.Errorf("resolve %s: no IPv4 address", target)
	}
	dst := ips[0].AsSlice()

	conn, privileged, err := listenICMP()
	if err != nil {
		return 0, 0, err
	}
	defer conn.Close()

	pc := conn.IPv4PacketConn()
	_ = pc.SetControlMessage(ipv4.FlagTTL, true)

	deadline, _ := ctx.Deadline()
	if err := conn.SetDeadline(deadline); err != nil {
		return 0, 0, err
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.SetReadDeadline(time.Now()) })
	defer stop()

	seq := int(e.seq.Add(1) & 0xffff)
	msg := icmp.Message{
		Type: ipv4.ICMPTypeEcho,
		Body: &icmp.Echo{ID: e.id, Seq: seq, Data: []byte("homelink")},
	}
	wb, err := msg.Marshal(nil)
	if err != nil {
		return 0, 0, err
	}

	var addr net.Addr = &net.UDPAddr{IP: dst}
	if privileged {
		addr = &net.IPAddr{IP: dst}
	}
	start := time.Now()
	if _, err := conn.WriteTo(wb, addr); err != nil {
		return 0, 0, fmt.Errorf("send echo: %w", err)
	}

	rb := make([]byte, 1500)
	for {
		n, cm, peer, err := pc.ReadFrom(rb)
		if err != nil {
			if isTimeout(err) {
				return 0, 0, ErrTimeout
			}
			return 0, 0, fmt.Errorf("read reply: %w", err)
		}
		rtt := time.Since(start)

		reply, err := icmp.ParseMessage(ipv4.ICMPTypeEcho.Protocol(), rb[:n])
		if err != nil || reply.Type != ipv4.ICMPTypeEchoReply {
			continue
		}
		body, ok := reply.Body.(*icmp.Echo)
		if !ok || body.Seq != seq || !samePeer(peer, dst) {
			continue
		}
		// Datagram sockets have their ID rewritten by the kernel.
		if privileged && body.ID != e.id {
			continue
		}
		ttl := 0
		if cm != nil {
			ttl = cm.TTL
		}
		return rtt, ttl, nil
	}
}

func listenICMP() (*icmp.PacketConn, bool, error) {
	conn, err := icmp.ListenPacket("udp4", "0.0.0.0")
	if err == nil {
		return conn, false, nil
	}
	conn, rawErr := icmp.ListenPacket("ip4:icmp", "0.0.0.0")
	if rawErr != nil {
		return nil, false, fmt.Errorf("open icmp socket: %w", errors.Join(err, rawErr))
	}
	return conn, true, nil
}

func samePeer(peer net.Addr, dst net.IP) bool {
	switch a := peer.(type) {
	case *net.UDPAddr:
		return a.IP.Equal(dst)
	case *net.IPAddr:
		return a.IP.Equal(dst)
	}
	return false
}
