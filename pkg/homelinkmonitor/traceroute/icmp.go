package traceroute

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
)

// PermissionError reports that the raw ICMP socket could not be opened.
type PermissionError struct{ Err error }

func (e *PermissionError) Error() string {
	return "traceroute: raw ICMP socket unavailable (needs root or CAP_NET_RAW): " + e.Err.Error()
}

func (e *PermissionError) Unwrap() error { return e.Err }

var (
	echoID  = os.Getpid() & 0xffff
	echoSeq atomic.Uint32
)

// icmpHop sends one echo with the given TTL over a raw socket and waits for
// either the echo reply or an ICMP error quoting our echo.
func icmpHop(ctx context.Context, dst net.IP, ttl int, timeout time.Duration) (net.IP, time.Duration, error) {
	conn, err := icmp.ListenPacket("ip4:icmp", "0.0.0.0")
	if err != nil {
		return nil, 0, &PermissionError{Err: err}
	}
	defer conn.Close()

	pc := conn.IPv4PacketConn()
	if err := pc.SetTTL(ttl); err != nil {
		return nil, 0, fmt.Errorf("set ttl: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	deadline, _ := ctx.Deadline()
	_ = conn.SetReadDeadline(deadline)
	stop := context.AfterFunc(ctx, func() { _ = conn.SetReadDeadline(time.Now()) })
	defer stop()

	seq := int(echoSeq.Add(1) & 0xffff)
	msg := icmp.Message{
		Type: ipv4.ICMPTypeEcho,
		Body: &icmp.Echo{ID: echoID, Seq: seq, Data: make([]byte, 32)},
	}
	wb, err := msg.Marshal(nil)
	if err != nil {
		return nil, 0, err
	}

	start := time.Now()
	if _, err := conn.WriteTo(wb, &net.IPAddr{IP: dst}); err != nil {
		return nil, 0, fmt.Errorf("send: %w", err)
	}

	rb := make([]byte, 1500)
	for {
		n, peer, err := conn.ReadFrom(rb)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				return nil, 0, ErrNoReply
			}
			return nil, 0, err
		}
		rtt := time.Since(start)

		reply, err := icmp.ParseMessage(ipv4.ICMPTypeEcho.Protocol(), rb[:n])
		if err != nil {
			continue
		}
		from := peerIP(peer)
		switch body := reply.Body.(type) {
		case *icmp.Echo:
			if reply.Type == ipv4.ICMPTypeEchoReply && body.ID == echoID && body.Seq == seq {
				return from, rtt, nil
			}
		case *icmp.TimeExceeded:
			if quotesEcho(body.Data, seq) {
				return from, rtt, nil
			}
		case *icmp.DstUnreach:
			if quotesEcho(body.Data, seq) {
				return from, rtt, nil
			}
		}
	}
}

// quotesEcho reports whether an ICMP error payload (the original IPv4
// header plus the first 8 bytes of our echo) refers to our request.
func quotesEcho(data []byte, seq int) bool {
	if len(data) < ipv4.HeaderLen {
		return false
	}
	hl := int(data[0]&0x0f) * 4
	if len(data) < hl+8 {
		return false
	}
	inner := data[hl:]
	return inner[0] == byte(ipv4.ICMPTypeEcho) &&
		int(binary.BigEndian.Uint16(inner[4:6])) == echoID &&
		int(binary.BigEndian.Uint16(inner[6:8])) == seq
}

func peerIP(a net.Addr) net.IP {
	switch v := a.(type) {
	case *net.IPAddr:
		return v.IP
	case *net.UDPAddr:
		return v.IP
	}
	return nil
}
