package traceroute_test

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vpbank/homelink_monitor/models"
	"github.com/vpbank/homelink_monitor/pkg/homelinkmonitor/traceroute"
)

// path simulates a route: hop n is answered by path[n-1], "" means silence.
func path(routers ...string) traceroute.HopFunc {
	return func(_ context.Context, dst net.IP, ttl int, _ time.Duration) (net.IP, time.Duration, error) {
		if ttl > len(routers) {
			return dst, 20 * time.Millisecond, nil
		}
		if routers[ttl-1] == "" {
			return nil, 0, traceroute.ErrNoReply
		}
		return net.ParseIP(routers[ttl-1]), time.Duration(ttl) * time.Millisecond, nil
	}
}

var ptr = map[string][]string{
	"192.168.1.1":  {"router.lan."},
	"68.86.90.1":   {"be-1001-cr01.sunnyvale.ca.ibone.comcast.net."},
	"93.184.216.1": {"edge1.example.net."},
}

func resolver() traceroute.Option {
	return traceroute.WithResolver(
		func(_ context.Context, host string) ([]net.IP, error) {
			if host == "unknown.invalid" {
				return nil, errors.New("no such host")
			}
			return []net.IP{net.ParseIP("2001:db8::1"), net.ParseIP("93.184.216.34")}, nil
		},
		func(_ context.Context, addr string) ([]string, error) {
			if names, ok := ptr[addr]; ok {
				return names, nil
			}
			return nil, errors.New("nxdomain")
		},
	)
}

func TestRun_DecoratesHopsAndStopsAtDestination(t *testing.T) {
	tr := traceroute.New(traceroute.Config{}, nil,
		traceroute.WithHopFunc(path("192.168.1.1", "", "68.86.90.1", "93.184.216.1")),
		resolver())

	var streamed []int
	hops, err := tr.Run(context.Background(), "example.com", func(h models.TracerouteHop) {
		streamed = append(streamed, h.HopNumber)
	})
	require.NoError(t, err)
	require.Len(t, hops, 5)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, streamed)

	lan := hops[0]
	assert.Equal(t, "router.lan", lan.Hostname)
	assert.True(t, lan.IsPrivate)
	assert.Nil(t, lan.Location)
	require.NotNil(t, lan.LatencyMs)
	assert.Equal(t, 1.0, *lan.LatencyMs)

	silent := hops[1]
	assert.True(t, silent.IsTimeout)
	assert.Equal(t, "*", silent.Address)
	assert.Equal(t, "*", silent.Hostname)
	assert.Nil(t, silent.LatencyMs)

	backbone := hops[2]
	assert.False(t, backbone.IsPrivate)
	require.NotNil(t, backbone.Location)
	assert.Equal(t, "Sunnyvale", backbone.Location.City)
	assert.Equal(t, "CA", backbone.Location.Region)

	noPTR := hops[4]
	assert.Equal(t, "93.184.216.34", noPTR.Address)
	assert.Equal(t, "93.184.216.34", noPTR.Hostname, "falls back to the address")
}

func TestRun_MaxHops(t *testing.T) {
	silence := func(context.Context, net.IP, int, time.Duration) (net.IP, time.Duration, error) {
		return nil, 0, traceroute.ErrNoReply
	}
	tr := traceroute.New(traceroute.Config{MaxHops: 4}, nil, traceroute.WithHopFunc(silence), resolver())

	hops, err := tr.Run(context.Background(), "example.com", nil)
	require.NoError(t, err)
	assert.Len(t, hops, 4)
}

func TestRun_ResolveFailure(t *testing.T) {
	tr := traceroute.New(traceroute.Config{}, nil, traceroute.WithHopFunc(path()), resolver())
	_, err := tr.Run(context.Background(), "unknown.invalid", nil)
	assert.ErrorContains(t, err, "resolve unknown.invalid")
}

func TestRun_PermissionErrorAborts(t *testing.T) {
	denied := func(context.Context, net.IP, int, time.Duration) (net.IP, time.Duration, error) {
		return nil, 0, &traceroute.PermissionError{Err: errors.New("operation not permitted")}
	}
	tr := traceroute.New(traceroute.Config{}, nil, traceroute.WithHopFunc(denied), resolver())

	hops, err := tr.Run(context.Background(), "example.com", nil)
	var perm *traceroute.PermissionError
	assert.ErrorAs(t, err, &perm)
	assert.Empty(t, hops)
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hopFn := func(_ context.Context, _ net.IP, ttl int, _ time.Duration) (net.IP, time.Duration, error) {
		if ttl == 2 {
			cancel()
			return nil, 0, traceroute.ErrNoReply
		}
		return net.ParseIP("192.168.1.1"), time.Millisecond, nil
	}
	tr := traceroute.New(traceroute.Config{}, nil, traceroute.WithHopFunc(hopFn), resolver())

	hops, err := tr.Run(ctx, "example.com", nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, hops, 1)
}
