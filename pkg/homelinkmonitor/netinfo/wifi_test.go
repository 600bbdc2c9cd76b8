package netinfo

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const iwConnected = `Connected to 04:F0:21:12:34:56 (on wlan0)
	SSID: HomeNet
	freq: 5180.0
	RX: 1228866 bytes (7562 packets)
	TX: 171397 bytes (1105 packets)
	signal: -52 dBm
	rx bitrate: 866.7 MBit/s VHT-MCS 9 80MHz short GI VHT-NSS 2
	tx bitrate: 780.0 MBit/s VHT-MCS 8 80MHz short GI VHT-NSS 2

	bss flags:	short-slot-time
	dtim period:	1
	beacon int:	100
`

func TestParseIwLink_Connected(t *testing.T) {
	l := parseIwLink([]byte(iwConnected))
	assert.True(t, l.connected)
	assert.Equal(t, "04:f0:21:12:34:56", l.bssid)
	assert.Equal(t, "HomeNet", l.ssid)
	assert.Equal(t, 5180.0, l.freqMHz)
	assert.Equal(t, -52, l.signalDbm)
	assert.Equal(t, 780.0, l.txBitrateMbps)
	assert.Equal(t, "VHT-MCS", l.txMode)
}

func TestParseIwLink_NotConnected(t *testing.T) {
	l := parseIwLink([]byte("Not connected.\n"))
	assert.False(t, l.connected)
	assert.Empty(t, l.bssid)
}

func TestPhyType(t *testing.T) {
	assert.Equal(t, "802.11ax", phyType("HE-MCS", Band5GHz))
	assert.Equal(t, "802.11ac", phyType("VHT-MCS", Band5GHz))
	assert.Equal(t, "802.11n", phyType("MCS", Band24GHz))
	assert.Equal(t, "802.11g", phyType("", Band24GHz))
	assert.Equal(t, "802.11a", phyType("", Band5GHz))
}

func fakeSysfs(t *testing.T, wireless ...string) string {
	t.Helper()
	base := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(base, "eth0"), 0o755))
	for _, name := range wireless {
		require.NoError(t, os.MkdirAll(filepath.Join(base, name, "wireless"), 0o755))
	}
	return base
}

func TestWifiProvider_Snapshot(t *testing.T) {
	p := NewWifiProvider(WifiConfig{SysClassNet: fakeSysfs(t, "wlan1", "wlan0")}, nil)
	var gotArgs []string
	p.run = func(_ context.Context, name string, args ...string) ([]byte, error) {
		gotArgs = append([]string{name}, args...)
		return []byte(iwConnected), nil
	}

	snap := p.Snapshot()
	require.NotNil(t, snap)
	assert.Equal(t, []string{"iw", "dev", "wlan0", "link"}, gotArgs)
	assert.True(t, snap.IsConnected)
	assert.Equal(t, "wlan0", snap.InterfaceName)
	assert.Equal(t, "HomeNet", snap.SSID)
	assert.Equal(t, 96, snap.SignalQuality)
	assert.Equal(t, -52, snap.RssiDbm)
	assert.Equal(t, 36, snap.Channel)
	assert.Equal(t, 5180000, snap.FrequencyKHz)
	assert.Equal(t, "5 GHz", snap.Band)
	assert.Equal(t, "802.11ac", snap.PhyType)
	assert.Equal(t, 780, snap.LinkSpeedMbps)
}

func TestWifiProvider_NoAdapter(t *testing.T) {
	p := NewWifiProvider(WifiConfig{SysClassNet: fakeSysfs(t)}, nil)
	p.run = func(context.Context, string, ...string) ([]byte, error) {
		t.Fatal("iw must not run without a wireless interface")
		return nil, nil
	}
	assert.Nil(t, p.Snapshot())
}

func TestWifiProvider_CommandFailureIsDisconnected(t *testing.T) {
	p := NewWifiProvider(WifiConfig{Interface: "wlan0"}, nil)
	p.run = func(context.Context, string, ...string) ([]byte, error) {
		return nil, errors.New("exec: \"iw\": executable file not found in $PATH")
	}
	snap := p.Snapshot()
	require.NotNil(t, snap)
	assert.False(t, snap.IsConnected)
	assert.Equal(t, "wlan0", snap.InterfaceName)
}
