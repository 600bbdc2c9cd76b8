package netinfo_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vpbank/homelink_monitor/pkg/homelinkmonitor/netinfo"
)

func TestFrequencyToChannel(t *testing.T) {
	tests := []struct {
		khz  int
		want int
	}{
		{2412000, 1},
		{2437000, 6},
		{2462000, 11},
		{2472000, 13},
		{2484000, 14},
		{5180000, 36},
		{5240000, 48},
		{5745000, 149},
		{5825000, 165},
		{5955000, 1},
		{6115000, 33},
		{7115000, 233},
		{2400000, 0},
		{5900000, 0},
		{0, 0},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, netinfo.FrequencyToChannel(tc.khz), "FrequencyToChannel(%d)", tc.khz)
	}
}

func TestFrequencyToChannel_24GHzSpacing(t *testing.T) {
	for khz := 2412000; khz <= 2484000; khz += 1000 {
		ch := netinfo.FrequencyToChannel(khz)
		if ch < 1 || ch > 14 {
			t.Errorf("FrequencyToChannel(%d) = %d, want 1..14", khz, ch)
		}
	}
}

func TestFrequencyToBand(t *testing.T) {
	assert.Equal(t, "2.4 GHz", netinfo.FrequencyToBand(2437000))
	assert.Equal(t, "5 GHz", netinfo.FrequencyToBand(5180000))
	assert.Equal(t, "6 GHz", netinfo.FrequencyToBand(6115000))
	assert.Equal(t, "Unknown", netinfo.FrequencyToBand(900000))
}

func TestSignalQualityToRssi(t *testing.T) {
	for q := 0; q <= 100; q++ {
		assert.Equal(t, q/2-100, netinfo.SignalQualityToRssi(q))
	}
	assert.Equal(t, -100, netinfo.SignalQualityToRssi(0))
	assert.Equal(t, -50, netinfo.SignalQualityToRssi(100))
	assert.Equal(t, -83, netinfo.SignalQualityToRssi(35))
}

func TestRssiToSignalQuality(t *testing.T) {
	assert.Equal(t, 0, netinfo.RssiToSignalQuality(-110))
	assert.Equal(t, 0, netinfo.RssiToSignalQuality(-100))
	assert.Equal(t, 96, netinfo.RssiToSignalQuality(-52))
	assert.Equal(t, 100, netinfo.RssiToSignalQuality(-30))
}

func TestClassifySignal(t *testing.T) {
	tests := []struct {
		q    int
		want netinfo.SignalClass
	}{
		{100, netinfo.SignalExcellent},
		{80, netinfo.SignalExcellent},
		{79, netinfo.SignalGood},
		{60, netinfo.SignalGood},
		{59, netinfo.SignalFair},
		{40, netinfo.SignalFair},
		{39, netinfo.SignalPoor},
		{20, netinfo.SignalPoor},
		{19, netinfo.SignalVeryPoor},
		{0, netinfo.SignalVeryPoor},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, netinfo.ClassifySignal(tc.q), "ClassifySignal(%d)", tc.q)
	}
}

func TestIsPrivateOrLocal(t *testing.T) {
	private := []string{"10.1.2.3", "172.16.0.1", "172.31.255.255", "192.168.1.1", "127.0.0.1", "169.254.10.1", "*", "", "not-an-ip", "2001:db8::1"}
	public := []string{"8.8.8.8", "172.32.0.1", "172.15.0.1", "192.169.0.1", "1.1.1.1"}
	for _, ip := range private {
		assert.True(t, netinfo.IsPrivateOrLocal(ip), ip)
	}
	for _, ip := range public {
		assert.False(t, netinfo.IsPrivateOrLocal(ip), ip)
	}
}
