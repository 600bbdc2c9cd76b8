// Package netinfo reads the local machine's Wi-Fi link and network adapter
// state and provides the unit conversions shared by the monitor.
//
// The providers only touch local kernel state (netlink, sysfs, the iw tool)
// and never perform network I/O, so they are safe to call synchronously at
// the start of every poll cycle.
package netinfo

import "net/netip"

// SignalClass is a coarse grading of Wi-Fi signal quality.
type SignalClass string

const (
	SignalExcellent SignalClass = "Excellent"
	SignalGood      SignalClass = "Good"
	SignalFair      SignalClass = "Fair"
	SignalPoor      SignalClass = "Poor"
	SignalVeryPoor  SignalClass = "VeryPoor"
)

// Band labels returned by FrequencyToBand.
const (
	Band24GHz   = "2.4 GHz"
	Band5GHz    = "5 GHz"
	Band6GHz    = "6 GHz"
	BandUnknown = "Unknown"
)

// FrequencyToChannel converts a centre frequency in kHz to an 802.11 channel
// number. It returns 0 for frequencies outside the 2.4, 5 and 6 GHz channel
// plans. 2484 MHz is channel 14; the gap below it stays on channel 13.
func FrequencyToChannel(frequencyKHz int) int {
	mhz := frequencyKHz / 1000
	switch {
	case mhz == 2484:
		return 14
	case mhz >= 2412 && mhz < 2484:
		return min((mhz-2412)/5+1, 13)
	case mhz >= 5180 && mhz <= 5825:
		return (mhz - 5000) / 5
	case mhz >= 5955 && mhz <= 7115:
		return (mhz - 5950) / 5
	}
	return 0
}

// FrequencyToBand labels a frequency in kHz with its band.
func FrequencyToBand(frequencyKHz int) string {
	mhz := frequencyKHz / 1000
	switch {
	case mhz >= 2400 && mhz <= 2500:
		return Band24GHz
	case mhz >= 5100 && mhz <= 5900:
		return Band5GHz
	case mhz >= 5925 && mhz <= 7125:
		return Band6GHz
	}
	return BandUnknown
}

// SignalQualityToRssi maps a 0-100 quality percentage onto roughly -100 to
// -50 dBm using integer division.
func SignalQualityToRssi(quality int) int {
	return quality/2 - 100
}

// RssiToSignalQuality is the inverse mapping, clamped to 0-100.
func RssiToSignalQuality(dbm int) int {
	q := 2 * (dbm + 100)
	return max(0, min(100, q))
}

// ClassifySignal grades a quality percentage. Each lower bound is inclusive.
func ClassifySignal(quality int) SignalClass {
	switch {
	case quality >= 80:
		return SignalExcellent
	case quality >= 60:
		return SignalGood
	case quality >= 40:
		return SignalFair
	case quality >= 20:
		return SignalPoor
	}
	return SignalVeryPoor
}

// IsPrivateOrLocal reports whether addr is an RFC 1918, loopback or
// link-local IPv4 address. Anything that is not a parseable IPv4 address,
// including "*" and IPv6, also counts as local.
func IsPrivateOrLocal(addr string) bool {
	ip, err := netip.ParseAddr(addr)
	if err != nil || !ip.Is4() {
		return true
	}
	b := ip.As4()
	return b[0] == 10 ||
		(b[0] == 172 && b[1] >= 16 && b[1] <= 31) ||
		(b[0] == 192 && b[1] == 168) ||
		b[0] == 127 ||
		(b[0] == 169 && b[1] == 254)
}
