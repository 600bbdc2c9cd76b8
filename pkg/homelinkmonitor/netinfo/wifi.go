package netinfo

import (
	"bufio"
	"bytes"
	"context"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/vpbank/homelink_monitor/models"
)

// ─────────────────────────────────────────────────────────────────────────────
// Config
// ─────────────────────────────────────────────────────────────────────────────

// WifiConfig controls WifiProvider behaviour.
type WifiConfig struct {
	// Interface pins the wireless interface. Empty selects the first
	// interface that exposes a sysfs "wireless" directory.
	Interface string

	// IwPath is the iw binary. Default "iw".
	IwPath string

	// Timeout bounds one iw invocation. Default 1s.
	Timeout time.Duration

	// SysClassNet is the sysfs network class directory. Default "/sys/class/net".
	SysClassNet string
}

func (c *WifiConfig) withDefaults() {
	if c.IwPath == "" {
		c.IwPath = "iw"
	}
	if c.Timeout <= 0 {
		c.Timeout = time.Second
	}
	if c.SysClassNet == "" {
		c.SysClassNet = "/sys/class/net"
	}
}

// commandRunner runs an external command and returns its stdout.
type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// ─────────────────────────────────────────────────────────────────────────────
// WifiProvider
// ─────────────────────────────────────────────────────────────────────────────

// WifiProvider reads the current association of a wireless interface from
// `iw dev <if> link`. It never returns an error: a missing adapter yields nil
// and a failed read yields a disconnected snapshot.
type WifiProvider struct {
	cfg    WifiConfig
	run    commandRunner
	logger *slog.Logger
}

// NewWifiProvider constructs a WifiProvider.
func NewWifiProvider(cfg WifiConfig, logger *slog.Logger) *WifiProvider {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}
	cfg.withDefaults()
	return &WifiProvider{cfg: cfg, run: execRunner, logger: logger}
}

// Snapshot returns the current Wi-Fi reading, or nil when the machine has no
// wireless interface.
func (p *WifiProvider) Snapshot() *models.WifiSnapshot {
	iface := p.cfg.Interface
	if iface == "" {
		iface = p.findWireless()
	}
	if iface == "" {
		p.logger.Debug("netinfo: no wireless interface found")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.Timeout)
	defer cancel()

	now := time.Now().UTC()
	out, err := p.run(ctx, p.cfg.IwPath, "dev", iface, "link")
	if err != nil {
		p.logger.Warn("netinfo: iw link failed", "interface", iface, "error", err.Error())
		return &models.WifiSnapshot{Timestamp: now, InterfaceName: iface}
	}

	link := parseIwLink(out)
	snap := &models.WifiSnapshot{
		Timestamp:     now,
		InterfaceName: iface,
		IsConnected:   link.connected,
	}
	if !link.connected {
		return snap
	}

	freqKHz := int(link.freqMHz * 1000)
	snap.SSID = link.ssid
	snap.BSSID = link.bssid
	snap.RssiDbm = link.signalDbm
	snap.SignalQuality = RssiToSignalQuality(link.signalDbm)
	snap.FrequencyKHz = freqKHz
	snap.Channel = FrequencyToChannel(freqKHz)
	snap.Band = FrequencyToBand(freqKHz)
	snap.PhyType = phyType(link.txMode, snap.Band)
	snap.LinkSpeedMbps = int(link.txBitrateMbps)
	return snap
}

// findWireless returns the alphabetically first interface with a sysfs
// "wireless" entry.
func (p *WifiProvider) findWireless() string {
	matches, err := filepath.Glob(filepath.Join(p.cfg.SysClassNet, "*", "wireless"))
	if err != nil || len(matches) == 0 {
		return ""
	}
	sort.Strings(matches)
	for _, m := range matches {
		if info, err := os.Stat(m); err == nil && info.IsDir() {
			return filepath.Base(filepath.Dir(m))
		}
	}
	return ""
}

// ─────────────────────────────────────────────────────────────────────────────
// iw output parsing
// ─────────────────────────────────────────────────────────────────────────────

type iwLink struct {
	connected     bool
	bssid         string
	ssid          string
	freqMHz       float64
	signalDbm     int
	txBitrateMbps float64
	txMode        string
}

// parseIwLink understands the output of `iw dev <if> link`:
//
//	Connected to 04:f0:21:12:34:56 (on wlan0)
//		SSID: HomeNet
//		freq: 5180
//		signal: -52 dBm
//		tx bitrate: 780.0 MBit/s VHT-MCS 8 80MHz short GI VHT-NSS 2
//
// A disconnected interface prints "Not connected.".
func parseIwLink(out []byte) iwLink {
	var l iwLink
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case strings.HasPrefix(line, "Connected to "):
			l.connected = true
			if f := strings.Fields(strings.TrimPrefix(line, "Connected to ")); len(f) > 0 {
				l.bssid = strings.ToLower(f[0])
			}
		case strings.HasPrefix(line, "SSID:"):
			l.ssid = strings.TrimSpace(strings.TrimPrefix(line, "SSID:"))
		case strings.HasPrefix(line, "freq:"):
			l.freqMHz, _ = strconv.ParseFloat(strings.TrimSpace(strings.TrimPrefix(line, "freq:")), 64)
		case strings.HasPrefix(line, "signal:"):
			if f := strings.Fields(strings.TrimPrefix(line, "signal:")); len(f) > 0 {
				l.signalDbm, _ = strconv.Atoi(f[0])
			}
		case strings.HasPrefix(line, "tx bitrate:"):
			f := strings.Fields(strings.TrimPrefix(line, "tx bitrate:"))
			if len(f) > 0 {
				l.txBitrateMbps, _ = strconv.ParseFloat(f[0], 64)
			}
			if len(f) > 2 {
				l.txMode = f[2]
			}
		}
	}
	return l
}

// phyType infers the 802.11 generation from the tx rate mode token.
func phyType(mode, band string) string {
	switch {
	case strings.HasPrefix(mode, "EHT-"):
		return "802.11be"
	case strings.HasPrefix(mode, "HE-"):
		return "802.11ax"
	case strings.HasPrefix(mode, "VHT-"):
		return "802.11ac"
	case strings.HasPrefix(mode, "MCS"):
		return "802.11n"
	case band == Band5GHz:
		return "802.11a"
	case band == Band24GHz:
		return "802.11g"
	}
	return ""
}

type noopWriter struct{}

func (noopWriter) Write(p []byte) (int, error) { return len(p), nil }
