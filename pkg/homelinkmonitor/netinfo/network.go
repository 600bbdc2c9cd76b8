package netinfo

import (
	"log/slog"
	"time"

	"github.com/miekg/dns"

	"github.com/vpbank/homelink_monitor/models"
)

// NetworkConfig controls NetworkProvider behaviour.
type NetworkConfig struct {
	// Interface pins the adapter. Empty follows the IPv4 default route.
	Interface string

	// ResolvConf lists the system resolvers. Default "/etc/resolv.conf".
	ResolvConf string
}

func (c *NetworkConfig) withDefaults() {
	if c.ResolvConf == "" {
		c.ResolvConf = "/etc/resolv.conf"
	}
}

// adapterInfo is the platform-neutral result of readAdapter.
type adapterInfo struct {
	name    string
	mac     string
	ip      string
	mask    string
	gateway string
	up      bool
	rxBytes uint64
	txBytes uint64
}

// NetworkProvider reports the address, gateway and counters of the adapter
// carrying the default route.
type NetworkProvider struct {
	cfg    NetworkConfig
	logger *slog.Logger
}

// NewNetworkProvider constructs a NetworkProvider.
func NewNetworkProvider(cfg NetworkConfig, logger *slog.Logger) *NetworkProvider {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}
	cfg.withDefaults()
	return &NetworkProvider{cfg: cfg, logger: logger}
}

// Snapshot returns the current adapter state. On failure it returns a
// disconnected snapshot rather than an error.
func (p *NetworkProvider) Snapshot() *models.NetworkSnapshot {
	now := time.Now().UTC()
	info, err := readAdapter(p.cfg.Interface)
	if err != nil {
		p.logger.Warn("netinfo: read adapter failed", "interface", p.cfg.Interface, "error", err.Error())
		return &models.NetworkSnapshot{Timestamp: now, AdapterName: p.cfg.Interface}
	}
	return &models.NetworkSnapshot{
		Timestamp:     now,
		LocalIP:       info.ip,
		SubnetMask:    info.mask,
		Gateway:       info.gateway,
		DNSServers:    p.dnsServers(),
		MAC:           info.mac,
		AdapterName:   info.name,
		IsConnected:   info.up && info.ip != "",
		BytesSent:     info.txBytes,
		BytesReceived: info.rxBytes,
	}
}

// Gateway returns the IPv4 default gateway, or "" when none is configured.
func (p *NetworkProvider) Gateway() string {
	info, err := readAdapter(p.cfg.Interface)
	if err != nil {
		p.logger.Debug("netinfo: gateway discovery failed", "error", err.Error())
		return ""
	}
	return info.gateway
}

func (p *NetworkProvider) dnsServers() []string {
	cc, err := dns.ClientConfigFromFile(p.cfg.ResolvConf)
	if err != nil {
		p.logger.Debug("netinfo: read resolv.conf failed", "file", p.cfg.ResolvConf, "error", err.Error())
		return nil
	}
	return cc.Servers
}
