package probe

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/miekg/dns"
	"golang.org/x/sync/errgroup"

	"github.com/vpbank/homelink_monitor/models"
	"github.com/vpbank/homelink_monitor/pkg/homelinkmonitor/config"
)

// DefaultDNSTimeout bounds each query. It is not configurable.
const DefaultDNSTimeout = 3 * time.Second

// DNSProbe resolves the configured name against each resolver.
type DNSProbe struct {
	client  *dns.Client
	timeout time.Duration
	logger  *slog.Logger
}

// NewDNSProbe creates a DNSProbe that queries over UDP with no retries and
// no caching. A timeout of zero uses DefaultDNSTimeout.
func NewDNSProbe(timeout time.Duration, logger *slog.Logger) *DNSProbe {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}
	if timeout <= 0 {
		timeout = DefaultDNSTimeout
	}
	return &DNSProbe{
		client:  &dns.Client{Net: "udp", Timeout: timeout},
		timeout: timeout,
		logger:  logger,
	}
}

// QueryAll queries the primary and secondary resolvers in parallel. Empty
// resolver addresses are skipped.
func (d *DNSProbe) QueryAll(ctx context.Context, probes config.Probes) []models.DnsResult {
	var servers []string
	for _, s := range []string{probes.PrimaryDNS, probes.SecondaryDNS} {
		if s != "" {
			servers = append(servers, s)
		}
	}
	results := make([]models.DnsResult, len(servers))

	var g errgroup.Group
	for i, server := range servers {
		g.Go(func() error {
			results[i] = d.Query(ctx, server, probes.DNSQueryName)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Query sends one A query for name to server. server may carry a port;
// otherwise 53 is used.
func (d *DNSProbe) Query(ctx context.Context, server, name string) models.DnsResult {
	res := models.DnsResult{
		Timestamp: time.Now().UTC(),
		Server:    server,
		QueryName: name,
	}

	addr := server
	if _, _, err := net.SplitHostPort(server); err != nil {
		addr = net.JoinHostPort(server, "53")
	}

	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(name), dns.TypeA)
	m.RecursionDesired = true

	qctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	in, _, err := d.client.ExchangeContext(qctx, m, addr)
	elapsed := time.Since(start)

	switch {
	case err != nil && ctx.Err() != nil:
		res.Error = reasonCancelled
	case err != nil && isTimeout(err):
		res.Error = reasonTimeout
	case err != nil:
		res.Error = err.Error()
		d.logger.Debug("probe: dns query failed", "server", server, "error", err.Error())
	default:
		res.IsSuccess = in.Rcode == dns.RcodeSuccess
		if !res.IsSuccess {
			res.Error = dns.RcodeToString[in.Rcode]
			break
		}
		res.LatencyMs = models.Float(millis(elapsed))
	}
	return res
}
