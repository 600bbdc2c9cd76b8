// Package app wires the monitor together and manages its lifecycle.
//
// Poll path (one scheduler entry):
//
//	Scheduler → Orchestrator → providers + probes → Classify →
//	Bus + Store → AlertEngine / RoamingDetector → Notifier
//
// Consumers hang off the bus:
//
//	Bus → Server (snapshot ring, websocket clients)
//	Bus → format/json → transport/file   (journal, optional)
//
// A second scheduler entry runs retention against the same store.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"

	jsonformat "github.com/vpbank/homelink_monitor/format/json"
	"github.com/vpbank/homelink_monitor/pkg/homelinkmonitor/alert"
	"github.com/vpbank/homelink_monitor/pkg/homelinkmonitor/bus"
	"github.com/vpbank/homelink_monitor/pkg/homelinkmonitor/config"
	"github.com/vpbank/homelink_monitor/pkg/homelinkmonitor/netinfo"
	"github.com/vpbank/homelink_monitor/pkg/homelinkmonitor/notify"
	"github.com/vpbank/homelink_monitor/pkg/homelinkmonitor/orchestrator"
	"github.com/vpbank/homelink_monitor/pkg/homelinkmonitor/probe"
	"github.com/vpbank/homelink_monitor/pkg/homelinkmonitor/retention"
	"github.com/vpbank/homelink_monitor/pkg/homelinkmonitor/roaming"
	"github.com/vpbank/homelink_monitor/pkg/homelinkmonitor/scheduler"
	"github.com/vpbank/homelink_monitor/pkg/homelinkmonitor/server"
	"github.com/vpbank/homelink_monitor/pkg/homelinkmonitor/store"
	"github.com/vpbank/homelink_monitor/pkg/homelinkmonitor/telemetry"
	filetransport "github.com/vpbank/homelink_monitor/transport/file"
)

const journalBuffer = 256

// ─────────────────────────────────────────────────────────────────────────────
// Options
// ─────────────────────────────────────────────────────────────────────────────

// Option replaces a default collaborator. Mainly for tests and for
// platforms where the Linux providers do not apply.
type Option func(*App)

// WithWifi replaces the iw-based Wi-Fi provider.
func WithWifi(p orchestrator.WifiProvider) Option {
	return func(a *App) { a.wifi = p }
}

// WithNetwork replaces the netlink adapter provider. gateway feeds the
// pinger's Gateway target.
func WithNetwork(p orchestrator.NetworkProvider, gateway func() string) Option {
	return func(a *App) {
		a.network = p
		a.gateway = gateway
	}
}

// WithProbes replaces the ICMP, DNS and HTTP probes. nil keeps the default.
func WithProbes(ping orchestrator.PingProber, dns orchestrator.DNSProber, http orchestrator.HTTPProber) Option {
	return func(a *App) {
		a.ping, a.dns, a.http = ping, dns, http
	}
}

// WithNotifier replaces the desktop notifier.
func WithNotifier(n alert.Notifier) Option {
	return func(a *App) { a.notifier = n }
}

// ─────────────────────────────────────────────────────────────────────────────
// App
// ─────────────────────────────────────────────────────────────────────────────

// App owns every long-running component. Create it with New, then Start
// and Stop it exactly once.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	// Collaborators; nil ones are built in Start.
	wifi     orchestrator.WifiProvider
	network  orchestrator.NetworkProvider
	gateway  func() string
	ping     orchestrator.PingProber
	dns      orchestrator.DNSProber
	http     orchestrator.HTTPProber
	notifier alert.Notifier

	store     *store.Bolt
	metrics   *telemetry.Metrics
	bus       *bus.Bus
	sched     *scheduler.Scheduler
	srv       *server.Server
	listener  net.Listener
	transport filetransport.Transport

	cancel    context.CancelFunc
	wg        sync.WaitGroup // scheduler, notifier, server
	journalWg sync.WaitGroup
}

// New constructs an App from a resolved configuration. It does not start
// anything.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *App {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}
	if cfg == nil {
		cfg = config.Default()
	}
	a := &App{cfg: cfg, logger: logger}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Store exposes the repository once Start has succeeded.
func (a *App) Store() *store.Bolt { return a.store }

// Bus exposes the event bus once Start has succeeded.
func (a *App) Bus() *bus.Bus { return a.bus }

// Addr is the API listen address, or nil when the server is disabled.
func (a *App) Addr() net.Addr {
	if a.listener == nil {
		return nil
	}
	return a.listener.Addr()
}

// Start opens the store, binds the API listener, builds the poll path and
// launches every goroutine. Any error leaves nothing running.
func (a *App) Start(ctx context.Context) (err error) {
	cfg := a.cfg

	// ── 1. Storage and shared plumbing ──────────────────────────────────
	a.store, err = store.Open(store.Config{Path: cfg.Storage.Path}, a.logger)
	if err != nil {
		return fmt.Errorf("app: %w", err)
	}
	defer func() {
		if err != nil {
			if a.listener != nil {
				a.listener.Close()
			}
			a.release()
		}
	}()

	a.metrics = telemetry.New()
	a.bus = bus.New(a.metrics, a.logger)

	if cfg.Server.Enabled {
		a.listener, err = net.Listen("tcp", cfg.Server.Listen)
		if err != nil {
			return fmt.Errorf("app: listen %s: %w", cfg.Server.Listen, err)
		}
		a.srv = server.New(server.Config{Listen: cfg.Server.Listen}, a.store, a.bus, a.metrics.Handler(), a.logger)
	}

	var journal *bus.Subscription
	if cfg.Journal.Enabled {
		if a.transport, err = openJournal(cfg.Journal, a.logger); err != nil {
			return err
		}
		journal = a.bus.Subscribe("journal", journalBuffer)
	}

	// ── 2. Providers and probes ─────────────────────────────────────────
	a.buildCollaborators()

	var desktop *notify.Desktop
	if a.notifier == nil {
		desktop = notify.NewDesktop(notify.Config{Enabled: cfg.ShowNotifications}, a.logger)
		a.notifier = desktop
	}

	engine := alert.New(alert.ConfigFrom(cfg), a.store, a.bus, a.notifier, a.logger,
		alert.WithObserver(a.metrics))
	detector := roaming.New(a.store, a.bus, a.logger, roaming.WithObserver(a.metrics))

	orch := orchestrator.New(cfg, orchestrator.Deps{
		Wifi:       a.wifi,
		Network:    a.network,
		Ping:       a.ping,
		DNS:        a.dns,
		HTTP:       a.http,
		Repository: a.store,
		Publisher:  a.bus,
		Alerts:     engine,
		Roaming:    detector,
		Observer:   a.metrics,
	}, a.logger)
	purger := retention.New(a.store, cfg.Retention, a.logger)

	a.sched = scheduler.New([]scheduler.Entry{orch.Entry(), purger.Entry()}, a.logger)

	// ── 3. Launch ───────────────────────────────────────────────────────
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	if journal != nil {
		formatter := jsonformat.New(jsonformat.Config{PrettyPrint: cfg.Journal.Pretty}, a.logger)
		a.journalWg.Add(1)
		go func() {
			defer a.journalWg.Done()
			a.runJournal(journal, formatter)
		}()
	}
	if desktop != nil {
		a.goRun(func() { desktop.Run(runCtx) })
	}
	if a.srv != nil {
		a.goRun(func() {
			if err := a.srv.Serve(runCtx, a.listener); err != nil {
				a.logger.Error("app: server stopped", "error", err.Error())
			}
		})
	}
	a.goRun(func() { a.sched.Start(runCtx) })

	a.logger.Info("app: monitor running",
		"polling_interval", cfg.PollingInterval.String(),
		"entries", a.sched.Entries(),
		"server", cfg.Server.Enabled,
		"journal", cfg.Journal.Enabled,
	)
	return nil
}

// Stop shuts down in dependency order:
//  1. cancel the run context and wait for in-flight cycles;
//  2. close the bus so the journal and server feeds drain;
//  3. wait for the remaining goroutines;
//  4. close the journal files and the store.
func (a *App) Stop() {
	a.logger.Info("app: shutting down")

	if a.cancel != nil {
		a.cancel()
	}
	if a.sched != nil {
		a.sched.Stop()
	}
	if a.bus != nil {
		a.bus.Close()
	}
	a.wg.Wait()
	a.journalWg.Wait()
	a.release()

	a.logger.Info("app: shutdown complete")
}

func (a *App) goRun(fn func()) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		fn()
	}()
}

func (a *App) buildCollaborators() {
	cfg := a.cfg
	if a.wifi == nil {
		a.wifi = netinfo.NewWifiProvider(netinfo.WifiConfig{Interface: cfg.Interfaces.Wifi}, a.logger)
	}
	if a.network == nil {
		np := netinfo.NewNetworkProvider(netinfo.NetworkConfig{Interface: cfg.Interfaces.Network}, a.logger)
		a.network = np
		if a.gateway == nil {
			a.gateway = np.Gateway
		}
	}
	if a.ping == nil {
		a.ping = probe.NewPinger(a.gateway, a.logger)
	}
	if a.dns == nil {
		a.dns = probe.NewDNSProbe(probe.DefaultDNSTimeout, a.logger)
	}
	if a.http == nil {
		a.http = probe.NewHTTPProbe(nil, a.logger)
	}
}

// release closes the journal and the store. The listener belongs to the
// server once Serve has been called.
func (a *App) release() {
	if a.transport != nil {
		if err := a.transport.Close(); err != nil {
			a.logger.Error("app: journal close error", "error", err.Error())
		}
		a.transport = nil
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Error("app: store close error", "error", err.Error())
		}
		a.store = nil
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Journal
// ─────────────────────────────────────────────────────────────────────────────

func openJournal(cfg config.Journal, logger *slog.Logger) (filetransport.Transport, error) {
	snaps, err := filetransport.OpenRotating(filetransport.RotateConfig{
		Path:       cfg.SnapshotFile,
		MaxBytes:   cfg.MaxBytes,
		MaxBackups: cfg.MaxBackups,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("app: journal: %w", err)
	}
	splitCfg := filetransport.SplitConfig{SnapshotWriter: snaps}
	if cfg.EventFile != "" && cfg.EventFile != cfg.SnapshotFile {
		events, err := filetransport.OpenRotating(filetransport.RotateConfig{
			Path:       cfg.EventFile,
			MaxBytes:   cfg.MaxBytes,
			MaxBackups: cfg.MaxBackups,
		}, logger)
		if err != nil {
			snaps.Close()
			return nil, fmt.Errorf("app: journal: %w", err)
		}
		splitCfg.EventWriter = events
	}
	return filetransport.NewSplit(splitCfg, logger), nil
}

// runJournal drains sub until the bus closes it.
func (a *App) runJournal(sub *bus.Subscription, f jsonformat.Formatter) {
	for ev := range sub.C() {
		data, err := f.Format(&ev)
		if err != nil {
			a.logger.Warn("app: journal format error", "kind", string(ev.Kind), "error", err.Error())
			continue
		}
		if err := a.transport.Send(data); err != nil {
			a.logger.Error("app: journal write error", "error", err.Error(), "bytes", len(data))
		}
	}
	if n := sub.Dropped(); n > 0 {
		a.logger.Warn("app: journal dropped events", "count", n)
	}
}

type noopWriter struct{}

func (noopWriter) Write(p []byte) (int, error) { return len(p), nil }
