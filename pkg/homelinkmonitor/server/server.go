// Package server exposes the monitor over HTTP: JSON query endpoints backed
// by the repository, a ring of recent snapshots fed from the bus, a websocket
// event stream and the Prometheus scrape endpoint.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/vpbank/homelink_monitor/models"
	"github.com/vpbank/homelink_monitor/pkg/homelinkmonitor/bus"
	"github.com/vpbank/homelink_monitor/pkg/homelinkmonitor/geo"
	"github.com/vpbank/homelink_monitor/pkg/homelinkmonitor/store"
)

const (
	defaultRawWindow   = time.Hour
	defaultEventWindow = 24 * time.Hour
	shutdownTimeout    = 5 * time.Second
	feedBuffer         = 64
)

// Store is the read and acknowledge side of the repository.
type Store interface {
	PingResults(ctx context.Context, from, to time.Time) ([]models.PingResult, error)
	WifiSnapshots(ctx context.Context, from, to time.Time) ([]models.WifiSnapshot, error)
	DnsResults(ctx context.Context, from, to time.Time) ([]models.DnsResult, error)
	HttpResults(ctx context.Context, from, to time.Time) ([]models.HttpProbeResult, error)
	Alerts(ctx context.Context, from, to time.Time) ([]models.AlertEvent, error)
	RoamingEvents(ctx context.Context, from, to time.Time) ([]models.RoamingEvent, error)
	AcknowledgeAlert(ctx context.Context, id string) error
}

// Config controls the listener.
type Config struct {
	// Listen is the TCP address (default "127.0.0.1:8470").
	Listen string

	// HistorySize caps /api/recent (default 720).
	HistorySize int

	// WSBuffer is the bus buffer for each websocket client (default 64).
	WSBuffer int
}

func (c Config) withDefaults() Config {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8470"
	}
	if c.HistorySize <= 0 {
		c.HistorySize = DefaultHistorySize
	}
	if c.WSBuffer <= 0 {
		c.WSBuffer = feedBuffer
	}
	return c
}

// Server serves the HTTP API.
type Server struct {
	cfg     Config
	store   Store
	bus     *bus.Bus
	metrics http.Handler
	history *History
	logger  *slog.Logger

	httpServer *http.Server
	done       chan struct{}
	closeOnce  sync.Once
	wsWG       sync.WaitGroup
}

// New builds a Server. metrics may be nil, in which case /metrics is not
// registered.
func New(cfg Config, st Store, b *bus.Bus, metrics http.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}
	cfg = cfg.withDefaults()
	s := &Server{
		cfg:     cfg,
		store:   st,
		bus:     b,
		metrics: metrics,
		history: NewHistory(cfg.HistorySize),
		logger:  logger,
		done:    make(chan struct{}),
	}
	s.httpServer = &http.Server{
		Addr:              cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/recent", s.handleRecent)
	mux.HandleFunc("GET /api/ping", rangeHandler(s, defaultRawWindow, s.store.PingResults))
	mux.HandleFunc("GET /api/wifi", rangeHandler(s, defaultRawWindow, s.store.WifiSnapshots))
	mux.HandleFunc("GET /api/dns", rangeHandler(s, defaultRawWindow, s.store.DnsResults))
	mux.HandleFunc("GET /api/http", rangeHandler(s, defaultRawWindow, s.store.HttpResults))
	mux.HandleFunc("GET /api/alerts", rangeHandler(s, defaultEventWindow, s.store.Alerts))
	mux.HandleFunc("GET /api/roaming", rangeHandler(s, defaultEventWindow, s.store.RoamingEvents))
	mux.HandleFunc("POST /api/alerts/{id}/ack", s.handleAck)
	mux.HandleFunc("GET /api/geo", s.handleGeo)
	mux.HandleFunc("GET /ws", s.handleWS)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}
	return mux
}

// History exposes the snapshot ring.
func (s *Server) History() *History { return s.history }

// Run subscribes to the bus, listens, and serves until ctx is cancelled or
// the listener fails. Websocket clients are disconnected before Run returns.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", s.cfg.Listen, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if s.bus != nil {
		sub := s.bus.Subscribe("server.history", feedBuffer)
		go s.feed(sub)
		defer sub.Close()
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server: listening", "addr", ln.Addr().String())
		errCh <- s.httpServer.Serve(ln)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	s.closeOnce.Do(func() { close(s.done) })
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("server: shutdown", "error", err.Error())
	}
	s.wsWG.Wait()
	s.logger.Info("server: stopped")

	if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
		return fmt.Errorf("server: serve: %w", serveErr)
	}
	return nil
}

func (s *Server) feed(sub *bus.Subscription) {
	for ev := range sub.C() {
		if ev.Kind == bus.KindSnapshot && ev.Snapshot != nil {
			s.history.Add(*ev.Snapshot)
		}
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Handlers
// ─────────────────────────────────────────────────────────────────────────────

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	snap, ok := s.history.Latest()
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{
			"timestamp":      nil,
			"overall_status": models.StatusUnknown,
		})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.history.Recent(parseLimit(r, s.cfg.HistorySize)))
}

func rangeHandler[T any](s *Server, window time.Duration, query func(context.Context, time.Time, time.Time) ([]T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		from, to, err := parseRange(r, window, time.Now())
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		rows, err := query(r.Context(), from, to)
		if err != nil {
			s.logger.Error("server: query failed", "path", r.URL.Path, "error", err.Error())
			writeError(w, http.StatusInternalServerError, "query failed")
			return
		}
		if rows == nil {
			rows = []T{}
		}
		writeJSON(w, http.StatusOK, rows)
	}
}

func (s *Server) handleAck(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	err := s.store.AcknowledgeAlert(r.Context(), id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "alert not found")
	case err != nil:
		s.logger.Error("server: acknowledge failed", "id", id, "error", err.Error())
		writeError(w, http.StatusInternalServerError, "acknowledge failed")
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

type geoAnswer struct {
	Host     string                 `json:"host"`
	Location *models.ParsedLocation `json:"location"`
}

func (s *Server) handleGeo(w http.ResponseWriter, r *http.Request) {
	hosts := r.URL.Query()["host"]
	if len(hosts) == 0 {
		writeError(w, http.StatusBadRequest, "missing host parameter")
		return
	}
	out := make([]geoAnswer, 0, len(hosts))
	for _, h := range hosts {
		a := geoAnswer{Host: h}
		if loc, ok := geo.Parse(h); ok {
			a.Location = &loc
		}
		out = append(out, a)
	}
	writeJSON(w, http.StatusOK, out)
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

// parseRange reads RFC 3339 from/to parameters. A missing to is now and a
// missing from is window before to.
func parseRange(r *http.Request, window time.Duration, now time.Time) (time.Time, time.Time, error) {
	q := r.URL.Query()
	to := now
	if raw := q.Get("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid to: %q", raw)
		}
		to = t
	}
	from := to.Add(-window)
	if raw := q.Get("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid from: %q", raw)
		}
		from = t
	}
	if from.After(to) {
		return time.Time{}, time.Time{}, errors.New("from is after to")
	}
	return from, to, nil
}

func parseLimit(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 || v > fallback {
		return fallback
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type noopWriter struct{}

func (noopWriter) Write(p []byte) (int, error) { return len(p), nil }
