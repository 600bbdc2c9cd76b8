package server

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vpbank/homelink_monitor/pkg/homelinkmonitor/bus"
)

const (
	wsWriteTimeout = 5 * time.Second
	wsPingInterval = 30 * time.Second
)

// Same-origin browsers and non-browser clients (no Origin header) only.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return strings.EqualFold(strings.TrimSpace(u.Host), strings.TrimSpace(r.Host))
	},
}

// handleWS streams bus events as JSON text frames. The latest snapshot, if
// any, is sent first so a new client can render immediately.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if s.bus == nil {
		writeError(w, http.StatusServiceUnavailable, "event stream unavailable")
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("server: websocket upgrade failed", "error", err.Error())
		return
	}
	s.wsWG.Add(1)
	defer s.wsWG.Done()

	sub := s.bus.Subscribe("ws:"+r.RemoteAddr, s.cfg.WSBuffer)
	defer sub.Close()
	s.serveEvents(conn, sub)
}

func (s *Server) serveEvents(conn *websocket.Conn, sub *bus.Subscription) {
	defer conn.Close()
	s.logger.Debug("server: websocket client attached", "remote", conn.RemoteAddr().String())

	if snap, ok := s.history.Latest(); ok {
		ev := bus.Event{Kind: bus.KindSnapshot, Published: snap.Timestamp, Snapshot: &snap}
		if err := writeEvent(conn, ev); err != nil {
			return
		}
	}

	// Reads only detect the peer going away; client frames are ignored.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-sub.C():
			if !ok {
				closeFrame(conn, websocket.CloseGoingAway, "shutting down")
				return
			}
			if err := writeEvent(conn, ev); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
				return
			}
		case <-s.done:
			closeFrame(conn, websocket.CloseGoingAway, "shutting down")
			return
		case <-closed:
			return
		}
	}
}

func writeEvent(conn *websocket.Conn, ev bus.Event) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteJSON(ev)
}

func closeFrame(conn *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wsWriteTimeout))
}
