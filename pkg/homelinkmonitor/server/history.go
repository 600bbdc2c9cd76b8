package server

import (
	"sync"

	"github.com/vpbank/homelink_monitor/models"
)

// DefaultHistorySize keeps one hour of snapshots at the default 5s interval.
const DefaultHistorySize = 720

// History is a fixed-capacity ring of the most recent snapshots.
type History struct {
	mu    sync.RWMutex
	buf   []models.MonitoringSnapshot
	start int
	n     int
}

// NewHistory creates a ring holding up to size snapshots.
func NewHistory(size int) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &History{buf: make([]models.MonitoringSnapshot, size)}
}

// Add appends snap, evicting the oldest entry when full.
func (h *History) Add(snap models.MonitoringSnapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.n < len(h.buf) {
		h.buf[(h.start+h.n)%len(h.buf)] = snap
		h.n++
		return
	}
	h.buf[h.start] = snap
	h.start = (h.start + 1) % len(h.buf)
}

// Latest returns the newest snapshot.
func (h *History) Latest() (models.MonitoringSnapshot, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.n == 0 {
		return models.MonitoringSnapshot{}, false
	}
	return h.buf[(h.start+h.n-1)%len(h.buf)], true
}

// Recent returns up to limit snapshots, oldest first. limit <= 0 returns all.
func (h *History) Recent(limit int) []models.MonitoringSnapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if limit <= 0 || limit > h.n {
		limit = h.n
	}
	out := make([]models.MonitoringSnapshot, 0, limit)
	for i := h.n - limit; i < h.n; i++ {
		out = append(out, h.buf[(h.start+i)%len(h.buf)])
	}
	return out
}

// Len reports how many snapshots are held.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.n
}
