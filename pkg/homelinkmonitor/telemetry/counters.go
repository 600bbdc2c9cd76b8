package telemetry

import (
	"sync"
	"time"
)

// counterKey identifies one cumulative adapter counter.
type counterKey struct {
	Adapter   string
	Direction string // "rx" or "tx"
}

type counterEntry struct {
	Value  uint64
	SeenAt time.Time
}

// rateResult is returned by counterState.Rate. PerSecond is meaningful only
// when Valid is true.
type rateResult struct {
	Delta     uint64
	Elapsed   time.Duration
	PerSecond float64
	Valid     bool
}

// counterState remembers the last value of every adapter byte counter so a
// per-interval rate can be derived. It is safe for concurrent use.
//
// Kernel interface counters are 64-bit and do not wrap in practice, so a
// decrease is treated as a reset (adapter re-created or driver reloaded)
// and reported as invalid rather than as a wrap.
type counterState struct {
	mu      sync.Mutex
	entries map[counterKey]counterEntry
}

func newCounterState() *counterState {
	return &counterState{entries: make(map[counterKey]counterEntry)}
}

// Rate records current and, if a previous sample exists and the counter did
// not go backwards, returns the delta and rate.
func (s *counterState) Rate(key counterKey, current uint64, now time.Time) rateResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, exists := s.entries[key]
	s.entries[key] = counterEntry{Value: current, SeenAt: now}

	if !exists || current < prev.Value {
		return rateResult{}
	}
	elapsed := now.Sub(prev.SeenAt)
	if elapsed <= 0 {
		return rateResult{}
	}
	delta := current - prev.Value
	return rateResult{
		Delta:     delta,
		Elapsed:   elapsed,
		PerSecond: float64(delta) / elapsed.Seconds(),
		Valid:     true,
	}
}

// Purge drops entries not observed since maxAge ago, so adapters that went
// away do not pin memory.
func (s *counterState) Purge(maxAge time.Duration, now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now.Add(-maxAge)
	removed := 0
	for k, e := range s.entries {
		if e.SeenAt.Before(cutoff) {
			delete(s.entries, k)
			removed++
		}
	}
	return removed
}
