// Package scheduler drives the monitor's periodic work: the poll cycle and
// the retention purge. Each entry fires on a fixed-rate timeline anchored at
// its first run, and an entry never overlaps itself: a tick that arrives
// while the previous run is still in flight is skipped.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Job: interface for dependency injection
// ─────────────────────────────────────────────────────────────────────────────

// Job is one unit of periodic work. An error is logged and does not stop the
// schedule.
type Job interface {
	RunCycle(ctx context.Context) error
}

// JobFunc adapts a plain function to Job.
type JobFunc func(ctx context.Context) error

func (f JobFunc) RunCycle(ctx context.Context) error { return f(ctx) }

// Entry describes one scheduled job.
type Entry struct {
	Name         string
	Interval     time.Duration
	InitialDelay time.Duration
	Job          Job
}

// ─────────────────────────────────────────────────────────────────────────────
// Scheduler
// ─────────────────────────────────────────────────────────────────────────────

type entry struct {
	Entry
	nextRun time.Time
	running bool
	runs    int
	skipped int
}

// Stats is a point-in-time view of one entry.
type Stats struct {
	Name    string
	Runs    int
	Skipped int
	NextRun time.Time
}

// Scheduler runs its entries until the context passed to Start is cancelled.
type Scheduler struct {
	logger *slog.Logger

	mu      sync.Mutex
	entries []*entry

	wg   sync.WaitGroup
	done chan struct{}
}

// New creates a Scheduler. Entries with a non-positive interval default to
// one minute. The scheduler does NOT start automatically, call Start.
func New(entries []Entry, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}
	s := &Scheduler{
		logger: logger,
		done:   make(chan struct{}),
	}
	now := time.Now()
	for _, e := range entries {
		if e.Job == nil {
			logger.Warn("scheduler: entry has no job, ignoring", "name", e.Name)
			continue
		}
		if e.Interval <= 0 {
			e.Interval = time.Minute
		}
		s.entries = append(s.entries, &entry{
			Entry:   e,
			nextRun: now.Add(max(e.InitialDelay, 0)),
		})
	}
	return s
}

// Start runs the scheduling loop. It blocks until ctx is cancelled and every
// in-flight job has returned.
func (s *Scheduler) Start(ctx context.Context) {
	defer close(s.done)
	defer s.wg.Wait()

	if len(s.entries) == 0 {
		<-ctx.Done()
		return
	}

	for {
		s.mu.Lock()
		sort.Slice(s.entries, func(i, j int) bool {
			return s.entries[i].nextRun.Before(s.entries[j].nextRun)
		})
		next := s.entries[0].nextRun
		s.mu.Unlock()

		timer := time.NewTimer(max(time.Until(next), 0))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		now := time.Now()
		s.mu.Lock()
		for _, e := range s.entries {
			if e.nextRun.After(now) {
				break
			}
			s.fire(ctx, e)
			// Fixed rate: advance along the original timeline, dropping
			// any ticks that were missed entirely.
			for !e.nextRun.After(now) {
				e.nextRun = e.nextRun.Add(e.Interval)
			}
		}
		s.mu.Unlock()
	}
}

// Stop waits for the scheduling loop to exit. The caller must cancel the
// context passed to Start before calling Stop.
func (s *Scheduler) Stop() {
	<-s.done
}

// Entries returns the number of active entries.
func (s *Scheduler) Entries() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Stats returns per-entry counters sorted by name.
func (s *Scheduler) Stats() []Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Stats, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, Stats{Name: e.Name, Runs: e.runs, Skipped: e.skipped, NextRun: e.nextRun})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// Internal helpers
// ─────────────────────────────────────────────────────────────────────────────

// fire starts e's job unless it is still running. Caller holds s.mu.
func (s *Scheduler) fire(ctx context.Context, e *entry) {
	if e.running {
		e.skipped++
		s.logger.Warn("scheduler: previous run still in progress, skipping tick", "name", e.Name)
		return
	}
	e.running = true
	e.runs++

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			e.running = false
			s.mu.Unlock()
		}()

		start := time.Now()
		if err := runSafely(ctx, e.Job); err != nil {
			s.logger.Error("scheduler: job failed", "name", e.Name, "error", err.Error())
			return
		}
		s.logger.Debug("scheduler: job finished", "name", e.Name, "elapsed", time.Since(start))
	}()
}

// runSafely converts a panic inside the job into an error so one bad cycle
// cannot take the process down.
func runSafely(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return job.RunCycle(ctx)
}

type noopWriter struct{}

func (noopWriter) Write(p []byte) (int, error) { return len(p), nil }
