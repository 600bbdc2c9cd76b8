package scheduler_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vpbank/homelink_monitor/pkg/homelinkmonitor/scheduler"
)

// ─────────────────────────────────────────────────────────────────────────────
// Mock job
// ─────────────────────────────────────────────────────────────────────────────

type mockJob struct {
	mu    sync.Mutex
	calls []time.Time
	hold  time.Duration
	err   error
	panic bool
}

func (m *mockJob) RunCycle(ctx context.Context) error {
	m.mu.Lock()
	m.calls = append(m.calls, time.Now())
	hold, err, p := m.hold, m.err, m.panic
	m.mu.Unlock()

	if p {
		panic("boom")
	}
	if hold > 0 {
		select {
		case <-time.After(hold):
		case <-ctx.Done():
		}
	}
	return err
}

func (m *mockJob) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *mockJob) first() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[0]
}

func runFor(t *testing.T, s *scheduler.Scheduler, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	go s.Start(ctx)
	time.Sleep(d)
	cancel()

	stopped := make(chan struct{})
	go func() { s.Stop(); close(stopped) }()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Tests
// ─────────────────────────────────────────────────────────────────────────────

func TestScheduler_HonoursInitialDelay(t *testing.T) {
	job := &mockJob{}
	s := scheduler.New([]scheduler.Entry{{
		Name: "poll", Interval: time.Hour, InitialDelay: 100 * time.Millisecond, Job: job,
	}}, nil)

	begin := time.Now()
	runFor(t, s, 300*time.Millisecond)

	require.Equal(t, 1, job.count())
	assert.GreaterOrEqual(t, job.first().Sub(begin), 90*time.Millisecond)
}

func TestScheduler_FiresRepeatedly(t *testing.T) {
	job := &mockJob{}
	s := scheduler.New([]scheduler.Entry{{Name: "poll", Interval: 50 * time.Millisecond, Job: job}}, nil)

	runFor(t, s, 280*time.Millisecond)

	n := job.count()
	assert.GreaterOrEqual(t, n, 4)
	assert.LessOrEqual(t, n, 7)
}

func TestScheduler_SkipsOverlappingRuns(t *testing.T) {
	job := &mockJob{hold: 200 * time.Millisecond}
	s := scheduler.New([]scheduler.Entry{{Name: "slow", Interval: 30 * time.Millisecond, Job: job}}, nil)

	runFor(t, s, 150*time.Millisecond)

	assert.Equal(t, 1, job.count(), "a running job must not be started again")
	st := s.Stats()
	require.Len(t, st, 1)
	assert.Equal(t, 1, st[0].Runs)
	assert.Positive(t, st[0].Skipped)
}

func TestScheduler_SurvivesErrorsAndPanics(t *testing.T) {
	failing := &mockJob{err: errors.New("probe exploded")}
	panicking := &mockJob{panic: true}
	s := scheduler.New([]scheduler.Entry{
		{Name: "failing", Interval: 40 * time.Millisecond, Job: failing},
		{Name: "panicking", Interval: 40 * time.Millisecond, Job: panicking},
	}, nil)

	runFor(t, s, 200*time.Millisecond)

	assert.GreaterOrEqual(t, failing.count(), 2)
	assert.GreaterOrEqual(t, panicking.count(), 2)
}

func TestScheduler_StopWaitsForInFlightJob(t *testing.T) {
	var finished atomic.Bool
	job := scheduler.JobFunc(func(ctx context.Context) error {
		<-ctx.Done()
		time.Sleep(50 * time.Millisecond)
		finished.Store(true)
		return nil
	})
	s := scheduler.New([]scheduler.Entry{{Name: "wait", Interval: time.Hour, Job: job}}, nil)

	runFor(t, s, 50*time.Millisecond)
	assert.True(t, finished.Load())
}

func TestScheduler_IgnoresEntriesWithoutJob(t *testing.T) {
	s := scheduler.New([]scheduler.Entry{{Name: "empty"}}, nil)
	assert.Equal(t, 0, s.Entries())
	runFor(t, s, 20*time.Millisecond)
}
