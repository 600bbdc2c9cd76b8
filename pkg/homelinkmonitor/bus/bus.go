// Package bus is the in-process broadcast channel between the monitor core
// and its consumers (HTTP API, websocket clients, journal).
//
// Publishing never blocks: each subscriber owns a buffered channel and an
// event is dropped for any subscriber whose buffer is full. There is no
// replay, so a subscriber only sees events published while it is attached.
// Events from one publisher arrive in the order they were published.
package bus

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vpbank/homelink_monitor/models"
)

// Kind tags the payload carried by an Event.
type Kind string

const (
	KindSnapshot Kind = "snapshot"
	KindAlert    Kind = "alert"
	KindRoaming  Kind = "roaming"
)

// Event is one broadcast message. Exactly one payload pointer is set,
// matching Kind. Payloads are private copies and may be read freely, but
// must not be mutated since every subscriber shares the same copy.
type Event struct {
	Kind      Kind                       `json:"kind"`
	Published time.Time                  `json:"published"`
	Snapshot  *models.MonitoringSnapshot `json:"snapshot,omitempty"`
	Alert     *models.AlertEvent         `json:"alert,omitempty"`
	Roaming   *models.RoamingEvent       `json:"roaming,omitempty"`
}

// DropCounter is notified whenever an event is dropped for a slow
// subscriber.
type DropCounter interface {
	Dropped(kind Kind)
}

// ─────────────────────────────────────────────────────────────────────────────
// Bus
// ─────────────────────────────────────────────────────────────────────────────

// Bus fans events out to subscribers. It is safe for concurrent use.
type Bus struct {
	mu     sync.RWMutex
	subs   map[uint64]*Subscription
	nextID uint64
	closed bool

	drops  DropCounter
	logger *slog.Logger
}

// New constructs a Bus. drops may be nil.
func New(drops DropCounter, logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}
	return &Bus{
		subs:   make(map[uint64]*Subscription),
		drops:  drops,
		logger: logger,
	}
}

// Subscribe attaches a new subscriber with the given channel capacity
// (minimum 1). The caller must Close the subscription when done.
func (b *Bus) Subscribe(name string, buffer int) *Subscription {
	if buffer < 1 {
		buffer = 1
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	s := &Subscription{
		id:   b.nextID,
		name: name,
		ch:   make(chan Event, buffer),
		bus:  b,
	}
	if b.closed {
		close(s.ch)
		return s
	}
	b.subs[s.id] = s
	b.logger.Debug("bus: subscriber attached", "name", name, "buffer", buffer)
	return s
}

// PublishSnapshot broadcasts a deep copy of snap.
func (b *Bus) PublishSnapshot(snap models.MonitoringSnapshot) {
	cp := snap.Clone()
	b.publish(Event{Kind: KindSnapshot, Snapshot: &cp})
}

// PublishAlert broadcasts a copy of alert.
func (b *Bus) PublishAlert(alert models.AlertEvent) {
	b.publish(Event{Kind: KindAlert, Alert: &alert})
}

// PublishRoaming broadcasts a copy of ev.
func (b *Bus) PublishRoaming(ev models.RoamingEvent) {
	b.publish(Event{Kind: KindRoaming, Roaming: &ev})
}

// Close detaches every subscriber and closes their channels. Later
// publishes are no-ops.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, s := range b.subs {
		close(s.ch)
		delete(b.subs, id)
	}
}

// Subscribers returns the number of attached subscribers.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (b *Bus) publish(ev Event) {
	ev.Published = time.Now().UTC()

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, s := range b.subs {
		select {
		case s.ch <- ev:
		default:
			s.dropped.Add(1)
			if b.drops != nil {
				b.drops.Dropped(ev.Kind)
			}
			b.logger.Debug("bus: subscriber full, event dropped", "name", s.name, "kind", string(ev.Kind))
		}
	}
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok := b.subs[id]; ok {
		close(s.ch)
		delete(b.subs, id)
		b.logger.Debug("bus: subscriber detached", "name", s.name)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Subscription
// ─────────────────────────────────────────────────────────────────────────────

// Subscription is one consumer's view of the bus.
type Subscription struct {
	id      uint64
	name    string
	ch      chan Event
	bus     *Bus
	dropped atomic.Uint64
	once    sync.Once
}

// C returns the event channel. It is closed by Close or Bus.Close.
func (s *Subscription) C() <-chan Event { return s.ch }

// Dropped returns how many events this subscriber missed.
func (s *Subscription) Dropped() uint64 { return s.dropped.Load() }

// Close detaches the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() { s.bus.remove(s.id) })
}

type noopWriter struct{}

func (noopWriter) Write(p []byte) (int, error) { return len(p), nil }
