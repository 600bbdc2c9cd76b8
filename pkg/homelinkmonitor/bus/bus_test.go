package bus_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vpbank/homelink_monitor/models"
	"github.com/vpbank/homelink_monitor/pkg/homelinkmonitor/bus"
)

type dropRecorder struct {
	mu    sync.Mutex
	kinds []bus.Kind
}

func (d *dropRecorder) Dropped(k bus.Kind) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.kinds = append(d.kinds, k)
}

func recv(t *testing.T, s *bus.Subscription) bus.Event {
	t.Helper()
	select {
	case ev, ok := <-s.C():
		require.True(t, ok, "channel closed")
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return bus.Event{}
	}
}

func TestPublish_FansOutToAllSubscribers(t *testing.T) {
	b := bus.New(nil, nil)
	s1 := b.Subscribe("a", 4)
	s2 := b.Subscribe("b", 4)
	defer s1.Close()
	defer s2.Close()

	b.PublishAlert(models.AlertEvent{AlertType: models.AlertSignalLow})

	for _, s := range []*bus.Subscription{s1, s2} {
		ev := recv(t, s)
		assert.Equal(t, bus.KindAlert, ev.Kind)
		require.NotNil(t, ev.Alert)
		assert.Equal(t, models.AlertSignalLow, ev.Alert.AlertType)
		assert.False(t, ev.Published.IsZero())
	}
}

func TestPublish_PreservesOrder(t *testing.T) {
	b := bus.New(nil, nil)
	s := b.Subscribe("ordered", 8)
	defer s.Close()

	for _, st := range []models.ConnectionStatus{models.StatusGood, models.StatusPoor, models.StatusFair} {
		b.PublishSnapshot(models.MonitoringSnapshot{OverallStatus: st})
	}
	assert.Equal(t, models.StatusGood, recv(t, s).Snapshot.OverallStatus)
	assert.Equal(t, models.StatusPoor, recv(t, s).Snapshot.OverallStatus)
	assert.Equal(t, models.StatusFair, recv(t, s).Snapshot.OverallStatus)
}

func TestPublish_NeverBlocksOnSlowSubscriber(t *testing.T) {
	drops := &dropRecorder{}
	b := bus.New(drops, nil)
	slow := b.Subscribe("slow", 1)
	defer slow.Close()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			b.PublishRoaming(models.RoamingEvent{NewBSSID: "aa"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
	assert.Equal(t, uint64(9), slow.Dropped())
	assert.Len(t, drops.kinds, 9)
	assert.Equal(t, bus.KindRoaming, drops.kinds[0])
}

func TestPublishSnapshot_SubscribersGetACopy(t *testing.T) {
	b := bus.New(nil, nil)
	s := b.Subscribe("copy", 1)
	defer s.Close()

	snap := models.MonitoringSnapshot{Wifi: &models.WifiSnapshot{SSID: "home"}}
	b.PublishSnapshot(snap)
	snap.Wifi.SSID = "mutated"

	assert.Equal(t, "home", recv(t, s).Snapshot.Wifi.SSID)
}

func TestSubscription_CloseDetaches(t *testing.T) {
	b := bus.New(nil, nil)
	s := b.Subscribe("gone", 1)
	assert.Equal(t, 1, b.Subscribers())

	s.Close()
	s.Close()
	assert.Equal(t, 0, b.Subscribers())

	_, ok := <-s.C()
	assert.False(t, ok, "channel must be closed")

	b.PublishAlert(models.AlertEvent{})
}

func TestBus_CloseClosesSubscribers(t *testing.T) {
	b := bus.New(nil, nil)
	s := b.Subscribe("x", 1)
	b.Close()

	_, ok := <-s.C()
	assert.False(t, ok)
	s.Close()

	late := b.Subscribe("late", 1)
	_, ok = <-late.C()
	assert.False(t, ok, "subscribing after Close yields a closed channel")
	b.PublishAlert(models.AlertEvent{})
}
