package bus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/framehub/framehub/pkg/logger"
	"github.com/framehub/framehub/pkg/models"
)

func recvEvent(t *testing.T, ch <-chan models.DeviceEvent) models.DeviceEvent {
	t.Helper()

	select {
	case ev, ok := <-ch:
		require.True(t, ok, "channel closed unexpectedly")
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return models.DeviceEvent{}
	}
}

func TestPublishReachesAllSubscribers(t *testing.T) {
	b := New(logger.NewTestLogger())
	defer b.Close()

	ch1, cancel1 := b.Subscribe()
	defer cancel1()

	ch2, cancel2 := b.Subscribe()
	defer cancel2()

	b.Publish(models.DeviceEvent{Kind: models.EventStatusUpdated, DeviceID: "kitchen"})

	ev1 := recvEvent(t, ch1)
	ev2 := recvEvent(t, ch2)

	assert.Equal(t, "kitchen", ev1.DeviceID)
	assert.Equal(t, ev1, ev2)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New(logger.NewTestLogger())
	defer b.Close()

	ch, cancel := b.Subscribe()
	cancel()
	cancel() // second call is a no-op

	_, ok := <-ch
	assert.False(t, ok, "channel should be closed after cancel")

	// Publishing to a bus with no subscribers must not panic.
	b.Publish(models.DeviceEvent{Kind: models.EventStatusUpdated, DeviceID: "kitchen"})
}

func TestSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	b := New(logger.NewTestLogger())
	defer b.Close()

	ch, cancel := b.Subscribe()
	defer cancel()

	done := make(chan struct{})

	go func() {
		defer close(done)

		for i := 0; i < defaultSubscriberBuffer*2; i++ {
			b.Publish(models.DeviceEvent{Kind: models.EventStatusUpdated, DeviceID: "kitchen"})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}

	// The subscriber still sees the buffered prefix.
	ev := recvEvent(t, ch)
	assert.Equal(t, "kitchen", ev.DeviceID)
}

func TestCloseClosesSubscribers(t *testing.T) {
	b := New(logger.NewTestLogger())

	ch, _ := b.Subscribe()

	b.Close()
	b.Close() // idempotent

	for range ch {
		// drain until close
	}

	// Subscribing after close yields a closed channel.
	late, cancel := b.Subscribe()
	defer cancel()

	_, ok := <-late
	assert.False(t, ok)
}
