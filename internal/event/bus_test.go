package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusSubscribePublish(t *testing.T) {
	bus := NewBus()

	ch, cancel := bus.Subscribe(4)
	defer cancel()

	bus.Publish(Event{Kind: KindBatchCreated, Payload: "payload"})

	select {
	case evt := <-ch:
		assert.Equal(t, KindBatchCreated, evt.Kind)
		assert.Equal(t, "payload", evt.Payload)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestBusMultipleSubscribers(t *testing.T) {
	bus := NewBus()

	ch1, cancel1 := bus.Subscribe(4)
	defer cancel1()
	ch2, cancel2 := bus.Subscribe(4)
	defer cancel2()

	bus.Publish(Event{Kind: KindTextRecorded})

	for _, ch := range []<-chan Event{ch1, ch2} {
		select {
		case evt := <-ch:
			assert.Equal(t, KindTextRecorded, evt.Kind)
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive event")
		}
	}
}

func TestBusCancelClosesChannel(t *testing.T) {
	bus := NewBus()

	ch, cancel := bus.Subscribe(1)
	cancel()

	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, bus.SubscriberCount())

	// Second cancel is a no-op
	cancel()
}

func TestBusPublishNeverBlocks(t *testing.T) {
	bus := NewBus()

	// Subscriber with a tiny buffer that nobody drains
	_, cancel := bus.Subscribe(1)
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			bus.Publish(Event{Kind: KindHistoryCleared})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}

func TestBusPublishWithoutSubscribers(t *testing.T) {
	bus := NewBus()
	require.NotPanics(t, func() {
		bus.Publish(Event{Kind: KindFilesReceived})
	})
}
