// Package event carries domain events between the transfer core and its
// observers (the realtime hub and the desktop bridge).
package event

import (
	"sync"
)

// Kind identifies a domain event.
type Kind string

const (
	KindBatchCreated   Kind = "batch-created"
	KindTextRecorded   Kind = "text-recorded"
	KindHistoryCleared Kind = "history-cleared"
	KindFilesReceived  Kind = "files-received"
)

// Event is one domain event with its payload. Payload types are owned by
// the publishing package (store.Batch, store.TextEntry, []received.File).
type Event struct {
	Kind    Kind
	Payload interface{}
}

// Bus fans events out to all subscribers. Publish never blocks: a
// subscriber whose buffer is full misses the event.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[uint64]chan Event
	nextID      uint64
}

// NewBus creates a new event bus.
func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[uint64]chan Event),
	}
}

// Subscribe registers a subscriber and returns its channel plus a cancel
// function. Cancel closes the channel and drops the subscription.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 64
	}

	ch := make(chan Event, buffer)

	b.mu.Lock()
	b.nextID++
	subID := b.nextID
	b.subscribers[subID] = ch
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		sub, exists := b.subscribers[subID]
		if !exists {
			return
		}
		delete(b.subscribers, subID)
		close(sub)
	}

	return ch, cancel
}

// Publish delivers evt to every subscriber that has buffer space.
func (b *Bus) Publish(evt Event) {
	b.mu.RLock()
	for _, sub := range b.subscribers {
		select {
		case sub <- evt:
		default:
		}
	}
	b.mu.RUnlock()
}

// SubscriberCount returns the number of active subscriptions.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
