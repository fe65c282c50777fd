// Package stream fans detection changes out to live subscribers.
package stream

import (
	"sync"
	"sync/atomic"

	"github.com/mr1hm/sentinel-sea/internal/models"
)

// subscriberBuffer bounds how far a subscriber may fall behind before
// events are dropped for it.
const subscriberBuffer = 100

type Broadcaster struct {
	subscribers map[uint64]chan models.ChangeEvent
	nextID      atomic.Uint64
	mu          sync.RWMutex
	closed      bool
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[uint64]chan models.ChangeEvent),
	}
}

// Subscribe registers a listener. After Close the returned channel is
// already closed.
func (b *Broadcaster) Subscribe() (uint64, <-chan models.ChangeEvent) {
	id := b.nextID.Add(1)
	ch := make(chan models.ChangeEvent, subscriberBuffer)

	b.mu.Lock()
	if b.closed {
		close(ch)
	} else {
		b.subscribers[id] = ch
	}
	b.mu.Unlock()

	return id, ch
}

func (b *Broadcaster) Unsubscribe(id uint64) {
	b.mu.Lock()
	if ch, ok := b.subscribers[id]; ok {
		close(ch)
		delete(b.subscribers, id)
	}
	b.mu.Unlock()
}

func (b *Broadcaster) Broadcast(e models.ChangeEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subscribers {
		select {
		case ch <- e:
		default:
			// Skip slow subscribers
		}
	}
}

func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close closes all subscriber channels so their readers exit.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
	}
}

func Inserted(d models.Detection) models.ChangeEvent {
	return models.ChangeEvent{Type: models.ChangeInsert, Detection: &d}
}

func Updated(d models.Detection) models.ChangeEvent {
	return models.ChangeEvent{Type: models.ChangeUpdate, Detection: &d}
}

func Deleted(id string) models.ChangeEvent {
	return models.ChangeEvent{Type: models.ChangeDelete, OldID: id}
}
