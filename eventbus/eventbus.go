// Package eventbus provides in-memory pub/sub for submission events, used
// to fan progress out to SSE subscribers while the store keeps the durable
// copy for replay.
package eventbus

import (
	"sync"

	"github.com/google/uuid"

	"github.com/scaffy/scaffy/model"
)

// Bus delivers events published for a stream to its subscribers.
type Bus interface {
	Publish(streamID string, event *model.Event)
	Subscribe(streamID string) (ch <-chan *model.Event, cancel func())
}

// InMemoryBus is a process-local Bus. Subscriber channels are buffered;
// events for a slow subscriber are dropped rather than blocking the
// publisher (the store replay path fills any gaps).
type InMemoryBus struct {
	mu   sync.Mutex
	subs map[string]map[string]chan *model.Event
}

// NewInMemoryBus creates an empty bus.
func NewInMemoryBus() *InMemoryBus {
	return &InMemoryBus{subs: make(map[string]map[string]chan *model.Event)}
}

// Publish sends event to every subscriber of streamID.
func (b *InMemoryBus) Publish(streamID string, event *model.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs[streamID] {
		select {
		case ch <- event:
		default:
		}
	}
}

// Subscribe registers a new subscriber for streamID. The returned cancel
// func unregisters it and closes the channel.
func (b *InMemoryBus) Subscribe(streamID string) (<-chan *model.Event, func()) {
	ch := make(chan *model.Event, 64)
	key := uuid.NewString()

	b.mu.Lock()
	if b.subs[streamID] == nil {
		b.subs[streamID] = make(map[string]chan *model.Event)
	}
	b.subs[streamID][key] = ch
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if subs, ok := b.subs[streamID]; ok {
			if _, ok := subs[key]; ok {
				delete(subs, key)
				close(ch)
			}
			if len(subs) == 0 {
				delete(b.subs, streamID)
			}
		}
	}
	return ch, cancel
}
