package events

import (
	"context"
	"sync"
	"time"

	"github.com/openlot/settlement/pkg/metrics"
)

// Default bus configuration constants.
const (
	defaultBusCapacity = 4096
)

// Bus implements Publisher using a buffered channel. Publishing never blocks:
// when the buffer is full the event is dropped and an error returned, leaving
// backpressure policy to the caller.
type Bus struct {
	events   chan Event
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewBus creates a new in-memory event bus with configuration options.
func NewBus(opts ...Option) *Bus {
	b := &Bus{
		capacity: defaultBusCapacity,
	}

	for _, opt := range opts {
		opt(b)
	}

	b.events = make(chan Event, b.capacity)

	return b
}

// Publish emits a named domain event.
func (b *Bus) Publish(ctx context.Context, name string, payload any) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		metrics.RecordEventDropped(name)
		return ErrBusClosed
	}

	e := Event{Name: name, Payload: payload, TS: time.Now().UTC()}

	select {
	case b.events <- e:
		metrics.RecordEventPublished(name)
		return nil
	case <-ctx.Done():
		metrics.RecordEventDropped(name)
		return ctx.Err()
	default:
		metrics.RecordEventDropped(name)
		return ErrBusFull
	}
}

// Subscribe returns the channel events are delivered on. The channel is closed
// when the bus is closed.
func (b *Bus) Subscribe() <-chan Event {
	return b.events
}

// Len returns the number of buffered, undelivered events.
func (b *Bus) Len() int {
	return len(b.events)
}

// Close shuts down the bus. Further publishes return ErrBusClosed.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	close(b.events)
	b.closed = true
	return nil
}
