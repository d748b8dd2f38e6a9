package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/openlot/settlement/pkg/logger"
	"github.com/openlot/settlement/pkg/metrics"
)

// Default dispatcher configuration constants.
const (
	defaultDispatchWorkers  = 4
	dispatchShutdownTimeout = 5 * time.Second
)

// Handler consumes one delivered event. Handlers must be safe for
// concurrent calls; the dispatcher runs them from multiple workers.
type Handler func(ctx context.Context, e Event)

// Dispatcher fans bus events out to registered handlers with a small worker
// pool. Registration happens before Run; the dispatcher drains the bus until
// it is closed or the context ends.
type Dispatcher struct {
	bus     *Bus
	workers int
	log     logger.Logger

	mu       sync.RWMutex
	handlers map[string][]Handler
	catchAll []Handler

	done chan struct{}
	wg   sync.WaitGroup
}

// DispatcherOption applies a configuration option to the Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithWorkers sets the number of dispatch goroutines.
func WithWorkers(count int) DispatcherOption {
	return func(d *Dispatcher) {
		if count > 0 {
			d.workers = count
		}
	}
}

// WithDispatcherLogger sets a custom logger for the dispatcher.
func WithDispatcherLogger(log logger.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if log != nil {
			d.log = log
		}
	}
}

// NewDispatcher creates a dispatcher over the given bus.
func NewDispatcher(bus *Bus, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		bus:      bus,
		workers:  defaultDispatchWorkers,
		log:      logger.Nop(),
		handlers: make(map[string][]Handler),
		done:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// On registers a handler for one event name.
func (d *Dispatcher) On(name string, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[name] = append(d.handlers[name], h)
}

// OnAll registers a handler for every event.
func (d *Dispatcher) OnAll(h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.catchAll = append(d.catchAll, h)
}

// Run starts the dispatch workers. It returns immediately; workers stop
// when the bus closes or ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	events := d.bus.Subscribe()

	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.loop(ctx, events)
		}()
	}

	go func() {
		d.wg.Wait()
		close(d.done)
	}()
}

// Shutdown waits for the workers to drain, bounded by a timeout.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, dispatchShutdownTimeout)
	defer cancel()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		d.log.Warn(ctx, "dispatcher shutdown timed out")
		return fmt.Errorf("dispatcher shutdown: %w", ctx.Err())
	}
}

func (d *Dispatcher) loop(ctx context.Context, events <-chan Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			d.deliver(ctx, e)
		}
	}
}

// deliver runs every matching handler, isolating panics so one bad handler
// cannot take a worker down.
func (d *Dispatcher) deliver(ctx context.Context, e Event) {
	d.mu.RLock()
	targets := make([]Handler, 0, len(d.handlers[e.Name])+len(d.catchAll))
	targets = append(targets, d.handlers[e.Name]...)
	targets = append(targets, d.catchAll...)
	d.mu.RUnlock()

	for _, h := range targets {
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					metrics.RecordErrorByComponent("dispatcher", "handler_panic")
					d.log.Error(ctx, "event handler panicked",
						logger.String("event", e.Name),
						logger.Any("panic", rec),
					)
				}
			}()
			h(ctx, e)
		}()
	}
}
