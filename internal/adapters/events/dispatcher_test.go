package events_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/openlot/settlement/internal/adapters/events"
)

func TestDispatcherDelivery(t *testing.T) {
	Convey("Given a dispatcher with named and catch-all handlers", t, func() {
		bus := events.NewBus()
		dispatcher := events.NewDispatcher(bus, events.WithWorkers(2))
		ctx := context.Background()

		var mu sync.Mutex
		var named []string
		var all int32

		dispatcher.On(events.WinnerConfirmed, func(_ context.Context, e events.Event) {
			mu.Lock()
			named = append(named, e.Name)
			mu.Unlock()
		})
		dispatcher.OnAll(func(_ context.Context, _ events.Event) {
			atomic.AddInt32(&all, 1)
		})

		dispatcher.Run(ctx)

		Convey("When mixed events are published and the bus closes", func() {
			So(bus.Publish(ctx, events.WinnerConfirmed, nil), ShouldBeNil)
			So(bus.Publish(ctx, events.WinnerRejected, nil), ShouldBeNil)
			So(bus.Publish(ctx, events.WinnerConfirmed, nil), ShouldBeNil)
			So(bus.Close(), ShouldBeNil)
			So(dispatcher.Shutdown(ctx), ShouldBeNil)

			Convey("Then named handlers saw only their events", func() {
				mu.Lock()
				defer mu.Unlock()
				So(len(named), ShouldEqual, 2)
			})

			Convey("And the catch-all handler saw everything", func() {
				So(atomic.LoadInt32(&all), ShouldEqual, 3)
			})
		})
	})
}

func TestDispatcherPanicIsolation(t *testing.T) {
	Convey("Given a handler that panics", t, func() {
		bus := events.NewBus()
		dispatcher := events.NewDispatcher(bus, events.WithWorkers(1))
		ctx := context.Background()

		var delivered int32
		dispatcher.On(events.DisputeRaised, func(_ context.Context, _ events.Event) {
			panic("handler exploded")
		})
		dispatcher.On(events.DisputeRaised, func(_ context.Context, _ events.Event) {
			atomic.AddInt32(&delivered, 1)
		})

		dispatcher.Run(ctx)

		Convey("When an event triggers both handlers", func() {
			So(bus.Publish(ctx, events.DisputeRaised, nil), ShouldBeNil)
			So(bus.Close(), ShouldBeNil)
			So(dispatcher.Shutdown(ctx), ShouldBeNil)

			Convey("Then the panic does not stop the later handler", func() {
				So(atomic.LoadInt32(&delivered), ShouldEqual, 1)
			})
		})
	})
}

func TestDispatcherContextCancel(t *testing.T) {
	Convey("Given a running dispatcher", t, func() {
		bus := events.NewBus()
		dispatcher := events.NewDispatcher(bus)
		ctx, cancel := context.WithCancel(context.Background())

		dispatcher.Run(ctx)

		Convey("When the context is cancelled", func() {
			cancel()

			Convey("Then shutdown completes promptly", func() {
				done := make(chan error, 1)
				go func() { done <- dispatcher.Shutdown(context.Background()) }()

				select {
				case err := <-done:
					So(err, ShouldBeNil)
				case <-time.After(2 * time.Second):
					So("shutdown did not complete", ShouldBeBlank)
				}
			})
		})
	})
}
