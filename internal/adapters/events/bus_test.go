package events_test

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/openlot/settlement/internal/adapters/events"
)

func TestBusPublish(t *testing.T) {
	Convey("Given a bus", t, func() {
		bus := events.NewBus()
		ctx := context.Background()

		Convey("When an event is published", func() {
			err := bus.Publish(ctx, events.BidValidated, map[string]string{"bid": "b1"})
			So(err, ShouldBeNil)

			Convey("Then a subscriber receives it with a timestamp", func() {
				So(bus.Len(), ShouldEqual, 1)

				e := <-bus.Subscribe()
				So(e.Name, ShouldEqual, events.BidValidated)
				So(e.TS.IsZero(), ShouldBeFalse)
			})
		})

		Convey("When the bus is closed", func() {
			So(bus.Close(), ShouldBeNil)

			Convey("Then publishing fails fast", func() {
				err := bus.Publish(ctx, events.WinnerDetermined, nil)
				So(err, ShouldWrap, events.ErrBusClosed)
			})

			Convey("And closing again is a no-op", func() {
				So(bus.Close(), ShouldBeNil)
			})
		})
	})
}

func TestBusBackpressure(t *testing.T) {
	Convey("Given a bus with capacity one", t, func() {
		bus := events.NewBus(events.WithCapacity(1))
		ctx := context.Background()

		Convey("When a second event arrives with no consumer", func() {
			So(bus.Publish(ctx, events.WinnerDetermined, nil), ShouldBeNil)
			err := bus.Publish(ctx, events.WinnerDetermined, nil)

			Convey("Then the event is dropped, not blocked on", func() {
				So(err, ShouldWrap, events.ErrBusFull)
				So(bus.Len(), ShouldEqual, 1)
			})
		})
	})
}
