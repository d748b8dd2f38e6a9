package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/openlot/settlement/internal/adapters/events"
	"github.com/openlot/settlement/internal/adapters/oracle"
	"github.com/openlot/settlement/internal/adapters/repository"
	service "github.com/openlot/settlement/internal/app"
	"github.com/openlot/settlement/internal/config"
	"github.com/openlot/settlement/internal/domain/model"
)

func TestSettlementIntegration(t *testing.T) {
	Convey("Given a core over several closed auctions", t, func() {
		reserve := decimal.NewFromInt(200)
		vickrey := activeAuction("vickrey-1", model.AuctionVickrey)
		reserved := activeAuction("reserved-1", model.AuctionReservePrice)
		reserved.ReservePrice = &reserve

		svc, _ := newCore(
			repository.WithAuctions(
				activeAuction("english-1", model.AuctionEnglish),
				vickrey,
				reserved,
			),
			repository.WithBids("english-1",
				bid("e1", "alice", 100), bid("e2", "bob", 150), bid("e3", "carol", 120)),
			repository.WithBids("vickrey-1",
				bid("v1", "alice", 100), bid("v2", "bob", 150), bid("v3", "carol", 120)),
			repository.WithBids("reserved-1",
				bid("r1", "alice", 80)),
		)
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When all three auctions settle", func() {
			english, err := svc.SettleAuction(ctx, "english-1")
			So(err, ShouldBeNil)
			second, err := svc.SettleAuction(ctx, "vickrey-1")
			So(err, ShouldBeNil)
			missed, err := svc.SettleAuction(ctx, "reserved-1")
			So(err, ShouldBeNil)

			Convey("Then each mechanism settles per its own pricing", func() {
				So(english.Result.SettlementPrice.InexactFloat64(), ShouldEqual, 150)
				So(second.Result.WinnerID, ShouldEqual, "bob")
				So(second.Result.SettlementPrice.InexactFloat64(), ShouldEqual, 120)
			})

			Convey("And the unmet reserve yields a failed but recorded determination", func() {
				So(missed.Result.Success, ShouldBeFalse)
				So(missed.Result.Metadata.Reason, ShouldEqual, "reserve price not met")
				So(missed.Status, ShouldEqual, model.DeterminationPending)
			})

			Convey("And every settlement was announced on the bus", func() {
				determined := 0
				drain := svc.Bus()
				for drain.Len() > 0 {
					e := <-drain.Subscribe()
					if e.Name == events.WinnerDetermined {
						determined++
					}
				}
				So(determined, ShouldEqual, 3)
			})
		})

		Convey("When a dispatcher consumes the event stream", func() {
			var mu sync.Mutex
			seen := map[string]int{}

			dispatcher := events.NewDispatcher(svc.Bus(), events.WithWorkers(2))
			dispatcher.OnAll(func(_ context.Context, e events.Event) {
				mu.Lock()
				seen[e.Name]++
				mu.Unlock()
			})
			dispatcher.Run(ctx)

			det, err := svc.SettleAuction(ctx, "english-1")
			So(err, ShouldBeNil)
			ok, err := svc.ConfirmWinner(ctx, det.ID, "admin")
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)

			svc.Stop()
			So(dispatcher.Shutdown(ctx), ShouldBeNil)

			Convey("Then determination and confirmation events arrive", func() {
				mu.Lock()
				defer mu.Unlock()
				So(seen[events.WinnerDetermined], ShouldEqual, 1)
				So(seen[events.WinnerConfirmed], ShouldEqual, 1)
			})
		})
	})
}

func TestValidationUnderLoad(t *testing.T) {
	Convey("Given a core with a live auction and seeded oracle state", t, func() {
		cfg := config.New(context.Background())

		live := activeAuction("auction-live", model.AuctionEnglish)
		live.EndTime = time.Now().Add(time.Hour)

		store := repository.NewMemoryStore(repository.WithAuctions(live))
		orc := oracle.NewInMemoryOracle(
			oracle.WithLatencyRange(0, 0),
			oracle.WithIneligible("banned"),
		)
		svc := service.New(cfg, service.WithStore(store), service.WithOracle(orc))

		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When many distinct bids validate concurrently", func() {
			const bidders = 20
			results := make([]model.ValidationResult, bidders)

			var wg sync.WaitGroup
			for i := 0; i < bidders; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					res, err := svc.ValidateBid(ctx, model.BidValidationRequest{
						AuctionID: "auction-live",
						BidderID:  fmt.Sprintf("bidder-%d", i),
						Amount:    decimal.NewFromInt(int64(100 + i)),
						Timestamp: time.Now(),
					})
					if err == nil {
						results[i] = res
					}
				}(i)
			}
			wg.Wait()

			Convey("Then every verdict lands with a full rule trace", func() {
				for _, res := range results {
					So(len(res.Results), ShouldEqual, 11)
					So(res.IsValid, ShouldBeTrue)
				}
			})
		})

		Convey("When an ineligible bidder validates", func() {
			res, err := svc.ValidateBid(ctx, model.BidValidationRequest{
				AuctionID: "auction-live",
				BidderID:  "banned",
				Amount:    decimal.NewFromInt(500),
				Timestamp: time.Now(),
			})
			So(err, ShouldBeNil)

			Convey("Then the bid is rejected with the eligibility error", func() {
				So(res.IsValid, ShouldBeFalse)
				So(res.Status, ShouldEqual, model.BidStatusRejected)
				So(len(res.Errors), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})
	})
}
