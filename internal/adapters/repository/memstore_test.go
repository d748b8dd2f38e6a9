package repository_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/openlot/settlement/internal/adapters/repository"
	"github.com/openlot/settlement/internal/domain/model"
)

func TestAuctionAndBids(t *testing.T) {
	Convey("Given an empty store", t, func() {
		store := repository.NewMemoryStore()
		ctx := context.Background()

		Convey("When an unknown auction is requested", func() {
			_, err := store.Auction(ctx, "missing")
			So(err, ShouldWrap, repository.ErrNotFound)
		})

		Convey("When an auction is put and read back", func() {
			So(store.PutAuction(ctx, model.Auction{ID: "auction-1", Status: model.AuctionStatusActive}), ShouldBeNil)

			a, err := store.Auction(ctx, "auction-1")
			So(err, ShouldBeNil)
			So(a.Status, ShouldEqual, model.AuctionStatusActive)
		})

		Convey("When no bids exist", func() {
			_, err := store.HighestBid(ctx, "auction-1")
			So(err, ShouldWrap, repository.ErrNoBids)

			bids, err := store.Bids(ctx, "auction-1")
			So(err, ShouldBeNil)
			So(bids, ShouldBeEmpty)
		})

		Convey("When bids are recorded", func() {
			So(store.RecordBid(ctx, "auction-1", model.BidData{BidID: "b1", BidderID: "alice", Amount: decimal.NewFromInt(100)}), ShouldBeNil)
			So(store.RecordBid(ctx, "auction-1", model.BidData{BidID: "b2", BidderID: "bob", Amount: decimal.NewFromInt(150)}), ShouldBeNil)
			So(store.RecordBid(ctx, "auction-1", model.BidData{BidID: "b3", BidderID: "alice", Amount: decimal.NewFromInt(120)}), ShouldBeNil)

			Convey("Then the highest bid is found", func() {
				highest, err := store.HighestBid(ctx, "auction-1")
				So(err, ShouldBeNil)
				So(highest.BidID, ShouldEqual, "b2")
			})

			Convey("And bids list in insertion order", func() {
				bids, err := store.Bids(ctx, "auction-1")
				So(err, ShouldBeNil)
				So(len(bids), ShouldEqual, 3)
				So(bids[0].BidID, ShouldEqual, "b1")
			})

			Convey("And per-bidder counts are tracked", func() {
				n, err := store.BidderBidCount(ctx, "auction-1", "alice")
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 2)
			})
		})
	})
}

func TestDeterminationStorage(t *testing.T) {
	Convey("Given a store", t, func() {
		store := repository.NewMemoryStore()
		ctx := context.Background()

		det := model.WinnerDetermination{
			ID:        "det-1",
			AuctionID: "auction-1",
			Status:    model.DeterminationPending,
		}

		Convey("When a determination is saved", func() {
			So(store.SaveDetermination(ctx, det), ShouldBeNil)

			Convey("Then saving the same id again is a duplicate", func() {
				So(store.SaveDetermination(ctx, det), ShouldWrap, repository.ErrDuplicate)
			})

			Convey("And it is found by id and by auction", func() {
				byID, err := store.Determination(ctx, "det-1")
				So(err, ShouldBeNil)
				So(byID.AuctionID, ShouldEqual, "auction-1")

				byAuction, err := store.DeterminationByAuction(ctx, "auction-1")
				So(err, ShouldBeNil)
				So(byAuction.ID, ShouldEqual, "det-1")
			})

			Convey("And updates replace the record", func() {
				det.Status = model.DeterminationConfirmed
				So(store.UpdateDetermination(ctx, det), ShouldBeNil)

				got, _ := store.Determination(ctx, "det-1")
				So(got.Status, ShouldEqual, model.DeterminationConfirmed)
			})
		})

		Convey("When updating a determination that was never saved", func() {
			So(store.UpdateDetermination(ctx, det), ShouldWrap, repository.ErrNotFound)
		})
	})
}

func TestDisputeStorage(t *testing.T) {
	Convey("Given a store with a determination", t, func() {
		store := repository.NewMemoryStore()
		ctx := context.Background()

		Convey("When disputes are saved against it", func() {
			So(store.SaveDispute(ctx, model.Dispute{ID: "d1", DeterminationID: "det-1", Status: model.DisputeOpen}), ShouldBeNil)
			So(store.SaveDispute(ctx, model.Dispute{ID: "d2", DeterminationID: "det-1", Status: model.DisputeOpen}), ShouldBeNil)

			Convey("Then they list in creation order", func() {
				disputes, err := store.DisputesByDetermination(ctx, "det-1")
				So(err, ShouldBeNil)
				So(len(disputes), ShouldEqual, 2)
				So(disputes[0].ID, ShouldEqual, "d1")
			})

			Convey("And an update sticks", func() {
				d, _ := store.Dispute(ctx, "d1")
				d.Status = model.DisputeResolved
				So(store.UpdateDispute(ctx, d), ShouldBeNil)

				got, _ := store.Dispute(ctx, "d1")
				So(got.Status, ShouldEqual, model.DisputeResolved)
			})
		})
	})
}
