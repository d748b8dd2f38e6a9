package validation_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/openlot/settlement/internal/adapters/events"
	"github.com/openlot/settlement/internal/adapters/oracle"
	"github.com/openlot/settlement/internal/adapters/repository"
	"github.com/openlot/settlement/internal/domain/model"
	"github.com/openlot/settlement/internal/domain/rules"
	"github.com/openlot/settlement/internal/domain/validation"
)

var (
	auctionStart = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	auctionEnd   = auctionStart.Add(2 * time.Hour)
)

func newFixture(storeOpts ...repository.Option) (*validation.Service, *repository.MemoryStore, *events.Bus) {
	storeOpts = append([]repository.Option{
		repository.WithAuctions(model.Auction{
			ID:           "auction-1",
			Type:         model.AuctionEnglish,
			Status:       model.AuctionStatusActive,
			StartTime:    auctionStart,
			EndTime:      auctionEnd,
			MinIncrement: decimal.NewFromInt(1),
		}),
	}, storeOpts...)

	store := repository.NewMemoryStore(storeOpts...)
	orc := oracle.NewInMemoryOracle(oracle.WithLatencyRange(0, 0))
	engine := rules.New(store, orc, rules.Config{
		MinIncrement: decimal.NewFromInt(1),
		MaxBidAmount: decimal.NewFromInt(10_000),
	})
	bus := events.NewBus()
	return validation.New(engine, store, bus), store, bus
}

func request(bidder string, amount float64) model.BidValidationRequest {
	return model.BidValidationRequest{
		AuctionID: "auction-1",
		BidderID:  bidder,
		Amount:    decimal.NewFromFloat(amount),
		Timestamp: auctionStart.Add(30 * time.Minute),
	}
}

func TestValidateVerdicts(t *testing.T) {
	Convey("Given a validation service over an active auction", t, func() {
		svc, store, bus := newFixture()
		ctx := context.Background()

		Convey("When a clean bid is validated", func() {
			res := svc.Validate(ctx, request("alice", 100))

			Convey("Then the verdict is VALIDATED with a full score", func() {
				So(res.IsValid, ShouldBeTrue)
				So(res.Status, ShouldEqual, model.BidStatusValidated)
				So(res.Score, ShouldEqual, 100)
				So(len(res.Results), ShouldEqual, 11)
				So(res.Errors, ShouldBeEmpty)
			})

			Convey("And the verdict is persisted and published", func() {
				So(len(store.ValidationResults(ctx, "auction-1")), ShouldEqual, 1)
				So(bus.Len(), ShouldEqual, 1)

				e := <-bus.Subscribe()
				So(e.Name, ShouldEqual, events.BidValidated)
			})
		})

		Convey("When a bid exceeds the maximum amount", func() {
			res := svc.Validate(ctx, request("alice", 50_000))

			Convey("Then the verdict is REJECTED with a remediation", func() {
				So(res.IsValid, ShouldBeFalse)
				So(res.Status, ShouldEqual, model.BidStatusRejected)
				So(res.Score, ShouldBeLessThan, 100)
				So(len(res.Errors), ShouldEqual, 1)
				So(res.Errors[0].RuleID, ShouldEqual, rules.RuleMaxBid)
				So(res.Errors[0].Recommendation, ShouldNotBeEmpty)
			})
		})

		Convey("When only an advisory rule fails", func() {
			reserve := decimal.NewFromInt(5_000)
			So(store.PutAuction(ctx, model.Auction{
				ID:           "auction-1",
				Type:         model.AuctionEnglish,
				Status:       model.AuctionStatusActive,
				StartTime:    auctionStart,
				EndTime:      auctionEnd,
				MinIncrement: decimal.NewFromInt(1),
				ReservePrice: &reserve,
			}), ShouldBeNil)

			res := svc.Validate(ctx, request("alice", 100))

			Convey("Then warnings do not block the bid", func() {
				So(res.IsValid, ShouldBeTrue)
				So(res.Status, ShouldEqual, model.BidStatusValidated)
				So(len(res.Warnings), ShouldEqual, 1)
				So(res.Warnings[0].RuleID, ShouldEqual, rules.RuleReservePrice)
				So(res.Score, ShouldBeLessThan, 100)
			})
		})
	})
}

func TestValidationCache(t *testing.T) {
	Convey("Given a service with caching enabled", t, func() {
		svc, store, _ := newFixture()
		ctx := context.Background()

		Convey("When the same request is validated twice inside the TTL", func() {
			req := request("alice", 100)
			first := svc.Validate(ctx, req)
			second := svc.Validate(ctx, req)

			Convey("Then the cached verdict is returned verbatim", func() {
				So(second.Timestamp.Equal(first.Timestamp), ShouldBeTrue)
				So(second.IsValid, ShouldEqual, first.IsValid)
			})

			Convey("And the rules ran only once", func() {
				So(len(store.ValidationResults(ctx, "auction-1")), ShouldEqual, 1)
			})
		})

		Convey("When the amounts differ", func() {
			svc.Validate(ctx, request("alice", 100))
			svc.Validate(ctx, request("alice", 101))

			Convey("Then each amount is evaluated on its own", func() {
				So(len(store.ValidationResults(ctx, "auction-1")), ShouldEqual, 2)
			})
		})

		Convey("When the same bid lands in different minute buckets", func() {
			req := request("alice", 100)
			svc.Validate(ctx, req)

			req.Timestamp = req.Timestamp.Add(2 * time.Minute)
			svc.Validate(ctx, req)

			Convey("Then the bucket is part of the cache key", func() {
				So(len(store.ValidationResults(ctx, "auction-1")), ShouldEqual, 2)
			})
		})
	})

	Convey("Given a service with caching disabled", t, func() {
		store := repository.NewMemoryStore(repository.WithAuctions(model.Auction{
			ID:        "auction-1",
			Type:      model.AuctionEnglish,
			Status:    model.AuctionStatusActive,
			StartTime: auctionStart,
			EndTime:   auctionEnd,
		}))
		orc := oracle.NewInMemoryOracle(oracle.WithLatencyRange(0, 0))
		engine := rules.New(store, orc, rules.Config{MinIncrement: decimal.NewFromInt(1)})
		svc := validation.New(engine, store, events.NewBus(), validation.WithCacheDisabled())
		ctx := context.Background()

		Convey("When the same request is validated twice", func() {
			req := request("alice", 100)
			svc.Validate(ctx, req)
			svc.Validate(ctx, req)

			Convey("Then both submissions run the rules", func() {
				So(len(store.ValidationResults(ctx, "auction-1")), ShouldEqual, 2)
			})
		})
	})
}

// countingEvaluator counts evaluations and can be made slow or explosive.
type countingEvaluator struct {
	mu     sync.Mutex
	calls  int
	delay  time.Duration
	panics bool
}

func (c *countingEvaluator) Evaluate(_ context.Context, _ model.BidValidationRequest) []model.RuleResult {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()

	if c.panics {
		panic("evaluator exploded")
	}
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	return []model.RuleResult{
		{RuleID: "stub", Passed: true, Severity: model.SeverityInfo, Score: 10},
	}
}

func (c *countingEvaluator) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func TestConcurrentValidation(t *testing.T) {
	Convey("Given a slow evaluator behind the cache", t, func() {
		eval := &countingEvaluator{delay: 20 * time.Millisecond}
		store := repository.NewMemoryStore()
		svc := validation.New(eval, store, events.NewBus())
		ctx := context.Background()

		Convey("When many goroutines validate the same bid at once", func() {
			req := request("alice", 100)

			results := make([]model.ValidationResult, 16)
			var wg sync.WaitGroup
			for i := 0; i < 16; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					results[i] = svc.Validate(ctx, req)
				}(i)
			}
			wg.Wait()

			Convey("Then the rules ran exactly once and everyone got the verdict", func() {
				So(eval.count(), ShouldEqual, 1)
				for _, res := range results {
					So(res.IsValid, ShouldBeTrue)
				}
			})
		})
	})
}

func TestCriticalFailure(t *testing.T) {
	Convey("Given an evaluator that panics", t, func() {
		eval := &countingEvaluator{panics: true}
		svc := validation.New(eval, repository.NewMemoryStore(), events.NewBus())

		Convey("When a bid is validated", func() {
			res := svc.Validate(context.Background(), request("alice", 100))

			Convey("Then the verdict is a non-retryable CRITICAL rejection", func() {
				So(res.IsValid, ShouldBeFalse)
				So(res.Status, ShouldEqual, model.BidStatusRejected)
				So(res.Score, ShouldEqual, 0)
				So(len(res.Errors), ShouldEqual, 1)
				So(res.Errors[0].Severity, ShouldEqual, model.SeverityCritical)
				So(res.Errors[0].Recommendation, ShouldContainSubstring, "do not retry")
			})
		})
	})
}
