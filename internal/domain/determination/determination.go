// Package determination selects the winner of a closed auction.
//
// Each auction type maps to a fixed mechanism; the mapping is not
// configurable per call. Determination never fails with an error: every
// failure path returns success=false with an explanatory reason.
package determination

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/openlot/settlement/internal/adapters/events"
	"github.com/openlot/settlement/internal/domain/model"
	"github.com/openlot/settlement/pkg/logger"
	"github.com/openlot/settlement/pkg/metrics"
)

// Default engine configuration constants.
const (
	defaultFraudThreshold = 0.5

	manyBidsBonus     = 10
	fewBidsPenalty    = 20
	failedCheckCost   = 15
	manyBidsThreshold = 10
	fewBidsThreshold  = 3
	maxConfidence     = 100
)

// mechanismByType is the fixed dispatch table from auction type to
// winner-selection mechanism.
var mechanismByType = map[model.AuctionType]model.Mechanism{
	model.AuctionEnglish:         model.MechanismHighestBid,
	model.AuctionDutch:           model.MechanismLowestBid,
	model.AuctionSealedBid:       model.MechanismHighestBid,
	model.AuctionVickrey:         model.MechanismSecondPrice,
	model.AuctionReservePrice:    model.MechanismReserveMet,
	model.AuctionNoReserve:       model.MechanismHighestBid,
	model.AuctionUniqueBid:       model.MechanismUniqueBid,
	model.AuctionRandomSelection: model.MechanismRandomDraw,
}

// confidenceBase is the per-mechanism starting confidence before bid-count
// and check adjustments.
var confidenceBase = map[model.Mechanism]int{
	model.MechanismHighestBid:  95,
	model.MechanismSecondPrice: 90,
	model.MechanismReserveMet:  88,
	model.MechanismLowestBid:   85,
	model.MechanismUniqueBid:   80,
	model.MechanismRandomDraw:  50,
}

// Engine runs winner determination. Stateless with respect to its inputs;
// safe for concurrent use across auctions.
type Engine struct {
	bus            events.Publisher
	log            logger.Logger
	fraudThreshold float64
	seedFn         func() int64
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithPublisher sets the domain event sink.
func WithPublisher(bus events.Publisher) Option {
	return func(e *Engine) {
		e.bus = bus
	}
}

// WithLogger sets a custom logger for the engine.
func WithLogger(log logger.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithFraudThreshold sets the anti-fraud score above which a determination
// is flagged suspicious.
func WithFraudThreshold(threshold float64) Option {
	return func(e *Engine) {
		if threshold >= 0 && threshold <= 1 {
			e.fraudThreshold = threshold
		}
	}
}

// WithRandomSeed fixes the random-draw seed, making draws reproducible.
func WithRandomSeed(seed int64) Option {
	return func(e *Engine) {
		e.seedFn = func() int64 { return seed }
	}
}

// New constructs an Engine with default configuration.
func New(opts ...Option) *Engine {
	e := &Engine{
		log:            logger.Nop(),
		fraudThreshold: defaultFraudThreshold,
		seedFn:         func() int64 { return time.Now().UnixNano() },
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// DeterminedEvent is the payload published on determination completion.
type DeterminedEvent struct {
	AuctionID string                    `json:"auction_id"`
	Result    model.DeterminationResult `json:"result"`
}

// DetermineWinner selects the winner for a closed auction from its final
// bid list. All failures are reported in the result, never as an error.
func (e *Engine) DetermineWinner(ctx context.Context, auctionID string, auctionType model.AuctionType, bids []model.BidData, settings model.AuctionSettings) (res model.DeterminationResult) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			e.log.Error(ctx, "winner determination panicked",
				logger.String("auction", auctionID),
				logger.Any("panic", rec),
			)
			metrics.RecordErrorByComponent("determination", "panic")
			res = model.DeterminationResult{
				Success:   false,
				Mechanism: mechanismByType[auctionType],
				Metadata: model.DeterminationMetadata{
					Error:     fmt.Sprintf("unexpected internal error: %v", rec),
					TotalBids: len(bids),
				},
			}
		}
	}()

	valid := validBids(bids)
	res = model.DeterminationResult{
		Metadata: model.DeterminationMetadata{
			TotalBids: len(bids),
			ValidBids: len(valid),
		},
	}

	mech, ok := mechanismByType[auctionType]
	if !ok {
		res.Metadata.Reason = fmt.Sprintf("unsupported auction type %s", auctionType)
		return e.finish(ctx, auctionID, res, settings, start)
	}
	res.Mechanism = mech

	if len(valid) == 0 {
		res.Metadata.Reason = "no valid bids"
		return e.finish(ctx, auctionID, res, settings, start)
	}

	switch mech {
	case model.MechanismHighestBid:
		e.selectHighest(&res, valid, settings)
	case model.MechanismLowestBid:
		e.selectLowest(&res, valid)
	case model.MechanismSecondPrice:
		e.selectSecondPrice(&res, valid, settings)
	case model.MechanismUniqueBid:
		e.selectUnique(&res, valid)
	case model.MechanismRandomDraw:
		e.selectRandom(&res, valid, settings)
	case model.MechanismReserveMet:
		e.selectReserveMet(&res, valid, settings)
	}

	return e.finish(ctx, auctionID, res, settings, start)
}

// finish scores confidence, runs post-hoc checks, publishes and records.
func (e *Engine) finish(ctx context.Context, auctionID string, res model.DeterminationResult, settings model.AuctionSettings, start time.Time) model.DeterminationResult {
	conf := confidenceBase[res.Mechanism]
	if res.Metadata.TotalBids > manyBidsThreshold {
		conf += manyBidsBonus
	}
	if res.Metadata.TotalBids < fewBidsThreshold {
		conf -= fewBidsPenalty
	}
	res.Confidence = clampConfidence(conf)

	res.Checks = e.runChecks(&res, settings)

	failed := 0
	for _, c := range res.Checks {
		if c.Status == model.CheckFailed {
			failed++
			metrics.RecordCheckFailed(string(c.Type))
		}
	}
	res.Confidence = clampConfidence(res.Confidence - failedCheckCost*failed)

	if e.bus != nil {
		if err := e.bus.Publish(ctx, events.WinnerDetermined, DeterminedEvent{AuctionID: auctionID, Result: res}); err != nil {
			e.log.Warn(ctx, "failed to publish determination event", logger.Error(err))
		}
	}

	metrics.RecordDetermination(string(res.Mechanism), res.Success)
	metrics.RecordConfidence(res.Confidence)
	metrics.RecordDeterminationDuration(float64(time.Since(start).Milliseconds()))

	return res
}

// selectHighest crowns the top bid, subject to the reserve price.
func (e *Engine) selectHighest(res *model.DeterminationResult, valid []model.BidData, settings model.AuctionSettings) {
	sorted := sortedByAmountDesc(valid)
	top := sorted[0]

	if settings.ReservePrice != nil && top.Amount.LessThan(*settings.ReservePrice) {
		res.Metadata.Reason = "reserve price not met"
		return
	}
	crown(res, top, top.Amount)
}

// selectLowest crowns the lowest bid. Inherited business rule for DUTCH
// auctions; see the package tests for the pinned behavior.
func (e *Engine) selectLowest(res *model.DeterminationResult, valid []model.BidData) {
	sorted := sortedByAmountAsc(valid)
	bottom := sorted[0]
	crown(res, bottom, bottom.Amount)
}

// selectSecondPrice crowns the top bidder at the runner-up's price. The
// reserve check applies to the winner's own bid, not the second price.
func (e *Engine) selectSecondPrice(res *model.DeterminationResult, valid []model.BidData, settings model.AuctionSettings) {
	if len(valid) < 2 {
		res.Metadata.Reason = "insufficient bids for second-price auction"
		return
	}

	sorted := sortedByAmountDesc(valid)
	top, runnerUp := sorted[0], sorted[1]

	if settings.ReservePrice != nil && top.Amount.LessThan(*settings.ReservePrice) {
		res.Metadata.Reason = "reserve price not met"
		return
	}
	crown(res, top, runnerUp.Amount)
}

// selectUnique crowns the highest amount bid exactly once.
func (e *Engine) selectUnique(res *model.DeterminationResult, valid []model.BidData) {
	counts := make(map[string]int, len(valid))
	for _, b := range valid {
		counts[b.Amount.String()]++
	}

	var unique []model.BidData
	for _, b := range valid {
		if counts[b.Amount.String()] == 1 {
			unique = append(unique, b)
		}
	}
	if len(unique) == 0 {
		res.Metadata.Reason = "no unique bids found"
		return
	}

	top := sortedByAmountDesc(unique)[0]
	crown(res, top, top.Amount)
}

// selectRandom draws uniformly among valid bids, recording the seed and
// index for auditability.
func (e *Engine) selectRandom(res *model.DeterminationResult, valid []model.BidData, settings model.AuctionSettings) {
	seed := e.seedFn()
	if settings.RandomSeed != nil {
		seed = *settings.RandomSeed
	}

	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // seed is recorded for audit, not used for secrecy
	idx := rng.Intn(len(valid))

	res.Metadata.RandomSeed = &seed
	res.Metadata.RandomIndex = &idx

	winner := valid[idx]
	crown(res, winner, winner.Amount)
}

// selectReserveMet requires a configured reserve and a top bid meeting it.
func (e *Engine) selectReserveMet(res *model.DeterminationResult, valid []model.BidData, settings model.AuctionSettings) {
	if settings.ReservePrice == nil {
		res.Metadata.Reason = "no reserve price set"
		return
	}

	sorted := sortedByAmountDesc(valid)
	top := sorted[0]
	if top.Amount.LessThan(*settings.ReservePrice) {
		res.Metadata.Reason = "reserve price not met"
		return
	}
	crown(res, top, top.Amount)
}

// crown marks a winner on the result at the given settlement price.
func crown(res *model.DeterminationResult, winner model.BidData, price decimal.Decimal) {
	res.Success = true
	res.WinnerID = winner.BidderID
	res.WinningBidID = winner.BidID
	res.WinningAmount = winner.Amount
	res.SettlementPrice = price
}

// validBids filters out bids flagged invalid upstream.
func validBids(bids []model.BidData) []model.BidData {
	out := make([]model.BidData, 0, len(bids))
	for _, b := range bids {
		if b.Valid {
			out = append(out, b)
		}
	}
	return out
}

// sortedByAmountDesc returns a copy sorted by amount descending; equal
// amounts keep the earlier bid first.
func sortedByAmountDesc(bids []model.BidData) []model.BidData {
	out := make([]model.BidData, len(bids))
	copy(out, bids)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Amount.Equal(out[j].Amount) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].Amount.GreaterThan(out[j].Amount)
	})
	return out
}

// sortedByAmountAsc returns a copy sorted by amount ascending; equal
// amounts keep the earlier bid first.
func sortedByAmountAsc(bids []model.BidData) []model.BidData {
	out := make([]model.BidData, len(bids))
	copy(out, bids)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Amount.Equal(out[j].Amount) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].Amount.LessThan(out[j].Amount)
	})
	return out
}

func clampConfidence(v int) int {
	if v < 0 {
		return 0
	}
	if v > maxConfidence {
		return maxConfidence
	}
	return v
}
