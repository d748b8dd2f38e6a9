// Package rules evaluates incoming bid requests against the registered
// business rules.
//
// The rule set is closed and known, so the dispatch table is fixed at
// construction time; evaluation order is registration order and is stable
// across runs. A rule can never abort the batch: panics and oracle failures
// degrade to failing results.
package rules

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/openlot/settlement/internal/adapters/oracle"
	"github.com/openlot/settlement/internal/adapters/repository"
	"github.com/openlot/settlement/internal/domain/model"
	"github.com/openlot/settlement/pkg/logger"
	"github.com/openlot/settlement/pkg/metrics"
)

// Rule identifiers, in registration order.
const (
	RuleMinIncrement    = "min_increment"
	RuleMaxBid          = "max_bid"
	RuleUserEligibility = "user_eligibility"
	RuleAuctionStatus   = "auction_status"
	RuleTiming          = "timing"
	RuleBalance         = "balance"
	RuleReservePrice    = "reserve_price"
	RuleBidderLimit     = "bidder_limit"
	RuleAntiSnipe       = "anti_snipe"
	RuleKYC             = "kyc"
	RuleGeographic      = "geographic"
)

// disabledRuleScore is the neutral weight a configuration-disabled rule
// contributes so it does not skew the aggregate.
const disabledRuleScore = 5

// Config carries the rule engine's enforcement settings.
type Config struct {
	// MinIncrement is the fallback raise requirement for auctions that do
	// not configure their own.
	MinIncrement decimal.Decimal

	// MaxBidAmount caps a single bid. Zero disables the cap.
	MaxBidAmount decimal.Decimal

	// MaxBidsPerBidder caps bids per bidder per auction. Zero disables.
	MaxBidsPerBidder int

	// AntiSnipeWindow is the protective period before auction close.
	AntiSnipeWindow time.Duration

	// KYCRequired makes the KYC rule demand a verified bidder.
	KYCRequired bool

	// BlockedRegions lists region codes barred from bidding.
	BlockedRegions []string

	// Disabled marks rule ids excluded from enforcement.
	Disabled map[string]bool

	// OracleTimeout bounds each external lookup a rule performs.
	OracleTimeout time.Duration
}

// ruleFunc evaluates one rule. RuleID and Score are owned by the table and
// stamped by the engine afterwards.
type ruleFunc func(ctx context.Context, req model.BidValidationRequest, snap *snapshot) model.RuleResult

// registeredRule pairs a rule id with its fixed contribution weight.
type registeredRule struct {
	id     string
	weight int
	fn     ruleFunc
}

// Engine evaluates a request against the fixed rule table.
type Engine struct {
	store  repository.Store
	oracle oracle.Oracle
	cfg    Config
	table  []registeredRule
	log    logger.Logger
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithLogger sets a custom logger for the engine.
func WithLogger(log logger.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// New builds an Engine with the fixed rule table.
func New(store repository.Store, orc oracle.Oracle, cfg Config, opts ...Option) *Engine {
	if cfg.OracleTimeout <= 0 {
		cfg.OracleTimeout = 500 * time.Millisecond
	}

	e := &Engine{
		store:  store,
		oracle: orc,
		cfg:    cfg,
		log:    logger.Nop(),
	}

	for _, opt := range opts {
		opt(e)
	}

	e.table = []registeredRule{
		{RuleMinIncrement, 15, e.checkMinIncrement},
		{RuleMaxBid, 10, e.checkMaxBid},
		{RuleUserEligibility, 10, e.checkUserEligibility},
		{RuleAuctionStatus, 15, e.checkAuctionStatus},
		{RuleTiming, 10, e.checkTiming},
		{RuleBalance, 15, e.checkBalance},
		{RuleReservePrice, 5, e.checkReservePrice},
		{RuleBidderLimit, 5, e.checkBidderLimit},
		{RuleAntiSnipe, 5, e.checkAntiSnipe},
		{RuleKYC, 10, e.checkKYC},
		{RuleGeographic, 5, e.checkGeographic},
	}

	return e
}

// snapshot is the per-request view of auction state, fetched once so all
// rules see consistent data.
type snapshot struct {
	auction    model.Auction
	auctionErr error
	highest    *model.BidData
	bidderBids int
}

// Evaluate runs every registered rule against the request, one result per
// rule in registration order.
func (e *Engine) Evaluate(ctx context.Context, req model.BidValidationRequest) []model.RuleResult {
	snap := e.snapshotFor(ctx, req)

	results := make([]model.RuleResult, 0, len(e.table))
	for _, r := range e.table {
		if e.cfg.Disabled[r.id] {
			results = append(results, model.RuleResult{
				RuleID:   r.id,
				Passed:   true,
				Severity: model.SeverityInfo,
				Message:  "rule disabled by configuration",
				Score:    disabledRuleScore,
			})
			continue
		}
		results = append(results, e.evaluateOne(ctx, r, req, snap))
	}
	return results
}

// evaluateOne runs a single rule, isolating panics into a failing result.
func (e *Engine) evaluateOne(ctx context.Context, r registeredRule, req model.BidValidationRequest, snap *snapshot) (res model.RuleResult) {
	defer func() {
		if rec := recover(); rec != nil {
			e.log.Error(ctx, "rule evaluation panicked",
				logger.String("rule", r.id),
				logger.Any("panic", rec),
			)
			metrics.RecordErrorByComponent("rules", "panic")
			res = model.RuleResult{
				RuleID:   r.id,
				Passed:   false,
				Severity: model.SeverityError,
				Message:  fmt.Sprintf("rule evaluation failed: %v", rec),
				Score:    0,
			}
		}
	}()

	res = r.fn(ctx, req, snap)
	res.RuleID = r.id
	res.Score = r.weight

	if !res.Passed {
		metrics.RecordRuleFailure(r.id, string(res.Severity))
	}
	return res
}

// snapshotFor fetches the auction view rules evaluate against.
func (e *Engine) snapshotFor(ctx context.Context, req model.BidValidationRequest) *snapshot {
	snap := &snapshot{}

	snap.auction, snap.auctionErr = e.store.Auction(ctx, req.AuctionID)

	if highest, err := e.store.HighestBid(ctx, req.AuctionID); err == nil {
		snap.highest = &highest
	}

	if count, err := e.store.BidderBidCount(ctx, req.AuctionID, req.BidderID); err == nil {
		snap.bidderBids = count
	}

	return snap
}

// oracleCtx bounds an external lookup with the configured timeout.
func (e *Engine) oracleCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.cfg.OracleTimeout)
}

// pass and fail build partially-filled results; the engine stamps id and weight.

func pass(msg string) model.RuleResult {
	return model.RuleResult{Passed: true, Severity: model.SeverityInfo, Message: msg}
}

func fail(sev model.Severity, msg string, details map[string]any) model.RuleResult {
	return model.RuleResult{Passed: false, Severity: sev, Message: msg, Details: details}
}
