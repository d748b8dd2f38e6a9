package rules

import (
	"context"
	"fmt"

	"github.com/openlot/settlement/internal/domain/model"
)

// checkMinIncrement requires the bid to beat the current highest bid by the
// auction's minimum increment (falling back to the configured default).
func (e *Engine) checkMinIncrement(_ context.Context, req model.BidValidationRequest, snap *snapshot) model.RuleResult {
	if !req.Amount.IsPositive() {
		return fail(model.SeverityError, "bid amount must be positive", nil)
	}
	if snap.highest == nil {
		return pass("first bid on auction")
	}

	increment := e.cfg.MinIncrement
	if snap.auctionErr == nil && snap.auction.MinIncrement.IsPositive() {
		increment = snap.auction.MinIncrement
	}

	required := snap.highest.Amount.Add(increment)
	if req.Amount.LessThan(required) {
		return fail(model.SeverityError,
			fmt.Sprintf("bid must be at least %s (current highest %s plus increment %s)",
				required, snap.highest.Amount, increment),
			map[string]any{"required": required.String(), "highest": snap.highest.Amount.String()},
		)
	}
	return pass("bid meets minimum increment")
}

// checkMaxBid enforces the configured per-bid cap.
func (e *Engine) checkMaxBid(_ context.Context, req model.BidValidationRequest, _ *snapshot) model.RuleResult {
	if e.cfg.MaxBidAmount.IsPositive() && req.Amount.GreaterThan(e.cfg.MaxBidAmount) {
		return fail(model.SeverityError,
			fmt.Sprintf("bid exceeds maximum allowed amount %s", e.cfg.MaxBidAmount),
			map[string]any{"max": e.cfg.MaxBidAmount.String()},
		)
	}
	return pass("bid within allowed amount")
}

// checkUserEligibility asks the oracle whether the bidder may participate.
func (e *Engine) checkUserEligibility(ctx context.Context, req model.BidValidationRequest, _ *snapshot) model.RuleResult {
	octx, cancel := e.oracleCtx(ctx)
	defer cancel()

	eligible, err := e.oracle.CheckEligibility(octx, req.BidderID)
	if err != nil {
		return fail(model.SeverityError, fmt.Sprintf("eligibility check failed: %v", err), nil)
	}
	if !eligible {
		return fail(model.SeverityError, "bidder is not eligible to participate", nil)
	}
	return pass("bidder eligible")
}

// checkAuctionStatus requires an active auction.
func (e *Engine) checkAuctionStatus(_ context.Context, _ model.BidValidationRequest, snap *snapshot) model.RuleResult {
	if snap.auctionErr != nil {
		return fail(model.SeverityError, "auction not found", nil)
	}
	if snap.auction.Status != model.AuctionStatusActive {
		return fail(model.SeverityError,
			fmt.Sprintf("auction is not accepting bids (status %s)", snap.auction.Status),
			map[string]any{"status": string(snap.auction.Status)},
		)
	}
	return pass("auction active")
}

// checkTiming requires the bid timestamp to fall inside the auction window.
func (e *Engine) checkTiming(_ context.Context, req model.BidValidationRequest, snap *snapshot) model.RuleResult {
	if snap.auctionErr != nil {
		return fail(model.SeverityError, "auction not found", nil)
	}
	if req.Timestamp.Before(snap.auction.StartTime) {
		return fail(model.SeverityError, "auction has not started yet", nil)
	}
	if req.Timestamp.After(snap.auction.EndTime) {
		return fail(model.SeverityError, "auction has already ended", nil)
	}
	return pass("bid within auction window")
}

// checkBalance asks the oracle whether the bidder can cover the bid.
func (e *Engine) checkBalance(ctx context.Context, req model.BidValidationRequest, _ *snapshot) model.RuleResult {
	octx, cancel := e.oracleCtx(ctx)
	defer cancel()

	funded, err := e.oracle.CheckBalance(octx, req.BidderID, req.Amount)
	if err != nil {
		return fail(model.SeverityError, fmt.Sprintf("balance check failed: %v", err), nil)
	}
	if !funded {
		return fail(model.SeverityError, "insufficient balance for bid amount", nil)
	}
	return pass("balance sufficient")
}

// checkReservePrice is advisory: a bid below the reserve is flagged as a
// warning but never blocks validity.
func (e *Engine) checkReservePrice(_ context.Context, req model.BidValidationRequest, snap *snapshot) model.RuleResult {
	if snap.auctionErr != nil || snap.auction.ReservePrice == nil {
		return pass("no reserve price configured")
	}
	if req.Amount.LessThan(*snap.auction.ReservePrice) {
		return fail(model.SeverityWarning,
			"bid is below the auction reserve price",
			map[string]any{"reserve": snap.auction.ReservePrice.String()},
		)
	}
	return pass("bid meets reserve price")
}

// checkBidderLimit caps the number of bids one bidder may place.
func (e *Engine) checkBidderLimit(_ context.Context, _ model.BidValidationRequest, snap *snapshot) model.RuleResult {
	if e.cfg.MaxBidsPerBidder > 0 && snap.bidderBids >= e.cfg.MaxBidsPerBidder {
		return fail(model.SeverityError,
			fmt.Sprintf("bidder reached the limit of %d bids for this auction", e.cfg.MaxBidsPerBidder),
			map[string]any{"placed": snap.bidderBids},
		)
	}
	return pass("bidder under bid limit")
}

// checkAntiSnipe flags bids landing inside the protective window before
// close. Advisory: the orchestrator may extend the auction in response.
func (e *Engine) checkAntiSnipe(_ context.Context, req model.BidValidationRequest, snap *snapshot) model.RuleResult {
	if snap.auctionErr != nil || e.cfg.AntiSnipeWindow <= 0 {
		return pass("anti-snipe window not applicable")
	}
	windowStart := snap.auction.EndTime.Add(-e.cfg.AntiSnipeWindow)
	if req.Timestamp.After(windowStart) && !req.Timestamp.After(snap.auction.EndTime) {
		return fail(model.SeverityWarning,
			"bid placed inside the anti-snipe window",
			map[string]any{"window_start": windowStart},
		)
	}
	return pass("bid outside anti-snipe window")
}

// checkKYC requires a verified bidder when configured to.
func (e *Engine) checkKYC(ctx context.Context, req model.BidValidationRequest, _ *snapshot) model.RuleResult {
	if !e.cfg.KYCRequired {
		return pass("KYC not required")
	}

	octx, cancel := e.oracleCtx(ctx)
	defer cancel()

	verified, err := e.oracle.CheckKYC(octx, req.BidderID)
	if err != nil {
		return fail(model.SeverityError, fmt.Sprintf("KYC check failed: %v", err), nil)
	}
	if !verified {
		return fail(model.SeverityError, "bidder has not completed identity verification", nil)
	}
	return pass("bidder verified")
}

// checkGeographic rejects bidders from blocked regions. The region comes
// from request metadata; no geolocation lookup is performed.
func (e *Engine) checkGeographic(_ context.Context, req model.BidValidationRequest, _ *snapshot) model.RuleResult {
	region, _ := req.Metadata["region"].(string)
	if region == "" {
		return pass("no region declared")
	}
	for _, blocked := range e.cfg.BlockedRegions {
		if region == blocked {
			return fail(model.SeverityError,
				fmt.Sprintf("bidding from region %s is not permitted", region),
				map[string]any{"region": region},
			)
		}
	}
	return pass("region permitted")
}
