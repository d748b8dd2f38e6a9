package determination

import (
	"fmt"
	"time"

	"github.com/openlot/settlement/internal/domain/model"
)

// Anti-fraud heuristic weights.
const (
	fraudHighConfidenceFewBids = 0.4
	fraudUniqueBidMechanism    = 0.3
	fraudFewBidsThreshold      = 5
	fraudConfidenceFloor       = 90
)

// runChecks evaluates the post-hoc validation checks against a computed
// result. Every determination carries all four checks, win or lose.
func (e *Engine) runChecks(res *model.DeterminationResult, settings model.AuctionSettings) []model.ValidationCheck {
	return []model.ValidationCheck{
		checkBidValidity(res),
		checkTiming(settings),
		checkReservePrice(res, settings),
		e.checkAntiFraud(res),
	}
}

// checkBidValidity passes only when a winner came out of the determination;
// a successful result with excluded bids in the pool is flagged as a warning.
func checkBidValidity(res *model.DeterminationResult) model.ValidationCheck {
	if !res.Success {
		detail := res.Metadata.Reason
		if detail == "" {
			detail = res.Metadata.Error
		}
		return model.ValidationCheck{
			Type:     model.CheckBidValidity,
			Status:   model.CheckFailed,
			Severity: model.SeverityError,
			Details:  fmt.Sprintf("no winner determined: %s", detail),
		}
	}
	if res.Metadata.ValidBids < res.Metadata.TotalBids {
		return model.ValidationCheck{
			Type:     model.CheckBidValidity,
			Status:   model.CheckWarning,
			Severity: model.SeverityWarning,
			Details: fmt.Sprintf("%d of %d bids were excluded as invalid",
				res.Metadata.TotalBids-res.Metadata.ValidBids, res.Metadata.TotalBids),
		}
	}
	return model.ValidationCheck{
		Type:     model.CheckBidValidity,
		Status:   model.CheckPassed,
		Severity: model.SeverityInfo,
		Details:  "all bids in the pool were valid",
	}
}

// checkTiming flags determinations run before the configured auction end.
// An early run is advisory, not disqualifying.
func checkTiming(settings model.AuctionSettings) model.ValidationCheck {
	if !settings.EndTime.IsZero() && time.Now().Before(settings.EndTime) {
		return model.ValidationCheck{
			Type:     model.CheckTiming,
			Status:   model.CheckWarning,
			Severity: model.SeverityWarning,
			Details:  "determination ran before the scheduled auction end",
		}
	}
	return model.ValidationCheck{
		Type:     model.CheckTiming,
		Status:   model.CheckPassed,
		Severity: model.SeverityInfo,
		Details:  "determination ran after auction close",
	}
}

// checkReservePrice verifies the settled winner clears the reserve.
func checkReservePrice(res *model.DeterminationResult, settings model.AuctionSettings) model.ValidationCheck {
	if settings.ReservePrice == nil {
		return model.ValidationCheck{
			Type:     model.CheckReservePrice,
			Status:   model.CheckPassed,
			Severity: model.SeverityInfo,
			Details:  "no reserve price configured",
		}
	}
	if res.Success && res.WinningAmount.LessThan(*settings.ReservePrice) {
		return model.ValidationCheck{
			Type:     model.CheckReservePrice,
			Status:   model.CheckFailed,
			Severity: model.SeverityError,
			Details:  fmt.Sprintf("winning amount %s is below reserve %s", res.WinningAmount, settings.ReservePrice),
		}
	}
	return model.ValidationCheck{
		Type:     model.CheckReservePrice,
		Status:   model.CheckPassed,
		Severity: model.SeverityInfo,
		Details:  "reserve price requirements satisfied",
	}
}

// checkAntiFraud scores heuristic manipulation signals against the
// configured threshold. A flagged result is suspicious, not void; the
// severity stays at WARNING and the confidence penalty surfaces it for
// manual review.
func (e *Engine) checkAntiFraud(res *model.DeterminationResult) model.ValidationCheck {
	score := 0.0
	if res.Confidence > fraudConfidenceFloor && res.Metadata.TotalBids < fraudFewBidsThreshold {
		score += fraudHighConfidenceFewBids
	}
	if res.Mechanism == model.MechanismUniqueBid {
		score += fraudUniqueBidMechanism
	}
	if score > 1 {
		score = 1
	}

	if score > e.fraudThreshold {
		return model.ValidationCheck{
			Type:     model.CheckAntiFraud,
			Status:   model.CheckFailed,
			Severity: model.SeverityWarning,
			Details:  fmt.Sprintf("fraud score %.2f exceeds threshold %.2f", score, e.fraudThreshold),
		}
	}
	return model.ValidationCheck{
		Type:     model.CheckAntiFraud,
		Status:   model.CheckPassed,
		Severity: model.SeverityInfo,
		Details:  fmt.Sprintf("fraud score %.2f within threshold %.2f", score, e.fraudThreshold),
	}
}
