package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Mechanism identifies the algorithm that selected (or failed to select) a winner.
type Mechanism string

// Winner-determination mechanisms.
const (
	MechanismHighestBid  Mechanism = "highest_bid"
	MechanismLowestBid   Mechanism = "lowest_bid"
	MechanismSecondPrice Mechanism = "second_price"
	MechanismUniqueBid   Mechanism = "unique_bid"
	MechanismRandomDraw  Mechanism = "random_draw"
	MechanismReserveMet  Mechanism = "reserve_met"
)

// CheckType names a post-determination validation check.
type CheckType string

// Post-determination check types.
const (
	CheckBidValidity  CheckType = "bid_validity"
	CheckTiming       CheckType = "timing"
	CheckReservePrice CheckType = "reserve_price"
	CheckAntiFraud    CheckType = "anti_fraud"
)

// CheckStatus is the outcome of a single post-determination check.
type CheckStatus string

// Check statuses.
const (
	CheckPassed  CheckStatus = "passed"
	CheckFailed  CheckStatus = "failed"
	CheckWarning CheckStatus = "warning"
)

// ValidationCheck is one post-hoc check attached to a DeterminationResult.
type ValidationCheck struct {
	Type     CheckType   `json:"type"`
	Status   CheckStatus `json:"status"`
	Severity Severity    `json:"severity"`
	Details  string      `json:"details,omitempty"`
}

// DeterminationMetadata carries structured diagnostics for a determination.
// Extra is a catch-all bag for genuinely unstructured detail only.
type DeterminationMetadata struct {
	Reason      string         `json:"reason,omitempty"`
	Error       string         `json:"error,omitempty"`
	TotalBids   int            `json:"total_bids"`
	ValidBids   int            `json:"valid_bids"`
	RandomSeed  *int64         `json:"random_seed,omitempty"`
	RandomIndex *int           `json:"random_index,omitempty"`
	Extra       map[string]any `json:"extra,omitempty"`
}

// DeterminationResult is the outcome of one winner-determination run.
// SettlementPrice differs from WinningAmount only for second-price mechanisms.
type DeterminationResult struct {
	Success         bool                  `json:"success"`
	WinnerID        string                `json:"winner_id,omitempty"`
	WinningBidID    string                `json:"winning_bid_id,omitempty"`
	WinningAmount   decimal.Decimal       `json:"winning_amount"`
	SettlementPrice decimal.Decimal       `json:"settlement_price"`
	Mechanism       Mechanism             `json:"mechanism"`
	Confidence      int                   `json:"confidence"`
	Checks          []ValidationCheck     `json:"checks"`
	Metadata        DeterminationMetadata `json:"metadata"`
}

// DeterminationStatus tracks a persisted determination through its lifecycle.
type DeterminationStatus string

// Determination lifecycle statuses. SETTLED is reached only by the external
// settlement job and is terminal.
const (
	DeterminationPending   DeterminationStatus = "PENDING"
	DeterminationConfirmed DeterminationStatus = "CONFIRMED"
	DeterminationRejected  DeterminationStatus = "REJECTED"
	DeterminationDisputed  DeterminationStatus = "DISPUTED"
	DeterminationSettled   DeterminationStatus = "SETTLED"
)

// Terminal reports whether no further lifecycle transitions are allowed.
func (s DeterminationStatus) Terminal() bool {
	return s == DeterminationRejected || s == DeterminationSettled
}

// WinnerDetermination is the persisted record wrapping a DeterminationResult.
type WinnerDetermination struct {
	ID           string              `json:"id"`
	AuctionID    string              `json:"auction_id"`
	Result       DeterminationResult `json:"result"`
	Status       DeterminationStatus `json:"status"`
	CreatedAt    time.Time           `json:"created_at"`
	ConfirmedAt  *time.Time          `json:"confirmed_at,omitempty"`
	ConfirmedBy  string              `json:"confirmed_by,omitempty"`
	RejectedAt   *time.Time          `json:"rejected_at,omitempty"`
	RejectedBy   string              `json:"rejected_by,omitempty"`
	RejectReason string              `json:"reject_reason,omitempty"`
}
