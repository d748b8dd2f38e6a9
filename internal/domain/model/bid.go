// Package model contains domain types passed between the settlement core's layers.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Severity classifies how serious a rule outcome is.
type Severity string

// Rule result severities.
const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityError    Severity = "ERROR"
	SeverityCritical Severity = "CRITICAL"
)

// Blocking reports whether a failed result with this severity invalidates a bid.
func (s Severity) Blocking() bool {
	return s == SeverityError || s == SeverityCritical
}

// BidStatus tracks a bid through its validation lifecycle.
type BidStatus string

// Bid statuses.
const (
	BidStatusPending   BidStatus = "PENDING"
	BidStatusValidated BidStatus = "VALIDATED"
	BidStatusRejected  BidStatus = "REJECTED"
	BidStatusWithdrawn BidStatus = "WITHDRAWN"
	BidStatusOutbid    BidStatus = "OUTBID"
	BidStatusWinning   BidStatus = "WINNING"
)

// BidValidationRequest is the immutable input to bid validation.
type BidValidationRequest struct {
	AuctionID string          `json:"auction_id"`
	BidderID  string          `json:"bidder_id"`
	Amount    decimal.Decimal `json:"amount"`
	Timestamp time.Time       `json:"timestamp"`
	Metadata  map[string]any  `json:"metadata,omitempty"`
}

// RuleResult is the outcome of evaluating a single business rule against a request.
// Score is the rule's contribution weight toward the overall compliance score.
type RuleResult struct {
	RuleID   string         `json:"rule_id"`
	Passed   bool           `json:"passed"`
	Severity Severity       `json:"severity"`
	Message  string         `json:"message"`
	Details  map[string]any `json:"details,omitempty"`
	Score    int            `json:"score"`
}

// ValidationIssue is a failed rule surfaced to the caller, annotated with a
// suggested remediation.
type ValidationIssue struct {
	RuleID         string   `json:"rule_id"`
	Severity       Severity `json:"severity"`
	Message        string   `json:"message"`
	Recommendation string   `json:"recommendation,omitempty"`
}

// ValidationResult is the verdict for one BidValidationRequest.
// IsValid holds iff no result failed with a blocking severity.
type ValidationResult struct {
	IsValid   bool              `json:"is_valid"`
	Status    BidStatus         `json:"status"`
	Score     int               `json:"score"`
	Results   []RuleResult      `json:"results"`
	Errors    []ValidationIssue `json:"errors,omitempty"`
	Warnings  []ValidationIssue `json:"warnings,omitempty"`
	Duration  time.Duration     `json:"duration"`
	Timestamp time.Time         `json:"timestamp"`
}

// BidData is an already-validated bid as fed into winner determination.
type BidData struct {
	BidID     string          `json:"bid_id"`
	BidderID  string          `json:"bidder_id"`
	Amount    decimal.Decimal `json:"amount"`
	Timestamp time.Time       `json:"timestamp"`
	Valid     bool            `json:"valid"`
	ProxyBid  bool            `json:"proxy_bid"`
}
