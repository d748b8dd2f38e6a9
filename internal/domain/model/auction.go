package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// AuctionType selects the winner-determination mechanism for an auction.
type AuctionType string

// Auction types.
const (
	AuctionEnglish         AuctionType = "ENGLISH"
	AuctionDutch           AuctionType = "DUTCH"
	AuctionSealedBid       AuctionType = "SEALED_BID"
	AuctionVickrey         AuctionType = "VICKREY"
	AuctionReservePrice    AuctionType = "RESERVE_PRICE"
	AuctionNoReserve       AuctionType = "NO_RESERVE"
	AuctionUniqueBid       AuctionType = "UNIQUE_BID"
	AuctionRandomSelection AuctionType = "RANDOM_SELECTION"
)

// AuctionStatus tracks an auction's availability for bidding.
type AuctionStatus string

// Auction statuses.
const (
	AuctionStatusScheduled AuctionStatus = "SCHEDULED"
	AuctionStatusActive    AuctionStatus = "ACTIVE"
	AuctionStatusClosed    AuctionStatus = "CLOSED"
	AuctionStatusCancelled AuctionStatus = "CANCELLED"
)

// Auction is the settings snapshot the core reads from the repository.
type Auction struct {
	ID           string           `json:"id"`
	Type         AuctionType      `json:"type"`
	Status       AuctionStatus    `json:"status"`
	StartTime    time.Time        `json:"start_time"`
	EndTime      time.Time        `json:"end_time"`
	ReservePrice *decimal.Decimal `json:"reserve_price,omitempty"`
	MinIncrement decimal.Decimal  `json:"min_increment"`
}

// AuctionSettings carries the per-auction knobs winner determination needs.
type AuctionSettings struct {
	ReservePrice *decimal.Decimal `json:"reserve_price,omitempty"`
	MinIncrement decimal.Decimal  `json:"min_increment"`
	EndTime      time.Time        `json:"end_time"`
	RandomSeed   *int64           `json:"random_seed,omitempty"`
}
