// Package repository defines the settlement store interface and errors.
package repository

import (
	"context"

	"github.com/openlot/settlement/internal/domain/model"
)

// Store provides read/write access to auction, validation, determination and
// dispute state. Persistence itself lives outside this core; implementations
// may be an in-memory map or a thin document-store client.
type Store interface {
	// Auction returns the settings snapshot for an auction.
	// Returns ErrNotFound if the auction is unknown.
	Auction(ctx context.Context, auctionID string) (model.Auction, error)

	// PutAuction creates or replaces an auction snapshot.
	PutAuction(ctx context.Context, auction model.Auction) error

	// RecordBid appends a bid to an auction's bid list.
	RecordBid(ctx context.Context, auctionID string, bid model.BidData) error

	// Bids returns all bids placed on an auction, oldest first.
	Bids(ctx context.Context, auctionID string) ([]model.BidData, error)

	// HighestBid returns the current highest bid on an auction.
	// Returns ErrNoBids when the auction has no bids yet.
	HighestBid(ctx context.Context, auctionID string) (model.BidData, error)

	// BidderBidCount returns how many bids a bidder has placed on an auction.
	BidderBidCount(ctx context.Context, auctionID, bidderID string) (int, error)

	// SaveValidationResult persists the verdict for one validation request.
	SaveValidationResult(ctx context.Context, req model.BidValidationRequest, res model.ValidationResult) error

	// SaveDetermination persists a new winner determination.
	// Returns ErrDuplicate if the id is already taken.
	SaveDetermination(ctx context.Context, det model.WinnerDetermination) error

	// Determination returns a determination by id.
	// Returns ErrNotFound if unknown.
	Determination(ctx context.Context, id string) (model.WinnerDetermination, error)

	// DeterminationByAuction returns the determination recorded for an auction.
	DeterminationByAuction(ctx context.Context, auctionID string) (model.WinnerDetermination, error)

	// UpdateDetermination replaces an existing determination record.
	// Returns ErrNotFound if it was never saved.
	UpdateDetermination(ctx context.Context, det model.WinnerDetermination) error

	// SaveDispute persists a new dispute against a determination.
	SaveDispute(ctx context.Context, dispute model.Dispute) error

	// Dispute returns a dispute by id.
	Dispute(ctx context.Context, id string) (model.Dispute, error)

	// UpdateDispute replaces an existing dispute record.
	UpdateDispute(ctx context.Context, dispute model.Dispute) error

	// DisputesByDetermination returns all disputes raised against a
	// determination, in creation order.
	DisputesByDetermination(ctx context.Context, determinationID string) ([]model.Dispute, error)
}
