package repository

import "github.com/openlot/settlement/internal/domain/model"

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithAuctions seeds the store with auction snapshots.
func WithAuctions(auctions ...model.Auction) Option {
	return func(s *MemoryStore) {
		for _, a := range auctions {
			s.auctions[a.ID] = a
		}
	}
}

// WithBids seeds the store with bids for an auction.
func WithBids(auctionID string, bids ...model.BidData) Option {
	return func(s *MemoryStore) {
		s.bids[auctionID] = append(s.bids[auctionID], bids...)
	}
}
