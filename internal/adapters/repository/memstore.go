package repository

import (
	"context"
	"sync"

	"github.com/openlot/settlement/internal/domain/model"
)

// MemoryStore implements Store with RWMutex-guarded maps. It is the default
// backing for tests and single-process deployments; a document-store client
// can replace it behind the same interface.
type MemoryStore struct {
	mu sync.RWMutex

	auctions       map[string]model.Auction
	bids           map[string][]model.BidData
	validations    map[string][]model.ValidationResult // keyed by auction id
	determinations map[string]model.WinnerDetermination
	detByAuction   map[string]string // auction id -> determination id
	disputes       map[string]model.Dispute
	disputesByDet  map[string][]string // determination id -> dispute ids in creation order
}

// NewMemoryStore creates an empty in-memory store with configuration options.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		auctions:       make(map[string]model.Auction),
		bids:           make(map[string][]model.BidData),
		validations:    make(map[string][]model.ValidationResult),
		determinations: make(map[string]model.WinnerDetermination),
		detByAuction:   make(map[string]string),
		disputes:       make(map[string]model.Dispute),
		disputesByDet:  make(map[string][]string),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Auction returns the settings snapshot for an auction.
func (s *MemoryStore) Auction(_ context.Context, auctionID string) (model.Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.auctions[auctionID]
	if !ok {
		return model.Auction{}, ErrNotFound
	}
	return a, nil
}

// PutAuction creates or replaces an auction snapshot.
func (s *MemoryStore) PutAuction(_ context.Context, auction model.Auction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.auctions[auction.ID] = auction
	return nil
}

// RecordBid appends a bid to an auction's bid list.
func (s *MemoryStore) RecordBid(_ context.Context, auctionID string, bid model.BidData) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bids[auctionID] = append(s.bids[auctionID], bid)
	return nil
}

// Bids returns all bids placed on an auction, oldest first.
func (s *MemoryStore) Bids(_ context.Context, auctionID string) ([]model.BidData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.BidData, len(s.bids[auctionID]))
	copy(out, s.bids[auctionID])
	return out, nil
}

// HighestBid returns the current highest bid on an auction.
func (s *MemoryStore) HighestBid(_ context.Context, auctionID string) (model.BidData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bids := s.bids[auctionID]
	if len(bids) == 0 {
		return model.BidData{}, ErrNoBids
	}

	best := bids[0]
	for _, b := range bids[1:] {
		if b.Amount.GreaterThan(best.Amount) {
			best = b
		}
	}
	return best, nil
}

// BidderBidCount returns how many bids a bidder has placed on an auction.
func (s *MemoryStore) BidderBidCount(_ context.Context, auctionID, bidderID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, b := range s.bids[auctionID] {
		if b.BidderID == bidderID {
			count++
		}
	}
	return count, nil
}

// SaveValidationResult persists the verdict for one validation request.
func (s *MemoryStore) SaveValidationResult(_ context.Context, req model.BidValidationRequest, res model.ValidationResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.validations[req.AuctionID] = append(s.validations[req.AuctionID], res)
	return nil
}

// ValidationResults returns the persisted verdicts for an auction, oldest first.
func (s *MemoryStore) ValidationResults(_ context.Context, auctionID string) []model.ValidationResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.ValidationResult, len(s.validations[auctionID]))
	copy(out, s.validations[auctionID])
	return out
}

// SaveDetermination persists a new winner determination.
func (s *MemoryStore) SaveDetermination(_ context.Context, det model.WinnerDetermination) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.determinations[det.ID]; exists {
		return ErrDuplicate
	}
	s.determinations[det.ID] = det
	s.detByAuction[det.AuctionID] = det.ID
	return nil
}

// Determination returns a determination by id.
func (s *MemoryStore) Determination(_ context.Context, id string) (model.WinnerDetermination, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	det, ok := s.determinations[id]
	if !ok {
		return model.WinnerDetermination{}, ErrNotFound
	}
	return det, nil
}

// DeterminationByAuction returns the determination recorded for an auction.
func (s *MemoryStore) DeterminationByAuction(_ context.Context, auctionID string) (model.WinnerDetermination, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.detByAuction[auctionID]
	if !ok {
		return model.WinnerDetermination{}, ErrNotFound
	}
	return s.determinations[id], nil
}

// UpdateDetermination replaces an existing determination record.
func (s *MemoryStore) UpdateDetermination(_ context.Context, det model.WinnerDetermination) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.determinations[det.ID]; !ok {
		return ErrNotFound
	}
	s.determinations[det.ID] = det
	return nil
}

// SaveDispute persists a new dispute against a determination.
func (s *MemoryStore) SaveDispute(_ context.Context, dispute model.Dispute) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.disputes[dispute.ID]; exists {
		return ErrDuplicate
	}
	s.disputes[dispute.ID] = dispute
	s.disputesByDet[dispute.DeterminationID] = append(s.disputesByDet[dispute.DeterminationID], dispute.ID)
	return nil
}

// Dispute returns a dispute by id.
func (s *MemoryStore) Dispute(_ context.Context, id string) (model.Dispute, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.disputes[id]
	if !ok {
		return model.Dispute{}, ErrNotFound
	}
	return d, nil
}

// UpdateDispute replaces an existing dispute record.
func (s *MemoryStore) UpdateDispute(_ context.Context, dispute model.Dispute) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.disputes[dispute.ID]; !ok {
		return ErrNotFound
	}
	s.disputes[dispute.ID] = dispute
	return nil
}

// DisputesByDetermination returns all disputes raised against a determination.
func (s *MemoryStore) DisputesByDetermination(_ context.Context, determinationID string) ([]model.Dispute, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.disputesByDet[determinationID]
	out := make([]model.Dispute, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.disputes[id])
	}
	return out, nil
}
