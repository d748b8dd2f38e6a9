// Package oracle defines the balance/eligibility oracle consumed by bid rules.
package oracle

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Default oracle configuration constants.
const (
	defaultMinLatency = 5 * time.Millisecond
	defaultMaxLatency = 20 * time.Millisecond
	defaultRandomSeed = 42
)

// Oracle answers bounded account questions for individual rules. Every call
// must honor ctx; rule-level timeouts are applied by the caller.
type Oracle interface {
	// CheckBalance reports whether the bidder can cover the amount.
	CheckBalance(ctx context.Context, bidderID string, amount decimal.Decimal) (bool, error)

	// CheckEligibility reports whether the bidder may participate at all.
	CheckEligibility(ctx context.Context, bidderID string) (bool, error)

	// CheckKYC reports whether the bidder has completed identity verification.
	CheckKYC(ctx context.Context, bidderID string) (bool, error)
}

// InMemoryOracle implements Oracle with seeded account state and simulated
// lookup latency, modeling the external account service.
type InMemoryOracle struct {
	mu sync.RWMutex

	balances   map[string]decimal.Decimal
	ineligible map[string]bool
	kycCleared map[string]bool

	minLatency time.Duration
	maxLatency time.Duration
	rng        *rand.Rand
}

// NewInMemoryOracle creates an oracle fake with configuration options.
func NewInMemoryOracle(opts ...Option) *InMemoryOracle {
	o := &InMemoryOracle{
		balances:   make(map[string]decimal.Decimal),
		ineligible: make(map[string]bool),
		kycCleared: make(map[string]bool),
		minLatency: defaultMinLatency,
		maxLatency: defaultMaxLatency,
		rng:        rand.New(rand.NewSource(defaultRandomSeed)), //nolint:gosec // deterministic seed for reproducible testing
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// CheckBalance reports whether the bidder can cover the amount.
// Bidders without a seeded balance are treated as funded.
func (o *InMemoryOracle) CheckBalance(ctx context.Context, bidderID string, amount decimal.Decimal) (bool, error) {
	if err := o.simulateLatency(ctx); err != nil {
		return false, err
	}

	o.mu.RLock()
	defer o.mu.RUnlock()

	balance, ok := o.balances[bidderID]
	if !ok {
		return true, nil
	}
	return balance.GreaterThanOrEqual(amount), nil
}

// CheckEligibility reports whether the bidder may participate.
func (o *InMemoryOracle) CheckEligibility(ctx context.Context, bidderID string) (bool, error) {
	if err := o.simulateLatency(ctx); err != nil {
		return false, err
	}

	o.mu.RLock()
	defer o.mu.RUnlock()
	return !o.ineligible[bidderID], nil
}

// CheckKYC reports whether the bidder has completed identity verification.
// Bidders are unverified unless seeded.
func (o *InMemoryOracle) CheckKYC(ctx context.Context, bidderID string) (bool, error) {
	if err := o.simulateLatency(ctx); err != nil {
		return false, err
	}

	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.kycCleared[bidderID], nil
}

// SetBalance seeds or updates a bidder's balance.
func (o *InMemoryOracle) SetBalance(bidderID string, balance decimal.Decimal) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.balances[bidderID] = balance
}

// simulateLatency models the external lookup round trip, honoring ctx.
func (o *InMemoryOracle) simulateLatency(ctx context.Context) error {
	if o.maxLatency <= o.minLatency {
		return nil
	}

	o.mu.Lock()
	latency := o.minLatency + time.Duration(o.rng.Int63n(int64(o.maxLatency-o.minLatency)))
	o.mu.Unlock()

	select {
	case <-ctx.Done():
		return fmt.Errorf("oracle lookup cancelled: %w", ctx.Err())
	case <-time.After(latency):
		return nil
	}
}
