package oracle

import (
	"time"

	"github.com/shopspring/decimal"
)

// Option applies a configuration option to the InMemoryOracle.
type Option func(*InMemoryOracle)

// WithLatencyRange sets the simulated lookup latency range.
func WithLatencyRange(minLatency, maxLatency time.Duration) Option {
	return func(o *InMemoryOracle) {
		if minLatency >= 0 && maxLatency >= minLatency {
			o.minLatency = minLatency
			o.maxLatency = maxLatency
		}
	}
}

// WithBalances seeds per-bidder balances.
func WithBalances(balances map[string]decimal.Decimal) Option {
	return func(o *InMemoryOracle) {
		for id, b := range balances {
			o.balances[id] = b
		}
	}
}

// WithIneligible marks bidders as barred from participating.
func WithIneligible(bidderIDs ...string) Option {
	return func(o *InMemoryOracle) {
		for _, id := range bidderIDs {
			o.ineligible[id] = true
		}
	}
}

// WithKYCCleared marks bidders as identity-verified.
func WithKYCCleared(bidderIDs ...string) Option {
	return func(o *InMemoryOracle) {
		for _, id := range bidderIDs {
			o.kycCleared[id] = true
		}
	}
}
