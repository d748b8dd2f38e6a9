// Package config defines settlement core configuration and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults, Load(ctx) to layer
//   file and environment sources on top.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"context"
)

// Config contains the settlement core's tunables.
type Config struct {
	// Addr is the listen address for the operational HTTP endpoint
	// (metrics and health only).
	Addr string `koanf:"addr"`

	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// CacheEnabled toggles the validation result cache.
	CacheEnabled bool `koanf:"cache_enabled"`

	// CacheTTLSeconds bounds how long a cached validation verdict stays fresh.
	CacheTTLSeconds int `koanf:"cache_ttl_seconds"`

	// OracleTimeoutMS bounds each balance/eligibility/KYC lookup.
	OracleTimeoutMS int `koanf:"oracle_timeout_ms"`

	// FraudThreshold is the anti-fraud score above which a determination is
	// flagged suspicious. Range [0,1].
	FraudThreshold float64 `koanf:"fraud_threshold"`

	// MaxBidAmount caps a single bid. Zero disables the cap.
	MaxBidAmount float64 `koanf:"max_bid_amount"`

	// MinIncrement is the default minimum raise over the current highest bid,
	// used when an auction does not configure its own.
	MinIncrement float64 `koanf:"min_increment"`

	// MaxBidsPerBidder caps how many bids one bidder may place per auction.
	MaxBidsPerBidder int `koanf:"max_bids_per_bidder"`

	// AntiSnipeWindowSeconds is the protective window before auction close.
	AntiSnipeWindowSeconds int `koanf:"anti_snipe_window_seconds"`

	// KYCRequired makes the KYC rule demand a verified bidder.
	KYCRequired bool `koanf:"kyc_required"`

	// BlockedRegions lists region codes barred from bidding.
	BlockedRegions []string `koanf:"blocked_regions"`

	// DisabledRules lists rule ids excluded from enforcement.
	DisabledRules []string `koanf:"disabled_rules"`

	// EventBusCapacity bounds the in-memory domain event bus.
	EventBusCapacity int `koanf:"event_bus_capacity"`

	// RandomSeed fixes the random-draw source. Zero means time-seeded.
	RandomSeed int64 `koanf:"random_seed"`
}

// New creates a Config with defaults. Context is accepted first to satisfy
// the project-wide convention; it is reserved for future use.
func New(_ context.Context) *Config {
	return &Config{
		Addr:                   ":9090",
		LogLevel:               "info",
		CacheEnabled:           true,
		CacheTTLSeconds:        60,
		OracleTimeoutMS:        500,
		FraudThreshold:         0.5,
		MaxBidAmount:           1_000_000,
		MinIncrement:           1,
		MaxBidsPerBidder:       50,
		AntiSnipeWindowSeconds: 300,
		KYCRequired:            false,
		BlockedRegions:         nil,
		DisabledRules:          nil,
		EventBusCapacity:       4096,
		RandomSeed:             0,
	}
}
