// Package service wires the settlement core together: rule engine, bid
// validation, winner determination and the settlement lifecycle, behind a
// single facade callers embed in a bidding platform.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/openlot/settlement/internal/adapters/events"
	"github.com/openlot/settlement/internal/adapters/oracle"
	"github.com/openlot/settlement/internal/adapters/repository"
	"github.com/openlot/settlement/internal/config"
	"github.com/openlot/settlement/internal/domain/determination"
	"github.com/openlot/settlement/internal/domain/lifecycle"
	"github.com/openlot/settlement/internal/domain/model"
	"github.com/openlot/settlement/internal/domain/rules"
	"github.com/openlot/settlement/internal/domain/validation"
	"github.com/openlot/settlement/pkg/logger"
)

// Service is the settlement core facade.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      repository.Store
	oracle     oracle.Oracle
	bus        *events.Bus
	validator  *validation.Service
	determiner *determination.Engine
	lifecycle  *lifecycle.Manager

	// Configuration
	cfg *config.Config

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore replaces the default in-memory store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithOracle replaces the default in-memory balance/KYC oracle.
func WithOracle(orc oracle.Oracle) Option {
	return func(s *Service) {
		s.oracle = orc
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.logger = log
		}
	}
}

// New constructs a Service from configuration. Components are built lazily
// in Start so options can swap adapters first.
func New(cfg *config.Config, opts ...Option) *Service {
	s := &Service{
		cfg:    cfg,
		logger: nil, // replaced on Start when unset
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting settlement core...")

	if s.store == nil {
		s.store = repository.NewMemoryStore()
		s.logger.Info(ctx, "using in-memory store")
	}
	if s.oracle == nil {
		s.oracle = oracle.NewInMemoryOracle()
		s.logger.Info(ctx, "using in-memory oracle")
	}

	s.bus = events.NewBus(
		events.WithCapacity(s.cfg.EventBusCapacity),
	)

	ruleCfg := rules.Config{
		MinIncrement:     decimal.NewFromFloat(s.cfg.MinIncrement),
		MaxBidAmount:     decimal.NewFromFloat(s.cfg.MaxBidAmount),
		MaxBidsPerBidder: s.cfg.MaxBidsPerBidder,
		AntiSnipeWindow:  time.Duration(s.cfg.AntiSnipeWindowSeconds) * time.Second,
		KYCRequired:      s.cfg.KYCRequired,
		BlockedRegions:   s.cfg.BlockedRegions,
		Disabled:         disabledSet(s.cfg.DisabledRules),
		OracleTimeout:    time.Duration(s.cfg.OracleTimeoutMS) * time.Millisecond,
	}
	engine := rules.New(s.store, s.oracle, ruleCfg,
		rules.WithLogger(s.logger.Named("rules")),
	)

	validationOpts := []validation.Option{
		validation.WithCacheTTL(time.Duration(s.cfg.CacheTTLSeconds) * time.Second),
		validation.WithLogger(s.logger.Named("validation")),
	}
	if !s.cfg.CacheEnabled {
		validationOpts = append(validationOpts, validation.WithCacheDisabled())
	}
	s.validator = validation.New(engine, s.store, s.bus, validationOpts...)

	determinationOpts := []determination.Option{
		determination.WithPublisher(s.bus),
		determination.WithLogger(s.logger.Named("determination")),
		determination.WithFraudThreshold(s.cfg.FraudThreshold),
	}
	if s.cfg.RandomSeed != 0 {
		determinationOpts = append(determinationOpts, determination.WithRandomSeed(s.cfg.RandomSeed))
	}
	s.determiner = determination.New(determinationOpts...)

	s.lifecycle = lifecycle.New(s.store,
		lifecycle.WithPublisher(s.bus),
		lifecycle.WithLogger(s.logger.Named("lifecycle")),
	)

	s.started = true
	s.logger.Info(ctx, "settlement core started",
		logger.Bool("cacheEnabled", s.cfg.CacheEnabled),
		logger.Int("busCapacity", s.cfg.EventBusCapacity),
	)

	return nil
}

// Stop shuts the service down and closes the event bus.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping settlement core...")

	if s.bus != nil {
		_ = s.bus.Close()
	}

	s.started = false
	s.logger.Info(context.Background(), "settlement core stopped")
}

// Events exposes the domain event stream for downstream consumers. Nil
// until the service has started.
func (s *Service) Events() <-chan events.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.bus == nil {
		return nil
	}
	return s.bus.Subscribe()
}

// Bus exposes the underlying event bus, for wiring a dispatcher. Nil until
// the service has started.
func (s *Service) Bus() *events.Bus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bus
}

// ValidateBid runs the full rule set against a bid and returns the verdict.
func (s *Service) ValidateBid(ctx context.Context, req model.BidValidationRequest) (model.ValidationResult, error) {
	if err := s.ready(); err != nil {
		return model.ValidationResult{}, err
	}
	return s.validator.Validate(ctx, req), nil
}

// SettleAuction determines the winner for a closed auction from its
// recorded bids and persists the result as a PENDING determination.
func (s *Service) SettleAuction(ctx context.Context, auctionID string) (model.WinnerDetermination, error) {
	if err := s.ready(); err != nil {
		return model.WinnerDetermination{}, err
	}

	auction, err := s.store.Auction(ctx, auctionID)
	if err != nil {
		return model.WinnerDetermination{}, fmt.Errorf("load auction: %w", err)
	}

	bids, err := s.store.Bids(ctx, auctionID)
	if err != nil {
		return model.WinnerDetermination{}, fmt.Errorf("load bids: %w", err)
	}

	settings := model.AuctionSettings{
		ReservePrice: auction.ReservePrice,
		MinIncrement: auction.MinIncrement,
		EndTime:      auction.EndTime,
	}
	if s.cfg.RandomSeed != 0 {
		seed := s.cfg.RandomSeed
		settings.RandomSeed = &seed
	}

	result := s.determiner.DetermineWinner(ctx, auctionID, auction.Type, bids, settings)
	return s.lifecycle.CreateWinnerDetermination(ctx, auctionID, result)
}

// DetermineWinner runs winner determination over a caller-supplied bid list
// without persisting anything.
func (s *Service) DetermineWinner(ctx context.Context, auctionID string, auctionType model.AuctionType, bids []model.BidData, settings model.AuctionSettings) (model.DeterminationResult, error) {
	if err := s.ready(); err != nil {
		return model.DeterminationResult{}, err
	}
	return s.determiner.DetermineWinner(ctx, auctionID, auctionType, bids, settings), nil
}

// ConfirmWinner confirms a pending determination.
func (s *Service) ConfirmWinner(ctx context.Context, determinationID, confirmedBy string) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}
	return s.lifecycle.ConfirmWinner(ctx, determinationID, confirmedBy)
}

// RejectWinner rejects a pending determination.
func (s *Service) RejectWinner(ctx context.Context, determinationID, rejectedBy, reason string) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}
	return s.lifecycle.RejectWinner(ctx, determinationID, rejectedBy, reason)
}

// RaiseDispute opens a dispute against a determination.
func (s *Service) RaiseDispute(ctx context.Context, determinationID, raisedBy, reason string, evidence []string) (model.Dispute, error) {
	if err := s.ready(); err != nil {
		return model.Dispute{}, err
	}
	return s.lifecycle.RaiseDispute(ctx, determinationID, raisedBy, reason, evidence)
}

// StartInvestigation moves an open dispute under investigation.
func (s *Service) StartInvestigation(ctx context.Context, disputeID string) error {
	if err := s.ready(); err != nil {
		return err
	}
	return s.lifecycle.StartInvestigation(ctx, disputeID)
}

// ResolveDispute closes a dispute with a resolution.
func (s *Service) ResolveDispute(ctx context.Context, disputeID, resolvedBy, resolution string) error {
	if err := s.ready(); err != nil {
		return err
	}
	return s.lifecycle.ResolveDispute(ctx, disputeID, resolvedBy, resolution)
}

// DismissDispute closes a dispute without upholding it.
func (s *Service) DismissDispute(ctx context.Context, disputeID, dismissedBy, reason string) error {
	if err := s.ready(); err != nil {
		return err
	}
	return s.lifecycle.DismissDispute(ctx, disputeID, dismissedBy, reason)
}

// Determination returns a persisted determination by id.
func (s *Service) Determination(ctx context.Context, id string) (model.WinnerDetermination, error) {
	if err := s.ready(); err != nil {
		return model.WinnerDetermination{}, err
	}
	return s.store.Determination(ctx, id)
}

func (s *Service) ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return ErrNotStarted
	}
	return nil
}

func disabledSet(ids []string) map[string]bool {
	if len(ids) == 0 {
		return nil
	}
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out
}
