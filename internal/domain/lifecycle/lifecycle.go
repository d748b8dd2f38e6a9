// Package lifecycle drives a winner determination through its state machine.
//
// Valid transitions:
//
//	PENDING   -> CONFIRMED | REJECTED
//	CONFIRMED -> DISPUTED  (a dispute is raised)
//	DISPUTED  -> CONFIRMED (all disputes closed)
//	PENDING   -> DISPUTED  (a dispute is raised before review)
//
// REJECTED and SETTLED are terminal. Confirm and Reject report refusals as
// a false return, not an error; errors are reserved for storage failures.
package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/openlot/settlement/internal/adapters/events"
	"github.com/openlot/settlement/internal/adapters/repository"
	"github.com/openlot/settlement/internal/domain/model"
	"github.com/openlot/settlement/pkg/logger"
	"github.com/openlot/settlement/pkg/metrics"
)

// Manager owns determination lifecycle state. Transitions on the same
// determination are serialized by a per-id lock; different determinations
// proceed concurrently.
type Manager struct {
	store repository.Store
	bus   events.Publisher
	log   logger.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithPublisher sets the domain event sink.
func WithPublisher(bus events.Publisher) Option {
	return func(m *Manager) {
		m.bus = bus
	}
}

// WithLogger sets a custom logger for the manager.
func WithLogger(log logger.Logger) Option {
	return func(m *Manager) {
		if log != nil {
			m.log = log
		}
	}
}

// New constructs a lifecycle Manager backed by the given store.
func New(store repository.Store, opts ...Option) *Manager {
	m := &Manager{
		store: store,
		log:   logger.Nop(),
		locks: map[string]*sync.Mutex{},
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// lockFor returns the mutex serializing transitions for one determination.
func (m *Manager) lockFor(id string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.locks[id]
	if !ok {
		l = &sync.Mutex{}
		m.locks[id] = l
	}
	return l
}

// ConfirmedEvent is published on confirm and on dispute-driven reversion.
type ConfirmedEvent struct {
	DeterminationID string `json:"determination_id"`
	AuctionID       string `json:"auction_id"`
	ConfirmedBy     string `json:"confirmed_by,omitempty"`
}

// RejectedEvent is published when a determination is rejected.
type RejectedEvent struct {
	DeterminationID string `json:"determination_id"`
	AuctionID       string `json:"auction_id"`
	RejectedBy      string `json:"rejected_by"`
	Reason          string `json:"reason"`
}

// DisputeEvent is published on every dispute state change.
type DisputeEvent struct {
	DisputeID       string              `json:"dispute_id"`
	DeterminationID string              `json:"determination_id"`
	Status          model.DisputeStatus `json:"status"`
}

// CreateWinnerDetermination persists a determination result as a PENDING
// record and returns it.
func (m *Manager) CreateWinnerDetermination(ctx context.Context, auctionID string, result model.DeterminationResult) (model.WinnerDetermination, error) {
	det := model.WinnerDetermination{
		ID:        uuid.NewString(),
		AuctionID: auctionID,
		Result:    result,
		Status:    model.DeterminationPending,
		CreatedAt: time.Now().UTC(),
	}

	if err := m.store.SaveDetermination(ctx, det); err != nil {
		return model.WinnerDetermination{}, fmt.Errorf("save determination: %w", err)
	}

	m.log.Info(ctx, "winner determination created",
		logger.String("determination", det.ID),
		logger.String("auction", auctionID),
		logger.Bool("success", result.Success),
	)
	return det, nil
}

// ConfirmWinner moves a PENDING determination to CONFIRMED. Returns false
// when the determination is in any other state.
func (m *Manager) ConfirmWinner(ctx context.Context, determinationID, confirmedBy string) (bool, error) {
	lock := m.lockFor(determinationID)
	lock.Lock()
	defer lock.Unlock()

	det, err := m.store.Determination(ctx, determinationID)
	if err != nil {
		return false, fmt.Errorf("load determination: %w", err)
	}

	if det.Status != model.DeterminationPending {
		m.log.Warn(ctx, "confirm refused",
			logger.String("determination", determinationID),
			logger.String("status", string(det.Status)),
		)
		metrics.RecordRejectedTransition("confirm")
		return false, nil
	}

	now := time.Now().UTC()
	det.Status = model.DeterminationConfirmed
	det.ConfirmedAt = &now
	det.ConfirmedBy = confirmedBy

	if err := m.store.UpdateDetermination(ctx, det); err != nil {
		return false, fmt.Errorf("update determination: %w", err)
	}

	m.publish(ctx, events.WinnerConfirmed, ConfirmedEvent{
		DeterminationID: det.ID,
		AuctionID:       det.AuctionID,
		ConfirmedBy:     confirmedBy,
	})
	metrics.RecordConfirmation()

	m.log.Info(ctx, "winner confirmed",
		logger.String("determination", determinationID),
		logger.String("by", confirmedBy),
	)
	return true, nil
}

// RejectWinner moves a PENDING determination to REJECTED. Returns false
// when the determination is in any other state.
func (m *Manager) RejectWinner(ctx context.Context, determinationID, rejectedBy, reason string) (bool, error) {
	lock := m.lockFor(determinationID)
	lock.Lock()
	defer lock.Unlock()

	det, err := m.store.Determination(ctx, determinationID)
	if err != nil {
		return false, fmt.Errorf("load determination: %w", err)
	}

	if det.Status != model.DeterminationPending {
		m.log.Warn(ctx, "reject refused",
			logger.String("determination", determinationID),
			logger.String("status", string(det.Status)),
		)
		metrics.RecordRejectedTransition("reject")
		return false, nil
	}

	now := time.Now().UTC()
	det.Status = model.DeterminationRejected
	det.RejectedAt = &now
	det.RejectedBy = rejectedBy
	det.RejectReason = reason

	if err := m.store.UpdateDetermination(ctx, det); err != nil {
		return false, fmt.Errorf("update determination: %w", err)
	}

	m.publish(ctx, events.WinnerRejected, RejectedEvent{
		DeterminationID: det.ID,
		AuctionID:       det.AuctionID,
		RejectedBy:      rejectedBy,
		Reason:          reason,
	})
	metrics.RecordRejection()

	m.log.Info(ctx, "winner rejected",
		logger.String("determination", determinationID),
		logger.String("by", rejectedBy),
		logger.String("reason", reason),
	)
	return true, nil
}

// publish emits an event when a sink is configured, logging publish failures.
func (m *Manager) publish(ctx context.Context, name string, payload any) {
	if m.bus == nil {
		return
	}
	if err := m.bus.Publish(ctx, name, payload); err != nil {
		m.log.Warn(ctx, "failed to publish lifecycle event",
			logger.String("event", name),
			logger.Error(err),
		)
	}
}
