package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/openlot/settlement/internal/adapters/events"
	"github.com/openlot/settlement/internal/domain/model"
	"github.com/openlot/settlement/pkg/logger"
	"github.com/openlot/settlement/pkg/metrics"
)

// RaiseDispute opens a dispute against a determination and moves the
// determination to DISPUTED. Disputes cannot be raised against terminal
// determinations.
func (m *Manager) RaiseDispute(ctx context.Context, determinationID, raisedBy, reason string, evidence []string) (model.Dispute, error) {
	lock := m.lockFor(determinationID)
	lock.Lock()
	defer lock.Unlock()

	det, err := m.store.Determination(ctx, determinationID)
	if err != nil {
		return model.Dispute{}, fmt.Errorf("load determination: %w", err)
	}

	if det.Status.Terminal() {
		metrics.RecordRejectedTransition("dispute")
		return model.Dispute{}, fmt.Errorf("%w: determination %s is %s", ErrTerminalState, determinationID, det.Status)
	}

	dispute := model.Dispute{
		ID:              uuid.NewString(),
		DeterminationID: determinationID,
		RaisedBy:        raisedBy,
		Reason:          reason,
		Evidence:        evidence,
		Status:          model.DisputeOpen,
		CreatedAt:       time.Now().UTC(),
	}

	if err := m.store.SaveDispute(ctx, dispute); err != nil {
		return model.Dispute{}, fmt.Errorf("save dispute: %w", err)
	}

	if det.Status != model.DeterminationDisputed {
		det.Status = model.DeterminationDisputed
		if err := m.store.UpdateDetermination(ctx, det); err != nil {
			return model.Dispute{}, fmt.Errorf("update determination: %w", err)
		}
	}

	m.publish(ctx, events.DisputeRaised, DisputeEvent{
		DisputeID:       dispute.ID,
		DeterminationID: determinationID,
		Status:          dispute.Status,
	})
	metrics.RecordDisputeRaised()

	m.log.Info(ctx, "dispute raised",
		logger.String("dispute", dispute.ID),
		logger.String("determination", determinationID),
		logger.String("by", raisedBy),
	)
	return dispute, nil
}

// StartInvestigation moves an open dispute to investigating.
func (m *Manager) StartInvestigation(ctx context.Context, disputeID string) error {
	dispute, err := m.store.Dispute(ctx, disputeID)
	if err != nil {
		return fmt.Errorf("load dispute: %w", err)
	}

	lock := m.lockFor(dispute.DeterminationID)
	lock.Lock()
	defer lock.Unlock()

	// Re-read under the lock; a concurrent transition may have moved it.
	dispute, err = m.store.Dispute(ctx, disputeID)
	if err != nil {
		return fmt.Errorf("load dispute: %w", err)
	}
	if dispute.Status != model.DisputeOpen {
		return fmt.Errorf("%w: dispute %s is %s", ErrDisputeNotOpen, disputeID, dispute.Status)
	}

	dispute.Status = model.DisputeInvestigating
	if err := m.store.UpdateDispute(ctx, dispute); err != nil {
		return fmt.Errorf("update dispute: %w", err)
	}

	m.log.Info(ctx, "dispute under investigation", logger.String("dispute", disputeID))
	return nil
}

// ResolveDispute closes an open or investigating dispute with a resolution.
// When it was the determination's last live dispute, the determination
// reverts to CONFIRMED.
func (m *Manager) ResolveDispute(ctx context.Context, disputeID, resolvedBy, resolution string) error {
	return m.closeDispute(ctx, disputeID, resolvedBy, resolution, model.DisputeResolved)
}

// DismissDispute closes an open or investigating dispute without upholding
// it. The determination reverts to CONFIRMED once no live disputes remain.
func (m *Manager) DismissDispute(ctx context.Context, disputeID, dismissedBy, reason string) error {
	return m.closeDispute(ctx, disputeID, dismissedBy, reason, model.DisputeDismissed)
}

func (m *Manager) closeDispute(ctx context.Context, disputeID, actor, note string, final model.DisputeStatus) error {
	dispute, err := m.store.Dispute(ctx, disputeID)
	if err != nil {
		return fmt.Errorf("load dispute: %w", err)
	}

	lock := m.lockFor(dispute.DeterminationID)
	lock.Lock()
	defer lock.Unlock()

	// Re-read under the lock; only then is the closed check authoritative.
	dispute, err = m.store.Dispute(ctx, disputeID)
	if err != nil {
		return fmt.Errorf("load dispute: %w", err)
	}
	if dispute.Status.Closed() {
		return fmt.Errorf("%w: dispute %s is %s", ErrDisputeClosed, disputeID, dispute.Status)
	}

	now := time.Now().UTC()
	dispute.Status = final
	dispute.Resolution = note
	dispute.ResolvedBy = actor
	dispute.ResolvedAt = &now

	if err := m.store.UpdateDispute(ctx, dispute); err != nil {
		return fmt.Errorf("update dispute: %w", err)
	}

	eventName := events.DisputeResolved
	if final == model.DisputeDismissed {
		eventName = events.DisputeDismissed
		metrics.RecordDisputeDismissed()
	} else {
		metrics.RecordDisputeResolved()
	}
	m.publish(ctx, eventName, DisputeEvent{
		DisputeID:       dispute.ID,
		DeterminationID: dispute.DeterminationID,
		Status:          dispute.Status,
	})

	if err := m.revertIfQuiet(ctx, dispute.DeterminationID); err != nil {
		return err
	}

	m.log.Info(ctx, "dispute closed",
		logger.String("dispute", disputeID),
		logger.String("status", string(final)),
		logger.String("by", actor),
	)
	return nil
}

// revertIfQuiet returns a DISPUTED determination to CONFIRMED once every
// dispute against it is closed. Caller holds the determination lock.
func (m *Manager) revertIfQuiet(ctx context.Context, determinationID string) error {
	det, err := m.store.Determination(ctx, determinationID)
	if err != nil {
		return fmt.Errorf("load determination: %w", err)
	}
	if det.Status != model.DeterminationDisputed {
		return nil
	}

	disputes, err := m.store.DisputesByDetermination(ctx, determinationID)
	if err != nil {
		return fmt.Errorf("list disputes: %w", err)
	}
	for _, d := range disputes {
		if !d.Status.Closed() {
			return nil
		}
	}

	det.Status = model.DeterminationConfirmed
	if err := m.store.UpdateDetermination(ctx, det); err != nil {
		return fmt.Errorf("update determination: %w", err)
	}

	m.publish(ctx, events.WinnerConfirmed, ConfirmedEvent{
		DeterminationID: det.ID,
		AuctionID:       det.AuctionID,
	})

	m.log.Info(ctx, "determination reverted to confirmed",
		logger.String("determination", determinationID),
	)
	return nil
}
