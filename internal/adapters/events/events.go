// Package events defines the domain event sink the settlement core publishes to.
//
// Downstream consumers (notifications, analytics) live outside this core; the
// in-memory Bus is the default sink for tests and single-process deployments.
package events

import (
	"context"
	"time"
)

// Canonical domain event names published by the settlement core.
const (
	BidValidated     = "bid.validated"
	WinnerDetermined = "winner.determined"
	WinnerConfirmed  = "winner.confirmed"
	WinnerRejected   = "winner.rejected"
	DisputeRaised    = "dispute.raised"
	DisputeResolved  = "dispute.resolved"
	DisputeDismissed = "dispute.dismissed"
)

// Event is one published domain event.
type Event struct {
	Name    string
	Payload any
	TS      time.Time
}

// Publisher is the sink domain services publish to.
type Publisher interface {
	// Publish emits a named domain event. Implementations must not block
	// indefinitely; the in-memory bus fails fast when full.
	Publish(ctx context.Context, name string, payload any) error
}
