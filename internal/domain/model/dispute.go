package model

import "time"

// DisputeStatus tracks a dispute from creation to closure.
type DisputeStatus string

// Dispute statuses.
const (
	DisputeOpen          DisputeStatus = "open"
	DisputeInvestigating DisputeStatus = "investigating"
	DisputeResolved      DisputeStatus = "resolved"
	DisputeDismissed     DisputeStatus = "dismissed"
)

// Closed reports whether the dispute no longer counts against its determination.
func (s DisputeStatus) Closed() bool {
	return s == DisputeResolved || s == DisputeDismissed
}

// Dispute is a challenge raised against a winner determination.
type Dispute struct {
	ID              string        `json:"id"`
	DeterminationID string        `json:"determination_id"`
	RaisedBy        string        `json:"raised_by"`
	Reason          string        `json:"reason"`
	Evidence        []string      `json:"evidence,omitempty"`
	Status          DisputeStatus `json:"status"`
	Resolution      string        `json:"resolution,omitempty"`
	ResolvedBy      string        `json:"resolved_by,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	ResolvedAt      *time.Time    `json:"resolved_at,omitempty"`
}
