package lifecycle

import "errors"

// Lifecycle transition errors.
var (
	// ErrTerminalState is returned when a dispute targets a determination
	// that can no longer change state.
	ErrTerminalState = errors.New("determination is in a terminal state")

	// ErrDisputeNotOpen is returned when an investigation is started on a
	// dispute that is not open.
	ErrDisputeNotOpen = errors.New("dispute is not open")

	// ErrDisputeClosed is returned when resolving or dismissing an already
	// closed dispute.
	ErrDisputeClosed = errors.New("dispute is already closed")
)
