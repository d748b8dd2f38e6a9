package events

import "errors"

// Sentinel kinds for event bus errors.
var (
	ErrBusFull   = errors.New("event bus full")
	ErrBusClosed = errors.New("event bus closed")
)
