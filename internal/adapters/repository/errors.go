package repository

import "errors"

// Sentinel kinds for settlement store errors.
var (
	ErrNotFound  = errors.New("record not found")
	ErrNoBids    = errors.New("no bids recorded for auction")
	ErrDuplicate = errors.New("record already exists")
)
