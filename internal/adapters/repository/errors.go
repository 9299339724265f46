package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound         = errors.New("record not found")
	ErrAlreadyProcessed = errors.New("already processed")
	ErrAlreadyResolved  = errors.New("promise already resolved")
	ErrInvalidLimit     = errors.New("invalid page limit")
	ErrUnknownDriver    = errors.New("unknown store driver")
)
