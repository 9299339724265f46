package promise

import "errors"

var (
	// ErrAlreadyHandled is returned by Intake for events seen before.
	ErrAlreadyHandled = errors.New("event already handled")
	// ErrUnknownOutcome is returned for a verdict status with no adjustment rule.
	ErrUnknownOutcome = errors.New("unknown promise outcome")
)
