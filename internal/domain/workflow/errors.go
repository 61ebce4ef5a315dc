package workflow

import "errors"

var (
	// ErrInvalidTransition is returned when a trigger is not configured in the current state
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrGuardFailed is returned when every guard for a configured trigger rejects the transition
	ErrGuardFailed = errors.New("guard condition failed")
)
