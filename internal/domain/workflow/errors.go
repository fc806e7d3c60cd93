package workflow

import "errors"

var (
	// ErrInvalidTransition is returned when the trigger is not permitted from the current state
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrInvalidState is returned when a state is not a known voucher status
	ErrInvalidState = errors.New("invalid state")

	// ErrGuardFailed is returned when every candidate transition was vetoed by its guard
	ErrGuardFailed = errors.New("guard condition failed")
)
