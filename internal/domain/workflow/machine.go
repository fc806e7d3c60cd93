package workflow

import "context"

// Transition records one applied move
type Transition struct {
	From    State
	To      State
	Trigger Trigger
}

// StateMachine tracks the current state of one voucher and validates moves
type StateMachine interface {
	// State returns the current state
	State() State

	// CanFire returns true if the trigger has at least one configured transition from the current state
	CanFire(trigger Trigger) bool

	// Fire applies the first transition whose guard passes and returns it
	Fire(ctx context.Context, trigger Trigger) (Transition, error)

	// PermittedTriggers returns the configured triggers of the current state in a stable order
	PermittedTriggers() []Trigger
}
