package workflow

import "github.com/garyjia/voucher-workflow/internal/domain/entity"

// State is a node of the voucher lifecycle. Values match entity.Status.
type State string

const (
	StateSubmitted     State = State(entity.StatusSubmitted)
	StateApproved1st   State = State(entity.StatusApproved1st)
	StateApprovedCheck State = State(entity.StatusApprovedCheck)
	StatePaid          State = State(entity.StatusPaid)
	StateRejected      State = State(entity.StatusRejected)
	StateReverted      State = State(entity.StatusReverted)
	StateForwarded     State = State(entity.StatusForwarded)
)

// StateOf converts a stored voucher status into a machine state
func StateOf(status entity.Status) State {
	return State(status)
}

// Status converts the state back into the stored representation
func (s State) Status() entity.Status {
	return entity.Status(s)
}

// IsTerminal returns true if no transition leaves the state
func (s State) IsTerminal() bool {
	return s.Status().IsTerminal()
}

// IsValid returns true if the state is a known voucher status
func (s State) IsValid() bool {
	return s.Status().IsValid()
}

func (s State) String() string {
	return string(s)
}
