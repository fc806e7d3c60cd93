package workflow

import (
	"context"

	"github.com/garyjia/voucher-workflow/internal/domain/entity"
	domainwf "github.com/garyjia/voucher-workflow/internal/domain/workflow"
)

// BuildVoucherStateMachine creates a state machine positioned at the voucher's status.
// Hooks run after each successful transition.
func BuildVoucherStateMachine(v *entity.Voucher, hooks ...domainwf.TransitionHook) (domainwf.StateMachine, error) {
	builder := domainwf.NewBuilder()
	for _, h := range hooks {
		builder.OnTransition(h)
	}

	isPettyCash := func(ctx context.Context) bool {
		return v.Type == entity.TypePettyCashSlip
	}

	// submitted: first approval
	builder.Configure(domainwf.StateSubmitted).
		Permit(domainwf.TriggerApprove, domainwf.StateApproved1st).
		Permit(domainwf.TriggerReject, domainwf.StateRejected).
		Permit(domainwf.TriggerRevert, domainwf.StateReverted)

	// approved_1st: petty cash is paid straight away
	builder.Configure(domainwf.StateApproved1st).
		PermitIf(domainwf.TriggerApprove, domainwf.StatePaid, isPettyCash).
		Permit(domainwf.TriggerApprove, domainwf.StateApprovedCheck).
		Permit(domainwf.TriggerReject, domainwf.StateRejected).
		Permit(domainwf.TriggerRevert, domainwf.StateReverted)

	builder.Configure(domainwf.StateApprovedCheck).
		Permit(domainwf.TriggerForward, domainwf.StateForwarded).
		Permit(domainwf.TriggerReject, domainwf.StateRejected).
		Permit(domainwf.TriggerRevert, domainwf.StateReverted)

	// paid, rejected, reverted and forwarded are terminal

	return builder.Build(domainwf.StateOf(v.Status))
}
