package workflow

import (
	"fmt"
	"strings"

	"github.com/garyjia/voucher-workflow/internal/domain/entity"
	domainwf "github.com/garyjia/voucher-workflow/internal/domain/workflow"
)

// Stage is a workflow checkpoint with its own queue and actions
type Stage string

const (
	StageEntry         Stage = "entry"
	StageFirstApproval Stage = "first-approval"
	StagePayment       Stage = "payment"
	StageCheckApprove  Stage = "check-approve"
)

// AllStages lists stages in workflow order
var AllStages = []Stage{StageEntry, StageFirstApproval, StagePayment, StageCheckApprove}

// ParseStage accepts the path form of a stage name
func ParseStage(s string) (Stage, error) {
	st := Stage(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllStages {
		if st == known {
			return st, nil
		}
	}
	return "", entity.NewValidationError("stage", "unknown stage %q", s)
}

// Action is what a stage user asks for
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	ActionRevert  Action = "revert"
	ActionForward Action = "forward"
)

var actionTriggers = map[Action]domainwf.Trigger{
	ActionApprove: domainwf.TriggerApprove,
	ActionReject:  domainwf.TriggerReject,
	ActionRevert:  domainwf.TriggerRevert,
	ActionForward: domainwf.TriggerForward,
}

// Trigger maps the action onto the state machine
func (a Action) Trigger() (domainwf.Trigger, bool) {
	t, ok := actionTriggers[a]
	return t, ok
}

// StageConfig describes what a stage consumes and what it may do
type StageConfig struct {
	Stage Stage
	// RequiredPriorStatus is the queue gate. Empty means every active voucher.
	RequiredPriorStatus []entity.Status
	Actions             []Action
	// ExcludedTypes never appear in the queue and are unsupported in detail and decisions
	ExcludedTypes []entity.VoucherType
	// RequiresPayment enforces branch and cash reconciliation on approve
	RequiresPayment bool
	// RequiresAccounting additionally enforces head of account and account on approve
	RequiresAccounting bool
}

// Admits reports whether a voucher in status s belongs to the stage queue
func (c StageConfig) Admits(s entity.Status) bool {
	if len(c.RequiredPriorStatus) == 0 {
		return !s.IsClosed()
	}
	for _, st := range c.RequiredPriorStatus {
		if st == s {
			return true
		}
	}
	return false
}

// Allows reports whether the stage may perform the action
func (c StageConfig) Allows(a Action) bool {
	for _, act := range c.Actions {
		if act == a {
			return true
		}
	}
	return false
}

// Excludes reports whether vouchers of type t are handled elsewhere
func (c StageConfig) Excludes(t entity.VoucherType) bool {
	for _, ex := range c.ExcludedTypes {
		if ex == t {
			return true
		}
	}
	return false
}

// StageTable holds the configuration of every stage
type StageTable map[Stage]StageConfig

// DefaultStages returns the built-in configuration. Payment and Check-and-Approve
// are alternate paths consuming the same first-approved queue.
//
// The transition table also permits reject and revert of an approved_check
// voucher at Payment. The default Payment gate admits approved_1st only, so
// such vouchers are rejected or reverted at Check-and-Approve; add
// approved_check to the Payment gate (workflow.stages.payment) to allow it there.
func DefaultStages() StageTable {
	decide := []Action{ActionApprove, ActionReject, ActionRevert}
	return StageTable{
		StageEntry: {
			Stage: StageEntry,
		},
		StageFirstApproval: {
			Stage:               StageFirstApproval,
			RequiredPriorStatus: []entity.Status{entity.StatusSubmitted},
			Actions:             decide,
		},
		StagePayment: {
			Stage:               StagePayment,
			RequiredPriorStatus: []entity.Status{entity.StatusApproved1st},
			Actions:             decide,
			ExcludedTypes:       []entity.VoucherType{entity.TypeCreditVoucher},
			RequiresPayment:     true,
		},
		StageCheckApprove: {
			Stage:               StageCheckApprove,
			RequiredPriorStatus: []entity.Status{entity.StatusApproved1st, entity.StatusApprovedCheck},
			Actions:             append(append([]Action{}, decide...), ActionForward),
			RequiresPayment:     true,
			RequiresAccounting:  true,
		},
	}
}

// Get returns the configuration of a stage
func (t StageTable) Get(stage Stage) (StageConfig, error) {
	c, ok := t[stage]
	if !ok {
		return StageConfig{}, entity.NewValidationError("stage", "unknown stage %q", stage)
	}
	return c, nil
}

// WithRequiredPriorStatus returns a copy of the table with the gate of one stage replaced
func (t StageTable) WithRequiredPriorStatus(stage Stage, statuses []entity.Status) (StageTable, error) {
	c, ok := t[stage]
	if !ok {
		return nil, fmt.Errorf("unknown stage %q", stage)
	}
	for _, s := range statuses {
		if !s.IsValid() {
			return nil, fmt.Errorf("stage %s: unknown status %q", stage, s)
		}
		if s.IsClosed() {
			return nil, fmt.Errorf("stage %s: closed status %q cannot gate a queue", stage, s)
		}
	}

	out := make(StageTable, len(t))
	for k, v := range t {
		out[k] = v
	}
	c.RequiredPriorStatus = append([]entity.Status{}, statuses...)
	out[stage] = c
	return out, nil
}
