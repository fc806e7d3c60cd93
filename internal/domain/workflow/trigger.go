package workflow

// Trigger is a stage action that may move a voucher to another state
type Trigger string

const (
	TriggerApprove Trigger = "APPROVE"
	TriggerReject  Trigger = "REJECT"
	TriggerRevert  Trigger = "REVERT"
	TriggerForward Trigger = "FORWARD"
)

var validTriggers = map[Trigger]bool{
	TriggerApprove: true,
	TriggerReject:  true,
	TriggerRevert:  true,
	TriggerForward: true,
}

// IsValid returns true if the trigger is a known action
func (t Trigger) IsValid() bool {
	return validTriggers[t]
}

// RequiresReason returns true for actions that close a voucher on a user's judgement
func (t Trigger) RequiresReason() bool {
	return t == TriggerReject || t == TriggerRevert
}

func (t Trigger) String() string {
	return string(t)
}
