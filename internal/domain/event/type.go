package event

// Type identifies the type of domain event
type Type string

const (
	TypeVoucherSubmitted Type = "voucher.submitted"
	TypeStatusChanged    Type = "voucher.status_changed"
	TypeVoucherClosed    Type = "voucher.closed"
	TypeVoucherPaid      Type = "voucher.paid"
)

func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeVoucherSubmitted,
		TypeStatusChanged,
		TypeVoucherClosed,
		TypeVoucherPaid:
		return true
	default:
		return false
	}
}
