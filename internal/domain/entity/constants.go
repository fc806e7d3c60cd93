package entity

// VoucherType is the discriminant of the voucher tagged union
type VoucherType string

const (
	TypePettyCashSlip     VoucherType = "PettyCashSlip"
	TypeCreditVoucher     VoucherType = "CreditVoucher"
	TypeDebitVoucher      VoucherType = "DebitVoucher"
	TypeFoodVoucher       VoucherType = "FoodVoucher"
	TypeConveyanceVoucher VoucherType = "ConveyanceVoucher"
	TypeJournalVoucher    VoucherType = "JournalVoucher"
	TypeContraVoucher     VoucherType = "ContraVoucher"
)

var typePrefixes = map[VoucherType]string{
	TypePettyCashSlip:     "PET",
	TypeCreditVoucher:     "CR",
	TypeDebitVoucher:      "DB",
	TypeFoodVoucher:       "FD",
	TypeConveyanceVoucher: "TR",
	TypeJournalVoucher:    "JR",
	TypeContraVoucher:     "CT",
}

// Journal and contra vouchers exist in the numbering scheme but have no entry form
var entryFormTypes = map[VoucherType]bool{
	TypePettyCashSlip:     true,
	TypeCreditVoucher:     true,
	TypeDebitVoucher:      true,
	TypeFoodVoucher:       true,
	TypeConveyanceVoucher: true,
}

// AllVoucherTypes lists every known type in display order
var AllVoucherTypes = []VoucherType{
	TypePettyCashSlip,
	TypeCreditVoucher,
	TypeDebitVoucher,
	TypeFoodVoucher,
	TypeConveyanceVoucher,
	TypeJournalVoucher,
	TypeContraVoucher,
}

// Prefix returns the voucher number prefix for the type, or "" if unknown
func (t VoucherType) Prefix() string {
	return typePrefixes[t]
}

// IsValid returns true if the type is a known voucher type
func (t VoucherType) IsValid() bool {
	_, ok := typePrefixes[t]
	return ok
}

// HasEntryForm returns true if vouchers of this type can be submitted
func (t VoucherType) HasEntryForm() bool {
	return entryFormTypes[t]
}

// IsItemized returns true for types whose amount is the sum of line amounts
func (t VoucherType) IsItemized() bool {
	return t == TypeFoodVoucher || t == TypeConveyanceVoucher
}

func (t VoucherType) String() string {
	return string(t)
}

// Status is the workflow state of a voucher
type Status string

const (
	StatusSubmitted     Status = "submitted"
	StatusApproved1st   Status = "approved_1st"
	StatusApprovedCheck Status = "approved_check"
	StatusPaid          Status = "paid"
	StatusRejected      Status = "rejected"
	StatusReverted      Status = "reverted"
	StatusForwarded     Status = "forwarded"
)

var validStatuses = map[Status]bool{
	StatusSubmitted:     true,
	StatusApproved1st:   true,
	StatusApprovedCheck: true,
	StatusPaid:          true,
	StatusRejected:      true,
	StatusReverted:      true,
	StatusForwarded:     true,
}

// IsValid returns true if the status is a known workflow status
func (s Status) IsValid() bool {
	return validStatuses[s]
}

// IsClosed returns true for statuses that leave the active set.
// Paid is terminal but stays visible.
func (s Status) IsClosed() bool {
	return s == StatusRejected || s == StatusReverted || s == StatusForwarded
}

// IsTerminal returns true if no further transition is defined
func (s Status) IsTerminal() bool {
	return s.IsClosed() || s == StatusPaid
}

func (s Status) String() string {
	return string(s)
}

// PaymentOption is how a credit voucher was received
type PaymentOption string

const (
	PaymentOptionCash PaymentOption = "cash"
	PaymentOptionBank PaymentOption = "bank"
)

// SubmissionDateLayout is the DD-MM-YYYY layout used for submission dates
const SubmissionDateLayout = "02-01-2006"
