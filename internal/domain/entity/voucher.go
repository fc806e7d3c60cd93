package entity

import (
	"encoding/json"
	"fmt"
	"time"
)

// UserInfo is an identity snapshot of whoever submitted or acted on a voucher
type UserInfo struct {
	Name         string `json:"name"`
	PIN          string `json:"pin"`
	Designation  string `json:"designation"`
	Organization string `json:"organization"`
}

// IsZero reports whether no identity has been recorded
func (u *UserInfo) IsZero() bool {
	return u == nil || (u.Name == "" && u.PIN == "")
}

// Voucher is a financial voucher moving through the approval workflow.
// Exactly one variant payload is carried, selected by Type.
type Voucher struct {
	VoucherNumber  string      `json:"voucherNumber"`
	SubmissionDate string      `json:"submissionDate"`
	Organization   string      `json:"organization"`
	Branch         string      `json:"branch"`
	Type           VoucherType `json:"type"`
	Amount         string      `json:"amount"`
	Status         Status      `json:"status"`

	CreatorInfo  UserInfo  `json:"creatorInfo"`
	ApproverInfo *UserInfo `json:"approverInfo,omitempty"`
	PayerInfo    *UserInfo `json:"payerInfo,omitempty"`

	// Filled at the payment / check stage
	CashAmount      string `json:"cashAmount,omitempty"`
	PettyCashAmount string `json:"pettyCashAmount,omitempty"`
	PaymentBranch   string `json:"paymentBranch,omitempty"`
	HeadOfAccount   string `json:"headOfAccount,omitempty"`
	Account         string `json:"account,omitempty"`

	ClosingReason string     `json:"closingReason,omitempty"`
	ClosedAt      *time.Time `json:"closedAt,omitempty"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	Version       int64      `json:"version"`

	Variant VariantDetails `json:"-"`
}

// VariantDetails is the type-specific part of a voucher
type VariantDetails interface {
	// Kinds lists the voucher types this payload can describe
	Kinds() []VoucherType
}

// PettyCashDetails holds the fields of a petty cash slip
type PettyCashDetails struct {
	Reason             string `json:"reason"`
	ReconciliationDate string `json:"reconciliationDate"`
}

// CreditDetails holds the fields of a credit voucher
type CreditDetails struct {
	Date          string        `json:"date"`
	FromWhom      string        `json:"fromWhom"`
	Description   string        `json:"description"`
	PaymentOption PaymentOption `json:"paymentOption"`
	BankName      string        `json:"bankName,omitempty"`
}

// DebitLine is one expense line of a debit voucher
type DebitLine struct {
	ExpenseDate string `json:"expenseDate"`
	Description string `json:"description"`
	Purpose     string `json:"purpose"`
}

// DebitDetails holds the fields of a debit voucher
type DebitDetails struct {
	PaidTo string      `json:"paidTo"`
	Lines  []DebitLine `json:"details"`
}

// ItemizedLine is one line of a food or conveyance voucher.
// Date is the food date or the travel date depending on the voucher type.
type ItemizedLine struct {
	Date        string `json:"date"`
	From        string `json:"from,omitempty"`
	To          string `json:"to,omitempty"`
	Vehicle     string `json:"vehicle,omitempty"`
	Description string `json:"description,omitempty"`
	Purpose     string `json:"purpose"`
	Amount      string `json:"amount"`
}

// ItemizedDetails holds the fields shared by food and conveyance vouchers
type ItemizedDetails struct {
	ForWhom string         `json:"forWhom"`
	PinName string         `json:"pinName"`
	Lines   []ItemizedLine `json:"details"`
}

func (PettyCashDetails) Kinds() []VoucherType { return []VoucherType{TypePettyCashSlip} }
func (CreditDetails) Kinds() []VoucherType    { return []VoucherType{TypeCreditVoucher} }
func (DebitDetails) Kinds() []VoucherType     { return []VoucherType{TypeDebitVoucher} }
func (ItemizedDetails) Kinds() []VoucherType {
	return []VoucherType{TypeFoodVoucher, TypeConveyanceVoucher}
}

// voucherAlias strips the methods of Voucher so encoding/json does not recurse
type voucherAlias Voucher

type voucherWire struct {
	voucherAlias
	Variant json.RawMessage `json:"variant,omitempty"`
}

// MarshalJSON encodes the variant payload under "variant"
func (v Voucher) MarshalJSON() ([]byte, error) {
	wire := voucherWire{voucherAlias: voucherAlias(v)}
	if v.Variant != nil {
		raw, err := json.Marshal(v.Variant)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s variant: %w", v.Type, err)
		}
		wire.Variant = raw
	}
	return json.Marshal(wire)
}

// UnmarshalJSON decodes the variant payload using Type as the discriminant
func (v *Voucher) UnmarshalJSON(data []byte) error {
	var wire voucherWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*v = Voucher(wire.voucherAlias)

	if len(wire.Variant) == 0 || string(wire.Variant) == "null" {
		v.Variant = nil
		return nil
	}

	variant, err := NewVariant(v.Type)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(wire.Variant, variant); err != nil {
		return fmt.Errorf("failed to decode %s variant: %w", v.Type, err)
	}
	v.Variant = derefVariant(variant)
	return nil
}

// NewVariant returns an empty, decodable payload for the given type
func NewVariant(t VoucherType) (VariantDetails, error) {
	switch t {
	case TypePettyCashSlip:
		return &PettyCashDetails{}, nil
	case TypeCreditVoucher:
		return &CreditDetails{}, nil
	case TypeDebitVoucher:
		return &DebitDetails{}, nil
	case TypeFoodVoucher, TypeConveyanceVoucher:
		return &ItemizedDetails{}, nil
	default:
		return nil, &UnsupportedVariantError{Type: t, Context: "variant payload"}
	}
}

func derefVariant(v VariantDetails) VariantDetails {
	switch d := v.(type) {
	case *PettyCashDetails:
		return *d
	case *CreditDetails:
		return *d
	case *DebitDetails:
		return *d
	case *ItemizedDetails:
		return *d
	}
	return v
}

// Clone returns a deep copy so transitions never mutate a stored record
func (v *Voucher) Clone() *Voucher {
	if v == nil {
		return nil
	}
	c := *v
	if v.ApproverInfo != nil {
		a := *v.ApproverInfo
		c.ApproverInfo = &a
	}
	if v.PayerInfo != nil {
		p := *v.PayerInfo
		c.PayerInfo = &p
	}
	if v.ClosedAt != nil {
		t := *v.ClosedAt
		c.ClosedAt = &t
	}
	switch d := v.Variant.(type) {
	case DebitDetails:
		d.Lines = append([]DebitLine(nil), d.Lines...)
		c.Variant = d
	case ItemizedDetails:
		d.Lines = append([]ItemizedLine(nil), d.Lines...)
		c.Variant = d
	}
	return &c
}

// IsActive reports whether the voucher is still part of the active set
func (v *Voucher) IsActive() bool {
	return !v.Status.IsClosed()
}

// VoucherInput is a validated entry form ready to be stored
type VoucherInput struct {
	Type         VoucherType
	Organization string
	Branch       string
	Amount       string
	Variant      VariantDetails
}
