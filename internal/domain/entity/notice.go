package entity

import "time"

// NoticeKind classifies a user-facing message
type NoticeKind string

const (
	NoticeSuccess     NoticeKind = "success"
	NoticeValidation  NoticeKind = "validation_error"
	NoticeNotFound    NoticeKind = "not_found"
	NoticeUnsupported NoticeKind = "unsupported"
	NoticeConflict    NoticeKind = "conflict"
	NoticeError       NoticeKind = "error"
)

// Notice keys. Display strings belong to the i18n layer.
const (
	NoticeKeyVoucherSubmitted = "voucher.submitted"
	NoticeKeyVoucherApproved  = "voucher.approved"
	NoticeKeyVoucherPaid      = "voucher.paid"
	NoticeKeyVoucherRejected  = "voucher.rejected"
	NoticeKeyVoucherReverted  = "voucher.reverted"
	NoticeKeyVoucherForwarded = "voucher.forwarded"
	NoticeKeyReasonRequired   = "reason.required"
	NoticeKeyAmountMismatch   = "amount.mismatch"
	NoticeKeyFieldRequired    = "field.required"
	NoticeKeyFieldInvalid     = "field.invalid"
	NoticeKeyVoucherNotFound  = "voucher.not_found"
	NoticeKeyNotSupported     = "voucher.not_supported"
	NoticeKeyConflict         = "voucher.conflict"
	NoticeKeyInvalidAction    = "voucher.invalid_transition"
	NoticeKeyInternal         = "internal.error"
)

// Notice tells the presentation layer which condition occurred
type Notice struct {
	Kind          NoticeKind        `json:"kind"`
	Key           string            `json:"key"`
	VoucherNumber string            `json:"voucherNumber,omitempty"`
	Field         string            `json:"field,omitempty"`
	Detail        string            `json:"detail,omitempty"`
	Params        map[string]string `json:"params,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
}
