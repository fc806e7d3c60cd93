package entity

import (
	"fmt"
	"strconv"
	"strings"
)

// NextVoucherNumber derives the number for a new voucher of type t from the
// last voucher in insertion order. The sequence is global across all types.
func NextVoucherNumber(last *Voucher, t VoucherType) (string, error) {
	prefix := t.Prefix()
	if prefix == "" {
		return "", &UnsupportedVariantError{Type: t, Context: "voucher numbering"}
	}

	seq := 0
	if last != nil {
		n, err := SequenceOf(last.VoucherNumber)
		if err != nil {
			return "", err
		}
		seq = n
	}

	return FormatVoucherNumber(prefix, seq+1), nil
}

// FormatVoucherNumber renders <prefix>-<4-digit sequence>
func FormatVoucherNumber(prefix string, seq int) string {
	return fmt.Sprintf("%s-%04d", prefix, seq)
}

// SequenceOf parses the numeric suffix after the first '-'
func SequenceOf(voucherNumber string) (int, error) {
	_, suffix, ok := strings.Cut(voucherNumber, "-")
	if !ok {
		return 0, fmt.Errorf("malformed voucher number %q", voucherNumber)
	}
	n, err := strconv.Atoi(suffix)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("malformed voucher number %q", voucherNumber)
	}
	return n, nil
}
