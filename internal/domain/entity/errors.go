package entity

import (
	"errors"
	"fmt"
)

var (
	// ErrConcurrentUpdate is returned when a voucher changed between read and write
	ErrConcurrentUpdate = errors.New("voucher was modified concurrently")

	// ErrDuplicateNumber is returned when a voucher number is already taken
	ErrDuplicateNumber = errors.New("voucher number already exists")
)

// ValidationError reports a missing or invalid field. No state has been changed.
type ValidationError struct {
	Field   string
	Message string
	// Key optionally names the notice to show; empty means a generic field error
	Key string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
}

// NewValidationError creates a ValidationError for a field
func NewValidationError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// NotFoundError reports a voucher number that does not exist
type NotFoundError struct {
	VoucherNumber string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("voucher %s not found", e.VoucherNumber)
}

// UnsupportedVariantError reports a voucher type that has no handling in a given context
type UnsupportedVariantError struct {
	Type    VoucherType
	Context string
}

func (e *UnsupportedVariantError) Error() string {
	if e.Context == "" {
		return fmt.Sprintf("voucher type %s is not supported", e.Type)
	}
	return fmt.Sprintf("voucher type %s is not supported on %s", e.Type, e.Context)
}

// IsValidation reports whether err is or wraps a ValidationError
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err is or wraps a NotFoundError
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsUnsupported reports whether err is or wraps an UnsupportedVariantError
func IsUnsupported(err error) bool {
	var ue *UnsupportedVariantError
	return errors.As(err, &ue)
}
