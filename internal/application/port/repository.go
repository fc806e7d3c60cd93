package port

import (
	"context"

	"github.com/garyjia/voucher-workflow/internal/domain/entity"
)

// VoucherRepository persists vouchers in insertion order.
// Implementations return deep copies; callers may mutate what they receive.
type VoucherRepository interface {
	// Last returns the most recently inserted voucher, closed ones included, or nil if empty
	Last(ctx context.Context) (*entity.Voucher, error)

	// Add inserts a new voucher. Returns entity.ErrDuplicateNumber if the number is taken.
	Add(ctx context.Context, v *entity.Voucher) error

	// GetByNumber returns the voucher or *entity.NotFoundError
	GetByNumber(ctx context.Context, voucherNumber string) (*entity.Voucher, error)

	// UpdateByNumber replaces the stored record if its version still equals expectedVersion.
	// Returns entity.ErrConcurrentUpdate when it does not.
	UpdateByNumber(ctx context.Context, v *entity.Voucher, expectedVersion int64) error

	// ListAll returns vouchers that are not closed, in insertion order
	ListAll(ctx context.Context) ([]*entity.Voucher, error)

	// ListByStatus returns vouchers whose status is one of statuses, in insertion order
	ListByStatus(ctx context.Context, statuses ...entity.Status) ([]*entity.Voucher, error)
}

// TransactionManager handles store transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
