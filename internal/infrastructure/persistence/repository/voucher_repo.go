package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/garyjia/voucher-workflow/internal/application/port"
	"github.com/garyjia/voucher-workflow/internal/domain/entity"
	"github.com/garyjia/voucher-workflow/internal/infrastructure/persistence/sqlite"
)

// VoucherRepository implements port.VoucherRepository on SQLite.
// The voucher is stored as JSON; number, type, status and version are
// duplicated into columns for filtering and compare-and-swap.
type VoucherRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewVoucherRepository creates a new voucher repository
func NewVoucherRepository(db *sql.DB, logger *zap.Logger) *VoucherRepository {
	return &VoucherRepository{
		db:     db,
		logger: logger,
	}
}

const selectVoucher = `SELECT payload FROM vouchers`

// Last returns the most recently inserted voucher
func (r *VoucherRepository) Last(ctx context.Context) (*entity.Voucher, error) {
	v, err := r.scanOne(ctx, selectVoucher+` ORDER BY seq DESC LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get last voucher", zap.Error(err))
		return nil, fmt.Errorf("failed to get last voucher: %w", err)
	}
	return v, nil
}

// Add inserts a new voucher
func (r *VoucherRepository) Add(ctx context.Context, v *entity.Voucher) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode voucher: %w", err)
	}

	query := `
		INSERT INTO vouchers (voucher_number, voucher_type, status, version, payload, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err = r.getExecutor(ctx).ExecContext(ctx, query,
		v.VoucherNumber,
		string(v.Type),
		string(v.Status),
		v.Version,
		string(payload),
		v.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return entity.ErrDuplicateNumber
	}
	if err != nil {
		r.logger.Error("Failed to add voucher", zap.String("voucher_number", v.VoucherNumber), zap.Error(err))
		return fmt.Errorf("failed to add voucher: %w", err)
	}
	return nil
}

// GetByNumber retrieves a voucher by its number
func (r *VoucherRepository) GetByNumber(ctx context.Context, number string) (*entity.Voucher, error) {
	v, err := r.scanOne(ctx, selectVoucher+` WHERE voucher_number = ?`, number)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &entity.NotFoundError{VoucherNumber: number}
	}
	if err != nil {
		r.logger.Error("Failed to get voucher", zap.String("voucher_number", number), zap.Error(err))
		return nil, fmt.Errorf("failed to get voucher: %w", err)
	}
	return v, nil
}

// UpdateByNumber replaces the stored voucher when its version still matches
func (r *VoucherRepository) UpdateByNumber(ctx context.Context, v *entity.Voucher, expectedVersion int64) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode voucher: %w", err)
	}

	query := `
		UPDATE vouchers
		SET status = ?, version = ?, payload = ?, updated_at = ?
		WHERE voucher_number = ? AND version = ?
	`
	exec := r.getExecutor(ctx)
	result, err := exec.ExecContext(ctx, query,
		string(v.Status),
		v.Version,
		string(payload),
		v.UpdatedAt,
		v.VoucherNumber,
		expectedVersion,
	)
	if err != nil {
		r.logger.Error("Failed to update voucher", zap.String("voucher_number", v.VoucherNumber), zap.Error(err))
		return fmt.Errorf("failed to update voucher: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if n == 1 {
		return nil
	}

	// Tell a stale version apart from a missing voucher
	var exists int
	err = exec.QueryRowContext(ctx, `SELECT 1 FROM vouchers WHERE voucher_number = ?`, v.VoucherNumber).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return &entity.NotFoundError{VoucherNumber: v.VoucherNumber}
	}
	if err != nil {
		return fmt.Errorf("failed to check voucher: %w", err)
	}
	r.logger.Info("Voucher version moved on",
		zap.String("voucher_number", v.VoucherNumber),
		zap.Int64("expected_version", expectedVersion))
	return entity.ErrConcurrentUpdate
}

// ListAll returns vouchers that are not closed
func (r *VoucherRepository) ListAll(ctx context.Context) ([]*entity.Voucher, error) {
	return r.list(ctx, selectVoucher+` WHERE status NOT IN (?, ?, ?) ORDER BY seq`,
		string(entity.StatusRejected), string(entity.StatusReverted), string(entity.StatusForwarded))
}

// ListByStatus returns vouchers in any of the given statuses
func (r *VoucherRepository) ListByStatus(ctx context.Context, statuses ...entity.Status) ([]*entity.Voucher, error) {
	if len(statuses) == 0 {
		return []*entity.Voucher{}, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(statuses)), ", ")
	args := make([]interface{}, len(statuses))
	for i, s := range statuses {
		args[i] = string(s)
	}
	return r.list(ctx, selectVoucher+` WHERE status IN (`+placeholders+`) ORDER BY seq`, args...)
}

func (r *VoucherRepository) list(ctx context.Context, query string, args ...interface{}) ([]*entity.Voucher, error) {
	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list vouchers", zap.Error(err))
		return nil, fmt.Errorf("failed to list vouchers: %w", err)
	}
	defer rows.Close()

	vouchers := []*entity.Voucher{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan voucher: %w", err)
		}
		v, err := decodeVoucher(payload)
		if err != nil {
			return nil, err
		}
		vouchers = append(vouchers, v)
	}
	return vouchers, rows.Err()
}

func (r *VoucherRepository) scanOne(ctx context.Context, query string, args ...interface{}) (*entity.Voucher, error) {
	var payload string
	if err := r.getExecutor(ctx).QueryRowContext(ctx, query, args...).Scan(&payload); err != nil {
		return nil, err
	}
	return decodeVoucher(payload)
}

func decodeVoucher(payload string) (*entity.Voucher, error) {
	var v entity.Voucher
	if err := json.Unmarshal([]byte(payload), &v); err != nil {
		return nil, fmt.Errorf("failed to decode voucher: %w", err)
	}
	return &v, nil
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique
}

func (r *VoucherRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFrom(ctx, r.db)
}

var _ port.VoucherRepository = (*VoucherRepository)(nil)
