package service

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/garyjia/voucher-workflow/internal/application/port"
	"github.com/garyjia/voucher-workflow/internal/domain/entity"
)

const (
	sheetActive = "Active"
	sheetClosed = "Closed"
)

var registerHeaders = []string{
	"Voucher No.",
	"Submission Date",
	"Type",
	"Organization",
	"Branch",
	"Amount",
	"Status",
	"Created By",
	"Approved By",
	"Paid By",
	"Cash",
	"Petty Cash",
	"Payment Branch",
	"Head of Account",
	"Account",
	"Closing Reason",
	"Closed At",
}

// ExportService writes the voucher register as an XLSX workbook
type ExportService interface {
	// RegisterXLSX returns the workbook bytes with one sheet of active and one of closed vouchers
	RegisterXLSX(ctx context.Context) ([]byte, error)

	// SaveRegister writes the workbook through the file storage and returns its full path
	SaveRegister(ctx context.Context, name string) (string, error)
}

type exportServiceImpl struct {
	store   VoucherStore
	storage port.FileStorage
	logger  Logger
}

// NewExportService creates a new ExportService. storage may be nil when only bytes are needed.
func NewExportService(store VoucherStore, storage port.FileStorage, logger Logger) ExportService {
	if logger == nil {
		logger = nopLogger{}
	}
	return &exportServiceImpl{store: store, storage: storage, logger: logger}
}

func (s *exportServiceImpl) RegisterXLSX(ctx context.Context) ([]byte, error) {
	start := time.Now()

	active, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active vouchers: %w", err)
	}
	closed, err := s.store.ListClosed(ctx)
	if err != nil {
		return nil, fmt.Errorf("list closed vouchers: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	// Rename the default sheet instead of leaving an empty "Sheet1"
	if err := f.SetSheetName(f.GetSheetName(0), sheetActive); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(sheetClosed); err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}

	for _, sheet := range []struct {
		name     string
		vouchers []*entity.Voucher
	}{{sheetActive, active}, {sheetClosed, closed}} {
		if err := writeRegister(f, sheet.name, sheet.vouchers); err != nil {
			return nil, err
		}
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("Voucher register exported",
		"active", len(active),
		"closed", len(closed),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func writeRegister(f *excelize.File, sheet string, vouchers []*entity.Voucher) error {
	for i, h := range registerHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	for r, v := range vouchers {
		row := r + 2
		values := []interface{}{
			v.VoucherNumber,
			v.SubmissionDate,
			string(v.Type),
			v.Organization,
			v.Branch,
			amountCell(v.Amount),
			string(v.Status),
			personCell(&v.CreatorInfo),
			personCell(v.ApproverInfo),
			personCell(v.PayerInfo),
			amountCell(v.CashAmount),
			amountCell(v.PettyCashAmount),
			v.PaymentBranch,
			v.HeadOfAccount,
			v.Account,
			v.ClosingReason,
			"",
		}
		if v.ClosedAt != nil {
			values[len(values)-1] = v.ClosedAt.Format("2006-01-02 15:04")
		}
		for c, val := range values {
			cell, _ := excelize.CoordinatesToCellName(c+1, row)
			if err := f.SetCellValue(sheet, cell, val); err != nil {
				return fmt.Errorf("write %s row %d: %w", sheet, row, err)
			}
		}
	}

	_ = f.SetColWidth(sheet, "A", "B", 14)
	_ = f.SetColWidth(sheet, "C", "E", 20)
	_ = f.SetColWidth(sheet, "H", "J", 24)
	_ = f.SetColWidth(sheet, "P", "P", 40)
	return f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

// amountCell writes amounts as numbers so the sheet can total them
func amountCell(a string) interface{} {
	if a == "" {
		return ""
	}
	d, err := entity.ParseAmount(a)
	if err != nil {
		return a
	}
	return d.InexactFloat64()
}

func personCell(u *entity.UserInfo) string {
	if u.IsZero() {
		return ""
	}
	return u.Name + " (" + u.PIN + ")"
}

func (s *exportServiceImpl) SaveRegister(ctx context.Context, name string) (string, error) {
	if s.storage == nil {
		return "", fmt.Errorf("no file storage configured")
	}
	data, err := s.RegisterXLSX(ctx)
	if err != nil {
		return "", err
	}
	if name == "" {
		name = fmt.Sprintf("voucher-register-%s.xlsx", time.Now().Format("20060102-150405"))
	}
	if err := s.storage.Save(ctx, name, data); err != nil {
		return "", fmt.Errorf("save register: %w", err)
	}
	return s.storage.GetFullPath(name), nil
}
