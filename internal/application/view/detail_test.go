package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/voucher-workflow/internal/application/workflow"
	"github.com/garyjia/voucher-workflow/internal/domain/entity"
)

func stageConfig(t *testing.T, s workflow.Stage) workflow.StageConfig {
	t.Helper()
	c, err := workflow.DefaultStages().Get(s)
	require.NoError(t, err)
	return c
}

func valueOf(fields []Field, key string) (string, bool) {
	for _, f := range fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

func TestRenderDetail_PerVariant(t *testing.T) {
	tests := []struct {
		name      string
		voucher   *entity.Voucher
		wantKey   string
		wantValue string
		wantLines int
	}{
		{
			name: "petty cash",
			voucher: &entity.Voucher{VoucherNumber: "PET-0001", Type: entity.TypePettyCashSlip,
				Variant: entity.PettyCashDetails{Reason: "tea", ReconciliationDate: "01-04-2026"}},
			wantKey: "reason", wantValue: "tea",
		},
		{
			name: "credit via bank",
			voucher: &entity.Voucher{VoucherNumber: "CR-0002", Type: entity.TypeCreditVoucher,
				Variant: entity.CreditDetails{FromWhom: "Client", PaymentOption: entity.PaymentOptionBank, BankName: "City"}},
			wantKey: "bankName", wantValue: "City",
		},
		{
			name: "debit",
			voucher: &entity.Voucher{VoucherNumber: "DB-0003", Type: entity.TypeDebitVoucher,
				Variant: entity.DebitDetails{PaidTo: "Vendor", Lines: []entity.DebitLine{{Purpose: "a"}, {Purpose: "b"}}}},
			wantKey: "paidTo", wantValue: "Vendor", wantLines: 2,
		},
		{
			name: "conveyance",
			voucher: &entity.Voucher{VoucherNumber: "TR-0004", Type: entity.TypeConveyanceVoucher,
				Variant: entity.ItemizedDetails{ForWhom: "Self", Lines: []entity.ItemizedLine{{Date: "01-04-2026", From: "A", To: "B", Amount: "10.00"}}}},
			wantKey: "forWhom", wantValue: "Self", wantLines: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := RenderDetail(stageConfig(t, workflow.StageFirstApproval), tt.voucher)

			assert.True(t, d.Supported)
			assert.Nil(t, d.Notice)
			got, ok := valueOf(d.Variant, tt.wantKey)
			assert.True(t, ok, "missing %s", tt.wantKey)
			assert.Equal(t, tt.wantValue, got)
			assert.Len(t, d.Lines, tt.wantLines)
			assert.Equal(t, []workflow.Action{workflow.ActionApprove, workflow.ActionReject, workflow.ActionRevert}, d.Actions)
		})
	}
}

func TestRenderDetail_ItemizedDateLabel(t *testing.T) {
	food := &entity.Voucher{Type: entity.TypeFoodVoucher,
		Variant: entity.ItemizedDetails{Lines: []entity.ItemizedLine{{Date: "01-04-2026", Purpose: "lunch", Amount: "5.00"}}}}

	d := RenderDetail(stageConfig(t, workflow.StageEntry), food)

	require.Len(t, d.Lines, 1)
	assert.Equal(t, "foodDate", d.Lines[0][0].Key)
	_, hasFrom := valueOf(d.Lines[0], "from")
	assert.False(t, hasFrom, "empty optional columns are omitted")
}

func TestRenderDetail_CreditAtPaymentFallsBack(t *testing.T) {
	v := &entity.Voucher{VoucherNumber: "CR-0002", Type: entity.TypeCreditVoucher, Amount: "500.00",
		Variant: entity.CreditDetails{FromWhom: "Client"}}

	d := RenderDetail(stageConfig(t, workflow.StagePayment), v)

	assert.False(t, d.Supported)
	require.NotNil(t, d.Notice)
	assert.Equal(t, entity.NoticeUnsupported, d.Notice.Kind)
	assert.Equal(t, "CR-0002", d.Notice.VoucherNumber)
	assert.Empty(t, d.Variant)
	assert.Empty(t, d.Actions)
	amount, _ := valueOf(d.Common, "amount")
	assert.Equal(t, "500.00", amount, "common fields are still shown")
}

func TestRenderDetail_UnknownVariantFallsBack(t *testing.T) {
	v := &entity.Voucher{VoucherNumber: "JR-0009", Type: entity.TypeJournalVoucher}

	d := RenderDetail(stageConfig(t, workflow.StageCheckApprove), v)

	assert.False(t, d.Supported)
	require.NotNil(t, d.Notice)
	assert.Equal(t, entity.NoticeKeyNotSupported, d.Notice.Key)
}

func TestRenderDetail_PaymentAndIdentity(t *testing.T) {
	v := &entity.Voucher{
		VoucherNumber: "DB-0003", Type: entity.TypeDebitVoucher, Status: entity.StatusApprovedCheck,
		CreatorInfo:  entity.UserInfo{Name: "Rahim", PIN: "1001"},
		ApproverInfo: &entity.UserInfo{Name: "Karim", PIN: "2002", Designation: "Manager"},
		CashAmount:   "300.00", PettyCashAmount: "200.00", PaymentBranch: "Dhaka",
		Variant: entity.DebitDetails{PaidTo: "Vendor"},
	}

	d := RenderDetail(stageConfig(t, workflow.StageCheckApprove), v)

	approvedBy, ok := valueOf(d.Common, "approvedBy")
	assert.True(t, ok)
	assert.Equal(t, "Karim (2002), Manager", approvedBy)
	_, hasPayer := valueOf(d.Common, "paidBy")
	assert.False(t, hasPayer)
	branch, _ := valueOf(d.Payment, "paymentBranch")
	assert.Equal(t, "Dhaka", branch)
	_, hasHead := valueOf(d.Payment, "headOfAccount")
	assert.False(t, hasHead)
}
