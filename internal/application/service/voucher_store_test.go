package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/voucher-workflow/internal/application/dispatcher"
	"github.com/garyjia/voucher-workflow/internal/application/workflow"
	"github.com/garyjia/voucher-workflow/internal/domain/entity"
	"github.com/garyjia/voucher-workflow/internal/domain/event"
)

var (
	storeNow = time.Date(2026, 3, 7, 11, 0, 0, 0, time.UTC)
	creator  = entity.UserInfo{Name: "Rahim", PIN: "1001", Designation: "Officer", Organization: "HO"}
	manager  = entity.UserInfo{Name: "Karim", PIN: "2002", Designation: "Manager", Organization: "HO"}
)

type storeFixture struct {
	repo   *memRepo
	tx     *mockTxManager
	disp   dispatcher.Dispatcher
	events []*event.Event
	store  VoucherStore
}

func newStoreFixture(t *testing.T) *storeFixture {
	t.Helper()
	f := &storeFixture{repo: &memRepo{}, tx: &mockTxManager{}, disp: dispatcher.NewDispatcher()}
	f.disp.Subscribe(dispatcher.AnyType, func(ctx context.Context, evt *event.Event) error {
		f.events = append(f.events, evt)
		return nil
	})
	engine := workflow.NewEngine(workflow.WithClock(fixedClock{storeNow}))
	f.store = NewVoucherStore(f.repo, f.tx, engine, &mockLogger{},
		WithStoreClock(fixedClock{storeNow}), WithEventDispatcher(f.disp))
	return f
}

func pettyInput(amount string) *entity.VoucherInput {
	return &entity.VoucherInput{
		Type: entity.TypePettyCashSlip, Organization: "HO", Branch: "Dhaka", Amount: amount,
		Variant: entity.PettyCashDetails{Reason: "tea", ReconciliationDate: "10-03-2026"},
	}
}

func creditInput(amount string) *entity.VoucherInput {
	return &entity.VoucherInput{
		Type: entity.TypeCreditVoucher, Organization: "HO", Branch: "Dhaka", Amount: amount,
		Variant: entity.CreditDetails{Date: "01-03-2026", FromWhom: "Client", Description: "advance", PaymentOption: entity.PaymentOptionCash},
	}
}

func debitInput(amount string) *entity.VoucherInput {
	return &entity.VoucherInput{
		Type: entity.TypeDebitVoucher, Organization: "HO", Branch: "Dhaka", Amount: amount,
		Variant: entity.DebitDetails{PaidTo: "Vendor", Lines: []entity.DebitLine{{ExpenseDate: "01-03-2026", Description: "ink", Purpose: "printing"}}},
	}
}

func mustAdd(t *testing.T, s VoucherStore, in *entity.VoucherInput) *entity.Voucher {
	t.Helper()
	v, err := s.Add(context.Background(), in, creator)
	require.NoError(t, err)
	return v
}

func TestVoucherStore_NumberingIsGlobalAndMonotonic(t *testing.T) {
	f := newStoreFixture(t)

	first := mustAdd(t, f.store, pettyInput("10"))
	second := mustAdd(t, f.store, creditInput("20"))
	third := mustAdd(t, f.store, pettyInput("30"))

	assert.Equal(t, "PET-0001", first.VoucherNumber)
	assert.Equal(t, "CR-0002", second.VoucherNumber)
	assert.Equal(t, "PET-0003", third.VoucherNumber)
}

func TestVoucherStore_NumbersNotReusedAfterClose(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()

	v := mustAdd(t, f.store, pettyInput("10"))
	_, err := f.store.UpdateStatus(ctx, v.VoucherNumber, workflow.TransitionRequest{
		Stage: workflow.StageFirstApproval, Action: workflow.ActionReject, Actor: manager, Reason: "duplicate",
	})
	require.NoError(t, err)

	next := mustAdd(t, f.store, debitInput("5"))
	assert.Equal(t, "DB-0002", next.VoucherNumber)
}

func TestVoucherStore_AddStampsRecord(t *testing.T) {
	f := newStoreFixture(t)

	v := mustAdd(t, f.store, pettyInput("150"))

	assert.Equal(t, "150.00", v.Amount)
	assert.Equal(t, "07-03-2026", v.SubmissionDate)
	assert.Equal(t, entity.StatusSubmitted, v.Status)
	assert.Equal(t, creator, v.CreatorInfo)
	assert.Equal(t, int64(1), v.Version)
	assert.Nil(t, v.ApproverInfo)

	require.Len(t, f.events, 1)
	assert.Equal(t, event.TypeVoucherSubmitted, f.events[0].Type)
	assert.Equal(t, "PET-0001", f.events[0].VoucherNumber)
}

func TestVoucherStore_AddValidation(t *testing.T) {
	tests := []struct {
		name    string
		in      *entity.VoucherInput
		creator entity.UserInfo
		check   func(t *testing.T, err error)
	}{
		{"journal has no form", &entity.VoucherInput{Type: entity.TypeJournalVoucher, Organization: "HO", Branch: "B", Amount: "1"}, creator,
			func(t *testing.T, err error) { assert.True(t, entity.IsUnsupported(err)) }},
		{"missing creator", pettyInput("1"), entity.UserInfo{},
			func(t *testing.T, err error) { assert.True(t, entity.IsValidation(err)) }},
		{"negative amount", pettyInput("-1"), creator,
			func(t *testing.T, err error) { assert.True(t, entity.IsValidation(err)) }},
		{"variant of another type", &entity.VoucherInput{Type: entity.TypeDebitVoucher, Organization: "HO", Branch: "B", Amount: "1",
			Variant: entity.PettyCashDetails{}}, creator,
			func(t *testing.T, err error) { assert.True(t, entity.IsValidation(err)) }},
		{"blank branch", &entity.VoucherInput{Type: entity.TypePettyCashSlip, Organization: "HO", Branch: " ", Amount: "1",
			Variant: entity.PettyCashDetails{}}, creator,
			func(t *testing.T, err error) { assert.True(t, entity.IsValidation(err)) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newStoreFixture(t)
			_, err := f.store.Add(context.Background(), tt.in, tt.creator)
			require.Error(t, err)
			tt.check(t, err)
			assert.Empty(t, f.repo.vouchers)
			assert.Empty(t, f.events)
		})
	}
}

func TestVoucherStore_AddRetriesTakenNumber(t *testing.T) {
	f := newStoreFixture(t)
	f.repo.addErr = entity.ErrDuplicateNumber

	v := mustAdd(t, f.store, pettyInput("1"))

	assert.Equal(t, "PET-0001", v.VoucherNumber)
	assert.Equal(t, 2, f.tx.calls)
}

func TestVoucherStore_RejectRequiresReason(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()
	v := mustAdd(t, f.store, debitInput("75"))

	_, err := f.store.UpdateStatus(ctx, v.VoucherNumber, workflow.TransitionRequest{
		Stage: workflow.StageFirstApproval, Action: workflow.ActionReject, Actor: manager,
	})
	assert.True(t, entity.IsValidation(err))

	stored, err := f.store.GetByNumber(ctx, v.VoucherNumber)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusSubmitted, stored.Status)
	assert.Equal(t, int64(1), stored.Version)

	_, err = f.store.UpdateStatus(ctx, v.VoucherNumber, workflow.TransitionRequest{
		Stage: workflow.StageFirstApproval, Action: workflow.ActionReject, Actor: manager, Reason: "reason text",
	})
	require.NoError(t, err)

	active, err := f.store.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	closed, err := f.store.ListClosed(ctx)
	require.NoError(t, err)
	require.Len(t, closed, 1)
	assert.Equal(t, entity.StatusRejected, closed[0].Status)
	assert.Equal(t, "reason text", closed[0].ClosingReason)
	assert.NotNil(t, closed[0].ClosedAt)

	// closed records are still reachable
	got, err := f.store.GetByNumber(ctx, v.VoucherNumber)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusRejected, got.Status)
}

func TestVoucherStore_PaymentReconciliation(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()
	v := mustAdd(t, f.store, debitInput("500"))
	_, err := f.store.UpdateStatus(ctx, v.VoucherNumber, workflow.TransitionRequest{
		Stage: workflow.StageFirstApproval, Action: workflow.ActionApprove, Actor: manager,
	})
	require.NoError(t, err)

	_, err = f.store.UpdateStatus(ctx, v.VoucherNumber, workflow.TransitionRequest{
		Stage: workflow.StagePayment, Action: workflow.ActionApprove, Actor: manager,
		Payment: &workflow.PaymentDetails{CashAmount: "300", PettyCashAmount: "150", PaymentBranch: "X"},
	})
	assert.True(t, entity.IsValidation(err))

	res, err := f.store.UpdateStatus(ctx, v.VoucherNumber, workflow.TransitionRequest{
		Stage: workflow.StagePayment, Action: workflow.ActionApprove, Actor: manager,
		Payment: &workflow.PaymentDetails{CashAmount: "300", PettyCashAmount: "200", PaymentBranch: "X"},
	})
	require.NoError(t, err)
	assert.Equal(t, entity.StatusApprovedCheck, res.Voucher.Status)

	stored, err := f.store.GetByNumber(ctx, v.VoucherNumber)
	require.NoError(t, err)
	assert.Equal(t, "300.00", stored.CashAmount)
	assert.Equal(t, "200.00", stored.PettyCashAmount)
	assert.Equal(t, "X", stored.PaymentBranch)
	assert.Equal(t, int64(3), stored.Version)
}

func TestVoucherStore_PettyCashPaidEventsAndPayer(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()
	v := mustAdd(t, f.store, pettyInput("150"))

	for _, stage := range []workflow.Stage{workflow.StageFirstApproval, workflow.StagePayment} {
		_, err := f.store.UpdateStatus(ctx, v.VoucherNumber, workflow.TransitionRequest{
			Stage: stage, Action: workflow.ActionApprove, Actor: manager,
		})
		require.NoError(t, err)
	}

	stored, err := f.store.GetByNumber(ctx, v.VoucherNumber)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusPaid, stored.Status)
	require.NotNil(t, stored.PayerInfo)
	assert.Equal(t, manager, *stored.PayerInfo)

	var types []event.Type
	for _, e := range f.events {
		types = append(types, e.Type)
	}
	assert.Equal(t, []event.Type{
		event.TypeVoucherSubmitted,
		event.TypeStatusChanged,
		event.TypeStatusChanged,
		event.TypeVoucherPaid,
	}, types)
	last := f.events[len(f.events)-1]
	assert.Equal(t, f.events[len(f.events)-2].CorrelationID, last.CorrelationID)
}

func TestVoucherStore_NotFound(t *testing.T) {
	f := newStoreFixture(t)

	_, err := f.store.UpdateStatus(context.Background(), "PET-0404", workflow.TransitionRequest{
		Stage: workflow.StageFirstApproval, Action: workflow.ActionApprove, Actor: manager,
	})
	assert.True(t, entity.IsNotFound(err))

	_, err = f.store.GetByNumber(context.Background(), "PET-0404")
	assert.True(t, entity.IsNotFound(err))
}

func TestVoucherStore_ConcurrentUpdateDetected(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()
	v := mustAdd(t, f.store, debitInput("10"))

	// Another approver commits between our read and our write
	f.repo.beforeUpdate = func(stored *entity.Voucher) {
		stored.Status = entity.StatusRejected
		stored.Version++
		f.repo.beforeUpdate = nil
	}

	_, err := f.store.UpdateStatus(ctx, v.VoucherNumber, workflow.TransitionRequest{
		Stage: workflow.StageFirstApproval, Action: workflow.ActionApprove, Actor: manager,
	})
	assert.ErrorIs(t, err, entity.ErrConcurrentUpdate)

	stored, err := f.store.GetByNumber(ctx, v.VoucherNumber)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusRejected, stored.Status, "the concurrent writer's change is kept")
}

func TestVoucherStore_RoundTripPreservesDetails(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()
	in := &entity.VoucherInput{
		Type: entity.TypeFoodVoucher, Organization: "HO", Branch: "Dhaka", Amount: "100.50",
		Variant: entity.ItemizedDetails{ForWhom: "Team", PinName: "1001", Lines: []entity.ItemizedLine{
			{Date: "01-03-2026", Purpose: "lunch", Amount: "40.00"},
			{Date: "02-03-2026", Purpose: "dinner", Amount: "60.50"},
		}},
	}
	v := mustAdd(t, f.store, in)

	res, err := f.store.UpdateStatus(ctx, v.VoucherNumber, workflow.TransitionRequest{
		Stage: workflow.StageFirstApproval, Action: workflow.ActionApprove, Actor: manager,
	})
	require.NoError(t, err)

	got, err := f.store.GetByNumber(ctx, v.VoucherNumber)
	require.NoError(t, err)
	assert.Equal(t, res.Voucher.Status, got.Status)
	assert.Equal(t, in.Variant, got.Variant)

	// Exactly one record and it survives JSON
	all, err := f.store.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	data, err := json.Marshal(got)
	require.NoError(t, err)
	var decoded entity.Voucher
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, got.Variant, decoded.Variant)
	assert.Equal(t, got.ApproverInfo, decoded.ApproverInfo)
}
