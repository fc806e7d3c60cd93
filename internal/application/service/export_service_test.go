package service

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/garyjia/voucher-workflow/internal/application/workflow"
)

func TestExportService_RegisterXLSX(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()

	open := mustAdd(t, f.store, debitInput("500"))
	gone := mustAdd(t, f.store, pettyInput("12.5"))
	_, err := f.store.UpdateStatus(ctx, gone.VoucherNumber, workflow.TransitionRequest{
		Stage: workflow.StageFirstApproval, Action: workflow.ActionRevert, Actor: manager, Reason: "duplicate slip",
	})
	require.NoError(t, err)

	data, err := NewExportService(f.store, nil, &mockLogger{}).RegisterXLSX(ctx)
	require.NoError(t, err)

	wb, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer wb.Close()

	assert.Equal(t, []string{sheetActive, sheetClosed}, wb.GetSheetList())

	active, err := wb.GetRows(sheetActive)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, registerHeaders, active[0])
	assert.Equal(t, open.VoucherNumber, active[1][0])
	assert.Equal(t, "500", active[1][5])
	assert.Equal(t, "Rahim (1001)", active[1][7])

	closed, err := wb.GetRows(sheetClosed)
	require.NoError(t, err)
	require.Len(t, closed, 2)
	assert.Equal(t, gone.VoucherNumber, closed[1][0])
	assert.Equal(t, "reverted", closed[1][6])
	assert.Equal(t, "duplicate slip", closed[1][15])
	assert.Equal(t, "2026-03-07 11:00", closed[1][16])
}

func TestExportService_SaveRegister(t *testing.T) {
	f := newStoreFixture(t)
	mustAdd(t, f.store, debitInput("1"))
	storage := &mockStorage{}

	path, err := NewExportService(f.store, storage, nil).SaveRegister(context.Background(), "register.xlsx")
	require.NoError(t, err)

	assert.Equal(t, "/exports/register.xlsx", path)
	assert.True(t, storage.Exists(context.Background(), "register.xlsx"))
	assert.NotEmpty(t, storage.files["register.xlsx"])
}

func TestExportService_SaveRegisterWithoutStorage(t *testing.T) {
	f := newStoreFixture(t)

	_, err := NewExportService(f.store, nil, nil).SaveRegister(context.Background(), "")
	assert.Error(t, err)
}
