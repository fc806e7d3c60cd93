package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/voucher-workflow/internal/container"
	"github.com/garyjia/voucher-workflow/internal/domain/entity"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

const pettyForm = `{
	"type": "PettyCashSlip", "organization": "HO", "branch": "Dhaka",
	"amount": "150", "reason": "stationery", "reconciliationDate": "20-03-2026"
}`

type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Notice  *entity.Notice  `json:"notice"`
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	cfg := container.DefaultConfig()
	cfg.Database.Path = filepath.Join(dir, "vouchers.db")
	cfg.Export.OutputDir = filepath.Join(dir, "exports")

	c, err := container.NewContainer(cfg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, c.Start(context.Background()))
	t.Cleanup(func() { _ = c.Close() })

	svc := c.Services()
	health := func(ctx context.Context) (bool, interface{}) {
		h := c.Health(ctx)
		return h.Overall, h.Components
	}

	cfgHTTP := DefaultServerConfig()
	cfgHTTP.Mode = gin.TestMode
	return NewServer(cfgHTTP, Services{
		Store:         svc.Store,
		Stages:        svc.Stages,
		Notifications: svc.Notifications,
		Export:        svc.Export,
	}, health, nopLogger{})
}

func do(t *testing.T, s *Server, method, path, body string, user *entity.UserInfo) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		req.Header.Set(HeaderUserName, user.Name)
		req.Header.Set(HeaderUserPIN, user.PIN)
		req.Header.Set(HeaderUserDesignation, user.Designation)
	}
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	var resp apiResponse
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	}
	return w, resp
}

var (
	clerk   = &entity.UserInfo{Name: "Rahim", PIN: "1001", Designation: "Officer"}
	cashier = &entity.UserInfo{Name: "Karim", PIN: "2002", Designation: "Manager"}
)

func submitPetty(t *testing.T, s *Server) entity.Voucher {
	t.Helper()
	w, resp := do(t, s, http.MethodPost, "/api/vouchers", pettyForm, clerk)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var v entity.Voucher
	require.NoError(t, json.Unmarshal(resp.Data, &v))
	return v
}

func TestServer_Health(t *testing.T) {
	s := newTestServer(t)

	w, resp := do(t, s, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
	assert.Contains(t, string(resp.Data), `"status":"healthy"`)
}

func TestServer_RequiresIdentity(t *testing.T) {
	s := newTestServer(t)

	w, resp := do(t, s, http.MethodGet, "/api/vouchers", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, resp.Success)

	w, _ = do(t, s, http.MethodGet, "/api/vouchers", "", &entity.UserInfo{Name: "Rahim"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestServer_SubmitAndList(t *testing.T) {
	s := newTestServer(t)

	v := submitPetty(t, s)
	assert.Equal(t, "PET-0001", v.VoucherNumber)
	assert.Equal(t, entity.StatusSubmitted, v.Status)
	assert.Equal(t, clerk.PIN, v.CreatorInfo.PIN)

	w, resp := do(t, s, http.MethodGet, "/api/vouchers", "", clerk)
	require.Equal(t, http.StatusOK, w.Code)
	var list []entity.Voucher
	require.NoError(t, json.Unmarshal(resp.Data, &list))
	assert.Len(t, list, 1)

	w, _ = do(t, s, http.MethodGet, "/api/vouchers/PET-0001", "", clerk)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServer_SubmitInvalidForm(t *testing.T) {
	s := newTestServer(t)

	w, resp := do(t, s, http.MethodPost, "/api/vouchers",
		`{"type": "PettyCashSlip", "organization": "HO", "branch": "Dhaka", "amount": "150"}`, clerk)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, resp.Notice)
	assert.Equal(t, entity.NoticeKeyFieldRequired, resp.Notice.Key)
}

func TestServer_NotFound(t *testing.T) {
	s := newTestServer(t)

	w, resp := do(t, s, http.MethodGet, "/api/vouchers/DB-0404", "", clerk)
	assert.Equal(t, http.StatusNotFound, w.Code)
	require.NotNil(t, resp.Notice)
	assert.Equal(t, entity.NoticeKeyVoucherNotFound, resp.Notice.Key)

	w, _ = do(t, s, http.MethodGet, "/api/stages/cashier/queue", "", clerk)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_PettyCashPaidThroughStages(t *testing.T) {
	s := newTestServer(t)
	v := submitPetty(t, s)
	base := "/api/stages/%s/vouchers/" + v.VoucherNumber

	w, resp := do(t, s, http.MethodPost, strings.Replace(base, "%s", "first-approval", 1)+"/decision", `{"action":"approve"}`, cashier)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, entity.NoticeKeyVoucherApproved, resp.Notice.Key)

	w, resp = do(t, s, http.MethodGet, "/api/stages/payment/queue", "", cashier)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(resp.Data), v.VoucherNumber)

	w, resp = do(t, s, http.MethodGet, strings.Replace(base, "%s", "payment", 1), "", cashier)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(resp.Data), `"supported":true`)

	w, resp = do(t, s, http.MethodPost, strings.Replace(base, "%s", "payment", 1)+"/decision", `{"action":"approve"}`, cashier)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, entity.NoticeKeyVoucherPaid, resp.Notice.Key)

	var paid entity.Voucher
	require.NoError(t, json.Unmarshal(resp.Data, &paid))
	assert.Equal(t, entity.StatusPaid, paid.Status)
	assert.Equal(t, "150.00", paid.PettyCashAmount)

	w, resp = do(t, s, http.MethodGet, "/api/notifications?limit=10", "", clerk)
	require.Equal(t, http.StatusOK, w.Code)
	var feed []entity.Notice
	require.NoError(t, json.Unmarshal(resp.Data, &feed))
	require.NotEmpty(t, feed)
	assert.Equal(t, entity.NoticeKeyVoucherPaid, feed[0].Key)
}

func TestServer_DecisionErrors(t *testing.T) {
	s := newTestServer(t)
	v := submitPetty(t, s)
	path := "/api/stages/first-approval/vouchers/" + v.VoucherNumber + "/decision"

	w, resp := do(t, s, http.MethodPost, path, `{"action":"reject"}`, cashier)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, entity.NoticeKeyReasonRequired, resp.Notice.Key)

	w, _ = do(t, s, http.MethodPost, path, `not json`, cashier)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, resp = do(t, s, http.MethodPost, "/api/stages/payment/vouchers/"+v.VoucherNumber+"/decision", `{"action":"approve"}`, cashier)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, entity.NoticeKeyInvalidAction, resp.Notice.Key)

	w, _ = do(t, s, http.MethodPost, path, `{"action":"revert","reason":"wrong branch"}`, cashier)
	require.Equal(t, http.StatusOK, w.Code)

	w, resp = do(t, s, http.MethodGet, "/api/vouchers/closed", "", clerk)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(resp.Data), `"status":"reverted"`)
}

func TestServer_ExportRegister(t *testing.T) {
	s := newTestServer(t)
	submitPetty(t, s)

	w, _ := do(t, s, http.MethodGet, "/api/vouchers/export", "", clerk)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".xlsx")

	wb, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer wb.Close()
	assert.Len(t, wb.GetSheetList(), 2)

	w, resp := do(t, s, http.MethodGet, "/api/vouchers/export?save=true&name=march.xlsx", "", clerk)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, string(resp.Data), "march.xlsx")
}

func TestDecisionRequest_NumericAmounts(t *testing.T) {
	var req decisionRequest
	require.NoError(t, json.Unmarshal([]byte(`{"action":"approve","cashAmount":300,"pettyCashAmount":"150.5"}`), &req))

	d, err := req.toDecision()
	require.NoError(t, err)
	assert.Equal(t, "300", d.CashAmount)
	assert.Equal(t, "150.5", d.PettyCashAmount)
	assert.Empty(t, d.PaymentBranch)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusOK, statusFor(entity.NoticeSuccess))
	assert.Equal(t, http.StatusBadRequest, statusFor(entity.NoticeValidation))
	assert.Equal(t, http.StatusNotFound, statusFor(entity.NoticeNotFound))
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(entity.NoticeUnsupported))
	assert.Equal(t, http.StatusConflict, statusFor(entity.NoticeConflict))
	assert.Equal(t, http.StatusInternalServerError, statusFor(entity.NoticeError))
}

func TestServer_CORSPreflight(t *testing.T) {
	s := newTestServer(t)

	w, _ := do(t, s, http.MethodOptions, "/api/vouchers", "", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), HeaderUserPIN)
}
