package http

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shockerli/cvt"

	"github.com/garyjia/voucher-workflow/internal/application/service"
	"github.com/garyjia/voucher-workflow/internal/application/workflow"
	"github.com/garyjia/voucher-workflow/internal/domain/entity"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// maxFormBytes caps an entry form body
const maxFormBytes = 1 << 20

// Handlers contains all HTTP request handlers
type Handlers struct {
	services Services
	health   HealthFunc
	logger   Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(services Services, health HealthFunc, logger Logger) *Handlers {
	return &Handlers{
		services: services,
		health:   health,
		logger:   logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool           `json:"success"`
	Data    interface{}    `json:"data,omitempty"`
	Error   string         `json:"error,omitempty"`
	Notice  *entity.Notice `json:"notice,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string      `json:"status"`
	Timestamp  string      `json:"timestamp"`
	Components interface{} `json:"components,omitempty"`
}

// decisionRequest accepts amounts as JSON strings or numbers
type decisionRequest struct {
	Action          string      `json:"action"`
	Reason          string      `json:"reason"`
	CashAmount      interface{} `json:"cashAmount"`
	PettyCashAmount interface{} `json:"pettyCashAmount"`
	PaymentBranch   string      `json:"paymentBranch"`
	HeadOfAccount   string      `json:"headOfAccount"`
	Account         string      `json:"account"`
}

func (r decisionRequest) toDecision() (service.Decision, error) {
	cash, err := amountString(r.CashAmount)
	if err != nil {
		return service.Decision{}, entity.NewValidationError("cashAmount", "must be a number")
	}
	petty, err := amountString(r.PettyCashAmount)
	if err != nil {
		return service.Decision{}, entity.NewValidationError("pettyCashAmount", "must be a number")
	}
	return service.Decision{
		Action:          r.Action,
		Reason:          r.Reason,
		CashAmount:      cash,
		PettyCashAmount: petty,
		PaymentBranch:   r.PaymentBranch,
		HeadOfAccount:   r.HeadOfAccount,
		Account:         r.Account,
	}, nil
}

func amountString(v interface{}) (string, error) {
	if v == nil {
		return "", nil
	}
	return cvt.StringE(v)
}

// statusFor maps a notice kind to an HTTP status
func statusFor(kind entity.NoticeKind) int {
	switch kind {
	case entity.NoticeSuccess:
		return http.StatusOK
	case entity.NoticeValidation:
		return http.StatusBadRequest
	case entity.NoticeNotFound:
		return http.StatusNotFound
	case entity.NoticeUnsupported:
		return http.StatusUnprocessableEntity
	case entity.NoticeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handlers) fail(c *gin.Context, err error, voucherNumber string) {
	n := service.NoticeFor(err, voucherNumber)
	h.respondNotice(c, n, nil)
}

func (h *Handlers) respondNotice(c *gin.Context, n entity.Notice, data interface{}) {
	status := statusFor(n.Kind)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", "path", c.FullPath(), "voucher_number", n.VoucherNumber, "error", n.Detail)
	}
	resp := Response{Success: n.Kind == entity.NoticeSuccess, Data: data, Notice: &n}
	if !resp.Success {
		resp.Error = n.Key
	}
	c.JSON(status, resp)
}

func parseStage(c *gin.Context) (workflow.Stage, bool) {
	stage, err := workflow.ParseStage(c.Param("stage"))
	if err != nil {
		c.JSON(http.StatusNotFound, Response{
			Success: false,
			Error:   fmt.Sprintf("unknown stage %q", c.Param("stage")),
		})
		return "", false
	}
	return stage, true
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	status := http.StatusOK
	if h.health != nil {
		ok, details := h.health(c.Request.Context())
		resp.Components = details
		if !ok {
			resp.Status = "unhealthy"
			status = http.StatusServiceUnavailable
		}
	}

	c.JSON(status, Response{
		Success: status == http.StatusOK,
		Data:    resp,
	})
}

// ListVouchers handles GET /api/vouchers
func (h *Handlers) ListVouchers(c *gin.Context) {
	vouchers, err := h.services.Store.ListAll(c.Request.Context())
	if err != nil {
		h.fail(c, err, "")
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: nonNil(vouchers)})
}

// ListClosedVouchers handles GET /api/vouchers/closed
func (h *Handlers) ListClosedVouchers(c *gin.Context) {
	vouchers, err := h.services.Store.ListClosed(c.Request.Context())
	if err != nil {
		h.fail(c, err, "")
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: nonNil(vouchers)})
}

// GetVoucher handles GET /api/vouchers/:number
func (h *Handlers) GetVoucher(c *gin.Context) {
	number := c.Param("number")
	v, err := h.services.Store.GetByNumber(c.Request.Context(), number)
	if err != nil {
		h.fail(c, err, number)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: v})
}

// ExportRegister handles GET /api/vouchers/export.
// With ?save=true the workbook is written to the export directory instead.
func (h *Handlers) ExportRegister(c *gin.Context) {
	ctx := c.Request.Context()

	if cvt.Bool(c.Query("save")) {
		name := c.Query("name")
		if name != "" {
			name = filepath.Base(name)
		}
		path, err := h.services.Export.SaveRegister(ctx, name)
		if err != nil {
			h.fail(c, err, "")
			return
		}
		h.logger.Info("Register saved", "path", path)
		c.JSON(http.StatusOK, Response{Success: true, Data: gin.H{"path": path}})
		return
	}

	data, err := h.services.Export.RegisterXLSX(ctx)
	if err != nil {
		h.fail(c, err, "")
		return
	}
	filename := fmt.Sprintf("vouchers-%s.xlsx", time.Now().Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}

// CreateVoucher handles POST /api/vouchers (the entry form)
func (h *Handlers) CreateVoucher(c *gin.Context) {
	actor, _ := actorFrom(c)

	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxFormBytes))
	if err != nil {
		h.fail(c, entity.NewValidationError("", "unreadable request body"), "")
		return
	}

	out := h.services.Stages.Submit(c.Request.Context(), raw, actor)
	if out.Notice.Kind == entity.NoticeSuccess {
		h.logger.Info("Voucher submitted", "voucher_number", out.Voucher.VoucherNumber, "user_pin", actor.PIN)
		c.JSON(http.StatusCreated, Response{Success: true, Data: out.Voucher, Notice: &out.Notice})
		return
	}
	h.respondNotice(c, out.Notice, nil)
}

// StageQueue handles GET /api/stages/:stage/queue
func (h *Handlers) StageQueue(c *gin.Context) {
	stage, ok := parseStage(c)
	if !ok {
		return
	}
	vouchers, err := h.services.Stages.Queue(c.Request.Context(), stage)
	if err != nil {
		h.fail(c, err, "")
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: nonNil(vouchers)})
}

// StageDetail handles GET /api/stages/:stage/vouchers/:number.
// Types a stage cannot render still return 200 with the fallback view.
func (h *Handlers) StageDetail(c *gin.Context) {
	stage, ok := parseStage(c)
	if !ok {
		return
	}
	number := c.Param("number")

	detail, notice := h.services.Stages.Detail(c.Request.Context(), stage, number)
	if detail == nil {
		h.respondNotice(c, *notice, nil)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: detail, Notice: notice})
}

// StageDecision handles POST /api/stages/:stage/vouchers/:number/decision
func (h *Handlers) StageDecision(c *gin.Context) {
	stage, ok := parseStage(c)
	if !ok {
		return
	}
	number := c.Param("number")
	actor, _ := actorFrom(c)

	var req decisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, entity.NewValidationError("", "invalid decision payload: %v", err), number)
		return
	}
	d, err := req.toDecision()
	if err != nil {
		h.fail(c, err, number)
		return
	}

	out := h.services.Stages.Decide(c.Request.Context(), stage, number, d, actor)
	if out.Notice.Kind == entity.NoticeSuccess {
		h.logger.Info("Stage decision applied",
			"stage", string(stage),
			"voucher_number", number,
			"action", d.Action,
			"status", string(out.Voucher.Status),
			"user_pin", actor.PIN,
		)
	}
	h.respondNotice(c, out.Notice, out.Voucher)
}

// Notifications handles GET /api/notifications?limit=N for the acting user
func (h *Handlers) Notifications(c *gin.Context) {
	actor, _ := actorFrom(c)
	limit := cvt.Int(c.Query("limit"))
	if limit < 0 {
		limit = 0
	}
	feed := h.services.Notifications.Feed(c.Request.Context(), actor.PIN, limit)
	c.JSON(http.StatusOK, Response{Success: true, Data: nonNil(feed)})
}

// nonNil keeps empty lists encoded as [] rather than null
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
