package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/garyjia/voucher-workflow/internal/application/form"
	"github.com/garyjia/voucher-workflow/internal/application/view"
	"github.com/garyjia/voucher-workflow/internal/application/workflow"
	"github.com/garyjia/voucher-workflow/internal/domain/entity"
	domainwf "github.com/garyjia/voucher-workflow/internal/domain/workflow"
)

// Decision is what a stage user submits for one voucher
type Decision struct {
	Action          string `json:"action" validate:"required,oneof=approve reject revert forward"`
	Reason          string `json:"reason" validate:"max=500"`
	CashAmount      string `json:"cashAmount" validate:"omitempty,numeric"`
	PettyCashAmount string `json:"pettyCashAmount" validate:"omitempty,numeric"`
	PaymentBranch   string `json:"paymentBranch" validate:"max=120"`
	HeadOfAccount   string `json:"headOfAccount" validate:"max=120"`
	Account         string `json:"account" validate:"max=120"`
}

// Outcome is the result of a stage operation. Notice is always set.
type Outcome struct {
	Voucher *entity.Voucher `json:"voucher,omitempty"`
	Notice  entity.Notice   `json:"notice"`
}

// StageService is the workflow surface used by the stage views
type StageService interface {
	// Queue lists the vouchers a stage works on
	Queue(ctx context.Context, stage workflow.Stage) ([]*entity.Voucher, error)

	// Detail renders one voucher for a stage
	Detail(ctx context.Context, stage workflow.Stage, voucherNumber string) (*view.Detail, *entity.Notice)

	// Submit validates an entry form and adds the voucher
	Submit(ctx context.Context, raw []byte, actor entity.UserInfo) Outcome

	// Decide applies a stage decision. Errors are reported through the notice.
	Decide(ctx context.Context, stage workflow.Stage, voucherNumber string, d Decision, actor entity.UserInfo) Outcome
}

type stageServiceImpl struct {
	store    VoucherStore
	stages   workflow.StageTable
	forms    *form.Registry
	validate *validator.Validate
	logger   Logger
}

// NewStageService creates a new StageService
func NewStageService(store VoucherStore, stages workflow.StageTable, forms *form.Registry, logger Logger) StageService {
	if logger == nil {
		logger = nopLogger{}
	}
	return &stageServiceImpl{
		store:    store,
		stages:   stages,
		forms:    forms,
		validate: validator.New(),
		logger:   logger,
	}
}

func (s *stageServiceImpl) Queue(ctx context.Context, stage workflow.Stage) ([]*entity.Voucher, error) {
	cfg, err := s.stages.Get(stage)
	if err != nil {
		return nil, err
	}

	var all []*entity.Voucher
	if len(cfg.RequiredPriorStatus) == 0 {
		all, err = s.store.ListAll(ctx)
	} else {
		all, err = s.store.ListByStatus(ctx, cfg.RequiredPriorStatus...)
	}
	if err != nil {
		return nil, err
	}

	queue := make([]*entity.Voucher, 0, len(all))
	for _, v := range all {
		if cfg.Admits(v.Status) && !cfg.Excludes(v.Type) {
			queue = append(queue, v)
		}
	}
	return queue, nil
}

func (s *stageServiceImpl) Detail(ctx context.Context, stage workflow.Stage, voucherNumber string) (*view.Detail, *entity.Notice) {
	cfg, err := s.stages.Get(stage)
	if err != nil {
		n := NoticeFor(err, voucherNumber)
		return nil, &n
	}
	v, err := s.store.GetByNumber(ctx, voucherNumber)
	if err != nil {
		n := NoticeFor(err, voucherNumber)
		return nil, &n
	}
	d := view.RenderDetail(cfg, v)
	return &d, d.Notice
}

func (s *stageServiceImpl) Submit(ctx context.Context, raw []byte, actor entity.UserInfo) Outcome {
	in, err := s.forms.Decode(raw)
	if err != nil {
		return Outcome{Notice: NoticeFor(err, "")}
	}
	v, err := s.store.Add(ctx, in, actor)
	if err != nil {
		return Outcome{Notice: NoticeFor(err, "")}
	}
	return Outcome{
		Voucher: v,
		Notice: entity.Notice{
			Kind:          entity.NoticeSuccess,
			Key:           entity.NoticeKeyVoucherSubmitted,
			VoucherNumber: v.VoucherNumber,
			Params:        map[string]string{"voucherNumber": v.VoucherNumber},
			CreatedAt:     v.UpdatedAt,
		},
	}
}

func (s *stageServiceImpl) Decide(ctx context.Context, stage workflow.Stage, voucherNumber string, d Decision, actor entity.UserInfo) Outcome {
	d.Action = strings.ToLower(strings.TrimSpace(d.Action))
	if err := s.validate.Struct(d); err != nil {
		return Outcome{Notice: NoticeFor(decisionError(err), voucherNumber)}
	}
	if actor.IsZero() {
		return Outcome{Notice: NoticeFor(entity.NewValidationError("actor", "acting user is required"), voucherNumber)}
	}

	req := workflow.TransitionRequest{
		Stage:  stage,
		Action: workflow.Action(d.Action),
		Actor:  actor,
		Reason: d.Reason,
	}
	if d.CashAmount != "" || d.PettyCashAmount != "" || d.PaymentBranch != "" || d.HeadOfAccount != "" || d.Account != "" {
		req.Payment = &workflow.PaymentDetails{
			CashAmount:      d.CashAmount,
			PettyCashAmount: d.PettyCashAmount,
			PaymentBranch:   d.PaymentBranch,
			HeadOfAccount:   d.HeadOfAccount,
			Account:         d.Account,
		}
	}

	res, err := s.store.UpdateStatus(ctx, voucherNumber, req)
	if err != nil {
		return Outcome{Notice: NoticeFor(err, voucherNumber)}
	}

	v := res.Voucher
	return Outcome{
		Voucher: v,
		Notice: entity.Notice{
			Kind:          entity.NoticeSuccess,
			Key:           successKey(v.Status),
			VoucherNumber: v.VoucherNumber,
			Params:        map[string]string{"voucherNumber": v.VoucherNumber, "status": string(v.Status)},
			CreatedAt:     v.UpdatedAt,
		},
	}
}

func successKey(s entity.Status) string {
	switch s {
	case entity.StatusPaid:
		return entity.NoticeKeyVoucherPaid
	case entity.StatusRejected:
		return entity.NoticeKeyVoucherRejected
	case entity.StatusReverted:
		return entity.NoticeKeyVoucherReverted
	case entity.StatusForwarded:
		return entity.NoticeKeyVoucherForwarded
	default:
		return entity.NoticeKeyVoucherApproved
	}
}

// decisionError reports the first failed rule of a decision payload
func decisionError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return entity.NewValidationError("", "%v", err)
	}
	fe := verrs[0]
	field := strings.ToLower(fe.Field()[:1]) + fe.Field()[1:]
	if fe.Tag() == "required" {
		return entity.NewValidationError(field, "%s is required", field)
	}
	return entity.NewValidationError(field, "failed %s rule", fe.Tag())
}

// NoticeFor converts an error into the message shown at the stage boundary
func NoticeFor(err error, voucherNumber string) entity.Notice {
	n := entity.Notice{VoucherNumber: voucherNumber, Detail: err.Error(), CreatedAt: time.Now()}

	var ve *entity.ValidationError
	var nf *entity.NotFoundError
	var ue *entity.UnsupportedVariantError
	switch {
	case errors.As(err, &ve):
		n.Kind = entity.NoticeValidation
		n.Field = ve.Field
		switch {
		case ve.Key != "":
			n.Key = ve.Key
		case strings.Contains(ve.Message, "required") || strings.HasPrefix(ve.Message, "missing properties"):
			n.Key = entity.NoticeKeyFieldRequired
		default:
			n.Key = entity.NoticeKeyFieldInvalid
		}
	case errors.As(err, &nf):
		n.Kind = entity.NoticeNotFound
		n.Key = entity.NoticeKeyVoucherNotFound
		n.VoucherNumber = nf.VoucherNumber
	case errors.As(err, &ue):
		n.Kind = entity.NoticeUnsupported
		n.Key = entity.NoticeKeyNotSupported
		n.Params = map[string]string{"type": string(ue.Type), "context": ue.Context}
	case errors.Is(err, entity.ErrConcurrentUpdate):
		n.Kind = entity.NoticeConflict
		n.Key = entity.NoticeKeyConflict
	case errors.Is(err, domainwf.ErrInvalidTransition), errors.Is(err, domainwf.ErrGuardFailed):
		n.Kind = entity.NoticeConflict
		n.Key = entity.NoticeKeyInvalidAction
	default:
		n.Kind = entity.NoticeError
		n.Key = entity.NoticeKeyInternal
	}
	return n
}
