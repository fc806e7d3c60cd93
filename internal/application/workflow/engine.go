package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/garyjia/voucher-workflow/internal/application/port"
	"github.com/garyjia/voucher-workflow/internal/domain/entity"
	domainwf "github.com/garyjia/voucher-workflow/internal/domain/workflow"
)

// PaymentDetails is the input captured at the payment and check stages
type PaymentDetails struct {
	CashAmount      string
	PettyCashAmount string
	PaymentBranch   string
	HeadOfAccount   string
	Account         string
}

// TransitionRequest is one stage decision on one voucher
type TransitionRequest struct {
	Stage   Stage
	Action  Action
	Actor   entity.UserInfo
	Reason  string
	Payment *PaymentDetails
}

// Result is the successful outcome of Apply
type Result struct {
	Voucher    *entity.Voucher
	Transition domainwf.Transition
}

// Closed reports whether the voucher left the active set
func (r *Result) Closed() bool {
	return r.Transition.To.Status().IsClosed()
}

// Engine validates and applies stage decisions
type Engine interface {
	// Apply returns an updated copy of v or a typed error. v itself is never modified.
	Apply(ctx context.Context, v *entity.Voucher, req TransitionRequest) (*Result, error)

	// Stages returns the stage configuration in use
	Stages() StageTable
}

type engine struct {
	stages StageTable
	clock  port.Clock
}

// EngineOption configures the engine
type EngineOption func(*engine)

// WithStages replaces the default stage table
func WithStages(stages StageTable) EngineOption {
	return func(e *engine) {
		e.stages = stages
	}
}

// WithClock sets the time source used for closedAt and updatedAt
func WithClock(clock port.Clock) EngineOption {
	return func(e *engine) {
		e.clock = clock
	}
}

// NewEngine creates a transition engine
func NewEngine(opts ...EngineOption) Engine {
	e := &engine{
		stages: DefaultStages(),
		clock:  port.SystemClock{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *engine) Stages() StageTable {
	return e.stages
}

func (e *engine) Apply(ctx context.Context, v *entity.Voucher, req TransitionRequest) (*Result, error) {
	if v == nil {
		return nil, fmt.Errorf("voucher cannot be nil")
	}

	stage, err := e.stages.Get(req.Stage)
	if err != nil {
		return nil, err
	}
	trigger, ok := req.Action.Trigger()
	if !ok {
		return nil, entity.NewValidationError("action", "unknown action %q", req.Action)
	}
	reason := strings.TrimSpace(req.Reason)
	if trigger.RequiresReason() && reason == "" {
		return nil, &entity.ValidationError{
			Field:   "reason",
			Message: fmt.Sprintf("a reason is required to %s a voucher", req.Action),
			Key:     entity.NoticeKeyReasonRequired,
		}
	}

	if !stage.Admits(v.Status) {
		return nil, fmt.Errorf("%w: voucher %s is %s, %s stage accepts %v",
			domainwf.ErrInvalidTransition, v.VoucherNumber, v.Status, stage.Stage, stage.RequiredPriorStatus)
	}
	if !stage.Allows(req.Action) {
		return nil, fmt.Errorf("%w: %s stage cannot %s", domainwf.ErrInvalidTransition, stage.Stage, req.Action)
	}
	if stage.Excludes(v.Type) {
		return nil, &entity.UnsupportedVariantError{Type: v.Type, Context: string(stage.Stage) + " stage"}
	}

	next := v.Clone()
	var settlement *PaymentDetails
	if trigger == domainwf.TriggerApprove && stage.RequiresPayment && v.Status == entity.StatusApproved1st {
		settlement, err = settle(v, stage, req.Payment)
		if err != nil {
			return nil, err
		}
	}

	now := e.clock.Now()
	machine, err := BuildVoucherStateMachine(next, func(ctx context.Context, t domainwf.Transition) {
		applySideEffects(next, t, req.Actor, reason, settlement)
		next.UpdatedAt = now
		if t.To.Status().IsClosed() {
			closedAt := now
			next.ClosedAt = &closedAt
		}
	})
	if err != nil {
		return nil, err
	}

	t, err := machine.Fire(ctx, trigger)
	if err != nil {
		return nil, err
	}

	return &Result{Voucher: next, Transition: t}, nil
}

// settle validates payment input for an approve at a paying stage and returns
// the normalized values to attach
func settle(v *entity.Voucher, stage StageConfig, p *PaymentDetails) (*PaymentDetails, error) {
	if v.Type == entity.TypePettyCashSlip {
		// Paid in full from petty cash
		out := &PaymentDetails{CashAmount: "0.00", PettyCashAmount: v.Amount}
		if p != nil {
			out.PaymentBranch = strings.TrimSpace(p.PaymentBranch)
		}
		return out, nil
	}

	if p == nil {
		return nil, entity.NewValidationError("paymentBranch", "payment details are required")
	}
	out := &PaymentDetails{
		PaymentBranch: strings.TrimSpace(p.PaymentBranch),
		HeadOfAccount: strings.TrimSpace(p.HeadOfAccount),
		Account:       strings.TrimSpace(p.Account),
	}
	if out.PaymentBranch == "" {
		return nil, entity.NewValidationError("paymentBranch", "payment branch is required")
	}
	if stage.RequiresAccounting {
		if out.HeadOfAccount == "" {
			return nil, entity.NewValidationError("headOfAccount", "head of account is required")
		}
		if out.Account == "" {
			return nil, entity.NewValidationError("account", "account is required")
		}
	}

	cash, err := optionalAmount(p.CashAmount)
	if err != nil {
		return nil, entity.NewValidationError("cashAmount", "%v", err)
	}
	petty, err := optionalAmount(p.PettyCashAmount)
	if err != nil {
		return nil, entity.NewValidationError("pettyCashAmount", "%v", err)
	}
	// The split is summed at full precision, then rounded to the cent
	total := cash.Add(petty).StringFixed(2)
	if !entity.AmountsEqual(total, v.Amount) {
		return nil, &entity.ValidationError{
			Field:   "cashAmount",
			Message: fmt.Sprintf("cash %s + petty cash %s = %s does not match voucher amount %s", cash, petty, total, v.Amount),
			Key:     entity.NoticeKeyAmountMismatch,
		}
	}

	// Stored split always reconciles to the cent: petty cash takes the rounding remainder
	amount, err := entity.ParseAmount(v.Amount)
	if err != nil {
		return nil, entity.NewValidationError("amount", "%v", err)
	}
	cashFixed := cash.Round(2)
	if cashFixed.GreaterThan(amount) {
		cashFixed = amount
	}
	out.CashAmount = cashFixed.StringFixed(2)
	out.PettyCashAmount = amount.Sub(cashFixed).StringFixed(2)
	return out, nil
}

// optionalAmount treats a blank split as zero
func optionalAmount(raw string) (decimal.Decimal, error) {
	if strings.TrimSpace(raw) == "" {
		return decimal.Zero, nil
	}
	return entity.ParseAmount(raw)
}

func applySideEffects(v *entity.Voucher, t domainwf.Transition, actor entity.UserInfo, reason string, settlement *PaymentDetails) {
	v.Status = t.To.Status()

	if t.Trigger == domainwf.TriggerApprove && v.ApproverInfo.IsZero() {
		a := actor
		v.ApproverInfo = &a
	}
	if t.To == domainwf.StatePaid {
		p := actor
		v.PayerInfo = &p
	}
	if settlement != nil {
		v.CashAmount = settlement.CashAmount
		v.PettyCashAmount = settlement.PettyCashAmount
		v.PaymentBranch = settlement.PaymentBranch
		v.HeadOfAccount = settlement.HeadOfAccount
		v.Account = settlement.Account
	}
	if t.To.Status().IsClosed() {
		v.ClosingReason = reason
	}
}
