package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/garyjia/voucher-workflow/internal/application/dispatcher"
	"github.com/garyjia/voucher-workflow/internal/application/port"
	"github.com/garyjia/voucher-workflow/internal/application/workflow"
	"github.com/garyjia/voucher-workflow/internal/domain/entity"
	"github.com/garyjia/voucher-workflow/internal/domain/event"
)

// maxNumberAttempts bounds retries when another writer took the number first
const maxNumberAttempts = 3

// VoucherStore is the single owner of voucher records
type VoucherStore interface {
	// Add numbers, stamps and persists a new voucher in submitted status
	Add(ctx context.Context, in *entity.VoucherInput, creator entity.UserInfo) (*entity.Voucher, error)

	// ListAll returns active vouchers in insertion order
	ListAll(ctx context.Context) ([]*entity.Voucher, error)

	// ListClosed returns rejected, reverted and forwarded vouchers in insertion order
	ListClosed(ctx context.Context) ([]*entity.Voucher, error)

	// ListByStatus returns vouchers in any of the given statuses
	ListByStatus(ctx context.Context, statuses ...entity.Status) ([]*entity.Voucher, error)

	// GetByNumber returns the voucher or *entity.NotFoundError
	GetByNumber(ctx context.Context, voucherNumber string) (*entity.Voucher, error)

	// UpdateStatus runs a stage decision through the transition engine and persists it
	// with compare-and-swap on the voucher version
	UpdateStatus(ctx context.Context, voucherNumber string, req workflow.TransitionRequest) (*workflow.Result, error)
}

type voucherStoreImpl struct {
	repo       port.VoucherRepository
	txManager  port.TransactionManager
	engine     workflow.Engine
	dispatcher dispatcher.Dispatcher
	clock      port.Clock
	logger     Logger
}

// StoreOption configures the voucher store
type StoreOption func(*voucherStoreImpl)

// WithStoreClock sets the time source for submission dates
func WithStoreClock(clock port.Clock) StoreOption {
	return func(s *voucherStoreImpl) {
		s.clock = clock
	}
}

// WithEventDispatcher publishes voucher events after each committed change
func WithEventDispatcher(d dispatcher.Dispatcher) StoreOption {
	return func(s *voucherStoreImpl) {
		s.dispatcher = d
	}
}

// NewVoucherStore creates a new VoucherStore
func NewVoucherStore(
	repo port.VoucherRepository,
	txManager port.TransactionManager,
	engine workflow.Engine,
	logger Logger,
	opts ...StoreOption,
) VoucherStore {
	if logger == nil {
		logger = nopLogger{}
	}
	s := &voucherStoreImpl{
		repo:      repo,
		txManager: txManager,
		engine:    engine,
		clock:     port.SystemClock{},
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *voucherStoreImpl) Add(ctx context.Context, in *entity.VoucherInput, creator entity.UserInfo) (*entity.Voucher, error) {
	if err := validateInput(in, creator); err != nil {
		return nil, err
	}
	amount, err := entity.NormalizeAmount(in.Amount)
	if err != nil {
		return nil, entity.NewValidationError("amount", "%v", err)
	}

	var created *entity.Voucher
	for attempt := 1; attempt <= maxNumberAttempts; attempt++ {
		err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
			last, err := s.repo.Last(txCtx)
			if err != nil {
				return fmt.Errorf("read last voucher: %w", err)
			}
			number, err := entity.NextVoucherNumber(last, in.Type)
			if err != nil {
				return err
			}

			now := s.clock.Now()
			v := &entity.Voucher{
				VoucherNumber:  number,
				SubmissionDate: now.Format(entity.SubmissionDateLayout),
				Organization:   strings.TrimSpace(in.Organization),
				Branch:         strings.TrimSpace(in.Branch),
				Type:           in.Type,
				Amount:         amount,
				Status:         entity.StatusSubmitted,
				CreatorInfo:    creator,
				UpdatedAt:      now,
				Version:        1,
				Variant:        in.Variant,
			}
			if err := s.repo.Add(txCtx, v); err != nil {
				return err
			}
			created = v
			return nil
		})
		if !errors.Is(err, entity.ErrDuplicateNumber) {
			break
		}
		s.logger.Info("Voucher number taken, retrying", "attempt", attempt, "type", in.Type)
	}
	if err != nil {
		s.logger.Error("Failed to add voucher", "error", err, "type", in.Type)
		return nil, err
	}

	s.logger.Info("Voucher submitted",
		"voucher_number", created.VoucherNumber,
		"type", created.Type,
		"amount", created.Amount,
		"creator_pin", creator.PIN,
	)
	s.publish(ctx, event.NewEvent(event.TypeVoucherSubmitted, created.VoucherNumber, map[string]interface{}{
		event.KeyVoucherType: string(created.Type),
		event.KeyAmount:      created.Amount,
		event.KeyCreatorPIN:  creator.PIN,
		event.KeyNewStatus:   string(created.Status),
	}))

	return created, nil
}

func validateInput(in *entity.VoucherInput, creator entity.UserInfo) error {
	if in == nil {
		return entity.NewValidationError("", "voucher input is required")
	}
	if !in.Type.IsValid() {
		return entity.NewValidationError("type", "unknown voucher type %q", in.Type)
	}
	if !in.Type.HasEntryForm() {
		return &entity.UnsupportedVariantError{Type: in.Type, Context: "entry form"}
	}
	if creator.IsZero() {
		return entity.NewValidationError("creatorInfo", "submitting user is required")
	}
	if strings.TrimSpace(in.Organization) == "" {
		return entity.NewValidationError("organization", "organization is required")
	}
	if strings.TrimSpace(in.Branch) == "" {
		return entity.NewValidationError("branch", "branch is required")
	}
	if in.Variant == nil {
		return entity.NewValidationError("variant", "%s details are required", in.Type)
	}
	for _, k := range in.Variant.Kinds() {
		if k == in.Type {
			return nil
		}
	}
	return entity.NewValidationError("variant", "details do not describe a %s", in.Type)
}

func (s *voucherStoreImpl) ListAll(ctx context.Context) ([]*entity.Voucher, error) {
	return s.repo.ListAll(ctx)
}

func (s *voucherStoreImpl) ListClosed(ctx context.Context) ([]*entity.Voucher, error) {
	return s.repo.ListByStatus(ctx, entity.StatusRejected, entity.StatusReverted, entity.StatusForwarded)
}

func (s *voucherStoreImpl) ListByStatus(ctx context.Context, statuses ...entity.Status) ([]*entity.Voucher, error) {
	return s.repo.ListByStatus(ctx, statuses...)
}

func (s *voucherStoreImpl) GetByNumber(ctx context.Context, voucherNumber string) (*entity.Voucher, error) {
	return s.repo.GetByNumber(ctx, strings.TrimSpace(voucherNumber))
}

func (s *voucherStoreImpl) UpdateStatus(ctx context.Context, voucherNumber string, req workflow.TransitionRequest) (*workflow.Result, error) {
	var res *workflow.Result
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		current, err := s.repo.GetByNumber(txCtx, strings.TrimSpace(voucherNumber))
		if err != nil {
			return err
		}

		res, err = s.engine.Apply(txCtx, current, req)
		if err != nil {
			return err
		}

		res.Voucher.Version = current.Version + 1
		return s.repo.UpdateByNumber(txCtx, res.Voucher, current.Version)
	})
	if err != nil {
		s.logger.Error("Status update rejected",
			"voucher_number", voucherNumber,
			"stage", req.Stage,
			"action", req.Action,
			"error", err,
		)
		return nil, err
	}

	v := res.Voucher
	s.logger.Info("Voucher status changed",
		"voucher_number", v.VoucherNumber,
		"from", res.Transition.From,
		"to", res.Transition.To,
		"stage", req.Stage,
		"actor_pin", req.Actor.PIN,
	)

	payload := map[string]interface{}{
		event.KeyVoucherType:    string(v.Type),
		event.KeyPreviousStatus: res.Transition.From.String(),
		event.KeyNewStatus:      res.Transition.To.String(),
		event.KeyAction:         string(req.Action),
		event.KeyStage:          string(req.Stage),
		event.KeyActorPIN:       req.Actor.PIN,
		event.KeyActorName:      req.Actor.Name,
		event.KeyCreatorPIN:     v.CreatorInfo.PIN,
		event.KeyAmount:         v.Amount,
	}
	if v.ClosingReason != "" {
		payload[event.KeyReason] = v.ClosingReason
	}
	changed := event.NewEvent(event.TypeStatusChanged, v.VoucherNumber, payload)
	s.publish(ctx, changed)
	switch {
	case res.Closed():
		s.publish(ctx, event.NewEventWithCorrelation(event.TypeVoucherClosed, v.VoucherNumber, payload, changed.CorrelationID))
	case v.Status == entity.StatusPaid:
		s.publish(ctx, event.NewEventWithCorrelation(event.TypeVoucherPaid, v.VoucherNumber, payload, changed.CorrelationID))
	}

	return res, nil
}

// publish runs after commit; subscriber failures never undo a stored change
func (s *voucherStoreImpl) publish(ctx context.Context, evt *event.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Dispatch(ctx, evt); err != nil {
		s.logger.Error("Event subscribers failed", "event_type", evt.Type, "voucher_number", evt.VoucherNumber, "error", err)
	}
}
