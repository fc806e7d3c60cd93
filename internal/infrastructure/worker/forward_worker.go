package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/voucher-workflow/internal/application/workflow"
	"github.com/garyjia/voucher-workflow/internal/domain/entity"
)

// SystemActor is recorded on vouchers the forward worker moves
var SystemActor = entity.UserInfo{Name: "Auto Forward", PIN: "system", Designation: "system"}

// VoucherSource is the part of the voucher store the forward worker needs
type VoucherSource interface {
	ListByStatus(ctx context.Context, statuses ...entity.Status) ([]*entity.Voucher, error)
	UpdateStatus(ctx context.Context, voucherNumber string, req workflow.TransitionRequest) (*workflow.Result, error)
}

// ForwardWorkerConfig holds configuration for the forward worker
type ForwardWorkerConfig struct {
	PollInterval time.Duration
	BatchSize    int
	Reason       string
}

// DefaultForwardWorkerConfig returns default configuration
func DefaultForwardWorkerConfig() ForwardWorkerConfig {
	return ForwardWorkerConfig{
		PollInterval: time.Minute,
		BatchSize:    20,
		Reason:       "forwarded automatically after check approval",
	}
}

// ForwardWorker moves approved_check vouchers on to forwarded through the
// Check-and-Approve stage, as if a checker had pressed forward
type ForwardWorker struct {
	config ForwardWorkerConfig
	source VoucherSource
	logger *zap.Logger

	mu             sync.RWMutex
	cancel         context.CancelFunc
	done           chan struct{}
	isRunning      bool
	forwardedCount int
	failedCount    int
	lastError      error
}

// NewForwardWorker creates a new forward worker
func NewForwardWorker(config ForwardWorkerConfig, source VoucherSource, logger *zap.Logger) *ForwardWorker {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultForwardWorkerConfig().PollInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultForwardWorkerConfig().BatchSize
	}
	return &ForwardWorker{config: config, source: source, logger: logger}
}

func (w *ForwardWorker) Name() string {
	return "ForwardWorker"
}

// Start begins the polling loop
func (w *ForwardWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.isRunning {
		return fmt.Errorf("forward worker already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	w.isRunning = true

	w.logger.Info("ForwardWorker started",
		zap.Duration("poll_interval", w.config.PollInterval),
		zap.Int("batch_size", w.config.BatchSize))

	go w.pollLoop(runCtx, w.done)
	return nil
}

// Stop cancels the loop and waits for the current pass to finish
func (w *ForwardWorker) Stop() error {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return nil
	}
	w.isRunning = false
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	cancel()
	<-done

	forwarded, failed, _ := w.Stats()
	w.logger.Info("ForwardWorker stopped",
		zap.Int("forwarded_count", forwarded),
		zap.Int("failed_count", failed))
	return nil
}

func (w *ForwardWorker) pollLoop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.RunOnce(ctx); err != nil {
				w.logger.Error("Forward pass failed", zap.Error(err))
			}
		}
	}
}

// RunOnce forwards up to BatchSize vouchers and returns how many moved.
// A voucher another user changed meanwhile is skipped, not counted as a failure.
func (w *ForwardWorker) RunOnce(ctx context.Context) (int, error) {
	pending, err := w.source.ListByStatus(ctx, entity.StatusApprovedCheck)
	if err != nil {
		w.recordError(err)
		return 0, fmt.Errorf("list approved_check vouchers: %w", err)
	}

	forwarded := 0
	for i, v := range pending {
		if i >= w.config.BatchSize || ctx.Err() != nil {
			break
		}
		_, err := w.source.UpdateStatus(ctx, v.VoucherNumber, workflow.TransitionRequest{
			Stage:  workflow.StageCheckApprove,
			Action: workflow.ActionForward,
			Actor:  SystemActor,
			Reason: w.config.Reason,
		})
		switch {
		case err == nil:
			forwarded++
			w.logger.Info("Voucher forwarded", zap.String("voucher_number", v.VoucherNumber))
		case errors.Is(err, entity.ErrConcurrentUpdate):
			w.logger.Info("Voucher changed before forward, skipping", zap.String("voucher_number", v.VoucherNumber))
		default:
			w.recordError(err)
			w.logger.Error("Failed to forward voucher", zap.String("voucher_number", v.VoucherNumber), zap.Error(err))
		}
	}

	w.mu.Lock()
	w.forwardedCount += forwarded
	w.mu.Unlock()
	return forwarded, nil
}

func (w *ForwardWorker) recordError(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.failedCount++
	w.lastError = err
}

// Stats returns counters since start
func (w *ForwardWorker) Stats() (forwarded, failed int, lastError error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.forwardedCount, w.failedCount, w.lastError
}
