// Package redisstore keeps the voucher list as a single JSON array under one
// Redis key, guarded by a distributed lock so several server instances can
// share it.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/garyjia/voucher-workflow/internal/application/port"
	"github.com/garyjia/voucher-workflow/internal/domain/entity"
)

const (
	DefaultKey = "vouchers"
	// DefaultLockTTL is the lease length. Every list write refreshes the lease
	// first and fails with ErrLockExpired if it was lost in the meantime.
	DefaultLockTTL = 10 * time.Second
)

var (
	// ErrLockNotObtained is returned when another writer held the lock for too long
	ErrLockNotObtained = errors.New("voucher list is locked by another writer")
	// ErrLockExpired is returned when the lease ran out before a write
	ErrLockExpired = errors.New("voucher list lock expired before write")
)

type contextKey string

const leaseKey contextKey = "vouchers_lease"

// lease is the part of *redislock.Lock needed to keep the list lock alive
type lease interface {
	Refresh(ctx context.Context, ttl time.Duration, opt *redislock.Options) error
}

// Config holds store configuration
type Config struct {
	Key     string
	LockTTL time.Duration
	// LockWait bounds how long WithTransaction waits for the lock
	LockWait time.Duration
}

// Store implements port.VoucherRepository and port.TransactionManager on Redis
type Store struct {
	rdb    *redis.Client
	locker *redislock.Client
	cfg    Config
	logger *zap.Logger
}

// New creates a Redis-backed voucher store
func New(rdb *redis.Client, cfg Config, logger *zap.Logger) *Store {
	if cfg.Key == "" {
		cfg.Key = DefaultKey
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = DefaultLockTTL
	}
	if cfg.LockWait <= 0 {
		cfg.LockWait = 5 * time.Second
	}
	return &Store{
		rdb:    rdb,
		locker: redislock.New(rdb),
		cfg:    cfg,
		logger: logger,
	}
}

// Ping checks the connection
func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// WithTransaction holds the list lock while fn runs. Nested calls reuse it.
// Writes are not rolled back on error; each repository write replaces the
// whole list, so fn should write last.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if held(ctx) {
		return fn(ctx)
	}

	lock, err := s.obtain(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			s.logger.Error("Failed to release voucher lock", zap.Error(err))
		}
	}()

	return fn(context.WithValue(ctx, leaseKey, lease(lock)))
}

// renew extends the lease held in ctx before a write
func (s *Store) renew(ctx context.Context) error {
	l := leaseFrom(ctx)
	if l == nil {
		return fmt.Errorf("%w: no lease held", ErrLockExpired)
	}
	err := l.Refresh(ctx, s.cfg.LockTTL, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		s.logger.Error("Voucher lock lease lost before write", zap.String("key", s.lockKey()))
		return ErrLockExpired
	}
	if err != nil {
		return fmt.Errorf("failed to refresh voucher lock: %w", err)
	}
	return nil
}

func (s *Store) obtain(ctx context.Context) (*redislock.Lock, error) {
	retries := int(s.cfg.LockWait / (50 * time.Millisecond))
	lock, err := s.locker.Obtain(ctx, s.lockKey(), s.cfg.LockTTL, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(50*time.Millisecond), retries),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		s.logger.Error("Could not obtain voucher lock", zap.String("key", s.lockKey()))
		return nil, ErrLockNotObtained
	}
	if err != nil {
		return nil, fmt.Errorf("failed to obtain voucher lock: %w", err)
	}
	return lock, nil
}

func (s *Store) lockKey() string {
	return s.cfg.Key + ":lock"
}

func leaseFrom(ctx context.Context) lease {
	l, _ := ctx.Value(leaseKey).(lease)
	return l
}

func held(ctx context.Context) bool {
	return leaseFrom(ctx) != nil
}

// locked runs fn under the list lock unless the caller already holds it
func (s *Store) locked(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.WithTransaction(ctx, fn)
}

func (s *Store) load(ctx context.Context) (voucherList, error) {
	raw, err := s.rdb.Get(ctx, s.cfg.Key).Bytes()
	if errors.Is(err, redis.Nil) {
		return voucherList{}, nil
	}
	if err != nil {
		s.logger.Error("Failed to read voucher list", zap.Error(err))
		return nil, fmt.Errorf("failed to read voucher list: %w", err)
	}
	var list voucherList
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("failed to decode voucher list: %w", err)
	}
	return list, nil
}

func (s *Store) save(ctx context.Context, list voucherList) error {
	raw, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("failed to encode voucher list: %w", err)
	}
	if err := s.renew(ctx); err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, s.cfg.Key, raw, 0).Err(); err != nil {
		s.logger.Error("Failed to write voucher list", zap.Error(err))
		return fmt.Errorf("failed to write voucher list: %w", err)
	}
	return nil
}

func (s *Store) Last(ctx context.Context) (*entity.Voucher, error) {
	list, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return list.last(), nil
}

func (s *Store) Add(ctx context.Context, v *entity.Voucher) error {
	return s.locked(ctx, func(ctx context.Context) error {
		list, err := s.load(ctx)
		if err != nil {
			return err
		}
		list, err = list.add(v)
		if err != nil {
			return err
		}
		return s.save(ctx, list)
	})
}

func (s *Store) GetByNumber(ctx context.Context, number string) (*entity.Voucher, error) {
	list, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return list.get(number)
}

func (s *Store) UpdateByNumber(ctx context.Context, v *entity.Voucher, expectedVersion int64) error {
	return s.locked(ctx, func(ctx context.Context) error {
		list, err := s.load(ctx)
		if err != nil {
			return err
		}
		if err := list.replace(v, expectedVersion); err != nil {
			return err
		}
		return s.save(ctx, list)
	})
}

func (s *Store) ListAll(ctx context.Context) ([]*entity.Voucher, error) {
	list, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return list.filter(func(v *entity.Voucher) bool { return v.IsActive() }), nil
}

func (s *Store) ListByStatus(ctx context.Context, statuses ...entity.Status) ([]*entity.Voucher, error) {
	list, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return list.filter(func(v *entity.Voucher) bool {
		for _, st := range statuses {
			if v.Status == st {
				return true
			}
		}
		return false
	}), nil
}

var (
	_ port.VoucherRepository  = (*Store)(nil)
	_ port.TransactionManager = (*Store)(nil)
)
