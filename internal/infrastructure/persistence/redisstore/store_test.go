package redisstore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/voucher-workflow/internal/domain/entity"
)

func voucher(number string, status entity.Status) *entity.Voucher {
	return &entity.Voucher{
		VoucherNumber: number,
		Type:          entity.TypePettyCashSlip,
		Amount:        "10.00",
		Status:        status,
		Version:       1,
		Variant:       entity.PettyCashDetails{Reason: "tea", ReconciliationDate: "10-03-2026"},
	}
}

func TestVoucherList(t *testing.T) {
	var l voucherList
	assert.Nil(t, l.last())

	l, err := l.add(voucher("PET-0001", entity.StatusSubmitted))
	require.NoError(t, err)
	l, err = l.add(voucher("PET-0002", entity.StatusRejected))
	require.NoError(t, err)
	_, err = l.add(voucher("PET-0001", entity.StatusSubmitted))
	assert.ErrorIs(t, err, entity.ErrDuplicateNumber)

	assert.Equal(t, "PET-0002", l.last().VoucherNumber)

	got, err := l.get("PET-0001")
	require.NoError(t, err)
	got.Status = entity.StatusApproved1st
	assert.Equal(t, entity.StatusSubmitted, l[0].Status, "get returns a copy")

	got.Version = 2
	require.NoError(t, l.replace(got, 1))
	assert.ErrorIs(t, l.replace(got, 1), entity.ErrConcurrentUpdate)
	assert.True(t, entity.IsNotFound(l.replace(voucher("PET-0404", entity.StatusSubmitted), 1)))

	active := l.filter(func(v *entity.Voucher) bool { return v.IsActive() })
	require.Len(t, active, 1)
	assert.Equal(t, entity.StatusApproved1st, active[0].Status)
}

type fakeLease struct {
	err error
	ttl time.Duration
}

func (f *fakeLease) Refresh(ctx context.Context, ttl time.Duration, opt *redislock.Options) error {
	f.ttl = ttl
	return f.err
}

func TestStore_RenewLease(t *testing.T) {
	s := New(nil, Config{LockTTL: 3 * time.Second}, zap.NewNop())

	ok := &fakeLease{}
	require.NoError(t, s.renew(context.WithValue(context.Background(), leaseKey, lease(ok))))
	assert.Equal(t, 3*time.Second, ok.ttl)

	lost := &fakeLease{err: redislock.ErrNotObtained}
	err := s.renew(context.WithValue(context.Background(), leaseKey, lease(lost)))
	assert.ErrorIs(t, err, ErrLockExpired)

	assert.ErrorIs(t, s.renew(context.Background()), ErrLockExpired)
}

// Needs a running server: VOUCHER_TEST_REDIS_ADDR=localhost:6379
func newTestStore(t *testing.T) *Store {
	t.Helper()
	addr := os.Getenv("VOUCHER_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("VOUCHER_TEST_REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })

	key := "vouchers-test-" + time.Now().Format("150405.000000000")
	t.Cleanup(func() { rdb.Del(context.Background(), key, key+":lock") })

	s := New(rdb, Config{Key: key, LockWait: time.Second}, zap.NewNop())
	require.NoError(t, s.Ping(context.Background()))
	return s
}

func TestStore_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WithTransaction(ctx, func(ctx context.Context) error {
		last, err := s.Last(ctx)
		require.NoError(t, err)
		assert.Nil(t, last)
		return s.Add(ctx, voucher("PET-0001", entity.StatusSubmitted))
	}))

	got, err := s.GetByNumber(ctx, "PET-0001")
	require.NoError(t, err)
	assert.Equal(t, entity.PettyCashDetails{Reason: "tea", ReconciliationDate: "10-03-2026"}, got.Variant)

	got.Status = entity.StatusRejected
	got.Version = 2
	require.NoError(t, s.UpdateByNumber(ctx, got, 1))
	assert.ErrorIs(t, s.UpdateByNumber(ctx, got, 1), entity.ErrConcurrentUpdate)

	active, err := s.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	closed, err := s.ListByStatus(ctx, entity.StatusRejected)
	require.NoError(t, err)
	assert.Len(t, closed, 1)
}

func TestStore_LockIsExclusive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	lock, err := s.obtain(ctx)
	require.NoError(t, err)
	defer lock.Release(ctx)

	err = s.WithTransaction(ctx, func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrLockNotObtained)
}

func TestStore_WriteAfterLeaseExpiryFails(t *testing.T) {
	s := newTestStore(t)
	s.cfg.LockTTL = 100 * time.Millisecond
	ctx := context.Background()

	err := s.WithTransaction(ctx, func(ctx context.Context) error {
		time.Sleep(300 * time.Millisecond)
		return s.Add(ctx, voucher("PET-0001", entity.StatusSubmitted))
	})
	assert.ErrorIs(t, err, ErrLockExpired)

	last, err := s.Last(ctx)
	require.NoError(t, err)
	assert.Nil(t, last)
}
