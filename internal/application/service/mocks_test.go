package service

import (
	"context"
	"sync"
	"time"

	"github.com/garyjia/voucher-workflow/internal/application/port"
	"github.com/garyjia/voucher-workflow/internal/domain/entity"
)

// memRepo is an in-memory port.VoucherRepository
type memRepo struct {
	mu       sync.Mutex
	vouchers []*entity.Voucher
	addErr   error
	// beforeUpdate runs inside UpdateByNumber to simulate a concurrent writer
	beforeUpdate func(stored *entity.Voucher)
}

var _ port.VoucherRepository = (*memRepo)(nil)

func (m *memRepo) Last(ctx context.Context) (*entity.Voucher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.vouchers) == 0 {
		return nil, nil
	}
	return m.vouchers[len(m.vouchers)-1].Clone(), nil
}

func (m *memRepo) Add(ctx context.Context, v *entity.Voucher) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.addErr != nil {
		err := m.addErr
		m.addErr = nil
		return err
	}
	for _, existing := range m.vouchers {
		if existing.VoucherNumber == v.VoucherNumber {
			return entity.ErrDuplicateNumber
		}
	}
	m.vouchers = append(m.vouchers, v.Clone())
	return nil
}

func (m *memRepo) GetByNumber(ctx context.Context, number string) (*entity.Voucher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.vouchers {
		if v.VoucherNumber == number {
			return v.Clone(), nil
		}
	}
	return nil, &entity.NotFoundError{VoucherNumber: number}
}

func (m *memRepo) UpdateByNumber(ctx context.Context, v *entity.Voucher, expectedVersion int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, stored := range m.vouchers {
		if stored.VoucherNumber != v.VoucherNumber {
			continue
		}
		if m.beforeUpdate != nil {
			m.beforeUpdate(stored)
		}
		if stored.Version != expectedVersion {
			return entity.ErrConcurrentUpdate
		}
		m.vouchers[i] = v.Clone()
		return nil
	}
	return &entity.NotFoundError{VoucherNumber: v.VoucherNumber}
}

func (m *memRepo) ListAll(ctx context.Context) ([]*entity.Voucher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Voucher
	for _, v := range m.vouchers {
		if v.IsActive() {
			out = append(out, v.Clone())
		}
	}
	return out, nil
}

func (m *memRepo) ListByStatus(ctx context.Context, statuses ...entity.Status) ([]*entity.Voucher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Voucher
	for _, v := range m.vouchers {
		for _, s := range statuses {
			if v.Status == s {
				out = append(out, v.Clone())
				break
			}
		}
	}
	return out, nil
}

// mockTxManager runs fn directly and counts calls
type mockTxManager struct {
	calls int
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	return fn(ctx)
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

// mockLogger records messages
type mockLogger struct {
	mu     sync.Mutex
	infos  []string
	errors []string
}

func (l *mockLogger) Info(msg string, kv ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infos = append(l.infos, msg)
}

func (l *mockLogger) Error(msg string, kv ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}

// mockStorage is an in-memory port.FileStorage
type mockStorage struct {
	files map[string][]byte
}

func (s *mockStorage) Save(ctx context.Context, path string, content []byte) error {
	if s.files == nil {
		s.files = make(map[string][]byte)
	}
	s.files[path] = content
	return nil
}

func (s *mockStorage) Read(ctx context.Context, path string) ([]byte, error) {
	return s.files[path], nil
}

func (s *mockStorage) Exists(ctx context.Context, path string) bool {
	_, ok := s.files[path]
	return ok
}

func (s *mockStorage) GetFullPath(relativePath string) string {
	return "/exports/" + relativePath
}
