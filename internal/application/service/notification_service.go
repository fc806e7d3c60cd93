package service

import (
	"context"
	"sync"

	"github.com/garyjia/voucher-workflow/internal/application/dispatcher"
	"github.com/garyjia/voucher-workflow/internal/domain/entity"
	"github.com/garyjia/voucher-workflow/internal/domain/event"
)

// DefaultFeedSize is how many notices are kept per user
const DefaultFeedSize = 50

// NotificationService turns voucher events into notices for the submitting user
type NotificationService interface {
	// Register subscribes the service to the events it reports on
	Register(d dispatcher.Dispatcher)

	// Feed returns up to limit notices for a PIN, newest first
	Feed(ctx context.Context, pin string, limit int) []entity.Notice
}

type notificationServiceImpl struct {
	mu       sync.RWMutex
	feeds    map[string][]entity.Notice
	feedSize int
	logger   Logger
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(feedSize int, logger Logger) NotificationService {
	if feedSize <= 0 {
		feedSize = DefaultFeedSize
	}
	if logger == nil {
		logger = nopLogger{}
	}
	return &notificationServiceImpl{
		feeds:    make(map[string][]entity.Notice),
		feedSize: feedSize,
		logger:   logger,
	}
}

func (s *notificationServiceImpl) Register(d dispatcher.Dispatcher) {
	d.SubscribeNamed(event.TypeVoucherSubmitted, "notification.submitted", s.handle)
	d.SubscribeNamed(event.TypeStatusChanged, "notification.status_changed", s.handle)
}

func (s *notificationServiceImpl) handle(ctx context.Context, evt *event.Event) error {
	pin := evt.GetPayloadString(event.KeyCreatorPIN)
	if pin == "" {
		return nil
	}

	n := entity.Notice{
		Kind:          entity.NoticeSuccess,
		VoucherNumber: evt.VoucherNumber,
		CreatedAt:     evt.Timestamp,
		Params: map[string]string{
			"voucherNumber": evt.VoucherNumber,
			"status":        evt.GetPayloadString(event.KeyNewStatus),
		},
	}
	if evt.Type == event.TypeVoucherSubmitted {
		n.Key = entity.NoticeKeyVoucherSubmitted
	} else {
		n.Key = successKey(entity.Status(evt.GetPayloadString(event.KeyNewStatus)))
		if by := evt.GetPayloadString(event.KeyActorName); by != "" {
			n.Params["by"] = by
		}
		if reason := evt.GetPayloadString(event.KeyReason); reason != "" {
			n.Params["reason"] = reason
		}
	}

	s.push(pin, n)
	s.logger.Info("Notice queued", "pin", pin, "voucher_number", evt.VoucherNumber, "key", n.Key)
	return nil
}

func (s *notificationServiceImpl) push(pin string, n entity.Notice) {
	s.mu.Lock()
	defer s.mu.Unlock()

	feed := append(s.feeds[pin], n)
	if len(feed) > s.feedSize {
		feed = append([]entity.Notice(nil), feed[len(feed)-s.feedSize:]...)
	}
	s.feeds[pin] = feed
}

func (s *notificationServiceImpl) Feed(ctx context.Context, pin string, limit int) []entity.Notice {
	s.mu.RLock()
	defer s.mu.RUnlock()

	feed := s.feeds[pin]
	if limit <= 0 || limit > len(feed) {
		limit = len(feed)
	}
	out := make([]entity.Notice, 0, limit)
	for i := len(feed) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, feed[i])
	}
	return out
}
