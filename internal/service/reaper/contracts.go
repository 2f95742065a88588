package reaper

import (
	"context"
	"time"

	"github.com/m04kA/SMC-FieldBookingService/internal/domain"
	"github.com/m04kA/SMC-FieldBookingService/internal/infra/storage/booking"
)

// BookingRepository интерфейс репозитория бронирований
type BookingRepository interface {
	ListStartingBetween(ctx context.Context, from, to time.Time, statuses []domain.BookingStatus) ([]*domain.Booking, error)
	ClaimNotification(ctx context.Context, id int64, marker booking.NotificationMarker, at time.Time) (bool, error)
	ReleaseNotification(ctx context.Context, id int64, marker booking.NotificationMarker) error
	ListDepositCandidates(ctx context.Context, graceDeadline, now time.Time) ([]*domain.Booking, error)
	RejectUnpaid(ctx context.Context, ids []int64) ([]int64, error)
	DeleteFacilityAllocations(ctx context.Context, bookingIDs ...int64) (int64, error)
}

// Notifier интерфейс доставки уведомлений и событий
type Notifier interface {
	Notify(ctx context.Context, n *domain.Notification) error
	Broadcast(ctx context.Context, topic domain.EventTopic, payload interface{}) error
}

// Metrics интерфейс метрик
type Metrics interface {
	RecordTransition(from, to, actor string)
	RecordReaperEffect(kind string, count int)
}

// TransactionManager интерфейс для управления транзакциями
type TransactionManager interface {
	DoReadCommitted(ctx context.Context, fn func(ctx context.Context) error) error
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
	Debug(format string, v ...interface{})
}
