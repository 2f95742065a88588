package bookings

import (
	"context"
	"time"

	"github.com/m04kA/SMC-FieldBookingService/internal/domain"
)

// BookingRepository интерфейс репозитория бронирований
type BookingRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	GetFacilityAllocations(ctx context.Context, bookingID int64) ([]domain.FacilityAllocation, error)
	GetByUserID(ctx context.Context, userID int64, status *domain.BookingStatus) ([]*domain.Booking, error)
	GetByResourceWithFilter(ctx context.Context, filter domain.ResourceBookingsFilter) ([]*domain.Booking, error)
	UpdateStatus(ctx context.Context, id int64, from, to domain.BookingStatus) error
	MarkApproved(ctx context.Context, id int64, from domain.BookingStatus, approvedAt time.Time) error
	Delete(ctx context.Context, id int64) error
	DeleteFacilityAllocations(ctx context.Context, bookingIDs ...int64) (int64, error)
}

// ResourceRepository интерфейс каталога подполей
type ResourceRepository interface {
	GetResource(ctx context.Context, resourceID int64) (*domain.Resource, error)
}

// PaymentRepository интерфейс репозитория оплат
type PaymentRepository interface {
	DeleteByBookingID(ctx context.Context, bookingID int64) (*domain.Payment, error)
}

// FileStorage интерфейс внешнего хранилища чеков
type FileStorage interface {
	Delete(ctx context.Context, url string) error
}

// Notifier интерфейс отправки уведомлений и событий
type Notifier interface {
	Notify(ctx context.Context, n *domain.Notification) error
	Broadcast(ctx context.Context, topic domain.EventTopic, payload interface{}) error
}

// Metrics интерфейс учёта переходов статусов
type Metrics interface {
	RecordTransition(from, to, actor string)
}

// TransactionManager интерфейс для управления транзакциями
type TransactionManager interface {
	DoReadCommitted(ctx context.Context, fn func(ctx context.Context) error) error
}

// TimeProvider интерфейс для получения текущего времени
type TimeProvider interface {
	Now() time.Time
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

type realTimeProvider struct{}

func (realTimeProvider) Now() time.Time {
	return time.Now()
}
