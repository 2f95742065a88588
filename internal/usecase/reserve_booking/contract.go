package reserve_booking

import (
	"context"
	"time"

	"github.com/m04kA/SMC-FieldBookingService/internal/domain"
	"github.com/m04kA/SMC-FieldBookingService/internal/service/capacity"
	"github.com/m04kA/SMC-FieldBookingService/pkg/timewindow"
)

// BookingRepository интерфейс репозитория бронирований
type BookingRepository interface {
	ListOverlapping(ctx context.Context, resourceID int64, window timewindow.Window) ([]*domain.Booking, error)
	Create(ctx context.Context, booking *domain.Booking) (*domain.Booking, error)
	CreateFacilityAllocations(ctx context.Context, bookingID int64, allocations []domain.FacilityAllocation) error
}

// ResourceRepository интерфейс каталога подполей
type ResourceRepository interface {
	GetResource(ctx context.Context, resourceID int64) (*domain.Resource, error)
	LockResource(ctx context.Context, resourceID int64) error
}

// FacilityAllocator интерфейс проверки вместимости инвентаря
type FacilityAllocator interface {
	Allocate(ctx context.Context, fieldID int64, window timewindow.Window, lines []capacity.Line) (*capacity.Plan, error)
}

// Notifier интерфейс отправки уведомлений и событий после коммита
type Notifier interface {
	Notify(ctx context.Context, n *domain.Notification) error
	Broadcast(ctx context.Context, topic domain.EventTopic, payload interface{}) error
}

// Metrics интерфейс учёта результатов резервирования
type Metrics interface {
	RecordReservation(outcome string)
}

// TransactionManager интерфейс для управления транзакциями
type TransactionManager interface {
	DoReadCommitted(ctx context.Context, fn func(ctx context.Context) error) error
}

// TimeProvider интерфейс для получения текущего времени (для тестирования)
type TimeProvider interface {
	Now() time.Time
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// RealTimeProvider реальный провайдер времени для production
type RealTimeProvider struct{}

// Now возвращает текущее время
func (p *RealTimeProvider) Now() time.Time {
	return time.Now()
}
