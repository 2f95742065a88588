package get_available_slots

import (
	"context"
	"time"

	"github.com/m04kA/SMC-FieldBookingService/internal/domain"
	"github.com/m04kA/SMC-FieldBookingService/pkg/timewindow"
)

// BookingRepository интерфейс репозитория бронирований
type BookingRepository interface {
	// ListOverlapping получает не отклонённые брони подполя, пересекающиеся с окном
	ListOverlapping(ctx context.Context, resourceID int64, window timewindow.Window) ([]*domain.Booking, error)
}

// ResourceRepository интерфейс каталога подполей
type ResourceRepository interface {
	GetResource(ctx context.Context, resourceID int64) (*domain.Resource, error)
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
