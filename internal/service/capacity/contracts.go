package capacity

import (
	"context"

	"github.com/m04kA/SMC-FieldBookingService/internal/domain"
	"github.com/m04kA/SMC-FieldBookingService/pkg/timewindow"
)

// BookingRepository интерфейс для подсчёта занятого инвентаря
type BookingRepository interface {
	SumFacilityAllocated(ctx context.Context, fieldID, facilityID int64, window timewindow.Window) (int, error)
}

// FacilityRepository интерфейс для получения (и блокировки в транзакции) инвентаря
type FacilityRepository interface {
	GetFacility(ctx context.Context, fieldID, facilityID int64) (*domain.Facility, error)
}
