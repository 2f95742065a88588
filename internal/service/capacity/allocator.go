// Package capacity проверяет вместимость инвентаря поля (мячи, шкафчики и т.п.) для окна бронирования.
//
// Все методы рассчитаны на вызов внутри транзакции: репозиторий инвентаря блокирует строку
// facilities (FOR UPDATE), и подсчёт занятого количества выполняется уже под этой блокировкой.
package capacity

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/m04kA/SMC-FieldBookingService/internal/domain"
	fieldRepo "github.com/m04kA/SMC-FieldBookingService/internal/infra/storage/field"
	"github.com/m04kA/SMC-FieldBookingService/pkg/timewindow"
)

// Line запрошенная позиция инвентаря
type Line struct {
	FacilityID int64
	Quantity   int
}

// Decision результат проверки одной позиции
type Decision struct {
	Facility      *domain.Facility
	Allowed       bool
	AlreadyBooked int
	Capacity      int
	Requested     int
}

// Plan позиции инвентаря новой брони и их стоимость
type Plan struct {
	Allocations []domain.FacilityAllocation
	Cost        float64
}

// Allocator проверяет и резервирует инвентарь
type Allocator struct {
	bookingRepo  BookingRepository
	facilityRepo FacilityRepository
}

// NewAllocator создает новый экземпляр аллокатора
func NewAllocator(bookingRepo BookingRepository, facilityRepo FacilityRepository) *Allocator {
	return &Allocator{
		bookingRepo:  bookingRepo,
		facilityRepo: facilityRepo,
	}
}

// Check блокирует инвентарь и проверяет, что alreadyBooked + requested <= capacity.
// Учитываются позиции неотклонённых броней того же поля, чьё окно пересекается с window.
func (a *Allocator) Check(ctx context.Context, fieldID, facilityID int64, window timewindow.Window, requested int) (*Decision, error) {
	if requested <= 0 {
		return nil, fmt.Errorf("%w: facility %d quantity %d", ErrInvalidQuantity, facilityID, requested)
	}

	facility, err := a.facilityRepo.GetFacility(ctx, fieldID, facilityID)
	if err != nil {
		if errors.Is(err, fieldRepo.ErrFacilityNotFound) {
			return nil, fmt.Errorf("%w: id=%d", ErrFacilityNotFound, facilityID)
		}
		return nil, fmt.Errorf("%w: failed to get facility: %v", ErrInternal, err)
	}

	booked, err := a.bookingRepo.SumFacilityAllocated(ctx, fieldID, facilityID, window)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to sum allocations: %v", ErrInternal, err)
	}

	return &Decision{
		Facility:      facility,
		Allowed:       booked+requested <= facility.QuantityTotal,
		AlreadyBooked: booked,
		Capacity:      facility.QuantityTotal,
		Requested:     requested,
	}, nil
}

// Allocate проверяет все позиции и возвращает план со строками FacilityAllocation для новой брони.
// Повторяющиеся позиции одного инвентаря складываются; инвентарь блокируется в порядке возрастания ID.
// Первая позиция без свободного остатка возвращается как *ExhaustedError.
func (a *Allocator) Allocate(ctx context.Context, fieldID int64, window timewindow.Window, lines []Line) (*Plan, error) {
	merged := mergeLines(lines)

	plan := &Plan{Allocations: make([]domain.FacilityAllocation, 0, len(merged))}
	for _, line := range merged {
		decision, err := a.Check(ctx, fieldID, line.FacilityID, window, line.Quantity)
		if err != nil {
			return nil, err
		}
		if !decision.Allowed {
			return nil, &ExhaustedError{Decision: *decision}
		}

		plan.Allocations = append(plan.Allocations, domain.FacilityAllocation{
			FieldID:      fieldID,
			FacilityID:   decision.Facility.ID,
			FacilityName: decision.Facility.Name,
			Quantity:     line.Quantity,
		})
		plan.Cost += decision.Facility.Price * float64(line.Quantity)
	}

	return plan, nil
}

// mergeLines складывает количества по инвентарю и сортирует по ID
func mergeLines(lines []Line) []Line {
	totals := make(map[int64]int, len(lines))
	for _, l := range lines {
		totals[l.FacilityID] += l.Quantity
	}

	merged := make([]Line, 0, len(totals))
	for id, qty := range totals {
		merged = append(merged, Line{FacilityID: id, Quantity: qty})
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].FacilityID < merged[j].FacilityID
	})
	return merged
}
