package get_available_slots

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jinzhu/now"

	"github.com/m04kA/SMC-FieldBookingService/internal/domain"
	fieldRepo "github.com/m04kA/SMC-FieldBookingService/internal/infra/storage/field"
	"github.com/m04kA/SMC-FieldBookingService/pkg/timewindow"
)

// UseCase use case для получения расписания подполя на день
type UseCase struct {
	bookingRepo  BookingRepository
	resourceRepo ResourceRepository
	timeProvider TimeProvider
	location     *time.Location
	advanceDays  int
	logger       Logger
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	bookingRepo BookingRepository,
	resourceRepo ResourceRepository,
	location *time.Location,
	advanceDays int,
	logger Logger,
) *UseCase {
	return &UseCase{
		bookingRepo:  bookingRepo,
		resourceRepo: resourceRepo,
		timeProvider: &RealTimeProvider{},
		location:     location,
		advanceDays:  advanceDays,
		logger:       logger,
	}
}

// WithTimeProvider подменяет источник времени
func (uc *UseCase) WithTimeProvider(tp TimeProvider) *UseCase {
	uc.timeProvider = tp
	return uc
}

// Execute выполняет use case получения слотов
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	// 1. Валидация входных данных
	if err := validateRequest(req); err != nil {
		uc.logger.Warn("GetAvailableSlots: validation failed: %v", err)
		return nil, err
	}

	current := uc.timeProvider.Now().In(uc.location)
	today := now.With(current).BeginningOfDay()
	day := now.With(req.Date.In(uc.location)).BeginningOfDay()

	uc.logger.Info("GetAvailableSlots: resource=%d, date=%s", req.ResourceID, day.Format(domain.DateFormat))

	// 2. Проверяем дату
	if err := validateDate(day, today, uc.advanceDays); err != nil {
		uc.logger.Warn("GetAvailableSlots: date validation failed: %v", err)
		return nil, err
	}

	// 3. Получаем подполе с расписанием поля
	resource, err := uc.resourceRepo.GetResource(ctx, req.ResourceID)
	if err != nil {
		if errors.Is(err, fieldRepo.ErrResourceNotFound) {
			uc.logger.Warn("GetAvailableSlots: resource id=%d not found", req.ResourceID)
			return nil, ErrResourceNotFound
		}
		uc.logger.Error("GetAvailableSlots: failed to get resource id=%d: %v", req.ResourceID, err)
		return nil, fmt.Errorf("%w: failed to get resource: %v", ErrInternal, err)
	}
	field := resource.Field

	response := &Response{
		ResourceID:          resource.ID,
		FieldID:             resource.FieldID,
		Date:                day,
		OpenTime:            field.OpenTime,
		CloseTime:           field.CloseTime,
		SlotDurationMinutes: field.SlotDurationMinutes,
		HourlyPrice:         resource.Price,
		Slots:               []Slot{},
	}

	// 4. Генерируем слоты дня
	daySlots, err := timewindow.DaySlots(day, field.OpenTime, field.CloseTime, field.SlotDurationMinutes, uc.location)
	if err != nil {
		uc.logger.Error("GetAvailableSlots: failed to generate slots for field id=%d: %v", field.ID, err)
		return nil, fmt.Errorf("%w: failed to generate slots: %v", ErrInternal, err)
	}
	if len(daySlots) == 0 {
		return response, nil
	}

	// 5. Получаем брони, пересекающиеся с рабочими часами дня
	bookings, err := uc.bookingRepo.ListOverlapping(ctx, resource.ID, scheduleSpan(daySlots))
	if err != nil {
		uc.logger.Error("GetAvailableSlots: failed to get bookings: %v", err)
		return nil, fmt.Errorf("%w: failed to get bookings: %v", ErrInternal, err)
	}

	// 6. Отмечаем занятость
	response.Slots = markSlots(daySlots, bookings, current)

	return response, nil
}
