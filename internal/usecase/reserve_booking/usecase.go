package reserve_booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/m04kA/SMC-FieldBookingService/internal/domain"
	fieldRepo "github.com/m04kA/SMC-FieldBookingService/internal/infra/storage/field"
	"github.com/m04kA/SMC-FieldBookingService/internal/service/capacity"
	"github.com/m04kA/SMC-FieldBookingService/pkg/timewindow"
)

// Результаты резервирования для метрик
const (
	outcomeCreated   = "created"
	outcomeInvalid   = "invalid"
	outcomePast      = "past_window"
	outcomeConflict  = "slot_conflict"
	outcomeExhausted = "facility_exhausted"
	outcomeNotFound  = "not_found"
	outcomeError     = "error"
)

// UseCase use case резервирования подполя
type UseCase struct {
	bookingRepo  BookingRepository
	resourceRepo ResourceRepository
	allocator    FacilityAllocator
	notifier     Notifier
	metrics      Metrics
	txManager    TransactionManager
	timeProvider TimeProvider
	location     *time.Location
	logger       Logger
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	bookingRepo BookingRepository,
	resourceRepo ResourceRepository,
	allocator FacilityAllocator,
	notifier Notifier,
	metrics Metrics,
	txManager TransactionManager,
	location *time.Location,
	logger Logger,
) *UseCase {
	return &UseCase{
		bookingRepo:  bookingRepo,
		resourceRepo: resourceRepo,
		allocator:    allocator,
		notifier:     notifier,
		metrics:      metrics,
		txManager:    txManager,
		timeProvider: &RealTimeProvider{},
		location:     location,
		logger:       logger,
	}
}

// WithTimeProvider подменяет источник времени
func (uc *UseCase) WithTimeProvider(tp TimeProvider) *UseCase {
	uc.timeProvider = tp
	return uc
}

// Execute выполняет use case резервирования.
// Проверка пересечений, проверка инвентаря и вставка выполняются в одной транзакции под блокировками строк
// подполя и инвентаря; уведомления отправляются только после коммита.
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	uc.logger.Info("ReserveBooking: user=%d, resource=%d, window=[%s, %s), facilities=%d",
		req.UserID, req.ResourceID, req.Start.Format(time.RFC3339), req.End.Format(time.RFC3339), len(req.Facilities))

	resp, err := uc.execute(ctx, req)
	uc.metrics.RecordReservation(outcomeOf(err))
	return resp, err
}

func (uc *UseCase) execute(ctx context.Context, req *Request) (*Response, error) {
	// 1. Валидация входных данных
	if err := validateRequest(req); err != nil {
		uc.logger.Warn("ReserveBooking: validation failed: %v", err)
		return nil, err
	}

	window, err := timewindow.New(req.Start, req.End)
	if err != nil {
		return nil, &ValidationError{Field: "window", Message: err.Error()}
	}

	// 2. Окно должно начинаться строго после текущего момента
	now := uc.timeProvider.Now()
	if !window.Start.After(now) {
		uc.logger.Warn("ReserveBooking: window %s is not in the future (now=%s)", window, now.Format(time.RFC3339))
		return nil, fmt.Errorf("%w: starts at %s", ErrPastWindow, window.Start.In(uc.location).Format(time.RFC3339))
	}

	// 3. Получаем подполе с настройками поля
	resource, err := uc.resourceRepo.GetResource(ctx, req.ResourceID)
	if err != nil {
		if errors.Is(err, fieldRepo.ErrResourceNotFound) {
			uc.logger.Warn("ReserveBooking: resource id=%d not found", req.ResourceID)
			return nil, ErrResourceNotFound
		}
		uc.logger.Error("ReserveBooking: failed to get resource id=%d: %v", req.ResourceID, err)
		return nil, fmt.Errorf("%w: failed to get resource: %v", ErrInternal, err)
	}

	// 4. Привязываем окно к расписанию поля
	bookingDate, labels, err := placeInSchedule(resource.Field, window, uc.location)
	if err != nil {
		uc.logger.Warn("ReserveBooking: %v", err)
		return nil, err
	}

	lines := make([]capacity.Line, 0, len(req.Facilities))
	for _, f := range req.Facilities {
		lines = append(lines, capacity.Line{FacilityID: f.FacilityID, Quantity: f.Quantity})
	}

	var (
		created *domain.Booking
		deposit = resource.Field.PriceDeposit
	)

	// 5. Блокировка, проверки и вставка в одной транзакции
	err = uc.txManager.DoReadCommitted(ctx, func(txCtx context.Context) error {
		// 5.1. Блокируем подполе: все резервирования подполя сериализуются на этой строке
		if err := uc.resourceRepo.LockResource(txCtx, resource.ID); err != nil {
			if errors.Is(err, fieldRepo.ErrResourceNotFound) {
				return ErrResourceNotFound
			}
			uc.logger.Error("ReserveBooking: failed to lock resource id=%d: %v", resource.ID, err)
			return fmt.Errorf("%w: failed to lock resource: %v", ErrInternal, err)
		}

		// 5.2. Активные брони подполя, пересекающие окно (FOR UPDATE)
		overlapping, err := uc.bookingRepo.ListOverlapping(txCtx, resource.ID, window)
		if err != nil {
			uc.logger.Error("ReserveBooking: failed to list overlapping bookings: %v", err)
			return fmt.Errorf("%w: failed to list overlapping bookings: %v", ErrInternal, err)
		}

		for _, b := range overlapping {
			if b.IsActive() && b.Window().Overlaps(window) {
				uc.logger.Warn("ReserveBooking: window %s conflicts with booking id=%d", window, b.ID)
				return &SlotConflictError{ConflictingBookingID: b.ID, Start: b.StartAt, End: b.EndAt}
			}
		}

		// 5.3. Проверяем вместимость инвентаря
		plan, err := uc.allocator.Allocate(txCtx, resource.FieldID, window, lines)
		if err != nil {
			return uc.mapAllocationError(err)
		}

		// 5.4. Считаем стоимость
		totalPrice, remaining := domain.Price(window.Hours(), resource.Price, plan.Cost, deposit)
		if remaining < 0 {
			return &ValidationError{Field: "totalRemaining", Message: "deposit exceeds rental price"}
		}

		booking := &domain.Booking{
			UserID:         req.UserID,
			ResourceID:     resource.ID,
			FieldID:        resource.FieldID,
			BookingDate:    bookingDate,
			StartAt:        window.Start,
			EndAt:          window.End,
			SelectedSlots:  labels,
			TotalHours:     window.Hours(),
			TotalPrice:     totalPrice,
			TotalRemaining: remaining,
			PayMethod:      req.PayMethod,
			Activity:       req.Activity,
			Status:         domain.StatusPending,
		}

		// 5.5. Сохраняем бронь и позиции инвентаря
		created, err = uc.bookingRepo.Create(txCtx, booking)
		if err != nil {
			uc.logger.Error("ReserveBooking: failed to create booking: %v", err)
			return fmt.Errorf("%w: failed to create booking: %v", ErrInternal, err)
		}

		if len(plan.Allocations) > 0 {
			if err := uc.bookingRepo.CreateFacilityAllocations(txCtx, created.ID, plan.Allocations); err != nil {
				uc.logger.Error("ReserveBooking: failed to create facility allocations for booking id=%d: %v", created.ID, err)
				return fmt.Errorf("%w: failed to create facility allocations: %v", ErrInternal, err)
			}
			for i := range plan.Allocations {
				plan.Allocations[i].BookingID = created.ID
			}
		}
		created.Facilities = plan.Allocations

		return nil
	})

	if err != nil {
		if isRejection(err) {
			return nil, err
		}
		uc.logger.Error("ReserveBooking: transaction failed: %v", err)
		if errors.Is(err, ErrInternal) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	uc.logger.Info("ReserveBooking: successfully created booking id=%d", created.ID)

	// 6. Уведомления после коммита: ошибки не откатывают бронь
	uc.dispatch(ctx, resource, created)

	return toResponse(created, deposit), nil
}

// mapAllocationError переводит ошибки аллокатора в ошибки use case
func (uc *UseCase) mapAllocationError(err error) error {
	var exhausted *capacity.ExhaustedError
	switch {
	case errors.As(err, &exhausted):
		d := exhausted.Decision
		uc.logger.Warn("ReserveBooking: facility %q exhausted, %d/%d booked, requested %d",
			d.Facility.Name, d.AlreadyBooked, d.Capacity, d.Requested)
		return &FacilityExhaustedError{
			FacilityID:    d.Facility.ID,
			FacilityName:  d.Facility.Name,
			AlreadyBooked: d.AlreadyBooked,
			Capacity:      d.Capacity,
			Requested:     d.Requested,
		}
	case errors.Is(err, capacity.ErrFacilityNotFound):
		uc.logger.Warn("ReserveBooking: %v", err)
		return fmt.Errorf("%w: %v", ErrFacilityNotFound, err)
	case errors.Is(err, capacity.ErrInvalidQuantity):
		return &ValidationError{Field: "facilities.quantity", Message: "must be positive"}
	default:
		uc.logger.Error("ReserveBooking: failed to allocate facilities: %v", err)
		return fmt.Errorf("%w: failed to allocate facilities: %v", ErrInternal, err)
	}
}

func (uc *UseCase) dispatch(ctx context.Context, resource *domain.Resource, b *domain.Booking) {
	start := b.StartAt.In(uc.location)
	end := b.EndAt.In(uc.location)

	notification := &domain.Notification{
		SenderID:    &b.UserID,
		RecipientID: resource.OwnerID(),
		Topic:       domain.TopicBookingNew,
		Message: fmt.Sprintf("New booking #%d for %s on %s %s-%s",
			b.ID, resource.Name, start.Format(domain.DateFormat), start.Format(domain.TimeFormat), end.Format(domain.TimeFormat)),
		KeyID: b.ID,
	}
	if err := uc.notifier.Notify(ctx, notification); err != nil {
		uc.logger.Warn("ReserveBooking: failed to notify owner id=%d about booking id=%d: %v", resource.OwnerID(), b.ID, err)
	}

	if err := uc.notifier.Broadcast(ctx, domain.EventSlotReserved, domain.NewSlotEvent(b)); err != nil {
		uc.logger.Warn("ReserveBooking: failed to broadcast %s for booking id=%d: %v", domain.EventSlotReserved, b.ID, err)
	}
}

func isRejection(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrPastWindow) ||
		errors.Is(err, ErrResourceNotFound) ||
		errors.Is(err, ErrFacilityNotFound) ||
		errors.Is(err, ErrOutsideOpeningHours) ||
		errors.Is(err, ErrSlotConflict) ||
		errors.Is(err, ErrFacilityExhausted)
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return outcomeCreated
	case errors.Is(err, ErrPastWindow):
		return outcomePast
	case errors.Is(err, ErrSlotConflict):
		return outcomeConflict
	case errors.Is(err, ErrFacilityExhausted):
		return outcomeExhausted
	case errors.Is(err, ErrResourceNotFound), errors.Is(err, ErrFacilityNotFound):
		return outcomeNotFound
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrOutsideOpeningHours):
		return outcomeInvalid
	default:
		return outcomeError
	}
}

func toResponse(b *domain.Booking, deposit float64) *Response {
	facilities := make([]FacilityAllocation, 0, len(b.Facilities))
	for _, f := range b.Facilities {
		facilities = append(facilities, FacilityAllocation{
			FacilityID:   f.FacilityID,
			FacilityName: f.FacilityName,
			Quantity:     f.Quantity,
		})
	}

	return &Response{
		ID:             b.ID,
		UserID:         b.UserID,
		ResourceID:     b.ResourceID,
		FieldID:        b.FieldID,
		BookingDate:    b.BookingDate,
		Start:          b.StartAt,
		End:            b.EndAt,
		SelectedSlots:  b.SelectedSlots,
		TotalHours:     b.TotalHours,
		TotalPrice:     b.TotalPrice,
		Deposit:        deposit,
		TotalRemaining: b.TotalRemaining,
		PayMethod:      b.PayMethod,
		Activity:       b.Activity,
		Status:         string(b.Status),
		Facilities:     facilities,
		CreatedAt:      b.CreatedAt,
	}
}
