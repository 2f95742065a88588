package reserve_booking

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("reserve_booking: invalid input data")

	// ErrPastWindow возвращается, когда окно начинается не позже текущего момента
	ErrPastWindow = errors.New("reserve_booking: window starts in the past")

	// ErrResourceNotFound возвращается, когда подполе не найдено
	ErrResourceNotFound = errors.New("reserve_booking: resource not found")

	// ErrFacilityNotFound возвращается, когда инвентарь не найден у поля
	ErrFacilityNotFound = errors.New("reserve_booking: facility not found")

	// ErrOutsideOpeningHours возвращается, когда окно выходит за часы работы поля
	ErrOutsideOpeningHours = errors.New("reserve_booking: window is outside opening hours")

	// ErrSlotConflict возвращается, когда окно пересекается с активной бронью подполя
	ErrSlotConflict = errors.New("reserve_booking: slot is already booked")

	// ErrFacilityExhausted возвращается, когда не хватает инвентаря
	ErrFacilityExhausted = errors.New("reserve_booking: facility exhausted")

	// ErrInternal возвращается при внутренних ошибках usecase (повторяемая ошибка инфраструктуры)
	ErrInternal = errors.New("reserve_booking: internal error")
)

// ValidationError ошибка валидации конкретного поля запроса
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %s %s", ErrInvalidInput, e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// SlotConflictError окно занято другой бронью
type SlotConflictError struct {
	ConflictingBookingID int64
	Start                time.Time
	End                  time.Time
}

func (e *SlotConflictError) Error() string {
	return fmt.Sprintf("%v: booking id=%d holds [%s, %s)", ErrSlotConflict,
		e.ConflictingBookingID, e.Start.Format(time.RFC3339), e.End.Format(time.RFC3339))
}

func (e *SlotConflictError) Unwrap() error {
	return ErrSlotConflict
}

// FacilityExhaustedError не хватает инвентаря на окно
type FacilityExhaustedError struct {
	FacilityID    int64
	FacilityName  string
	AlreadyBooked int
	Capacity      int
	Requested     int
}

func (e *FacilityExhaustedError) Error() string {
	return fmt.Sprintf("%v: %s booked %d/%d, requested %d", ErrFacilityExhausted,
		e.FacilityName, e.AlreadyBooked, e.Capacity, e.Requested)
}

func (e *FacilityExhaustedError) Unwrap() error {
	return ErrFacilityExhausted
}
