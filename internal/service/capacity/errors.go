package capacity

import (
	"errors"
	"fmt"
)

var (
	// ErrFacilityNotFound возвращается, когда инвентарь не принадлежит полю
	ErrFacilityNotFound = errors.New("capacity: facility not found")

	// ErrExhausted возвращается, когда запрошенное количество превышает свободный остаток
	ErrExhausted = errors.New("capacity: facility exhausted")

	// ErrInvalidQuantity возвращается при неположительном количестве
	ErrInvalidQuantity = errors.New("capacity: quantity must be positive")

	// ErrInternal возвращается при внутренних ошибках
	ErrInternal = errors.New("capacity: internal error")
)

// ExhaustedError отказ по вместимости с текущей занятостью инвентаря
type ExhaustedError struct {
	Decision Decision
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%v: %s booked %d/%d, requested %d",
		ErrExhausted, e.Decision.Facility.Name, e.Decision.AlreadyBooked, e.Decision.Capacity, e.Decision.Requested)
}

func (e *ExhaustedError) Unwrap() error {
	return ErrExhausted
}
