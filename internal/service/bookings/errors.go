package bookings

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrBookingNotFound возвращается, когда бронирование не найдено
	ErrBookingNotFound = errors.New("booking not found")

	// ErrResourceNotFound возвращается, когда подполе не найдено
	ErrResourceNotFound = errors.New("resource not found")

	// ErrAccessDenied возвращается, когда у пользователя нет прав доступа
	ErrAccessDenied = errors.New("access denied")

	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("invalid input data")

	// ErrConcurrentUpdate возвращается, когда статус брони изменился параллельно
	ErrConcurrentUpdate = errors.New("booking status changed concurrently")

	// ErrCancellationWindowExpired возвращается, когда срок бесплатной отмены прошёл
	ErrCancellationWindowExpired = errors.New("cancellation window expired")

	// ErrInternal возвращается при внутренних ошибках сервиса
	ErrInternal = errors.New("service: internal error")
)

// CancellationWindowExpiredError отмена после дедлайна
type CancellationWindowExpiredError struct {
	Deadline     time.Time
	BookingStart time.Time
}

func (e *CancellationWindowExpiredError) Error() string {
	return fmt.Sprintf("%v: deadline %s, booking starts %s", ErrCancellationWindowExpired,
		e.Deadline.Format(time.RFC3339), e.BookingStart.Format(time.RFC3339))
}

func (e *CancellationWindowExpiredError) Unwrap() error {
	return ErrCancellationWindowExpired
}
