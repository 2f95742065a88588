package get_available_slots

import "errors"

var (
	// ErrResourceNotFound возвращается, когда подполе не найдено
	ErrResourceNotFound = errors.New("resource not found")

	// ErrInvalidDate возвращается, когда дата уже прошла
	ErrInvalidDate = errors.New("invalid booking date")

	// ErrDateTooFarInFuture возвращается, когда дата превышает горизонт бронирования
	ErrDateTooFarInFuture = errors.New("date is too far in the future")

	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("invalid input data")

	// ErrInternal возвращается при внутренних ошибках usecase
	ErrInternal = errors.New("usecase: internal error")
)
