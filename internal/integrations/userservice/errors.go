package userservice

import "errors"

var (
	// ErrUserNotFound возвращается, когда пользователь не найден
	ErrUserNotFound = errors.New("userservice client: user not found")

	// ErrNoEmail возвращается, когда у пользователя не указан email
	ErrNoEmail = errors.New("userservice client: user has no email")

	// ErrInternal возвращается при внутренних ошибках клиента
	ErrInternal = errors.New("userservice client: internal error")

	// ErrInvalidResponse возвращается при некорректном ответе от сервиса
	ErrInvalidResponse = errors.New("userservice client: invalid response")

	// ErrServiceDegraded возвращается, когда UserService недоступен
	ErrServiceDegraded = errors.New("userservice unavailable: graceful degradation applied")
)
