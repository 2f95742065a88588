package notifications

import "errors"

var (
	// ErrStore возвращается, когда уведомление не удалось сохранить
	ErrStore = errors.New("notifications: failed to store notification")

	// ErrBroadcast возвращается, когда событие не удалось опубликовать
	ErrBroadcast = errors.New("notifications: failed to broadcast event")
)
