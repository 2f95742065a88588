package booking

import (
	"github.com/m04kA/SMC-FieldBookingService/pkg/dbmetrics"
)

// Переиспользуем интерфейсы из dbmetrics для работы с БД
type DBExecutor = dbmetrics.DBExecutor
type TxExecutor = dbmetrics.TxExecutor

// NotificationMarker колонка-маркер отправленного уведомления о приближении брони
type NotificationMarker string

const (
	MarkerUpcoming NotificationMarker = "upcoming_notified_at"
	MarkerStarting NotificationMarker = "start_notified_at"
)
