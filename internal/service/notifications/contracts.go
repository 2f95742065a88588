package notifications

import (
	"context"

	"github.com/m04kA/SMC-FieldBookingService/internal/domain"
	"github.com/m04kA/SMC-FieldBookingService/internal/integrations/userservice"
)

// Store интерфейс хранилища уведомлений
type Store interface {
	Append(ctx context.Context, n *domain.Notification) error
}

// ContactResolver интерфейс получения email получателя
type ContactResolver interface {
	GetContact(ctx context.Context, userID int64) (*userservice.User, error)
}

// MailQueue интерфейс очереди писем
type MailQueue interface {
	Enqueue(ctx context.Context, to, name, subject, body string) error
}

// EventPublisher интерфейс публикации realtime событий
type EventPublisher interface {
	Publish(ctx context.Context, topic domain.EventTopic, payload interface{}) error
}

// Metrics интерфейс учёта доставки
type Metrics interface {
	RecordNotification(channel, result string)
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
