// Package broadcaster публикует события слотов (slot.reserved, slot.freed) для realtime подписчиков
package broadcaster

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/m04kA/SMC-FieldBookingService/internal/domain"
)

// Publisher интерфейс брокера сообщений
type Publisher interface {
	PublishJSON(ctx context.Context, key, messageID string, v any) error
}

// Envelope конверт события
type Envelope struct {
	ID         string            `json:"id"`
	Topic      domain.EventTopic `json:"topic"`
	OccurredAt time.Time         `json:"occurredAt"`
	Payload    interface{}       `json:"payload"`
}

// Broadcaster отправляет события в брокер, ключ маршрутизации равен топику
type Broadcaster struct {
	publisher Publisher
	now       func() time.Time
}

// New создает новый экземпляр broadcaster
func New(publisher Publisher) *Broadcaster {
	return &Broadcaster{publisher: publisher, now: time.Now}
}

// Publish оборачивает payload в конверт с уникальным ID и публикует
func (b *Broadcaster) Publish(ctx context.Context, topic domain.EventTopic, payload interface{}) error {
	envelope := Envelope{
		ID:         uuid.NewString(),
		Topic:      topic,
		OccurredAt: b.now().UTC(),
		Payload:    payload,
	}

	if err := b.publisher.PublishJSON(ctx, string(topic), envelope.ID, envelope); err != nil {
		return fmt.Errorf("%w: %v", ErrPublish, err)
	}
	return nil
}

// Discard broadcaster для запуска без брокера: события только отбрасываются
type Discard struct{}

func (Discard) Publish(context.Context, domain.EventTopic, interface{}) error {
	return nil
}
