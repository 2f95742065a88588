// Package notifications доставляет уведомления о жизненном цикле броней:
// запись в хранилище уведомлений, письмо через очередь и realtime события.
// Вызывается только после коммита; ошибки доставки никогда не откатывают изменения брони.
package notifications

import (
	"context"
	"errors"
	"fmt"

	"github.com/m04kA/SMC-FieldBookingService/internal/domain"
	"github.com/m04kA/SMC-FieldBookingService/internal/integrations/userservice"
)

// Каналы и результаты для метрик
const (
	channelStore     = "store"
	channelEmail     = "email"
	channelBroadcast = "broadcast"

	resultOK      = "ok"
	resultFailed  = "failed"
	resultSkipped = "skipped"
)

var subjects = map[domain.NotificationTopic]string{
	domain.TopicBookingNew:       "New booking request",
	domain.TopicBookingApproved:  "Your booking was approved",
	domain.TopicBookingRejected:  "Your booking was rejected",
	domain.TopicBookingCompleted: "Your booking is complete",
	domain.TopicBookingCancelled: "Booking cancelled",
	domain.TopicBookingUpcoming:  "Your booking starts in 30 minutes",
	domain.TopicBookingStarting:  "Your booking is starting now",
	domain.TopicBookingExpired:   "Your booking expired: deposit not received",
}

// Dispatcher рассылает уведомления и события
type Dispatcher struct {
	store     Store
	contacts  ContactResolver
	mail      MailQueue
	publisher EventPublisher
	metrics   Metrics
	logger    Logger
}

// NewDispatcher создает новый экземпляр диспетчера
func NewDispatcher(store Store, contacts ContactResolver, mail MailQueue, publisher EventPublisher, metrics Metrics, logger Logger) *Dispatcher {
	return &Dispatcher{
		store:     store,
		contacts:  contacts,
		mail:      mail,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
	}
}

// Notify сохраняет уведомление и ставит письмо получателю.
// Ошибка возвращается только если уведомление не сохранено: после записи повтор привёл бы к дублю,
// поэтому сбои почты лишь логируются.
func (d *Dispatcher) Notify(ctx context.Context, n *domain.Notification) error {
	if err := d.store.Append(ctx, n); err != nil {
		d.metrics.RecordNotification(channelStore, resultFailed)
		d.logger.Error("Notify: failed to store %s for user=%d, booking=%d: %v", n.Topic, n.RecipientID, n.KeyID, err)
		return fmt.Errorf("%w: %v", ErrStore, err)
	}
	d.metrics.RecordNotification(channelStore, resultOK)

	d.sendEmail(ctx, n)
	return nil
}

// Broadcast публикует событие слота
func (d *Dispatcher) Broadcast(ctx context.Context, topic domain.EventTopic, payload interface{}) error {
	if err := d.publisher.Publish(ctx, topic, payload); err != nil {
		d.metrics.RecordNotification(channelBroadcast, resultFailed)
		d.logger.Warn("Broadcast: failed to publish %s: %v", topic, err)
		return fmt.Errorf("%w: %v", ErrBroadcast, err)
	}
	d.metrics.RecordNotification(channelBroadcast, resultOK)
	return nil
}

func (d *Dispatcher) sendEmail(ctx context.Context, n *domain.Notification) {
	user, err := d.contacts.GetContact(ctx, n.RecipientID)
	if err != nil {
		if errors.Is(err, userservice.ErrUserNotFound) || errors.Is(err, userservice.ErrNoEmail) {
			d.metrics.RecordNotification(channelEmail, resultSkipped)
			d.logger.Info("Notify: no email for user=%d, skipping %s", n.RecipientID, n.Topic)
			return
		}
		d.metrics.RecordNotification(channelEmail, resultFailed)
		d.logger.Warn("Notify: failed to resolve contact of user=%d: %v", n.RecipientID, err)
		return
	}

	subject, ok := subjects[n.Topic]
	if !ok {
		subject = "Booking update"
	}
	body := fmt.Sprintf("Hi %s,\n\n%s.\n\n- Field Booking", user.DisplayName(), n.Message)

	if err := d.mail.Enqueue(ctx, user.Email, user.DisplayName(), subject, body); err != nil {
		d.metrics.RecordNotification(channelEmail, resultFailed)
		d.logger.Warn("Notify: failed to enqueue email to user=%d: %v", n.RecipientID, err)
		return
	}
	d.metrics.RecordNotification(channelEmail, resultOK)
}
