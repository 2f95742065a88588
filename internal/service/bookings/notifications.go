package bookings

import (
	"context"
	"fmt"

	"github.com/m04kA/SMC-FieldBookingService/internal/domain"
)

// notifyStatusChange уведомляет вторую сторону брони о смене статуса
func (s *Service) notifyStatusChange(ctx context.Context, b *domain.Booking, resource *domain.Resource, senderID int64, reason string) {
	when := s.describeWindow(b)

	n := &domain.Notification{
		SenderID:    &senderID,
		RecipientID: b.UserID,
		KeyID:       b.ID,
	}

	switch b.Status {
	case domain.StatusApproved:
		n.Topic = domain.TopicBookingApproved
		n.Message = fmt.Sprintf("Your booking #%d at %s on %s was approved", b.ID, resource.Name, when)
		if resource.Field != nil && resource.Field.RequiresDeposit() {
			n.Message += fmt.Sprintf(". Please upload the deposit proof within %d minutes", int(domain.DepositProofGrace.Minutes()))
		}
	case domain.StatusComplete:
		n.Topic = domain.TopicBookingCompleted
		n.Message = fmt.Sprintf("Your booking #%d at %s on %s is complete", b.ID, resource.Name, when)
	case domain.StatusRejected:
		n.Topic = domain.TopicBookingRejected
		n.Message = fmt.Sprintf("Your booking #%d at %s on %s was rejected", b.ID, resource.Name, when)
		if reason != "" {
			n.Message += ": " + reason
		}
	default:
		return
	}

	if err := s.notifier.Notify(ctx, n); err != nil {
		s.logger.Warn("SetStatus: failed to notify user=%d about booking id=%d: %v", n.RecipientID, b.ID, err)
	}
}

// notifyCancellation уведомляет вторую сторону об отмене
func (s *Service) notifyCancellation(ctx context.Context, b *domain.Booking, resource *domain.Resource, actor domain.Actor, senderID int64) {
	n := &domain.Notification{
		SenderID:    &senderID,
		RecipientID: b.UserID,
		Topic:       domain.TopicBookingCancelled,
		KeyID:       b.ID,
	}

	when := s.describeWindow(b)
	if actor == domain.ActorCustomer {
		n.RecipientID = resource.OwnerID()
		n.Message = fmt.Sprintf("Booking #%d at %s on %s was cancelled by the customer", b.ID, resource.Name, when)
	} else {
		n.Message = fmt.Sprintf("Your booking #%d at %s on %s was cancelled by the field", b.ID, resource.Name, when)
	}

	if err := s.notifier.Notify(ctx, n); err != nil {
		s.logger.Warn("Cancel: failed to notify user=%d about booking id=%d: %v", n.RecipientID, b.ID, err)
	}
}

func (s *Service) broadcastFreed(ctx context.Context, method string, b *domain.Booking) {
	if err := s.notifier.Broadcast(ctx, domain.EventSlotFreed, domain.NewSlotEvent(b)); err != nil {
		s.logger.Warn("%s: failed to broadcast %s for booking id=%d: %v", method, domain.EventSlotFreed, b.ID, err)
	}
}

func (s *Service) describeWindow(b *domain.Booking) string {
	return fmt.Sprintf("%s %s-%s", b.StartDate(s.location), b.StartTime(s.location), b.EndTime(s.location))
}
