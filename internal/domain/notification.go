package domain

import "time"

// NotificationTopic topic tag of a stored notification
type NotificationTopic string

const (
	TopicBookingNew       NotificationTopic = "booking.new"
	TopicBookingApproved  NotificationTopic = "booking.approved"
	TopicBookingRejected  NotificationTopic = "booking.rejected"
	TopicBookingCompleted NotificationTopic = "booking.completed"
	TopicBookingCancelled NotificationTopic = "booking.cancelled"
	TopicBookingUpcoming  NotificationTopic = "booking.upcoming"
	TopicBookingStarting  NotificationTopic = "booking.starting"
	TopicBookingExpired   NotificationTopic = "booking.expired"
)

// Notification is an append-only lifecycle record addressed to a user
type Notification struct {
	ID          int64
	SenderID    *int64 // nil for system notifications
	RecipientID int64
	Topic       NotificationTopic
	Message     string
	KeyID       int64 // booking id
	CreatedAt   time.Time
}

// EventTopic realtime broadcast topic
type EventTopic string

const (
	EventSlotReserved EventTopic = "slot.reserved"
	EventSlotFreed    EventTopic = "slot.freed"
)

// SlotEvent payload of slot.* events
type SlotEvent struct {
	BookingID  int64     `json:"bookingId"`
	ResourceID int64     `json:"resourceId"`
	FieldID    int64     `json:"fieldId"`
	Date       string    `json:"date"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
}

// NewSlotEvent builds the event payload for a booking
func NewSlotEvent(b *Booking) SlotEvent {
	return SlotEvent{
		BookingID:  b.ID,
		ResourceID: b.ResourceID,
		FieldID:    b.FieldID,
		Date:       b.BookingDate.Format(DateFormat),
		Start:      b.StartAt,
		End:        b.EndAt,
	}
}
