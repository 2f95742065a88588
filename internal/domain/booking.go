package domain

import (
	"time"

	"github.com/m04kA/SMC-FieldBookingService/pkg/timewindow"
	"github.com/m04kA/SMC-FieldBookingService/pkg/types"
)

// BookingStatus represents the status of a booking
type BookingStatus string

const (
	StatusPending  BookingStatus = "pending"
	StatusApproved BookingStatus = "approved"
	StatusRejected BookingStatus = "rejected"
	StatusComplete BookingStatus = "complete"
)

// Booking represents a reservation of a sub-field for a time window
type Booking struct {
	ID         int64
	UserID     int64 // customer who created the booking
	ResourceID int64 // sub-field
	FieldID    int64 // owning field, denormalized for capacity queries

	BookingDate   time.Time // calendar day used for daily grouping
	StartAt       time.Time
	EndAt         time.Time
	SelectedSlots []string

	TotalHours     float64
	TotalPrice     float64
	TotalRemaining float64 // rental balance due after the deposit, facilities excluded
	PayMethod      string
	Activity       string

	Status BookingStatus

	// UpdatedAt is stamped when the booking becomes approved and anchors the deposit deadline
	UpdatedAt time.Time
	CreatedAt time.Time

	UpcomingNotifiedAt *time.Time
	StartNotifiedAt    *time.Time

	Facilities []FacilityAllocation
}

// FacilityAllocation is a quantity of a facility reserved together with a booking
type FacilityAllocation struct {
	ID           int64
	BookingID    int64
	FieldID      int64
	FacilityID   int64
	FacilityName string // snapshot at reservation time
	Quantity     int
}

// Window returns the half-open occupancy interval of the booking
func (b *Booking) Window() timewindow.Window {
	return timewindow.Window{Start: b.StartAt, End: b.EndAt}
}

// StartDate returns the calendar day of the booking start in loc
func (b *Booking) StartDate(loc *time.Location) string {
	return b.StartAt.In(loc).Format(DateFormat)
}

// StartTime returns the wall-clock start in loc
func (b *Booking) StartTime(loc *time.Location) types.TimeString {
	return types.NewTimeString(b.StartAt.In(loc))
}

// EndTime returns the wall-clock end in loc
func (b *Booking) EndTime(loc *time.Location) types.TimeString {
	return types.NewTimeString(b.EndAt.In(loc))
}

// IsActive returns true if the booking still occupies its slot
func (b *Booking) IsActive() bool {
	return b.Status != StatusRejected
}

// CanBeCancelled returns true if the booking can be cancelled by the customer or the owner
func (b *Booking) CanBeCancelled() bool {
	return b.Status == StatusPending || b.Status == StatusApproved
}

// TransitionTo moves the booking into status `to` on behalf of actor.
// Returns *TransitionError when the lifecycle graph does not allow it.
func (b *Booking) TransitionTo(to BookingStatus, actor Actor) error {
	if !CanTransition(b.Status, to, actor) {
		return &TransitionError{From: b.Status, To: to, Actor: actor}
	}
	b.Status = to
	return nil
}

// Cancel withdraws a pending or approved booking into rejected.
// Unlike TransitionTo it admits the customer; the deadline rule belongs to the caller.
func (b *Booking) Cancel(actor Actor) error {
	if !b.CanBeCancelled() || actor == ActorReaper {
		return &TransitionError{From: b.Status, To: StatusRejected, Actor: actor}
	}
	b.Status = StatusRejected
	return nil
}

// Price returns the booking total and the amount still owed for the rental.
// Facility cost is part of the total but is settled separately, so it is excluded from remaining.
func Price(hours, hourlyPrice, facilityCost, deposit float64) (total, remaining float64) {
	total = hours*hourlyPrice + facilityCost
	return total, total - deposit - facilityCost
}

// ResourceBookingsFilter filter for bookings of a single sub-field
type ResourceBookingsFilter struct {
	ResourceID      int64
	Date            *time.Time     // booking_date, optional
	Status          *BookingStatus // optional
	IncludeRejected bool
}
