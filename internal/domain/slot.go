package domain

import "time"

// AvailableSlot represents a schedule slot of a sub-field on a given day
type AvailableSlot struct {
	Label     string // "09:00-10:00"
	Start     time.Time
	End       time.Time
	Available bool
	BookingID *int64 // occupying booking, if any
}

// IsPast returns true if the slot has already started
func (s *AvailableSlot) IsPast(now time.Time) bool {
	return !s.Start.After(now)
}
