package get_available_slots

import (
	"time"

	"github.com/m04kA/SMC-FieldBookingService/internal/domain"
	"github.com/m04kA/SMC-FieldBookingService/pkg/timewindow"
)

// markSlots отмечает занятость каждого слота дня.
// Слот свободен, если он ещё не начался и ни одна не отклонённая бронь его не пересекает.
// Граничащие интервалы (бронь 17:00-18:00 и слот 18:00-19:00) не пересекаются.
func markSlots(daySlots []timewindow.Slot, bookings []*domain.Booking, now time.Time) []Slot {
	result := make([]Slot, len(daySlots))

	for i, s := range daySlots {
		available := &domain.AvailableSlot{Label: s.Label, Start: s.Start, End: s.End, Available: true}

		for _, b := range bookings {
			if !b.IsActive() {
				continue
			}
			if b.Window().Overlaps(s.Window) {
				available.Available = false
				available.BookingID = &b.ID
				break
			}
		}

		past := available.IsPast(now)
		result[i] = Slot{
			Label:     s.Label,
			Start:     s.Start,
			End:       s.End,
			Available: available.Available && !past,
			Past:      past,
		}
	}

	return result
}

// scheduleSpan возвращает окно от начала первого до конца последнего слота
func scheduleSpan(daySlots []timewindow.Slot) timewindow.Window {
	return timewindow.Window{
		Start: daySlots[0].Start,
		End:   daySlots[len(daySlots)-1].End,
	}
}
