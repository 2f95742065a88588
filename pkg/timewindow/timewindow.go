// Package timewindow содержит чистые функции для работы с временными окнами:
// генерация слотов, проверка пересечения полуоткрытых интервалов, расчёт дедлайнов.
// Все функции детерминированы и работают в одном часовом поясе, который передаётся явно.
package timewindow

import (
	"errors"
	"fmt"
	"time"

	"github.com/m04kA/SMC-FieldBookingService/pkg/types"
)

const minutesPerDay = 24 * 60

var (
	// ErrEmptyWindow окно с началом не раньше конца
	ErrEmptyWindow = errors.New("timewindow: start must be before end")

	// ErrInvalidSlotDuration неположительная длительность слота
	ErrInvalidSlotDuration = errors.New("timewindow: slot duration must be positive")
)

// Window полуоткрытый интервал [Start, End)
type Window struct {
	Start time.Time
	End   time.Time
}

// New создает окно и проверяет, что оно не пустое
func New(start, end time.Time) (Window, error) {
	if !start.Before(end) {
		return Window{}, fmt.Errorf("%w: [%s, %s)", ErrEmptyWindow, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return Window{Start: start, End: end}, nil
}

// Overlaps проверка пересечения [aStart, aEnd) и [bStart, bEnd).
// Смежные интервалы (aEnd == bStart) не пересекаются.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

func (w Window) Overlaps(other Window) bool {
	return Overlaps(w.Start, w.End, other.Start, other.End)
}

func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// Hours длительность в часах
func (w Window) Hours() float64 {
	return w.Duration().Hours()
}

// In переводит окно в часовой пояс loc
func (w Window) In(loc *time.Location) Window {
	return Window{Start: w.Start.In(loc), End: w.End.In(loc)}
}

func (w Window) String() string {
	return fmt.Sprintf("[%s, %s)", w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339))
}

// CancelDeadline последний момент бесплатной отмены: начало брони минус cancelHours
func CancelDeadline(bookingStart time.Time, cancelHours int) time.Time {
	return bookingStart.Add(-time.Duration(cancelHours) * time.Hour)
}

// Slot слот расписания с меткой вида "09:00-10:00"
type Slot struct {
	Label string
	Window
}

// SlotsFor генерирует метки слотов между open и close с шагом slotMinutes.
// Открытие округляется вверх, закрытие вниз до границы слота (кратной slotMinutes от полуночи).
// Если close <= open, окно переходит через полночь.
func SlotsFor(open, close types.TimeString, slotMinutes int) ([]string, error) {
	offsets, err := slotOffsets(open, close, slotMinutes)
	if err != nil {
		return nil, err
	}

	labels := make([]string, 0, len(offsets))
	for _, start := range offsets {
		labels = append(labels, label(start, start+slotMinutes))
	}
	return labels, nil
}

// DaySlots то же, что SlotsFor, но с конкретными окнами для дня day в поясе loc
func DaySlots(day time.Time, open, close types.TimeString, slotMinutes int, loc *time.Location) ([]Slot, error) {
	offsets, err := slotOffsets(open, close, slotMinutes)
	if err != nil {
		return nil, err
	}

	d := day.In(loc)
	midnight := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)

	slots := make([]Slot, 0, len(offsets))
	for _, start := range offsets {
		end := start + slotMinutes
		slots = append(slots, Slot{
			Label: label(start, end),
			Window: Window{
				Start: midnight.Add(time.Duration(start) * time.Minute),
				End:   midnight.Add(time.Duration(end) * time.Minute),
			},
		})
	}
	return slots, nil
}

// slotOffsets возвращает начала слотов в минутах от полуночи дня открытия
func slotOffsets(open, close types.TimeString, slotMinutes int) ([]int, error) {
	if slotMinutes <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSlotDuration, slotMinutes)
	}

	openMin, err := open.Minutes()
	if err != nil {
		return nil, err
	}
	closeMin, err := close.Minutes()
	if err != nil {
		return nil, err
	}
	if closeMin <= openMin {
		closeMin += minutesPerDay
	}

	first := ceilTo(openMin, slotMinutes)
	last := floorTo(closeMin, slotMinutes)

	offsets := make([]int, 0)
	for start := first; start+slotMinutes <= last; start += slotMinutes {
		offsets = append(offsets, start)
	}
	return offsets, nil
}

func label(startMin, endMin int) string {
	return fmt.Sprintf("%s-%s", types.FromMinutes(startMin), types.FromMinutes(endMin))
}

func ceilTo(v, step int) int {
	if v%step == 0 {
		return v
	}
	return (v/step + 1) * step
}

func floorTo(v, step int) int {
	return v / step * step
}
