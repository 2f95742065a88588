package get_available_slots

import (
	"time"

	"github.com/m04kA/SMC-FieldBookingService/pkg/types"
)

// Request модель запроса на получение слотов подполя
type Request struct {
	ResourceID int64
	Date       time.Time // день расписания (время игнорируется)
}

// Response модель ответа со слотами дня
type Response struct {
	ResourceID          int64
	FieldID             int64
	Date                time.Time
	OpenTime            types.TimeString
	CloseTime           types.TimeString
	SlotDurationMinutes int
	HourlyPrice         float64
	Slots               []Slot
}

// Slot модель слота расписания
type Slot struct {
	Label     string // "18:00-19:00"
	Start     time.Time
	End       time.Time
	Available bool
	Past      bool
}
