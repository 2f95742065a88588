package get_available_slots

import (
	"time"

	"github.com/m04kA/SMC-FieldBookingService/internal/domain"
	getAvailableSlots "github.com/m04kA/SMC-FieldBookingService/internal/usecase/get_available_slots"
)

// AvailableSlotsResponse HTTP response model
type AvailableSlotsResponse struct {
	Date                string          `json:"date"`
	ResourceID          int64           `json:"resourceId"`
	FieldID             int64           `json:"fieldId"`
	OpenTime            string          `json:"openTime"`
	CloseTime           string          `json:"closeTime"`
	SlotDurationMinutes int             `json:"slotDurationMinutes"`
	HourlyPrice         float64         `json:"hourlyPrice"`
	Slots               []AvailableSlot `json:"slots"`
}

// AvailableSlot модель слота
type AvailableSlot struct {
	Label     string `json:"label"`
	Start     string `json:"start"`
	End       string `json:"end"`
	Available bool   `json:"available"`
	Past      bool   `json:"past"`
}

// ToUseCaseRequest формирует запрос к use case
func ToUseCaseRequest(resourceID int64, dateStr string, loc *time.Location) (*getAvailableSlots.Request, error) {
	date, err := time.ParseInLocation(domain.DateFormat, dateStr, loc)
	if err != nil {
		return nil, err
	}

	return &getAvailableSlots.Request{
		ResourceID: resourceID,
		Date:       date,
	}, nil
}

// FromUseCaseResponse конвертирует ответ use case в HTTP response
func FromUseCaseResponse(resp *getAvailableSlots.Response) *AvailableSlotsResponse {
	slots := make([]AvailableSlot, len(resp.Slots))
	for i, slot := range resp.Slots {
		slots[i] = AvailableSlot{
			Label:     slot.Label,
			Start:     slot.Start.Format(time.RFC3339),
			End:       slot.End.Format(time.RFC3339),
			Available: slot.Available,
			Past:      slot.Past,
		}
	}

	return &AvailableSlotsResponse{
		Date:                resp.Date.Format(domain.DateFormat),
		ResourceID:          resp.ResourceID,
		FieldID:             resp.FieldID,
		OpenTime:            resp.OpenTime.String(),
		CloseTime:           resp.CloseTime.String(),
		SlotDurationMinutes: resp.SlotDurationMinutes,
		HourlyPrice:         resp.HourlyPrice,
		Slots:               slots,
	}
}
