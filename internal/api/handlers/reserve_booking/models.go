package reserve_booking

import (
	"time"

	"github.com/m04kA/SMC-FieldBookingService/internal/domain"
	reserveBooking "github.com/m04kA/SMC-FieldBookingService/internal/usecase/reserve_booking"
	"github.com/m04kA/SMC-FieldBookingService/pkg/types"
)

// FacilityLine HTTP модель позиции инвентаря
type FacilityLine struct {
	FacilityID int64 `json:"facilityId" validate:"required,gt=0"`
	Quantity   int   `json:"quantity" validate:"required,gt=0"`
}

// ReserveBookingRequest HTTP request model.
// Если endTime не позже startTime, окно заканчивается на следующий день.
type ReserveBookingRequest struct {
	ResourceID  int64          `json:"resourceId" validate:"required,gt=0"`
	BookingDate string         `json:"bookingDate" validate:"required,datetime=2006-01-02"` // "2025-06-01"
	StartTime   string         `json:"startTime" validate:"required,datetime=15:04"`        // "18:00"
	EndTime     string         `json:"endTime" validate:"required,datetime=15:04"`          // "19:30"
	Facilities  []FacilityLine `json:"facilities,omitempty" validate:"max=20,dive"`
	Activity    string         `json:"activity" validate:"required,max=100"`
	PayMethod   string         `json:"payMethod,omitempty" validate:"max=50"`
}

// FacilityResponse HTTP модель зарезервированного инвентаря
type FacilityResponse struct {
	FacilityID   int64  `json:"facilityId"`
	FacilityName string `json:"facilityName"`
	Quantity     int    `json:"quantity"`
}

// BookingResponse HTTP response model
type BookingResponse struct {
	ID             int64              `json:"id"`
	UserID         int64              `json:"userId"`
	ResourceID     int64              `json:"resourceId"`
	FieldID        int64              `json:"fieldId"`
	BookingDate    string             `json:"bookingDate"`
	Start          string             `json:"start"`
	End            string             `json:"end"`
	SelectedSlots  []string           `json:"selectedSlots"`
	TotalHours     float64            `json:"totalHours"`
	TotalPrice     float64            `json:"totalPrice"`
	Deposit        float64            `json:"deposit"`
	TotalRemaining float64            `json:"totalRemaining"`
	PayMethod      string             `json:"payMethod"`
	Activity       string             `json:"activity"`
	Status         string             `json:"status"`
	Facilities     []FacilityResponse `json:"facilities"`
	CreatedAt      string             `json:"createdAt"`
}

// ToUseCaseRequest конвертирует HTTP запрос в модель use case.
// Формат полей уже проверен валидатором.
func (r *ReserveBookingRequest) ToUseCaseRequest(userID int64, loc *time.Location) (*reserveBooking.Request, error) {
	day, err := time.ParseInLocation(domain.DateFormat, r.BookingDate, loc)
	if err != nil {
		return nil, err
	}

	start, err := types.TimeString(r.StartTime).On(day, loc)
	if err != nil {
		return nil, err
	}
	end, err := types.TimeString(r.EndTime).On(day, loc)
	if err != nil {
		return nil, err
	}
	if !end.After(start) {
		end = end.AddDate(0, 0, 1)
	}

	facilities := make([]reserveBooking.FacilityRequest, 0, len(r.Facilities))
	for _, f := range r.Facilities {
		facilities = append(facilities, reserveBooking.FacilityRequest{FacilityID: f.FacilityID, Quantity: f.Quantity})
	}

	return &reserveBooking.Request{
		UserID:     userID,
		ResourceID: r.ResourceID,
		Start:      start,
		End:        end,
		Facilities: facilities,
		Activity:   r.Activity,
		PayMethod:  r.PayMethod,
	}, nil
}

// FromUseCaseResponse конвертирует ответ use case в HTTP response
func FromUseCaseResponse(resp *reserveBooking.Response, loc *time.Location) *BookingResponse {
	facilities := make([]FacilityResponse, 0, len(resp.Facilities))
	for _, f := range resp.Facilities {
		facilities = append(facilities, FacilityResponse{
			FacilityID:   f.FacilityID,
			FacilityName: f.FacilityName,
			Quantity:     f.Quantity,
		})
	}

	return &BookingResponse{
		ID:             resp.ID,
		UserID:         resp.UserID,
		ResourceID:     resp.ResourceID,
		FieldID:        resp.FieldID,
		BookingDate:    resp.BookingDate.Format(domain.DateFormat),
		Start:          resp.Start.In(loc).Format(time.RFC3339),
		End:            resp.End.In(loc).Format(time.RFC3339),
		SelectedSlots:  resp.SelectedSlots,
		TotalHours:     resp.TotalHours,
		TotalPrice:     resp.TotalPrice,
		Deposit:        resp.Deposit,
		TotalRemaining: resp.TotalRemaining,
		PayMethod:      resp.PayMethod,
		Activity:       resp.Activity,
		Status:         resp.Status,
		Facilities:     facilities,
		CreatedAt:      resp.CreatedAt.Format(time.RFC3339),
	}
}
