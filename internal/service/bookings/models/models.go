package models

import (
	"time"

	"github.com/m04kA/SMC-FieldBookingService/internal/domain"
)

// Request модели

// SetStatusRequest запрос на смену статуса бронирования
type SetStatusRequest struct {
	UserID int64
	Role   domain.Role
	Status string
	Reason string // причина отклонения (опционально)
}

// CancelBookingRequest запрос на отмену бронирования клиентом или владельцем поля
type CancelBookingRequest struct {
	UserID int64
	Role   domain.Role
}

// AdminDeleteRequest запрос администратора на удаление бронирования
type AdminDeleteRequest struct {
	UserID int64
	Role   domain.Role
}

// GetBookingRequest запрос на получение бронирования
type GetBookingRequest struct {
	UserID int64
	Role   domain.Role
}

// GetUserBookingsRequest запрос на получение бронирований пользователя
type GetUserBookingsRequest struct {
	RequesterID int64
	Role        domain.Role
	UserID      int64
	Status      *string
}

// GetResourceBookingsRequest запрос на получение бронирований подполя
type GetResourceBookingsRequest struct {
	UserID          int64
	Role            domain.Role
	ResourceID      int64
	Date            *time.Time // день бронирования (опционально)
	Status          *string    // фильтр по статусу (опционально)
	IncludeRejected bool
}

// ToDomainFilter конвертирует request в domain фильтр
func (r *GetResourceBookingsRequest) ToDomainFilter() (domain.ResourceBookingsFilter, error) {
	filter := domain.ResourceBookingsFilter{
		ResourceID:      r.ResourceID,
		Date:            r.Date,
		IncludeRejected: r.IncludeRejected,
	}

	if r.Status != nil {
		status, err := domain.ParseBookingStatus(*r.Status)
		if err != nil {
			return filter, err
		}
		filter.Status = &status
		if status == domain.StatusRejected {
			filter.IncludeRejected = true
		}
	}

	return filter, nil
}

// Response модели

// FacilityResponse позиция инвентаря брони
type FacilityResponse struct {
	FacilityID   int64  `json:"facilityId"`
	FacilityName string `json:"facilityName"`
	Quantity     int    `json:"quantity"`
}

// BookingResponse ответ с данными бронирования
type BookingResponse struct {
	ID             int64              `json:"id"`
	UserID         int64              `json:"userId"`
	ResourceID     int64              `json:"resourceId"`
	FieldID        int64              `json:"fieldId"`
	BookingDate    string             `json:"bookingDate"` // "2025-06-01"
	StartTime      string             `json:"startTime"`   // "09:00"
	EndTime        string             `json:"endTime"`     // "10:00"
	Start          time.Time          `json:"start"`
	End            time.Time          `json:"end"`
	SelectedSlots  []string           `json:"selectedSlots"`
	TotalHours     float64            `json:"totalHours"`
	TotalPrice     float64            `json:"totalPrice"`
	TotalRemaining float64            `json:"totalRemaining"`
	PayMethod      string             `json:"payMethod"`
	Activity       string             `json:"activity"`
	Status         string             `json:"status"`
	Facilities     []FacilityResponse `json:"facilities"`
	CreatedAt      time.Time          `json:"createdAt"`
	UpdatedAt      time.Time          `json:"updatedAt"`
}

// BookingListResponse ответ со списком бронирований
type BookingListResponse struct {
	Bookings []BookingResponse `json:"bookings"`
}

// Исходы отмены
const (
	CancelOutcomeRejected = "rejected"
	CancelOutcomeDeleted  = "deleted"
)

// CancelResponse результат отмены бронирования
type CancelResponse struct {
	BookingID    int64      `json:"bookingId"`
	Outcome      string     `json:"outcome"`
	Deadline     *time.Time `json:"deadline,omitempty"`
	BookingStart time.Time  `json:"bookingStart"`
	Message      string     `json:"message"`
}

// Методы конвертации

// FromDomainBooking конвертирует domain модель в DTO, время отображается в поясе loc
func FromDomainBooking(b *domain.Booking, loc *time.Location) *BookingResponse {
	if b == nil {
		return nil
	}

	facilities := make([]FacilityResponse, 0, len(b.Facilities))
	for _, f := range b.Facilities {
		facilities = append(facilities, FacilityResponse{
			FacilityID:   f.FacilityID,
			FacilityName: f.FacilityName,
			Quantity:     f.Quantity,
		})
	}

	slots := b.SelectedSlots
	if slots == nil {
		slots = []string{}
	}

	return &BookingResponse{
		ID:             b.ID,
		UserID:         b.UserID,
		ResourceID:     b.ResourceID,
		FieldID:        b.FieldID,
		BookingDate:    b.BookingDate.Format(domain.DateFormat),
		StartTime:      b.StartTime(loc).String(),
		EndTime:        b.EndTime(loc).String(),
		Start:          b.StartAt.In(loc),
		End:            b.EndAt.In(loc),
		SelectedSlots:  slots,
		TotalHours:     b.TotalHours,
		TotalPrice:     b.TotalPrice,
		TotalRemaining: b.TotalRemaining,
		PayMethod:      b.PayMethod,
		Activity:       b.Activity,
		Status:         string(b.Status),
		Facilities:     facilities,
		CreatedAt:      b.CreatedAt,
		UpdatedAt:      b.UpdatedAt,
	}
}

// FromDomainBookingList конвертирует список domain моделей в DTO
func FromDomainBookingList(bookings []*domain.Booking, loc *time.Location) *BookingListResponse {
	resp := &BookingListResponse{
		Bookings: make([]BookingResponse, 0, len(bookings)),
	}

	for _, booking := range bookings {
		if bookingResp := FromDomainBooking(booking, loc); bookingResp != nil {
			resp.Bookings = append(resp.Bookings, *bookingResp)
		}
	}

	return resp
}
