package reserve_booking

import (
	"errors"
	"net/http"
	"time"

	"github.com/m04kA/SMC-FieldBookingService/internal/api/handlers"
	"github.com/m04kA/SMC-FieldBookingService/internal/api/middleware"
	reserveBooking "github.com/m04kA/SMC-FieldBookingService/internal/usecase/reserve_booking"
)

const (
	msgInvalidRequestBody = "некорректное тело запроса"
	msgValidationFailed   = "ошибка валидации запроса"
	msgMissingUserID      = "отсутствует ID пользователя"
	msgOutsideHours       = "выбранное время вне часов работы поля"
	msgPastWindow         = "нельзя забронировать время, которое уже наступило"
	msgSlotConflict       = "выбранное время уже забронировано"
	msgFacilityExhausted  = "недостаточно свободного инвентаря"
	msgResourceNotFound   = "подполе не найдено"
	msgFacilityNotFound   = "инвентарь не найден"
)

type Handler struct {
	useCase  ReserveBookingUseCase
	location *time.Location
	logger   Logger
}

func NewHandler(useCase ReserveBookingUseCase, location *time.Location, logger Logger) *Handler {
	return &Handler{
		useCase:  useCase,
		location: location,
		logger:   logger,
	}
}

// Handle POST /api/v1/bookings
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}

	var req ReserveBookingRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("POST /bookings - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	if errs := handlers.Validate(req); len(errs) > 0 {
		h.logger.Warn("POST /bookings - Validation failed: user_id=%d, errors=%v", userID, errs)
		handlers.RespondErrorWithDetails(w, http.StatusBadRequest, msgValidationFailed, errs)
		return
	}

	useCaseReq, err := req.ToUseCaseRequest(userID, h.location)
	if err != nil {
		h.logger.Warn("POST /bookings - Failed to parse window: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	result, err := h.useCase.Execute(r.Context(), useCaseReq)
	if err != nil {
		h.respondError(w, userID, req.ResourceID, err)
		return
	}

	h.logger.Info("POST /bookings - Booking created successfully: booking_id=%d, user_id=%d, resource_id=%d",
		result.ID, userID, req.ResourceID)
	handlers.RespondJSON(w, http.StatusCreated, FromUseCaseResponse(result, h.location))
}

func (h *Handler) respondError(w http.ResponseWriter, userID, resourceID int64, err error) {
	var (
		validationErr *reserveBooking.ValidationError
		conflictErr   *reserveBooking.SlotConflictError
		exhaustedErr  *reserveBooking.FacilityExhaustedError
	)

	switch {
	case errors.As(err, &validationErr):
		h.logger.Warn("POST /bookings - Invalid input: user_id=%d, %v", userID, err)
		handlers.RespondErrorWithDetails(w, http.StatusBadRequest, msgValidationFailed, []handlers.FieldError{
			{Field: validationErr.Field, Message: validationErr.Field + " " + validationErr.Message},
		})

	case errors.Is(err, reserveBooking.ErrOutsideOpeningHours):
		h.logger.Warn("POST /bookings - Outside opening hours: user_id=%d, resource_id=%d", userID, resourceID)
		handlers.RespondBadRequest(w, msgOutsideHours)

	case errors.Is(err, reserveBooking.ErrPastWindow):
		h.logger.Warn("POST /bookings - Past window: user_id=%d, resource_id=%d", userID, resourceID)
		handlers.RespondError(w, http.StatusUnprocessableEntity, msgPastWindow)

	case errors.As(err, &conflictErr):
		h.logger.Warn("POST /bookings - Slot conflict: user_id=%d, resource_id=%d, booking_id=%d",
			userID, resourceID, conflictErr.ConflictingBookingID)
		handlers.RespondConflict(w, msgSlotConflict, map[string]interface{}{
			"conflictingBookingId": conflictErr.ConflictingBookingID,
			"start":                conflictErr.Start.In(h.location).Format(time.RFC3339),
			"end":                  conflictErr.End.In(h.location).Format(time.RFC3339),
		})

	case errors.As(err, &exhaustedErr):
		h.logger.Warn("POST /bookings - Facility exhausted: user_id=%d, %v", userID, err)
		handlers.RespondConflict(w, msgFacilityExhausted, map[string]interface{}{
			"facilityId":    exhaustedErr.FacilityID,
			"facilityName":  exhaustedErr.FacilityName,
			"alreadyBooked": exhaustedErr.AlreadyBooked,
			"capacity":      exhaustedErr.Capacity,
			"requested":     exhaustedErr.Requested,
		})

	case errors.Is(err, reserveBooking.ErrResourceNotFound):
		h.logger.Warn("POST /bookings - Resource not found: resource_id=%d", resourceID)
		handlers.RespondNotFound(w, msgResourceNotFound)

	case errors.Is(err, reserveBooking.ErrFacilityNotFound):
		h.logger.Warn("POST /bookings - Facility not found: user_id=%d, %v", userID, err)
		handlers.RespondNotFound(w, msgFacilityNotFound)

	default:
		h.logger.Error("POST /bookings - Failed to reserve: user_id=%d, resource_id=%d, error=%v", userID, resourceID, err)
		handlers.RespondInternalError(w)
	}
}
