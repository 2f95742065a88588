package get_booking

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/m04kA/SMC-FieldBookingService/internal/api/handlers"
	"github.com/m04kA/SMC-FieldBookingService/internal/api/middleware"
	"github.com/m04kA/SMC-FieldBookingService/internal/service/bookings"
	"github.com/m04kA/SMC-FieldBookingService/internal/service/bookings/models"
)

const (
	msgInvalidBookingID = "некорректный ID бронирования"
	msgBookingNotFound  = "бронирование не найдено"
	msgResourceNotFound = "площадка бронирования не найдена"
	msgMissingUserID    = "отсутствует ID пользователя"
	msgForbidden        = "бронирование доступно только клиенту, владельцу поля и администратору"
)

type Handler struct {
	service BookingService
	logger  Logger
}

func NewHandler(service BookingService, logger Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Handle GET /api/v1/bookings/{bookingId}
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	rawID := mux.Vars(r)["bookingId"]
	bookingID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || bookingID <= 0 {
		h.logger.Warn("GET /bookings/{id} - Invalid booking ID: %q", rawID)
		handlers.RespondErrorWithDetails(w, http.StatusBadRequest, msgInvalidBookingID, map[string]interface{}{
			"bookingId": rawID,
		})
		return
	}

	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		h.logger.Warn("GET /bookings/{id} - Missing user ID")
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}
	role := middleware.GetRole(r.Context())

	// Сервис сам проверит права доступа
	booking, err := h.service.GetByID(r.Context(), bookingID, &models.GetBookingRequest{
		UserID: userID,
		Role:   role,
	})
	if err != nil {
		h.respondError(w, err, bookingID, userID, string(role))
		return
	}

	h.logger.Info("GET /bookings/{id} - Booking retrieved successfully: booking_id=%d, user_id=%d",
		bookingID, userID)
	// Бронь содержит контакты клиента
	w.Header().Set("Cache-Control", "no-store")
	handlers.RespondJSON(w, http.StatusOK, booking)
}

func (h *Handler) respondError(w http.ResponseWriter, err error, bookingID, userID int64, role string) {
	switch {
	case errors.Is(err, bookings.ErrBookingNotFound):
		h.logger.Warn("GET /bookings/{id} - Booking not found: booking_id=%d", bookingID)
		handlers.RespondErrorWithDetails(w, http.StatusNotFound, msgBookingNotFound, map[string]interface{}{
			"bookingId": bookingID,
		})

	case errors.Is(err, bookings.ErrResourceNotFound):
		// Бронь есть, но её площадка удалена: владельца поля определить нельзя
		h.logger.Warn("GET /bookings/{id} - Resource of booking not found: booking_id=%d, error=%v", bookingID, err)
		handlers.RespondErrorWithDetails(w, http.StatusNotFound, msgResourceNotFound, map[string]interface{}{
			"bookingId": bookingID,
		})

	case errors.Is(err, bookings.ErrAccessDenied):
		h.logger.Warn("GET /bookings/{id} - Access denied: booking_id=%d, user_id=%d, role=%s", bookingID, userID, role)
		handlers.RespondErrorWithDetails(w, http.StatusForbidden, msgForbidden, map[string]interface{}{
			"bookingId": bookingID,
			"userId":    userID,
			"role":      role,
		})

	default:
		h.logger.Error("GET /bookings/{id} - Failed to get booking: booking_id=%d, error=%v", bookingID, err)
		handlers.RespondInternalError(w)
	}
}
