package set_status

import (
	"github.com/m04kA/SMC-FieldBookingService/internal/domain"
	"github.com/m04kA/SMC-FieldBookingService/internal/service/bookings/models"
)

// SetStatusRequest HTTP request model
type SetStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=approved rejected complete"`
	Reason string `json:"reason" validate:"max=500"`
}

// ToServiceRequest конвертирует HTTP request в модель сервиса
func (r *SetStatusRequest) ToServiceRequest(userID int64, role domain.Role) *models.SetStatusRequest {
	return &models.SetStatusRequest{
		UserID: userID,
		Role:   role,
		Status: r.Status,
		Reason: r.Reason,
	}
}
