package get_resource_bookings

import (
	"fmt"
	"strconv"
	"time"

	"github.com/m04kA/SMC-FieldBookingService/internal/domain"
	"github.com/m04kA/SMC-FieldBookingService/internal/service/bookings/models"
)

// ToServiceRequest формирует запрос к сервису из query параметров
func ToServiceRequest(
	resourceID int64,
	userID int64,
	role domain.Role,
	statusStr string,
	dateStr string,
	includeRejectedStr string,
	loc *time.Location,
) (*models.GetResourceBookingsRequest, error) {
	req := &models.GetResourceBookingsRequest{
		UserID:     userID,
		Role:       role,
		ResourceID: resourceID,
	}

	if statusStr != "" {
		req.Status = &statusStr
	}

	if dateStr != "" {
		date, err := time.ParseInLocation(domain.DateFormat, dateStr, loc)
		if err != nil {
			return nil, err
		}
		req.Date = &date
	}

	if includeRejectedStr != "" {
		includeRejected, err := strconv.ParseBool(includeRejectedStr)
		if err != nil {
			return nil, fmt.Errorf("invalid includeRejected value: %w", err)
		}
		req.IncludeRejected = includeRejected
	}

	return req, nil
}
