package reserve_booking

import (
	"fmt"
	"strings"
	"time"

	"github.com/jinzhu/now"

	"github.com/m04kA/SMC-FieldBookingService/internal/domain"
	"github.com/m04kA/SMC-FieldBookingService/pkg/timewindow"
)

// validateRequest валидирует входные данные запроса
func validateRequest(req *Request) error {
	if req.UserID <= 0 {
		return &ValidationError{Field: "userId", Message: "must be positive"}
	}

	if req.ResourceID <= 0 {
		return &ValidationError{Field: "resourceId", Message: "must be positive"}
	}

	if req.Start.IsZero() || req.End.IsZero() {
		return &ValidationError{Field: "window", Message: "start and end are required"}
	}

	if !req.Start.Before(req.End) {
		return &ValidationError{Field: "window", Message: "start must be before end"}
	}

	if req.End.Sub(req.Start) > domain.MaxBookingHours*time.Hour {
		return &ValidationError{Field: "window", Message: fmt.Sprintf("must not exceed %d hours", domain.MaxBookingHours)}
	}

	activity := strings.TrimSpace(req.Activity)
	if activity == "" {
		return &ValidationError{Field: "activity", Message: "is required"}
	}
	if len(activity) > domain.MaxActivityLength {
		return &ValidationError{Field: "activity", Message: fmt.Sprintf("must not exceed %d characters", domain.MaxActivityLength)}
	}

	if len(req.PayMethod) > domain.MaxPayMethodLength {
		return &ValidationError{Field: "payMethod", Message: fmt.Sprintf("must not exceed %d characters", domain.MaxPayMethodLength)}
	}

	if len(req.Facilities) > domain.MaxFacilityLines {
		return &ValidationError{Field: "facilities", Message: fmt.Sprintf("must not exceed %d lines", domain.MaxFacilityLines)}
	}

	for _, f := range req.Facilities {
		if f.FacilityID <= 0 {
			return &ValidationError{Field: "facilities.facilityId", Message: "must be positive"}
		}
		if f.Quantity <= 0 {
			return &ValidationError{Field: "facilities.quantity", Message: "must be positive"}
		}
	}

	return nil
}

// placeInSchedule находит рабочий день поля, в часы которого целиком попадает окно,
// и возвращает этот день и метки покрытых слотов.
// Для полей, работающих после полуночи, окно может относиться к расписанию предыдущего дня.
func placeInSchedule(field *domain.Field, window timewindow.Window, loc *time.Location) (time.Time, []string, error) {
	day := now.With(window.Start.In(loc)).BeginningOfDay()

	for _, candidate := range []time.Time{day, day.AddDate(0, 0, -1)} {
		slots, err := timewindow.DaySlots(candidate, field.OpenTime, field.CloseTime, field.SlotDurationMinutes, loc)
		if err != nil {
			return time.Time{}, nil, fmt.Errorf("%w: failed to build schedule: %v", ErrInternal, err)
		}
		if len(slots) == 0 {
			break
		}

		opens := slots[0].Start
		closes := slots[len(slots)-1].End
		if window.Start.Before(opens) || window.End.After(closes) {
			continue
		}

		labels := make([]string, 0, len(slots))
		for _, slot := range slots {
			if slot.Window.Overlaps(window) {
				labels = append(labels, slot.Label)
			}
		}
		return candidate, labels, nil
	}

	return time.Time{}, nil, fmt.Errorf("%w: field is open %s-%s", ErrOutsideOpeningHours, field.OpenTime, field.CloseTime)
}
