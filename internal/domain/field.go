package domain

import (
	"time"

	"github.com/m04kA/SMC-FieldBookingService/pkg/types"
)

// Field is a sports venue owned by a field owner
type Field struct {
	ID                  int64
	OwnerID             int64
	Name                string
	OpenTime            types.TimeString
	CloseTime           types.TimeString
	SlotDurationMinutes int
	CancelHours         *int    // nil = no cancellation-notice policy
	PriceDeposit        float64 // 0 = no deposit required
}

// RequiresDeposit returns true if an approved booking must be backed by a deposit proof
func (f *Field) RequiresDeposit() bool {
	return f.PriceDeposit > 0
}

// HasCancelPolicy returns true if cancellations are limited by a notice window
func (f *Field) HasCancelPolicy() bool {
	return f.CancelHours != nil
}

// Resource is a bookable sub-field
type Resource struct {
	ID      int64
	FieldID int64
	Name    string
	Price   float64 // per hour
	Field   *Field
}

// OwnerID returns the owner of the parent field
func (r *Resource) OwnerID() int64 {
	if r.Field == nil {
		return 0
	}
	return r.Field.OwnerID
}

// Facility is a limited-quantity add-on of a field
type Facility struct {
	ID            int64
	FieldID       int64
	Name          string
	QuantityTotal int
	Price         float64
}

// Payment holds deposit and balance proofs for a booking
type Payment struct {
	ID             int64
	BookingID      int64
	DepositSlipURL *string
	TotalSlipURL   *string
	CreatedAt      time.Time
}

// ArtifactURLs returns stored proof artifacts
func (p *Payment) ArtifactURLs() []string {
	urls := make([]string, 0, 2)
	if p.DepositSlipURL != nil && *p.DepositSlipURL != "" {
		urls = append(urls, *p.DepositSlipURL)
	}
	if p.TotalSlipURL != nil && *p.TotalSlipURL != "" {
		urls = append(urls, *p.TotalSlipURL)
	}
	return urls
}
