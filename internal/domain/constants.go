package domain

import "time"

// Time format constants
const (
	TimeFormat = "15:04"      // HH:MM
	DateFormat = "2006-01-02" // YYYY-MM-DD
)

// Business validation constants
const (
	MaxActivityLength  = 100
	MaxPayMethodLength = 50
	MaxReasonLength    = 500
	MaxFacilityLines   = 20
	MaxBookingHours    = 24
)

// Deposit enforcement
const (
	// DepositProofGrace time after approval to upload a deposit proof
	DepositProofGrace = 60 * time.Minute
	// LateApprovalWindow approvals this close to kickoff expire at kickoff
	LateApprovalWindow = 10 * time.Minute
)

// Proximity notifications, minutes before start
const (
	UpcomingNoticeFromMinutes = 29
	UpcomingNoticeToMinutes   = 31
)

// ActiveStatuses statuses that occupy a slot
var ActiveStatuses = []BookingStatus{
	StatusPending,
	StatusApproved,
	StatusComplete,
}

// DepositTrackedStatuses statuses checked by deposit expiry
var DepositTrackedStatuses = []BookingStatus{
	StatusApproved,
	StatusComplete,
}

// ProximityStatuses statuses that receive proximity notifications
var ProximityStatuses = []BookingStatus{
	StatusPending,
	StatusApproved,
}
