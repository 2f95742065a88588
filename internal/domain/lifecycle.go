package domain

import "fmt"

// Actor is who initiates a status change
type Actor string

const (
	ActorCustomer Actor = "customer"
	ActorOwner    Actor = "owner"
	ActorAdmin    Actor = "admin"
	ActorReaper   Actor = "reaper"
)

// Role is the role resolved by the identity gateway
type Role string

const (
	RoleCustomer Role = "customer"
	RoleOwner    Role = "owner"
	RoleAdmin    Role = "admin"
)

// ParseRole returns the role, unknown values fall back to customer
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleOwner, RoleAdmin:
		return Role(s)
	default:
		return RoleCustomer
	}
}

// transitions is the lifecycle graph for explicit status changes: from -> to -> actors allowed to perform it.
// complete -> rejected exists only for the reaper (deposit never supplied).
// Customers are absent: they leave only through Booking.Cancel, which is subject to the cancellation deadline.
var transitions = map[BookingStatus]map[BookingStatus][]Actor{
	StatusPending: {
		StatusApproved: {ActorOwner, ActorAdmin},
		StatusRejected: {ActorOwner, ActorAdmin},
	},
	StatusApproved: {
		StatusComplete: {ActorOwner, ActorAdmin},
		StatusRejected: {ActorOwner, ActorAdmin, ActorReaper},
	},
	StatusComplete: {
		StatusRejected: {ActorReaper},
	},
}

// ParseBookingStatus converts a raw string into a known status
func ParseBookingStatus(s string) (BookingStatus, error) {
	switch st := BookingStatus(s); st {
	case StatusPending, StatusApproved, StatusRejected, StatusComplete:
		return st, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
}

// CanTransition reports whether actor may move a booking from -> to
func CanTransition(from, to BookingStatus, actor Actor) bool {
	for _, allowed := range transitions[from][to] {
		if allowed == actor {
			return true
		}
	}
	return false
}

// IsTerminal returns true if no actor can leave the status
func (s BookingStatus) IsTerminal() bool {
	return len(transitions[s]) == 0
}

func (s BookingStatus) String() string {
	return string(s)
}
