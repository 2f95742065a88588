package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrIllegalTransition status change not permitted from the current state or by the actor
	ErrIllegalTransition = errors.New("domain: illegal status transition")

	// ErrUnknownStatus status string outside the lifecycle
	ErrUnknownStatus = errors.New("domain: unknown booking status")
)

// TransitionError describes a rejected status change
type TransitionError struct {
	From  BookingStatus
	To    BookingStatus
	Actor Actor
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s -> %s by %s", ErrIllegalTransition, e.From, e.To, e.Actor)
}

func (e *TransitionError) Unwrap() error {
	return ErrIllegalTransition
}
