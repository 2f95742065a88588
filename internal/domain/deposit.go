package domain

import "time"

// DepositOverdue reports whether an approved booking lost its hold because no deposit proof arrived in time.
//
// All of the following must hold:
//   - status is approved or complete;
//   - the field requires a deposit;
//   - no payment row exists;
//   - either the grace period after approval has elapsed, or the booking was approved within
//     LateApprovalWindow of kickoff and kickoff has been reached.
func DepositOverdue(b *Booking, requiresDeposit bool, hasPayment bool, now time.Time) bool {
	if b.Status != StatusApproved && b.Status != StatusComplete {
		return false
	}
	if !requiresDeposit || hasPayment {
		return false
	}

	if now.After(b.UpdatedAt.Add(DepositProofGrace)) {
		return true
	}

	approvedLate := !b.UpdatedAt.Before(b.StartAt.Add(-LateApprovalWindow))
	return approvedLate && !now.Before(b.StartAt)
}

// MinutesUntilStart returns whole minutes from now to the booking start, truncated toward zero
func MinutesUntilStart(b *Booking, now time.Time) int {
	return int(b.StartAt.Sub(now) / time.Minute)
}
