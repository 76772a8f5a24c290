package enums

// BookingStatus describes the canonical booking lifecycle state.
type BookingStatus string

const (
	BookingStatusPending        BookingStatus = "pending"
	BookingStatusConfirmed      BookingStatus = "confirmed"
	BookingStatusOwnerConfirmed BookingStatus = "owner_confirmed"
	BookingStatusCompleted      BookingStatus = "completed"
	BookingStatusCancelled      BookingStatus = "cancelled"
)

var validBookingStatuses = []BookingStatus{
	BookingStatusPending,
	BookingStatusConfirmed,
	BookingStatusOwnerConfirmed,
	BookingStatusCompleted,
	BookingStatusCancelled,
}

// OccupyingBookingStatuses are the statuses that reserve a slot against
// conflicting bookings. Cancelled and completed bookings never block a slot.
var OccupyingBookingStatuses = []BookingStatus{
	BookingStatusPending,
	BookingStatusConfirmed,
	BookingStatusOwnerConfirmed,
}

// IsValid reports whether the value matches the canonical booking status enum.
func (b BookingStatus) IsValid() bool {
	for _, candidate := range validBookingStatuses {
		if candidate == b {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether the lifecycle permits moving to next.
// pending -> confirmed|cancelled; confirmed -> owner_confirmed|completed;
// owner_confirmed -> completed.
func (b BookingStatus) CanTransitionTo(next BookingStatus) bool {
	switch b {
	case BookingStatusPending:
		return next == BookingStatusConfirmed || next == BookingStatusCancelled
	case BookingStatusConfirmed:
		return next == BookingStatusOwnerConfirmed || next == BookingStatusCompleted
	case BookingStatusOwnerConfirmed:
		return next == BookingStatusCompleted
	default:
		return false
	}
}
