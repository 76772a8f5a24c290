package enums

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBookingStatusTransitions(t *testing.T) {
	t.Parallel()

	assert.True(t, BookingStatusPending.CanTransitionTo(BookingStatusConfirmed))
	assert.True(t, BookingStatusPending.CanTransitionTo(BookingStatusCancelled))
	assert.True(t, BookingStatusConfirmed.CanTransitionTo(BookingStatusCompleted))
	assert.True(t, BookingStatusConfirmed.CanTransitionTo(BookingStatusOwnerConfirmed))
	assert.True(t, BookingStatusOwnerConfirmed.CanTransitionTo(BookingStatusCompleted))

	assert.False(t, BookingStatusPending.CanTransitionTo(BookingStatusCompleted))
	assert.False(t, BookingStatusCancelled.CanTransitionTo(BookingStatusPending))
	assert.False(t, BookingStatusCompleted.CanTransitionTo(BookingStatusCancelled))
	assert.False(t, BookingStatusConfirmed.CanTransitionTo(BookingStatusCancelled))
}

func TestOccupyingBookingStatuses(t *testing.T) {
	t.Parallel()

	assert.ElementsMatch(t, []BookingStatus{
		BookingStatusPending,
		BookingStatusConfirmed,
		BookingStatusOwnerConfirmed,
	}, OccupyingBookingStatuses)
}

func TestStatusValidity(t *testing.T) {
	t.Parallel()

	assert.True(t, BookingStatusConfirmed.IsValid())
	assert.False(t, BookingStatus("ghost").IsValid())
	assert.True(t, PaymentStatusPaid.IsValid())
	assert.False(t, PaymentStatus("settled").IsValid())
	assert.True(t, PayoutStatusProcessing.IsValid())
	assert.False(t, PayoutStatus("stuck").IsValid())
}

func TestPaymentStatusFinality(t *testing.T) {
	t.Parallel()

	assert.False(t, PaymentStatusPending.IsFinal())
	assert.True(t, PaymentStatusPaid.IsFinal())
	assert.True(t, PaymentStatusFailed.IsFinal())
}
