package entity

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBooking_Transitions(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	other := uuid.New()
	ops := map[string]func(b *Booking) error{
		"confirm":  func(b *Booking) error { return b.Confirm() },
		"cancel":   func(b *Booking) error { return b.Cancel(now, "patient unwell", "admin:1") },
		"complete": func(b *Booking) error { return b.Complete(now) },
		"reassign": func(b *Booking) error { return b.Reassign(other) },
	}

	tests := []struct {
		from BookingStatus
		op   string
		to   BookingStatus
		ok   bool
	}{
		{BookingStatusPending, "confirm", BookingStatusConfirmed, true},
		{BookingStatusConfirmed, "confirm", "", false},
		{BookingStatusCompleted, "confirm", "", false},
		{BookingStatusCancelled, "confirm", "", false},

		{BookingStatusPending, "cancel", BookingStatusCancelled, true},
		{BookingStatusConfirmed, "cancel", BookingStatusCancelled, true},
		{BookingStatusCompleted, "cancel", "", false},
		{BookingStatusCancelled, "cancel", "", false},

		{BookingStatusPending, "complete", "", false},
		{BookingStatusConfirmed, "complete", BookingStatusCompleted, true},
		{BookingStatusCompleted, "complete", "", false},
		{BookingStatusCancelled, "complete", "", false},

		{BookingStatusPending, "reassign", BookingStatusPending, true},
		{BookingStatusConfirmed, "reassign", BookingStatusConfirmed, true},
		{BookingStatusCompleted, "reassign", "", false},
		{BookingStatusCancelled, "reassign", "", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_"+tt.op, func(t *testing.T) {
			b := &Booking{Status: tt.from, ProviderID: uuid.New()}
			err := ops[tt.op](b)
			if !tt.ok {
				assert.ErrorIs(t, err, ErrInvalidTransition)
				assert.Equal(t, tt.from, b.Status)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.to, b.Status)
		})
	}
}

func TestBooking_CancelRecordsWhoAndWhy(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	b := &Booking{Status: BookingStatusConfirmed}

	require.NoError(t, b.Cancel(now, "patient unwell", "user:1"))
	require.NotNil(t, b.CancelledAt)
	assert.True(t, now.Equal(*b.CancelledAt))
	assert.Equal(t, "patient unwell", b.CancellationReason)
	assert.Equal(t, "user:1", b.CancelledBy)
}

func TestBooking_ReassignNeedsAnotherProvider(t *testing.T) {
	current := uuid.New()
	b := &Booking{Status: BookingStatusConfirmed, ProviderID: current}

	assert.ErrorIs(t, b.Reassign(current), ErrInvalidTransition)
	assert.ErrorIs(t, b.Reassign(uuid.Nil), ErrInvalidTransition)
	assert.Equal(t, current, b.ProviderID)
}

func TestBooking_OwnedBy(t *testing.T) {
	userID := uuid.New()
	guest := GuestOwner(NewGuestToken())
	b := &Booking{OwnerKey: guest, UserID: &userID}

	assert.True(t, b.OwnedBy(guest))
	assert.True(t, b.OwnedBy(UserOwner(userID)), "claimed guest booking")
	assert.False(t, b.OwnedBy(UserOwner(uuid.New())))
	assert.False(t, b.OwnedBy(GuestOwner(NewGuestToken())))
	assert.False(t, b.OwnedBy(""))
}
