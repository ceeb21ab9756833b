package usecase

import (
	"context"
	"strings"
	"testing"

	"github.com/hisiddique/bloodathome/internal/delivery/dto"
	"github.com/hisiddique/bloodathome/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *testEnv) confirmedBooking(t *testing.T, owner entity.OwnerKey) *dto.BookingResponse {
	t.Helper()
	draftID, intentID := e.paidDraft(t, owner, "")
	b, err := e.payments.Confirm(context.Background(), owner, &dto.ConfirmBookingRequest{PaymentIntentID: intentID, DraftID: draftID})
	require.NoError(t, err)
	return b
}

func adminActor() Actor {
	id := uuid.New()
	return Actor{Owner: entity.UserOwner(id), AdminID: &id}
}

func TestGetBooking_Visibility(t *testing.T) {
	env := newTestEnv(t)
	owner := newUserOwner()
	b := env.confirmedBooking(t, owner)
	ctx := context.Background()

	got, err := env.bookings.GetBooking(ctx, Actor{Owner: owner}, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ConfirmationNumber, got.ConfirmationNumber)

	_, err = env.bookings.GetBooking(ctx, Actor{Owner: newUserOwner()}, b.ID)
	assert.ErrorIs(t, err, ErrBookingNotOwned)

	_, err = env.bookings.GetBooking(ctx, adminActor(), b.ID)
	assert.NoError(t, err)

	_, err = env.bookings.GetBooking(ctx, Actor{Owner: owner}, uuid.New())
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestGetByConfirmationNumber_NormalisesInput(t *testing.T) {
	env := newTestEnv(t)
	owner := newGuestOwner()
	b := env.confirmedBooking(t, owner)

	got, err := env.bookings.GetByConfirmationNumber(context.Background(), Actor{Owner: owner}, "  "+strings.ToLower(b.ConfirmationNumber)+" ")
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)

	_, err = env.bookings.GetByConfirmationNumber(context.Background(), Actor{Owner: owner}, "BAH-20260303-NOPE")
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestListMyBookings(t *testing.T) {
	env := newTestEnv(t)
	owner := newUserOwner()
	b := env.confirmedBooking(t, owner)
	env.confirmedBooking(t, newUserOwner())

	list, err := env.bookings.ListMyBookings(context.Background(), owner)
	require.NoError(t, err)
	require.Equal(t, 1, list.Total)
	assert.Equal(t, b.ID, list.Bookings[0].ID)

	_, err = env.bookings.ListMyBookings(context.Background(), entity.OwnerKey(""))
	assert.ErrorIs(t, err, ErrInvalidOwner)
}

func TestCancelBooking_ByOwner(t *testing.T) {
	env := newTestEnv(t)
	owner := newGuestOwner()
	b := env.confirmedBooking(t, owner)
	ctx := context.Background()

	got, err := env.bookings.CancelBooking(ctx, Actor{Owner: owner}, b.ID, &dto.CancelBookingRequest{Reason: "feeling better"})
	require.NoError(t, err)
	assert.Equal(t, string(entity.BookingStatusCancelled), got.Status)
	assert.Equal(t, "feeling better", got.CancellationReason)
	assert.Equal(t, entity.BookingStatusCancelled, env.store.bookings[b.ID].Status)

	_, err = env.bookings.CancelBooking(ctx, Actor{Owner: owner}, b.ID, &dto.CancelBookingRequest{})
	assert.ErrorIs(t, err, entity.ErrInvalidTransition)

	for _, p := range env.store.payments {
		assert.Equal(t, entity.PaymentStatusCompleted, p.Status)
	}
	assert.Contains(t, env.store.auditActions(), entity.AuditActionBookingCancel)
}

func TestCancelBooking_RefundIsAdminOnly(t *testing.T) {
	env := newTestEnv(t)
	owner := newGuestOwner()
	b := env.confirmedBooking(t, owner)
	ctx := context.Background()

	_, err := env.bookings.CancelBooking(ctx, Actor{Owner: owner}, b.ID, &dto.CancelBookingRequest{Refund: true})
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, entity.BookingStatusConfirmed, env.store.bookings[b.ID].Status)

	got, err := env.bookings.CancelBooking(ctx, adminActor(), b.ID, &dto.CancelBookingRequest{Reason: "provider unavailable", Refund: true})
	require.NoError(t, err)
	require.Len(t, got.Payments, 1)
	assert.Equal(t, string(entity.PaymentStatusRefunded), got.Payments[0].Status)
	assert.NotNil(t, got.Payments[0].RefundedAt)

	for _, p := range env.store.payments {
		assert.Equal(t, entity.PaymentStatusRefunded, p.Status)
	}
	assert.Contains(t, env.store.auditActions(), entity.AuditActionPaymentRefund)
}

func TestCompleteBooking(t *testing.T) {
	env := newTestEnv(t)
	owner := newUserOwner()
	b := env.confirmedBooking(t, owner)
	ctx := context.Background()

	_, err := env.bookings.CompleteBooking(ctx, Actor{Owner: owner}, b.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	got, err := env.bookings.CompleteBooking(ctx, adminActor(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, string(entity.BookingStatusCompleted), got.Status)
	assert.NotNil(t, got.CompletedAt)

	_, err = env.bookings.CancelBooking(ctx, Actor{Owner: owner}, b.ID, &dto.CancelBookingRequest{})
	assert.ErrorIs(t, err, entity.ErrInvalidTransition)
}

func TestReassignBooking(t *testing.T) {
	env := newTestEnv(t)
	owner := newUserOwner()
	b := env.confirmedBooking(t, owner)
	ctx := context.Background()

	_, err := env.bookings.ReassignBooking(ctx, Actor{Owner: owner}, b.ID, &dto.ReassignBookingRequest{ProviderID: env.far.ID})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = env.bookings.ReassignBooking(ctx, adminActor(), b.ID, &dto.ReassignBookingRequest{ProviderID: uuid.New()})
	assert.ErrorIs(t, err, ErrProviderNotFound)

	got, err := env.bookings.ReassignBooking(ctx, adminActor(), b.ID, &dto.ReassignBookingRequest{ProviderID: env.far.ID})
	require.NoError(t, err)
	assert.Equal(t, env.far.ID, got.ProviderID)
	require.NotNil(t, got.Settlement)
	assert.Equal(t, env.far.ID, got.Settlement.ProviderID)
	assert.Equal(t, env.far.ID, env.store.settlements[b.ID].ProviderID)
	// Frozen prices do not follow the new provider's offers.
	assert.Equal(t, "126", got.GrandTotal.String())
}

func TestReassignBooking_ProviderMustBeEligible(t *testing.T) {
	env := newTestEnv(t)
	b := env.confirmedBooking(t, newUserOwner())

	inactive := env.addProvider("Closed Lab", entity.ProviderTypeLab, 51.51, -0.12, 0)
	inactive.Status = entity.ProviderStatusInactive
	env.store.providers[inactive.ID] = inactive

	_, err := env.bookings.ReassignBooking(context.Background(), adminActor(), b.ID, &dto.ReassignBookingRequest{ProviderID: inactive.ID})
	assert.ErrorIs(t, err, ErrProviderNotEligible)
	assert.Equal(t, env.near.ID, env.store.bookings[b.ID].ProviderID)
}
