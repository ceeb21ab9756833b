package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hisiddique/bloodathome/internal/delivery/dto"
	"github.com/hisiddique/bloodathome/internal/domain/entity"
	"github.com/hisiddique/bloodathome/internal/domain/gateway"
	"github.com/hisiddique/bloodathome/internal/pricing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestPreviewQuote(t *testing.T) {
	env := newTestEnv(t)
	owner := newGuestOwner()
	env.addPromo("SAVE10", nil)
	id := env.readyDraft(t, owner, "SAVE10")

	q, err := env.pricing.PreviewQuote(context.Background(), owner, id)
	require.NoError(t, err)

	assert.Equal(t, env.near.ID, q.ProviderID)
	require.Len(t, q.Lines, 2)
	assert.Equal(t, "100", q.Subtotal.String())
	assert.Equal(t, "5", q.ServiceFee.String())
	assert.Equal(t, "21", q.VAT.String())
	assert.Equal(t, "10", q.Discount.String())
	assert.Equal(t, "116", q.GrandTotal.String())
	assert.Equal(t, int64(11600), q.AmountMinor)
	assert.Equal(t, "SAVE10", q.PromoCode)
}

func TestPreviewQuote_IncompleteDraft(t *testing.T) {
	env := newTestEnv(t)
	owner := newGuestOwner()

	d, err := env.drafts.CreateDraft(context.Background(), owner, &dto.CreateDraftRequest{Step: entity.StepServices, Payload: env.servicesStep(t)})
	require.NoError(t, err)

	_, err = env.pricing.PreviewQuote(context.Background(), owner, d.ID)
	assert.ErrorIs(t, err, entity.ErrDraftIncomplete)
}

func TestCreateIntent_ReusesIntentForSameAmount(t *testing.T) {
	env := newTestEnv(t)
	owner := newGuestOwner()
	id := env.readyDraft(t, owner, "")
	ctx := context.Background()

	first, err := env.payments.CreateIntent(ctx, owner, id)
	require.NoError(t, err)
	assert.False(t, first.Reused)
	assert.Equal(t, int64(12600), first.AmountMinor)
	assert.NotEmpty(t, first.ClientSecret)

	second, err := env.payments.CreateIntent(ctx, owner, id)
	require.NoError(t, err)
	assert.True(t, second.Reused)
	assert.Equal(t, first.PaymentIntentID, second.PaymentIntentID)
	assert.Equal(t, 1, env.gw.creates())
}

func TestCreateIntent_NewIntentWhenPriceChanges(t *testing.T) {
	env := newTestEnv(t)
	owner := newGuestOwner()
	id := env.readyDraft(t, owner, "")
	ctx := context.Background()

	first, err := env.payments.CreateIntent(ctx, owner, id)
	require.NoError(t, err)

	env.addPromo("SAVE10", nil)
	_, err = env.drafts.UpdateStep(ctx, owner, id, entity.StepPayment, mustJSON(t, map[string]string{"promo_code": "SAVE10"}))
	require.NoError(t, err)

	second, err := env.payments.CreateIntent(ctx, owner, id)
	require.NoError(t, err)
	assert.NotEqual(t, first.PaymentIntentID, second.PaymentIntentID)
	assert.Equal(t, int64(11600), second.AmountMinor)
	assert.Contains(t, env.gw.cancelled, first.PaymentIntentID)

	d := env.draft(t, id)
	assert.Equal(t, second.PaymentIntentID, *d.PaymentIntentID)
	assert.Equal(t, 2, d.PaymentIntentSeq)
}

func TestCreateIntent_PaidIntentIsNeverReplaced(t *testing.T) {
	env := newTestEnv(t)
	owner := newGuestOwner()
	ctx := context.Background()
	draftID, intentID := env.paidDraft(t, owner, "")

	// The offer is repriced after the client paid.
	env.store.mu.Lock()
	env.store.offers[0].BaseCost = decimal.RequireFromString("45.00")
	env.store.mu.Unlock()

	_, err := env.payments.CreateIntent(ctx, owner, draftID)
	assert.ErrorIs(t, err, ErrPaymentCaptured)
	assert.Equal(t, 1, env.gw.creates())
	assert.Empty(t, env.gw.cancelled)

	d := env.draft(t, draftID)
	assert.Equal(t, intentID, *d.PaymentIntentID)
	assert.Equal(t, 1, d.PaymentIntentSeq)
}

func TestCreateIntent_CanceledIntentIsReplaced(t *testing.T) {
	env := newTestEnv(t)
	owner := newGuestOwner()
	ctx := context.Background()
	id := env.readyDraft(t, owner, "")

	first, err := env.payments.CreateIntent(ctx, owner, id)
	require.NoError(t, err)
	env.gw.setStatus(first.PaymentIntentID, gateway.IntentCanceled)

	second, err := env.payments.CreateIntent(ctx, owner, id)
	require.NoError(t, err)
	assert.False(t, second.Reused)
	assert.NotEqual(t, first.PaymentIntentID, second.PaymentIntentID)
	assert.Equal(t, first.AmountMinor, second.AmountMinor)
}

func TestCreateIntent_ConcurrentCallsShareOneIntent(t *testing.T) {
	env := newTestEnv(t)
	owner := newGuestOwner()
	id := env.readyDraft(t, owner, "")

	const n = 10
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := env.payments.CreateIntent(context.Background(), owner, id)
			if assert.NoError(t, err) {
				ids[i] = resp.PaymentIntentID
			}
		}(i)
	}
	wg.Wait()

	stored := *env.draft(t, id).PaymentIntentID
	for _, got := range ids {
		assert.Equal(t, stored, got)
	}
}

func TestCreateIntent_Preconditions(t *testing.T) {
	env := newTestEnv(t)
	owner := newGuestOwner()
	ctx := context.Background()

	d, err := env.drafts.CreateDraft(ctx, owner, &dto.CreateDraftRequest{Step: entity.StepServices, Payload: env.servicesStep(t)})
	require.NoError(t, err)
	_, err = env.payments.CreateIntent(ctx, owner, d.ID)
	assert.ErrorIs(t, err, entity.ErrDraftIncomplete)

	_, err = env.payments.CreateIntent(ctx, newGuestOwner(), d.ID)
	assert.ErrorIs(t, err, ErrDraftNotOwned)

	_, err = env.payments.CreateIntent(ctx, owner, uuid.New())
	assert.ErrorIs(t, err, ErrDraftNotFound)
}

func TestConfirm_CommitsBooking(t *testing.T) {
	env := newTestEnv(t)
	owner := newUserOwner()
	draftID, intentID := env.paidDraft(t, owner, "")

	b, err := env.payments.Confirm(context.Background(), owner, &dto.ConfirmBookingRequest{PaymentIntentID: intentID, DraftID: draftID})
	require.NoError(t, err)

	assert.Equal(t, string(entity.BookingStatusConfirmed), b.Status)
	assert.Regexp(t, `^BAH-20260303-[ABCDEFGHJKLMNPQRSTUVWXYZ23456789]{10}$`, b.ConfirmationNumber)
	assert.Equal(t, env.near.ID, b.ProviderID)
	assert.Equal(t, "126", b.GrandTotal.String())

	require.Len(t, b.Items, 2)
	assert.Equal(t, "Full blood count", b.Items[0].ServiceName)
	assert.Equal(t, "8", b.Items[0].CommissionAmount.String())
	assert.Equal(t, "32", b.Items[0].PayoutAmount.String())
	assert.Equal(t, "12", b.Items[1].CommissionAmount.String())

	require.Len(t, b.Payments, 1)
	p := b.Payments[0]
	assert.Equal(t, string(entity.PaymentStatusCompleted), p.Status)
	assert.Equal(t, intentID, p.ExternalReference)
	require.Len(t, p.TaxBreakdown, 1)
	assert.True(t, p.TaxTotal.Equal(p.TaxBreakdown[0].Amount))

	require.NotNil(t, b.Settlement)
	assert.Equal(t, "100", b.Settlement.CollectedAmount.String())
	assert.Equal(t, "20", b.Settlement.CommissionAmount.String())
	assert.Equal(t, "80", b.Settlement.PayoutAmount.String())

	d := env.draft(t, draftID)
	assert.True(t, d.IsCommitted())
	assert.Equal(t, b.ID, *d.BookingID)
	assert.Equal(t, 1, env.notifier.count())
	assert.Contains(t, env.store.auditActions(), entity.AuditActionBookingConfirm)
}

func TestConfirm_IsIdempotentUnderConcurrency(t *testing.T) {
	env := newTestEnv(t)
	owner := newGuestOwner()
	draftID, intentID := env.paidDraft(t, owner, "")
	req := &dto.ConfirmBookingRequest{PaymentIntentID: intentID, DraftID: draftID}

	const n = 8
	ids := make([]uuid.UUID, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b, err := env.payments.Confirm(context.Background(), owner, req)
			if assert.NoError(t, err) {
				ids[i] = b.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	assert.Len(t, env.store.bookings, 1)
	assert.Len(t, env.store.payments, 1)
	assert.Equal(t, 1, env.notifier.count())

	again, err := env.payments.Confirm(context.Background(), owner, req)
	require.NoError(t, err)
	assert.Equal(t, ids[0], again.ID)
}

func TestConfirm_PaymentChecks(t *testing.T) {
	env := newTestEnv(t)
	owner := newGuestOwner()
	ctx := context.Background()

	draftID := env.readyDraft(t, owner, "")
	intent, err := env.payments.CreateIntent(ctx, owner, draftID)
	require.NoError(t, err)

	_, err = env.payments.Confirm(ctx, owner, &dto.ConfirmBookingRequest{PaymentIntentID: intent.PaymentIntentID, DraftID: draftID})
	assert.ErrorIs(t, err, ErrPaymentNotSucceeded)

	otherOwner := newGuestOwner()
	_, otherIntent := env.paidDraft(t, otherOwner, "")
	_, err = env.payments.Confirm(ctx, owner, &dto.ConfirmBookingRequest{PaymentIntentID: otherIntent, DraftID: draftID})
	assert.ErrorIs(t, err, ErrIntentMismatch)

	_, err = env.payments.Confirm(ctx, otherOwner, &dto.ConfirmBookingRequest{PaymentIntentID: intent.PaymentIntentID, DraftID: draftID})
	assert.ErrorIs(t, err, ErrDraftNotOwned)

	assert.Empty(t, env.store.bookings)
}

func TestConfirm_PriceChangedAfterPayment(t *testing.T) {
	env := newTestEnv(t)
	owner := newGuestOwner()
	draftID, intentID := env.paidDraft(t, owner, "")

	env.store.mu.Lock()
	env.store.offers[0].BaseCost = decimal.RequireFromString("45.00")
	env.store.mu.Unlock()

	_, err := env.payments.Confirm(context.Background(), owner, &dto.ConfirmBookingRequest{PaymentIntentID: intentID, DraftID: draftID})
	assert.ErrorIs(t, err, ErrPricingMismatch)
	assert.Empty(t, env.store.bookings)
	assert.False(t, env.draft(t, draftID).IsCommitted())
}

func TestConfirm_ExpiredDraft(t *testing.T) {
	env := newTestEnv(t)
	owner := newGuestOwner()
	draftID, intentID := env.paidDraft(t, owner, "")

	env.payments.now = func() time.Time { return testNow.Add(2 * time.Hour) }
	_, err := env.payments.Confirm(context.Background(), owner, &dto.ConfirmBookingRequest{PaymentIntentID: intentID, DraftID: draftID})
	assert.ErrorIs(t, err, entity.ErrDraftExpired)
	assert.Empty(t, env.store.bookings)
}

func TestConfirm_PromoCapHoldsUnderConcurrency(t *testing.T) {
	env := newTestEnv(t)
	promo := env.addPromo("SAVE10", intPtr(1))

	const n = 5
	type paid struct {
		owner    entity.OwnerKey
		draftID  uuid.UUID
		intentID string
	}
	var all []paid
	for i := 0; i < n; i++ {
		owner := newGuestOwner()
		draftID, intentID := env.paidDraft(t, owner, "SAVE10")
		all = append(all, paid{owner, draftID, intentID})
	}

	errs := make([]error, n)
	var wg sync.WaitGroup
	for i, p := range all {
		wg.Add(1)
		go func(i int, p paid) {
			defer wg.Done()
			_, errs[i] = env.payments.Confirm(context.Background(), p.owner, &dto.ConfirmBookingRequest{PaymentIntentID: p.intentID, DraftID: p.draftID})
		}(i, p)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, pricing.ErrPromoExhausted)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, env.store.promos[promo.ID].UsageCount)
	assert.Len(t, env.store.usages, 1)
	assert.Len(t, env.store.bookings, 1)
}

func TestConfirm_FailureRollsEverythingBack(t *testing.T) {
	env := newTestEnv(t)
	promo := env.addPromo("SAVE10", intPtr(10))
	owner := newGuestOwner()
	draftID, intentID := env.paidDraft(t, owner, "SAVE10")

	env.store.failNextBookingCreate = errors.New("connection reset by peer")
	_, err := env.payments.Confirm(context.Background(), owner, &dto.ConfirmBookingRequest{PaymentIntentID: intentID, DraftID: draftID})
	assert.ErrorIs(t, err, ErrCommitFailed)

	assert.Zero(t, env.store.promos[promo.ID].UsageCount)
	assert.Empty(t, env.store.payments)
	assert.False(t, env.draft(t, draftID).IsCommitted())
	assert.Zero(t, env.notifier.count())

	// A retry after the fault goes through.
	b, err := env.payments.Confirm(context.Background(), owner, &dto.ConfirmBookingRequest{PaymentIntentID: intentID, DraftID: draftID})
	require.NoError(t, err)
	assert.Equal(t, "10", b.Discount.String())
	assert.Equal(t, 1, env.store.promos[promo.ID].UsageCount)
}

// hiddenBookingRepo misses the first lookup by draft id, as if the winning
// commit landed between the fast path and the insert.
type hiddenBookingRepo struct {
	*memBookingRepo
	mu     sync.Mutex
	misses int
}

func (r *hiddenBookingRepo) FindByDraftID(db *gorm.DB, draftID uuid.UUID) (*entity.Booking, error) {
	r.mu.Lock()
	if r.misses > 0 {
		r.misses--
		r.mu.Unlock()
		return nil, nil
	}
	r.mu.Unlock()
	return r.memBookingRepo.FindByDraftID(db, draftID)
}

func TestConfirm_LoserReturnsWinnersBooking(t *testing.T) {
	env := newTestEnv(t)
	owner := newGuestOwner()
	draftID, intentID := env.paidDraft(t, owner, "")

	winner := entity.Booking{ID: uuid.New(), ConfirmationNumber: "BAH-20260303-WINNERAAAA", DraftID: &draftID, OwnerKey: owner, Status: entity.BookingStatusConfirmed}
	env.store.bookings[winner.ID] = winner
	env.payments.bookingRepo = &hiddenBookingRepo{memBookingRepo: &memBookingRepo{env.store}, misses: 1}

	b, err := env.payments.Confirm(context.Background(), owner, &dto.ConfirmBookingRequest{PaymentIntentID: intentID, DraftID: draftID})
	require.NoError(t, err)
	assert.Equal(t, winner.ID, b.ID)
	assert.Len(t, env.store.bookings, 1)
	assert.Zero(t, env.notifier.count())
}
