package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hisiddique/bloodathome/config"
	"github.com/hisiddique/bloodathome/internal/converter"
	"github.com/hisiddique/bloodathome/internal/delivery/dto"
	"github.com/hisiddique/bloodathome/internal/domain/entity"
	"github.com/hisiddique/bloodathome/internal/domain/gateway"
	"github.com/hisiddique/bloodathome/internal/domain/repository"
	"github.com/hisiddique/bloodathome/internal/infrastructure/telemetry"
	"github.com/hisiddique/bloodathome/internal/pricing"
	"github.com/hisiddique/bloodathome/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

var (
	ErrZeroAmount          = errors.New("nothing to pay for this draft")
	ErrPaymentNotSucceeded = errors.New("payment has not succeeded")
	ErrIntentMismatch      = errors.New("payment intent does not belong to this draft")
	ErrPricingMismatch     = errors.New("captured amount does not match the booking price")
	// ErrCommitFailed means money was captured but no booking exists. It
	// needs manual reconciliation and is never retried automatically.
	ErrCommitFailed = errors.New("booking could not be recorded after payment")
	// ErrPaymentCaptured means the draft's stored intent is paid or being
	// paid. The client should confirm the booking instead of changing it.
	ErrPaymentCaptured = errors.New("payment for this draft has already been taken, confirm the booking")

	// errCommitRaced is internal: another request committed the draft first.
	errCommitRaced = errors.New("draft committed concurrently")
)

const entityBooking = "booking"

type PaymentUsecase interface {
	// CreateIntent opens a payment intent for the draft's current price, or
	// returns the stored one when the price has not changed. A paid intent
	// is never replaced; the call fails with ErrPaymentCaptured instead.
	CreateIntent(ctx context.Context, owner entity.OwnerKey, draftID uuid.UUID) (*dto.PaymentIntentResponse, error)
	// Confirm turns a paid draft into a booking. Repeated or concurrent calls
	// for the same draft return the same booking.
	Confirm(ctx context.Context, owner entity.OwnerKey, req *dto.ConfirmBookingRequest) (*dto.BookingResponse, error)
}

type paymentUsecase struct {
	transactor     repository.Transactor
	log            *logrus.Logger
	draftRepo      repository.BookingDraftRepository
	bookingRepo    repository.BookingRepository
	paymentRepo    repository.PaymentRepository
	promoRepo      repository.PromoCodeRepository
	settlementRepo repository.SettlementRepository
	quotes         *quoteBuilder
	gateway        gateway.PaymentGateway
	locker         service.DraftLocker
	auditService   service.AuditService
	notifier       gateway.Notifier
	metrics        *telemetry.Metrics
	intents        singleflight.Group
	now            func() time.Time
}

func NewPaymentUsecase(
	transactor repository.Transactor,
	log *logrus.Logger,
	cfg config.PricingConfig,
	draftRepo repository.BookingDraftRepository,
	bookingRepo repository.BookingRepository,
	paymentRepo repository.PaymentRepository,
	offerRepo repository.ProviderServiceRepository,
	promoRepo repository.PromoCodeRepository,
	settlementRepo repository.SettlementRepository,
	paymentGateway gateway.PaymentGateway,
	locker service.DraftLocker,
	auditService service.AuditService,
	notifier gateway.Notifier,
	metrics *telemetry.Metrics,
) PaymentUsecase {
	return &paymentUsecase{
		transactor:     transactor,
		log:            log,
		draftRepo:      draftRepo,
		bookingRepo:    bookingRepo,
		paymentRepo:    paymentRepo,
		promoRepo:      promoRepo,
		settlementRepo: settlementRepo,
		quotes:         newQuoteBuilder(cfg, offerRepo, promoRepo),
		gateway:        paymentGateway,
		locker:         locker,
		auditService:   auditService,
		notifier:       notifier,
		metrics:        metrics,
		now:            time.Now,
	}
}

// =============================================================================
// Intent creation
// =============================================================================

func (u *paymentUsecase) CreateIntent(ctx context.Context, owner entity.OwnerKey, draftID uuid.UUID) (*dto.PaymentIntentResponse, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "Payment.CreateIntent")
	defer span.End()
	span.SetAttributes(attribute.String("draft.id", draftID.String()))

	draft, err := u.loadOwnedDraft(ctx, owner, draftID)
	if err != nil {
		return nil, err
	}
	if err := draft.EnsureOpen(u.now()); err != nil {
		return nil, err
	}
	if err := draft.CommitReady(); err != nil {
		return nil, err
	}

	// Concurrent calls for one draft share a single gateway round trip.
	v, err, _ := u.intents.Do(draftID.String(), func() (interface{}, error) {
		return u.createIntent(ctx, draftID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*dto.PaymentIntentResponse), nil
}

// createIntent never holds a lock across gateway calls. The stored intent is
// replaced with a compare-and-set on the draft's intent sequence; the loser
// of a race cancels its own intent and returns the winner's.
func (u *paymentUsecase) createIntent(ctx context.Context, draftID uuid.UUID) (*dto.PaymentIntentResponse, error) {
	db := u.transactor.DB(ctx)
	now := u.now()

	draft, err := u.draftRepo.FindByID(db, draftID)
	if err != nil {
		u.log.Warnf("Failed to find draft %s: %+v", draftID, err)
		return nil, err
	}
	if draft == nil {
		return nil, ErrDraftNotFound
	}
	if err := draft.EnsureOpen(now); err != nil {
		return nil, err
	}

	// A paid intent is never replaced, whatever the draft prices at now.
	var stored *gateway.Intent
	if draft.PaymentIntentID != nil {
		stored, err = u.gateway.RetrieveIntent(ctx, *draft.PaymentIntentID)
		if err != nil {
			u.log.Warnf("Failed to retrieve payment intent %s: %+v", *draft.PaymentIntentID, err)
			return nil, err
		}
		if stored.Status.Captured() {
			return nil, ErrPaymentCaptured
		}
	}

	dq, err := u.quotes.build(db, draft, now)
	if err != nil {
		if errors.Is(err, pricing.ErrPromoInvalid) {
			u.metrics.PromoRejected(ctx, "intent")
		}
		return nil, err
	}
	amount := dq.quote.AmountMinor()
	if amount <= 0 {
		return nil, ErrZeroAmount
	}

	if stored != nil && draft.HasIntentFor(amount) && stored.Status.Reusable() && stored.AmountMinor == amount {
		return intentResponse(draftID, stored, dq.quote.GrandTotal, true), nil
	}

	intent, err := u.gateway.CreateIntent(ctx, gateway.CreateIntentRequest{
		AmountMinor:    amount,
		Currency:       dq.quote.Currency,
		DraftID:        draftID.String(),
		IdempotencyKey: fmt.Sprintf("draft:%s:amount:%d:seq:%d", draftID, amount, draft.PaymentIntentSeq),
	})
	if err != nil {
		u.log.Warnf("Failed to create payment intent for draft %s: %+v", draftID, err)
		return nil, err
	}

	rows, err := u.draftRepo.UpdateIntent(db, draftID, draft.PaymentIntentSeq, intent.ID, amount)
	if err != nil {
		u.log.Warnf("Failed to store payment intent %s on draft %s: %+v", intent.ID, draftID, err)
		u.cancelIntent(ctx, intent.ID)
		return nil, err
	}
	if rows == 0 {
		u.cancelIntent(ctx, intent.ID)
		return u.storedIntent(ctx, draftID, amount, dq.quote.GrandTotal)
	}

	if draft.PaymentIntentID != nil && *draft.PaymentIntentID != intent.ID {
		u.cancelIntent(ctx, *draft.PaymentIntentID)
	}

	u.log.Infof("Payment intent %s opened for draft %s (%d %s)", intent.ID, draftID, amount, intent.Currency)
	return intentResponse(draftID, intent, dq.quote.GrandTotal, false), nil
}

// storedIntent returns the intent another request stored for the same amount.
func (u *paymentUsecase) storedIntent(ctx context.Context, draftID uuid.UUID, amount int64, total decimal.Decimal) (*dto.PaymentIntentResponse, error) {
	draft, err := u.draftRepo.FindByID(u.transactor.DB(ctx), draftID)
	if err != nil {
		return nil, err
	}
	if draft == nil {
		return nil, ErrDraftNotFound
	}
	if err := draft.EnsureOpen(u.now()); err != nil {
		return nil, err
	}
	if !draft.HasIntentFor(amount) {
		return nil, ErrDraftConflict
	}
	intent, err := u.gateway.RetrieveIntent(ctx, *draft.PaymentIntentID)
	if err != nil {
		return nil, err
	}
	return intentResponse(draftID, intent, total, true), nil
}

func (u *paymentUsecase) cancelIntent(ctx context.Context, intentID string) {
	if err := u.gateway.CancelIntent(ctx, intentID); err != nil {
		u.log.Warnf("Failed to cancel stale payment intent %s: %+v", intentID, err)
	}
}

func intentResponse(draftID uuid.UUID, intent *gateway.Intent, total decimal.Decimal, reused bool) *dto.PaymentIntentResponse {
	return &dto.PaymentIntentResponse{
		DraftID:         draftID,
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
		Amount:          total,
		AmountMinor:     intent.AmountMinor,
		Currency:        intent.Currency,
		Status:          string(intent.Status),
		Reused:          reused,
	}
}

// =============================================================================
// Commit
// =============================================================================

func (u *paymentUsecase) Confirm(ctx context.Context, owner entity.OwnerKey, req *dto.ConfirmBookingRequest) (*dto.BookingResponse, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "Payment.Confirm")
	defer span.End()
	span.SetAttributes(attribute.String("draft.id", req.DraftID.String()), attribute.String("payment.intent_id", req.PaymentIntentID))

	// Fast path: already committed.
	if booking, err := u.existingBooking(ctx, owner, req.DraftID); err != nil || booking != nil {
		return booking, err
	}

	draft, err := u.loadOwnedDraft(ctx, owner, req.DraftID)
	if err != nil {
		return nil, err
	}

	// The gateway is asked outside of any lock.
	intent, err := u.gateway.RetrieveIntent(ctx, req.PaymentIntentID)
	if err != nil {
		u.log.Warnf("Failed to retrieve payment intent %s: %+v", req.PaymentIntentID, err)
		return nil, err
	}
	if intent.DraftID != draft.ID.String() {
		return nil, ErrIntentMismatch
	}
	if intent.Status != gateway.IntentSucceeded {
		return nil, ErrPaymentNotSucceeded
	}

	unlock, err := u.locker.Lock(ctx, draft.ID)
	if err != nil {
		u.log.Warnf("Failed to lock draft %s for commit: %+v", draft.ID, err)
		return nil, err
	}
	defer unlock()

	var (
		booking *entity.Booking
		created bool
	)
	err = u.transactor.WithinTransaction(ctx, func(tx *gorm.DB) error {
		var err error
		booking, created, err = u.commit(ctx, tx, owner, draft.ID, intent)
		return err
	})

	switch {
	case err == nil:
	case errors.Is(err, errCommitRaced):
		u.metrics.CommitConflict(ctx)
		u.log.Infof("Draft %s was committed by a concurrent request, returning its booking", draft.ID)
		winner, findErr := u.bookingRepo.FindByDraftID(u.transactor.DB(ctx), draft.ID)
		if findErr != nil || winner == nil {
			u.critical(draft.ID, intent.ID, nil, "commit raced but the winning booking was not found", findErr)
			return nil, ErrCommitFailed
		}
		return converter.BookingToResponse(winner), nil
	case isCommitClientError(err):
		return nil, err
	case errors.Is(err, entity.ErrDraftExpired):
		// logged inside the transaction
		return nil, err
	default:
		u.critical(draft.ID, intent.ID, nil, "payment captured but booking commit failed", err)
		if errors.Is(err, ErrCommitFailed) || errors.Is(err, ErrPricingMismatch) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrCommitFailed, err)
	}

	if created {
		u.afterCommit(ctx, booking)
	}
	return converter.BookingToResponse(booking), nil
}

// commit runs inside one transaction holding the draft row lock. Either every
// row of the booking is written and the draft is marked committed, or the
// transaction rolls back with nothing written.
func (u *paymentUsecase) commit(ctx context.Context, tx *gorm.DB, owner entity.OwnerKey, draftID uuid.UUID, intent *gateway.Intent) (*entity.Booking, bool, error) {
	now := u.now()

	draft, err := u.draftRepo.FindByIDForUpdate(tx, draftID)
	if err != nil {
		return nil, false, err
	}
	if draft == nil {
		return nil, false, ErrDraftNotFound
	}
	if !draft.OwnedBy(owner) {
		return nil, false, ErrDraftNotOwned
	}

	if draft.IsCommitted() {
		existing, err := u.bookingRepo.FindByDraftID(tx, draftID)
		if err != nil {
			return nil, false, err
		}
		if existing == nil {
			return nil, false, fmt.Errorf("%w: draft is committed but has no booking", ErrCommitFailed)
		}
		return existing, false, nil
	}
	if draft.IsExpired(now) {
		u.critical(draftID, intent.ID, nil, "payment captured for an expired draft, refund required", entity.ErrDraftExpired)
		return nil, false, entity.ErrDraftExpired
	}
	if err := draft.CommitReady(); err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrCommitFailed, err)
	}

	dq, err := u.quotes.build(tx, draft, now)
	if err != nil {
		if errors.Is(err, pricing.ErrPromoInvalid) {
			u.metrics.PromoRejected(ctx, "commit")
			return nil, false, fmt.Errorf("%w: %w", ErrPricingMismatch, err)
		}
		return nil, false, err
	}
	q := dq.quote
	if q.AmountMinor() != intent.AmountMinor || !strings.EqualFold(q.Currency, intent.Currency) {
		return nil, false, fmt.Errorf("%w: priced %d %s, captured %d %s", ErrPricingMismatch, q.AmountMinor(), q.Currency, intent.AmountMinor, intent.Currency)
	}

	if q.Promo != nil {
		rows, err := u.promoRepo.IncrementUsage(tx, q.Promo.ID)
		if err != nil {
			return nil, false, err
		}
		if rows == 0 {
			u.metrics.PromoRejected(ctx, "commit")
			return nil, false, fmt.Errorf("%w: %w", ErrPricingMismatch, pricing.ErrPromoExhausted)
		}
	}

	booking, splits, err := buildBooking(draft, &q, now)
	if err != nil {
		return nil, false, err
	}
	settled, err := pricing.Settle(splits)
	if err != nil {
		return nil, false, err
	}

	if err := u.bookingRepo.Create(tx, booking); err != nil {
		if isDuplicateKeyError(err, constraintBookingDraftID) {
			return nil, false, errCommitRaced
		}
		return nil, false, err
	}

	payment := &entity.Payment{
		ID:                uuid.New(),
		BookingID:         booking.ID,
		Amount:            q.GrandTotal,
		TaxTotal:          q.VAT,
		Currency:          q.Currency,
		ExternalReference: intent.ID,
		Status:            entity.PaymentStatusPending,
	}
	for _, t := range q.TaxBreakdown {
		payment.TaxBreakdown = append(payment.TaxBreakdown, entity.PaymentTaxBreakdown{
			ID:          uuid.New(),
			PaymentID:   payment.ID,
			Name:        t.Name,
			RatePercent: t.RatePercent,
			Amount:      t.Amount,
		})
	}
	if !payment.TaxSum().Equal(payment.TaxTotal) {
		return nil, false, pricing.ErrTaxBreakdownMismatch
	}
	if err := payment.MarkCompleted(now); err != nil {
		return nil, false, err
	}
	if err := u.paymentRepo.Create(tx, payment); err != nil {
		return nil, false, err
	}

	if q.Promo != nil {
		err := u.promoRepo.CreateUsage(tx, &entity.PromoCodeUsage{
			ID:             uuid.New(),
			PromoCodeID:    q.Promo.ID,
			BookingID:      booking.ID,
			OwnerKey:       draft.OwnerKey,
			PatientEmail:   booking.PatientEmail,
			DiscountAmount: q.Discount,
		})
		if err != nil {
			return nil, false, err
		}
	}

	settlement := &entity.ProviderSettlement{
		ID:                uuid.New(),
		BookingID:         booking.ID,
		ProviderID:        booking.ProviderID,
		CollectedAmount:   settled.Collected,
		CommissionPercent: settled.EffectivePercent,
		CommissionAmount:  settled.Commission,
		PayoutAmount:      settled.Payout,
		Status:            entity.SettlementStatusPending,
	}
	if err := u.settlementRepo.Create(tx, settlement); err != nil {
		return nil, false, err
	}

	rows, err := u.draftRepo.MarkCommitted(tx, draftID, booking.ID, now)
	if err != nil {
		return nil, false, err
	}
	if rows == 0 {
		return nil, false, errCommitRaced
	}

	err = u.auditService.LogCreate(ctx, tx, draft.OwnerKey.String(), entity.AuditActionBookingConfirm, entityBooking, booking.ID.String(), map[string]interface{}{
		"confirmation_number": booking.ConfirmationNumber,
		"draft_id":            draftID.String(),
		"payment_intent_id":   intent.ID,
		"grand_total":         q.GrandTotal.StringFixed(2),
		"promo_code":          q.PromoCode(),
	})
	if err != nil {
		return nil, false, err
	}

	booking.Payments = []entity.Payment{*payment}
	booking.Settlement = settlement
	return booking, true, nil
}

// buildBooking freezes the draft and quote into a confirmed booking with its
// items and their settlement splits.
func buildBooking(draft *entity.BookingDraft, q *pricing.Quote, now time.Time) (*entity.Booking, []pricing.ItemSplit, error) {
	sd := draft.StepData
	point, _ := sd.Location.Point()
	date := sd.Location.ParsedDate()
	draftID := draft.ID

	booking := &entity.Booking{
		ID:                 uuid.New(),
		ConfirmationNumber: generateConfirmationNumber(date),
		DraftID:            &draftID,
		OwnerKey:           draft.OwnerKey,
		ProviderID:         sd.Provider.ProviderID,
		CollectionType:     sd.Services.CollectionType,
		ScheduledDate:      date,
		SlotStart:          sd.Provider.SlotStart,
		SlotEnd:            sd.Provider.SlotEnd,
		Postcode:           sd.Location.Postcode,
		AddressLine:        sd.Location.AddressLine,
		Latitude:           point.Lat,
		Longitude:          point.Lng,
		PatientName:        sd.Patient.FullName,
		PatientDOB:         sd.Patient.DateOfBirth,
		PatientEmail:       sd.Patient.Email,
		PatientPhone:       sd.Patient.Phone,
		Notes:              sd.Patient.Notes,
		Subtotal:           q.Subtotal,
		ServiceFee:         q.ServiceFee,
		VAT:                q.VAT,
		Discount:           q.Discount,
		GrandTotal:         q.GrandTotal,
		Currency:           q.Currency,
		Status:             entity.BookingStatusPending,
	}
	if uid, ok := draft.OwnerKey.UserID(); ok {
		booking.UserID = &uid
	}
	if q.Promo != nil {
		promoID := q.Promo.ID
		booking.PromoCodeID = &promoID
	}

	splits := make([]pricing.ItemSplit, len(q.Lines))
	for i, l := range q.Lines {
		split := pricing.ItemSettlement(l.Cost, l.CommissionPercent)
		splits[i] = split
		booking.Items = append(booking.Items, entity.BookingItem{
			ID:                uuid.New(),
			BookingID:         booking.ID,
			ServiceID:         l.ServiceID,
			ProviderServiceID: l.OfferID,
			ServiceName:       l.Name,
			Cost:              split.Cost,
			CommissionPercent: split.CommissionPercent,
			CommissionAmount:  split.Commission,
			PayoutAmount:      split.Payout,
		})
	}

	if err := booking.Confirm(); err != nil {
		return nil, nil, err
	}
	return booking, splits, nil
}

func (u *paymentUsecase) afterCommit(ctx context.Context, booking *entity.Booking) {
	u.metrics.BookingCommitted(ctx, booking.PromoCodeID != nil)
	u.log.Infof("Booking %s confirmed for provider %s", booking.ConfirmationNumber, booking.ProviderID)

	u.notifier.BookingConfirmed(context.WithoutCancel(ctx), gateway.BookingConfirmedEvent{
		BookingID:          booking.ID.String(),
		ConfirmationNumber: booking.ConfirmationNumber,
		ProviderID:         booking.ProviderID.String(),
		PatientName:        booking.PatientName,
		PatientEmail:       booking.PatientEmail,
		PatientPhone:       booking.PatientPhone,
		SlotStart:          booking.SlotStart,
		GrandTotal:         booking.GrandTotal.StringFixed(2),
		Currency:           booking.Currency,
	})
}

func (u *paymentUsecase) existingBooking(ctx context.Context, owner entity.OwnerKey, draftID uuid.UUID) (*dto.BookingResponse, error) {
	booking, err := u.bookingRepo.FindByDraftID(u.transactor.DB(ctx), draftID)
	if err != nil {
		u.log.Warnf("Failed to find booking for draft %s: %+v", draftID, err)
		return nil, err
	}
	if booking == nil {
		return nil, nil
	}
	if !booking.OwnedBy(owner) {
		return nil, ErrBookingNotOwned
	}
	return converter.BookingToResponse(booking), nil
}

func (u *paymentUsecase) loadOwnedDraft(ctx context.Context, owner entity.OwnerKey, draftID uuid.UUID) (*entity.BookingDraft, error) {
	draft, err := u.draftRepo.FindByID(u.transactor.DB(ctx), draftID)
	if err != nil {
		u.log.Warnf("Failed to find draft %s: %+v", draftID, err)
		return nil, err
	}
	if draft == nil {
		return nil, ErrDraftNotFound
	}
	if !draft.OwnedBy(owner) {
		return nil, ErrDraftNotOwned
	}
	return draft, nil
}

func (u *paymentUsecase) critical(draftID uuid.UUID, intentID string, bookingID *uuid.UUID, msg string, err error) {
	fields := logrus.Fields{
		"draft_id":          draftID.String(),
		"payment_intent_id": intentID,
	}
	if bookingID != nil {
		fields["booking_id"] = bookingID.String()
	}
	u.log.WithFields(fields).Errorf("CRITICAL: %s: %+v", msg, err)
}

// isCommitClientError reports errors where the caller cannot see the draft,
// so there is nothing of theirs to reconcile.
func isCommitClientError(err error) bool {
	return errors.Is(err, ErrDraftNotFound) || errors.Is(err, ErrDraftNotOwned)
}
