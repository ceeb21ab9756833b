package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hisiddique/bloodathome/config"
	"github.com/hisiddique/bloodathome/internal/converter"
	"github.com/hisiddique/bloodathome/internal/delivery/dto"
	"github.com/hisiddique/bloodathome/internal/domain/entity"
	"github.com/hisiddique/bloodathome/internal/domain/gateway"
	"github.com/hisiddique/bloodathome/internal/domain/repository"
	"github.com/hisiddique/bloodathome/internal/geo"
	"github.com/hisiddique/bloodathome/internal/infrastructure/telemetry"
	"github.com/hisiddique/bloodathome/internal/matching"
	"github.com/hisiddique/bloodathome/internal/pricing"
	"github.com/hisiddique/bloodathome/internal/service"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

var (
	ErrDraftNotFound       = errors.New("booking draft not found")
	ErrDraftNotOwned       = errors.New("booking draft does not belong to you")
	ErrInvalidOwner        = errors.New("missing or invalid draft owner")
	ErrDraftConflict       = errors.New("booking draft changed while saving, please retry")
	ErrStepOutOfOrder      = errors.New("services and location must be chosen before the provider")
	ErrProviderNotEligible = errors.New("provider cannot serve this booking")
	ErrSlotUnavailable     = errors.New("provider is not available for this slot")
	ErrDateInPast          = errors.New("booking date must not be in the past")
)

const entityBookingDraft = "booking_draft"

type BookingDraftUsecase interface {
	// CreateDraft returns the owner's live draft if there is one, merging the
	// optional first step into it, and creates a new draft otherwise.
	CreateDraft(ctx context.Context, owner entity.OwnerKey, req *dto.CreateDraftRequest) (*dto.DraftResponse, error)
	GetDraft(ctx context.Context, owner entity.OwnerKey, draftID uuid.UUID) (*dto.DraftResponse, error)
	UpdateStep(ctx context.Context, owner entity.OwnerKey, draftID uuid.UUID, step int, payload []byte) (*dto.DraftResponse, error)
	// ClaimGuestDraft moves a guest's live draft to the signed-in user. Any
	// other open draft of the user is discarded.
	ClaimGuestDraft(ctx context.Context, guest, user entity.OwnerKey, draftID uuid.UUID) (*dto.DraftResponse, error)
	// ReapExpired deletes open drafts that expired more than the grace period ago.
	ReapExpired(ctx context.Context) (int64, error)
}

type bookingDraftUsecase struct {
	transactor   repository.Transactor
	log          *logrus.Logger
	cfg          config.DraftConfig
	geoCfg       config.GeoConfig
	unit         geo.Unit
	draftRepo    repository.BookingDraftRepository
	promoRepo    repository.PromoCodeRepository
	loader       *candidateLoader
	geocoder     gateway.Geocoder
	payments     gateway.PaymentGateway
	auditService service.AuditService
	metrics      *telemetry.Metrics
	now          func() time.Time
}

func NewBookingDraftUsecase(
	transactor repository.Transactor,
	log *logrus.Logger,
	cfg config.DraftConfig,
	geoCfg config.GeoConfig,
	draftRepo repository.BookingDraftRepository,
	promoRepo repository.PromoCodeRepository,
	providerRepo repository.ProviderRepository,
	offerRepo repository.ProviderServiceRepository,
	availabilityRepo repository.ProviderAvailabilityRepository,
	geocoder gateway.Geocoder,
	payments gateway.PaymentGateway,
	auditService service.AuditService,
	metrics *telemetry.Metrics,
) BookingDraftUsecase {
	return &bookingDraftUsecase{
		transactor: transactor,
		log:        log,
		cfg:        cfg,
		geoCfg:     geoCfg,
		unit:       geo.ParseUnit(geoCfg.DistanceUnit),
		draftRepo:  draftRepo,
		promoRepo:  promoRepo,
		loader: &candidateLoader{
			transactor:       transactor,
			offerRepo:        offerRepo,
			availabilityRepo: availabilityRepo,
			providerRepo:     providerRepo,
		},
		geocoder:     geocoder,
		payments:     payments,
		auditService: auditService,
		metrics:      metrics,
		now:          time.Now,
	}
}

func (u *bookingDraftUsecase) CreateDraft(ctx context.Context, owner entity.OwnerKey, req *dto.CreateDraftRequest) (*dto.DraftResponse, error) {
	if !owner.Valid() {
		return nil, ErrInvalidOwner
	}

	var payload entity.StepPayload
	if req != nil && req.Step != 0 {
		p, err := entity.DecodeStepPayload(req.Step, req.Payload)
		if err != nil {
			return nil, err
		}
		payload = p
	}

	now := u.now()
	existing, err := u.draftRepo.FindOpenByOwner(u.transactor.DB(ctx), owner)
	if err != nil {
		u.log.Warnf("Failed to find open draft for owner: %+v", err)
		return nil, err
	}
	if existing != nil && !existing.IsExpired(now) {
		return u.resume(ctx, owner, existing.ID, payload)
	}

	draft := entity.NewBookingDraft(owner, now, u.cfg.TTL)
	if payload != nil {
		if err := u.prepare(ctx, draft, payload, now); err != nil {
			return nil, err
		}
		if _, err := draft.Merge(payload, now, u.cfg.TTL); err != nil {
			return nil, err
		}
	}

	err = u.transactor.WithinTransaction(ctx, func(tx *gorm.DB) error {
		// An expired open draft still holds the owner's unique slot.
		if existing != nil {
			if err := u.draftRepo.Delete(tx, existing.ID); err != nil {
				u.log.Warnf("Failed to delete expired draft %s: %+v", existing.ID, err)
				return err
			}
		}
		if err := u.draftRepo.Create(tx, draft); err != nil {
			return err
		}
		return u.auditService.LogCreate(ctx, tx, owner.String(), entity.AuditActionDraftCreate, entityBookingDraft, draft.ID.String(), map[string]interface{}{
			"current_step": draft.CurrentStep,
		})
	})
	if err != nil {
		if isDuplicateKeyError(err, constraintOpenDraftPerOwner) {
			// A concurrent create for the same owner won.
			winner, findErr := u.draftRepo.FindOpenByOwner(u.transactor.DB(ctx), owner)
			if findErr != nil || winner == nil {
				u.log.Warnf("Failed to load concurrently created draft: %+v", findErr)
				return nil, err
			}
			return u.resume(ctx, owner, winner.ID, payload)
		}
		u.log.Warnf("Failed to create booking draft: %+v", err)
		return nil, err
	}

	u.log.Infof("Booking draft %s created", draft.ID)
	return converter.DraftToResponse(draft, now), nil
}

// resume refreshes a live draft's expiry and merges payload, if any.
func (u *bookingDraftUsecase) resume(ctx context.Context, owner entity.OwnerKey, draftID uuid.UUID, payload entity.StepPayload) (*dto.DraftResponse, error) {
	if payload != nil {
		return u.updateStep(ctx, owner, draftID, payload)
	}

	now := u.now()
	var draft *entity.BookingDraft
	err := u.transactor.WithinTransaction(ctx, func(tx *gorm.DB) error {
		locked, err := u.lockOwned(tx, owner, draftID)
		if err != nil {
			return err
		}
		if err := locked.EnsureOpen(now); err != nil {
			return err
		}
		locked.Touch(now, u.cfg.TTL)
		if err := u.draftRepo.Save(tx, locked); err != nil {
			return err
		}
		draft = locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	return converter.DraftToResponse(draft, now), nil
}

func (u *bookingDraftUsecase) GetDraft(ctx context.Context, owner entity.OwnerKey, draftID uuid.UUID) (*dto.DraftResponse, error) {
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

	now := u.now()
	if draft.IsExpired(now) {
		return nil, entity.ErrDraftExpired
	}
	return converter.DraftToResponse(draft, now), nil
}

func (u *bookingDraftUsecase) UpdateStep(ctx context.Context, owner entity.OwnerKey, draftID uuid.UUID, step int, raw []byte) (*dto.DraftResponse, error) {
	if !owner.Valid() {
		return nil, ErrInvalidOwner
	}
	payload, err := entity.DecodeStepPayload(step, raw)
	if err != nil {
		return nil, err
	}
	return u.updateStep(ctx, owner, draftID, payload)
}

// updateStep validates the payload against an unlocked snapshot first,
// because validation may call the geocoder and load provider data, then
// merges under the row lock. A provider choice validated against services or
// a location that changed in between is rejected.
func (u *bookingDraftUsecase) updateStep(ctx context.Context, owner entity.OwnerKey, draftID uuid.UUID, payload entity.StepPayload) (*dto.DraftResponse, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "BookingDraft.UpdateStep")
	defer span.End()
	span.SetAttributes(attribute.String("draft.id", draftID.String()), attribute.Int("draft.step", payload.Step()))

	now := u.now()
	snapshot, err := u.draftRepo.FindByID(u.transactor.DB(ctx), draftID)
	if err != nil {
		u.log.Warnf("Failed to find draft %s: %+v", draftID, err)
		return nil, err
	}
	if snapshot == nil {
		return nil, ErrDraftNotFound
	}
	if !snapshot.OwnedBy(owner) {
		return nil, ErrDraftNotOwned
	}
	if err := snapshot.EnsureOpen(now); err != nil {
		return nil, err
	}
	if err := u.ensureUnpaid(ctx, snapshot, payload.Step()); err != nil {
		return nil, err
	}
	if err := u.prepare(ctx, snapshot, payload, now); err != nil {
		return nil, err
	}

	var (
		draft  *entity.BookingDraft
		result entity.MergeResult
	)
	err = u.transactor.WithinTransaction(ctx, func(tx *gorm.DB) error {
		locked, err := u.lockOwned(tx, owner, draftID)
		if err != nil {
			return err
		}
		if entity.AffectsPrice(payload.Step()) && !sameIntent(locked, snapshot) {
			return ErrDraftConflict
		}
		if payload.Step() == entity.StepProvider {
			sd, prev := locked.StepData, snapshot.StepData
			if sd.Services == nil || sd.Location == nil ||
				!sd.Services.SameSelection(prev.Services) || !sd.Location.SameLocation(prev.Location) {
				return ErrDraftConflict
			}
		}
		result, err = locked.Merge(payload, now, u.cfg.TTL)
		if err != nil {
			return err
		}
		if err := u.draftRepo.Save(tx, locked); err != nil {
			u.log.Warnf("Failed to save draft %s: %+v", draftID, err)
			return err
		}
		draft = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(result.Cleared) > 0 {
		u.log.Infof("Draft %s step %d changed, cleared steps %v", draftID, result.Step, result.Cleared)
	}
	resp := converter.DraftToResponse(draft, now)
	resp.ClearedSteps = result.Cleared
	return resp, nil
}

// ensureUnpaid rejects edits that could change the price once the client has
// paid the stored intent. The gateway is asked before any row lock is taken.
func (u *bookingDraftUsecase) ensureUnpaid(ctx context.Context, draft *entity.BookingDraft, step int) error {
	if draft.PaymentIntentID == nil || !entity.AffectsPrice(step) {
		return nil
	}
	intent, err := u.payments.RetrieveIntent(ctx, *draft.PaymentIntentID)
	if err != nil {
		u.log.Warnf("Failed to retrieve payment intent %s for draft %s: %+v", *draft.PaymentIntentID, draft.ID, err)
		return err
	}
	if intent.Status.Captured() {
		return ErrPaymentCaptured
	}
	return nil
}

func sameIntent(a, b *entity.BookingDraft) bool {
	if a.PaymentIntentID == nil || b.PaymentIntentID == nil {
		return a.PaymentIntentID == b.PaymentIntentID
	}
	return *a.PaymentIntentID == *b.PaymentIntentID
}

// prepare validates payload and fills in derived data. draft is the state the
// payload will be merged into and is not modified.
func (u *bookingDraftUsecase) prepare(ctx context.Context, draft *entity.BookingDraft, payload entity.StepPayload, now time.Time) error {
	if err := payload.Validate(); err != nil {
		return err
	}

	switch p := payload.(type) {
	case *entity.LocationStep:
		return u.prepareLocation(ctx, p, now)
	case *entity.ProviderStep:
		return u.prepareProvider(ctx, draft, p, now)
	case *entity.PaymentStep:
		return u.preparePromo(ctx, draft, p, now)
	}
	return nil
}

func (u *bookingDraftUsecase) prepareLocation(ctx context.Context, p *entity.LocationStep, now time.Time) error {
	if p.ParsedDate().Before(entity.DateOnly(now.UTC())) {
		return ErrDateInPast
	}
	if _, ok := p.Point(); ok {
		return nil
	}
	if u.geocoder == nil {
		return fmt.Errorf("%w: coordinates are required", entity.ErrInvalidStepPayload)
	}
	point, err := u.geocoder.GeocodePostcode(ctx, p.Postcode)
	if err != nil {
		if !errors.Is(err, gateway.ErrPostcodeNotFound) {
			u.log.Warnf("Failed to geocode postcode %s: %+v", p.Postcode, err)
		}
		return err
	}
	p.SetPoint(point)
	return nil
}

// prepareProvider checks the chosen provider against the draft's services,
// location and date with the same rules as the search, using the widest
// search radius, and checks the slot against the provider's availability.
func (u *bookingDraftUsecase) prepareProvider(ctx context.Context, draft *entity.BookingDraft, p *entity.ProviderStep, now time.Time) error {
	sd := draft.StepData
	if sd.Services == nil || sd.Location == nil {
		return ErrStepOutOfOrder
	}
	point, ok := sd.Location.Point()
	if !ok {
		return ErrStepOutOfOrder
	}

	candidate, err := u.loader.loadOne(ctx, p.ProviderID, sd.Services.ServiceIDs)
	if err != nil {
		u.log.Warnf("Failed to load provider %s: %+v", p.ProviderID, err)
		return err
	}
	if candidate == nil {
		return ErrProviderNotEligible
	}

	date := sd.Location.ParsedDate()
	_, err = matching.Evaluate(*candidate, matching.Criteria{
		Point:          point,
		ServiceIDs:     sd.Services.ServiceIDs,
		CollectionType: sd.Services.CollectionType,
		Date:           &date,
		AsOf:           entity.DateOnly(now.UTC()),
		Radius:         u.geoCfg.FallbackRadius,
		Unit:           u.unit,
	})
	if err != nil {
		if errors.Is(err, matching.ErrUnavailable) {
			return ErrSlotUnavailable
		}
		return fmt.Errorf("%w: %w", ErrProviderNotEligible, err)
	}

	if !entity.DateOnly(p.SlotStart).Equal(date) || !entity.AnyCoversSlot(candidate.Availability, p.SlotStart, p.SlotEnd) {
		return ErrSlotUnavailable
	}
	return nil
}

// preparePromo checks an entered code without recording any usage.
func (u *bookingDraftUsecase) preparePromo(ctx context.Context, draft *entity.BookingDraft, p *entity.PaymentStep, now time.Time) error {
	if p.PromoCode == "" {
		return nil
	}
	err := validatePromoCode(u.transactor.DB(ctx), u.promoRepo, p.PromoCode, draft, now)
	if err != nil {
		if errors.Is(err, pricing.ErrPromoInvalid) {
			u.metrics.PromoRejected(ctx, "draft")
		} else {
			u.log.Warnf("Failed to validate promo code %s: %+v", p.PromoCode, err)
		}
		return err
	}
	return nil
}

func (u *bookingDraftUsecase) ClaimGuestDraft(ctx context.Context, guest, user entity.OwnerKey, draftID uuid.UUID) (*dto.DraftResponse, error) {
	if !guest.IsGuest() {
		return nil, ErrInvalidOwner
	}
	if _, ok := user.UserID(); !ok {
		return nil, ErrInvalidOwner
	}

	now := u.now()
	var draft *entity.BookingDraft
	err := u.transactor.WithinTransaction(ctx, func(tx *gorm.DB) error {
		locked, err := u.lockOwned(tx, guest, draftID)
		if err != nil {
			return err
		}
		if err := locked.EnsureOpen(now); err != nil {
			return err
		}

		previous, err := u.draftRepo.FindOpenByOwner(tx, user)
		if err != nil {
			return err
		}
		if previous != nil {
			if err := u.draftRepo.Delete(tx, previous.ID); err != nil {
				u.log.Warnf("Failed to delete replaced draft %s: %+v", previous.ID, err)
				return err
			}
		}

		rows, err := u.draftRepo.ChangeOwner(tx, draftID, guest, user)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrDraftConflict
		}
		locked.OwnerKey = user
		locked.Touch(now, u.cfg.TTL)
		if err := u.draftRepo.Save(tx, locked); err != nil {
			return err
		}
		draft = locked

		replaced := ""
		if previous != nil {
			replaced = previous.ID.String()
		}
		return u.auditService.LogUpdate(ctx, tx, user.String(), entity.AuditActionDraftClaim, entityBookingDraft, draftID.String(),
			map[string]interface{}{"owner": "guest"},
			map[string]interface{}{"owner": user.String(), "replaced_draft": replaced},
		)
	})
	if err != nil {
		if !isDraftClientError(err) {
			u.log.Warnf("Failed to claim draft %s: %+v", draftID, err)
		}
		return nil, err
	}

	u.log.Infof("Draft %s claimed by %s", draftID, user)
	return converter.DraftToResponse(draft, now), nil
}

func (u *bookingDraftUsecase) ReapExpired(ctx context.Context) (int64, error) {
	cutoff := u.now().Add(-u.cfg.ReapGrace)
	n, err := u.draftRepo.DeleteExpired(u.transactor.DB(ctx), cutoff)
	if err != nil {
		u.log.Warnf("Failed to delete expired drafts: %+v", err)
		return 0, err
	}
	return n, nil
}

// lockOwned takes the draft row lock and checks ownership.
func (u *bookingDraftUsecase) lockOwned(tx *gorm.DB, owner entity.OwnerKey, draftID uuid.UUID) (*entity.BookingDraft, error) {
	draft, err := u.draftRepo.FindByIDForUpdate(tx, draftID)
	if err != nil {
		u.log.Warnf("Failed to lock draft %s: %+v", draftID, err)
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

func isDraftClientError(err error) bool {
	return errors.Is(err, ErrDraftNotFound) || errors.Is(err, ErrDraftNotOwned) || errors.Is(err, ErrDraftConflict) ||
		errors.Is(err, entity.ErrDraftExpired) || errors.Is(err, entity.ErrDraftAlreadyCommitted)
}

// validatePromoCode looks a code up and checks it for the draft's owner and
// patient, writing nothing.
func validatePromoCode(db *gorm.DB, promoRepo repository.PromoCodeRepository, code string, draft *entity.BookingDraft, now time.Time) error {
	_, err := loadValidPromo(db, promoRepo, code, draft, now)
	return err
}

func loadValidPromo(db *gorm.DB, promoRepo repository.PromoCodeRepository, code string, draft *entity.BookingDraft, now time.Time) (*entity.PromoCode, error) {
	promo, err := promoRepo.FindByCode(db, code)
	if err != nil {
		return nil, err
	}
	if promo == nil {
		return nil, pricing.ErrPromoNotFound
	}
	used, err := promoRepo.CountUserUsage(db, promo.ID, draft.OwnerKey, draft.PatientEmail())
	if err != nil {
		return nil, err
	}
	if err := pricing.ValidatePromo(promo, now, int(used)); err != nil {
		return nil, err
	}
	return promo, nil
}
