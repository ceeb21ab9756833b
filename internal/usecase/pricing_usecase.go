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
	"github.com/hisiddique/bloodathome/internal/domain/repository"
	"github.com/hisiddique/bloodathome/internal/infrastructure/telemetry"
	"github.com/hisiddique/bloodathome/internal/pricing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type PricingUsecase interface {
	// PreviewQuote prices a draft for display. An entered promo code is
	// validated but no usage is recorded.
	PreviewQuote(ctx context.Context, owner entity.OwnerKey, draftID uuid.UUID) (*dto.QuoteResponse, error)
}

type pricingUsecase struct {
	transactor repository.Transactor
	log        *logrus.Logger
	draftRepo  repository.BookingDraftRepository
	quotes     *quoteBuilder
	metrics    *telemetry.Metrics
	now        func() time.Time
}

func NewPricingUsecase(
	transactor repository.Transactor,
	log *logrus.Logger,
	cfg config.PricingConfig,
	draftRepo repository.BookingDraftRepository,
	offerRepo repository.ProviderServiceRepository,
	promoRepo repository.PromoCodeRepository,
	metrics *telemetry.Metrics,
) PricingUsecase {
	return &pricingUsecase{
		transactor: transactor,
		log:        log,
		draftRepo:  draftRepo,
		quotes:     newQuoteBuilder(cfg, offerRepo, promoRepo),
		metrics:    metrics,
		now:        time.Now,
	}
}

func (u *pricingUsecase) PreviewQuote(ctx context.Context, owner entity.OwnerKey, draftID uuid.UUID) (*dto.QuoteResponse, error) {
	db := u.transactor.DB(ctx)
	draft, err := u.draftRepo.FindByID(db, draftID)
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
	if err := draft.EnsureOpen(now); err != nil {
		return nil, err
	}

	dq, err := u.quotes.build(db, draft, now)
	if err != nil {
		if errors.Is(err, pricing.ErrPromoInvalid) {
			u.metrics.PromoRejected(ctx, "preview")
		}
		return nil, err
	}
	return converter.QuoteToResponse(draft.ID, dq.providerID, &dq.quote, dq.unmatched), nil
}

// =============================================================================
// Quote builder
// =============================================================================

// quoteBuilder prices a draft from the chosen provider's offers current on
// the booking date. It takes a db handle so the commit can re-price inside
// its transaction.
type quoteBuilder struct {
	engine    pricing.Engine
	offerRepo repository.ProviderServiceRepository
	promoRepo repository.PromoCodeRepository
}

func newQuoteBuilder(cfg config.PricingConfig, offerRepo repository.ProviderServiceRepository, promoRepo repository.PromoCodeRepository) *quoteBuilder {
	return &quoteBuilder{
		engine:    pricing.NewEngine(cfg.ServiceFeePercent, cfg.VATPercent, cfg.Currency),
		offerRepo: offerRepo,
		promoRepo: promoRepo,
	}
}

type draftQuote struct {
	quote      pricing.Quote
	providerID uuid.UUID
	// unmatched are requested services the provider does not offer on the date
	unmatched []uuid.UUID
}

func (b *quoteBuilder) build(db *gorm.DB, draft *entity.BookingDraft, now time.Time) (*draftQuote, error) {
	sd := draft.StepData
	if sd.Services == nil || sd.Location == nil || sd.Provider == nil {
		return nil, fmt.Errorf("%w: services, location and provider are required for a quote", entity.ErrDraftIncomplete)
	}

	providerID := sd.Provider.ProviderID
	offers, err := b.offerRepo.FindOffers(db, []uuid.UUID{providerID}, sd.Services.ServiceIDs)
	if err != nil {
		return nil, err
	}
	current := entity.CurrentOffers(offers, sd.Location.ParsedDate())

	dq := &draftQuote{providerID: providerID}
	var lines []pricing.Line
	for _, sid := range sd.Services.ServiceIDs {
		offer, ok := current[sid]
		if !ok {
			dq.unmatched = append(dq.unmatched, sid)
			continue
		}
		lines = append(lines, pricing.Line{
			ServiceID:         sid,
			OfferID:           offer.ID,
			Name:              offer.Service.Name,
			Cost:              pricing.Round(offer.BaseCost),
			CommissionPercent: offer.CommissionPercent,
		})
	}
	if len(lines) == 0 {
		return nil, ErrProviderNotEligible
	}

	var promo *entity.PromoCode
	if code := draft.PromoCode(); code != "" {
		promo, err = loadValidPromo(db, b.promoRepo, code, draft, now)
		if err != nil {
			return nil, err
		}
	}

	q, err := b.engine.Price(lines, promo)
	if err != nil {
		return nil, err
	}
	dq.quote = q
	return dq, nil
}
