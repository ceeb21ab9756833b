package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/hisiddique/bloodathome/config"
	"github.com/hisiddique/bloodathome/internal/delivery/dto"
	"github.com/hisiddique/bloodathome/internal/domain/entity"
	"github.com/hisiddique/bloodathome/internal/geo"
	"github.com/hisiddique/bloodathome/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var (
	// Monday; bookings in these tests are for the following Tuesday.
	testNow      = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	testDate     = "2026-03-03"
	testOrigin   = geo.Point{Lat: 51.5074, Lng: -0.1278}
	testPostcode = "SW1A 1AA"
)

type testEnv struct {
	store    *memStore
	gw       *fakeGateway
	notifier *recordingNotifier
	locker   *service.DraftLockService

	drafts   *bookingDraftUsecase
	search   *providerSearchUsecase
	pricing  *pricingUsecase
	payments *paymentUsecase
	bookings *bookingUsecase
	reviews  *reviewUsecase
	history  AuditLogUsecase
	catalog  ServiceCatalogueUsecase

	near      entity.Provider
	far       entity.Provider
	bloodTest uuid.UUID
	vitaminD  uuid.UUID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	log := quietLogger()
	store := newMemStore()
	tx := &memTransactor{store: store}

	draftRepo := &memDraftRepo{store}
	bookingRepo := &memBookingRepo{store}
	paymentRepo := &memPaymentRepo{store}
	settlementRepo := &memSettlementRepo{store}
	promoRepo := &memPromoRepo{store}
	reviewRepo := &memReviewRepo{store}
	providerRepo := &memProviderRepo{store}
	offerRepo := &memOfferRepo{store}
	availabilityRepo := &memAvailabilityRepo{store}
	auditRepo := &memAuditRepo{store}
	serviceRepo := &memServiceRepo{store}

	geoCfg := config.GeoConfig{DefaultRadius: 10, FallbackRadius: 25, DistanceUnit: "mi"}
	draftCfg := config.DraftConfig{TTL: time.Hour, ReapGrace: 24 * time.Hour}
	pricingCfg := config.PricingConfig{ServiceFeePercent: 5, VATPercent: 20, Currency: "gbp"}
	geocoder := staticGeocoder{testPostcode: testOrigin}

	env := &testEnv{
		store:    store,
		gw:       newFakeGateway(),
		notifier: &recordingNotifier{},
		locker:   service.NewDraftLockService(nil, log, time.Second),
	}
	t.Cleanup(env.locker.Stop)

	audit := service.NewAuditService(log, auditRepo)
	clock := func() time.Time { return testNow }

	env.drafts = NewBookingDraftUsecase(tx, log, draftCfg, geoCfg, draftRepo, promoRepo, providerRepo, offerRepo,
		availabilityRepo, geocoder, env.gw, audit, nil).(*bookingDraftUsecase)
	env.drafts.now = clock
	env.search = NewProviderSearchUsecase(tx, log, geoCfg, providerRepo, offerRepo, availabilityRepo, geocoder, nil).(*providerSearchUsecase)
	env.search.now = clock
	env.pricing = NewPricingUsecase(tx, log, pricingCfg, draftRepo, offerRepo, promoRepo, nil).(*pricingUsecase)
	env.pricing.now = clock
	env.payments = NewPaymentUsecase(tx, log, pricingCfg, draftRepo, bookingRepo, paymentRepo, offerRepo, promoRepo,
		settlementRepo, env.gw, env.locker, audit, env.notifier, nil).(*paymentUsecase)
	env.payments.now = clock
	env.bookings = NewBookingUsecase(tx, log, bookingRepo, paymentRepo, settlementRepo, providerRepo, audit).(*bookingUsecase)
	env.bookings.now = clock
	env.reviews = NewReviewUsecase(tx, log, reviewRepo, bookingRepo, providerRepo, audit).(*reviewUsecase)
	env.history = NewAuditLogUsecase(tx, log, auditRepo, bookingRepo)
	env.catalog = NewServiceCatalogueUsecase(tx, log, serviceRepo)

	env.seedCatalogue()
	return env
}

func (e *testEnv) seedCatalogue() {
	e.bloodTest = uuid.New()
	e.vitaminD = uuid.New()
	e.store.services[e.bloodTest] = entity.Service{ID: e.bloodTest, Name: "Full blood count", Code: "FBC", Category: "Haematology", IsActive: true}
	e.store.services[e.vitaminD] = entity.Service{ID: e.vitaminD, Name: "Vitamin D", Code: "VITD", Category: "Biochemistry", IsActive: true}

	e.near = e.addProvider("Near Phlebotomy", entity.ProviderTypeIndividual, 51.5174, -0.1278, 4.5)
	e.far = e.addProvider("Far Clinic", entity.ProviderTypeClinic, 51.7274, -0.1278, 4.9) // about 15 miles north
	e.addOffer(e.near.ID, e.bloodTest, "40.00")
	e.addOffer(e.near.ID, e.vitaminD, "60.00")
	e.addOffer(e.far.ID, e.bloodTest, "30.00")
	e.store.areas = append(e.store.areas, entity.ProviderServiceArea{
		ID: uuid.New(), ProviderID: e.near.ID, CentreLat: e.near.Latitude, CentreLng: e.near.Longitude, Radius: 10,
	})
}

func (e *testEnv) addProvider(name string, typ entity.ProviderType, lat, lng, rating float64) entity.Provider {
	p := entity.Provider{
		ID:                uuid.New(),
		Name:              name,
		Type:              typ,
		Status:            entity.ProviderStatusActive,
		Latitude:          lat,
		Longitude:         lng,
		OffersHomeVisit:   true,
		OffersClinicVisit: true,
		AverageRating:     rating,
	}
	e.store.providers[p.ID] = p
	tuesday := 2
	e.store.windows = append(e.store.windows, entity.ProviderAvailability{
		ID: len(e.store.windows) + 1, ProviderID: p.ID, DayOfWeek: &tuesday, StartTime: "09:00", EndTime: "17:00",
	})
	return p
}

func (e *testEnv) addOffer(providerID, serviceID uuid.UUID, cost string) {
	e.store.offers = append(e.store.offers, entity.ProviderService{
		ID:                uuid.New(),
		ProviderID:        providerID,
		ServiceID:         serviceID,
		BaseCost:          decimal.RequireFromString(cost),
		CommissionPercent: decimal.RequireFromString("20"),
		StartDate:         time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Status:            entity.OfferStatusActive,
	})
}

func (e *testEnv) addPromo(code string, limit *int) entity.PromoCode {
	p := entity.PromoCode{
		ID:           uuid.New(),
		Code:         code,
		DiscountType: entity.DiscountPercentage,
		Value:        decimal.RequireFromString("10"),
		UsageLimit:   limit,
		ValidFrom:    testNow.Add(-24 * time.Hour),
		IsActive:     true,
	}
	e.store.mu.Lock()
	e.store.promos[p.ID] = p
	e.store.mu.Unlock()
	return p
}

func mustJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func (e *testEnv) servicesStep(t *testing.T) []byte {
	return mustJSON(t, map[string]interface{}{
		"service_ids":     []uuid.UUID{e.bloodTest, e.vitaminD},
		"collection_type": "home",
	})
}

func locationStep(t *testing.T) []byte {
	return mustJSON(t, map[string]interface{}{"postcode": "sw1a  1aa", "date": testDate})
}

func (e *testEnv) providerStep(t *testing.T, providerID uuid.UUID) []byte {
	return mustJSON(t, map[string]interface{}{
		"provider_id": providerID,
		"slot_start":  testDate + "T10:00:00Z",
		"slot_end":    testDate + "T10:30:00Z",
	})
}

func patientStep(t *testing.T) []byte {
	return mustJSON(t, map[string]interface{}{
		"full_name":     "Jane Patient",
		"date_of_birth": "1990-05-01",
		"email":         "Jane@Example.com",
		"phone":         "07700900123",
	})
}

// readyDraft walks a draft for owner through every step. promo may be empty.
func (e *testEnv) readyDraft(t *testing.T, owner entity.OwnerKey, promo string) uuid.UUID {
	t.Helper()
	ctx := context.Background()

	d, err := e.drafts.CreateDraft(ctx, owner, &dto.CreateDraftRequest{Step: entity.StepServices, Payload: e.servicesStep(t)})
	require.NoError(t, err)

	steps := [][]byte{nil, nil, locationStep(t), e.providerStep(t, e.near.ID), patientStep(t)}
	for step := entity.StepLocation; step <= entity.StepPatient; step++ {
		_, err := e.drafts.UpdateStep(ctx, owner, d.ID, step, steps[step])
		require.NoError(t, err, "step %d", step)
	}
	if promo != "" {
		_, err := e.drafts.UpdateStep(ctx, owner, d.ID, entity.StepPayment, mustJSON(t, map[string]string{"promo_code": promo}))
		require.NoError(t, err)
	}
	return d.ID
}

// paidDraft readies a draft, opens an intent and marks it paid.
func (e *testEnv) paidDraft(t *testing.T, owner entity.OwnerKey, promo string) (uuid.UUID, string) {
	t.Helper()
	draftID := e.readyDraft(t, owner, promo)
	intent, err := e.payments.CreateIntent(context.Background(), owner, draftID)
	require.NoError(t, err)
	e.gw.succeed(intent.PaymentIntentID)
	return draftID, intent.PaymentIntentID
}

func newUserOwner() entity.OwnerKey {
	return entity.UserOwner(uuid.New())
}

func newGuestOwner() entity.OwnerKey {
	return entity.GuestOwner(entity.NewGuestToken())
}

func intPtr(i int) *int {
	return &i
}

func floatPtr(f float64) *float64 {
	return &f
}

func (e *testEnv) draft(t *testing.T, id uuid.UUID) *entity.BookingDraft {
	t.Helper()
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	d, ok := e.store.drafts[id]
	require.True(t, ok, fmt.Sprintf("draft %s not stored", id))
	return &d
}
