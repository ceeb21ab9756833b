package usecase

import (
	"context"
	"fmt"
	"io"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/hisiddique/bloodathome/internal/domain/entity"
	"github.com/hisiddique/bloodathome/internal/domain/gateway"
	"github.com/hisiddique/bloodathome/internal/geo"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// memStore is an in-memory database. Transactions are serialised and roll
// back by restoring a snapshot, which is enough to model row locks and the
// unique indexes the usecases depend on.
type memStore struct {
	mu   sync.Mutex
	txMu sync.Mutex

	drafts      map[uuid.UUID]entity.BookingDraft
	bookings    map[uuid.UUID]entity.Booking
	payments    map[uuid.UUID]entity.Payment
	settlements map[uuid.UUID]entity.ProviderSettlement // by booking id
	promos      map[uuid.UUID]entity.PromoCode
	usages      []entity.PromoCodeUsage
	reviews     map[uuid.UUID]entity.Review
	providers   map[uuid.UUID]entity.Provider
	services    map[uuid.UUID]entity.Service
	offers      []entity.ProviderService
	windows     []entity.ProviderAvailability
	areas       []entity.ProviderServiceArea
	audit       []entity.AuditLog

	failNextBookingCreate error
}

func newMemStore() *memStore {
	return &memStore{
		drafts:      map[uuid.UUID]entity.BookingDraft{},
		bookings:    map[uuid.UUID]entity.Booking{},
		payments:    map[uuid.UUID]entity.Payment{},
		settlements: map[uuid.UUID]entity.ProviderSettlement{},
		promos:      map[uuid.UUID]entity.PromoCode{},
		reviews:     map[uuid.UUID]entity.Review{},
		providers:   map[uuid.UUID]entity.Provider{},
		services:    map[uuid.UUID]entity.Service{},
	}
}

type memSnapshot struct {
	drafts      map[uuid.UUID]entity.BookingDraft
	bookings    map[uuid.UUID]entity.Booking
	payments    map[uuid.UUID]entity.Payment
	settlements map[uuid.UUID]entity.ProviderSettlement
	promos      map[uuid.UUID]entity.PromoCode
	usages      []entity.PromoCodeUsage
	reviews     map[uuid.UUID]entity.Review
	providers   map[uuid.UUID]entity.Provider
	audit       []entity.AuditLog
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return memSnapshot{
		drafts:      maps.Clone(s.drafts),
		bookings:    maps.Clone(s.bookings),
		payments:    maps.Clone(s.payments),
		settlements: maps.Clone(s.settlements),
		promos:      maps.Clone(s.promos),
		usages:      append([]entity.PromoCodeUsage(nil), s.usages...),
		reviews:     maps.Clone(s.reviews),
		providers:   maps.Clone(s.providers),
		audit:       append([]entity.AuditLog(nil), s.audit...),
	}
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drafts = snap.drafts
	s.bookings = snap.bookings
	s.payments = snap.payments
	s.settlements = snap.settlements
	s.promos = snap.promos
	s.usages = snap.usages
	s.reviews = snap.reviews
	s.providers = snap.providers
	s.audit = snap.audit
}

func duplicateKey(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint, Message: "duplicate key value violates unique constraint"}
}

// =============================================================================
// Transactor
// =============================================================================

type memTransactor struct {
	store *memStore
}

func (t *memTransactor) DB(ctx context.Context) *gorm.DB {
	return nil
}

func (t *memTransactor) WithinTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	t.store.txMu.Lock()
	defer t.store.txMu.Unlock()

	snap := t.store.snapshot()
	if err := fn(nil); err != nil {
		t.store.restore(snap)
		return err
	}
	return nil
}

// =============================================================================
// Repositories
// =============================================================================

type memDraftRepo struct{ s *memStore }

func (r *memDraftRepo) Create(db *gorm.DB, draft *entity.BookingDraft) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, d := range r.s.drafts {
		if d.OwnerKey == draft.OwnerKey && d.Status == entity.DraftStatusOpen {
			return duplicateKey(constraintOpenDraftPerOwner)
		}
	}
	r.s.drafts[draft.ID] = *draft
	return nil
}

func (r *memDraftRepo) FindByID(db *gorm.DB, id uuid.UUID) (*entity.BookingDraft, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.drafts[id]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (r *memDraftRepo) FindByIDForUpdate(db *gorm.DB, id uuid.UUID) (*entity.BookingDraft, error) {
	return r.FindByID(db, id)
}

func (r *memDraftRepo) FindOpenByOwner(db *gorm.DB, owner entity.OwnerKey) (*entity.BookingDraft, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, d := range r.s.drafts {
		if d.OwnerKey == owner && d.Status == entity.DraftStatusOpen {
			return &d, nil
		}
	}
	return nil, nil
}

func (r *memDraftRepo) Save(db *gorm.DB, draft *entity.BookingDraft) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.drafts[draft.ID]
	if !ok {
		return nil
	}
	d.CurrentStep = draft.CurrentStep
	d.StepData = draft.StepData
	d.ExpiresAt = draft.ExpiresAt
	r.s.drafts[draft.ID] = d
	return nil
}

func (r *memDraftRepo) UpdateIntent(db *gorm.DB, id uuid.UUID, expectedSeq int, intentID string, amountMinor int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.drafts[id]
	if !ok || d.Status != entity.DraftStatusOpen || d.PaymentIntentSeq != expectedSeq {
		return 0, nil
	}
	d.PaymentIntentID = &intentID
	d.PaymentIntentAmount = &amountMinor
	d.PaymentIntentSeq++
	r.s.drafts[id] = d
	return 1, nil
}

func (r *memDraftRepo) MarkCommitted(db *gorm.DB, id uuid.UUID, bookingID uuid.UUID, at time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.drafts[id]
	if !ok || d.Status != entity.DraftStatusOpen {
		return 0, nil
	}
	d.MarkCommitted(bookingID, at)
	r.s.drafts[id] = d
	return 1, nil
}

func (r *memDraftRepo) ChangeOwner(db *gorm.DB, id uuid.UUID, from, to entity.OwnerKey) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.drafts[id]
	if !ok || d.OwnerKey != from || d.Status != entity.DraftStatusOpen {
		return 0, nil
	}
	d.OwnerKey = to
	r.s.drafts[id] = d
	return 1, nil
}

func (r *memDraftRepo) Delete(db *gorm.DB, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if d, ok := r.s.drafts[id]; ok && d.Status == entity.DraftStatusOpen {
		delete(r.s.drafts, id)
	}
	return nil
}

func (r *memDraftRepo) DeleteExpired(db *gorm.DB, before time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, d := range r.s.drafts {
		if d.Status == entity.DraftStatusOpen && d.ExpiresAt.Before(before) {
			delete(r.s.drafts, id)
			n++
		}
	}
	return n, nil
}

type memBookingRepo struct{ s *memStore }

func (r *memBookingRepo) Create(db *gorm.DB, booking *entity.Booking) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failNextBookingCreate; err != nil {
		r.s.failNextBookingCreate = nil
		return err
	}
	for _, b := range r.s.bookings {
		if booking.DraftID != nil && b.DraftID != nil && *b.DraftID == *booking.DraftID {
			return duplicateKey(constraintBookingDraftID)
		}
	}
	stored := *booking
	stored.Payments = nil
	stored.Settlement = nil
	r.s.bookings[booking.ID] = stored
	return nil
}

// hydrate attaches payments and settlement the way the preloads do
func (r *memBookingRepo) hydrate(b entity.Booking) *entity.Booking {
	b.Payments = nil
	for _, p := range r.s.payments {
		if p.BookingID == b.ID {
			b.Payments = append(b.Payments, p)
		}
	}
	if st, ok := r.s.settlements[b.ID]; ok {
		b.Settlement = &st
	}
	return &b
}

func (r *memBookingRepo) FindByID(db *gorm.DB, id uuid.UUID) (*entity.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.bookings[id]
	if !ok {
		return nil, nil
	}
	return r.hydrate(b), nil
}

func (r *memBookingRepo) FindByDraftID(db *gorm.DB, draftID uuid.UUID) (*entity.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, b := range r.s.bookings {
		if b.DraftID != nil && *b.DraftID == draftID {
			return r.hydrate(b), nil
		}
	}
	return nil, nil
}

func (r *memBookingRepo) FindByConfirmationNumber(db *gorm.DB, number string) (*entity.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, b := range r.s.bookings {
		if b.ConfirmationNumber == number {
			return r.hydrate(b), nil
		}
	}
	return nil, nil
}

func (r *memBookingRepo) FindByOwner(db *gorm.DB, owner entity.OwnerKey) ([]entity.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []entity.Booking
	for _, b := range r.s.bookings {
		if b.OwnedBy(owner) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memBookingRepo) update(id uuid.UUID, allowed []entity.BookingStatus, fn func(b *entity.Booking)) int64 {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.bookings[id]
	if !ok {
		return 0
	}
	for _, st := range allowed {
		if b.Status == st {
			fn(&b)
			r.s.bookings[id] = b
			return 1
		}
	}
	return 0
}

func (r *memBookingRepo) CancelBooking(db *gorm.DB, id uuid.UUID, at time.Time, reason, by string) (int64, error) {
	return r.update(id, []entity.BookingStatus{entity.BookingStatusPending, entity.BookingStatusConfirmed}, func(b *entity.Booking) {
		b.Status = entity.BookingStatusCancelled
		b.CancelledAt = &at
		b.CancellationReason = reason
		b.CancelledBy = by
	}), nil
}

func (r *memBookingRepo) CompleteBooking(db *gorm.DB, id uuid.UUID, at time.Time) (int64, error) {
	return r.update(id, []entity.BookingStatus{entity.BookingStatusConfirmed}, func(b *entity.Booking) {
		b.Status = entity.BookingStatusCompleted
		b.CompletedAt = &at
	}), nil
}

func (r *memBookingRepo) UpdateProvider(db *gorm.DB, id uuid.UUID, providerID uuid.UUID) (int64, error) {
	return r.update(id, []entity.BookingStatus{entity.BookingStatusPending, entity.BookingStatusConfirmed}, func(b *entity.Booking) {
		b.ProviderID = providerID
	}), nil
}

type memPaymentRepo struct{ s *memStore }

func (r *memPaymentRepo) Create(db *gorm.DB, payment *entity.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.payments[payment.ID] = *payment
	return nil
}

func (r *memPaymentRepo) FindByBookingID(db *gorm.DB, bookingID uuid.UUID) ([]entity.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []entity.Payment
	for _, p := range r.s.payments {
		if p.BookingID == bookingID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memPaymentRepo) MarkRefunded(db *gorm.DB, id uuid.UUID, at time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.payments[id]
	if !ok || p.Status != entity.PaymentStatusCompleted {
		return 0, nil
	}
	p.Status = entity.PaymentStatusRefunded
	p.RefundedAt = &at
	r.s.payments[id] = p
	return 1, nil
}

type memSettlementRepo struct{ s *memStore }

func (r *memSettlementRepo) Create(db *gorm.DB, settlement *entity.ProviderSettlement) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.settlements[settlement.BookingID] = *settlement
	return nil
}

func (r *memSettlementRepo) FindByBookingID(db *gorm.DB, bookingID uuid.UUID) (*entity.ProviderSettlement, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	st, ok := r.s.settlements[bookingID]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

func (r *memSettlementRepo) UpdatePayee(db *gorm.DB, bookingID uuid.UUID, providerID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	st, ok := r.s.settlements[bookingID]
	if !ok || st.Status != entity.SettlementStatusPending {
		return 0, nil
	}
	st.ProviderID = providerID
	r.s.settlements[bookingID] = st
	return 1, nil
}

type memPromoRepo struct{ s *memStore }

func (r *memPromoRepo) FindByCode(db *gorm.DB, code string) (*entity.PromoCode, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.promos {
		if p.Code == code {
			return &p, nil
		}
	}
	return nil, nil
}

func (r *memPromoRepo) IncrementUsage(db *gorm.DB, id uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.promos[id]
	if !ok || (p.UsageLimit != nil && p.UsageCount >= *p.UsageLimit) {
		return 0, nil
	}
	p.UsageCount++
	r.s.promos[id] = p
	return 1, nil
}

func (r *memPromoRepo) CountUserUsage(db *gorm.DB, promoID uuid.UUID, owner entity.OwnerKey, email string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, u := range r.s.usages {
		if u.PromoCodeID == promoID && (u.OwnerKey == owner || (email != "" && u.PatientEmail == email)) {
			n++
		}
	}
	return n, nil
}

func (r *memPromoRepo) CreateUsage(db *gorm.DB, usage *entity.PromoCodeUsage) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.usages = append(r.s.usages, *usage)
	return nil
}

type memReviewRepo struct{ s *memStore }

func (r *memReviewRepo) Create(db *gorm.DB, review *entity.Review) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, rv := range r.s.reviews {
		if rv.BookingID == review.BookingID {
			return duplicateKey(constraintReviewBooking)
		}
	}
	r.s.reviews[review.ID] = *review
	return nil
}

func (r *memReviewRepo) FindByID(db *gorm.DB, id uuid.UUID) (*entity.Review, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rv, ok := r.s.reviews[id]
	if !ok {
		return nil, nil
	}
	return &rv, nil
}

func (r *memReviewRepo) FindByBookingID(db *gorm.DB, bookingID uuid.UUID) (*entity.Review, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, rv := range r.s.reviews {
		if rv.BookingID == bookingID {
			return &rv, nil
		}
	}
	return nil, nil
}

func (r *memReviewRepo) Update(db *gorm.DB, review *entity.Review) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.reviews[review.ID] = *review
	return nil
}

func (r *memReviewRepo) Delete(db *gorm.DB, id uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.reviews[id]; !ok {
		return 0, nil
	}
	delete(r.s.reviews, id)
	return 1, nil
}

func (r *memReviewRepo) RatingStats(db *gorm.DB, providerID uuid.UUID) (entity.RatingStats, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var sum, n int
	for _, rv := range r.s.reviews {
		if rv.ProviderID == providerID && rv.IsPublished {
			sum += rv.Rating
			n++
		}
	}
	if n == 0 {
		return entity.RatingStats{}, nil
	}
	return entity.RatingStats{AverageRating: float64(sum) / float64(n), ReviewCount: n}, nil
}

type memProviderRepo struct{ s *memStore }

func (r *memProviderRepo) FindByID(db *gorm.DB, id uuid.UUID) (*entity.Provider, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.providers[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *memProviderRepo) FindCandidates(db *gorm.DB, filter *entity.ProviderFilter) ([]entity.Provider, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []entity.Provider
	for _, p := range r.s.providers {
		if !p.IsActive() {
			continue
		}
		if filter != nil {
			if p.Latitude < filter.Min.Lat || p.Latitude > filter.Max.Lat ||
				!geo.LngWithin(p.Longitude, filter.Min.Lng, filter.Max.Lng) {
				continue
			}
			if len(filter.Types) > 0 && !containsType(filter.Types, p.Type) {
				continue
			}
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func containsType(types []entity.ProviderType, t entity.ProviderType) bool {
	for _, x := range types {
		if x == t {
			return true
		}
	}
	return false
}

func (r *memProviderRepo) FindServiceAreas(db *gorm.DB, providerIDs []uuid.UUID) ([]entity.ProviderServiceArea, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ids := idSet(providerIDs)
	var out []entity.ProviderServiceArea
	for _, a := range r.s.areas {
		if _, ok := ids[a.ProviderID]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *memProviderRepo) UpdateRatingStats(db *gorm.DB, id uuid.UUID, stats entity.RatingStats) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.providers[id]
	if !ok {
		return nil
	}
	p.AverageRating = stats.AverageRating
	p.ReviewCount = stats.ReviewCount
	r.s.providers[id] = p
	return nil
}

type memOfferRepo struct{ s *memStore }

func (r *memOfferRepo) FindOffers(db *gorm.DB, providerIDs []uuid.UUID, serviceIDs []uuid.UUID) ([]entity.ProviderService, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	pids, sids := idSet(providerIDs), idSet(serviceIDs)
	var out []entity.ProviderService
	for _, o := range r.s.offers {
		_, okP := pids[o.ProviderID]
		_, okS := sids[o.ServiceID]
		if okP && okS {
			o.Service = r.s.services[o.ServiceID]
			out = append(out, o)
		}
	}
	return out, nil
}

type memAvailabilityRepo struct{ s *memStore }

func (r *memAvailabilityRepo) FindByProviderIDs(db *gorm.DB, providerIDs []uuid.UUID) ([]entity.ProviderAvailability, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ids := idSet(providerIDs)
	var out []entity.ProviderAvailability
	for _, a := range r.s.windows {
		if _, ok := ids[a.ProviderID]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

type memAuditRepo struct{ s *memStore }

func (r *memAuditRepo) Create(db *gorm.DB, log *entity.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	log.ID = int64(len(r.s.audit) + 1)
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}
	r.s.audit = append(r.s.audit, *log)
	return nil
}

func (r *memAuditRepo) FindTrail(db *gorm.DB, refs ...entity.AuditRef) ([]entity.AuditLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	want := make(map[entity.AuditRef]bool, len(refs))
	for _, ref := range refs {
		want[ref] = true
	}
	var out []entity.AuditLog
	for _, l := range r.s.audit {
		if want[entity.AuditRef{Entity: l.Entity, EntityID: l.EntityID}] {
			out = append(out, l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *memStore) auditActions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, l := range s.audit {
		out = append(out, l.Action)
	}
	return out
}

func idSet(ids []uuid.UUID) map[uuid.UUID]struct{} {
	set := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// =============================================================================
// Gateways
// =============================================================================

type fakeGateway struct {
	mu         sync.Mutex
	intents    map[string]gateway.Intent
	byKey      map[string]string
	seq        int
	createCall int
	cancelled  []string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{intents: map[string]gateway.Intent{}, byKey: map[string]string{}}
}

func (g *fakeGateway) CreateIntent(ctx context.Context, req gateway.CreateIntentRequest) (*gateway.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.createCall++
	if id, ok := g.byKey[req.IdempotencyKey]; ok {
		in := g.intents[id]
		return &in, nil
	}
	g.seq++
	in := gateway.Intent{
		ID:           fmt.Sprintf("pi_%d", g.seq),
		ClientSecret: fmt.Sprintf("pi_%d_secret", g.seq),
		AmountMinor:  req.AmountMinor,
		Currency:     req.Currency,
		Status:       gateway.IntentRequiresPaymentMethod,
		DraftID:      req.DraftID,
	}
	g.intents[in.ID] = in
	g.byKey[req.IdempotencyKey] = in.ID
	return &in, nil
}

func (g *fakeGateway) RetrieveIntent(ctx context.Context, intentID string) (*gateway.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	in, ok := g.intents[intentID]
	if !ok {
		return nil, gateway.ErrPaymentGateway
	}
	return &in, nil
}

func (g *fakeGateway) ConfirmIntent(ctx context.Context, intentID string) (*gateway.Intent, error) {
	g.succeed(intentID)
	return g.RetrieveIntent(ctx, intentID)
}

func (g *fakeGateway) CancelIntent(ctx context.Context, intentID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	in, ok := g.intents[intentID]
	if !ok {
		return gateway.ErrPaymentGateway
	}
	if in.Status.Captured() {
		return fmt.Errorf("%w: cannot cancel a %s intent", gateway.ErrPaymentGateway, in.Status)
	}
	in.Status = gateway.IntentCanceled
	g.intents[intentID] = in
	g.cancelled = append(g.cancelled, intentID)
	return nil
}

func (g *fakeGateway) succeed(intentID string) {
	g.setStatus(intentID, gateway.IntentSucceeded)
}

func (g *fakeGateway) setStatus(intentID string, status gateway.IntentStatus) {
	g.mu.Lock()
	defer g.mu.Unlock()
	in := g.intents[intentID]
	in.Status = status
	g.intents[intentID] = in
}

func (g *fakeGateway) creates() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.createCall
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []gateway.BookingConfirmedEvent
}

func (n *recordingNotifier) BookingConfirmed(ctx context.Context, event gateway.BookingConfirmedEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}

type staticGeocoder map[string]geo.Point

func (g staticGeocoder) GeocodePostcode(ctx context.Context, postcode string) (geo.Point, error) {
	p, ok := g[postcode]
	if !ok {
		return geo.Point{}, gateway.ErrPostcodeNotFound
	}
	return p, nil
}

type memServiceRepo struct{ s *memStore }

func (r *memServiceRepo) FindAllActive(db *gorm.DB) ([]entity.Service, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []entity.Service
	for _, svc := range r.s.services {
		if svc.IsActive {
			out = append(out, svc)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}
