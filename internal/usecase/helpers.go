package usecase

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hisiddique/bloodathome/internal/domain/entity"
	"github.com/hisiddique/bloodathome/internal/domain/repository"
	"github.com/hisiddique/bloodathome/internal/matching"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/sync/errgroup"
)

// Unique index names the usecases react to
const (
	constraintOpenDraftPerOwner = "uq_booking_drafts_open_owner"
	constraintBookingDraftID    = "uq_bookings_draft_id"
	constraintReviewBooking     = "reviews_booking_id_key"
)

// isDuplicateKeyError checks if the error is a PostgreSQL unique constraint violation
// containing the specified constraint name
func isDuplicateKeyError(err error, constraintName string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// PostgreSQL error code 23505 = unique_violation
		if pgErr.Code == "23505" && strings.Contains(strings.ToLower(pgErr.ConstraintName), strings.ToLower(constraintName)) {
			return true
		}
	}
	return false
}

const confirmationAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// generateConfirmationNumber returns BAH-YYYYMMDD-XXXXXXXXXX. The random part
// avoids 0/O and 1/I so it can be read over the phone.
func generateConfirmationNumber(date time.Time) string {
	randomBytes := make([]byte, 10)
	rand.Read(randomBytes)
	for i, b := range randomBytes {
		randomBytes[i] = confirmationAlphabet[int(b)%len(confirmationAlphabet)]
	}
	return fmt.Sprintf("BAH-%s-%s", date.Format("20060102"), randomBytes)
}

// candidateLoader fetches offers, availability and service areas for a set
// of providers. The three reads are independent and run concurrently, each
// on its own pooled connection, so it must never be given a transaction.
type candidateLoader struct {
	transactor       repository.Transactor
	offerRepo        repository.ProviderServiceRepository
	availabilityRepo repository.ProviderAvailabilityRepository
	providerRepo     repository.ProviderRepository
}

func (l *candidateLoader) load(ctx context.Context, providers []entity.Provider, serviceIDs []uuid.UUID) ([]matching.Candidate, error) {
	if len(providers) == 0 {
		return nil, nil
	}
	ids := make([]uuid.UUID, len(providers))
	for i, p := range providers {
		ids[i] = p.ID
	}

	var (
		offers       []entity.ProviderService
		availability []entity.ProviderAvailability
		areas        []entity.ProviderServiceArea
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		offers, err = l.offerRepo.FindOffers(l.transactor.DB(gctx), ids, serviceIDs)
		return err
	})
	g.Go(func() error {
		var err error
		availability, err = l.availabilityRepo.FindByProviderIDs(l.transactor.DB(gctx), ids)
		return err
	})
	g.Go(func() error {
		var err error
		areas, err = l.providerRepo.FindServiceAreas(l.transactor.DB(gctx), ids)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byProvider := make(map[uuid.UUID]*matching.Candidate, len(providers))
	candidates := make([]matching.Candidate, len(providers))
	for i, p := range providers {
		candidates[i].Provider = p
		byProvider[p.ID] = &candidates[i]
	}
	for _, o := range offers {
		if c, ok := byProvider[o.ProviderID]; ok {
			c.Offers = append(c.Offers, o)
		}
	}
	for _, a := range availability {
		if c, ok := byProvider[a.ProviderID]; ok {
			c.Availability = append(c.Availability, a)
		}
	}
	for _, a := range areas {
		if c, ok := byProvider[a.ProviderID]; ok {
			c.ServiceAreas = append(c.ServiceAreas, a)
		}
	}
	return candidates, nil
}

// loadOne loads a single provider as a candidate; nil when it does not exist.
func (l *candidateLoader) loadOne(ctx context.Context, providerID uuid.UUID, serviceIDs []uuid.UUID) (*matching.Candidate, error) {
	provider, err := l.providerRepo.FindByID(l.transactor.DB(ctx), providerID)
	if err != nil || provider == nil {
		return nil, err
	}
	candidates, err := l.load(ctx, []entity.Provider{*provider}, serviceIDs)
	if err != nil {
		return nil, err
	}
	return &candidates[0], nil
}
