package matching

import (
	"errors"
	"time"

	"github.com/hisiddique/bloodathome/internal/domain/entity"
	"github.com/hisiddique/bloodathome/internal/geo"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Reasons a provider is not a match. Evaluate returns exactly one of them.
var (
	ErrProviderInactive      = errors.New("provider is not active")
	ErrOutOfRange            = errors.New("provider is outside the search radius")
	ErrCollectionUnsupported = errors.New("provider does not offer this collection type")
	ErrNoMatchingServices    = errors.New("provider offers none of the requested services")
	ErrUnavailable           = errors.New("provider has no availability on the requested date")
)

// Criteria is what a patient asked for. A nil Date means the date is not
// known yet: offers are taken as of AsOf and availability is not checked.
type Criteria struct {
	Point          geo.Point
	ServiceIDs     []uuid.UUID
	CollectionType entity.CollectionType
	Date           *time.Time
	AsOf           time.Time
	// Radius <= 0 disables the distance limit.
	Radius float64
	Unit   geo.Unit
}

// OfferDate is the date offers must be current on
func (c Criteria) OfferDate() time.Time {
	if c.Date != nil {
		return *c.Date
	}
	return c.AsOf
}

// Candidate is a provider with everything needed to evaluate it
type Candidate struct {
	Provider     entity.Provider
	Offers       []entity.ProviderService
	Availability []entity.ProviderAvailability
	ServiceAreas []entity.ProviderServiceArea
}

// Match is a provider that satisfies the criteria
type Match struct {
	Provider        entity.Provider
	Distance        float64
	ServicesMatched int
	ServicesTotal   int
	TotalPrice      decimal.Decimal
	// Offers holds the current offer for each matched service, in request order.
	Offers      []entity.ProviderService
	DateChecked bool
}

// MatchRatio is matched/total
func (m Match) MatchRatio() float64 {
	if m.ServicesTotal == 0 {
		return 0
	}
	return float64(m.ServicesMatched) / float64(m.ServicesTotal)
}

// DisplayDistance is the distance rounded to 2dp
func (m Match) DisplayDistance() float64 {
	return geo.RoundDistance(m.Distance)
}

// Evaluate checks one candidate against the criteria. Filtering always uses
// the unrounded distance.
func Evaluate(c Candidate, cr Criteria) (Match, error) {
	p := c.Provider
	if !p.IsActive() {
		return Match{}, ErrProviderInactive
	}

	distance := geo.Haversine(cr.Point, p.Point(), cr.Unit)
	if cr.Radius > 0 && distance > cr.Radius {
		return Match{}, ErrOutOfRange
	}

	if !p.Supports(cr.CollectionType) {
		return Match{}, ErrCollectionUnsupported
	}
	if cr.CollectionType == entity.CollectionHome && !coversPoint(c.ServiceAreas, cr.Point, cr.Unit) {
		return Match{}, ErrCollectionUnsupported
	}

	current := entity.CurrentOffers(c.Offers, cr.OfferDate())
	m := Match{
		Provider:      p,
		Distance:      distance,
		ServicesTotal: len(cr.ServiceIDs),
		TotalPrice:    decimal.Zero,
	}
	for _, sid := range cr.ServiceIDs {
		offer, ok := current[sid]
		if !ok {
			continue
		}
		m.ServicesMatched++
		m.TotalPrice = m.TotalPrice.Add(offer.BaseCost.Round(2))
		m.Offers = append(m.Offers, offer)
	}
	if m.ServicesMatched == 0 {
		return Match{}, ErrNoMatchingServices
	}

	if cr.Date != nil {
		if !entity.AnyCoversDate(c.Availability, *cr.Date) {
			return Match{}, ErrUnavailable
		}
		m.DateChecked = true
	}
	return m, nil
}

// Filter evaluates every candidate and keeps the matches, in candidate order.
func Filter(candidates []Candidate, cr Criteria) []Match {
	matches := make([]Match, 0, len(candidates))
	for _, c := range candidates {
		m, err := Evaluate(c, cr)
		if err != nil {
			continue
		}
		matches = append(matches, m)
	}
	return matches
}

func coversPoint(areas []entity.ProviderServiceArea, p geo.Point, unit geo.Unit) bool {
	for i := range areas {
		if areas[i].Covers(p, unit) {
			return true
		}
	}
	return false
}
