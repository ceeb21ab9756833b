package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OfferStatus string

const (
	OfferStatusActive   OfferStatus = "active"
	OfferStatusInactive OfferStatus = "inactive"
)

// ProviderService is a provider's time-bounded offer to perform a Service.
// Rows are never edited in place once referenced; a rate change is a new row
// with a later StartDate.
type ProviderService struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ProviderID        uuid.UUID       `gorm:"type:uuid;not null;index:idx_offer_provider_service" json:"provider_id"`
	ServiceID         uuid.UUID       `gorm:"type:uuid;not null;index:idx_offer_provider_service" json:"service_id"`
	BaseCost          decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"base_cost"`
	CommissionPercent decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"commission_percent"`
	StartDate         time.Time       `gorm:"type:date;not null" json:"start_date"`
	EndDate           *time.Time      `gorm:"type:date" json:"end_date,omitempty"`
	Status            OfferStatus     `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`

	// Relationships
	Service Service `gorm:"foreignKey:ServiceID" json:"service,omitempty"`
}

func (ProviderService) TableName() string {
	return "provider_services"
}

// ValidOn reports whether the offer is active and d falls in [StartDate, EndDate).
func (o *ProviderService) ValidOn(d time.Time) bool {
	if o.Status != OfferStatusActive {
		return false
	}
	day := DateOnly(d)
	if DateOnly(o.StartDate).After(day) {
		return false
	}
	return o.EndDate == nil || DateOnly(*o.EndDate).After(day)
}

// CurrentOffers picks the current offer per service as of d. When offers
// overlap the latest StartDate wins, then the most recently created.
func CurrentOffers(offers []ProviderService, d time.Time) map[uuid.UUID]ProviderService {
	current := make(map[uuid.UUID]ProviderService)
	for _, o := range offers {
		if !o.ValidOn(d) {
			continue
		}
		prev, ok := current[o.ServiceID]
		if !ok || o.StartDate.After(prev.StartDate) ||
			(o.StartDate.Equal(prev.StartDate) && o.CreatedAt.After(prev.CreatedAt)) {
			current[o.ServiceID] = o
		}
	}
	return current
}

// DateOnly truncates t to midnight UTC of its calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
