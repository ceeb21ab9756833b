package entity

import (
	"time"

	"github.com/hisiddique/bloodathome/internal/geo"

	"github.com/google/uuid"
)

// ProviderType distinguishes individual phlebotomists from labs and clinics
type ProviderType string

const (
	ProviderTypeIndividual ProviderType = "individual"
	ProviderTypeLab        ProviderType = "lab"
	ProviderTypeClinic     ProviderType = "clinic"
)

type ProviderStatus string

const (
	ProviderStatusActive   ProviderStatus = "active"
	ProviderStatusInactive ProviderStatus = "inactive"
	ProviderStatusPending  ProviderStatus = "pending"
)

// CollectionType is where the sample is taken
type CollectionType string

const (
	CollectionHome   CollectionType = "home"
	CollectionClinic CollectionType = "clinic"
)

// Provider represents a phlebotomist, lab or clinic that performs services.
// AverageRating and ReviewCount are derived from reviews and only written by
// the rating recomputation.
type Provider struct {
	ID                uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID            *uuid.UUID     `gorm:"type:uuid;index" json:"user_id,omitempty"`
	Name              string         `gorm:"type:varchar(255);not null" json:"name"`
	Type              ProviderType   `gorm:"type:varchar(20);not null;index" json:"type"`
	Status            ProviderStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Latitude          float64        `gorm:"type:double precision;not null" json:"latitude"`
	Longitude         float64        `gorm:"type:double precision;not null" json:"longitude"`
	OffersHomeVisit   bool           `gorm:"not null;default:false" json:"offers_home_visit"`
	OffersClinicVisit bool           `gorm:"not null;default:false" json:"offers_clinic_visit"`
	AverageRating     float64        `gorm:"type:numeric(3,2);not null;default:0" json:"average_rating"`
	ReviewCount       int            `gorm:"not null;default:0" json:"review_count"`
	CreatedAt         time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	Offers       []ProviderService      `gorm:"foreignKey:ProviderID" json:"offers,omitempty"`
	Availability []ProviderAvailability `gorm:"foreignKey:ProviderID" json:"availability,omitempty"`
	ServiceAreas []ProviderServiceArea  `gorm:"foreignKey:ProviderID" json:"service_areas,omitempty"`
}

func (Provider) TableName() string {
	return "providers"
}

// IsActive checks if the provider can take bookings
func (p *Provider) IsActive() bool {
	return p.Status == ProviderStatusActive
}

func (p *Provider) Point() geo.Point {
	return geo.Point{Lat: p.Latitude, Lng: p.Longitude}
}

// Supports reports whether the provider offers the collection type. An empty
// type matches every provider.
func (p *Provider) Supports(ct CollectionType) bool {
	switch ct {
	case CollectionHome:
		return p.OffersHomeVisit
	case CollectionClinic:
		return p.OffersClinicVisit
	default:
		return true
	}
}

// ProviderServiceArea is a circle a travelling provider covers for home visits.
// Radius is in the configured distance unit.
type ProviderServiceArea struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ProviderID uuid.UUID `gorm:"type:uuid;not null;index" json:"provider_id"`
	Postcode   string    `gorm:"type:varchar(10)" json:"postcode,omitempty"`
	CentreLat  float64   `gorm:"type:double precision;not null" json:"centre_lat"`
	CentreLng  float64   `gorm:"type:double precision;not null" json:"centre_lng"`
	Radius     float64   `gorm:"type:double precision;not null" json:"radius"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (ProviderServiceArea) TableName() string {
	return "provider_service_areas"
}

// Covers reports whether p lies inside the area
func (a *ProviderServiceArea) Covers(p geo.Point, unit geo.Unit) bool {
	centre := geo.Point{Lat: a.CentreLat, Lng: a.CentreLng}
	return geo.Haversine(centre, p, unit) <= a.Radius
}

// ProviderFilter is a domain-level filter for the candidate prefilter query.
// Used by repository layer to avoid coupling with delivery DTOs.
type ProviderFilter struct {
	Min   geo.Point
	Max   geo.Point
	Types []ProviderType
}
