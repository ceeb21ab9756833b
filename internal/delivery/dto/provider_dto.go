package dto

import (
	"github.com/hisiddique/bloodathome/internal/geo"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Request DTOs

// ProviderSearchRequest locates providers around a point. Either lat/lng or
// a postcode must be given.
type ProviderSearchRequest struct {
	Lat            *float64    `json:"lat" validate:"required_without=Postcode,omitempty,latitude"`
	Lng            *float64    `json:"lng" validate:"required_with=Lat,omitempty,longitude"`
	Postcode       string      `json:"postcode" validate:"omitempty,max=10"`
	ServiceIDs     []uuid.UUID `json:"service_ids" validate:"required,min=1,max=20"`
	CollectionType string      `json:"collection_type" validate:"omitempty,oneof=home clinic"`
	Date           string      `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Radius         *float64    `json:"radius" validate:"omitempty,gt=0,lte=500"`
	SortBy         string      `json:"sort_by" validate:"omitempty,oneof=best_match distance rating price_asc price_desc"`
	ProviderTypes  []string    `json:"provider_types" validate:"omitempty,dive,oneof=individual lab clinic"`
}

// Response DTOs

type MatchedServiceResponse struct {
	ServiceID uuid.UUID       `json:"service_id"`
	OfferID   uuid.UUID       `json:"offer_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
}

type ProviderMatchResponse struct {
	ProviderID      uuid.UUID                `json:"provider_id"`
	Name            string                   `json:"name"`
	Type            string                   `json:"type"`
	Distance        float64                  `json:"distance"`
	ServicesMatched int                      `json:"services_matched"`
	ServicesTotal   int                      `json:"services_total"`
	MatchRatio      float64                  `json:"match_ratio"`
	TotalPrice      decimal.Decimal          `json:"total_price"`
	AverageRating   float64                  `json:"average_rating"`
	ReviewCount     int                      `json:"review_count"`
	Lat             float64                  `json:"lat"`
	Lng             float64                  `json:"lng"`
	DateChecked     bool                     `json:"date_checked"`
	MatchedServices []MatchedServiceResponse `json:"matched_services"`
}

type ProviderSearchResponse struct {
	Providers     []ProviderMatchResponse `json:"providers"`
	Total         int                     `json:"total"`
	SortBy        string                  `json:"sort_by"`
	RadiusUsed    float64                 `json:"radius_used"`
	WidenedRadius bool                    `json:"widened_radius"`
	Unit          string                  `json:"unit"`
}

type MapClusterResponse struct {
	ID       string    `json:"id"`
	Centroid geo.Point `json:"centroid"`
	Count    int       `json:"count"`
	Members  []string  `json:"members"`
	// Spider holds the fanned-out member positions for multi-member clusters.
	Spider []geo.SpiderLeg `json:"spider,omitempty"`
}

type ProviderMapResponse struct {
	ProviderSearchResponse
	Zoom      int                  `json:"zoom"`
	Threshold float64              `json:"threshold"`
	Selected  *geo.ClusterItem     `json:"selected,omitempty"`
	Clusters  []MapClusterResponse `json:"clusters"`
}
