package converter

import (
	"github.com/hisiddique/bloodathome/internal/delivery/dto"
	"github.com/hisiddique/bloodathome/internal/geo"
	"github.com/hisiddique/bloodathome/internal/matching"
)

// MatchToResponse converts a matching result to ProviderMatchResponse DTO
func MatchToResponse(m *matching.Match) dto.ProviderMatchResponse {
	resp := dto.ProviderMatchResponse{
		ProviderID:      m.Provider.ID,
		Name:            m.Provider.Name,
		Type:            string(m.Provider.Type),
		Distance:        m.DisplayDistance(),
		ServicesMatched: m.ServicesMatched,
		ServicesTotal:   m.ServicesTotal,
		MatchRatio:      m.MatchRatio(),
		TotalPrice:      m.TotalPrice,
		AverageRating:   m.Provider.AverageRating,
		ReviewCount:     m.Provider.ReviewCount,
		Lat:             m.Provider.Latitude,
		Lng:             m.Provider.Longitude,
		DateChecked:     m.DateChecked,
		MatchedServices: make([]dto.MatchedServiceResponse, len(m.Offers)),
	}
	for i, o := range m.Offers {
		resp.MatchedServices[i] = dto.MatchedServiceResponse{
			ServiceID: o.ServiceID,
			OfferID:   o.ID,
			Name:      o.Service.Name,
			Price:     o.BaseCost.Round(2),
		}
	}
	return resp
}

func MatchesToResponses(matches []matching.Match) []dto.ProviderMatchResponse {
	responses := make([]dto.ProviderMatchResponse, len(matches))
	for i := range matches {
		responses[i] = MatchToResponse(&matches[i])
	}
	return responses
}

// MatchesToClusterItems turns matches into map markers keyed by provider id
func MatchesToClusterItems(matches []matching.Match) []geo.ClusterItem {
	items := make([]geo.ClusterItem, len(matches))
	for i := range matches {
		items[i] = geo.ClusterItem{
			ID:    matches[i].Provider.ID.String(),
			Point: matches[i].Provider.Point(),
		}
	}
	return items
}

// LayoutToClusters converts clusters, spiderfying the multi-member ones for zoom
func LayoutToClusters(layout geo.MapLayout) []dto.MapClusterResponse {
	clusters := make([]dto.MapClusterResponse, len(layout.Clusters))
	for i, c := range layout.Clusters {
		clusters[i] = dto.MapClusterResponse{
			ID:       c.ID,
			Centroid: c.Centroid,
			Count:    c.Size(),
			Members:  c.Members,
		}
		if !c.IsSingleton() {
			clusters[i].Spider = geo.Expand(c, layout.Zoom)
		}
	}
	return clusters
}
