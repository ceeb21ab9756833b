package converter

import (
	"github.com/hisiddique/bloodathome/internal/delivery/dto"
	"github.com/hisiddique/bloodathome/internal/domain/entity"
)

func ServicesToResponse(services []entity.Service) *dto.ServiceListResponse {
	out := make([]dto.ServiceResponse, 0, len(services))
	for _, s := range services {
		out = append(out, dto.ServiceResponse{
			ID:       s.ID,
			Name:     s.Name,
			Code:     s.Code,
			Category: s.Category,
		})
	}
	return &dto.ServiceListResponse{Services: out, Total: len(out)}
}
