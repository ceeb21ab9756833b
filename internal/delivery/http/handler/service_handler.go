package handler

import (
	"net/http"

	"github.com/hisiddique/bloodathome/internal/usecase"
	"github.com/hisiddique/bloodathome/pkg/response"
)

type ServiceHandler struct {
	catalogueUsecase usecase.ServiceCatalogueUsecase
}

func NewServiceHandler(catalogueUsecase usecase.ServiceCatalogueUsecase) *ServiceHandler {
	return &ServiceHandler{
		catalogueUsecase: catalogueUsecase,
	}
}

func (h *ServiceHandler) ListServices(w http.ResponseWriter, r *http.Request) {
	services, err := h.catalogueUsecase.ListServices(r.Context())
	if err != nil {
		response.InternalServerError(w, "Failed to get services")
		return
	}

	response.Success(w, http.StatusOK, "Services retrieved successfully", services)
}
