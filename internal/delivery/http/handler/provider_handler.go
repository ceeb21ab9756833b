package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/hisiddique/bloodathome/internal/delivery/dto"
	"github.com/hisiddique/bloodathome/internal/usecase"
	"github.com/hisiddique/bloodathome/pkg/response"
	"github.com/hisiddique/bloodathome/pkg/validator"
)

const defaultMapZoom = 12

type ProviderHandler struct {
	searchUsecase usecase.ProviderSearchUsecase
	validator     *validator.CustomValidator
}

func NewProviderHandler(searchUsecase usecase.ProviderSearchUsecase, validator *validator.CustomValidator) *ProviderHandler {
	return &ProviderHandler{
		searchUsecase: searchUsecase,
		validator:     validator,
	}
}

func (h *ProviderHandler) decodeSearch(w http.ResponseWriter, r *http.Request) (*dto.ProviderSearchRequest, bool) {
	var req dto.ProviderSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return nil, false
	}
	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return nil, false
	}
	return &req, true
}

func (h *ProviderHandler) Search(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeSearch(w, r)
	if !ok {
		return
	}

	result, err := h.searchUsecase.Search(r.Context(), req)
	if err != nil {
		writeError(w, err, "Failed to search providers")
		return
	}

	response.Success(w, http.StatusOK, "Providers retrieved successfully", result)
}

func (h *ProviderHandler) SearchMap(w http.ResponseWriter, r *http.Request) {
	zoom := defaultMapZoom
	if z := r.URL.Query().Get("zoom"); z != "" {
		parsed, err := strconv.Atoi(z)
		if err != nil || parsed < 0 || parsed > 22 {
			response.BadRequest(w, "zoom must be between 0 and 22")
			return
		}
		zoom = parsed
	}

	req, ok := h.decodeSearch(w, r)
	if !ok {
		return
	}

	result, err := h.searchUsecase.SearchMap(r.Context(), req, zoom, r.URL.Query().Get("selected"))
	if err != nil {
		writeError(w, err, "Failed to search providers")
		return
	}

	response.Success(w, http.StatusOK, "Provider map retrieved successfully", result)
}
