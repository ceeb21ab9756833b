package handler

import (
	"net/http"

	"github.com/hisiddique/bloodathome/internal/usecase"
	"github.com/hisiddique/bloodathome/pkg/response"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type AuditLogHandler struct {
	auditLogUsecase usecase.AuditLogUsecase
}

func NewAuditLogHandler(auditLogUsecase usecase.AuditLogUsecase) *AuditLogHandler {
	return &AuditLogHandler{
		auditLogUsecase: auditLogUsecase,
	}
}

func (h *AuditLogHandler) GetBookingHistory(w http.ResponseWriter, r *http.Request) {
	bookingID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		response.BadRequest(w, "Invalid booking ID")
		return
	}

	history, err := h.auditLogUsecase.GetBookingHistory(r.Context(), bookingID)
	if err != nil {
		writeError(w, err, "Failed to get booking history")
		return
	}

	response.Success(w, http.StatusOK, "Booking history retrieved successfully", history)
}
