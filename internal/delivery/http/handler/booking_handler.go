package handler

import (
	"encoding/json"
	"net/http"

	"github.com/hisiddique/bloodathome/internal/delivery/dto"
	"github.com/hisiddique/bloodathome/internal/usecase"
	"github.com/hisiddique/bloodathome/pkg/response"
	"github.com/hisiddique/bloodathome/pkg/validator"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type BookingHandler struct {
	bookingUsecase usecase.BookingUsecase
	paymentUsecase usecase.PaymentUsecase
	validator      *validator.CustomValidator
}

func NewBookingHandler(bookingUsecase usecase.BookingUsecase, paymentUsecase usecase.PaymentUsecase, validator *validator.CustomValidator) *BookingHandler {
	return &BookingHandler{
		bookingUsecase: bookingUsecase,
		paymentUsecase: paymentUsecase,
		validator:      validator,
	}
}

// ConfirmBooking commits a paid draft. Repeating the call returns the same booking.
func (h *BookingHandler) ConfirmBooking(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	var req dto.ConfirmBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	booking, err := h.paymentUsecase.Confirm(r.Context(), owner, &req)
	if err != nil {
		writeError(w, err, "Failed to confirm booking")
		return
	}

	response.Success(w, http.StatusOK, "Booking confirmed", booking)
}

func (h *BookingHandler) GetMyBookings(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	bookings, err := h.bookingUsecase.ListMyBookings(r.Context(), owner)
	if err != nil {
		writeError(w, err, "Failed to get bookings")
		return
	}

	response.Success(w, http.StatusOK, "Bookings retrieved successfully", bookings)
}

func (h *BookingHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	actor, bookingID, ok := h.bookingRequest(w, r)
	if !ok {
		return
	}

	booking, err := h.bookingUsecase.GetBooking(r.Context(), actor, bookingID)
	if err != nil {
		writeError(w, err, "Failed to get booking")
		return
	}

	response.Success(w, http.StatusOK, "Booking retrieved successfully", booking)
}

func (h *BookingHandler) GetByConfirmationNumber(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		response.Unauthorized(w, "")
		return
	}

	booking, err := h.bookingUsecase.GetByConfirmationNumber(r.Context(), actor, mux.Vars(r)["number"])
	if err != nil {
		writeError(w, err, "Failed to get booking")
		return
	}

	response.Success(w, http.StatusOK, "Booking retrieved successfully", booking)
}

func (h *BookingHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	actor, bookingID, ok := h.bookingRequest(w, r)
	if !ok {
		return
	}

	var req dto.CancelBookingRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, "Invalid request body")
			return
		}
	}
	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	booking, err := h.bookingUsecase.CancelBooking(r.Context(), actor, bookingID, &req)
	if err != nil {
		writeError(w, err, "Failed to cancel booking")
		return
	}

	response.Success(w, http.StatusOK, "Booking cancelled successfully", booking)
}

func (h *BookingHandler) CompleteBooking(w http.ResponseWriter, r *http.Request) {
	actor, bookingID, ok := h.bookingRequest(w, r)
	if !ok {
		return
	}

	booking, err := h.bookingUsecase.CompleteBooking(r.Context(), actor, bookingID)
	if err != nil {
		writeError(w, err, "Failed to complete booking")
		return
	}

	response.Success(w, http.StatusOK, "Booking completed successfully", booking)
}

func (h *BookingHandler) ReassignBooking(w http.ResponseWriter, r *http.Request) {
	actor, bookingID, ok := h.bookingRequest(w, r)
	if !ok {
		return
	}

	var req dto.ReassignBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	booking, err := h.bookingUsecase.ReassignBooking(r.Context(), actor, bookingID, &req)
	if err != nil {
		writeError(w, err, "Failed to reassign booking")
		return
	}

	response.Success(w, http.StatusOK, "Booking reassigned successfully", booking)
}

func (h *BookingHandler) bookingRequest(w http.ResponseWriter, r *http.Request) (usecase.Actor, uuid.UUID, bool) {
	actor, ok := actorFrom(r)
	if !ok {
		response.Unauthorized(w, "")
		return usecase.Actor{}, uuid.Nil, false
	}
	bookingID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		response.BadRequest(w, "Invalid booking ID")
		return usecase.Actor{}, uuid.Nil, false
	}
	return actor, bookingID, true
}
