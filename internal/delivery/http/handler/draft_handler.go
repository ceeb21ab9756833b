package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/hisiddique/bloodathome/internal/delivery/dto"
	"github.com/hisiddique/bloodathome/internal/delivery/http/middleware"
	"github.com/hisiddique/bloodathome/internal/domain/entity"
	"github.com/hisiddique/bloodathome/internal/usecase"
	"github.com/hisiddique/bloodathome/pkg/response"
	"github.com/hisiddique/bloodathome/pkg/validator"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

const maxStepPayloadBytes = 64 << 10

type DraftHandler struct {
	draftUsecase   usecase.BookingDraftUsecase
	pricingUsecase usecase.PricingUsecase
	paymentUsecase usecase.PaymentUsecase
	validator      *validator.CustomValidator
}

func NewDraftHandler(
	draftUsecase usecase.BookingDraftUsecase,
	pricingUsecase usecase.PricingUsecase,
	paymentUsecase usecase.PaymentUsecase,
	validator *validator.CustomValidator,
) *DraftHandler {
	return &DraftHandler{
		draftUsecase:   draftUsecase,
		pricingUsecase: pricingUsecase,
		paymentUsecase: paymentUsecase,
		validator:      validator,
	}
}

// CreateDraft starts or resumes the caller's draft. An anonymous caller is
// given a fresh guest token, returned in the body and the response header.
func (h *DraftHandler) CreateDraft(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateDraftRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(io.LimitReader(r.Body, maxStepPayloadBytes)).Decode(&req); err != nil && err != io.EOF {
			response.BadRequest(w, "Invalid request body")
			return
		}
	}
	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	owner, ok := middleware.GetOwnerFromContext(r.Context())
	var guestToken string
	if !ok {
		guestToken = entity.NewGuestToken()
		owner = entity.GuestOwner(guestToken)
	}

	draft, err := h.draftUsecase.CreateDraft(r.Context(), owner, &req)
	if err != nil {
		writeError(w, err, "Failed to create draft")
		return
	}

	if guestToken != "" {
		draft.GuestToken = guestToken
		w.Header().Set(middleware.GuestTokenHeader, guestToken)
	}
	response.Created(w, "Draft ready", draft)
}

func (h *DraftHandler) GetDraft(w http.ResponseWriter, r *http.Request) {
	owner, draftID, ok := h.ownedDraft(w, r)
	if !ok {
		return
	}

	draft, err := h.draftUsecase.GetDraft(r.Context(), owner, draftID)
	if err != nil {
		writeError(w, err, "Failed to get draft")
		return
	}

	response.Success(w, http.StatusOK, "Draft retrieved successfully", draft)
}

func (h *DraftHandler) UpdateStep(w http.ResponseWriter, r *http.Request) {
	owner, draftID, ok := h.ownedDraft(w, r)
	if !ok {
		return
	}
	step, err := strconv.Atoi(mux.Vars(r)["step"])
	if err != nil {
		response.BadRequest(w, "Invalid step")
		return
	}

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxStepPayloadBytes))
	if err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	draft, err := h.draftUsecase.UpdateStep(r.Context(), owner, draftID, step, payload)
	if err != nil {
		writeError(w, err, "Failed to update draft")
		return
	}

	response.Success(w, http.StatusOK, "Draft updated successfully", draft)
}

// ClaimDraft moves the guest draft named by the guest token header to the
// signed-in user.
func (h *DraftHandler) ClaimDraft(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "")
		return
	}
	guestToken, ok := middleware.GetGuestTokenFromContext(r.Context())
	if !ok {
		response.BadRequest(w, middleware.GuestTokenHeader+" is required")
		return
	}
	draftID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		response.BadRequest(w, "Invalid draft ID")
		return
	}

	draft, err := h.draftUsecase.ClaimGuestDraft(r.Context(), entity.GuestOwner(guestToken), entity.UserOwner(userID), draftID)
	if err != nil {
		writeError(w, err, "Failed to claim draft")
		return
	}

	response.Success(w, http.StatusOK, "Draft claimed successfully", draft)
}

func (h *DraftHandler) GetQuote(w http.ResponseWriter, r *http.Request) {
	owner, draftID, ok := h.ownedDraft(w, r)
	if !ok {
		return
	}

	quote, err := h.pricingUsecase.PreviewQuote(r.Context(), owner, draftID)
	if err != nil {
		writeError(w, err, "Failed to price draft")
		return
	}

	response.Success(w, http.StatusOK, "Quote retrieved successfully", quote)
}

func (h *DraftHandler) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	owner, draftID, ok := h.ownedDraft(w, r)
	if !ok {
		return
	}

	intent, err := h.paymentUsecase.CreateIntent(r.Context(), owner, draftID)
	if err != nil {
		writeError(w, err, "Failed to create payment intent")
		return
	}

	status := http.StatusCreated
	if intent.Reused {
		status = http.StatusOK
	}
	response.Success(w, status, "Payment intent ready", intent)
}

func (h *DraftHandler) ownedDraft(w http.ResponseWriter, r *http.Request) (entity.OwnerKey, uuid.UUID, bool) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return "", uuid.Nil, false
	}
	draftID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		response.BadRequest(w, "Invalid draft ID")
		return "", uuid.Nil, false
	}
	return owner, draftID, true
}
