package handler

import (
	"errors"
	"net/http"

	"github.com/hisiddique/bloodathome/internal/delivery/http/middleware"
	"github.com/hisiddique/bloodathome/internal/domain/entity"
	"github.com/hisiddique/bloodathome/internal/domain/gateway"
	"github.com/hisiddique/bloodathome/internal/geo"
	"github.com/hisiddique/bloodathome/internal/pricing"
	"github.com/hisiddique/bloodathome/internal/usecase"
	"github.com/hisiddique/bloodathome/pkg/response"
)

type errorStatus struct {
	err    error
	status int
	code   string
}

// Checked in order: a commit-time pricing mismatch wraps the promo error
// that caused it and must be reported as the mismatch.
var errorStatuses = []errorStatus{
	{usecase.ErrCommitFailed, http.StatusInternalServerError, "commit_failed"},
	{usecase.ErrPricingMismatch, http.StatusConflict, "pricing_mismatch"},

	{usecase.ErrInvalidQuery, http.StatusBadRequest, "invalid_query"},
	{geo.ErrInvalidLocation, http.StatusBadRequest, "invalid_location"},
	{entity.ErrInvalidStepPayload, http.StatusBadRequest, "invalid_step_payload"},
	{entity.ErrUnknownStep, http.StatusBadRequest, "unknown_step"},
	{usecase.ErrInvalidOwner, http.StatusBadRequest, "invalid_owner"},
	{usecase.ErrStepOutOfOrder, http.StatusBadRequest, "step_out_of_order"},
	{usecase.ErrDateInPast, http.StatusBadRequest, "date_in_past"},
	{usecase.ErrIntentMismatch, http.StatusBadRequest, "intent_mismatch"},
	{usecase.ErrZeroAmount, http.StatusBadRequest, "zero_amount"},

	{usecase.ErrNoProvidersFound, http.StatusNotFound, "no_providers"},
	{gateway.ErrPostcodeNotFound, http.StatusNotFound, "postcode_not_found"},
	{usecase.ErrDraftNotFound, http.StatusNotFound, "draft_not_found"},
	{usecase.ErrBookingNotFound, http.StatusNotFound, "booking_not_found"},
	{usecase.ErrProviderNotFound, http.StatusNotFound, "provider_not_found"},
	{usecase.ErrReviewNotFound, http.StatusNotFound, "review_not_found"},

	{usecase.ErrDraftNotOwned, http.StatusForbidden, "draft_not_owned"},
	{usecase.ErrBookingNotOwned, http.StatusForbidden, "booking_not_owned"},
	{usecase.ErrReviewNotOwned, http.StatusForbidden, "review_not_owned"},
	{usecase.ErrForbidden, http.StatusForbidden, "forbidden"},

	{entity.ErrDraftExpired, http.StatusGone, "draft_expired"},
	{entity.ErrDraftAlreadyCommitted, http.StatusConflict, "draft_committed"},
	{usecase.ErrDraftConflict, http.StatusConflict, "draft_conflict"},
	{usecase.ErrPaymentCaptured, http.StatusConflict, "payment_captured"},
	{usecase.ErrReviewExists, http.StatusConflict, "review_exists"},
	{entity.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},

	{usecase.ErrPaymentNotSucceeded, http.StatusPaymentRequired, "payment_not_succeeded"},

	{entity.ErrDraftIncomplete, http.StatusUnprocessableEntity, "draft_incomplete"},
	{usecase.ErrProviderNotEligible, http.StatusUnprocessableEntity, "provider_not_eligible"},
	{usecase.ErrSlotUnavailable, http.StatusUnprocessableEntity, "slot_unavailable"},
	{usecase.ErrBookingNotReviewable, http.StatusUnprocessableEntity, "booking_not_reviewable"},
	{pricing.ErrPromoNotFound, http.StatusUnprocessableEntity, "promo_not_found"},
	{pricing.ErrPromoInactive, http.StatusUnprocessableEntity, "promo_inactive"},
	{pricing.ErrPromoNotStarted, http.StatusUnprocessableEntity, "promo_not_started"},
	{pricing.ErrPromoExpired, http.StatusUnprocessableEntity, "promo_expired"},
	{pricing.ErrPromoExhausted, http.StatusUnprocessableEntity, "promo_exhausted"},
	{pricing.ErrPromoUserLimitReached, http.StatusUnprocessableEntity, "promo_user_limit"},
	{pricing.ErrPromoBelowMinimum, http.StatusUnprocessableEntity, "promo_below_minimum"},
	{pricing.ErrPromoInvalid, http.StatusUnprocessableEntity, "promo_invalid"},

	{gateway.ErrPaymentGateway, http.StatusBadGateway, "payment_gateway"},
	{gateway.ErrGeocoderFailed, http.StatusBadGateway, "geocoder_unavailable"},
}

// writeError maps a usecase error onto the response envelope with its
// stable code. Unknown errors become a 500 with the fallback message.
func writeError(w http.ResponseWriter, err error, fallback string) {
	for _, es := range errorStatuses {
		if errors.Is(err, es.err) {
			response.Fail(w, es.status, es.code, es.err.Error())
			return
		}
	}
	response.InternalServerError(w, fallback)
}

func requireOwner(w http.ResponseWriter, r *http.Request) (entity.OwnerKey, bool) {
	owner, ok := middleware.GetOwnerFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Sign in or send "+middleware.GuestTokenHeader)
		return "", false
	}
	return owner, true
}

// actorFrom builds the acting party of a booking request; admins are
// recognised from their role claim.
func actorFrom(r *http.Request) (usecase.Actor, bool) {
	owner, ok := middleware.GetOwnerFromContext(r.Context())
	actor := usecase.Actor{Owner: owner}
	if middleware.IsAdmin(r.Context()) {
		if id, ok := middleware.GetUserIDFromContext(r.Context()); ok {
			actor.AdminID = &id
		}
	}
	return actor, ok
}
