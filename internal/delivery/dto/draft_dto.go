package dto

import (
	"encoding/json"
	"time"

	"github.com/hisiddique/bloodathome/internal/domain/entity"

	"github.com/google/uuid"
)

// Request DTOs

// CreateDraftRequest optionally carries the first step so the client can
// start a draft and fill step 1 in one call.
type CreateDraftRequest struct {
	Step    int             `json:"step" validate:"omitempty,min=1,max=5"`
	Payload json.RawMessage `json:"payload" validate:"required_with=Step"`
}

// Response DTOs

type DraftResponse struct {
	ID              uuid.UUID       `json:"id"`
	Status          string          `json:"status"`
	CurrentStep     int             `json:"current_step"`
	CompletedSteps  []int           `json:"completed_steps"`
	Steps           entity.StepData `json:"steps"`
	CommitReady     bool            `json:"commit_ready"`
	ExpiresAt       time.Time       `json:"expires_at"`
	PaymentIntentID *string         `json:"payment_intent_id,omitempty"`
	BookingID       *uuid.UUID      `json:"booking_id,omitempty"`
	// ClearedSteps lists steps an update reset because their inputs changed.
	ClearedSteps []int `json:"cleared_steps,omitempty"`
	// GuestToken is only set when a guest session was started by this request.
	GuestToken string `json:"guest_token,omitempty"`
}
