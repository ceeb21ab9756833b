package dto

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Request DTOs

type ConfirmBookingRequest struct {
	PaymentIntentID string    `json:"payment_intent_id" validate:"required,max=255"`
	DraftID         uuid.UUID `json:"draft_id" validate:"required"`
}

// Response DTOs

type PaymentIntentResponse struct {
	DraftID         uuid.UUID       `json:"draft_id"`
	PaymentIntentID string          `json:"payment_intent_id"`
	ClientSecret    string          `json:"client_secret"`
	Amount          decimal.Decimal `json:"amount"`
	AmountMinor     int64           `json:"amount_minor"`
	Currency        string          `json:"currency"`
	Status          string          `json:"status"`
	Reused          bool            `json:"reused"`
}
