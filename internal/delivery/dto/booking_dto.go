package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Request DTOs

type CancelBookingRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=1000"`
	// Refund records that a refund was issued for the captured payment. Admin only.
	Refund bool `json:"refund"`
}

type ReassignBookingRequest struct {
	ProviderID uuid.UUID `json:"provider_id" validate:"required"`
}

// Response DTOs

type BookingItemResponse struct {
	ServiceID         uuid.UUID       `json:"service_id"`
	ServiceName       string          `json:"service_name"`
	Cost              decimal.Decimal `json:"cost"`
	CommissionPercent decimal.Decimal `json:"commission_percent"`
	CommissionAmount  decimal.Decimal `json:"commission_amount"`
	PayoutAmount      decimal.Decimal `json:"payout_amount"`
}

type TaxLineResponse struct {
	Name        string          `json:"name"`
	RatePercent decimal.Decimal `json:"rate_percent"`
	Amount      decimal.Decimal `json:"amount"`
}

type PaymentResponse struct {
	ID                uuid.UUID         `json:"id"`
	Amount            decimal.Decimal   `json:"amount"`
	TaxTotal          decimal.Decimal   `json:"tax_total"`
	Currency          string            `json:"currency"`
	ExternalReference string            `json:"external_reference"`
	Status            string            `json:"status"`
	PaidAt            *time.Time        `json:"paid_at,omitempty"`
	RefundedAt        *time.Time        `json:"refunded_at,omitempty"`
	TaxBreakdown      []TaxLineResponse `json:"tax_breakdown"`
}

type SettlementResponse struct {
	ProviderID        uuid.UUID       `json:"provider_id"`
	CollectedAmount   decimal.Decimal `json:"collected_amount"`
	CommissionPercent decimal.Decimal `json:"commission_percent"`
	CommissionAmount  decimal.Decimal `json:"commission_amount"`
	PayoutAmount      decimal.Decimal `json:"payout_amount"`
	Status            string          `json:"status"`
}

type BookingResponse struct {
	ID                 uuid.UUID             `json:"id"`
	ConfirmationNumber string                `json:"confirmation_number"`
	DraftID            *uuid.UUID            `json:"draft_id,omitempty"`
	ProviderID         uuid.UUID             `json:"provider_id"`
	CollectionType     string                `json:"collection_type"`
	ScheduledDate      string                `json:"scheduled_date"`
	SlotStart          time.Time             `json:"slot_start"`
	SlotEnd            time.Time             `json:"slot_end"`
	Postcode           string                `json:"postcode,omitempty"`
	AddressLine        string                `json:"address_line,omitempty"`
	PatientName        string                `json:"patient_name"`
	PatientEmail       string                `json:"patient_email"`
	Subtotal           decimal.Decimal       `json:"subtotal"`
	ServiceFee         decimal.Decimal       `json:"service_fee"`
	VAT                decimal.Decimal       `json:"vat"`
	Discount           decimal.Decimal       `json:"discount"`
	GrandTotal         decimal.Decimal       `json:"grand_total"`
	Currency           string                `json:"currency"`
	Status             string                `json:"status"`
	CancelledAt        *time.Time            `json:"cancelled_at,omitempty"`
	CancellationReason string                `json:"cancellation_reason,omitempty"`
	CompletedAt        *time.Time            `json:"completed_at,omitempty"`
	Items              []BookingItemResponse `json:"items"`
	Payments           []PaymentResponse     `json:"payments,omitempty"`
	Settlement         *SettlementResponse   `json:"settlement,omitempty"`
	CreatedAt          time.Time             `json:"created_at"`
	UpdatedAt          time.Time             `json:"updated_at"`
}

type BookingListResponse struct {
	Bookings []BookingResponse `json:"bookings"`
	Total    int               `json:"total"`
}
