package dto

import (
	"github.com/hisiddique/bloodathome/internal/pricing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Response DTOs

type QuoteLineResponse struct {
	ServiceID uuid.UUID       `json:"service_id"`
	Name      string          `json:"name"`
	Cost      decimal.Decimal `json:"cost"`
}

type QuoteResponse struct {
	DraftID      uuid.UUID              `json:"draft_id"`
	ProviderID   uuid.UUID              `json:"provider_id"`
	Lines        []QuoteLineResponse    `json:"lines"`
	Subtotal     decimal.Decimal        `json:"subtotal"`
	FeePercent   decimal.Decimal        `json:"fee_percent"`
	ServiceFee   decimal.Decimal        `json:"service_fee"`
	VATPercent   decimal.Decimal        `json:"vat_percent"`
	VAT          decimal.Decimal        `json:"vat"`
	Discount     decimal.Decimal        `json:"discount"`
	GrandTotal   decimal.Decimal        `json:"grand_total"`
	AmountMinor  int64                  `json:"amount_minor"`
	Currency     string                 `json:"currency"`
	PromoCode    string                 `json:"promo_code,omitempty"`
	TaxBreakdown []pricing.TaxComponent `json:"tax_breakdown"`
	// UnmatchedServices are requested services the chosen provider does not offer.
	UnmatchedServices []uuid.UUID `json:"unmatched_services,omitempty"`
}
