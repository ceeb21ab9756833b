package converter

import (
	"github.com/hisiddique/bloodathome/internal/delivery/dto"
	"github.com/hisiddique/bloodathome/internal/pricing"

	"github.com/google/uuid"
)

// QuoteToResponse converts a priced quote to QuoteResponse DTO
func QuoteToResponse(draftID, providerID uuid.UUID, q *pricing.Quote, unmatched []uuid.UUID) *dto.QuoteResponse {
	resp := &dto.QuoteResponse{
		DraftID:           draftID,
		ProviderID:        providerID,
		Lines:             make([]dto.QuoteLineResponse, len(q.Lines)),
		Subtotal:          q.Subtotal,
		FeePercent:        q.FeePercent,
		ServiceFee:        q.ServiceFee,
		VATPercent:        q.VATPercent,
		VAT:               q.VAT,
		Discount:          q.Discount,
		GrandTotal:        q.GrandTotal,
		AmountMinor:       q.AmountMinor(),
		Currency:          q.Currency,
		PromoCode:         q.PromoCode(),
		TaxBreakdown:      q.TaxBreakdown,
		UnmatchedServices: unmatched,
	}
	for i, l := range q.Lines {
		resp.Lines[i] = dto.QuoteLineResponse{ServiceID: l.ServiceID, Name: l.Name, Cost: l.Cost}
	}
	return resp
}
