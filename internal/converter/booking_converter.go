package converter

import (
	"github.com/hisiddique/bloodathome/internal/delivery/dto"
	"github.com/hisiddique/bloodathome/internal/domain/entity"
)

// BookingToResponse converts a Booking entity to BookingResponse DTO
func BookingToResponse(booking *entity.Booking) *dto.BookingResponse {
	if booking == nil {
		return nil
	}

	response := &dto.BookingResponse{
		ID:                 booking.ID,
		ConfirmationNumber: booking.ConfirmationNumber,
		DraftID:            booking.DraftID,
		ProviderID:         booking.ProviderID,
		CollectionType:     string(booking.CollectionType),
		ScheduledDate:      booking.ScheduledDate.Format("2006-01-02"),
		SlotStart:          booking.SlotStart,
		SlotEnd:            booking.SlotEnd,
		Postcode:           booking.Postcode,
		AddressLine:        booking.AddressLine,
		PatientName:        booking.PatientName,
		PatientEmail:       booking.PatientEmail,
		Subtotal:           booking.Subtotal,
		ServiceFee:         booking.ServiceFee,
		VAT:                booking.VAT,
		Discount:           booking.Discount,
		GrandTotal:         booking.GrandTotal,
		Currency:           booking.Currency,
		Status:             string(booking.Status),
		CancelledAt:        booking.CancelledAt,
		CancellationReason: booking.CancellationReason,
		CompletedAt:        booking.CompletedAt,
		Items:              make([]dto.BookingItemResponse, len(booking.Items)),
		CreatedAt:          booking.CreatedAt,
		UpdatedAt:          booking.UpdatedAt,
	}

	for i, item := range booking.Items {
		response.Items[i] = dto.BookingItemResponse{
			ServiceID:         item.ServiceID,
			ServiceName:       item.ServiceName,
			Cost:              item.Cost,
			CommissionPercent: item.CommissionPercent,
			CommissionAmount:  item.CommissionAmount,
			PayoutAmount:      item.PayoutAmount,
		}
	}

	for i := range booking.Payments {
		response.Payments = append(response.Payments, PaymentToResponse(&booking.Payments[i]))
	}

	// Include settlement info if loaded
	if s := booking.Settlement; s != nil {
		response.Settlement = &dto.SettlementResponse{
			ProviderID:        s.ProviderID,
			CollectedAmount:   s.CollectedAmount,
			CommissionPercent: s.CommissionPercent,
			CommissionAmount:  s.CommissionAmount,
			PayoutAmount:      s.PayoutAmount,
			Status:            string(s.Status),
		}
	}

	return response
}

func PaymentToResponse(p *entity.Payment) dto.PaymentResponse {
	resp := dto.PaymentResponse{
		ID:                p.ID,
		Amount:            p.Amount,
		TaxTotal:          p.TaxTotal,
		Currency:          p.Currency,
		ExternalReference: p.ExternalReference,
		Status:            string(p.Status),
		PaidAt:            p.PaidAt,
		RefundedAt:        p.RefundedAt,
		TaxBreakdown:      make([]dto.TaxLineResponse, len(p.TaxBreakdown)),
	}
	for i, t := range p.TaxBreakdown {
		resp.TaxBreakdown[i] = dto.TaxLineResponse{Name: t.Name, RatePercent: t.RatePercent, Amount: t.Amount}
	}
	return resp
}

// BookingsToResponses converts a slice of Booking entities to slice of BookingResponse DTOs
func BookingsToResponses(bookings []entity.Booking) []dto.BookingResponse {
	responses := make([]dto.BookingResponse, len(bookings))
	for i := range bookings {
		resp := BookingToResponse(&bookings[i])
		if resp != nil {
			responses[i] = *resp
		}
	}
	return responses
}
