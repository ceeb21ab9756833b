package gateway

import (
	"context"
	"time"
)

// BookingConfirmedEvent is published once a booking commit succeeds
type BookingConfirmedEvent struct {
	BookingID          string    `json:"booking_id"`
	ConfirmationNumber string    `json:"confirmation_number"`
	ProviderID         string    `json:"provider_id"`
	PatientName        string    `json:"patient_name"`
	PatientEmail       string    `json:"patient_email"`
	PatientPhone       string    `json:"patient_phone"`
	SlotStart          time.Time `json:"slot_start"`
	GrandTotal         string    `json:"grand_total"`
	Currency           string    `json:"currency"`
}

// Notifier hands events to the notification system. Delivery is
// fire-and-forget from the engine's point of view.
type Notifier interface {
	BookingConfirmed(ctx context.Context, event BookingConfirmedEvent)
}
