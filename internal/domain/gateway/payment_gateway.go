package gateway

import (
	"context"
	"errors"
)

// ErrPaymentGateway wraps any failure talking to the payment provider.
// Callers may retry; intent creation is idempotent per key.
var ErrPaymentGateway = errors.New("payment gateway error")

// IntentStatus mirrors the provider's payment intent lifecycle
type IntentStatus string

const (
	IntentRequiresPaymentMethod IntentStatus = "requires_payment_method"
	IntentRequiresConfirmation  IntentStatus = "requires_confirmation"
	IntentRequiresAction        IntentStatus = "requires_action"
	IntentProcessing            IntentStatus = "processing"
	IntentSucceeded             IntentStatus = "succeeded"
	IntentCanceled              IntentStatus = "canceled"
)

// Reusable reports whether an intent can still be paid by the client
func (s IntentStatus) Reusable() bool {
	switch s {
	case IntentRequiresPaymentMethod, IntentRequiresConfirmation, IntentRequiresAction:
		return true
	}
	return false
}

// Captured reports whether the client has paid, or a payment is in flight.
// A captured intent can no longer be cancelled.
func (s IntentStatus) Captured() bool {
	return s == IntentProcessing || s == IntentSucceeded
}

type Intent struct {
	ID           string
	ClientSecret string
	AmountMinor  int64
	Currency     string
	Status       IntentStatus
	DraftID      string
}

type CreateIntentRequest struct {
	AmountMinor    int64
	Currency       string
	DraftID        string
	IdempotencyKey string
}

// PaymentGateway is the narrow contract the engine uses with the external
// payment provider.
type PaymentGateway interface {
	CreateIntent(ctx context.Context, req CreateIntentRequest) (*Intent, error)
	RetrieveIntent(ctx context.Context, intentID string) (*Intent, error)
	ConfirmIntent(ctx context.Context, intentID string) (*Intent, error)
	CancelIntent(ctx context.Context, intentID string) error
}
