package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hisiddique/bloodathome/config"
	"github.com/hisiddique/bloodathome/internal/domain/gateway"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

const metadataDraftID = "draft_id"

// StripeGateway implements gateway.PaymentGateway on Stripe PaymentIntents.
type StripeGateway struct {
	sc *client.API
}

func NewStripeGateway(cfg config.StripeConfig) gateway.PaymentGateway {
	backendCfg := &stripe.BackendConfig{
		MaxNetworkRetries: stripe.Int64(cfg.MaxRetries),
	}
	backends := &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, backendCfg),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, backendCfg),
	}
	return &StripeGateway{sc: client.New(cfg.SecretKey, backends)}
}

func (g *StripeGateway) CreateIntent(ctx context.Context, req gateway.CreateIntentRequest) (*gateway.Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.AmountMinor),
		Currency: stripe.String(strings.ToLower(req.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.AddMetadata(metadataDraftID, req.DraftID)
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	pi, err := g.sc.PaymentIntents.New(params)
	if err != nil {
		return nil, wrapStripeErr("create payment intent", err)
	}
	return toIntent(pi), nil
}

func (g *StripeGateway) RetrieveIntent(ctx context.Context, intentID string) (*gateway.Intent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := g.sc.PaymentIntents.Get(intentID, params)
	if err != nil {
		return nil, wrapStripeErr("retrieve payment intent", err)
	}
	return toIntent(pi), nil
}

func (g *StripeGateway) ConfirmIntent(ctx context.Context, intentID string) (*gateway.Intent, error) {
	params := &stripe.PaymentIntentConfirmParams{}
	params.Context = ctx

	pi, err := g.sc.PaymentIntents.Confirm(intentID, params)
	if err != nil {
		return nil, wrapStripeErr("confirm payment intent", err)
	}
	return toIntent(pi), nil
}

func (g *StripeGateway) CancelIntent(ctx context.Context, intentID string) error {
	params := &stripe.PaymentIntentCancelParams{
		CancellationReason: stripe.String(string(stripe.PaymentIntentCancellationReasonAbandoned)),
	}
	params.Context = ctx

	if _, err := g.sc.PaymentIntents.Cancel(intentID, params); err != nil {
		return wrapStripeErr("cancel payment intent", err)
	}
	return nil
}

func toIntent(pi *stripe.PaymentIntent) *gateway.Intent {
	return &gateway.Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		AmountMinor:  pi.Amount,
		Currency:     string(pi.Currency),
		Status:       gateway.IntentStatus(pi.Status),
		DraftID:      pi.Metadata[metadataDraftID],
	}
}

func wrapStripeErr(op string, err error) error {
	var se *stripe.Error
	if errors.As(err, &se) {
		return fmt.Errorf("%w: %s: %s (%s, http %d)", gateway.ErrPaymentGateway, op, se.Msg, se.Code, se.HTTPStatusCode)
	}
	return fmt.Errorf("%w: %s: %v", gateway.ErrPaymentGateway, op, err)
}
