package payment

import (
	"context"
	"errors"

	"storefront/internal/apperr"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// StripeGateway creates payment intents through the Stripe API.
type StripeGateway struct {
	api *client.API
}

// NewStripeGateway creates a gateway authenticated with secretKey. backends may
// be nil to use Stripe's default endpoints.
func NewStripeGateway(secretKey string, backends *stripe.Backends) *StripeGateway {
	api := &client.API{}
	api.Init(secretKey, backends)
	return &StripeGateway{api: api}
}

// CreatePaymentIntent asks Stripe for an intent of amount in currency. The
// idempotency key makes a retried request return the original intent.
func (g *StripeGateway) CreatePaymentIntent(ctx context.Context, amount decimal.Decimal, currency, idempotencyKey string) (*Intent, error) {
	cents := ToMinorUnits(amount)
	if cents <= 0 {
		return nil, apperr.New(apperr.ErrGateway, "Payment amount must be greater than zero")
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(cents),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	if idempotencyKey != "" {
		params.SetIdempotencyKey(idempotencyKey)
		params.AddMetadata("idempotency_key", idempotencyKey)
	}

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) {
			log.Error().Str("code", string(stripeErr.Code)).Str("type", string(stripeErr.Type)).Msg(stripeErr.Msg)
		} else {
			log.Error().Err(err).Msg("stripe payment intent request failed")
		}
		return nil, apperr.Wrap(apperr.ErrGateway, "Payment provider rejected the request, please try again", err)
	}

	return &Intent{
		ProviderID:   pi.ID,
		ClientSecret: pi.ClientSecret,
		Amount:       amount,
		Currency:     currency,
	}, nil
}
