// Package payment talks to the external payment provider. It only creates
// payment intents; orders are created separately and linked through the
// idempotency key.
package payment

import (
	"context"

	"storefront/internal/apperr"

	"github.com/shopspring/decimal"
)

// Intent is the provider's answer to a payment intent request.
type Intent struct {
	ProviderID   string
	ClientSecret string
	Amount       decimal.Decimal
	Currency     string
}

// Gateway creates payment intents at the provider.
type Gateway interface {
	CreatePaymentIntent(ctx context.Context, amount decimal.Decimal, currency, idempotencyKey string) (*Intent, error)
}

// ToMinorUnits converts a major-unit amount to the provider's integer minor units (cents).
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// Unconfigured is used when no provider credentials are set. Every call fails
// with a gateway error so the rest of the shop keeps working.
type Unconfigured struct{}

func (Unconfigured) CreatePaymentIntent(context.Context, decimal.Decimal, string, string) (*Intent, error) {
	return nil, apperr.New(apperr.ErrGateway, "Online payment is not available right now")
}
