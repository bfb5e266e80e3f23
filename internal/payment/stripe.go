package payment

import (
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/checkout/session"
)

// CheckoutSessionParams represents parameters for creating a Checkout
// Session for one configuration. Amount is the engine's quoted price in
// cents; the line item is built ad hoc since every configuration is
// priced individually.
type CheckoutSessionParams struct {
	ConfigID    string
	OwnerID     string
	Name        string
	AmountCents int64
	Currency    string
	SuccessURL  string
	CancelURL   string
}

// Client is an interface for Stripe operations to enable testing with mocks.
type Client interface {
	CreateCheckoutSession(params *CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// StripeClient implements the Client interface using the real Stripe SDK.
type StripeClient struct{}

// NewStripeClient creates a new Stripe client with the given API key.
func NewStripeClient(apiKey string) *StripeClient {
	stripe.Key = apiKey
	return &StripeClient{}
}

// CreateCheckoutSession creates a Stripe Checkout Session at the quoted
// price. The configuration id travels in the session metadata so the
// webhook handler can resolve the purchase without relying on the
// PaymentIntent, which does not exist yet at session creation time.
func (c *StripeClient) CreateCheckoutSession(params *CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	currency := params.Currency
	if currency == "" {
		currency = string(stripe.CurrencyEUR)
	}

	sessionParams := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(currency),
					UnitAmount: stripe.Int64(params.AmountCents),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(params.Name),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(params.SuccessURL),
		CancelURL:  stripe.String(params.CancelURL),
		Metadata: map[string]string{
			"config_id": params.ConfigID,
			"owner_id":  params.OwnerID,
		},
	}

	return session.New(sessionParams)
}
