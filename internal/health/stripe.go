package health

import (
	"context"
	"errors"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/balance"
)

// StripeChecker implements health checking for the Stripe API.
// It retrieves the account balance, the cheapest authenticated call
// the API offers.
type StripeChecker struct{}

// NewStripeChecker creates a new Stripe health checker.
func NewStripeChecker() *StripeChecker {
	return &StripeChecker{}
}

// HealthCheck verifies the configured API key can reach Stripe.
func (s *StripeChecker) HealthCheck(ctx context.Context) error {
	if stripe.Key == "" {
		return errors.New("stripe API key not configured")
	}
	_, err := balance.Get(&stripe.BalanceParams{Params: stripe.Params{Context: ctx}})
	return err
}
