// Package payment provides Stripe checkout for saved configurations.
package payment

import "time"

// Checkout record statuses.
const (
	StatusPending   = "pending"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusCanceled  = "canceled"
)

// CheckoutRecord is a provisional record for a Stripe Checkout Session
// opened for one saved configuration.
type CheckoutRecord struct {
	ID        string     `json:"id"`
	SessionID string     `json:"session_id"` // Stripe Checkout Session ID
	Status    string     `json:"status"`     // pending, succeeded, failed, canceled
	Amount    int64      `json:"amount"`     // Total amount in cents
	ConfigID  string     `json:"config_id"`  // Configuration being purchased
	OwnerID   string     `json:"owner_id"`   // User making the payment
	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}
