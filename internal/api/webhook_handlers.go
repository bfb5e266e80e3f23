package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"

	"github.com/atelierforma/configurator/internal/middleware"
	"github.com/atelierforma/configurator/internal/payment"
)

// WebhookHandlers holds dependencies for Stripe webhook HTTP handlers.
type WebhookHandlers struct {
	webhookSecret string
	records       payment.Repository
	webhookRepo   payment.WebhookRepository
}

// NewWebhookHandlers creates a new WebhookHandlers instance.
func NewWebhookHandlers(
	webhookSecret string,
	records payment.Repository,
	webhookRepo payment.WebhookRepository,
) *WebhookHandlers {
	return &WebhookHandlers{
		webhookSecret: webhookSecret,
		records:       records,
		webhookRepo:   webhookRepo,
	}
}

// HandleStripeWebhook processes Stripe webhook events with signature verification.
// POST /v1/stripe/webhook
func (h *WebhookHandlers) HandleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		ctx = middleware.SetErrorCode(ctx, ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "failed to read request body")
		return
	}

	signature := r.Header.Get("Stripe-Signature")
	if signature == "" {
		ctx = middleware.SetErrorCode(ctx, ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "missing Stripe-Signature header")
		return
	}

	event, err := webhook.ConstructEvent(body, signature, h.webhookSecret)
	if err != nil {
		slog.WarnContext(ctx, "webhook signature verification failed", "error", err)
		ctx = middleware.SetErrorCode(ctx, ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "invalid signature")
		return
	}

	// Log minimal event info (type and ID only, not full payload)
	slog.InfoContext(ctx, "webhook event received", "event_type", event.Type, "event_id", event.ID)

	// Idempotency: Stripe retries aggressively, process each event once
	if err := h.webhookRepo.RecordEvent(event.ID, string(event.Type)); err != nil {
		if errors.Is(err, payment.ErrEventAlreadyProcessed) {
			slog.InfoContext(ctx, "webhook event already processed, ignoring", "event_id", event.ID)
			w.WriteHeader(http.StatusOK)
			return
		}
		slog.ErrorContext(ctx, "failed to record webhook event", "event_id", event.ID, "error", err)
		ctx = middleware.SetErrorCode(ctx, ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "failed to process webhook")
		return
	}

	switch event.Type {
	case "checkout.session.completed":
		h.handleSessionStatus(ctx, event, payment.StatusSucceeded)
	case "checkout.session.expired":
		h.handleSessionStatus(ctx, event, payment.StatusCanceled)
	case "checkout.session.async_payment_failed":
		h.handleSessionStatus(ctx, event, payment.StatusFailed)
	default:
		// Unknown event type - log and ignore
		slog.InfoContext(ctx, "ignoring unhandled webhook event type", "event_type", event.Type, "event_id", event.ID)
	}

	// Always return 200 to acknowledge receipt
	w.WriteHeader(http.StatusOK)
}

// handleSessionStatus transitions the checkout record for a session event.
func (h *WebhookHandlers) handleSessionStatus(ctx context.Context, event stripe.Event, status string) {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		slog.ErrorContext(ctx, "failed to parse checkout session", "event_id", event.ID, "error", err)
		return
	}

	record, err := h.records.GetBySessionID(session.ID)
	if err != nil {
		if errors.Is(err, payment.ErrCheckoutRecordNotFound) {
			slog.WarnContext(ctx, "checkout record not found for session",
				"session_id", session.ID,
				"event_id", event.ID,
			)
			return
		}
		slog.ErrorContext(ctx, "failed to get checkout record", "session_id", session.ID, "error", err)
		return
	}

	// Terminal states never regress; a late expiry event after a
	// completion must not cancel a paid order.
	if record.Status == payment.StatusSucceeded {
		slog.InfoContext(ctx, "checkout already succeeded, ignoring transition",
			"session_id", session.ID,
			"requested_status", status,
		)
		return
	}

	record.Status = status
	now := time.Now()
	record.UpdatedAt = &now

	if err := h.records.Update(record); err != nil {
		slog.ErrorContext(ctx, "failed to update checkout record",
			"session_id", session.ID,
			"status", status,
			"error", err,
		)
		return
	}

	slog.InfoContext(ctx, "checkout record updated",
		"checkout_id", record.ID,
		"session_id", session.ID,
		"config_id", record.ConfigID,
		"status", status,
	)
}
