package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/atelierforma/configurator/internal/catalog"
	"github.com/atelierforma/configurator/internal/codec"
	"github.com/atelierforma/configurator/internal/configsave"
	"github.com/atelierforma/configurator/internal/middleware"
	"github.com/atelierforma/configurator/internal/payment"
	"github.com/atelierforma/configurator/internal/pricing"
)

// CheckoutRequest represents the request body for starting a checkout.
type CheckoutRequest struct {
	ConfigID string `json:"config_id"`
}

// CheckoutResponse carries the Stripe-hosted checkout URL.
type CheckoutResponse struct {
	CheckoutID  string `json:"checkout_id"`
	SessionID   string `json:"session_id"`
	CheckoutURL string `json:"checkout_url"`
	Amount      int64  `json:"amount"`
}

// CheckoutHandlers holds dependencies for checkout HTTP handlers.
type CheckoutHandlers struct {
	stripe     payment.Client
	records    payment.Repository
	configs    configsave.Repository
	engine     *pricing.Engine
	params     pricing.ParameterRepository
	catalog    catalog.Repository
	currency   string
	successURL string
	cancelURL  string
}

// NewCheckoutHandlers creates a new CheckoutHandlers instance.
func NewCheckoutHandlers(
	stripe payment.Client,
	records payment.Repository,
	configs configsave.Repository,
	engine *pricing.Engine,
	params pricing.ParameterRepository,
	cat catalog.Repository,
	currency, successURL, cancelURL string,
) *CheckoutHandlers {
	return &CheckoutHandlers{
		stripe:     stripe,
		records:    records,
		configs:    configs,
		engine:     engine,
		params:     params,
		catalog:    cat,
		currency:   currency,
		successURL: successURL,
		cancelURL:  cancelURL,
	}
}

// Checkout handles POST /v1/checkout - opens a Stripe Checkout Session
// for a saved configuration. The amount is always recomputed by the
// pricing engine against the current parameter snapshot; the stored
// price is refreshed if it drifted.
func (h *CheckoutHandlers) Checkout(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetUserID(r.Context())
	if ownerID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeAuthFailed)
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "Authentication required")
		return
	}

	var req CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	if req.ConfigID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "config_id is required")
		return
	}

	cfg, err := h.configs.GetByID(r.Context(), req.ConfigID)
	if err != nil {
		switch {
		case errors.Is(err, configsave.ErrConfigurationNotFound):
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Configuration not found")
		case errors.Is(err, configsave.ErrConfigurationDeleted):
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeConfigurationDeleted)
			WriteError(w, ctx, http.StatusGone, ErrCodeConfigurationDeleted, "Configuration has been deleted")
		default:
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
			WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to retrieve configuration")
		}
		return
	}

	if cfg.OwnerID != ownerID {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
		WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Configuration not found")
		return
	}

	amount, err := h.quotedAmount(r, cfg)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to price configuration")
		return
	}

	session, err := h.stripe.CreateCheckoutSession(&payment.CheckoutSessionParams{
		ConfigID:    cfg.ID,
		OwnerID:     ownerID,
		Name:        cfg.Name,
		AmountCents: amount,
		Currency:    h.currency,
		SuccessURL:  h.successURL,
		CancelURL:   h.cancelURL,
	})
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to create checkout session",
			"config_id", cfg.ID,
			"error", err,
		)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeCheckoutFailed)
		WriteError(w, ctx, http.StatusBadGateway, ErrCodeCheckoutFailed, "Failed to create checkout session")
		return
	}

	now := time.Now()
	record := &payment.CheckoutRecord{
		ID:        uuid.New().String(),
		SessionID: session.ID,
		Status:    payment.StatusPending,
		Amount:    amount,
		ConfigID:  cfg.ID,
		OwnerID:   ownerID,
		CreatedAt: &now,
		UpdatedAt: &now,
	}
	if err := h.records.Insert(record); err != nil {
		// The Stripe session exists but we lost the record; surface the
		// error so the client retries rather than paying untracked.
		slog.ErrorContext(r.Context(), "failed to record checkout",
			"session_id", session.ID,
			"error", err,
		)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to record checkout")
		return
	}

	slog.InfoContext(r.Context(), "checkout session created",
		"checkout_id", record.ID,
		"session_id", session.ID,
		"config_id", cfg.ID,
		"amount", amount,
	)

	resp := CheckoutResponse{
		CheckoutID:  record.ID,
		SessionID:   session.ID,
		CheckoutURL: session.URL,
		Amount:      amount,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode checkout response", "error", err)
	}
}

// quotedAmount reprices the configuration and returns the amount in
// cents. The engine quotes whole currency units.
func (h *CheckoutHandlers) quotedAmount(r *http.Request, cfg *configsave.Configuration) (int64, error) {
	g, root := codec.Decode(cfg.Prompt)
	table, err := h.params.Snapshot(r.Context())
	if err != nil {
		return 0, err
	}
	var samples pricing.SampleSource
	if h.catalog != nil {
		set, err := catalog.LoadSampleSet(r.Context(), h.catalog)
		if err != nil {
			slog.WarnContext(r.Context(), "failed to load sample set, pricing without surcharges", "error", err)
		} else {
			samples = set
		}
	}
	quote := h.engine.Price(g, root, table, samples)

	if quote.Total != cfg.Price {
		slog.InfoContext(r.Context(), "stored price drifted from engine quote",
			"config_id", cfg.ID,
			"stored", cfg.Price,
			"quoted", quote.Total,
		)
	}
	return int64(quote.Total) * 100, nil
}
