// Package api provides HTTP handlers for the configurator API.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/atelierforma/configurator/internal/catalog"
	"github.com/atelierforma/configurator/internal/codec"
	"github.com/atelierforma/configurator/internal/middleware"
	"github.com/atelierforma/configurator/internal/pricing"
	"github.com/atelierforma/configurator/internal/zone"
)

// QuoteRequest represents the request body for a price quote. Either a
// prompt string or a structured config+tree pair must be provided; when
// both are present the structured form wins.
type QuoteRequest struct {
	Prompt string             `json:"prompt,omitempty"`
	Config *zone.GlobalConfig `json:"config,omitempty"`
	Tree   *zone.Zone         `json:"tree,omitempty"`
}

// QuoteResponse carries the computed quote plus the display price range.
type QuoteResponse struct {
	Quote  pricing.Quote      `json:"quote"`
	Range  pricing.PriceRange `json:"range"`
	Prompt string             `json:"prompt"`
}

// QuoteHandlers holds dependencies for quote HTTP handlers.
type QuoteHandlers struct {
	engine    *pricing.Engine
	params    pricing.ParameterRepository
	catalog   catalog.Repository
	deviation int
}

// NewQuoteHandlers creates a new QuoteHandlers instance. deviation is the
// half-width of the displayed price range in currency units.
func NewQuoteHandlers(engine *pricing.Engine, params pricing.ParameterRepository, cat catalog.Repository, deviation int) *QuoteHandlers {
	return &QuoteHandlers{
		engine:    engine,
		params:    params,
		catalog:   cat,
		deviation: deviation,
	}
}

// resolveInput returns the config and tree described by the request.
func (req *QuoteRequest) resolveInput() (zone.GlobalConfig, *zone.Zone, string) {
	if req.Config != nil && req.Tree != nil {
		return *req.Config, req.Tree, ""
	}
	if strings.TrimSpace(req.Prompt) == "" && req.Config == nil && req.Tree == nil {
		return zone.GlobalConfig{}, nil, "either prompt or config and tree are required"
	}
	if req.Config != nil || req.Tree != nil {
		return zone.GlobalConfig{}, nil, "config and tree must be provided together"
	}
	g, root := codec.Decode(req.Prompt)
	return g, root, ""
}

// sampleSource loads the catalog sample set, falling back to a nil source
// (no surcharges) when the catalog is unavailable.
func (h *QuoteHandlers) sampleSource(ctx context.Context) pricing.SampleSource {
	if h.catalog == nil {
		return nil
	}
	set, err := catalog.LoadSampleSet(ctx, h.catalog)
	if err != nil {
		slog.WarnContext(ctx, "failed to load sample set, pricing without surcharges", "error", err)
		return nil
	}
	return set
}

// Quote handles POST /v1/quote - computes a price quote for a configuration.
func (h *QuoteHandlers) Quote(w http.ResponseWriter, r *http.Request) {
	var req QuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	g, root, errMsg := req.resolveInput()
	if errMsg != "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, errMsg)
		return
	}

	if err := root.Validate(); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInvalidStructure)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidStructure, err.Error())
		return
	}

	table, err := h.params.Snapshot(r.Context())
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to load pricing parameters")
		return
	}

	quote := h.engine.Price(g, root, table, h.sampleSource(r.Context()))

	resp := QuoteResponse{
		Quote:  quote,
		Range:  pricing.DisplayRange(quote.Total, h.deviation),
		Prompt: codec.Encode(g, root),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode quote response", "error", err)
	}
}
