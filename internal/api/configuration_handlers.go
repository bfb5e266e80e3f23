package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/atelierforma/configurator/internal/catalog"
	"github.com/atelierforma/configurator/internal/codec"
	"github.com/atelierforma/configurator/internal/configsave"
	"github.com/atelierforma/configurator/internal/middleware"
	"github.com/atelierforma/configurator/internal/pricing"
	"github.com/atelierforma/configurator/internal/validate"
)

// SaveConfigurationRequest represents the request body for creating or
// updating a saved configuration.
type SaveConfigurationRequest struct {
	Name       string `json:"name"`
	TemplateID string `json:"template_id,omitempty"`
	Prompt     string `json:"prompt"`
	AssetURL   string `json:"asset_url,omitempty"`
	CutFileURL string `json:"cut_file_url,omitempty"`
}

// ConfigurationHandlers holds dependencies for saved-configuration HTTP handlers.
type ConfigurationHandlers struct {
	repo    configsave.Repository
	engine  *pricing.Engine
	params  pricing.ParameterRepository
	catalog catalog.Repository
}

// NewConfigurationHandlers creates a new ConfigurationHandlers instance.
func NewConfigurationHandlers(
	repo configsave.Repository,
	engine *pricing.Engine,
	params pricing.ParameterRepository,
	cat catalog.Repository,
) *ConfigurationHandlers {
	return &ConfigurationHandlers{
		repo:    repo,
		engine:  engine,
		params:  params,
		catalog: cat,
	}
}

// price recomputes the stored price from the prompt. The client never
// supplies a price of its own.
func (h *ConfigurationHandlers) price(r *http.Request, prompt string) (int, error) {
	g, root := codec.Decode(prompt)
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
	return h.engine.Price(g, root, table, samples).Total, nil
}

// fromRequest builds a Configuration record from the request body. The
// dimensional and finish columns are denormalized from the prompt so
// listings never need to decode it.
func fromRequest(req SaveConfigurationRequest, ownerID string) *configsave.Configuration {
	g, _ := codec.Decode(req.Prompt)
	return &configsave.Configuration{
		Name:       strings.TrimSpace(req.Name),
		OwnerID:    ownerID,
		TemplateID: req.TemplateID,
		Prompt:     req.Prompt,
		Width:      g.Width,
		Height:     g.Height,
		Depth:      g.Depth,
		FinishKey:  g.FinishKey,
		SampleID:   g.SampleID,
		AssetURL:   req.AssetURL,
		CutFileURL: req.CutFileURL,
	}
}

// validateAssets checks the optional caller-supplied fields of a save
// request. The name has its own domain check in configsave.
func validateAssets(req *SaveConfigurationRequest) error {
	id, err := validate.TemplateID(req.TemplateID)
	if err != nil {
		return fmt.Errorf("template_id: %w", err)
	}
	req.TemplateID = id
	if req.AssetURL != "" {
		u, err := validate.AssetURL(req.AssetURL)
		if err != nil {
			return fmt.Errorf("asset_url: %w", err)
		}
		req.AssetURL = u
	}
	if req.CutFileURL != "" {
		u, err := validate.AssetURL(req.CutFileURL)
		if err != nil {
			return fmt.Errorf("cut_file_url: %w", err)
		}
		req.CutFileURL = u
	}
	return nil
}

// Create handles POST /v1/configurations - saves a new configuration for
// the authenticated user.
func (h *ConfigurationHandlers) Create(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetUserID(r.Context())
	if ownerID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeAuthFailed)
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "Authentication required")
		return
	}

	var req SaveConfigurationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	if err := configsave.ValidateName(req.Name); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInvalidName)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidName, err.Error())
		return
	}

	if err := validateAssets(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, err.Error())
		return
	}

	cfg := fromRequest(req, ownerID)

	price, err := h.price(r, req.Prompt)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to price configuration")
		return
	}
	cfg.Price = price

	if err := h.repo.Create(r.Context(), cfg); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to save configuration")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(cfg); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode configuration response", "error", err)
	}
}

// List handles GET /v1/configurations - lists the authenticated user's
// saved configurations, most recently updated first.
func (h *ConfigurationHandlers) List(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetUserID(r.Context())
	if ownerID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeAuthFailed)
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "Authentication required")
		return
	}

	configs, err := h.repo.ListByOwner(r.Context(), ownerID)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to list configurations")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]any{"configurations": configs}); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode configurations response", "error", err)
	}
}

// configurationID extracts the id segment from /v1/configurations/{id}.
func configurationID(r *http.Request) string {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/configurations/")
	if rest == r.URL.Path || rest == "" || strings.Contains(rest, "/") {
		return ""
	}
	return rest
}

// getOwned fetches the configuration and verifies ownership. Writes the
// error response and returns nil when access is denied.
func (h *ConfigurationHandlers) getOwned(w http.ResponseWriter, r *http.Request, id, ownerID string) *configsave.Configuration {
	cfg, err := h.repo.GetByID(r.Context(), id)
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
		return nil
	}
	if cfg.OwnerID != ownerID {
		// Do not leak existence of other users' configurations
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
		WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Configuration not found")
		return nil
	}
	return cfg
}

// Get handles GET /v1/configurations/{id}.
func (h *ConfigurationHandlers) Get(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetUserID(r.Context())
	if ownerID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeAuthFailed)
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "Authentication required")
		return
	}

	id := configurationID(r)
	if id == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Configuration ID is required")
		return
	}

	cfg := h.getOwned(w, r, id, ownerID)
	if cfg == nil {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(cfg); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode configuration response", "error", err)
	}
}

// Update handles PUT /v1/configurations/{id}.
func (h *ConfigurationHandlers) Update(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetUserID(r.Context())
	if ownerID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeAuthFailed)
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "Authentication required")
		return
	}

	id := configurationID(r)
	if id == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Configuration ID is required")
		return
	}

	var req SaveConfigurationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	if err := configsave.ValidateName(req.Name); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInvalidName)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidName, err.Error())
		return
	}

	if err := validateAssets(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, err.Error())
		return
	}

	existing := h.getOwned(w, r, id, ownerID)
	if existing == nil {
		return
	}

	cfg := fromRequest(req, ownerID)
	cfg.ID = existing.ID

	price, err := h.price(r, req.Prompt)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to price configuration")
		return
	}
	cfg.Price = price

	if err := h.repo.Update(r.Context(), cfg); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to update configuration")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(cfg); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode configuration response", "error", err)
	}
}

// Delete handles DELETE /v1/configurations/{id} - soft deletes the
// configuration.
func (h *ConfigurationHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetUserID(r.Context())
	if ownerID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeAuthFailed)
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "Authentication required")
		return
	}

	id := configurationID(r)
	if id == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Configuration ID is required")
		return
	}

	if cfg := h.getOwned(w, r, id, ownerID); cfg == nil {
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to delete configuration")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
