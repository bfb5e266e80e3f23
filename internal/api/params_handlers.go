package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/atelierforma/configurator/internal/audit"
	"github.com/atelierforma/configurator/internal/middleware"
	"github.com/atelierforma/configurator/internal/pricing"
	"github.com/atelierforma/configurator/internal/validate"
)

// UpsertParameterRequest represents the request body for setting a
// pricing parameter value.
type UpsertParameterRequest struct {
	Value float64 `json:"value"`
}

// ParamsHandlers holds dependencies for pricing-parameter HTTP handlers.
// All mutating routes are admin-only; the caller wires them behind
// AuthMiddleware.RequireAdmin.
type ParamsHandlers struct {
	repo  pricing.ParameterRepository
	audit audit.Repository
}

// NewParamsHandlers creates a new ParamsHandlers instance. The audit
// repository may be nil, in which case admin mutations are not audited.
func NewParamsHandlers(repo pricing.ParameterRepository, auditRepo audit.Repository) *ParamsHandlers {
	return &ParamsHandlers{repo: repo, audit: auditRepo}
}

// recordAudit writes an audit entry for an admin mutation. Audit failures
// are logged but do not fail the request.
func (h *ParamsHandlers) recordAudit(r *http.Request, action, category, item, param string) {
	if h.audit == nil {
		return
	}
	entityID := category + "/" + item + "/" + param
	if err := audit.LogAccessFromRequest(r, h.audit, "pricing_parameter", entityID, action); err != nil {
		slog.ErrorContext(r.Context(), "failed to record audit log",
			"action", action,
			"entity_id", entityID,
			"error", err,
		)
	}
}

// Snapshot handles GET /v1/params - returns the full parameter table.
func (h *ParamsHandlers) Snapshot(w http.ResponseWriter, r *http.Request) {
	table, err := h.repo.Snapshot(r.Context())
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to load pricing parameters")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]any{"params": table}); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode params response", "error", err)
	}
}

// parameterCoordinate extracts category/item/param from
// /v1/params/{category}/{item}/{param}.
func parameterCoordinate(r *http.Request) (category, item, param string, ok bool) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/params/")
	if rest == r.URL.Path {
		return "", "", "", false
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 3 {
		return "", "", "", false
	}
	for i, p := range parts {
		cleaned, err := validate.ParameterSegment(p)
		if err != nil {
			return "", "", "", false
		}
		parts[i] = cleaned
	}
	return parts[0], parts[1], parts[2], true
}

// Upsert handles PUT /v1/params/{category}/{item}/{param} - creates or
// replaces one parameter value.
func (h *ParamsHandlers) Upsert(w http.ResponseWriter, r *http.Request) {
	category, item, param, ok := parameterCoordinate(r)
	if !ok {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInvalidParameter)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidParameter, "Expected /v1/params/{category}/{item}/{param}")
		return
	}

	var req UpsertParameterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	if req.Value < 0 {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "value must not be negative")
		return
	}

	if err := h.repo.Upsert(r.Context(), category, item, param, req.Value); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to store pricing parameter")
		return
	}

	slog.InfoContext(r.Context(), "pricing parameter updated",
		"category", category,
		"item", item,
		"param", param,
		"value", req.Value,
		"user_id", middleware.GetUserID(r.Context()),
	)
	h.recordAudit(r, "upsert_parameter", category, item, param)

	w.WriteHeader(http.StatusNoContent)
}

// Delete handles DELETE /v1/params/{category}/{item}/{param}.
func (h *ParamsHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	category, item, param, ok := parameterCoordinate(r)
	if !ok {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInvalidParameter)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidParameter, "Expected /v1/params/{category}/{item}/{param}")
		return
	}

	if err := h.repo.Delete(r.Context(), category, item, param); err != nil {
		if errors.Is(err, pricing.ErrParameterNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Pricing parameter not found")
			return
		}
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to delete pricing parameter")
		return
	}
	h.recordAudit(r, "delete_parameter", category, item, param)

	w.WriteHeader(http.StatusNoContent)
}
