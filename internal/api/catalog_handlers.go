package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/atelierforma/configurator/internal/catalog"
	"github.com/atelierforma/configurator/internal/middleware"
)

// CatalogHandlers holds dependencies for finish-catalog HTTP handlers.
type CatalogHandlers struct {
	repo catalog.Repository
}

// NewCatalogHandlers creates a new CatalogHandlers instance.
func NewCatalogHandlers(repo catalog.Repository) *CatalogHandlers {
	return &CatalogHandlers{repo: repo}
}

// Finishes handles GET /v1/catalog/finishes - lists all finishes.
func (h *CatalogHandlers) Finishes(w http.ResponseWriter, r *http.Request) {
	finishes, err := h.repo.Finishes(r.Context())
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to list finishes")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]any{"finishes": finishes}); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode finishes response", "error", err)
	}
}

// Samples handles GET /v1/catalog/finishes/{key}/samples - lists the
// color samples of one finish.
func (h *CatalogHandlers) Samples(w http.ResponseWriter, r *http.Request) {
	// Expected: /v1/catalog/finishes/{key}/samples
	rest := strings.TrimPrefix(r.URL.Path, "/v1/catalog/finishes/")
	parts := strings.Split(rest, "/")
	if rest == r.URL.Path || len(parts) != 2 || parts[0] == "" || parts[1] != "samples" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Expected /v1/catalog/finishes/{key}/samples")
		return
	}
	finishKey := parts[0]

	samples, err := h.repo.SamplesByFinish(r.Context(), finishKey)
	if err != nil {
		if errors.Is(err, catalog.ErrFinishNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeUnknownFinish)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeUnknownFinish, "Finish not found")
			return
		}
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to list samples")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]any{"samples": samples}); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode samples response", "error", err)
	}
}

// Sample handles GET /v1/catalog/samples/{id} - returns one sample.
func (h *CatalogHandlers) Sample(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/catalog/samples/")
	if rest == r.URL.Path || rest == "" || strings.Contains(rest, "/") {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Sample ID is required")
		return
	}

	sample, err := h.repo.SampleByID(r.Context(), rest)
	if err != nil {
		if errors.Is(err, catalog.ErrSampleNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeUnknownSample)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeUnknownSample, "Sample not found")
			return
		}
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to retrieve sample")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(sample); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode sample response", "error", err)
	}
}
