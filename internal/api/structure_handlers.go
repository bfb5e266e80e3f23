package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/atelierforma/configurator/internal/codec"
	"github.com/atelierforma/configurator/internal/middleware"
	"github.com/atelierforma/configurator/internal/zone"
)

// EncodeRequest represents the request body for encoding a structure.
type EncodeRequest struct {
	Config zone.GlobalConfig `json:"config"`
	Tree   *zone.Zone        `json:"tree"`
}

// EncodeResponse carries the encoded prompt string.
type EncodeResponse struct {
	Prompt string `json:"prompt"`
}

// DecodeRequest represents the request body for decoding a prompt.
type DecodeRequest struct {
	Prompt string `json:"prompt"`
}

// DecodeResponse carries the decoded config and zone tree.
type DecodeResponse struct {
	Config zone.GlobalConfig `json:"config"`
	Tree   *zone.Zone        `json:"tree"`
}

// StructureHandlers holds dependencies for structure codec HTTP handlers.
type StructureHandlers struct{}

// NewStructureHandlers creates a new StructureHandlers instance.
func NewStructureHandlers() *StructureHandlers {
	return &StructureHandlers{}
}

// Encode handles POST /v1/structure/encode - serializes a zone tree to
// its prompt representation.
func (h *StructureHandlers) Encode(w http.ResponseWriter, r *http.Request) {
	var req EncodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	if req.Tree == nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "tree is required")
		return
	}

	if err := req.Tree.Validate(); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInvalidStructure)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidStructure, err.Error())
		return
	}

	resp := EncodeResponse{Prompt: codec.Encode(req.Config, req.Tree)}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode structure response", "error", err)
	}
}

// Decode handles POST /v1/structure/decode - parses a prompt string into
// a config and zone tree. Decoding is total: malformed fragments degrade
// to defaults rather than failing.
func (h *StructureHandlers) Decode(w http.ResponseWriter, r *http.Request) {
	var req DecodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	g, root := codec.Decode(req.Prompt)
	resp := DecodeResponse{Config: g, Tree: root}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode decode response", "error", err)
	}
}
