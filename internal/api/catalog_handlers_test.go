package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/atelierforma/configurator/internal/catalog"
)

func newCatalogHandlers() *CatalogHandlers {
	repo := catalog.NewInMemoryRepository()
	repo.PutFinish(catalog.Finish{Key: "oak", Name: "Oiled Oak", PricePerM2: 90})
	repo.PutFinish(catalog.Finish{Key: "mdf", Name: "Lacquered MDF", PricePerM2: 55})
	repo.PutSample(catalog.Sample{ID: "oak-natural", FinishKey: "oak", Name: "Natural", Hex: "#c8a165"})
	repo.PutSample(catalog.Sample{ID: "oak-smoke", FinishKey: "oak", Name: "Smoked", Hex: "#4a3b2a", SurchargePerM2: 12})
	return NewCatalogHandlers(repo)
}

func TestCatalogFinishes(t *testing.T) {
	h := newCatalogHandlers()

	req := httptest.NewRequest(http.MethodGet, "/v1/catalog/finishes", nil)
	w := httptest.NewRecorder()
	h.Finishes(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Finishes []catalog.Finish `json:"finishes"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Finishes) != 2 {
		t.Errorf("expected 2 finishes, got %d", len(resp.Finishes))
	}
}

func TestCatalogSamples(t *testing.T) {
	h := newCatalogHandlers()

	req := httptest.NewRequest(http.MethodGet, "/v1/catalog/finishes/oak/samples", nil)
	w := httptest.NewRecorder()
	h.Samples(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Samples []catalog.Sample `json:"samples"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Samples) != 2 {
		t.Errorf("expected 2 samples, got %d", len(resp.Samples))
	}
}

func TestCatalogSamples_UnknownFinish(t *testing.T) {
	h := newCatalogHandlers()

	req := httptest.NewRequest(http.MethodGet, "/v1/catalog/finishes/walnut/samples", nil)
	w := httptest.NewRecorder()
	h.Samples(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", w.Code)
	}

	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to parse error response: %v", err)
	}
	if resp.Error.Code != ErrCodeUnknownFinish {
		t.Errorf("expected error code %s, got %s", ErrCodeUnknownFinish, resp.Error.Code)
	}
}

func TestCatalogSamples_BadPath(t *testing.T) {
	h := newCatalogHandlers()

	req := httptest.NewRequest(http.MethodGet, "/v1/catalog/finishes/oak/other", nil)
	w := httptest.NewRecorder()
	h.Samples(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
}

func TestCatalogSample(t *testing.T) {
	h := newCatalogHandlers()

	req := httptest.NewRequest(http.MethodGet, "/v1/catalog/samples/oak-smoke", nil)
	w := httptest.NewRecorder()
	h.Sample(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var sample catalog.Sample
	if err := json.NewDecoder(w.Body).Decode(&sample); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if sample.Hex != "#4a3b2a" {
		t.Errorf("expected hex #4a3b2a, got %s", sample.Hex)
	}
}

func TestCatalogSample_Unknown(t *testing.T) {
	h := newCatalogHandlers()

	req := httptest.NewRequest(http.MethodGet, "/v1/catalog/samples/nope", nil)
	w := httptest.NewRecorder()
	h.Sample(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", w.Code)
	}

	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to parse error response: %v", err)
	}
	if resp.Error.Code != ErrCodeUnknownSample {
		t.Errorf("expected error code %s, got %s", ErrCodeUnknownSample, resp.Error.Code)
	}
}
