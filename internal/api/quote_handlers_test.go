package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/atelierforma/configurator/internal/catalog"
	"github.com/atelierforma/configurator/internal/pricing"
	"github.com/atelierforma/configurator/internal/zone"
)

func newQuoteHandlers(t *testing.T) *QuoteHandlers {
	t.Helper()
	cat := catalog.NewInMemoryRepository()
	cat.PutFinish(catalog.Finish{Key: "oak", Name: "Oiled Oak", PricePerM2: 90})
	cat.PutSample(catalog.Sample{ID: "oak-smoke", FinishKey: "oak", Name: "Smoked", Hex: "#4a3b2a", SurchargePerM2: 12})
	return NewQuoteHandlers(pricing.NewEngine(nil), pricing.NewInMemoryParameterRepository(), cat, 50)
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func TestQuote_FromPrompt(t *testing.T) {
	h := newQuoteHandlers(t)

	w := postJSON(t, h.Quote, "/v1/quote", QuoteRequest{Prompt: "B(1500,500,730)MeH2(T,v)"})

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp QuoteResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp.Quote.Total <= 0 {
		t.Errorf("expected positive total, got %d", resp.Quote.Total)
	}
	if resp.Range.Low > resp.Quote.Total || resp.Range.High < resp.Quote.Total {
		t.Errorf("range [%d,%d] does not bracket total %d", resp.Range.Low, resp.Range.High, resp.Quote.Total)
	}
	if !strings.HasPrefix(resp.Prompt, "B(1500,500,730)") {
		t.Errorf("expected canonical prompt to keep dimensions, got %q", resp.Prompt)
	}
}

func TestQuote_FromStructuredConfig(t *testing.T) {
	h := newQuoteHandlers(t)

	req := QuoteRequest{
		Config: &zone.GlobalConfig{Width: 1200, Height: 2000, Depth: 450, Plinth: zone.PlinthNone},
		Tree:   &zone.Zone{ID: zone.RootID, Type: zone.TypeLeaf, Content: zone.ContentDrawer},
	}
	w := postJSON(t, h.Quote, "/v1/quote", req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp QuoteResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Quote.Total <= 0 {
		t.Errorf("expected positive total, got %d", resp.Quote.Total)
	}
}

func TestQuote_StructuredWinsOverPrompt(t *testing.T) {
	h := newQuoteHandlers(t)

	req := QuoteRequest{
		Prompt: "B(9999,9999,9999)",
		Config: &zone.GlobalConfig{Width: 1000, Height: 2000, Depth: 500, Plinth: zone.PlinthNone},
		Tree:   &zone.Zone{ID: zone.RootID, Type: zone.TypeLeaf, Content: zone.ContentEmpty},
	}
	w := postJSON(t, h.Quote, "/v1/quote", req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp QuoteResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !strings.HasPrefix(resp.Prompt, "B(1000,500,2000)") {
		t.Errorf("expected structured dimensions in canonical prompt, got %q", resp.Prompt)
	}
}

func TestQuote_MissingInput(t *testing.T) {
	h := newQuoteHandlers(t)

	w := postJSON(t, h.Quote, "/v1/quote", QuoteRequest{})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}

	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to parse error response: %v", err)
	}
	if resp.Error.Code != ErrCodeValidation {
		t.Errorf("expected error code %s, got %s", ErrCodeValidation, resp.Error.Code)
	}
}

func TestQuote_ConfigWithoutTree(t *testing.T) {
	h := newQuoteHandlers(t)

	req := QuoteRequest{
		Config: &zone.GlobalConfig{Width: 1200, Height: 2000, Depth: 450},
	}
	w := postJSON(t, h.Quote, "/v1/quote", req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
}

func TestQuote_InvalidJSON(t *testing.T) {
	h := newQuoteHandlers(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/quote", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	h.Quote(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}

	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to parse error response: %v", err)
	}
	if resp.Error.Code != ErrCodeBadRequest {
		t.Errorf("expected error code %s, got %s", ErrCodeBadRequest, resp.Error.Code)
	}
}

func TestQuote_InvalidStructure(t *testing.T) {
	h := newQuoteHandlers(t)

	// A split with a single child is structurally invalid
	req := QuoteRequest{
		Config: &zone.GlobalConfig{Width: 1000, Height: 2000, Depth: 500},
		Tree: &zone.Zone{
			ID:   zone.RootID,
			Type: zone.TypeVertical,
			Children: []*zone.Zone{
				{ID: "root-0", Type: zone.TypeLeaf, Content: zone.ContentEmpty},
			},
		},
	}
	w := postJSON(t, h.Quote, "/v1/quote", req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d: %s", w.Code, w.Body.String())
	}

	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to parse error response: %v", err)
	}
	if resp.Error.Code != ErrCodeInvalidStructure {
		t.Errorf("expected error code %s, got %s", ErrCodeInvalidStructure, resp.Error.Code)
	}
}
