package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/codage11/pricer3d/internal/config"
	"github.com/codage11/pricer3d/internal/geometry"
	"github.com/codage11/pricer3d/internal/material"
	"github.com/codage11/pricer3d/internal/pricing"
	"github.com/codage11/pricer3d/internal/quote"
)

func newTestServer(t *testing.T) *server {
	t.Helper()
	return &server{
		logger:  zap.NewNop(),
		catalog: material.Default(),
		store:   quote.NewMemoryStore(),
		cfg: config.Config{
			MaxUploadBytes: 50 << 20,
			Estimator:      geometry.DefaultConfig(),
			Pricing:        pricing.DefaultConfig(),
		},
	}
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
}

func TestHandleMaterialsListsCatalog(t *testing.T) {
	srv := newTestServer(t)

	rr := httptest.NewRecorder()
	srv.handleMaterials(rr, httptest.NewRequest(http.MethodGet, "/api/materials", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	var materials map[string]struct {
		Name       string  `json:"name"`
		Density    float64 `json:"density"`
		PricePerKg float64 `json:"price_per_kg"`
	}
	decodeJSON(t, rr, &materials)

	if len(materials) != 4 {
		t.Fatalf("expected 4 materials, got %d", len(materials))
	}
	if materials["PLA"].PricePerKg != 25 || materials["PLA"].Density != 1.24 {
		t.Fatalf("unexpected PLA listing: %+v", materials["PLA"])
	}
}

func TestHandleAnalyzeHappyPath(t *testing.T) {
	srv := newTestServer(t)

	content := bytes.Repeat([]byte("v"), 254000)
	req := newAnalyzeHTTPRequest(t, "benchy.stl", content, map[string]string{
		"material":     "PLA",
		"infill":       "20",
		"layer_height": "0.2",
	})

	rr := httptest.NewRecorder()
	srv.handleAnalyze(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		quote.Results
		Status string `json:"status"`
	}
	decodeJSON(t, rr, &resp)

	if resp.Status != "success" {
		t.Fatalf("Status = %q, want success", resp.Status)
	}
	if resp.Filename != "benchy.stl" || resp.FileSizeBytes != int64(len(content)) {
		t.Fatalf("upload identity not echoed: %+v", resp.Results)
	}
	if resp.Analysis.VolumeCm3 <= 0 || resp.Analysis.SurfaceAreaCm2 <= 0 {
		t.Fatalf("analysis missing geometry: %+v", resp.Analysis)
	}
	if resp.Pricing.Costs.Total < srv.cfg.Pricing.MinimumPrice {
		t.Fatalf("total %v below minimum price", resp.Pricing.Costs.Total)
	}
	if resp.Pricing.Material.Type != "PLA" {
		t.Fatalf("expected PLA pricing, got %+v", resp.Pricing.Material)
	}
}

func TestHandleAnalyzeRejectsUnsupportedExtension(t *testing.T) {
	srv := newTestServer(t)

	req := newAnalyzeHTTPRequest(t, "drawing.dwg", []byte("not a mesh"), nil)
	rr := httptest.NewRecorder()
	srv.handleAnalyze(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "unsupported file type") {
		t.Fatalf("expected descriptive error, got %s", rr.Body.String())
	}
}

func TestHandleAnalyzeRejectsOversizedFile(t *testing.T) {
	srv := newTestServer(t)
	srv.cfg.MaxUploadBytes = 128

	req := newAnalyzeHTTPRequest(t, "big.stl", bytes.Repeat([]byte("x"), 512), nil)
	rr := httptest.NewRecorder()
	srv.handleAnalyze(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "limit") {
		t.Fatalf("expected size-limit error, got %s", rr.Body.String())
	}
}

func TestHandleAnalyzeUnknownMaterial(t *testing.T) {
	srv := newTestServer(t)

	req := newAnalyzeHTTPRequest(t, "cube.stl", []byte("solid"), map[string]string{
		"material": "XYZ",
	})
	rr := httptest.NewRecorder()
	srv.handleAnalyze(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rr.Code, rr.Body.String())
	}
}

func savedQuoteID(t *testing.T, srv *server) string {
	t.Helper()

	payload, err := json.Marshal(testResults("benchy.stl"))
	if err != nil {
		t.Fatalf("marshal results: %v", err)
	}

	rr := httptest.NewRecorder()
	srv.handleQuoteCreate(rr, httptest.NewRequest(http.MethodPost, "/api/quotes", bytes.NewReader(payload)))
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	var created quoteCreatedResponse
	decodeJSON(t, rr, &created)
	if created.ID == "" {
		t.Fatalf("expected an assigned quote id")
	}
	return created.ID
}

func testResults(filename string) quote.Results {
	return quote.Results{
		Filename:      filename,
		FileSizeBytes: 254000,
		Analysis: geometry.AnalysisResult{
			VolumeCm3:        25.4,
			SurfaceAreaCm2:   152.4,
			DimensionsCm:     geometry.Dimensions{X: 3.54, Y: 2.36, Z: 2.95},
			ComplexityFactor: 0.254,
			IsWatertight:     true,
		},
		Pricing: pricing.Breakdown{
			Material:  pricing.MaterialUsage{Type: "PLA", Name: "PLA (Standard)", WeightG: 6.3, Cost: 0.16},
			PrintTime: pricing.PrintTime{Hours: 0.51, Minutes: 30},
			Costs: pricing.Costs{
				Material:       0.16,
				MachineTime:    7.62,
				PostProcessing: 5,
				Subtotal:       12.78,
				Margin:         3.19,
				Total:          15.97,
			},
			Parameters: pricing.EchoedParams{InfillPercent: 20, LayerHeightMM: 0.2},
		},
	}
}

func TestQuoteLifecycle(t *testing.T) {
	srv := newTestServer(t)

	id := savedQuoteID(t, srv)

	// Find it.
	rr := httptest.NewRecorder()
	srv.handleQuoteGet(rr, withURLParam(httptest.NewRequest(http.MethodGet, "/api/quotes/"+id, nil), "id", id))
	if rr.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", rr.Code)
	}
	var found quote.Quote
	decodeJSON(t, rr, &found)
	if found.ID != id || found.Filename != "benchy.stl" {
		t.Fatalf("unexpected quote: %+v", found)
	}
	if found.Results.Pricing.Costs.Total != 15.97 {
		t.Fatalf("snapshot total changed: %v", found.Results.Pricing.Costs.Total)
	}

	// List includes it.
	rr = httptest.NewRecorder()
	srv.handleQuotesList(rr, httptest.NewRequest(http.MethodGet, "/api/quotes", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", rr.Code)
	}
	var listed quoteListResponse
	decodeJSON(t, rr, &listed)
	if listed.Count != 1 || len(listed.Quotes) != 1 {
		t.Fatalf("expected exactly one quote, got %+v", listed)
	}

	// Delete twice: both are 204.
	for i := 0; i < 2; i++ {
		rr = httptest.NewRecorder()
		srv.handleQuoteDelete(rr, withURLParam(httptest.NewRequest(http.MethodDelete, "/api/quotes/"+id, nil), "id", id))
		if rr.Code != http.StatusNoContent {
			t.Fatalf("delete attempt %d: expected 204, got %d", i+1, rr.Code)
		}
	}

	// Gone now.
	rr = httptest.NewRecorder()
	srv.handleQuoteGet(rr, withURLParam(httptest.NewRequest(http.MethodGet, "/api/quotes/"+id, nil), "id", id))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("get after delete: expected 404, got %d", rr.Code)
	}
}

func TestHandleQuoteDuplicate(t *testing.T) {
	srv := newTestServer(t)

	id := savedQuoteID(t, srv)

	rr := httptest.NewRecorder()
	srv.handleQuoteDuplicate(rr, withURLParam(httptest.NewRequest(http.MethodPost, "/api/quotes/"+id+"/duplicate", nil), "id", id))
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	var dup quoteCreatedResponse
	decodeJSON(t, rr, &dup)
	if dup.ID == "" || dup.ID == id {
		t.Fatalf("duplicate must get a fresh id, got %q (original %q)", dup.ID, id)
	}

	rr = httptest.NewRecorder()
	srv.handleQuotesList(rr, httptest.NewRequest(http.MethodGet, "/api/quotes", nil))
	var listed quoteListResponse
	decodeJSON(t, rr, &listed)
	if listed.Count != 2 {
		t.Fatalf("expected 2 quotes after duplication, got %d", listed.Count)
	}
}

func TestHandleQuoteDuplicateUnknownID(t *testing.T) {
	srv := newTestServer(t)

	rr := httptest.NewRecorder()
	srv.handleQuoteDuplicate(rr, withURLParam(httptest.NewRequest(http.MethodPost, "/api/quotes/missing/duplicate", nil), "id", "missing"))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestHandleQuoteCreateRejectsEmptyPayload(t *testing.T) {
	srv := newTestServer(t)

	rr := httptest.NewRecorder()
	srv.handleQuoteCreate(rr, httptest.NewRequest(http.MethodPost, "/api/quotes", strings.NewReader(`{}`)))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestHandleQuotesExportSetsWorkbookHeaders(t *testing.T) {
	srv := newTestServer(t)
	savedQuoteID(t, srv)

	rr := httptest.NewRecorder()
	srv.handleQuotesExport(rr, httptest.NewRequest(http.MethodGet, "/api/quotes/export", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.Contains(ct, "spreadsheetml") {
		t.Fatalf("unexpected content type %q", ct)
	}
	if rr.Body.Len() == 0 {
		t.Fatalf("expected workbook bytes in the body")
	}
}

func TestHandleHealthz(t *testing.T) {
	srv := newTestServer(t)

	rr := httptest.NewRecorder()
	srv.handleHealthz(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "ok") {
		t.Fatalf("unexpected body %s", rr.Body.String())
	}
}
