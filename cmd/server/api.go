package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/codage11/pricer3d/internal/geometry"
	"github.com/codage11/pricer3d/internal/material"
	"github.com/codage11/pricer3d/internal/pricing"
	"github.com/codage11/pricer3d/internal/quote"
)

type analyzeResponse struct {
	quote.Results
	Status string `json:"status"`
}

type quoteCreatedResponse struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

type quoteListResponse struct {
	Quotes []quote.Quote `json:"quotes"`
	Count  int           `json:"count"`
}

func (s *server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleMaterials(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.catalog.List())
}

func (s *server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	// Hard transport cap slightly above the business limit so the limit
	// violation surfaces as a descriptive error, not a truncated read.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+(1<<20))

	req, err := parseAnalyzeRequest(r, s.cfg.MaxUploadBytes)
	if err != nil {
		s.writeError(w, err)
		return
	}

	mat, err := s.catalog.Get(req.Material)
	if err != nil {
		s.writeError(w, err)
		return
	}

	signals := geometry.SignalsFromFile(req.Filename, req.SizeBytes)
	analysis, err := geometry.Estimate(signals, s.cfg.Estimator)
	if err != nil {
		s.writeError(w, err)
		return
	}

	includeSupports := analysis.NeedsSupports
	if req.IncludeSupports != nil {
		includeSupports = *req.IncludeSupports
	}

	breakdown, err := pricing.Compute(mat, req.Material, analysis, pricing.Params{
		InfillPercent:   req.InfillPercent,
		LayerHeightMM:   req.LayerHeightMM,
		IncludeSupports: includeSupports,
	}, s.cfg.Pricing)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.logger.Info("analyzed upload",
		zap.String("filename", req.Filename),
		zap.Int64("size_bytes", req.SizeBytes),
		zap.String("material", string(req.Material)),
		zap.Float64("total", breakdown.Costs.Total),
	)

	s.respondJSON(w, http.StatusOK, analyzeResponse{
		Results: quote.Results{
			Filename:      req.Filename,
			FileSizeBytes: req.SizeBytes,
			Analysis:      analysis,
			Pricing:       breakdown,
		},
		Status: "success",
	})
}

func (s *server) handleQuoteCreate(w http.ResponseWriter, r *http.Request) {
	var results quote.Results
	if err := json.NewDecoder(r.Body).Decode(&results); err != nil {
		s.writeError(w, validationErrorf("invalid quote payload: %v", err))
		return
	}
	if results.Filename == "" {
		s.writeError(w, validationErrorf("quote payload is missing a filename"))
		return
	}
	if results.Pricing.Costs.Total <= 0 {
		s.writeError(w, validationErrorf("quote payload is missing a priced total"))
		return
	}

	q := quote.New(results)
	id, err := s.store.Save(r.Context(), q)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.logger.Info("quote saved", zap.String("id", id), zap.String("filename", q.Filename))
	s.respondJSON(w, http.StatusCreated, quoteCreatedResponse{ID: id, Timestamp: q.Timestamp})
}

func (s *server) handleQuotesList(w http.ResponseWriter, r *http.Request) {
	quotes, err := s.store.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, quoteListResponse{Quotes: quotes, Count: len(quotes)})
}

func (s *server) handleQuoteGet(w http.ResponseWriter, r *http.Request) {
	q, err := s.store.Find(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, q)
}

func (s *server) handleQuoteDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleQuoteDuplicate(w http.ResponseWriter, r *http.Request) {
	orig, err := s.store.Find(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	dup := quote.New(orig.Results)
	id, err := s.store.Save(r.Context(), dup)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.respondJSON(w, http.StatusCreated, quoteCreatedResponse{ID: id, Timestamp: dup.Timestamp})
}

func (s *server) handleQuotesExport(w http.ResponseWriter, r *http.Request) {
	quotes, err := s.store.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="quotes.xlsx"`)
	if err := quote.ExportXLSX(w, quotes); err != nil {
		// Headers are already on the wire; all we can do is log.
		s.logger.Error("failed to stream quote export", zap.Error(err))
	}
}

func (s *server) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (s *server) respondError(w http.ResponseWriter, status int, msg string) {
	s.respondJSON(w, status, map[string]string{"error": msg})
}

// writeError maps the error taxonomy to HTTP statuses: validation and
// geometry failures are the caller's to fix (400), missing materials and
// quotes are 404, anything else is a 500 that gets logged.
func (s *server) writeError(w http.ResponseWriter, err error) {
	var vErr *validationError
	var pErr *pricing.InvalidParametersError
	switch {
	case errors.As(err, &vErr), errors.As(err, &pErr), errors.Is(err, geometry.ErrInvalidGeometry):
		s.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, material.ErrNotFound), errors.Is(err, quote.ErrNotFound):
		s.respondError(w, http.StatusNotFound, err.Error())
	default:
		s.logger.Error("request failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "internal error")
	}
}
