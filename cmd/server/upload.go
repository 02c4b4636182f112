package main

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/codage11/pricer3d/internal/material"
)

const (
	defaultInfillPercent = 20.0
	defaultLayerHeightMM = 0.2
)

// allowedExtensions lists the mesh formats the analyzer accepts.
var allowedExtensions = map[string]bool{
	".stl":  true,
	".obj":  true,
	".ply":  true,
	".step": true,
	".stp":  true,
}

// validationError is a caller mistake: reported immediately, never retried.
type validationError struct {
	msg string
}

func (e *validationError) Error() string {
	return e.msg
}

func validationErrorf(format string, args ...any) error {
	return &validationError{msg: fmt.Sprintf(format, args...)}
}

// analyzeRequest is the parsed and validated analyze form.
type analyzeRequest struct {
	Filename      string
	SizeBytes     int64
	Material      material.Code
	InfillPercent float64
	LayerHeightMM float64
	// IncludeSupports is nil when the client lets the analyzer decide.
	IncludeSupports *bool
}

// parseAnalyzeRequest reads the multipart analyze form. File type and size
// are rejected here, before any analysis runs.
func parseAnalyzeRequest(r *http.Request, maxBytes int64) (analyzeRequest, error) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return analyzeRequest{}, validationErrorf("invalid multipart form: %v", err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return analyzeRequest{}, validationErrorf("missing file upload")
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedExtensions[ext] {
		return analyzeRequest{}, validationErrorf("unsupported file type %q, allowed: %s", ext, allowedExtensionList())
	}

	if header.Size > maxBytes {
		return analyzeRequest{}, validationErrorf("file exceeds the %d byte limit", maxBytes)
	}
	size, err := io.Copy(io.Discard, file)
	if err != nil {
		return analyzeRequest{}, fmt.Errorf("read upload: %w", err)
	}
	if size > maxBytes {
		return analyzeRequest{}, validationErrorf("file exceeds the %d byte limit", maxBytes)
	}

	req := analyzeRequest{
		Filename:      header.Filename,
		SizeBytes:     size,
		Material:      material.PLA,
		InfillPercent: defaultInfillPercent,
		LayerHeightMM: defaultLayerHeightMM,
	}

	if v := strings.TrimSpace(r.FormValue("material")); v != "" {
		req.Material = material.Code(strings.ToUpper(v))
	}
	if v := strings.TrimSpace(r.FormValue("infill")); v != "" {
		req.InfillPercent, err = parseFloatField(v, "infill")
		if err != nil {
			return analyzeRequest{}, err
		}
	}
	if v := strings.TrimSpace(r.FormValue("layer_height")); v != "" {
		req.LayerHeightMM, err = parseFloatField(v, "layer_height")
		if err != nil {
			return analyzeRequest{}, err
		}
	}
	if v := strings.TrimSpace(r.FormValue("include_supports")); v != "" {
		supports, err := strconv.ParseBool(v)
		if err != nil {
			return analyzeRequest{}, validationErrorf("include_supports must be a boolean, got %q", v)
		}
		req.IncludeSupports = &supports
	}

	return req, nil
}

func parseFloatField(raw, field string) (float64, error) {
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, validationErrorf("%s must be numeric, got %q", field, raw)
	}
	return value, nil
}

func allowedExtensionList() string {
	exts := make([]string, 0, len(allowedExtensions))
	for ext := range allowedExtensions {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return strings.Join(exts, " ")
}
