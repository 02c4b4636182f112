// Package geometry derives a coarse printability estimate from the few
// signals a raw upload gives us: byte size, filename and (once a real
// slicer integration exists) an integrity report. It is deliberately not
// a mesh library; everything here is a documented heuristic.
package geometry

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"
)

// ErrInvalidGeometry is returned when the input dimensions cannot describe
// a printable solid. The estimator aborts without a partial result.
var ErrInvalidGeometry = errors.New("invalid geometry")

// Config holds the tunable constants of the estimator. All of them can be
// overridden through the environment.
type Config struct {
	// FillRatio is the assumed share of the bounding box a real printed
	// part occupies.
	FillRatio float64 `env:"FILL_RATIO" envDefault:"0.4"`
	// SurfaceComplexityWeight scales how much the complexity factor
	// inflates the bounding-box surface approximation.
	SurfaceComplexityWeight float64 `env:"SURFACE_COMPLEXITY_WEIGHT" envDefault:"0.5"`
	// SupportAspectRatio: a horizontal dimension exceeding the vertical by
	// more than this ratio flags the part as needing supports.
	SupportAspectRatio float64 `env:"SUPPORT_ASPECT_RATIO" envDefault:"1.5"`
	// SupportComplexityThreshold: complexity above this also flags supports.
	SupportComplexityThreshold float64 `env:"SUPPORT_COMPLEXITY_THRESHOLD" envDefault:"0.3"`
}

// DefaultConfig returns the estimator constants used when nothing is
// configured.
func DefaultConfig() Config {
	return Config{
		FillRatio:                  0.4,
		SurfaceComplexityWeight:    0.5,
		SupportAspectRatio:         1.5,
		SupportComplexityThreshold: 0.3,
	}
}

// Dimensions are bounding-box extents in centimeters.
type Dimensions struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Signals are the raw shape hints the estimator consumes. They come either
// from the file heuristic below or, later, from a real mesh analyzer.
type Signals struct {
	Dimensions  Dimensions
	Complexity  float64
	FaceCount   int
	VertexCount int
	// IntegrityOK reports whether an external integrity check passed.
	// Without such a check the mesh is assumed watertight.
	IntegrityOK bool
}

// AnalysisResult is the read-only output of one analysis run.
type AnalysisResult struct {
	VolumeCm3        float64    `json:"volume_cm3"`
	SurfaceAreaCm2   float64    `json:"surface_area_cm2"`
	DimensionsCm     Dimensions `json:"dimensions_cm"`
	FaceCount        int        `json:"face_count"`
	VertexCount      int        `json:"vertex_count"`
	ComplexityFactor float64    `json:"complexity_factor"`
	IsWatertight     bool       `json:"is_watertight"`
	NeedsSupports    bool       `json:"needs_supports"`
}

// supportKeywords are filename hints that a model likely has overhangs.
// This is a placeholder policy until real overhang detection exists.
var supportKeywords = []string{"overhang", "bridge", "arch", "organic"}

// SignalsFromFile derives shape signals from an upload's name and byte
// size. Larger files are assumed to hold larger, more complex models.
func SignalsFromFile(filename string, sizeBytes int64) Signals {
	volume := math.Max(1.0, float64(sizeBytes)/100000*10)

	side := math.Cbrt(volume)
	dims := Dimensions{
		X: round2(side * 1.2),
		Y: round2(side * 0.8),
		Z: round2(side * 1.0),
	}

	complexity := math.Min(1.0, float64(sizeBytes)/1000000)
	if hasSupportKeyword(filename) {
		complexity = math.Min(1.0, complexity+0.25)
	}

	faces := int(sizeBytes / 50)
	return Signals{
		Dimensions:  dims,
		Complexity:  round3(complexity),
		FaceCount:   faces,
		VertexCount: faces * 3 / 5,
		IntegrityOK: true,
	}
}

func hasSupportKeyword(filename string) bool {
	name := strings.ToLower(strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)))
	for _, kw := range supportKeywords {
		if strings.Contains(name, kw) {
			return true
		}
	}
	return false
}

// Estimate turns shape signals into an AnalysisResult. It is deterministic
// and fails with ErrInvalidGeometry on non-positive dimensions.
func Estimate(sig Signals, cfg Config) (AnalysisResult, error) {
	d := sig.Dimensions
	if d.X <= 0 || d.Y <= 0 || d.Z <= 0 {
		return AnalysisResult{}, fmt.Errorf("dimensions %.2fx%.2fx%.2f cm: %w", d.X, d.Y, d.Z, ErrInvalidGeometry)
	}

	complexity := sig.Complexity
	if complexity < 0 {
		complexity = 0
	}
	if complexity > 1 {
		complexity = 1
	}

	bboxVolume := d.X * d.Y * d.Z
	volume := bboxVolume * cfg.FillRatio

	bboxSurface := 2 * (d.X*d.Y + d.Y*d.Z + d.X*d.Z)
	surface := bboxSurface * (1 + complexity*cfg.SurfaceComplexityWeight)

	horizontal := math.Max(d.X, d.Y)
	needsSupports := horizontal > d.Z*cfg.SupportAspectRatio ||
		complexity > cfg.SupportComplexityThreshold

	return AnalysisResult{
		VolumeCm3:        round3(volume),
		SurfaceAreaCm2:   round2(surface),
		DimensionsCm:     d,
		FaceCount:        sig.FaceCount,
		VertexCount:      sig.VertexCount,
		ComplexityFactor: round3(complexity),
		IsWatertight:     sig.IntegrityOK,
		NeedsSupports:    needsSupports,
	}, nil
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
