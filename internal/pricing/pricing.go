// Package pricing turns a geometric estimate and a set of print parameters
// into an itemized cost breakdown. Compute is a pure function: no I/O, no
// hidden state, identical inputs always produce identical output.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/codage11/pricer3d/internal/geometry"
	"github.com/codage11/pricer3d/internal/material"
)

// Config holds the business constants of the pricing engine. Values are
// configuration, not law: the formulas below are the authoritative policy
// and every constant can be overridden through the environment.
type Config struct {
	MachineRatePerHour     float64 `env:"MACHINE_RATE_PER_HOUR" envDefault:"15"`
	PostProcessingBase     float64 `env:"POST_PROCESSING_BASE" envDefault:"5"`
	MarginRate             float64 `env:"MARGIN_RATE" envDefault:"0.25"`
	MinimumPrice           float64 `env:"MINIMUM_PRICE" envDefault:"5"`
	BaseMinutesPerCm3      float64 `env:"BASE_MINUTES_PER_CM3" envDefault:"2"`
	ReferenceLayerHeightMM float64 `env:"REFERENCE_LAYER_HEIGHT_MM" envDefault:"0.2"`
	// SupportTimeFactor scales print time when supports are generated.
	SupportTimeFactor float64 `env:"SUPPORT_TIME_FACTOR" envDefault:"1.15"`
	// SupportSurchargeRate is applied to the material cost (times the
	// material's support difficulty) as a post-processing surcharge.
	SupportSurchargeRate float64 `env:"SUPPORT_SURCHARGE_RATE" envDefault:"0.3"`
	// SupportVolumeRatio is the extra material volume supports consume.
	SupportVolumeRatio float64 `env:"SUPPORT_VOLUME_RATIO" envDefault:"0.15"`
	// InfillTimeWeight splits print time into an infill-independent share
	// (shell and travel moves) and a share that scales with infill.
	InfillTimeWeight     float64 `env:"INFILL_TIME_WEIGHT" envDefault:"0.5"`
	ComplexityTimeWeight float64 `env:"COMPLEXITY_TIME_WEIGHT" envDefault:"0.5"`
}

// DefaultConfig returns the rates used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		MachineRatePerHour:     15,
		PostProcessingBase:     5,
		MarginRate:             0.25,
		MinimumPrice:           5,
		BaseMinutesPerCm3:      2,
		ReferenceLayerHeightMM: 0.2,
		SupportTimeFactor:      1.15,
		SupportSurchargeRate:   0.3,
		SupportVolumeRatio:     0.15,
		InfillTimeWeight:       0.5,
		ComplexityTimeWeight:   0.5,
	}
}

// Params are the per-request print settings.
type Params struct {
	InfillPercent   float64
	LayerHeightMM   float64
	IncludeSupports bool
}

// InvalidParametersError reports print parameters the engine refuses to
// price. It is never retried automatically.
type InvalidParametersError struct {
	Reason string
}

func (e *InvalidParametersError) Error() string {
	return "invalid print parameters: " + e.Reason
}

// MaterialUsage reports how much filament the job consumes and its cost.
type MaterialUsage struct {
	Type    string  `json:"type"`
	Name    string  `json:"name"`
	WeightG float64 `json:"weight_g"`
	Cost    float64 `json:"cost"`
}

// PrintTime is the estimated machine time. Minutes are rounded to the
// nearest whole minute for display; Hours keeps two decimals.
type PrintTime struct {
	Hours   float64 `json:"hours"`
	Minutes float64 `json:"minutes"`
}

// Costs is the itemized monetary breakdown, all values rounded half-up to
// two decimals.
type Costs struct {
	Material       float64 `json:"material"`
	MachineTime    float64 `json:"machine_time"`
	PostProcessing float64 `json:"post_processing"`
	Subtotal       float64 `json:"subtotal"`
	Margin         float64 `json:"margin"`
	Total          float64 `json:"total"`
}

// EchoedParams reports the parameters the breakdown was computed with.
type EchoedParams struct {
	InfillPercent    float64 `json:"infill_percent"`
	LayerHeightMM    float64 `json:"layer_height_mm"`
	IncludesSupports bool    `json:"includes_supports"`
}

// Breakdown is the full pricing output for one job.
type Breakdown struct {
	Material   MaterialUsage `json:"material"`
	PrintTime  PrintTime     `json:"print_time"`
	Costs      Costs         `json:"costs"`
	Parameters EchoedParams  `json:"parameters"`
}

// Compute prices one print job.
//
// Policy, in order:
//  1. effective volume = estimated volume x infill fraction, plus a
//     support-volume allowance when supports are generated
//  2. material cost = weight / 1000 x price per kg
//  3. print time = base minutes/cm3 x volume x layer factor x infill
//     factor x complexity factor / speed modifier, x support factor
//  4. machine cost = hours x machine rate
//  5. post-processing = base, plus a support surcharge proportional to the
//     material cost and the material's support difficulty
//  6. total = (subtotal + margin), floored at the minimum price
func Compute(mat material.Material, code material.Code, analysis geometry.AnalysisResult, p Params, cfg Config) (Breakdown, error) {
	if p.InfillPercent <= 0 || p.InfillPercent > 100 {
		return Breakdown{}, &InvalidParametersError{Reason: fmt.Sprintf("infill must be in (0, 100], got %.2f", p.InfillPercent)}
	}
	if p.LayerHeightMM <= 0 {
		return Breakdown{}, &InvalidParametersError{Reason: fmt.Sprintf("layer height must be positive, got %.3f", p.LayerHeightMM)}
	}
	if analysis.VolumeCm3 <= 0 {
		return Breakdown{}, &InvalidParametersError{Reason: fmt.Sprintf("estimated volume must be positive, got %.3f", analysis.VolumeCm3)}
	}
	if mat.PrintSpeedModifier <= 0 {
		return Breakdown{}, &InvalidParametersError{Reason: fmt.Sprintf("material %q has non-positive print speed modifier", code)}
	}

	infill := p.InfillPercent / 100

	effectiveVolume := analysis.VolumeCm3 * infill
	if p.IncludeSupports {
		effectiveVolume += analysis.VolumeCm3 * cfg.SupportVolumeRatio
	}
	weightG := effectiveVolume * mat.DensityGPerCm3
	materialCost := weightG / 1000 * mat.PricePerKg

	layerFactor := cfg.ReferenceLayerHeightMM / p.LayerHeightMM
	infillFactor := (1 - cfg.InfillTimeWeight) + cfg.InfillTimeWeight*infill
	complexityFactor := 1 + analysis.ComplexityFactor*cfg.ComplexityTimeWeight
	minutes := cfg.BaseMinutesPerCm3 * analysis.VolumeCm3 * layerFactor * infillFactor * complexityFactor / mat.PrintSpeedModifier
	if p.IncludeSupports {
		minutes *= cfg.SupportTimeFactor
	}
	hours := minutes / 60

	machineCost := hours * cfg.MachineRatePerHour

	postProcessing := cfg.PostProcessingBase
	if p.IncludeSupports {
		postProcessing += materialCost * cfg.SupportSurchargeRate * mat.SupportDifficulty
	}

	subtotal := materialCost + machineCost + postProcessing
	margin := subtotal * cfg.MarginRate
	total := subtotal + margin
	if total < cfg.MinimumPrice {
		total = cfg.MinimumPrice
	}

	return Breakdown{
		Material: MaterialUsage{
			Type:    string(code),
			Name:    mat.Name,
			WeightG: roundMoney(weightG),
			Cost:    roundMoney(materialCost),
		},
		PrintTime: PrintTime{
			Hours:   roundMoney(hours),
			Minutes: roundHalfUp(minutes, 0),
		},
		Costs: Costs{
			Material:       roundMoney(materialCost),
			MachineTime:    roundMoney(machineCost),
			PostProcessing: roundMoney(postProcessing),
			Subtotal:       roundMoney(subtotal),
			Margin:         roundMoney(margin),
			Total:          roundMoney(total),
		},
		Parameters: EchoedParams{
			InfillPercent:    p.InfillPercent,
			LayerHeightMM:    p.LayerHeightMM,
			IncludesSupports: p.IncludeSupports,
		},
	}, nil
}

// roundMoney rounds half-up to two decimals of currency.
func roundMoney(v float64) float64 {
	return roundHalfUp(v, 2)
}

func roundHalfUp(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
