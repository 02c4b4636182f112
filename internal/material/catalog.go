package material

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a material code is not in the catalog.
var ErrNotFound = errors.New("material not found")

// Code identifies a filament material.
type Code string

const (
	PLA  Code = "PLA"
	ABS  Code = "ABS"
	PETG Code = "PETG"
	TPU  Code = "TPU"
)

// Material describes the physical and commercial properties of a filament.
type Material struct {
	Name               string  `json:"name"`
	DensityGPerCm3     float64 `json:"density"`
	PricePerKg         float64 `json:"price_per_kg"`
	PrintSpeedModifier float64 `json:"print_speed_modifier"`
	SupportDifficulty  float64 `json:"support_difficulty"`
}

// Catalog is a read-only table of the materials the shop offers.
// It is built once at startup and never mutated afterwards.
type Catalog struct {
	materials map[Code]Material
}

// Default returns the stock catalog.
func Default() *Catalog {
	return &Catalog{materials: map[Code]Material{
		PLA: {
			Name:               "PLA (Standard)",
			DensityGPerCm3:     1.24,
			PricePerKg:         25.0,
			PrintSpeedModifier: 1.0,
			SupportDifficulty:  1.0,
		},
		ABS: {
			Name:               "ABS (High Strength)",
			DensityGPerCm3:     1.04,
			PricePerKg:         30.0,
			PrintSpeedModifier: 0.9,
			SupportDifficulty:  1.2,
		},
		PETG: {
			Name:               "PETG (Chemical Resistant)",
			DensityGPerCm3:     1.27,
			PricePerKg:         35.0,
			PrintSpeedModifier: 0.8,
			SupportDifficulty:  1.1,
		},
		TPU: {
			Name:               "TPU (Flexible)",
			DensityGPerCm3:     1.21,
			PricePerKg:         45.0,
			PrintSpeedModifier: 0.5,
			SupportDifficulty:  1.5,
		},
	}}
}

// List returns a copy of the full catalog keyed by material code.
func (c *Catalog) List() map[Code]Material {
	out := make(map[Code]Material, len(c.materials))
	for code, m := range c.materials {
		out[code] = m
	}
	return out
}

// Get looks up a single material by code.
func (c *Catalog) Get(code Code) (Material, error) {
	m, ok := c.materials[code]
	if !ok {
		return Material{}, fmt.Errorf("material %q: %w", code, ErrNotFound)
	}
	return m, nil
}
