// Package catalog provides the finish and sample catalog: available
// materials and, per material, the color/texture samples with their
// price surcharges feeding the pricing engine.
package catalog

import "errors"

// Catalog errors.
var (
	ErrFinishNotFound = errors.New("finish not found")
	ErrSampleNotFound = errors.New("sample not found")
)

// Finish is a material family (e.g. oiled oak, lacquered MDF) customers
// can pick for the carcass.
type Finish struct {
	Key        string  `json:"key"`
	Name       string  `json:"name"`
	PricePerM2 float64 `json:"price_per_m2"`
}

// Sample is one color/texture variant of a finish. The surcharges are
// added on top of the finish's base price by the pricing engine: the
// per-m² term on priced surfaces, the per-unit term once per fronted
// element (drawer, door).
type Sample struct {
	ID               string  `json:"id"`
	FinishKey        string  `json:"finish_key"`
	Name             string  `json:"name"`
	Hex              string  `json:"hex"`
	TextureURL       string  `json:"texture_url,omitempty"`
	SurchargePerM2   float64 `json:"surcharge_per_m2"`
	SurchargePerUnit float64 `json:"surcharge_per_unit"`
}
