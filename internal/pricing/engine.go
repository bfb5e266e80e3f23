package pricing

import (
	"log/slog"
	"math"
	"time"

	"github.com/atelierforma/configurator/internal/zone"
)

// SampleSource resolves finish-sample price surcharges. Implemented by
// the catalog; a nil source means no surcharges.
type SampleSource interface {
	// Surcharge returns the per-m² and per-unit surcharges of a sample.
	// Unknown sample ids return (0, 0).
	Surcharge(sampleID string) (perM2, perUnit float64)
}

// Breakdown itemizes the additive terms of a quote.
type Breakdown struct {
	Casing             float64 `json:"casing"`
	MaterialSupplement float64 `json:"material_supplement"`
	Plinth             float64 `json:"plinth"`
	Zones              float64 `json:"zones"`
	GlobalDoor         float64 `json:"global_door"`
}

// Quote is the result of one price calculation. Total is rounded to
// integer currency units and never negative.
type Quote struct {
	Total     int       `json:"total"`
	Breakdown Breakdown `json:"breakdown"`
}

// Engine computes quotes. It carries no mutable state between
// calculations; the metrics collector may be nil.
type Engine struct {
	metrics *Metrics
}

// NewEngine creates a pricing engine. metrics may be nil.
func NewEngine(metrics *Metrics) *Engine {
	return &Engine{metrics: metrics}
}

// Price computes the total price of a configuration against a parameter
// snapshot. The calculation is deterministic and side-effect free; a
// NaN or negative result is clamped to 0 and logged.
func (e *Engine) Price(g zone.GlobalConfig, root *zone.Zone, table ParameterTable, samples SampleSource) Quote {
	start := time.Now()
	c := &calc{g: g, table: table, samples: samples}

	var b Breakdown
	b.Casing = c.casingPrice()
	b.MaterialSupplement = c.table.LookupOr(CatMaterials, g.FinishKey, ParamSupplement, 0)
	b.Plinth = c.plinthPrice()
	b.Zones = c.extraPrice(root, g.Width, g.Height)
	b.GlobalDoor = c.globalDoorPrice(root)

	sum := b.Casing + b.MaterialSupplement + b.Plinth + b.Zones + b.GlobalDoor
	total := math.Round(sum)
	if math.IsNaN(total) || total < 0 {
		slog.Warn("clamping invalid price to zero",
			"raw", sum,
			"finish", g.FinishKey,
			"width", g.Width, "height", g.Height, "depth", g.Depth)
		total = 0
	}

	if e.metrics != nil {
		e.metrics.ObserveCalculation(time.Since(start), c.fallbacks)
	}
	return Quote{Total: int(total), Breakdown: b}
}

// calc carries the per-calculation context through the tree walk.
type calc struct {
	g       zone.GlobalConfig
	table   ParameterTable
	samples SampleSource

	// fallbacks counts priced terms that had to use a hardcoded constant.
	fallbacks int
}

func (c *calc) lookupOr(category, item, param string, fallback float64) float64 {
	if v, ok := c.table.Lookup(category, item, param); ok {
		return v
	}
	c.fallbacks++
	return fallback
}

// surcharge resolves the sample surcharge for a carcass component,
// honoring the multi-color component assignment when enabled and the
// zone-level override when present.
func (c *calc) surcharge(component string, override *zone.ZoneColor) (perM2, perUnit float64) {
	if c.samples == nil {
		return 0, 0
	}
	if override != nil && override.SampleID != "" {
		return c.samples.Surcharge(override.SampleID)
	}
	if c.g.MultiColor {
		if id, ok := c.g.ComponentSamples[component]; ok && id != "" {
			return c.samples.Surcharge(id)
		}
	}
	if c.g.SampleID != "" {
		return c.samples.Surcharge(c.g.SampleID)
	}
	return 0, 0
}

// casingPrice prices the carcass surface: back panel (w×h), two sides
// (d×h), top and bottom (w×d). The back panel may carry a different
// per-component sample surcharge in multi-color mode. Without casing
// parameters the carcass falls back to a flat volumetric estimate.
func (c *calc) casingPrice() float64 {
	matRate, haveMat := c.table.Lookup(CatMaterials, c.g.FinishKey, ParamPricePerM2)
	_, haveCoef := c.table.Lookup(CatCasing, ItemStandard, ParamCoefficient)
	if !haveMat && !haveCoef {
		c.fallbacks++
		volume := c.g.Width * c.g.Height * c.g.Depth / 1e9
		return volume * c.lookupOr(CatCasing, ItemStandard, ParamVolumetric, fallbackVolumetricRate)
	}
	if !haveMat {
		c.fallbacks++
		matRate = fallbackMaterialRate
	}
	coef := c.lookupOr(CatCasing, ItemStandard, ParamCoefficient, fallbackCasingCoefficient)

	backM2 := c.g.Width * c.g.Height / 1e6
	restM2 := (2*c.g.Depth*c.g.Height + 2*c.g.Width*c.g.Depth) / 1e6

	backSur, _ := c.surcharge(zone.ComponentBack, nil)
	restSur, _ := c.surcharge(zone.ComponentStructure, nil)

	return (matRate+backSur)*backM2*coef + (matRate+restSur)*restM2*coef
}

// plinthPrice prices the base the carcass stands on. Metal plinths are
// priced per foot with an always-even foot count; wood plinths prefer
// the volumetric formula, then coefficient × area, then a flat constant.
func (c *calc) plinthPrice() float64 {
	switch c.g.Plinth {
	case zone.PlinthMetal:
		perFoot := c.lookupOr(CatPlinths, ItemMetal, ParamPricePerFoot, fallbackMetalFootPrice)
		interval := c.lookupOr(CatPlinths, ItemMetal, ParamFootInterval, fallbackFootIntervalMM)
		if interval <= 0 {
			interval = fallbackFootIntervalMM
		}
		feet := math.Ceil(c.g.Width/interval) * 2
		return perFoot * feet

	case zone.PlinthWood:
		sur, _ := c.surcharge(zone.ComponentBase, nil)
		perimeterM2 := (2*c.g.Width + 2*c.g.Depth) * woodPlinthHeightMM / 1e6
		if perM3, ok := c.table.Lookup(CatPlinths, ItemWood, ParamPricePerM3); ok {
			volume := c.g.Width * c.g.Depth * woodPlinthHeightMM / 1e9
			return perM3*volume + sur*perimeterM2
		}
		if coef, ok := c.table.Lookup(CatPlinths, ItemWood, ParamCoefficient); ok {
			area := c.g.Width * c.g.Depth / 1e6
			return coef*area + sur*perimeterM2
		}
		c.fallbacks++
		return c.lookupOr(CatPlinths, ItemWood, ParamPrice, fallbackWoodPlinthFlat)

	default:
		return c.table.LookupOr(CatPlinths, ItemNone, ParamPrice, 0)
	}
}

// doorSubtype maps a door content kind to its pricing item type.
func doorSubtype(content zone.Content) string {
	switch content {
	case zone.ContentDoorDouble:
		return ItemDouble
	case zone.ContentMirrorDoor:
		return ItemGlass
	case zone.ContentPushDoor:
		return ItemPush
	default:
		return ItemSimple
	}
}

// doorLookup resolves a door parameter for a sub-type with the "simple"
// entry as intermediate fallback before the hardcoded constant.
func (c *calc) doorLookup(subtype, param string, fallback float64) float64 {
	if v, ok := c.table.Lookup(CatDoors, subtype, param); ok {
		return v
	}
	if v, ok := c.table.Lookup(CatDoors, ItemSimple, param); ok {
		return v
	}
	c.fallbacks++
	return fallback
}

// doorPrice prices one door front over a w×h extent:
// coefficient × w × h + hingePrice × hingeCount + surcharge × surface.
func (c *calc) doorPrice(content zone.Content, override *zone.ZoneColor, w, h float64) float64 {
	subtype := doorSubtype(content)
	if _, ok := c.table[CatDoors]; !ok {
		return c.lookupOr(CatDoors, subtype, ParamPrice, fallbackDoorFlat)
	}
	coef := c.doorLookup(subtype, ParamCoefficient, fallbackDoorCoefficient)
	hingePrice := c.doorLookup(subtype, ParamHingePrice, fallbackHingePrice)
	hingeCount := c.doorLookup(subtype, ParamHingeCount, fallbackHingeCount)

	perM2, perUnit := c.surcharge(zone.ComponentDoors, override)
	surfaceM2 := w * h / 1e6

	return coef*w*h + hingePrice*hingeCount + perM2*surfaceM2 + perUnit
}

// extraPrice walks the tree accumulating the additive zone extras. w and
// h are the current zone's extent in millimeters; a child's size along
// the split axis is parentSize × ratio/100, the perpendicular dimension
// is inherited unchanged.
func (c *calc) extraPrice(z *zone.Zone, w, h float64) float64 {
	if z == nil {
		return 0
	}
	total := 0.0

	door := z.DoorContent
	if door == zone.ContentNone && zone.IsDoorContent(z.Content) {
		door = z.Content
	}
	if door != zone.ContentNone {
		total += c.doorPrice(door, z.Color, w, h)
	}
	if z.HandleType != zone.HandleNone {
		total += c.lookupOr(CatHandles, string(z.HandleType), ParamPrice, fallbackHandlePrice)
	}

	if z.IsLeaf() {
		total += c.leafContentPrice(z, w, h)
		total += c.leafFlagPrice(z, w)
		return total
	}

	// Internal separator panels between children, priced like the casing.
	if n := len(z.Children); n > 1 {
		sepM2 := w * c.g.Depth / 1e6
		if z.Type == zone.TypeVertical {
			sepM2 = h * c.g.Depth / 1e6
		}
		matRate := c.lookupOr(CatMaterials, c.g.FinishKey, ParamPricePerM2, fallbackMaterialRate)
		coef := c.lookupOr(CatCasing, ItemStandard, ParamCoefficient, fallbackCasingCoefficient)
		sur, _ := c.surcharge(zone.ComponentShelves, nil)
		total += float64(n-1) * (matRate + sur) * sepM2 * coef
	}

	ratios := z.Ratios()
	for i, child := range z.Children {
		cw, ch := w, h
		if z.Type == zone.TypeHorizontal {
			ch = h * ratios[i] / 100
		} else {
			cw = w * ratios[i] / 100
		}
		total += c.extraPrice(child, cw, ch)
	}
	return total
}

// leafContentPrice prices the compartment's primary content.
func (c *calc) leafContentPrice(z *zone.Zone, w, h float64) float64 {
	switch z.Content {
	case zone.ContentDrawer, zone.ContentPushDrawer:
		item := ItemStandard
		if z.Content == zone.ContentPushDrawer {
			item = ItemPush
		}
		base := c.lookupOr(CatDrawers, item, ParamBasePrice, fallbackDrawerBase)
		coef := c.lookupOr(CatDrawers, item, ParamCoefficient, fallbackDrawerCoefficient)
		perM2, perUnit := c.surcharge(zone.ComponentDrawers, z.Color)
		facadeM2 := w * h / 1e6
		return base + coef*w*c.g.Depth + perM2*facadeM2 + perUnit

	case zone.ContentGlassShelf:
		rate := c.lookupOr(CatShelves, ItemGlass, ParamPricePerM2, fallbackGlassShelfRate)
		return rate * w * c.g.Depth / 1e6

	case zone.ContentDressing:
		rate := c.lookupOr(CatDressing, ItemStandard, ParamPricePerMeter, fallbackDressingRate)
		return rate * w / 1000
	}
	return 0
}

// leafFlagPrice prices the independent leaf toggles.
func (c *calc) leafFlagPrice(z *zone.Zone, w float64) float64 {
	total := 0.0
	if z.HasDressing {
		rate := c.lookupOr(CatDressing, ItemStandard, ParamPricePerMeter, fallbackDressingRate)
		total += rate * w / 1000
	}
	if z.HasCableHole {
		total += c.lookupOr(CatCabling, ItemStandard, ParamPrice, fallbackCableHolePrice)
	}
	if z.HasLight {
		rate := c.lookupOr(CatLighting, ItemLED, ParamPricePerMeter, fallbackLightingRate)
		total += rate * w / 1000
	}
	return total
}

// globalDoorPrice applies the carcass-wide door selection, which is only
// meaningful when no zone in the tree carries its own door.
func (c *calc) globalDoorPrice(root *zone.Zone) float64 {
	if c.g.DoorType == "" || c.g.DoorType == zone.DoorNone || root.HasZoneDoor() {
		return 0
	}
	content := zone.ContentDoor
	if c.g.DoorType == zone.DoorDouble {
		content = zone.ContentDoorDouble
	}
	return c.doorPrice(content, nil, c.g.Width, c.g.Height)
}
