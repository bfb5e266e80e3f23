package pricing

// Fallback constants used when a parameter is missing from the table.
// Values are in currency units (euros) or as dimensionless coefficients
// over millimeter inputs. Each constant documents the formula it backs.
const (
	// fallbackMaterialRate prices a m² of panel when the material has no
	// configured price_per_m2.
	fallbackMaterialRate = 60.0

	// fallbackCasingCoefficient scales the carcass surface price when
	// casing.standard.coefficient is absent.
	fallbackCasingCoefficient = 1.0

	// fallbackVolumetricRate prices the whole carcass per m³ when no
	// casing parameters are configured at all.
	fallbackVolumetricRate = 180.0

	// fallbackMetalFootPrice and fallbackFootIntervalMM back the metal
	// plinth formula price_per_foot × ceil(width/interval) × 2.
	fallbackMetalFootPrice = 12.0
	fallbackFootIntervalMM = 2000.0

	// fallbackWoodPlinthFlat is the last-resort flat wood plinth price
	// when neither the volumetric nor the coefficient formula has
	// parameters.
	fallbackWoodPlinthFlat = 45.0

	// woodPlinthHeightMM is the fixed height of the wood plinth band used
	// by the volumetric and perimeter-surface formulas.
	woodPlinthHeightMM = 100.0

	// fallbackDoorCoefficient backs coefficient × width × height over
	// millimeter dimensions (0.00004 ⇒ 48€ for a 600×2000 door).
	fallbackDoorCoefficient = 0.00004

	// fallbackHingePrice and fallbackHingeCount back the per-door hinge
	// term.
	fallbackHingePrice = 5.0
	fallbackHingeCount = 2.0

	// fallbackDoorFlat prices a door when its sub-type has no parameters
	// at all.
	fallbackDoorFlat = 60.0

	// fallbackHandlePrice is the flat per-handle addition.
	fallbackHandlePrice = 8.0

	// fallbackDrawerBase and fallbackDrawerCoefficient back
	// base_price + coefficient × width × depth.
	fallbackDrawerBase        = 35.0
	fallbackDrawerCoefficient = 0.0001

	// fallbackGlassShelfRate prices a glass shelf per m² of width × depth.
	fallbackGlassShelfRate = 40.0

	// fallbackDressingRate prices a wardrobe rod per linear meter.
	fallbackDressingRate = 20.0

	// fallbackLightingRate prices an LED strip per linear meter.
	fallbackLightingRate = 25.0

	// fallbackCableHolePrice is the flat cable pass-through price.
	fallbackCableHolePrice = 10.0
)
