package pricing

// Parameter categories.
const (
	CatMaterials = "materials"
	CatCasing    = "casing"
	CatPlinths   = "plinths"
	CatDoors     = "doors"
	CatHandles   = "handles"
	CatDrawers   = "drawers"
	CatShelves   = "shelves"
	CatDressing  = "dressing"
	CatLighting  = "lighting"
	CatCabling   = "cabling"
)

// Item types within categories. Materials and handles use their own keys
// (finish key, handle type) as the item.
const (
	ItemStandard = "standard"
	ItemPush     = "push"
	ItemSimple   = "simple"
	ItemDouble   = "double"
	ItemGlass    = "glass"
	ItemNone     = "none"
	ItemMetal    = "metal"
	ItemWood     = "wood"
	ItemLED      = "led"
)

// Parameter names.
const (
	ParamPricePerM2    = "price_per_m2"
	ParamPricePerM3    = "price_per_m3"
	ParamPricePerMeter = "price_per_meter"
	ParamPricePerFoot  = "price_per_foot"
	ParamFootInterval  = "foot_interval"
	ParamBasePrice     = "base_price"
	ParamCoefficient   = "coefficient"
	ParamSupplement    = "supplement"
	ParamHingePrice    = "hinge_price"
	ParamHingeCount    = "hinge_count"
	ParamPrice         = "price"
	ParamVolumetric    = "volumetric_rate"
)

// ParameterTable is a read-only snapshot of the admin-managed pricing
// parameters: category → item type → parameter name → value. The engine
// takes one snapshot per calculation; the snapshot may be stale relative
// to admin edits until reloaded.
type ParameterTable map[string]map[string]map[string]float64

// Lookup returns the value at category/item/param and whether it exists.
func (t ParameterTable) Lookup(category, item, param string) (float64, bool) {
	items, ok := t[category]
	if !ok {
		return 0, false
	}
	params, ok := items[item]
	if !ok {
		return 0, false
	}
	v, ok := params[param]
	return v, ok
}

// LookupOr returns the value at category/item/param, or the given
// fallback when absent.
func (t ParameterTable) LookupOr(category, item, param string, fallback float64) float64 {
	if v, ok := t.Lookup(category, item, param); ok {
		return v
	}
	return fallback
}

// Set stores a value, allocating intermediate maps as needed. Used by
// repositories assembling snapshots and by tests.
func (t ParameterTable) Set(category, item, param string, value float64) {
	items, ok := t[category]
	if !ok {
		items = make(map[string]map[string]float64)
		t[category] = items
	}
	params, ok := items[item]
	if !ok {
		params = make(map[string]float64)
		items[item] = params
	}
	params[param] = value
}

// Clone returns a deep copy of the table.
func (t ParameterTable) Clone() ParameterTable {
	out := make(ParameterTable, len(t))
	for cat, items := range t {
		for item, params := range items {
			for param, v := range params {
				out.Set(cat, item, param, v)
			}
		}
	}
	return out
}
