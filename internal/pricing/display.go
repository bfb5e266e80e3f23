package pricing

// PriceRange is a symmetric display range around a computed total. An
// admin toggle controls whether customers see the exact price or a
// range; the underlying quote is unchanged either way.
type PriceRange struct {
	Low  int `json:"low"`
	High int `json:"high"`
}

// DisplayRange returns [total−deviation, total+deviation] with the low
// bound clamped at 0. A zero or negative deviation means exact display:
// both bounds equal the total.
func DisplayRange(total, deviation int) PriceRange {
	if deviation <= 0 {
		return PriceRange{Low: total, High: total}
	}
	low := total - deviation
	if low < 0 {
		low = 0
	}
	return PriceRange{Low: low, High: total + deviation}
}
