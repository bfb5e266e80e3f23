// Package pricing computes the price of a configured furniture piece
// from its global configuration, its zone tree, and an admin-managed
// table of numeric pricing parameters.
//
// Basic Usage:
//
//	// Load the parameter snapshot (typically per session)
//	table, err := repo.Snapshot(ctx)
//	if err != nil {
//		slog.Warn("using fallback pricing constants", "error", err)
//	}
//
//	engine := pricing.NewEngine(metrics)
//	quote := engine.Price(global, tree, table, samples)
//	fmt.Println(quote.Total)
//
// Guarantees:
//
// Price is deterministic (identical inputs yield identical output) and
// total prices are never negative. Every priced sub-formula first checks
// whether its category/item/parameter exists in the table; a missing
// value triggers the documented fallback constant instead of an error —
// the engine never fails to produce a price.
//
// Parameter schema:
//
// The table is category → item → parameter → value, for example
// drawers.standard.base_price. See the constants in params.go for the
// full schema and fallback.go for the constants used when a parameter is
// absent.
package pricing
