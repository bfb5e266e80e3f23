package pricing

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metric names as constants for consistency.
const (
	MetricCalculations = "pricing_calculations_total"
	MetricFallbackHits = "pricing_fallback_hits_total"
	MetricCalcDuration = "pricing_calculation_duration_seconds"
)

// Metrics contains Prometheus metrics for the pricing engine.
// All operations are thread-safe.
type Metrics struct {
	calculations prometheus.Counter
	fallbackHits prometheus.Counter
	calcDuration prometheus.Histogram
}

// NewMetrics creates and returns a new Metrics instance with all
// collectors initialized. The metrics are not registered; call Register
// to register them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		calculations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricCalculations,
			Help: "Total number of price calculations performed",
		}),
		fallbackHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricFallbackHits,
			Help: "Total number of priced terms that used a hardcoded fallback constant",
		}),
		calcDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    MetricCalcDuration,
			Help:    "Histogram of price calculation duration in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// Register registers all metrics with the given registry.
// Returns an error if registration fails.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.calculations, m.fallbackHits, m.calcDuration} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// ObserveCalculation records one completed calculation.
func (m *Metrics) ObserveCalculation(d time.Duration, fallbacks int) {
	m.calculations.Inc()
	m.fallbackHits.Add(float64(fallbacks))
	m.calcDuration.Observe(d.Seconds())
}
