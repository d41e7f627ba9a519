package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics of rate calculation and order refresh.
type Metrics struct {
	RateCalculations  *prometheus.CounterVec
	RateDuration      *prometheus.HistogramVec
	ProviderErrors    *prometheus.CounterVec
	ProcessorRuns     *prometheus.CounterVec
	ProcessorDuration *prometheus.HistogramVec
}

// NewMetrics creates the metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RateCalculations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shipping_rate_calculations_total",
				Help: "Total number of rate calculations by shipping method and status",
			},
			[]string{"method", "status"},
		),
		RateDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "shipping_rate_calculation_duration_seconds",
				Help:    "Rate calculation duration in seconds by shipping method",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		ProviderErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shipping_provider_errors_total",
				Help: "Total rate provider errors by shipping method and error kind",
			},
			[]string{"method", "kind"},
		),
		ProcessorRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shipping_processor_runs_total",
				Help: "Total order processor runs by processor and outcome",
			},
			[]string{"processor", "outcome"},
		),
		ProcessorDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "shipping_processor_duration_seconds",
				Help:    "Order processor duration in seconds by processor",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"processor"},
		),
	}
}

// RecordRateCalculation records one shipping method's rate calculation.
func (m *Metrics) RecordRateCalculation(method, status string, duration float64) {
	m.RateCalculations.WithLabelValues(method, status).Inc()
	m.RateDuration.WithLabelValues(method).Observe(duration)
}

// RecordProviderError records a failed rate provider.
func (m *Metrics) RecordProviderError(method, kind string) {
	m.ProviderErrors.WithLabelValues(method, kind).Inc()
}

// RecordProcessorRun records one order processor run.
func (m *Metrics) RecordProcessorRun(processor, outcome string, duration float64) {
	m.ProcessorRuns.WithLabelValues(processor, outcome).Inc()
	m.ProcessorDuration.WithLabelValues(processor).Observe(duration)
}
