package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	forecastsTotal *prometheus.CounterVec
	forecastSteps  prometheus.Histogram
	ingestTotal    *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	latency        *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		forecastsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "demandcast_forecasts_total",
				Help: "Total number of forecast requests by outcome",
			},
			[]string{"status"},
		),
		forecastSteps: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "demandcast_forecast_steps",
				Help:    "Number of recursive steps per forecast",
				Buckets: []float64{1, 7, 14, 28, 56},
			},
		),
		ingestTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "demandcast_sales_ingested_total",
				Help: "Total number of sales events written to a backend",
			},
			[]string{"backend", "store"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "demandcast_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "demandcast_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordForecast records one completed forecast request by outcome.
func (r *Recorder) RecordForecast(status string) {
	r.forecastsTotal.WithLabelValues(status).Inc()
}

// RecordForecastSteps records the number of recursive steps a forecast ran.
func (r *Recorder) RecordForecastSteps(n int) {
	r.forecastSteps.Observe(float64(n))
}

// RecordIngest records a sales event written to a backend.
func (r *Recorder) RecordIngest(backend, store string) {
	r.ingestTotal.WithLabelValues(backend, store).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
