package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// interpolation pipeline.
type Metrics struct {
	UnitsCompleted *prometheus.CounterVec // labels: variable, state={SUCCESS,FAILED,INSUFFICIENT_DATA}
	FallbacksTotal prometheus.Counter
	RunActive      prometheus.Gauge
	UnitsInFlight  prometheus.Gauge

	UnitDuration     *prometheus.HistogramVec // labels: method={kriging,idw}
	SamplePoints     prometheus.Histogram
	SurfaceCells     prometheus.Histogram
	ValidationFolds  prometheus.Counter
	ValidationRMSE   *prometheus.HistogramVec // labels: variable
	OutcomeEventsPub prometheus.Counter
	OutcomeEventErrs prometheus.Counter
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		UnitsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "geostack",
			Name:      "units_completed_total",
			Help:      "Terminal unit outcomes by variable and state.",
		}, []string{"variable", "state"}),
		FallbacksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "geostack",
			Name:      "idw_fallbacks_total",
			Help:      "Units where kriging failed and IDW produced the surface.",
		}),
		RunActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "geostack",
			Name:      "run_active",
			Help:      "1 while a pipeline run is in progress, 0 otherwise.",
		}),
		UnitsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "geostack",
			Name:      "units_in_flight",
			Help:      "Units currently interpolating.",
		}),
		UnitDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "geostack",
			Name:      "unit_duration_seconds",
			Help:      "Wall time per interpolated unit by method.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"method"}),
		SamplePoints: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "geostack",
			Name:      "sample_points",
			Help:      "Observation count per unit sample.",
			Buckets:   []float64{5, 10, 20, 50, 100, 250, 500, 1000},
		}),
		SurfaceCells: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "geostack",
			Name:      "surface_cells",
			Help:      "Grid cells per interpolated surface.",
			Buckets:   []float64{1e2, 1e3, 1e4, 4e4, 1e5, 1.6e5},
		}),
		ValidationFolds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "geostack",
			Name:      "validation_folds_total",
			Help:      "Cross-validation folds evaluated.",
		}),
		ValidationRMSE: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "geostack",
			Name:      "validation_rmse",
			Help:      "Mean cross-validation RMSE per variable.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"variable"}),
		OutcomeEventsPub: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "geostack",
			Name:      "outcome_events_published_total",
			Help:      "Unit outcome events written to Kafka.",
		}),
		OutcomeEventErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "geostack",
			Name:      "outcome_event_errors_total",
			Help:      "Failed outcome event publishes.",
		}),
	}

	prometheus.MustRegister(
		m.UnitsCompleted,
		m.FallbacksTotal,
		m.RunActive,
		m.UnitsInFlight,
		m.UnitDuration,
		m.SamplePoints,
		m.SurfaceCells,
		m.ValidationFolds,
		m.ValidationRMSE,
		m.OutcomeEventsPub,
		m.OutcomeEventErrs,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		UnitsCompleted:   prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "geostack", Name: "units_completed_total"}, []string{"variable", "state"}),
		FallbacksTotal:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "geostack", Name: "idw_fallbacks_total"}),
		RunActive:        prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "geostack", Name: "run_active"}),
		UnitsInFlight:    prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "geostack", Name: "units_in_flight"}),
		UnitDuration:     prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "geostack", Name: "unit_duration_seconds"}, []string{"method"}),
		SamplePoints:     prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "geostack", Name: "sample_points"}),
		SurfaceCells:     prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "geostack", Name: "surface_cells"}),
		ValidationFolds:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: "geostack", Name: "validation_folds_total"}),
		ValidationRMSE:   prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "geostack", Name: "validation_rmse"}, []string{"variable"}),
		OutcomeEventsPub: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "geostack", Name: "outcome_events_published_total"}),
		OutcomeEventErrs: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "geostack", Name: "outcome_event_errors_total"}),
	}
}
