package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Run outcomes
const (
	OutcomeComplete    = "complete"
	OutcomePartial     = "partial"
	OutcomeConfigError = "config_error"
	OutcomeFailed      = "failed"
)

// PromRecorder records optimization runs in Prometheus metrics
type PromRecorder struct {
	runs      *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	shortages *prometheus.CounterVec
	coverage  *prometheus.GaugeVec
}

// NewPromRecorder registers run metrics on the provided registerer.
// If reg is nil, the default registerer is used. Collectors that are already registered are reused.
func NewPromRecorder(reg prometheus.Registerer) (*PromRecorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "spv_optimization_runs_total",
		Help: "Total number of optimization runs",
	}, []string{"mode", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "spv_optimization_duration_seconds",
		Help:    "Duration of optimization runs",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"mode"})
	shortages := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "spv_optimization_shortages_total",
		Help: "Total number of unfilled seats reported by optimization runs",
	}, []string{"mode"})
	coverage := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "spv_optimization_coverage_percent",
		Help: "Average coverage percentage of the latest optimization run",
	}, []string{"mode"})

	var err error
	if runs, err = register(reg, runs); err != nil {
		return nil, err
	}
	if duration, err = register(reg, duration); err != nil {
		return nil, err
	}
	if shortages, err = register(reg, shortages); err != nil {
		return nil, err
	}
	if coverage, err = register(reg, coverage); err != nil {
		return nil, err
	}

	return &PromRecorder{runs: runs, duration: duration, shortages: shortages, coverage: coverage}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, collector C) (C, error) {
	if err := reg.Register(collector); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return collector, err
	}
	return collector, nil
}

// RecordRun records a completed run
func (r *PromRecorder) RecordRun(mode string, elapsed time.Duration, shortages int, averageCoverage float64) {
	outcome := OutcomeComplete
	if shortages > 0 {
		outcome = OutcomePartial
	}
	r.runs.WithLabelValues(mode, outcome).Inc()
	r.duration.WithLabelValues(mode).Observe(elapsed.Seconds())
	r.shortages.WithLabelValues(mode).Add(float64(shortages))
	r.coverage.WithLabelValues(mode).Set(averageCoverage)
}

// RecordFailure records a run that did not produce a plan
func (r *PromRecorder) RecordFailure(mode string, configError bool) {
	outcome := OutcomeFailed
	if configError {
		outcome = OutcomeConfigError
	}
	r.runs.WithLabelValues(mode, outcome).Inc()
}
