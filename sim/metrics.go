package sim

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics collects run-level metrics for production monitoring.
//
// Metrics exposed (all namespaced with "pywr_"):
//
//  1. active_scenarios (gauge): scenarios currently being solved within the
//     running timestep.
//  2. step_solve_duration_ms (histogram): wall-clock duration of one
//     scenario's LP solve, labelled by status (optimal/infeasible/unbounded/other).
//  3. infeasible_total (counter): solves that came back infeasible.
//  4. solver_timeouts_total (counter): solves aborted by the per-step
//     wall-clock timeout.
//
// Expose via HTTP for scraping:
//
//	registry := prometheus.NewRegistry()
//	metrics := sim.NewPrometheusMetrics(registry)
//	http.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
type PrometheusMetrics struct {
	activeScenarios prometheus.Gauge
	solveDuration   *prometheus.HistogramVec
	infeasible      prometheus.Counter
	timeouts        prometheus.Counter

	enabled bool
}

// NewPrometheusMetrics registers the run metrics with the given registry
// (nil uses the default registerer).
func NewPrometheusMetrics(registry prometheus.Registerer) *PrometheusMetrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &PrometheusMetrics{
		enabled: true,
		activeScenarios: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "pywr",
			Name:      "active_scenarios",
			Help:      "Scenarios currently being solved within the running timestep",
		}),
		solveDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pywr",
			Name:      "step_solve_duration_ms",
			Help:      "Wall-clock duration of one scenario LP solve in milliseconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 50, 100, 500, 1000},
		}, []string{"status"}),
		infeasible: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "pywr",
			Name:      "infeasible_total",
			Help:      "LP solves that returned infeasible",
		}),
		timeouts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "pywr",
			Name:      "solver_timeouts_total",
			Help:      "LP solves aborted by the per-step wall-clock timeout",
		}),
	}
}

// RecordSolve records one solve's duration and outcome.
func (pm *PrometheusMetrics) RecordSolve(d time.Duration, status string) {
	if pm == nil || !pm.enabled {
		return
	}
	pm.solveDuration.WithLabelValues(status).Observe(float64(d.Microseconds()) / 1000)
}

// IncInfeasible counts one infeasible solve.
func (pm *PrometheusMetrics) IncInfeasible() {
	if pm == nil || !pm.enabled {
		return
	}
	pm.infeasible.Inc()
}

// IncTimeout counts one timed-out solve.
func (pm *PrometheusMetrics) IncTimeout() {
	if pm == nil || !pm.enabled {
		return
	}
	pm.timeouts.Inc()
}

// SetActiveScenarios updates the in-flight scenario gauge.
func (pm *PrometheusMetrics) SetActiveScenarios(n int) {
	if pm == nil || !pm.enabled {
		return
	}
	pm.activeScenarios.Set(float64(n))
}
