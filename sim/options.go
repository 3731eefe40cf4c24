package sim

import (
	"io"
	"time"
)

// Option is a functional option for configuring a Driver.
//
// Example:
//
//	driver, err := sim.NewDriver(fn, registry, stepper, scenarios, factory,
//	    solver.Settings{},
//	    sim.WithMaxConcurrentScenarios(4),
//	    sim.WithStepTimeout(5*time.Second),
//	    sim.WithRecorder(sim.NewLogRecorder(os.Stdout, false)),
//	)
type Option func(*driverConfig)

type driverConfig struct {
	maxConcurrentScenarios int
	stepTimeout            time.Duration
	abortOnError           bool
	recorders              []Recorder
	metrics                *PrometheusMetrics
	warnWriter             io.Writer
	cancel                 *CancellationToken
}

// WithMaxConcurrentScenarios caps how many scenarios solve in parallel
// within one timestep. 1 runs scenarios sequentially; 0 (the default)
// leaves the worker count to the solver settings: sequential unless
// Settings.Parallel is set, then Settings.Threads workers, or one per CPU
// when Threads is 0. Each scenario gets its own solver instance from the
// driver's factory, so non thread-safe backends remain safe at any setting.
func WithMaxConcurrentScenarios(n int) Option {
	return func(cfg *driverConfig) { cfg.maxConcurrentScenarios = n }
}

// WithStepTimeout bounds the wall-clock time of one scenario's solve. On
// elapse the step fails with SolverTimeout and the run aborts. 0 disables
// the timeout.
func WithStepTimeout(d time.Duration) Option {
	return func(cfg *driverConfig) { cfg.stepTimeout = d }
}

// WithAbortOnError makes any scenario failure abort the whole run. The
// default lets remaining scenarios finish and aggregates the failures in
// the run report.
func WithAbortOnError(abort bool) Option {
	return func(cfg *driverConfig) { cfg.abortOnError = abort }
}

// WithRecorder appends a recorder to the run. May be given multiple times.
func WithRecorder(r Recorder) Option {
	return func(cfg *driverConfig) { cfg.recorders = append(cfg.recorders, r) }
}

// WithMetrics enables Prometheus metrics collection for the run.
func WithMetrics(m *PrometheusMetrics) Option {
	return func(cfg *driverConfig) { cfg.metrics = m }
}

// WithWarningWriter routes soft-violation warnings (e.g. storage volumes
// drifting marginally outside bounds) to the given writer as structured
// text lines. Warnings are never returned as errors.
func WithWarningWriter(w io.Writer) Option {
	return func(cfg *driverConfig) { cfg.warnWriter = w }
}

// WithCancellation attaches an externally controlled cancellation token,
// checked between timesteps and between scenarios. In-flight solves finish
// before the run stops.
func WithCancellation(token *CancellationToken) Option {
	return func(cfg *driverConfig) { cfg.cancel = token }
}
