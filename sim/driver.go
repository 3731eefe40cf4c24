package sim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pywr-go/pywr-core-go/calendar"
	"github.com/pywr-go/pywr-core-go/lp"
	"github.com/pywr-go/pywr-core-go/network"
	"github.com/pywr-go/pywr-core-go/param"
	"github.com/pywr-go/pywr-core-go/pywrerr"
	"github.com/pywr-go/pywr-core-go/pywrstate"
	"github.com/pywr-go/pywr-core-go/solver"
)

// volumeWarnTol is the slack allowed before a storage volume outside its
// bounds is reported as a warning.
const volumeWarnTol = 1e-6

// CancellationToken requests a cooperative stop: the driver checks it
// between timesteps and between scenarios, letting in-flight solves finish
// first.
type CancellationToken struct {
	flag atomic.Bool
}

// Cancel requests the stop. Safe to call from any goroutine, repeatedly.
func (c *CancellationToken) Cancel() { c.flag.Store(true) }

// Cancelled reports whether a stop has been requested.
func (c *CancellationToken) Cancelled() bool { return c != nil && c.flag.Load() }

// SolverFactory builds one solver instance. The driver calls it once per
// scenario so backends never share state across workers.
type SolverFactory func() solver.LpSolver

// RunReport summarises one run. ScenarioErrors maps each failed scenario
// to the error that stopped it; scenarios absent from the map completed.
type RunReport struct {
	Timesteps      int
	Scenarios      int
	ScenarioErrors map[ScenarioIdx]error
}

// Driver owns everything a run needs: the frozen network, the frozen
// parameter registry, the timestepper and scenario set, a solver factory
// and the solver settings.
type Driver struct {
	fn        *network.FrozenNetwork
	registry  *param.Registry
	stepper   Timestepper
	scenarios ScenarioSet
	factory   SolverFactory
	settings  solver.Settings
	cfg       driverConfig
}

// NewDriver assembles a driver. The registry is frozen here if the caller
// has not done so already.
func NewDriver(fn *network.FrozenNetwork, registry *param.Registry, stepper Timestepper, scenarios ScenarioSet, factory SolverFactory, settings solver.Settings, opts ...Option) (*Driver, error) {
	if factory == nil {
		return nil, pywrerr.New(pywrerr.SolverBackendError, "", "no solver factory given")
	}
	if err := registry.Freeze(); err != nil {
		return nil, err
	}
	d := &Driver{
		fn:        fn,
		registry:  registry,
		stepper:   stepper,
		scenarios: scenarios,
		factory:   factory,
		settings:  settings,
	}
	for _, opt := range opts {
		opt(&d.cfg)
	}
	return d, nil
}

// scenarioRun is one scenario's private slice of the run: its state, its
// LP builder and its solver instance. Nothing here is shared between
// workers.
type scenarioRun struct {
	idx     ScenarioIdx
	st      *pywrstate.State
	builder *lp.Builder
	solver  solver.LpSolver
	err     error
}

// Run executes the simulation: per-scenario state construction and
// parameter setup, then the timestep loop (parameters, LP refresh, solve,
// commit, storage integration, recorders), then teardown.
func (d *Driver) Run(ctx context.Context) (RunReport, error) {
	report := RunReport{
		Scenarios:      d.scenarios.Len(),
		ScenarioErrors: make(map[ScenarioIdx]error),
	}

	timesteps, err := d.stepper.Timesteps()
	if err != nil {
		return report, err
	}
	report.Timesteps = len(timesteps)

	runs := make([]*scenarioRun, report.Scenarios)
	for s := range runs {
		run, err := d.setupScenario(ScenarioIdx(s), timesteps)
		if err != nil {
			return report, err
		}
		runs[s] = run
	}

	for _, rec := range d.cfg.recorders {
		if err := rec.Setup(d.fn, timesteps, d.scenarios); err != nil {
			return report, err
		}
	}

	workers := d.workerCount()
	var runErr error

steps:
	for _, t := range timesteps {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		if d.cfg.cancel.Cancelled() {
			runErr = context.Canceled
			break
		}

		live := make([]*scenarioRun, 0, len(runs))
		for _, run := range runs {
			if run.err == nil {
				live = append(live, run)
			}
		}
		if len(live) == 0 {
			break
		}
		d.cfg.metrics.SetActiveScenarios(len(live))

		if workers <= 1 {
			for _, run := range live {
				if d.cfg.cancel.Cancelled() {
					runErr = context.Canceled
					break steps
				}
				d.step(ctx, t, run)
			}
		} else {
			jobs := make(chan *scenarioRun)
			var wg sync.WaitGroup
			for w := 0; w < workers; w++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for run := range jobs {
						if d.cfg.cancel.Cancelled() {
							continue
						}
						d.step(ctx, t, run)
					}
				}()
			}
			for _, run := range live {
				jobs <- run
			}
			close(jobs)
			wg.Wait()
			if d.cfg.cancel.Cancelled() {
				runErr = context.Canceled
				break steps
			}
		}
		d.cfg.metrics.SetActiveScenarios(0)

		for _, run := range live {
			if run.err != nil {
				report.ScenarioErrors[run.idx] = run.err
				// A step timeout aborts the run whatever abortOnError says.
				if d.cfg.abortOnError || errors.Is(run.err, &pywrerr.Error{Kind: pywrerr.SolverTimeout}) {
					runErr = run.err
					break steps
				}
			}
		}
	}

	// Drop parameter internals before finalising so recorder teardown sees
	// the run already closed.
	for _, run := range runs {
		for i := range run.st.ParamInternal {
			run.st.ParamInternal[i] = nil
		}
		for i := range run.st.IndexParamInternal {
			run.st.IndexParamInternal[i] = nil
		}
		for i := range run.st.MultiParamInternal {
			run.st.MultiParamInternal[i] = nil
		}
	}

	for _, rec := range d.cfg.recorders {
		if err := rec.Finalise(); err != nil && runErr == nil {
			runErr = err
		}
	}

	return report, runErr
}

func (d *Driver) workerCount() int {
	if d.cfg.maxConcurrentScenarios > 0 {
		return d.cfg.maxConcurrentScenarios
	}
	if !d.settings.Parallel {
		return 1
	}
	if d.settings.Threads > 0 {
		return d.settings.Threads
	}
	return runtime.NumCPU()
}

// setupScenario builds one scenario's state, initialises storage volumes,
// runs every parameter's Setup, and initialises its builder and solver.
func (d *Driver) setupScenario(idx ScenarioIdx, timesteps []calendar.Timestep) (*scenarioRun, error) {
	st := pywrstate.New(
		d.fn.NumNodes(), d.fn.NumEdges(), d.fn.NumVirtualStorage(),
		d.registry.NumParameters(), d.registry.NumIndexParameters(), d.registry.NumMultiParameters(),
	)

	nr := d.fn.Bind(st)
	for i := 0; i < d.fn.NumNodes(); i++ {
		node, err := d.fn.Node(network.NodeIdx(i))
		if err != nil {
			return nil, err
		}
		if node.Kind != network.Storage {
			continue
		}
		maxV, err := node.MaxVolume.ResolveUpper(nr, st)
		if err != nil {
			return nil, err
		}
		vol := node.InitialVolume.Resolve(maxV)
		if math.IsInf(vol, 0) || math.IsNaN(vol) {
			return nil, pywrerr.New(pywrerr.MissingInitialVolume, node.Name, "proportional initial volume needs a finite max volume")
		}
		if err := st.SetNodeVolume(i, vol); err != nil {
			return nil, err
		}
	}
	for i := 0; i < d.fn.NumVirtualStorage(); i++ {
		vs, err := d.fn.VirtualStorage(network.VirtualStorageIdx(i))
		if err != nil {
			return nil, err
		}
		maxV, err := vs.MaxVolume.ResolveUpper(nr, st)
		if err != nil {
			return nil, err
		}
		vol := vs.InitialVolume.Resolve(maxV)
		if math.IsInf(vol, 0) || math.IsNaN(vol) {
			return nil, pywrerr.New(pywrerr.MissingInitialVolume, vs.Name, "proportional initial volume needs a finite max volume")
		}
		if err := st.SetVirtualStorageVolume(i, vol); err != nil {
			return nil, err
		}
	}

	for i := 0; i < d.registry.NumParameters(); i++ {
		p, _ := d.registry.Parameter(param.ParameterIdx(i))
		internal, err := p.Setup(timesteps, idx)
		if err != nil {
			return nil, pywrerr.Wrap(pywrerr.ParameterComputeFailed, p.Meta().Name, err)
		}
		st.ParamInternal[i] = internal
	}
	for i := 0; i < d.registry.NumIndexParameters(); i++ {
		p, _ := d.registry.IndexParameter(param.IndexParameterIdx(i))
		internal, err := p.Setup(timesteps, idx)
		if err != nil {
			return nil, pywrerr.Wrap(pywrerr.ParameterComputeFailed, p.Meta().Name, err)
		}
		st.IndexParamInternal[i] = internal
	}
	for i := 0; i < d.registry.NumMultiParameters(); i++ {
		p, _ := d.registry.MultiParameter(param.MultiParameterIdx(i))
		internal, err := p.Setup(timesteps, idx)
		if err != nil {
			return nil, pywrerr.Wrap(pywrerr.ParameterComputeFailed, p.Meta().Name, err)
		}
		st.MultiParamInternal[i] = internal
	}

	builder, err := lp.NewBuilder(d.fn)
	if err != nil {
		return nil, err
	}
	sv := d.factory()
	if err := sv.Init(builder.Structure()); err != nil {
		return nil, err
	}

	return &scenarioRun{idx: idx, st: st, builder: builder, solver: sv}, nil
}

// step advances one scenario by one timestep. Failures land in run.err;
// the caller decides whether they abort the whole run.
func (d *Driver) step(ctx context.Context, t calendar.Timestep, run *scenarioRun) {
	if err := d.applyVirtualStorageResets(t, run.st); err != nil {
		run.err = err
		return
	}
	if err := d.evaluateParameters(t, run); err != nil {
		run.err = err
		return
	}
	if err := d.solveStep(ctx, t, run); err != nil {
		run.err = err
		return
	}
	d.integrateStorage(t, run.st)
	if err := d.integrateVirtualStorage(t, run.st); err != nil {
		run.err = err
		return
	}

	for _, rec := range d.cfg.recorders {
		if err := rec.Save(t, run.idx, run.st); err != nil {
			run.err = err
			return
		}
	}
}

func (d *Driver) evaluateParameters(t calendar.Timestep, run *scenarioRun) error {
	for _, step := range d.registry.Order() {
		switch step.Kind {
		case param.EvalIndex:
			p, _ := d.registry.IndexParameter(param.IndexParameterIdx(step.Index))
			p.Before()
		case param.EvalMulti:
			p, _ := d.registry.MultiParameter(param.MultiParameterIdx(step.Index))
			p.Before()
		case param.EvalScalar:
			p, _ := d.registry.Parameter(param.ParameterIdx(step.Index))
			p.Before()
		}
	}

	for _, step := range d.registry.Order() {
		switch step.Kind {
		case param.EvalIndex:
			p, _ := d.registry.IndexParameter(param.IndexParameterIdx(step.Index))
			v, err := p.Compute(t, run.idx, d.fn, run.st, &run.st.IndexParamInternal[step.Index])
			if err != nil {
				return pywrerr.Wrap(pywrerr.ParameterComputeFailed, p.Meta().Name, err)
			}
			if err := run.st.SetIndexParameterValue(step.Index, v); err != nil {
				return err
			}
		case param.EvalMulti:
			p, _ := d.registry.MultiParameter(param.MultiParameterIdx(step.Index))
			v, err := p.Compute(t, run.idx, d.fn, run.st, &run.st.MultiParamInternal[step.Index])
			if err != nil {
				return pywrerr.Wrap(pywrerr.ParameterComputeFailed, p.Meta().Name, err)
			}
			if err := run.st.SetMultiParameterValue(step.Index, v); err != nil {
				return err
			}
		case param.EvalScalar:
			p, _ := d.registry.Parameter(param.ParameterIdx(step.Index))
			v, err := p.Compute(t, run.idx, d.fn, run.st, &run.st.ParamInternal[step.Index])
			if err != nil {
				return pywrerr.Wrap(pywrerr.ParameterComputeFailed, p.Meta().Name, err)
			}
			if err := run.st.SetParameterValue(step.Index, v); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *Driver) solveStep(ctx context.Context, t calendar.Timestep, run *scenarioRun) error {
	if err := run.builder.Refresh(run.st, t.Dt); err != nil {
		return err
	}
	for i, row := range run.builder.Rows() {
		if err := run.solver.SetRowBounds(i, row.Lo, row.Hi); err != nil {
			return err
		}
	}
	if err := run.solver.SetObjCoeffs(run.builder.Objective()); err != nil {
		return err
	}

	solveCtx := ctx
	cancel := context.CancelFunc(func() {})
	if d.cfg.stepTimeout > 0 {
		solveCtx, cancel = context.WithTimeout(ctx, d.cfg.stepTimeout)
	}
	start := time.Now()
	flows, status, err := run.solver.Solve(solveCtx)
	elapsed := time.Since(start)
	cancel()

	d.cfg.metrics.RecordSolve(elapsed, status.String())
	switch {
	case errors.Is(solveCtx.Err(), context.DeadlineExceeded):
		d.cfg.metrics.IncTimeout()
		return pywrerr.New(pywrerr.SolverTimeout, "", fmt.Sprintf("step %d exceeded timeout of %v", t.Index, d.cfg.stepTimeout))
	case status == solver.Infeasible:
		d.cfg.metrics.IncInfeasible()
		return err
	case err != nil:
		return err
	}

	return run.st.CommitLPResult(flows, run.builder.NodeInEdges(), run.builder.NodeOutEdges())
}

// integrateStorage closes the volume recurrence outside the LP:
// volume += (in - out) * dt for every storage node.
func (d *Driver) integrateStorage(t calendar.Timestep, st *pywrstate.State) {
	nr := d.fn.Bind(st)
	for i := 0; i < d.fn.NumNodes(); i++ {
		node, err := d.fn.Node(network.NodeIdx(i))
		if err != nil || node.Kind != network.Storage {
			continue
		}
		vol := st.Volumes[i] + (st.NodeInFlows[i]-st.NodeOutFlows[i])*t.Dt
		st.Volumes[i] = vol

		minV, errLo := node.MinVolume.ResolveLower(nr, st)
		maxV, errHi := node.MaxVolume.ResolveUpper(nr, st)
		if errLo == nil && errHi == nil && (vol < minV-volumeWarnTol || vol > maxV+volumeWarnTol) {
			d.warnf("[storage_bounds] t=%d node=%s volume=%g min=%g max=%g\n", t.Index, node.Name, vol, minV, maxV)
		}
	}
}

// applyVirtualStorageResets restores volumes whose reset policy fires at
// this timestep, before the step's accumulation.
func (d *Driver) applyVirtualStorageResets(t calendar.Timestep, st *pywrstate.State) error {
	nr := d.fn.Bind(st)
	for i := 0; i < d.fn.NumVirtualStorage(); i++ {
		vs, err := d.fn.VirtualStorage(network.VirtualStorageIdx(i))
		if err != nil {
			return err
		}
		if !resetTriggers(vs.Reset, t) {
			continue
		}
		maxV, err := vs.MaxVolume.ResolveUpper(nr, st)
		if err != nil {
			return err
		}
		if err := st.SetVirtualStorageVolume(i, vs.InitialVolume.Resolve(maxV)); err != nil {
			return err
		}
	}
	return nil
}

func resetTriggers(p network.ResetPolicy, t calendar.Timestep) bool {
	switch p.Kind {
	case network.ResetPeriodic:
		if p.Length <= 0 {
			return false
		}
		return t.Index >= p.Offset && (t.Index-p.Offset)%p.Length == 0 && t.Index > 0
	case network.ResetAnnual:
		return t.Date.Month == p.Month && t.Date.Day == p.Day && t.Index > 0
	case network.ResetMonthly:
		return t.Date.Day == p.Day && t.Index > 0
	default:
		return false
	}
}

// integrateVirtualStorage decrements each virtual storage by the factored
// flows of its member nodes.
func (d *Driver) integrateVirtualStorage(t calendar.Timestep, st *pywrstate.State) error {
	for i := 0; i < d.fn.NumVirtualStorage(); i++ {
		vs, err := d.fn.VirtualStorage(network.VirtualStorageIdx(i))
		if err != nil {
			return err
		}
		var drawn float64
		for j, m := range vs.Members {
			node, err := d.fn.Node(network.NodeIdx(m))
			if err != nil {
				return err
			}
			flow := st.NodeInFlows[m]
			if node.Kind == network.Input {
				flow = st.NodeOutFlows[m]
			}
			drawn += vs.Factor(j) * flow
		}
		st.VirtualStorageVolumes[i] -= drawn * t.Dt
	}
	return nil
}

func (d *Driver) warnf(format string, args ...any) {
	if d.cfg.warnWriter == nil {
		return
	}
	fmt.Fprintf(d.cfg.warnWriter, format, args...)
}
