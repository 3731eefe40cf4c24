package sim

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/pywr-go/pywr-core-go/calendar"
	"github.com/pywr-go/pywr-core-go/metric"
	"github.com/pywr-go/pywr-core-go/network"
	"github.com/pywr-go/pywr-core-go/param"
	"github.com/pywr-go/pywr-core-go/pywrerr"
	"github.com/pywr-go/pywr-core-go/pywrstate"
	"github.com/pywr-go/pywr-core-go/solver"
)

func TestTimestepperGeneratesDailySteps(t *testing.T) {
	stepper := Timestepper{
		Start:    calendar.Date{Year: 2015, Month: 12, Day: 30},
		End:      calendar.Date{Year: 2016, Month: 1, Day: 2},
		StepDays: 1,
	}
	steps, err := stepper.Timesteps()
	if err != nil {
		t.Fatal(err)
	}
	if len(steps) != 4 {
		t.Fatalf("got %d steps, want 4", len(steps))
	}
	if steps[2].Date != (calendar.Date{Year: 2016, Month: 1, Day: 1}) {
		t.Errorf("step 2 date = %v, want new year's day", steps[2].Date)
	}
	for i, s := range steps {
		if s.Index != i || s.Dt != 1 {
			t.Errorf("step %d = %+v, want index %d, dt 1", i, s, i)
		}
	}
}

func TestTimestepperRejectsBadInput(t *testing.T) {
	if _, err := (Timestepper{StepDays: 0}).Timesteps(); err == nil {
		t.Error("zero step length must fail")
	}
	bad := Timestepper{
		Start:    calendar.Date{Year: 2016, Month: 1, Day: 1},
		End:      calendar.Date{Year: 2015, Month: 1, Day: 1},
		StepDays: 1,
	}
	if _, err := bad.Timesteps(); err == nil {
		t.Error("reversed range must fail")
	}
}

func TestScenarioSetCartesianProduct(t *testing.T) {
	set := ScenarioSet{Groups: []ScenarioGroup{{Name: "climate", Size: 3}, {Name: "demand", Size: 2}}}
	if set.Len() != 6 {
		t.Fatalf("Len = %d, want 6", set.Len())
	}
	got := set.Indices(5)
	if got[0] != 2 || got[1] != 1 {
		t.Errorf("Indices(5) = %v, want [2 1]", got)
	}
	if (ScenarioSet{}).Len() != 1 {
		t.Error("empty set should yield a single default scenario")
	}
}

// storageModel builds the drain-a-reservoir model shared by several tests.
func storageModel(t *testing.T) (*network.FrozenNetwork, network.NodeIdx) {
	t.Helper()
	n := network.NewNetwork()
	input, _ := n.AddInputNode("input", nil)
	_ = n.SetMaxFlow(input, network.ScalarValue(5))
	_ = n.SetCost(input, network.ScalarValue(10))
	store, _ := n.AddStorageNode("store", nil)
	_ = n.SetMaxVolume(store, network.ScalarValue(100))
	_ = n.SetInitialVolume(store, network.Absolute(50))
	output, _ := n.AddOutputNode("output", nil)
	_ = n.SetMaxFlow(output, network.ScalarValue(5))
	_ = n.SetCost(output, network.ScalarValue(-1))
	_, _ = n.Connect(input, store)
	_, _ = n.Connect(store, output)
	fn, err := n.Freeze()
	if err != nil {
		t.Fatal(err)
	}
	return fn, store
}

func TestStorageRecurrenceHolds(t *testing.T) {
	fn, store := storageModel(t)
	stepper := Timestepper{
		Start:    calendar.Date{Year: 2015, Month: 1, Day: 1},
		End:      calendar.Date{Year: 2015, Month: 1, Day: 15},
		StepDays: 1,
	}
	cap, _ := runModel(t, fn, param.NewRegistry(), stepper)

	prev := 50.0
	for step := range cap.volumes {
		net := cap.inFlows[step][store] - cap.outFlows[step][store]
		want := prev + net*1
		if got := cap.volumes[step][store]; math.Abs(got-want) > 1e-9 {
			t.Fatalf("step %d: volume = %g, recurrence gives %g", step, got, want)
		}
		prev = cap.volumes[step][store]
	}
}

func TestRunsAreBitIdentical(t *testing.T) {
	stepper := Timestepper{
		Start:    calendar.Date{Year: 2015, Month: 1, Day: 1},
		End:      calendar.Date{Year: 2015, Month: 1, Day: 15},
		StepDays: 1,
	}
	run := func() *capture {
		fn, _ := storageModel(t)
		cap, _ := runModel(t, fn, param.NewRegistry(), stepper)
		return cap
	}

	a, b := run(), run()
	for step := range a.volumes {
		for i := range a.volumes[step] {
			if a.volumes[step][i] != b.volumes[step][i] {
				t.Fatalf("volume trajectories diverge at step %d node %d", step, i)
			}
		}
		for e := range a.edges[step] {
			if a.edges[step][e] != b.edges[step][e] {
				t.Fatalf("edge flows diverge at step %d edge %d", step, e)
			}
		}
	}
}

func TestVirtualStorageMonotonicAndReset(t *testing.T) {
	build := func(reset network.ResetPolicy) (*network.FrozenNetwork, network.VirtualStorageIdx) {
		n := network.NewNetwork()
		input, _ := n.AddInputNode("input", nil)
		output, _ := n.AddOutputNode("output", nil)
		_ = n.SetMaxFlow(output, network.ScalarValue(10))
		_ = n.SetCost(output, network.ScalarValue(-1))
		_, _ = n.Connect(input, output)
		vs, err := n.AddVirtualStorageNode("licence", nil, []network.NodeIdx{output}, nil)
		if err != nil {
			t.Fatal(err)
		}
		_ = n.SetVirtualStorageInitialVolume(vs, network.Absolute(25))
		_ = n.SetVirtualStorageReset(vs, reset)
		fn, err := n.Freeze()
		if err != nil {
			t.Fatal(err)
		}
		return fn, vs
	}

	stepper := Timestepper{
		Start:    calendar.Date{Year: 2015, Month: 1, Day: 30},
		End:      calendar.Date{Year: 2015, Month: 2, Day: 3},
		StepDays: 1,
	}

	// Never resetting with non-negative factors: monotonically
	// non-increasing.
	fn, vs := build(network.ResetPolicy{Kind: network.ResetNever})
	cap, _ := runModel(t, fn, param.NewRegistry(), stepper)
	prev := 25.0
	for step := range cap.vsVols {
		got := cap.vsVols[step][vs]
		if got > prev+1e-12 {
			t.Fatalf("step %d: virtual storage rose from %g to %g", step, prev, got)
		}
		if want := 25 - 10*float64(step+1); math.Abs(got-want) > 1e-9 {
			t.Fatalf("step %d: virtual storage = %g, want %g", step, got, want)
		}
		prev = got
	}

	// Monthly reset on the 1st: the volume snaps back to 25 before that
	// step's draw.
	fn, vs = build(network.ResetPolicy{Kind: network.ResetMonthly, Day: 1})
	cap, _ = runModel(t, fn, param.NewRegistry(), stepper)
	// Steps: Jan 30, Jan 31, Feb 1, Feb 2, Feb 3.
	want := []float64{15, 5, 15, 5, -5}
	for step, w := range want {
		if got := cap.vsVols[step][vs]; math.Abs(got-w) > 1e-9 {
			t.Fatalf("step %d: virtual storage = %g, want %g", step, got, w)
		}
	}
}

func TestInfeasibleScenarioIsReportedNotFatal(t *testing.T) {
	n := network.NewNetwork()
	input, _ := n.AddInputNode("input", nil)
	_ = n.SetMaxFlow(input, network.ScalarValue(5))
	output, _ := n.AddOutputNode("output", nil)
	_ = n.SetMinFlow(output, network.ScalarValue(10))
	_, _ = n.Connect(input, output)
	fn, err := n.Freeze()
	if err != nil {
		t.Fatal(err)
	}

	stepper := Timestepper{
		Start:    calendar.Date{Year: 2015, Month: 1, Day: 1},
		End:      calendar.Date{Year: 2015, Month: 1, Day: 3},
		StepDays: 1,
	}
	driver, err := NewDriver(fn, param.NewRegistry(), stepper, ScenarioSet{}, simplexFactory, solver.Settings{})
	if err != nil {
		t.Fatal(err)
	}
	report, err := driver.Run(context.Background())
	if err != nil {
		t.Fatalf("run should aggregate, not fail: %v", err)
	}
	serr, ok := report.ScenarioErrors[0]
	if !ok {
		t.Fatal("expected scenario 0 to be reported failed")
	}
	if !errors.Is(serr, &pywrerr.Error{Kind: pywrerr.InfeasibleLP}) {
		t.Errorf("expected InfeasibleLP, got %v", serr)
	}
}

func TestAbortOnErrorStopsRun(t *testing.T) {
	n := network.NewNetwork()
	input, _ := n.AddInputNode("input", nil)
	_ = n.SetMaxFlow(input, network.ScalarValue(5))
	output, _ := n.AddOutputNode("output", nil)
	_ = n.SetMinFlow(output, network.ScalarValue(10))
	_, _ = n.Connect(input, output)
	fn, _ := n.Freeze()

	stepper := Timestepper{
		Start:    calendar.Date{Year: 2015, Month: 1, Day: 1},
		End:      calendar.Date{Year: 2015, Month: 1, Day: 3},
		StepDays: 1,
	}
	driver, err := NewDriver(fn, param.NewRegistry(), stepper, ScenarioSet{}, simplexFactory, solver.Settings{},
		WithAbortOnError(true))
	if err != nil {
		t.Fatal(err)
	}
	_, err = driver.Run(context.Background())
	if !errors.Is(err, &pywrerr.Error{Kind: pywrerr.InfeasibleLP}) {
		t.Errorf("expected the run to abort with InfeasibleLP, got %v", err)
	}
}

func TestCancellationStopsBetweenTimesteps(t *testing.T) {
	fn, _ := storageModel(t)
	token := &CancellationToken{}
	token.Cancel()

	stepper := Timestepper{
		Start:    calendar.Date{Year: 2015, Month: 1, Day: 1},
		End:      calendar.Date{Year: 2015, Month: 1, Day: 10},
		StepDays: 1,
	}
	driver, err := NewDriver(fn, param.NewRegistry(), stepper, ScenarioSet{}, simplexFactory, solver.Settings{},
		WithCancellation(token))
	if err != nil {
		t.Fatal(err)
	}
	_, err = driver.Run(context.Background())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

// scenarioCapture records per-scenario flows; scenarios save concurrently
// so it locks.
type scenarioCapture struct {
	mu    sync.Mutex
	flows map[ScenarioIdx][]float64 // per scenario, per step: output in-flow
	node  network.NodeIdx
}

func (c *scenarioCapture) Setup(*network.FrozenNetwork, []calendar.Timestep, ScenarioSet) error {
	return nil
}

func (c *scenarioCapture) Save(t calendar.Timestep, scenario ScenarioIdx, st *pywrstate.State) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flows[scenario] = append(c.flows[scenario], st.NodeInFlows[c.node])
	return nil
}

func (c *scenarioCapture) Finalise() error { return nil }

func TestScenariosSolveIndependentlyInParallel(t *testing.T) {
	registry := param.NewRegistry()
	demand, err := registry.AddParameter(param.NewArray2("demand", [][]float64{
		{3, 7}, {4, 8}, {5, 9},
	}))
	if err != nil {
		t.Fatal(err)
	}

	n := network.NewNetwork()
	input, _ := n.AddInputNode("input", nil)
	output, _ := n.AddOutputNode("output", nil)
	_ = n.SetMaxFlow(output, network.MetricValue(metric.ParameterValue(int(demand))))
	_ = n.SetCost(output, network.ScalarValue(-1))
	_, _ = n.Connect(input, output)
	fn, err := n.Freeze()
	if err != nil {
		t.Fatal(err)
	}

	rec := &scenarioCapture{flows: make(map[ScenarioIdx][]float64), node: output}
	stepper := Timestepper{
		Start:    calendar.Date{Year: 2015, Month: 1, Day: 1},
		End:      calendar.Date{Year: 2015, Month: 1, Day: 3},
		StepDays: 1,
	}
	driver, err := NewDriver(fn, registry, stepper,
		ScenarioSet{Groups: []ScenarioGroup{{Name: "demand", Size: 2}}},
		simplexFactory, solver.Settings{Parallel: true, Threads: 2},
		WithRecorder(rec))
	if err != nil {
		t.Fatal(err)
	}
	report, err := driver.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(report.ScenarioErrors) != 0 {
		t.Fatalf("scenario errors: %v", report.ScenarioErrors)
	}

	want := map[ScenarioIdx][]float64{0: {3, 4, 5}, 1: {7, 8, 9}}
	for s, ws := range want {
		got := rec.flows[s]
		if len(got) != len(ws) {
			t.Fatalf("scenario %d has %d saves, want %d", s, len(got), len(ws))
		}
		for i := range ws {
			if math.Abs(got[i]-ws[i]) > 1e-6 {
				t.Errorf("scenario %d step %d: flow = %g, want %g", s, i, got[i], ws[i])
			}
		}
	}
}
