// Package sim drives the simulation: it owns the timestepper and scenario
// set, evaluates parameters in their frozen order, refreshes and solves the
// LP each step, integrates storage between steps, and feeds recorders.
package sim

import (
	"github.com/pywr-go/pywr-core-go/calendar"
	"github.com/pywr-go/pywr-core-go/param"
	"github.com/pywr-go/pywr-core-go/pywrerr"
)

// ScenarioIdx identifies one scenario within a run.
type ScenarioIdx = param.ScenarioIdx

// Timestep is re-exported for callers assembling runs.
type Timestep = calendar.Timestep

// Timestepper generates the run's timesteps: StepDays-long steps from
// Start to End inclusive. Date arithmetic comes from the injected
// Calendar; nil defaults to Gregorian.
type Timestepper struct {
	Start    calendar.Date
	End      calendar.Date
	StepDays int
	Calendar calendar.Calendar
}

// Timesteps materialises the step sequence. The End date is included when
// the step length lands on it exactly; a partial trailing step is not
// generated.
func (ts Timestepper) Timesteps() ([]calendar.Timestep, error) {
	if ts.StepDays <= 0 {
		return nil, pywrerr.New(pywrerr.TimestepIndexOutOfRange, "", "step length must be positive")
	}
	cal := ts.Calendar
	if cal == nil {
		cal = calendar.Gregorian{}
	}

	var steps []calendar.Timestep
	d := ts.Start
	for i := 0; !dateAfter(d, ts.End); i++ {
		steps = append(steps, calendar.Timestep{Index: i, Date: d, Dt: float64(ts.StepDays)})
		d = cal.AddDays(d, ts.StepDays)
	}
	if len(steps) == 0 {
		return nil, pywrerr.New(pywrerr.TimestepIndexOutOfRange, "", "empty timestep range")
	}
	return steps, nil
}

func dateAfter(a, b calendar.Date) bool {
	if a.Year != b.Year {
		return a.Year > b.Year
	}
	if a.Month != b.Month {
		return a.Month > b.Month
	}
	return a.Day > b.Day
}

// ScenarioGroup is one labelled axis of the scenario space.
type ScenarioGroup struct {
	Name string
	Size int
}

// ScenarioSet is the Cartesian product of its groups. An empty set yields
// a single default scenario.
type ScenarioSet struct {
	Groups []ScenarioGroup
}

// Len returns the total scenario count.
func (s ScenarioSet) Len() int {
	n := 1
	for _, g := range s.Groups {
		if g.Size > 0 {
			n *= g.Size
		}
	}
	return n
}

// Indices decomposes a flat scenario index into per-group indices, in
// group order.
func (s ScenarioSet) Indices(scenario ScenarioIdx) []int {
	out := make([]int, len(s.Groups))
	rem := int(scenario)
	for i := len(s.Groups) - 1; i >= 0; i-- {
		size := s.Groups[i].Size
		if size <= 0 {
			size = 1
		}
		out[i] = rem % size
		rem /= size
	}
	return out
}
