// Package param implements the parameter evaluation system: the Parameter
// capability interface, a dependency-ordered evaluation schedule computed
// once at freeze, and the built-in parameter families (constants, arrays,
// calendar profiles, control curves, aggregations, switches).
package param

import (
	"github.com/pywr-go/pywr-core-go/calendar"
	"github.com/pywr-go/pywr-core-go/network"
	"github.com/pywr-go/pywr-core-go/pywrstate"
)

// ScenarioIdx identifies one scenario within a run's scenario set. Defined
// here, not in sim, so that Parameter's Setup/Compute signatures don't force
// param to import sim (sim imports param, not the reverse) — sim re-exports
// this as sim.ScenarioIdx via a type alias.
type ScenarioIdx int

// ParameterIdx is a stable handle into a Registry's scalar-parameter arena.
type ParameterIdx int

// IndexParameterIdx is a stable handle into a Registry's index-parameter
// arena.
type IndexParameterIdx int

// MultiParameterIdx is a stable handle into a Registry's multi-value-
// parameter arena.
type MultiParameterIdx int

// Meta is the metadata every parameter carries.
type Meta struct {
	Name string
}

// Dependencies is the optional capability a parameter implements to declare
// edges into the DAG: the scalar, index, and multi-value parameters its
// Compute call reads via State.ParameterValue/MultiParameterValue. A
// parameter with no parameter-valued inputs (e.g. Constant) need not
// implement this.
type Dependencies interface {
	Dependencies() (params []ParameterIdx, indexParams []IndexParameterIdx, multiParams []MultiParameterIdx)
}

// base is the capability shared by all three parameter kinds: metadata,
// per-(parameter,scenario) setup, and a before-compute hook.
type base interface {
	Meta() Meta
	// Setup is called once per (parameter, scenario) at Run start; it may
	// perform I/O and returns an opaque internal blob threaded into every
	// Compute call for that scenario.
	Setup(ts []calendar.Timestep, scenario ScenarioIdx) (any, error)
	// Before runs at the start of every timestep, before Compute, for every
	// scenario.
	Before()
}

// Parameter computes a scalar (float64) value each step.
type Parameter interface {
	base
	Compute(t calendar.Timestep, scenario ScenarioIdx, nw *network.FrozenNetwork, st *pywrstate.State, internal *any) (float64, error)
}

// IndexParameter computes an integer value each step.
type IndexParameter interface {
	base
	Compute(t calendar.Timestep, scenario ScenarioIdx, nw *network.FrozenNetwork, st *pywrstate.State, internal *any) (int, error)
}

// MultiParameter computes a named bundle of float64 values each step.
type MultiParameter interface {
	base
	Compute(t calendar.Timestep, scenario ScenarioIdx, nw *network.FrozenNetwork, st *pywrstate.State, internal *any) (map[string]float64, error)
}
