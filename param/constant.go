package param

import (
	"github.com/pywr-go/pywr-core-go/calendar"
	"github.com/pywr-go/pywr-core-go/network"
	"github.com/pywr-go/pywr-core-go/pywrerr"
	"github.com/pywr-go/pywr-core-go/pywrstate"
)

// Constant returns the same value at every timestep and scenario.
type Constant struct {
	paramBase
	value float64
}

// NewConstant builds a constant-valued parameter.
func NewConstant(name string, value float64) *Constant {
	return &Constant{paramBase: paramBase{meta: Meta{Name: name}}, value: value}
}

func (p *Constant) Compute(_ calendar.Timestep, _ ScenarioIdx, _ *network.FrozenNetwork, _ *pywrstate.State, _ *any) (float64, error) {
	return p.value, nil
}

// Vector returns values[t] for timestep index t.
type Vector struct {
	paramBase
	values []float64
}

// NewVector builds a parameter indexed by timestep ordinal.
func NewVector(name string, values []float64) *Vector {
	return &Vector{paramBase: paramBase{meta: Meta{Name: name}}, values: values}
}

func (p *Vector) Compute(t calendar.Timestep, _ ScenarioIdx, _ *network.FrozenNetwork, _ *pywrstate.State, _ *any) (float64, error) {
	if t.Index < 0 || t.Index >= len(p.values) {
		return 0, pywrerr.New(pywrerr.TimestepIndexOutOfRange, p.meta.Name, "timestep outside vector range")
	}
	return p.values[t.Index], nil
}

// Array1 returns values[t] for timestep index t. It is the one-dimensional
// array-backed counterpart of Vector, kept as a distinct type so callers
// that build from array data keep the array identity in their model
// definitions.
type Array1 struct {
	paramBase
	values []float64
}

// NewArray1 builds a one-dimensional array parameter indexed by timestep.
func NewArray1(name string, values []float64) *Array1 {
	return &Array1{paramBase: paramBase{meta: Meta{Name: name}}, values: values}
}

func (p *Array1) Compute(t calendar.Timestep, _ ScenarioIdx, _ *network.FrozenNetwork, _ *pywrstate.State, _ *any) (float64, error) {
	if t.Index < 0 || t.Index >= len(p.values) {
		return 0, pywrerr.New(pywrerr.TimestepIndexOutOfRange, p.meta.Name, "timestep outside array range")
	}
	return p.values[t.Index], nil
}

// Array2 returns values[t][scenario]: a two-dimensional table with one row
// per timestep and one column per scenario.
type Array2 struct {
	paramBase
	values [][]float64
}

// NewArray2 builds a two-dimensional array parameter indexed by timestep
// and scenario.
func NewArray2(name string, values [][]float64) *Array2 {
	return &Array2{paramBase: paramBase{meta: Meta{Name: name}}, values: values}
}

func (p *Array2) Compute(t calendar.Timestep, scenario ScenarioIdx, _ *network.FrozenNetwork, _ *pywrstate.State, _ *any) (float64, error) {
	if t.Index < 0 || t.Index >= len(p.values) {
		return 0, pywrerr.New(pywrerr.TimestepIndexOutOfRange, p.meta.Name, "timestep outside array range")
	}
	row := p.values[t.Index]
	if int(scenario) < 0 || int(scenario) >= len(row) {
		return 0, pywrerr.New(pywrerr.TimestepIndexOutOfRange, p.meta.Name, "scenario outside array range")
	}
	return row[scenario], nil
}

// IndexVector is the integer counterpart of Vector: an index parameter
// returning values[t]. Useful as the input side of switch and selector
// parameters.
type IndexVector struct {
	paramBase
	values []int
}

// NewIndexVector builds an index parameter indexed by timestep ordinal.
func NewIndexVector(name string, values []int) *IndexVector {
	return &IndexVector{paramBase: paramBase{meta: Meta{Name: name}}, values: values}
}

func (p *IndexVector) Compute(t calendar.Timestep, _ ScenarioIdx, _ *network.FrozenNetwork, _ *pywrstate.State, _ *any) (int, error) {
	if t.Index < 0 || t.Index >= len(p.values) {
		return 0, pywrerr.New(pywrerr.TimestepIndexOutOfRange, p.meta.Name, "timestep outside vector range")
	}
	return p.values[t.Index], nil
}
