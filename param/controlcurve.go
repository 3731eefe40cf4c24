package param

import (
	"sort"

	"github.com/pywr-go/pywr-core-go/calendar"
	"github.com/pywr-go/pywr-core-go/metric"
	"github.com/pywr-go/pywr-core-go/network"
	"github.com/pywr-go/pywr-core-go/pywrerr"
	"github.com/pywr-go/pywr-core-go/pywrstate"
)

// interpolate maps value linearly from [lowerBound, upperBound] onto
// [lowerValue, upperValue], clamping outside the bounds. Degenerate
// zero-width bounds yield lowerValue.
func interpolate(value, lowerBound, upperBound, lowerValue, upperValue float64) float64 {
	if value <= lowerBound {
		return lowerValue
	}
	if value >= upperBound {
		return upperValue
	}
	if upperBound-lowerBound < 1e-12 {
		return lowerValue
	}
	return lowerValue + (upperValue-lowerValue)*(value-lowerBound)/(upperBound-lowerBound)
}

// controlCurveBase carries the pieces every control-curve family shares: the
// storage metric x and the curve metrics, evaluated fresh each step and
// sorted descending before region lookup.
type controlCurveBase struct {
	paramBase
	storage metric.Metric
	curves  []metric.Metric
}

// evaluate returns x and the descending-sorted curve values.
func (c *controlCurveBase) evaluate(nw *network.FrozenNetwork, st *pywrstate.State) (float64, []float64, error) {
	bound := nw.Bind(st)
	x, err := c.storage.Value(bound, st)
	if err != nil {
		return 0, nil, err
	}
	cs := make([]float64, len(c.curves))
	for i, m := range c.curves {
		cs[i], err = m.Value(bound, st)
		if err != nil {
			return 0, nil, err
		}
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(cs)))
	return x, cs, nil
}

func (c *controlCurveBase) Dependencies() ([]ParameterIdx, []IndexParameterIdx, []MultiParameterIdx) {
	return metricDependencies(append([]metric.Metric{c.storage}, c.curves...)...)
}

// ControlCurve is the piecewise-step family: values[0] above the first
// curve, values[i] between curves i and i-1, values[k] below the last.
type ControlCurve struct {
	controlCurveBase
	values []float64
}

// NewControlCurve builds a step function of a storage metric. values must
// have one more entry than curves.
func NewControlCurve(name string, storage metric.Metric, curves []metric.Metric, values []float64) (*ControlCurve, error) {
	if len(values) != len(curves)+1 {
		return nil, pywrerr.New(pywrerr.ParameterComputeFailed, name, "control curve needs len(curves)+1 values")
	}
	return &ControlCurve{
		controlCurveBase: controlCurveBase{
			paramBase: paramBase{meta: Meta{Name: name}},
			storage:   storage,
			curves:    append([]metric.Metric(nil), curves...),
		},
		values: append([]float64(nil), values...),
	}, nil
}

func (p *ControlCurve) Compute(_ calendar.Timestep, _ ScenarioIdx, nw *network.FrozenNetwork, st *pywrstate.State, _ *any) (float64, error) {
	x, cs, err := p.evaluate(nw, st)
	if err != nil {
		return 0, err
	}
	for i, c := range cs {
		if x >= c {
			return p.values[i], nil
		}
	}
	return p.values[len(cs)], nil
}

// ControlCurveIndex returns the zero-based region the storage metric falls
// in: 0 above the first curve, k below the last of k curves.
type ControlCurveIndex struct {
	controlCurveBase
}

// NewControlCurveIndex builds a region selector over a storage metric.
func NewControlCurveIndex(name string, storage metric.Metric, curves []metric.Metric) *ControlCurveIndex {
	return &ControlCurveIndex{
		controlCurveBase: controlCurveBase{
			paramBase: paramBase{meta: Meta{Name: name}},
			storage:   storage,
			curves:    append([]metric.Metric(nil), curves...),
		},
	}
}

func (p *ControlCurveIndex) Compute(_ calendar.Timestep, _ ScenarioIdx, nw *network.FrozenNetwork, st *pywrstate.State, _ *any) (int, error) {
	x, cs, err := p.evaluate(nw, st)
	if err != nil {
		return 0, err
	}
	for i, c := range cs {
		if x >= c {
			return i, nil
		}
	}
	return len(cs), nil
}

// ControlCurveInterpolated interpolates linearly between values anchored at
// the breakpoints [maximum, curve_1, ..., curve_k, minimum]; values must
// have len(curves)+2 entries, one per breakpoint.
type ControlCurveInterpolated struct {
	controlCurveBase
	values  []float64
	maximum float64
	minimum float64
}

// NewControlCurveInterpolated builds a linearly interpolated function of a
// storage metric with breakpoints at 1.0 and 0.0 by default.
func NewControlCurveInterpolated(name string, storage metric.Metric, curves []metric.Metric, values []float64) (*ControlCurveInterpolated, error) {
	if len(values) != len(curves)+2 {
		return nil, pywrerr.New(pywrerr.ParameterComputeFailed, name, "interpolated control curve needs len(curves)+2 values")
	}
	return &ControlCurveInterpolated{
		controlCurveBase: controlCurveBase{
			paramBase: paramBase{meta: Meta{Name: name}},
			storage:   storage,
			curves:    append([]metric.Metric(nil), curves...),
		},
		values:  append([]float64(nil), values...),
		maximum: 1.0,
		minimum: 0.0,
	}, nil
}

// SetBounds overrides the outermost breakpoints (default 1.0 and 0.0).
func (p *ControlCurveInterpolated) SetBounds(minimum, maximum float64) {
	p.minimum = minimum
	p.maximum = maximum
}

func (p *ControlCurveInterpolated) Compute(_ calendar.Timestep, _ ScenarioIdx, nw *network.FrozenNetwork, st *pywrstate.State, _ *any) (float64, error) {
	x, cs, err := p.evaluate(nw, st)
	if err != nil {
		return 0, err
	}
	upperBound := p.maximum
	for i, c := range cs {
		if x >= c {
			return interpolate(x, c, upperBound, p.values[i+1], p.values[i]), nil
		}
		upperBound = c
	}
	k := len(cs)
	return interpolate(x, p.minimum, upperBound, p.values[k+1], p.values[k]), nil
}

// ControlCurvePiecewiseInterpolated interpolates within each region
// independently: pair i supplies the value at the region's upper break and
// at its lower break, so the function may be discontinuous across curves.
type ControlCurvePiecewiseInterpolated struct {
	controlCurveBase
	values  [][2]float64
	maximum float64
	minimum float64
}

// NewControlCurvePiecewiseInterpolated builds a per-region interpolated
// function. values must have one [upper, lower] pair per region, i.e.
// len(curves)+1 pairs.
func NewControlCurvePiecewiseInterpolated(name string, storage metric.Metric, curves []metric.Metric, values [][2]float64, maximum, minimum float64) (*ControlCurvePiecewiseInterpolated, error) {
	if len(values) != len(curves)+1 {
		return nil, pywrerr.New(pywrerr.ParameterComputeFailed, name, "piecewise control curve needs len(curves)+1 value pairs")
	}
	return &ControlCurvePiecewiseInterpolated{
		controlCurveBase: controlCurveBase{
			paramBase: paramBase{meta: Meta{Name: name}},
			storage:   storage,
			curves:    append([]metric.Metric(nil), curves...),
		},
		values:  append([][2]float64(nil), values...),
		maximum: maximum,
		minimum: minimum,
	}, nil
}

func (p *ControlCurvePiecewiseInterpolated) Compute(_ calendar.Timestep, _ ScenarioIdx, nw *network.FrozenNetwork, st *pywrstate.State, _ *any) (float64, error) {
	x, cs, err := p.evaluate(nw, st)
	if err != nil {
		return 0, err
	}
	upperBound := p.maximum
	for i, c := range cs {
		if x >= c {
			return interpolate(x, c, upperBound, p.values[i][1], p.values[i][0]), nil
		}
		upperBound = c
	}
	k := len(cs)
	return interpolate(x, p.minimum, upperBound, p.values[k][1], p.values[k][0]), nil
}
