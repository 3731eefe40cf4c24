package param

import (
	"math"

	"github.com/pywr-go/pywr-core-go/calendar"
	"github.com/pywr-go/pywr-core-go/metric"
	"github.com/pywr-go/pywr-core-go/network"
	"github.com/pywr-go/pywr-core-go/pywrerr"
	"github.com/pywr-go/pywr-core-go/pywrstate"
)

// Max returns max(metric, threshold).
type Max struct {
	paramBase
	metric    metric.Metric
	threshold float64
}

// NewMax builds a parameter clamping a metric from below.
func NewMax(name string, m metric.Metric, threshold float64) *Max {
	return &Max{paramBase: paramBase{meta: Meta{Name: name}}, metric: m, threshold: threshold}
}

func (p *Max) Compute(_ calendar.Timestep, _ ScenarioIdx, nw *network.FrozenNetwork, st *pywrstate.State, _ *any) (float64, error) {
	v, err := p.metric.Value(nw.Bind(st), st)
	if err != nil {
		return 0, err
	}
	return math.Max(v, p.threshold), nil
}

func (p *Max) Dependencies() ([]ParameterIdx, []IndexParameterIdx, []MultiParameterIdx) {
	return metricDependencies(p.metric)
}

// Negative returns -metric.
type Negative struct {
	paramBase
	metric metric.Metric
}

// NewNegative builds a sign-flipping parameter.
func NewNegative(name string, m metric.Metric) *Negative {
	return &Negative{paramBase: paramBase{meta: Meta{Name: name}}, metric: m}
}

func (p *Negative) Compute(_ calendar.Timestep, _ ScenarioIdx, nw *network.FrozenNetwork, st *pywrstate.State, _ *any) (float64, error) {
	v, err := p.metric.Value(nw.Bind(st), st)
	if err != nil {
		return 0, err
	}
	return -v, nil
}

func (p *Negative) Dependencies() ([]ParameterIdx, []IndexParameterIdx, []MultiParameterIdx) {
	return metricDependencies(p.metric)
}

// Predicate is the comparison applied by Threshold.
type Predicate int

const (
	LT Predicate = iota
	LE
	EQ
	GE
	GT
)

// Apply evaluates the predicate against a threshold.
func (p Predicate) Apply(value, threshold float64) bool {
	switch p {
	case LT:
		return value < threshold
	case LE:
		return value <= threshold
	case EQ:
		return value == threshold
	case GE:
		return value >= threshold
	default:
		return value > threshold
	}
}

// Threshold compares a metric against a threshold and returns values[0]
// when the predicate is false, values[1] when true.
type Threshold struct {
	paramBase
	metric    metric.Metric
	threshold float64
	predicate Predicate
	values    [2]float64
}

// NewThreshold builds a two-valued switch on a metric comparison.
func NewThreshold(name string, m metric.Metric, threshold float64, predicate Predicate, values [2]float64) *Threshold {
	return &Threshold{
		paramBase: paramBase{meta: Meta{Name: name}},
		metric:    m,
		threshold: threshold,
		predicate: predicate,
		values:    values,
	}
}

func (p *Threshold) Compute(_ calendar.Timestep, _ ScenarioIdx, nw *network.FrozenNetwork, st *pywrstate.State, _ *any) (float64, error) {
	v, err := p.metric.Value(nw.Bind(st), st)
	if err != nil {
		return 0, pywrerr.Wrap(pywrerr.ParameterComputeFailed, p.meta.Name, err)
	}
	if p.predicate.Apply(v, p.threshold) {
		return p.values[1], nil
	}
	return p.values[0], nil
}

func (p *Threshold) Dependencies() ([]ParameterIdx, []IndexParameterIdx, []MultiParameterIdx) {
	return metricDependencies(p.metric)
}
