package param

import (
	"math"

	"github.com/pywr-go/pywr-core-go/calendar"
	"github.com/pywr-go/pywr-core-go/metric"
	"github.com/pywr-go/pywr-core-go/network"
	"github.com/pywr-go/pywr-core-go/pywrerr"
	"github.com/pywr-go/pywr-core-go/pywrstate"
)

// AggFunc folds a set of scalar inputs into one value.
type AggFunc int

const (
	AggSum AggFunc = iota
	AggMean
	AggMax
	AggMin
	AggProduct
)

// Aggregated folds the values of its input metrics with an AggFunc.
type Aggregated struct {
	paramBase
	metrics []metric.Metric
	fn      AggFunc
}

// NewAggregated builds an aggregation over the given metrics. Parameter
// inputs are expressed as ParameterValue metrics.
func NewAggregated(name string, metrics []metric.Metric, fn AggFunc) *Aggregated {
	return &Aggregated{
		paramBase: paramBase{meta: Meta{Name: name}},
		metrics:   append([]metric.Metric(nil), metrics...),
		fn:        fn,
	}
}

func (p *Aggregated) Compute(_ calendar.Timestep, _ ScenarioIdx, nw *network.FrozenNetwork, st *pywrstate.State, _ *any) (float64, error) {
	if len(p.metrics) == 0 {
		return 0, pywrerr.New(pywrerr.ParameterComputeFailed, p.meta.Name, "aggregation over no inputs")
	}
	bound := nw.Bind(st)
	var acc float64
	for i, m := range p.metrics {
		v, err := m.Value(bound, st)
		if err != nil {
			return 0, err
		}
		if i == 0 {
			acc = v
			continue
		}
		switch p.fn {
		case AggSum, AggMean:
			acc += v
		case AggMax:
			acc = math.Max(acc, v)
		case AggMin:
			acc = math.Min(acc, v)
		case AggProduct:
			acc *= v
		}
	}
	if p.fn == AggMean {
		acc /= float64(len(p.metrics))
	}
	return acc, nil
}

func (p *Aggregated) Dependencies() ([]ParameterIdx, []IndexParameterIdx, []MultiParameterIdx) {
	return metricDependencies(p.metrics...)
}

// AggIndexFunc folds a set of integer inputs into one value.
type AggIndexFunc int

const (
	AggIndexSum AggIndexFunc = iota
	AggIndexProduct
	AggIndexMin
	AggIndexMax
	AggIndexAny
	AggIndexAll
)

// AggregatedIndex folds the values of its input index parameters with an
// AggIndexFunc. Any yields 1 when at least one input is non-zero; All
// yields 1 when every input is non-zero.
type AggregatedIndex struct {
	paramBase
	inputs []IndexParameterIdx
	fn     AggIndexFunc
}

// NewAggregatedIndex builds an integer aggregation over index parameters.
func NewAggregatedIndex(name string, inputs []IndexParameterIdx, fn AggIndexFunc) *AggregatedIndex {
	return &AggregatedIndex{
		paramBase: paramBase{meta: Meta{Name: name}},
		inputs:    append([]IndexParameterIdx(nil), inputs...),
		fn:        fn,
	}
}

func (p *AggregatedIndex) Compute(_ calendar.Timestep, _ ScenarioIdx, _ *network.FrozenNetwork, st *pywrstate.State, _ *any) (int, error) {
	if len(p.inputs) == 0 {
		return 0, pywrerr.New(pywrerr.ParameterComputeFailed, p.meta.Name, "aggregation over no inputs")
	}
	switch p.fn {
	case AggIndexAny:
		for _, in := range p.inputs {
			v, err := st.IndexParameterValue(int(in))
			if err != nil {
				return 0, err
			}
			if v != 0 {
				return 1, nil
			}
		}
		return 0, nil
	case AggIndexAll:
		for _, in := range p.inputs {
			v, err := st.IndexParameterValue(int(in))
			if err != nil {
				return 0, err
			}
			if v == 0 {
				return 0, nil
			}
		}
		return 1, nil
	}

	var acc int
	for i, in := range p.inputs {
		v, err := st.IndexParameterValue(int(in))
		if err != nil {
			return 0, err
		}
		if i == 0 {
			acc = v
			continue
		}
		switch p.fn {
		case AggIndexSum:
			acc += v
		case AggIndexProduct:
			acc *= v
		case AggIndexMin:
			if v < acc {
				acc = v
			}
		case AggIndexMax:
			if v > acc {
				acc = v
			}
		}
	}
	return acc, nil
}

func (p *AggregatedIndex) Dependencies() ([]ParameterIdx, []IndexParameterIdx, []MultiParameterIdx) {
	return nil, append([]IndexParameterIdx(nil), p.inputs...), nil
}
