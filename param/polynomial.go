package param

import (
	"github.com/pywr-go/pywr-core-go/calendar"
	"github.com/pywr-go/pywr-core-go/metric"
	"github.com/pywr-go/pywr-core-go/network"
	"github.com/pywr-go/pywr-core-go/pywrstate"
)

// Polynomial1D evaluates sum(a_i * x^i) of a metric x, with coefficients
// given in ascending order of power.
type Polynomial1D struct {
	paramBase
	metric metric.Metric
	coeffs []float64
}

// NewPolynomial1D builds a polynomial of the given metric. coefficients[0]
// is the constant term.
func NewPolynomial1D(name string, m metric.Metric, coefficients []float64) *Polynomial1D {
	return &Polynomial1D{
		paramBase: paramBase{meta: Meta{Name: name}},
		metric:    m,
		coeffs:    append([]float64(nil), coefficients...),
	}
}

func (p *Polynomial1D) Compute(_ calendar.Timestep, _ ScenarioIdx, nw *network.FrozenNetwork, st *pywrstate.State, _ *any) (float64, error) {
	x, err := p.metric.Value(nw.Bind(st), st)
	if err != nil {
		return 0, err
	}
	// Horner's method.
	var y float64
	for i := len(p.coeffs) - 1; i >= 0; i-- {
		y = y*x + p.coeffs[i]
	}
	return y, nil
}

func (p *Polynomial1D) Dependencies() ([]ParameterIdx, []IndexParameterIdx, []MultiParameterIdx) {
	return metricDependencies(p.metric)
}

// metricDependencies walks the given metrics and collects every scalar and
// multi-value parameter they reference, so the evaluation order can place
// the reader after its inputs.
func metricDependencies(metrics ...metric.Metric) ([]ParameterIdx, []IndexParameterIdx, []MultiParameterIdx) {
	var params []ParameterIdx
	var multi []MultiParameterIdx
	for _, m := range metrics {
		m.Walk(func(inner metric.Metric) {
			if idx, ok := inner.AsParameterValue(); ok {
				params = append(params, ParameterIdx(idx))
			}
			if idx, _, ok := inner.AsMultiParameterValue(); ok {
				multi = append(multi, MultiParameterIdx(idx))
			}
		})
	}
	return params, nil, multi
}
