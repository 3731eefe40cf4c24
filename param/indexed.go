package param

import (
	"github.com/pywr-go/pywr-core-go/calendar"
	"github.com/pywr-go/pywr-core-go/network"
	"github.com/pywr-go/pywr-core-go/pywrerr"
	"github.com/pywr-go/pywr-core-go/pywrstate"
)

// IndexedArray selects one of its input parameters by the current value of
// an index parameter: the result is parameters[index].
type IndexedArray struct {
	paramBase
	index      IndexParameterIdx
	parameters []ParameterIdx
}

// NewIndexedArray builds a selector over scalar parameters.
func NewIndexedArray(name string, index IndexParameterIdx, parameters []ParameterIdx) *IndexedArray {
	return &IndexedArray{
		paramBase:  paramBase{meta: Meta{Name: name}},
		index:      index,
		parameters: append([]ParameterIdx(nil), parameters...),
	}
}

func (p *IndexedArray) Compute(_ calendar.Timestep, _ ScenarioIdx, _ *network.FrozenNetwork, st *pywrstate.State, _ *any) (float64, error) {
	sel, err := st.IndexParameterValue(int(p.index))
	if err != nil {
		return 0, err
	}
	if sel < 0 || sel >= len(p.parameters) {
		return 0, pywrerr.New(pywrerr.ParameterComputeFailed, p.meta.Name, "selector outside parameter list")
	}
	return st.ParameterValue(int(p.parameters[sel]))
}

func (p *IndexedArray) Dependencies() ([]ParameterIdx, []IndexParameterIdx, []MultiParameterIdx) {
	return append([]ParameterIdx(nil), p.parameters...), []IndexParameterIdx{p.index}, nil
}
