package param

import (
	"github.com/pywr-go/pywr-core-go/calendar"
	"github.com/pywr-go/pywr-core-go/network"
	"github.com/pywr-go/pywr-core-go/pywrerr"
	"github.com/pywr-go/pywr-core-go/pywrstate"
)

// AsymmetricSwitchIndex is a stateful latch over two index parameters: it
// switches from 0 to 1 when the "on" input is non-zero and from 1 back to 0
// when the "off" input is non-zero, holding its previous value otherwise.
// The initial value is 0. Its own previous value lives in the per-scenario
// internal slot, so the parameter depends only on its two inputs.
type AsymmetricSwitchIndex struct {
	paramBase
	on  IndexParameterIdx
	off IndexParameterIdx
}

// NewAsymmetricSwitchIndex builds the latch from its on/off inputs.
func NewAsymmetricSwitchIndex(name string, on, off IndexParameterIdx) *AsymmetricSwitchIndex {
	return &AsymmetricSwitchIndex{paramBase: paramBase{meta: Meta{Name: name}}, on: on, off: off}
}

func (p *AsymmetricSwitchIndex) Setup(_ []calendar.Timestep, _ ScenarioIdx) (any, error) {
	return int(0), nil
}

func (p *AsymmetricSwitchIndex) Compute(_ calendar.Timestep, _ ScenarioIdx, _ *network.FrozenNetwork, st *pywrstate.State, internal *any) (int, error) {
	prev, ok := (*internal).(int)
	if !ok {
		return 0, pywrerr.New(pywrerr.ParameterComputeFailed, p.meta.Name, "switch internal state missing")
	}

	on, err := st.IndexParameterValue(int(p.on))
	if err != nil {
		return 0, err
	}
	off, err := st.IndexParameterValue(int(p.off))
	if err != nil {
		return 0, err
	}

	current := prev
	if prev == 0 {
		if on != 0 {
			current = 1
		}
	} else if off != 0 {
		current = 0
	}

	*internal = current
	return current, nil
}

func (p *AsymmetricSwitchIndex) Dependencies() ([]ParameterIdx, []IndexParameterIdx, []MultiParameterIdx) {
	return nil, []IndexParameterIdx{p.on, p.off}, nil
}
