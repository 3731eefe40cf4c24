package param

import "github.com/pywr-go/pywr-core-go/calendar"

// paramBase supplies the default Meta/Setup/Before behaviour shared by the
// built-in parameter families: no internal state and no per-step hook.
// Families that need either (e.g. AsymmetricSwitchIndex) override the
// relevant method.
type paramBase struct {
	meta Meta
}

func (b paramBase) Meta() Meta { return b.meta }

func (b paramBase) Setup(_ []calendar.Timestep, _ ScenarioIdx) (any, error) { return nil, nil }

func (b paramBase) Before() {}
