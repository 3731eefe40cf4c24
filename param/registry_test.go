package param

import (
	"errors"
	"testing"

	"github.com/pywr-go/pywr-core-go/calendar"
	"github.com/pywr-go/pywr-core-go/metric"
	"github.com/pywr-go/pywr-core-go/network"
	"github.com/pywr-go/pywr-core-go/pywrerr"
	"github.com/pywr-go/pywr-core-go/pywrstate"
)

func TestRegistryDuplicateName(t *testing.T) {
	r := NewRegistry()
	if _, err := r.AddParameter(NewConstant("p", 1)); err != nil {
		t.Fatal(err)
	}
	_, err := r.AddParameter(NewConstant("p", 2))
	if !errors.Is(err, &pywrerr.Error{Kind: pywrerr.DuplicateName}) {
		t.Errorf("expected DuplicateName, got %v", err)
	}

	// Kinds have separate namespaces.
	if _, err := r.AddIndexParameter(NewIndexVector("p", []int{0})); err != nil {
		t.Errorf("index parameter may reuse a scalar name, got %v", err)
	}
}

func TestRegistryOrderRespectsDependencies(t *testing.T) {
	r := NewRegistry()

	// reader depends on source via a ParameterValue metric; the switch
	// depends on two index vectors.
	source, _ := r.AddParameter(NewConstant("source", 1))
	reader, _ := r.AddParameter(NewNegative("reader", metric.ParameterValue(int(source))))
	onIdx, _ := r.AddIndexParameter(NewIndexVector("on", []int{1}))
	offIdx, _ := r.AddIndexParameter(NewIndexVector("off", []int{0}))
	sw, _ := r.AddIndexParameter(NewAsymmetricSwitchIndex("switch", onIdx, offIdx))

	if err := r.Freeze(); err != nil {
		t.Fatal(err)
	}

	pos := make(map[EvalStep]int)
	for i, s := range r.Order() {
		pos[s] = i
	}
	if len(pos) != 5 {
		t.Fatalf("order has %d entries, want 5", len(pos))
	}
	if pos[EvalStep{EvalScalar, int(reader)}] < pos[EvalStep{EvalScalar, int(source)}] {
		t.Error("reader ordered before its source")
	}
	if pos[EvalStep{EvalIndex, int(sw)}] < pos[EvalStep{EvalIndex, int(onIdx)}] ||
		pos[EvalStep{EvalIndex, int(sw)}] < pos[EvalStep{EvalIndex, int(offIdx)}] {
		t.Error("switch ordered before its inputs")
	}
}

func TestRegistryOrderIsDeterministic(t *testing.T) {
	build := func() *Registry {
		r := NewRegistry()
		a, _ := r.AddParameter(NewConstant("a", 1))
		_, _ = r.AddParameter(NewNegative("b", metric.ParameterValue(int(a))))
		_, _ = r.AddParameter(NewConstant("c", 3))
		_, _ = r.AddIndexParameter(NewIndexVector("i", []int{0}))
		if err := r.Freeze(); err != nil {
			t.Fatal(err)
		}
		return r
	}

	first := build().Order()
	second := build().Order()
	if len(first) != len(second) {
		t.Fatal("order lengths differ")
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("order diverges at %d: %v vs %v", i, first[i], second[i])
		}
	}
}

// cyclicParam is a minimal hand-rolled parameter declaring an explicit
// dependency, used to build cycles the built-in families cannot express.
type cyclicParam struct {
	paramBase
	dep ParameterIdx
}

func (p *cyclicParam) Compute(_ calendar.Timestep, _ ScenarioIdx, _ *network.FrozenNetwork, st *pywrstate.State, _ *any) (float64, error) {
	return st.ParameterValue(int(p.dep))
}

func (p *cyclicParam) Dependencies() ([]ParameterIdx, []IndexParameterIdx, []MultiParameterIdx) {
	return []ParameterIdx{p.dep}, nil, nil
}

func TestRegistryDetectsCycle(t *testing.T) {
	r := NewRegistry()
	// Parameter 0 depends on 1, parameter 1 depends on 0.
	_, _ = r.AddParameter(&cyclicParam{paramBase: paramBase{meta: Meta{Name: "x"}}, dep: 1})
	_, _ = r.AddParameter(&cyclicParam{paramBase: paramBase{meta: Meta{Name: "y"}}, dep: 0})

	err := r.Freeze()
	if !errors.Is(err, &pywrerr.Error{Kind: pywrerr.CyclicDependency}) {
		t.Errorf("expected CyclicDependency, got %v", err)
	}
}

func TestRegistryRejectsSelfReference(t *testing.T) {
	r := NewRegistry()
	_, _ = r.AddParameter(&cyclicParam{paramBase: paramBase{meta: Meta{Name: "self"}}, dep: 0})

	err := r.Freeze()
	if !errors.Is(err, &pywrerr.Error{Kind: pywrerr.CyclicDependency}) {
		t.Errorf("expected CyclicDependency, got %v", err)
	}
}

func TestRegistryRejectsDanglingDependency(t *testing.T) {
	r := NewRegistry()
	_, _ = r.AddParameter(&cyclicParam{paramBase: paramBase{meta: Meta{Name: "dangling"}}, dep: 42})

	err := r.Freeze()
	if !errors.Is(err, &pywrerr.Error{Kind: pywrerr.NotFound}) {
		t.Errorf("expected NotFound, got %v", err)
	}
}
