package pywrstate

import (
	"errors"
	"testing"

	"github.com/pywr-go/pywr-core-go/pywrerr"
)

func TestCommitLPResultRecomputesNodeFlows(t *testing.T) {
	// Two nodes, two edges: node 0 -> node 1 twice over.
	st := New(2, 2, 0, 0, 0, 0)
	inEdges := [][]int{nil, {0, 1}}
	outEdges := [][]int{{0, 1}, nil}

	if err := st.CommitLPResult([]float64{3, 4}, inEdges, outEdges); err != nil {
		t.Fatalf("CommitLPResult: %v", err)
	}

	if st.EdgeFlows[0] != 3 || st.EdgeFlows[1] != 4 {
		t.Errorf("edge flows = %v, want [3 4]", st.EdgeFlows)
	}
	if got := st.NodeOutFlows[0]; got != 7 {
		t.Errorf("node 0 out flow = %g, want 7", got)
	}
	if got := st.NodeInFlows[1]; got != 7 {
		t.Errorf("node 1 in flow = %g, want 7", got)
	}
	if st.NodeInFlows[0] != 0 || st.NodeOutFlows[1] != 0 {
		t.Error("unconnected sides should stay zero")
	}
}

func TestCommitLPResultRejectsWrongLength(t *testing.T) {
	st := New(1, 2, 0, 0, 0, 0)
	err := st.CommitLPResult([]float64{1}, [][]int{nil}, [][]int{nil})
	if !errors.Is(err, &pywrerr.Error{Kind: pywrerr.SolverBackendError}) {
		t.Errorf("expected SolverBackendError, got %v", err)
	}
}

func TestProportionalVolumeZeroMax(t *testing.T) {
	st := New(1, 0, 1, 0, 0, 0)
	if err := st.SetNodeVolume(0, 5); err != nil {
		t.Fatal(err)
	}

	got, err := st.NodeProportionalVolume(0, 0)
	if err != nil {
		t.Fatalf("NodeProportionalVolume: %v", err)
	}
	if got != 0 {
		t.Errorf("proportional volume with zero max = %g, want 0", got)
	}

	got, err = st.NodeProportionalVolume(0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if got != 0.5 {
		t.Errorf("proportional volume = %g, want 0.5", got)
	}
}

func TestMultiParameterValueLookup(t *testing.T) {
	st := New(0, 0, 0, 0, 0, 1)
	if _, err := st.MultiParameterValue(0, "a"); err == nil {
		t.Error("expected error before any values are set")
	}

	if err := st.SetMultiParameterValue(0, map[string]float64{"a": 1.5}); err != nil {
		t.Fatal(err)
	}
	got, err := st.MultiParameterValue(0, "a")
	if err != nil || got != 1.5 {
		t.Errorf("MultiParameterValue = %g, %v; want 1.5, nil", got, err)
	}
	if _, err := st.MultiParameterValue(0, "missing"); !errors.Is(err, &pywrerr.Error{Kind: pywrerr.NotFound}) {
		t.Errorf("expected NotFound for missing key, got %v", err)
	}
}

func TestIndexBoundsChecked(t *testing.T) {
	st := New(1, 1, 1, 1, 1, 1)
	if _, err := st.EdgeFlow(5); err == nil {
		t.Error("expected out-of-range edge read to fail")
	}
	if err := st.SetParameterValue(-1, 0); err == nil {
		t.Error("expected negative parameter write to fail")
	}
}
