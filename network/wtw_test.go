package network

import "testing"

func TestWaterTreatmentWorksTopology(t *testing.T) {
	n := NewNetwork()
	wtw, err := n.AddWaterTreatmentWorks("wtw1", WaterTreatmentWorksOptions{
		MaxFlow:    ScalarValue(10),
		LossFactor: ScalarValue(0.1),
	})
	if err != nil {
		t.Fatal(err)
	}

	if wtw.Loss == nil || wtw.LossAggregatedNode == nil {
		t.Fatal("non-zero loss factor should create the loss node and aggregated node")
	}

	fn, err := n.Freeze()
	if err != nil {
		t.Fatal(err)
	}
	// net, net_soft_min_flow, net_above_soft_min_flow, loss.
	if fn.NumNodes() != 4 {
		t.Errorf("got %d nodes, want 4", fn.NumNodes())
	}
	// net -> soft_min, net -> above_soft_min.
	if fn.NumEdges() != 2 {
		t.Errorf("got %d internal edges, want 2", fn.NumEdges())
	}
	if fn.NumAggregatedNodes() != 1 {
		t.Errorf("got %d aggregated nodes, want 1", fn.NumAggregatedNodes())
	}

	agg, err := fn.AggregatedNode(*wtw.LossAggregatedNode)
	if err != nil {
		t.Fatal(err)
	}
	if agg.Factors == nil || agg.Factors.Kind != FactorRatio {
		t.Fatal("loss aggregated node should carry ratio factors")
	}
	if agg.Factors.Values[0] != 1 || agg.Factors.Values[1] != 0.1 {
		t.Errorf("factors = %v, want [1 0.1]", agg.Factors.Values)
	}

	ins := wtw.InputConnectors()
	if len(ins) != 2 || ins[0] != wtw.Net || ins[1] != *wtw.Loss {
		t.Errorf("input connectors = %v, want [net loss]", ins)
	}
	outs := wtw.OutputConnectors()
	if len(outs) != 2 || outs[0] != wtw.SoftMinFlow || outs[1] != wtw.AboveSoftMinFlow {
		t.Errorf("output connectors = %v, want the two soft-min branches", outs)
	}
}

func TestWaterTreatmentWorksZeroLossFactor(t *testing.T) {
	n := NewNetwork()
	wtw, err := n.AddWaterTreatmentWorks("wtw1", WaterTreatmentWorksOptions{
		LossFactor: ScalarValue(0),
	})
	if err != nil {
		t.Fatal(err)
	}
	if wtw.Loss != nil {
		t.Error("zero loss factor should not create a loss node")
	}
	if len(wtw.InputConnectors()) != 1 {
		t.Error("without a loss node only net should accept inflow")
	}
}

func TestWaterTreatmentWorksRejectsMetricLossFactor(t *testing.T) {
	n := NewNetwork()
	// A handle-less placeholder metric is enough to exercise the rejection.
	_, err := n.AddWaterTreatmentWorks("wtw1", WaterTreatmentWorksOptions{
		LossFactor: ConstraintValue{Kind: CVMetric},
	})
	if err == nil {
		t.Error("metric loss factors are not supported and must be rejected")
	}
}
