package network

import "github.com/pywr-go/pywr-core-go/pywrerr"

// WaterTreatmentWorksOptions configures AddWaterTreatmentWorks. Zero-value
// ConstraintValue fields default to None (unbounded) / zero cost, matching
// the optional fields of the original WaterTreatmentWorks schema node.
type WaterTreatmentWorksOptions struct {
	MinFlow         ConstraintValue
	MaxFlow         ConstraintValue
	Cost            ConstraintValue
	SoftMinFlow     ConstraintValue // applied as the net_soft_min_flow branch's max_flow
	SoftMinFlowCost ConstraintValue
	// LossFactor, if Kind != CVNone and not a zero scalar, creates a loss
	// output node and an aggregated node enforcing
	// loss_flow = LossFactor * net_flow.
	LossFactor ConstraintValue
}

// WaterTreatmentWorksNodes is the set of internal handles created by
// AddWaterTreatmentWorks.
type WaterTreatmentWorksNodes struct {
	Net                NodeIdx
	SoftMinFlow        NodeIdx
	AboveSoftMinFlow   NodeIdx
	Loss               *NodeIdx
	LossAggregatedNode *AggregatedNodeIdx
}

// InputConnectors lists the nodes an upstream supply should connect to:
// the net node, plus the loss node when one was created (gross inflow
// splits between them).
func (w WaterTreatmentWorksNodes) InputConnectors() []NodeIdx {
	conns := []NodeIdx{w.Net}
	if w.Loss != nil {
		conns = append(conns, *w.Loss)
	}
	return conns
}

// OutputConnectors lists the nodes downstream demand should connect from:
// the two branches the net flow splits into.
func (w WaterTreatmentWorksNodes) OutputConnectors() []NodeIdx {
	return []NodeIdx{w.SoftMinFlow, w.AboveSoftMinFlow}
}

func strPtr(s string) *string { return &s }

// AddWaterTreatmentWorks adds a composite node representing a works with a
// net flow split into a "soft minimum" branch (a preferred flow up to
// soft_min_flow, typically steered there by a negative cost) and an
// "above soft minimum" branch carrying the remainder, plus an optional
// loss output whose flow is pinned to loss_factor * net flow via an
// aggregated-node ratio.
func (n *Network) AddWaterTreatmentWorks(name string, opts WaterTreatmentWorksOptions) (WaterTreatmentWorksNodes, error) {
	net, err := n.AddLinkNode(name, strPtr("net"))
	if err != nil {
		return WaterTreatmentWorksNodes{}, err
	}
	softMin, err := n.AddLinkNode(name, strPtr("net_soft_min_flow"))
	if err != nil {
		return WaterTreatmentWorksNodes{}, err
	}
	aboveSoftMin, err := n.AddLinkNode(name, strPtr("net_above_soft_min_flow"))
	if err != nil {
		return WaterTreatmentWorksNodes{}, err
	}

	if _, err := n.Connect(net, softMin); err != nil {
		return WaterTreatmentWorksNodes{}, err
	}
	if _, err := n.Connect(net, aboveSoftMin); err != nil {
		return WaterTreatmentWorksNodes{}, err
	}

	result := WaterTreatmentWorksNodes{Net: net, SoftMinFlow: softMin, AboveSoftMinFlow: aboveSoftMin}

	if opts.Cost.Kind != CVNone {
		if err := n.SetCost(net, opts.Cost); err != nil {
			return result, err
		}
	}
	if opts.MaxFlow.Kind != CVNone {
		if err := n.SetMaxFlow(net, opts.MaxFlow); err != nil {
			return result, err
		}
	}
	if opts.MinFlow.Kind != CVNone {
		if err := n.SetMinFlow(net, opts.MinFlow); err != nil {
			return result, err
		}
	}
	if opts.SoftMinFlowCost.Kind != CVNone {
		if err := n.SetCost(softMin, opts.SoftMinFlowCost); err != nil {
			return result, err
		}
	}
	if opts.SoftMinFlow.Kind != CVNone {
		if err := n.SetMaxFlow(softMin, opts.SoftMinFlow); err != nil {
			return result, err
		}
	}

	if opts.LossFactor.Kind == CVMetric {
		return result, pywrerr.New(pywrerr.InvalidEdge, name,
			"water treatment works loss factor must be a constant scalar; aggregated-node factors are fixed at freeze time")
	}
	if opts.LossFactor.Kind == CVScalar && opts.LossFactor.Scalar != 0 {
		loss, err := n.AddOutputNode(name, strPtr("loss"))
		if err != nil {
			return result, err
		}
		agg, err := n.AddAggregatedNode(name, strPtr("agg"), []NodeIdx{net, loss}, &Factors{
			Kind:   FactorRatio,
			Values: []float64{1.0, opts.LossFactor.Scalar},
		})
		if err != nil {
			return result, err
		}
		result.Loss = &loss
		result.LossAggregatedNode = &agg
	}

	return result, nil
}
