// Package lp translates a frozen network plus the current per-scenario
// state into the coefficient matrix, row bounds and objective of a linear
// program with a fixed layout: one column per edge, one row per constraint.
// The structure is assembled once per run; every timestep only the row
// bounds and objective coefficients are rewritten in place.
package lp

import (
	"math"

	"github.com/pywr-go/pywr-core-go/metric"
	"github.com/pywr-go/pywr-core-go/network"
	"github.com/pywr-go/pywr-core-go/pywrstate"
)

// RowKind tags each row with the constraint family it encodes, so Refresh
// knows how to recompute its bounds.
type RowKind int

const (
	// RowMassBalance forces in-flow to equal out-flow on a link node.
	RowMassBalance RowKind = iota
	// RowNodeFlow bounds a flow node's total throughput.
	RowNodeFlow
	// RowStorage bounds a storage node's net inflow so the volume stays
	// within [min_volume, max_volume] after integration.
	RowStorage
	// RowAggregated bounds the summed flow of an aggregated node's members.
	RowAggregated
	// RowFactor pins two members of an aggregated node to a fixed flow
	// ratio.
	RowFactor
)

// Row is one constraint: a sparse linear expression over edge columns with
// current lower/upper bounds. Cols and Coefs are fixed at build time; Lo
// and Hi are rewritten by Refresh.
type Row struct {
	Kind   RowKind
	Entity int // node or aggregated-node handle the bounds derive from; member position for factor rows
	Cols   []int
	Coefs  []float64
	Lo     float64
	Hi     float64
}

// RowStructure is the static part of a Row handed to solver backends at
// initialisation.
type RowStructure struct {
	Cols  []int
	Coefs []float64
}

// Structure is the fixed shape of the LP: the column count and every row's
// sparse coefficient pattern. It never changes during a run.
type Structure struct {
	NumCols int
	Rows    []RowStructure
}

// Builder owns the row layout for one frozen network and rewrites bounds
// and objective in place each step.
type Builder struct {
	fn   *network.FrozenNetwork
	rows []Row
	obj  []float64

	nodeInEdges  [][]int
	nodeOutEdges [][]int
}

// NewBuilder assembles the static row layout for the network: mass-balance
// rows for links, flow-bound rows for every connected flow node, a net
// inflow row per storage node, and bound plus factor rows per aggregated
// node.
func NewBuilder(fn *network.FrozenNetwork) (*Builder, error) {
	b := &Builder{
		fn:           fn,
		obj:          make([]float64, fn.NumEdges()),
		nodeInEdges:  make([][]int, fn.NumNodes()),
		nodeOutEdges: make([][]int, fn.NumNodes()),
	}

	for i := 0; i < fn.NumNodes(); i++ {
		node, err := fn.Node(network.NodeIdx(i))
		if err != nil {
			return nil, err
		}
		b.nodeInEdges[i] = node.InEdges
		b.nodeOutEdges[i] = node.OutEdges

		switch node.Kind {
		case network.Link:
			if len(node.InEdges) > 0 && len(node.OutEdges) > 0 {
				cols, coefs := balanceExpr(node)
				b.rows = append(b.rows, Row{Kind: RowMassBalance, Entity: i, Cols: cols, Coefs: coefs})
			}
			if cols := flowCols(node); len(cols) > 0 {
				b.rows = append(b.rows, Row{Kind: RowNodeFlow, Entity: i, Cols: cols, Coefs: ones(len(cols))})
			}
		case network.Input, network.Output:
			if cols := flowCols(node); len(cols) > 0 {
				b.rows = append(b.rows, Row{Kind: RowNodeFlow, Entity: i, Cols: cols, Coefs: ones(len(cols))})
			}
		case network.Storage:
			cols, coefs := balanceExpr(node)
			if len(cols) > 0 {
				b.rows = append(b.rows, Row{Kind: RowStorage, Entity: i, Cols: cols, Coefs: coefs})
			}
		}
	}

	for i := 0; i < fn.NumAggregatedNodes(); i++ {
		agg, err := fn.AggregatedNode(network.AggregatedNodeIdx(i))
		if err != nil {
			return nil, err
		}
		var cols []int
		for _, m := range agg.Members {
			node, err := fn.Node(network.NodeIdx(m))
			if err != nil {
				return nil, err
			}
			cols = append(cols, flowCols(node)...)
		}
		if len(cols) > 0 {
			b.rows = append(b.rows, Row{Kind: RowAggregated, Entity: i, Cols: cols, Coefs: ones(len(cols))})
		}

		if agg.Factors != nil && len(agg.Members) > 1 {
			factorRows, err := b.factorRows(agg)
			if err != nil {
				return nil, err
			}
			b.rows = append(b.rows, factorRows...)
		}
	}

	return b, nil
}

// factorRows encodes a k-member factor constraint as k-1 equality rows
// against member 0: Ratio factors pin flow_j*f_0 = flow_0*f_j, Proportion
// factors pin flow_j = p_j * total flow.
func (b *Builder) factorRows(agg network.AggregatedNode) ([]Row, error) {
	memberCols := make([][]int, len(agg.Members))
	for i, m := range agg.Members {
		node, err := b.fn.Node(network.NodeIdx(m))
		if err != nil {
			return nil, err
		}
		memberCols[i] = flowCols(node)
	}

	var rows []Row
	for j := 1; j < len(agg.Members); j++ {
		var cols []int
		var coefs []float64
		switch agg.Factors.Kind {
		case network.FactorRatio:
			// flow_0 * f_j - flow_j * f_0 = 0
			for _, c := range memberCols[0] {
				cols = append(cols, c)
				coefs = append(coefs, agg.Factors.Values[j])
			}
			for _, c := range memberCols[j] {
				cols = append(cols, c)
				coefs = append(coefs, -agg.Factors.Values[0])
			}
		case network.FactorProportion:
			// flow_j - p_j * sum(flow_i) = 0
			p := agg.Factors.Values[j]
			for i, mc := range memberCols {
				coef := -p
				if i == j {
					coef = 1 - p
				}
				for _, c := range mc {
					cols = append(cols, c)
					coefs = append(coefs, coef)
				}
			}
		}
		rows = append(rows, Row{Kind: RowFactor, Entity: j, Cols: cols, Coefs: coefs})
	}
	return rows, nil
}

// Structure returns the static LP shape for solver initialisation.
func (b *Builder) Structure() Structure {
	s := Structure{NumCols: b.fn.NumEdges(), Rows: make([]RowStructure, len(b.rows))}
	for i, r := range b.rows {
		s.Rows[i] = RowStructure{Cols: r.Cols, Coefs: r.Coefs}
	}
	return s
}

// Rows exposes the current rows, bounds included. Valid after Refresh.
func (b *Builder) Rows() []Row { return b.rows }

// Objective exposes the current objective coefficients. Valid after
// Refresh.
func (b *Builder) Objective() []float64 { return b.obj }

// NodeInEdges returns the per-node incoming edge lists, in handle order.
func (b *Builder) NodeInEdges() [][]int { return b.nodeInEdges }

// NodeOutEdges returns the per-node outgoing edge lists, in handle order.
func (b *Builder) NodeOutEdges() [][]int { return b.nodeOutEdges }

// Refresh rewrites every row's bounds and the objective coefficients from
// the current state, without touching the coefficient pattern. dt is the
// timestep length in the same time unit as flows.
func (b *Builder) Refresh(st *pywrstate.State, dt float64) error {
	nr := b.fn.Bind(st)

	for i := range b.rows {
		row := &b.rows[i]
		switch row.Kind {
		case RowMassBalance, RowFactor:
			row.Lo, row.Hi = 0, 0
		case RowNodeFlow:
			node, err := b.fn.Node(network.NodeIdx(row.Entity))
			if err != nil {
				return err
			}
			if row.Lo, err = node.MinFlow.ResolveLower(nr, st); err != nil {
				return err
			}
			if row.Hi, err = node.MaxFlow.ResolveUpper(nr, st); err != nil {
				return err
			}
		case RowStorage:
			node, err := b.fn.Node(network.NodeIdx(row.Entity))
			if err != nil {
				return err
			}
			vol, err := st.NodeVolume(row.Entity)
			if err != nil {
				return err
			}
			minV, err := node.MinVolume.ResolveLower(nr, st)
			if err != nil {
				return err
			}
			maxV, err := node.MaxVolume.ResolveUpper(nr, st)
			if err != nil {
				return err
			}
			row.Lo = boundOrInf(minV, vol, dt, -1)
			row.Hi = boundOrInf(maxV, vol, dt, 1)
		case RowAggregated:
			agg, err := b.fn.AggregatedNode(network.AggregatedNodeIdx(row.Entity))
			if err != nil {
				return err
			}
			if row.Lo, err = agg.MinFlow.ResolveLower(nr, st); err != nil {
				return err
			}
			if row.Hi, err = agg.MaxFlow.ResolveUpper(nr, st); err != nil {
				return err
			}
		}
	}

	return b.refreshObjective(nr, st)
}

func (b *Builder) refreshObjective(nr metric.NetworkReader, st *pywrstate.State) error {
	for i := range b.obj {
		b.obj[i] = 0
	}

	for i := 0; i < b.fn.NumNodes(); i++ {
		node, err := b.fn.Node(network.NodeIdx(i))
		if err != nil {
			return err
		}
		cost, err := resolveCost(node.Cost, nr, st)
		if err != nil {
			return err
		}
		if cost != 0 {
			b.addNodeCost(node, cost)
		}
	}

	// Virtual storage cost steers the flows it tracks, scaled by each
	// member's coupling factor.
	for i := 0; i < b.fn.NumVirtualStorage(); i++ {
		vs, err := b.fn.VirtualStorage(network.VirtualStorageIdx(i))
		if err != nil {
			return err
		}
		cost, err := resolveCost(vs.Cost, nr, st)
		if err != nil {
			return err
		}
		if cost == 0 {
			continue
		}
		for j, m := range vs.Members {
			node, err := b.fn.Node(network.NodeIdx(m))
			if err != nil {
				return err
			}
			b.addNodeCost(node, cost*vs.Factor(j))
		}
	}

	return nil
}

// addNodeCost distributes a node's cost over its edge columns: sources pay
// on the way out, sinks on the way in, links half on each side, and
// storage earns on refill what it pays on withdrawal.
func (b *Builder) addNodeCost(node network.Node, cost float64) {
	switch node.Kind {
	case network.Input:
		for _, e := range node.OutEdges {
			b.obj[e] += cost
		}
	case network.Output:
		for _, e := range node.InEdges {
			b.obj[e] += cost
		}
	case network.Link:
		for _, e := range node.InEdges {
			b.obj[e] += cost / 2
		}
		for _, e := range node.OutEdges {
			b.obj[e] += cost / 2
		}
	case network.Storage:
		for _, e := range node.OutEdges {
			b.obj[e] += cost
		}
		for _, e := range node.InEdges {
			b.obj[e] -= cost
		}
	}
}

func resolveCost(cv network.ConstraintValue, nr metric.NetworkReader, st *pywrstate.State) (float64, error) {
	if cv.Kind == network.CVNone {
		return 0, nil
	}
	return cv.ResolveUpper(nr, st)
}

// boundOrInf converts a volume bound into a net-inflow bound over one
// step: (bound - volume) / dt, passing infinities through unchanged.
func boundOrInf(bound, vol, dt float64, sign float64) float64 {
	if math.IsInf(bound, int(sign)) {
		return math.Inf(int(sign))
	}
	return (bound - vol) / dt
}

// flowCols picks the edge columns that measure a node's throughput: the
// outgoing side for sources, the incoming side otherwise.
func flowCols(node network.Node) []int {
	if node.Kind == network.Input {
		return node.OutEdges
	}
	if len(node.InEdges) > 0 {
		return node.InEdges
	}
	return node.OutEdges
}

// balanceExpr builds the net-inflow expression: +1 per incoming edge, -1
// per outgoing edge.
func balanceExpr(node network.Node) ([]int, []float64) {
	cols := make([]int, 0, len(node.InEdges)+len(node.OutEdges))
	coefs := make([]float64, 0, cap(cols))
	for _, e := range node.InEdges {
		cols = append(cols, e)
		coefs = append(coefs, 1)
	}
	for _, e := range node.OutEdges {
		cols = append(cols, e)
		coefs = append(coefs, -1)
	}
	return cols, coefs
}

func ones(n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = 1
	}
	return v
}
