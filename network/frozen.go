package network

import (
	"github.com/pywr-go/pywr-core-go/metric"
	"github.com/pywr-go/pywr-core-go/pywrerr"
)

// FrozenNetwork is the immutable, post-Freeze network topology. It has no
// Add*/Set* methods: once minted, its handles, edges, and aggregate
// membership never change for the lifetime of a simulation.
type FrozenNetwork struct {
	nodes       []Node
	nodesByName map[nameKey]int
	edges       []Edge

	aggregated       []AggregatedNode
	aggregatedByName map[nameKey]int

	aggregatedStor       []AggregatedStorageNode
	aggregatedStorByName map[nameKey]int

	virtualStorage       []VirtualStorage
	virtualStorageByName map[nameKey]int
}

func (fn *FrozenNetwork) NumNodes() int            { return len(fn.nodes) }
func (fn *FrozenNetwork) NumEdges() int            { return len(fn.edges) }
func (fn *FrozenNetwork) NumAggregatedNodes() int  { return len(fn.aggregated) }
func (fn *FrozenNetwork) NumAggregatedStorage() int { return len(fn.aggregatedStor) }
func (fn *FrozenNetwork) NumVirtualStorage() int   { return len(fn.virtualStorage) }

func (fn *FrozenNetwork) Node(idx NodeIdx) (Node, error) {
	if int(idx) < 0 || int(idx) >= len(fn.nodes) {
		return Node{}, pywrerr.New(pywrerr.NotFound, "", "invalid node index")
	}
	return fn.nodes[idx], nil
}

func (fn *FrozenNetwork) Edge(idx EdgeIdx) (Edge, error) {
	if int(idx) < 0 || int(idx) >= len(fn.edges) {
		return Edge{}, pywrerr.New(pywrerr.NotFound, "", "invalid edge index")
	}
	return fn.edges[idx], nil
}

func (fn *FrozenNetwork) AggregatedNode(idx AggregatedNodeIdx) (AggregatedNode, error) {
	if int(idx) < 0 || int(idx) >= len(fn.aggregated) {
		return AggregatedNode{}, pywrerr.New(pywrerr.NotFound, "", "invalid aggregated node index")
	}
	return fn.aggregated[idx], nil
}

func (fn *FrozenNetwork) AggregatedStorageNode(idx AggregatedStorageNodeIdx) (AggregatedStorageNode, error) {
	if int(idx) < 0 || int(idx) >= len(fn.aggregatedStor) {
		return AggregatedStorageNode{}, pywrerr.New(pywrerr.NotFound, "", "invalid aggregated storage node index")
	}
	return fn.aggregatedStor[idx], nil
}

func (fn *FrozenNetwork) VirtualStorage(idx VirtualStorageIdx) (VirtualStorage, error) {
	if int(idx) < 0 || int(idx) >= len(fn.virtualStorage) {
		return VirtualStorage{}, pywrerr.New(pywrerr.NotFound, "", "invalid virtual storage index")
	}
	return fn.virtualStorage[idx], nil
}

func (fn *FrozenNetwork) NodeIndexByName(name string, subName *string) (NodeIdx, error) {
	idx, ok := fn.nodesByName[key(name, subName)]
	if !ok {
		return 0, pywrerr.New(pywrerr.NotFound, name, "unknown node")
	}
	return NodeIdx(idx), nil
}

func (fn *FrozenNetwork) VirtualStorageIndexByName(name string, subName *string) (VirtualStorageIdx, error) {
	idx, ok := fn.virtualStorageByName[key(name, subName)]
	if !ok {
		return 0, pywrerr.New(pywrerr.NotFound, name, "unknown virtual storage")
	}
	return VirtualStorageIdx(idx), nil
}

// boundNetwork adapts a FrozenNetwork plus a specific step's State into a
// metric.NetworkReader. It is constructed fresh by Bind for each step: a
// node's ConstraintValue may itself be a Metric that needs a NetworkReader,
// so boundNetwork passes itself back in as that reader, letting
// network-derived bounds recursively reference other network-derived
// bounds without network importing pywrstate or param.
type boundNetwork struct {
	fn *FrozenNetwork
	st metric.StateReader
}

// Bind produces a metric.NetworkReader scoped to one step's State. Callers
// (the lp builder, the simulation driver) call this once per step.
func (fn *FrozenNetwork) Bind(st metric.StateReader) metric.NetworkReader {
	return &boundNetwork{fn: fn, st: st}
}

func (b *boundNetwork) AggregatedNodeMembers(idx int) ([]int, error) {
	a, err := b.fn.AggregatedNode(AggregatedNodeIdx(idx))
	if err != nil {
		return nil, err
	}
	return a.Members, nil
}

func (b *boundNetwork) AggregatedStorageMembers(idx int) ([]int, error) {
	a, err := b.fn.AggregatedStorageNode(AggregatedStorageNodeIdx(idx))
	if err != nil {
		return nil, err
	}
	return a.Members, nil
}

func (b *boundNetwork) VirtualStorageMaxVolume(idx int) (float64, error) {
	vs, err := b.fn.VirtualStorage(VirtualStorageIdx(idx))
	if err != nil {
		return 0, err
	}
	return vs.MaxVolume.ResolveUpper(b, b.st)
}

func (b *boundNetwork) NodeCurrentMaxFlow(idx int) (float64, error) {
	node, err := b.fn.Node(NodeIdx(idx))
	if err != nil {
		return 0, err
	}
	return node.MaxFlow.ResolveUpper(b, b.st)
}

func (b *boundNetwork) NodeCurrentMaxVolume(idx int) (float64, error) {
	node, err := b.fn.Node(NodeIdx(idx))
	if err != nil {
		return 0, err
	}
	if node.Kind != Storage {
		return 0, pywrerr.New(pywrerr.StorageOnNonStorageNode, node.Name, "max_volume only applies to storage nodes")
	}
	return node.MaxVolume.ResolveUpper(b, b.st)
}
