// Network is the build-phase mutable graph: nodes, edges, aggregated
// nodes/storage, and virtual storage are added here, then Freeze locks the
// topology and returns a read-only *FrozenNetwork for simulation.
package network

import "github.com/pywr-go/pywr-core-go/pywrerr"

// Network is the mutable, build-phase graph. Create with NewNetwork, add
// entities, then call Freeze to obtain a *FrozenNetwork for simulation.
type Network struct {
	nodes          *registry[Node]
	edges          []Edge
	aggregated     *registry[AggregatedNode]
	aggregatedStor *registry[AggregatedStorageNode]
	virtualStorage *registry[VirtualStorage]
}

// NewNetwork creates an empty, mutable network.
func NewNetwork() *Network {
	return &Network{
		nodes:          newRegistry[Node]("node"),
		aggregated:     newRegistry[AggregatedNode]("aggregated node"),
		aggregatedStor: newRegistry[AggregatedStorageNode]("aggregated storage node"),
		virtualStorage: newRegistry[VirtualStorage]("virtual storage"),
	}
}

func (n *Network) addNode(name string, subName *string, kind NodeKind) (NodeIdx, error) {
	idx, err := n.nodes.add(name, subName, newNode(name, subName, kind))
	return NodeIdx(idx), err
}

// AddInputNode adds a source node (a node with no required mass balance).
func (n *Network) AddInputNode(name string, subName *string) (NodeIdx, error) {
	return n.addNode(name, subName, Input)
}

// AddOutputNode adds a sink node.
func (n *Network) AddOutputNode(name string, subName *string) (NodeIdx, error) {
	return n.addNode(name, subName, Output)
}

// AddLinkNode adds a pass-through node subject to mass balance.
func (n *Network) AddLinkNode(name string, subName *string) (NodeIdx, error) {
	return n.addNode(name, subName, Link)
}

// AddStorageNode adds a reservoir node. Its InitialVolume must be set via
// SetInitialVolume before Freeze, or Freeze fails with MissingInitialVolume.
func (n *Network) AddStorageNode(name string, subName *string) (NodeIdx, error) {
	return n.addNode(name, subName, Storage)
}

// Connect adds a directed edge from -> to. Self-loops and dangling node
// references are rejected.
func (n *Network) Connect(from, to NodeIdx) (EdgeIdx, error) {
	fromNode, err := n.nodes.get(int(from))
	if err != nil {
		return 0, pywrerr.New(pywrerr.NotFound, "", "connect: from node not found")
	}
	toNode, err := n.nodes.get(int(to))
	if err != nil {
		return 0, pywrerr.New(pywrerr.NotFound, "", "connect: to node not found")
	}
	if from == to {
		return 0, pywrerr.New(pywrerr.InvalidEdge, fromNode.Name, "edge would create a self-loop")
	}

	idx := EdgeIdx(len(n.edges))
	n.edges = append(n.edges, Edge{From: int(from), To: int(to)})

	fromNode.OutEdges = append(fromNode.OutEdges, int(idx))
	toNode.InEdges = append(toNode.InEdges, int(idx))
	if err := n.nodes.set(int(from), fromNode); err != nil {
		return 0, err
	}
	if err := n.nodes.set(int(to), toNode); err != nil {
		return 0, err
	}
	return idx, nil
}

// AddAggregatedNode groups member nodes under an optional fixed flow ratio
// and optional aggregate min/max flow.
func (n *Network) AddAggregatedNode(name string, subName *string, members []NodeIdx, factors *Factors) (AggregatedNodeIdx, error) {
	if factors != nil && len(factors.Values) != len(members) {
		return 0, pywrerr.New(pywrerr.InvalidEdge, name, "factor count must match member count")
	}
	ids := make([]int, len(members))
	for i, m := range members {
		if _, err := n.nodes.get(int(m)); err != nil {
			return 0, err
		}
		ids[i] = int(m)
	}
	idx, err := n.aggregated.add(name, subName, AggregatedNode{
		Name: name, SubName: subName, Members: ids, Factors: factors,
		MinFlow: NoneValue(), MaxFlow: NoneValue(),
	})
	return AggregatedNodeIdx(idx), err
}

// AddAggregatedStorageNode groups Storage members whose summed volume
// defines this node's volume; every member must be a Storage node.
func (n *Network) AddAggregatedStorageNode(name string, subName *string, members []NodeIdx) (AggregatedStorageNodeIdx, error) {
	ids := make([]int, len(members))
	for i, m := range members {
		node, err := n.nodes.get(int(m))
		if err != nil {
			return 0, err
		}
		if node.Kind != Storage {
			return 0, pywrerr.New(pywrerr.StorageOnNonStorageNode, node.Name, "aggregated storage member must be a storage node")
		}
		ids[i] = int(m)
	}
	idx, err := n.aggregatedStor.add(name, subName, AggregatedStorageNode{Name: name, SubName: subName, Members: ids})
	return AggregatedStorageNodeIdx(idx), err
}

// AddVirtualStorageNode adds a pseudo-storage tracking a linear combination
// of real member flows. factors may be nil (each member then has factor 1).
// InitialVolume must be set via SetVirtualStorageInitialVolume before
// Freeze.
func (n *Network) AddVirtualStorageNode(name string, subName *string, members []NodeIdx, factors []float64) (VirtualStorageIdx, error) {
	if factors != nil && len(factors) != len(members) {
		return 0, pywrerr.New(pywrerr.InvalidEdge, name, "factor count must match member count")
	}
	ids := make([]int, len(members))
	for i, m := range members {
		if _, err := n.nodes.get(int(m)); err != nil {
			return 0, err
		}
		ids[i] = int(m)
	}
	idx, err := n.virtualStorage.add(name, subName, VirtualStorage{
		Name: name, SubName: subName, Members: ids, Factors: factors,
		MinVolume: ScalarValue(0), MaxVolume: NoneValue(), Cost: ScalarValue(0),
		Reset: ResetPolicy{Kind: ResetNever},
	})
	return VirtualStorageIdx(idx), err
}

// --- setters -------------------------------------------------------------

func (n *Network) SetMinFlow(idx NodeIdx, cv ConstraintValue) error {
	node, err := n.nodes.get(int(idx))
	if err != nil {
		return err
	}
	node.MinFlow = cv
	return n.nodes.set(int(idx), node)
}

func (n *Network) SetMaxFlow(idx NodeIdx, cv ConstraintValue) error {
	node, err := n.nodes.get(int(idx))
	if err != nil {
		return err
	}
	node.MaxFlow = cv
	return n.nodes.set(int(idx), node)
}

func (n *Network) SetCost(idx NodeIdx, cv ConstraintValue) error {
	node, err := n.nodes.get(int(idx))
	if err != nil {
		return err
	}
	node.Cost = cv
	return n.nodes.set(int(idx), node)
}

func (n *Network) SetMinVolume(idx NodeIdx, cv ConstraintValue) error {
	node, err := n.nodes.get(int(idx))
	if err != nil {
		return err
	}
	if node.Kind != Storage {
		return pywrerr.New(pywrerr.StorageOnNonStorageNode, node.Name, "min_volume only applies to storage nodes")
	}
	node.MinVolume = cv
	return n.nodes.set(int(idx), node)
}

func (n *Network) SetMaxVolume(idx NodeIdx, cv ConstraintValue) error {
	node, err := n.nodes.get(int(idx))
	if err != nil {
		return err
	}
	if node.Kind != Storage {
		return pywrerr.New(pywrerr.StorageOnNonStorageNode, node.Name, "max_volume only applies to storage nodes")
	}
	node.MaxVolume = cv
	return n.nodes.set(int(idx), node)
}

func (n *Network) SetInitialVolume(idx NodeIdx, iv InitialVolume) error {
	node, err := n.nodes.get(int(idx))
	if err != nil {
		return err
	}
	if node.Kind != Storage {
		return pywrerr.New(pywrerr.StorageOnNonStorageNode, node.Name, "initial_volume only applies to storage nodes")
	}
	node.InitialVolume = &iv
	return n.nodes.set(int(idx), node)
}

func (n *Network) SetAggregatedMinFlow(idx AggregatedNodeIdx, cv ConstraintValue) error {
	a, err := n.aggregated.get(int(idx))
	if err != nil {
		return err
	}
	a.MinFlow = cv
	return n.aggregated.set(int(idx), a)
}

func (n *Network) SetAggregatedMaxFlow(idx AggregatedNodeIdx, cv ConstraintValue) error {
	a, err := n.aggregated.get(int(idx))
	if err != nil {
		return err
	}
	a.MaxFlow = cv
	return n.aggregated.set(int(idx), a)
}

func (n *Network) SetVirtualStorageInitialVolume(idx VirtualStorageIdx, iv InitialVolume) error {
	v, err := n.virtualStorage.get(int(idx))
	if err != nil {
		return err
	}
	v.InitialVolume = iv
	v.initialVolumeSet = true
	return n.virtualStorage.set(int(idx), v)
}

func (n *Network) SetVirtualStorageMinVolume(idx VirtualStorageIdx, cv ConstraintValue) error {
	v, err := n.virtualStorage.get(int(idx))
	if err != nil {
		return err
	}
	v.MinVolume = cv
	return n.virtualStorage.set(int(idx), v)
}

func (n *Network) SetVirtualStorageMaxVolume(idx VirtualStorageIdx, cv ConstraintValue) error {
	v, err := n.virtualStorage.get(int(idx))
	if err != nil {
		return err
	}
	v.MaxVolume = cv
	return n.virtualStorage.set(int(idx), v)
}

func (n *Network) SetVirtualStorageCost(idx VirtualStorageIdx, cv ConstraintValue) error {
	v, err := n.virtualStorage.get(int(idx))
	if err != nil {
		return err
	}
	v.Cost = cv
	return n.virtualStorage.set(int(idx), v)
}

func (n *Network) SetVirtualStorageReset(idx VirtualStorageIdx, reset ResetPolicy) error {
	v, err := n.virtualStorage.get(int(idx))
	if err != nil {
		return err
	}
	v.Reset = reset
	return n.virtualStorage.set(int(idx), v)
}

// --- lookups ---------------------------------------------------------------

func (n *Network) NodeIndexByName(name string, subName *string) (NodeIdx, error) {
	idx, err := n.nodes.indexByName(name, subName)
	return NodeIdx(idx), err
}

func (n *Network) VirtualStorageIndexByName(name string, subName *string) (VirtualStorageIdx, error) {
	idx, err := n.virtualStorage.indexByName(name, subName)
	return VirtualStorageIdx(idx), err
}

// Freeze validates that every storage and virtual-storage node has an
// initial volume set, then returns a read-only FrozenNetwork. No further
// node/edge mutation is possible after this call — FrozenNetwork simply
// has no Add*/Set* methods.
func (n *Network) Freeze() (*FrozenNetwork, error) {
	for i := 0; i < n.nodes.len(); i++ {
		node, _ := n.nodes.get(i)
		if node.Kind == Storage && node.InitialVolume == nil {
			return nil, pywrerr.New(pywrerr.MissingInitialVolume, node.Name, "storage node has no initial volume")
		}
	}
	for i := 0; i < n.virtualStorage.len(); i++ {
		vs, _ := n.virtualStorage.get(i)
		if !vs.initialVolumeSet {
			return nil, pywrerr.New(pywrerr.MissingInitialVolume, vs.Name, "virtual storage has no initial volume")
		}
	}

	return &FrozenNetwork{
		nodes:                append([]Node(nil), n.nodes.items...),
		nodesByName:          copyNameIndex(n.nodes.byName),
		edges:                append([]Edge(nil), n.edges...),
		aggregated:           append([]AggregatedNode(nil), n.aggregated.items...),
		aggregatedByName:     copyNameIndex(n.aggregated.byName),
		aggregatedStor:       append([]AggregatedStorageNode(nil), n.aggregatedStor.items...),
		aggregatedStorByName: copyNameIndex(n.aggregatedStor.byName),
		virtualStorage:       append([]VirtualStorage(nil), n.virtualStorage.items...),
		virtualStorageByName: copyNameIndex(n.virtualStorage.byName),
	}, nil
}

func copyNameIndex(m map[nameKey]int) map[nameKey]int {
	out := make(map[nameKey]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
