// Package pywrstate holds the per-scenario mutable record that the kernel
// reads and writes every timestep: edge flows, node flows, storage volumes,
// and parameter outputs. It is deliberately independent of the network and
// parameter packages — a State is addressed purely by dense integer
// handles, never by name or back-pointer.
package pywrstate

import "github.com/pywr-go/pywr-core-go/pywrerr"

// State is one scenario's mutable snapshot, created at Run start and
// discarded at its end.
type State struct {
	EdgeFlows    []float64
	NodeInFlows  []float64
	NodeOutFlows []float64
	Volumes      []float64

	VirtualStorageVolumes []float64

	ParamValues      []float64
	IndexParamValues []int
	MultiParamValues []map[string]float64

	// ParamInternal/IndexParamInternal/MultiParamInternal each hold one
	// opaque per-parameter-scenario slot, one slice per parameter kind. Only
	// the parameter that owns a slot ever type-asserts it; State never
	// inspects the contents.
	ParamInternal      []any
	IndexParamInternal []any
	MultiParamInternal []any
}

// New allocates a State sized for the given entity counts.
func New(numNodes, numEdges, numVirtualStorage, numParams, numIndexParams, numMultiParams int) *State {
	return &State{
		EdgeFlows:             make([]float64, numEdges),
		NodeInFlows:           make([]float64, numNodes),
		NodeOutFlows:          make([]float64, numNodes),
		Volumes:               make([]float64, numNodes),
		VirtualStorageVolumes: make([]float64, numVirtualStorage),
		ParamValues:           make([]float64, numParams),
		IndexParamValues:      make([]int, numIndexParams),
		MultiParamValues:      make([]map[string]float64, numMultiParams),
		ParamInternal:         make([]any, numParams),
		IndexParamInternal:    make([]any, numIndexParams),
		MultiParamInternal:    make([]any, numMultiParams),
	}
}

func (s *State) bounds(idx, n int) error {
	if idx < 0 || idx >= n {
		return pywrerr.New(pywrerr.NotFound, "", "index out of range")
	}
	return nil
}

// NodeInFlow reads the current in-flow of node idx.
func (s *State) NodeInFlow(idx int) (float64, error) {
	if err := s.bounds(idx, len(s.NodeInFlows)); err != nil {
		return 0, err
	}
	return s.NodeInFlows[idx], nil
}

// NodeOutFlow reads the current out-flow of node idx.
func (s *State) NodeOutFlow(idx int) (float64, error) {
	if err := s.bounds(idx, len(s.NodeOutFlows)); err != nil {
		return 0, err
	}
	return s.NodeOutFlows[idx], nil
}

// NodeVolume reads the current storage volume of node idx.
func (s *State) NodeVolume(idx int) (float64, error) {
	if err := s.bounds(idx, len(s.Volumes)); err != nil {
		return 0, err
	}
	return s.Volumes[idx], nil
}

// SetNodeVolume writes the storage volume of node idx.
func (s *State) SetNodeVolume(idx int, v float64) error {
	if err := s.bounds(idx, len(s.Volumes)); err != nil {
		return err
	}
	s.Volumes[idx] = v
	return nil
}

// NodeProportionalVolume returns volume/maxVolume, defined as 0 when
// maxVolume is 0 (never NaN).
func (s *State) NodeProportionalVolume(idx int, maxVolume float64) (float64, error) {
	v, err := s.NodeVolume(idx)
	if err != nil {
		return 0, err
	}
	if maxVolume == 0 {
		return 0, nil
	}
	return v / maxVolume, nil
}

// EdgeFlow reads the current flow of edge idx.
func (s *State) EdgeFlow(idx int) (float64, error) {
	if err := s.bounds(idx, len(s.EdgeFlows)); err != nil {
		return 0, err
	}
	return s.EdgeFlows[idx], nil
}

// VirtualStorageVolume reads the current volume of virtual storage idx.
func (s *State) VirtualStorageVolume(idx int) (float64, error) {
	if err := s.bounds(idx, len(s.VirtualStorageVolumes)); err != nil {
		return 0, err
	}
	return s.VirtualStorageVolumes[idx], nil
}

// SetVirtualStorageVolume writes the volume of virtual storage idx.
func (s *State) SetVirtualStorageVolume(idx int, v float64) error {
	if err := s.bounds(idx, len(s.VirtualStorageVolumes)); err != nil {
		return err
	}
	s.VirtualStorageVolumes[idx] = v
	return nil
}

// VirtualStorageProportionalVolume mirrors NodeProportionalVolume for
// virtual storage.
func (s *State) VirtualStorageProportionalVolume(idx int, maxVolume float64) (float64, error) {
	v, err := s.VirtualStorageVolume(idx)
	if err != nil {
		return 0, err
	}
	if maxVolume == 0 {
		return 0, nil
	}
	return v / maxVolume, nil
}

// ParameterValue reads a scalar parameter's last computed value.
func (s *State) ParameterValue(idx int) (float64, error) {
	if err := s.bounds(idx, len(s.ParamValues)); err != nil {
		return 0, err
	}
	return s.ParamValues[idx], nil
}

// SetParameterValue writes a scalar parameter's value.
func (s *State) SetParameterValue(idx int, v float64) error {
	if err := s.bounds(idx, len(s.ParamValues)); err != nil {
		return err
	}
	s.ParamValues[idx] = v
	return nil
}

// IndexParameterValue reads an index parameter's last computed selector.
func (s *State) IndexParameterValue(idx int) (int, error) {
	if err := s.bounds(idx, len(s.IndexParamValues)); err != nil {
		return 0, err
	}
	return s.IndexParamValues[idx], nil
}

// SetIndexParameterValue writes an index parameter's selector.
func (s *State) SetIndexParameterValue(idx int, v int) error {
	if err := s.bounds(idx, len(s.IndexParamValues)); err != nil {
		return err
	}
	s.IndexParamValues[idx] = v
	return nil
}

// MultiParameterValue reads one key out of a multi-value parameter's map.
func (s *State) MultiParameterValue(idx int, key string) (float64, error) {
	if err := s.bounds(idx, len(s.MultiParamValues)); err != nil {
		return 0, err
	}
	m := s.MultiParamValues[idx]
	if m == nil {
		return 0, pywrerr.New(pywrerr.NotFound, key, "multi-value parameter has no values yet")
	}
	v, ok := m[key]
	if !ok {
		return 0, pywrerr.New(pywrerr.NotFound, key, "key not present in multi-value parameter")
	}
	return v, nil
}

// SetMultiParameterValue replaces a multi-value parameter's entire map.
func (s *State) SetMultiParameterValue(idx int, values map[string]float64) error {
	if err := s.bounds(idx, len(s.MultiParamValues)); err != nil {
		return err
	}
	s.MultiParamValues[idx] = values
	return nil
}

// CommitLPResult writes all edge flows atomically from the solver's column
// vector, then recomputes node in/out flows by summation over connected
// edges. nodeInEdges/nodeOutEdges give, for each node index, the edge
// indices flowing in/out (owned by the caller — typically the frozen
// network's topology).
func (s *State) CommitLPResult(flows []float64, nodeInEdges, nodeOutEdges [][]int) error {
	if len(flows) != len(s.EdgeFlows) {
		return pywrerr.New(pywrerr.SolverBackendError, "", "solver returned wrong column count")
	}
	copy(s.EdgeFlows, flows)

	for n := range s.NodeInFlows {
		var in, out float64
		for _, e := range nodeInEdges[n] {
			in += s.EdgeFlows[e]
		}
		for _, e := range nodeOutEdges[n] {
			out += s.EdgeFlows[e]
		}
		s.NodeInFlows[n] = in
		s.NodeOutFlows[n] = out
	}
	return nil
}
