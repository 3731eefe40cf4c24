package param

import "github.com/pywr-go/pywr-core-go/pywrerr"

// EvalKind tags one entry of the evaluation order with the parameter kind
// it refers to.
type EvalKind int

const (
	EvalIndex EvalKind = iota
	EvalMulti
	EvalScalar
)

// EvalStep is one slot in the frozen evaluation order.
type EvalStep struct {
	Kind  EvalKind
	Index int
}

// Registry owns the three parameter arenas and, after Freeze, the
// topological evaluation order used every timestep. Handles are dense,
// assigned at insertion, and never reused; names are unique within each
// parameter kind.
type Registry struct {
	params      []Parameter
	indexParams []IndexParameter
	multiParams []MultiParameter

	paramNames      map[string]int
	indexParamNames map[string]int
	multiParamNames map[string]int

	frozen bool
	order  []EvalStep
}

// NewRegistry creates an empty parameter registry.
func NewRegistry() *Registry {
	return &Registry{
		paramNames:      make(map[string]int),
		indexParamNames: make(map[string]int),
		multiParamNames: make(map[string]int),
	}
}

// AddParameter registers a scalar parameter and returns its handle.
func (r *Registry) AddParameter(p Parameter) (ParameterIdx, error) {
	if r.frozen {
		return 0, pywrerr.New(pywrerr.InvalidEdge, p.Meta().Name, "registry is frozen")
	}
	name := p.Meta().Name
	if _, exists := r.paramNames[name]; exists {
		return 0, pywrerr.New(pywrerr.DuplicateName, name, "duplicate parameter name")
	}
	idx := len(r.params)
	r.params = append(r.params, p)
	r.paramNames[name] = idx
	return ParameterIdx(idx), nil
}

// AddIndexParameter registers an index parameter and returns its handle.
func (r *Registry) AddIndexParameter(p IndexParameter) (IndexParameterIdx, error) {
	if r.frozen {
		return 0, pywrerr.New(pywrerr.InvalidEdge, p.Meta().Name, "registry is frozen")
	}
	name := p.Meta().Name
	if _, exists := r.indexParamNames[name]; exists {
		return 0, pywrerr.New(pywrerr.DuplicateName, name, "duplicate index parameter name")
	}
	idx := len(r.indexParams)
	r.indexParams = append(r.indexParams, p)
	r.indexParamNames[name] = idx
	return IndexParameterIdx(idx), nil
}

// AddMultiParameter registers a multi-value parameter and returns its
// handle.
func (r *Registry) AddMultiParameter(p MultiParameter) (MultiParameterIdx, error) {
	if r.frozen {
		return 0, pywrerr.New(pywrerr.InvalidEdge, p.Meta().Name, "registry is frozen")
	}
	name := p.Meta().Name
	if _, exists := r.multiParamNames[name]; exists {
		return 0, pywrerr.New(pywrerr.DuplicateName, name, "duplicate multi-value parameter name")
	}
	idx := len(r.multiParams)
	r.multiParams = append(r.multiParams, p)
	r.multiParamNames[name] = idx
	return MultiParameterIdx(idx), nil
}

// Parameter returns the scalar parameter at idx.
func (r *Registry) Parameter(idx ParameterIdx) (Parameter, error) {
	if int(idx) < 0 || int(idx) >= len(r.params) {
		return nil, pywrerr.New(pywrerr.NotFound, "", "invalid parameter index")
	}
	return r.params[idx], nil
}

// IndexParameter returns the index parameter at idx.
func (r *Registry) IndexParameter(idx IndexParameterIdx) (IndexParameter, error) {
	if int(idx) < 0 || int(idx) >= len(r.indexParams) {
		return nil, pywrerr.New(pywrerr.NotFound, "", "invalid index parameter index")
	}
	return r.indexParams[idx], nil
}

// MultiParameter returns the multi-value parameter at idx.
func (r *Registry) MultiParameter(idx MultiParameterIdx) (MultiParameter, error) {
	if int(idx) < 0 || int(idx) >= len(r.multiParams) {
		return nil, pywrerr.New(pywrerr.NotFound, "", "invalid multi-value parameter index")
	}
	return r.multiParams[idx], nil
}

// ParameterIndexByName resolves a scalar parameter handle from its name.
func (r *Registry) ParameterIndexByName(name string) (ParameterIdx, error) {
	idx, ok := r.paramNames[name]
	if !ok {
		return 0, pywrerr.New(pywrerr.NotFound, name, "unknown parameter")
	}
	return ParameterIdx(idx), nil
}

// IndexParameterIndexByName resolves an index parameter handle from its
// name.
func (r *Registry) IndexParameterIndexByName(name string) (IndexParameterIdx, error) {
	idx, ok := r.indexParamNames[name]
	if !ok {
		return 0, pywrerr.New(pywrerr.NotFound, name, "unknown index parameter")
	}
	return IndexParameterIdx(idx), nil
}

// NumParameters returns the number of scalar parameters.
func (r *Registry) NumParameters() int { return len(r.params) }

// NumIndexParameters returns the number of index parameters.
func (r *Registry) NumIndexParameters() int { return len(r.indexParams) }

// NumMultiParameters returns the number of multi-value parameters.
func (r *Registry) NumMultiParameters() int { return len(r.multiParams) }

// depNode identifies one parameter of any kind inside the dependency graph.
type depNode struct {
	kind EvalKind
	idx  int
}

func (r *Registry) nodeName(n depNode) string {
	switch n.kind {
	case EvalIndex:
		return r.indexParams[n.idx].Meta().Name
	case EvalMulti:
		return r.multiParams[n.idx].Meta().Name
	default:
		return r.params[n.idx].Meta().Name
	}
}

func (r *Registry) nodeDeps(n depNode) ([]ParameterIdx, []IndexParameterIdx, []MultiParameterIdx) {
	var p any
	switch n.kind {
	case EvalIndex:
		p = r.indexParams[n.idx]
	case EvalMulti:
		p = r.multiParams[n.idx]
	default:
		p = r.params[n.idx]
	}
	if d, ok := p.(Dependencies); ok {
		return d.Dependencies()
	}
	return nil, nil, nil
}

// Freeze validates the dependency graph and fixes the evaluation order: a
// deterministic topological sort over all three kinds, preferring index
// parameters, then multi-value parameters, then scalars wherever the
// dependencies allow it. Cycles and self-references fail with
// CyclicDependency; dangling handles fail with NotFound.
func (r *Registry) Freeze() error {
	if r.frozen {
		return nil
	}

	// Candidate order: index, multi, scalar, each in insertion order. The
	// sort below always picks the earliest ready candidate, so the result
	// is stable across runs.
	var nodes []depNode
	for i := range r.indexParams {
		nodes = append(nodes, depNode{kind: EvalIndex, idx: i})
	}
	for i := range r.multiParams {
		nodes = append(nodes, depNode{kind: EvalMulti, idx: i})
	}
	for i := range r.params {
		nodes = append(nodes, depNode{kind: EvalScalar, idx: i})
	}

	deps := make(map[depNode][]depNode, len(nodes))
	for _, n := range nodes {
		ps, is, ms := r.nodeDeps(n)
		var edges []depNode
		for _, p := range ps {
			if int(p) < 0 || int(p) >= len(r.params) {
				return pywrerr.New(pywrerr.NotFound, r.nodeName(n), "dependency on unknown parameter")
			}
			edges = append(edges, depNode{kind: EvalScalar, idx: int(p)})
		}
		for _, p := range is {
			if int(p) < 0 || int(p) >= len(r.indexParams) {
				return pywrerr.New(pywrerr.NotFound, r.nodeName(n), "dependency on unknown index parameter")
			}
			edges = append(edges, depNode{kind: EvalIndex, idx: int(p)})
		}
		for _, p := range ms {
			if int(p) < 0 || int(p) >= len(r.multiParams) {
				return pywrerr.New(pywrerr.NotFound, r.nodeName(n), "dependency on unknown multi-value parameter")
			}
			edges = append(edges, depNode{kind: EvalMulti, idx: int(p)})
		}
		for _, e := range edges {
			if e == n {
				return pywrerr.New(pywrerr.CyclicDependency, r.nodeName(n), "parameter depends on itself")
			}
		}
		deps[n] = edges
	}

	done := make(map[depNode]bool, len(nodes))
	order := make([]EvalStep, 0, len(nodes))
	for len(order) < len(nodes) {
		progressed := false
		for _, n := range nodes {
			if done[n] {
				continue
			}
			ready := true
			for _, d := range deps[n] {
				if !done[d] {
					ready = false
					break
				}
			}
			if !ready {
				continue
			}
			done[n] = true
			order = append(order, EvalStep{Kind: n.kind, Index: n.idx})
			progressed = true
		}
		if !progressed {
			for _, n := range nodes {
				if !done[n] {
					return pywrerr.New(pywrerr.CyclicDependency, r.nodeName(n), "parameter dependency cycle")
				}
			}
		}
	}

	r.order = order
	r.frozen = true
	return nil
}

// Order returns the frozen evaluation order. It is empty until Freeze has
// been called.
func (r *Registry) Order() []EvalStep { return r.order }
