// Package network is the frozen, addressable directed graph of nodes and
// edges plus the aggregate and virtual-storage abstractions built on top of
// it. Edges carry no predicates or routing state: flow is simply
// nonnegative on every edge.
package network

// EdgeIdx is a stable handle into a Network's edge arena.
type EdgeIdx int

// Edge is a directed connection from one node to another. Flow on an edge
// is always >= 0; self-loops are rejected at construction time.
type Edge struct {
	From int // NodeIdx
	To   int // NodeIdx
}
