// Package solver defines the abstract LP solver contract the simulation
// driver programs against, plus a dense reference implementation. Concrete
// backends (e.g. an FFI-wrapped simplex library) plug in behind LpSolver
// with their row/column numbering matching the builder's fixed layout.
package solver

import (
	"context"

	"github.com/pywr-go/pywr-core-go/lp"
)

// Status is the outcome of one solve.
type Status int

const (
	Optimal Status = iota
	Infeasible
	Unbounded
	Other
)

func (s Status) String() string {
	switch s {
	case Optimal:
		return "optimal"
	case Infeasible:
		return "infeasible"
	case Unbounded:
		return "unbounded"
	default:
		return "other"
	}
}

// LpSolver is the plug-point for LP backends. Init is called once per run
// with the static structure; SetRowBounds and SetObjCoeffs are called every
// step before Solve. Solve returns the optimal column vector (one flow per
// edge column) on Optimal status. Backends give a best-effort warm start
// from the previous solution; they may fall back to a cold solve whenever
// that is all they support.
//
// Implementations need not be safe for concurrent use: the driver
// instantiates one solver per scenario.
type LpSolver interface {
	Init(structure lp.Structure) error
	SetRowBounds(row int, lo, hi float64) error
	SetObjCoeffs(coeffs []float64) error
	Solve(ctx context.Context) ([]float64, Status, error)
}

// Settings configures how the driver uses its solvers. Threads = 0 lets
// the driver choose a worker count automatically.
type Settings struct {
	Parallel bool
	Threads  int
}
