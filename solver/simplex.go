package solver

import (
	"context"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/pywr-go/pywr-core-go/lp"
	"github.com/pywr-go/pywr-core-go/pywrerr"
)

const (
	pivotTol       = 1e-9
	feasibilityTol = 1e-7
	maxPivots      = 20000
)

// SimplexSolver is the dense reference backend: a two-phase primal simplex
// over a gonum tableau. It is exact enough for the network LPs the builder
// emits (tens to low thousands of columns) and fully deterministic — Bland's
// rule picks the lowest-index entering and leaving variables, so identical
// inputs always produce identical solutions.
//
// The solver records the last optimal column vector but never reads it
// back: every Solve builds a fresh tableau and starts cold, with no warm
// start from the previous solution.
type SimplexSolver struct {
	structure lp.Structure
	rowLo     []float64
	rowHi     []float64
	obj       []float64
	prev      []float64
}

// NewSimplexSolver creates an uninitialised solver; call Init before use.
func NewSimplexSolver() *SimplexSolver {
	return &SimplexSolver{}
}

func (s *SimplexSolver) Init(structure lp.Structure) error {
	s.structure = structure
	s.rowLo = make([]float64, len(structure.Rows))
	s.rowHi = make([]float64, len(structure.Rows))
	for i := range s.rowLo {
		s.rowLo[i] = math.Inf(-1)
		s.rowHi[i] = math.Inf(1)
	}
	s.obj = make([]float64, structure.NumCols)
	s.prev = nil
	return nil
}

func (s *SimplexSolver) SetRowBounds(row int, lo, hi float64) error {
	if row < 0 || row >= len(s.rowLo) {
		return pywrerr.New(pywrerr.SolverBackendError, "", "row index outside structure")
	}
	s.rowLo[row] = lo
	s.rowHi[row] = hi
	return nil
}

func (s *SimplexSolver) SetObjCoeffs(coeffs []float64) error {
	if len(coeffs) != len(s.obj) {
		return pywrerr.New(pywrerr.SolverBackendError, "", "objective length does not match column count")
	}
	copy(s.obj, coeffs)
	return nil
}

// consType is the sense of one normalised constraint.
type consType int

const (
	consLE consType = iota
	consGE
	consEQ
)

type cons struct {
	coefs []float64
	typ   consType
	rhs   float64
}

// Solve runs the two-phase simplex and returns the optimal structural
// column vector.
func (s *SimplexSolver) Solve(ctx context.Context) ([]float64, Status, error) {
	n := s.structure.NumCols

	rows, feasible := s.normalise()
	if !feasible {
		return nil, Infeasible, pywrerr.New(pywrerr.InfeasibleLP, "", "row bounds cross over")
	}
	if len(rows) == 0 {
		// Nothing binds: the zero vector is optimal unless some column
		// could fall forever.
		for _, c := range s.obj {
			if c < -pivotTol {
				return nil, Unbounded, pywrerr.New(pywrerr.UnboundedLP, "", "objective is unbounded below")
			}
		}
		x := make([]float64, n)
		s.prev = x
		return x, Optimal, nil
	}

	m := len(rows)
	slackStart := n
	var numSlack int
	for _, r := range rows {
		if r.typ != consEQ {
			numSlack++
		}
	}
	artStart := slackStart + numSlack
	var numArt int
	for _, r := range rows {
		if r.typ != consLE {
			numArt++
		}
	}
	total := artStart + numArt

	// Tableau: one row per constraint, columns [structural | slack/surplus
	// | artificial | rhs].
	tab := mat.NewDense(m, total+1, nil)
	basis := make([]int, m)
	nextSlack, nextArt := slackStart, artStart
	for i, r := range rows {
		for j, v := range r.coefs {
			tab.Set(i, j, v)
		}
		tab.Set(i, total, r.rhs)
		switch r.typ {
		case consLE:
			tab.Set(i, nextSlack, 1)
			basis[i] = nextSlack
			nextSlack++
		case consGE:
			tab.Set(i, nextSlack, -1)
			nextSlack++
			tab.Set(i, nextArt, 1)
			basis[i] = nextArt
			nextArt++
		case consEQ:
			tab.Set(i, nextArt, 1)
			basis[i] = nextArt
			nextArt++
		}
	}

	// Phase 1: minimise the artificial sum.
	cost := make([]float64, total+1)
	for j := artStart; j < total; j++ {
		cost[j] = 1
	}
	for i := 0; i < m; i++ {
		if basis[i] >= artStart {
			for j := 0; j <= total; j++ {
				cost[j] -= tab.At(i, j)
			}
		}
	}
	status, err := pivotLoop(ctx, tab, basis, cost, total, func(int) bool { return true })
	if err != nil {
		return nil, Other, err
	}
	if status != Optimal {
		// Phase 1 is bounded below by zero; anything else is a backend
		// defect.
		return nil, Other, pywrerr.New(pywrerr.SolverBackendError, "", "phase 1 did not converge")
	}
	if -cost[total] > feasibilityTol {
		return nil, Infeasible, pywrerr.New(pywrerr.InfeasibleLP, "", "no feasible flow allocation")
	}

	// Pivot leftover artificials out of the basis where possible; rows
	// that offer no pivot are redundant and keep a zero-valued artificial.
	for i := 0; i < m; i++ {
		if basis[i] < artStart {
			continue
		}
		for j := 0; j < artStart; j++ {
			if math.Abs(tab.At(i, j)) > pivotTol {
				eliminate(tab, basis, nil, total, i, j)
				break
			}
		}
	}

	// Phase 2: minimise the real objective, artificials barred.
	for j := range cost {
		cost[j] = 0
	}
	copy(cost, s.obj)
	for i := 0; i < m; i++ {
		if c := basicCost(s.obj, basis[i]); c != 0 {
			for j := 0; j <= total; j++ {
				cost[j] -= c * tab.At(i, j)
			}
		}
	}
	status, err = pivotLoop(ctx, tab, basis, cost, total, func(j int) bool { return j < artStart })
	if err != nil {
		return nil, Other, err
	}
	if status != Optimal {
		return nil, status, pywrerr.New(pywrerr.UnboundedLP, "", "objective is unbounded below")
	}

	x := make([]float64, n)
	for i := 0; i < m; i++ {
		if basis[i] < n {
			v := tab.At(i, total)
			if v < 0 && v > -feasibilityTol {
				v = 0
			}
			x[basis[i]] = v
		}
	}
	s.prev = x
	return x, Optimal, nil
}

// normalise expands the ranged rows into single-sense constraints with
// non-negative right-hand sides. The second result is false when a row's
// bounds cross over.
func (s *SimplexSolver) normalise() ([]cons, bool) {
	n := s.structure.NumCols
	var out []cons
	for i, rs := range s.structure.Rows {
		lo, hi := s.rowLo[i], s.rowHi[i]
		if lo > hi+feasibilityTol {
			return nil, false
		}
		if math.IsInf(lo, -1) && math.IsInf(hi, 1) {
			continue
		}
		dense := make([]float64, n)
		for k, c := range rs.Cols {
			dense[c] += rs.Coefs[k]
		}
		if !math.IsInf(lo, -1) && !math.IsInf(hi, 1) && hi-lo <= feasibilityTol {
			out = append(out, normaliseRHS(cons{coefs: dense, typ: consEQ, rhs: (lo + hi) / 2}))
			continue
		}
		if !math.IsInf(hi, 1) {
			out = append(out, normaliseRHS(cons{coefs: append([]float64(nil), dense...), typ: consLE, rhs: hi}))
		}
		if !math.IsInf(lo, -1) {
			out = append(out, normaliseRHS(cons{coefs: append([]float64(nil), dense...), typ: consGE, rhs: lo}))
		}
	}
	return out, true
}

func normaliseRHS(c cons) cons {
	if c.rhs >= 0 {
		return c
	}
	for j := range c.coefs {
		c.coefs[j] = -c.coefs[j]
	}
	c.rhs = -c.rhs
	switch c.typ {
	case consLE:
		c.typ = consGE
	case consGE:
		c.typ = consLE
	}
	return c
}

func basicCost(obj []float64, col int) float64 {
	if col < len(obj) {
		return obj[col]
	}
	return 0
}

// pivotLoop runs Bland-rule pivots until the reduced costs are
// non-negative (Optimal) or an entering column has no blocking row
// (Unbounded).
func pivotLoop(ctx context.Context, tab *mat.Dense, basis []int, cost []float64, total int, allowed func(int) bool) (Status, error) {
	m := len(basis)
	for iter := 0; iter < maxPivots; iter++ {
		if iter%64 == 0 {
			select {
			case <-ctx.Done():
				return Other, pywrerr.Wrap(pywrerr.SolverTimeout, "", ctx.Err())
			default:
			}
		}

		entering := -1
		for j := 0; j < total; j++ {
			if allowed(j) && cost[j] < -pivotTol {
				entering = j
				break
			}
		}
		if entering < 0 {
			return Optimal, nil
		}

		leaving := -1
		bestRatio := math.Inf(1)
		for i := 0; i < m; i++ {
			a := tab.At(i, entering)
			if a <= pivotTol {
				continue
			}
			ratio := tab.At(i, total) / a
			if ratio < bestRatio-pivotTol || (math.Abs(ratio-bestRatio) <= pivotTol && (leaving < 0 || basis[i] < basis[leaving])) {
				bestRatio = ratio
				leaving = i
			}
		}
		if leaving < 0 {
			return Unbounded, nil
		}

		eliminate(tab, basis, cost, total, leaving, entering)
	}
	return Other, pywrerr.New(pywrerr.SolverBackendError, "", "pivot limit exceeded")
}

// eliminate pivots on (row, col): scales the pivot row to 1 and clears the
// column from every other row and, when given, the cost row.
func eliminate(tab *mat.Dense, basis []int, cost []float64, total int, row, col int) {
	m := len(basis)
	pivot := tab.At(row, col)
	for j := 0; j <= total; j++ {
		tab.Set(row, j, tab.At(row, j)/pivot)
	}
	for i := 0; i < m; i++ {
		if i == row {
			continue
		}
		f := tab.At(i, col)
		if f == 0 {
			continue
		}
		for j := 0; j <= total; j++ {
			tab.Set(i, j, tab.At(i, j)-f*tab.At(row, j))
		}
	}
	if cost != nil {
		f := cost[col]
		if f != 0 {
			for j := 0; j <= total; j++ {
				cost[j] -= f * tab.At(row, j)
			}
		}
	}
	basis[row] = col
}
