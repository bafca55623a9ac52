package hungarian

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidArgument is wrapped by every precondition violation.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotSquare is returned for cost matrices that are not N×N.
	ErrNotSquare = fmt.Errorf("%w: cost matrix is not square", ErrInvalidArgument)

	// ErrNonFinite is returned when the matrix holds NaN or ±Inf.
	ErrNonFinite = fmt.Errorf("%w: cost matrix contains NaN or Inf", ErrInvalidArgument)

	// ErrOutOfRange is returned when the entries are finite but spread too
	// far apart for the reduced matrix to stay finite in the element type.
	ErrOutOfRange = fmt.Errorf("%w: cost matrix values span too wide a range", ErrInvalidArgument)

	// ErrInvalidEpsilon is returned for a negative, NaN or infinite
	// Solver.Epsilon.
	ErrInvalidEpsilon = fmt.Errorf("%w: epsilon must be finite and >= 0", ErrInvalidArgument)

	// ErrInvalidPermutation is returned by the cost helpers when the
	// assignment is not a bijection matching the matrix size.
	ErrInvalidPermutation = fmt.Errorf("%w: assignment is not a permutation", ErrInvalidArgument)
)

// Float is the set of element types the solver works on.
type Float interface {
	~float32 | ~float64
}

// Solver computes optimal assignments for square matrices of T.
//
// Epsilon is the tolerance of the zero test used while covering zeros: an
// entry v of the reduced matrix counts as zero when v <= Epsilon. The zero
// value compares exactly, which is what the classic formulation does but may
// miss zeros that rounding left slightly positive. A positive Epsilon trades
// this for a total cost that may exceed the optimum by up to N·Epsilon.
// Negative, NaN and infinite values are rejected with ErrInvalidEpsilon.
type Solver[T Float] struct {
	Epsilon T
}

// Assignment is a solved assignment problem.
type Assignment[T Float] struct {
	// Rows maps each row to its assigned column.
	Rows []int `json:"rows"`

	// Cost is the sum of the assigned entries of the original matrix.
	Cost T `json:"cost"`
}

// Apply solves cost with exact zero comparison. See Solver.Apply.
func Apply[T Float](cost [][]T, isCostMatrix bool) ([]int, error) {
	return Solver[T]{}.Apply(cost, isCostMatrix)
}

// Apply returns the assignment of rows to columns of the N×N matrix cost
// that minimises the total of the chosen entries, or maximises it when
// isCostMatrix is false. result[i] is the column assigned to row i.
//
// cost is not modified. An empty matrix yields an empty assignment. Ties are
// broken deterministically in favour of lower row, then column, indices.
//
// # Algorithm
//
//  1. Benefit matrices are negated so that only minimisation remains
//  2. Row reduction, then column reduction
//  3. Zeros are starred greedily, at most one per row and column
//  4. Columns holding a star are covered; N covered columns end the search
//  5. Uncovered zeros are primed. A prime in a row with a star covers that
//     row and uncovers the star's column; a prime in a row without a star
//     starts an augmenting path of alternating primes and stars that gains
//     one star
//  6. Without an uncovered zero, the smallest uncovered value is subtracted
//     from every uncovered column and added to every covered row, creating
//     a new zero without destroying starred or primed ones
func (s Solver[T]) Apply(cost [][]T, isCostMatrix bool) ([]int, error) {
	if eps := float64(s.Epsilon); eps < 0 || math.IsNaN(eps) || math.IsInf(eps, 0) {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidEpsilon, s.Epsilon)
	}

	n := len(cost)
	for i, row := range cost {
		if len(row) != n {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", ErrNotSquare, i, len(row), n)
		}
	}
	if n == 0 {
		return []int{}, nil
	}

	m, err := newMunkres(cost, !isCostMatrix, s.Epsilon)
	if err != nil {
		return nil, err
	}
	return m.solve(), nil
}

// Solve is Apply plus the realised total of the original matrix.
func (s Solver[T]) Solve(cost [][]T, isCostMatrix bool) (Assignment[T], error) {
	rows, err := s.Apply(cost, isCostMatrix)
	if err != nil {
		return Assignment[T]{}, err
	}
	total, err := TotalCost(cost, rows)
	if err != nil {
		return Assignment[T]{}, err
	}
	return Assignment[T]{Rows: rows, Cost: total}, nil
}

// TotalCost returns the sum of cost[i][rows[i]].
func TotalCost[T Float](cost [][]T, rows []int) (T, error) {
	n := len(cost)
	if len(rows) != n {
		return 0, fmt.Errorf("%w: %d entries for %d rows", ErrInvalidPermutation, len(rows), n)
	}
	seen := make([]bool, n)
	var total T
	for i, j := range rows {
		if j < 0 || j >= n || seen[j] {
			return 0, fmt.Errorf("%w: row %d -> column %d", ErrInvalidPermutation, i, j)
		}
		if len(cost[i]) != n {
			return 0, fmt.Errorf("%w: row %d has %d columns, want %d", ErrNotSquare, i, len(cost[i]), n)
		}
		seen[j] = true
		total += cost[i][j]
	}
	return total, nil
}

// munkres holds the working state of one solve.
type munkres[T Float] struct {
	n   int
	c   []T // row-major reduced matrix
	eps T

	starInRow []int
	starInCol []int
	primeRow  []int // column of the prime in each row, or -1

	rowCovered []bool
	colCovered []bool
}

func newMunkres[T Float](cost [][]T, negate bool, eps T) (*munkres[T], error) {
	n := len(cost)
	m := &munkres[T]{
		n:          n,
		c:          make([]T, n*n),
		eps:        eps,
		starInRow:  make([]int, n),
		starInCol:  make([]int, n),
		primeRow:   make([]int, n),
		rowCovered: make([]bool, n),
		colCovered: make([]bool, n),
	}
	lo, hi := cost[0][0], cost[0][0]
	for i, row := range cost {
		for j, v := range row {
			f := float64(v)
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return nil, fmt.Errorf("%w: at (%d, %d)", ErrNonFinite, i, j)
			}
			lo, hi = min(lo, v), max(hi, v)
			if negate {
				v = -v
			}
			m.c[i*n+j] = v
		}
	}
	// Adjusting can grow reduced entries to a multiple of the span; keep 2N
	// spans of headroom so that no entry overflows to Inf.
	if span := (hi - lo) * T(2*n); math.IsInf(float64(span), 0) {
		return nil, fmt.Errorf("%w: [%v, %v] for N=%d", ErrOutOfRange, lo, hi, n)
	}
	for i := range m.starInRow {
		m.starInRow[i] = -1
		m.starInCol[i] = -1
		m.primeRow[i] = -1
	}
	return m, nil
}

func (m *munkres[T]) at(i, j int) T {
	return m.c[i*m.n+j]
}

func (m *munkres[T]) isZero(i, j int) bool {
	return m.c[i*m.n+j] <= m.eps
}

func (m *munkres[T]) solve() []int {
	m.reduce()
	m.starZeros()

	for m.coverStarredColumns() < m.n {
		for {
			i, j, ok := m.findUncoveredZero()
			if !ok {
				m.adjust()
				continue
			}
			m.primeRow[i] = j
			if sc := m.starInRow[i]; sc >= 0 {
				m.rowCovered[i] = true
				m.colCovered[sc] = false
				continue
			}
			m.augment(i, j)
			m.clearCoversAndPrimes()
			break
		}
	}

	out := make([]int, m.n)
	copy(out, m.starInRow)
	return out
}

// reduce subtracts each row minimum, then each column minimum.
func (m *munkres[T]) reduce() {
	n := m.n
	for i := 0; i < n; i++ {
		row := m.c[i*n : (i+1)*n]
		lo := row[0]
		for _, v := range row[1:] {
			lo = min(lo, v)
		}
		for j := range row {
			row[j] -= lo
		}
	}
	for j := 0; j < n; j++ {
		lo := m.at(0, j)
		for i := 1; i < n; i++ {
			lo = min(lo, m.at(i, j))
		}
		for i := 0; i < n; i++ {
			m.c[i*n+j] -= lo
		}
	}
}

// starZeros stars a greedy independent set of zeros.
func (m *munkres[T]) starZeros() {
	for i := 0; i < m.n; i++ {
		for j := 0; j < m.n; j++ {
			if m.starInCol[j] < 0 && m.isZero(i, j) {
				m.starInRow[i] = j
				m.starInCol[j] = i
				break
			}
		}
	}
}

// coverStarredColumns covers every column holding a star and returns the
// number of covered columns.
func (m *munkres[T]) coverStarredColumns() int {
	count := 0
	for j := 0; j < m.n; j++ {
		m.colCovered[j] = m.starInCol[j] >= 0
		if m.colCovered[j] {
			count++
		}
	}
	return count
}

func (m *munkres[T]) findUncoveredZero() (int, int, bool) {
	for i := 0; i < m.n; i++ {
		if m.rowCovered[i] {
			continue
		}
		for j := 0; j < m.n; j++ {
			if !m.colCovered[j] && m.isZero(i, j) {
				return i, j, true
			}
		}
	}
	return 0, 0, false
}

// adjust moves the smallest uncovered value out of the uncovered block.
func (m *munkres[T]) adjust() {
	first := true
	var lo T
	for i := 0; i < m.n; i++ {
		if m.rowCovered[i] {
			continue
		}
		for j := 0; j < m.n; j++ {
			if m.colCovered[j] {
				continue
			}
			if v := m.at(i, j); first || v < lo {
				lo, first = v, false
			}
		}
	}
	for i := 0; i < m.n; i++ {
		for j := 0; j < m.n; j++ {
			if m.rowCovered[i] {
				m.c[i*m.n+j] += lo
			}
			if !m.colCovered[j] {
				m.c[i*m.n+j] -= lo
			}
		}
	}
}

// augment flips the alternating path of primes and stars that starts at the
// uncovered prime (row, col).
func (m *munkres[T]) augment(row, col int) {
	for {
		r := m.starInCol[col]
		m.starInRow[row] = col
		m.starInCol[col] = row
		if r < 0 {
			return
		}
		m.starInRow[r] = -1
		row, col = r, m.primeRow[r]
	}
}

func (m *munkres[T]) clearCoversAndPrimes() {
	for i := 0; i < m.n; i++ {
		m.rowCovered[i] = false
		m.colCovered[i] = false
		m.primeRow[i] = -1
	}
}
