package hungarian

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ApplyMatrix solves a gonum matrix. epsilon is the zero tolerance, see
// Solver.
func ApplyMatrix(m mat.Matrix, isCostMatrix bool, epsilon float64) ([]int, error) {
	rows, err := denseRows(m)
	if err != nil {
		return nil, err
	}
	return Solver[float64]{Epsilon: epsilon}.Apply(rows, isCostMatrix)
}

// MatrixCost returns the sum of m(i, rows[i]).
func MatrixCost(m mat.Matrix, rows []int) (float64, error) {
	r, err := denseRows(m)
	if err != nil {
		return 0, err
	}
	return TotalCost(r, rows)
}

func denseRows(m mat.Matrix) ([][]float64, error) {
	r, c := m.Dims()
	if r != c {
		return nil, fmt.Errorf("%w: %dx%d", ErrNotSquare, r, c)
	}
	rows := make([][]float64, r)
	for i := range rows {
		rows[i] = make([]float64, c)
		if d, ok := m.(mat.RawRowViewer); ok {
			copy(rows[i], d.RawRowView(i))
			continue
		}
		for j := range rows[i] {
			rows[i][j] = m.At(i, j)
		}
	}
	return rows, nil
}
