// Package hungarian solves the linear assignment problem with the Munkres
// (Hungarian) algorithm.
//
// Given an N×N matrix, Apply returns the one-to-one assignment of rows to
// columns whose summed entries are minimal, or maximal for benefit matrices.
// The solver is generic over float32 and float64 element types and runs in
// O(N³) time with O(N²) working memory.
//
// # Usage
//
//	rows, err := hungarian.Apply(cost, true)
//	// rows[i] is the column assigned to row i
//
// A Solver value carries the zero tolerance used while covering zeros.
// ApplyMatrix accepts any gonum mat.Matrix, which is how the tracker builds
// its distance matrices.
//
// Rectangular problems are not padded automatically; callers pad to square
// with a neutral value before solving.
package hungarian
