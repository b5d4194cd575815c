// Package vector provides similarity and top-k selection over dense float32 vectors.
package vector

import "math"

// InnerProduct returns the inner product of two vectors (for normalized vectors equals cosine similarity).
func InnerProduct(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

// L2Norm returns the L2 norm of a vector.
func L2Norm(x []float32) float64 {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}

// Cosine returns the cosine of the angle between a and b, in [-1, 1].
// The result is not clamped or rescaled. Mismatched lengths and zero-norm
// vectors score 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	na, nb := L2Norm(a), L2Norm(b)
	if na == 0 || nb == 0 {
		return 0
	}
	return InnerProduct(a, b) / (na * nb)
}

// CosineRows scores query against every row of a row-major matrix with dims
// columns. The query norm is computed once.
func CosineRows(query []float32, matrix []float32, dims int) []float64 {
	if dims <= 0 || len(query) != dims {
		return nil
	}
	rows := len(matrix) / dims
	scores := make([]float64, rows)
	qn := L2Norm(query)
	if qn == 0 {
		return scores
	}
	for r := 0; r < rows; r++ {
		row := matrix[r*dims : (r+1)*dims]
		rn := L2Norm(row)
		if rn == 0 {
			continue
		}
		scores[r] = InnerProduct(query, row) / (qn * rn)
	}
	return scores
}
