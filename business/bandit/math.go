package bandit

import (
	"fmt"
	"math"
)

// y = A * x
func matVecMul(A [][]float64, x []float64) []float64 {
	y := make([]float64, len(A))
	for i := range A {
		sum := 0.0
		for j := range x {
			sum += A[i][j] * x[j]
		}
		y[i] = sum
	}
	return y
}

func dot(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// A := A + x x^T
func addOuter(A [][]float64, x []float64) {
	for i := range x {
		for j := range x {
			A[i][j] += x[i] * x[j]
		}
	}
}

// b := b + r x
func addScaled(b []float64, x []float64, r float64) {
	for i := range x {
		b[i] += r * x[i]
	}
}

func scale(A [][]float64, b []float64, f float64) {
	for i := range A {
		for j := range A[i] {
			A[i][j] *= f
		}
		b[i] *= f
	}
}

func zeros(n int) [][]float64 {
	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n)
	}
	return m
}

// I + D
func plusIdentity(D [][]float64) [][]float64 {
	out := zeros(len(D))
	for i := range D {
		copy(out[i], D[i])
		out[i][i] += 1
	}
	return out
}

// invert uses Gauss-Jordan elimination with partial pivoting.
func invert(A [][]float64) ([][]float64, error) {
	n := len(A)
	aug := make([][]float64, n)
	for i := range aug {
		aug[i] = make([]float64, 2*n)
		copy(aug[i], A[i])
		aug[i][n+i] = 1
	}

	for col := 0; col < n; col++ {
		pivotRow := col
		for r := col + 1; r < n; r++ {
			if math.Abs(aug[r][col]) > math.Abs(aug[pivotRow][col]) {
				pivotRow = r
			}
		}
		if math.Abs(aug[pivotRow][col]) < 1e-12 {
			return nil, fmt.Errorf("matrix is singular")
		}
		aug[col], aug[pivotRow] = aug[pivotRow], aug[col]

		pivot := aug[col][col]
		for j := range aug[col] {
			aug[col][j] /= pivot
		}

		for i := 0; i < n; i++ {
			if i == col {
				continue
			}
			factor := aug[i][col]
			for j := range aug[i] {
				aug[i][j] -= factor * aug[col][j]
			}
		}
	}

	inv := zeros(n)
	for i := range inv {
		copy(inv[i], aug[i][n:])
	}
	return inv, nil
}
