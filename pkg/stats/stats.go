package stats

import "math"

// Mean computes the average of a slice.
func Mean(x []float64) float64 {
	n := len(x)
	if n == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range x {
		sum += v
	}
	return sum / float64(n)
}

// Variance computes the variance of a slice in a single pass.
func Variance(x []float64) float64 {
	n := float64(len(x))
	if n == 0 {
		return 0
	}
	sum, sumSq := 0.0, 0.0
	for _, v := range x {
		sum += v
		sumSq += v * v
	}
	mean := sum / n
	return (sumSq / n) - (mean * mean)
}

// Std computes the standard deviation of a slice.
func Std(x []float64) float64 {
	return math.Sqrt(Variance(x))
}

// ColumnMeans returns the per-column means of a row-major matrix.
func ColumnMeans(X [][]float64) []float64 {
	if len(X) == 0 {
		return nil
	}
	rows, cols := len(X), len(X[0])
	means := make([]float64, cols)
	for i := range rows {
		for j := range cols {
			means[j] += X[i][j]
		}
	}
	for j := range cols {
		means[j] /= float64(rows)
	}
	return means
}

// ColumnStds returns the per-column standard deviations of a row-major
// matrix. Columns with zero spread report a std of 1 so callers can divide
// by the result without guarding.
func ColumnStds(X [][]float64) []float64 {
	if len(X) == 0 {
		return nil
	}
	rows, cols := len(X), len(X[0])
	means := ColumnMeans(X)
	stds := make([]float64, cols)
	for i := range rows {
		for j := range cols {
			d := X[i][j] - means[j]
			stds[j] += d * d
		}
	}
	for j := range cols {
		stds[j] = math.Sqrt(stds[j] / float64(rows))
		if stds[j] == 0 {
			stds[j] = 1
		}
	}
	return stds
}
